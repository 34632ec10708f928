package enums

// ContentType identifies the kind of author-submitted content a flagged
// record or a report points at.
type ContentType string

const (
	ContentTypeTopic          ContentType = "topic"
	ContentTypeComment        ContentType = "comment"
	ContentTypeAnnouncement   ContentType = "announcement"
	ContentTypeRecommendation ContentType = "recommendation"
	ContentTypeEvent          ContentType = "event"
)

// CollectionName maps a content type to its backing collection.
func (c ContentType) CollectionName() string {
	switch c {
	case ContentTypeTopic:
		return "topics"
	case ContentTypeComment:
		return "comments"
	case ContentTypeAnnouncement:
		return "announcements"
	case ContentTypeRecommendation:
		return "recommendations"
	case ContentTypeEvent:
		return "events"
	default:
		return ""
	}
}

// Screened reports whether submissions of this type pass through the
// classifier. Events only enter the queue via user reports.
func (c ContentType) Screened() bool {
	return c != ContentTypeEvent && c.CollectionName() != ""
}

// IsPostLike reports whether the type lives in a post collection that
// carries a comments array.
func (c ContentType) IsPostLike() bool {
	switch c {
	case ContentTypeTopic, ContentTypeAnnouncement, ContentTypeRecommendation, ContentTypeEvent:
		return true
	default:
		return false
	}
}

func ParseContentType(value string) (ContentType, bool) {
	ct := ContentType(value)
	if ct.CollectionName() == "" {
		return "", false
	}
	return ct, true
}
