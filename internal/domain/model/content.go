package model

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/atakee72/community-platform/internal/domain/enums"
)

// EditRecord keeps the pre-edit text so reviewers can see what changed.
type EditRecord struct {
	OriginalTitle string    `bson:"originalTitle" json:"original_title"`
	OriginalBody  string    `bson:"originalBody" json:"original_body"`
	EditedAt      time.Time `bson:"editedAt" json:"edited_at"`
	EditedBy      string    `bson:"editedBy" json:"edited_by"`
}

// Post is a top-level content item: topic, announcement, recommendation
// or calendar event. All four live in their own collections but share the
// document shape; the event-only fields stay empty elsewhere.
type Post struct {
	ID       primitive.ObjectID   `bson:"_id,omitempty" json:"id"`
	Title    string               `bson:"title" json:"title"`
	Body     string               `bson:"body" json:"body"`
	AuthorID string               `bson:"author" json:"author_id"`
	Tags     []string             `bson:"tags" json:"tags"`
	Comments []primitive.ObjectID `bson:"comments" json:"comments"`
	Views    int                  `bson:"views" json:"views"`
	Likes    int                  `bson:"likes" json:"likes"`
	LikedBy  []string             `bson:"likedBy" json:"liked_by"`

	ModerationStatus enums.ModerationStatus `bson:"moderationStatus,omitempty" json:"moderation_status,omitempty"`
	IsUserReported   bool                   `bson:"isUserReported,omitempty" json:"is_user_reported,omitempty"`
	RejectionReason  string                 `bson:"rejectionReason,omitempty" json:"rejection_reason,omitempty"`
	HasWarningLabel  bool                   `bson:"hasWarningLabel,omitempty" json:"has_warning_label,omitempty"`
	WarningText      string                 `bson:"warningText,omitempty" json:"warning_text,omitempty"`

	EditHistory  []EditRecord `bson:"editHistory,omitempty" json:"edit_history,omitempty"`
	IsEdited     bool         `bson:"isEdited,omitempty" json:"is_edited,omitempty"`
	LastEditedAt *time.Time   `bson:"lastEditedAt,omitempty" json:"last_edited_at,omitempty"`

	// Event-only fields.
	StartDate *time.Time `bson:"startDate,omitempty" json:"start_date,omitempty"`
	EndDate   *time.Time `bson:"endDate,omitempty" json:"end_date,omitempty"`
	Location  string     `bson:"location,omitempty" json:"location,omitempty"`
	Category  string     `bson:"category,omitempty" json:"category,omitempty"`

	CreatedAt time.Time `bson:"createdAt" json:"created_at"`
	UpdatedAt time.Time `bson:"updatedAt" json:"updated_at"`
}

// Visible reports whether the post may be shown to viewerID. AI-flagged
// pending content is hidden from everyone but the author; user-reported
// pending content stays public; rejected content is author-only.
func (p Post) Visible(viewerID string) bool {
	switch p.ModerationStatus {
	case "", enums.ModerationStatusApproved:
		return true
	case enums.ModerationStatusPending:
		return p.IsUserReported || p.AuthorID == viewerID
	case enums.ModerationStatusRejected:
		return p.AuthorID == viewerID
	default:
		return false
	}
}

// Comment references its parent post and the collection the parent lives
// in, so rejection can unlink it without guessing.
type Comment struct {
	ID               primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Body             string             `bson:"body" json:"body"`
	AuthorID         string             `bson:"author" json:"author_id"`
	ParentID         primitive.ObjectID `bson:"relevantPostId" json:"parent_id"`
	ParentCollection enums.ContentType  `bson:"parentCollection" json:"parent_collection"`
	Upvotes          int                `bson:"upvotes" json:"upvotes"`

	ModerationStatus enums.ModerationStatus `bson:"moderationStatus,omitempty" json:"moderation_status,omitempty"`
	IsUserReported   bool                   `bson:"isUserReported,omitempty" json:"is_user_reported,omitempty"`
	RejectionReason  string                 `bson:"rejectionReason,omitempty" json:"rejection_reason,omitempty"`

	CreatedAt time.Time `bson:"createdAt" json:"created_at"`
	UpdatedAt time.Time `bson:"updatedAt" json:"updated_at"`
}

// Visible follows the same rules as posts.
func (c Comment) Visible(viewerID string) bool {
	switch c.ModerationStatus {
	case "", enums.ModerationStatusApproved:
		return true
	case enums.ModerationStatusPending:
		return c.IsUserReported || c.AuthorID == viewerID
	case enums.ModerationStatusRejected:
		return c.AuthorID == viewerID
	default:
		return false
	}
}
