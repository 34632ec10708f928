package model

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/atakee72/community-platform/internal/domain/enums"
)

// FlaggedContent is one durable review-queue entry. The title/body/tags
// snapshot is taken at flag time and never updated afterwards, so the
// reviewed artifact survives later edits to the original.
type FlaggedContent struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Source      enums.FlagSource   `bson:"source" json:"source"`
	ContentType enums.ContentType  `bson:"contentType" json:"content_type"`
	ContentID   string             `bson:"contentId" json:"content_id"`

	Title string   `bson:"title,omitempty" json:"title,omitempty"`
	Body  string   `bson:"body,omitempty" json:"body,omitempty"`
	Tags  []string `bson:"tags,omitempty" json:"tags,omitempty"`

	AuthorID    string `bson:"authorId" json:"author_id"`
	AuthorName  string `bson:"authorName,omitempty" json:"author_name,omitempty"`
	AuthorEmail string `bson:"authorEmail,omitempty" json:"author_email,omitempty"`

	// Classifier detail, populated for ai_flag records. User reports get
	// a pending_review decision and the reason label as the category.
	Decision          enums.Decision     `bson:"decision" json:"decision"`
	FlaggedCategories []string           `bson:"flaggedCategories" json:"flagged_categories"`
	Scores            map[string]float64 `bson:"scores" json:"scores"`
	HighestCategory   string             `bson:"highestCategory" json:"highest_category"`
	MaxScore          float64            `bson:"maxScore" json:"max_score"`

	ReporterUserID  string             `bson:"reporterUserId,omitempty" json:"reporter_user_id,omitempty"`
	ReporterUserIDs []string           `bson:"reporterUserIds,omitempty" json:"reporter_user_ids,omitempty"`
	ReporterName    string             `bson:"reporterName,omitempty" json:"reporter_name,omitempty"`
	ReportReason    enums.ReportReason `bson:"reportReason,omitempty" json:"report_reason,omitempty"`
	ReportDetails   string             `bson:"reportDetails,omitempty" json:"report_details,omitempty"`
	ReportCount     int                `bson:"reportCount,omitempty" json:"report_count,omitempty"`

	ReviewStatus    enums.ReviewStatus `bson:"reviewStatus" json:"review_status"`
	ReviewedBy      string             `bson:"reviewedBy,omitempty" json:"reviewed_by,omitempty"`
	ReviewedAt      *time.Time         `bson:"reviewedAt,omitempty" json:"reviewed_at,omitempty"`
	ReviewNotes     string             `bson:"reviewNotes,omitempty" json:"review_notes,omitempty"`
	RejectionReason string             `bson:"rejectionReason,omitempty" json:"rejection_reason,omitempty"`
	HasWarningLabel bool               `bson:"hasWarningLabel,omitempty" json:"has_warning_label,omitempty"`
	WarningText     string             `bson:"warningText,omitempty" json:"warning_text,omitempty"`

	CreatedAt time.Time `bson:"createdAt" json:"created_at"`
	UpdatedAt time.Time `bson:"updatedAt" json:"updated_at"`
}

// HasReporter reports whether userID already filed a report on this record.
func (f FlaggedContent) HasReporter(userID string) bool {
	if f.ReporterUserID == userID {
		return true
	}
	for _, id := range f.ReporterUserIDs {
		if id == userID {
			return true
		}
	}
	return false
}
