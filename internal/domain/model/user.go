package model

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/atakee72/community-platform/internal/domain/enums"
)

// StrikeRecord is one entry in a user's append-only violation history.
type StrikeRecord struct {
	Date        time.Time         `bson:"date" json:"date"`
	Reason      string            `bson:"reason" json:"reason"`
	ContentType enums.ContentType `bson:"contentType" json:"content_type"`
	ContentID   string            `bson:"contentId" json:"content_id"`
	ReviewedBy  string            `bson:"reviewedBy" json:"reviewed_by"`
}

type User struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Name         string             `bson:"name" json:"name"`
	Email        string             `bson:"email" json:"email"`
	PasswordHash string             `bson:"password,omitempty" json:"-"`
	Role         enums.Role         `bson:"role" json:"role"`

	ModerationStrikes int            `bson:"moderationStrikes" json:"moderation_strikes"`
	StrikeHistory     []StrikeRecord `bson:"strikeHistory,omitempty" json:"strike_history,omitempty"`
	IsBanned          bool           `bson:"isBanned,omitempty" json:"is_banned,omitempty"`
	BannedAt          *time.Time     `bson:"bannedAt,omitempty" json:"banned_at,omitempty"`
	BannedReason      string         `bson:"bannedReason,omitempty" json:"banned_reason,omitempty"`

	CreatedAt time.Time `bson:"createdAt" json:"created_at"`
	UpdatedAt time.Time `bson:"updatedAt" json:"updated_at"`
}
