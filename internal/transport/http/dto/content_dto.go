package dto

import (
	"time"

	"github.com/atakee72/community-platform/internal/domain/model"
)

type CreatePostRequest struct {
	Title string   `json:"title"`
	Body  string   `json:"body"`
	Tags  []string `json:"tags,omitempty"`

	// Event-only fields, ignored for other content types.
	StartDate *time.Time `json:"start_date,omitempty"`
	EndDate   *time.Time `json:"end_date,omitempty"`
	Location  string     `json:"location,omitempty"`
	Category  string     `json:"category,omitempty"`
}

type PostResponse struct {
	Post             model.Post `json:"post"`
	ModerationNotice string     `json:"moderation_notice,omitempty"`
}

type PostListResponse struct {
	Items []model.Post `json:"items"`
}

type CreateCommentRequest struct {
	Body string `json:"body"`
}

type CommentResponse struct {
	Comment          model.Comment `json:"comment"`
	ModerationNotice string        `json:"moderation_notice,omitempty"`
}
