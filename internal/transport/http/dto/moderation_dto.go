package dto

import (
	"github.com/atakee72/community-platform/internal/domain/model"
	"github.com/atakee72/community-platform/internal/repo/mongodb"
)

type ModerationQueueResponse struct {
	Items      []model.FlaggedContent `json:"items"`
	Pagination Pagination             `json:"pagination"`
	Counts     mongodb.QueueCounts    `json:"counts"`
}

type Pagination struct {
	Total   int64 `json:"total"`
	Limit   int64 `json:"limit"`
	Offset  int64 `json:"offset"`
	HasMore bool  `json:"has_more"`
}

type ReviewDecisionRequest struct {
	FlaggedContentID string `json:"flagged_content_id"`
	Action           string `json:"action"`
	RejectionReason  string `json:"rejection_reason,omitempty"`
	WarningText      string `json:"warning_text,omitempty"`
	Notes            string `json:"notes,omitempty"`
}

type ReviewDecisionResponse struct {
	OK           bool   `json:"ok"`
	Message      string `json:"message"`
	ReviewStatus string `json:"review_status"`
	Strikes      int    `json:"strikes"`
	MaxStrikes   int    `json:"max_strikes"`
	Banned       bool   `json:"banned"`
}
