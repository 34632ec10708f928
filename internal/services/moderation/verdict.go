package moderation

import (
	"context"

	"github.com/atakee72/community-platform/internal/domain/enums"
)

// Classification is the raw result of one classifier call.
type Classification struct {
	Flagged    bool
	Categories []string
	Scores     map[string]float64
}

// Classifier is the external text classification collaborator.
type Classifier interface {
	Classify(ctx context.Context, text string) (Classification, error)
}

// Verdict is the normalized screening outcome consumed by the submission
// gate and stored on flagged records.
type Verdict struct {
	Decision    enums.Decision
	CanPublish  bool
	NeedsReview bool
	IsUrgent    bool

	FlaggedCategories []string
	Scores            map[string]float64
	HighestCategory   string
	MaxScore          float64

	UserMessage string
	AdminReason string
}

// Severity buckets a verdict for admin triage ordering.
func (v Verdict) Severity() string {
	switch {
	case v.IsUrgent:
		return "critical"
	case v.MaxScore >= 0.8:
		return "high"
	case v.MaxScore >= 0.5:
		return "medium"
	default:
		return "low"
	}
}

// MoreSevere reports whether v outranks other. Decision tier wins; ties
// fall back to the higher max score.
func (v Verdict) MoreSevere(other Verdict) bool {
	if rank(v.Decision) != rank(other.Decision) {
		return rank(v.Decision) > rank(other.Decision)
	}
	return v.MaxScore > other.MaxScore
}

func rank(d enums.Decision) int {
	switch d {
	case enums.DecisionUrgentReview:
		return 2
	case enums.DecisionPendingReview:
		return 1
	default:
		return 0
	}
}
