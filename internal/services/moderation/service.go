package moderation

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/atakee72/community-platform/internal/domain/enums"
)

const (
	// ErrorCategory marks verdicts produced by the fail-safe path.
	ErrorCategory = "moderation_error"

	pendingUserMessage = "Your content is being reviewed and will be published shortly. Thank you for your patience!"
	urgentUserMessage  = "Your content is being reviewed. A moderator will check it soon."
)

// Service converts classifier output into publication verdicts. Any
// classifier failure degrades to "needs review": content is never
// auto-published and never auto-rejected on an adapter error.
type Service struct {
	classifier Classifier
	log        *zap.Logger
}

func NewService(classifier Classifier, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{classifier: classifier, log: log}
}

// ScreenText runs a single classifier pass over text.
func (s *Service) ScreenText(ctx context.Context, text string) Verdict {
	if strings.TrimSpace(text) == "" {
		return approvedVerdict()
	}
	if s.classifier == nil {
		s.log.Error("classifier not configured, failing safe to review")
		return failSafeVerdict("classifier not configured")
	}

	result, err := s.classifier.Classify(ctx, text)
	if err != nil {
		s.log.Warn("classifier call failed, failing safe to review", zap.Error(err))
		return failSafeVerdict(err.Error())
	}

	return verdictFromClassification(result)
}

// ScreenSubmission screens the title+body text and the tag list as two
// separate classifier passes and keeps the more severe verdict. Short tag
// strings get diluted when concatenated into a long body, so a violation
// hiding in a tag would otherwise slip through.
func (s *Service) ScreenSubmission(ctx context.Context, title, body string, tags []string) Verdict {
	text := strings.TrimSpace(strings.TrimSpace(title) + "\n\n" + strings.TrimSpace(body))
	verdict := s.ScreenText(ctx, text)

	if len(tags) > 0 {
		tagVerdict := s.ScreenText(ctx, strings.Join(tags, ", "))
		if tagVerdict.MoreSevere(verdict) {
			verdict = tagVerdict
		}
	}

	return verdict
}

func verdictFromClassification(result Classification) Verdict {
	var (
		flagged  []string
		isUrgent bool
	)
	for category, score := range result.Scores {
		if score >= thresholdFor(category) {
			flagged = append(flagged, category)
			if urgentCategories[category] {
				isUrgent = true
			}
		}
	}
	sort.Strings(flagged)

	maxScore, highest := 0.0, ""
	for category, score := range result.Scores {
		if score > maxScore {
			maxScore = score
			highest = category
		}
	}

	needsReview := len(flagged) > 0

	decision := enums.DecisionApproved
	switch {
	case needsReview && isUrgent:
		decision = enums.DecisionUrgentReview
	case needsReview:
		decision = enums.DecisionPendingReview
	}

	return Verdict{
		Decision:          decision,
		CanPublish:        decision == enums.DecisionApproved,
		NeedsReview:       needsReview,
		IsUrgent:          isUrgent,
		FlaggedCategories: flagged,
		Scores:            result.Scores,
		HighestCategory:   highest,
		MaxScore:          maxScore,
		UserMessage:       userMessage(decision),
		AdminReason:       adminReason(flagged, result.Scores),
	}
}

func approvedVerdict() Verdict {
	return Verdict{
		Decision:          enums.DecisionApproved,
		CanPublish:        true,
		FlaggedCategories: []string{},
		Scores:            map[string]float64{},
	}
}

func failSafeVerdict(reason string) Verdict {
	return Verdict{
		Decision:          enums.DecisionPendingReview,
		CanPublish:        false,
		NeedsReview:       true,
		FlaggedCategories: []string{ErrorCategory},
		Scores:            map[string]float64{},
		HighestCategory:   ErrorCategory,
		UserMessage:       pendingUserMessage,
		AdminReason:       fmt.Sprintf("FAIL-SAFE: %s - requires manual review", reason),
	}
}

func userMessage(decision enums.Decision) string {
	switch decision {
	case enums.DecisionPendingReview:
		return pendingUserMessage
	case enums.DecisionUrgentReview:
		return urgentUserMessage
	default:
		return ""
	}
}

func adminReason(flagged []string, scores map[string]float64) string {
	if len(flagged) == 0 {
		return "Content passed all checks."
	}

	details := make([]string, 0, len(flagged))
	for _, category := range flagged {
		details = append(details, fmt.Sprintf("%s: %.1f%%", category, scores[category]*100))
	}
	return "Flagged for: " + strings.Join(details, ", ")
}
