package enums

// Decision is the classifier tier attached to a screening verdict.
type Decision string

const (
	DecisionApproved      Decision = "approved"
	DecisionPendingReview Decision = "pending_review"
	DecisionUrgentReview  Decision = "urgent_review"
)
