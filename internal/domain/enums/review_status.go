package enums

// ReviewStatus is the state of a flagged content record. It is terminal
// once it leaves pending.
type ReviewStatus string

const (
	ReviewStatusPending  ReviewStatus = "pending"
	ReviewStatusApproved ReviewStatus = "approved"
	ReviewStatusRejected ReviewStatus = "rejected"
)

// ReviewStatusFilterReviewed is a listing-only filter value meaning
// "approved or rejected". It is never stored.
const ReviewStatusFilterReviewed = "reviewed"
