package enums

// ModerationStatus is the lifecycle state of a content item. Legacy
// documents without the field are read as approved.
type ModerationStatus string

const (
	ModerationStatusApproved ModerationStatus = "approved"
	ModerationStatusPending  ModerationStatus = "pending"
	ModerationStatusRejected ModerationStatus = "rejected"
)
