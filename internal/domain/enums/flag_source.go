package enums

// FlagSource records how a content item entered the review queue.
type FlagSource string

const (
	FlagSourceAI         FlagSource = "ai_flag"
	FlagSourceUserReport FlagSource = "user_report"
)
