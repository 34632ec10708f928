package moderation

// Per-category flag thresholds. A score at or above the threshold routes
// the content to human review. Lower means stricter.
var flagThresholds = map[string]float64{
	// Urgent tier: potential legal exposure, lowest tolerance.
	"sexual/minors":          0.1,
	"self-harm/intent":       0.3,
	"self-harm/instructions": 0.3,

	// High priority.
	"harassment/threatening": 0.4,
	"hate/threatening":       0.4,
	"illicit/violent":        0.5,
	"violence/graphic":       0.5,

	// Context matters here (art, news, quotes) so a human decides.
	"sexual":     0.5,
	"harassment": 0.5,
	"hate":       0.5,
	"violence":   0.5,
	"self-harm":  0.4,
	"illicit":    0.6,
}

const defaultFlagThreshold = 0.5

var urgentCategories = map[string]bool{
	"sexual/minors":          true,
	"self-harm/intent":       true,
	"self-harm/instructions": true,
}

func thresholdFor(category string) float64 {
	if t, ok := flagThresholds[category]; ok {
		return t
	}
	return defaultFlagThreshold
}
