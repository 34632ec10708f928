package enums

// ReportReason is the category a reporter selects when flagging content.
type ReportReason string

const (
	ReportReasonSpam           ReportReason = "spam"
	ReportReasonHarassment     ReportReason = "harassment"
	ReportReasonHateSpeech     ReportReason = "hate_speech"
	ReportReasonViolence       ReportReason = "violence"
	ReportReasonInappropriate  ReportReason = "inappropriate"
	ReportReasonMisinformation ReportReason = "misinformation"
	ReportReasonOther          ReportReason = "other"
)

var reportReasonLabels = map[ReportReason]string{
	ReportReasonSpam:           "Spam or advertising",
	ReportReasonHarassment:     "Harassment or bullying",
	ReportReasonHateSpeech:     "Hate speech",
	ReportReasonViolence:       "Violence or threats",
	ReportReasonInappropriate:  "Inappropriate content",
	ReportReasonMisinformation: "Misinformation",
	ReportReasonOther:          "Other",
}

func (r ReportReason) Valid() bool {
	_, ok := reportReasonLabels[r]
	return ok
}

// Label is the human-readable form shown to reviewers.
func (r ReportReason) Label() string {
	if label, ok := reportReasonLabels[r]; ok {
		return label
	}
	return string(r)
}
