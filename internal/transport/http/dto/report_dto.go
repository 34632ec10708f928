package dto

type SubmitReportRequest struct {
	ContentType string `json:"content_type"`
	ContentID   string `json:"content_id"`
	Reason      string `json:"reason"`
	Details     string `json:"details,omitempty"`
}

type SubmitReportResponse struct {
	OK          bool   `json:"ok"`
	ReportCount int    `json:"report_count"`
	Message     string `json:"message"`
}

type CheckReportResponse struct {
	Reported bool `json:"reported"`
}
