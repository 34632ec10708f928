package handlers

import (
	"errors"
	"net/http"

	"github.com/atakee72/community-platform/internal/domain/enums"
	authsvc "github.com/atakee72/community-platform/internal/services/auth"
	reportsvc "github.com/atakee72/community-platform/internal/services/reports"
	"github.com/atakee72/community-platform/internal/transport/http/dto"
	httperrors "github.com/atakee72/community-platform/internal/transport/http/errors"
)

type ReportsHandler struct {
	service *reportsvc.Service
}

func NewReportsHandler(service *reportsvc.Service) *ReportsHandler {
	return &ReportsHandler{service: service}
}

func (h *ReportsHandler) Submit(w http.ResponseWriter, r *http.Request) {
	if h.service == nil {
		writeInternal(w, "REPORT_SERVICE_UNAVAILABLE", "report service is unavailable")
		return
	}
	identity, ok := authsvc.IdentityFromContext(r.Context())
	if !ok {
		writeUnauthorized(w, "UNAUTHORIZED", "authentication required")
		return
	}

	var req dto.SubmitReportRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, "INVALID_REQUEST", "invalid request body")
		return
	}

	res, err := h.service.SubmitReport(r.Context(), identity.UserID, reportsvc.ReportInput{
		ContentType: enums.ContentType(req.ContentType),
		ContentID:   req.ContentID,
		Reason:      enums.ReportReason(req.Reason),
		Details:     req.Details,
	})
	if err != nil {
		handleReportError(w, err, res)
		return
	}
	httperrors.Write(w, http.StatusCreated, dto.SubmitReportResponse{
		OK:          true,
		ReportCount: res.ReportCount,
		Message:     "Report submitted. Our moderators will review it shortly.",
	})
}

func (h *ReportsHandler) Check(w http.ResponseWriter, r *http.Request) {
	if h.service == nil {
		writeInternal(w, "REPORT_SERVICE_UNAVAILABLE", "report service is unavailable")
		return
	}
	identity, ok := authsvc.IdentityFromContext(r.Context())
	if !ok {
		writeUnauthorized(w, "UNAUTHORIZED", "authentication required")
		return
	}

	query := r.URL.Query()
	reported, err := h.service.CheckReported(r.Context(), identity.UserID,
		enums.ContentType(query.Get("content_type")), query.Get("content_id"))
	if err != nil {
		handleReportError(w, err, reportsvc.ReportResult{})
		return
	}
	httperrors.Write(w, http.StatusOK, dto.CheckReportResponse{Reported: reported})
}

func handleReportError(w http.ResponseWriter, err error, res reportsvc.ReportResult) {
	switch {
	case errors.Is(err, reportsvc.ErrInvalidInput):
		writeBadRequest(w, "INVALID_REPORT", err.Error())
	case errors.Is(err, reportsvc.ErrSelfReport):
		writeBadRequest(w, "INVALID_REPORT", "you cannot report your own content")
	case errors.Is(err, reportsvc.ErrAlreadyReported):
		httperrors.Write(w, http.StatusConflict, httperrors.APIError{
			Code: "ALREADY_REPORTED", Message: "you already reported this content",
		})
	case errors.Is(err, reportsvc.ErrNotFound):
		writeNotFound(w, "NOT_FOUND", "content not found")
	case errors.Is(err, reportsvc.ErrRateLimited):
		httperrors.Write(w, http.StatusTooManyRequests, httperrors.RateLimitError{
			Code:          "RATE_LIMITED",
			Message:       "too many reports, slow down",
			RetryAfterSec: res.RetryAfterSec,
		})
	default:
		writeInternal(w, "INTERNAL_ERROR", "internal server error")
	}
}
