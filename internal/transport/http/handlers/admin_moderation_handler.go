package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	authsvc "github.com/atakee72/community-platform/internal/services/auth"
	reviewsvc "github.com/atakee72/community-platform/internal/services/review"
	"github.com/atakee72/community-platform/internal/transport/http/dto"
	httperrors "github.com/atakee72/community-platform/internal/transport/http/errors"
)

type AdminModerationHandler struct {
	service *reviewsvc.Service
}

func NewAdminModerationHandler(service *reviewsvc.Service) *AdminModerationHandler {
	return &AdminModerationHandler{service: service}
}

func (h *AdminModerationHandler) List(w http.ResponseWriter, r *http.Request) {
	if h.service == nil {
		writeInternal(w, "REVIEW_SERVICE_UNAVAILABLE", "review service is unavailable")
		return
	}
	identity, ok := authsvc.IdentityFromContext(r.Context())
	if !ok {
		writeUnauthorized(w, "UNAUTHORIZED", "authentication required")
		return
	}

	query := r.URL.Query()
	limit, offset := pagination(r)
	listing, err := h.service.List(r.Context(), identity.Role, reviewsvc.ListQuery{
		ReviewStatus: query.Get("review_status"),
		ContentType:  query.Get("content_type"),
		Decision:     query.Get("decision"),
		Source:       query.Get("source"),
		AuthorID:     query.Get("author_id"),
		SortBy:       query.Get("sort_by"),
		SortAsc:      parseBool(query.Get("sort_asc")),
		Limit:        limit,
		Offset:       offset,
	})
	if err != nil {
		handleReviewError(w, err)
		return
	}
	httperrors.Write(w, http.StatusOK, dto.ModerationQueueResponse{
		Items: listing.Items,
		Pagination: dto.Pagination{
			Total:   listing.Total,
			Limit:   limit,
			Offset:  offset,
			HasMore: offset+int64(len(listing.Items)) < listing.Total,
		},
		Counts: listing.Counts,
	})
}

func (h *AdminModerationHandler) Get(w http.ResponseWriter, r *http.Request) {
	if h.service == nil {
		writeInternal(w, "REVIEW_SERVICE_UNAVAILABLE", "review service is unavailable")
		return
	}
	identity, ok := authsvc.IdentityFromContext(r.Context())
	if !ok {
		writeUnauthorized(w, "UNAUTHORIZED", "authentication required")
		return
	}

	record, err := h.service.Get(r.Context(), identity.Role, chi.URLParam(r, "id"))
	if err != nil {
		handleReviewError(w, err)
		return
	}
	httperrors.Write(w, http.StatusOK, record)
}

func (h *AdminModerationHandler) Review(w http.ResponseWriter, r *http.Request) {
	if h.service == nil {
		writeInternal(w, "REVIEW_SERVICE_UNAVAILABLE", "review service is unavailable")
		return
	}
	identity, ok := authsvc.IdentityFromContext(r.Context())
	if !ok {
		writeUnauthorized(w, "UNAUTHORIZED", "authentication required")
		return
	}

	var req dto.ReviewDecisionRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, "INVALID_REQUEST", "invalid request body")
		return
	}

	res, err := h.service.Decide(r.Context(), identity.UserID, identity.Role, req.FlaggedContentID, reviewsvc.DecisionInput{
		Action:          reviewsvc.Action(req.Action),
		RejectionReason: req.RejectionReason,
		WarningText:     req.WarningText,
		Notes:           req.Notes,
	})
	if err != nil {
		handleReviewError(w, err)
		return
	}
	httperrors.Write(w, http.StatusOK, dto.ReviewDecisionResponse{
		OK:           true,
		Message:      res.Message,
		ReviewStatus: string(res.ReviewStatus),
		Strikes:      res.Strikes,
		MaxStrikes:   res.MaxStrikes,
		Banned:       res.Banned,
	})
}

func handleReviewError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, reviewsvc.ErrForbidden):
		writeForbidden(w, "FORBIDDEN", "admin role required")
	case errors.Is(err, reviewsvc.ErrInvalidInput):
		writeBadRequest(w, "VALIDATION_ERROR", err.Error())
	case errors.Is(err, reviewsvc.ErrNotFound):
		writeNotFound(w, "NOT_FOUND", "flagged record not found")
	case errors.Is(err, reviewsvc.ErrAlreadyReviewed):
		httperrors.Write(w, http.StatusConflict, httperrors.APIError{
			Code: "ALREADY_REVIEWED", Message: "record already reviewed",
		})
	default:
		writeInternal(w, "INTERNAL_ERROR", "internal server error")
	}
}

func parseBool(raw string) bool {
	v, err := strconv.ParseBool(raw)
	return err == nil && v
}
