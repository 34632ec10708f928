package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/atakee72/community-platform/internal/domain/enums"
	authsvc "github.com/atakee72/community-platform/internal/services/auth"
	contentsvc "github.com/atakee72/community-platform/internal/services/content"
	"github.com/atakee72/community-platform/internal/transport/http/dto"
	httperrors "github.com/atakee72/community-platform/internal/transport/http/errors"
)

type CommentsHandler struct {
	service *contentsvc.Service
}

func NewCommentsHandler(service *contentsvc.Service) *CommentsHandler {
	return &CommentsHandler{service: service}
}

// Create handles POST /{parentType}/{id}/comments; the parent type comes
// from the route the handler is mounted under.
func (h *CommentsHandler) Create(parentType enums.ContentType) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if h.service == nil {
			writeInternal(w, "CONTENT_SERVICE_UNAVAILABLE", "content service is unavailable")
			return
		}
		identity, ok := authsvc.IdentityFromContext(r.Context())
		if !ok {
			writeUnauthorized(w, "UNAUTHORIZED", "authentication required")
			return
		}

		var req dto.CreateCommentRequest
		if err := decodeJSON(r, &req); err != nil {
			writeBadRequest(w, "INVALID_REQUEST", "invalid request body")
			return
		}

		res, err := h.service.CreateComment(r.Context(), identity.UserID, contentsvc.CommentInput{
			Body:       req.Body,
			ParentType: parentType,
			ParentID:   chi.URLParam(r, "id"),
		})
		if err != nil {
			handleContentError(w, err)
			return
		}
		httperrors.Write(w, http.StatusCreated, dto.CommentResponse{
			Comment:          res.Comment,
			ModerationNotice: res.Verdict.UserMessage,
		})
	}
}

func (h *CommentsHandler) Get(w http.ResponseWriter, r *http.Request) {
	if h.service == nil {
		writeInternal(w, "CONTENT_SERVICE_UNAVAILABLE", "content service is unavailable")
		return
	}
	comment, err := h.service.GetComment(r.Context(), viewerIDFrom(r), chi.URLParam(r, "id"))
	if err != nil {
		handleContentError(w, err)
		return
	}
	httperrors.Write(w, http.StatusOK, dto.CommentResponse{Comment: comment})
}
