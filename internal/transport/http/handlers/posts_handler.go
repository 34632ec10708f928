package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/atakee72/community-platform/internal/domain/enums"
	authsvc "github.com/atakee72/community-platform/internal/services/auth"
	contentsvc "github.com/atakee72/community-platform/internal/services/content"
	"github.com/atakee72/community-platform/internal/transport/http/dto"
	httperrors "github.com/atakee72/community-platform/internal/transport/http/errors"
)

// PostsHandler serves one content type; the router mounts an instance
// per collection.
type PostsHandler struct {
	service     *contentsvc.Service
	contentType enums.ContentType
}

func NewPostsHandler(service *contentsvc.Service, contentType enums.ContentType) *PostsHandler {
	return &PostsHandler{service: service, contentType: contentType}
}

func (h *PostsHandler) Create(w http.ResponseWriter, r *http.Request) {
	if h.service == nil {
		writeInternal(w, "CONTENT_SERVICE_UNAVAILABLE", "content service is unavailable")
		return
	}
	identity, ok := authsvc.IdentityFromContext(r.Context())
	if !ok {
		writeUnauthorized(w, "UNAUTHORIZED", "authentication required")
		return
	}

	var req dto.CreatePostRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, "INVALID_REQUEST", "invalid request body")
		return
	}

	res, err := h.service.CreatePost(r.Context(), identity.UserID, h.contentType, contentsvc.PostInput{
		Title:     req.Title,
		Body:      req.Body,
		Tags:      req.Tags,
		StartDate: req.StartDate,
		EndDate:   req.EndDate,
		Location:  req.Location,
		Category:  req.Category,
	})
	if err != nil {
		handleContentError(w, err)
		return
	}
	httperrors.Write(w, http.StatusCreated, dto.PostResponse{
		Post:             res.Post,
		ModerationNotice: res.Verdict.UserMessage,
	})
}

func (h *PostsHandler) List(w http.ResponseWriter, r *http.Request) {
	if h.service == nil {
		writeInternal(w, "CONTENT_SERVICE_UNAVAILABLE", "content service is unavailable")
		return
	}
	viewerID := viewerIDFrom(r)
	limit, offset := pagination(r)

	posts, err := h.service.ListPosts(r.Context(), viewerID, h.contentType, limit, offset)
	if err != nil {
		handleContentError(w, err)
		return
	}
	httperrors.Write(w, http.StatusOK, dto.PostListResponse{Items: posts})
}

func (h *PostsHandler) Get(w http.ResponseWriter, r *http.Request) {
	if h.service == nil {
		writeInternal(w, "CONTENT_SERVICE_UNAVAILABLE", "content service is unavailable")
		return
	}
	viewerID := viewerIDFrom(r)

	post, err := h.service.GetPost(r.Context(), viewerID, h.contentType, chi.URLParam(r, "id"))
	if err != nil {
		handleContentError(w, err)
		return
	}
	httperrors.Write(w, http.StatusOK, dto.PostResponse{Post: post})
}

func (h *PostsHandler) Update(w http.ResponseWriter, r *http.Request) {
	if h.service == nil {
		writeInternal(w, "CONTENT_SERVICE_UNAVAILABLE", "content service is unavailable")
		return
	}
	identity, ok := authsvc.IdentityFromContext(r.Context())
	if !ok {
		writeUnauthorized(w, "UNAUTHORIZED", "authentication required")
		return
	}

	var req dto.CreatePostRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, "INVALID_REQUEST", "invalid request body")
		return
	}

	res, err := h.service.EditPost(r.Context(), identity.UserID, h.contentType, chi.URLParam(r, "id"), contentsvc.PostInput{
		Title:     req.Title,
		Body:      req.Body,
		Tags:      req.Tags,
		StartDate: req.StartDate,
		EndDate:   req.EndDate,
		Location:  req.Location,
		Category:  req.Category,
	})
	if err != nil {
		handleContentError(w, err)
		return
	}
	httperrors.Write(w, http.StatusOK, dto.PostResponse{
		Post:             res.Post,
		ModerationNotice: res.Verdict.UserMessage,
	})
}

func handleContentError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, contentsvc.ErrInvalidInput), errors.Is(err, contentsvc.ErrUnknownContentType):
		writeBadRequest(w, "VALIDATION_ERROR", err.Error())
	case errors.Is(err, contentsvc.ErrNotFound):
		writeNotFound(w, "NOT_FOUND", "content not found")
	case errors.Is(err, contentsvc.ErrBanned):
		writeForbidden(w, "BANNED", "account is banned")
	case errors.Is(err, contentsvc.ErrForbidden):
		writeForbidden(w, "FORBIDDEN", "not allowed")
	default:
		writeInternal(w, "INTERNAL_ERROR", "internal server error")
	}
}

// viewerIDFrom resolves the optional caller identity for read paths.
func viewerIDFrom(r *http.Request) string {
	if identity, ok := authsvc.IdentityFromContext(r.Context()); ok {
		return identity.UserID
	}
	return ""
}

func pagination(r *http.Request) (int64, int64) {
	limit := int64(20)
	offset := int64(0)
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if v, err := strconv.ParseInt(raw, 10, 64); err == nil && v > 0 && v <= 100 {
			limit = v
		}
	}
	if raw := r.URL.Query().Get("offset"); raw != "" {
		if v, err := strconv.ParseInt(raw, 10, 64); err == nil && v >= 0 {
			offset = v
		}
	}
	return limit, offset
}
