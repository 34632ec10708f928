package content

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"github.com/atakee72/community-platform/internal/domain/enums"
	"github.com/atakee72/community-platform/internal/domain/model"
	"github.com/atakee72/community-platform/internal/pkg/validate"
	"github.com/atakee72/community-platform/internal/repo/mongodb"
	"github.com/atakee72/community-platform/internal/services/moderation"
)

const (
	maxTitleLen = 200
	maxBodyLen  = 10000
	maxTags     = 10
)

type ContentStore interface {
	InsertPost(ctx context.Context, ct enums.ContentType, post *model.Post) (primitive.ObjectID, error)
	GetPost(ctx context.Context, ct enums.ContentType, id string) (model.Post, error)
	ListVisible(ctx context.Context, ct enums.ContentType, viewerID string, limit, offset int64) ([]model.Post, error)
	ApplyEdit(ctx context.Context, ct enums.ContentType, id string, edit mongodb.PostEdit) error
	InsertComment(ctx context.Context, comment *model.Comment) (primitive.ObjectID, error)
	GetComment(ctx context.Context, id string) (model.Comment, error)
	LinkComment(ctx context.Context, parent enums.ContentType, parentID string, commentID primitive.ObjectID) error
}

type FlaggedStore interface {
	Insert(ctx context.Context, record *model.FlaggedContent) (primitive.ObjectID, error)
}

type UserStore interface {
	GetByID(ctx context.Context, id string) (model.User, error)
}

// Screener produces the publication verdict for submitted text.
type Screener interface {
	ScreenSubmission(ctx context.Context, title, body string, tags []string) moderation.Verdict
	ScreenText(ctx context.Context, text string) moderation.Verdict
}

type Dependencies struct {
	Content  ContentStore
	Flagged  FlaggedStore
	Users    UserStore
	Screener Screener
	Logger   *zap.Logger
}

// Service is the submission gate: every create and edit passes through
// screening before it decides whether the content publishes immediately
// or waits in the review queue.
type Service struct {
	content ContentStore
	flagged FlaggedStore
	users   UserStore
	screen  Screener
	log     *zap.Logger
	now     func() time.Time
}

func NewService(deps Dependencies) *Service {
	log := deps.Logger
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{
		content: deps.Content,
		flagged: deps.Flagged,
		users:   deps.Users,
		screen:  deps.Screener,
		log:     log,
		now:     time.Now,
	}
}

type PostInput struct {
	Title string
	Body  string
	Tags  []string

	StartDate *time.Time
	EndDate   *time.Time
	Location  string
	Category  string
}

type CommentInput struct {
	Body       string
	ParentType enums.ContentType
	ParentID   string
}

// PostResult pairs the stored document with the screening verdict so the
// transport layer can tell the author what happened.
type PostResult struct {
	Post    model.Post
	Verdict moderation.Verdict
}

type CommentResult struct {
	Comment model.Comment
	Verdict moderation.Verdict
}

func (s *Service) CreatePost(ctx context.Context, authorID string, ct enums.ContentType, in PostInput) (PostResult, error) {
	if !ct.IsPostLike() {
		return PostResult{}, fmt.Errorf("%w: %s", ErrUnknownContentType, ct)
	}
	if err := validatePostInput(in, ct); err != nil {
		return PostResult{}, err
	}
	author, err := s.requireActiveUser(ctx, authorID)
	if err != nil {
		return PostResult{}, err
	}

	verdict := s.verdictFor(ctx, ct, in.Title, in.Body, in.Tags)
	now := s.now().UTC()
	post := model.Post{
		Title:     strings.TrimSpace(in.Title),
		Body:      in.Body,
		AuthorID:  authorID,
		Tags:      normalizeTags(in.Tags),
		Comments:  []primitive.ObjectID{},
		StartDate: in.StartDate,
		EndDate:   in.EndDate,
		Location:  strings.TrimSpace(in.Location),
		Category:  strings.TrimSpace(in.Category),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if verdict.CanPublish {
		post.ModerationStatus = enums.ModerationStatusApproved
	} else {
		post.ModerationStatus = enums.ModerationStatusPending
	}

	id, err := s.content.InsertPost(ctx, ct, &post)
	if err != nil {
		return PostResult{}, fmt.Errorf("insert %s: %w", ct, err)
	}
	post.ID = id

	if verdict.NeedsReview {
		s.recordAIFlag(ctx, ct, id.Hex(), post.Title, post.Body, post.Tags, author, verdict)
	}
	return PostResult{Post: post, Verdict: verdict}, nil
}

func (s *Service) CreateComment(ctx context.Context, authorID string, in CommentInput) (CommentResult, error) {
	if !in.ParentType.IsPostLike() {
		return CommentResult{}, fmt.Errorf("%w: %s", ErrUnknownContentType, in.ParentType)
	}
	if strings.TrimSpace(in.Body) == "" {
		return CommentResult{}, fmt.Errorf("%w: body is required", ErrInvalidInput)
	}
	if !validate.MaxLen(in.Body, maxBodyLen) {
		return CommentResult{}, fmt.Errorf("%w: body exceeds %d characters", ErrInvalidInput, maxBodyLen)
	}
	author, err := s.requireActiveUser(ctx, authorID)
	if err != nil {
		return CommentResult{}, err
	}

	parent, err := s.content.GetPost(ctx, in.ParentType, in.ParentID)
	if err != nil {
		if errors.Is(err, mongodb.ErrContentNotFound) {
			return CommentResult{}, ErrNotFound
		}
		return CommentResult{}, fmt.Errorf("load parent %s: %w", in.ParentType, err)
	}

	verdict := s.screen.ScreenText(ctx, in.Body)
	now := s.now().UTC()
	comment := model.Comment{
		Body:             in.Body,
		AuthorID:         authorID,
		ParentID:         parent.ID,
		ParentCollection: in.ParentType,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if verdict.CanPublish {
		comment.ModerationStatus = enums.ModerationStatusApproved
	} else {
		comment.ModerationStatus = enums.ModerationStatusPending
	}

	id, err := s.content.InsertComment(ctx, &comment)
	if err != nil {
		return CommentResult{}, fmt.Errorf("insert comment: %w", err)
	}
	comment.ID = id

	// Pending comments stay unlinked; approval attaches them to the
	// parent's comments array.
	if verdict.CanPublish {
		if err := s.content.LinkComment(ctx, in.ParentType, in.ParentID, id); err != nil {
			return CommentResult{}, fmt.Errorf("link comment: %w", err)
		}
	}
	if verdict.NeedsReview {
		s.recordAIFlag(ctx, enums.ContentTypeComment, id.Hex(), "", comment.Body, nil, author, verdict)
	}
	return CommentResult{Comment: comment, Verdict: verdict}, nil
}

func (s *Service) EditPost(ctx context.Context, actorID string, ct enums.ContentType, id string, in PostInput) (PostResult, error) {
	if !ct.IsPostLike() {
		return PostResult{}, fmt.Errorf("%w: %s", ErrUnknownContentType, ct)
	}
	if err := validatePostInput(in, ct); err != nil {
		return PostResult{}, err
	}
	author, err := s.requireActiveUser(ctx, actorID)
	if err != nil {
		return PostResult{}, err
	}

	post, err := s.content.GetPost(ctx, ct, id)
	if err != nil {
		if errors.Is(err, mongodb.ErrContentNotFound) {
			return PostResult{}, ErrNotFound
		}
		return PostResult{}, fmt.Errorf("load %s: %w", ct, err)
	}
	if post.AuthorID != actorID {
		return PostResult{}, ErrForbidden
	}

	// Edits re-enter screening from scratch; stale rejection or warning
	// state from the previous text is dropped either way.
	verdict := s.verdictFor(ctx, ct, in.Title, in.Body, in.Tags)
	status := enums.ModerationStatusPending
	if verdict.CanPublish {
		status = enums.ModerationStatusApproved
	}

	now := s.now().UTC()
	edit := mongodb.PostEdit{
		Title:           strings.TrimSpace(in.Title),
		Body:            in.Body,
		Tags:            normalizeTags(in.Tags),
		Status:          status,
		ClearModeration: true,
		History: model.EditRecord{
			OriginalTitle: post.Title,
			OriginalBody:  post.Body,
			EditedAt:      now,
			EditedBy:      actorID,
		},
		StartDate: in.StartDate,
		EndDate:   in.EndDate,
		Location:  strings.TrimSpace(in.Location),
		Category:  strings.TrimSpace(in.Category),
	}
	if err := s.content.ApplyEdit(ctx, ct, id, edit); err != nil {
		if errors.Is(err, mongodb.ErrContentNotFound) {
			return PostResult{}, ErrNotFound
		}
		return PostResult{}, fmt.Errorf("apply edit: %w", err)
	}

	if verdict.NeedsReview {
		s.recordAIFlag(ctx, ct, id, edit.Title, edit.Body, edit.Tags, author, verdict)
	}

	post.Title = edit.Title
	post.Body = edit.Body
	post.Tags = edit.Tags
	post.ModerationStatus = status
	post.IsEdited = true
	post.LastEditedAt = &now
	post.UpdatedAt = now
	post.RejectionReason = ""
	post.HasWarningLabel = false
	post.WarningText = ""
	return PostResult{Post: post, Verdict: verdict}, nil
}

// GetPost applies the visibility rules; hidden content reads as missing
// rather than forbidden.
func (s *Service) GetPost(ctx context.Context, viewerID string, ct enums.ContentType, id string) (model.Post, error) {
	if !ct.IsPostLike() {
		return model.Post{}, fmt.Errorf("%w: %s", ErrUnknownContentType, ct)
	}
	post, err := s.content.GetPost(ctx, ct, id)
	if err != nil {
		if errors.Is(err, mongodb.ErrContentNotFound) {
			return model.Post{}, ErrNotFound
		}
		return model.Post{}, fmt.Errorf("load %s: %w", ct, err)
	}
	if !post.Visible(viewerID) {
		return model.Post{}, ErrNotFound
	}
	return post, nil
}

func (s *Service) ListPosts(ctx context.Context, viewerID string, ct enums.ContentType, limit, offset int64) ([]model.Post, error) {
	if !ct.IsPostLike() {
		return nil, fmt.Errorf("%w: %s", ErrUnknownContentType, ct)
	}
	posts, err := s.content.ListVisible(ctx, ct, viewerID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", ct, err)
	}
	return posts, nil
}

func (s *Service) GetComment(ctx context.Context, viewerID, id string) (model.Comment, error) {
	comment, err := s.content.GetComment(ctx, id)
	if err != nil {
		if errors.Is(err, mongodb.ErrContentNotFound) {
			return model.Comment{}, ErrNotFound
		}
		return model.Comment{}, fmt.Errorf("load comment: %w", err)
	}
	if !comment.Visible(viewerID) {
		return model.Comment{}, ErrNotFound
	}
	return comment, nil
}

func (s *Service) requireActiveUser(ctx context.Context, userID string) (model.User, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, mongodb.ErrUserNotFound) {
			return model.User{}, ErrForbidden
		}
		return model.User{}, fmt.Errorf("load user: %w", err)
	}
	if user.IsBanned {
		return model.User{}, ErrBanned
	}
	return user, nil
}

func (s *Service) verdictFor(ctx context.Context, ct enums.ContentType, title, body string, tags []string) moderation.Verdict {
	// Calendar events skip the classifier; they only enter the queue via
	// user reports.
	if !ct.Screened() {
		return moderation.Verdict{
			Decision:   enums.DecisionApproved,
			CanPublish: true,
		}
	}
	return s.screen.ScreenSubmission(ctx, title, body, tags)
}

// recordAIFlag files the review-queue entry after the content document
// exists. A queue write failure leaves the content safely hidden in
// pending, so the submission itself is not rolled back.
func (s *Service) recordAIFlag(ctx context.Context, ct enums.ContentType, contentID, title, body string, tags []string, author model.User, verdict moderation.Verdict) {
	now := s.now().UTC()
	record := &model.FlaggedContent{
		Source:      enums.FlagSourceAI,
		ContentType: ct,
		ContentID:   contentID,
		Title:       title,
		Body:        body,
		Tags:        tags,

		AuthorID:    author.ID.Hex(),
		AuthorName:  author.Name,
		AuthorEmail: author.Email,

		Decision:          verdict.Decision,
		FlaggedCategories: verdict.FlaggedCategories,
		Scores:            verdict.Scores,
		HighestCategory:   verdict.HighestCategory,
		MaxScore:          verdict.MaxScore,

		ReviewStatus: enums.ReviewStatusPending,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if _, err := s.flagged.Insert(ctx, record); err != nil {
		s.log.Error("failed to enqueue flagged content",
			zap.String("content_type", string(ct)),
			zap.String("content_id", contentID),
			zap.Error(err))
	}
}

func validatePostInput(in PostInput, ct enums.ContentType) error {
	if !validate.Required(in.Title) {
		return fmt.Errorf("%w: title is required", ErrInvalidInput)
	}
	if !validate.Required(in.Body) {
		return fmt.Errorf("%w: body is required", ErrInvalidInput)
	}
	if !validate.MaxLen(in.Title, maxTitleLen) {
		return fmt.Errorf("%w: title exceeds %d characters", ErrInvalidInput, maxTitleLen)
	}
	if !validate.MaxLen(in.Body, maxBodyLen) {
		return fmt.Errorf("%w: body exceeds %d characters", ErrInvalidInput, maxBodyLen)
	}
	if len(in.Tags) > maxTags {
		return fmt.Errorf("%w: at most %d tags", ErrInvalidInput, maxTags)
	}
	if ct == enums.ContentTypeEvent {
		if in.StartDate == nil {
			return fmt.Errorf("%w: start date is required for events", ErrInvalidInput)
		}
		if in.EndDate != nil && in.EndDate.Before(*in.StartDate) {
			return fmt.Errorf("%w: end date precedes start date", ErrInvalidInput)
		}
	}
	return nil
}

func normalizeTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	for _, tag := range tags {
		tag = strings.TrimSpace(tag)
		if tag != "" {
			out = append(out, tag)
		}
	}
	return out
}
