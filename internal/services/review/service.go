package review

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
	"github.com/atakee72/community-platform/internal/repo/mongodb"
)

// Action is a reviewer's decision on one flagged record.
type Action string

const (
	ActionApprove            Action = "approve"
	ActionApproveWithWarning Action = "approve_with_warning"
	ActionReject             Action = "reject"
)

var (
	ErrForbidden       = errors.New("admin role required")
	ErrInvalidInput    = errors.New("invalid decision")
	ErrNotFound        = errors.New("flagged record not found")
	ErrAlreadyReviewed = errors.New("record already reviewed")
)

type QueueStore interface {
	GetByID(ctx context.Context, id string) (model.FlaggedContent, error)
	MarkReviewed(ctx context.Context, id string, review mongodb.ReviewUpdate) error
	List(ctx context.Context, filter mongodb.ListFilter) ([]model.FlaggedContent, int64, error)
	Counts(ctx context.Context) (mongodb.QueueCounts, error)
}

type ContentStore interface {
	ApplyDecision(ctx context.Context, ct enums.ContentType, id string, decision mongodb.DecisionUpdate) error
	GetComment(ctx context.Context, id string) (model.Comment, error)
	LinkComment(ctx context.Context, parent enums.ContentType, parentID string, commentID primitive.ObjectID) error
	UnlinkComment(ctx context.Context, parent enums.ContentType, parentID string, commentID primitive.ObjectID) error
}

type StrikeStore interface {
	RecordStrike(ctx context.Context, userID string, entry model.StrikeRecord) (int, error)
	Ban(ctx context.Context, userID, reason string, at time.Time) error
}

// SessionRevoker tears down a banned user's live sessions.
type SessionRevoker interface {
	DeleteAllForUser(ctx context.Context, userID string) error
}

// TxRunner scopes the review side effects to one transaction.
type TxRunner interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

type Dependencies struct {
	Queue      QueueStore
	Content    ContentStore
	Strikes    StrikeStore
	Sessions   SessionRevoker
	Tx         TxRunner
	MaxStrikes int
	Logger     *zap.Logger
}

// Service executes admin review decisions: it closes the queue record,
// lands the outcome on the content document, settles deferred comment
// linkage, and on rejection advances the author's strike ledger up to
// the automatic ban.
type Service struct {
	queue      QueueStore
	content    ContentStore
	strikes    StrikeStore
	sessions   SessionRevoker
	tx         TxRunner
	maxStrikes int
	log        *zap.Logger
	now        func() time.Time
}

const defaultMaxStrikes = 3

func NewService(deps Dependencies) *Service {
	log := deps.Logger
	if log == nil {
		log = zap.NewNop()
	}
	maxStrikes := deps.MaxStrikes
	if maxStrikes <= 0 {
		maxStrikes = defaultMaxStrikes
	}
	return &Service{
		queue:      deps.Queue,
		content:    deps.Content,
		strikes:    deps.Strikes,
		sessions:   deps.Sessions,
		tx:         deps.Tx,
		maxStrikes: maxStrikes,
		log:        log,
		now:        time.Now,
	}
}

type DecisionInput struct {
	Action          Action
	RejectionReason string
	WarningText     string
	Notes           string
}

type DecisionResult struct {
	ReviewStatus enums.ReviewStatus
	Message      string
	Strikes      int
	MaxStrikes   int
	Banned       bool
}

// Decide applies one decision to a pending flagged record. Callers must
// already carry the admin role.
func (s *Service) Decide(ctx context.Context, reviewerID, role, recordID string, in DecisionInput) (DecisionResult, error) {
	if role != string(enums.RoleAdmin) {
		return DecisionResult{}, ErrForbidden
	}
	if err := validateDecision(in); err != nil {
		return DecisionResult{}, err
	}

	record, err := s.queue.GetByID(ctx, recordID)
	if err != nil {
		if errors.Is(err, mongodb.ErrFlaggedNotFound) {
			return DecisionResult{}, ErrNotFound
		}
		return DecisionResult{}, fmt.Errorf("load flagged record: %w", err)
	}
	if record.ReviewStatus != enums.ReviewStatusPending {
		return DecisionResult{}, ErrAlreadyReviewed
	}

	now := s.now().UTC()
	review, decision := s.outcomeFor(in, now, reviewerID)

	banned := false
	strikes := 0
	err = s.tx.WithTransaction(ctx, func(txCtx context.Context) error {
		if err := s.queue.MarkReviewed(txCtx, recordID, review); err != nil {
			return err
		}
		if err := s.content.ApplyDecision(txCtx, record.ContentType, record.ContentID, decision); err != nil {
			// Content deleted since flagging still closes the record.
			if !errors.Is(err, mongodb.ErrContentNotFound) {
				return err
			}
		}
		if record.ContentType == enums.ContentTypeComment {
			if err := s.settleCommentLinkage(txCtx, record, in.Action); err != nil {
				return err
			}
		}
		if in.Action == ActionReject {
			count, err := s.strikes.RecordStrike(txCtx, record.AuthorID, model.StrikeRecord{
				Date:        now,
				Reason:      in.RejectionReason,
				ContentType: record.ContentType,
				ContentID:   record.ContentID,
				ReviewedBy:  reviewerID,
			})
			if err != nil {
				return err
			}
			strikes = count
			if count >= s.maxStrikes {
				banned = true
				reason := fmt.Sprintf("Automatically banned after %d content violations", s.maxStrikes)
				if err := s.strikes.Ban(txCtx, record.AuthorID, reason, now); err != nil {
					return err
				}
			}
		}
		return nil
	})
	if err != nil {
		return DecisionResult{}, fmt.Errorf("apply review decision: %w", err)
	}

	// Session revocation lives outside the document transaction; a ban
	// that is already durable must still win even if this fails.
	if banned && s.sessions != nil {
		if err := s.sessions.DeleteAllForUser(ctx, record.AuthorID); err != nil {
			s.log.Error("failed to revoke sessions for banned user",
				zap.String("user_id", record.AuthorID),
				zap.Error(err))
		}
	}

	s.log.Info("review decision applied",
		zap.String("record_id", recordID),
		zap.String("action", string(in.Action)),
		zap.String("content_type", string(record.ContentType)),
		zap.String("reviewed_by", reviewerID),
		zap.Int("strikes", strikes),
		zap.Bool("banned", banned))

	return DecisionResult{
		ReviewStatus: review.Status,
		Message:      s.resultMessage(in.Action, strikes, banned),
		Strikes:      strikes,
		MaxStrikes:   s.maxStrikes,
		Banned:       banned,
	}, nil
}

type ListQuery struct {
	ReviewStatus string
	ContentType  string
	Decision     string
	Source       string
	AuthorID     string
	SortBy       string
	SortAsc      bool
	Limit        int64
	Offset       int64
}

type Listing struct {
	Items  []model.FlaggedContent
	Total  int64
	Counts mongodb.QueueCounts
}

// List serves the admin queue with its dashboard counts.
func (s *Service) List(ctx context.Context, role string, q ListQuery) (Listing, error) {
	if role != string(enums.RoleAdmin) {
		return Listing{}, ErrForbidden
	}
	filter := mongodb.ListFilter{
		ReviewStatus: q.ReviewStatus,
		AuthorID:     q.AuthorID,
		SortBy:       q.SortBy,
		SortAsc:      q.SortAsc,
		Limit:        q.Limit,
		Offset:       q.Offset,
	}
	if q.ContentType != "" {
		ct, ok := enums.ParseContentType(q.ContentType)
		if !ok {
			return Listing{}, fmt.Errorf("%w: unknown content type %q", ErrInvalidInput, q.ContentType)
		}
		filter.ContentType = ct
	}
	if q.Decision != "" {
		filter.Decision = enums.Decision(q.Decision)
	}
	if q.Source != "" {
		filter.Source = enums.FlagSource(q.Source)
	}

	items, total, err := s.queue.List(ctx, filter)
	if err != nil {
		return Listing{}, fmt.Errorf("list flagged content: %w", err)
	}
	counts, err := s.queue.Counts(ctx)
	if err != nil {
		return Listing{}, fmt.Errorf("count flagged content: %w", err)
	}
	return Listing{Items: items, Total: total, Counts: counts}, nil
}

func (s *Service) Get(ctx context.Context, role, id string) (model.FlaggedContent, error) {
	if role != string(enums.RoleAdmin) {
		return model.FlaggedContent{}, ErrForbidden
	}
	record, err := s.queue.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, mongodb.ErrFlaggedNotFound) {
			return model.FlaggedContent{}, ErrNotFound
		}
		return model.FlaggedContent{}, fmt.Errorf("load flagged record: %w", err)
	}
	return record, nil
}

func (s *Service) outcomeFor(in DecisionInput, now time.Time, reviewerID string) (mongodb.ReviewUpdate, mongodb.DecisionUpdate) {
	review := mongodb.ReviewUpdate{
		ReviewedBy: reviewerID,
		ReviewedAt: now,
		Notes:      strings.TrimSpace(in.Notes),
	}
	var decision mongodb.DecisionUpdate

	switch in.Action {
	case ActionApprove:
		review.Status = enums.ReviewStatusApproved
		decision.Status = enums.ModerationStatusApproved
	case ActionApproveWithWarning:
		review.Status = enums.ReviewStatusApproved
		review.HasWarningLabel = true
		review.WarningText = strings.TrimSpace(in.WarningText)
		decision.Status = enums.ModerationStatusApproved
		decision.HasWarningLabel = true
		decision.WarningText = review.WarningText
	case ActionReject:
		review.Status = enums.ReviewStatusRejected
		review.RejectionReason = strings.TrimSpace(in.RejectionReason)
		decision.Status = enums.ModerationStatusRejected
		decision.RejectionReason = review.RejectionReason
	}
	return review, decision
}

// settleCommentLinkage attaches an approved comment to its parent and
// detaches a rejected one. The parent collection is read off the comment
// document itself.
func (s *Service) settleCommentLinkage(ctx context.Context, record model.FlaggedContent, action Action) error {
	comment, err := s.content.GetComment(ctx, record.ContentID)
	if err != nil {
		if errors.Is(err, mongodb.ErrContentNotFound) {
			return nil
		}
		return err
	}
	parentID := comment.ParentID.Hex()
	switch action {
	case ActionApprove, ActionApproveWithWarning:
		return s.content.LinkComment(ctx, comment.ParentCollection, parentID, comment.ID)
	case ActionReject:
		return s.content.UnlinkComment(ctx, comment.ParentCollection, parentID, comment.ID)
	}
	return nil
}

func (s *Service) resultMessage(action Action, strikes int, banned bool) string {
	switch action {
	case ActionApprove:
		return "Content approved"
	case ActionApproveWithWarning:
		return "Content approved with warning label"
	default:
		msg := fmt.Sprintf("Content rejected. User now has %d/%d strikes", strikes, s.maxStrikes)
		if banned {
			msg += " - USER HAS BEEN BANNED"
		}
		return msg
	}
}

func validateDecision(in DecisionInput) error {
	switch in.Action {
	case ActionApprove, ActionApproveWithWarning:
		return nil
	case ActionReject:
		if strings.TrimSpace(in.RejectionReason) == "" {
			return fmt.Errorf("%w: rejection requires a reason", ErrInvalidInput)
		}
		return nil
	default:
		return fmt.Errorf("%w: unknown action %q", ErrInvalidInput, in.Action)
	}
}
