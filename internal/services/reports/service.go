package reports

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
	"github.com/atakee72/community-platform/internal/services/rate"
)

const minDetailsLen = 10

var (
	ErrInvalidInput    = errors.New("invalid report")
	ErrNotFound        = errors.New("content not found")
	ErrSelfReport      = errors.New("cannot report own content")
	ErrAlreadyReported = errors.New("already reported by this user")
	ErrRateLimited     = errors.New("report rate limit exceeded")
)

type QueueStore interface {
	Insert(ctx context.Context, record *model.FlaggedContent) (primitive.ObjectID, error)
	FindPendingUserReport(ctx context.Context, contentID string, ct enums.ContentType) (model.FlaggedContent, error)
	AddReporter(ctx context.Context, id primitive.ObjectID, reporterID string) (int, error)
}

type ContentStore interface {
	GetSnapshot(ctx context.Context, ct enums.ContentType, id string) (mongodb.ContentSnapshot, error)
	MarkUserReported(ctx context.Context, ct enums.ContentType, id string) error
}

type UserStore interface {
	GetByID(ctx context.Context, id string) (model.User, error)
}

// Limiter bounds how many reports one user may file per window.
type Limiter interface {
	AllowReport(ctx context.Context, userID string) (rate.Result, error)
}

type Dependencies struct {
	Queue   QueueStore
	Content ContentStore
	Users   UserStore
	Limiter Limiter
	Logger  *zap.Logger
}

// Service turns user abuse reports into review-queue entries. Repeat
// reports on the same content collapse into one record with a growing
// reporter set; the partial unique index closes the concurrent
// first-report race.
type Service struct {
	queue   QueueStore
	content ContentStore
	users   UserStore
	limiter Limiter
	log     *zap.Logger
	now     func() time.Time
}

func NewService(deps Dependencies) *Service {
	log := deps.Logger
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{
		queue:   deps.Queue,
		content: deps.Content,
		users:   deps.Users,
		limiter: deps.Limiter,
		log:     log,
		now:     time.Now,
	}
}

type ReportInput struct {
	ContentType enums.ContentType
	ContentID   string
	Reason      enums.ReportReason
	Details     string
}

type ReportResult struct {
	ReportCount   int
	RetryAfterSec int64
}

func (s *Service) SubmitReport(ctx context.Context, reporterID string, in ReportInput) (ReportResult, error) {
	if err := validateReport(in); err != nil {
		return ReportResult{}, err
	}

	if s.limiter != nil {
		allow, err := s.limiter.AllowReport(ctx, reporterID)
		if err != nil {
			return ReportResult{}, fmt.Errorf("rate limit check: %w", err)
		}
		if !allow.Allowed {
			return ReportResult{RetryAfterSec: allow.RetryAfterSec}, ErrRateLimited
		}
	}

	snapshot, err := s.content.GetSnapshot(ctx, in.ContentType, in.ContentID)
	if err != nil {
		if errors.Is(err, mongodb.ErrContentNotFound) {
			return ReportResult{}, ErrNotFound
		}
		return ReportResult{}, fmt.Errorf("load content snapshot: %w", err)
	}
	if snapshot.AuthorID == reporterID {
		return ReportResult{}, ErrSelfReport
	}

	existing, err := s.queue.FindPendingUserReport(ctx, in.ContentID, in.ContentType)
	switch {
	case err == nil:
		return s.joinExistingReport(ctx, existing, reporterID, in)
	case errors.Is(err, mongodb.ErrFlaggedNotFound):
		return s.openNewReport(ctx, snapshot, reporterID, in)
	default:
		return ReportResult{}, fmt.Errorf("find pending report: %w", err)
	}
}

// CheckReported reports whether the user already has an open report on
// the content.
func (s *Service) CheckReported(ctx context.Context, userID string, ct enums.ContentType, contentID string) (bool, error) {
	if _, ok := enums.ParseContentType(string(ct)); !ok {
		return false, fmt.Errorf("%w: unknown content type %q", ErrInvalidInput, ct)
	}
	if !validate.ObjectID(contentID) {
		return false, fmt.Errorf("%w: malformed content id", ErrInvalidInput)
	}
	record, err := s.queue.FindPendingUserReport(ctx, contentID, ct)
	if errors.Is(err, mongodb.ErrFlaggedNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("find pending report: %w", err)
	}
	return record.HasReporter(userID), nil
}

func (s *Service) joinExistingReport(ctx context.Context, record model.FlaggedContent, reporterID string, in ReportInput) (ReportResult, error) {
	if record.HasReporter(reporterID) {
		return ReportResult{}, ErrAlreadyReported
	}
	count, err := s.queue.AddReporter(ctx, record.ID, reporterID)
	if err != nil {
		return ReportResult{}, fmt.Errorf("add reporter: %w", err)
	}
	s.log.Info("report joined existing record",
		zap.String("content_type", string(in.ContentType)),
		zap.String("content_id", in.ContentID),
		zap.Int("report_count", count))
	return ReportResult{ReportCount: count}, nil
}

func (s *Service) openNewReport(ctx context.Context, snapshot mongodb.ContentSnapshot, reporterID string, in ReportInput) (ReportResult, error) {
	reporterName := ""
	if reporter, err := s.users.GetByID(ctx, reporterID); err == nil {
		reporterName = reporter.Name
	}
	authorName, authorEmail := "", ""
	if author, err := s.users.GetByID(ctx, snapshot.AuthorID); err == nil {
		authorName, authorEmail = author.Name, author.Email
	}

	now := s.now().UTC()
	record := &model.FlaggedContent{
		Source:      enums.FlagSourceUserReport,
		ContentType: in.ContentType,
		ContentID:   in.ContentID,
		Title:       snapshot.Title,
		Body:        snapshot.Body,
		Tags:        snapshot.Tags,

		AuthorID:    snapshot.AuthorID,
		AuthorName:  authorName,
		AuthorEmail: authorEmail,

		Decision:          enums.DecisionPendingReview,
		FlaggedCategories: []string{in.Reason.Label()},
		HighestCategory:   in.Reason.Label(),

		ReporterUserID:  reporterID,
		ReporterUserIDs: []string{reporterID},
		ReporterName:    reporterName,
		ReportReason:    in.Reason,
		ReportDetails:   strings.TrimSpace(in.Details),
		ReportCount:     1,

		ReviewStatus: enums.ReviewStatusPending,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	_, err := s.queue.Insert(ctx, record)
	if errors.Is(err, mongodb.ErrDuplicateReport) {
		// Another reporter won the race for the first record. Fold this
		// report into theirs instead.
		existing, findErr := s.queue.FindPendingUserReport(ctx, in.ContentID, in.ContentType)
		if findErr != nil {
			return ReportResult{}, fmt.Errorf("find report after duplicate: %w", findErr)
		}
		return s.joinExistingReport(ctx, existing, reporterID, in)
	}
	if err != nil {
		return ReportResult{}, fmt.Errorf("insert report: %w", err)
	}

	if err := s.content.MarkUserReported(ctx, in.ContentType, in.ContentID); err != nil {
		s.log.Error("failed to mark content as user-reported",
			zap.String("content_type", string(in.ContentType)),
			zap.String("content_id", in.ContentID),
			zap.Error(err))
	}
	s.log.Info("report opened new record",
		zap.String("content_type", string(in.ContentType)),
		zap.String("content_id", in.ContentID),
		zap.String("reason", string(in.Reason)))
	return ReportResult{ReportCount: 1}, nil
}

func validateReport(in ReportInput) error {
	if _, ok := enums.ParseContentType(string(in.ContentType)); !ok {
		return fmt.Errorf("%w: unknown content type %q", ErrInvalidInput, in.ContentType)
	}
	if !validate.ObjectID(in.ContentID) {
		return fmt.Errorf("%w: malformed content id", ErrInvalidInput)
	}
	if !in.Reason.Valid() {
		return fmt.Errorf("%w: unknown reason %q", ErrInvalidInput, in.Reason)
	}
	details := strings.TrimSpace(in.Details)
	if in.Reason == enums.ReportReasonOther && details == "" {
		return fmt.Errorf("%w: details are required for reason %q", ErrInvalidInput, enums.ReportReasonOther)
	}
	if details != "" && len(details) < minDetailsLen {
		return fmt.Errorf("%w: details must be at least %d characters", ErrInvalidInput, minDetailsLen)
	}
	return nil
}
