package reports

import (
	"context"
	"errors"
	"strings"
	"testing"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/atakee72/community-platform/internal/domain/enums"
	"github.com/atakee72/community-platform/internal/domain/model"
	"github.com/atakee72/community-platform/internal/repo/mongodb"
	"github.com/atakee72/community-platform/internal/services/rate"
)

type queueStub struct {
	records    map[string]*model.FlaggedContent
	insertDupN int // fail the first N inserts with ErrDuplicateReport
}

func newQueueStub() *queueStub {
	return &queueStub{records: map[string]*model.FlaggedContent{}}
}

func (q *queueStub) key(contentID string, ct enums.ContentType) string {
	return string(ct) + "/" + contentID
}

func (q *queueStub) Insert(_ context.Context, record *model.FlaggedContent) (primitive.ObjectID, error) {
	if q.insertDupN > 0 {
		q.insertDupN--
		return primitive.NilObjectID, mongodb.ErrDuplicateReport
	}
	id := primitive.NewObjectID()
	record.ID = id
	q.records[q.key(record.ContentID, record.ContentType)] = record
	return id, nil
}

func (q *queueStub) FindPendingUserReport(_ context.Context, contentID string, ct enums.ContentType) (model.FlaggedContent, error) {
	record, ok := q.records[q.key(contentID, ct)]
	if !ok || record.ReviewStatus != enums.ReviewStatusPending {
		return model.FlaggedContent{}, mongodb.ErrFlaggedNotFound
	}
	return *record, nil
}

func (q *queueStub) AddReporter(_ context.Context, id primitive.ObjectID, reporterID string) (int, error) {
	for _, record := range q.records {
		if record.ID == id {
			record.ReportCount++
			record.ReporterUserIDs = append(record.ReporterUserIDs, reporterID)
			return record.ReportCount, nil
		}
	}
	return 0, mongodb.ErrFlaggedNotFound
}

func (q *queueStub) seed(record model.FlaggedContent) {
	if record.ID.IsZero() {
		record.ID = primitive.NewObjectID()
	}
	q.records[q.key(record.ContentID, record.ContentType)] = &record
}

type contentStub struct {
	snapshots map[string]mongodb.ContentSnapshot
	marked    []string
}

func newContentStub() *contentStub {
	return &contentStub{snapshots: map[string]mongodb.ContentSnapshot{}}
}

func (c *contentStub) GetSnapshot(_ context.Context, ct enums.ContentType, id string) (mongodb.ContentSnapshot, error) {
	snap, ok := c.snapshots[string(ct)+"/"+id]
	if !ok {
		return mongodb.ContentSnapshot{}, mongodb.ErrContentNotFound
	}
	return snap, nil
}

func (c *contentStub) MarkUserReported(_ context.Context, ct enums.ContentType, id string) error {
	c.marked = append(c.marked, string(ct)+"/"+id)
	return nil
}

type userStub struct {
	users map[string]model.User
}

func (u *userStub) GetByID(_ context.Context, id string) (model.User, error) {
	user, ok := u.users[id]
	if !ok {
		return model.User{}, mongodb.ErrUserNotFound
	}
	return user, nil
}

type limiterStub struct {
	blocked bool
}

func (l *limiterStub) AllowReport(_ context.Context, _ string) (rate.Result, error) {
	if l.blocked {
		return rate.Result{Allowed: false, RetryAfterSec: 42}, nil
	}
	return rate.Result{Allowed: true, Remaining: 1}, nil
}

type fixture struct {
	svc      *Service
	queue    *queueStub
	content  *contentStub
	users    *userStub
	limiter  *limiterStub
	postID   string
	authorID string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	authorID := primitive.NewObjectID().Hex()
	postID := primitive.NewObjectID().Hex()

	queue := newQueueStub()
	content := newContentStub()
	content.snapshots["topic/"+postID] = mongodb.ContentSnapshot{
		Title: "A topic", Body: "Some body", AuthorID: authorID,
	}
	users := &userStub{users: map[string]model.User{}}
	limiter := &limiterStub{}

	svc := NewService(Dependencies{Queue: queue, Content: content, Users: users, Limiter: limiter})
	return &fixture{svc: svc, queue: queue, content: content, users: users, limiter: limiter, postID: postID, authorID: authorID}
}

func validInput(f *fixture) ReportInput {
	return ReportInput{
		ContentType: enums.ContentTypeTopic,
		ContentID:   f.postID,
		Reason:      enums.ReportReasonSpam,
	}
}

func TestSubmitReportOpensRecord(t *testing.T) {
	f := newFixture(t)
	reporter := primitive.NewObjectID().Hex()

	res, err := f.svc.SubmitReport(context.Background(), reporter, validInput(f))
	if err != nil {
		t.Fatalf("SubmitReport: %v", err)
	}
	if res.ReportCount != 1 {
		t.Fatalf("count = %d, want 1", res.ReportCount)
	}

	record, err := f.queue.FindPendingUserReport(context.Background(), f.postID, enums.ContentTypeTopic)
	if err != nil {
		t.Fatalf("record should exist: %v", err)
	}
	if record.Source != enums.FlagSourceUserReport {
		t.Fatalf("source = %q, want user_report", record.Source)
	}
	if record.Decision != enums.DecisionPendingReview {
		t.Fatalf("decision = %q, want pending_review", record.Decision)
	}
	if record.HighestCategory != "Spam or advertising" {
		t.Fatalf("category = %q, want the reason label", record.HighestCategory)
	}
	if record.Title != "A topic" || record.AuthorID != f.authorID {
		t.Fatalf("content snapshot missing: %+v", record)
	}
	if len(f.content.marked) != 1 {
		t.Fatal("content should be marked user-reported")
	}
}

func TestSubmitReportSecondReporterIncrements(t *testing.T) {
	f := newFixture(t)
	first := primitive.NewObjectID().Hex()
	second := primitive.NewObjectID().Hex()

	if _, err := f.svc.SubmitReport(context.Background(), first, validInput(f)); err != nil {
		t.Fatalf("first report: %v", err)
	}
	res, err := f.svc.SubmitReport(context.Background(), second, validInput(f))
	if err != nil {
		t.Fatalf("second report: %v", err)
	}
	if res.ReportCount != 2 {
		t.Fatalf("count = %d, want 2", res.ReportCount)
	}
}

func TestSubmitReportDuplicateReporterRejected(t *testing.T) {
	f := newFixture(t)
	reporter := primitive.NewObjectID().Hex()

	if _, err := f.svc.SubmitReport(context.Background(), reporter, validInput(f)); err != nil {
		t.Fatalf("first report: %v", err)
	}
	if _, err := f.svc.SubmitReport(context.Background(), reporter, validInput(f)); !errors.Is(err, ErrAlreadyReported) {
		t.Fatalf("expected ErrAlreadyReported, got %v", err)
	}
}

func TestSubmitReportSelfReportRejected(t *testing.T) {
	f := newFixture(t)
	if _, err := f.svc.SubmitReport(context.Background(), f.authorID, validInput(f)); !errors.Is(err, ErrSelfReport) {
		t.Fatalf("expected ErrSelfReport, got %v", err)
	}
}

func TestSubmitReportInsertRaceFoldsIntoWinner(t *testing.T) {
	f := newFixture(t)
	winner := primitive.NewObjectID().Hex()
	loser := primitive.NewObjectID().Hex()

	// the winner's record lands between our find and our insert
	f.queue.insertDupN = 1
	f.queue.seed(model.FlaggedContent{
		Source:          enums.FlagSourceUserReport,
		ContentType:     enums.ContentTypeTopic,
		ContentID:       f.postID,
		ReviewStatus:    enums.ReviewStatusPending,
		ReporterUserID:  winner,
		ReporterUserIDs: []string{winner},
		ReportCount:     1,
	})

	res, err := f.svc.SubmitReport(context.Background(), loser, validInput(f))
	if err != nil {
		t.Fatalf("racing report should fold into the winner: %v", err)
	}
	if res.ReportCount != 2 {
		t.Fatalf("count = %d, want 2", res.ReportCount)
	}
}

func TestSubmitReportRateLimited(t *testing.T) {
	f := newFixture(t)
	f.limiter.blocked = true

	res, err := f.svc.SubmitReport(context.Background(), primitive.NewObjectID().Hex(), validInput(f))
	if !errors.Is(err, ErrRateLimited) {
		t.Fatalf("expected ErrRateLimited, got %v", err)
	}
	if res.RetryAfterSec != 42 {
		t.Fatalf("retry-after = %d, want 42", res.RetryAfterSec)
	}
}

func TestSubmitReportValidation(t *testing.T) {
	f := newFixture(t)
	reporter := primitive.NewObjectID().Hex()

	cases := []struct {
		name string
		in   ReportInput
	}{
		{"unknown type", ReportInput{ContentType: "poll", ContentID: f.postID, Reason: enums.ReportReasonSpam}},
		{"bad id", ReportInput{ContentType: enums.ContentTypeTopic, ContentID: "nope", Reason: enums.ReportReasonSpam}},
		{"bad reason", ReportInput{ContentType: enums.ContentTypeTopic, ContentID: f.postID, Reason: "boring"}},
		{"other without details", ReportInput{ContentType: enums.ContentTypeTopic, ContentID: f.postID, Reason: enums.ReportReasonOther}},
		{"short details", ReportInput{ContentType: enums.ContentTypeTopic, ContentID: f.postID, Reason: enums.ReportReasonSpam, Details: "too short"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := f.svc.SubmitReport(context.Background(), reporter, tc.in); !errors.Is(err, ErrInvalidInput) {
				t.Fatalf("expected ErrInvalidInput, got %v", err)
			}
		})
	}

	long := strings.Repeat("x", minDetailsLen)
	if _, err := f.svc.SubmitReport(context.Background(), reporter, ReportInput{
		ContentType: enums.ContentTypeTopic, ContentID: f.postID,
		Reason: enums.ReportReasonOther, Details: long,
	}); err != nil {
		t.Fatalf("valid other-report should pass: %v", err)
	}
}

func TestSubmitReportMissingContent(t *testing.T) {
	f := newFixture(t)
	in := validInput(f)
	in.ContentID = primitive.NewObjectID().Hex()

	if _, err := f.svc.SubmitReport(context.Background(), primitive.NewObjectID().Hex(), in); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestCheckReported(t *testing.T) {
	f := newFixture(t)
	reporter := primitive.NewObjectID().Hex()

	reported, err := f.svc.CheckReported(context.Background(), reporter, enums.ContentTypeTopic, f.postID)
	if err != nil {
		t.Fatalf("CheckReported: %v", err)
	}
	if reported {
		t.Fatal("nothing reported yet")
	}

	if _, err := f.svc.SubmitReport(context.Background(), reporter, validInput(f)); err != nil {
		t.Fatalf("SubmitReport: %v", err)
	}

	reported, err = f.svc.CheckReported(context.Background(), reporter, enums.ContentTypeTopic, f.postID)
	if err != nil {
		t.Fatalf("CheckReported: %v", err)
	}
	if !reported {
		t.Fatal("reporter should see their open report")
	}

	other, err := f.svc.CheckReported(context.Background(), "someone-else", enums.ContentTypeTopic, f.postID)
	if err != nil {
		t.Fatalf("CheckReported other: %v", err)
	}
	if other {
		t.Fatal("other users have not reported")
	}
}
