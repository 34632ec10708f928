package content

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/atakee72/community-platform/internal/domain/enums"
	"github.com/atakee72/community-platform/internal/domain/model"
	"github.com/atakee72/community-platform/internal/repo/mongodb"
	"github.com/atakee72/community-platform/internal/services/moderation"
)

type contentStoreStub struct {
	posts    map[string]model.Post
	comments map[string]model.Comment
	links    []string
	unavail  bool
}

func newContentStoreStub() *contentStoreStub {
	return &contentStoreStub{posts: map[string]model.Post{}, comments: map[string]model.Comment{}}
}

func (s *contentStoreStub) InsertPost(_ context.Context, _ enums.ContentType, post *model.Post) (primitive.ObjectID, error) {
	if s.unavail {
		return primitive.NilObjectID, errors.New("store down")
	}
	id := primitive.NewObjectID()
	post.ID = id
	s.posts[id.Hex()] = *post
	return id, nil
}

func (s *contentStoreStub) GetPost(_ context.Context, _ enums.ContentType, id string) (model.Post, error) {
	post, ok := s.posts[id]
	if !ok {
		return model.Post{}, mongodb.ErrContentNotFound
	}
	return post, nil
}

func (s *contentStoreStub) ListVisible(_ context.Context, _ enums.ContentType, viewerID string, _, _ int64) ([]model.Post, error) {
	var out []model.Post
	for _, post := range s.posts {
		if post.Visible(viewerID) {
			out = append(out, post)
		}
	}
	return out, nil
}

func (s *contentStoreStub) ApplyEdit(_ context.Context, _ enums.ContentType, id string, edit mongodb.PostEdit) error {
	post, ok := s.posts[id]
	if !ok {
		return mongodb.ErrContentNotFound
	}
	post.Title = edit.Title
	post.Body = edit.Body
	post.Tags = edit.Tags
	post.ModerationStatus = edit.Status
	post.IsEdited = true
	post.EditHistory = append(post.EditHistory, edit.History)
	if edit.ClearModeration {
		post.RejectionReason = ""
		post.HasWarningLabel = false
		post.WarningText = ""
	}
	s.posts[id] = post
	return nil
}

func (s *contentStoreStub) InsertComment(_ context.Context, comment *model.Comment) (primitive.ObjectID, error) {
	id := primitive.NewObjectID()
	comment.ID = id
	s.comments[id.Hex()] = *comment
	return id, nil
}

func (s *contentStoreStub) GetComment(_ context.Context, id string) (model.Comment, error) {
	comment, ok := s.comments[id]
	if !ok {
		return model.Comment{}, mongodb.ErrContentNotFound
	}
	return comment, nil
}

func (s *contentStoreStub) LinkComment(_ context.Context, parent enums.ContentType, parentID string, commentID primitive.ObjectID) error {
	s.links = append(s.links, parentID+"/"+commentID.Hex())
	return nil
}

type flaggedStoreStub struct {
	records []model.FlaggedContent
	fail    bool
}

func (s *flaggedStoreStub) Insert(_ context.Context, record *model.FlaggedContent) (primitive.ObjectID, error) {
	if s.fail {
		return primitive.NilObjectID, errors.New("queue down")
	}
	id := primitive.NewObjectID()
	record.ID = id
	s.records = append(s.records, *record)
	return id, nil
}

type userStoreStub struct {
	users map[string]model.User
}

func (s *userStoreStub) GetByID(_ context.Context, id string) (model.User, error) {
	user, ok := s.users[id]
	if !ok {
		return model.User{}, mongodb.ErrUserNotFound
	}
	return user, nil
}

// screenerStub returns canned verdicts keyed by body text.
type screenerStub struct {
	verdicts map[string]moderation.Verdict
}

func approvedVerdict() moderation.Verdict {
	return moderation.Verdict{Decision: enums.DecisionApproved, CanPublish: true}
}

func pendingVerdict() moderation.Verdict {
	return moderation.Verdict{
		Decision:          enums.DecisionPendingReview,
		NeedsReview:       true,
		FlaggedCategories: []string{"harassment"},
		Scores:            map[string]float64{"harassment": 0.7},
		HighestCategory:   "harassment",
		MaxScore:          0.7,
	}
}

func (s *screenerStub) verdictFor(body string) moderation.Verdict {
	if v, ok := s.verdicts[body]; ok {
		return v
	}
	return approvedVerdict()
}

func (s *screenerStub) ScreenSubmission(_ context.Context, _, body string, _ []string) moderation.Verdict {
	return s.verdictFor(body)
}

func (s *screenerStub) ScreenText(_ context.Context, text string) moderation.Verdict {
	return s.verdictFor(text)
}

type fixture struct {
	svc     *Service
	store   *contentStoreStub
	flagged *flaggedStoreStub
	users   *userStoreStub
	screen  *screenerStub
	author  model.User
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	author := model.User{
		ID:    primitive.NewObjectID(),
		Name:  "Ada",
		Email: "ada@example.com",
		Role:  enums.RoleUser,
	}
	store := newContentStoreStub()
	flagged := &flaggedStoreStub{}
	users := &userStoreStub{users: map[string]model.User{author.ID.Hex(): author}}
	screen := &screenerStub{verdicts: map[string]moderation.Verdict{}}
	svc := NewService(Dependencies{Content: store, Flagged: flagged, Users: users, Screener: screen})
	return &fixture{svc: svc, store: store, flagged: flagged, users: users, screen: screen, author: author}
}

func TestCreatePostCleanPublishes(t *testing.T) {
	f := newFixture(t)

	res, err := f.svc.CreatePost(context.Background(), f.author.ID.Hex(), enums.ContentTypeTopic, PostInput{
		Title: "Hello", Body: "A perfectly fine topic.",
	})
	if err != nil {
		t.Fatalf("CreatePost: %v", err)
	}
	if res.Post.ModerationStatus != enums.ModerationStatusApproved {
		t.Fatalf("status = %q, want approved", res.Post.ModerationStatus)
	}
	if len(f.flagged.records) != 0 {
		t.Fatalf("clean post should not enqueue, got %d records", len(f.flagged.records))
	}
}

func TestCreatePostFlaggedGoesPending(t *testing.T) {
	f := newFixture(t)
	f.screen.verdicts["bad body"] = pendingVerdict()

	res, err := f.svc.CreatePost(context.Background(), f.author.ID.Hex(), enums.ContentTypeTopic, PostInput{
		Title: "Hello", Body: "bad body",
	})
	if err != nil {
		t.Fatalf("CreatePost: %v", err)
	}
	if res.Post.ModerationStatus != enums.ModerationStatusPending {
		t.Fatalf("status = %q, want pending", res.Post.ModerationStatus)
	}
	if len(f.flagged.records) != 1 {
		t.Fatalf("expected 1 queue record, got %d", len(f.flagged.records))
	}

	rec := f.flagged.records[0]
	if rec.Source != enums.FlagSourceAI {
		t.Fatalf("source = %q, want ai_flag", rec.Source)
	}
	if rec.ContentID != res.Post.ID.Hex() {
		t.Fatal("queue record should point at the stored content")
	}
	if rec.AuthorName != "Ada" || rec.AuthorEmail != "ada@example.com" {
		t.Fatalf("author snapshot missing: %+v", rec)
	}
	if rec.Body != "bad body" || rec.HighestCategory != "harassment" {
		t.Fatalf("classifier snapshot missing: %+v", rec)
	}
}

func TestCreatePostQueueFailureKeepsContentPending(t *testing.T) {
	f := newFixture(t)
	f.screen.verdicts["bad body"] = pendingVerdict()
	f.flagged.fail = true

	res, err := f.svc.CreatePost(context.Background(), f.author.ID.Hex(), enums.ContentTypeTopic, PostInput{
		Title: "Hello", Body: "bad body",
	})
	if err != nil {
		t.Fatalf("queue outage must not fail the submission: %v", err)
	}
	stored := f.store.posts[res.Post.ID.Hex()]
	if stored.ModerationStatus != enums.ModerationStatusPending {
		t.Fatalf("content must stay hidden, got status %q", stored.ModerationStatus)
	}
}

func TestCreateEventSkipsScreening(t *testing.T) {
	f := newFixture(t)
	f.screen.verdicts["bad body"] = pendingVerdict()
	start := time.Now().Add(24 * time.Hour)

	res, err := f.svc.CreatePost(context.Background(), f.author.ID.Hex(), enums.ContentTypeEvent, PostInput{
		Title: "Meetup", Body: "bad body", StartDate: &start, Location: "Town hall",
	})
	if err != nil {
		t.Fatalf("CreatePost: %v", err)
	}
	if res.Post.ModerationStatus != enums.ModerationStatusApproved {
		t.Fatalf("events publish without screening, got %q", res.Post.ModerationStatus)
	}
	if len(f.flagged.records) != 0 {
		t.Fatal("events must not enter the queue at submission time")
	}
}

func TestCreateEventValidation(t *testing.T) {
	f := newFixture(t)
	start := time.Now().Add(24 * time.Hour)
	before := start.Add(-time.Hour)

	if _, err := f.svc.CreatePost(context.Background(), f.author.ID.Hex(), enums.ContentTypeEvent, PostInput{
		Title: "Meetup", Body: "ok",
	}); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("missing start date: got %v", err)
	}
	if _, err := f.svc.CreatePost(context.Background(), f.author.ID.Hex(), enums.ContentTypeEvent, PostInput{
		Title: "Meetup", Body: "ok", StartDate: &start, EndDate: &before,
	}); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("end before start: got %v", err)
	}
}

func TestCreatePostBannedAuthor(t *testing.T) {
	f := newFixture(t)
	banned := f.author
	banned.IsBanned = true
	f.users.users[banned.ID.Hex()] = banned

	if _, err := f.svc.CreatePost(context.Background(), banned.ID.Hex(), enums.ContentTypeTopic, PostInput{
		Title: "Hello", Body: "fine",
	}); !errors.Is(err, ErrBanned) {
		t.Fatalf("expected ErrBanned, got %v", err)
	}
}

func TestCreateCommentDeferredLinkage(t *testing.T) {
	f := newFixture(t)
	parent, err := f.svc.CreatePost(context.Background(), f.author.ID.Hex(), enums.ContentTypeTopic, PostInput{
		Title: "Parent", Body: "fine",
	})
	if err != nil {
		t.Fatalf("CreatePost: %v", err)
	}
	f.screen.verdicts["bad comment"] = pendingVerdict()

	res, err := f.svc.CreateComment(context.Background(), f.author.ID.Hex(), CommentInput{
		Body: "bad comment", ParentType: enums.ContentTypeTopic, ParentID: parent.Post.ID.Hex(),
	})
	if err != nil {
		t.Fatalf("CreateComment: %v", err)
	}
	if res.Comment.ModerationStatus != enums.ModerationStatusPending {
		t.Fatalf("status = %q, want pending", res.Comment.ModerationStatus)
	}
	if res.Comment.ParentCollection != enums.ContentTypeTopic {
		t.Fatal("parent collection must be recorded on every comment")
	}
	if len(f.store.links) != 0 {
		t.Fatal("pending comment must not link to its parent yet")
	}
	if len(f.flagged.records) != 1 {
		t.Fatalf("expected 1 queue record, got %d", len(f.flagged.records))
	}
}

func TestCreateCommentCleanLinksImmediately(t *testing.T) {
	f := newFixture(t)
	parent, err := f.svc.CreatePost(context.Background(), f.author.ID.Hex(), enums.ContentTypeTopic, PostInput{
		Title: "Parent", Body: "fine",
	})
	if err != nil {
		t.Fatalf("CreatePost: %v", err)
	}

	res, err := f.svc.CreateComment(context.Background(), f.author.ID.Hex(), CommentInput{
		Body: "nice comment", ParentType: enums.ContentTypeTopic, ParentID: parent.Post.ID.Hex(),
	})
	if err != nil {
		t.Fatalf("CreateComment: %v", err)
	}
	want := parent.Post.ID.Hex() + "/" + res.Comment.ID.Hex()
	if len(f.store.links) != 1 || f.store.links[0] != want {
		t.Fatalf("links = %v, want [%s]", f.store.links, want)
	}
}

func TestCreateCommentMissingParent(t *testing.T) {
	f := newFixture(t)
	if _, err := f.svc.CreateComment(context.Background(), f.author.ID.Hex(), CommentInput{
		Body: "hi", ParentType: enums.ContentTypeTopic, ParentID: primitive.NewObjectID().Hex(),
	}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestEditPostReScreensAndClearsModeration(t *testing.T) {
	f := newFixture(t)
	f.screen.verdicts["bad body"] = pendingVerdict()

	created, err := f.svc.CreatePost(context.Background(), f.author.ID.Hex(), enums.ContentTypeTopic, PostInput{
		Title: "Hello", Body: "bad body",
	})
	if err != nil {
		t.Fatalf("CreatePost: %v", err)
	}
	id := created.Post.ID.Hex()

	// simulate a prior rejection
	post := f.store.posts[id]
	post.ModerationStatus = enums.ModerationStatusRejected
	post.RejectionReason = "Harassment"
	f.store.posts[id] = post

	res, err := f.svc.EditPost(context.Background(), f.author.ID.Hex(), enums.ContentTypeTopic, id, PostInput{
		Title: "Hello", Body: "now perfectly fine",
	})
	if err != nil {
		t.Fatalf("EditPost: %v", err)
	}
	if res.Post.ModerationStatus != enums.ModerationStatusApproved {
		t.Fatalf("clean edit should republish, got %q", res.Post.ModerationStatus)
	}
	stored := f.store.posts[id]
	if stored.RejectionReason != "" {
		t.Fatal("edit must clear the stale rejection reason")
	}
	if len(stored.EditHistory) != 1 || stored.EditHistory[0].OriginalBody != "bad body" {
		t.Fatalf("edit history should capture the pre-edit text: %+v", stored.EditHistory)
	}
}

func TestEditPostFlaggedGoesBackToPending(t *testing.T) {
	f := newFixture(t)
	created, err := f.svc.CreatePost(context.Background(), f.author.ID.Hex(), enums.ContentTypeTopic, PostInput{
		Title: "Hello", Body: "fine",
	})
	if err != nil {
		t.Fatalf("CreatePost: %v", err)
	}
	f.screen.verdicts["now bad"] = pendingVerdict()

	res, err := f.svc.EditPost(context.Background(), f.author.ID.Hex(), enums.ContentTypeTopic, created.Post.ID.Hex(), PostInput{
		Title: "Hello", Body: "now bad",
	})
	if err != nil {
		t.Fatalf("EditPost: %v", err)
	}
	if res.Post.ModerationStatus != enums.ModerationStatusPending {
		t.Fatalf("flagged edit should go pending, got %q", res.Post.ModerationStatus)
	}
	if len(f.flagged.records) != 1 {
		t.Fatalf("flagged edit should enqueue, got %d records", len(f.flagged.records))
	}
	if f.flagged.records[0].Body != "now bad" {
		t.Fatal("queue snapshot should hold the edited text")
	}
}

func TestEditPostOwnershipEnforced(t *testing.T) {
	f := newFixture(t)
	created, err := f.svc.CreatePost(context.Background(), f.author.ID.Hex(), enums.ContentTypeTopic, PostInput{
		Title: "Hello", Body: "fine",
	})
	if err != nil {
		t.Fatalf("CreatePost: %v", err)
	}
	other := model.User{ID: primitive.NewObjectID(), Name: "Eve", Role: enums.RoleUser}
	f.users.users[other.ID.Hex()] = other

	if _, err := f.svc.EditPost(context.Background(), other.ID.Hex(), enums.ContentTypeTopic, created.Post.ID.Hex(), PostInput{
		Title: "Hijacked", Body: "nope",
	}); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
}

func TestGetPostVisibility(t *testing.T) {
	f := newFixture(t)
	f.screen.verdicts["bad body"] = pendingVerdict()

	created, err := f.svc.CreatePost(context.Background(), f.author.ID.Hex(), enums.ContentTypeTopic, PostInput{
		Title: "Hello", Body: "bad body",
	})
	if err != nil {
		t.Fatalf("CreatePost: %v", err)
	}
	id := created.Post.ID.Hex()

	if _, err := f.svc.GetPost(context.Background(), f.author.ID.Hex(), enums.ContentTypeTopic, id); err != nil {
		t.Fatalf("author should see their pending post: %v", err)
	}
	if _, err := f.svc.GetPost(context.Background(), "someone-else", enums.ContentTypeTopic, id); !errors.Is(err, ErrNotFound) {
		t.Fatalf("pending AI-flagged post must read as missing to others, got %v", err)
	}

	// user-reported pending content stays public
	post := f.store.posts[id]
	post.IsUserReported = true
	f.store.posts[id] = post
	if _, err := f.svc.GetPost(context.Background(), "someone-else", enums.ContentTypeTopic, id); err != nil {
		t.Fatalf("user-reported pending post should stay visible: %v", err)
	}
}

func TestCreatePostUnknownType(t *testing.T) {
	f := newFixture(t)
	if _, err := f.svc.CreatePost(context.Background(), f.author.ID.Hex(), enums.ContentType("poll"), PostInput{
		Title: "x", Body: "y",
	}); !errors.Is(err, ErrUnknownContentType) {
		t.Fatalf("expected ErrUnknownContentType, got %v", err)
	}
}
