package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/crypto/bcrypt"

	"github.com/atakee72/community-platform/internal/domain/enums"
	"github.com/atakee72/community-platform/internal/domain/model"
	"github.com/atakee72/community-platform/internal/repo/mongodb"
)

type userStoreStub struct {
	byEmail map[string]model.User
	byID    map[string]model.User
}

func newUserStoreStub() *userStoreStub {
	return &userStoreStub{byEmail: map[string]model.User{}, byID: map[string]model.User{}}
}

func (s *userStoreStub) Insert(_ context.Context, user *model.User) (primitive.ObjectID, error) {
	if _, ok := s.byEmail[user.Email]; ok {
		return primitive.NilObjectID, mongodb.ErrEmailTaken
	}
	id := primitive.NewObjectID()
	user.ID = id
	s.byEmail[user.Email] = *user
	s.byID[id.Hex()] = *user
	return id, nil
}

func (s *userStoreStub) GetByEmail(_ context.Context, email string) (model.User, error) {
	user, ok := s.byEmail[email]
	if !ok {
		return model.User{}, mongodb.ErrUserNotFound
	}
	return user, nil
}

func (s *userStoreStub) GetByID(_ context.Context, id string) (model.User, error) {
	user, ok := s.byID[id]
	if !ok {
		return model.User{}, mongodb.ErrUserNotFound
	}
	return user, nil
}

func (s *userStoreStub) put(user model.User) {
	s.byEmail[user.Email] = user
	s.byID[user.ID.Hex()] = user
}

type sessionStoreStub struct {
	sessions map[string]SessionRecord
	refresh  map[string]string
	deleted  []string
}

func newSessionStoreStub() *sessionStoreStub {
	return &sessionStoreStub{sessions: map[string]SessionRecord{}, refresh: map[string]string{}}
}

func (s *sessionStoreStub) Create(_ context.Context, rec SessionRecord, refreshToken string) error {
	s.sessions[rec.SID] = rec
	s.refresh[refreshToken] = rec.SID
	return nil
}

func (s *sessionStoreStub) GetSession(_ context.Context, sid string) (SessionRecord, error) {
	rec, ok := s.sessions[sid]
	if !ok {
		return SessionRecord{}, ErrSessionNotFound
	}
	return rec, nil
}

func (s *sessionStoreStub) GetByRefreshToken(ctx context.Context, token string) (SessionRecord, error) {
	sid, ok := s.refresh[token]
	if !ok {
		return SessionRecord{}, ErrRefreshNotFound
	}
	return s.GetSession(ctx, sid)
}

func (s *sessionStoreStub) RotateRefresh(_ context.Context, sid, oldToken, newToken string, expiresAt time.Time) error {
	delete(s.refresh, oldToken)
	s.refresh[newToken] = sid
	rec := s.sessions[sid]
	rec.ExpiresAt = expiresAt
	s.sessions[sid] = rec
	return nil
}

func (s *sessionStoreStub) DeleteSession(_ context.Context, sid string) error {
	if _, ok := s.sessions[sid]; !ok {
		return ErrSessionNotFound
	}
	delete(s.sessions, sid)
	s.deleted = append(s.deleted, sid)
	return nil
}

func (s *sessionStoreStub) DeleteAllForUser(_ context.Context, userID string) error {
	for sid, rec := range s.sessions {
		if rec.UserID == userID {
			delete(s.sessions, sid)
			s.deleted = append(s.deleted, sid)
		}
	}
	return nil
}

func newTestService(users UserStore, sessions SessionStore) *Service {
	return NewService(Dependencies{
		Users:      users,
		Sessions:   sessions,
		JWT:        NewJWTManager("test-secret", 15*time.Minute),
		RefreshTTL: 24 * time.Hour,
	})
}

func seedUser(t *testing.T, users *userStoreStub, email, password string, banned bool) model.User {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("bcrypt: %v", err)
	}
	user := model.User{
		ID:           primitive.NewObjectID(),
		Name:         "Test User",
		Email:        email,
		PasswordHash: string(hash),
		Role:         enums.RoleUser,
		IsBanned:     banned,
	}
	users.put(user)
	return user
}

func TestRegisterAndLogin(t *testing.T) {
	users := newUserStoreStub()
	sessions := newSessionStoreStub()
	svc := newTestService(users, sessions)
	ctx := context.Background()

	res, err := svc.Register(ctx, "Ada", "Ada@Example.com", "correct-horse")
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if res.User.Email != "ada@example.com" {
		t.Fatalf("email should be lowercased, got %q", res.User.Email)
	}
	if res.AccessToken == "" || res.RefreshToken == "" {
		t.Fatal("expected tokens on register")
	}
	if res.User.Role != "user" {
		t.Fatalf("new users get the user role, got %q", res.User.Role)
	}

	login, err := svc.Login(ctx, "ada@example.com", "correct-horse")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if login.User.ID != res.User.ID {
		t.Fatal("login should return the registered user")
	}
}

func TestRegisterValidation(t *testing.T) {
	svc := newTestService(newUserStoreStub(), newSessionStoreStub())
	ctx := context.Background()

	cases := []struct {
		name     string
		userName string
		email    string
		password string
	}{
		{"missing name", "", "a@b.com", "longenough"},
		{"bad email", "Ada", "not-an-email", "longenough"},
		{"short password", "Ada", "a@b.com", "short"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := svc.Register(ctx, tc.userName, tc.email, tc.password); !errors.Is(err, ErrInvalidInput) {
				t.Fatalf("expected ErrInvalidInput, got %v", err)
			}
		})
	}
}

func TestRegisterDuplicateEmail(t *testing.T) {
	users := newUserStoreStub()
	svc := newTestService(users, newSessionStoreStub())
	ctx := context.Background()

	if _, err := svc.Register(ctx, "Ada", "ada@example.com", "correct-horse"); err != nil {
		t.Fatalf("first register: %v", err)
	}
	if _, err := svc.Register(ctx, "Eve", "ada@example.com", "another-pass"); !errors.Is(err, ErrEmailTaken) {
		t.Fatalf("expected ErrEmailTaken, got %v", err)
	}
}

func TestLoginWrongCredentials(t *testing.T) {
	users := newUserStoreStub()
	seedUser(t, users, "ada@example.com", "correct-horse", false)
	svc := newTestService(users, newSessionStoreStub())
	ctx := context.Background()

	if _, err := svc.Login(ctx, "ada@example.com", "wrong"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
	if _, err := svc.Login(ctx, "nobody@example.com", "whatever"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("unknown email should not be distinguishable, got %v", err)
	}
}

func TestLoginBannedUser(t *testing.T) {
	users := newUserStoreStub()
	seedUser(t, users, "banned@example.com", "correct-horse", true)
	svc := newTestService(users, newSessionStoreStub())

	if _, err := svc.Login(context.Background(), "banned@example.com", "correct-horse"); !errors.Is(err, ErrBanned) {
		t.Fatalf("expected ErrBanned, got %v", err)
	}
}

func TestRefreshRotatesToken(t *testing.T) {
	users := newUserStoreStub()
	sessions := newSessionStoreStub()
	svc := newTestService(users, sessions)
	ctx := context.Background()

	first, err := svc.Register(ctx, "Ada", "ada@example.com", "correct-horse")
	if err != nil {
		t.Fatalf("Register: %v", err)
	}

	second, err := svc.Refresh(ctx, first.RefreshToken)
	if err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if second.RefreshToken == first.RefreshToken {
		t.Fatal("refresh token should rotate")
	}
	if _, err := svc.Refresh(ctx, first.RefreshToken); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("old refresh token should be dead, got %v", err)
	}
	if _, err := svc.Refresh(ctx, second.RefreshToken); err != nil {
		t.Fatalf("rotated token should work: %v", err)
	}
}

func TestRefreshBannedUserRevokesSession(t *testing.T) {
	users := newUserStoreStub()
	sessions := newSessionStoreStub()
	svc := newTestService(users, sessions)
	ctx := context.Background()

	res, err := svc.Register(ctx, "Ada", "ada@example.com", "correct-horse")
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	banned := users.byEmail["ada@example.com"]
	banned.IsBanned = true
	users.put(banned)

	if _, err := svc.Refresh(ctx, res.RefreshToken); !errors.Is(err, ErrBanned) {
		t.Fatalf("expected ErrBanned, got %v", err)
	}
	if len(sessions.deleted) == 0 {
		t.Fatal("banned refresh should revoke the session")
	}
}

func TestValidateAccessToken(t *testing.T) {
	users := newUserStoreStub()
	sessions := newSessionStoreStub()
	svc := newTestService(users, sessions)
	ctx := context.Background()

	res, err := svc.Register(ctx, "Ada", "ada@example.com", "correct-horse")
	if err != nil {
		t.Fatalf("Register: %v", err)
	}

	id, err := svc.ValidateAccessToken(ctx, res.AccessToken)
	if err != nil {
		t.Fatalf("ValidateAccessToken: %v", err)
	}
	if id.UserID != res.User.ID || id.Role != "user" {
		t.Fatalf("unexpected identity %+v", id)
	}

	if _, err := svc.ValidateAccessToken(ctx, "garbage"); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized for garbage token, got %v", err)
	}

	// token stays syntactically valid but the session is gone
	if err := svc.Logout(ctx, id.SID); err != nil {
		t.Fatalf("Logout: %v", err)
	}
	if _, err := svc.ValidateAccessToken(ctx, res.AccessToken); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("revoked session should reject the token, got %v", err)
	}
}

func TestRevokeAllForUser(t *testing.T) {
	users := newUserStoreStub()
	sessions := newSessionStoreStub()
	svc := newTestService(users, sessions)
	ctx := context.Background()

	res, err := svc.Register(ctx, "Ada", "ada@example.com", "correct-horse")
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if _, err := svc.Login(ctx, "ada@example.com", "correct-horse"); err != nil {
		t.Fatalf("Login: %v", err)
	}
	if len(sessions.sessions) != 2 {
		t.Fatalf("expected 2 live sessions, got %d", len(sessions.sessions))
	}

	if err := svc.RevokeAllForUser(ctx, res.User.ID); err != nil {
		t.Fatalf("RevokeAllForUser: %v", err)
	}
	if len(sessions.sessions) != 0 {
		t.Fatalf("expected no sessions, got %d", len(sessions.sessions))
	}
}

func TestJWTExpiry(t *testing.T) {
	mgr := NewJWTManager("test-secret", time.Minute)
	token, _, err := mgr.Issue("665f1f77bcf86cd799439011", "sid-x", "admin", time.Now().Add(-time.Hour))
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if _, err := mgr.Parse(token); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expired token should not parse, got %v", err)
	}
}
