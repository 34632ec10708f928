package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/atakee72/community-platform/internal/domain/enums"
	"github.com/atakee72/community-platform/internal/domain/model"
	"github.com/atakee72/community-platform/internal/pkg/validate"
	"github.com/atakee72/community-platform/internal/repo/mongodb"
)

const minPasswordLen = 8

// SessionRecord is the server-side state backing one login.
type SessionRecord struct {
	SID       string    `json:"sid"`
	UserID    string    `json:"user_id"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

type UserStore interface {
	Insert(ctx context.Context, user *model.User) (primitive.ObjectID, error)
	GetByEmail(ctx context.Context, email string) (model.User, error)
	GetByID(ctx context.Context, id string) (model.User, error)
}

type SessionStore interface {
	Create(ctx context.Context, rec SessionRecord, refreshToken string) error
	GetSession(ctx context.Context, sid string) (SessionRecord, error)
	GetByRefreshToken(ctx context.Context, refreshToken string) (SessionRecord, error)
	RotateRefresh(ctx context.Context, sid, oldToken, newToken string, expiresAt time.Time) error
	DeleteSession(ctx context.Context, sid string) error
	DeleteAllForUser(ctx context.Context, userID string) error
}

type Dependencies struct {
	Users      UserStore
	Sessions   SessionStore
	JWT        *JWTManager
	RefreshTTL time.Duration
	Logger     *zap.Logger
}

type Service struct {
	users      UserStore
	sessions   SessionStore
	jwt        *JWTManager
	refreshTTL time.Duration
	log        *zap.Logger
	now        func() time.Time
}

func NewService(deps Dependencies) *Service {
	log := deps.Logger
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{
		users:      deps.Users,
		sessions:   deps.Sessions,
		jwt:        deps.JWT,
		refreshTTL: deps.RefreshTTL,
		log:        log,
		now:        time.Now,
	}
}

// Me is the caller-facing slice of a user record.
type Me struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

type AuthResult struct {
	AccessToken   string
	AccessExpires time.Time
	RefreshToken  string
	User          Me
}

func (s *Service) Register(ctx context.Context, name, email, password string) (AuthResult, error) {
	name = strings.TrimSpace(name)
	email = strings.ToLower(strings.TrimSpace(email))
	if !validate.Required(name) {
		return AuthResult{}, fmt.Errorf("%w: name is required", ErrInvalidInput)
	}
	if !validate.Email(email) {
		return AuthResult{}, fmt.Errorf("%w: invalid email address", ErrInvalidInput)
	}
	if len(password) < minPasswordLen {
		return AuthResult{}, fmt.Errorf("%w: password must be at least %d characters", ErrInvalidInput, minPasswordLen)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return AuthResult{}, fmt.Errorf("hash password: %w", err)
	}

	now := s.now().UTC()
	user := &model.User{
		Name:         name,
		Email:        email,
		PasswordHash: string(hash),
		Role:         enums.RoleUser,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	id, err := s.users.Insert(ctx, user)
	if err != nil {
		if errors.Is(err, mongodb.ErrEmailTaken) {
			return AuthResult{}, ErrEmailTaken
		}
		return AuthResult{}, fmt.Errorf("insert user: %w", err)
	}
	user.ID = id
	s.log.Info("user registered", zap.String("user_id", id.Hex()))
	return s.issueForUser(ctx, *user)
}

func (s *Service) Login(ctx context.Context, email, password string) (AuthResult, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, mongodb.ErrUserNotFound) {
			return AuthResult{}, ErrInvalidCredentials
		}
		return AuthResult{}, fmt.Errorf("lookup user: %w", err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return AuthResult{}, ErrInvalidCredentials
	}
	if user.IsBanned {
		return AuthResult{}, ErrBanned
	}
	return s.issueForUser(ctx, user)
}

func (s *Service) Refresh(ctx context.Context, refreshToken string) (AuthResult, error) {
	if refreshToken == "" {
		return AuthResult{}, ErrUnauthorized
	}
	rec, err := s.sessions.GetByRefreshToken(ctx, refreshToken)
	if err != nil {
		if errors.Is(err, ErrRefreshNotFound) || errors.Is(err, ErrSessionNotFound) {
			return AuthResult{}, ErrUnauthorized
		}
		return AuthResult{}, fmt.Errorf("lookup refresh token: %w", err)
	}

	user, err := s.users.GetByID(ctx, rec.UserID)
	if err != nil {
		if errors.Is(err, mongodb.ErrUserNotFound) {
			return AuthResult{}, ErrUnauthorized
		}
		return AuthResult{}, fmt.Errorf("lookup user: %w", err)
	}
	if user.IsBanned {
		// revoke the session instead of rotating it
		_ = s.sessions.DeleteSession(ctx, rec.SID)
		return AuthResult{}, ErrBanned
	}

	now := s.now().UTC()
	newToken, err := NewRefreshToken()
	if err != nil {
		return AuthResult{}, err
	}
	expiresAt := now.Add(s.refreshTTL)
	if err := s.sessions.RotateRefresh(ctx, rec.SID, refreshToken, newToken, expiresAt); err != nil {
		return AuthResult{}, fmt.Errorf("rotate refresh token: %w", err)
	}

	access, accessExp, err := s.jwt.Issue(rec.UserID, rec.SID, string(user.Role), now)
	if err != nil {
		return AuthResult{}, err
	}
	return AuthResult{
		AccessToken:   access,
		AccessExpires: accessExp,
		RefreshToken:  newToken,
		User:          meFrom(user),
	}, nil
}

func (s *Service) Logout(ctx context.Context, sid string) error {
	if sid == "" {
		return ErrUnauthorized
	}
	if err := s.sessions.DeleteSession(ctx, sid); err != nil && !errors.Is(err, ErrSessionNotFound) {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

// ValidateAccessToken checks the signature and confirms the backing
// session still exists, so revocation takes effect before token expiry.
func (s *Service) ValidateAccessToken(ctx context.Context, token string) (Identity, error) {
	claims, err := s.jwt.Parse(token)
	if err != nil {
		return Identity{}, ErrUnauthorized
	}
	if _, err := s.sessions.GetSession(ctx, claims.SID); err != nil {
		return Identity{}, ErrUnauthorized
	}
	return Identity{UserID: claims.UserID, SID: claims.SID, Role: claims.Role}, nil
}

// RevokeAllForUser tears down every live session a user holds.
func (s *Service) RevokeAllForUser(ctx context.Context, userID string) error {
	return s.sessions.DeleteAllForUser(ctx, userID)
}

func (s *Service) issueForUser(ctx context.Context, user model.User) (AuthResult, error) {
	now := s.now().UTC()
	sid := uuid.NewString()
	refresh, err := NewRefreshToken()
	if err != nil {
		return AuthResult{}, err
	}
	rec := SessionRecord{
		SID:       sid,
		UserID:    user.ID.Hex(),
		Role:      string(user.Role),
		CreatedAt: now,
		ExpiresAt: now.Add(s.refreshTTL),
	}
	if err := s.sessions.Create(ctx, rec, refresh); err != nil {
		return AuthResult{}, fmt.Errorf("create session: %w", err)
	}
	access, accessExp, err := s.jwt.Issue(rec.UserID, sid, rec.Role, now)
	if err != nil {
		return AuthResult{}, err
	}
	return AuthResult{
		AccessToken:   access,
		AccessExpires: accessExp,
		RefreshToken:  refresh,
		User:          meFrom(user),
	}, nil
}

func meFrom(user model.User) Me {
	return Me{
		ID:    user.ID.Hex(),
		Name:  user.Name,
		Email: user.Email,
		Role:  string(user.Role),
	}
}

// NewRefreshToken returns an opaque 64-hex-char token.
func NewRefreshToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate refresh token: %w", err)
	}
	return hex.EncodeToString(buf), nil
}
