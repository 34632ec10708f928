package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/atakee72/community-platform/internal/services/auth"
)

const (
	sessionKeyPrefix     = "sessions:"
	refreshKeyPrefix     = "refresh:"
	sessionRefreshPrefix = "session_refresh:"
	userSessionsPrefix   = "user_sessions:"
)

// SessionRepo stores login sessions and their refresh tokens. Every
// session keeps a reverse index entry under its user so a ban can
// revoke everything at once.
type SessionRepo struct {
	client *goredis.Client
}

func NewSessionRepo(client *goredis.Client) *SessionRepo {
	return &SessionRepo{client: client}
}

func sessionKey(sid string) string         { return sessionKeyPrefix + sid }
func refreshKey(token string) string       { return refreshKeyPrefix + token }
func sessionRefreshKey(sid string) string  { return sessionRefreshPrefix + sid }
func userSessionsKey(userID string) string { return userSessionsPrefix + userID }

func ttlFor(expiresAt time.Time) (time.Duration, error) {
	ttl := time.Until(expiresAt)
	if ttl <= 0 {
		return 0, fmt.Errorf("session already expired")
	}
	return ttl, nil
}

func (r *SessionRepo) Create(ctx context.Context, rec auth.SessionRecord, refreshToken string) error {
	if r.client == nil {
		return fmt.Errorf("redis client is nil")
	}
	if rec.SID == "" || rec.UserID == "" || refreshToken == "" {
		return fmt.Errorf("invalid session payload")
	}
	ttl, err := ttlFor(rec.ExpiresAt)
	if err != nil {
		return err
	}
	raw, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}

	pipe := r.client.TxPipeline()
	pipe.Set(ctx, sessionKey(rec.SID), raw, ttl)
	pipe.Set(ctx, refreshKey(refreshToken), rec.SID, ttl)
	pipe.Set(ctx, sessionRefreshKey(rec.SID), refreshToken, ttl)
	pipe.SAdd(ctx, userSessionsKey(rec.UserID), rec.SID)
	pipe.Expire(ctx, userSessionsKey(rec.UserID), ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("store session: %w", err)
	}
	return nil
}

func (r *SessionRepo) GetSession(ctx context.Context, sid string) (auth.SessionRecord, error) {
	if r.client == nil {
		return auth.SessionRecord{}, fmt.Errorf("redis client is nil")
	}
	raw, err := r.client.Get(ctx, sessionKey(sid)).Bytes()
	if errors.Is(err, goredis.Nil) {
		return auth.SessionRecord{}, auth.ErrSessionNotFound
	}
	if err != nil {
		return auth.SessionRecord{}, fmt.Errorf("read session: %w", err)
	}
	var rec auth.SessionRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		return auth.SessionRecord{}, fmt.Errorf("decode session: %w", err)
	}
	return rec, nil
}

func (r *SessionRepo) GetByRefreshToken(ctx context.Context, refreshToken string) (auth.SessionRecord, error) {
	if r.client == nil {
		return auth.SessionRecord{}, fmt.Errorf("redis client is nil")
	}
	sid, err := r.client.Get(ctx, refreshKey(refreshToken)).Result()
	if errors.Is(err, goredis.Nil) {
		return auth.SessionRecord{}, auth.ErrRefreshNotFound
	}
	if err != nil {
		return auth.SessionRecord{}, fmt.Errorf("read refresh token: %w", err)
	}
	return r.GetSession(ctx, sid)
}

// RotateRefresh swaps the session's refresh token and extends every key
// to the new expiry in one transaction.
func (r *SessionRepo) RotateRefresh(ctx context.Context, sid, oldToken, newToken string, expiresAt time.Time) error {
	if r.client == nil {
		return fmt.Errorf("redis client is nil")
	}
	ttl, err := ttlFor(expiresAt)
	if err != nil {
		return err
	}
	rec, err := r.GetSession(ctx, sid)
	if err != nil {
		return err
	}
	rec.ExpiresAt = expiresAt
	raw, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}

	pipe := r.client.TxPipeline()
	pipe.Del(ctx, refreshKey(oldToken))
	pipe.Set(ctx, sessionKey(sid), raw, ttl)
	pipe.Set(ctx, refreshKey(newToken), sid, ttl)
	pipe.Set(ctx, sessionRefreshKey(sid), newToken, ttl)
	pipe.SAdd(ctx, userSessionsKey(rec.UserID), sid)
	pipe.Expire(ctx, userSessionsKey(rec.UserID), ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("rotate refresh token: %w", err)
	}
	return nil
}

func (r *SessionRepo) DeleteSession(ctx context.Context, sid string) error {
	if r.client == nil {
		return fmt.Errorf("redis client is nil")
	}
	rec, err := r.GetSession(ctx, sid)
	if errors.Is(err, auth.ErrSessionNotFound) {
		return auth.ErrSessionNotFound
	}
	if err != nil {
		return err
	}
	refreshToken, err := r.client.Get(ctx, sessionRefreshKey(sid)).Result()
	if err != nil && !errors.Is(err, goredis.Nil) {
		return fmt.Errorf("read session refresh token: %w", err)
	}

	pipe := r.client.TxPipeline()
	pipe.Del(ctx, sessionKey(sid))
	pipe.Del(ctx, sessionRefreshKey(sid))
	if refreshToken != "" {
		pipe.Del(ctx, refreshKey(refreshToken))
	}
	pipe.SRem(ctx, userSessionsKey(rec.UserID), sid)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

// DeleteAllForUser revokes every session in the user's reverse index.
func (r *SessionRepo) DeleteAllForUser(ctx context.Context, userID string) error {
	if r.client == nil {
		return fmt.Errorf("redis client is nil")
	}
	sids, err := r.client.SMembers(ctx, userSessionsKey(userID)).Result()
	if err != nil && !errors.Is(err, goredis.Nil) {
		return fmt.Errorf("list user sessions: %w", err)
	}
	for _, sid := range sids {
		if err := r.DeleteSession(ctx, sid); err != nil && !errors.Is(err, auth.ErrSessionNotFound) {
			return err
		}
	}
	if err := r.client.Del(ctx, userSessionsKey(userID)).Err(); err != nil {
		return fmt.Errorf("clear user session index: %w", err)
	}
	return nil
}
