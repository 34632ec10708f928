package rate

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// WindowStore is a fixed-window counter, typically redis-backed.
type WindowStore interface {
	IncrementWindow(ctx context.Context, key string, window time.Duration) (int64, time.Duration, error)
}

type Limiter struct {
	store        WindowStore
	maxPerWindow int64
	window       time.Duration
	log          *zap.Logger
}

type Result struct {
	Allowed       bool
	Remaining     int64
	RetryAfterSec int64
}

func NewLimiter(store WindowStore, maxPerWindow int, window time.Duration, log *zap.Logger) *Limiter {
	if log == nil {
		log = zap.NewNop()
	}
	return &Limiter{store: store, maxPerWindow: int64(maxPerWindow), window: window, log: log}
}

// AllowReport consumes one slot of the caller's report budget. With no
// backing store the limiter is open, so a redis outage never blocks
// abuse reports.
func (l *Limiter) AllowReport(ctx context.Context, userID string) (Result, error) {
	if l.store == nil || l.maxPerWindow <= 0 {
		return Result{Allowed: true, Remaining: -1}, nil
	}
	key := fmt.Sprintf("rate:reports:%s", userID)
	count, ttl, err := l.store.IncrementWindow(ctx, key, l.window)
	if err != nil {
		l.log.Warn("rate limiter unavailable, allowing request", zap.Error(err))
		return Result{Allowed: true, Remaining: -1}, nil
	}
	if count > l.maxPerWindow {
		return Result{Allowed: false, RetryAfterSec: ceilSeconds(ttl)}, nil
	}
	return Result{Allowed: true, Remaining: l.maxPerWindow - count}, nil
}

func ceilSeconds(d time.Duration) int64 {
	if d <= 0 {
		return 0
	}
	secs := int64(d / time.Second)
	if d%time.Second != 0 {
		secs++
	}
	return secs
}
