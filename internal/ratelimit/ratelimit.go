// Package ratelimit provides a fixed-window request counter keyed by
// string, used to gate the login and forgot-password routes.
package ratelimit

import (
	"context"
	"math"
	"sync"
	"time"
)

// Result of a rate-limit check. RetryAfterSeconds is only meaningful when
// Allowed is false.
type Result struct {
	Allowed           bool
	RetryAfterSeconds int
}

// Limiter counts requests per key in a fixed window. Implementations must be
// safe for concurrent use and should fail open: a broken counter must not
// take authentication down with it.
type Limiter interface {
	Check(ctx context.Context, key string, max int, window time.Duration) Result
}

type memoryEntry struct {
	count          int
	firstRequestAt time.Time
}

// MemoryLimiter is the per-process backend. State is per instance, injected,
// never package-global.
type MemoryLimiter struct {
	mu      sync.Mutex
	entries map[string]*memoryEntry
	now     func() time.Time
}

func NewMemoryLimiter() *MemoryLimiter {
	return &MemoryLimiter{
		entries: make(map[string]*memoryEntry),
		now:     time.Now,
	}
}

func (l *MemoryLimiter) Check(ctx context.Context, key string, max int, window time.Duration) Result {
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	existing, ok := l.entries[key]
	if !ok || now.Sub(existing.firstRequestAt) > window {
		l.entries[key] = &memoryEntry{count: 1, firstRequestAt: now}
		return Result{Allowed: true}
	}

	if existing.count >= max {
		remaining := window - now.Sub(existing.firstRequestAt)
		return Result{
			Allowed:           false,
			RetryAfterSeconds: int(math.Ceil(remaining.Seconds())),
		}
	}

	existing.count++
	return Result{Allowed: true}
}
