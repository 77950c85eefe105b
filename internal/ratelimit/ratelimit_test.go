package ratelimit

import (
	"context"
	"testing"
	"time"
)

func TestMemoryLimiterFixedWindow(t *testing.T) {
	l := NewMemoryLimiter()
	ctx := context.Background()
	window := 15 * time.Minute

	for i := 1; i <= 5; i++ {
		res := l.Check(ctx, "login:1.2.3.4", 5, window)
		if !res.Allowed {
			t.Fatalf("request %d should be allowed", i)
		}
	}

	res := l.Check(ctx, "login:1.2.3.4", 5, window)
	if res.Allowed {
		t.Fatal("6th request in the window should be denied")
	}
	if res.RetryAfterSeconds <= 0 || res.RetryAfterSeconds > int(window.Seconds()) {
		t.Errorf("retryAfter = %d, want in (0, %d]", res.RetryAfterSeconds, int(window.Seconds()))
	}
}

func TestMemoryLimiterWindowReset(t *testing.T) {
	l := NewMemoryLimiter()
	ctx := context.Background()
	window := 15 * time.Minute

	now := time.Now()
	l.now = func() time.Time { return now }

	for i := 0; i < 5; i++ {
		l.Check(ctx, "key", 5, window)
	}
	if res := l.Check(ctx, "key", 5, window); res.Allowed {
		t.Fatal("expected denial at the limit")
	}

	// Just past the window: the counter starts over.
	l.now = func() time.Time { return now.Add(window + time.Second) }
	if res := l.Check(ctx, "key", 5, window); !res.Allowed {
		t.Error("expected a fresh window after expiry")
	}
}

func TestMemoryLimiterRetryAfterShrinks(t *testing.T) {
	l := NewMemoryLimiter()
	ctx := context.Background()
	window := 15 * time.Minute

	now := time.Now()
	l.now = func() time.Time { return now }

	for i := 0; i < 5; i++ {
		l.Check(ctx, "key", 5, window)
	}

	first := l.Check(ctx, "key", 5, window)
	l.now = func() time.Time { return now.Add(10 * time.Minute) }
	later := l.Check(ctx, "key", 5, window)

	if !(later.RetryAfterSeconds < first.RetryAfterSeconds) {
		t.Errorf("retryAfter should shrink as the window ages: first=%d later=%d",
			first.RetryAfterSeconds, later.RetryAfterSeconds)
	}
}

func TestMemoryLimiterKeysAreIndependent(t *testing.T) {
	l := NewMemoryLimiter()
	ctx := context.Background()
	window := time.Minute

	for i := 0; i < 5; i++ {
		l.Check(ctx, "login:1.1.1.1", 5, window)
	}
	if res := l.Check(ctx, "login:1.1.1.1", 5, window); res.Allowed {
		t.Fatal("first key should be exhausted")
	}

	if res := l.Check(ctx, "login:2.2.2.2", 5, window); !res.Allowed {
		t.Error("second key must have its own window")
	}
	if res := l.Check(ctx, "forgot-password:1.1.1.1", 5, window); !res.Allowed {
		t.Error("same client, different action must have its own window")
	}
}

func TestMemoryLimiterConcurrency(t *testing.T) {
	l := NewMemoryLimiter()
	ctx := context.Background()

	const workers = 20
	results := make(chan Result, workers)
	for i := 0; i < workers; i++ {
		go func() {
			results <- l.Check(ctx, "key", 5, time.Minute)
		}()
	}

	allowed := 0
	for i := 0; i < workers; i++ {
		if (<-results).Allowed {
			allowed++
		}
	}
	if allowed != 5 {
		t.Errorf("allowed = %d, want exactly 5", allowed)
	}
}
