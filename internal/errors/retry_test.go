package errors

import (
	"context"
	"testing"
	"time"
)

func fastRetryConfig(maxRetries int) *RetryConfig {
	return &RetryConfig{
		MaxRetries:     maxRetries,
		InitialBackoff: time.Millisecond,
		MaxBackoff:     5 * time.Millisecond,
		BackoffFactor:  2.0,
	}
}

func TestRetrySucceedsAfterTransientFailures(t *testing.T) {
	attempts := 0
	err := Retry(context.Background(), fastRetryConfig(3), func(ctx context.Context) error {
		attempts++
		if attempts < 3 {
			return ResetEmailFailed()
		}
		return nil
	})

	if err != nil {
		t.Fatalf("expected success after retries, got %v", err)
	}
	if attempts != 3 {
		t.Errorf("attempts = %d, want 3", attempts)
	}
}

func TestRetryGivesUpAfterMaxRetries(t *testing.T) {
	attempts := 0
	err := Retry(context.Background(), fastRetryConfig(2), func(ctx context.Context) error {
		attempts++
		return ResetEmailFailed()
	})

	if err == nil {
		t.Fatal("expected final error")
	}
	if attempts != 3 { // initial try + 2 retries
		t.Errorf("attempts = %d, want 3", attempts)
	}
}

func TestRetryDoesNotRetryClientErrors(t *testing.T) {
	attempts := 0
	err := Retry(context.Background(), fastRetryConfig(3), func(ctx context.Context) error {
		attempts++
		return InvalidCredentials()
	})

	if err == nil {
		t.Fatal("expected error")
	}
	if attempts != 1 {
		t.Errorf("attempts = %d, want 1 (client errors must not retry)", attempts)
	}
}

func TestRetryHonorsContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := Retry(ctx, fastRetryConfig(3), func(ctx context.Context) error {
		t.Error("function should not run with a cancelled context")
		return nil
	})

	if err != context.Canceled {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}
