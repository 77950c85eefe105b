package ratelimit

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisLimiter shares the fixed window across processes via INCR + EXPIRE.
// Redis failures fail open: rate limiting is a gate, not a dependency.
type RedisLimiter struct {
	client *redis.Client
}

func NewRedisLimiter(client *redis.Client) *RedisLimiter {
	return &RedisLimiter{client: client}
}

func (l *RedisLimiter) Check(ctx context.Context, key string, max int, window time.Duration) Result {
	count, err := l.client.Incr(ctx, key).Result()
	if err != nil {
		return Result{Allowed: true}
	}

	if count == 1 {
		l.client.Expire(ctx, key, window)
	}

	if count > int64(max) {
		ttl, err := l.client.TTL(ctx, key).Result()
		if err != nil || ttl < 0 {
			ttl = window
		}
		retry := int(ttl.Seconds())
		if retry < 1 {
			retry = 1
		}
		return Result{Allowed: false, RetryAfterSeconds: retry}
	}

	return Result{Allowed: true}
}
