package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisLimiter keeps the counters in Redis so every node shares one window
// per key. The window is the key's TTL, set by the first hit.
type RedisLimiter struct {
	client *redis.Client
	now    func() time.Time
}

func NewRedisLimiter(client *redis.Client) *RedisLimiter {
	return &RedisLimiter{client: client, now: time.Now}
}

func (l *RedisLimiter) Check(ctx context.Context, key string, cfg Config) (Result, error) {
	pipe := l.client.TxPipeline()
	incr := pipe.Incr(ctx, key)
	pipe.ExpireNX(ctx, key, cfg.Window)
	pttl := pipe.PTTL(ctx, key)
	if _, err := pipe.Exec(ctx); err != nil {
		return Result{}, fmt.Errorf("failed to check rate limit: %w", err)
	}

	ttl := pttl.Val()
	if ttl <= 0 {
		ttl = cfg.Window
	}
	return newResult(int(incr.Val()), cfg, l.now().Add(ttl)), nil
}

func (l *RedisLimiter) Close() error {
	return l.client.Close()
}
