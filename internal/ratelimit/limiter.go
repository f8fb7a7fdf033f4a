// Package ratelimit implements fixed-window request counters keyed by client.
package ratelimit

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/User-Emin/kattenbak-sub003/internal/cache"
)

type Config struct {
	Max    int
	Window time.Duration
}

var (
	DefaultAPI   = Config{Max: 100, Window: 15 * time.Minute}
	DefaultLogin = Config{Max: 5, Window: 15 * time.Minute}
)

type Result struct {
	Allowed   bool
	Limit     int
	Remaining int
	ResetAt   time.Time
}

// RetryAfter is how long a denied caller should wait, rounded up to whole
// seconds and never less than one.
func (r Result) RetryAfter(now time.Time) time.Duration {
	wait := r.ResetAt.Sub(now)
	if wait < time.Second {
		return time.Second
	}
	return wait.Round(time.Second)
}

// Limiter counts one hit against key and reports whether it is within cfg.
type Limiter interface {
	Check(ctx context.Context, key string, cfg Config) (Result, error)
}

// Key builds the counter key for a scope and client identifier.
func Key(scope, client string) string {
	return "ratelimit:" + scope + ":" + client
}

func newResult(count int, cfg Config, resetAt time.Time) Result {
	remaining := cfg.Max - count
	if remaining < 0 {
		remaining = 0
	}
	return Result{
		Allowed:   count <= cfg.Max,
		Limit:     cfg.Max,
		Remaining: remaining,
		ResetAt:   resetAt,
	}
}

type StoreConfig struct {
	Store                 string
	RedisConnectionString string
}

// New returns the limiter for the configured store. The memory limiter is
// only correct on a single node.
func New(cfg StoreConfig) (Limiter, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Store)) {
	case "memory", "":
		return NewMemoryLimiter(), nil
	case "redis":
		client, err := cache.NewRedisClient(cfg.RedisConnectionString)
		if err != nil {
			return nil, err
		}
		return NewRedisLimiter(client), nil
	default:
		return nil, fmt.Errorf("unsupported rate limit store: %s", cfg.Store)
	}
}
