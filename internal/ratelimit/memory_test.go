package ratelimit

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryLimiterFixedWindow(t *testing.T) {
	t.Parallel()

	l := NewMemoryLimiter()
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return now }

	cfg := Config{Max: 5, Window: 900000 * time.Millisecond}
	ctx := context.Background()
	key := Key("login", "203.0.113.7")

	for i := 1; i <= 5; i++ {
		res, err := l.Check(ctx, key, cfg)
		require.NoError(t, err)
		assert.True(t, res.Allowed, "request %d", i)
		assert.Equal(t, 5-i, res.Remaining)
		assert.Equal(t, now.Add(15*time.Minute), res.ResetAt)
	}

	res, err := l.Check(ctx, key, cfg)
	require.NoError(t, err)
	assert.False(t, res.Allowed)
	assert.Equal(t, 0, res.Remaining)
	assert.Equal(t, 15*time.Minute, res.RetryAfter(now))

	now = now.Add(15 * time.Minute)
	res, err = l.Check(ctx, key, cfg)
	require.NoError(t, err)
	assert.True(t, res.Allowed)
	assert.Equal(t, 4, res.Remaining)
	assert.Equal(t, now.Add(15*time.Minute), res.ResetAt)
}

func TestMemoryLimiterKeysAreIndependent(t *testing.T) {
	t.Parallel()

	l := NewMemoryLimiter()
	cfg := Config{Max: 1, Window: time.Minute}
	ctx := context.Background()

	first, err := l.Check(ctx, Key("api", "a"), cfg)
	require.NoError(t, err)
	other, err := l.Check(ctx, Key("api", "b"), cfg)
	require.NoError(t, err)
	again, err := l.Check(ctx, Key("api", "a"), cfg)
	require.NoError(t, err)

	assert.True(t, first.Allowed)
	assert.True(t, other.Allowed)
	assert.False(t, again.Allowed)
}

func TestMemoryLimiterConcurrentHitsAreCounted(t *testing.T) {
	t.Parallel()

	l := NewMemoryLimiter()
	cfg := Config{Max: 50, Window: time.Minute}
	ctx := context.Background()

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		allowed int
	)
	for i := 0; i < 80; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := l.Check(ctx, "k", cfg)
			if err == nil && res.Allowed {
				mu.Lock()
				allowed++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 50, allowed)
}

func TestMemoryLimiterSweepRemovesExpired(t *testing.T) {
	t.Parallel()

	l := NewMemoryLimiter()
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return now }
	ctx := context.Background()

	_, err := l.Check(ctx, "short", Config{Max: 1, Window: time.Minute})
	require.NoError(t, err)
	_, err = l.Check(ctx, "long", Config{Max: 1, Window: time.Hour})
	require.NoError(t, err)

	now = now.Add(2 * time.Minute)
	assert.Equal(t, 1, l.Sweep())
	assert.Equal(t, 1, l.size())
}

func TestRetryAfterHasFloor(t *testing.T) {
	t.Parallel()

	now := time.Now()
	assert.Equal(t, time.Second, Result{ResetAt: now}.RetryAfter(now))
	assert.Equal(t, time.Second, Result{ResetAt: now.Add(200 * time.Millisecond)}.RetryAfter(now))
}

func TestNewRejectsUnknownStore(t *testing.T) {
	t.Parallel()

	_, err := New(StoreConfig{Store: "memcached"})
	assert.Error(t, err)

	l, err := New(StoreConfig{Store: "memory"})
	require.NoError(t, err)
	assert.IsType(t, &MemoryLimiter{}, l)
}
