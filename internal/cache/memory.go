package cache

import (
	"context"
	"errors"
	"strings"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

type MemoryProvider struct {
	cache *lru.Cache[string, item]
	now   func() time.Time
}

type item struct {
	value     string
	expiresAt time.Time
}

const defaultMemoryCacheSize = 10_000

func NewMemoryProvider() (*MemoryProvider, error) {
	c, err := lru.New[string, item](defaultMemoryCacheSize)
	if err != nil {
		return nil, err
	}
	return &MemoryProvider{cache: c, now: time.Now}, nil
}

func (m *MemoryProvider) Get(_ context.Context, key string) (string, error) {
	cached, exists := m.cache.Get(key)
	if !exists {
		return "", ErrNotFound
	}

	if m.now().After(cached.expiresAt) {
		m.cache.Remove(key)
		return "", ErrNotFound
	}

	return cached.value, nil
}

func (m *MemoryProvider) Set(_ context.Context, key string, value string, ttl time.Duration) error {
	m.cache.Add(key, item{
		value:     value,
		expiresAt: m.now().Add(ttl),
	})
	return nil
}

func (m *MemoryProvider) Delete(_ context.Context, key string) error {
	m.cache.Remove(key)
	return nil
}

// DeletePrefix drops every entry whose key starts with prefix.
func (m *MemoryProvider) DeletePrefix(_ context.Context, prefix string) error {
	for _, key := range m.cache.Keys() {
		if strings.HasPrefix(key, prefix) {
			m.cache.Remove(key)
		}
	}
	return nil
}

func (m *MemoryProvider) Close() error {
	m.cache.Purge()
	return nil
}

var ErrNotFound = errors.New("key not found")
