// Package cache provides read-through caching for catalog and payment method
// lookups.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// Provider is a string key/value store with per-entry TTL.
type Provider interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value string, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Close() error
}

type Config struct {
	Provider              string
	RedisConnectionString string
}

func NewProvider(cfg Config) (Provider, error) {
	switch cfg.Provider {
	case "memory", "":
		return NewMemoryProvider()
	case "redis":
		return NewRedisProvider(cfg.RedisConnectionString)
	default:
		return nil, fmt.Errorf("unsupported cache provider: %s", cfg.Provider)
	}
}

const (
	productsPrefix = "catalog:products:"
	categoriesKey  = "catalog:categories"
	methodsKey     = "payments:methods"
)

func ProductListKey(categorySlug string) string {
	if categorySlug == "" {
		categorySlug = "all"
	}
	return productsPrefix + "list:" + categorySlug
}

func ProductKey(slug string) string {
	return productsPrefix + "slug:" + slug
}

func CategoriesKey() string {
	return categoriesKey
}

func PaymentMethodsKey() string {
	return methodsKey
}

// GetJSON decodes the cached value into dest. It reports false on a miss.
func GetJSON(ctx context.Context, p Provider, key string, dest any) (bool, error) {
	raw, err := p.Get(ctx, key)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal([]byte(raw), dest); err != nil {
		// A value we can no longer decode is treated as a miss.
		_ = p.Delete(ctx, key)
		return false, nil
	}
	return true, nil
}

func SetJSON(ctx context.Context, p Provider, key string, value any, ttl time.Duration) error {
	encoded, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to encode cache value: %w", err)
	}
	return p.Set(ctx, key, string(encoded), ttl)
}

type prefixDeleter interface {
	DeletePrefix(ctx context.Context, prefix string) error
}

// InvalidateProducts drops every cached product list and product page.
// Providers without prefix deletion let entries expire on their TTL.
func InvalidateProducts(ctx context.Context, p Provider) error {
	if d, ok := p.(prefixDeleter); ok {
		return d.DeletePrefix(ctx, productsPrefix)
	}
	return nil
}
