package logging

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFromContextPrefersStoredLogger(t *testing.T) {
	t.Parallel()

	var stored, fallback bytes.Buffer
	ctx := WithLogger(context.Background(), slog.New(slog.NewTextHandler(&stored, nil)))

	FromContext(ctx, slog.New(slog.NewTextHandler(&fallback, nil))).Info("hello")

	assert.Contains(t, stored.String(), "hello")
	assert.Empty(t, fallback.String())
}

func TestFromContextFallsBack(t *testing.T) {
	t.Parallel()

	var fallback bytes.Buffer
	FromContext(context.Background(), slog.New(slog.NewTextHandler(&fallback, nil))).Info("hello")
	assert.Contains(t, fallback.String(), "hello")

	assert.NotNil(t, FromContext(nil, nil)) //nolint:staticcheck
}

func TestRequestID(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "", RequestID(context.Background()))
	ctx := WithRequestID(context.Background(), "req-1")
	assert.Equal(t, "req-1", RequestID(ctx))
}
