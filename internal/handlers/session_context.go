package handlers

import (
	"context"
	"log/slog"

	"github.com/User-Emin/kattenbak-sub003/internal/auth"
	"github.com/User-Emin/kattenbak-sub003/internal/logging"
)

// withAdminLogger tags the request logger with the admin identity.
func withAdminLogger(ctx context.Context, logger *slog.Logger, claims *auth.Claims) context.Context {
	if claims == nil {
		return ctx
	}
	return logging.WithLogger(ctx, logger.With("admin", claims.Email))
}
