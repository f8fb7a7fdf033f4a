package handlers

import (
	"errors"
	"net/http"

	"github.com/User-Emin/kattenbak-sub003/internal/auth"
)

type loginRequest struct {
	Email    string `json:"email" validate:"required,email,max=254"`
	Password string `json:"password" validate:"required,max=256"`
}

// Login exchanges the admin credentials for a bearer token.
func (h *Handlers) Login(w http.ResponseWriter, r *http.Request) {
	logger := h.loggerFromContext(r.Context())

	var req loginRequest
	if !h.decodeJSON(w, r, &req) {
		return
	}

	token, err := h.auth.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, auth.ErrUnauthorized) {
			logger.Warn("admin login failed")
			h.writeError(w, r, http.StatusUnauthorized, "invalid email or password")
			return
		}
		h.writeServiceError(w, r, err)
		return
	}

	logger.Info("admin logged in")
	h.writeData(w, r, http.StatusOK, token)
}

// RequireAdmin rejects requests without a valid admin bearer token.
func (h *Handlers) RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := auth.BearerToken(r.Header.Get("Authorization"))
		if !ok {
			h.writeError(w, r, http.StatusUnauthorized, "authentication required")
			return
		}

		claims, err := h.auth.RequireRole(token, auth.RoleAdmin)
		if err != nil {
			h.loggerFromContext(r.Context()).Warn("rejected admin request", "error", err)
			h.writeServiceError(w, r, err)
			return
		}

		ctx := auth.WithClaims(r.Context(), claims)
		ctx = withAdminLogger(ctx, h.loggerFromContext(ctx), claims)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
