package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"runtime/debug"

	"github.com/User-Emin/kattenbak-sub003/internal/observability"
)

// Recoverer turns a handler panic into a 500 response and reports it.
func (h *Handlers) Recoverer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			rvr := recover()
			if rvr == nil {
				return
			}
			if err, ok := rvr.(error); ok && errors.Is(err, http.ErrAbortHandler) {
				panic(rvr)
			}

			ctx := r.Context()
			err := fmt.Errorf("panic: %v", rvr)
			h.loggerFromContext(ctx).Error("handler panicked", "error", err, "stack", string(debug.Stack()))
			observability.CaptureError(ctx, err, map[string]string{
				"component": "http",
				"route":     routeLabel(r),
			})
			h.writeError(w, r, http.StatusInternalServerError, "internal server error")
		}()
		next.ServeHTTP(w, r)
	})
}
