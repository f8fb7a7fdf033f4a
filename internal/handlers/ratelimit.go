package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/User-Emin/kattenbak-sub003/internal/observability"
	"github.com/User-Emin/kattenbak-sub003/internal/ratelimit"
)

// RateLimit counts requests per client IP under scope. Limiter failures let
// the request through.
func (h *Handlers) RateLimit(scope string, cfg ratelimit.Config) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			key := ratelimit.Key(scope, clientIP(r, h.trustProxyHeaders()))

			result, err := h.limiter.Check(ctx, key, cfg)
			if err != nil {
				h.loggerFromContext(ctx).Error("rate limiter failed, allowing request", "scope", scope, "error", err)
				next.ServeHTTP(w, r)
				return
			}

			headers := w.Header()
			headers.Set("X-RateLimit-Limit", strconv.Itoa(result.Limit))
			headers.Set("X-RateLimit-Remaining", strconv.Itoa(result.Remaining))
			headers.Set("X-RateLimit-Reset", strconv.FormatInt(result.ResetAt.Unix(), 10))

			if !result.Allowed {
				observability.RateLimitDenied.WithLabelValues(scope).Inc()
				retryAfter := result.RetryAfter(time.Now())
				headers.Set("Retry-After", strconv.Itoa(int(retryAfter/time.Second)))
				h.loggerFromContext(ctx).Warn("rate limit exceeded", "scope", scope, "retry_after", retryAfter.String())
				h.writeError(w, r, http.StatusTooManyRequests, "too many requests, please try again later")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func (h *Handlers) apiRateLimit() ratelimit.Config {
	if h.config == nil || h.config.RateLimitMax <= 0 {
		return ratelimit.DefaultAPI
	}
	return ratelimit.Config{Max: h.config.RateLimitMax, Window: h.config.RateLimitWindow}
}

func (h *Handlers) loginRateLimit() ratelimit.Config {
	if h.config == nil || h.config.LoginRateLimitMax <= 0 {
		return ratelimit.DefaultLogin
	}
	return ratelimit.Config{Max: h.config.LoginRateLimitMax, Window: h.config.LoginRateLimitWindow}
}

// APIRateLimit applies the general API budget.
func (h *Handlers) APIRateLimit(next http.Handler) http.Handler {
	return h.RateLimit("api", h.apiRateLimit())(next)
}

// LoginRateLimit applies the stricter budget for credential checks.
func (h *Handlers) LoginRateLimit(next http.Handler) http.Handler {
	return h.RateLimit("login", h.loginRateLimit())(next)
}
