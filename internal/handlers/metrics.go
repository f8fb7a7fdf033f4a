package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/User-Emin/kattenbak-sub003/internal/observability"
)

// Metrics records request counts and latencies labelled by route template.
func (h *Handlers) Metrics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		observability.HTTPInFlight.Inc()
		defer observability.HTTPInFlight.Dec()

		wrapped := &statusRecorder{ResponseWriter: w}
		next.ServeHTTP(wrapped, r)

		route := routeLabel(r)
		if route == "" {
			route = "unknown"
		}
		status := strconv.Itoa(wrapped.statusCode())
		observability.HTTPRequestsTotal.WithLabelValues(r.Method, route, status).Inc()
		observability.HTTPRequestDuration.WithLabelValues(r.Method, route, status).Observe(time.Since(start).Seconds())
	})
}
