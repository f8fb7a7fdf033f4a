package db

import (
	"context"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/User-Emin/kattenbak-sub003/internal/observability"
)

type queryStartKey struct{}

type queryStart struct {
	at        time.Time
	operation string
}

// queryTracer records query latency per SQL verb.
type queryTracer struct {
	now func() time.Time
}

func newQueryTracer() *queryTracer {
	return &queryTracer{now: time.Now}
}

func (t *queryTracer) TraceQueryStart(ctx context.Context, _ *pgx.Conn, data pgx.TraceQueryStartData) context.Context {
	return context.WithValue(ctx, queryStartKey{}, queryStart{
		at:        t.now(),
		operation: queryOperation(normalizeQuery(data.SQL)),
	})
}

func (t *queryTracer) TraceQueryEnd(ctx context.Context, _ *pgx.Conn, data pgx.TraceQueryEndData) {
	start, ok := ctx.Value(queryStartKey{}).(queryStart)
	if !ok {
		return
	}
	operation := start.operation
	if operation == "" {
		operation = "UNKNOWN"
	}
	observability.DBQueryDuration.
		WithLabelValues(operation, observability.Outcome(data.Err)).
		Observe(t.now().Sub(start.at).Seconds())
}

func normalizeQuery(query string) string {
	normalized := strings.TrimSpace(query)
	if normalized == "" {
		return ""
	}
	return strings.Join(strings.Fields(normalized), " ")
}

// queryOperation returns the leading SQL verb. CTEs are reported as WITH.
func queryOperation(query string) string {
	if query == "" {
		return ""
	}

	parts := strings.Fields(query)
	if len(parts) == 0 {
		return ""
	}
	switch op := strings.ToUpper(parts[0]); op {
	case "SELECT", "INSERT", "UPDATE", "DELETE", "WITH", "BEGIN", "COMMIT", "ROLLBACK":
		return op
	default:
		return "OTHER"
	}
}
