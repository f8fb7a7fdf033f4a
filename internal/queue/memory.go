package queue

import (
	"context"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/User-Emin/kattenbak-sub003/internal/logging"
	"github.com/User-Emin/kattenbak-sub003/internal/observability"
)

// MemoryQueue is a bounded in-process queue. Jobs still buffered when the
// process exits are lost; the provider redelivers unacknowledged webhooks.
type MemoryQueue struct {
	jobs    chan Job
	workers int
	logger  *slog.Logger

	mu     sync.RWMutex
	closed bool
}

func NewMemoryQueue(bufferSize, workers int, logger *slog.Logger) *MemoryQueue {
	if bufferSize <= 0 {
		bufferSize = 1024
	}
	if workers <= 0 {
		workers = 1
	}
	if logger == nil {
		logger = logging.Discard()
	}
	return &MemoryQueue{
		jobs:    make(chan Job, bufferSize),
		workers: workers,
		logger:  logger,
	}
}

// Enqueue never blocks; a full buffer returns ErrQueueFull.
func (q *MemoryQueue) Enqueue(ctx context.Context, job Job) error {
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		return ErrQueueClosed
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	select {
	case q.jobs <- job:
		observability.QueueDepth.Inc()
		return nil
	default:
		return ErrQueueFull
	}
}

func (q *MemoryQueue) Consume(ctx context.Context, handler Handler) error {
	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < q.workers; i++ {
		worker := i
		g.Go(func() error {
			q.work(gctx, worker, handler)
			return nil
		})
	}
	return g.Wait()
}

func (q *MemoryQueue) work(ctx context.Context, worker int, handler Handler) {
	logger := q.logger.With("worker", worker)
	for {
		select {
		case <-ctx.Done():
			return
		case job, ok := <-q.jobs:
			if !ok {
				return
			}
			observability.QueueDepth.Dec()
			if err := handler(ctx, job); err != nil {
				logger.Error("reconciliation job failed", "payment_id", job.PaymentID, "error", err)
			}
		}
	}
}

func (q *MemoryQueue) Len() int {
	return len(q.jobs)
}

// Close stops accepting jobs. Workers drain what is already buffered and
// then return.
func (q *MemoryQueue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return nil
	}
	q.closed = true
	close(q.jobs)
	return nil
}
