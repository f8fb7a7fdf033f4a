// Package queue hands webhook-triggered reconciliation jobs from the HTTP
// layer to background workers.
package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
)

var (
	ErrQueueFull   = errors.New("reconciliation queue is full")
	ErrQueueClosed = errors.New("reconciliation queue is closed")
)

// Job asks a worker to re-read one provider payment.
type Job struct {
	PaymentID  string    `json:"paymentId"`
	ReceivedAt time.Time `json:"receivedAt"`
}

type Handler func(ctx context.Context, job Job) error

type Queue interface {
	Enqueue(ctx context.Context, job Job) error
	// Consume blocks, feeding jobs to handler until ctx is cancelled or the
	// queue is closed. Handler errors are logged and the job is dropped.
	Consume(ctx context.Context, handler Handler) error
	Close() error
}

type Config struct {
	Provider     string
	BufferSize   int
	Workers      int
	KafkaBrokers []string
	KafkaTopic   string
	KafkaGroupID string
}

func New(cfg Config, logger *slog.Logger) (Queue, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Provider)) {
	case "memory", "":
		return NewMemoryQueue(cfg.BufferSize, cfg.Workers, logger), nil
	case "kafka":
		return NewKafkaQueue(KafkaConfig{
			Brokers: cfg.KafkaBrokers,
			Topic:   cfg.KafkaTopic,
			GroupID: cfg.KafkaGroupID,
		}, logger)
	default:
		return nil, fmt.Errorf("unsupported queue provider: %s", cfg.Provider)
	}
}

func encodeJob(job Job) ([]byte, error) {
	return json.Marshal(job)
}

func decodeJob(raw []byte) (Job, error) {
	var job Job
	if err := json.Unmarshal(raw, &job); err != nil {
		return Job{}, fmt.Errorf("failed to decode job: %w", err)
	}
	if strings.TrimSpace(job.PaymentID) == "" {
		return Job{}, fmt.Errorf("job has no payment id")
	}
	return job, nil
}
