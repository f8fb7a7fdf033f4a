package queue

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/User-Emin/kattenbak-sub003/internal/logging"
)

const (
	defaultWriteTimeout = 2 * time.Second
	defaultMaxAttempts  = 3
)

type KafkaConfig struct {
	Brokers []string
	Topic   string
	GroupID string
	// WriteTimeout and MaxAttempts bound a single publish. Zero uses the
	// package defaults.
	WriteTimeout time.Duration
	MaxAttempts  int
}

// KafkaQueue publishes jobs keyed by payment id so redeliveries for one
// payment land on the same partition and are handled in order.
type KafkaQueue struct {
	writer *kafka.Writer
	reader *kafka.Reader
	logger *slog.Logger
}

func NewKafkaQueue(cfg KafkaConfig, logger *slog.Logger) (*KafkaQueue, error) {
	if len(cfg.Brokers) == 0 {
		return nil, fmt.Errorf("kafka brokers are required")
	}
	if cfg.Topic == "" {
		return nil, fmt.Errorf("kafka topic is required")
	}
	if cfg.GroupID == "" {
		return nil, fmt.Errorf("kafka group id is required")
	}
	if logger == nil {
		logger = logging.Discard()
	}
	writeTimeout := cfg.WriteTimeout
	if writeTimeout <= 0 {
		writeTimeout = defaultWriteTimeout
	}
	maxAttempts := cfg.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = defaultMaxAttempts
	}

	return &KafkaQueue{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(cfg.Brokers...),
			Topic:        cfg.Topic,
			Balancer:     &kafka.Hash{},
			BatchTimeout: 10 * time.Millisecond,
			WriteTimeout: writeTimeout,
			MaxAttempts:  maxAttempts,
			RequiredAcks: kafka.RequireOne,
		},
		reader: kafka.NewReader(kafka.ReaderConfig{
			Brokers: cfg.Brokers,
			GroupID: cfg.GroupID,
			Topic:   cfg.Topic,
			MaxWait: time.Second,
		}),
		logger: logger,
	}, nil
}

func (q *KafkaQueue) Enqueue(ctx context.Context, job Job) error {
	value, err := encodeJob(job)
	if err != nil {
		return fmt.Errorf("failed to encode job: %w", err)
	}
	if err := q.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(job.PaymentID),
		Value: value,
		Time:  job.ReceivedAt,
	}); err != nil {
		return fmt.Errorf("failed to publish job: %w", err)
	}
	return nil
}

// Consume handles messages one at a time and commits each after handling,
// whether or not the handler succeeded.
func (q *KafkaQueue) Consume(ctx context.Context, handler Handler) error {
	for {
		m, err := q.reader.FetchMessage(ctx)
		if err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, context.Canceled) || ctx.Err() != nil {
				return nil
			}
			q.logger.Error("failed to fetch message", "error", err)
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(time.Second):
			}
			continue
		}

		job, err := decodeJob(m.Value)
		if err != nil {
			q.logger.Warn("dropping malformed job", "offset", m.Offset, "partition", m.Partition, "error", err)
		} else if err := handler(ctx, job); err != nil {
			q.logger.Error("reconciliation job failed", "payment_id", job.PaymentID, "error", err)
		}

		if err := q.reader.CommitMessages(ctx, m); err != nil {
			q.logger.Error("failed to commit message", "error", err)
		}
	}
}

func (q *KafkaQueue) Close() error {
	return errors.Join(q.reader.Close(), q.writer.Close())
}
