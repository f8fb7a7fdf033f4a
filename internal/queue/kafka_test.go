package queue

import (
	"context"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewKafkaQueueValidatesConfig(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		cfg  KafkaConfig
	}{
		{name: "no brokers", cfg: KafkaConfig{Topic: "payments", GroupID: "reconcile"}},
		{name: "no topic", cfg: KafkaConfig{Brokers: []string{"127.0.0.1:9092"}, GroupID: "reconcile"}},
		{name: "no group", cfg: KafkaConfig{Brokers: []string{"127.0.0.1:9092"}, Topic: "payments"}},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := NewKafkaQueue(tt.cfg, nil)
			assert.Error(t, err)
		})
	}
}

func TestNewKafkaQueueBoundsPublish(t *testing.T) {
	t.Parallel()

	q, err := NewKafkaQueue(KafkaConfig{
		Brokers: []string{"127.0.0.1:1"},
		Topic:   "payments",
		GroupID: "reconcile",
	}, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = q.Close() })

	assert.Equal(t, defaultWriteTimeout, q.writer.WriteTimeout)
	assert.Equal(t, defaultMaxAttempts, q.writer.MaxAttempts)
	assert.IsType(t, &kafka.Hash{}, q.writer.Balancer)

	custom, err := NewKafkaQueue(KafkaConfig{
		Brokers:      []string{"127.0.0.1:1"},
		Topic:        "payments",
		GroupID:      "reconcile",
		WriteTimeout: 500 * time.Millisecond,
		MaxAttempts:  1,
	}, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = custom.Close() })

	assert.Equal(t, 500*time.Millisecond, custom.writer.WriteTimeout)
	assert.Equal(t, 1, custom.writer.MaxAttempts)
}

func TestKafkaEnqueueUnreachableBrokerReturnsWithinDeadline(t *testing.T) {
	t.Parallel()

	q, err := NewKafkaQueue(KafkaConfig{
		Brokers:      []string{"127.0.0.1:1"},
		Topic:        "payments",
		GroupID:      "reconcile",
		WriteTimeout: 200 * time.Millisecond,
		MaxAttempts:  1,
	}, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = q.Close() })

	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()

	start := time.Now()
	err = q.Enqueue(ctx, Job{PaymentID: "tr_abc", ReceivedAt: time.Now()})
	assert.Error(t, err)
	assert.Less(t, time.Since(start), 3*time.Second)
}
