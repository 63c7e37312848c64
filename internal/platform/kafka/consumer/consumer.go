// Package consumer runs a Kafka consumer group and hands each record to a
// Handler.
package consumer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/twmb/franz-go/pkg/kgo"
)

// Message is the transport-neutral view of a consumed record.
type Message struct {
	Topic     string
	Partition int32
	Offset    int64
	Key       []byte
	Value     []byte
}

type Handler interface {
	Handle(ctx context.Context, msg *Message) error
}

type Config struct {
	Brokers []string
	GroupID string
	Topics  []string
}

const (
	maxAttempts  = 3
	retryBackoff = 200 * time.Millisecond
)

type Consumer struct {
	client  *kgo.Client
	handler Handler
	logger  *slog.Logger
}

func New(cfg Config, handler Handler, logger *slog.Logger) (*Consumer, error) {
	client, err := kgo.NewClient(
		kgo.SeedBrokers(cfg.Brokers...),
		kgo.ConsumerGroup(cfg.GroupID),
		kgo.ConsumeTopics(cfg.Topics...),
		kgo.DisableAutoCommit(),
		kgo.ConsumeResetOffset(kgo.NewOffset().AtStart()),
	)
	if err != nil {
		return nil, fmt.Errorf("create kafka consumer: %w", err)
	}
	return &Consumer{client: client, handler: handler, logger: logger}, nil
}

// Run polls until ctx is cancelled. Each record is retried a few times; a
// record that still fails is logged and committed so one poison message
// cannot stall its partition. Handlers must therefore be idempotent.
func (c *Consumer) Run(ctx context.Context) error {
	defer c.client.Close()

	for {
		fetches := c.client.PollFetches(ctx)
		if fetches.IsClientClosed() || ctx.Err() != nil {
			return nil
		}
		for _, fe := range fetches.Errors() {
			if errors.Is(fe.Err, context.Canceled) {
				return nil
			}
			c.logger.ErrorContext(ctx, "kafka fetch error",
				"topic", fe.Topic,
				"partition", fe.Partition,
				"error", fe.Err,
			)
		}

		var records []*kgo.Record
		fetches.EachRecord(func(rec *kgo.Record) {
			c.handle(ctx, rec)
			records = append(records, rec)
		})

		if len(records) > 0 {
			if err := c.client.CommitRecords(ctx, records...); err != nil {
				c.logger.WarnContext(ctx, "failed to commit offsets", "error", err)
			}
		}
	}
}

func (c *Consumer) handle(ctx context.Context, rec *kgo.Record) {
	msg := &Message{
		Topic:     rec.Topic,
		Partition: rec.Partition,
		Offset:    rec.Offset,
		Key:       rec.Key,
		Value:     rec.Value,
	}
	var err error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if err = c.handler.Handle(ctx, msg); err == nil {
			return
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(time.Duration(attempt) * retryBackoff):
		}
	}
	c.logger.ErrorContext(ctx, "dropping kafka message after retries",
		"topic", rec.Topic,
		"partition", rec.Partition,
		"offset", rec.Offset,
		"error", err,
	)
}
