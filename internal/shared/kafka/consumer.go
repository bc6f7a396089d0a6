package kafka

import (
	"context"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// MessageReader is the part of *kafka.Reader consumers depend on.
type MessageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
}

// Consumer runs Handle for every message and commits it afterwards, whether
// Handle failed or not. Use it for streams where a lost message is tolerable
// and a poison message must never stall the partition.
type Consumer struct {
	Log    *zap.Logger
	Reader MessageReader
	Handle func(ctx context.Context, m kafka.Message) error

	OnConsumed func()
	OnError    func(stage string)
}

func (c *Consumer) Run(ctx context.Context) error {
	for {
		m, err := c.Reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			c.Log.Warn("kafka fetch failed", zap.Error(err))
			c.error("fetch")
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(500 * time.Millisecond):
			}
			continue
		}
		if c.OnConsumed != nil {
			c.OnConsumed()
		}

		if err := c.Handle(ctx, m); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			c.Log.Warn("message handling failed",
				zap.Int("partition", m.Partition),
				zap.Int64("offset", m.Offset),
				zap.Error(err))
			c.error("handle")
		}

		if err := c.Reader.CommitMessages(ctx, m); err != nil && ctx.Err() == nil {
			c.Log.Warn("kafka commit failed", zap.Int64("offset", m.Offset), zap.Error(err))
			c.error("commit")
		}
	}
}

func (c *Consumer) error(stage string) {
	if c.OnError != nil {
		c.OnError(stage)
	}
}
