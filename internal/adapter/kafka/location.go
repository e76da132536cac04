package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/Temutjin2k/ride-dispatch/internal/domain/models"
	"github.com/Temutjin2k/ride-dispatch/internal/domain/types"
	"github.com/Temutjin2k/ride-dispatch/pkg/logger"
	wrap "github.com/Temutjin2k/ride-dispatch/pkg/logger/wrapper"
	"github.com/Temutjin2k/ride-dispatch/pkg/metrics"
)

const maxBackoff = 30 * time.Second

// Reader is the part of *kafka.Reader the consumer uses.
type Reader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type LocationHandler func(ctx context.Context, msg models.LocationMessage) error

// LocationConsumer reads the driver location stream. Positions are live data:
// a message that cannot be applied is logged and committed, never retried.
type LocationConsumer struct {
	reader Reader
	topic  string
	l      logger.Logger
}

type ReaderConfig struct {
	Brokers []string
	Topic   string
	GroupID string
}

func NewReader(cfg ReaderConfig) *kafka.Reader {
	return kafka.NewReader(kafka.ReaderConfig{
		Brokers:  cfg.Brokers,
		Topic:    cfg.Topic,
		GroupID:  cfg.GroupID,
		MinBytes: 1,
		MaxBytes: 10e6,
		MaxWait:  500 * time.Millisecond,
	})
}

func NewLocationConsumer(reader Reader, topic string, l logger.Logger) *LocationConsumer {
	return &LocationConsumer{reader: reader, topic: topic, l: l}
}

// Run blocks until ctx is done.
func (c *LocationConsumer) Run(ctx context.Context, handler LocationHandler) error {
	ctx = wrap.WithAction(ctx, types.ActionConsumeLocation)
	c.l.Info(ctx, "start consuming driver locations", "topic", c.topic)

	backoff := time.Second
	for {
		m, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				c.l.Info(ctx, "location consumer shutting down")
				return nil
			}
			c.l.Error(ctx, "kafka read failed", err, "retry_in", backoff.String())
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(backoff):
			}
			backoff = min(backoff*2, maxBackoff)
			continue
		}
		backoff = time.Second

		err = c.handle(ctx, m, handler)
		metrics.RecordKafkaConsume(c.topic, err)
		if err != nil {
			c.l.Warn(ctx, "location update dropped", "offset", m.Offset, "partition", m.Partition, "reason", err.Error())
		}

		if err := c.reader.CommitMessages(ctx, m); err != nil && ctx.Err() == nil {
			c.l.Error(ctx, "failed to commit offset", err, "offset", m.Offset)
		}
	}
}

func (c *LocationConsumer) handle(ctx context.Context, m kafka.Message, handler LocationHandler) error {
	var msg models.LocationMessage
	if err := json.Unmarshal(m.Value, &msg); err != nil {
		return fmt.Errorf("invalid message: %w", err)
	}
	return handler(wrap.WithDriverID(ctx, msg.DriverID.String()), msg)
}

func (c *LocationConsumer) Close() error {
	return c.reader.Close()
}
