package events

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type messageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher writes price changes to a topic, keyed by product id so the
// changes of one product stay ordered.
type KafkaPublisher struct {
	writer messageWriter
}

func NewKafkaPublisher(topic string, brokers ...string) *KafkaPublisher {
	w := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		AllowAutoTopicCreation: true,
	}
	return &KafkaPublisher{writer: w}
}

func (p *KafkaPublisher) PublishPriceChanged(ctx context.Context, event PriceChanged) error {
	payload, err := encodePriceChanged(event)
	if err != nil {
		return err
	}

	msg := kafka.Message{
		Key:   []byte(strconv.FormatInt(event.ProductID, 10)),
		Value: payload,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(EventTypePriceChanged)},
		},
	}
	return p.writer.WriteMessages(ctx, msg)
}

func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

// PriceChangeConsumer reads price changes and reconciles the affected carts.
// A failed reconciliation is retried with backoff before the next message is
// fetched, and the offset is committed only once it succeeds. A shutdown
// mid-retry leaves the offset uncommitted, so the event is replayed on
// restart; reconciliation is idempotent.
type PriceChangeConsumer struct {
	reader  messageReader
	handler PriceChangeHandler
	logger  *zap.Logger
	backOff func() backoff.BackOff
}

func NewPriceChangeConsumer(handler PriceChangeHandler, logger *zap.Logger, topic, groupID string, brokers ...string) *PriceChangeConsumer {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  brokers,
		Topic:    topic,
		GroupID:  groupID,
		MaxBytes: 10e6, // 10MB
	})
	return &PriceChangeConsumer{reader: reader, handler: handler, logger: logger, backOff: retryBackOff}
}

// retryBackOff retries until the consumer is stopped
func retryBackOff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 200 * time.Millisecond
	b.MaxInterval = 30 * time.Second
	b.MaxElapsedTime = 0
	return b
}

// Run consumes until ctx is cancelled
func (c *PriceChangeConsumer) Run(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}
		c.processMessage(ctx)
	}
}

func (c *PriceChangeConsumer) Close() error {
	return c.reader.Close()
}

func (c *PriceChangeConsumer) processMessage(ctx context.Context) {
	m, err := c.reader.FetchMessage(ctx)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return
		}
		c.logger.Error("error reading price change", zap.Error(err))
		return
	}

	newBackOff := c.backOff
	if newBackOff == nil {
		newBackOff = retryBackOff
	}

	attempt := 0
	err = backoff.RetryNotify(
		func() error { return c.handleMessage(ctx, m) },
		backoff.WithContext(newBackOff(), ctx),
		func(err error, wait time.Duration) {
			attempt++
			c.logger.Error("failed to reconcile price change, retrying",
				zap.Int64("offset", m.Offset),
				zap.ByteString("key", m.Key),
				zap.Int("attempt", attempt),
				zap.Duration("wait", wait),
				zap.Error(err),
			)
		},
	)
	if err != nil {
		c.logger.Warn("price change left uncommitted", zap.Int64("offset", m.Offset), zap.Error(err))
		return
	}

	if err := c.reader.CommitMessages(ctx, m); err != nil {
		c.logger.Warn("failed to commit price change offset", zap.Int64("offset", m.Offset), zap.Error(err))
	}
}

func (c *PriceChangeConsumer) handleMessage(ctx context.Context, m kafka.Message) error {
	event, err := decodePriceChanged(m.Value)
	if err != nil {
		// Poison messages are logged and skipped.
		c.logger.Warn("dropping malformed price change", zap.Int64("offset", m.Offset), zap.Error(err))
		return nil
	}

	reconciled, err := c.handler.ReconcileProduct(ctx, event.ProductID)
	if err != nil {
		return err
	}

	c.logger.Info("carts reconciled",
		zap.String("event_id", event.EventID),
		zap.Int64("product_id", event.ProductID),
		zap.Int("carts", reconciled),
	)
	return nil
}
