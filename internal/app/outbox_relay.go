package app

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/Freeeeeet/demo_booking/internal/model"
	"github.com/Freeeeeet/demo_booking/internal/repository"
	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"
)

// MessageWriter is the part of *kafka.Writer the relay needs.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type OutboxRelayConfig struct {
	PollEvery time.Duration
	BatchSize int
}

// OutboxRelay публикует события из outbox в Kafka
type OutboxRelay struct {
	tx        repository.TxManager
	writer    MessageWriter
	logger    *zap.Logger
	pollEvery time.Duration
	batchSize int

	stopChan chan struct{}
	stopOnce sync.Once
	done     chan struct{}
}

// NewKafkaWriter builds a writer that routes every message by its own Topic
// and keeps one aggregate on one partition.
func NewKafkaWriter(brokers []string) *kafka.Writer {
	return &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireAll,
		AllowAutoTopicCreation: true,
	}
}

func NewOutboxRelay(tx repository.TxManager, writer MessageWriter, logger *zap.Logger, cfg OutboxRelayConfig) *OutboxRelay {
	if cfg.PollEvery <= 0 {
		cfg.PollEvery = 2 * time.Second
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 50
	}
	return &OutboxRelay{
		tx:        tx,
		writer:    writer,
		logger:    logger,
		pollEvery: cfg.PollEvery,
		batchSize: cfg.BatchSize,
		stopChan:  make(chan struct{}),
		done:      make(chan struct{}),
	}
}

// Start запускает фоновую публикацию
func (r *OutboxRelay) Start(ctx context.Context) {
	r.logger.Info("Starting outbox relay", zap.Duration("poll_every", r.pollEvery))
	go r.run(ctx)
}

// Stop останавливает публикацию и ждёт завершения текущего батча
func (r *OutboxRelay) Stop() {
	r.stopOnce.Do(func() {
		r.logger.Info("Stopping outbox relay")
		close(r.stopChan)
	})
	<-r.done
	if err := r.writer.Close(); err != nil {
		r.logger.Warn("Failed to close kafka writer", zap.Error(err))
	}
}

func (r *OutboxRelay) run(ctx context.Context) {
	defer close(r.done)

	ticker := time.NewTicker(r.pollEvery)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			// Выгружаем батчи, пока outbox не опустеет
			for {
				n, err := r.PublishBatch(ctx)
				if err != nil {
					r.logger.Error("Outbox publish failed", zap.Error(err))
					break
				}
				if n < r.batchSize {
					break
				}
			}
		case <-r.stopChan:
			r.logger.Info("Outbox relay stopped")
			return
		case <-ctx.Done():
			r.logger.Info("Outbox relay cancelled")
			return
		}
	}
}

// PublishBatch sends up to one batch of unpublished events and marks them
// published in the same transaction that selected them. A failed write
// rolls back, so every event is delivered at least once.
func (r *OutboxRelay) PublishBatch(ctx context.Context) (int, error) {
	var published int
	err := r.tx.WithTx(ctx, func(ctx context.Context, repos repository.Repositories) error {
		events, err := repos.Outbox.FetchUnpublished(ctx, r.batchSize)
		if err != nil {
			return err
		}
		if len(events) == 0 {
			return nil
		}

		msgs := make([]kafka.Message, 0, len(events))
		ids := make([]int64, 0, len(events))
		for _, e := range events {
			msgs = append(msgs, toKafkaMessage(ctx, e))
			ids = append(ids, e.ID)
		}
		if err := r.writer.WriteMessages(ctx, msgs...); err != nil {
			return fmt.Errorf("write %d messages: %w", len(msgs), err)
		}
		if err := repos.Outbox.MarkPublished(ctx, ids); err != nil {
			return err
		}
		published = len(events)
		return nil
	})
	if err != nil {
		return 0, err
	}
	if published > 0 {
		r.logger.Info("Outbox events published", zap.Int("count", published))
	}
	return published, nil
}

func toKafkaMessage(ctx context.Context, e *model.OutboxEvent) kafka.Message {
	headers := &headerCarrier{headers: []kafka.Header{
		{Key: "event_id", Value: []byte(e.EventID.String())},
		{Key: "event_type", Value: []byte(e.EventType)},
		{Key: "aggregate_type", Value: []byte(e.AggregateType)},
	}}
	otel.GetTextMapPropagator().Inject(ctx, headers)

	return kafka.Message{
		Topic:   e.EventType,
		Key:     []byte(e.AggregateID.String()),
		Value:   e.Payload,
		Headers: headers.headers,
		Time:    e.CreatedAt,
	}
}

// headerCarrier adapts kafka headers to propagation.TextMapCarrier.
type headerCarrier struct {
	headers []kafka.Header
}

func (c *headerCarrier) Get(key string) string {
	for _, h := range c.headers {
		if h.Key == key {
			return string(h.Value)
		}
	}
	return ""
}

func (c *headerCarrier) Set(key, value string) {
	for i := range c.headers {
		if c.headers[i].Key == key {
			c.headers[i].Value = []byte(value)
			return
		}
	}
	c.headers = append(c.headers, kafka.Header{Key: key, Value: []byte(value)})
}

func (c *headerCarrier) Keys() []string {
	keys := make([]string, 0, len(c.headers))
	for _, h := range c.headers {
		keys = append(keys, h.Key)
	}
	return keys
}
