package events

import (
	"context"
	"time"

	"github.com/senyabanana/freelance-service/internal/metrics"
	"github.com/senyabanana/freelance-service/internal/models"
	"github.com/senyabanana/freelance-service/internal/repository"

	"go.uber.org/zap"
)

const (
	defaultBatchSize = 50
	defaultLease     = 2 * time.Minute
)

// Dispatcher забирает события из outbox и публикует их.
type Dispatcher struct {
	Outbox       repository.OutboxRepository
	Publisher    Publisher
	Exchange     string
	PollInterval time.Duration
	BatchSize    int
	Lease        time.Duration
	Logger       *zap.Logger
	Metrics      *metrics.Metrics
	now          func() time.Time
}

func NewDispatcher(outbox repository.OutboxRepository, publisher Publisher, exchange string, pollInterval time.Duration, logger *zap.Logger, m *metrics.Metrics) *Dispatcher {
	return &Dispatcher{
		Outbox:       outbox,
		Publisher:    publisher,
		Exchange:     exchange,
		PollInterval: pollInterval,
		BatchSize:    defaultBatchSize,
		Lease:        defaultLease,
		Logger:       logger,
		Metrics:      m,
		now:          time.Now,
	}
}

// Run опрашивает outbox до отмены контекста.
func (d *Dispatcher) Run(ctx context.Context) {
	ticker := time.NewTicker(d.PollInterval)
	defer ticker.Stop()
	defer d.Publisher.Close()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := d.FlushOnce(ctx); err != nil {
				d.Logger.Error("outbox flush failed", zap.Error(err))
			}
		}
	}
}

// FlushOnce публикует одну пачку событий и возвращает число доставленных.
func (d *Dispatcher) FlushOnce(ctx context.Context) (int, error) {
	events, err := d.Outbox.ClaimEvents(ctx, d.BatchSize, d.now().UTC(), d.Lease)
	if err != nil {
		return 0, err
	}

	published := 0
	for _, event := range events {
		if err := d.Publisher.Publish(ctx, d.Exchange, event.RoutingKey, event.Payload); err != nil {
			d.Metrics.OutboxFailed.Inc()
			d.markFailed(ctx, event, err)
			continue
		}
		if err := d.Outbox.MarkEventPublished(ctx, event.ID, d.now().UTC()); err != nil {
			d.Logger.Error("failed to mark outbox event published", zap.Stringer("event_id", event.ID), zap.Error(err))
			continue
		}
		d.Metrics.OutboxPublished.Inc()
		published++
	}
	return published, nil
}

func (d *Dispatcher) markFailed(ctx context.Context, event models.OutboxEvent, cause error) {
	retryAt := d.now().UTC().Add(RetryDelay(event.Attempts + 1))
	d.Logger.Warn("outbox publish failed",
		zap.Stringer("event_id", event.ID),
		zap.String("routing_key", event.RoutingKey),
		zap.Int("attempt", event.Attempts+1),
		zap.Time("retry_at", retryAt),
		zap.Error(cause))
	if err := d.Outbox.MarkEventFailed(ctx, event.ID, retryAt, cause.Error()); err != nil {
		d.Logger.Error("failed to mark outbox event failed", zap.Stringer("event_id", event.ID), zap.Error(err))
	}
}

// RetryDelay - экспоненциальная задержка повторной отправки, не больше 5 минут.
func RetryDelay(attempt int) time.Duration {
	if attempt < 1 {
		return time.Second
	}
	delay := time.Duration(1<<min(attempt, 8)) * time.Second
	if delay > 300*time.Second {
		return 300 * time.Second
	}
	return delay
}
