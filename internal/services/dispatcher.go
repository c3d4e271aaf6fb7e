package services

import (
	"context"
	"fmt"
	"time"

	"freelance-marketplace-backend/internal/logging"
	"freelance-marketplace-backend/internal/metrics"
	"freelance-marketplace-backend/internal/models"
	"freelance-marketplace-backend/internal/realtime"

	"github.com/rs/zerolog"
)

// DispatcherConfig bounds one dispatcher run.
type DispatcherConfig struct {
	BatchSize   int
	MaxAttempts int
	// Retention is how long delivered events are kept before Purge drops them.
	Retention time.Duration
}

// Dispatcher delivers outbox events at least once: it materialises the
// notification or activity each event carries and pushes notifications to
// the realtime publisher.
type Dispatcher struct {
	store     OutboxStore
	publisher realtime.Publisher
	cfg       DispatcherConfig
	backoffs  []time.Duration
	logger    zerolog.Logger
}

func NewDispatcher(store OutboxStore, publisher realtime.Publisher, cfg DispatcherConfig) *Dispatcher {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 50
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 5
	}
	if cfg.Retention <= 0 {
		cfg.Retention = 7 * 24 * time.Hour
	}
	if publisher == nil {
		publisher = realtime.Noop{}
	}
	return &Dispatcher{
		store:     store,
		publisher: publisher,
		cfg:       cfg,
		backoffs:  []time.Duration{100 * time.Millisecond, 200 * time.Millisecond, 400 * time.Millisecond},
		logger:    logging.Component("outbox"),
	}
}

// RunOnce processes one batch and returns how many events were delivered.
func (d *Dispatcher) RunOnce(ctx context.Context) (int, error) {
	events, err := d.store.PendingEvents(ctx, d.cfg.BatchSize, d.cfg.MaxAttempts)
	if err != nil {
		return 0, err
	}

	delivered := 0
	for _, e := range events {
		if ctx.Err() != nil {
			break
		}
		if err := d.deliver(ctx, e); err != nil {
			metrics.OutboxEvents.WithLabelValues(string(e.Kind), "failed").Inc()
			d.logger.Warn().Err(err).
				Str("event_id", e.ID.String()).
				Str("kind", string(e.Kind)).
				Int("attempt", e.Attempts+1).
				Msg("outbox delivery failed")
			if markErr := d.store.MarkEventFailed(ctx, e.ID, err.Error()); markErr != nil {
				d.logger.Error().Err(markErr).Str("event_id", e.ID.String()).Msg("failed to record outbox failure")
			}
			continue
		}
		delivered++
	}

	if pending, err := d.store.CountPendingEvents(ctx, d.cfg.MaxAttempts); err != nil {
		d.logger.Warn().Err(err).Msg("failed to count pending outbox events")
	} else {
		metrics.OutboxPending.Set(float64(pending))
	}
	if len(events) > 0 {
		d.logger.Debug().Int("claimed", len(events)).Int("delivered", delivered).Msg("outbox run finished")
	}
	return delivered, nil
}

func (d *Dispatcher) deliver(ctx context.Context, e models.Event) error {
	if e.Notification == nil && e.Activity == nil {
		if e.LastError != "" {
			return fmt.Errorf("undecodable event: %s", e.LastError)
		}
		return fmt.Errorf("event %s has no payload", e.ID)
	}

	created, err := d.store.MaterializeEvent(ctx, e)
	if err != nil {
		return err
	}

	result := "delivered"
	if !created {
		result = "duplicate"
	}

	// A redelivered notification was already pushed on the first pass.
	if created && e.Notification != nil {
		n := *e.Notification
		if n.CreatedAt.IsZero() {
			n.CreatedAt = e.CreatedAt
		}
		err := retryWithBackoff(ctx, d.backoffs, func() error {
			return realtime.PublishNotification(ctx, d.publisher, &n)
		})
		if err != nil {
			metrics.RealtimePublishFailures.Inc()
			d.logger.Warn().Err(err).Str("user_id", n.UserID.String()).Msg("failed to publish notification")
		}
	}

	if err := d.store.MarkEventDelivered(ctx, e.ID); err != nil {
		return fmt.Errorf("failed to mark delivered: %w", err)
	}
	metrics.OutboxEvents.WithLabelValues(string(e.Kind), result).Inc()
	return nil
}

// Purge drops delivered events past the retention window.
func (d *Dispatcher) Purge(ctx context.Context) (int64, error) {
	n, err := d.store.PurgeDeliveredEvents(ctx, time.Now().Add(-d.cfg.Retention))
	if err != nil {
		return 0, err
	}
	if n > 0 {
		d.logger.Info().Int64("purged", n).Msg("purged delivered outbox events")
	}
	return n, nil
}

// retryWithBackoff calls fn once plus once per backoff until it succeeds.
func retryWithBackoff(ctx context.Context, backoffs []time.Duration, fn func() error) error {
	var lastErr error
	for i := 0; i <= len(backoffs); i++ {
		if lastErr = fn(); lastErr == nil {
			return nil
		}
		if i == len(backoffs) {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoffs[i]):
		}
	}
	return fmt.Errorf("failed after %d attempts: %w", len(backoffs)+1, lastErr)
}
