// Package jobs runs the background work of the server on a gocron scheduler.
package jobs

import (
	"context"
	"fmt"
	"time"

	"freelance-marketplace-backend/internal/logging"

	"github.com/go-co-op/gocron/v2"
	"github.com/rs/zerolog"
)

// OutboxRunner is satisfied by *services.Dispatcher.
type OutboxRunner interface {
	RunOnce(ctx context.Context) (int, error)
	Purge(ctx context.Context) (int64, error)
}

type Scheduler struct {
	scheduler gocron.Scheduler
	ctx       context.Context
	cancel    context.CancelFunc
	logger    zerolog.Logger
}

func NewScheduler() (*Scheduler, error) {
	s, err := gocron.NewScheduler(gocron.WithLocation(time.UTC))
	if err != nil {
		return nil, fmt.Errorf("failed to create scheduler: %w", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		scheduler: s,
		ctx:       ctx,
		cancel:    cancel,
		logger:    logging.Component("jobs"),
	}, nil
}

// Every registers fn to run at the given interval. Runs never overlap; a
// run that is still busy when the next one is due pushes it back.
func (s *Scheduler) Every(name string, interval time.Duration, fn func(ctx context.Context) error) error {
	_, err := s.scheduler.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(func() {
			if err := fn(s.ctx); err != nil && s.ctx.Err() == nil {
				s.logger.Error().Err(err).Str("job", name).Msg("job failed")
			}
		}),
		gocron.WithName(name),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		return fmt.Errorf("failed to schedule %s: %w", name, err)
	}
	return nil
}

// RegisterOutbox schedules the dispatcher and the daily purge of delivered
// events.
func (s *Scheduler) RegisterOutbox(runner OutboxRunner, interval time.Duration) error {
	if err := s.Every("outbox_dispatch", interval, func(ctx context.Context) error {
		_, err := runner.RunOnce(ctx)
		return err
	}); err != nil {
		return err
	}
	return s.Every("outbox_purge", 24*time.Hour, func(ctx context.Context) error {
		_, err := runner.Purge(ctx)
		return err
	})
}

func (s *Scheduler) Start() {
	s.scheduler.Start()
	s.logger.Info().Int("jobs", len(s.scheduler.Jobs())).Msg("scheduler started")
}

// Shutdown cancels running jobs and waits for them to return.
func (s *Scheduler) Shutdown() error {
	s.cancel()
	return s.scheduler.Shutdown()
}
