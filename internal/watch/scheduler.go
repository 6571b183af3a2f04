package watch

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-co-op/gocron/v2"

	"git.home.luguber.info/inful/assetbuilder/internal/logfields"
)

// Scheduler wraps gocron for periodic full rebuilds, independent of
// filesystem events.
type Scheduler struct {
	scheduler gocron.Scheduler
	interval  time.Duration
	rebuild   func(ctx context.Context) error
}

// NewScheduler creates a scheduler invoking rebuild every interval.
func NewScheduler(interval time.Duration, rebuild func(ctx context.Context) error) (*Scheduler, error) {
	s, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("failed to create scheduler: %w", err)
	}
	return &Scheduler{scheduler: s, interval: interval, rebuild: rebuild}, nil
}

// Start schedules the periodic job and begins execution. Scheduled rebuilds
// run under ctx so process shutdown interrupts an in-flight run.
func (s *Scheduler) Start(ctx context.Context) error {
	_, err := s.scheduler.NewJob(
		gocron.DurationJob(s.interval),
		gocron.NewTask(func() {
			slog.Info("Running scheduled rebuild")
			if err := s.rebuild(ctx); err != nil {
				slog.Error("Scheduled rebuild failed", logfields.Error(err))
			}
		}),
		gocron.WithName("periodic-rebuild"),
	)
	if err != nil {
		return fmt.Errorf("failed to schedule periodic rebuild: %w", err)
	}
	slog.Info("Starting rebuild scheduler")
	s.scheduler.Start()
	return nil
}

// Stop gracefully shuts down the scheduler.
func (s *Scheduler) Stop() error {
	slog.Info("Stopping rebuild scheduler")
	return s.scheduler.Shutdown()
}
