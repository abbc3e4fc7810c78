// Package daemon runs the periodic full-index-rebuild safety net described
// in SPEC_FULL.md D.2: a low-frequency background resync supplementing the
// request-triggered rebuild/upsert paths the core spec defines. Grounded on
// inful-docbuilder/internal/daemon/scheduler.go's Start(ctx)/Stop(ctx)
// lifecycle and slog logging conventions, wired to the real
// github.com/go-co-op/gocron/v2 scheduler the teacher's go.mod names for this
// purpose (the teacher's own scheduler.go predates adopting that dependency
// and ticks by hand; this package uses the library directly instead).
package daemon

import (
	"context"
	"log/slog"
	"time"

	"github.com/go-co-op/gocron/v2"
)

// Scheduler periodically invokes rebuild on its own goroutine. A zero
// interval disables scheduling entirely: Start becomes a no-op.
type Scheduler struct {
	rebuild  func()
	interval time.Duration
	logger   *slog.Logger

	gocron gocron.Scheduler
}

// NewScheduler returns a Scheduler that calls rebuild every interval once
// started. interval <= 0 disables the safety net.
func NewScheduler(rebuild func(), interval time.Duration) *Scheduler {
	return &Scheduler{rebuild: rebuild, interval: interval, logger: slog.Default()}
}

// Start schedules the periodic rebuild job. It is a no-op if the configured
// interval is zero or negative.
func (s *Scheduler) Start(ctx context.Context) error {
	if s.interval <= 0 {
		s.logger.Debug("periodic rebuild disabled", "interval", s.interval)
		return nil
	}

	sched, err := gocron.NewScheduler()
	if err != nil {
		return err
	}
	if _, err := sched.NewJob(
		gocron.DurationJob(s.interval),
		gocron.NewTask(s.runRebuild),
	); err != nil {
		return err
	}
	s.gocron = sched
	sched.Start()
	s.logger.Info("periodic rebuild started", "interval", s.interval)
	return nil
}

func (s *Scheduler) runRebuild() {
	s.logger.Debug("periodic rebuild firing")
	s.rebuild()
}

// Stop shuts the scheduler down, waiting for any in-flight job to finish.
func (s *Scheduler) Stop() {
	if s.gocron == nil {
		return
	}
	if err := s.gocron.Shutdown(); err != nil {
		s.logger.Warn("scheduler shutdown error", "err", err)
	}
}
