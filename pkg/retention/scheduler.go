package retention

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// Scheduler runs the purger on a cron schedule (e.g., daily at 3 AM).
// Runs never overlap; a tick that fires while a purge is still running is skipped.
type Scheduler struct {
	purger  *Purger
	cron    *cron.Cron
	mu      sync.Mutex
	logger  *slog.Logger
	running bool

	// stopped is closed by Stop so the goroutine tied to the Start context
	// exits when the scheduler is stopped before that context ends.
	stopped chan struct{}
}

// NewScheduler creates a new retention scheduler.
func NewScheduler(purger *Purger) *Scheduler {
	logger := purger.logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Scheduler{
		purger: purger,
		logger: logger.With("component", "retention.scheduler"),
	}
}

// Start begins scheduled purges based on Config.Schedule.
//
// Common cron expressions:
//   - "0 3 * * *"    - Daily at 3 AM
//   - "0 2 * * 0"    - Weekly on Sunday at 2 AM
//   - "0 4 1 * *"    - Monthly on the 1st at 4 AM
//
// If the schedule is empty the scheduler does nothing.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return fmt.Errorf("retention scheduler already running")
	}

	cfg := s.purger.Config()
	if cfg.Schedule == "" {
		s.logger.Info("truncation schedule not configured, skipping scheduler")
		return nil
	}

	if _, err := cron.ParseStandard(cfg.Schedule); err != nil {
		return fmt.Errorf("invalid cron schedule %q: %w", cfg.Schedule, err)
	}

	// A fresh cron per start so a restarted scheduler carries only the
	// current schedule.
	c := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))
	if _, err := c.AddFunc(cfg.Schedule, func() {
		s.runPurge(ctx)
	}); err != nil {
		return fmt.Errorf("failed to schedule truncation: %w", err)
	}

	c.Start()
	s.cron = c
	s.running = true
	s.stopped = make(chan struct{})

	s.logger.Info("retention scheduler started",
		"schedule", cfg.Schedule,
		"retention_months", cfg.RetentionMonths,
	)

	go func(stopped <-chan struct{}) {
		select {
		case <-ctx.Done():
			s.Stop()
		case <-stopped:
		}
	}(s.stopped)

	return nil
}

// runPurge executes one scheduled purge. Failures are logged; the next
// tick is the retry.
func (s *Scheduler) runPurge(ctx context.Context) {
	report, err := s.purger.Purge(ctx, PurgeOptions{})
	if err != nil {
		s.logger.Error("scheduled truncation failed", "error", err)
		return
	}

	s.logger.Info("scheduled truncation completed",
		"deleted_count", report.TotalDeleted,
	)
}

// Stop stops the scheduler and waits for a running purge to complete.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running && s.cron != nil {
		done := s.cron.Stop()
		<-done.Done()
		close(s.stopped)
		s.running = false
		s.logger.Info("retention scheduler stopped")
	}
}

// NextRun returns the next scheduled purge time, or nil when nothing is scheduled.
func (s *Scheduler) NextRun() *time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cron == nil || !s.running {
		return nil
	}

	entries := s.cron.Entries()
	if len(entries) == 0 {
		return nil
	}

	next := entries[0].Next
	return &next
}
