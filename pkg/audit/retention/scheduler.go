package retention

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// Scheduler runs a Pruner on the cron schedule from its config.
type Scheduler struct {
	pruner *Pruner

	mu      sync.Mutex
	cron    *cron.Cron
	entryID cron.EntryID
	running bool
}

// NewScheduler creates a stopped scheduler.
func NewScheduler(pruner *Pruner) *Scheduler {
	return &Scheduler{pruner: pruner}
}

// Start parses PruneSchedule and begins scheduled pruning. An empty
// schedule leaves the scheduler stopped without error. Scheduled runs use
// ctx and stop when it is cancelled.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return nil
	}
	spec := s.pruner.config.PruneSchedule
	if spec == "" {
		s.pruner.logger.Info("audit pruning schedule not configured")
		return nil
	}

	schedule, err := cron.ParseStandard(spec)
	if err != nil {
		return fmt.Errorf("invalid prune schedule %q: %w", spec, err)
	}

	c := cron.New()
	s.entryID = c.Schedule(schedule, cron.FuncJob(func() {
		if ctx.Err() != nil {
			return
		}
		if _, err := s.pruner.Prune(ctx); err != nil {
			s.pruner.logger.Error("scheduled prune failed", "error", err)
		}
	}))
	c.Start()

	s.cron = c
	s.running = true
	s.pruner.logger.Info("audit pruning scheduled",
		"schedule", spec,
		"next_run", schedule.Next(time.Now()),
	)
	return nil
}

// Stop halts scheduling and waits for a running prune to finish.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return
	}
	<-s.cron.Stop().Done()
	s.running = false
	s.pruner.logger.Info("audit pruning stopped")
}

// IsRunning reports whether the scheduler is active.
func (s *Scheduler) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// NextRun returns the next scheduled prune, or nil when stopped.
func (s *Scheduler) NextRun() *time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return nil
	}
	next := s.cron.Entry(s.entryID).Next
	if next.IsZero() {
		// The cron loop fills Next asynchronously after Start.
		next = s.cron.Entry(s.entryID).Schedule.Next(time.Now())
	}
	return &next
}
