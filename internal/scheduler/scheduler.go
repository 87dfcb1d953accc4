// Package scheduler reruns scrape jobs once a day while the API is serving.
package scheduler

import (
	"context"
	"log/slog"
	"time"
)

// Task is one scheduled job.
type Task func(ctx context.Context) error

// Config holds scheduler configuration
type Config struct {
	Hour       int  // local hour of the daily run, 0-23
	RunOnStart bool // run every task once before the first wait
}

type namedTask struct {
	name string
	run  Task
}

// Scheduler runs its tasks in order at a fixed hour every day.
type Scheduler struct {
	config Config
	tasks  []namedTask
	now    func() time.Time
	logger *slog.Logger
}

// New creates a scheduler
func New(config Config, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{config: config, now: time.Now, logger: logger}
}

// Add registers a task. Tasks run sequentially in the order added.
func (s *Scheduler) Add(name string, task Task) {
	s.tasks = append(s.tasks, namedTask{name: name, run: task})
}

// Start blocks until ctx is cancelled.
func (s *Scheduler) Start(ctx context.Context) {
	s.logger.Info("daily refresh scheduled", "hour", s.config.Hour, "tasks", len(s.tasks))

	if s.config.RunOnStart {
		s.RunOnce(ctx)
	}

	for {
		now := s.now()
		next := NextRun(now, s.config.Hour)
		s.logger.Info("next refresh", "at", next.Format("2006-01-02 15:04:05"), "in", next.Sub(now).Round(time.Second))

		timer := time.NewTimer(next.Sub(now))
		select {
		case <-ctx.Done():
			timer.Stop()
			s.logger.Info("refresh scheduler stopped")
			return
		case <-timer.C:
			s.RunOnce(ctx)
		}
	}
}

// RunOnce runs every task now. A failing task is logged and the rest still run.
func (s *Scheduler) RunOnce(ctx context.Context) {
	for _, t := range s.tasks {
		if ctx.Err() != nil {
			return
		}
		started := s.now()
		if err := t.run(ctx); err != nil {
			s.logger.Error("scheduled task failed", "task", t.name, "error", err)
			continue
		}
		s.logger.Info("scheduled task complete", "task", t.name, "duration", s.now().Sub(started).Round(time.Second))
	}
}

// NextRun returns the next occurrence of hour:00 strictly after now, in now's
// location.
func NextRun(now time.Time, hour int) time.Time {
	next := time.Date(now.Year(), now.Month(), now.Day(), hour, 0, 0, 0, now.Location())
	if !next.After(now) {
		next = next.AddDate(0, 0, 1)
	}
	return next
}
