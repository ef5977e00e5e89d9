package scheduler

import (
	"context"
	"fmt"
	"log"

	"AmazonTracker/internal/runner"

	"github.com/robfig/cron/v3"
)

// Scheduler drives periodic check passes in watch mode.
type Scheduler struct {
	Cron   *cron.Cron
	Runner *runner.Runner
	Ctx    context.Context
}

// New creates a Scheduler.
func New(ctx context.Context, r *runner.Runner) *Scheduler {
	return &Scheduler{
		Cron:   cron.New(cron.WithSeconds()),
		Runner: r,
		Ctx:    ctx,
	}
}

// Register adds the check pass on the given cron expression.
func (s *Scheduler) Register(checkCron string) error {
	if _, err := s.Cron.AddFunc(checkCron, s.runCheck); err != nil {
		return fmt.Errorf("register check task: %w", err)
	}
	return nil
}

// Start starts the cron scheduler.
func (s *Scheduler) Start() {
	s.Cron.Start()
	log.Println("[INFO] scheduler started")
}

// Stop stops the cron scheduler gracefully.
func (s *Scheduler) Stop() {
	s.Cron.Stop()
	log.Println("[INFO] scheduler stopped")
}

// RunNow executes the check pass immediately (manual trigger / RUN_ON_START).
func (s *Scheduler) RunNow() {
	s.runCheck()
}

func (s *Scheduler) runCheck() {
	log.Println("[INFO] running scheduled check")
	if err := s.Runner.Check(s.Ctx); err != nil {
		log.Printf("[ERROR] scheduled check: %v", err)
	}
}
