package usecase

import (
	"context"
	"time"

	"go.uber.org/zap"
)

type CycleRunner interface {
	RunCycle(ctx context.Context) CycleReport
}

// Scheduler runs cycles back to back with a fixed pause after each one. A
// cycle is never started while the previous one is still running.
type Scheduler struct {
	runner CycleRunner
	delay  time.Duration
	logger *zap.Logger
	after  func(time.Duration) <-chan time.Time
}

func NewScheduler(runner CycleRunner, delay time.Duration, logger *zap.Logger) *Scheduler {
	return &Scheduler{
		runner: runner,
		delay:  delay,
		logger: logger,
		after:  time.After,
	}
}

// Run blocks until ctx is cancelled. Cancellation also reaches the calls of
// the cycle in flight, which then ends early.
func (s *Scheduler) Run(ctx context.Context) error {
	s.logger.Info("Scheduler started", zap.Duration("cycle_delay", s.delay))
	for {
		if ctx.Err() != nil {
			s.logger.Info("Scheduler stopped")
			return nil
		}

		s.runner.RunCycle(ctx)

		select {
		case <-ctx.Done():
			s.logger.Info("Scheduler stopped")
			return nil
		case <-s.after(s.delay):
		}
	}
}
