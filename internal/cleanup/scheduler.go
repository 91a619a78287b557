// Package cleanup runs the periodic sweep that removes expired single-use
// tokens from the ledger.
package cleanup

import (
	"context"
	"log/slog"
	"time"
)

// Sweeper is the ledger operation invoked on each tick.
type Sweeper interface {
	DeleteExpired(ctx context.Context) (int64, error)
}

// Scheduler triggers the sweep on a fixed interval. A failed sweep is logged
// and retried naturally on the next tick.
type Scheduler struct {
	sweeper  Sweeper
	interval time.Duration
	logger   *slog.Logger
}

// NewScheduler constructs a scheduler.
func NewScheduler(sweeper Sweeper, interval time.Duration, logger *slog.Logger) *Scheduler {
	return &Scheduler{
		sweeper:  sweeper,
		interval: interval,
		logger:   logger,
	}
}

// Run blocks until ctx is cancelled, sweeping once per interval.
func (s *Scheduler) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.sweep(ctx)
		}
	}
}

func (s *Scheduler) sweep(ctx context.Context) {
	s.logger.InfoContext(ctx, "starting cleanup of expired tokens")
	count, err := s.sweeper.DeleteExpired(ctx)
	if err != nil {
		s.logger.ErrorContext(ctx, "token cleanup failed", "error", err)
		return
	}
	s.logger.InfoContext(ctx, "expired token cleanup completed", "deleted", count)
}
