package service

import (
	"context"
	"log/slog"
	"time"
)

type expiredSessionCleaner interface {
	CleanupExpiredSessions(ctx context.Context) (int64, error)
}

// Sweeper deletes expired guest sessions on a fixed interval. Trigger requests
// an extra run without waiting for the next tick.
type Sweeper struct {
	cleaner  expiredSessionCleaner
	logger   *slog.Logger
	interval time.Duration
	nudge    chan struct{}
}

func NewSweeper(cleaner expiredSessionCleaner, logger *slog.Logger, interval time.Duration) *Sweeper {
	return &Sweeper{
		cleaner:  cleaner,
		logger:   logger,
		interval: interval,
		nudge:    make(chan struct{}, 1),
	}
}

// Trigger never blocks; a run that is already pending absorbs the request.
func (s *Sweeper) Trigger() {
	select {
	case s.nudge <- struct{}{}:
	default:
	}
}

func (s *Sweeper) Start(ctx context.Context) {
	s.logger.Info("guest session sweeper started", "interval", s.interval)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("guest session sweeper stopped")
			return
		case <-ticker.C:
			s.sweep(ctx, "interval")
		case <-s.nudge:
			s.sweep(ctx, "triggered")
		}
	}
}

func (s *Sweeper) sweep(ctx context.Context, reason string) {
	n, err := s.cleaner.CleanupExpiredSessions(ctx)
	if err != nil {
		s.logger.Error("failed to clean up expired guest sessions", "reason", reason, "error", err)
		return
	}
	if n > 0 {
		s.logger.Info("expired guest sessions removed", "count", n, "reason", reason)
	}
}
