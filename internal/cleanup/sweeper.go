package cleanup

import (
	"context"
	"fmt"
	"time"

	"ms-coupons/internal/logger"
)

type DBLayer interface {
	DeleteExpiredTokens(ctx context.Context, now time.Time) (int64, error)
}

// Sweeper deletes expired unused redeem tokens on a fixed interval. The sweep
// is idempotent and not correctness-critical: expired tokens are rejected by
// the confirm transaction regardless of whether they were swept yet.
type Sweeper struct {
	DB       DBLayer
	Logger   *logger.Logger
	Interval time.Duration
}

func NewSweeper(db DBLayer, log *logger.Logger, interval time.Duration) *Sweeper {
	return &Sweeper{DB: db, Logger: log, Interval: interval}
}

// Run sweeps once immediately, then on every tick until the context is
// cancelled. Meant to run in its own goroutine.
func (s *Sweeper) Run(ctx context.Context) {
	s.Sweep(ctx)

	ticker := time.NewTicker(s.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.Logger.Info("CLEANUP", "Token sweeper stopped")
			return
		case <-ticker.C:
			s.Sweep(ctx)
		}
	}
}

func (s *Sweeper) Sweep(ctx context.Context) {
	deleted, err := s.DB.DeleteExpiredTokens(ctx, time.Now().UTC())
	if err != nil {
		s.Logger.Error("CLEANUP", fmt.Sprintf("Failed to delete expired tokens: %v", err))
		return
	}
	if deleted > 0 {
		s.Logger.Info("CLEANUP", fmt.Sprintf("Deleted %d expired redeem tokens", deleted))
	}
}
