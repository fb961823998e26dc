package service

import (
	"context"
	"log/slog"
	"time"
)

// Expirer is the part of Service the sweeper drives.
type Expirer interface {
	ExpireStaleSessions(ctx context.Context, now time.Time) (int, error)
}

// Sweeper expires stale sessions on a fixed interval.
type Sweeper struct {
	expirer  Expirer
	interval time.Duration
	logger   *slog.Logger
	now      func() time.Time
}

func NewSweeper(expirer Expirer, interval time.Duration, logger *slog.Logger) *Sweeper {
	if logger == nil {
		logger = slog.Default()
	}
	return &Sweeper{
		expirer:  expirer,
		interval: interval,
		logger:   logger,
		now:      time.Now,
	}
}

// Run sweeps until ctx is cancelled. A failed sweep is logged and retried on
// the next tick.
func (sw *Sweeper) Run(ctx context.Context) error {
	ticker := time.NewTicker(sw.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			sw.sweep(ctx)
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (sw *Sweeper) sweep(ctx context.Context) {
	n, err := sw.expirer.ExpireStaleSessions(ctx, sw.now())
	if err != nil {
		sw.logger.ErrorContext(ctx, "session sweep failed", "error", err, "expired", n)
		return
	}
	if n > 0 {
		sw.logger.InfoContext(ctx, "expired stale sessions", "expired", n)
	}
}
