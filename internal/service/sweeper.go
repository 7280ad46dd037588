package service

import (
	"context"
	"time"

	"nanum/internal/logging"
)

// DefaultSweepInterval is used when RunSweeper is given a non-positive interval.
const DefaultSweepInterval = 10 * time.Minute

// RunSweeper removes expired verification records every interval until ctx
// is cancelled.
func RunSweeper(ctx context.Context, signup SignupService, interval time.Duration, log logging.Logger) {
	if interval <= 0 {
		log.Warn(ctx, "non-positive sweep interval, using default", "interval", interval.String(), "default", DefaultSweepInterval.String())
		interval = DefaultSweepInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if _, err := signup.SweepExpired(ctx); err != nil {
			log.Error(ctx, "verification sweep failed", "error", err)
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
