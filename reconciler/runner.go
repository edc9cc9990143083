package reconciler

import (
	"context"
	"log/slog"
	"math/rand"
	"time"
)

// Default sweep intervals.
const (
	DefaultSweepInterval   = 2 * time.Minute
	DefaultSLAInterval     = 5 * time.Minute
	DefaultCleanupInterval = 30 * time.Minute

	// retention window for non-ban cases
	DefaultCaseRetention = 90 * 24 * time.Hour
)

// RunEvery invokes fn on a jittered interval until ctx is cancelled. The
// jitter (up to 10% of the interval) keeps multiple instances from sweeping
// in lockstep.
func RunEvery(ctx context.Context, logger *slog.Logger, name string, interval time.Duration, fn func(context.Context, time.Time) error) {
	timer := time.NewTimer(jittered(interval))
	defer timer.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-timer.C:
			if err := fn(ctx, now); err != nil {
				sweepErrorCount.WithLabelValues(name).Inc()
				logger.Error("periodic sweep failed", "sweep", name, "err", err)
			}
			timer.Reset(jittered(interval))
		}
	}
}

func jittered(d time.Duration) time.Duration {
	return d + time.Duration(rand.Int63n(int64(d)/10+1))
}

// Run starts all three sweeps and blocks until ctx is cancelled.
func (r *Reconciler) Run(ctx context.Context) {
	go RunEvery(ctx, r.Logger, "actions", DefaultSweepInterval, func(ctx context.Context, now time.Time) error {
		_, err := r.Sweep(ctx, now)
		return err
	})
	go RunEvery(ctx, r.Logger, "sla", DefaultSLAInterval, func(ctx context.Context, now time.Time) error {
		_, err := r.SweepSLA(ctx, now)
		return err
	})
	go RunEvery(ctx, r.Logger, "cleanup", DefaultCleanupInterval, r.Cleanup)
	<-ctx.Done()
}
