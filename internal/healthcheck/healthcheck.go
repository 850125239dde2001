// Package healthcheck runs the background Redis PING loop described in
// spec.md §5: purely observational, it never gates request serving.
package healthcheck

import (
	"context"
	"time"

	"github.com/slashless/slashless/internal/pool"
)

// Interval is the fixed tick period between health-check PINGs.
const Interval = 2 * time.Second

// Run ticks every Interval, calling p.PingWithRetry on each tick, until
// ctx is done. Missed ticks are skipped rather than coalesced: if a
// PingWithRetry call is still running for longer than Interval (e.g.
// during a retry backoff), the next ticks are dropped rather than
// queued, exactly as a time.Ticker already behaves.
func Run(ctx context.Context, p *pool.Pool) {
	ticker := time.NewTicker(Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			_, _ = p.PingWithRetry(ctx)
		}
	}
}
