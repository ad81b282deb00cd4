package app

import (
	"context"
	"log/slog"
	"time"

	"github.com/jonboulle/clockwork"
)

const defaultSweepInterval = time.Minute

// Sweepable is a store that can drop entries older than maxAge.
type Sweepable interface {
	Sweep(maxAge time.Duration) int
}

// Sweeper periodically evicts idle rate-limit windows from the in-memory
// limiter so per-user state does not grow without bound.
type Sweeper struct {
	target   Sweepable
	maxAge   time.Duration
	interval time.Duration
	clock    clockwork.Clock
}

func NewSweeper(target Sweepable, maxAge time.Duration, clock clockwork.Clock) *Sweeper {
	return &Sweeper{target: target, maxAge: maxAge, interval: defaultSweepInterval, clock: clock}
}

// Run blocks until ctx is cancelled.
func (s *Sweeper) Run(ctx context.Context) {
	ticker := s.clock.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.Chan():
			if n := s.target.Sweep(s.maxAge); n > 0 {
				slog.DebugContext(ctx, "Swept idle rate limit windows", "removed", n)
			}
		}
	}
}
