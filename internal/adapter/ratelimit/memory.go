// Package ratelimit holds the single-instance limiter and the Redis fallback chain.
package ratelimit

import (
	"context"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/pscheid92/startupai/internal/domain"
)

// MemoryLimiter keeps a sliding window of request timestamps per key in
// process memory. It matches the Redis limiter's semantics but is per-instance.
type MemoryLimiter struct {
	clock clockwork.Clock

	mu      sync.Mutex
	windows map[string][]time.Time
}

var _ domain.RateLimiter = (*MemoryLimiter)(nil)

func NewMemoryLimiter(clock clockwork.Clock) *MemoryLimiter {
	return &MemoryLimiter{clock: clock, windows: make(map[string][]time.Time)}
}

func (l *MemoryLimiter) Allow(_ context.Context, userID string, limit domain.RateLimit) (domain.RateLimitDecision, error) {
	key := userID + ":" + limit.Bucket
	now := l.clock.Now()
	cutoff := now.Add(-limit.Window)

	l.mu.Lock()
	defer l.mu.Unlock()

	hits := l.windows[key]
	i := 0
	for i < len(hits) && !hits[i].After(cutoff) {
		i++
	}
	hits = hits[i:]

	d := domain.RateLimitDecision{Limit: limit.Limit}
	if len(hits) < limit.Limit {
		hits = append(hits, now)
		d.Allowed = true
	} else {
		d.RetryAfter = limit.Window
	}
	d.Remaining = max(limit.Limit-len(hits), 0)

	if len(hits) == 0 {
		delete(l.windows, key)
	} else {
		l.windows[key] = hits
	}
	return d, nil
}

// Sweep drops keys whose newest entry has left every window up to maxWindow.
func (l *MemoryLimiter) Sweep(maxWindow time.Duration) int {
	cutoff := l.clock.Now().Add(-maxWindow)

	l.mu.Lock()
	defer l.mu.Unlock()

	removed := 0
	for key, hits := range l.windows {
		if len(hits) == 0 || !hits[len(hits)-1].After(cutoff) {
			delete(l.windows, key)
			removed++
		}
	}
	return removed
}
