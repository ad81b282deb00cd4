package ratelimit

import (
	"context"
	"log/slog"

	"github.com/pscheid92/startupai/internal/domain"
)

// Recorder receives one call per decision. The metrics adapter implements it.
type Recorder interface {
	Decision(bucket string, allowed bool)
	Fallback()
}

// FallbackLimiter asks primary first and answers from secondary when primary
// errors, so a Redis outage degrades to per-instance limits instead of 500s.
type FallbackLimiter struct {
	primary   domain.RateLimiter
	secondary domain.RateLimiter
	recorder  Recorder
}

var _ domain.RateLimiter = (*FallbackLimiter)(nil)

// NewFallbackLimiter wires the chain. primary may be nil when Redis is not
// configured; recorder may be nil.
func NewFallbackLimiter(primary, secondary domain.RateLimiter, recorder Recorder) *FallbackLimiter {
	return &FallbackLimiter{primary: primary, secondary: secondary, recorder: recorder}
}

func (l *FallbackLimiter) Allow(ctx context.Context, userID string, limit domain.RateLimit) (domain.RateLimitDecision, error) {
	d, err := l.allow(ctx, userID, limit)
	if err == nil && l.recorder != nil {
		l.recorder.Decision(limit.Bucket, d.Allowed)
	}
	return d, err
}

func (l *FallbackLimiter) allow(ctx context.Context, userID string, limit domain.RateLimit) (domain.RateLimitDecision, error) {
	if l.primary == nil {
		return l.secondary.Allow(ctx, userID, limit)
	}

	d, err := l.primary.Allow(ctx, userID, limit)
	if err == nil {
		return d, nil
	}

	slog.WarnContext(ctx, "Rate limiter unavailable, using in-memory fallback",
		"bucket", limit.Bucket, "error", err)
	if l.recorder != nil {
		l.recorder.Fallback()
	}
	return l.secondary.Allow(ctx, userID, limit)
}
