package domain

import (
	"context"
	"time"
)

// RateLimit is a sliding-window allowance for one action bucket.
type RateLimit struct {
	Bucket string
	Limit  int
	Window time.Duration
}

var (
	AnalysisRateLimit            = RateLimit{Bucket: "analysis", Limit: 10, Window: 15 * time.Minute}
	ConversationMessageRateLimit = RateLimit{Bucket: "conversation_message", Limit: 60, Window: 5 * time.Minute}
	ConversationStartRateLimit   = RateLimit{Bucket: "conversation_start", Limit: 6, Window: 15 * time.Minute}
)

type RateLimitDecision struct {
	Allowed   bool
	Limit     int
	Remaining int
	// RetryAfter is set when denied.
	RetryAfter time.Duration
}

// RateLimiter enforces per-user limits keyed by "<user>:<bucket>".
type RateLimiter interface {
	Allow(ctx context.Context, userID string, limit RateLimit) (RateLimitDecision, error)
}
