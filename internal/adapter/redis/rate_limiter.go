package redis

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/pscheid92/startupai/internal/domain"
	goredis "github.com/redis/go-redis/v9"
)

// slidingWindowScript trims entries older than the window, admits the request
// when fewer than limit entries remain and refreshes the key's expiry.
// KEYS: [1]=window key
// ARGV: [1]=now_ms, [2]=window_ms, [3]=limit, [4]=unique member
// Returns {allowed (0|1), count after the call}.
var slidingWindowScript = goredis.NewScript(`
local now = tonumber(ARGV[1])
local window = tonumber(ARGV[2])
local limit = tonumber(ARGV[3])
redis.call('ZREMRANGEBYSCORE', KEYS[1], '-inf', now - window)
local count = redis.call('ZCARD', KEYS[1])
local allowed = 0
if count < limit then
  redis.call('ZADD', KEYS[1], now, ARGV[4])
  count = count + 1
  allowed = 1
end
redis.call('PEXPIRE', KEYS[1], window)
return {allowed, count}
`)

// RateLimiter is a sliding-window limiter shared by all instances.
type RateLimiter struct {
	rdb   *goredis.Client
	clock clockwork.Clock
}

var _ domain.RateLimiter = (*RateLimiter)(nil)

func NewRateLimiter(rdb *goredis.Client, clock clockwork.Clock) *RateLimiter {
	return &RateLimiter{rdb: rdb, clock: clock}
}

func (l *RateLimiter) Allow(ctx context.Context, userID string, limit domain.RateLimit) (domain.RateLimitDecision, error) {
	now := l.clock.Now().UnixMilli()
	member := fmt.Sprintf("%d-%s", now, uuid.NewString())

	res, err := slidingWindowScript.Run(ctx, l.rdb, []string{rateLimitKey(userID, limit.Bucket)},
		now, limit.Window.Milliseconds(), limit.Limit, member).Int64Slice()
	if err != nil {
		return domain.RateLimitDecision{}, fmt.Errorf("rate limit check failed: %w", err)
	}
	if len(res) != 2 {
		return domain.RateLimitDecision{}, fmt.Errorf("rate limit script returned %d values", len(res))
	}

	return decision(res[0] == 1, int(res[1]), limit), nil
}

func decision(allowed bool, count int, limit domain.RateLimit) domain.RateLimitDecision {
	d := domain.RateLimitDecision{
		Allowed:   allowed,
		Limit:     limit.Limit,
		Remaining: max(limit.Limit-count, 0),
	}
	if !allowed {
		d.RetryAfter = limit.Window
	}
	return d
}

func rateLimitKey(userID, bucket string) string {
	return "rate_limit:" + userID + ":" + bucket
}
