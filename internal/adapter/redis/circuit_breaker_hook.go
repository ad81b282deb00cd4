package redis

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"time"

	"github.com/failsafe-go/failsafe-go/circuitbreaker"
	goredis "github.com/redis/go-redis/v9"
)

// CircuitBreakerHook fails Redis commands fast while Redis is unhealthy so
// callers can switch to their local fallback without waiting on timeouts.
type CircuitBreakerHook struct {
	cb circuitbreaker.CircuitBreaker[any]
}

var _ goredis.Hook = (*CircuitBreakerHook)(nil)

type BreakerSettings struct {
	FailureRate   float64
	MinExecutions uint
	Period        time.Duration
	Delay         time.Duration
	// OnStateChange is called with the old and new state names.
	OnStateChange func(from, to string)
}

func DefaultBreakerSettings() BreakerSettings {
	return BreakerSettings{
		FailureRate:   0.6,
		MinExecutions: 5,
		Period:        10 * time.Second,
		Delay:         30 * time.Second,
	}
}

func NewCircuitBreakerHook(s BreakerSettings) *CircuitBreakerHook {
	cb := circuitbreaker.NewBuilder[any]().
		WithFailureRateThreshold(s.FailureRate, s.MinExecutions, s.Period).
		WithDelay(s.Delay).
		WithSuccessThreshold(1).
		OnStateChanged(func(e circuitbreaker.StateChangedEvent) {
			from, to := stateName(e.OldState), stateName(e.NewState)
			slog.Warn("Circuit breaker state changed", "component", "redis", "from", from, "to", to)
			if s.OnStateChange != nil {
				s.OnStateChange(from, to)
			}
		}).
		Build()

	return &CircuitBreakerHook{cb: cb}
}

func stateName(s circuitbreaker.State) string {
	switch s {
	case circuitbreaker.OpenState:
		return "open"
	case circuitbreaker.HalfOpenState:
		return "half_open"
	default:
		return "closed"
	}
}

func (h *CircuitBreakerHook) DialHook(next goredis.DialHook) goredis.DialHook {
	return func(ctx context.Context, network, addr string) (net.Conn, error) {
		if !h.cb.TryAcquirePermit() {
			return nil, fmt.Errorf("redis circuit breaker open: %w", circuitbreaker.ErrOpen)
		}
		conn, err := next(ctx, network, addr)
		if err != nil {
			h.cb.RecordError(err)
			return nil, err
		}
		h.cb.RecordSuccess()
		return conn, nil
	}
}

func (h *CircuitBreakerHook) ProcessHook(next goredis.ProcessHook) goredis.ProcessHook {
	return func(ctx context.Context, cmd goredis.Cmder) error {
		if !h.cb.TryAcquirePermit() {
			err := fmt.Errorf("redis circuit breaker open: %w", circuitbreaker.ErrOpen)
			cmd.SetErr(err)
			return err
		}

		err := next(ctx, cmd)
		h.record(err)
		return err
	}
}

func (h *CircuitBreakerHook) ProcessPipelineHook(next goredis.ProcessPipelineHook) goredis.ProcessPipelineHook {
	return func(ctx context.Context, cmds []goredis.Cmder) error {
		if !h.cb.TryAcquirePermit() {
			return fmt.Errorf("redis circuit breaker open: %w", circuitbreaker.ErrOpen)
		}

		err := next(ctx, cmds)
		h.record(err)
		return err
	}
}

// record counts only infrastructure failures; redis.Nil and Lua script
// errors are answers from a healthy server.
func (h *CircuitBreakerHook) record(err error) {
	var redisErr goredis.Error
	switch {
	case err == nil, errors.Is(err, goredis.Nil):
		h.cb.RecordSuccess()
	case errors.As(err, &redisErr):
		h.cb.RecordSuccess()
	default:
		h.cb.RecordError(err)
	}
}

// State returns the breaker state name (closed, half_open, open).
func (h *CircuitBreakerHook) State() string {
	return stateName(h.cb.State())
}
