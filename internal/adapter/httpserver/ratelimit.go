package httpserver

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pscheid92/startupai/internal/domain"
	apperrors "github.com/pscheid92/startupai/internal/platform/errors"
	"golang.org/x/time/rate"
)

const rateLimiterExpiry = 5 * time.Minute

const (
	headerRateLimitLimit       = "X-RateLimit-Limit"
	headerRateLimitRemaining   = "X-RateLimit-Remaining"
	headerConversationStage    = "X-Conversation-Stage"
	headerConversationProgress = "X-Conversation-Progress"
	headerAnalysisMode         = "X-Analysis-Mode"
	headerExecutionTime        = "X-Execution-Time"
)

// newRateLimiter is the coarse per-IP token bucket in front of /api.
func newRateLimiter(ratePerSecond float64, burst int) echo.MiddlewareFunc {
	store := middleware.NewRateLimiterMemoryStoreWithConfig(
		middleware.RateLimiterMemoryStoreConfig{
			Rate:      rate.Limit(ratePerSecond),
			Burst:     burst,
			ExpiresIn: rateLimiterExpiry,
		},
	)
	return middleware.RateLimiterWithConfig(middleware.RateLimiterConfig{
		IdentifierExtractor: func(c echo.Context) (string, error) {
			return c.RealIP(), nil
		},
		Store: store,
		DenyHandler: func(c echo.Context, identifier string, err error) error {
			return apperrors.RateLimitedError("rate limit exceeded")
		},
	})
}

// consume takes one request from the caller's bucket and sets the
// X-RateLimit headers. A denial is returned as a 429 error with
// retry_after_seconds in its context.
func (s *Server) consume(ctx context.Context, c echo.Context, userID uuid.UUID, limit domain.RateLimit, deniedMessage string) (domain.RateLimitDecision, error) {
	d, err := s.app.CheckRateLimit(ctx, userID, limit)
	if err != nil {
		return d, apperrors.InternalError("failed to check rate limit", err).WithField("bucket", limit.Bucket)
	}

	h := c.Response().Header()
	h.Set(headerRateLimitLimit, strconv.Itoa(d.Limit))
	h.Set(headerRateLimitRemaining, strconv.Itoa(d.Remaining))

	if !d.Allowed {
		retryAfter := int(d.RetryAfter.Seconds())
		h.Set("Retry-After", strconv.Itoa(retryAfter))
		return d, apperrors.RateLimitedError(deniedMessage).WithField("retry_after_seconds", retryAfter)
	}
	return d, nil
}

func writeJSON(c echo.Context, status int, body any) error {
	if err := c.JSON(status, body); err != nil {
		return fmt.Errorf("failed to send JSON response: %w", err)
	}
	return nil
}
