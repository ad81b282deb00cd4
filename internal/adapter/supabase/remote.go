package supabase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pscheid92/startupai/internal/domain"
	"github.com/sony/gobreaker"
)

const httpCallTimeout = 10 * time.Second

type RemoteConfig struct {
	URL     string
	AnonKey string

	HTTPClient *http.Client
	// OnBreakerStateChange is called with the old and new breaker state names.
	OnBreakerStateChange func(from, to string)
}

// RemoteAuthenticator resolves tokens through GET {url}/auth/v1/user.
type RemoteAuthenticator struct {
	baseURL string
	anonKey string
	http    *http.Client
	cb      *gobreaker.CircuitBreaker
}

var _ domain.Authenticator = (*RemoteAuthenticator)(nil)

// outageError marks failures that count against the circuit breaker.
type outageError struct {
	err error
}

func (e *outageError) Error() string { return e.err.Error() }
func (e *outageError) Unwrap() error { return e.err }

type userResponse struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

func NewRemoteAuthenticator(cfg RemoteConfig) *RemoteAuthenticator {
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Timeout: httpCallTimeout}
	}

	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "supabase-auth",
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		// Only network failures and 5xx answers count as an outage.
		IsSuccessful: func(err error) bool {
			var outage *outageError
			return !errors.As(err, &outage)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			slog.Warn("Circuit breaker state changed", "component", name, "from", from.String(), "to", to.String())
			if cfg.OnBreakerStateChange != nil {
				cfg.OnBreakerStateChange(from.String(), to.String())
			}
		},
	})

	return &RemoteAuthenticator{
		baseURL: strings.TrimRight(cfg.URL, "/"),
		anonKey: cfg.AnonKey,
		http:    cfg.HTTPClient,
		cb:      cb,
	}
}

func (a *RemoteAuthenticator) Authenticate(ctx context.Context, token string) (*domain.User, error) {
	if token == "" {
		return nil, domain.ErrMissingToken
	}

	result, err := a.cb.Execute(func() (any, error) {
		return a.fetchUser(ctx, token)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, fmt.Errorf("%w: %v", domain.ErrAuthUnavailable, err)
		}
		return nil, err
	}
	return result.(*domain.User), nil
}

// BreakerState reports the circuit breaker state for diagnostics.
func (a *RemoteAuthenticator) BreakerState() string {
	return a.cb.State().String()
}

func (a *RemoteAuthenticator) fetchUser(ctx context.Context, token string) (*domain.User, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.baseURL+"/auth/v1/user", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("apikey", a.anonKey)
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := a.http.Do(req)
	if err != nil {
		// The caller gave up; the provider is not at fault.
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, &outageError{err: fmt.Errorf("%w: %v", domain.ErrAuthUnavailable, err)}
	}
	defer resp.Body.Close()

	switch code := resp.StatusCode; {
	case code == http.StatusOK:
	case code == http.StatusBadRequest, code == http.StatusUnauthorized,
		code == http.StatusForbidden, code == http.StatusUnprocessableEntity:
		return nil, domain.ErrInvalidToken
	case code >= http.StatusInternalServerError:
		return nil, &outageError{err: fmt.Errorf("%w: auth API returned status %d", domain.ErrAuthUnavailable, code)}
	default:
		return nil, fmt.Errorf("%w: auth API returned status %d", domain.ErrAuthUnavailable, code)
	}

	var u userResponse
	if err := json.NewDecoder(resp.Body).Decode(&u); err != nil {
		return nil, fmt.Errorf("failed to decode user: %w", err)
	}

	id, err := uuid.Parse(u.ID)
	if err != nil {
		return nil, fmt.Errorf("%w: user id %q", domain.ErrInvalidToken, u.ID)
	}

	return &domain.User{ID: id, Email: u.Email, Role: u.Role}, nil
}
