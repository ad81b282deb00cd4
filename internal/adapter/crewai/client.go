package crewai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/failsafe-go/failsafe-go/circuitbreaker"
	"github.com/jonboulle/clockwork"
	"github.com/pscheid92/startupai/internal/domain"
	"github.com/pscheid92/startupai/internal/platform/retry"
)

const (
	httpCallTimeout = 30 * time.Second
	maxErrorBody    = 512
)

var _ domain.WorkflowClient = (*Client)(nil)

type Config struct {
	BaseURL      string
	Token        string
	PollInterval time.Duration

	Retry retry.Policy

	BreakerFailureThreshold uint
	BreakerDelay            time.Duration
	// OnBreakerStateChange is called with the old and new breaker state names.
	OnBreakerStateChange func(from, to string)

	HTTPClient *http.Client
	Clock      clockwork.Clock
}

func DefaultConfig(baseURL, token string, pollInterval time.Duration) Config {
	return Config{
		BaseURL:      baseURL,
		Token:        token,
		PollInterval: pollInterval,
		Retry: retry.Policy{
			MaxAttempts:      3,
			InitialBackoff:   500 * time.Millisecond,
			MaxBackoff:       5 * time.Second,
			RateLimitBackoff: 5 * time.Second,
		},
		BreakerFailureThreshold: 5,
		BreakerDelay:            30 * time.Second,
	}
}

// Client talks to a deployed crew over its kickoff/status/retry REST API.
type Client struct {
	baseURL      string
	token        string
	pollInterval time.Duration
	policy       retry.Policy
	http         *http.Client
	clock        clockwork.Clock
	cb           circuitbreaker.CircuitBreaker[any]
}

func NewClient(cfg Config) *Client {
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Timeout: httpCallTimeout}
	}
	if cfg.Clock == nil {
		cfg.Clock = clockwork.NewRealClock()
	}
	cfg.Retry.Clock = cfg.Clock

	cb := circuitbreaker.NewBuilder[any]().
		WithFailureThreshold(cfg.BreakerFailureThreshold).
		WithDelay(cfg.BreakerDelay).
		WithSuccessThreshold(1).
		OnStateChanged(func(e circuitbreaker.StateChangedEvent) {
			slog.Warn("Circuit breaker state changed",
				"component", "crewai",
				"from", stateName(e.OldState),
				"to", stateName(e.NewState),
			)
			if cfg.OnBreakerStateChange != nil {
				cfg.OnBreakerStateChange(stateName(e.OldState), stateName(e.NewState))
			}
		}).
		Build()

	return &Client{
		baseURL:      strings.TrimRight(cfg.BaseURL, "/"),
		token:        cfg.Token,
		pollInterval: cfg.PollInterval,
		policy:       cfg.Retry,
		http:         cfg.HTTPClient,
		clock:        cfg.Clock,
		cb:           cb,
	}
}

type kickoffResponse struct {
	KickoffID string `json:"kickoff_id"`
}

type statusResponse struct {
	State  string `json:"state"`
	Result any    `json:"result"`
	Error  string `json:"error"`
}

func (c *Client) Kickoff(ctx context.Context, inputs map[string]any) (string, error) {
	var resp kickoffResponse
	if err := c.send(ctx, http.MethodPost, "/kickoff", map[string]any{"inputs": inputs}, &resp); err != nil {
		return "", fmt.Errorf("crew kickoff failed: %w", err)
	}
	if resp.KickoffID == "" {
		return "", errors.New("crew kickoff returned no kickoff_id")
	}
	return resp.KickoffID, nil
}

func (c *Client) Status(ctx context.Context, kickoffID string) (*domain.WorkflowStatus, error) {
	var resp statusResponse
	if err := c.call(ctx, http.MethodGet, "/status/"+url.PathEscape(kickoffID), nil, &resp); err != nil {
		return nil, fmt.Errorf("crew status failed: %w", err)
	}

	state := domain.WorkflowState(strings.ToUpper(resp.State))
	switch state {
	case domain.WorkflowPending, domain.WorkflowRunning, domain.WorkflowSuccess, domain.WorkflowFailed:
	case "":
		state = domain.WorkflowPending
	default:
		// Intermediate states such as STARTED or EXECUTING count as running.
		state = domain.WorkflowRunning
	}

	return &domain.WorkflowStatus{
		KickoffID: kickoffID,
		State:     state,
		Result:    resp.Result,
		Error:     resp.Error,
	}, nil
}

func (c *Client) Retry(ctx context.Context, kickoffID string) (string, error) {
	var resp kickoffResponse
	if err := c.send(ctx, http.MethodPost, "/retry/"+url.PathEscape(kickoffID), map[string]any{}, &resp); err != nil {
		return "", fmt.Errorf("crew retry failed: %w", err)
	}
	if resp.KickoffID == "" {
		resp.KickoffID = kickoffID
	}
	return resp.KickoffID, nil
}

// Wait polls Status every poll interval until the run reaches a terminal
// state or ctx is done.
func (c *Client) Wait(ctx context.Context, kickoffID string) (*domain.WorkflowStatus, error) {
	for {
		status, err := c.Status(ctx, kickoffID)
		if err != nil {
			return nil, err
		}
		if status.State.Terminal() {
			return status, nil
		}

		select {
		case <-c.clock.After(c.pollInterval):
		case <-ctx.Done():
			return nil, fmt.Errorf("waiting for crew %s: %w", kickoffID, ctx.Err())
		}
	}
}

// Ping checks that the crew deployment answers and accepts the token.
func (c *Client) Ping(ctx context.Context) error {
	var discard map[string]any
	if err := c.call(ctx, http.MethodGet, "/inputs", nil, &discard); err != nil {
		return fmt.Errorf("crew ping failed: %w", err)
	}
	return nil
}

// BreakerState reports the circuit breaker state for diagnostics.
func (c *Client) BreakerState() string {
	return stateName(c.cb.State())
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

// call is for idempotent requests; transient failures are retried.
func (c *Client) call(ctx context.Context, method, path string, body, out any) error {
	return retry.DoVoid(ctx, c.policy, classify, func() error {
		return c.attempt(ctx, method, path, body, out)
	})
}

// send is for requests that start a run. A 5xx or a broken connection may
// arrive after the runtime accepted the run, so only a 429 is retried.
func (c *Client) send(ctx context.Context, method, path string, body, out any) error {
	return retry.DoVoid(ctx, c.policy, classifyNonIdempotent, func() error {
		return c.attempt(ctx, method, path, body, out)
	})
}

func classify(err error) retry.Action {
	if errors.Is(err, circuitbreaker.ErrOpen) {
		return retry.Stop
	}
	return retry.ClassifyHTTP(err)
}

func classifyNonIdempotent(err error) retry.Action {
	var statusErr *retry.StatusError
	if errors.As(err, &statusErr) && statusErr.Code == http.StatusTooManyRequests {
		return retry.After
	}
	return retry.Stop
}

func (c *Client) attempt(ctx context.Context, method, path string, body, out any) error {
	if !c.cb.TryAcquirePermit() {
		return fmt.Errorf("crew runtime unavailable: %w", circuitbreaker.ErrOpen)
	}

	err := c.do(ctx, method, path, body, out)
	if err != nil && retry.ClassifyHTTP(err) != retry.Stop {
		c.cb.RecordError(err)
	} else {
		c.cb.RecordSuccess()
	}
	return err
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &retry.StatusError{Code: resp.StatusCode, Body: strings.TrimSpace(string(snippet))}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
