package app

import (
	"context"
	"time"

	"github.com/pscheid92/startupai/internal/platform/version"
	"golang.org/x/sync/errgroup"
)

const dependencyCheckTimeout = 3 * time.Second

// HealthCheck probes one external dependency. Only critical checks gate
// readiness; the rest have a degraded path and show up in Diagnostics.
type HealthCheck struct {
	Name     string
	Check    func(ctx context.Context) error
	Critical bool
}

type DependencyStatus struct {
	Name      string `json:"name"`
	Healthy   bool   `json:"healthy"`
	Error     string `json:"error,omitempty"`
	LatencyMS int64  `json:"latency_ms"`
}

type Diagnostics struct {
	Status        string             `json:"status"`
	Version       version.Info       `json:"version"`
	Configuration map[string]any     `json:"configuration"`
	Dependencies  []DependencyStatus `json:"dependencies"`
	CheckedAt     time.Time          `json:"checked_at"`
}

// Diagnostics reports configuration presence and probes every dependency
// concurrently. Secrets are reported as set/unset only.
func (s *Service) Diagnostics(ctx context.Context) *Diagnostics {
	results := make([]DependencyStatus, len(s.checks))

	g, gctx := errgroup.WithContext(ctx)
	for i, hc := range s.checks {
		g.Go(func() error {
			cctx, cancel := context.WithTimeout(gctx, dependencyCheckTimeout)
			defer cancel()

			start := s.clock.Now()
			err := hc.Check(cctx)
			st := DependencyStatus{Name: hc.Name, Healthy: err == nil, LatencyMS: s.clock.Since(start).Milliseconds()}
			if err != nil {
				st.Error = err.Error()
			}
			results[i] = st
			// A failed probe must not cancel its siblings.
			return nil
		})
	}
	_ = g.Wait()

	status := "ok"
	for _, r := range results {
		if !r.Healthy {
			status = "degraded"
			break
		}
	}

	return &Diagnostics{
		Status:  status,
		Version: version.Get(),
		Configuration: map[string]any{
			"environment":        s.settings.Environment,
			"crew_configured":    s.settings.CrewConfigured,
			"auth_mode":          s.settings.AuthMode,
			"rate_limit_backend": s.settings.RateLimitBackend,
			"poll_interval":      s.settings.PollInterval.String(),
			"crew_timeout":       s.settings.CrewTimeout.String(),
		},
		Dependencies: results,
		CheckedAt:    s.clock.Now().UTC(),
	}
}

// Ready runs the critical dependency checks and returns the first failure.
func (s *Service) Ready(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)
	for _, hc := range s.checks {
		if !hc.Critical {
			continue
		}
		g.Go(func() error {
			cctx, cancel := context.WithTimeout(gctx, dependencyCheckTimeout)
			defer cancel()
			if err := hc.Check(cctx); err != nil {
				return &DependencyError{Name: hc.Name, Err: err}
			}
			return nil
		})
	}
	return g.Wait()
}

type DependencyError struct {
	Name string
	Err  error
}

func (e *DependencyError) Error() string { return e.Name + ": " + e.Err.Error() }
func (e *DependencyError) Unwrap() error { return e.Err }
