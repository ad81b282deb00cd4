package analysis

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/pscheid92/startupai/internal/domain"
)

const (
	ModeCrew     = "crew"
	ModeFallback = "fallback"

	fallbackContextLen = 160
)

type Metadata struct {
	Mode      string `json:"mode"`
	KickoffID string `json:"kickoff_id,omitempty"`
	Error     string `json:"error,omitempty"`
}

type Result struct {
	AnalysisID string
	Payload    *Payload
	Metadata   Metadata
}

// Engine runs an analysis through the crew runtime and degrades to a
// deterministic recommendation when the runtime is absent or fails.
type Engine struct {
	workflow domain.WorkflowClient
	clock    clockwork.Clock
	timeout  time.Duration
}

// NewEngine accepts a nil workflow client; every run then uses the fallback text.
func NewEngine(workflow domain.WorkflowClient, clock clockwork.Clock, timeout time.Duration) *Engine {
	return &Engine{workflow: workflow, clock: clock, timeout: timeout}
}

func (e *Engine) CrewAvailable() bool { return e.workflow != nil }

func NewAnalysisID() string {
	return "analysis_" + uuid.NewString()
}

func (e *Engine) Run(ctx context.Context, in Inputs, userID string) *Result {
	return e.RunWithID(ctx, NewAnalysisID(), in, userID)
}

// RunWithID is Run with a caller-chosen analysis ID, used by background jobs
// whose ID is handed out before the run starts.
func (e *Engine) RunWithID(ctx context.Context, analysisID string, in Inputs, userID string) *Result {
	started := e.clock.Now().UTC()
	meta := Metadata{Mode: ModeFallback}

	var raw string
	if e.workflow != nil {
		text, kickoffID, err := e.runCrew(ctx, in)
		meta.KickoffID = kickoffID
		if err != nil {
			slog.WarnContext(ctx, "Crew analysis failed, using fallback", "analysis_id", analysisID, "error", err)
			meta.Error = err.Error()
			raw = FallbackText(in)
		} else {
			meta.Mode = ModeCrew
			raw = text
		}
	} else {
		raw = FallbackText(in)
	}

	return &Result{
		AnalysisID: analysisID,
		Payload:    BuildPayload(raw, in, userID, analysisID, started),
		Metadata:   meta,
	}
}

func (e *Engine) runCrew(ctx context.Context, in Inputs) (string, string, error) {
	if e.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}

	kickoffID, err := e.workflow.Kickoff(ctx, in.Map())
	if err != nil {
		return "", "", fmt.Errorf("kickoff: %w", err)
	}

	status, err := e.workflow.Wait(ctx, kickoffID)
	if err != nil {
		return "", kickoffID, fmt.Errorf("wait for %s: %w", kickoffID, err)
	}
	if status.State != domain.WorkflowSuccess {
		return "", kickoffID, fmt.Errorf("%w: %s", domain.ErrWorkflowFailed, status.Error)
	}

	return NormalizeResult(status.Result), kickoffID, nil
}

// FallbackText is the recommendation used when no crew output is available.
func FallbackText(in Inputs) string {
	question := in.StrategicQuestion
	if question == "" {
		question = "your strategic question"
	}

	parts := []string{
		fmt.Sprintf("Strategic analysis focused on: %s.", question),
		"Key Recommendations:",
		"- Validate the problem with direct customer conversations within the next two weeks.",
		"- Prototype a minimal solution and measure engagement to confirm demand.",
		"- Map the competitive landscape and identify differentiation angles based on evidence.",
		"- Define success metrics tied to acquisition, activation, and validation milestones.",
	}
	if in.ProjectContext != "" {
		parts = append(parts, fmt.Sprintf("Context considered: %s...", truncate(in.ProjectContext, fallbackContextLen)))
	}
	return strings.Join(parts, "\n")
}
