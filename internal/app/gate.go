package app

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/pscheid92/startupai/internal/domain"
	"github.com/pscheid92/startupai/internal/gate"
	"golang.org/x/sync/singleflight"
)

// gateEvalTimeout bounds a shared evaluation, which no longer follows any
// single caller's context.
const gateEvalTimeout = 30 * time.Second

type GateResult struct {
	Status           gate.Status `json:"status"`
	Reasons          []string    `json:"reasons"`
	ReadinessScore   float64     `json:"readiness_score"`
	EvidenceCount    int         `json:"evidence_count"`
	ExperimentsCount int         `json:"experiments_count"`
	Stage            gate.Stage  `json:"stage"`
}

// EvaluateGate scores the project's evidence against the stage's default
// criteria and stores the outcome on the project. Rows with an unknown
// strength or no quality score are skipped. Concurrent calls for the same
// caller, project and stage share one evaluation.
func (s *Service) EvaluateGate(ctx context.Context, userID, projectID uuid.UUID, stage gate.Stage) (*GateResult, error) {
	key := userID.String() + ":" + projectID.String() + ":" + string(stage)
	ch := s.gateGroup.DoChan(key, func() (any, error) {
		// Callers that joined later must not fail because the first one left.
		shared, cancel := context.WithTimeout(context.WithoutCancel(ctx), gateEvalTimeout)
		defer cancel()
		return s.evaluateGate(shared, userID, projectID, stage)
	})

	var out singleflight.Result
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case out = <-ch:
	}
	if out.Err != nil {
		return nil, out.Err
	}

	// Shared results must not alias between callers.
	res := *out.Val.(*GateResult)
	res.Reasons = append(make([]string, 0, len(res.Reasons)), res.Reasons...)
	return &res, nil
}

func (s *Service) evaluateGate(ctx context.Context, userID, projectID uuid.UUID, stage gate.Stage) (*GateResult, error) {
	if _, err := s.ownedProject(ctx, userID, projectID); err != nil {
		return nil, err
	}

	rows, err := s.evidence.ListByProject(ctx, projectID)
	if err != nil {
		return nil, err
	}

	if len(rows) == 0 {
		s.recorder.GateEvaluated(string(stage), string(gate.Pending))
		return &GateResult{
			Status:  gate.Pending,
			Reasons: []string{gate.NoEvidenceReason},
			Stage:   stage,
		}, nil
	}

	ev := make([]gate.Evidence, 0, len(rows))
	for _, row := range rows {
		item, err := gate.ParseEvidence(row.Type, row.Strength, row.QualityScore)
		if err != nil {
			slog.WarnContext(ctx, "Skipping invalid evidence", "evidence_id", row.ID.String(), "error", err)
			continue
		}
		ev = append(ev, item)
	}

	status, reasons, err := gate.Evaluate(stage, ev, nil)
	if err != nil {
		return nil, err
	}
	readiness, err := gate.ReadinessScore(stage, ev, nil)
	if err != nil {
		return nil, err
	}
	if reasons == nil {
		reasons = []string{}
	}

	res := &GateResult{
		Status:           status,
		Reasons:          reasons,
		ReadinessScore:   gate.Round3(readiness),
		EvidenceCount:    len(ev),
		ExperimentsCount: gate.CountExperiments(ev),
		Stage:            stage,
	}

	summary := domain.GateSummary{
		Status:           string(res.Status),
		EvidenceQuality:  readiness,
		EvidenceCount:    res.EvidenceCount,
		ExperimentsCount: res.ExperimentsCount,
	}
	if err := s.projects.UpdateGateSummary(ctx, projectID, summary); err != nil {
		slog.ErrorContext(ctx, "Failed to store gate summary", "project_id", projectID.String(), "error", err)
	}

	s.recorder.GateEvaluated(string(stage), string(status))
	return res, nil
}
