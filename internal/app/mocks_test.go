package app

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pscheid92/startupai/internal/domain"
)

// --- Mock implementations ---

type mockProjectRepo struct {
	getByIDFn           func(ctx context.Context, projectID uuid.UUID) (*domain.Project, error)
	updateGateSummaryFn func(ctx context.Context, projectID uuid.UUID, summary domain.GateSummary) error
}

func (m *mockProjectRepo) GetByID(ctx context.Context, projectID uuid.UUID) (*domain.Project, error) {
	if m.getByIDFn != nil {
		return m.getByIDFn(ctx, projectID)
	}
	return nil, domain.ErrProjectNotFound
}

func (m *mockProjectRepo) Create(_ context.Context, _ uuid.UUID, _, _ string) (*domain.Project, error) {
	return nil, fmt.Errorf("not implemented")
}

func (m *mockProjectRepo) UpdateGateSummary(ctx context.Context, projectID uuid.UUID, summary domain.GateSummary) error {
	if m.updateGateSummaryFn != nil {
		return m.updateGateSummaryFn(ctx, projectID, summary)
	}
	return nil
}

type mockEvidenceRepo struct {
	listByProjectFn func(ctx context.Context, projectID uuid.UUID) ([]domain.Evidence, error)
	getByIDFn       func(ctx context.Context, evidenceID uuid.UUID) (*domain.Evidence, error)
	createFn        func(ctx context.Context, projectID uuid.UUID, in domain.EvidenceInput) (*domain.Evidence, error)
	updateFn        func(ctx context.Context, evidenceID uuid.UUID, patch domain.EvidencePatch) (*domain.Evidence, error)
	deleteFn        func(ctx context.Context, evidenceID uuid.UUID) error
}

func (m *mockEvidenceRepo) ListByProject(ctx context.Context, projectID uuid.UUID) ([]domain.Evidence, error) {
	if m.listByProjectFn != nil {
		return m.listByProjectFn(ctx, projectID)
	}
	return []domain.Evidence{}, nil
}

func (m *mockEvidenceRepo) GetByID(ctx context.Context, evidenceID uuid.UUID) (*domain.Evidence, error) {
	if m.getByIDFn != nil {
		return m.getByIDFn(ctx, evidenceID)
	}
	return nil, domain.ErrEvidenceNotFound
}

func (m *mockEvidenceRepo) Create(ctx context.Context, projectID uuid.UUID, in domain.EvidenceInput) (*domain.Evidence, error) {
	if m.createFn != nil {
		return m.createFn(ctx, projectID, in)
	}
	return nil, fmt.Errorf("not implemented")
}

func (m *mockEvidenceRepo) Update(ctx context.Context, evidenceID uuid.UUID, patch domain.EvidencePatch) (*domain.Evidence, error) {
	if m.updateFn != nil {
		return m.updateFn(ctx, evidenceID, patch)
	}
	return nil, fmt.Errorf("not implemented")
}

func (m *mockEvidenceRepo) Delete(ctx context.Context, evidenceID uuid.UUID) error {
	if m.deleteFn != nil {
		return m.deleteFn(ctx, evidenceID)
	}
	return nil
}

// memAnalysisRepo is an in-memory AnalysisRepository safe for use by workers.
type memAnalysisRepo struct {
	mu       sync.Mutex
	runs     map[string]*domain.AnalysisRun
	createFn func(ctx context.Context, run *domain.AnalysisRun) error
}

func newMemAnalysisRepo() *memAnalysisRepo {
	return &memAnalysisRepo{runs: map[string]*domain.AnalysisRun{}}
}

func (m *memAnalysisRepo) Create(ctx context.Context, run *domain.AnalysisRun) error {
	if m.createFn != nil {
		if err := m.createFn(ctx, run); err != nil {
			return err
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *run
	m.runs[run.ID] = &cp
	return nil
}

func (m *memAnalysisRepo) Get(_ context.Context, id string) (*domain.AnalysisRun, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	run, ok := m.runs[id]
	if !ok {
		return nil, domain.ErrAnalysisNotFound
	}
	cp := *run
	return &cp, nil
}

func (m *memAnalysisRepo) MarkRunning(_ context.Context, id string) error {
	return m.update(id, func(r *domain.AnalysisRun) { r.Status = domain.AnalysisRunning })
}

func (m *memAnalysisRepo) Complete(_ context.Context, id, mode string, result, metadata map[string]any) error {
	return m.update(id, func(r *domain.AnalysisRun) {
		now := time.Now()
		r.Status = domain.AnalysisCompleted
		r.Mode = mode
		r.Result = result
		r.Metadata = metadata
		r.CompletedAt = &now
	})
}

func (m *memAnalysisRepo) Fail(_ context.Context, id, message string) error {
	return m.update(id, func(r *domain.AnalysisRun) {
		now := time.Now()
		r.Status = domain.AnalysisFailed
		r.Error = message
		r.CompletedAt = &now
	})
}

func (m *memAnalysisRepo) update(id string, fn func(*domain.AnalysisRun)) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	run, ok := m.runs[id]
	if !ok {
		return domain.ErrAnalysisNotFound
	}
	fn(run)
	return nil
}

func (m *memAnalysisRepo) status(id string) domain.AnalysisStatus {
	m.mu.Lock()
	defer m.mu.Unlock()
	if run, ok := m.runs[id]; ok {
		return run.Status
	}
	return ""
}

func (m *memAnalysisRepo) byStatus(status domain.AnalysisStatus) []*domain.AnalysisRun {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*domain.AnalysisRun
	for _, run := range m.runs {
		if run.Status == status {
			cp := *run
			out = append(out, &cp)
		}
	}
	return out
}

type mockWorkflow struct {
	kickoffFn func(ctx context.Context, inputs map[string]any) (string, error)
	waitFn    func(ctx context.Context, kickoffID string) (*domain.WorkflowStatus, error)
}

func (m *mockWorkflow) Kickoff(ctx context.Context, inputs map[string]any) (string, error) {
	if m.kickoffFn != nil {
		return m.kickoffFn(ctx, inputs)
	}
	return "kick-1", nil
}

func (m *mockWorkflow) Status(context.Context, string) (*domain.WorkflowStatus, error) {
	return nil, fmt.Errorf("not implemented")
}

func (m *mockWorkflow) Retry(context.Context, string) (string, error) {
	return "", fmt.Errorf("not implemented")
}

func (m *mockWorkflow) Wait(ctx context.Context, kickoffID string) (*domain.WorkflowStatus, error) {
	if m.waitFn != nil {
		return m.waitFn(ctx, kickoffID)
	}
	return &domain.WorkflowStatus{KickoffID: kickoffID, State: domain.WorkflowSuccess, Result: "- Interview ten customers."}, nil
}

func (m *mockWorkflow) Ping(context.Context) error { return nil }

type mockLimiter struct {
	allowFn func(ctx context.Context, userID string, limit domain.RateLimit) (domain.RateLimitDecision, error)
}

func (m *mockLimiter) Allow(ctx context.Context, userID string, limit domain.RateLimit) (domain.RateLimitDecision, error) {
	if m.allowFn != nil {
		return m.allowFn(ctx, userID, limit)
	}
	return domain.RateLimitDecision{Allowed: true, Limit: limit.Limit, Remaining: limit.Limit - 1}, nil
}

type recorderStub struct {
	mu       sync.Mutex
	gates    []string
	analyses []string
}

func (r *recorderStub) GateEvaluated(stage, status string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.gates = append(r.gates, stage+":"+status)
}

func (r *recorderStub) AnalysisCompleted(mode, trigger string, _ time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.analyses = append(r.analyses, mode+":"+trigger)
}

func (r *recorderStub) AnalysisQueueDepth(int) {}

func (r *recorderStub) analysisEvents() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.analyses...)
}
