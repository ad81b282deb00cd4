package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/pscheid92/startupai/internal/analysis"
	"github.com/pscheid92/startupai/internal/app"
	"github.com/pscheid92/startupai/internal/conversation"
	"github.com/pscheid92/startupai/internal/domain"
	"github.com/pscheid92/startupai/internal/gate"
	"github.com/pscheid92/startupai/internal/platform/config"
)

// --- Mock implementations ---

type mockAppService struct {
	evaluateGateFn      func(ctx context.Context, userID, projectID uuid.UUID, stage gate.Stage) (*app.GateResult, error)
	checkRateLimitFn    func(ctx context.Context, userID uuid.UUID, limit domain.RateLimit) (domain.RateLimitDecision, error)
	crewAvailable       bool
	startConversationFn func(ctx context.Context, userID uuid.UUID, plan string, userContext map[string]any) *conversation.SessionStart
	processMessageFn    func(ctx context.Context, userID uuid.UUID, req conversation.MessageRequest) *conversation.MessageResult
	buildBriefFn        func(answers map[string]conversation.TopicAnswer) *conversation.EntrepreneurBrief
	runAnalysisFn       func(ctx context.Context, userID uuid.UUID, in analysis.Inputs) (*analysis.Result, error)
	submitAnalysisFn    func(ctx context.Context, userID uuid.UUID, in analysis.Inputs) (*domain.AnalysisRun, error)
	getAnalysisFn       func(ctx context.Context, userID uuid.UUID, analysisID string) (*domain.AnalysisRun, error)
	listEvidenceFn      func(ctx context.Context, userID, projectID uuid.UUID) ([]domain.Evidence, error)
	createEvidenceFn    func(ctx context.Context, userID, projectID uuid.UUID, in domain.EvidenceInput) (*domain.Evidence, error)
	getEvidenceFn       func(ctx context.Context, userID, evidenceID uuid.UUID) (*domain.Evidence, error)
	updateEvidenceFn    func(ctx context.Context, userID, evidenceID uuid.UUID, patch domain.EvidencePatch) (*domain.Evidence, error)
	deleteEvidenceFn    func(ctx context.Context, userID, evidenceID uuid.UUID) error
	diagnosticsFn       func(ctx context.Context) *app.Diagnostics
	readyFn             func(ctx context.Context) error
}

func (m *mockAppService) EvaluateGate(ctx context.Context, userID, projectID uuid.UUID, stage gate.Stage) (*app.GateResult, error) {
	if m.evaluateGateFn != nil {
		return m.evaluateGateFn(ctx, userID, projectID, stage)
	}
	return nil, errors.New("not implemented")
}

func (m *mockAppService) CheckRateLimit(ctx context.Context, userID uuid.UUID, limit domain.RateLimit) (domain.RateLimitDecision, error) {
	if m.checkRateLimitFn != nil {
		return m.checkRateLimitFn(ctx, userID, limit)
	}
	return domain.RateLimitDecision{Allowed: true, Limit: limit.Limit, Remaining: limit.Limit - 1}, nil
}

func (m *mockAppService) CrewAvailable() bool { return m.crewAvailable }

func (m *mockAppService) StartConversation(ctx context.Context, userID uuid.UUID, plan string, userContext map[string]any) *conversation.SessionStart {
	if m.startConversationFn != nil {
		return m.startConversationFn(ctx, userID, plan, userContext)
	}
	return &conversation.SessionStart{Introduction: "Hi!", FirstQuestion: "What are you building?"}
}

func (m *mockAppService) ProcessConversationMessage(ctx context.Context, userID uuid.UUID, req conversation.MessageRequest) *conversation.MessageResult {
	if m.processMessageFn != nil {
		return m.processMessageFn(ctx, userID, req)
	}
	return &conversation.MessageResult{SessionID: req.SessionID}
}

func (m *mockAppService) BuildBrief(answers map[string]conversation.TopicAnswer) *conversation.EntrepreneurBrief {
	if m.buildBriefFn != nil {
		return m.buildBriefFn(answers)
	}
	return &conversation.EntrepreneurBrief{}
}

func (m *mockAppService) RunAnalysis(ctx context.Context, userID uuid.UUID, in analysis.Inputs) (*analysis.Result, error) {
	if m.runAnalysisFn != nil {
		return m.runAnalysisFn(ctx, userID, in)
	}
	return nil, errors.New("not implemented")
}

func (m *mockAppService) SubmitAnalysis(ctx context.Context, userID uuid.UUID, in analysis.Inputs) (*domain.AnalysisRun, error) {
	if m.submitAnalysisFn != nil {
		return m.submitAnalysisFn(ctx, userID, in)
	}
	return nil, errors.New("not implemented")
}

func (m *mockAppService) GetAnalysis(ctx context.Context, userID uuid.UUID, analysisID string) (*domain.AnalysisRun, error) {
	if m.getAnalysisFn != nil {
		return m.getAnalysisFn(ctx, userID, analysisID)
	}
	return nil, domain.ErrAnalysisNotFound
}

func (m *mockAppService) ListEvidence(ctx context.Context, userID, projectID uuid.UUID) ([]domain.Evidence, error) {
	if m.listEvidenceFn != nil {
		return m.listEvidenceFn(ctx, userID, projectID)
	}
	return []domain.Evidence{}, nil
}

func (m *mockAppService) CreateEvidence(ctx context.Context, userID, projectID uuid.UUID, in domain.EvidenceInput) (*domain.Evidence, error) {
	if m.createEvidenceFn != nil {
		return m.createEvidenceFn(ctx, userID, projectID, in)
	}
	return nil, errors.New("not implemented")
}

func (m *mockAppService) GetEvidence(ctx context.Context, userID, evidenceID uuid.UUID) (*domain.Evidence, error) {
	if m.getEvidenceFn != nil {
		return m.getEvidenceFn(ctx, userID, evidenceID)
	}
	return nil, domain.ErrEvidenceNotFound
}

func (m *mockAppService) UpdateEvidence(ctx context.Context, userID, evidenceID uuid.UUID, patch domain.EvidencePatch) (*domain.Evidence, error) {
	if m.updateEvidenceFn != nil {
		return m.updateEvidenceFn(ctx, userID, evidenceID, patch)
	}
	return nil, errors.New("not implemented")
}

func (m *mockAppService) DeleteEvidence(ctx context.Context, userID, evidenceID uuid.UUID) error {
	if m.deleteEvidenceFn != nil {
		return m.deleteEvidenceFn(ctx, userID, evidenceID)
	}
	return nil
}

func (m *mockAppService) Diagnostics(ctx context.Context) *app.Diagnostics {
	if m.diagnosticsFn != nil {
		return m.diagnosticsFn(ctx)
	}
	return &app.Diagnostics{Status: "ok"}
}

func (m *mockAppService) Ready(ctx context.Context) error {
	if m.readyFn != nil {
		return m.readyFn(ctx)
	}
	return nil
}

// mockAuthenticator accepts validToken as testUserID.
type mockAuthenticator struct {
	err error
}

const validToken = "valid-token"

var testUserID = uuid.MustParse("7d4c1d2e-8f1a-4c3b-9e2d-0a1b2c3d4e5f")

func (m *mockAuthenticator) Authenticate(_ context.Context, token string) (*domain.User, error) {
	if m.err != nil {
		return nil, m.err
	}
	if token != validToken {
		return nil, domain.ErrInvalidToken
	}
	return &domain.User{ID: testUserID, Email: "founder@example.com"}, nil
}

type authFailureStub struct {
	reasons []string
}

func (a *authFailureStub) AuthFailure(reason string) { a.reasons = append(a.reasons, reason) }

// --- Test helpers ---

func newTestServer(t *testing.T, app appService, opts ...func(*Deps)) *Server {
	t.Helper()

	d := Deps{
		Config: &config.Config{
			Port:               "0",
			CORSAllowedOrigins: "*",
			HTTPRateLimit:      1000,
			HTTPRateBurst:      1000,
			SupabaseJWTSecret:  "secret",
		},
		App:           app,
		Authenticator: &mockAuthenticator{},
		Clock:         clockwork.NewFakeClock(),
	}
	for _, opt := range opts {
		opt(&d)
	}
	return NewServer(d)
}

func withAuthenticator(a *mockAuthenticator) func(*Deps) {
	return func(d *Deps) { d.Authenticator = a }
}

func withAuthRecorder(r authRecorder) func(*Deps) {
	return func(d *Deps) { d.AuthRecorder = r }
}

// do sends a request through the full middleware stack.
func do(srv *Server, method, path, body, token string) *httptest.ResponseRecorder {
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	srv.echo.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
	return body
}
