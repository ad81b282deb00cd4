package httpserver

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/labstack/echo/v4"
	"github.com/pscheid92/startupai/internal/adapter/metrics"
	"github.com/pscheid92/startupai/internal/analysis"
	"github.com/pscheid92/startupai/internal/app"
	"github.com/pscheid92/startupai/internal/conversation"
	"github.com/pscheid92/startupai/internal/domain"
	"github.com/pscheid92/startupai/internal/gate"
	"github.com/pscheid92/startupai/internal/platform/config"
)

type appService interface {
	EvaluateGate(ctx context.Context, userID, projectID uuid.UUID, stage gate.Stage) (*app.GateResult, error)
	CheckRateLimit(ctx context.Context, userID uuid.UUID, limit domain.RateLimit) (domain.RateLimitDecision, error)
	CrewAvailable() bool

	StartConversation(ctx context.Context, userID uuid.UUID, plan string, userContext map[string]any) *conversation.SessionStart
	ProcessConversationMessage(ctx context.Context, userID uuid.UUID, req conversation.MessageRequest) *conversation.MessageResult
	BuildBrief(answers map[string]conversation.TopicAnswer) *conversation.EntrepreneurBrief

	RunAnalysis(ctx context.Context, userID uuid.UUID, in analysis.Inputs) (*analysis.Result, error)
	SubmitAnalysis(ctx context.Context, userID uuid.UUID, in analysis.Inputs) (*domain.AnalysisRun, error)
	GetAnalysis(ctx context.Context, userID uuid.UUID, analysisID string) (*domain.AnalysisRun, error)

	ListEvidence(ctx context.Context, userID, projectID uuid.UUID) ([]domain.Evidence, error)
	CreateEvidence(ctx context.Context, userID, projectID uuid.UUID, in domain.EvidenceInput) (*domain.Evidence, error)
	GetEvidence(ctx context.Context, userID, evidenceID uuid.UUID) (*domain.Evidence, error)
	UpdateEvidence(ctx context.Context, userID, evidenceID uuid.UUID, patch domain.EvidencePatch) (*domain.Evidence, error)
	DeleteEvidence(ctx context.Context, userID, evidenceID uuid.UUID) error

	Diagnostics(ctx context.Context) *app.Diagnostics
	Ready(ctx context.Context) error
}

// authRecorder counts rejected requests. *metrics.DomainMetrics implements it.
type authRecorder interface {
	AuthFailure(reason string)
}

type Deps struct {
	Config        *config.Config
	App           appService
	Authenticator domain.Authenticator
	// The fields below may be nil.
	HTTPMetrics    *metrics.HTTPMetrics
	AuthRecorder   authRecorder
	MetricsHandler http.Handler
	Clock          clockwork.Clock
}

type Server struct {
	echo   *echo.Echo
	config *config.Config

	app          appService
	auth         domain.Authenticator
	httpMetrics  *metrics.HTTPMetrics
	authRecorder authRecorder
	metrics      http.Handler

	clock     clockwork.Clock
	startTime time.Time
}

func NewServer(d Deps) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	if d.Clock == nil {
		d.Clock = clockwork.NewRealClock()
	}

	srv := &Server{
		echo:         e,
		config:       d.Config,
		app:          d.App,
		auth:         d.Authenticator,
		httpMetrics:  d.HTTPMetrics,
		authRecorder: d.AuthRecorder,
		metrics:      d.MetricsHandler,
		clock:        d.Clock,
		startTime:    d.Clock.Now(),
	}

	srv.registerRoutes()

	return srv
}

func (s *Server) Start() error {
	slog.Info("Starting server", "port", s.config.Port)
	if err := s.echo.Start(":" + s.config.Port); err != nil {
		return fmt.Errorf("failed to start server: %w", err)
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	if err := s.echo.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shutdown server: %w", err)
	}
	return nil
}

func (s *Server) recordAuthFailure(reason string) {
	if s.authRecorder != nil {
		s.authRecorder.AuthFailure(reason)
	}
}
