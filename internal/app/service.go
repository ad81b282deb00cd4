package app

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/pscheid92/startupai/internal/analysis"
	"github.com/pscheid92/startupai/internal/conversation"
	"github.com/pscheid92/startupai/internal/domain"
	"golang.org/x/sync/singleflight"
)

// Recorder receives business events. The metrics adapter implements it.
type Recorder interface {
	GateEvaluated(stage, status string)
	AnalysisCompleted(mode, trigger string, elapsed time.Duration)
	AnalysisQueueDepth(n int)
}

type noopRecorder struct{}

func (noopRecorder) GateEvaluated(string, string) {}
func (noopRecorder) AnalysisCompleted(string, string, time.Duration) {}
func (noopRecorder) AnalysisQueueDepth(int) {}

// Service is the application layer: the only component that references
// multiple domain components. It orchestrates all use cases.
type Service struct {
	projects     domain.ProjectRepository
	evidence     domain.EvidenceRepository
	limiter      domain.RateLimiter
	conversation *conversation.Engine
	analysis     *analysis.Engine
	jobs         *AnalysisJobs
	checks       []HealthCheck
	settings     Settings
	recorder     Recorder
	clock        clockwork.Clock
	gateGroup    singleflight.Group
}

// Settings is the configuration surface reported by diagnostics.
type Settings struct {
	Environment      string
	CrewConfigured   bool
	AuthMode         string
	RateLimitBackend string
	PollInterval     time.Duration
	CrewTimeout      time.Duration
}

type Deps struct {
	Projects     domain.ProjectRepository
	Evidence     domain.EvidenceRepository
	Limiter      domain.RateLimiter
	Conversation *conversation.Engine
	Analysis     *analysis.Engine
	Jobs         *AnalysisJobs
	Checks       []HealthCheck
	Settings     Settings
	// Recorder may be nil.
	Recorder Recorder
	Clock    clockwork.Clock
}

func NewService(d Deps) *Service {
	if d.Recorder == nil {
		d.Recorder = noopRecorder{}
	}
	return &Service{
		projects:     d.Projects,
		evidence:     d.Evidence,
		limiter:      d.Limiter,
		conversation: d.Conversation,
		analysis:     d.Analysis,
		jobs:         d.Jobs,
		checks:       d.Checks,
		settings:     d.Settings,
		recorder:     d.Recorder,
		clock:        d.Clock,
	}
}

// CheckRateLimit consumes one request from the caller's bucket.
func (s *Service) CheckRateLimit(ctx context.Context, userID uuid.UUID, limit domain.RateLimit) (domain.RateLimitDecision, error) {
	return s.limiter.Allow(ctx, userID.String(), limit)
}

// CrewAvailable reports whether analyses run on the crew runtime.
func (s *Service) CrewAvailable() bool {
	return s.analysis.CrewAvailable()
}

// ownedProject loads a project and checks the caller owns it.
func (s *Service) ownedProject(ctx context.Context, userID, projectID uuid.UUID) (*domain.Project, error) {
	p, err := s.projects.GetByID(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if p.OwnerID != userID {
		return nil, domain.ErrNotOwner
	}
	return p, nil
}
