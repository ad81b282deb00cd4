package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type AnalysisStatus string

const (
	AnalysisQueued    AnalysisStatus = "queued"
	AnalysisRunning   AnalysisStatus = "running"
	AnalysisCompleted AnalysisStatus = "completed"
	AnalysisFailed    AnalysisStatus = "failed"
)

func (s AnalysisStatus) Terminal() bool {
	return s == AnalysisCompleted || s == AnalysisFailed
}

// AnalysisRun is a persisted background analysis job.
type AnalysisRun struct {
	ID          string
	UserID      uuid.UUID
	ProjectID   string
	Status      AnalysisStatus
	Mode        string
	Inputs      map[string]any
	Result      map[string]any
	Metadata    map[string]any
	Error       string
	CreatedAt   time.Time
	CompletedAt *time.Time
}

type AnalysisRepository interface {
	Create(ctx context.Context, run *AnalysisRun) error
	Get(ctx context.Context, analysisID string) (*AnalysisRun, error)
	MarkRunning(ctx context.Context, analysisID string) error
	Complete(ctx context.Context, analysisID, mode string, result, metadata map[string]any) error
	Fail(ctx context.Context, analysisID, message string) error
}
