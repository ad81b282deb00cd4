package app

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
	"github.com/pscheid92/startupai/internal/analysis"
	"github.com/pscheid92/startupai/internal/domain"
)

const (
	triggerForeground = "foreground"
	triggerBackground = "background"
)

// RunAnalysis normalizes the inputs and runs the analysis in the caller's
// request. Invalid inputs return *analysis.MissingFieldsError; the run itself
// never fails because the engine degrades to its fallback.
func (s *Service) RunAnalysis(ctx context.Context, userID uuid.UUID, in analysis.Inputs) (*analysis.Result, error) {
	if err := in.Normalize(); err != nil {
		return nil, err
	}

	start := s.clock.Now()
	res := s.analysis.Run(ctx, in, userID.String())
	s.recorder.AnalysisCompleted(res.Metadata.Mode, triggerForeground, s.clock.Since(start))

	slog.InfoContext(ctx, "Analysis completed",
		"analysis_id", res.AnalysisID,
		"mode", res.Metadata.Mode,
		"project_id", in.ProjectID)
	return res, nil
}

// SubmitAnalysis queues a background analysis and returns the queued run.
func (s *Service) SubmitAnalysis(ctx context.Context, userID uuid.UUID, in analysis.Inputs) (*domain.AnalysisRun, error) {
	return s.jobs.Submit(ctx, userID, in)
}

func (s *Service) GetAnalysis(ctx context.Context, userID uuid.UUID, analysisID string) (*domain.AnalysisRun, error) {
	return s.jobs.Get(ctx, userID, analysisID)
}
