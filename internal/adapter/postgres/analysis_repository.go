package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pscheid92/startupai/internal/domain"
)

type AnalysisRepo struct {
	pool *pgxpool.Pool
}

func NewAnalysisRepo(pool *pgxpool.Pool) *AnalysisRepo {
	return &AnalysisRepo{pool: pool}
}

func (r *AnalysisRepo) Create(ctx context.Context, run *domain.AnalysisRun) error {
	inputs := run.Inputs
	if inputs == nil {
		inputs = map[string]any{}
	}

	_, err := r.pool.Exec(ctx, `
		INSERT INTO analysis_runs (id, user_id, project_id, status, inputs, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		run.ID, run.UserID, run.ProjectID, string(run.Status), inputs, run.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create analysis run: %w", err)
	}
	return nil
}

func (r *AnalysisRepo) Get(ctx context.Context, analysisID string) (*domain.AnalysisRun, error) {
	var (
		run                      domain.AnalysisRun
		status                   string
		inputs, result, metadata []byte
	)
	err := r.pool.QueryRow(ctx, `
		SELECT id, user_id, project_id, status, mode, inputs, result, metadata, error, created_at, completed_at
		FROM analysis_runs WHERE id = $1`, analysisID).
		Scan(&run.ID, &run.UserID, &run.ProjectID, &status, &run.Mode, &inputs, &result, &metadata,
			&run.Error, &run.CreatedAt, &run.CompletedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrAnalysisNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get analysis run: %w", err)
	}
	run.Status = domain.AnalysisStatus(status)

	for _, f := range []struct {
		raw []byte
		dst *map[string]any
	}{{inputs, &run.Inputs}, {result, &run.Result}, {metadata, &run.Metadata}} {
		if len(f.raw) == 0 {
			continue
		}
		if err := json.Unmarshal(f.raw, f.dst); err != nil {
			return nil, fmt.Errorf("failed to decode analysis run %s: %w", analysisID, err)
		}
	}
	return &run, nil
}

func (r *AnalysisRepo) MarkRunning(ctx context.Context, analysisID string) error {
	return r.transition(ctx, `
		UPDATE analysis_runs SET status = 'running'
		WHERE id = $1 AND status = 'queued'`, analysisID)
}

func (r *AnalysisRepo) Complete(ctx context.Context, analysisID, mode string, result, metadata map[string]any) error {
	return r.transition(ctx, `
		UPDATE analysis_runs
		SET status = 'completed', mode = $2, result = $3, metadata = $4, completed_at = now()
		WHERE id = $1 AND status IN ('queued', 'running')`,
		analysisID, mode, result, metadata)
}

func (r *AnalysisRepo) Fail(ctx context.Context, analysisID, message string) error {
	return r.transition(ctx, `
		UPDATE analysis_runs
		SET status = 'failed', error = $2, completed_at = now()
		WHERE id = $1 AND status IN ('queued', 'running')`,
		analysisID, message)
}

// CountStale counts queued or running runs created before cutoff.
func (r *AnalysisRepo) CountStale(ctx context.Context, cutoff time.Time) (int64, error) {
	var n int64
	err := r.pool.QueryRow(ctx, `
		SELECT count(*) FROM analysis_runs
		WHERE status IN ('queued', 'running') AND created_at < $1`, cutoff).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count stale analysis runs: %w", err)
	}
	return n, nil
}

// FailStale fails runs still queued or running that were created before
// cutoff. Workers keep their queue in memory, so such runs were orphaned by a
// process that exited without draining.
func (r *AnalysisRepo) FailStale(ctx context.Context, cutoff time.Time, message string) (int64, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE analysis_runs
		SET status = 'failed', error = $2, completed_at = now()
		WHERE status IN ('queued', 'running') AND created_at < $1`,
		cutoff, message)
	if err != nil {
		return 0, fmt.Errorf("failed to fail stale analysis runs: %w", err)
	}
	return tag.RowsAffected(), nil
}

// transition applies a guarded status change; terminal runs are never rewritten.
func (r *AnalysisRepo) transition(ctx context.Context, sql string, args ...any) error {
	tag, err := r.pool.Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("failed to update analysis run: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrAnalysisNotFound
	}
	return nil
}
