package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pscheid92/startupai/internal/domain"
)

type ProjectRepo struct {
	pool *pgxpool.Pool
}

func NewProjectRepo(pool *pgxpool.Pool) *ProjectRepo {
	return &ProjectRepo{pool: pool}
}

const projectColumns = `id, owner_id, name, stage, gate_status, evidence_quality,
	evidence_count, experiments_count, created_at, updated_at`

func scanProject(row pgx.Row) (*domain.Project, error) {
	var p domain.Project
	err := row.Scan(&p.ID, &p.OwnerID, &p.Name, &p.Stage, &p.GateStatus, &p.EvidenceQuality,
		&p.EvidenceCount, &p.ExperimentsCount, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *ProjectRepo) GetByID(ctx context.Context, projectID uuid.UUID) (*domain.Project, error) {
	p, err := scanProject(r.pool.QueryRow(ctx,
		`SELECT `+projectColumns+` FROM projects WHERE id = $1`, projectID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrProjectNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get project by ID: %w", err)
	}
	return p, nil
}

func (r *ProjectRepo) Create(ctx context.Context, ownerID uuid.UUID, name, stage string) (*domain.Project, error) {
	p, err := scanProject(r.pool.QueryRow(ctx,
		`INSERT INTO projects (owner_id, name, stage) VALUES ($1, $2, $3) RETURNING `+projectColumns,
		ownerID, name, stage))
	if err != nil {
		return nil, fmt.Errorf("failed to create project: %w", err)
	}
	return p, nil
}

func (r *ProjectRepo) UpdateGateSummary(ctx context.Context, projectID uuid.UUID, s domain.GateSummary) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE projects
		SET gate_status = $2, evidence_quality = $3, evidence_count = $4,
		    experiments_count = $5, updated_at = now()
		WHERE id = $1`,
		projectID, s.Status, s.EvidenceQuality, s.EvidenceCount, s.ExperimentsCount)
	if err != nil {
		return fmt.Errorf("failed to update gate summary: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrProjectNotFound
	}
	return nil
}
