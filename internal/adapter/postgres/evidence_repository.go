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

type EvidenceRepo struct {
	pool *pgxpool.Pool
}

func NewEvidenceRepo(pool *pgxpool.Pool) *EvidenceRepo {
	return &EvidenceRepo{pool: pool}
}

const evidenceColumns = `id, project_id, type, strength, quality_score, title, content, source, created_at, updated_at`

func scanEvidence(row pgx.Row) (*domain.Evidence, error) {
	var e domain.Evidence
	err := row.Scan(&e.ID, &e.ProjectID, &e.Type, &e.Strength, &e.QualityScore,
		&e.Title, &e.Content, &e.Source, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &e, nil
}

func (r *EvidenceRepo) ListByProject(ctx context.Context, projectID uuid.UUID) ([]domain.Evidence, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+evidenceColumns+` FROM evidence WHERE project_id = $1 ORDER BY created_at, id`, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to list evidence: %w", err)
	}
	defer rows.Close()

	items := []domain.Evidence{}
	for rows.Next() {
		e, err := scanEvidence(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan evidence: %w", err)
		}
		items = append(items, *e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list evidence: %w", err)
	}
	return items, nil
}

func (r *EvidenceRepo) GetByID(ctx context.Context, evidenceID uuid.UUID) (*domain.Evidence, error) {
	e, err := scanEvidence(r.pool.QueryRow(ctx,
		`SELECT `+evidenceColumns+` FROM evidence WHERE id = $1`, evidenceID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrEvidenceNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get evidence by ID: %w", err)
	}
	return e, nil
}

func (r *EvidenceRepo) Create(ctx context.Context, projectID uuid.UUID, in domain.EvidenceInput) (*domain.Evidence, error) {
	e, err := scanEvidence(r.pool.QueryRow(ctx, `
		INSERT INTO evidence (project_id, type, strength, quality_score, title, content, source)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING `+evidenceColumns,
		projectID, in.Type, in.Strength, in.QualityScore, in.Title, in.Content, in.Source))
	if err != nil {
		return nil, fmt.Errorf("failed to create evidence: %w", err)
	}
	return e, nil
}

func (r *EvidenceRepo) Update(ctx context.Context, evidenceID uuid.UUID, p domain.EvidencePatch) (*domain.Evidence, error) {
	e, err := scanEvidence(r.pool.QueryRow(ctx, `
		UPDATE evidence SET
			type          = COALESCE($2, type),
			strength      = COALESCE($3, strength),
			quality_score = COALESCE($4, quality_score),
			title         = COALESCE($5, title),
			content       = COALESCE($6, content),
			source        = COALESCE($7, source),
			updated_at    = now()
		WHERE id = $1
		RETURNING `+evidenceColumns,
		evidenceID, p.Type, p.Strength, p.QualityScore, p.Title, p.Content, p.Source))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrEvidenceNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update evidence: %w", err)
	}
	return e, nil
}

func (r *EvidenceRepo) Delete(ctx context.Context, evidenceID uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM evidence WHERE id = $1`, evidenceID)
	if err != nil {
		return fmt.Errorf("failed to delete evidence: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrEvidenceNotFound
	}
	return nil
}
