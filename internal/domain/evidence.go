package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type Evidence struct {
	ID           uuid.UUID
	ProjectID    uuid.UUID
	Type         string
	Strength     string
	QualityScore *float64
	Title        string
	Content      string
	Source       string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// EvidenceInput carries the writable fields of an evidence item.
type EvidenceInput struct {
	Type         string
	Strength     string
	QualityScore *float64
	Title        string
	Content      string
	Source       string
}

// EvidencePatch is a partial update; nil fields are left unchanged.
type EvidencePatch struct {
	Type         *string
	Strength     *string
	QualityScore *float64
	Title        *string
	Content      *string
	Source       *string
}

func (p EvidencePatch) Empty() bool {
	return p.Type == nil && p.Strength == nil && p.QualityScore == nil &&
		p.Title == nil && p.Content == nil && p.Source == nil
}

type EvidenceRepository interface {
	ListByProject(ctx context.Context, projectID uuid.UUID) ([]Evidence, error)
	GetByID(ctx context.Context, evidenceID uuid.UUID) (*Evidence, error)
	Create(ctx context.Context, projectID uuid.UUID, in EvidenceInput) (*Evidence, error)
	Update(ctx context.Context, evidenceID uuid.UUID, patch EvidencePatch) (*Evidence, error)
	Delete(ctx context.Context, evidenceID uuid.UUID) error
}
