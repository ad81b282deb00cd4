package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type Project struct {
	ID               uuid.UUID
	OwnerID          uuid.UUID
	Name             string
	Stage            string
	GateStatus       string
	EvidenceQuality  float64
	EvidenceCount    int
	ExperimentsCount int
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// GateSummary is the denormalized gate outcome stored on the project row.
type GateSummary struct {
	Status           string
	EvidenceQuality  float64
	EvidenceCount    int
	ExperimentsCount int
}

type ProjectRepository interface {
	GetByID(ctx context.Context, projectID uuid.UUID) (*Project, error)
	Create(ctx context.Context, ownerID uuid.UUID, name, stage string) (*Project, error)
	UpdateGateSummary(ctx context.Context, projectID uuid.UUID, summary GateSummary) error
}
