package app

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/google/uuid"
	"github.com/pscheid92/startupai/internal/domain"
	"github.com/pscheid92/startupai/internal/gate"
)

// ErrInvalidEvidence wraps every evidence validation failure.
var ErrInvalidEvidence = errors.New("invalid evidence")

func (s *Service) ListEvidence(ctx context.Context, userID, projectID uuid.UUID) ([]domain.Evidence, error) {
	if _, err := s.ownedProject(ctx, userID, projectID); err != nil {
		return nil, err
	}
	return s.evidence.ListByProject(ctx, projectID)
}

func (s *Service) CreateEvidence(ctx context.Context, userID, projectID uuid.UUID, in domain.EvidenceInput) (*domain.Evidence, error) {
	in.Type = strings.ToLower(strings.TrimSpace(in.Type))
	in.Strength = strings.ToLower(strings.TrimSpace(in.Strength))

	if in.Type == "" {
		return nil, fmt.Errorf("%w: type is required", ErrInvalidEvidence)
	}
	if err := validateStrength(in.Strength); err != nil {
		return nil, err
	}
	if err := validateQuality(in.QualityScore); err != nil {
		return nil, err
	}

	if _, err := s.ownedProject(ctx, userID, projectID); err != nil {
		return nil, err
	}
	return s.evidence.Create(ctx, projectID, in)
}

func (s *Service) GetEvidence(ctx context.Context, userID, evidenceID uuid.UUID) (*domain.Evidence, error) {
	return s.ownedEvidence(ctx, userID, evidenceID)
}

func (s *Service) UpdateEvidence(ctx context.Context, userID, evidenceID uuid.UUID, patch domain.EvidencePatch) (*domain.Evidence, error) {
	if patch.Empty() {
		return nil, fmt.Errorf("%w: no fields to update", ErrInvalidEvidence)
	}
	if patch.Type != nil {
		t := strings.ToLower(strings.TrimSpace(*patch.Type))
		if t == "" {
			return nil, fmt.Errorf("%w: type must not be empty", ErrInvalidEvidence)
		}
		patch.Type = &t
	}
	if patch.Strength != nil {
		st := strings.ToLower(strings.TrimSpace(*patch.Strength))
		if err := validateStrength(st); err != nil {
			return nil, err
		}
		patch.Strength = &st
	}
	if err := validateQuality(patch.QualityScore); err != nil {
		return nil, err
	}

	if _, err := s.ownedEvidence(ctx, userID, evidenceID); err != nil {
		return nil, err
	}
	return s.evidence.Update(ctx, evidenceID, patch)
}

func (s *Service) DeleteEvidence(ctx context.Context, userID, evidenceID uuid.UUID) error {
	if _, err := s.ownedEvidence(ctx, userID, evidenceID); err != nil {
		return err
	}
	return s.evidence.Delete(ctx, evidenceID)
}

func (s *Service) ownedEvidence(ctx context.Context, userID, evidenceID uuid.UUID) (*domain.Evidence, error) {
	e, err := s.evidence.GetByID(ctx, evidenceID)
	if err != nil {
		return nil, err
	}
	if _, err := s.ownedProject(ctx, userID, e.ProjectID); err != nil {
		return nil, err
	}
	return e, nil
}

func validateStrength(strength string) error {
	if _, err := gate.ParseStrength(strength); err != nil {
		return fmt.Errorf("%w: strength must be weak, medium or strong", ErrInvalidEvidence)
	}
	return nil
}

func validateQuality(q *float64) error {
	if q == nil {
		return nil
	}
	if math.IsNaN(*q) || *q < 0 || *q > 1 {
		return fmt.Errorf("%w: quality_score must be between 0 and 1", ErrInvalidEvidence)
	}
	return nil
}
