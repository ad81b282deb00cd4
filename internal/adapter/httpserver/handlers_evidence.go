package httpserver

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/pscheid92/startupai/internal/domain"
	apperrors "github.com/pscheid92/startupai/internal/platform/errors"
)

type evidenceRequest struct {
	Type         string   `json:"type"`
	Strength     string   `json:"strength"`
	QualityScore *float64 `json:"quality_score"`
	Title        string   `json:"title"`
	Content      string   `json:"content"`
	Source       string   `json:"source"`
}

type evidencePatchRequest struct {
	Type         *string  `json:"type"`
	Strength     *string  `json:"strength"`
	QualityScore *float64 `json:"quality_score"`
	Title        *string  `json:"title"`
	Content      *string  `json:"content"`
	Source       *string  `json:"source"`
}

type evidenceResponse struct {
	ID           string    `json:"id"`
	ProjectID    string    `json:"project_id"`
	Type         string    `json:"type"`
	Strength     string    `json:"strength"`
	QualityScore *float64  `json:"quality_score"`
	Title        string    `json:"title"`
	Content      string    `json:"content"`
	Source       string    `json:"source"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func toEvidenceResponse(e *domain.Evidence) evidenceResponse {
	return evidenceResponse{
		ID:           e.ID.String(),
		ProjectID:    e.ProjectID.String(),
		Type:         e.Type,
		Strength:     e.Strength,
		QualityScore: e.QualityScore,
		Title:        e.Title,
		Content:      e.Content,
		Source:       e.Source,
		CreatedAt:    e.CreatedAt,
		UpdatedAt:    e.UpdatedAt,
	}
}

func (s *Server) registerEvidenceRoutes(api *echo.Group) {
	api.GET("/projects/:id/evidence", s.handleListEvidence, s.requireAuth)
	api.POST("/projects/:id/evidence", s.handleCreateEvidence, s.requireAuth)
	api.GET("/evidence/:id", s.handleGetEvidence, s.requireAuth)
	api.PATCH("/evidence/:id", s.handleUpdateEvidence, s.requireAuth)
	api.DELETE("/evidence/:id", s.handleDeleteEvidence, s.requireAuth)
}

func (s *Server) handleListEvidence(c echo.Context) error {
	userID, err := userIDFrom(c)
	if err != nil {
		return err
	}
	projectID, err := parseUUIDParam(c, "id")
	if err != nil {
		return err
	}

	rows, err := s.app.ListEvidence(c.Request().Context(), userID, projectID)
	if err != nil {
		return domainError(err, "failed to list evidence").WithField("project_id", projectID.String())
	}

	out := make([]evidenceResponse, 0, len(rows))
	for i := range rows {
		out = append(out, toEvidenceResponse(&rows[i]))
	}
	return writeJSON(c, http.StatusOK, map[string]any{"evidence": out, "count": len(out)})
}

func (s *Server) handleCreateEvidence(c echo.Context) error {
	userID, err := userIDFrom(c)
	if err != nil {
		return err
	}
	projectID, err := parseUUIDParam(c, "id")
	if err != nil {
		return err
	}

	var req evidenceRequest
	if err := c.Bind(&req); err != nil {
		return apperrors.ValidationError("Invalid JSON in request body")
	}

	ev, err := s.app.CreateEvidence(c.Request().Context(), userID, projectID, domain.EvidenceInput{
		Type:         req.Type,
		Strength:     req.Strength,
		QualityScore: req.QualityScore,
		Title:        req.Title,
		Content:      req.Content,
		Source:       req.Source,
	})
	if err != nil {
		return domainError(err, "failed to create evidence").WithField("project_id", projectID.String())
	}

	return writeJSON(c, http.StatusCreated, toEvidenceResponse(ev))
}

func (s *Server) handleGetEvidence(c echo.Context) error {
	userID, err := userIDFrom(c)
	if err != nil {
		return err
	}
	evidenceID, err := parseUUIDParam(c, "id")
	if err != nil {
		return err
	}

	ev, err := s.app.GetEvidence(c.Request().Context(), userID, evidenceID)
	if err != nil {
		return domainError(err, "failed to load evidence").WithField("evidence_id", evidenceID.String())
	}
	return writeJSON(c, http.StatusOK, toEvidenceResponse(ev))
}

func (s *Server) handleUpdateEvidence(c echo.Context) error {
	userID, err := userIDFrom(c)
	if err != nil {
		return err
	}
	evidenceID, err := parseUUIDParam(c, "id")
	if err != nil {
		return err
	}

	var req evidencePatchRequest
	if err := c.Bind(&req); err != nil {
		return apperrors.ValidationError("Invalid JSON in request body")
	}

	ev, err := s.app.UpdateEvidence(c.Request().Context(), userID, evidenceID, domain.EvidencePatch{
		Type:         req.Type,
		Strength:     req.Strength,
		QualityScore: req.QualityScore,
		Title:        req.Title,
		Content:      req.Content,
		Source:       req.Source,
	})
	if err != nil {
		return domainError(err, "failed to update evidence").WithField("evidence_id", evidenceID.String())
	}
	return writeJSON(c, http.StatusOK, toEvidenceResponse(ev))
}

func (s *Server) handleDeleteEvidence(c echo.Context) error {
	userID, err := userIDFrom(c)
	if err != nil {
		return err
	}
	evidenceID, err := parseUUIDParam(c, "id")
	if err != nil {
		return err
	}

	if err := s.app.DeleteEvidence(c.Request().Context(), userID, evidenceID); err != nil {
		return domainError(err, "failed to delete evidence").WithField("evidence_id", evidenceID.String())
	}
	return c.NoContent(http.StatusNoContent)
}
