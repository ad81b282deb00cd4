package httpserver

import (
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/pscheid92/startupai/internal/gate"
	apperrors "github.com/pscheid92/startupai/internal/platform/errors"
)

type gateEvaluateRequest struct {
	ProjectID string `json:"project_id"`
	Stage     string `json:"stage"`
}

func (s *Server) registerGateRoutes(api *echo.Group) {
	api.POST("/gate-evaluate", s.handleGateEvaluate, s.requireAuth)
	api.OPTIONS("/gate-evaluate", func(c echo.Context) error {
		return c.NoContent(http.StatusOK)
	})
}

func (s *Server) handleGateEvaluate(c echo.Context) error {
	ctx := c.Request().Context()

	userID, err := userIDFrom(c)
	if err != nil {
		return err
	}

	var req gateEvaluateRequest
	if err := c.Bind(&req); err != nil {
		return apperrors.ValidationError("Invalid JSON in request body")
	}

	if strings.TrimSpace(req.ProjectID) == "" || strings.TrimSpace(req.Stage) == "" {
		return apperrors.ValidationError("Missing required fields: project_id, stage")
	}

	stage, err := gate.ParseStage(req.Stage)
	if err != nil {
		return apperrors.ValidationError(err.Error())
	}

	projectID, err := uuid.Parse(strings.TrimSpace(req.ProjectID))
	if err != nil {
		return apperrors.ValidationError("invalid UUID format").WithField("project_id", req.ProjectID)
	}

	res, err := s.app.EvaluateGate(ctx, userID, projectID, stage)
	if err != nil {
		return domainError(err, "failed to evaluate gate").WithField("project_id", projectID.String())
	}

	return writeJSON(c, http.StatusOK, res)
}
