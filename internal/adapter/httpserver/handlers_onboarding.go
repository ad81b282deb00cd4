package httpserver

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pscheid92/startupai/internal/conversation"
	apperrors "github.com/pscheid92/startupai/internal/platform/errors"
)

type briefRequest struct {
	StageData map[string]conversation.TopicAnswer `json:"stage_data"`
}

func (s *Server) registerOnboardingRoutes(api *echo.Group) {
	api.POST("/onboarding/brief", s.handleBuildBrief, s.requireAuth)
}

func (s *Server) handleBuildBrief(c echo.Context) error {
	var req briefRequest
	if err := c.Bind(&req); err != nil {
		return apperrors.ValidationError("Invalid JSON in request body")
	}
	if len(req.StageData) == 0 {
		return apperrors.ValidationError("Missing required fields: stage_data")
	}

	brief := s.app.BuildBrief(req.StageData)
	return writeJSON(c, http.StatusOK, map[string]any{"success": true, "brief": brief})
}
