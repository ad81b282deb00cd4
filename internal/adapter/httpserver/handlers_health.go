package httpserver

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/pscheid92/startupai/internal/app"
	"github.com/pscheid92/startupai/internal/platform/version"
)

const (
	startupProbeTimeout   = 2 * time.Second
	readinessProbeTimeout = 5 * time.Second
)

func (s *Server) registerHealthRoutes() {
	s.echo.GET("/health/startup", s.handleStartup)
	s.echo.GET("/health/live", s.handleLiveness)
	s.echo.GET("/health/ready", s.handleReadiness)
	s.echo.GET("/version", s.handleVersion)
}

func (s *Server) handleStartup(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), startupProbeTimeout)
	defer cancel()

	return s.runHealthChecks(c, ctx)
}

func (s *Server) handleLiveness(c echo.Context) error {
	return writeJSON(c, http.StatusOK, map[string]any{
		"status": "ok",
		"uptime": s.clock.Since(s.startTime).Seconds(),
	})
}

func (s *Server) handleReadiness(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), readinessProbeTimeout)
	defer cancel()

	return s.runHealthChecks(c, ctx)
}

func (s *Server) runHealthChecks(c echo.Context, ctx context.Context) error {
	err := s.app.Ready(ctx)
	if err == nil {
		return writeJSON(c, http.StatusOK, map[string]string{"status": "ready"})
	}

	response := map[string]any{
		"status": "unhealthy",
		"error":  err.Error(),
	}
	var depErr *app.DependencyError
	if errors.As(err, &depErr) {
		response["failed_check"] = depErr.Name
		response["error"] = depErr.Err.Error()
	}
	return writeJSON(c, http.StatusServiceUnavailable, response)
}

func (s *Server) handleVersion(c echo.Context) error {
	return writeJSON(c, http.StatusOK, version.Get())
}
