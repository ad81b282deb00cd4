package httpserver

import (
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pscheid92/startupai/internal/platform/correlation"
)

const maxBodySize = "1M"

func (s *Server) registerRoutes() {
	s.echo.Use(correlationMiddleware)
	s.echo.Use(s.setupRequestLoggerMiddleware())
	// Outside the error middleware so mapped error statuses are observed.
	if s.httpMetrics != nil {
		s.echo.Use(s.httpMetrics.Middleware())
	}
	s.echo.Use(middleware.Recover())
	s.echo.Use(ErrorHandlingMiddleware())
	s.echo.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins:  s.config.AllowedOrigins(),
		AllowMethods:  []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowHeaders:  []string{echo.HeaderContentType, echo.HeaderAuthorization, correlation.HeaderName},
		ExposeHeaders: []string{headerRateLimitLimit, headerRateLimitRemaining, headerConversationStage, headerConversationProgress, headerAnalysisMode, headerExecutionTime, correlation.HeaderName},
	}))
	s.echo.Use(middleware.SecureWithConfig(middleware.SecureConfig{
		XSSProtection:      "",
		ContentTypeNosniff: "nosniff",
		XFrameOptions:      "DENY",
		HSTSMaxAge:         63072000, // 2 years; only sent over HTTPS
		ReferrerPolicy:     "no-referrer",
	}))
	s.echo.Use(middleware.BodyLimit(maxBodySize))

	s.registerHealthRoutes()
	if s.metrics != nil {
		s.echo.GET("/metrics", echo.WrapHandler(s.metrics))
	}

	api := s.echo.Group("/api", newRateLimiter(s.config.HTTPRateLimit, s.config.HTTPRateBurst))
	s.registerGateRoutes(api)
	s.registerCrewRoutes(api)
	s.registerEvidenceRoutes(api)
	s.registerOnboardingRoutes(api)
}

func (s *Server) setupRequestLoggerMiddleware() echo.MiddlewareFunc {
	return middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogStatus:  true,
		LogURI:     true,
		LogMethod:  true,
		LogLatency: true,
		LogError:   true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			attrs := []any{
				"method", v.Method,
				"uri", v.URI,
				"status", v.Status,
				"latency", v.Latency,
			}
			if v.Error != nil {
				attrs = append(attrs, "error", v.Error)
			}
			slog.InfoContext(c.Request().Context(), "Request", attrs...)
			return nil
		},
	})
}
