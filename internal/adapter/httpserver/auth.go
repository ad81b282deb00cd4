package httpserver

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/pscheid92/startupai/internal/domain"
	apperrors "github.com/pscheid92/startupai/internal/platform/errors"
)

const contextKeyUserID = "userID"

// bearerToken accepts "Bearer <token>" or a bare token.
func bearerToken(header string) string {
	header = strings.TrimSpace(header)
	if scheme, token, ok := strings.Cut(header, " "); ok {
		if strings.EqualFold(scheme, "bearer") {
			return strings.TrimSpace(token)
		}
		return ""
	}
	return header
}

// authenticate resolves the caller and stores their ID on the context.
func (s *Server) authenticate(c echo.Context) (uuid.UUID, error) {
	token := bearerToken(c.Request().Header.Get(echo.HeaderAuthorization))
	if token == "" {
		s.recordAuthFailure("missing")
		return uuid.Nil, apperrors.UnauthorizedError("Authentication required. Provide Bearer token.", domain.ErrMissingToken)
	}

	user, err := s.auth.Authenticate(c.Request().Context(), token)
	switch {
	case err == nil:
	case errors.Is(err, domain.ErrAuthUnavailable),
		errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		s.recordAuthFailure("unavailable")
		return uuid.Nil, apperrors.ExternalError("authentication provider unavailable", err)
	case errors.Is(err, domain.ErrInvalidToken), errors.Is(err, domain.ErrMissingToken):
		s.recordAuthFailure("invalid")
		return uuid.Nil, apperrors.UnauthorizedError("Authentication failed", err)
	default:
		s.recordAuthFailure("error")
		return uuid.Nil, apperrors.InternalError("authentication is misconfigured", err)
	}

	c.Set(contextKeyUserID, user.ID)
	return user.ID, nil
}

func (s *Server) requireAuth(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if _, err := s.authenticate(c); err != nil {
			return err
		}
		return next(c)
	}
}

func userIDFrom(c echo.Context) (uuid.UUID, error) {
	id, ok := c.Get(contextKeyUserID).(uuid.UUID)
	if !ok {
		return uuid.Nil, apperrors.InternalError("invalid user ID in context", nil)
	}
	return id, nil
}

func parseUUIDParam(c echo.Context, name string) (uuid.UUID, error) {
	raw := c.Param(name)
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, apperrors.ValidationError("invalid UUID format").WithField(name, raw)
	}
	return id, nil
}
