package httpserver

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pscheid92/startupai/internal/analysis"
	"github.com/pscheid92/startupai/internal/app"
	"github.com/pscheid92/startupai/internal/domain"
	"github.com/pscheid92/startupai/internal/platform/correlation"
	apperrors "github.com/pscheid92/startupai/internal/platform/errors"
)

// correlationMiddleware adopts a well-formed inbound X-Correlation-ID or
// mints one, and echoes it on the response.
func correlationMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		id := correlation.FromHeader(c.Request().Header.Get(correlation.HeaderName))
		ctx := correlation.WithID(c.Request().Context(), id)
		c.SetRequest(c.Request().WithContext(ctx))
		c.Response().Header().Set(correlation.HeaderName, id)
		return next(c)
	}
}

func ErrorHandlingMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			err := next(c)
			if err == nil {
				return nil
			}

			var structuredErr *apperrors.Error
			var httpErr *echo.HTTPError
			if errors.As(err, &httpErr) {
				structuredErr = WrapHTTPError(httpErr)
			} else {
				structuredErr = apperrors.AsStructuredError(err)
			}
			logError(c, structuredErr)

			if err := c.JSON(structuredErr.HTTPStatus(), structuredErr.ToResponse()); err != nil {
				return fmt.Errorf("failed to write error response: %w", err)
			}
			return nil
		}
	}
}

func logError(c echo.Context, err *apperrors.Error) {
	ctx := c.Request().Context()
	attrs := []any{
		"error_type", err.Type,
		"message", err.Message,
		"path", c.Request().URL.Path,
		"method", c.Request().Method,
		"status", err.HTTPStatus(),
	}

	for k, v := range err.Context {
		attrs = append(attrs, k, v)
	}

	if userID := c.Get(contextKeyUserID); userID != nil {
		attrs = append(attrs, "user_id", userID)
	}

	switch err.Type {
	case apperrors.TypeValidation:
		slog.InfoContext(ctx, "Validation error", attrs...)
	case apperrors.TypeNotFound:
		slog.InfoContext(ctx, "Not found", attrs...)
	case apperrors.TypeUnauthorized, apperrors.TypeForbidden:
		if err.Cause != nil {
			attrs = append(attrs, "cause", err.Cause)
		}
		slog.InfoContext(ctx, "Access denied", attrs...)
	case apperrors.TypeRateLimited:
		slog.InfoContext(ctx, "Rate limited", attrs...)
	case apperrors.TypeConflict:
		slog.WarnContext(ctx, "Conflict", attrs...)
	case apperrors.TypeInternal:
		if err.Cause != nil {
			attrs = append(attrs, "cause", err.Cause)
		}
		slog.ErrorContext(ctx, "Internal error", attrs...)
	case apperrors.TypeExternal:
		if err.Cause != nil {
			attrs = append(attrs, "cause", err.Cause)
		}
		slog.ErrorContext(ctx, "External service error", attrs...)
	default:
		slog.ErrorContext(ctx, "Unknown error type", attrs...)
	}
}

// domainError maps application errors to structured API errors. Anything
// unrecognised becomes an internal error carrying message.
func domainError(err error, message string) *apperrors.Error {
	var missing *analysis.MissingFieldsError
	switch {
	case errors.Is(err, domain.ErrProjectNotFound):
		return apperrors.NotFoundError("project not found")
	case errors.Is(err, domain.ErrEvidenceNotFound):
		return apperrors.NotFoundError("evidence not found")
	case errors.Is(err, domain.ErrAnalysisNotFound):
		return apperrors.NotFoundError("analysis not found")
	case errors.Is(err, domain.ErrNotOwner):
		return apperrors.ForbiddenError("you do not have access to this resource")
	case errors.Is(err, domain.ErrQueueFull):
		return apperrors.RateLimitedError("analysis queue is full, please try again shortly")
	case errors.Is(err, app.ErrInvalidEvidence):
		return apperrors.ValidationError(err.Error())
	case errors.As(err, &missing):
		return apperrors.ValidationError(missing.Error())
	default:
		return apperrors.InternalError(message, err)
	}
}

func WrapHTTPError(httpErr *echo.HTTPError) *apperrors.Error {
	message := "internal server error"
	if httpErr.Message != nil {
		if msg, ok := httpErr.Message.(string); ok {
			message = msg
		}
	}

	var errType apperrors.ErrorType
	switch httpErr.Code {
	case http.StatusBadRequest:
		errType = apperrors.TypeValidation
	case http.StatusUnauthorized:
		errType = apperrors.TypeUnauthorized
	case http.StatusForbidden:
		errType = apperrors.TypeForbidden
	case http.StatusNotFound:
		errType = apperrors.TypeNotFound
	case http.StatusConflict:
		errType = apperrors.TypeConflict
	case http.StatusTooManyRequests:
		errType = apperrors.TypeRateLimited
	case http.StatusBadGateway, http.StatusServiceUnavailable:
		errType = apperrors.TypeExternal
	default:
		errType = apperrors.TypeInternal
	}

	err := &apperrors.Error{
		Type:    errType,
		Message: message,
		Context: make(map[string]any),
	}

	if httpErr.Internal != nil {
		err.Cause = httpErr.Internal
	}

	return err
}
