package httpserver

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/pscheid92/startupai/internal/analysis"
	"github.com/pscheid92/startupai/internal/app"
	"github.com/pscheid92/startupai/internal/domain"
	"github.com/pscheid92/startupai/internal/platform/correlation"
	apperrors "github.com/pscheid92/startupai/internal/platform/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMiddlewareWithStructuredError(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	handler := ErrorHandlingMiddleware()(func(c echo.Context) error {
		return apperrors.ValidationError("invalid input")
	})

	err := handler(c)
	require.NoError(t, err) // ErrorHandlingMiddleware handles the error, doesn't return it

	assert.Equal(t, http.StatusBadRequest, rec.Code)

	var resp apperrors.ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "invalid input", resp.Error)
	assert.Equal(t, apperrors.TypeValidation, resp.Type)
}

func TestMiddlewareWithStandardError(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	handler := ErrorHandlingMiddleware()(func(c echo.Context) error {
		return errors.New("standard error")
	})

	require.NoError(t, handler(c))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)

	var resp apperrors.ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "internal server error", resp.Error)
	assert.Equal(t, apperrors.TypeInternal, resp.Type)
}

func TestMiddlewareWithEchoHTTPError(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	handler := ErrorHandlingMiddleware()(func(c echo.Context) error {
		return echo.ErrNotFound
	})

	require.NoError(t, handler(c))

	assert.Equal(t, http.StatusNotFound, rec.Code)
	var resp apperrors.ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, apperrors.TypeNotFound, resp.Type)
}

func TestMiddlewareWithNoError(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	handler := ErrorHandlingMiddleware()(func(c echo.Context) error {
		return c.String(http.StatusOK, "success")
	})

	require.NoError(t, handler(c))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "success", rec.Body.String())
}

func TestMiddlewareWithContext(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.Set(contextKeyUserID, uuid.New())

	handler := ErrorHandlingMiddleware()(func(c echo.Context) error {
		return apperrors.NotFoundError("evidence not found").
			WithField("evidence_id", "123").
			WithField("project_id", "456")
	})

	require.NoError(t, handler(c))

	assert.Equal(t, http.StatusNotFound, rec.Code)

	var resp apperrors.ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "evidence not found", resp.Error)
	assert.Len(t, resp.Context, 2)
	assert.Equal(t, "123", resp.Context["evidence_id"])
}

func TestMiddlewareAllErrorTypes(t *testing.T) {
	tests := []struct {
		name       string
		err        *apperrors.Error
		wantStatus int
		wantType   apperrors.ErrorType
	}{
		{"validation", apperrors.ValidationError("invalid"), http.StatusBadRequest, apperrors.TypeValidation},
		{"unauthorized", apperrors.UnauthorizedError("no token", nil), http.StatusUnauthorized, apperrors.TypeUnauthorized},
		{"forbidden", apperrors.ForbiddenError("not yours"), http.StatusForbidden, apperrors.TypeForbidden},
		{"not_found", apperrors.NotFoundError("missing"), http.StatusNotFound, apperrors.TypeNotFound},
		{"conflict", apperrors.ConflictError("duplicate"), http.StatusConflict, apperrors.TypeConflict},
		{"rate_limited", apperrors.RateLimitedError("slow down"), http.StatusTooManyRequests, apperrors.TypeRateLimited},
		{"internal", apperrors.InternalError("failed", errors.New("cause")), http.StatusInternalServerError, apperrors.TypeInternal},
		{"external", apperrors.ExternalError("api failed", errors.New("timeout")), http.StatusBadGateway, apperrors.TypeExternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := echo.New()
			rec := httptest.NewRecorder()
			c := e.NewContext(httptest.NewRequest(http.MethodGet, "/test", nil), rec)

			handler := ErrorHandlingMiddleware()(func(c echo.Context) error {
				return tt.err
			})

			require.NoError(t, handler(c))
			assert.Equal(t, tt.wantStatus, rec.Code)

			var resp apperrors.ErrorResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
			assert.Equal(t, tt.wantType, resp.Type)
		})
	}
}

func TestDomainError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantType apperrors.ErrorType
	}{
		{"project not found", fmt.Errorf("load: %w", domain.ErrProjectNotFound), apperrors.TypeNotFound},
		{"evidence not found", domain.ErrEvidenceNotFound, apperrors.TypeNotFound},
		{"analysis not found", domain.ErrAnalysisNotFound, apperrors.TypeNotFound},
		{"not owner", domain.ErrNotOwner, apperrors.TypeForbidden},
		{"queue full", domain.ErrQueueFull, apperrors.TypeRateLimited},
		{"invalid evidence", fmt.Errorf("%w: bad", app.ErrInvalidEvidence), apperrors.TypeValidation},
		{"missing fields", &analysis.MissingFieldsError{Fields: []string{"project_id"}}, apperrors.TypeValidation},
		{"unknown", errors.New("boom"), apperrors.TypeInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.wantType, domainError(tt.err, "failed").Type)
		})
	}
}

func TestDomainError_KeepsCauseForInternal(t *testing.T) {
	cause := errors.New("connection reset")
	err := domainError(cause, "failed to load")

	assert.Equal(t, "failed to load", err.Message)
	assert.ErrorIs(t, err, cause)
}

func TestWrapHTTPError(t *testing.T) {
	tests := []struct {
		code     int
		wantType apperrors.ErrorType
	}{
		{http.StatusBadRequest, apperrors.TypeValidation},
		{http.StatusUnauthorized, apperrors.TypeUnauthorized},
		{http.StatusForbidden, apperrors.TypeForbidden},
		{http.StatusNotFound, apperrors.TypeNotFound},
		{http.StatusConflict, apperrors.TypeConflict},
		{http.StatusTooManyRequests, apperrors.TypeRateLimited},
		{http.StatusBadGateway, apperrors.TypeExternal},
		{http.StatusServiceUnavailable, apperrors.TypeExternal},
		{http.StatusTeapot, apperrors.TypeInternal},
	}

	for _, tt := range tests {
		t.Run(http.StatusText(tt.code), func(t *testing.T) {
			err := WrapHTTPError(echo.NewHTTPError(tt.code, "msg"))
			assert.Equal(t, tt.wantType, err.Type)
			assert.Equal(t, "msg", err.Message)
		})
	}
}

func TestWrapHTTPErrorWithInternalCause(t *testing.T) {
	cause := errors.New("bind failed")
	err := WrapHTTPError(echo.NewHTTPError(http.StatusBadRequest, "bad").SetInternal(cause))
	assert.ErrorIs(t, err, cause)
}

func TestWrapHTTPErrorWithNonStringMessage(t *testing.T) {
	err := WrapHTTPError(&echo.HTTPError{Code: http.StatusBadRequest, Message: 42})
	assert.Equal(t, "internal server error", err.Message)
}

func TestCorrelationMiddleware(t *testing.T) {
	e := echo.New()
	var seen string
	handler := correlationMiddleware(func(c echo.Context) error {
		seen, _ = correlation.ID(c.Request().Context())
		return c.NoContent(http.StatusOK)
	})

	t.Run("adopts valid inbound id", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set(correlation.HeaderName, "req-123")
		rec := httptest.NewRecorder()

		require.NoError(t, handler(e.NewContext(req, rec)))
		assert.Equal(t, "req-123", seen)
		assert.Equal(t, "req-123", rec.Header().Get(correlation.HeaderName))
	})

	t.Run("replaces malformed id", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set(correlation.HeaderName, "bad id\n")
		rec := httptest.NewRecorder()

		require.NoError(t, handler(e.NewContext(req, rec)))
		assert.NotEqual(t, "bad id\n", seen)
		assert.Len(t, seen, 8)
		assert.Equal(t, seen, rec.Header().Get(correlation.HeaderName))
	})
}

func TestBearerToken(t *testing.T) {
	assert.Equal(t, "abc", bearerToken("Bearer abc"))
	assert.Equal(t, "abc", bearerToken("bearer  abc "))
	assert.Equal(t, "abc", bearerToken("abc"))
	assert.Empty(t, bearerToken("Basic abc"))
	assert.Empty(t, bearerToken(""))
}
