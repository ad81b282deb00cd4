package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidationError(t *testing.T) {
	err := ValidationError("invalid input")

	assert.Equal(t, TypeValidation, err.Type)
	assert.Equal(t, "invalid input", err.Message)
	assert.Nil(t, err.Cause)
	assert.NotNil(t, err.Context)
	assert.Equal(t, http.StatusBadRequest, err.HTTPStatus())
	assert.Contains(t, err.Error(), "validation")
	assert.Contains(t, err.Error(), "invalid input")
}

func TestHTTPStatusMapping(t *testing.T) {
	tests := []struct {
		err  *Error
		want int
	}{
		{ValidationError("x"), http.StatusBadRequest},
		{UnauthorizedError("x", nil), http.StatusUnauthorized},
		{ForbiddenError("x"), http.StatusForbidden},
		{NotFoundError("x"), http.StatusNotFound},
		{ConflictError("x"), http.StatusConflict},
		{RateLimitedError("x"), http.StatusTooManyRequests},
		{InternalError("x", nil), http.StatusInternalServerError},
		{ExternalError("x", nil), http.StatusBadGateway},
		{&Error{Type: "bogus"}, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(string(tt.err.Type), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.err.HTTPStatus())
		})
	}
}

func TestInternalError_IncludesCause(t *testing.T) {
	cause := fmt.Errorf("database connection failed")
	err := InternalError("failed to save project", cause)

	assert.Equal(t, cause, err.Cause)
	assert.Contains(t, err.Error(), "internal")
	assert.Contains(t, err.Error(), "failed to save project")
	assert.Contains(t, err.Error(), "database connection failed")
	assert.True(t, errors.Is(err, cause))
}

func TestWithField_Chains(t *testing.T) {
	err := NotFoundError("project not found").
		WithField("project_id", "p-1").
		WithField("stage", "DESIRABILITY")

	assert.Equal(t, "p-1", err.Context["project_id"])
	assert.Equal(t, "DESIRABILITY", err.Context["stage"])

	var nilCtx Error
	nilCtx.WithField("k", "v")
	assert.Equal(t, "v", nilCtx.Context["k"])
}

func TestToResponse(t *testing.T) {
	resp := ValidationError("missing stage").WithField("field", "stage").ToResponse()

	assert.Equal(t, "missing stage", resp.Error)
	assert.Equal(t, TypeValidation, resp.Type)
	assert.Equal(t, "stage", resp.Context["field"])
}

func TestAsStructuredError(t *testing.T) {
	assert.Nil(t, AsStructuredError(nil))

	original := ConflictError("already exists")
	wrapped := fmt.Errorf("outer: %w", original)
	got := AsStructuredError(wrapped)
	require.NotNil(t, got)
	assert.Same(t, original, got)

	plain := errors.New("boom")
	got = AsStructuredError(plain)
	assert.Equal(t, TypeInternal, got.Type)
	assert.Equal(t, "internal server error", got.Message)
	assert.Equal(t, plain, got.Cause)
}
