package domain

import "errors"

var (
	ErrProjectNotFound  = errors.New("project not found")
	ErrEvidenceNotFound = errors.New("evidence not found")
	ErrAnalysisNotFound = errors.New("analysis not found")
	ErrNotOwner         = errors.New("caller does not own this resource")

	ErrMissingToken    = errors.New("missing bearer token")
	ErrInvalidToken    = errors.New("invalid or expired token")
	ErrAuthUnavailable = errors.New("authentication provider unavailable")

	ErrWorkflowNotConfigured = errors.New("workflow runtime not configured")
	ErrWorkflowFailed        = errors.New("workflow failed")
	ErrQueueFull             = errors.New("analysis queue is full")
)
