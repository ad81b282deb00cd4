package domain

import "context"

type WorkflowState string

const (
	WorkflowPending WorkflowState = "PENDING"
	WorkflowRunning WorkflowState = "RUNNING"
	WorkflowSuccess WorkflowState = "SUCCESS"
	WorkflowFailed  WorkflowState = "FAILED"
)

func (s WorkflowState) Terminal() bool {
	return s == WorkflowSuccess || s == WorkflowFailed
}

type WorkflowStatus struct {
	KickoffID string
	State     WorkflowState
	Result    any
	Error     string
}

// WorkflowClient drives the external crew runtime through kickoff, status and retry.
type WorkflowClient interface {
	Kickoff(ctx context.Context, inputs map[string]any) (string, error)
	Status(ctx context.Context, kickoffID string) (*WorkflowStatus, error)
	Retry(ctx context.Context, kickoffID string) (string, error)
	Wait(ctx context.Context, kickoffID string) (*WorkflowStatus, error)
	Ping(ctx context.Context) error
}
