package ports

import "context"

// WorkflowOrchestrator runs the expiry sweep durably when a workflow engine is available.
type WorkflowOrchestrator interface {
	ExpireStale(ctx context.Context) (int, error)
}
