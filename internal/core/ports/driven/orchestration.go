package driven

import (
	"context"

	"github.com/custodia-labs/sercha-sync/internal/core/domain"
)

// WorkflowEngine is the long-running orchestration engine. Calls are
// identified by deterministic workflow ids so repeats can be recognised.
type WorkflowEngine interface {
	// Start (re)starts a workflow of the given kind for a sync.
	// An empty workflowID lets the engine choose one.
	Start(ctx context.Context, kind domain.WorkflowKind, syncID string, workflowID string) error

	// Terminate stops the workflow identified by targetID
	Terminate(ctx context.Context, kind domain.WorkflowKind, targetID string, workflowID string) error
}

// ExecutionEngine runs one sync from a fully resolved descriptor
type ExecutionEngine interface {
	Execute(ctx context.Context, descriptor *domain.ExecutionDescriptor) (*domain.ExecutionResult, error)
}

// ErrorReporter is the observability sink for failures that are recorded
// rather than returned.
type ErrorReporter interface {
	Report(ctx context.Context, err error, attrs map[string]string)
}
