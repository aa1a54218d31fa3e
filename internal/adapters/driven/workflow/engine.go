// Package workflow implements the orchestration engine on top of the task
// queue. Commands become queue tasks that workers hand to the workflow runner.
package workflow

import (
	"context"
	"errors"
	"fmt"

	"github.com/custodia-labs/sercha-sync/internal/core/domain"
	"github.com/custodia-labs/sercha-sync/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.WorkflowEngine = (*QueueEngine)(nil)

// QueueEngine implements driven.WorkflowEngine by enqueueing workflow tasks
type QueueEngine struct {
	queue       driven.TaskQueue
	syncs       driven.SyncStore
	workspaceID string
}

// NewQueueEngine creates an engine that publishes to queue. The sync store is
// used to stamp tasks with the owning workspace; when a sync cannot be read
// the fallback workspaceID is used instead.
func NewQueueEngine(queue driven.TaskQueue, syncs driven.SyncStore, workspaceID string) (*QueueEngine, error) {
	if queue == nil {
		return nil, errors.New("task queue is required")
	}
	return &QueueEngine{queue: queue, syncs: syncs, workspaceID: workspaceID}, nil
}

// Start enqueues a start_workflow task.
// An empty workflowID becomes the deterministic schedule workflow id.
func (e *QueueEngine) Start(ctx context.Context, kind domain.WorkflowKind, syncID string, workflowID string) error {
	if syncID == "" {
		return fmt.Errorf("%w: sync id is required", domain.ErrInvalidInput)
	}
	if workflowID == "" {
		workflowID = domain.ScheduleWorkflowID(syncID)
	}

	cmd := domain.WorkflowCommand{
		Action:     domain.WorkflowActionStart,
		Kind:       kind,
		SyncID:     syncID,
		TargetID:   syncID,
		WorkflowID: workflowID,
	}
	return e.enqueue(ctx, syncID, cmd)
}

// Terminate enqueues a terminate_workflow task for targetID
func (e *QueueEngine) Terminate(ctx context.Context, kind domain.WorkflowKind, targetID string, workflowID string) error {
	if targetID == "" {
		return fmt.Errorf("%w: target id is required", domain.ErrInvalidInput)
	}
	if workflowID == "" {
		workflowID = domain.TerminateWorkflowID(targetID)
	}

	cmd := domain.WorkflowCommand{
		Action:     domain.WorkflowActionTerminate,
		Kind:       kind,
		TargetID:   targetID,
		WorkflowID: workflowID,
	}
	return e.enqueue(ctx, targetID, cmd)
}

func (e *QueueEngine) enqueue(ctx context.Context, syncID string, cmd domain.WorkflowCommand) error {
	task := domain.NewWorkflowTask(e.workspaceFor(ctx, syncID), cmd)
	if err := e.queue.Enqueue(ctx, task); err != nil {
		return fmt.Errorf("enqueue %s workflow %s: %w", cmd.Action, cmd.WorkflowID, err)
	}
	return nil
}

func (e *QueueEngine) workspaceFor(ctx context.Context, syncID string) string {
	if e.syncs == nil {
		return e.workspaceID
	}
	sync, err := e.syncs.Get(ctx, syncID)
	if err != nil {
		return e.workspaceID
	}
	return sync.WorkspaceID
}
