package domain

// WorkflowKind names a workflow understood by the orchestration engine
type WorkflowKind string

const (
	// WorkflowKindScheduleSync keeps a sync's recurring schedule running
	WorkflowKindScheduleSync WorkflowKind = "schedule_sync"
	// WorkflowKindTerminate stops the active workflow of a target
	WorkflowKindTerminate WorkflowKind = "terminate"
)

// WorkflowAction is what the controller asks the engine to do
type WorkflowAction string

const (
	WorkflowActionStart     WorkflowAction = "start"
	WorkflowActionTerminate WorkflowAction = "terminate"
)

// WorkflowCommand is one idempotent orchestration request computed from a
// lifecycle change and executed after the record is committed.
type WorkflowCommand struct {
	Action     WorkflowAction `json:"action"`
	Kind       WorkflowKind   `json:"kind"`
	SyncID     string         `json:"sync_id"`
	TargetID   string         `json:"target_id"`
	WorkflowID string         `json:"workflow_id,omitempty"`
}

// TerminateWorkflowID is the deterministic id of a termination request, so
// repeated requests for the same target are recognisable as one action.
func TerminateWorkflowID(targetID string) string {
	return "terminate-" + targetID
}

// ScheduleWorkflowID is the id given to a schedule workflow started without one.
func ScheduleWorkflowID(syncID string) string {
	return string(WorkflowKindScheduleSync) + "-" + syncID
}

// StartScheduleCommand requests the recurring-schedule workflow for a sync
func StartScheduleCommand(syncID string) WorkflowCommand {
	return WorkflowCommand{
		Action:   WorkflowActionStart,
		Kind:     WorkflowKindScheduleSync,
		SyncID:   syncID,
		TargetID: syncID,
	}
}

// TerminateCommand requests termination of the workflow identified by targetID
func TerminateCommand(syncID, targetID string) WorkflowCommand {
	return WorkflowCommand{
		Action:     WorkflowActionTerminate,
		Kind:       WorkflowKindTerminate,
		SyncID:     syncID,
		TargetID:   targetID,
		WorkflowID: TerminateWorkflowID(targetID),
	}
}
