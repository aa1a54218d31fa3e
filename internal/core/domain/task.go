package domain

import (
	"time"

	"github.com/google/uuid"
)

// GenerateID creates a unique random ID.
func GenerateID() string {
	return uuid.NewString()
}

// TaskType identifies the type of background task
type TaskType string

const (
	// TaskTypeStartWorkflow starts a workflow for a sync
	TaskTypeStartWorkflow TaskType = "start_workflow"
	// TaskTypeTerminateWorkflow terminates the workflow of a target
	TaskTypeTerminateWorkflow TaskType = "terminate_workflow"
	// TaskTypeRunSync executes one run of a sync
	TaskTypeRunSync TaskType = "run_sync"
)

// Payload keys
const (
	PayloadSyncID     = "sync_id"
	PayloadTargetID   = "target_id"
	PayloadWorkflowID = "workflow_id"
	PayloadKind       = "kind"
)

// TaskStatus represents the current state of a task
type TaskStatus string

const (
	TaskStatusPending    TaskStatus = "pending"
	TaskStatusProcessing TaskStatus = "processing"
	TaskStatusCompleted  TaskStatus = "completed"
	TaskStatusFailed     TaskStatus = "failed"
)

// Task represents a background job to be processed by workers
type Task struct {
	ID          string            `json:"id"`
	Type        TaskType          `json:"type"`
	WorkspaceID string            `json:"workspace_id"`
	Payload     map[string]string `json:"payload"`
	Status      TaskStatus        `json:"status"`

	// Priority determines processing order (higher = more urgent)
	Priority int `json:"priority"`

	Attempts    int    `json:"attempts"`
	MaxAttempts int    `json:"max_attempts"`
	Error       string `json:"error,omitempty"`

	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
	StartedAt    *time.Time `json:"started_at,omitempty"`
	CompletedAt  *time.Time `json:"completed_at,omitempty"`
	ScheduledFor time.Time  `json:"scheduled_for"`
}

// NewTask creates a new task with default values
func NewTask(taskType TaskType, workspaceID string, payload map[string]string) *Task {
	now := time.Now()
	return &Task{
		ID:           GenerateID(),
		Type:         taskType,
		WorkspaceID:  workspaceID,
		Payload:      payload,
		Status:       TaskStatusPending,
		MaxAttempts:  3,
		CreatedAt:    now,
		UpdatedAt:    now,
		ScheduledFor: now,
	}
}

// NewWorkflowTask creates the queue task carrying a workflow command
func NewWorkflowTask(workspaceID string, cmd WorkflowCommand) *Task {
	taskType := TaskTypeStartWorkflow
	if cmd.Action == WorkflowActionTerminate {
		taskType = TaskTypeTerminateWorkflow
	}
	return NewTask(taskType, workspaceID, map[string]string{
		PayloadKind:       string(cmd.Kind),
		PayloadSyncID:     cmd.SyncID,
		PayloadTargetID:   cmd.TargetID,
		PayloadWorkflowID: cmd.WorkflowID,
	})
}

// NewRunSyncTask creates a task that executes one run of a sync
func NewRunSyncTask(workspaceID, syncID string) *Task {
	task := NewTask(TaskTypeRunSync, workspaceID, map[string]string{
		PayloadSyncID: syncID,
	})
	// Runs report their outcome through the lifecycle; the engine owns retries.
	task.MaxAttempts = 1
	return task
}

// Get returns a payload value, or "" when absent
func (t *Task) Get(key string) string {
	if t.Payload == nil {
		return ""
	}
	return t.Payload[key]
}

// SyncID extracts the sync_id from the payload
func (t *Task) SyncID() string {
	return t.Get(PayloadSyncID)
}

// CanRetry returns true if the task can be retried
func (t *Task) CanRetry() bool {
	return t.Attempts < t.MaxAttempts
}

// IsReady returns true if the task is ready to be processed
func (t *Task) IsReady() bool {
	return t.Status == TaskStatusPending && time.Now().After(t.ScheduledFor)
}

// MarkProcessing updates the task to processing state
func (t *Task) MarkProcessing() {
	now := time.Now()
	t.Status = TaskStatusProcessing
	t.StartedAt = &now
	t.UpdatedAt = now
	t.Attempts++
}

// MarkCompleted updates the task to completed state
func (t *Task) MarkCompleted() {
	now := time.Now()
	t.Status = TaskStatusCompleted
	t.CompletedAt = &now
	t.UpdatedAt = now
	t.Error = ""
}

// MarkFailed updates the task to failed state
func (t *Task) MarkFailed(err string) {
	t.Status = TaskStatusFailed
	t.UpdatedAt = time.Now()
	t.Error = err
}

// Retry resets the task for retry with exponential backoff
func (t *Task) Retry(err string) {
	now := time.Now()
	t.Status = TaskStatusPending
	t.UpdatedAt = now
	t.Error = err
	t.ScheduledFor = now.Add(RetryBackoff(t.Attempts))
}

// RetryBackoff returns 1s, 2s, 4s, ... capped at 5 minutes
func RetryBackoff(attempts int) time.Duration {
	backoff := time.Duration(1<<attempts) * time.Second
	if backoff > 5*time.Minute || backoff <= 0 {
		backoff = 5 * time.Minute
	}
	return backoff
}

// SyncSchedule is the recurring trigger of one sync, owned by the in-process
// orchestration engine. Its ID is the workflow id of the schedule workflow.
type SyncSchedule struct {
	ID             string     `json:"id"`
	SyncID         string     `json:"sync_id"`
	WorkspaceID    string     `json:"workspace_id"`
	CronExpression string     `json:"cron_expression"`
	Enabled        bool       `json:"enabled"`
	LastRun        *time.Time `json:"last_run,omitempty"`
	NextRun        time.Time  `json:"next_run"`
	LastError      string     `json:"last_error,omitempty"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// IsDue returns true if the schedule should fire at now
func (s *SyncSchedule) IsDue(now time.Time) bool {
	return s.Enabled && !now.Before(s.NextRun)
}

// Advance records a firing at now and moves NextRun forward
func (s *SyncSchedule) Advance(now, next time.Time) {
	s.LastRun = &now
	s.NextRun = next
	s.UpdatedAt = now
}
