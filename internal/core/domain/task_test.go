package domain

import (
	"testing"
	"time"
)

func TestGenerateID(t *testing.T) {
	id1 := GenerateID()
	id2 := GenerateID()

	if id1 == "" || id2 == "" {
		t.Fatal("expected non-empty IDs")
	}
	if id1 == id2 {
		t.Error("expected unique IDs")
	}
	// Canonical UUID form
	if len(id1) != 36 {
		t.Errorf("expected ID length 36, got %d", len(id1))
	}
}

func TestNewTask(t *testing.T) {
	payload := map[string]string{"key": "value"}

	task := NewTask(TaskTypeRunSync, "ws-1", payload)

	if task.ID == "" {
		t.Error("expected non-empty ID")
	}
	if task.Type != TaskTypeRunSync {
		t.Errorf("expected type %s, got %s", TaskTypeRunSync, task.Type)
	}
	if task.WorkspaceID != "ws-1" {
		t.Errorf("expected workspace ws-1, got %s", task.WorkspaceID)
	}
	if task.Status != TaskStatusPending {
		t.Errorf("expected status pending, got %s", task.Status)
	}
	if task.MaxAttempts != 3 {
		t.Errorf("expected max attempts 3, got %d", task.MaxAttempts)
	}
	if task.Get("key") != "value" {
		t.Errorf("expected payload value, got %q", task.Get("key"))
	}
}

func TestNewWorkflowTask(t *testing.T) {
	start := NewWorkflowTask("ws-1", StartScheduleCommand("sync-1"))
	if start.Type != TaskTypeStartWorkflow {
		t.Errorf("expected start_workflow, got %s", start.Type)
	}
	if start.SyncID() != "sync-1" {
		t.Errorf("expected sync-1, got %s", start.SyncID())
	}
	if start.Get(PayloadKind) != string(WorkflowKindScheduleSync) {
		t.Errorf("expected kind schedule_sync, got %s", start.Get(PayloadKind))
	}

	term := NewWorkflowTask("ws-1", TerminateCommand("sync-1", "wf-9"))
	if term.Type != TaskTypeTerminateWorkflow {
		t.Errorf("expected terminate_workflow, got %s", term.Type)
	}
	if term.Get(PayloadTargetID) != "wf-9" {
		t.Errorf("expected target wf-9, got %s", term.Get(PayloadTargetID))
	}
	if term.Get(PayloadWorkflowID) != "terminate-wf-9" {
		t.Errorf("expected workflow id terminate-wf-9, got %s", term.Get(PayloadWorkflowID))
	}
}

func TestNewRunSyncTask(t *testing.T) {
	task := NewRunSyncTask("ws-1", "sync-1")
	if task.Type != TaskTypeRunSync {
		t.Errorf("expected run_sync, got %s", task.Type)
	}
	if task.MaxAttempts != 1 {
		t.Errorf("expected single attempt, got %d", task.MaxAttempts)
	}
	if task.SyncID() != "sync-1" {
		t.Errorf("expected sync-1, got %s", task.SyncID())
	}
}

func TestTask_GetNilPayload(t *testing.T) {
	task := &Task{}
	if task.Get(PayloadSyncID) != "" {
		t.Error("expected empty value for nil payload")
	}
}

func TestTask_Lifecycle(t *testing.T) {
	task := NewTask(TaskTypeStartWorkflow, "ws-1", nil)

	task.MarkProcessing()
	if task.Status != TaskStatusProcessing {
		t.Errorf("expected processing, got %s", task.Status)
	}
	if task.Attempts != 1 {
		t.Errorf("expected 1 attempt, got %d", task.Attempts)
	}
	if task.StartedAt == nil {
		t.Error("expected StartedAt to be set")
	}
	if !task.CanRetry() {
		t.Error("expected task to be retryable")
	}

	task.Retry("boom")
	if task.Status != TaskStatusPending {
		t.Errorf("expected pending after retry, got %s", task.Status)
	}
	if task.Error != "boom" {
		t.Errorf("expected error boom, got %s", task.Error)
	}
	if !task.ScheduledFor.After(time.Now()) {
		t.Error("expected retry to be scheduled in the future")
	}
	if task.IsReady() {
		t.Error("expected delayed task not to be ready")
	}

	task.MarkProcessing()
	task.MarkCompleted()
	if task.Status != TaskStatusCompleted {
		t.Errorf("expected completed, got %s", task.Status)
	}
	if task.Error != "" {
		t.Errorf("expected error cleared, got %s", task.Error)
	}
	if task.CompletedAt == nil {
		t.Error("expected CompletedAt to be set")
	}

	task.MarkFailed("fatal")
	if task.Status != TaskStatusFailed || task.Error != "fatal" {
		t.Errorf("unexpected failed state: %s %s", task.Status, task.Error)
	}
}

func TestRetryBackoff(t *testing.T) {
	tests := []struct {
		attempts int
		want     time.Duration
	}{
		{0, time.Second},
		{1, 2 * time.Second},
		{3, 8 * time.Second},
		{20, 5 * time.Minute},
		{100, 5 * time.Minute},
	}
	for _, tt := range tests {
		if got := RetryBackoff(tt.attempts); got != tt.want {
			t.Errorf("RetryBackoff(%d) = %v, want %v", tt.attempts, got, tt.want)
		}
	}
}

func TestSyncSchedule_IsDueAndAdvance(t *testing.T) {
	now := time.Now()
	s := &SyncSchedule{ID: "wf-1", SyncID: "sync-1", Enabled: true, NextRun: now.Add(-time.Second)}

	if !s.IsDue(now) {
		t.Error("expected schedule to be due")
	}

	next := now.Add(5 * time.Minute)
	s.Advance(now, next)
	if s.IsDue(now) {
		t.Error("expected schedule not to be due after advancing")
	}
	if s.LastRun == nil || !s.LastRun.Equal(now) {
		t.Error("expected LastRun to be now")
	}

	s.NextRun = now
	s.Enabled = false
	if s.IsDue(now) {
		t.Error("expected disabled schedule not to be due")
	}
}
