package domain

import "time"

// SyncRunStatus represents the state of one execution of a sync
type SyncRunStatus string

const (
	SyncRunStatusPending SyncRunStatus = "pending"
	SyncRunStatusStarted SyncRunStatus = "started"
	SyncRunStatusSuccess SyncRunStatus = "success"
	SyncRunStatusFailed  SyncRunStatus = "failed"
)

// SyncRun is one execution instance of a Sync. Runs are owned by their sync
// and discarded together with it.
type SyncRun struct {
	ID          string        `json:"id"`
	SyncID      string        `json:"sync_id"`
	WorkspaceID string        `json:"workspace_id"`
	Status      SyncRunStatus `json:"status"`
	Stats       SyncRunStats  `json:"stats"`
	Error       string        `json:"error,omitempty"`
	StartedAt   *time.Time    `json:"started_at,omitempty"`
	FinishedAt  *time.Time    `json:"finished_at,omitempty"`
	CreatedAt   time.Time     `json:"created_at"`
	UpdatedAt   time.Time     `json:"updated_at"`
	DiscardedAt *time.Time    `json:"discarded_at,omitempty"`
}

// SyncRunStats holds record counters reported by the execution engine
type SyncRunStats struct {
	TotalQueried int `json:"total_queried"`
	SuccessRows  int `json:"success_rows"`
	FailedRows   int `json:"failed_rows"`
}

// NewSyncRun creates a pending run for a sync
func NewSyncRun(sync *Sync) *SyncRun {
	now := time.Now()
	return &SyncRun{
		ID:          GenerateID(),
		SyncID:      sync.ID,
		WorkspaceID: sync.WorkspaceID,
		Status:      SyncRunStatusPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// MarkStarted moves the run to started
func (r *SyncRun) MarkStarted() {
	now := time.Now()
	r.Status = SyncRunStatusStarted
	r.StartedAt = &now
	r.UpdatedAt = now
}

// MarkSuccess records a successful run
func (r *SyncRun) MarkSuccess(stats SyncRunStats) {
	now := time.Now()
	r.Status = SyncRunStatusSuccess
	r.Stats = stats
	r.FinishedAt = &now
	r.UpdatedAt = now
	r.Error = ""
}

// MarkFailed records a failed run
func (r *SyncRun) MarkFailed(err string) {
	now := time.Now()
	r.Status = SyncRunStatusFailed
	r.FinishedAt = &now
	r.UpdatedAt = now
	r.Error = err
}

// IsFinished reports whether the run reached a final status
func (r *SyncRun) IsFinished() bool {
	return r.Status == SyncRunStatusSuccess || r.Status == SyncRunStatusFailed
}
