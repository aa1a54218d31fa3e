package driving

import (
	"context"

	"github.com/custodia-labs/sercha-sync/internal/core/domain"
)

// CreateSyncRequest represents a request to create a sync
type CreateSyncRequest struct {
	WorkspaceID      string              `json:"workspace_id"`
	SourceID         string              `json:"source_id"`
	DestinationID    string              `json:"destination_id"`
	ModelID          string              `json:"model_id"`
	Configuration    map[string]any      `json:"configuration"`
	StreamName       string              `json:"stream_name"`
	SyncMode         domain.SyncMode     `json:"sync_mode"`
	CursorField      string              `json:"cursor_field,omitempty"`
	ScheduleType     domain.ScheduleType `json:"schedule_type"`
	SyncInterval     int                 `json:"sync_interval,omitempty"`
	SyncIntervalUnit domain.IntervalUnit `json:"sync_interval_unit,omitempty"`
	CronExpression   string              `json:"cron_expression,omitempty"`
}

// UpdateSyncRequest represents a partial update of a sync. Nil fields are left unchanged.
type UpdateSyncRequest struct {
	Configuration    map[string]any       `json:"configuration,omitempty"`
	StreamName       *string              `json:"stream_name,omitempty"`
	SyncMode         *domain.SyncMode     `json:"sync_mode,omitempty"`
	CursorField      *string              `json:"cursor_field,omitempty"`
	ScheduleType     *domain.ScheduleType `json:"schedule_type,omitempty"`
	SyncInterval     *int                 `json:"sync_interval,omitempty"`
	SyncIntervalUnit *domain.IntervalUnit `json:"sync_interval_unit,omitempty"`
	CronExpression   *string              `json:"cron_expression,omitempty"`
}

// SyncService is the lifecycle controller of syncs. Every mutation runs
// validate, persist, plan post-commit commands, execute them, report failures.
type SyncService interface {
	// Create validates and stores a new pending sync
	Create(ctx context.Context, req CreateSyncRequest) (*domain.Sync, error)

	// Update applies a partial update and re-validates the sync
	Update(ctx context.Context, id string, req UpdateSyncRequest) (*domain.Sync, error)

	// Get retrieves a sync by ID
	Get(ctx context.Context, id string) (*domain.Sync, error)

	// List retrieves the live syncs of a workspace
	List(ctx context.Context, workspaceID string) ([]*domain.Sync, error)

	// Delete soft-deletes a sync, discards its runs and terminates its workflow
	Delete(ctx context.Context, id string) error

	// Validate runs the validation gate without persisting anything
	Validate(ctx context.Context, sync *domain.Sync) error

	// Fire applies a lifecycle event to the sync's status
	Fire(ctx context.Context, id string, event domain.SyncEvent) (*domain.Sync, error)

	// Descriptor builds the execution descriptor of a sync
	Descriptor(ctx context.Context, id string) (*domain.ExecutionDescriptor, error)

	// TriggerRun queues one run of the sync, regardless of its schedule type
	TriggerRun(ctx context.Context, id string) (*domain.Task, error)

	// ListRuns retrieves the run history of a sync, newest first
	ListRuns(ctx context.Context, id string, limit int) ([]*domain.SyncRun, error)
}
