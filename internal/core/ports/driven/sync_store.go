package driven

import (
	"context"
	"time"

	"github.com/custodia-labs/sercha-sync/internal/core/domain"
)

// SyncStore handles sync persistence (PostgreSQL)
type SyncStore interface {
	// Save creates or updates a sync. Last write wins.
	Save(ctx context.Context, sync *domain.Sync) error

	// Get retrieves a sync by ID, including discarded ones
	Get(ctx context.Context, id string) (*domain.Sync, error)

	// List retrieves non-discarded syncs of a workspace, most recently updated first.
	// An empty workspaceID lists every workspace.
	List(ctx context.Context, workspaceID string) ([]*domain.Sync, error)

	// SoftDelete marks the sync discarded and discards all of its runs in one transaction
	SoftDelete(ctx context.Context, id string, at time.Time) error

	// UpdateCursor advances the incremental watermark
	UpdateCursor(ctx context.Context, id string, cursor string) error

	// SetWorkflowID records the active schedule workflow of the sync
	SetWorkflowID(ctx context.Context, id string, workflowID string) error
}

// SyncRunStore handles sync run persistence (PostgreSQL)
type SyncRunStore interface {
	// Save creates or updates a run
	Save(ctx context.Context, run *domain.SyncRun) error

	// Get retrieves a run by ID
	Get(ctx context.Context, id string) (*domain.SyncRun, error)

	// ListBySync retrieves the non-discarded runs of a sync, newest first
	ListBySync(ctx context.Context, syncID string, limit int) ([]*domain.SyncRun, error)
}
