package driven

import (
	"context"
	"time"

	"github.com/custodia-labs/sercha-sync/internal/core/domain"
)

// TaskQueue carries workflow and run tasks from the API to the workers.
// Implementations can use Redis (preferred) or Postgres (fallback).
type TaskQueue interface {
	// Enqueue adds a task. It becomes visible at task.ScheduledFor.
	Enqueue(ctx context.Context, task *domain.Task) error

	// DequeueWithTimeout retrieves the next available task, waiting up to timeout seconds.
	// Returns nil, nil if timeout is reached with no tasks available.
	DequeueWithTimeout(ctx context.Context, timeout int) (*domain.Task, error)

	// Ack acknowledges successful completion of a task
	Ack(ctx context.Context, taskID string) error

	// Nack returns a failed task to the queue with backoff, or marks it
	// failed once its attempts are exhausted.
	Nack(ctx context.Context, taskID string, reason string) error

	// GetTask retrieves a task by ID
	GetTask(ctx context.Context, taskID string) (*domain.Task, error)

	// Stats returns queue statistics
	Stats(ctx context.Context) (*QueueStats, error)

	// Ping checks if the queue backend is healthy
	Ping(ctx context.Context) error

	// Close cleans up resources
	Close() error
}

// QueueStats contains queue statistics
type QueueStats struct {
	PendingCount    int64 `json:"pending_count"`
	ProcessingCount int64 `json:"processing_count"`
	FailedCount     int64 `json:"failed_count"`
}

// ScheduleStore persists the recurring triggers owned by the in-process
// orchestration engine (PostgreSQL).
type ScheduleStore interface {
	// Save creates or updates a schedule keyed by its workflow id
	Save(ctx context.Context, schedule *domain.SyncSchedule) error

	// Get retrieves a schedule by workflow id
	Get(ctx context.Context, id string) (*domain.SyncSchedule, error)

	// ListDue retrieves enabled schedules whose next run is at or before now
	ListDue(ctx context.Context, now time.Time) ([]*domain.SyncSchedule, error)

	// DisableByTarget disables every schedule whose id or sync id equals targetID
	// and returns how many were enabled before.
	DisableByTarget(ctx context.Context, targetID string) (int, error)
}
