package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/custodia-labs/sercha-sync/internal/core/domain"
	"github.com/custodia-labs/sercha-sync/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.TaskQueue = (*Queue)(nil)

// DefaultPollInterval is how often an empty queue is re-checked while waiting
const DefaultPollInterval = 500 * time.Millisecond

// Queue implements TaskQueue on the tasks table with FOR UPDATE SKIP LOCKED.
// It is the fallback when Redis is not configured.
type Queue struct {
	db           *sql.DB
	pollInterval time.Duration
	// claimAfter returns processing tasks to workers after this long
	claimAfter time.Duration
}

// NewQueue creates a PostgreSQL-backed task queue.
// The tasks table is created by the store schema.
func NewQueue(db *sql.DB) *Queue {
	return &Queue{
		db:           db,
		pollInterval: DefaultPollInterval,
		claimAfter:   5 * time.Minute,
	}
}

const taskColumns = `id, type, workspace_id, payload, status, priority,
	attempts, max_attempts, error, created_at, updated_at,
	started_at, completed_at, scheduled_for`

// Enqueue adds a task to the queue
func (q *Queue) Enqueue(ctx context.Context, task *domain.Task) error {
	if task == nil {
		return errors.New("task is required")
	}
	payload, err := json.Marshal(task.Payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	query := `INSERT INTO tasks (` + taskColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`

	_, err = q.db.ExecContext(ctx, query,
		task.ID,
		string(task.Type),
		task.WorkspaceID,
		payload,
		string(task.Status),
		task.Priority,
		task.Attempts,
		task.MaxAttempts,
		task.Error,
		task.CreatedAt,
		task.UpdatedAt,
		NullTime(task.StartedAt),
		NullTime(task.CompletedAt),
		task.ScheduledFor,
	)
	if err != nil {
		return fmt.Errorf("insert task: %w", err)
	}
	return nil
}

// DequeueWithTimeout claims the next ready task, polling until timeout
// seconds have passed. Returns nil, nil when nothing became ready.
func (q *Queue) DequeueWithTimeout(ctx context.Context, timeout int) (*domain.Task, error) {
	deadline := time.Now().Add(time.Duration(timeout) * time.Second)
	for {
		task, err := q.claim(ctx)
		if err != nil || task != nil {
			return task, err
		}
		if !time.Now().Before(deadline) {
			return nil, nil
		}

		select {
		case <-ctx.Done():
			return nil, nil
		case <-time.After(q.pollInterval):
		}
	}
}

// claim picks one ready or abandoned task and marks it processing in a
// single statement; concurrent workers skip each other's rows.
func (q *Queue) claim(ctx context.Context) (*domain.Task, error) {
	now := time.Now()
	query := `
		UPDATE tasks SET
			status = 'processing',
			started_at = $1,
			updated_at = $1,
			attempts = attempts + 1
		WHERE id = (
			SELECT id FROM tasks
			WHERE (status = 'pending' AND scheduled_for <= $1)
			   OR (status = 'processing' AND started_at < $2)
			ORDER BY priority DESC, created_at ASC
			LIMIT 1
			FOR UPDATE SKIP LOCKED
		)
		RETURNING ` + taskColumns

	task, err := scanTask(q.db.QueryRowContext(ctx, query, now, now.Add(-q.claimAfter)))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("claim task: %w", err)
	}
	return task, nil
}

// Ack marks a task as completed
func (q *Queue) Ack(ctx context.Context, taskID string) error {
	now := time.Now()
	query := `
		UPDATE tasks SET status = 'completed', completed_at = $2, updated_at = $2, error = ''
		WHERE id = $1
	`
	result, err := q.db.ExecContext(ctx, query, taskID, now)
	if err != nil {
		return fmt.Errorf("ack task: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// Nack schedules a retry with backoff, or marks the task failed once its
// attempts are used up.
func (q *Queue) Nack(ctx context.Context, taskID string, reason string) error {
	task, err := q.GetTask(ctx, taskID)
	if err != nil {
		return err
	}

	if task.CanRetry() {
		task.Retry(reason)
	} else {
		task.MarkFailed(reason)
	}

	query := `
		UPDATE tasks SET status = $2, error = $3, scheduled_for = $4, updated_at = $5
		WHERE id = $1
	`
	_, err = q.db.ExecContext(ctx, query,
		task.ID,
		string(task.Status),
		task.Error,
		task.ScheduledFor,
		task.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("nack task: %w", err)
	}
	return nil
}

// GetTask retrieves a task by ID
func (q *Queue) GetTask(ctx context.Context, taskID string) (*domain.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks WHERE id = $1`

	task, err := scanTask(q.db.QueryRowContext(ctx, query, taskID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get task: %w", err)
	}
	return task, nil
}

// Stats returns queue statistics
func (q *Queue) Stats(ctx context.Context) (*driven.QueueStats, error) {
	query := `
		SELECT
			COUNT(*) FILTER (WHERE status = 'pending'),
			COUNT(*) FILTER (WHERE status = 'processing'),
			COUNT(*) FILTER (WHERE status = 'failed')
		FROM tasks
	`
	var stats driven.QueueStats
	err := q.db.QueryRowContext(ctx, query).Scan(
		&stats.PendingCount,
		&stats.ProcessingCount,
		&stats.FailedCount,
	)
	if err != nil {
		return nil, fmt.Errorf("queue stats: %w", err)
	}
	return &stats, nil
}

// Ping checks if the queue backend is healthy
func (q *Queue) Ping(ctx context.Context) error {
	return q.db.PingContext(ctx)
}

// Close is a no-op; the pool is owned by the caller.
func (q *Queue) Close() error {
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTask(row rowScanner) (*domain.Task, error) {
	var (
		task        domain.Task
		taskType    string
		status      string
		payload     []byte
		startedAt   sql.NullTime
		completedAt sql.NullTime
	)

	err := row.Scan(
		&task.ID,
		&taskType,
		&task.WorkspaceID,
		&payload,
		&status,
		&task.Priority,
		&task.Attempts,
		&task.MaxAttempts,
		&task.Error,
		&task.CreatedAt,
		&task.UpdatedAt,
		&startedAt,
		&completedAt,
		&task.ScheduledFor,
	)
	if err != nil {
		return nil, err
	}

	task.Type = domain.TaskType(taskType)
	task.Status = domain.TaskStatus(status)
	if len(payload) > 0 {
		if err := json.Unmarshal(payload, &task.Payload); err != nil {
			return nil, fmt.Errorf("unmarshal payload: %w", err)
		}
	}
	if startedAt.Valid {
		task.StartedAt = &startedAt.Time
	}
	if completedAt.Valid {
		task.CompletedAt = &completedAt.Time
	}
	return &task, nil
}

// NullTime converts a time pointer to sql.NullTime
func NullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}
