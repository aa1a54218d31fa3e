package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/custodia-labs/sercha-sync/internal/core/domain"
	"github.com/custodia-labs/sercha-sync/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.ScheduleStore = (*ScheduleStore)(nil)

// ScheduleStore implements driven.ScheduleStore using PostgreSQL
type ScheduleStore struct {
	db *DB
}

// NewScheduleStore creates a new ScheduleStore
func NewScheduleStore(db *DB) *ScheduleStore {
	return &ScheduleStore{db: db}
}

const scheduleColumns = `id, sync_id, workspace_id, cron_expression, enabled,
	last_run, next_run, last_error, updated_at`

// Save creates or updates a schedule
func (s *ScheduleStore) Save(ctx context.Context, schedule *domain.SyncSchedule) error {
	query := `
		INSERT INTO sync_schedules (` + scheduleColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (id) DO UPDATE SET
			sync_id = EXCLUDED.sync_id,
			cron_expression = EXCLUDED.cron_expression,
			enabled = EXCLUDED.enabled,
			last_run = EXCLUDED.last_run,
			next_run = EXCLUDED.next_run,
			last_error = EXCLUDED.last_error,
			updated_at = EXCLUDED.updated_at
	`

	_, err := s.db.ExecContext(ctx, query,
		schedule.ID,
		schedule.SyncID,
		schedule.WorkspaceID,
		schedule.CronExpression,
		schedule.Enabled,
		NullTime(schedule.LastRun),
		schedule.NextRun,
		nullString(schedule.LastError),
		schedule.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("save schedule: %w", err)
	}
	return nil
}

// Get retrieves a schedule by workflow id
func (s *ScheduleStore) Get(ctx context.Context, id string) (*domain.SyncSchedule, error) {
	query := `SELECT ` + scheduleColumns + ` FROM sync_schedules WHERE id = $1`

	schedule, err := scanSchedule(s.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get schedule: %w", err)
	}
	return schedule, nil
}

// ListDue retrieves enabled schedules whose next run is at or before now
func (s *ScheduleStore) ListDue(ctx context.Context, now time.Time) ([]*domain.SyncSchedule, error) {
	query := `SELECT ` + scheduleColumns + ` FROM sync_schedules
		WHERE enabled = true AND next_run <= $1
		ORDER BY next_run ASC`

	rows, err := s.db.QueryContext(ctx, query, now)
	if err != nil {
		return nil, fmt.Errorf("list due schedules: %w", err)
	}
	defer rows.Close()

	var schedules []*domain.SyncSchedule
	for rows.Next() {
		schedule, err := scanSchedule(rows)
		if err != nil {
			return nil, fmt.Errorf("scan schedule: %w", err)
		}
		schedules = append(schedules, schedule)
	}
	return schedules, rows.Err()
}

// DisableByTarget disables every enabled schedule whose id or sync id is targetID
func (s *ScheduleStore) DisableByTarget(ctx context.Context, targetID string) (int, error) {
	query := `
		UPDATE sync_schedules SET enabled = false, updated_at = $2
		WHERE (id = $1 OR sync_id = $1) AND enabled = true
	`

	result, err := s.db.ExecContext(ctx, query, targetID, time.Now())
	if err != nil {
		return 0, fmt.Errorf("disable schedules: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("disable schedules: %w", err)
	}
	return int(n), nil
}

func scanSchedule(row rowScanner) (*domain.SyncSchedule, error) {
	var (
		schedule  domain.SyncSchedule
		lastRun   sql.NullTime
		lastError sql.NullString
	)

	err := row.Scan(
		&schedule.ID,
		&schedule.SyncID,
		&schedule.WorkspaceID,
		&schedule.CronExpression,
		&schedule.Enabled,
		&lastRun,
		&schedule.NextRun,
		&lastError,
		&schedule.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	schedule.LastRun = TimePtr(lastRun)
	schedule.LastError = lastError.String
	return &schedule, nil
}
