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
var (
	_ driven.SyncStore    = (*SyncStore)(nil)
	_ driven.SyncRunStore = (*SyncRunStore)(nil)
)

// SyncStore implements driven.SyncStore using PostgreSQL
type SyncStore struct {
	db *DB
}

// NewSyncStore creates a new SyncStore
func NewSyncStore(db *DB) *SyncStore {
	return &SyncStore{db: db}
}

const syncColumns = `id, workspace_id, source_id, destination_id, model_id, configuration,
	stream_name, sync_mode, cursor_field, current_cursor_field,
	schedule_type, sync_interval, sync_interval_unit, cron_expression,
	status, workflow_id, created_at, updated_at, discarded_at`

// upsertSyncQuery never writes over a discarded row, so a write that loaded
// the sync before a concurrent delete cannot bring it back.
const upsertSyncQuery = `
	INSERT INTO syncs (` + syncColumns + `)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)
	ON CONFLICT (id) DO UPDATE SET
		source_id = EXCLUDED.source_id,
		destination_id = EXCLUDED.destination_id,
		model_id = EXCLUDED.model_id,
		configuration = EXCLUDED.configuration,
		stream_name = EXCLUDED.stream_name,
		sync_mode = EXCLUDED.sync_mode,
		cursor_field = EXCLUDED.cursor_field,
		current_cursor_field = EXCLUDED.current_cursor_field,
		schedule_type = EXCLUDED.schedule_type,
		sync_interval = EXCLUDED.sync_interval,
		sync_interval_unit = EXCLUDED.sync_interval_unit,
		cron_expression = EXCLUDED.cron_expression,
		status = EXCLUDED.status,
		workflow_id = EXCLUDED.workflow_id,
		updated_at = EXCLUDED.updated_at,
		discarded_at = EXCLUDED.discarded_at
	WHERE syncs.discarded_at IS NULL
`

// Save creates or updates a sync. Saving over a discarded sync returns
// ErrSyncDiscarded.
func (s *SyncStore) Save(ctx context.Context, sync *domain.Sync) error {
	config, err := json.Marshal(sync.Configuration)
	if err != nil {
		return fmt.Errorf("marshal configuration: %w", err)
	}

	result, err := s.db.ExecContext(ctx, upsertSyncQuery,
		sync.ID,
		sync.WorkspaceID,
		sync.SourceID,
		sync.DestinationID,
		sync.ModelID,
		config,
		sync.StreamName,
		string(sync.SyncMode),
		nullString(sync.CursorField),
		nullString(sync.CurrentCursorField),
		string(sync.ScheduleType),
		sync.SyncInterval,
		nullString(string(sync.SyncIntervalUnit)),
		nullString(sync.CronExpression),
		string(sync.Status),
		nullString(sync.WorkflowID),
		sync.CreatedAt,
		sync.UpdatedAt,
		NullTime(sync.DiscardedAt),
	)
	if err != nil {
		return fmt.Errorf("save sync: %w", err)
	}
	// A conflicting row that is already discarded is left untouched
	if n, err := result.RowsAffected(); err == nil && n == 0 {
		return domain.ErrSyncDiscarded
	}
	return nil
}

// Get retrieves a sync by ID, including discarded ones
func (s *SyncStore) Get(ctx context.Context, id string) (*domain.Sync, error) {
	query := `SELECT ` + syncColumns + ` FROM syncs WHERE id = $1`

	sync, err := scanSync(s.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get sync: %w", err)
	}
	return sync, nil
}

// List retrieves non-discarded syncs, most recently updated first
func (s *SyncStore) List(ctx context.Context, workspaceID string) ([]*domain.Sync, error) {
	query := `SELECT ` + syncColumns + ` FROM syncs
		WHERE discarded_at IS NULL AND ($1::text = '' OR workspace_id = $1)
		ORDER BY updated_at DESC`

	rows, err := s.db.QueryContext(ctx, query, workspaceID)
	if err != nil {
		return nil, fmt.Errorf("list syncs: %w", err)
	}
	defer rows.Close()

	var syncs []*domain.Sync
	for rows.Next() {
		sync, err := scanSync(rows)
		if err != nil {
			return nil, fmt.Errorf("scan sync: %w", err)
		}
		syncs = append(syncs, sync)
	}
	return syncs, rows.Err()
}

// SoftDelete discards the sync and its runs in one transaction
func (s *SyncStore) SoftDelete(ctx context.Context, id string, at time.Time) error {
	return s.db.Transaction(ctx, func(tx *sql.Tx) error {
		result, err := tx.ExecContext(ctx,
			`UPDATE syncs SET discarded_at = $2, updated_at = $2 WHERE id = $1 AND discarded_at IS NULL`,
			id, at)
		if err != nil {
			return fmt.Errorf("discard sync: %w", err)
		}
		if n, _ := result.RowsAffected(); n == 0 {
			return domain.ErrNotFound
		}

		_, err = tx.ExecContext(ctx,
			`UPDATE sync_runs SET discarded_at = $2, updated_at = $2 WHERE sync_id = $1 AND discarded_at IS NULL`,
			id, at)
		if err != nil {
			return fmt.Errorf("discard sync runs: %w", err)
		}
		return nil
	})
}

// UpdateCursor advances the incremental watermark
func (s *SyncStore) UpdateCursor(ctx context.Context, id string, cursor string) error {
	return s.updateColumn(ctx, id, "current_cursor_field", cursor)
}

// SetWorkflowID records the active schedule workflow of the sync
func (s *SyncStore) SetWorkflowID(ctx context.Context, id string, workflowID string) error {
	return s.updateColumn(ctx, id, "workflow_id", workflowID)
}

// updateColumn only accepts the fixed column names above.
func (s *SyncStore) updateColumn(ctx context.Context, id, column, value string) error {
	query := fmt.Sprintf(`UPDATE syncs SET %s = $2, updated_at = $3 WHERE id = $1`, column)
	result, err := s.db.ExecContext(ctx, query, id, nullString(value), time.Now())
	if err != nil {
		return fmt.Errorf("update sync %s: %w", column, err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func scanSync(row rowScanner) (*domain.Sync, error) {
	var (
		sync          domain.Sync
		config        []byte
		syncMode      string
		cursor        sql.NullString
		currentCursor sql.NullString
		scheduleType  string
		intervalUnit  sql.NullString
		cronExpr      sql.NullString
		status        string
		workflowID    sql.NullString
		discardedAt   sql.NullTime
	)

	err := row.Scan(
		&sync.ID,
		&sync.WorkspaceID,
		&sync.SourceID,
		&sync.DestinationID,
		&sync.ModelID,
		&config,
		&sync.StreamName,
		&syncMode,
		&cursor,
		&currentCursor,
		&scheduleType,
		&sync.SyncInterval,
		&intervalUnit,
		&cronExpr,
		&status,
		&workflowID,
		&sync.CreatedAt,
		&sync.UpdatedAt,
		&discardedAt,
	)
	if err != nil {
		return nil, err
	}

	if len(config) > 0 {
		if err := json.Unmarshal(config, &sync.Configuration); err != nil {
			return nil, fmt.Errorf("unmarshal configuration: %w", err)
		}
	}

	sync.SyncMode = domain.SyncMode(syncMode)
	sync.CursorField = cursor.String
	sync.CurrentCursorField = currentCursor.String
	sync.ScheduleType = domain.ScheduleType(scheduleType)
	sync.SyncIntervalUnit = domain.IntervalUnit(intervalUnit.String)
	sync.CronExpression = cronExpr.String
	sync.Status = domain.SyncStatus(status)
	sync.WorkflowID = workflowID.String
	sync.DiscardedAt = TimePtr(discardedAt)

	return &sync, nil
}

// SyncRunStore implements driven.SyncRunStore using PostgreSQL
type SyncRunStore struct {
	db *DB
}

// NewSyncRunStore creates a new SyncRunStore
func NewSyncRunStore(db *DB) *SyncRunStore {
	return &SyncRunStore{db: db}
}

const runColumns = `id, sync_id, workspace_id, status, total_queried, success_rows, failed_rows,
	error, started_at, finished_at, created_at, updated_at, discarded_at`

// Save creates or updates a run
func (s *SyncRunStore) Save(ctx context.Context, run *domain.SyncRun) error {
	query := `
		INSERT INTO sync_runs (` + runColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		ON CONFLICT (id) DO UPDATE SET
			status = EXCLUDED.status,
			total_queried = EXCLUDED.total_queried,
			success_rows = EXCLUDED.success_rows,
			failed_rows = EXCLUDED.failed_rows,
			error = EXCLUDED.error,
			started_at = EXCLUDED.started_at,
			finished_at = EXCLUDED.finished_at,
			updated_at = EXCLUDED.updated_at,
			discarded_at = EXCLUDED.discarded_at
	`

	_, err := s.db.ExecContext(ctx, query,
		run.ID,
		run.SyncID,
		run.WorkspaceID,
		string(run.Status),
		run.Stats.TotalQueried,
		run.Stats.SuccessRows,
		run.Stats.FailedRows,
		nullString(run.Error),
		NullTime(run.StartedAt),
		NullTime(run.FinishedAt),
		run.CreatedAt,
		run.UpdatedAt,
		NullTime(run.DiscardedAt),
	)
	if err != nil {
		return fmt.Errorf("save sync run: %w", err)
	}
	return nil
}

// Get retrieves a run by ID
func (s *SyncRunStore) Get(ctx context.Context, id string) (*domain.SyncRun, error) {
	query := `SELECT ` + runColumns + ` FROM sync_runs WHERE id = $1`

	run, err := scanSyncRun(s.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get sync run: %w", err)
	}
	return run, nil
}

// ListBySync retrieves the non-discarded runs of a sync, newest first
func (s *SyncRunStore) ListBySync(ctx context.Context, syncID string, limit int) ([]*domain.SyncRun, error) {
	query := `SELECT ` + runColumns + ` FROM sync_runs
		WHERE sync_id = $1 AND discarded_at IS NULL
		ORDER BY created_at DESC
		LIMIT $2`

	rows, err := s.db.QueryContext(ctx, query, syncID, limit)
	if err != nil {
		return nil, fmt.Errorf("list sync runs: %w", err)
	}
	defer rows.Close()

	var runs []*domain.SyncRun
	for rows.Next() {
		run, err := scanSyncRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scan sync run: %w", err)
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

func scanSyncRun(row rowScanner) (*domain.SyncRun, error) {
	var (
		run         domain.SyncRun
		status      string
		errMsg      sql.NullString
		startedAt   sql.NullTime
		finishedAt  sql.NullTime
		discardedAt sql.NullTime
	)

	err := row.Scan(
		&run.ID,
		&run.SyncID,
		&run.WorkspaceID,
		&status,
		&run.Stats.TotalQueried,
		&run.Stats.SuccessRows,
		&run.Stats.FailedRows,
		&errMsg,
		&startedAt,
		&finishedAt,
		&run.CreatedAt,
		&run.UpdatedAt,
		&discardedAt,
	)
	if err != nil {
		return nil, err
	}

	run.Status = domain.SyncRunStatus(status)
	run.Error = errMsg.String
	run.StartedAt = TimePtr(startedAt)
	run.FinishedAt = TimePtr(finishedAt)
	run.DiscardedAt = TimePtr(discardedAt)
	return &run, nil
}
