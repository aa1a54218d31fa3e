package postgres

import (
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/custodia-labs/sercha-sync/internal/core/domain"
)

// fakeRow feeds fixed values into Scan destinations in column order
type fakeRow struct {
	values []any
	err    error
}

func (r fakeRow) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	for i, d := range dest {
		switch p := d.(type) {
		case *string:
			*p = r.values[i].(string)
		case *int:
			*p = r.values[i].(int)
		case *[]byte:
			*p = r.values[i].([]byte)
		case *time.Time:
			*p = r.values[i].(time.Time)
		case *sql.NullTime:
			*p = r.values[i].(sql.NullTime)
		}
	}
	return nil
}

func TestScanTask(t *testing.T) {
	now := time.Now()
	row := fakeRow{values: []any{
		"task-1",
		"run_sync",
		"ws-1",
		[]byte(`{"sync_id":"sync-1"}`),
		"processing",
		0,
		1,
		1,
		"",
		now,
		now,
		sql.NullTime{Time: now, Valid: true},
		sql.NullTime{},
		now,
	}}

	task, err := scanTask(row)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if task.Type != domain.TaskTypeRunSync || task.Status != domain.TaskStatusProcessing {
		t.Errorf("unexpected type/status %s/%s", task.Type, task.Status)
	}
	if task.SyncID() != "sync-1" {
		t.Errorf("expected sync-1, got %q", task.SyncID())
	}
	if task.StartedAt == nil || !task.StartedAt.Equal(now) {
		t.Errorf("expected started_at %v, got %v", now, task.StartedAt)
	}
	if task.CompletedAt != nil {
		t.Errorf("expected no completed_at, got %v", task.CompletedAt)
	}
	if task.CanRetry() {
		t.Error("expected a single-attempt task to be exhausted")
	}
}

func TestScanTask_BadPayload(t *testing.T) {
	now := time.Now()
	row := fakeRow{values: []any{
		"task-1", "run_sync", "ws-1", []byte(`{not json`), "pending",
		0, 0, 3, "", now, now, sql.NullTime{}, sql.NullTime{}, now,
	}}
	if _, err := scanTask(row); err == nil {
		t.Error("expected error for malformed payload")
	}
}

func TestScanTask_NoRows(t *testing.T) {
	if _, err := scanTask(fakeRow{err: sql.ErrNoRows}); !errors.Is(err, sql.ErrNoRows) {
		t.Errorf("expected sql.ErrNoRows, got %v", err)
	}
}

func TestNewQueue_Defaults(t *testing.T) {
	q := NewQueue(nil)
	if q.pollInterval != DefaultPollInterval {
		t.Errorf("expected poll interval %v, got %v", DefaultPollInterval, q.pollInterval)
	}
	if q.claimAfter <= 0 {
		t.Error("expected a positive reclaim window")
	}
}
