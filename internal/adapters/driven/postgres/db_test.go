package postgres

import (
	"context"
	"strings"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig("postgres://localhost/sercha_sync")
	if cfg.URL != "postgres://localhost/sercha_sync" {
		t.Errorf("unexpected URL %q", cfg.URL)
	}
	if cfg.ConnectAttempts != 5 {
		t.Errorf("expected 5 connect attempts, got %d", cfg.ConnectAttempts)
	}
	if cfg.MaxOpenConns <= cfg.MaxIdleConns {
		t.Errorf("expected more open than idle conns, got %d/%d", cfg.MaxOpenConns, cfg.MaxIdleConns)
	}
}

func TestNullString(t *testing.T) {
	if ns := nullString(""); ns.Valid {
		t.Error("empty string should be NULL")
	}
	if ns := nullString("updated_at"); !ns.Valid || ns.String != "updated_at" {
		t.Errorf("unexpected value %+v", ns)
	}
}

func TestNullTimeRoundTrip(t *testing.T) {
	if TimePtr(NullTime(nil)) != nil {
		t.Error("nil time should stay nil")
	}

	now := time.Now()
	got := TimePtr(NullTime(&now))
	if got == nil || !got.Equal(now) {
		t.Errorf("expected %v, got %v", now, got)
	}
}

func TestHashLockName(t *testing.T) {
	a := hashLockName("scheduler")
	if a != hashLockName("scheduler") {
		t.Error("expected stable key for the same name")
	}
	if a == hashLockName("scheduler-2") {
		t.Error("expected distinct keys for distinct names")
	}
}

func TestAdvisoryLock_ExtendWithoutAcquire(t *testing.T) {
	lock := NewAdvisoryLock(&DB{})
	if err := lock.Extend(context.Background(), "scheduler", time.Minute); err == nil {
		t.Error("expected error extending a lock that was never acquired")
	}
}

func TestSchemaDefinesTables(t *testing.T) {
	for _, table := range []string{"connectors", "models", "catalogs", "syncs", "sync_runs", "sync_schedules", "tasks"} {
		if !strings.Contains(schema, "CREATE TABLE IF NOT EXISTS "+table+" (") {
			t.Errorf("schema is missing table %s", table)
		}
	}
}

func TestUpsertSyncQuery_KeepsDiscardedRows(t *testing.T) {
	if !strings.Contains(upsertSyncQuery, "WHERE syncs.discarded_at IS NULL") {
		t.Error("upsert must not write over a discarded sync")
	}
	if strings.Count(upsertSyncQuery, "$") != 19 {
		t.Errorf("expected 19 placeholders, got %d", strings.Count(upsertSyncQuery, "$"))
	}
}
