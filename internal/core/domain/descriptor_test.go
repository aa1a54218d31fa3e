package domain

import (
	"errors"
	"testing"
)

func descriptorFixtures() (*Sync, *Model, *Connector, *Connector, *Catalog) {
	sync := newTestSync()
	sync.SyncMode = SyncModeIncremental
	sync.CursorField = "updated_at"
	sync.CurrentCursorField = "2024-01-01"

	model := &Model{ID: "model-1", Name: "users", Query: "SELECT * FROM users", QueryType: "raw_sql", PrimaryKey: "id"}
	source := &Connector{
		ID:            "src-1",
		Name:          "warehouse",
		ConnectorType: ConnectorTypeSource,
		ConnectorName: "Postgresql",
		Configuration: map[string]any{"host": "db", "options": map[string]any{"ssl": true}},
	}
	destination := &Connector{
		ID:            "dst-1",
		Name:          "crm",
		ConnectorType: ConnectorTypeDestination,
		ConnectorName: "Klaviyo",
		Configuration: map[string]any{"api_key": "k"},
	}
	catalog := &Catalog{ConnectorID: "dst-1", Payload: CatalogPayload{
		RequestRateLimit:       intPtr(100),
		RequestRateLimitUnit:   strPtr("minute"),
		RequestRateConcurrency: intPtr(10),
		Streams: []Stream{{
			Name:             "profiles",
			URL:              "https://api/profiles",
			RequestMethod:    "POST",
			BatchSupport:     true,
			BatchSize:        50,
			RequestRateLimit: intPtr(60),
			JSONSchema:       map[string]any{"type": "object"},
		}},
	}}
	return sync, model, source, destination, catalog
}

func TestNewExecutionDescriptor(t *testing.T) {
	sync, model, source, destination, catalog := descriptorFixtures()
	stream, _ := catalog.FindStream(sync.StreamName)

	d, err := NewExecutionDescriptor(sync, model, source, destination, stream, catalog.ResolveRateLimit(stream))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if d.SyncID != "sync-1" {
		t.Errorf("expected sync id sync-1, got %s", d.SyncID)
	}
	if d.DestinationSyncMode != DestinationSyncModeInsert {
		t.Errorf("expected insert, got %s", d.DestinationSyncMode)
	}
	if d.SyncMode != SyncModeIncremental || d.CursorField != "updated_at" || d.CurrentCursorField != "2024-01-01" {
		t.Errorf("unexpected sync fields: %+v", d)
	}
	if d.Model.Query != "SELECT * FROM users" || d.Model.PrimaryKey != "id" {
		t.Errorf("unexpected model: %+v", d.Model)
	}
	if d.Source.Type != ConnectorTypeSource || d.Source.ConnectorName != "Postgresql" {
		t.Errorf("unexpected source: %+v", d.Source)
	}
	if d.Destination.ConnectionSpecification["api_key"] != "k" {
		t.Errorf("unexpected destination: %+v", d.Destination)
	}
	if d.Stream.RequestRateLimit != 60 || d.Stream.RequestRateLimitUnit != "minute" || d.Stream.RequestRateConcurrency != 10 {
		t.Errorf("unexpected resolved rate limit: %+v", d.Stream)
	}
	if d.Stream.BatchSize != 50 || !d.Stream.BatchSupport || d.Stream.URL != "https://api/profiles" {
		t.Errorf("unexpected stream: %+v", d.Stream)
	}
}

func TestNewExecutionDescriptor_DeepCopy(t *testing.T) {
	sync, model, source, destination, catalog := descriptorFixtures()
	stream, _ := catalog.FindStream(sync.StreamName)

	d, err := NewExecutionDescriptor(sync, model, source, destination, stream, catalog.ResolveRateLimit(stream))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	source.Configuration["host"] = "changed"
	source.Configuration["options"].(map[string]any)["ssl"] = false
	stream.JSONSchema["type"] = "array"

	if d.Source.ConnectionSpecification["host"] != "db" {
		t.Error("expected descriptor to be isolated from source edits")
	}
	if d.Source.ConnectionSpecification["options"].(map[string]any)["ssl"] != true {
		t.Error("expected nested maps to be copied")
	}
	if d.Stream.JSONSchema["type"] != "object" {
		t.Error("expected descriptor to be isolated from stream edits")
	}
}

func TestNewExecutionDescriptor_Errors(t *testing.T) {
	sync, model, source, destination, _ := descriptorFixtures()
	stream := &Stream{Name: "profiles"}

	if _, err := NewExecutionDescriptor(sync, model, source, destination, nil, RateLimit{}); !errors.Is(err, ErrStreamNotFound) {
		t.Errorf("expected ErrStreamNotFound, got %v", err)
	}
	if _, err := NewExecutionDescriptor(sync, nil, source, destination, stream, RateLimit{}); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput, got %v", err)
	}
	if _, err := NewExecutionDescriptor(nil, model, source, destination, stream, RateLimit{}); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput, got %v", err)
	}
}

func TestWorkflowCommands(t *testing.T) {
	start := StartScheduleCommand("sync-1")
	if start.Action != WorkflowActionStart || start.Kind != WorkflowKindScheduleSync || start.SyncID != "sync-1" {
		t.Errorf("unexpected start command: %+v", start)
	}

	term := TerminateCommand("sync-1", "wf-1")
	if term.Action != WorkflowActionTerminate || term.Kind != WorkflowKindTerminate {
		t.Errorf("unexpected terminate command: %+v", term)
	}
	if term.WorkflowID != "terminate-wf-1" || term.TargetID != "wf-1" {
		t.Errorf("unexpected terminate ids: %+v", term)
	}
	if ScheduleWorkflowID("sync-1") != "schedule_sync-sync-1" {
		t.Errorf("unexpected schedule workflow id: %s", ScheduleWorkflowID("sync-1"))
	}
}
