package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/custodia-labs/sercha-sync/internal/core/domain"
	"github.com/custodia-labs/sercha-sync/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-sync/internal/core/ports/driving"
)

// Ensure syncService implements SyncService
var _ driving.SyncService = (*syncService)(nil)

// SyncServiceConfig holds the collaborators of the sync lifecycle controller.
type SyncServiceConfig struct {
	Syncs      driven.SyncStore
	Runs       driven.SyncRunStore
	Catalogs   driven.CatalogStore
	Translator *Translator
	Engine     driven.WorkflowEngine
	Reporter   driven.ErrorReporter
	TaskQueue  driven.TaskQueue // Optional: required for TriggerRun
	Logger     *slog.Logger
}

type syncService struct {
	syncs      driven.SyncStore
	runs       driven.SyncRunStore
	catalogs   driven.CatalogStore
	translator *Translator
	taskQueue  driven.TaskQueue
	effects    *effectRunner
	logger     *slog.Logger
}

// NewSyncService creates the sync lifecycle controller
func NewSyncService(cfg SyncServiceConfig) driving.SyncService {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &syncService{
		syncs:      cfg.Syncs,
		runs:       cfg.Runs,
		catalogs:   cfg.Catalogs,
		translator: cfg.Translator,
		taskQueue:  cfg.TaskQueue,
		effects: &effectRunner{
			engine:   cfg.Engine,
			reporter: cfg.Reporter,
			logger:   logger,
		},
		logger: logger,
	}
}

// Create validates and persists a new pending sync
func (s *syncService) Create(ctx context.Context, req driving.CreateSyncRequest) (*domain.Sync, error) {
	now := time.Now()
	sync := &domain.Sync{
		ID:               domain.GenerateID(),
		WorkspaceID:      req.WorkspaceID,
		SourceID:         req.SourceID,
		DestinationID:    req.DestinationID,
		ModelID:          req.ModelID,
		Configuration:    req.Configuration,
		StreamName:       req.StreamName,
		SyncMode:         req.SyncMode,
		CursorField:      req.CursorField,
		ScheduleType:     req.ScheduleType,
		SyncInterval:     req.SyncInterval,
		SyncIntervalUnit: req.SyncIntervalUnit,
		CronExpression:   req.CronExpression,
		Status:           domain.InitialSyncStatus,
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	if err := s.commit(ctx, changeCreated, nil, sync); err != nil {
		return nil, err
	}
	return sync, nil
}

// Update applies the non-nil fields of req and re-validates the sync
func (s *syncService) Update(ctx context.Context, id string, req driving.UpdateSyncRequest) (*domain.Sync, error) {
	before, err := s.getLive(ctx, id)
	if err != nil {
		return nil, err
	}

	sync := before.Clone()
	if req.Configuration != nil {
		sync.Configuration = req.Configuration
	}
	if req.StreamName != nil {
		sync.StreamName = *req.StreamName
	}
	if req.SyncMode != nil {
		sync.SyncMode = *req.SyncMode
	}
	if req.CursorField != nil {
		sync.CursorField = *req.CursorField
	}
	if req.ScheduleType != nil {
		sync.ScheduleType = *req.ScheduleType
	}
	if req.SyncInterval != nil {
		sync.SyncInterval = *req.SyncInterval
	}
	if req.SyncIntervalUnit != nil {
		sync.SyncIntervalUnit = *req.SyncIntervalUnit
	}
	if req.CronExpression != nil {
		sync.CronExpression = *req.CronExpression
	}
	sync.UpdatedAt = time.Now()

	if err := s.commit(ctx, changeUpdated, before, sync); err != nil {
		return nil, err
	}
	return sync, nil
}

// Get retrieves a sync by ID. Discarded syncs are not found.
func (s *syncService) Get(ctx context.Context, id string) (*domain.Sync, error) {
	return s.getLive(ctx, id)
}

// List retrieves the live syncs of a workspace
func (s *syncService) List(ctx context.Context, workspaceID string) ([]*domain.Sync, error) {
	return s.syncs.List(ctx, workspaceID)
}

// Delete soft-deletes the sync and its runs, then requests termination of
// its workflow.
func (s *syncService) Delete(ctx context.Context, id string) error {
	sync, err := s.getLive(ctx, id)
	if err != nil {
		return err
	}

	now := time.Now()
	if err := s.syncs.SoftDelete(ctx, id, now); err != nil {
		return fmt.Errorf("discard sync: %w", err)
	}
	sync.DiscardedAt = &now

	s.logger.Info("sync discarded", "sync_id", id)
	s.effects.execute(ctx, id, planEffects(changeDiscarded, nil, sync))
	return nil
}

// Validate runs the validation gate: struct rules, schedule consistency,
// then stream resolution against the destination's current catalog.
func (s *syncService) Validate(ctx context.Context, sync *domain.Sync) error {
	if sync == nil {
		return domain.NewValidationError("", "sync is required", nil)
	}
	if err := validateStruct(sync); err != nil {
		return err
	}
	if err := sync.ValidateSchedule(); err != nil {
		field := "schedule_type"
		if errors.Is(err, domain.ErrInvalidIntervalUnit) {
			field = "sync_interval_unit"
		}
		return domain.NewValidationError(field, err.Error(), err)
	}

	catalog, err := s.catalogs.GetByConnector(ctx, sync.DestinationID)
	if errors.Is(err, domain.ErrNotFound) {
		return domain.NewValidationError("catalog", "Catalog is missing", domain.ErrCatalogMissing)
	}
	if err != nil {
		return fmt.Errorf("load catalog: %w", err)
	}
	if _, ok := catalog.FindStream(sync.StreamName); !ok {
		return domain.NewValidationError("stream_name",
			"Add a valid stream_name associated with destination connector", domain.ErrStreamNotFound)
	}
	return nil
}

// Fire applies a lifecycle event. An event that is not permitted from the
// current status fails loudly and changes nothing.
func (s *syncService) Fire(ctx context.Context, id string, event domain.SyncEvent) (*domain.Sync, error) {
	before, err := s.getLive(ctx, id)
	if err != nil {
		return nil, err
	}

	transition, err := before.Status.Next(event)
	if err != nil {
		s.logger.Error("invalid sync transition",
			"sync_id", id,
			"event", event,
			"status", before.Status,
			"error", err,
		)
		return nil, err
	}

	sync := before.Clone()
	sync.Status = transition.To
	sync.UpdatedAt = time.Now()

	if err := s.commit(ctx, changeUpdated, before, sync); err != nil {
		return nil, err
	}

	s.logger.Info("sync transitioned",
		"sync_id", id,
		"event", event,
		"from", transition.From,
		"to", transition.To,
	)
	return sync, nil
}

// Descriptor builds the execution descriptor of a sync
func (s *syncService) Descriptor(ctx context.Context, id string) (*domain.ExecutionDescriptor, error) {
	return s.translator.Descriptor(ctx, id)
}

// TriggerRun queues a single run of a sync. Disabled syncs cannot run.
func (s *syncService) TriggerRun(ctx context.Context, id string) (*domain.Task, error) {
	if s.taskQueue == nil {
		return nil, fmt.Errorf("task queue not configured")
	}
	sync, err := s.getLive(ctx, id)
	if err != nil {
		return nil, err
	}
	if sync.Status == domain.SyncStatusDisabled {
		return nil, domain.NewValidationError("status", "sync is disabled", nil)
	}

	task := domain.NewRunSyncTask(sync.WorkspaceID, sync.ID)
	if err := s.taskQueue.Enqueue(ctx, task); err != nil {
		return nil, fmt.Errorf("enqueue run: %w", err)
	}

	s.logger.Info("sync run triggered", "sync_id", id, "task_id", task.ID)
	return task, nil
}

// ListRuns retrieves the run history of a sync
func (s *syncService) ListRuns(ctx context.Context, id string, limit int) ([]*domain.SyncRun, error) {
	if _, err := s.getLive(ctx, id); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 50
	}
	return s.runs.ListBySync(ctx, id, limit)
}

// commit is the explicit step sequence of every mutation:
// validate, persist, plan, execute. Orchestration failures are reported by
// the effect runner and never reach the caller.
func (s *syncService) commit(ctx context.Context, kind changeKind, before, after *domain.Sync) error {
	if err := s.Validate(ctx, after); err != nil {
		return err
	}
	if err := s.syncs.Save(ctx, after); err != nil {
		return fmt.Errorf("save sync: %w", err)
	}
	s.effects.execute(ctx, after.ID, planEffects(kind, before, after))
	return nil
}

func (s *syncService) getLive(ctx context.Context, id string) (*domain.Sync, error) {
	sync, err := s.syncs.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if sync.IsDiscarded() {
		return nil, domain.ErrNotFound
	}
	return sync, nil
}
