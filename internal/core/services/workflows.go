package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/custodia-labs/sercha-sync/internal/core/domain"
	"github.com/custodia-labs/sercha-sync/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-sync/internal/core/ports/driving"
)

// NextRun returns the first time after from at which a cron trigger fires.
func NextRun(expr string, from time.Time) (time.Time, error) {
	schedule, err := cron.ParseStandard(expr)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q: %v", domain.ErrInvalidSchedule, expr, err)
	}
	return schedule.Next(from), nil
}

// WorkflowRunnerConfig holds the collaborators of the workflow runner.
type WorkflowRunnerConfig struct {
	Syncs      driven.SyncStore
	Runs       driven.SyncRunStore
	Schedules  driven.ScheduleStore
	Translator *Translator
	Executor   driven.ExecutionEngine
	Lifecycle  driving.SyncService  // fires complete/fail after a run
	Reporter   driven.ErrorReporter // optional
	Logger     *slog.Logger
}

// WorkflowRunner is the worker side of the in-process orchestration engine.
// It owns schedules and runs syncs against the execution engine.
type WorkflowRunner struct {
	syncs      driven.SyncStore
	runs       driven.SyncRunStore
	schedules  driven.ScheduleStore
	translator *Translator
	executor   driven.ExecutionEngine
	lifecycle  driving.SyncService
	reporter   driven.ErrorReporter
	logger     *slog.Logger
	now        func() time.Time
}

// NewWorkflowRunner creates a new WorkflowRunner
func NewWorkflowRunner(cfg WorkflowRunnerConfig) *WorkflowRunner {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &WorkflowRunner{
		syncs:      cfg.Syncs,
		runs:       cfg.Runs,
		schedules:  cfg.Schedules,
		translator: cfg.Translator,
		executor:   cfg.Executor,
		lifecycle:  cfg.Lifecycle,
		reporter:   cfg.Reporter,
		logger:     logger,
		now:        time.Now,
	}
}

// StartScheduleWorkflow creates or refreshes the recurring schedule of a sync
// and records the workflow id on it. Manual, disabled and discarded syncs
// get none.
func (r *WorkflowRunner) StartScheduleWorkflow(ctx context.Context, syncID, workflowID string) error {
	sync, err := r.syncs.Get(ctx, syncID)
	if err != nil {
		return fmt.Errorf("load sync: %w", err)
	}
	if sync.IsDiscarded() || sync.Status == domain.SyncStatusDisabled {
		r.logger.Info("skipping schedule for inactive sync", "sync_id", syncID, "status", sync.Status)
		return nil
	}

	trigger, err := sync.Trigger()
	if err != nil {
		return err
	}
	if trigger.IsNone() {
		r.logger.Info("manual sync has no schedule", "sync_id", syncID)
		return nil
	}

	if workflowID == "" {
		workflowID = domain.ScheduleWorkflowID(syncID)
	}

	now := r.now()
	next, err := NextRun(trigger.Cron, now)
	if err != nil {
		return err
	}

	schedule := &domain.SyncSchedule{
		ID:             workflowID,
		SyncID:         sync.ID,
		WorkspaceID:    sync.WorkspaceID,
		CronExpression: trigger.Cron,
		Enabled:        true,
		NextRun:        next,
		UpdatedAt:      now,
	}
	if existing, err := r.schedules.Get(ctx, workflowID); err == nil {
		schedule.LastRun = existing.LastRun
	} else if !errors.Is(err, domain.ErrNotFound) {
		return fmt.Errorf("load schedule: %w", err)
	}

	if err := r.schedules.Save(ctx, schedule); err != nil {
		return fmt.Errorf("save schedule: %w", err)
	}
	if err := r.syncs.SetWorkflowID(ctx, syncID, workflowID); err != nil {
		return fmt.Errorf("record workflow id: %w", err)
	}

	r.logger.Info("schedule workflow started",
		"sync_id", syncID,
		"workflow_id", workflowID,
		"cron", trigger.Cron,
		"next_run", next,
	)
	return nil
}

// Terminate disables every schedule addressed by targetID, which may be a
// workflow id or a sync id. Terminating nothing is not an error.
// Terminate tasks can arrive after a later start, so a target that resolves
// to a live, enabled, scheduled sync is left running.
func (r *WorkflowRunner) Terminate(ctx context.Context, targetID string) error {
	sync, err := r.resolveTarget(ctx, targetID)
	if err != nil {
		return err
	}
	if sync != nil && stillScheduled(sync) {
		r.logger.Warn("ignoring stale terminate, sync is still scheduled",
			"target_id", targetID,
			"sync_id", sync.ID,
			"status", sync.Status,
		)
		return nil
	}

	n, err := r.schedules.DisableByTarget(ctx, targetID)
	if err != nil {
		return fmt.Errorf("disable schedules: %w", err)
	}
	r.logger.Info("workflow terminated", "target_id", targetID, "schedules", n)
	return nil
}

// resolveTarget finds the sync behind a sync id or a schedule workflow id.
// A target matching neither returns nil.
func (r *WorkflowRunner) resolveTarget(ctx context.Context, targetID string) (*domain.Sync, error) {
	sync, err := r.syncs.Get(ctx, targetID)
	if err == nil {
		return sync, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return nil, fmt.Errorf("load sync: %w", err)
	}

	schedule, err := r.schedules.Get(ctx, targetID)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load schedule: %w", err)
	}

	sync, err = r.syncs.Get(ctx, schedule.SyncID)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load sync: %w", err)
	}
	return sync, nil
}

func stillScheduled(sync *domain.Sync) bool {
	return !sync.IsDiscarded() && sync.Status != domain.SyncStatusDisabled && !sync.IsManual()
}

// RunSync executes one run of a sync and feeds the outcome back into the
// lifecycle. Disabled and discarded syncs are skipped.
func (r *WorkflowRunner) RunSync(ctx context.Context, syncID string) error {
	sync, err := r.syncs.Get(ctx, syncID)
	if err != nil {
		return fmt.Errorf("load sync: %w", err)
	}
	if sync.IsDiscarded() || sync.Status == domain.SyncStatusDisabled {
		r.logger.Info("skipping run", "sync_id", syncID, "status", sync.Status, "discarded", sync.IsDiscarded())
		return nil
	}

	run := domain.NewSyncRun(sync)
	run.MarkStarted()
	if err := r.runs.Save(ctx, run); err != nil {
		return fmt.Errorf("save run: %w", err)
	}

	result, execErr := r.execute(ctx, sync)
	if execErr != nil {
		run.MarkFailed(execErr.Error())
	} else {
		run.MarkSuccess(result.Stats)
	}
	if err := r.runs.Save(ctx, run); err != nil {
		return fmt.Errorf("save run: %w", err)
	}

	event := domain.SyncEventComplete
	if execErr != nil {
		event = domain.SyncEventFail
		r.logger.Warn("sync run failed", "sync_id", syncID, "run_id", run.ID, "error", execErr)
	} else {
		if result.CurrentCursorField != "" && result.CurrentCursorField != sync.CurrentCursorField {
			if err := r.syncs.UpdateCursor(ctx, syncID, result.CurrentCursorField); err != nil {
				return fmt.Errorf("update cursor: %w", err)
			}
		}
		r.logger.Info("sync run succeeded",
			"sync_id", syncID,
			"run_id", run.ID,
			"success_rows", result.Stats.SuccessRows,
			"failed_rows", result.Stats.FailedRows,
		)
	}

	if !sync.Status.CanFire(event) {
		r.logger.Info("run outcome does not change status", "sync_id", syncID, "status", sync.Status, "event", event)
		return nil
	}
	if _, err := r.lifecycle.Fire(ctx, syncID, event); err != nil {
		// Usually the sync no longer validates against its destination catalog
		r.logger.Error("failed to record run outcome on sync",
			"sync_id", syncID,
			"run_id", run.ID,
			"event", event,
			"error", err,
		)
		if r.reporter != nil {
			r.reporter.Report(ctx, err, map[string]string{
				"sync_id": syncID,
				"run_id":  run.ID,
				"event":   string(event),
			})
		}
		return fmt.Errorf("fire %s: %w", event, err)
	}
	return nil
}

func (r *WorkflowRunner) execute(ctx context.Context, sync *domain.Sync) (*domain.ExecutionResult, error) {
	descriptor, err := r.translator.DescriptorFor(ctx, sync)
	if err != nil {
		return nil, fmt.Errorf("build descriptor: %w", err)
	}
	result, err := r.executor.Execute(ctx, descriptor)
	if err != nil {
		return nil, fmt.Errorf("execute: %w", err)
	}
	if !result.Success {
		if result.Error == "" {
			return nil, errors.New("execution engine reported failure")
		}
		return nil, errors.New(result.Error)
	}
	return result, nil
}
