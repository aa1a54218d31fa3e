package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/custodia-labs/sercha-sync/internal/core/domain"
	"github.com/custodia-labs/sercha-sync/internal/core/ports/driven"
)

// changeKind is what happened to a sync record in the committed write
type changeKind int

const (
	changeCreated changeKind = iota
	changeUpdated
	changeDiscarded
)

// planEffects computes the post-commit workflow commands for a committed
// change. before is nil for creation. Manual syncs never get schedule
// commands; soft delete always terminates exactly once.
func planEffects(kind changeKind, before, after *domain.Sync) []domain.WorkflowCommand {
	if kind == changeDiscarded {
		target := after.WorkflowID
		if target == "" {
			target = after.ID
		}
		return []domain.WorkflowCommand{domain.TerminateCommand(after.ID, target)}
	}

	if after.IsManual() {
		return nil
	}

	if kind == changeCreated {
		return []domain.WorkflowCommand{domain.StartScheduleCommand(after.ID)}
	}

	if before == nil || !after.ScheduleChanged(before) || after.Status == before.Status {
		return nil
	}
	switch after.Status {
	case domain.SyncStatusDisabled:
		return []domain.WorkflowCommand{domain.TerminateCommand(after.ID, after.ID)}
	case domain.SyncStatusPending:
		return []domain.WorkflowCommand{domain.StartScheduleCommand(after.ID)}
	}
	return nil
}

// effectRunner executes planned commands against the workflow engine. Each
// command is isolated: an error or panic is reported and logged, and the
// remaining commands still run. Nothing is returned to the caller.
type effectRunner struct {
	engine   driven.WorkflowEngine
	reporter driven.ErrorReporter
	logger   *slog.Logger
}

func (r *effectRunner) execute(ctx context.Context, syncID string, cmds []domain.WorkflowCommand) {
	for _, cmd := range cmds {
		if err := r.executeOne(ctx, cmd); err != nil {
			r.logger.Error("workflow command failed",
				"sync_id", syncID,
				"action", cmd.Action,
				"kind", cmd.Kind,
				"target_id", cmd.TargetID,
				"error", err,
			)
			if r.reporter != nil {
				r.reporter.Report(ctx, err, map[string]string{
					"sync_id":     syncID,
					"action":      string(cmd.Action),
					"workflow_id": cmd.WorkflowID,
				})
			}
		}
	}
}

func (r *effectRunner) executeOne(ctx context.Context, cmd domain.WorkflowCommand) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("workflow engine panic: %v", p)
		}
	}()

	if r.engine == nil {
		return fmt.Errorf("no workflow engine configured")
	}

	switch cmd.Action {
	case domain.WorkflowActionStart:
		return r.engine.Start(ctx, cmd.Kind, cmd.SyncID, cmd.WorkflowID)
	case domain.WorkflowActionTerminate:
		return r.engine.Terminate(ctx, cmd.Kind, cmd.TargetID, cmd.WorkflowID)
	default:
		return fmt.Errorf("unknown workflow action %q", cmd.Action)
	}
}
