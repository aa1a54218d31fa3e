package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/custodia-labs/sercha-sync/internal/core/domain"
	"github.com/custodia-labs/sercha-sync/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-sync/internal/core/services"
)

// WorkflowHandler executes the workflow steps carried by queue tasks.
// services.WorkflowRunner implements it.
type WorkflowHandler interface {
	StartScheduleWorkflow(ctx context.Context, syncID, workflowID string) error
	Terminate(ctx context.Context, targetID string) error
	RunSync(ctx context.Context, syncID string) error
}

var _ WorkflowHandler = (*services.WorkflowRunner)(nil)

// Worker processes workflow and run tasks from the task queue.
type Worker struct {
	taskQueue driven.TaskQueue
	workflows WorkflowHandler
	scheduler *services.Scheduler
	logger    *slog.Logger

	concurrency    int
	dequeueTimeout int // seconds

	mu      sync.RWMutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

// WorkerConfig holds configuration for the worker.
type WorkerConfig struct {
	TaskQueue      driven.TaskQueue
	Workflows      WorkflowHandler
	Scheduler      *services.Scheduler // optional
	Logger         *slog.Logger
	Concurrency    int // Number of concurrent task processors
	DequeueTimeout int // Seconds to wait for a task before checking again
}

// NewWorker creates a new task worker.
func NewWorker(cfg WorkerConfig) *Worker {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	concurrency := cfg.Concurrency
	if concurrency <= 0 {
		concurrency = 1
	}

	dequeueTimeout := cfg.DequeueTimeout
	if dequeueTimeout <= 0 {
		dequeueTimeout = 5
	}

	return &Worker{
		taskQueue:      cfg.TaskQueue,
		workflows:      cfg.Workflows,
		scheduler:      cfg.Scheduler,
		logger:         logger.With("component", "worker"),
		concurrency:    concurrency,
		dequeueTimeout: dequeueTimeout,
	}
}

// Start launches the processing goroutines and the scheduler, if any.
// It returns immediately; call Stop to shut down.
func (w *Worker) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return nil
	}
	w.running = true
	w.stopCh = make(chan struct{})
	w.doneCh = make(chan struct{})
	w.mu.Unlock()

	w.logger.Info("worker starting",
		"concurrency", w.concurrency,
		"dequeue_timeout", w.dequeueTimeout,
	)

	if w.scheduler != nil {
		if err := w.scheduler.Start(ctx); err != nil {
			w.logger.Error("failed to start scheduler", "error", err)
		}
	}

	var wg sync.WaitGroup
	for i := 0; i < w.concurrency; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			w.processLoop(ctx, workerID)
		}(i)
	}

	go func() {
		wg.Wait()
		close(w.doneCh)
	}()

	return nil
}

// Stop signals the goroutines and waits for in-flight tasks to finish.
func (w *Worker) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return
	}
	close(w.stopCh)
	doneCh := w.doneCh
	w.mu.Unlock()

	if w.scheduler != nil {
		w.scheduler.Stop()
	}

	<-doneCh

	w.mu.Lock()
	w.running = false
	w.mu.Unlock()

	w.logger.Info("worker stopped")
}

// IsRunning reports whether Start has been called without a matching Stop
func (w *Worker) IsRunning() bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.running
}

func (w *Worker) processLoop(ctx context.Context, workerID int) {
	logger := w.logger.With("worker_id", workerID)
	logger.Debug("worker goroutine started")

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stopCh:
			return
		default:
		}

		task, err := w.taskQueue.DequeueWithTimeout(ctx, w.dequeueTimeout)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				continue
			}
			logger.Error("failed to dequeue task", "error", err)
			select {
			case <-time.After(time.Second):
			case <-w.stopCh:
				return
			}
			continue
		}
		if task == nil {
			continue
		}

		w.processTask(ctx, task, logger)
	}
}

// processTask runs one task and settles it on the queue.
func (w *Worker) processTask(ctx context.Context, task *domain.Task, logger *slog.Logger) {
	logger = logger.With(
		"task_id", task.ID,
		"task_type", task.Type,
		"workspace_id", task.WorkspaceID,
		"attempt", task.Attempts,
	)
	logger.Info("processing task")

	start := time.Now()
	err := w.dispatch(ctx, task)
	duration := time.Since(start)

	if err != nil {
		logger.Error("task failed", "duration", duration, "error", err)
		if nackErr := w.taskQueue.Nack(ctx, task.ID, err.Error()); nackErr != nil {
			logger.Error("failed to nack task", "nack_error", nackErr)
		}
		return
	}

	logger.Info("task completed", "duration", duration)
	if ackErr := w.taskQueue.Ack(ctx, task.ID); ackErr != nil {
		logger.Error("failed to ack task", "ack_error", ackErr)
	}
}

func (w *Worker) dispatch(ctx context.Context, task *domain.Task) error {
	switch task.Type {
	case domain.TaskTypeStartWorkflow:
		syncID := task.SyncID()
		if syncID == "" {
			return fmt.Errorf("%s not found in task payload", domain.PayloadSyncID)
		}
		return w.workflows.StartScheduleWorkflow(ctx, syncID, task.Get(domain.PayloadWorkflowID))

	case domain.TaskTypeTerminateWorkflow:
		targetID := task.Get(domain.PayloadTargetID)
		if targetID == "" {
			return fmt.Errorf("%s not found in task payload", domain.PayloadTargetID)
		}
		return w.workflows.Terminate(ctx, targetID)

	case domain.TaskTypeRunSync:
		syncID := task.SyncID()
		if syncID == "" {
			return fmt.Errorf("%s not found in task payload", domain.PayloadSyncID)
		}
		return w.workflows.RunSync(ctx, syncID)

	default:
		return fmt.Errorf("unknown task type: %s", task.Type)
	}
}

// Health is the worker's health snapshot
type Health struct {
	Running     bool   `json:"running"`
	QueueHealth bool   `json:"queue_health"`
	Error       string `json:"error,omitempty"`
}

// Health returns the health status of the worker.
func (w *Worker) Health(ctx context.Context) Health {
	health := Health{Running: w.IsRunning()}

	if err := w.taskQueue.Ping(ctx); err != nil {
		health.Error = err.Error()
	} else {
		health.QueueHealth = true
	}
	return health
}
