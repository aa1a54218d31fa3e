package services

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/custodia-labs/sercha-sync/internal/core/domain"
	"github.com/custodia-labs/sercha-sync/internal/core/ports/driven"
)

const schedulerLockName = "scheduler"

// Scheduler fires due sync schedules by enqueuing run_sync tasks.
// It runs on worker nodes.
//
// For multi-worker deployments, configure a DistributedLock to prevent
// duplicate runs across instances.
type Scheduler struct {
	schedules driven.ScheduleStore
	syncs     driven.SyncStore
	taskQueue driven.TaskQueue
	lock      driven.DistributedLock
	logger    *slog.Logger
	now       func() time.Time

	mu       sync.RWMutex
	running  bool
	stopCh   chan struct{}
	doneCh   chan struct{}
	interval time.Duration

	lockTTL      time.Duration
	lockRequired bool
}

// SchedulerConfig holds configuration for the scheduler.
type SchedulerConfig struct {
	Schedules    driven.ScheduleStore
	Syncs        driven.SyncStore
	TaskQueue    driven.TaskQueue
	Lock         driven.DistributedLock // Optional: distributed lock for multi-instance coordination
	Logger       *slog.Logger
	PollInterval time.Duration // How often to check for due schedules (default: 30s)
	LockTTL      time.Duration // TTL for the distributed lock (default: 60s)
	LockRequired bool          // Skip the cycle when the lock backend errors
}

// NewScheduler creates a new scheduler.
func NewScheduler(cfg SchedulerConfig) *Scheduler {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	interval := cfg.PollInterval
	if interval == 0 {
		interval = 30 * time.Second
	}

	lockTTL := cfg.LockTTL
	if lockTTL == 0 {
		lockTTL = 2 * interval
	}

	return &Scheduler{
		schedules:    cfg.Schedules,
		syncs:        cfg.Syncs,
		taskQueue:    cfg.TaskQueue,
		lock:         cfg.Lock,
		logger:       logger,
		now:          time.Now,
		interval:     interval,
		lockTTL:      lockTTL,
		lockRequired: cfg.LockRequired,
	}
}

// Start begins the scheduler loop.
// It runs until Stop is called or context is cancelled.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = true
	s.stopCh = make(chan struct{})
	s.doneCh = make(chan struct{})
	s.mu.Unlock()

	s.logger.Info("scheduler starting", "poll_interval", s.interval)

	go s.run(ctx)

	return nil
}

// Stop gracefully stops the scheduler.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	close(s.stopCh)
	s.mu.Unlock()

	<-s.doneCh

	s.mu.Lock()
	s.running = false
	s.mu.Unlock()

	s.logger.Info("scheduler stopped")
}

// IsRunning reports whether the loop is active
func (s *Scheduler) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.running
}

func (s *Scheduler) run(ctx context.Context) {
	defer close(s.doneCh)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.Tick(ctx)

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("scheduler context cancelled")
			return
		case <-s.stopCh:
			return
		case <-ticker.C:
			s.Tick(ctx)
		}
	}
}

// Tick runs one polling cycle: under the lock, every due schedule enqueues
// a run and moves to its next fire time.
func (s *Scheduler) Tick(ctx context.Context) {
	if s.lock != nil {
		acquired, err := s.lock.Acquire(ctx, schedulerLockName, s.lockTTL)
		switch {
		case err != nil:
			s.logger.Warn("failed to acquire scheduler lock", "error", err)
			if s.lockRequired {
				return
			}
		case !acquired:
			s.logger.Debug("scheduler lock held by another instance, skipping cycle")
			return
		default:
			defer func() {
				if err := s.lock.Release(ctx, schedulerLockName); err != nil {
					s.logger.Warn("failed to release scheduler lock", "error", err)
				}
			}()
		}
	}

	now := s.now()
	due, err := s.schedules.ListDue(ctx, now)
	if err != nil {
		s.logger.Error("failed to list due schedules", "error", err)
		return
	}

	for _, schedule := range due {
		s.fire(ctx, schedule, now)
	}
}

func (s *Scheduler) fire(ctx context.Context, schedule *domain.SyncSchedule, now time.Time) {
	logger := s.logger.With("schedule_id", schedule.ID, "sync_id", schedule.SyncID)

	sync, err := s.syncs.Get(ctx, schedule.SyncID)
	if err != nil {
		logger.Error("failed to load scheduled sync", "error", err)
		s.saveError(ctx, schedule, now, err.Error())
		return
	}

	// The sync may have changed since the workflow started
	trigger, err := sync.Trigger()
	if sync.IsDiscarded() || sync.Status == domain.SyncStatusDisabled || err != nil || trigger.IsNone() {
		logger.Info("sync no longer scheduled, disabling schedule", "status", sync.Status)
		if _, err := s.schedules.DisableByTarget(ctx, schedule.ID); err != nil {
			logger.Warn("failed to disable schedule", "error", err)
		}
		return
	}

	next, err := NextRun(trigger.Cron, now)
	if err != nil {
		logger.Error("invalid cron expression", "cron", trigger.Cron, "error", err)
		s.saveError(ctx, schedule, now, err.Error())
		return
	}

	task := domain.NewRunSyncTask(sync.WorkspaceID, sync.ID)
	if err := s.taskQueue.Enqueue(ctx, task); err != nil {
		logger.Error("failed to enqueue scheduled run", "error", err)
		s.saveError(ctx, schedule, now, err.Error())
		return
	}

	logger.Info("enqueued scheduled run", "task_id", task.ID, "next_run", next)

	schedule.CronExpression = trigger.Cron
	schedule.LastError = ""
	schedule.Advance(now, next)
	if err := s.schedules.Save(ctx, schedule); err != nil {
		logger.Warn("failed to advance schedule", "error", err)
	}
}

// saveError records msg and pushes NextRun out so a failing schedule is
// retried with backoff instead of on every poll.
func (s *Scheduler) saveError(ctx context.Context, schedule *domain.SyncSchedule, now time.Time, msg string) {
	schedule.NextRun = now.Add(s.errorBackoff(schedule))
	schedule.LastError = msg
	schedule.UpdatedAt = now
	if err := s.schedules.Save(ctx, schedule); err != nil {
		s.logger.Warn("failed to record schedule error", "schedule_id", schedule.ID, "error", err)
	}
}

// maxErrorBackoff caps the retry delay of a failing schedule
const maxErrorBackoff = time.Hour

// errorBackoff is one poll interval after the first error, then doubles the
// previous delay while the schedule keeps failing.
func (s *Scheduler) errorBackoff(schedule *domain.SyncSchedule) time.Duration {
	backoff := s.interval
	if schedule.LastError != "" {
		if prev := schedule.NextRun.Sub(schedule.UpdatedAt); prev >= s.interval {
			backoff = 2 * prev
		}
	}
	if backoff > maxErrorBackoff {
		backoff = maxErrorBackoff
	}
	return backoff
}
