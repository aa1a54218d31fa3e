package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/custodia-labs/sercha-sync/internal/core/domain"
	"github.com/custodia-labs/sercha-sync/internal/core/ports/driven/mocks"
)

type schedulerFixture struct {
	schedules *mocks.MockScheduleStore
	syncs     *mocks.MockSyncStore
	queue     *mocks.MockTaskQueue
	lock      *mocks.MockDistributedLock
	scheduler *Scheduler
	now       time.Time
}

func newSchedulerFixture(t *testing.T) *schedulerFixture {
	t.Helper()
	f := &schedulerFixture{
		schedules: mocks.NewMockScheduleStore(),
		syncs:     mocks.NewMockSyncStore(),
		queue:     mocks.NewMockTaskQueue(),
		lock:      mocks.NewMockDistributedLock(),
		now:       time.Date(2024, 3, 10, 12, 2, 0, 0, time.UTC),
	}
	f.scheduler = NewScheduler(SchedulerConfig{
		Schedules: f.schedules,
		Syncs:     f.syncs,
		TaskQueue: f.queue,
		Lock:      f.lock,
	})
	f.scheduler.now = func() time.Time { return f.now }
	return f
}

// addScheduledSync stores a sync and a schedule that is due now
func (f *schedulerFixture) addScheduledSync(t *testing.T, id string, mutate func(*domain.Sync)) {
	t.Helper()
	ctx := context.Background()
	s := &domain.Sync{
		ID:               id,
		WorkspaceID:      "ws-1",
		ScheduleType:     domain.ScheduleTypeInterval,
		SyncInterval:     5,
		SyncIntervalUnit: domain.IntervalUnitMinutes,
		Status:           domain.SyncStatusHealthy,
	}
	if mutate != nil {
		mutate(s)
	}
	if err := f.syncs.Save(ctx, s); err != nil {
		t.Fatalf("save sync: %v", err)
	}
	if err := f.schedules.Save(ctx, &domain.SyncSchedule{
		ID:             domain.ScheduleWorkflowID(id),
		SyncID:         id,
		WorkspaceID:    "ws-1",
		CronExpression: "*/5 * * * *",
		Enabled:        true,
		NextRun:        f.now.Add(-time.Minute),
	}); err != nil {
		t.Fatalf("save schedule: %v", err)
	}
}

func TestNewScheduler_Defaults(t *testing.T) {
	s := NewScheduler(SchedulerConfig{})

	if s.interval != 30*time.Second {
		t.Errorf("expected default interval 30s, got %v", s.interval)
	}
	if s.lockTTL != time.Minute {
		t.Errorf("expected default lock TTL 1m, got %v", s.lockTTL)
	}
	if s.logger == nil {
		t.Error("expected default logger")
	}
}

func TestScheduler_StartStop(t *testing.T) {
	f := newSchedulerFixture(t)
	f.scheduler.interval = 50 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := f.scheduler.Start(ctx); err != nil {
		t.Fatalf("failed to start scheduler: %v", err)
	}
	if !f.scheduler.IsRunning() {
		t.Error("expected scheduler to be running")
	}

	// Start again should be no-op
	if err := f.scheduler.Start(ctx); err != nil {
		t.Errorf("second start should not error: %v", err)
	}

	f.scheduler.Stop()
	if f.scheduler.IsRunning() {
		t.Error("expected scheduler to be stopped")
	}

	// Stop again should be no-op
	f.scheduler.Stop()
}

func TestScheduler_TickEnqueuesDueRuns(t *testing.T) {
	f := newSchedulerFixture(t)
	f.addScheduledSync(t, "sync-1", nil)

	f.scheduler.Tick(context.Background())

	tasks := f.queue.Enqueued()
	if len(tasks) != 1 {
		t.Fatalf("expected 1 task, got %d", len(tasks))
	}
	if tasks[0].Type != domain.TaskTypeRunSync || tasks[0].SyncID() != "sync-1" {
		t.Errorf("unexpected task: %+v", tasks[0])
	}

	schedule, err := f.schedules.Get(context.Background(), domain.ScheduleWorkflowID("sync-1"))
	if err != nil {
		t.Fatalf("get schedule: %v", err)
	}
	want := time.Date(2024, 3, 10, 12, 5, 0, 0, time.UTC)
	if !schedule.NextRun.Equal(want) {
		t.Errorf("expected next run %v, got %v", want, schedule.NextRun)
	}
	if schedule.LastRun == nil || !schedule.LastRun.Equal(f.now) {
		t.Errorf("expected last run %v, got %v", f.now, schedule.LastRun)
	}

	// Not due again in the same minute
	f.scheduler.Tick(context.Background())
	if len(f.queue.Enqueued()) != 1 {
		t.Errorf("expected no new task, got %d", len(f.queue.Enqueued()))
	}

	if f.lock.IsHeld(schedulerLockName) {
		t.Error("expected lock to be released after the cycle")
	}
}

func TestScheduler_PicksUpIntervalChange(t *testing.T) {
	f := newSchedulerFixture(t)
	f.addScheduledSync(t, "sync-1", func(s *domain.Sync) {
		s.SyncInterval = 2
		s.SyncIntervalUnit = domain.IntervalUnitHours
	})

	f.scheduler.Tick(context.Background())

	schedule, err := f.schedules.Get(context.Background(), domain.ScheduleWorkflowID("sync-1"))
	if err != nil {
		t.Fatalf("get schedule: %v", err)
	}
	if schedule.CronExpression != "0 */2 * * *" {
		t.Errorf("expected refreshed cron, got %q", schedule.CronExpression)
	}
	want := time.Date(2024, 3, 10, 14, 0, 0, 0, time.UTC)
	if !schedule.NextRun.Equal(want) {
		t.Errorf("expected next run %v, got %v", want, schedule.NextRun)
	}
}

func TestScheduler_DisablesStaleSchedules(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*domain.Sync)
	}{
		{"disabled sync", func(s *domain.Sync) { s.Status = domain.SyncStatusDisabled }},
		{"now manual", func(s *domain.Sync) { s.ScheduleType = domain.ScheduleTypeManual }},
		{"discarded", func(s *domain.Sync) {
			at := time.Now()
			s.DiscardedAt = &at
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newSchedulerFixture(t)
			f.addScheduledSync(t, "sync-1", tt.mutate)

			f.scheduler.Tick(context.Background())

			if len(f.queue.Enqueued()) != 0 {
				t.Errorf("expected no task, got %d", len(f.queue.Enqueued()))
			}
			schedule, _ := f.schedules.Get(context.Background(), domain.ScheduleWorkflowID("sync-1"))
			if schedule.Enabled {
				t.Error("expected schedule to be disabled")
			}
		})
	}
}

func TestScheduler_SkipsWhenLockHeld(t *testing.T) {
	f := newSchedulerFixture(t)
	f.addScheduledSync(t, "sync-1", nil)
	f.lock.SetLockHeld(schedulerLockName, time.Minute)

	f.scheduler.Tick(context.Background())

	if len(f.queue.Enqueued()) != 0 {
		t.Errorf("expected no task while lock is held elsewhere, got %d", len(f.queue.Enqueued()))
	}
}

func TestScheduler_LockErrors(t *testing.T) {
	for _, required := range []bool{true, false} {
		f := newSchedulerFixture(t)
		f.addScheduledSync(t, "sync-1", nil)
		f.lock.AcquireFn = func(string, time.Duration) (bool, error) {
			return false, errors.New("redis down")
		}
		f.scheduler.lockRequired = required

		f.scheduler.Tick(context.Background())

		got := len(f.queue.Enqueued())
		if required && got != 0 {
			t.Errorf("lock required: expected no task, got %d", got)
		}
		if !required && got != 1 {
			t.Errorf("lock optional: expected 1 task, got %d", got)
		}
	}
}

func TestScheduler_EnqueueFailureRecorded(t *testing.T) {
	f := newSchedulerFixture(t)
	f.addScheduledSync(t, "sync-1", nil)
	f.queue.EnqueueErr = errors.New("queue full")
	ctx := context.Background()

	f.scheduler.Tick(ctx)

	schedule, err := f.schedules.Get(ctx, domain.ScheduleWorkflowID("sync-1"))
	if err != nil {
		t.Fatalf("get schedule: %v", err)
	}
	if schedule.LastError != "queue full" {
		t.Errorf("expected last error recorded, got %q", schedule.LastError)
	}
	if schedule.IsDue(f.now) {
		t.Error("expected a failed schedule to wait before retrying")
	}
	if want := f.now.Add(30 * time.Second); !schedule.NextRun.Equal(want) {
		t.Errorf("expected retry at %v, got %v", want, schedule.NextRun)
	}

	// Still failing: the delay doubles
	f.now = schedule.NextRun
	f.scheduler.Tick(ctx)
	schedule, err = f.schedules.Get(ctx, domain.ScheduleWorkflowID("sync-1"))
	if err != nil {
		t.Fatalf("get schedule: %v", err)
	}
	if want := f.now.Add(time.Minute); !schedule.NextRun.Equal(want) {
		t.Errorf("expected retry at %v, got %v", want, schedule.NextRun)
	}
	if got := len(f.queue.Enqueued()); got != 0 {
		t.Errorf("expected no task, got %d", got)
	}

	// Recovery clears the error and returns to the cron cadence
	f.queue.EnqueueErr = nil
	f.now = schedule.NextRun
	f.scheduler.Tick(ctx)
	schedule, err = f.schedules.Get(ctx, domain.ScheduleWorkflowID("sync-1"))
	if err != nil {
		t.Fatalf("get schedule: %v", err)
	}
	if schedule.LastError != "" {
		t.Errorf("expected error cleared, got %q", schedule.LastError)
	}
	if len(f.queue.Enqueued()) != 1 {
		t.Errorf("expected 1 task, got %d", len(f.queue.Enqueued()))
	}
}

func TestScheduler_UnparsableCronBacksOff(t *testing.T) {
	f := newSchedulerFixture(t)
	f.addScheduledSync(t, "sync-1", func(s *domain.Sync) {
		s.ScheduleType = domain.ScheduleTypeCronExpression
		s.SyncInterval = 0
		s.SyncIntervalUnit = ""
		s.CronExpression = "every tuesday"
	})

	f.scheduler.Tick(context.Background())

	schedule, err := f.schedules.Get(context.Background(), domain.ScheduleWorkflowID("sync-1"))
	if err != nil {
		t.Fatalf("get schedule: %v", err)
	}
	if schedule.LastError == "" {
		t.Error("expected parse error recorded")
	}
	if schedule.IsDue(f.now) {
		t.Error("expected schedule to back off")
	}
	if len(f.queue.Enqueued()) != 0 {
		t.Errorf("expected no task, got %d", len(f.queue.Enqueued()))
	}
}

func TestScheduler_ErrorBackoffCapped(t *testing.T) {
	f := newSchedulerFixture(t)
	schedule := &domain.SyncSchedule{
		LastError: "queue full",
		UpdatedAt: f.now,
		NextRun:   f.now.Add(45 * time.Minute),
	}
	if got := f.scheduler.errorBackoff(schedule); got != maxErrorBackoff {
		t.Errorf("expected %v, got %v", maxErrorBackoff, got)
	}
}

func TestScheduler_ListDueError(t *testing.T) {
	f := newSchedulerFixture(t)
	f.schedules.ListDueErr = errors.New("db down")

	f.scheduler.Tick(context.Background())

	if len(f.queue.Enqueued()) != 0 {
		t.Errorf("expected no task, got %d", len(f.queue.Enqueued()))
	}
}
