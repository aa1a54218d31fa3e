package mocks

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/custodia-labs/sercha-sync/internal/core/domain"
	"github.com/custodia-labs/sercha-sync/internal/core/ports/driven"
)

// MockTaskQueue is an in-memory FIFO TaskQueue
type MockTaskQueue struct {
	mu      sync.Mutex
	pending []*domain.Task
	tasks   map[string]*domain.Task
	acked   []string
	nacked  []string

	EnqueueErr error
}

// NewMockTaskQueue creates a new MockTaskQueue
func NewMockTaskQueue() *MockTaskQueue {
	return &MockTaskQueue{tasks: make(map[string]*domain.Task)}
}

func (m *MockTaskQueue) Enqueue(ctx context.Context, task *domain.Task) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.EnqueueErr != nil {
		return m.EnqueueErr
	}
	m.tasks[task.ID] = task
	m.pending = append(m.pending, task)
	return nil
}

func (m *MockTaskQueue) DequeueWithTimeout(ctx context.Context, timeout int) (*domain.Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.pending) == 0 {
		return nil, nil
	}
	task := m.pending[0]
	m.pending = m.pending[1:]
	task.MarkProcessing()
	return task, nil
}

func (m *MockTaskQueue) Ack(ctx context.Context, taskID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	task, ok := m.tasks[taskID]
	if !ok {
		return domain.ErrNotFound
	}
	task.MarkCompleted()
	m.acked = append(m.acked, taskID)
	return nil
}

func (m *MockTaskQueue) Nack(ctx context.Context, taskID string, reason string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	task, ok := m.tasks[taskID]
	if !ok {
		return domain.ErrNotFound
	}
	m.nacked = append(m.nacked, taskID)
	if task.CanRetry() {
		task.Retry(reason)
		m.pending = append(m.pending, task)
		return nil
	}
	task.MarkFailed(reason)
	return nil
}

func (m *MockTaskQueue) GetTask(ctx context.Context, taskID string) (*domain.Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	task, ok := m.tasks[taskID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return task, nil
}

func (m *MockTaskQueue) Stats(ctx context.Context) (*driven.QueueStats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	stats := &driven.QueueStats{PendingCount: int64(len(m.pending))}
	for _, t := range m.tasks {
		switch t.Status {
		case domain.TaskStatusProcessing:
			stats.ProcessingCount++
		case domain.TaskStatusFailed:
			stats.FailedCount++
		}
	}
	return stats, nil
}

func (m *MockTaskQueue) Ping(ctx context.Context) error { return nil }

func (m *MockTaskQueue) Close() error { return nil }

// Enqueued returns every task ever enqueued, ordered by creation
func (m *MockTaskQueue) Enqueued() []*domain.Task {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*domain.Task, 0, len(m.tasks))
	for _, t := range m.tasks {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}

// Acked returns the ids of acknowledged tasks
func (m *MockTaskQueue) Acked() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.acked...)
}

// Nacked returns the ids of negatively acknowledged tasks
func (m *MockTaskQueue) Nacked() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.nacked...)
}

// MockScheduleStore is an in-memory ScheduleStore
type MockScheduleStore struct {
	mu        sync.RWMutex
	schedules map[string]*domain.SyncSchedule

	ListDueErr error
}

// NewMockScheduleStore creates a new MockScheduleStore
func NewMockScheduleStore() *MockScheduleStore {
	return &MockScheduleStore{schedules: make(map[string]*domain.SyncSchedule)}
}

func (m *MockScheduleStore) Save(ctx context.Context, schedule *domain.SyncSchedule) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c := *schedule
	m.schedules[schedule.ID] = &c
	return nil
}

func (m *MockScheduleStore) Get(ctx context.Context, id string) (*domain.SyncSchedule, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.schedules[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	c := *s
	return &c, nil
}

func (m *MockScheduleStore) ListDue(ctx context.Context, now time.Time) ([]*domain.SyncSchedule, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.ListDueErr != nil {
		return nil, m.ListDueErr
	}
	var out []*domain.SyncSchedule
	for _, s := range m.schedules {
		if s.IsDue(now) {
			c := *s
			out = append(out, &c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return strings.Compare(out[i].ID, out[j].ID) < 0 })
	return out, nil
}

func (m *MockScheduleStore) DisableByTarget(ctx context.Context, targetID string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, s := range m.schedules {
		if (s.ID == targetID || s.SyncID == targetID) && s.Enabled {
			s.Enabled = false
			s.UpdatedAt = time.Now()
			n++
		}
	}
	return n, nil
}
