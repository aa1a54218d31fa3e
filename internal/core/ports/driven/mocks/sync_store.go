package mocks

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/custodia-labs/sercha-sync/internal/core/domain"
)

// MockSyncStore is an in-memory SyncStore. It stores copies, so a test can
// tell what was persisted apart from what a service still holds in memory.
type MockSyncStore struct {
	mu    sync.RWMutex
	syncs map[string]*domain.Sync

	// Runs receives the cascade of SoftDelete
	Runs *MockSyncRunStore

	// Error injection (optional)
	SaveErr       error
	SoftDeleteErr error

	SaveCalls int
}

// NewMockSyncStore creates a new MockSyncStore with its own run store
func NewMockSyncStore() *MockSyncStore {
	return &MockSyncStore{
		syncs: make(map[string]*domain.Sync),
		Runs:  NewMockSyncRunStore(),
	}
}

func (m *MockSyncStore) Save(ctx context.Context, s *domain.Sync) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.SaveCalls++
	if m.SaveErr != nil {
		return m.SaveErr
	}
	if existing, ok := m.syncs[s.ID]; ok && existing.IsDiscarded() {
		return domain.ErrSyncDiscarded
	}
	m.syncs[s.ID] = s.Clone()
	return nil
}

func (m *MockSyncStore) Get(ctx context.Context, id string) (*domain.Sync, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.syncs[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return s.Clone(), nil
}

func (m *MockSyncStore) List(ctx context.Context, workspaceID string) ([]*domain.Sync, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var result []*domain.Sync
	for _, s := range m.syncs {
		if s.IsDiscarded() || (workspaceID != "" && s.WorkspaceID != workspaceID) {
			continue
		}
		result = append(result, s.Clone())
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].UpdatedAt.After(result[j].UpdatedAt)
	})
	return result, nil
}

func (m *MockSyncStore) SoftDelete(ctx context.Context, id string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.SoftDeleteErr != nil {
		return m.SoftDeleteErr
	}
	s, ok := m.syncs[id]
	if !ok {
		return domain.ErrNotFound
	}
	s.DiscardedAt = &at
	m.Runs.discardBySync(id, at)
	return nil
}

func (m *MockSyncStore) UpdateCursor(ctx context.Context, id string, cursor string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.syncs[id]
	if !ok {
		return domain.ErrNotFound
	}
	s.CurrentCursorField = cursor
	return nil
}

func (m *MockSyncStore) SetWorkflowID(ctx context.Context, id string, workflowID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.syncs[id]
	if !ok {
		return domain.ErrNotFound
	}
	s.WorkflowID = workflowID
	return nil
}

// Count returns the number of stored syncs, discarded included
func (m *MockSyncStore) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.syncs)
}

// MockSyncRunStore is an in-memory SyncRunStore
type MockSyncRunStore struct {
	mu   sync.RWMutex
	runs map[string]*domain.SyncRun
}

// NewMockSyncRunStore creates a new MockSyncRunStore
func NewMockSyncRunStore() *MockSyncRunStore {
	return &MockSyncRunStore{runs: make(map[string]*domain.SyncRun)}
}

func (m *MockSyncRunStore) Save(ctx context.Context, run *domain.SyncRun) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c := *run
	m.runs[run.ID] = &c
	return nil
}

func (m *MockSyncRunStore) Get(ctx context.Context, id string) (*domain.SyncRun, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	run, ok := m.runs[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	c := *run
	return &c, nil
}

func (m *MockSyncRunStore) ListBySync(ctx context.Context, syncID string, limit int) ([]*domain.SyncRun, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var result []*domain.SyncRun
	for _, run := range m.runs {
		if run.SyncID != syncID || run.DiscardedAt != nil {
			continue
		}
		c := *run
		result = append(result, &c)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

// Discarded returns the number of discarded runs of a sync
func (m *MockSyncRunStore) Discarded(syncID string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	n := 0
	for _, run := range m.runs {
		if run.SyncID == syncID && run.DiscardedAt != nil {
			n++
		}
	}
	return n
}

func (m *MockSyncRunStore) discardBySync(syncID string, at time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, run := range m.runs {
		if run.SyncID == syncID && run.DiscardedAt == nil {
			t := at
			run.DiscardedAt = &t
		}
	}
}
