package mocks

import (
	"context"
	"sync"

	"github.com/custodia-labs/sercha-sync/internal/core/domain"
)

// MockCatalogStore is an in-memory CatalogStore keyed by connector
type MockCatalogStore struct {
	mu       sync.RWMutex
	catalogs map[string]*domain.Catalog

	GetErr error
}

// NewMockCatalogStore creates a new MockCatalogStore
func NewMockCatalogStore() *MockCatalogStore {
	return &MockCatalogStore{catalogs: make(map[string]*domain.Catalog)}
}

func (m *MockCatalogStore) Replace(ctx context.Context, catalog *domain.Catalog) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if existing, ok := m.catalogs[catalog.ConnectorID]; ok {
		catalog.ID = existing.ID
		catalog.CreatedAt = existing.CreatedAt
	}
	c := *catalog
	m.catalogs[catalog.ConnectorID] = &c
	return nil
}

func (m *MockCatalogStore) GetByConnector(ctx context.Context, connectorID string) (*domain.Catalog, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.GetErr != nil {
		return nil, m.GetErr
	}
	catalog, ok := m.catalogs[connectorID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	c := *catalog
	return &c, nil
}

// MockConnectorStore is an in-memory ConnectorStore
type MockConnectorStore struct {
	mu         sync.RWMutex
	connectors map[string]*domain.Connector
}

// NewMockConnectorStore creates a new MockConnectorStore
func NewMockConnectorStore() *MockConnectorStore {
	return &MockConnectorStore{connectors: make(map[string]*domain.Connector)}
}

func (m *MockConnectorStore) Save(ctx context.Context, connector *domain.Connector) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.connectors[connector.ID] = connector
	return nil
}

func (m *MockConnectorStore) Get(ctx context.Context, id string) (*domain.Connector, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	connector, ok := m.connectors[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return connector, nil
}

// MockModelStore is an in-memory ModelStore
type MockModelStore struct {
	mu     sync.RWMutex
	models map[string]*domain.Model
}

// NewMockModelStore creates a new MockModelStore
func NewMockModelStore() *MockModelStore {
	return &MockModelStore{models: make(map[string]*domain.Model)}
}

func (m *MockModelStore) Save(ctx context.Context, model *domain.Model) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.models[model.ID] = model
	return nil
}

func (m *MockModelStore) Get(ctx context.Context, id string) (*domain.Model, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	model, ok := m.models[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return model, nil
}
