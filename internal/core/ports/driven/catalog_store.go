package driven

import (
	"context"

	"github.com/custodia-labs/sercha-sync/internal/core/domain"
)

// CatalogStore handles catalog persistence (PostgreSQL).
// A connector has at most one current catalog.
type CatalogStore interface {
	// Replace writes payload and hash of the connector's catalog in one statement
	Replace(ctx context.Context, catalog *domain.Catalog) error

	// GetByConnector retrieves the current catalog of a connector
	GetByConnector(ctx context.Context, connectorID string) (*domain.Catalog, error)
}

// ConnectorStore handles connector persistence (PostgreSQL)
type ConnectorStore interface {
	Save(ctx context.Context, connector *domain.Connector) error
	Get(ctx context.Context, id string) (*domain.Connector, error)
}

// ModelStore handles model persistence (PostgreSQL)
type ModelStore interface {
	Save(ctx context.Context, model *domain.Model) error
	Get(ctx context.Context, id string) (*domain.Model, error)
}
