package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"github.com/custodia-labs/sercha-sync/internal/core/domain"
	"github.com/custodia-labs/sercha-sync/internal/core/ports/driven"
)

// Verify interface compliance
var (
	_ driven.CatalogStore   = (*CatalogStore)(nil)
	_ driven.ConnectorStore = (*ConnectorStore)(nil)
	_ driven.ModelStore     = (*ModelStore)(nil)
)

// CatalogStore implements driven.CatalogStore using PostgreSQL
type CatalogStore struct {
	db *DB
}

// NewCatalogStore creates a new CatalogStore
func NewCatalogStore(db *DB) *CatalogStore {
	return &CatalogStore{db: db}
}

// Replace upserts the connector's catalog. Payload and hash land in the same
// statement so readers never see one without the other.
func (s *CatalogStore) Replace(ctx context.Context, catalog *domain.Catalog) error {
	payload, err := json.Marshal(catalog.Payload)
	if err != nil {
		return fmt.Errorf("marshal catalog: %w", err)
	}

	// stream_names is a GIN-indexed copy for lookups by stream
	names := make([]string, 0, len(catalog.Payload.Streams))
	for _, stream := range catalog.Payload.Streams {
		names = append(names, stream.Name)
	}

	query := `
		INSERT INTO catalogs (id, workspace_id, connector_id, catalog, catalog_hash, stream_names, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (connector_id) DO UPDATE SET
			workspace_id = EXCLUDED.workspace_id,
			catalog = EXCLUDED.catalog,
			catalog_hash = EXCLUDED.catalog_hash,
			stream_names = EXCLUDED.stream_names,
			updated_at = EXCLUDED.updated_at
		RETURNING id, created_at
	`

	err = s.db.QueryRowContext(ctx, query,
		catalog.ID,
		catalog.WorkspaceID,
		catalog.ConnectorID,
		payload,
		catalog.Hash,
		pq.Array(names),
		catalog.CreatedAt,
		catalog.UpdatedAt,
	).Scan(&catalog.ID, &catalog.CreatedAt)
	if err != nil {
		return fmt.Errorf("replace catalog: %w", err)
	}
	return nil
}

// GetByConnector retrieves the current catalog of a connector
func (s *CatalogStore) GetByConnector(ctx context.Context, connectorID string) (*domain.Catalog, error) {
	query := `
		SELECT id, workspace_id, connector_id, catalog, catalog_hash, created_at, updated_at
		FROM catalogs WHERE connector_id = $1
	`

	var (
		catalog domain.Catalog
		payload []byte
	)
	err := s.db.QueryRowContext(ctx, query, connectorID).Scan(
		&catalog.ID,
		&catalog.WorkspaceID,
		&catalog.ConnectorID,
		&payload,
		&catalog.Hash,
		&catalog.CreatedAt,
		&catalog.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get catalog: %w", err)
	}

	if err := json.Unmarshal(payload, &catalog.Payload); err != nil {
		return nil, fmt.Errorf("unmarshal catalog: %w", err)
	}
	return &catalog, nil
}

// ConnectorStore implements driven.ConnectorStore using PostgreSQL
type ConnectorStore struct {
	db *DB
}

// NewConnectorStore creates a new ConnectorStore
func NewConnectorStore(db *DB) *ConnectorStore {
	return &ConnectorStore{db: db}
}

// Save creates or updates a connector
func (s *ConnectorStore) Save(ctx context.Context, connector *domain.Connector) error {
	config, err := json.Marshal(connector.Configuration)
	if err != nil {
		return fmt.Errorf("marshal configuration: %w", err)
	}

	query := `
		INSERT INTO connectors (id, workspace_id, name, connector_type, connector_name, configuration, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			connector_type = EXCLUDED.connector_type,
			connector_name = EXCLUDED.connector_name,
			configuration = EXCLUDED.configuration,
			updated_at = EXCLUDED.updated_at
	`

	_, err = s.db.ExecContext(ctx, query,
		connector.ID,
		connector.WorkspaceID,
		connector.Name,
		string(connector.ConnectorType),
		connector.ConnectorName,
		config,
		connector.CreatedAt,
		connector.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("save connector: %w", err)
	}
	return nil
}

// Get retrieves a connector by ID
func (s *ConnectorStore) Get(ctx context.Context, id string) (*domain.Connector, error) {
	query := `
		SELECT id, workspace_id, name, connector_type, connector_name, configuration, created_at, updated_at
		FROM connectors WHERE id = $1
	`

	var (
		connector     domain.Connector
		connectorType string
		config        []byte
	)
	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&connector.ID,
		&connector.WorkspaceID,
		&connector.Name,
		&connectorType,
		&connector.ConnectorName,
		&config,
		&connector.CreatedAt,
		&connector.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get connector: %w", err)
	}

	connector.ConnectorType = domain.ConnectorType(connectorType)
	if len(config) > 0 {
		if err := json.Unmarshal(config, &connector.Configuration); err != nil {
			return nil, fmt.Errorf("unmarshal configuration: %w", err)
		}
	}
	return &connector, nil
}

// ModelStore implements driven.ModelStore using PostgreSQL
type ModelStore struct {
	db *DB
}

// NewModelStore creates a new ModelStore
func NewModelStore(db *DB) *ModelStore {
	return &ModelStore{db: db}
}

// Save creates or updates a model
func (s *ModelStore) Save(ctx context.Context, model *domain.Model) error {
	query := `
		INSERT INTO models (id, workspace_id, connector_id, name, query, query_type, primary_key, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (id) DO UPDATE SET
			connector_id = EXCLUDED.connector_id,
			name = EXCLUDED.name,
			query = EXCLUDED.query,
			query_type = EXCLUDED.query_type,
			primary_key = EXCLUDED.primary_key,
			updated_at = EXCLUDED.updated_at
	`

	_, err := s.db.ExecContext(ctx, query,
		model.ID,
		model.WorkspaceID,
		model.ConnectorID,
		model.Name,
		model.Query,
		model.QueryType,
		nullString(model.PrimaryKey),
		model.CreatedAt,
		model.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("save model: %w", err)
	}
	return nil
}

// Get retrieves a model by ID
func (s *ModelStore) Get(ctx context.Context, id string) (*domain.Model, error) {
	query := `
		SELECT id, workspace_id, connector_id, name, query, query_type, primary_key, created_at, updated_at
		FROM models WHERE id = $1
	`

	var (
		model      domain.Model
		primaryKey sql.NullString
	)
	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&model.ID,
		&model.WorkspaceID,
		&model.ConnectorID,
		&model.Name,
		&model.Query,
		&model.QueryType,
		&primaryKey,
		&model.CreatedAt,
		&model.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get model: %w", err)
	}
	model.PrimaryKey = primaryKey.String
	return &model, nil
}
