package driving

import (
	"context"
	"encoding/json"

	"github.com/custodia-labs/sercha-sync/internal/core/domain"
)

// ReplaceCatalogRequest carries a freshly discovered catalog document
type ReplaceCatalogRequest struct {
	WorkspaceID string          `json:"workspace_id"`
	Catalog     json.RawMessage `json:"catalog"`
}

// CatalogService manages connector catalogs and resolves streams against them
type CatalogService interface {
	// Replace validates the document and swaps in the connector's catalog wholesale
	Replace(ctx context.Context, connectorID string, req ReplaceCatalogRequest) (*domain.Catalog, error)

	// Get retrieves the current catalog of a connector
	Get(ctx context.Context, connectorID string) (*domain.Catalog, error)

	// FindStream resolves a stream by exact name; ok is false when absent
	FindStream(ctx context.Context, connectorID, name string) (stream *domain.Stream, ok bool, err error)

	// DefaultCursorField returns the source-defined default cursor field, if any
	DefaultCursorField(ctx context.Context, connectorID string) (field string, ok bool, err error)
}
