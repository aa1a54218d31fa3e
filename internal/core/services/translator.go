package services

import (
	"context"
	"fmt"

	"github.com/custodia-labs/sercha-sync/internal/core/domain"
	"github.com/custodia-labs/sercha-sync/internal/core/ports/driven"
)

// Translator assembles execution descriptors. It does the lookups so the
// execution engine never has to.
type Translator struct {
	syncs      driven.SyncStore
	models     driven.ModelStore
	connectors driven.ConnectorStore
	catalogs   driven.CatalogStore
}

// NewTranslator creates a new Translator
func NewTranslator(
	syncs driven.SyncStore,
	models driven.ModelStore,
	connectors driven.ConnectorStore,
	catalogs driven.CatalogStore,
) *Translator {
	return &Translator{
		syncs:      syncs,
		models:     models,
		connectors: connectors,
		catalogs:   catalogs,
	}
}

// Descriptor loads a sync and builds its descriptor
func (t *Translator) Descriptor(ctx context.Context, syncID string) (*domain.ExecutionDescriptor, error) {
	sync, err := t.syncs.Get(ctx, syncID)
	if err != nil {
		return nil, fmt.Errorf("load sync: %w", err)
	}
	if sync.IsDiscarded() {
		return nil, domain.ErrSyncDiscarded
	}
	return t.DescriptorFor(ctx, sync)
}

// DescriptorFor builds the descriptor of an already loaded sync
func (t *Translator) DescriptorFor(ctx context.Context, sync *domain.Sync) (*domain.ExecutionDescriptor, error) {
	model, err := t.models.Get(ctx, sync.ModelID)
	if err != nil {
		return nil, fmt.Errorf("load model %s: %w", sync.ModelID, err)
	}
	source, err := t.connectors.Get(ctx, sync.SourceID)
	if err != nil {
		return nil, fmt.Errorf("load source %s: %w", sync.SourceID, err)
	}
	destination, err := t.connectors.Get(ctx, sync.DestinationID)
	if err != nil {
		return nil, fmt.Errorf("load destination %s: %w", sync.DestinationID, err)
	}
	catalog, err := loadCatalog(ctx, t.catalogs, sync.DestinationID)
	if err != nil {
		return nil, err
	}

	stream, ok := catalog.FindStream(sync.StreamName)
	if !ok {
		return nil, fmt.Errorf("%w: %q", domain.ErrStreamNotFound, sync.StreamName)
	}

	return domain.NewExecutionDescriptor(sync, model, source, destination, stream, catalog.ResolveRateLimit(stream))
}
