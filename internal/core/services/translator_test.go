package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/sercha-sync/internal/core/domain"
)

func TestTranslator_Descriptor(t *testing.T) {
	f := newLifecycleFixture(t)
	ctx := context.Background()

	req := intervalRequest()
	req.SyncMode = domain.SyncModeIncremental
	req.CursorField = "updated_at"
	sync, err := f.service.Create(ctx, req)
	require.NoError(t, err)
	require.NoError(t, f.syncs.UpdateCursor(ctx, sync.ID, "2024-05-01"))

	translator := NewTranslator(f.syncs, f.models, f.connectors, f.catalogs)
	d, err := translator.Descriptor(ctx, sync.ID)
	require.NoError(t, err)

	assert.Equal(t, sync.ID, d.SyncID)
	assert.Equal(t, domain.SyncModeIncremental, d.SyncMode)
	assert.Equal(t, "updated_at", d.CursorField)
	assert.Equal(t, "2024-05-01", d.CurrentCursorField)
	assert.Equal(t, "SELECT * FROM users", d.Model.Query)
	assert.Equal(t, domain.ConnectorTypeSource, d.Source.Type)
	assert.Equal(t, domain.ConnectorTypeDestination, d.Destination.Type)
	assert.Equal(t, "profiles", d.Stream.Name)
	assert.Equal(t, domain.DestinationSyncModeInsert, d.DestinationSyncMode)
}

func TestTranslator_StreamRemovedAfterSave(t *testing.T) {
	f := newLifecycleFixture(t)
	ctx := context.Background()

	sync, err := f.service.Create(ctx, intervalRequest())
	require.NoError(t, err)

	// Rediscovery dropped the stream
	require.NoError(t, f.catalogs.Replace(ctx, &domain.Catalog{
		ConnectorID: "dst-1",
		Payload:     domain.CatalogPayload{Streams: []domain.Stream{{Name: "orders"}}},
	}))

	translator := NewTranslator(f.syncs, f.models, f.connectors, f.catalogs)
	_, err = translator.Descriptor(ctx, sync.ID)
	assert.ErrorIs(t, err, domain.ErrStreamNotFound)
}

func TestTranslator_DiscardedSync(t *testing.T) {
	f := newLifecycleFixture(t)
	ctx := context.Background()

	sync, err := f.service.Create(ctx, intervalRequest())
	require.NoError(t, err)
	require.NoError(t, f.service.Delete(ctx, sync.ID))

	translator := NewTranslator(f.syncs, f.models, f.connectors, f.catalogs)
	_, err = translator.Descriptor(ctx, sync.ID)
	assert.ErrorIs(t, err, domain.ErrSyncDiscarded)
}
