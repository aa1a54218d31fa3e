package services

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/anand-gl/jsoncanonicalizer"
	"github.com/santhosh-tekuri/jsonschema/v5"
	"github.com/tidwall/gjson"

	"github.com/custodia-labs/sercha-sync/internal/core/domain"
	"github.com/custodia-labs/sercha-sync/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-sync/internal/core/ports/driving"
)

// Ensure catalogService implements CatalogService
var _ driving.CatalogService = (*catalogService)(nil)

type catalogService struct {
	store  driven.CatalogStore
	logger *slog.Logger
}

// NewCatalogService creates a new CatalogService
func NewCatalogService(store driven.CatalogStore, logger *slog.Logger) driving.CatalogService {
	if logger == nil {
		logger = slog.Default()
	}
	return &catalogService{store: store, logger: logger}
}

// Replace validates a discovered catalog document and stores it as the
// connector's current catalog. The hash covers the stored payload and both
// are written together.
func (s *catalogService) Replace(ctx context.Context, connectorID string, req driving.ReplaceCatalogRequest) (*domain.Catalog, error) {
	if connectorID == "" {
		return nil, domain.NewValidationError("connector_id", "is required", nil)
	}
	if req.WorkspaceID == "" {
		return nil, domain.NewValidationError("workspace_id", "is required", nil)
	}

	raw := []byte(req.Catalog)
	if len(raw) == 0 || !gjson.ValidBytes(raw) {
		return nil, domain.NewValidationError("catalog", "must be a valid JSON document", nil)
	}
	if !gjson.GetBytes(raw, "streams").IsArray() {
		return nil, domain.NewValidationError("catalog.streams", "must be an array", nil)
	}

	var payload domain.CatalogPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, domain.NewValidationError("catalog", "does not match the catalog format", err)
	}
	for i, stream := range payload.Streams {
		field := fmt.Sprintf("catalog.streams[%d]", i)
		if stream.Name == "" {
			return nil, domain.NewValidationError(field+".name", "is required", nil)
		}
		if stream.JSONSchema == nil {
			continue
		}
		if err := compileStreamSchema(stream.JSONSchema); err != nil {
			return nil, domain.NewValidationError(field+".json_schema", "is not a valid JSON schema", err)
		}
	}

	// Hash what gets stored; keys the payload type does not know are dropped
	stored, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal catalog: %w", err)
	}
	hash, err := catalogHash(stored)
	if err != nil {
		return nil, domain.NewValidationError("catalog", "cannot be canonicalized", err)
	}

	existing, err := s.store.GetByConnector(ctx, connectorID)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return nil, fmt.Errorf("load catalog: %w", err)
	}
	if existing != nil && existing.Hash == hash {
		s.logger.Debug("catalog unchanged", "connector_id", connectorID, "catalog_hash", hash)
		return existing, nil
	}

	tmp := &domain.Catalog{Payload: payload}
	if dups := tmp.DuplicateStreamNames(); len(dups) > 0 {
		s.logger.Warn("catalog has duplicate stream names, first listed wins",
			"connector_id", connectorID,
			"streams", dups,
		)
	}

	now := time.Now()
	catalog := &domain.Catalog{
		ID:          domain.GenerateID(),
		WorkspaceID: req.WorkspaceID,
		ConnectorID: connectorID,
		Payload:     payload,
		Hash:        hash,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.store.Replace(ctx, catalog); err != nil {
		return nil, fmt.Errorf("replace catalog: %w", err)
	}

	s.logger.Info("catalog replaced",
		"connector_id", connectorID,
		"streams", len(payload.Streams),
		"catalog_hash", hash,
	)
	return catalog, nil
}

// Get retrieves the current catalog of a connector
func (s *catalogService) Get(ctx context.Context, connectorID string) (*domain.Catalog, error) {
	return loadCatalog(ctx, s.store, connectorID)
}

// FindStream resolves a stream of the connector's catalog by exact name
func (s *catalogService) FindStream(ctx context.Context, connectorID, name string) (*domain.Stream, bool, error) {
	catalog, err := loadCatalog(ctx, s.store, connectorID)
	if err != nil {
		return nil, false, err
	}
	stream, ok := catalog.FindStream(name)
	return stream, ok, nil
}

// DefaultCursorField returns the catalog's source-defined default cursor field
func (s *catalogService) DefaultCursorField(ctx context.Context, connectorID string) (string, bool, error) {
	catalog, err := loadCatalog(ctx, s.store, connectorID)
	if err != nil {
		return "", false, err
	}
	field, ok := catalog.DefaultCursorField()
	return field, ok, nil
}

// loadCatalog maps a missing catalog to ErrCatalogMissing
func loadCatalog(ctx context.Context, store driven.CatalogStore, connectorID string) (*domain.Catalog, error) {
	catalog, err := store.GetByConnector(ctx, connectorID)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, fmt.Errorf("%w: connector %s", domain.ErrCatalogMissing, connectorID)
	}
	if err != nil {
		return nil, fmt.Errorf("load catalog: %w", err)
	}
	return catalog, nil
}

// catalogHash is the hex sha256 of the canonical form of the document, so
// key order and whitespace do not change it.
func catalogHash(raw []byte) (string, error) {
	canonical, err := jsoncanonicalizer.Transform(raw)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(canonical)
	return hex.EncodeToString(sum[:]), nil
}

func compileStreamSchema(schema map[string]any) error {
	doc, err := json.Marshal(schema)
	if err != nil {
		return err
	}

	const url = "inline://schema"
	compiler := jsonschema.NewCompiler()
	compiler.LoadURL = func(u string) (io.ReadCloser, error) {
		if u == url {
			return io.NopCloser(bytes.NewReader(doc)), nil
		}
		return nil, fmt.Errorf("unsupported schema ref: %s", u)
	}
	if err := compiler.AddResource(url, bytes.NewReader(doc)); err != nil {
		return fmt.Errorf("failed to add schema resource: %w", err)
	}
	if _, err := compiler.Compile(url); err != nil {
		return fmt.Errorf("failed to compile schema: %w", err)
	}
	return nil
}
