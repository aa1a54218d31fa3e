package domain

import "time"

// Catalog is a snapshot of the streams a connector exposes.
// Payload and Hash are always written together; a catalog is replaced
// wholesale, never patched in place.
type Catalog struct {
	ID          string         `json:"id"`
	WorkspaceID string         `json:"workspace_id"`
	ConnectorID string         `json:"connector_id"`
	Payload     CatalogPayload `json:"catalog"`
	Hash        string         `json:"catalog_hash"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

// CatalogPayload is the discovered catalog document.
type CatalogPayload struct {
	Streams []Stream `json:"streams"`

	// Catalog-level rate limit defaults, inherited field by field
	RequestRateLimit       *int    `json:"request_rate_limit,omitempty"`
	RequestRateLimitUnit   *string `json:"request_rate_limit_unit,omitempty"`
	RequestRateConcurrency *int    `json:"request_rate_concurrency,omitempty"`

	// SourceDefinedCursor must be explicitly true for DefaultCursorField to count
	SourceDefinedCursor *bool  `json:"source_defined_cursor,omitempty"`
	DefaultCursorField  string `json:"default_cursor_field,omitempty"`
}

// Stream is one named, schema-described unit of data within a catalog
type Stream struct {
	Name          string         `json:"name"`
	URL           string         `json:"url,omitempty"`
	JSONSchema    map[string]any `json:"json_schema,omitempty"`
	RequestMethod string         `json:"request_method,omitempty"`
	BatchSupport  bool           `json:"batch_support,omitempty"`
	BatchSize     int            `json:"batch_size,omitempty"`

	// Per-stream rate limit overrides; nil means inherit from the catalog
	RequestRateLimit       *int    `json:"request_rate_limit,omitempty"`
	RequestRateLimitUnit   *string `json:"request_rate_limit_unit,omitempty"`
	RequestRateConcurrency *int    `json:"request_rate_concurrency,omitempty"`

	SupportedSyncModes  []SyncMode `json:"supported_sync_modes,omitempty"`
	SourceDefinedCursor *bool      `json:"source_defined_cursor,omitempty"`
	DefaultCursorField  []string   `json:"default_cursor_field,omitempty"`
}

// RateLimit is a fully resolved request rate limit
type RateLimit struct {
	Limit       int    `json:"request_rate_limit"`
	Unit        string `json:"request_rate_limit_unit"`
	Concurrency int    `json:"request_rate_concurrency"`
}

// FindStream returns the first stream whose name exactly equals name.
// Matching is case-sensitive. Duplicate names are not rejected here; callers
// must not rely on anything beyond "first listed wins".
func (c *Catalog) FindStream(name string) (*Stream, bool) {
	if c == nil {
		return nil, false
	}
	for i := range c.Payload.Streams {
		if c.Payload.Streams[i].Name == name {
			return &c.Payload.Streams[i], true
		}
	}
	return nil, false
}

// ResolveRateLimit computes the effective rate limit of a stream.
// Each field the stream leaves unset is inherited independently from the
// catalog-level default; a field unset on both sides resolves to its zero value.
func (c *Catalog) ResolveRateLimit(stream *Stream) RateLimit {
	var defaults CatalogPayload
	if c != nil {
		defaults = c.Payload
	}
	var own Stream
	if stream != nil {
		own = *stream
	}

	return RateLimit{
		Limit:       firstInt(own.RequestRateLimit, defaults.RequestRateLimit),
		Unit:        firstString(own.RequestRateLimitUnit, defaults.RequestRateLimitUnit),
		Concurrency: firstInt(own.RequestRateConcurrency, defaults.RequestRateConcurrency),
	}
}

// DefaultCursorField returns the catalog's default cursor field, but only when
// the catalog marks cursor selection as source defined. Otherwise cursor
// selection is the caller's responsibility and ok is false.
func (c *Catalog) DefaultCursorField() (field string, ok bool) {
	if c == nil || c.Payload.SourceDefinedCursor == nil || !*c.Payload.SourceDefinedCursor {
		return "", false
	}
	if c.Payload.DefaultCursorField == "" {
		return "", false
	}
	return c.Payload.DefaultCursorField, true
}

// DuplicateStreamNames lists names that appear more than once, in first-seen order.
func (c *Catalog) DuplicateStreamNames() []string {
	if c == nil {
		return nil
	}
	seen := make(map[string]int, len(c.Payload.Streams))
	var dups []string
	for _, s := range c.Payload.Streams {
		seen[s.Name]++
		if seen[s.Name] == 2 {
			dups = append(dups, s.Name)
		}
	}
	return dups
}

func firstInt(values ...*int) int {
	for _, v := range values {
		if v != nil {
			return *v
		}
	}
	return 0
}

func firstString(values ...*string) string {
	for _, v := range values {
		if v != nil {
			return *v
		}
	}
	return ""
}
