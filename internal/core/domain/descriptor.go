package domain

// ExecutionDescriptor is the fully resolved, self-contained hand-off to the
// execution engine for one sync. The consumer needs no further lookups.
type ExecutionDescriptor struct {
	Model               ModelDescriptor     `json:"model"`
	Source              ConnectorDescriptor `json:"source"`
	Destination         ConnectorDescriptor `json:"destination"`
	Stream              StreamDescriptor    `json:"stream"`
	SyncMode            SyncMode            `json:"sync_mode"`
	DestinationSyncMode DestinationSyncMode `json:"destination_sync_mode"`
	CursorField         string              `json:"cursor_field,omitempty"`
	CurrentCursorField  string              `json:"current_cursor_field,omitempty"`
	SyncID              string              `json:"sync_id"`
}

// ModelDescriptor is the read definition of a model
type ModelDescriptor struct {
	Name       string `json:"name"`
	Query      string `json:"query"`
	QueryType  string `json:"query_type"`
	PrimaryKey string `json:"primary_key,omitempty"`
}

// ConnectorDescriptor is the connection definition of a connector
type ConnectorDescriptor struct {
	Name                    string         `json:"name"`
	Type                    ConnectorType  `json:"type"`
	ConnectorName           string         `json:"connector_name"`
	ConnectionSpecification map[string]any `json:"connection_specification"`
}

// StreamDescriptor is a stream with its rate limits resolved
type StreamDescriptor struct {
	Name                   string         `json:"name"`
	URL                    string         `json:"url,omitempty"`
	JSONSchema             map[string]any `json:"json_schema,omitempty"`
	RequestMethod          string         `json:"request_method,omitempty"`
	BatchSupport           bool           `json:"batch_support"`
	BatchSize              int            `json:"batch_size"`
	RequestRateLimit       int            `json:"request_rate_limit"`
	RequestRateLimitUnit   string         `json:"request_rate_limit_unit"`
	RequestRateConcurrency int            `json:"request_rate_concurrency"`
}

// ExecutionResult is what the execution engine reports back for a run
type ExecutionResult struct {
	Success            bool         `json:"success"`
	Stats              SyncRunStats `json:"stats"`
	CurrentCursorField string       `json:"current_cursor_field,omitempty"`
	Error              string       `json:"error,omitempty"`
}

// NewStreamDescriptor combines a stream with its resolved rate limit.
func NewStreamDescriptor(stream *Stream, limit RateLimit) StreamDescriptor {
	return StreamDescriptor{
		Name:                   stream.Name,
		URL:                    stream.URL,
		JSONSchema:             cloneMap(stream.JSONSchema),
		RequestMethod:          stream.RequestMethod,
		BatchSupport:           stream.BatchSupport,
		BatchSize:              stream.BatchSize,
		RequestRateLimit:       limit.Limit,
		RequestRateLimitUnit:   limit.Unit,
		RequestRateConcurrency: limit.Concurrency,
	}
}

// NewExecutionDescriptor builds the descriptor for a sync. It is a pure
// transformation; a nil stream means resolution failed and translation stops
// with ErrStreamNotFound. Maps are deep-copied so later edits to the inputs
// never leak into a descriptor already handed off.
func NewExecutionDescriptor(
	sync *Sync,
	model *Model,
	source *Connector,
	destination *Connector,
	stream *Stream,
	limit RateLimit,
) (*ExecutionDescriptor, error) {
	if stream == nil {
		return nil, ErrStreamNotFound
	}
	if sync == nil || model == nil || source == nil || destination == nil {
		return nil, ErrInvalidInput
	}

	return &ExecutionDescriptor{
		Model: ModelDescriptor{
			Name:       model.Name,
			Query:      model.Query,
			QueryType:  model.QueryType,
			PrimaryKey: model.PrimaryKey,
		},
		Source:              connectorDescriptor(source),
		Destination:         connectorDescriptor(destination),
		Stream:              NewStreamDescriptor(stream, limit),
		SyncMode:            sync.SyncMode,
		DestinationSyncMode: DestinationSyncModeInsert,
		CursorField:         sync.CursorField,
		CurrentCursorField:  sync.CurrentCursorField,
		SyncID:              sync.ID,
	}, nil
}

func connectorDescriptor(c *Connector) ConnectorDescriptor {
	return ConnectorDescriptor{
		Name:                    c.Name,
		Type:                    c.ConnectorType,
		ConnectorName:           c.ConnectorName,
		ConnectionSpecification: cloneMap(c.Configuration),
	}
}

func cloneMap(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		return cloneMap(t)
	case []any:
		out := make([]any, len(t))
		for i := range t {
			out[i] = cloneValue(t[i])
		}
		return out
	default:
		return v
	}
}
