package domain

import "time"

// ConnectorType distinguishes sources from destinations
type ConnectorType string

const (
	ConnectorTypeSource      ConnectorType = "source"
	ConnectorTypeDestination ConnectorType = "destination"
)

// Connector is a configured source or destination system
type Connector struct {
	ID            string         `json:"id"`
	WorkspaceID   string         `json:"workspace_id"`
	Name          string         `json:"name"`
	ConnectorType ConnectorType  `json:"connector_type"`
	ConnectorName string         `json:"connector_name"` // e.g. "Postgresql", "Salesforce"
	Configuration map[string]any `json:"configuration"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
}

// Model defines what data is read from a source connector
type Model struct {
	ID          string    `json:"id"`
	WorkspaceID string    `json:"workspace_id"`
	ConnectorID string    `json:"connector_id"`
	Name        string    `json:"name"`
	Query       string    `json:"query"`
	QueryType   string    `json:"query_type"` // e.g. "raw_sql", "table_selector"
	PrimaryKey  string    `json:"primary_key,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}
