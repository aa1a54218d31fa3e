// Package execution hands resolved sync descriptors to the remote execution
// engine over HTTP.
package execution

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/custodia-labs/sercha-sync/internal/core/domain"
	"github.com/custodia-labs/sercha-sync/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.ExecutionEngine = (*Client)(nil)

// ExecutePath is where descriptors are posted, relative to the base URL
const ExecutePath = "/api/v1/executions"

// Config holds execution engine client configuration
type Config struct {
	URL     string
	Timeout time.Duration
	// Token is sent as a bearer token when set
	Token string
}

// DefaultConfig returns sensible defaults
func DefaultConfig(url string) Config {
	return Config{
		URL:     url,
		Timeout: 10 * time.Minute,
	}
}

// Client implements driven.ExecutionEngine against an HTTP execution engine
type Client struct {
	baseURL string
	token   string
	client  *http.Client
}

// NewClient creates a new execution engine client
func NewClient(cfg Config) (*Client, error) {
	if cfg.URL == "" {
		return nil, errors.New("execution engine URL is required")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultConfig(cfg.URL).Timeout
	}
	return &Client{
		baseURL: strings.TrimRight(cfg.URL, "/"),
		token:   cfg.Token,
		client:  &http.Client{Timeout: cfg.Timeout},
	}, nil
}

type errorResponse struct {
	Error string `json:"error"`
}

// Execute posts the descriptor and waits for the run result.
// A non-2xx response is an error; a 2xx response with success=false is a
// result the caller records as a failed run.
func (c *Client) Execute(ctx context.Context, descriptor *domain.ExecutionDescriptor) (*domain.ExecutionResult, error) {
	if descriptor == nil {
		return nil, fmt.Errorf("%w: descriptor is required", domain.ErrInvalidInput)
	}

	body, err := json.Marshal(descriptor)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal descriptor: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+ExecutePath, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("execution request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var errResp errorResponse
		if json.Unmarshal(respBody, &errResp) == nil && errResp.Error != "" {
			return nil, fmt.Errorf("execution engine returned status %d: %s", resp.StatusCode, errResp.Error)
		}
		return nil, fmt.Errorf("execution engine returned status %d", resp.StatusCode)
	}

	var result domain.ExecutionResult
	if err := json.Unmarshal(respBody, &result); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}
	return &result, nil
}

// Close releases idle connections
func (c *Client) Close() error {
	c.client.CloseIdleConnections()
	return nil
}
