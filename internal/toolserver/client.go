package toolserver

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Client HTTP client for the tool-execution service
type Client struct {
	baseURL string
	client  *http.Client
}

// NewClient creates a new tool-execution service client
func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
	}
}

// FetchCatalog fetches the tool catalog from GET /tools.
// Schemas are normalized once here; the returned catalog is treated as
// immutable by callers.
func (c *Client) FetchCatalog(ctx context.Context) (Catalog, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/tools", nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCatalogUnavailable, err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCatalogUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%w: status %d", ErrCatalogUnavailable, resp.StatusCode)
	}

	var payload catalogResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("%w: malformed catalog: %v", ErrCatalogUnavailable, err)
	}

	catalog := make(Catalog, 0, len(payload.Tools))
	for _, tool := range payload.Tools {
		if strings.TrimSpace(tool.Name) == "" {
			return nil, fmt.Errorf("%w: descriptor with empty name", ErrCatalogUnavailable)
		}
		tool.InputSchema = NormalizeSchema(tool.InputSchema)
		catalog = append(catalog, tool)
	}

	return catalog, nil
}

// InspectTool fetches a single descriptor from GET /tools/{name}
func (c *Client) InspectTool(ctx context.Context, name string) (ToolDescriptor, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/tools/"+name, nil)
	if err != nil {
		return ToolDescriptor{}, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return ToolDescriptor{}, fmt.Errorf("failed to inspect tool: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return ToolDescriptor{}, fmt.Errorf("%w: %s", ErrToolNotFound, name)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return ToolDescriptor{}, fmt.Errorf("failed to inspect tool: status %d", resp.StatusCode)
	}

	var tool ToolDescriptor
	if err := json.NewDecoder(resp.Body).Decode(&tool); err != nil {
		return ToolDescriptor{}, fmt.Errorf("failed to decode tool descriptor: %w", err)
	}

	tool.InputSchema = NormalizeSchema(tool.InputSchema)
	return tool, nil
}

// CallTool invokes a tool via POST /tools/call and returns the service's
// result payload verbatim. Any failure is an *InvocationError carrying the
// raw error body.
func (c *Client) CallTool(ctx context.Context, name string, args map[string]any) (json.RawMessage, error) {
	body, err := json.Marshal(callRequest{ToolName: name, Arguments: args})
	if err != nil {
		return nil, &InvocationError{ToolName: name, Body: err.Error()}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/tools/call", bytes.NewReader(body))
	if err != nil {
		return nil, &InvocationError{ToolName: name, Body: err.Error()}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, &InvocationError{ToolName: name, Body: err.Error()}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(resp.Body)
		return nil, &InvocationError{ToolName: name, StatusCode: resp.StatusCode, Body: string(raw)}
	}

	var payload callResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, &InvocationError{ToolName: name, Body: fmt.Sprintf("malformed response: %v", err)}
	}

	if !payload.Success {
		msg := payload.Error
		if msg == "" {
			msg = "unknown error"
		}
		return nil, &InvocationError{ToolName: name, Body: msg}
	}

	return payload.Result, nil
}

// Health checks GET /health
func (c *Client) Health(ctx context.Context) (Health, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return Health{}, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return Health{}, fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	var health Health
	if err := json.NewDecoder(resp.Body).Decode(&health); err != nil {
		return Health{}, fmt.Errorf("failed to decode health response: %w", err)
	}

	return health, nil
}
