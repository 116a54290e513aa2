package toolserver

import "encoding/json"

// ToolDescriptor describes one tool exposed by the tool-execution service
type ToolDescriptor struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	InputSchema map[string]any `json:"input_schema,omitempty"`
}

// Catalog is the fixed list of tools available for selection in a session.
// Immutable after a successful fetch.
type Catalog []ToolDescriptor

// Find returns the descriptor for name
func (c Catalog) Find(name string) (ToolDescriptor, bool) {
	for _, tool := range c {
		if tool.Name == name {
			return tool, true
		}
	}
	return ToolDescriptor{}, false
}

// Names returns all tool names in catalog order
func (c Catalog) Names() []string {
	names := make([]string, len(c))
	for i, tool := range c {
		names[i] = tool.Name
	}
	return names
}

// catalogResponse GET /tools response
type catalogResponse struct {
	Tools []ToolDescriptor `json:"tools"`
	Count int              `json:"count"`
}

// callRequest POST /tools/call request body
type callRequest struct {
	ToolName  string         `json:"tool_name"`
	Arguments map[string]any `json:"arguments"`
}

// callResponse POST /tools/call response.
// Result keeps the service payload as raw bytes so it is never re-encoded.
type callResponse struct {
	Success   bool            `json:"success"`
	ToolName  string          `json:"tool_name"`
	Arguments map[string]any  `json:"arguments"`
	Result    json.RawMessage `json:"result,omitempty"`
	Error     string          `json:"error,omitempty"`
}

// Health GET /health response
type Health struct {
	Status        string `json:"status"`
	SessionActive bool   `json:"mcp_session_active"`
}
