package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/opang/workmate/internal/config"
	"github.com/opang/workmate/internal/toolserver"
)

// ErrSelectionParse the model's tool-selection response was not in the
// expected structured form
var ErrSelectionParse = errors.New("malformed tool selection response")

// Selection a parsed tool choice from the model
type Selection struct {
	Tool      string
	Arguments map[string]any
}

// ChatClient the completion transport used by the Oracle
type ChatClient interface {
	Chat(ctx context.Context, messages []Message, tools []Tool, opts ...ChatOption) (*ChatResponse, error)
}

// Oracle wraps the chat client with the selection, summarization and
// direct-response prompts
type Oracle struct {
	client  ChatClient
	prompts *config.PromptConfig
	now     func() time.Time
}

// OracleOption oracle configuration option
type OracleOption func(*Oracle)

// WithClock overrides the clock used for the date header, for tests
func WithClock(now func() time.Time) OracleOption {
	return func(o *Oracle) {
		o.now = now
	}
}

// NewOracle creates a new Oracle
func NewOracle(client ChatClient, prompts *config.PromptConfig, opts ...OracleOption) *Oracle {
	oracle := &Oracle{
		client:  client,
		prompts: prompts,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(oracle)
	}
	return oracle
}

// headerContext builds the system prompt: persona, optional user context
// and the current date/timezone line the tools depend on
func (o *Oracle) headerContext() string {
	var b strings.Builder
	if uc := o.prompts.GetUserContext(); uc != "" {
		b.WriteString(uc)
		b.WriteString("\n")
	}
	b.WriteString(o.prompts.GetSystemPrompt())

	now := o.now()
	tz, _ := now.Zone()
	b.WriteString(fmt.Sprintf("\nThe current date is: %s. For timezone parameters, you MUST use the %s timezone.",
		now.Format("Monday, January 02, 2006"), tz))

	return b.String()
}

// SelectTool asks the model to pick one tool from the catalog via function
// calling. A nil Selection means no tool is needed for the utterance.
func (o *Oracle) SelectTool(ctx context.Context, utterance, convoCtx string, cat toolserver.Catalog) (*Selection, error) {
	tools := make([]Tool, 0, len(cat))
	for _, desc := range cat {
		params := desc.InputSchema
		if params == nil {
			params = map[string]any{"type": "object", "properties": map[string]any{}}
		}
		tools = append(tools, Tool{
			Type: "function",
			Function: ToolFunction{
				Name:        desc.Name,
				Description: desc.Description,
				Parameters:  params,
			},
		})
	}

	messages := []Message{
		{Role: "system", Content: o.headerContext()},
		{Role: "user", Content: buildUserContent(convoCtx, "User Request", utterance)},
	}

	// Tool selection must be deterministic regardless of the configured
	// conversational temperature
	resp, err := o.client.Chat(ctx, messages, tools, WithTemperature(0))
	if err != nil {
		return nil, fmt.Errorf("tool selection request failed: %w", err)
	}

	if len(resp.ToolCalls) == 0 {
		return nil, nil
	}

	call := resp.ToolCalls[0]
	name := strings.TrimSpace(call.Function.Name)
	if name == "" {
		return nil, fmt.Errorf("%w: empty function name", ErrSelectionParse)
	}

	args := make(map[string]any)
	if call.Function.Arguments != "" {
		if err := json.Unmarshal([]byte(call.Function.Arguments), &args); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrSelectionParse, err)
		}
	}

	return &Selection{Tool: name, Arguments: args}, nil
}

// Summarize turns raw tool output into natural language for display
func (o *Oracle) Summarize(ctx context.Context, utterance, convoCtx, toolName string, rawOutput []byte) (string, error) {
	var b strings.Builder
	b.WriteString(o.prompts.GetSummaryInstruction())
	b.WriteString("\n\nCONVERSATION HISTORY:\n")
	b.WriteString(convoCtx)
	b.WriteString("\n\nTOOL EXECUTED: ")
	b.WriteString(toolName)
	b.WriteString("\nUSER REQUEST: ")
	b.WriteString(utterance)
	b.WriteString("\nRAW RESULT:\n")
	b.Write(rawOutput)

	messages := []Message{
		{Role: "system", Content: o.headerContext()},
		{Role: "user", Content: b.String()},
	}

	resp, err := o.client.Chat(ctx, messages, nil)
	if err != nil {
		return "", fmt.Errorf("summarization request failed: %w", err)
	}

	summary := strings.TrimSpace(resp.Content)
	if summary == "" {
		return "", fmt.Errorf("summarization returned empty content")
	}

	return summary, nil
}

// Respond produces a direct reply for utterances that need no tool
func (o *Oracle) Respond(ctx context.Context, utterance, convoCtx string) (string, error) {
	messages := []Message{
		{Role: "system", Content: o.headerContext()},
		{Role: "user", Content: buildUserContent(convoCtx, "User Input", utterance)},
	}

	resp, err := o.client.Chat(ctx, messages, nil)
	if err != nil {
		return "", err
	}

	return strings.TrimSpace(resp.Content), nil
}

// buildUserContent frames the utterance with the rolling conversation context
func buildUserContent(convoCtx, label, utterance string) string {
	return fmt.Sprintf("Context: %s\n%s: %s", convoCtx, label, utterance)
}
