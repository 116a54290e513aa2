package orchestrator

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/opang/workmate/internal/llm"
	"github.com/opang/workmate/internal/logger"
	"github.com/opang/workmate/internal/toolserver"
)

// Oracle narrow interface over the LLM, scripted with a fake in tests.
// SelectTool returns a nil Selection when the model decides no tool is
// needed for the utterance.
type Oracle interface {
	SelectTool(ctx context.Context, utterance, convoCtx string, catalog toolserver.Catalog) (*llm.Selection, error)
	Summarize(ctx context.Context, utterance, convoCtx, toolName string, rawOutput []byte) (string, error)
	Respond(ctx context.Context, utterance, convoCtx string) (string, error)
}

// Invoker narrow interface over the tool-execution service
type Invoker interface {
	CallTool(ctx context.Context, name string, args map[string]any) (json.RawMessage, error)
	InspectTool(ctx context.Context, name string) (toolserver.ToolDescriptor, error)
}

// CatalogSource supplies the current tool catalog
type CatalogSource interface {
	Get(ctx context.Context) (toolserver.Catalog, error)
}

// Recorder receives one entry per successful tool invocation
type Recorder interface {
	Record(toolName string, input map[string]any, output []byte)
}

// Conversation rolling context fed back into LLM calls
type Conversation interface {
	Context() string
	Append(userInput, modelReply string) error
}

// Orchestrator drives the single-turn command flow: tool selection, tool
// invocation, result summarization and history logging
type Orchestrator struct {
	oracle  Oracle
	catalog CatalogSource
	invoker Invoker
	history Recorder
	convo   Conversation
}

// Option orchestrator configuration option
type Option func(*Orchestrator)

// WithRecorder sets the invocation history recorder
func WithRecorder(rec Recorder) Option {
	return func(o *Orchestrator) {
		o.history = rec
	}
}

// WithConversation sets the conversation context tracker
func WithConversation(convo Conversation) Option {
	return func(o *Orchestrator) {
		o.convo = convo
	}
}

// New creates a new Orchestrator
func New(oracle Oracle, cat CatalogSource, invoker Invoker, opts ...Option) *Orchestrator {
	orch := &Orchestrator{
		oracle:  oracle,
		catalog: cat,
		invoker: invoker,
	}
	for _, opt := range opts {
		opt(orch)
	}
	return orch
}

// Handle processes one user utterance end to end. Every failure terminates
// the request with a Failure result; nothing is retried.
func (o *Orchestrator) Handle(ctx context.Context, utterance string) Result {
	utterance = strings.TrimSpace(utterance)
	if utterance == "" {
		return Failure{Err: ErrNoInput}
	}

	// Built-in commands short-circuit before any LLM round trip
	lower := strings.ToLower(utterance)
	if lower == "list" || lower == "help" {
		return o.listTools(ctx)
	}
	if strings.HasPrefix(lower, "inspect ") {
		return o.inspectTool(ctx, strings.TrimSpace(utterance[len("inspect "):]))
	}

	cat, err := o.catalog.Get(ctx)
	if err != nil {
		logger.Error("catalog fetch failed: %v", err)
		return Failure{Err: err}
	}

	convoCtx := o.context()

	selection, err := o.oracle.SelectTool(ctx, utterance, convoCtx, cat)
	if err != nil {
		logger.Error("tool selection failed: %v", err)
		return Failure{Err: err}
	}

	if selection == nil {
		// No Workspace action required, answer directly
		text, err := o.oracle.Respond(ctx, utterance, convoCtx)
		if err != nil {
			return Failure{Err: fmt.Errorf("llm request failed: %w", err)}
		}
		o.remember(utterance, text)
		return Answer{Text: text}
	}

	// The model may hallucinate a tool name; reject before any network call
	if _, ok := cat.Find(selection.Tool); !ok {
		logger.Warn("llm selected unknown tool: %s", selection.Tool)
		return Failure{Err: fmt.Errorf("%w: %s", ErrUnknownTool, selection.Tool)}
	}

	args := toolserver.NormalizeArguments(selection.Arguments)

	logger.Info("invoking tool %s", selection.Tool)
	raw, err := o.invoker.CallTool(ctx, selection.Tool, args)
	if err != nil {
		// The raw error body is surfaced as-is; summarizing a failure
		// through the LLM risks fabricating success language.
		logger.Error("tool invocation failed: %v", err)
		return Failure{Err: err}
	}

	summary, err := o.oracle.Summarize(ctx, utterance, convoCtx, selection.Tool, raw)
	if err != nil {
		// Tool output must never be dropped because summarization failed
		logger.Warn("summarization failed, presenting raw output: %v", err)
		summary = fallbackSummary(raw)
	}

	if o.history != nil {
		o.history.Record(selection.Tool, args, raw)
	}
	o.remember(utterance, summary)

	return ToolAnswer{
		Summary:   summary,
		ToolName:  selection.Tool,
		ToolInput: args,
		RawOutput: raw,
	}
}

// listTools builds the static help listing from the catalog
func (o *Orchestrator) listTools(ctx context.Context) Result {
	cat, err := o.catalog.Get(ctx)
	if err != nil {
		return Failure{Err: err}
	}

	commands := make([]HelpCommand, 0, len(cat))
	for _, tool := range cat {
		commands = append(commands, HelpCommand{
			Name:        tool.Name,
			Description: tool.Description,
		})
	}

	return Help{
		Title:    fmt.Sprintf("Available tools (%d)", len(commands)),
		Commands: commands,
	}
}

// inspectTool fetches and formats a single tool's parameter schema
func (o *Orchestrator) inspectTool(ctx context.Context, name string) Result {
	if name == "" {
		return Failure{Err: fmt.Errorf("%w: inspect requires a tool name", ErrNoInput)}
	}

	tool, err := o.invoker.InspectTool(ctx, name)
	if err != nil {
		return Failure{Err: err}
	}

	commands := describeParameters(tool.InputSchema)
	return Help{
		Title:    fmt.Sprintf("%s - %s", tool.Name, tool.Description),
		Commands: commands,
	}
}

// describeParameters flattens an input schema into help entries
func describeParameters(schema map[string]any) []HelpCommand {
	if schema == nil {
		return nil
	}
	props, ok := schema["properties"].(map[string]any)
	if !ok {
		return nil
	}

	// The required array is []string when built by NormalizeSchema and
	// []any when decoded straight from JSON
	required := make(map[string]bool)
	switch reqList := schema["required"].(type) {
	case []string:
		for _, s := range reqList {
			required[s] = true
		}
	case []any:
		for _, v := range reqList {
			if s, ok := v.(string); ok {
				required[s] = true
			}
		}
	}

	var commands []HelpCommand
	for name, raw := range props {
		prop, _ := raw.(map[string]any)
		typ, _ := prop["type"].(string)
		desc, _ := prop["description"].(string)
		if typ == "" {
			typ = "unknown"
		}
		label := fmt.Sprintf("(%s) %s", typ, desc)
		if required[name] {
			label += " [required]"
		}
		commands = append(commands, HelpCommand{Name: name, Description: label})
	}
	return commands
}

// context returns the rolling conversation context, if tracking is enabled
func (o *Orchestrator) context() string {
	if o.convo == nil {
		return ""
	}
	return o.convo.Context()
}

// remember appends the interaction to the conversation context
func (o *Orchestrator) remember(userInput, modelReply string) {
	if o.convo == nil {
		return
	}
	if err := o.convo.Append(userInput, modelReply); err != nil {
		logger.Warn("failed to record conversation turn: %v", err)
	}
}

// fallbackSummary presents raw tool output directly when the summarization
// call fails
func fallbackSummary(raw []byte) string {
	var buf bytes.Buffer
	if err := json.Indent(&buf, raw, "", "  "); err != nil {
		return string(raw)
	}
	return buf.String()
}
