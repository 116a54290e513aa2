package orchestrator

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/opang/workmate/internal/llm"
	"github.com/opang/workmate/internal/toolserver"
)

// fakeOracle scripts the three LLM operations
type fakeOracle struct {
	selection    *llm.Selection
	selectionErr error

	summary    string
	summaryErr error

	reply    string
	replyErr error

	summarizeCalls int
}

func (f *fakeOracle) SelectTool(ctx context.Context, utterance, convoCtx string, catalog toolserver.Catalog) (*llm.Selection, error) {
	return f.selection, f.selectionErr
}

func (f *fakeOracle) Summarize(ctx context.Context, utterance, convoCtx, toolName string, rawOutput []byte) (string, error) {
	f.summarizeCalls++
	return f.summary, f.summaryErr
}

func (f *fakeOracle) Respond(ctx context.Context, utterance, convoCtx string) (string, error) {
	return f.reply, f.replyErr
}

// fakeInvoker scripts tool invocations and counts calls
type fakeInvoker struct {
	result    json.RawMessage
	err       error
	calls     int
	lastTool  string
	lastArgs  map[string]any
	inspected toolserver.ToolDescriptor
}

func (f *fakeInvoker) CallTool(ctx context.Context, name string, args map[string]any) (json.RawMessage, error) {
	f.calls++
	f.lastTool = name
	f.lastArgs = args
	return f.result, f.err
}

func (f *fakeInvoker) InspectTool(ctx context.Context, name string) (toolserver.ToolDescriptor, error) {
	if f.inspected.Name == "" {
		return toolserver.ToolDescriptor{}, toolserver.ErrToolNotFound
	}
	return f.inspected, nil
}

// fakeCatalog serves a fixed catalog
type fakeCatalog struct {
	catalog toolserver.Catalog
	err     error
}

func (f *fakeCatalog) Get(ctx context.Context) (toolserver.Catalog, error) {
	return f.catalog, f.err
}

// fakeRecorder captures history records
type fakeRecorder struct {
	records []string
}

func (f *fakeRecorder) Record(toolName string, input map[string]any, output []byte) {
	f.records = append(f.records, toolName)
}

// fakeConversation captures appended exchanges
type fakeConversation struct {
	ctx     string
	appends [][2]string
}

func (f *fakeConversation) Context() string { return f.ctx }

func (f *fakeConversation) Append(userInput, modelReply string) error {
	f.appends = append(f.appends, [2]string{userInput, modelReply})
	return nil
}

func defaultCatalog() *fakeCatalog {
	return &fakeCatalog{catalog: toolserver.Catalog{
		{Name: "gmail_list_messages", Description: "List Gmail messages"},
		{Name: "calendar_list_events", Description: "List calendar events"},
	}}
}

func TestHandle_EmptyInput(t *testing.T) {
	orch := New(&fakeOracle{}, defaultCatalog(), &fakeInvoker{})

	result := orch.Handle(context.Background(), "   ")

	failure, ok := result.(Failure)
	if !ok {
		t.Fatalf("Expected Failure, got %T", result)
	}
	if !errors.Is(failure.Err, ErrNoInput) {
		t.Errorf("Expected ErrNoInput, got %v", failure.Err)
	}
}

func TestHandle_ToolFlow(t *testing.T) {
	raw := json.RawMessage(`{"events":[{"id":"evt-123","summary":"Team sync"}]}`)
	oracle := &fakeOracle{
		selection: &llm.Selection{
			Tool:      "calendar_list_events",
			Arguments: map[string]any{"time_min": "2026-03-15T00:00:00Z"},
		},
		summary: "You have one event tomorrow: Team sync (ID evt-123).",
	}
	invoker := &fakeInvoker{result: raw}
	recorder := &fakeRecorder{}
	convo := &fakeConversation{}

	orch := New(oracle, defaultCatalog(), invoker,
		WithRecorder(recorder), WithConversation(convo))

	result := orch.Handle(context.Background(), "what's on my calendar tomorrow?")

	answer, ok := result.(ToolAnswer)
	if !ok {
		t.Fatalf("Expected ToolAnswer, got %T", result)
	}
	if answer.ToolName != "calendar_list_events" {
		t.Errorf("Expected calendar_list_events, got %s", answer.ToolName)
	}
	if answer.Summary != oracle.summary {
		t.Errorf("Unexpected summary: %s", answer.Summary)
	}
	// Raw tool output passes through byte for byte
	if !bytes.Equal(answer.RawOutput, raw) {
		t.Errorf("Expected raw output preserved, got %s", answer.RawOutput)
	}

	if invoker.calls != 1 {
		t.Errorf("Expected 1 tool call, got %d", invoker.calls)
	}
	if len(recorder.records) != 1 || recorder.records[0] != "calendar_list_events" {
		t.Errorf("Expected one history record, got %v", recorder.records)
	}
	if len(convo.appends) != 1 {
		t.Fatalf("Expected one conversation append, got %d", len(convo.appends))
	}
	if convo.appends[0][1] != oracle.summary {
		t.Errorf("Expected summary in conversation, got %s", convo.appends[0][1])
	}
}

func TestHandle_EmptyCalendar(t *testing.T) {
	oracle := &fakeOracle{
		selection: &llm.Selection{
			Tool:      "calendar_list_events",
			Arguments: map[string]any{"date": "2026-03-15"},
		},
		summary: "You have no events scheduled for tomorrow.",
	}
	invoker := &fakeInvoker{result: json.RawMessage(`{"events":[]}`)}
	recorder := &fakeRecorder{}

	orch := New(oracle, defaultCatalog(), invoker, WithRecorder(recorder))

	result := orch.Handle(context.Background(), "what's on my calendar tomorrow")

	answer, ok := result.(ToolAnswer)
	if !ok {
		t.Fatalf("Expected ToolAnswer, got %T", result)
	}
	if answer.Summary != "You have no events scheduled for tomorrow." {
		t.Errorf("Unexpected summary: %s", answer.Summary)
	}
	if len(recorder.records) != 1 {
		t.Errorf("Expected one history entry, got %d", len(recorder.records))
	}
}

func TestHandle_DirectAnswer(t *testing.T) {
	oracle := &fakeOracle{reply: "I can manage your Gmail and Calendar."}
	invoker := &fakeInvoker{}
	recorder := &fakeRecorder{}
	convo := &fakeConversation{}

	orch := New(oracle, defaultCatalog(), invoker,
		WithRecorder(recorder), WithConversation(convo))

	result := orch.Handle(context.Background(), "what can you do?")

	answer, ok := result.(Answer)
	if !ok {
		t.Fatalf("Expected Answer, got %T", result)
	}
	if answer.Text != oracle.reply {
		t.Errorf("Unexpected answer text: %s", answer.Text)
	}
	if invoker.calls != 0 {
		t.Errorf("Expected no tool calls, got %d", invoker.calls)
	}
	// Direct answers never produce history entries
	if len(recorder.records) != 0 {
		t.Errorf("Expected empty history, got %v", recorder.records)
	}
	if len(convo.appends) != 1 {
		t.Errorf("Expected conversation append for direct answer, got %d", len(convo.appends))
	}
}

func TestHandle_UnknownTool(t *testing.T) {
	oracle := &fakeOracle{
		selection: &llm.Selection{Tool: "made_up_tool", Arguments: map[string]any{}},
	}
	invoker := &fakeInvoker{}
	recorder := &fakeRecorder{}

	orch := New(oracle, defaultCatalog(), invoker, WithRecorder(recorder))

	result := orch.Handle(context.Background(), "do the thing")

	failure, ok := result.(Failure)
	if !ok {
		t.Fatalf("Expected Failure, got %T", result)
	}
	if !errors.Is(failure.Err, ErrUnknownTool) {
		t.Errorf("Expected ErrUnknownTool, got %v", failure.Err)
	}
	if !strings.Contains(failure.Err.Error(), "made_up_tool") {
		t.Errorf("Expected tool name in error, got %v", failure.Err)
	}
	// A hallucinated tool must never reach the tool service
	if invoker.calls != 0 {
		t.Errorf("Expected zero tool-service calls, got %d", invoker.calls)
	}
	if len(recorder.records) != 0 {
		t.Errorf("Expected no history record, got %v", recorder.records)
	}
}

func TestHandle_InvocationFailure(t *testing.T) {
	oracle := &fakeOracle{
		selection: &llm.Selection{Tool: "gmail_list_messages"},
	}
	invErr := &toolserver.InvocationError{
		ToolName:   "gmail_list_messages",
		StatusCode: 500,
		Body:       `{"detail":"upstream session expired"}`,
	}
	invoker := &fakeInvoker{err: invErr}
	recorder := &fakeRecorder{}

	orch := New(oracle, defaultCatalog(), invoker, WithRecorder(recorder))

	result := orch.Handle(context.Background(), "list my mail")

	failure, ok := result.(Failure)
	if !ok {
		t.Fatalf("Expected Failure, got %T", result)
	}
	// The raw error body survives to the user
	if !strings.Contains(failure.Err.Error(), "upstream session expired") {
		t.Errorf("Expected raw error body preserved, got %v", failure.Err)
	}
	// A failed invocation is never summarized and never recorded
	if oracle.summarizeCalls != 0 {
		t.Errorf("Expected no summarize call, got %d", oracle.summarizeCalls)
	}
	if len(recorder.records) != 0 {
		t.Errorf("Expected no history record, got %v", recorder.records)
	}
}

func TestHandle_SummarizeFallback(t *testing.T) {
	raw := json.RawMessage(`{"messages":[{"id":"msg-001"}]}`)
	oracle := &fakeOracle{
		selection:  &llm.Selection{Tool: "gmail_list_messages"},
		summaryErr: fmt.Errorf("summarization returned empty content"),
	}
	invoker := &fakeInvoker{result: raw}
	recorder := &fakeRecorder{}

	orch := New(oracle, defaultCatalog(), invoker, WithRecorder(recorder))

	result := orch.Handle(context.Background(), "any unread mail?")

	answer, ok := result.(ToolAnswer)
	if !ok {
		t.Fatalf("Expected ToolAnswer despite summarize failure, got %T", result)
	}

	// Fallback presents the indented raw output
	var expected bytes.Buffer
	if err := json.Indent(&expected, raw, "", "  "); err != nil {
		t.Fatal(err)
	}
	if answer.Summary != expected.String() {
		t.Errorf("Expected indented raw output, got: %s", answer.Summary)
	}

	// The invocation still lands in history
	if len(recorder.records) != 1 {
		t.Errorf("Expected one history record, got %v", recorder.records)
	}
}

func TestHandle_CatalogUnavailable(t *testing.T) {
	orch := New(&fakeOracle{}, &fakeCatalog{err: toolserver.ErrCatalogUnavailable}, &fakeInvoker{})

	result := orch.Handle(context.Background(), "list my mail")

	failure, ok := result.(Failure)
	if !ok {
		t.Fatalf("Expected Failure, got %T", result)
	}
	if !errors.Is(failure.Err, toolserver.ErrCatalogUnavailable) {
		t.Errorf("Expected ErrCatalogUnavailable, got %v", failure.Err)
	}
}

func TestHandle_SelectionError(t *testing.T) {
	oracle := &fakeOracle{selectionErr: llm.ErrSelectionParse}
	orch := New(oracle, defaultCatalog(), &fakeInvoker{})

	result := orch.Handle(context.Background(), "list my mail")

	failure, ok := result.(Failure)
	if !ok {
		t.Fatalf("Expected Failure, got %T", result)
	}
	if !errors.Is(failure.Err, llm.ErrSelectionParse) {
		t.Errorf("Expected ErrSelectionParse, got %v", failure.Err)
	}
}

func TestHandle_ArgumentNormalization(t *testing.T) {
	oracle := &fakeOracle{
		selection: &llm.Selection{
			Tool:      "gmail_list_messages",
			Arguments: map[string]any{"user_id": "me", "query": "is:unread"},
		},
		summary: "done",
	}
	invoker := &fakeInvoker{result: json.RawMessage(`{}`)}

	orch := New(oracle, defaultCatalog(), invoker)
	orch.Handle(context.Background(), "unread mail")

	if _, ok := invoker.lastArgs["user_id"]; ok {
		t.Error("Expected user_id to be renamed before invocation")
	}
	if invoker.lastArgs["__user_id__"] != "me" {
		t.Errorf("Expected __user_id__ argument, got %v", invoker.lastArgs)
	}
}

func TestHandle_ListTools(t *testing.T) {
	orch := New(&fakeOracle{}, defaultCatalog(), &fakeInvoker{})

	for _, input := range []string{"list", "LIST", "help"} {
		result := orch.Handle(context.Background(), input)

		help, ok := result.(Help)
		if !ok {
			t.Fatalf("Expected Help for %q, got %T", input, result)
		}
		if len(help.Commands) != 2 {
			t.Errorf("Expected 2 commands, got %d", len(help.Commands))
		}
		if !strings.Contains(help.Title, "2") {
			t.Errorf("Expected count in title, got %s", help.Title)
		}
	}
}

func TestHandle_InspectTool(t *testing.T) {
	invoker := &fakeInvoker{
		inspected: toolserver.ToolDescriptor{
			Name:        "calendar_create_event",
			Description: "Create a calendar event",
			InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"summary": map[string]any{"type": "string", "description": "Event title"},
				},
				"required": []any{"summary"},
			},
		},
	}

	orch := New(&fakeOracle{}, defaultCatalog(), invoker)

	result := orch.Handle(context.Background(), "inspect calendar_create_event")

	help, ok := result.(Help)
	if !ok {
		t.Fatalf("Expected Help, got %T", result)
	}
	if !strings.Contains(help.Title, "calendar_create_event") {
		t.Errorf("Expected tool name in title, got %s", help.Title)
	}
	if len(help.Commands) != 1 {
		t.Fatalf("Expected 1 parameter, got %d", len(help.Commands))
	}
	if !strings.Contains(help.Commands[0].Description, "[required]") {
		t.Errorf("Expected required marker, got %s", help.Commands[0].Description)
	}
}

func TestHandle_InspectNormalizedSchema(t *testing.T) {
	// Schemas arrive through NormalizeSchema, which lifts per-property
	// required flags into a []string array; the marker must survive
	schema := toolserver.NormalizeSchema(map[string]any{
		"type": "object",
		"properties": map[string]any{
			"summary":  map[string]any{"type": "string", "description": "Event title", "required": true},
			"location": map[string]any{"type": "string", "description": "Event location"},
		},
	})

	invoker := &fakeInvoker{
		inspected: toolserver.ToolDescriptor{
			Name:        "calendar_create_event",
			Description: "Create a calendar event",
			InputSchema: schema,
		},
	}

	orch := New(&fakeOracle{}, defaultCatalog(), invoker)

	result := orch.Handle(context.Background(), "inspect calendar_create_event")

	help, ok := result.(Help)
	if !ok {
		t.Fatalf("Expected Help, got %T", result)
	}

	byName := make(map[string]string)
	for _, cmd := range help.Commands {
		byName[cmd.Name] = cmd.Description
	}
	if !strings.Contains(byName["summary"], "[required]") {
		t.Errorf("Expected required marker for summary, got %q", byName["summary"])
	}
	if strings.Contains(byName["location"], "[required]") {
		t.Errorf("Expected no required marker for location, got %q", byName["location"])
	}
}

func TestHandle_InspectUnknownTool(t *testing.T) {
	orch := New(&fakeOracle{}, defaultCatalog(), &fakeInvoker{})

	result := orch.Handle(context.Background(), "inspect no_such_tool")

	failure, ok := result.(Failure)
	if !ok {
		t.Fatalf("Expected Failure, got %T", result)
	}
	if !errors.Is(failure.Err, toolserver.ErrToolNotFound) {
		t.Errorf("Expected ErrToolNotFound, got %v", failure.Err)
	}
}

func TestFallbackSummary_NonJSON(t *testing.T) {
	out := fallbackSummary([]byte("plain text result"))
	if out != "plain text result" {
		t.Errorf("Expected non-JSON output unchanged, got %s", out)
	}
}
