package orchestrator

import "encoding/json"

// Result is the outcome of handling one utterance. Exactly one of the
// variants below is returned per request.
type Result interface {
	isResult()
}

// Answer direct natural-language reply, no tool was needed
type Answer struct {
	Text string
}

// ToolAnswer a tool was invoked and its output summarized. RawOutput is the
// tool service's result payload verbatim, kept for the audit trail.
type ToolAnswer struct {
	Summary   string
	ToolName  string
	ToolInput map[string]any
	RawOutput json.RawMessage
}

// HelpCommand one entry of a help listing
type HelpCommand struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// Help static listing produced by the list and inspect built-ins
type Help struct {
	Title    string
	Commands []HelpCommand
}

// Failure classified error outcome. Err wraps one of the sentinel errors so
// callers can distinguish the failure class.
type Failure struct {
	Err error
}

func (Answer) isResult()     {}
func (ToolAnswer) isResult() {}
func (Help) isResult()       {}
func (Failure) isResult()    {}
