package orchestrator

import "errors"

var (
	// ErrNoInput the request carried an empty utterance
	ErrNoInput = errors.New("no input provided")

	// ErrUnknownTool the LLM selected a tool name that is not in the
	// catalog. The invocation is rejected before any tool-service call.
	ErrUnknownTool = errors.New("unknown tool selected")
)
