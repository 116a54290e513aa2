package history

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Entry one audited tool invocation: name, serialized input, serialized raw
// output and the time it completed
type Entry struct {
	ID         string    `json:"id"`
	ToolName   string    `json:"tool_name"`
	ToolInput  string    `json:"tool_input"`
	ToolOutput string    `json:"tool_output"`
	Timestamp  time.Time `json:"timestamp"`
}

// Recorder in-memory append-only invocation history. Unbounded growth is
// accepted for a single interactive session; state dies with the process.
// The mutex guards appends from concurrent HTTP requests.
type Recorder struct {
	mu      sync.Mutex
	entries []Entry
}

// NewRecorder creates an empty recorder
func NewRecorder() *Recorder {
	return &Recorder{}
}

// Record appends one invocation. O(1), no eviction.
func (r *Recorder) Record(toolName string, input map[string]any, output []byte) {
	serialized, err := json.Marshal(input)
	if err != nil {
		serialized = []byte("{}")
	}

	entry := Entry{
		ID:         uuid.New().String(),
		ToolName:   toolName,
		ToolInput:  string(serialized),
		ToolOutput: string(output),
		Timestamp:  time.Now(),
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, entry)
}

// Entries returns a copy of the history, most recent first
func (r *Recorder) Entries() []Entry {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]Entry, len(r.entries))
	for i, entry := range r.entries {
		out[len(r.entries)-1-i] = entry
	}
	return out
}

// Len returns the number of recorded invocations
func (r *Recorder) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}
