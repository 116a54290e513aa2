package server

import (
	"context"
	"embed"
	"encoding/json"
	"io/fs"
	"net/http"

	"github.com/opang/workmate/internal/history"
	"github.com/opang/workmate/internal/logger"
	"github.com/opang/workmate/internal/orchestrator"
	"github.com/opang/workmate/internal/toolserver"
)

//go:embed static
var staticFS embed.FS

// CommandHandler processes one utterance, normally the orchestrator
type CommandHandler interface {
	Handle(ctx context.Context, utterance string) orchestrator.Result
}

// HealthChecker reports the tool-execution service's health
type HealthChecker interface {
	Health(ctx context.Context) (toolserver.Health, error)
}

// Server HTTP surface: the command endpoint, the history panel feed and the
// embedded browser UI
type Server struct {
	handler CommandHandler
	history *history.Recorder
	checker HealthChecker
	mux     *http.ServeMux
}

// commandRequest POST /command request body
type commandRequest struct {
	Input string `json:"input"`
}

// commandResponse POST /command response. Exactly one shape is populated
// per result variant.
type commandResponse struct {
	Response  string                     `json:"response,omitempty"`
	ToolUsed  string                     `json:"tool_used,omitempty"`
	ToolInput map[string]any             `json:"tool_input,omitempty"`
	RawJSON   string                     `json:"raw_json,omitempty"`
	Title     string                     `json:"title,omitempty"`
	Commands  []orchestrator.HelpCommand `json:"commands,omitempty"`
	Error     string                     `json:"error,omitempty"`
}

// New creates a new Server. checker may be nil when tool-service health
// reporting is not wanted.
func New(handler CommandHandler, rec *history.Recorder, checker HealthChecker) *Server {
	s := &Server{
		handler: handler,
		history: rec,
		checker: checker,
		mux:     http.NewServeMux(),
	}

	s.mux.HandleFunc("/command", s.handleCommand)
	s.mux.HandleFunc("/history", s.handleHistory)
	s.mux.HandleFunc("/healthz", s.handleHealthz)

	static, err := fs.Sub(staticFS, "static")
	if err == nil {
		s.mux.Handle("/", http.FileServer(http.FS(static)))
	}

	return s
}

// Handler returns the root HTTP handler
func (s *Server) Handler() http.Handler {
	return s.mux
}

// handleCommand runs one utterance through the orchestrator
func (s *Server) handleCommand(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, commandResponse{Error: "method not allowed"})
		return
	}

	var req commandRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, commandResponse{Error: "invalid request body"})
		return
	}
	if req.Input == "" {
		writeJSON(w, http.StatusBadRequest, commandResponse{Error: "no input provided"})
		return
	}

	logger.Info("command received: %q", req.Input)
	result := s.handler.Handle(r.Context(), req.Input)

	switch res := result.(type) {
	case orchestrator.Answer:
		writeJSON(w, http.StatusOK, commandResponse{Response: res.Text})
	case orchestrator.ToolAnswer:
		writeJSON(w, http.StatusOK, commandResponse{
			Response:  res.Summary,
			ToolUsed:  res.ToolName,
			ToolInput: res.ToolInput,
			RawJSON:   string(res.RawOutput),
		})
	case orchestrator.Help:
		writeJSON(w, http.StatusOK, commandResponse{Title: res.Title, Commands: res.Commands})
	case orchestrator.Failure:
		logger.Error("command failed: %v", res.Err)
		writeJSON(w, http.StatusOK, commandResponse{Error: res.Err.Error()})
	default:
		writeJSON(w, http.StatusInternalServerError, commandResponse{Error: "unexpected result"})
	}
}

// handleHistory serves the invocation history, newest first
func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, commandResponse{Error: "method not allowed"})
		return
	}

	entries := s.history.Entries()
	writeJSON(w, http.StatusOK, map[string]any{
		"entries": entries,
		"count":   len(entries),
	})
}

// handleHealthz liveness endpoint. Includes the tool service's own health
// when a checker is wired, so the UI can tell a dead backend from a dead app.
func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	resp := map[string]any{"status": "ok"}

	if s.checker != nil {
		health, err := s.checker.Health(r.Context())
		if err != nil {
			logger.Warn("tool service health check failed: %v", err)
			resp["tool_server"] = toolserver.Health{Status: "unreachable"}
		} else {
			resp["tool_server"] = health
		}
	}

	writeJSON(w, http.StatusOK, resp)
}

// writeJSON writes a JSON response with the given status
func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		logger.Error("failed to encode response: %v", err)
	}
}
