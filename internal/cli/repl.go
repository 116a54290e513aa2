package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/chzyer/readline"
	"github.com/opang/workmate/internal/convo"
	"github.com/opang/workmate/internal/history"
	"github.com/opang/workmate/internal/orchestrator"
)

const (
	colorReset  = "\033[0m"
	colorGreen  = "\033[32m"
	colorYellow = "\033[33m"
	colorBlue   = "\033[34m"
	colorCyan   = "\033[36m"
	colorRed    = "\033[31m"
	colorGray   = "\033[90m"
)

// REPL interactive terminal front-end over the orchestrator
type REPL struct {
	orch     *orchestrator.Orchestrator
	recorder *history.Recorder
	tracker  *convo.Tracker
}

// NewREPL creates a new REPL
func NewREPL(orch *orchestrator.Orchestrator, rec *history.Recorder, tracker *convo.Tracker) *REPL {
	return &REPL{orch: orch, recorder: rec, tracker: tracker}
}

// getHistoryFilePath returns the readline history file path
func getHistoryFilePath() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	historyDir := filepath.Join(homeDir, ".workmate")
	if err := os.MkdirAll(historyDir, 0755); err != nil {
		return ""
	}
	return filepath.Join(historyDir, "history")
}

// Run starts the interactive loop
func (r *REPL) Run() error {
	printWelcome()

	rlConfig := &readline.Config{
		Prompt:          fmt.Sprintf("%sYou: %s", colorGreen, colorReset),
		HistoryFile:     getHistoryFilePath(),
		HistoryLimit:    1000,
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",

		HistorySearchFold:      true,
		DisableAutoSaveHistory: false,
	}

	rl, err := readline.NewEx(rlConfig)
	if err != nil {
		return fmt.Errorf("failed to create readline: %w", err)
	}
	defer rl.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		fmt.Printf("\n\n%sGoodbye!%s\n", colorCyan, colorReset)
		cancel()
		rl.Close()
		os.Exit(0)
	}()

	for {
		line, err := rl.Readline()
		if err != nil {
			if err == readline.ErrInterrupt {
				fmt.Printf("\n%sPress Ctrl+C again or type /exit to quit%s\n", colorYellow, colorReset)
				continue
			}
			if err == io.EOF {
				fmt.Printf("\n%sGoodbye!%s\n", colorCyan, colorReset)
				return nil
			}
			return fmt.Errorf("failed to read input: %w", err)
		}

		input := strings.TrimSpace(line)
		if input == "" {
			continue
		}

		// Handle built-in commands
		if strings.HasPrefix(input, "/") {
			if r.handleCommand(input) {
				continue
			}
			return nil // /exit command
		}

		result := r.orch.Handle(ctx, input)
		r.render(result)
	}
}

// handleCommand handles built-in commands, returns true to continue loop,
// false to exit
func (r *REPL) handleCommand(cmd string) bool {
	switch strings.ToLower(strings.TrimSpace(cmd)) {
	case "/help":
		printHelp()
		return true

	case "/history":
		r.printToolHistory()
		return true

	case "/tools":
		r.render(r.orch.Handle(context.Background(), "list"))
		return true

	case "/clear":
		if r.tracker == nil {
			fmt.Printf("%sConversation tracking is disabled%s\n", colorGray, colorReset)
			return true
		}
		if err := r.tracker.Reset(); err != nil {
			fmt.Printf("%sFailed to clear conversation: %v%s\n", colorRed, err, colorReset)
		} else {
			fmt.Printf("%sConversation cleared%s\n", colorGreen, colorReset)
		}
		return true

	case "/exit", "/quit", "/q":
		fmt.Printf("%sGoodbye!%s\n", colorCyan, colorReset)
		return false

	default:
		fmt.Printf("%sUnknown command: %s%s\n", colorYellow, cmd, colorReset)
		fmt.Println("Type /help for available commands")
		return true
	}
}

// render prints one orchestration result
func (r *REPL) render(result orchestrator.Result) {
	switch res := result.(type) {
	case orchestrator.Answer:
		fmt.Printf("\n%sWorkmate:%s %s\n\n", colorBlue, colorReset, res.Text)

	case orchestrator.ToolAnswer:
		fmt.Printf("\n%s[tool: %s]%s\n", colorYellow, res.ToolName, colorReset)
		fmt.Printf("%sWorkmate:%s %s\n\n", colorBlue, colorReset, res.Summary)

	case orchestrator.Help:
		fmt.Printf("\n%s%s%s\n", colorCyan, res.Title, colorReset)
		for _, cmd := range res.Commands {
			fmt.Printf("  %s%-40s%s %s\n", colorYellow, cmd.Name, colorReset, cmd.Description)
		}
		fmt.Println()

	case orchestrator.Failure:
		fmt.Printf("\n%sError: %v%s\n\n", colorRed, res.Err, colorReset)
	}
}

// printToolHistory prints past tool invocations, newest first
func (r *REPL) printToolHistory() {
	entries := r.recorder.Entries()
	if len(entries) == 0 {
		fmt.Printf("%sNo tool calls yet%s\n", colorGray, colorReset)
		return
	}

	for _, entry := range entries {
		fmt.Printf("%s%s%s  %s%s%s\n", colorGray, entry.Timestamp.Format("15:04:05"), colorReset,
			colorYellow, entry.ToolName, colorReset)
		fmt.Printf("  input:  %s\n", entry.ToolInput)
		fmt.Printf("  output: %s\n", truncate(entry.ToolOutput, 200))
	}
}

// truncate shortens s for terminal display
func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}

// printWelcome prints welcome message
func printWelcome() {
	fmt.Printf("\n%sWorkmate%s - Gmail & Calendar assistant\n", colorCyan, colorReset)
	fmt.Printf("%sType a request, or 'list' to see available tools. /help for commands.%s\n\n", colorGray, colorReset)
}

// printHelp prints help information
func printHelp() {
	fmt.Printf(`
%sWorkmate Help%s

%sBuilt-in Commands:%s
  /help      - Show this help message
  /history   - Show past tool invocations
  /tools     - List available Workspace tools
  /clear     - Clear the conversation context
  /exit      - Exit program

%sAssistant Commands:%s
  list            - List available Workspace tools
  inspect <tool>  - Show a tool's parameters

%sExamples:%s
  "what's on my calendar tomorrow?"
  "show my unread emails"
  "schedule a 30 minute sync with Dana on Friday"

`, colorCyan, colorReset, colorYellow, colorReset, colorYellow, colorReset, colorYellow, colorReset)
}
