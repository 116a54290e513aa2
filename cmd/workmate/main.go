package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/opang/workmate/internal/catalog"
	"github.com/opang/workmate/internal/cli"
	"github.com/opang/workmate/internal/config"
	"github.com/opang/workmate/internal/convo"
	"github.com/opang/workmate/internal/history"
	"github.com/opang/workmate/internal/llm"
	"github.com/opang/workmate/internal/logger"
	"github.com/opang/workmate/internal/orchestrator"
	"github.com/opang/workmate/internal/server"
	"github.com/opang/workmate/internal/toolserver"
	"github.com/spf13/cobra"
)

var (
	version = "0.1.0"
)

// components everything needed to serve commands
type components struct {
	orch       *orchestrator.Orchestrator
	recorder   *history.Recorder
	tracker    *convo.Tracker
	store      *convo.SQLiteStore
	toolClient *toolserver.Client
}

// buildComponents wires the orchestrator and its collaborators from config
func buildComponents(cfg *config.Config) (*components, error) {
	promptCfg, err := config.LoadPromptConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load prompt config: %w", err)
	}

	llmClient := llm.New(
		cfg.Model.APIKey,
		cfg.Model.BaseURL,
		cfg.Model.Model,
		cfg.Model.Temperature,
		cfg.Model.MaxTokens,
	)
	oracle := llm.NewOracle(llmClient, promptCfg)

	tsClient := toolserver.NewClient(
		cfg.ToolServer.BaseURL,
		time.Duration(cfg.ToolServer.TimeoutSeconds)*time.Second,
	)
	catalogAdapter := catalog.NewAdapter(tsClient)

	store, err := convo.NewSQLiteStore(cfg.Conversation.DBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open conversation store: %w", err)
	}

	tracker, err := convo.NewTracker(store, cfg.Conversation.MaxContextWords)
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("failed to initialize conversation tracker: %w", err)
	}

	recorder := history.NewRecorder()

	orch := orchestrator.New(
		oracle, catalogAdapter, tsClient,
		orchestrator.WithRecorder(recorder),
		orchestrator.WithConversation(tracker),
	)

	// Warm the catalog; a failure here is not fatal, the adapter retries
	// on the first command
	if err := catalogAdapter.Warm(context.Background()); err != nil {
		logger.Warn("catalog warm-up failed: %v", err)
	}

	return &components{
		orch:       orch,
		recorder:   recorder,
		tracker:    tracker,
		store:      store,
		toolClient: tsClient,
	}, nil
}

// runServe starts the HTTP server with the embedded browser UI
func runServe() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if err := logger.Init(logger.Config{
		LogDir:     config.LogDir(),
		Level:      logger.INFO,
		MaxDays:    7,
		ConsoleOut: true,
	}); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer logger.Close()

	comps, err := buildComponents(cfg)
	if err != nil {
		return err
	}
	defer comps.store.Close()

	srv := server.New(comps.orch, comps.recorder, comps.toolClient)

	logger.Info("listening on %s", cfg.Server.Listen)
	fmt.Printf("Workmate listening on %s\n", cfg.Server.Listen)
	return http.ListenAndServe(cfg.Server.Listen, srv.Handler())
}

// runREPL starts the interactive terminal front-end
func runREPL() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if err := logger.Init(logger.Config{
		LogDir:  config.LogDir(),
		Level:   logger.INFO,
		MaxDays: 7,
	}); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer logger.Close()

	comps, err := buildComponents(cfg)
	if err != nil {
		return err
	}
	defer comps.store.Close()

	repl := cli.NewREPL(comps.orch, comps.recorder, comps.tracker)
	return repl.Run()
}

func main() {
	rootCmd := &cobra.Command{
		Use:   "workmate",
		Short: "Workmate - natural-language control for Google Workspace",
		Long: `Workmate is a conversational assistant for Gmail and Google Calendar.

It turns free-text commands into Workspace tool calls through an LLM:
  • "what's on my calendar tomorrow?"
  • "show my unread emails"
  • "schedule a 30 minute sync with Dana on Friday"

Tools are provided by a separate tool-execution service configured via
tool_server.base_url (or the TOOL_SERVER_URL environment variable).`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe()
		},
	}

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server with the browser UI",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe()
		},
	}

	replCmd := &cobra.Command{
		Use:   "repl",
		Short: "Start the interactive terminal front-end",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runREPL()
		},
	}

	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Show current configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			fmt.Println(cfg.String())

			path, _ := config.ConfigPath()
			fmt.Printf("\nConfig file path: %s\n", path)
			return nil
		},
	}

	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("Workmate v%s\n", version)
		},
	}

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(replCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(versionCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
