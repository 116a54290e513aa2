package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// PromptConfig prompt configuration structure
type PromptConfig struct {
	System             string `yaml:"system"`
	UserContext        string `yaml:"user_context"`
	SummaryInstruction string `yaml:"summary_instruction"`
	ErrorPrefix        string `yaml:"error_prefix"`
}

// DefaultPromptConfig returns default prompt configuration
func DefaultPromptConfig() *PromptConfig {
	return &PromptConfig{
		System: "You are an AI assistant with deep expertise in Google Workspace. " +
			"You can answer user questions about Gmail and Google Calendar, and you " +
			"can execute actions by invoking the available tools.",
		UserContext: "",
		SummaryInstruction: "Summarize the tool execution results in a clear, user-friendly way.\n" +
			"If the result contains items with IDs (like email IDs or event IDs), you MUST " +
			"include them in the summary as they are needed for follow-up actions like " +
			"deleting or reading a specific item.\nAvoid showing raw JSON.",
		ErrorPrefix: "Error",
	}
}

// PromptConfigPath returns the prompt config file path
func PromptConfigPath() (string, error) {
	// First check if there's a config/prompt.yaml in current working directory
	cwd, err := os.Getwd()
	if err == nil {
		localPath := filepath.Join(cwd, "config", "prompt.yaml")
		if _, err := os.Stat(localPath); err == nil {
			return localPath, nil
		}
	}

	// Fall back to user config directory
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "prompt.yaml"), nil
}

// LoadPromptConfig loads prompt configuration from file
func LoadPromptConfig() (*PromptConfig, error) {
	configPath, err := PromptConfigPath()
	if err != nil {
		return DefaultPromptConfig(), nil
	}

	// Check if config file exists
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return DefaultPromptConfig(), nil
	}

	// Read config file
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read prompt config: %w", err)
	}

	// Parse config
	cfg := DefaultPromptConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse prompt config: %w", err)
	}

	return cfg, nil
}

// GetSystemPrompt returns the system prompt
func (p *PromptConfig) GetSystemPrompt() string {
	return p.System
}

// GetUserContext returns the user context line prepended to the system prompt
func (p *PromptConfig) GetUserContext() string {
	return p.UserContext
}

// GetSummaryInstruction returns the summarization instruction
func (p *PromptConfig) GetSummaryInstruction() string {
	return p.SummaryInstruction
}

// GetErrorPrefix returns the error prefix
func (p *PromptConfig) GetErrorPrefix() string {
	return p.ErrorPrefix
}
