package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

var (
	// configDir is the configuration directory path
	// Can be set via SetConfigDir before loading config
	configDir     string
	configDirInit bool
)

// SetConfigDir sets a custom configuration directory
// Must be called before any config loading functions
func SetConfigDir(dir string) {
	configDir = dir
	configDirInit = true
}

// GetConfigDir returns the configuration directory
// Priority: 1. Manually set via SetConfigDir, 2. ./config in current directory
func GetConfigDir() string {
	if !configDirInit {
		cwd, err := os.Getwd()
		if err == nil {
			configDir = filepath.Join(cwd, "config")
		}
		configDirInit = true
	}
	return configDir
}

// Config application configuration structure
type Config struct {
	Model        ModelConfig        `yaml:"model"`
	ToolServer   ToolServerConfig   `yaml:"tool_server"`
	Server       ServerConfig       `yaml:"server"`
	Conversation ConversationConfig `yaml:"conversation"`
}

// ModelConfig LLM model configuration
type ModelConfig struct {
	APIKey      string  `yaml:"api_key"`
	BaseURL     string  `yaml:"base_url"`
	Model       string  `yaml:"model"`
	Temperature float64 `yaml:"temperature"`
	MaxTokens   int     `yaml:"max_tokens"`
}

// ToolServerConfig tool-execution service configuration
type ToolServerConfig struct {
	BaseURL        string `yaml:"base_url"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

// ServerConfig HTTP server configuration
type ServerConfig struct {
	Listen string `yaml:"listen"`
}

// ConversationConfig conversation context configuration
type ConversationConfig struct {
	DBPath          string `yaml:"db_path"`
	MaxContextWords int    `yaml:"max_context_words"`
}

// DefaultConfig returns default configuration
func DefaultConfig() *Config {
	homeDir, _ := os.UserHomeDir()
	return &Config{
		Model: ModelConfig{
			APIKey:      "",
			BaseURL:     "https://api.deepseek.com",
			Model:       "deepseek-chat",
			Temperature: 0,
			MaxTokens:   4096,
		},
		ToolServer: ToolServerConfig{
			BaseURL:        "http://localhost:8080",
			TimeoutSeconds: 30,
		},
		Server: ServerConfig{
			Listen: ":5000",
		},
		Conversation: ConversationConfig{
			DBPath:          filepath.Join(homeDir, ".workmate", "conversation.db"),
			MaxContextWords: 1000,
		},
	}
}

// ConfigDir returns the configuration directory path
func ConfigDir() (string, error) {
	dir := GetConfigDir()
	if dir == "" {
		return "", fmt.Errorf("failed to determine config directory")
	}
	return dir, nil
}

// LogDir returns the log directory path
func LogDir() string {
	dir := GetConfigDir()
	if dir == "" {
		return "logs"
	}
	return filepath.Join(dir, "logs")
}

// ConfigPath returns the configuration file path
func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.yaml"), nil
}

// Load loads configuration from file, then applies secrets and
// environment overrides
func Load() (*Config, error) {
	configPath, err := ConfigPath()
	if err != nil {
		return nil, err
	}

	var cfg *Config

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		// Config file doesn't exist, create default config
		cfg = DefaultConfig()
		applySecrets(cfg)
		applyEnvOverrides(cfg)

		if err := Save(cfg); err != nil {
			return nil, fmt.Errorf("failed to create default config: %w", err)
		}
	} else {
		data, err := os.ReadFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}

		cfg = DefaultConfig() // Use default values as base
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}

		applySecrets(cfg)
		applyEnvOverrides(cfg)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// applySecrets fills empty sensitive fields from the .secrets file
func applySecrets(cfg *Config) {
	secrets, _ := LoadSecrets()
	if secrets == nil {
		return
	}
	if cfg.Model.APIKey == "" {
		if apiKey := secrets.GetLLMAPIKey(); apiKey != "" {
			cfg.Model.APIKey = apiKey
		}
	}
}

// applyEnvOverrides applies environment variable overrides.
// These take precedence over both the config file and secrets.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("LLM_API_KEY"); v != "" {
		cfg.Model.APIKey = v
	}
	if v := os.Getenv("LLM_MODEL"); v != "" {
		cfg.Model.Model = v
	}
	if v := os.Getenv("TOOL_SERVER_URL"); v != "" {
		cfg.ToolServer.BaseURL = v
	}
}

// Save saves configuration to file
func Save(cfg *Config) error {
	configPath, err := ConfigPath()
	if err != nil {
		return err
	}

	// Ensure config directory exists
	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	// Serialize config
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to serialize config: %w", err)
	}

	// Add header comment
	content := "# Workmate Configuration File\n\n" + string(data)

	if err := os.WriteFile(configPath, []byte(content), 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	// Validate model config
	if c.Model.BaseURL == "" {
		return fmt.Errorf("config error: model.base_url cannot be empty")
	}
	if c.Model.Model == "" {
		return fmt.Errorf("config error: model.model cannot be empty")
	}
	if c.Model.Temperature < 0 || c.Model.Temperature > 2 {
		return fmt.Errorf("config error: model.temperature must be between 0 and 2")
	}
	if c.Model.MaxTokens <= 0 {
		return fmt.Errorf("config error: model.max_tokens must be greater than 0")
	}

	// Validate tool server config
	if strings.TrimSpace(c.ToolServer.BaseURL) == "" {
		return fmt.Errorf("config error: tool_server.base_url cannot be empty")
	}
	if c.ToolServer.TimeoutSeconds <= 0 {
		return fmt.Errorf("config error: tool_server.timeout_seconds must be greater than 0")
	}

	// Validate server config
	if strings.TrimSpace(c.Server.Listen) == "" {
		return fmt.Errorf("config error: server.listen cannot be empty")
	}

	// Validate conversation config
	if c.Conversation.DBPath == "" {
		return fmt.Errorf("config error: conversation.db_path cannot be empty")
	}
	if c.Conversation.MaxContextWords <= 0 {
		return fmt.Errorf("config error: conversation.max_context_words must be greater than 0")
	}

	return nil
}

// IsAPIKeyConfigured checks if API key is configured
func (c *Config) IsAPIKeyConfigured() bool {
	return c.Model.APIKey != ""
}

// String returns string representation of config (hides sensitive info)
func (c *Config) String() string {
	return fmt.Sprintf(`Workmate Configuration:
  Model:
    API Key: %s
    Base URL: %s
    Model: %s
    Temperature: %.1f
    Max Tokens: %d
  Tool Server:
    Base URL: %s
    Timeout Seconds: %d
  Server:
    Listen: %s
  Conversation:
    DB Path: %s
    Max Context Words: %d`,
		redactAPIKey(c.Model.APIKey),
		c.Model.BaseURL,
		c.Model.Model,
		c.Model.Temperature,
		c.Model.MaxTokens,
		c.ToolServer.BaseURL,
		c.ToolServer.TimeoutSeconds,
		c.Server.Listen,
		c.Conversation.DBPath,
		c.Conversation.MaxContextWords,
	)
}

func redactAPIKey(value string) string {
	if value == "" {
		return "(not configured)"
	}
	if len(value) > 8 {
		return value[:8] + "..."
	}
	return "***"
}
