// Package config handles configuration for waychat.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/caarlos0/env/v11"

	"github.com/diogo/waychat/internal/models"
)

// MarkdownConfig configures terminal markdown rendering options
type MarkdownConfig struct {
	Style            string `json:"style"`              // "dark", "light", "notty" or path to JSON theme
	EnableEmoji      bool   `json:"enable_emoji"`       // Convert :emoji: to unicode
	PreserveNewLines bool   `json:"preserve_newlines"`  // Preserve original line breaks
	TableWrap        bool   `json:"table_wrap"`         // Enable word wrap in table cells
	InlineTableLinks bool   `json:"inline_table_links"` // Render links inline in tables
}

// Config represents the user configuration. Fields tagged with env can be
// overridden by WAYCHAT_* environment variables.
type Config struct {
	// APIKey is the bearer credential for the completion endpoint
	APIKey      string  `json:"api_key,omitempty" env:"API_KEY"`
	Endpoint    string  `json:"endpoint" env:"ENDPOINT"`
	Model       string  `json:"model" env:"MODEL"`
	Temperature float64 `json:"temperature" env:"TEMPERATURE"`
	MaxTokens   int     `json:"max_tokens" env:"MAX_TOKENS"`
	// SystemPrompt seeds every transcript. Empty means the built-in instruction.
	SystemPrompt string `json:"system_prompt,omitempty" env:"SYSTEM_PROMPT"`
	// RequestTimeout is the transport timeout in seconds. 0 keeps the transport default.
	RequestTimeout int `json:"request_timeout" env:"REQUEST_TIMEOUT"`

	// Listen is the address the widget server binds to
	Listen string `json:"listen" env:"LISTEN"`

	LogLevel        string         `json:"log_level" env:"LOG_LEVEL"`
	Verbose         bool           `json:"verbose" env:"VERBOSE"`
	CopyToClipboard bool           `json:"copy_to_clipboard"`
	Markdown        MarkdownConfig `json:"markdown,omitempty"`
}

// envPrefix namespaces the environment overrides
const envPrefix = "WAYCHAT_"

// fallbackAPIKeyEnv is consulted when no waychat-specific key is set
const fallbackAPIKeyEnv = "OPENAI_API_KEY"

// DefaultMarkdownConfig returns the default markdown configuration
func DefaultMarkdownConfig() MarkdownConfig {
	return MarkdownConfig{
		Style:            "dark",
		EnableEmoji:      true,
		PreserveNewLines: true,
		TableWrap:        true,
		InlineTableLinks: false,
	}
}

// DefaultConfig returns the default configuration
func DefaultConfig() Config {
	return Config{
		Endpoint:        models.EndpointChatCompletions,
		Model:           models.DefaultModel,
		Temperature:     models.DefaultTemperature,
		MaxTokens:       models.DefaultMaxTokens,
		RequestTimeout:  0,
		Listen:          "127.0.0.1:8787",
		LogLevel:        "info",
		Verbose:         false,
		CopyToClipboard: false,
		Markdown:        DefaultMarkdownConfig(),
	}
}

// SystemInstruction returns the configured system prompt or the built-in one
func (c Config) SystemInstruction() string {
	if c.SystemPrompt != "" {
		return c.SystemPrompt
	}
	return models.DefaultSystemPrompt
}

// EffectiveLogLevel returns debug when verbose is on, otherwise LogLevel
func (c Config) EffectiveLogLevel() string {
	if c.Verbose {
		return "debug"
	}
	return c.LogLevel
}

// GetConfigDir returns the configuration directory path
func GetConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}

	configDir := filepath.Join(home, ".waychat")
	return configDir, nil
}

// EnsureConfigDir creates the configuration directory if it doesn't exist
func EnsureConfigDir() (string, error) {
	configDir, err := GetConfigDir()
	if err != nil {
		return "", err
	}

	// 0o700: the config file may hold the API key
	if err := os.MkdirAll(configDir, 0o700); err != nil {
		return "", fmt.Errorf("failed to create config directory: %w", err)
	}

	return configDir, nil
}

// GetConfigPath returns the path to the config file
func GetConfigPath() (string, error) {
	configDir, err := GetConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, "config.json"), nil
}

// GetLogPath returns the path of the log file used while the TUI runs
func GetLogPath() (string, error) {
	configDir, err := GetConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, "waychat.log"), nil
}

// LoadConfig loads the configuration from disk and applies environment overrides
func LoadConfig() (Config, error) {
	cfg, err := LoadConfigFile()
	if err != nil {
		return cfg, err
	}

	if err := ApplyEnv(&cfg); err != nil {
		return cfg, err
	}

	return cfg, nil
}

// LoadConfigFile loads the configuration from disk only
func LoadConfigFile() (Config, error) {
	cfg := DefaultConfig()

	configPath, err := GetConfigPath()
	if err != nil {
		return cfg, err
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil // Use defaults if config doesn't exist
		}
		return cfg, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := json.Unmarshal(data, &cfg); err != nil {
		return DefaultConfig(), fmt.Errorf("failed to parse config file: %w", err)
	}

	return cfg, nil
}

// ApplyEnv overrides cfg with WAYCHAT_* variables, then falls back to
// OPENAI_API_KEY when no key is configured.
func ApplyEnv(cfg *Config) error {
	if err := env.ParseWithOptions(cfg, env.Options{Prefix: envPrefix}); err != nil {
		return fmt.Errorf("failed to parse environment: %w", err)
	}

	if cfg.APIKey == "" {
		cfg.APIKey = os.Getenv(fallbackAPIKeyEnv)
	}

	return nil
}

// SaveConfig saves the configuration to disk
func SaveConfig(cfg Config) error {
	configDir, err := EnsureConfigDir()
	if err != nil {
		return err
	}

	configPath := filepath.Join(configDir, "config.json")

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0o600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Validate checks the values a completion call depends on
func (c Config) Validate() error {
	if c.Endpoint == "" {
		return fmt.Errorf("endpoint must not be empty")
	}
	if c.Model == "" {
		return fmt.Errorf("model must not be empty")
	}
	if c.Temperature < 0 || c.Temperature > 2 {
		return fmt.Errorf("temperature must be between 0 and 2, got %v", c.Temperature)
	}
	if c.MaxTokens <= 0 {
		return fmt.Errorf("max_tokens must be positive, got %d", c.MaxTokens)
	}
	if c.RequestTimeout < 0 {
		return fmt.Errorf("request_timeout must not be negative")
	}
	return nil
}

// Redacted returns a copy safe to print
func (c Config) Redacted() Config {
	if c.APIKey != "" {
		if len(c.APIKey) > 8 {
			c.APIKey = c.APIKey[:3] + "..." + c.APIKey[len(c.APIKey)-4:]
		} else {
			c.APIKey = "***"
		}
	}
	return c
}
