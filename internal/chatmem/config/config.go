package config

import (
	"fmt"

	"github.com/longkey1/chatmem/internal/chatmem"
	"github.com/spf13/viper"
)

// DefaultContext is the instruction used when no context document exists yet.
const DefaultContext = "You are a helpful assistant."

// Store backends
const (
	StoreJSON   = "json"
	StoreSQLite = "sqlite"
)

// Config holds the configuration for the chat front-end
type Config struct {
	Model              string   `toml:"model" mapstructure:"model"` // Format: "provider:model" (e.g., "openai:gpt-4o-mini")
	OpenAIBaseURL      string   `toml:"openai_base_url" mapstructure:"openai_base_url"`
	OpenAIToken        string   `toml:"openai_token" mapstructure:"openai_token"`
	AnthropicBaseURL   string   `toml:"anthropic_base_url" mapstructure:"anthropic_base_url"`
	AnthropicToken     string   `toml:"anthropic_token" mapstructure:"anthropic_token"`
	AnthropicMaxTokens int      `toml:"anthropic_max_tokens" mapstructure:"anthropic_max_tokens"`
	GeminiBaseURL      string   `toml:"gemini_base_url" mapstructure:"gemini_base_url"`
	GeminiToken        string   `toml:"gemini_token" mapstructure:"gemini_token"`
	Store              string   `toml:"store" mapstructure:"store"` // "json" or "sqlite"
	HistoryFile        string   `toml:"history_file" mapstructure:"history_file"`
	ContextFile        string   `toml:"context_file" mapstructure:"context_file"`
	SQLiteFile         string   `toml:"sqlite_file" mapstructure:"sqlite_file"`
	DefaultContext     string   `toml:"default_context" mapstructure:"default_context"`
	ListenAddr         string   `toml:"listen_addr" mapstructure:"listen_addr"`
	PromptDirs         []string `toml:"prompt_dirs" mapstructure:"prompt_dirs"`
}

// GetModel returns the model string
func (c *Config) GetModel() string {
	return c.Model
}

// GetProvider extracts provider name from the model string
func (c *Config) GetProvider() (string, error) {
	provider, _, err := chatmem.ParseModelString(c.Model)
	return provider, err
}

// NewDefaultConfig returns a new Config with default values
func NewDefaultConfig(promptDir string) *Config {
	return &Config{
		Model:              "openai:gpt-4o-mini",
		OpenAIBaseURL:      "https://api.openai.com/v1",
		OpenAIToken:        "$OPENAI_API_KEY",
		AnthropicBaseURL:   "https://api.anthropic.com",
		AnthropicToken:     "$ANTHROPIC_API_KEY",
		AnthropicMaxTokens: 1024,
		GeminiBaseURL:      "",
		GeminiToken:        "$GEMINI_API_KEY",
		Store:              StoreJSON,
		HistoryFile:        "chat_history.json",
		ContextFile:        "chat_context.json",
		SQLiteFile:         "chatmem.db",
		DefaultContext:     DefaultContext,
		ListenAddr:         "127.0.0.1:8501",
		PromptDirs:         []string{promptDir},
	}
}

// SetDefaults registers the default values with viper.
func SetDefaults(v *viper.Viper, defaults *Config) {
	v.SetDefault("model", defaults.Model)
	v.SetDefault("openai_base_url", defaults.OpenAIBaseURL)
	v.SetDefault("openai_token", defaults.OpenAIToken)
	v.SetDefault("anthropic_base_url", defaults.AnthropicBaseURL)
	v.SetDefault("anthropic_token", defaults.AnthropicToken)
	v.SetDefault("anthropic_max_tokens", defaults.AnthropicMaxTokens)
	v.SetDefault("gemini_base_url", defaults.GeminiBaseURL)
	v.SetDefault("gemini_token", defaults.GeminiToken)
	v.SetDefault("store", defaults.Store)
	v.SetDefault("history_file", defaults.HistoryFile)
	v.SetDefault("context_file", defaults.ContextFile)
	v.SetDefault("sqlite_file", defaults.SQLiteFile)
	v.SetDefault("default_context", defaults.DefaultContext)
	v.SetDefault("listen_addr", defaults.ListenAddr)
	v.SetDefault("prompt_dirs", defaults.PromptDirs)
}

// LoadConfig loads configuration from the global viper instance
func LoadConfig() (*Config, error) {
	return LoadFrom(viper.GetViper())
}

// LoadFrom loads configuration from v, expanding token references and
// resolving relative paths.
func LoadFrom(v *viper.Viper) (*Config, error) {
	config := &Config{}
	if err := v.Unmarshal(config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if _, _, err := chatmem.ParseModelString(config.Model); err != nil {
		return nil, err
	}

	switch config.Store {
	case StoreJSON, StoreSQLite:
	default:
		return nil, fmt.Errorf("unsupported store %q (expected %s or %s)", config.Store, StoreJSON, StoreSQLite)
	}

	config.OpenAIToken = expandEnvVar(config.OpenAIToken)
	config.AnthropicToken = expandEnvVar(config.AnthropicToken)
	config.GeminiToken = expandEnvVar(config.GeminiToken)

	var err error
	for _, p := range []*string{&config.HistoryFile, &config.ContextFile, &config.SQLiteFile} {
		if *p, err = ResolvePath(*p); err != nil {
			return nil, err
		}
	}

	// Convert prompt directories to absolute paths
	for i, promptDir := range config.PromptDirs {
		absPath, err := ResolvePath(promptDir)
		if err != nil {
			return nil, fmt.Errorf("error resolving prompt directory path '%s': %w", promptDir, err)
		}
		config.PromptDirs[i] = absPath
	}

	return config, nil
}
