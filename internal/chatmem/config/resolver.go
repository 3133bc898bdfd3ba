package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// expandEnvVar expands environment variable references in the given value.
// Supports both $VAR and ${VAR} syntax. An unset variable expands to "".
func expandEnvVar(value string) string {
	if !strings.HasPrefix(value, "$") {
		return value
	}

	var envVarName string
	if strings.HasPrefix(value, "${") && strings.HasSuffix(value, "}") {
		envVarName = value[2 : len(value)-1]
	} else {
		envVarName = strings.TrimPrefix(value, "$")
	}

	return os.Getenv(envVarName)
}

// GetBaseURL returns the base URL for the specified provider.
// An empty value means "use the SDK default".
func (c *Config) GetBaseURL(provider string) (string, error) {
	switch provider {
	case "openai":
		if c.OpenAIBaseURL == "" {
			return "", fmt.Errorf("openai base URL is not configured. Set it in config file (openai_base_url) or environment variable (CHATMEM_OPENAI_BASE_URL)")
		}
		return c.OpenAIBaseURL, nil
	case "anthropic":
		return c.AnthropicBaseURL, nil
	case "gemini":
		return c.GeminiBaseURL, nil
	default:
		return "", fmt.Errorf("unsupported provider: %s", provider)
	}
}

// GetToken returns the configured token for the specified provider.
// An empty token is not an error: the browser session may supply its own key.
func (c *Config) GetToken(provider string) (string, error) {
	switch provider {
	case "openai":
		return c.OpenAIToken, nil
	case "anthropic":
		return c.AnthropicToken, nil
	case "gemini":
		return c.GeminiToken, nil
	default:
		return "", fmt.Errorf("unsupported provider: %s", provider)
	}
}

// ResolvePath converts a relative path to an absolute one based on the
// current working directory.
func ResolvePath(path string) (string, error) {
	if path == "" || filepath.IsAbs(path) {
		return path, nil
	}

	cwd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("error getting current working directory: %w", err)
	}
	return filepath.Join(cwd, path), nil
}
