package cmd

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/longkey1/chatmem/internal/chatmem/config"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// configCmd represents the config command
var configCmd = &cobra.Command{
	Use:   "config [field]",
	Short: "Display current configuration",
	Long: `Display the current configuration values.
This command shows all configuration values loaded from the config file and environment variables.

If a field name is specified, only that field's value is displayed.
Tokens are always masked.

Examples:
  chatmem config                 # Show all configuration
  chatmem config model           # Show only model
  chatmem config store           # Show only the store backend
  chatmem config history_file    # Show only the history file path
  chatmem config openai_token    # Show only OpenAI token (masked)`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.LoadConfig()
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}

		fields := configFields(cfg)
		out := cmd.OutOrStdout()

		if len(args) > 0 {
			name := strings.ToLower(args[0])
			for _, f := range fields {
				if f.name == name {
					fmt.Fprintln(out, f.value)
					return nil
				}
			}
			names := make([]string, 0, len(fields))
			for _, f := range fields {
				names = append(names, f.name)
			}
			return fmt.Errorf("unknown field: %s (available: %s)", args[0], strings.Join(names, ", "))
		}

		for _, f := range fields {
			fmt.Fprintf(out, "%s: %s\n", f.name, f.value)
		}
		return nil
	},
}

type configField struct {
	name  string
	value string
}

func configFields(cfg *config.Config) []configField {
	return []configField{
		{"configfile", viper.ConfigFileUsed()},
		{"model", cfg.Model},
		{"openai_base_url", cfg.OpenAIBaseURL},
		{"openai_token", maskToken(cfg.OpenAIToken)},
		{"anthropic_base_url", cfg.AnthropicBaseURL},
		{"anthropic_token", maskToken(cfg.AnthropicToken)},
		{"anthropic_max_tokens", strconv.Itoa(cfg.AnthropicMaxTokens)},
		{"gemini_base_url", cfg.GeminiBaseURL},
		{"gemini_token", maskToken(cfg.GeminiToken)},
		{"store", cfg.Store},
		{"history_file", cfg.HistoryFile},
		{"context_file", cfg.ContextFile},
		{"sqlite_file", cfg.SQLiteFile},
		{"default_context", cfg.DefaultContext},
		{"listen_addr", cfg.ListenAddr},
		{"prompt_dirs", strings.Join(cfg.PromptDirs, ",")},
	}
}

// maskToken returns a masked version of the token for security
func maskToken(token string) string {
	if token == "" {
		return ""
	}
	if len(token) <= 8 {
		return "********"
	}
	return token[:4] + "..." + token[len(token)-4:]
}

func init() {
	rootCmd.AddCommand(configCmd)
}
