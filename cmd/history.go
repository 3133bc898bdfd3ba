package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/longkey1/chatmem/internal/chatmem"
	"github.com/longkey1/chatmem/internal/chatmem/config"
	"github.com/longkey1/chatmem/internal/chatmem/store"
	"github.com/longkey1/chatmem/internal/render"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var (
	historyFormat string
	historyRaw    bool
	historyWidth  int
)

// historyCmd represents the history command
var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Inspect the saved conversation log",
	Long: `Inspect the conversation log that every chat turn is appended to.
The log is shared by the web UI and the chat command.`,
}

// historyShowCmd prints the saved conversation log
var historyShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the saved conversation log",
	Long: `Print the saved conversation log.

Formats:
  text  Markdown rendered for the terminal (use --raw for plain markdown)
  json  The stored JSON document
  yaml  The same messages as YAML`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := openStore()
		if err != nil {
			return err
		}
		defer st.Close()

		history, err := st.LoadHistory()
		if err != nil {
			return fmt.Errorf("loading history: %w", err)
		}
		return writeHistory(cmd.OutOrStdout(), history, historyFormat, historyRaw, historyWidth)
	},
}

// writeHistory prints history in the given format.
func writeHistory(w io.Writer, history []chatmem.Message, format string, raw bool, width int) error {
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetEscapeHTML(false)
		enc.SetIndent("", "    ")
		return enc.Encode(history)
	case "yaml":
		enc := yaml.NewEncoder(w)
		defer enc.Close()
		return enc.Encode(history)
	case "text", "":
		if len(history) == 0 {
			_, err := fmt.Fprintln(w, "No saved messages")
			return err
		}
		md := historyMarkdown(history)
		if raw {
			_, err := io.WriteString(w, md)
			return err
		}
		term, err := render.NewTerminal(width)
		if err != nil {
			return err
		}
		out, err := term.Render(md)
		if err != nil {
			return err
		}
		_, err = io.WriteString(w, out)
		return err
	default:
		return fmt.Errorf("unsupported format: %s (expected text, json or yaml)", format)
	}
}

func historyMarkdown(history []chatmem.Message) string {
	var sb strings.Builder
	for i, msg := range history {
		if i > 0 {
			sb.WriteString("\n---\n\n")
		}
		fmt.Fprintf(&sb, "**%s**\n\n%s\n", strings.ToUpper(string(msg.Role)), msg.Content)
	}
	return sb.String()
}

// openStore opens the configured store for read-only commands.
func openStore() (*store.Store, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	st, err := store.Open(cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("opening store: %w", err)
	}
	return st, nil
}

func init() {
	rootCmd.AddCommand(historyCmd)
	historyCmd.AddCommand(historyShowCmd)

	historyShowCmd.Flags().StringVarP(&historyFormat, "format", "f", "text", "Output format: text, json or yaml")
	historyShowCmd.Flags().BoolVar(&historyRaw, "raw", false, "Print markdown without terminal rendering")
	historyShowCmd.Flags().IntVarP(&historyWidth, "width", "w", 100, "Word wrap width for rendered output")
}
