package cmd

import (
	"fmt"
	"io"
	"strings"

	"github.com/longkey1/chatmem/internal/chatmem/extract"
	"github.com/spf13/cobra"
)

var applyExtract bool

// contextCmd represents the context command
var contextCmd = &cobra.Command{
	Use:   "context",
	Short: "Inspect the stored context",
	Long: `Inspect the stored context that is sent as the system message on every request.
The context starts as the default instruction and grows when a reply contains
one of: ` + strings.Join(quoted(extract.Triggers), ", ") + `.`,
}

// contextShowCmd prints the stored context
var contextShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the stored context",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := openStore()
		if err != nil {
			return err
		}
		defer st.Close()

		ctx, err := st.LoadContext()
		if err != nil {
			return fmt.Errorf("loading context: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), ctx)
		return nil
	},
}

// contextExtractCmd shows what the extractor would keep from a text
var contextExtractCmd = &cobra.Command{
	Use:   "extract [text]",
	Short: "Show the fragments of a text that would be remembered",
	Long: `Show the fragments of a text that would be appended to the context.
If no text is provided as an argument, it reads from stdin.
With --apply the fragments are appended to the stored context.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		var text string
		if len(args) > 0 {
			text = strings.Join(args, " ")
		} else {
			input, err := io.ReadAll(cmd.InOrStdin())
			if err != nil {
				return fmt.Errorf("reading from stdin: %w", err)
			}
			text = strings.TrimSpace(string(input))
		}

		out := cmd.OutOrStdout()
		fragments := extract.Fragments(text)
		if len(fragments) == 0 {
			fmt.Fprintln(out, "Nothing to remember")
			return nil
		}
		for _, f := range fragments {
			fmt.Fprintln(out, f)
		}

		if !applyExtract {
			return nil
		}

		st, err := openStore()
		if err != nil {
			return err
		}
		defer st.Close()

		current, err := st.LoadContext()
		if err != nil {
			return fmt.Errorf("loading context: %w", err)
		}
		updated, _ := extract.Append(current, text)
		if err := st.SaveContext(updated); err != nil {
			return fmt.Errorf("saving context: %w", err)
		}
		fmt.Fprintf(out, "Appended %d fragment(s) to the stored context\n", len(fragments))
		return nil
	},
}

func quoted(values []string) []string {
	out := make([]string, len(values))
	for i, v := range values {
		out[i] = fmt.Sprintf("%q", v)
	}
	return out
}

func init() {
	rootCmd.AddCommand(contextCmd)
	contextCmd.AddCommand(contextShowCmd)
	contextCmd.AddCommand(contextExtractCmd)

	contextExtractCmd.Flags().BoolVar(&applyExtract, "apply", false, "Append the fragments to the stored context")
}
