/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

var (
	model       string
	prompt      string
	loadHistory bool
)

// chatCmd represents the chat command
var chatCmd = &cobra.Command{
	Use:   "chat [message]",
	Short: "Send one message from the terminal",
	Long: `Send a message to the LLM and print the response as it streams in.
The turn goes through the same memory as the web UI: the stored context is
sent as the system message, the turn is appended to the conversation log and
the context grows when the reply contains something worth remembering.

If no message is provided as an argument, it reads from stdin.
With --load-history the saved conversation log is sent along with the message.

The prompt file should be in TOML format with the following structure:
system = "Initial context used when no context has been stored yet"
model = "optional-model-name"  # Optional: overrides the default model for this prompt`,
	RunE: func(cmd *cobra.Command, args []string) error {
		// Get message from arguments or stdin
		var message string
		if len(args) > 0 {
			message = strings.Join(args, " ")
		} else {
			input, err := io.ReadAll(cmd.InOrStdin())
			if err != nil {
				return fmt.Errorf("reading from stdin: %w", err)
			}
			message = strings.TrimSpace(string(input))
		}

		setup, err := newChatSetup(cmd, model, prompt)
		if err != nil {
			return err
		}
		defer setup.Close()

		sess, err := setup.manager.Create()
		if err != nil {
			return fmt.Errorf("creating session: %w", err)
		}
		if loadHistory {
			if err := sess.LoadPrevious(); err != nil {
				return fmt.Errorf("loading history: %w", err)
			}
		}

		out := cmd.OutOrStdout()
		_, err = sess.Submit(cmd.Context(), message, func(fragment string) error {
			_, err := io.WriteString(out, fragment)
			return err
		})
		fmt.Fprintln(out)
		if err != nil {
			return err
		}

		if verbose {
			fmt.Fprintf(os.Stderr, "\nContext:\n%s\n", sess.Snapshot().Context)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(chatCmd)

	chatCmd.Flags().StringVarP(&model, "model", "m", "", "Model to use (format: provider:model, e.g., openai:gpt-4o-mini)")
	chatCmd.Flags().StringVarP(&prompt, "prompt", "p", "", "Name of the persona template (without .toml extension)")
	chatCmd.Flags().BoolVarP(&loadHistory, "load-history", "l", false, "Send the saved conversation log along with the message")
}
