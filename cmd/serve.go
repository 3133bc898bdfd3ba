package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/longkey1/chatmem/internal/render"
	"github.com/longkey1/chatmem/internal/web"
	"github.com/spf13/cobra"
)

var (
	serveAddr   string
	serveModel  string
	servePrompt string
)

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the chat web UI",
	Long: `Run the browser chat UI.

Open the printed address in a browser. If no token is configured for the
selected provider, the page asks for an API key; the key is kept for that
browser session only and never written to disk.

"Load Previous Chats" shows the saved conversation log, "Reset Chat" clears
the visible conversation without touching the saved log or context.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		setup, err := newChatSetup(cmd, serveModel, servePrompt)
		if err != nil {
			return err
		}
		defer setup.Close()

		addr := setup.cfg.ListenAddr
		if cmd.Flags().Changed("addr") {
			addr = serveAddr
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		fmt.Fprintf(os.Stderr, "Chatbot with Memory: http://%s/\n", addr)
		srv := web.NewServer(setup.manager, render.NewHTML(), logger)
		if err := srv.Run(ctx, addr); err != nil {
			return fmt.Errorf("running server: %w", err)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVarP(&serveAddr, "addr", "a", "", "Address to listen on (default from listen_addr)")
	serveCmd.Flags().StringVarP(&serveModel, "model", "m", "", "Model to use (format: provider:model, e.g., openai:gpt-4o-mini)")
	serveCmd.Flags().StringVarP(&servePrompt, "prompt", "p", "", "Name of the persona template (without .toml extension)")
}
