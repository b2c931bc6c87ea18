package cmd

import (
	"github.com/iksnae/creator-chat/internal"
	"github.com/iksnae/creator-chat/internal/api"
	"github.com/spf13/cobra"
)

var listenAddr string

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the conversation store over HTTP",
	Long: `Run a local HTTP server exposing the chat state and operations as JSON,
for editor plugins and dashboards. Prometheus metrics are served on /metrics.

Endpoints:
  GET    /v1/chat/state           Current view state
  POST   /v1/chat/open            {"contentId","title","initialPrompt"}
  POST   /v1/chat/close
  POST   /v1/chat/messages        {"text"}
  DELETE /v1/chat/messages        Clear the active thread
  GET    /v1/chat/conversations   All threads, newest first
  DELETE /v1/chat/conversations   Clear every thread`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		addr := cfg.ListenAddr
		if cmd.Flags().Changed("addr") {
			addr = listenAddr
		}

		store, closeStore, err := openStore(cmd.Context())
		if err != nil {
			return err
		}
		defer closeStore()

		log := internal.Logger().With().Str("component", "api").Logger()
		internal.PrintInfo("Listening on http://" + addr)
		return api.NewServer(store, log).Run(cmd.Context(), addr)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&listenAddr, "addr", "", "Listen address (env CREATOR_CHAT_LISTEN_ADDR)")
}
