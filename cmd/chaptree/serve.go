package main

import (
	"github.com/aretw0/chaptree/internal/cli"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	Long: `Serves the document API over HTTP: JSON endpoints for documents, commands,
layout and single chapters, Server-Sent Events and WebSocket streams of new
revisions, the OpenAPI contract at /openapi.yaml and Prometheus metrics at /metrics.`,
	Run: func(cmd *cobra.Command, args []string) {
		addr, _ := cmd.Flags().GetString("addr")

		app := setupApp()
		defer app.Close()

		ctx := cli.NewSignalContext(cmd.Context())
		defer ctx.Cancel()

		exitOnError("serving", app.Serve(ctx, addr))
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringP("addr", "a", "", "Address to listen on (default from config, :8080)")
}
