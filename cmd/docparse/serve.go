package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"docparser/internal/app"
	"docparser/internal/config"
	"docparser/internal/logging"
)

func serveCmd(envFile *string) *cobra.Command {
	var port string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the upload page and JSON API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(*envFile)
			if err != nil {
				return err
			}
			if port != "" {
				cfg.Server.Port = port
			}
			logging.Setup(cfg.Log)

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return app.Serve(ctx, cfg)
		},
	}
	cmd.Flags().StringVar(&port, "addr", "", "listen address, overrides DOCPARSER_SERVER_PORT (e.g. :8501)")
	return cmd
}
