package cmd

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"auravox/internal/bootstrap"
)

func NewServeCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Long: `Run the HTTP API, the realtime websocket feed and the upload sweeper.

Examples:
  auravoxd serve
  auravoxd serve --addr :8080
  AURAVOX_TRANSCRIBER=whisper OPENAI_API_KEY=sk-... auravoxd serve`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if addr, _ := cmd.Flags().GetString("addr"); addr != "" {
				cfg.Server.Addr = addr
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			backend, err := bootstrap.BuildBackend(ctx, cfg, logger)
			if err != nil {
				return err
			}
			logger.Info("starting auravoxd", "environment", cfg.Environment, "database", cfg.Database.Driver, "transcriber", cfg.Transcriber.Backend)
			return backend.Run(ctx)
		},
	}

	cmd.Flags().String("addr", "", "Listen address (overrides AURAVOX_HTTP_ADDR)")

	return cmd
}
