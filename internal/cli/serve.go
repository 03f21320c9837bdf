package cli

import (
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/utafrali/gomarket/internal/app"
	"github.com/utafrali/gomarket/pkg/logger"
)

// NewServeCommand creates the serve command, which runs the HTTP server.
func NewServeCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the cart HTTP server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.loadConfig(cmd)
			if err != nil {
				return err
			}

			log := logger.NewWithWriter("gomarket", cfg.LogLevel, cmd.OutOrStdout())
			log.Info("starting gomarket",
				slog.String("environment", cfg.Environment),
				slog.Int("http_port", cfg.HTTPPort),
				slog.String("storage_driver", cfg.StorageDriver),
			)

			ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()

			application, err := app.NewApp(ctx, cfg, log)
			if err != nil {
				return fmt.Errorf("initialize application: %w", err)
			}

			if err := application.Run(ctx); err != nil {
				return fmt.Errorf("run application: %w", err)
			}

			log.Info("gomarket stopped")
			return nil
		},
	}
}
