package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/mcrud/mcrud/internal/app"
	"github.com/mcrud/mcrud/internal/config"
	"github.com/mcrud/mcrud/internal/logging"
	"github.com/mcrud/mcrud/internal/web/server"
)

// NewServeCommand creates the serve command
func NewServeCommand(opts *rootOptions) *cobra.Command {
	var port int

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server",
		Long: `Connect the configured store, load the schema file and serve the
collection routes until SIGINT or SIGTERM.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.loadConfig()
			if err != nil {
				return err
			}
			if port != 0 {
				cfg.Server.Port = port
			}

			logger, err := logging.New(cfg.Debug)
			if err != nil {
				return err
			}
			defer logger.Sync() //nolint:errcheck

			return serve(cmd.Context(), cfg, logger)
		},
	}

	cmd.Flags().IntVarP(&port, "port", "p", 0, "Override server.port")

	return cmd
}

func serve(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	a, err := app.Open(ctx, cfg, logger)
	if err != nil {
		return err
	}

	handler, err := a.Router()
	if err != nil {
		a.Close(ctx)
		return err
	}

	srvConfig := server.DefaultConfig(handler)
	srvConfig.Address = cfg.Address()
	srv, err := server.New(srvConfig)
	if err != nil {
		a.Close(ctx)
		return fmt.Errorf("failed to create server: %w", err)
	}

	gs := server.NewGracefulShutdown(srv, &server.ShutdownConfig{
		Timeout: cfg.Server.ShutdownTimeout,
		Logger:  logger,
	})
	gs.RegisterHook(a.Close)

	logger.Info("starting mcrud",
		zap.String("version", Version),
		zap.Strings("collections", a.Schemas().List()),
		zap.String("store", cfg.Store.Driver),
		zap.String("cache", cfg.Cache.Backend),
	)

	return gs.Run(ctx)
}
