package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	_ "ingest/cmd/ingestion-service/docs"
	"ingest/internal/config"
	"ingest/internal/constants"
	"ingest/internal/logger"
	"ingest/internal/version"
	"ingest/pkg/logging"
)

var (
	configFile string
)

// @title           Ingestion Service API
// @version         1.0
// @description     Accepts externally sourced records and publishes each to the message bus topic ingest.raw.<content_type>

// @BasePath  /

// @schemes   http https

func main() {
	rootCmd := &cobra.Command{
		Use:           constants.ServiceName,
		Short:         "Ingestion Service for data pipeline",
		Long:          "Ingestion Service validates incoming records and forwards them to per-content-type message bus topics",
		RunE:          serveCmd().RunE,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "Path to config file (optional, env vars override it)")

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(tailCmd())
	rootCmd.AddCommand(versionCmd())

	if err := rootCmd.Execute(); err != nil {
		logging.NewEarlyLog().Error("%v", err)
		os.Exit(1)
	}
}

// setup loads configuration and builds the logger. Config warnings are logged
// once the logger exists.
func setup() (*config.Config, logger.Logger, error) {
	earlyLog := logging.NewEarlyLog()

	if configFile == "" {
		configFile = os.Getenv("CONFIG_FILE")
	}

	cfg, warnings, err := config.Load(configFile)
	if err != nil {
		earlyLog.Error("Failed to load config: %v", err)
		return nil, nil, err
	}

	log, err := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	if err != nil {
		earlyLog.Error("Failed to init logger: %v", err)
		return nil, nil, err
	}

	for _, w := range warnings {
		log.Warnw("Configuration value replaced by default", "field", w.Field, "reason", w.Message)
	}
	return cfg, log, nil
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the ingestion service",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := setup()
			if err != nil {
				return err
			}
			defer log.Sync()

			ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer cancel()
			ctx = logging.WithServiceName(ctx, constants.ServiceName)

			log.InfowCtx(ctx, "Starting Ingestion Service",
				"version", version.Short(),
				"environment", cfg.Environment,
				"port", cfg.Server.Port,
				"bus", cfg.Broker.Type,
			)

			app := NewApp(cfg, log)
			if err := app.Initialize(ctx); err != nil {
				log.ErrorwCtx(ctx, "Failed to initialize application", "error", err)
				return fmt.Errorf("failed to initialize application: %w", err)
			}

			if err := app.Run(ctx); err != nil {
				log.ErrorwCtx(ctx, "Service stopped with error", "error", err)
				return err
			}
			log.InfowCtx(ctx, "Service shutdown complete")
			return nil
		},
	}
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), version.String())
		},
	}
}
