package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/spf13/cobra"

	"cdcrouter/internal/config"
	"cdcrouter/internal/constants"
	"cdcrouter/internal/logger"
	"cdcrouter/pkg/logging"
)

var (
	configFile string
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "cdc-router",
		Short: "Routes table change streams to workflow triggers",
		Long:  "cdc-router turns DynamoDB stream batches into Step Functions executions and quarantines batches it cannot process",
		RunE:  lambdaCmd().RunE,
	}

	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "Path to config file (optional, env overrides apply)")

	rootCmd.AddCommand(lambdaCmd())
	rootCmd.AddCommand(serveCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func loadConfig() (*config.Config, logger.Logger, error) {
	earlyLog := logging.NewEarlyLog()

	if configFile == "" {
		configFile = os.Getenv("CONFIG_FILE")
	}

	cfg, err := config.Load(configFile)
	if err != nil {
		earlyLog.Error("Failed to load config: %v", err)
		return nil, nil, err
	}

	log, err := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	if err != nil {
		earlyLog.Error("Failed to init logger: %v", err)
		return nil, nil, err
	}
	if sugared, ok := log.(*logger.SugaredLogger); ok {
		sugared.SetServiceName(cfg.Service.Name)
	}

	return cfg, log, nil
}

func lambdaCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "lambda",
		Short: "Run as the DynamoDB stream Lambda handler",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := loadConfig()
			if err != nil {
				return err
			}
			defer log.Sync()

			ctx := logging.WithServiceName(context.Background(), constants.ServiceName)

			app := NewApp(cfg, log)
			if err := app.Initialize(ctx); err != nil {
				log.ErrorwCtx(ctx, "Failed to initialize application", "error", err)
				return err
			}

			log.InfowCtx(ctx, "Starting Lambda handler")
			lambda.StartWithOptions(app.lambdaHandler.Handle,
				lambda.WithContext(ctx),
				lambda.WithEnableSIGTERM(func() {
					shutdownCtx, cancel := context.WithTimeout(context.Background(), constants.ShutdownTimeout)
					defer cancel()
					if err := app.Shutdown(shutdownCtx); err != nil {
						log.ErrorwCtx(shutdownCtx, "Shutdown failed", "error", err)
					}
				}),
			)
			return nil
		},
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Consume stream events from Kafka and serve health and metrics",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := loadConfig()
			if err != nil {
				return err
			}
			defer log.Sync()

			if err := config.ValidateServe(cfg); err != nil {
				log.Errorw("Invalid serve configuration", "error", err)
				return fmt.Errorf("configuration validation failed: %w", err)
			}

			ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			log.InfowCtx(ctx, "Starting CDC router")

			app := NewApp(cfg, log)
			if err := app.Initialize(ctx); err != nil {
				log.ErrorwCtx(ctx, "Failed to initialize application", "error", err)
				return err
			}
			if err := app.InitServe(); err != nil {
				log.ErrorwCtx(ctx, "Failed to initialize serve mode", "error", err)
				return err
			}

			log.InfowCtx(ctx, "Service running")
			runErr := app.Run(ctx)

			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), constants.ShutdownTimeout)
			defer shutdownCancel()
			if err := app.Shutdown(shutdownCtx); err != nil {
				log.ErrorwCtx(shutdownCtx, "Shutdown failed", "error", err)
			}

			if runErr != nil && !errors.Is(runErr, context.Canceled) {
				log.ErrorwCtx(ctx, "Service stopped with error", "error", runErr)
				return runErr
			}
			log.InfowCtx(ctx, "Service shutdown complete")
			return nil
		},
	}
}
