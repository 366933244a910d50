package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/srujan00123/shiprocket-fulfillment/internal/server"
	"go.uber.org/zap"
)

var version = "0.0.1"

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(),
		syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:     "fulfillment",
	Short:   "Shiprocket fulfillment bridge - carrier shipping JSON API service",
	Version: version,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API server",
	RunE:  runServe,
}

var refreshTokenCmd = &cobra.Command{
	Use:   "refresh-token",
	Short: "Refresh carrier credentials and exit",
	RunE:  runRefreshToken,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(refreshTokenCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	// Load configuration
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	// Initialize telemetry
	logger, err := initLogger(cfg)
	if err != nil {
		return err
	}
	defer logger.Sync()

	tracerShutdown, err := initTracer(ctx, cfg)
	if err != nil {
		logger.Warn("Failed to initialize tracer", zap.Error(err))
	} else {
		defer tracerShutdown(ctx)
	}

	// Initialize shipper registry with all carriers
	registry := initShipperRegistry(cfg, logger)
	defer registry.Dispose()

	logger.Info("Starting Shiprocket fulfillment bridge",
		zap.Int("port", cfg.Port),
		zap.String("version", cfg.Version),
	)

	// Start HTTP server
	srv := server.New(server.Config{Port: cfg.Port}, registry, logger)
	if err := srv.Run(ctx); err != nil {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

// runRefreshToken re-authenticates every registered carrier once. Meant
// to be invoked from a scheduler ahead of credential expiry.
func runRefreshToken(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	logger, err := initLogger(cfg)
	if err != nil {
		return err
	}
	defer logger.Sync()

	registry := initShipperRegistry(cfg, logger)
	defer registry.Dispose()

	for _, carrier := range registry.All() {
		if err := carrier.RefreshToken(ctx); err != nil {
			return fmt.Errorf("refreshing %s token: %w", carrier.Name(), err)
		}
		logger.Info("Token refreshed", zap.String("carrier", carrier.Name()))
	}
	return nil
}
