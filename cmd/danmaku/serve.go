package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jpalmerr/danmaku"
	"github.com/jpalmerr/danmaku/config"
	"github.com/spf13/cobra"
)

const (
	shutdownTimeout = 10 * time.Second
)

// serveCmd starts the overlay server.
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the overlay server",
	Long: `Start the danmaku overlay server.

The server will:
  - Load configuration from the specified YAML file, if any
  - Open the message store and start scheduling messages into lanes
  - Replay stored and remote messages every feed interval
  - Serve the overlay page and API on the configured port

The server runs until interrupted (Ctrl+C) or receives SIGTERM.

Example:
  danmaku serve
  danmaku serve -c config.yaml
  danmaku serve --config /etc/danmaku/config.yaml --port 8080`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringP("config", "c", "", "path to config file")
	serveCmd.Flags().IntP("port", "p", 0, "HTTP port (overrides the config file)")
}

// loadServeConfig reads the config file named by --config, or parses an
// empty config for defaults, and applies the --port override.
func loadServeConfig(cmd *cobra.Command) (*config.Config, error) {
	configFile, _ := cmd.Flags().GetString("config")

	var cfg *config.Config
	var err error
	if configFile != "" {
		cfg, err = config.Load(configFile)
	} else {
		cfg, err = config.Parse(nil)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	if port, _ := cmd.Flags().GetInt("port"); port != 0 {
		cfg.Port = port
	}
	return cfg, nil
}

func runServe(cmd *cobra.Command, args []string) error {
	logger, err := newLogger(cmd, os.Stderr)
	if err != nil {
		return err
	}

	cfg, err := loadServeConfig(cmd)
	if err != nil {
		return err
	}

	logger.Info("config loaded",
		"sources", len(cfg.Feed.Sources),
		"storage", cfg.Storage.Driver,
	)
	logger.Info("starting server",
		"port", cfg.Port,
		"feed_interval", cfg.Feed.Interval.Duration().String(),
	)

	opts, err := config.BuildOptions(cfg)
	if err != nil {
		return fmt.Errorf("failed to build options: %w", err)
	}
	opts = append(opts, danmaku.WithLogger(logger))

	board, err := danmaku.New(opts...)
	if err != nil {
		return fmt.Errorf("failed to create board: %w", err)
	}

	// set up context with signal handling - cancel on SIGINT/SIGTERM
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// start server - blocks until context cancelled
	errChan := make(chan error, 1)
	go func() {
		errChan <- board.Start(ctx)
	}()

	// wait for server to finish
	select {
	case err := <-errChan:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
		logger.Info("shutdown complete")
		return nil

	case <-ctx.Done():
		// signal received, wait for graceful shutdown with timeout
		select {
		case err := <-errChan:
			if err != nil {
				return fmt.Errorf("server error: %w", err)
			}
			logger.Info("shutdown complete")
			return nil
		case <-time.After(shutdownTimeout):
			logger.Warn("shutdown timed out",
				"timeout", shutdownTimeout.String(),
				"action", "forcing exit",
			)
			return nil
		}
	}
}
