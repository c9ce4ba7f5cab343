package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/jpalmerr/pushwatch"
	"github.com/jpalmerr/pushwatch/config"
)

const (
	shutdownTimeout = 10 * time.Second
)

// newLogger creates a JSON logger for CLI use.
func newLogger(verbose bool) *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
}

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Watch a push and serve its mirror",
	Long: `Watch a push page and serve a live local mirror of it.

The watcher will:
  - Load configuration from the specified YAML file
  - Load the push once, failing if the tracking server is unreachable
  - Poll the push every poll_interval until it is live
  - Serve the mirror on the configured port

Polling is skipped entirely when noreload is set, either in the config,
with --noreload, or as a query parameter on push_url.

Runs until interrupted (Ctrl+C) or SIGTERM.

Example:
  pushwatch watch -c pushwatch.yaml
  pushwatch watch -c pushwatch.yaml --noreload --verbose`,
	RunE: runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)

	watchCmd.Flags().StringP("config", "c", "", "path to config file (required)")
	watchCmd.Flags().Bool("noreload", false, "load the push once without polling")
	watchCmd.Flags().BoolP("verbose", "v", false, "log every poll attempt")
	_ = watchCmd.MarkFlagRequired("config")
}

func runWatch(cmd *cobra.Command, args []string) error {
	verbose, _ := cmd.Flags().GetBool("verbose")
	logger := newLogger(verbose)

	if err := loadEnv(cmd); err != nil {
		return err
	}

	configFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(configFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if noreload, _ := cmd.Flags().GetBool("noreload"); noreload {
		cfg.NoReload = true
	}

	logger.Info("config loaded",
		"push_url", cfg.PushURL,
		"port", cfg.Port,
		"poll_interval", cfg.PollInterval.Duration().String(),
	)

	w, err := config.BuildWatcher(cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	return runUntilDone(ctx, w, logger)
}

// runUntilDone runs the watcher and bounds shutdown once ctx is cancelled.
func runUntilDone(ctx context.Context, w *pushwatch.Watcher, logger *slog.Logger) error {
	errChan := make(chan error, 1)
	go func() {
		errChan <- w.Start(ctx)
	}()

	select {
	case err := <-errChan:
		if err != nil {
			return fmt.Errorf("watch error: %w", err)
		}
		logger.Info("shutdown complete")
		return nil

	case <-ctx.Done():
		select {
		case err := <-errChan:
			if err != nil {
				return fmt.Errorf("watch error: %w", err)
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
