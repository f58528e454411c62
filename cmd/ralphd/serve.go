package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/ShayCichocki/ralphd/internal/control"
	"github.com/ShayCichocki/ralphd/internal/httpapi"
	"github.com/ShayCichocki/ralphd/internal/logging"
)

var (
	serveHost string
	servePort int
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the ralphd daemon",
	Long: `Start the control-plane daemon.

The daemon opens the database, re-enqueues runs that were queued when it
last stopped, marks runs interrupted mid-flight as failed, starts the
automation scheduler, and serves the HTTP and WebSocket API.

Examples:
  ralphd serve                      # 127.0.0.1:4242
  ralphd serve --port 9000          # override the port
  RALPHD_DB_PATH=/var/lib/ralphd.db ralphd serve`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveHost, "host", "", "Bind host (overrides config)")
	serveCmd.Flags().IntVar(&servePort, "port", 0, "Bind port (overrides config)")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if serveHost != "" {
		cfg.Server.Host = serveHost
	}
	if servePort != 0 {
		cfg.Server.Port = servePort
	}

	logger := logging.New("ralphd")

	plane, err := control.New(cfg, logger)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle signals for graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		logger.Info("received interrupt, shutting down")
		cancel()
	}()

	if err := plane.Start(ctx); err != nil {
		plane.Shutdown()
		return fmt.Errorf("start control plane: %w", err)
	}

	srv := httpapi.New(plane, logger.WithPrefix("http"))
	if err := srv.Start(cfg.Server.Addr()); err != nil {
		plane.Shutdown()
		return err
	}

	<-ctx.Done()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("http shutdown", "error", err)
	}

	// Shutdown cancels in-flight runs and waits for them before closing
	// the store, so the scheduler goroutine is already idle by Wait.
	plane.Shutdown()
	if err := plane.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}

	logger.Info("stopped")
	return nil
}
