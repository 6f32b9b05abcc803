package handlers

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"carbonlens/internal/config"
	"carbonlens/internal/logger"
	"carbonlens/internal/pipeline"
	"carbonlens/internal/server"

	"github.com/spf13/cobra"
)

const shutdownTimeout = 15 * time.Second

// NewServeCmd creates the serve command for starting the HTTP API
func NewServeCmd() *cobra.Command {
	var (
		port int
		host string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API",
		Long: `Start the CarbonLens HTTP API.

The server provides:
  • Score adjustment for a manufacturer
  • Base score lookup from the configured score table
  • Cache invalidation and health endpoints

Examples:
  # Start server on the configured port
  carbonlens serve

  # Start on custom port
  carbonlens serve --port 3000`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			return runServe(ctx, config.Get(), port, host)
		},
	}

	cmd.Flags().IntVar(&port, "port", 0, "HTTP server port (default from config: 8080)")
	cmd.Flags().StringVar(&host, "host", "", "HTTP server host (default from config: localhost)")

	return cmd
}

func runServe(ctx context.Context, cfg *config.Config, port int, host string) error {
	log := logger.Get()

	serverCfg := cfg.Server
	if port != 0 {
		serverCfg.Port = port
	}
	if host != "" {
		serverCfg.Host = host
	}

	p, err := pipeline.NewBuilder(cfg).Build(ctx)
	if err != nil {
		return fmt.Errorf("failed to build pipeline: %w", err)
	}
	defer func() {
		if err := p.Close(); err != nil {
			log.Error("Failed to close evidence cache", "error", err)
		}
	}()

	deps := server.Deps{
		Runner:      p,
		DefaultYear: cfg.Scores.DefaultYear,
		ReportPath:  cfg.Document.ReportPath,
	}
	if caches := p.Caches(); caches != nil {
		deps.Cache = caches
	}
	if table, err := loadScoreTable(cfg.Scores.Path); err != nil {
		// Non-fatal: callers can still send explicit base scores
		log.Warn("Score table not loaded", "path", cfg.Scores.Path, "error", err)
	} else {
		log.Info("Score table loaded", "path", cfg.Scores.Path, "records", table.Len())
		deps.Scores = table
	}

	srv := server.New(deps, serverCfg)

	serverErrors := make(chan error, 1)
	go func() {
		log.Info(fmt.Sprintf("Server listening on http://%s:%d", serverCfg.Host, serverCfg.Port))
		log.Info("Press Ctrl+C to stop")
		serverErrors <- srv.Start()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(shutdown)

	select {
	case err := <-serverErrors:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
		return nil

	case sig := <-shutdown:
		log.Info("Server shutdown initiated", "signal", sig.String())

	case <-ctx.Done():
		log.Info("Server shutdown initiated", "reason", ctx.Err())
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server shutdown failed, forcing close", "error", err)
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	log.Info("Server stopped successfully")
	return nil
}
