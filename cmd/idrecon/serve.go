package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/idrecon/idrecon/internal/database"
	"github.com/idrecon/idrecon/internal/log"
	"github.com/idrecon/idrecon/internal/server"
)

// NewServeCmd creates the serve command.
func NewServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP query API",
		Long: `Serve runs the HTTP API for asynchronous query processing.

Clients submit queries with POST /api/v1/queries, poll results with
GET /api/v1/queries/{id}, and cancel with POST /api/v1/queries/{id}/cancel.
Results are persisted to the local database as queries progress.

The server binds to loopback by default; put a reverse proxy in front
of it if remote access is needed.

Examples:
  # Serve on the default address (127.0.0.1:8137)
  idrecon serve

  # Serve on a custom address
  idrecon serve --listen 127.0.0.1:9000`,
		Args: cobra.NoArgs,
		RunE: runServeCmd,
	}

	cmd.Flags().StringP("listen", "l", "",
		"Listen address (default: from config, 127.0.0.1:8137)")
	cmd.Flags().StringP("config", "c", "",
		"Configuration file path (default: .idrecon in current or home directory)")

	return cmd
}

// runServeCmd executes the serve command.
func runServeCmd(cmd *cobra.Command, _ []string) error {
	cfg, err := buildConfig(cmd)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	listen, err := cmd.Flags().GetString("listen")
	if err != nil {
		return err
	}
	if listen != "" {
		cfg.ListenAddr = listen
	}

	// Set up structured logging with PII masking
	logger := log.NewPIILogger(os.Stderr, cfg.Verbose)
	slog.SetDefault(logger)

	// Set up context with signal handling for graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.Open(cfg.DBDir, database.DefaultOptions())
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	orch, err := buildOrchestrator(cfg, db, logger)
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Serving on http://%s\n", cfg.ListenAddr)
	return server.New(orch, logger).ListenAndServe(ctx, cfg.ListenAddr)
}
