package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/idrecon/idrecon/internal/database"
	"github.com/idrecon/idrecon/internal/log"
	"github.com/idrecon/idrecon/internal/model"
	"github.com/idrecon/idrecon/internal/orchestrator"
)

// NewScanCmd creates the scan command.
func NewScanCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scan [value]",
		Short: "Run one identity query and print the result",
		Long: `Scan fans one identifying value out to every capable scanner, merges
the findings into entities, and prints the scored result.

The query type is inferred from the value when --type is not given:
values containing "@" are emails, digit strings are phone numbers,
image paths are images, values with spaces are names, and anything
else is treated as a username.

Examples:
  # Look up an email address
  idrecon scan alice@example.com

  # Explicit type and a shorter deadline
  idrecon scan --type username --deadline 30s alice

  # Restrict execution to specific scanners and emit JSON
  idrecon scan --scanners gravatar,mxprobe --json alice@example.com

  # Write a Markdown report to a file
  idrecon scan --markdown -o report.md "Alice Smith"

Configuration file (.idrecon) example:
  query_deadline: 90s
  country_prefix: "+44"
  scanners:
    gravatar:
      reliability: 0.8
    breachdir:
      enabled: false`,
		Args: cobra.ExactArgs(1),
		RunE: runScanCmd,
	}

	// Query flags
	cmd.Flags().StringP("type", "t", "",
		"Query type: email, phone, name, username, image (default: inferred)")
	cmd.Flags().DurationP("deadline", "d", 0,
		"Overall query deadline (default: from config)")
	cmd.Flags().Bool("deep-scan", false,
		"Ask capable scanners for a slower, more thorough lookup")
	cmd.Flags().StringSlice("scanners", nil,
		"Restrict execution to the named scanners")

	// Configuration file
	cmd.Flags().StringP("config", "c", "",
		"Configuration file path (default: .idrecon in current or home directory)")

	// Output flags
	cmd.Flags().BoolP("json", "j", false,
		"Output JSON result (mutually exclusive with --markdown)")
	cmd.Flags().BoolP("markdown", "m", false,
		"Output Markdown result (mutually exclusive with --json)")
	cmd.Flags().StringP("output", "o", "",
		"Write the result to the specified file path (creates directories if needed)")

	// Persistence flags
	cmd.Flags().Bool("no-save", false,
		"Do not persist the result to the local database")

	return cmd
}

// runScanCmd executes the scan command.
func runScanCmd(cmd *cobra.Command, args []string) error {
	cfg, err := buildConfig(cmd)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	// Set up structured logging with PII masking
	logger := log.NewPIILogger(os.Stderr, cfg.Verbose)
	slog.SetDefault(logger)

	value := args[0]

	typeFlag, err := cmd.Flags().GetString("type")
	if err != nil {
		return err
	}
	qt := inferQueryType(value)
	if typeFlag != "" {
		if qt, err = model.ParseQueryType(typeFlag); err != nil {
			return err
		}
	}

	opts := model.Options{}
	if opts.Deadline, err = cmd.Flags().GetDuration("deadline"); err != nil {
		return err
	}
	if opts.DeepScan, err = cmd.Flags().GetBool("deep-scan"); err != nil {
		return err
	}
	if opts.Allowlist, err = cmd.Flags().GetStringSlice("scanners"); err != nil {
		return err
	}

	jsonOut, err := cmd.Flags().GetBool("json")
	if err != nil {
		return err
	}
	mdOut, err := cmd.Flags().GetBool("markdown")
	if err != nil {
		return err
	}
	if jsonOut && mdOut {
		return errors.New("--json and --markdown are mutually exclusive")
	}
	outPath, err := cmd.Flags().GetString("output")
	if err != nil {
		return err
	}
	noSave, err := cmd.Flags().GetBool("no-save")
	if err != nil {
		return err
	}

	// Set up context with signal handling for graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Open the result store unless persistence is disabled
	var store orchestrator.Store
	if !noSave {
		db, err := database.Open(cfg.DBDir, database.DefaultOptions())
		if err != nil {
			return fmt.Errorf("failed to open database: %w", err)
		}
		defer db.Close()
		store = db
		logger.Info("database opened", "dir", cfg.DBDir)
	}

	orch, err := buildOrchestrator(cfg, store, logger)
	if err != nil {
		return err
	}

	id, err := orch.Submit(ctx, qt, value, opts)
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Querying %s (%s)...\n", value, qt)
	startTime := time.Now()

	res, err := orch.Wait(ctx, id)
	if err != nil {
		// Interrupted: cancel the query and show whatever settled.
		if cancelErr := orch.Cancel(id); cancelErr != nil && !errors.Is(cancelErr, orchestrator.ErrQueryTerminal) {
			return err
		}
		if res, err = orch.GetResult(id); err != nil {
			return err
		}
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Query completed in %s\n",
		time.Since(startTime).Round(time.Millisecond))

	return outputResult(cmd, jsonOut, mdOut, outPath, res)
}
