package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/spf13/cobra"

	"github.com/idrecon/idrecon/internal/config"
	"github.com/idrecon/idrecon/internal/engine"
	"github.com/idrecon/idrecon/internal/model"
	"github.com/idrecon/idrecon/internal/orchestrator"
	"github.com/idrecon/idrecon/internal/registry"
	"github.com/idrecon/idrecon/internal/report"
	"github.com/idrecon/idrecon/internal/scanner"
)

// buildConfig creates a Config from defaults, the config file, and flags
// shared by every command.
func buildConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.NewConfig()

	path, err := cmd.Flags().GetString("config")
	if err != nil {
		return nil, err
	}

	// If user explicitly specified a config file path, error if not found.
	// If no path specified, silently use defaults if no file found.
	explicit := path != ""
	found := config.FindConfigFile(path)

	if found != "" {
		if err := config.LoadConfigFile(found, cfg); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", found, err)
		}
	} else if explicit {
		return nil, fmt.Errorf("configuration file not found: %s", path)
	}

	cfg.Verbose = getVerboseFlag(cmd)

	// Persist results under the XDG data directory unless the config file
	// chose another location.
	if cfg.DBDir == "" {
		cfg.DBDir = config.XDGDataDir()
	}

	return cfg, nil
}

// getVerboseFlag retrieves the verbose flag from the command or its parent.
func getVerboseFlag(cmd *cobra.Command) bool {
	verbose, err := cmd.Flags().GetBool("verbose")
	if err != nil {
		verbose, err = cmd.Root().PersistentFlags().GetBool("verbose")
		if err != nil {
			return false
		}
	}
	return verbose
}

// buildOrchestrator wires the scanner catalog, registry, engine, and store
// into an orchestrator. A nil store disables persistence.
func buildOrchestrator(cfg *config.Config, store orchestrator.Store, logger *slog.Logger) (*orchestrator.Orchestrator, error) {
	adapters, descriptors, err := scanner.Default().Build(cfg.Scanners)
	if err != nil {
		return nil, fmt.Errorf("failed to build scanners: %w", err)
	}

	reg := registry.New(cfg, logger)
	for _, desc := range descriptors {
		if err := reg.Register(desc); err != nil {
			return nil, fmt.Errorf("failed to register scanner %s: %w", desc.Name, err)
		}
	}

	sink := engine.NewBufferedSink(cfg.EventBuffer, func(ev engine.Event) {
		logger.Debug("task transition",
			"query_id", ev.QueryID,
			"scanner", ev.Scanner,
			"status", ev.Status,
			"attempt", ev.Attempt)
	})

	eng := engine.New(cfg, reg, adapters, sink, logger)
	return orchestrator.New(cfg, reg, eng, store, logger), nil
}

// phonePattern matches values that look like a phone number: an optional
// leading plus followed by digits with common separators.
var phonePattern = regexp.MustCompile(`^\+?[0-9][0-9 ().-]{5,}$`)

// imageExtensions are file extensions treated as image references.
var imageExtensions = map[string]bool{
	".jpg": true, ".jpeg": true, ".png": true, ".gif": true,
	".tif": true, ".tiff": true, ".webp": true, ".heic": true,
}

// inferQueryType guesses the query type from the value's shape.
// Used when --type is not given.
func inferQueryType(value string) model.QueryType {
	v := strings.TrimSpace(value)
	switch {
	case strings.Contains(v, "@") && !strings.HasPrefix(v, "@"):
		return model.QueryTypeEmail
	case phonePattern.MatchString(v):
		return model.QueryTypePhone
	case imageExtensions[strings.ToLower(filepath.Ext(v))]:
		return model.QueryTypeImage
	case strings.Contains(v, " "):
		return model.QueryTypeName
	default:
		return model.QueryTypeUsername
	}
}

// outputResult renders the result in the requested format, to stdout or to
// the file given by path.
func outputResult(cmd *cobra.Command, jsonOut, mdOut bool, path string, res *model.Result) error {
	var output io.Writer = cmd.OutOrStdout()

	if path != "" {
		// Create directories if they don't exist
		dir := filepath.Dir(path)
		if dir != "" && dir != "." {
			if err := os.MkdirAll(dir, 0750); err != nil {
				return fmt.Errorf("failed to create output directory: %w", err)
			}
		}

		// Results contain personal data; keep the file owner-readable only.
		f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600) //nolint:gosec // User-provided output path is intentional
		if err != nil {
			return fmt.Errorf("failed to create output file: %w", err)
		}
		defer f.Close()
		output = f
	}

	switch {
	case jsonOut:
		ver, _, _ := buildDetails()
		_, err := report.NewFullJSONWriter(output, ver, report.WithPrettyPrint()).Write(res)
		return err
	case mdOut:
		_, err := report.NewMarkdownWriter(output).Write(res)
		return err
	default:
		_, err := report.NewSimpleWriter(output).Write(res)
		return err
	}
}
