package main

import (
	"errors"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/idrecon/idrecon/internal/database"
)

// NewHistoryCmd creates the history command.
func NewHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List stored queries",
		Long: `History lists every query stored in the local database, newest first.

Use "idrecon show <query-id>" to print a stored result.`,
		Args: cobra.NoArgs,
		RunE: runHistoryCmd,
	}

	cmd.Flags().StringP("config", "c", "",
		"Configuration file path (default: .idrecon in current or home directory)")

	return cmd
}

// runHistoryCmd executes the history command.
func runHistoryCmd(cmd *cobra.Command, _ []string) error {
	cfg, err := buildConfig(cmd)
	if err != nil {
		return err
	}

	db, err := openExistingStore(cfg.DBDir)
	if err != nil {
		return err
	}
	defer db.Close()

	queries, err := db.ListQueries(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to list queries: %w", err)
	}

	if len(queries) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No stored queries.")
		return nil
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tTYPE\tVALUE\tSTATUS\tCREATED")
	for _, q := range queries {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
			q.ID, q.Type, q.Value, q.Status, q.CreatedAt.Format("2006-01-02 15:04:05"))
	}
	return w.Flush()
}

// NewShowCmd creates the show command.
func NewShowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show [query-id]",
		Short: "Print a stored query result",
		Long: `Show prints a result previously stored by scan or serve.

Examples:
  # Print a stored result
  idrecon show 2f1c7a6e-9b1d-4e43-8f2a-1c0d9e8b7a65

  # Export it as JSON
  idrecon show --json -o result.json 2f1c7a6e-9b1d-4e43-8f2a-1c0d9e8b7a65`,
		Args: cobra.ExactArgs(1),
		RunE: runShowCmd,
	}

	cmd.Flags().StringP("config", "c", "",
		"Configuration file path (default: .idrecon in current or home directory)")
	cmd.Flags().BoolP("json", "j", false,
		"Output JSON result (mutually exclusive with --markdown)")
	cmd.Flags().BoolP("markdown", "m", false,
		"Output Markdown result (mutually exclusive with --json)")
	cmd.Flags().StringP("output", "o", "",
		"Write the result to the specified file path (creates directories if needed)")

	return cmd
}

// runShowCmd executes the show command.
func runShowCmd(cmd *cobra.Command, args []string) error {
	cfg, err := buildConfig(cmd)
	if err != nil {
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

	db, err := openExistingStore(cfg.DBDir)
	if err != nil {
		return err
	}
	defer db.Close()

	res, err := db.LoadResult(cmd.Context(), args[0])
	if err != nil {
		return fmt.Errorf("failed to load result: %w", err)
	}
	if res == nil {
		return fmt.Errorf("no stored result for query %s", args[0])
	}

	return outputResult(cmd, jsonOut, mdOut, outPath, res)
}

// openExistingStore opens the result store without creating it, so read-only
// commands don't leave an empty database behind.
func openExistingStore(dbDir string) (*database.Store, error) {
	opts := database.DefaultOptions()
	opts.CreateIfNotExists = false

	db, err := database.Open(dbDir, opts)
	if err != nil {
		return nil, fmt.Errorf("no stored results yet (run a scan first): %w", err)
	}
	return db, nil
}
