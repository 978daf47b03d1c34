// Package main provides the entry point for the idrecon CLI.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// NewRootCmd creates the root command for idrecon.
func NewRootCmd() *cobra.Command {
	ver, _, _ := buildDetails()
	cmd := &cobra.Command{
		Use:   "idrecon",
		Short: "Identity reconnaissance across public data sources",
		Long: `idrecon fans one identifying value (email, phone, name, username, or
image) out to every capable scanner, normalizes and merges the findings
into entities, and scores each entity's confidence.

Queries run under a deadline: scanners that do not finish in time are
abandoned and a partial result is produced from whatever succeeded.`,
		Version:       ver,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Global flags that apply to all commands
	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging")

	// Add subcommands
	cmd.AddCommand(NewScanCmd())
	cmd.AddCommand(NewServeCmd())
	cmd.AddCommand(NewHistoryCmd())
	cmd.AddCommand(NewShowCmd())
	cmd.AddCommand(NewVersionCmd())

	return cmd
}

// Execute runs the root command.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
