package main

import (
	"fmt"
	"runtime/debug"

	"github.com/spf13/cobra"
)

// Set at build time via ldflags; empty values fall back to the module
// build info stamped by the Go toolchain.
var (
	version = ""
	commit  = ""
	date    = ""
)

// buildDetails resolves version, commit, and build date in one pass over
// the embedded build info.
func buildDetails() (ver, rev, built string) {
	ver, rev, built = version, commit, date

	info, ok := debug.ReadBuildInfo()
	if ok {
		if ver == "" {
			ver = info.Main.Version
		}
		for _, s := range info.Settings {
			switch s.Key {
			case "vcs.revision":
				if rev == "" {
					rev = s.Value
				}
			case "vcs.time":
				if built == "" {
					built = s.Value
				}
			}
		}
	}

	if ver == "" {
		ver = "(devel)"
	}
	if rev == "" {
		rev = "unknown"
	}
	if len(rev) > 7 {
		rev = rev[:7]
	}
	if built == "" {
		built = "unknown"
	}
	return ver, rev, built
}

// NewVersionCmd creates the version command.
func NewVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Long:  `Print the version, commit hash, and build date of idrecon.`,
		Run: func(cmd *cobra.Command, _ []string) {
			ver, rev, built := buildDetails()
			fmt.Fprintf(cmd.OutOrStdout(), "idrecon version %s\n", ver)
			fmt.Fprintf(cmd.OutOrStdout(), "  commit: %s\n", rev)
			fmt.Fprintf(cmd.OutOrStdout(), "  built:  %s\n", built)
		},
	}
}
