// Package commands holds the glengine command line.
package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/odyssey-erp/glengine/internal/buildinfo"
)

// NewRootCommand creates the root CLI command with all subcommands registered.
func NewRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:     "glengine",
		Short:   "Trial balance engine for the general ledger",
		Version: fmt.Sprintf("%s (commit: %s, built: %s)", buildinfo.Version, buildinfo.Commit, buildinfo.Date),
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		SilenceUsage: true,
	}

	rootCmd.AddCommand(
		newServeCommand(),
		newWorkerCommand(),
		newRunCommand(),
		newEnqueueCommand(),
		newQueueCommand(),
	)

	return rootCmd
}
