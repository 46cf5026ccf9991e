// Package commands holds the cobra command trees of the bilancio binaries.
package commands

import (
	"github.com/spf13/cobra"

	"bilancio/internal/buildinfo"
)

// NewRootCommand creates the root CLI command with all subcommands registered.
func NewRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:     "bilancio",
		Short:   "Personal monthly income and expense tracker",
		Version: buildinfo.String(),
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		SilenceUsage: true,
	}

	rootCmd.AddCommand(newServeCommand())
	rootCmd.AddCommand(newMigrateCommand())
	rootCmd.AddCommand(newSummaryCommand())

	return rootCmd
}
