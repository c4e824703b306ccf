// Package cli provides the command-line interface for choice registry
// tooling.
package cli

import (
	"github.com/spf13/cobra"
)

// NewRootCommand builds the root command with all subcommands attached.
func NewRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "choice",
		Short:         "Choice-type registry tools",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(newPluginsCommand())
	rootCmd.AddCommand(newCheckCommand())

	return rootCmd
}

// Execute creates and runs the root command.
func Execute() error {
	return NewRootCommand().Execute()
}
