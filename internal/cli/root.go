package cli

import (
	"github.com/spf13/cobra"
)

var Version = "dev"

// RootCmd is the base command when called without any subcommands.
var RootCmd = &cobra.Command{
	Use:           "timetracker",
	Version:       Version,
	Short:         "Personal time tracking server",
	SilenceUsage:  true,
	SilenceErrors: false,
}

// Execute runs the command tree. Called by main.main().
func Execute() error {
	return RootCmd.Execute()
}
