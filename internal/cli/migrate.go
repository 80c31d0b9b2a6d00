package cli

import (
	"github.com/spf13/cobra"

	"time-tracker/internal/config"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the database schema",
	RunE: func(cmd *cobra.Command, args []string) error {
		// newApp migrates on open.
		return withApp(func(cfg config.Config, a *app) error {
			cmd.Printf("Database %s is up to date.\n", cfg.DatabaseURL)
			return nil
		})
	},
}

func init() {
	RootCmd.AddCommand(migrateCmd)
}
