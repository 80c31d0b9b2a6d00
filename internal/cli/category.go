package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"time-tracker/internal/config"
)

var categoryCmd = &cobra.Command{
	Use:   "category",
	Short: "Manage task categories",
}

var categoryAddCmd = &cobra.Command{
	Use:   "add <name>",
	Short: "Create a category",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(cfg config.Config, a *app) error {
			category, err := a.categories.Create(cmd.Context(), strings.Join(args, " "))
			if err != nil {
				return err
			}
			cmd.Printf("Created category #%d %s\n", category.ID, category.Name)
			return nil
		})
	},
}

var categoryListCmd = &cobra.Command{
	Use:   "list",
	Short: "List categories",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(cfg config.Config, a *app) error {
			categories, err := a.categories.List(cmd.Context())
			if err != nil {
				return err
			}
			if len(categories) == 0 {
				cmd.Println("No categories.")
				return nil
			}
			for _, c := range categories {
				cmd.Printf("#%d\t%s\n", c.ID, c.Name)
			}
			return nil
		})
	},
}

var categoryRemoveCmd = &cobra.Command{
	Use:   "remove <id>",
	Short: "Soft-delete a category",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := strconv.ParseUint(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid category id %q", args[0])
		}
		return withApp(func(cfg config.Config, a *app) error {
			if err := a.categories.Delete(cmd.Context(), uint(id)); err != nil {
				return err
			}
			cmd.Printf("Removed category #%d\n", id)
			return nil
		})
	},
}

func init() {
	categoryCmd.AddCommand(categoryAddCmd, categoryListCmd, categoryRemoveCmd)
	RootCmd.AddCommand(categoryCmd)
}
