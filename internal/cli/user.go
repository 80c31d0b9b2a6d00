package cli

import (
	"github.com/spf13/cobra"

	"time-tracker/internal/config"
	"time-tracker/internal/service"
)

var userCmd = &cobra.Command{
	Use:   "user",
	Short: "Manage accounts",
}

var userCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create an account",
	RunE: func(cmd *cobra.Command, args []string) error {
		email, _ := cmd.Flags().GetString("email")
		name, _ := cmd.Flags().GetString("name")
		password, _ := cmd.Flags().GetString("password")
		return withApp(func(cfg config.Config, a *app) error {
			user, err := a.users.Register(cmd.Context(), service.RegisterInput{
				Email:    email,
				Name:     name,
				Password: password,
			})
			if err != nil {
				return err
			}
			cmd.Printf("Created user #%d %s\n", user.ID, user.Email)
			return nil
		})
	},
}

func init() {
	userCreateCmd.Flags().String("email", "", "login email")
	userCreateCmd.Flags().String("name", "", "display name")
	userCreateCmd.Flags().String("password", "", "password (min 8 characters)")
	_ = userCreateCmd.MarkFlagRequired("email")
	_ = userCreateCmd.MarkFlagRequired("password")
	userCmd.AddCommand(userCreateCmd)
	RootCmd.AddCommand(userCmd)
}
