package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"cellarbook/internal/domain"
	"cellarbook/internal/repos"
	"cellarbook/internal/services"
)

var userCmd = &cobra.Command{
	Use:   "user",
	Short: "Manage accounts",
}

var userCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a credentials account",
	Long: `Create a credentials account. The password is read from the
CELLARBOOK_PASSWORD environment variable when --password is omitted.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		email, _ := cmd.Flags().GetString("email")
		name, _ := cmd.Flags().GetString("name")
		pass, _ := cmd.Flags().GetString("password")
		admin, _ := cmd.Flags().GetBool("admin")
		if pass == "" {
			pass = os.Getenv("CELLARBOOK_PASSWORD")
		}

		db, err := repos.Open(cfg.DBDSN, false)
		if err != nil {
			return fmt.Errorf("open database: %w", err)
		}
		defer db.Close()

		users := repos.NewUserRepo(db)
		u, err := (&services.AuthService{Users: users}).Register(email, name, pass)
		if err != nil {
			return err
		}
		if admin {
			if err := users.SetRole(u.ID, domain.RoleAdmin); err != nil {
				return err
			}
			u.Role = domain.RoleAdmin
		}
		fmt.Fprintf(cmd.OutOrStdout(), "created %s (%s) role=%s\n", u.Email, u.ID, u.Role)
		return nil
	},
}

func init() {
	userCreateCmd.Flags().String("email", "", "login email")
	userCreateCmd.Flags().String("name", "", "display name")
	userCreateCmd.Flags().String("password", "", "password (8-64 chars with upper, lower, digit, symbol)")
	userCreateCmd.Flags().Bool("admin", false, "grant the ADMIN role")
	_ = userCreateCmd.MarkFlagRequired("email")
	_ = userCreateCmd.MarkFlagRequired("name")
	userCmd.AddCommand(userCreateCmd)
	rootCmd.AddCommand(userCmd)
}
