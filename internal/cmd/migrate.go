package cmd

import (
	"fmt"
	"log"

	"github.com/spf13/cobra"

	"cellarbook/internal/repos"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the database schema and seed accounts",
	RunE: func(cmd *cobra.Command, args []string) error {
		demo, _ := cmd.Flags().GetBool("demo")
		db, err := repos.Open(cfg.DBDSN, demo)
		if err != nil {
			return fmt.Errorf("migrate %s: %w", cfg.DBDSN, err)
		}
		defer db.Close()
		log.Printf("[migrate] schema ready in %s (demo data: %t)", cfg.DBDSN, demo)
		return nil
	},
}

func init() {
	migrateCmd.Flags().Bool("demo", false, "also insert the demo cellar")
	rootCmd.AddCommand(migrateCmd)
}
