// Package cmd holds the cellarbook command line: serve, migrate, user and export.
package cmd

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"cellarbook/internal/config"
)

var cfg config.Config

var rootCmd = &cobra.Command{
	Use:   "cellarbook",
	Short: "Cellarbook - customers, wines, orders and invoices for a wine shop",
	Long: `Cellarbook runs the wine shop back office: a web UI and JSON API for
customers, the wine cellar, orders moving from PENDING to INVOICED, and
invoices with CSV and PDF export.

Configuration comes from cellarbook.yaml and the environment; a local .env
file is loaded first when present.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// .env is optional; real environment variables win.
		_ = godotenv.Load()
		var err error
		if cfg, err = config.Load(); err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		if dsn, _ := cmd.Flags().GetString("db"); dsn != "" {
			cfg.DBDSN = dsn
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().String("db", "", "database DSN (overrides DB_DSN)")
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
