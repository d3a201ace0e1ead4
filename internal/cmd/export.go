package cmd

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"cellarbook/internal/export"
	"cellarbook/internal/repos"
	"cellarbook/internal/services"
)

var exportCmd = &cobra.Command{
	Use:       "export <customers|wines|orders|invoices>",
	Short:     "Write one owner's data as CSV",
	Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
	ValidArgs: export.Kinds,
	RunE: func(cmd *cobra.Command, args []string) error {
		owner, _ := cmd.Flags().GetString("owner")
		out, _ := cmd.Flags().GetString("out")

		db, err := repos.Open(cfg.DBDSN, false)
		if err != nil {
			return fmt.Errorf("open database: %w", err)
		}
		defer db.Close()

		u, err := repos.NewUserRepo(db).ByEmail(strings.ToLower(strings.TrimSpace(owner)))
		if err != nil {
			return fmt.Errorf("owner %q: %w", owner, err)
		}

		var w io.Writer = cmd.OutOrStdout()
		if out != "" && out != "-" {
			f, err := os.Create(out)
			if err != nil {
				return err
			}
			defer f.Close()
			w = f
		}
		svc := services.NewExportService(repos.NewCustomerRepo(db), repos.NewWineRepo(db), repos.NewOrderRepo(db), repos.NewInvoiceRepo(db))
		return svc.CSV(w, u.ID, args[0])
	},
}

func init() {
	exportCmd.Flags().String("owner", "", "email of the account whose data is exported")
	exportCmd.Flags().String("out", "-", "output file, - for stdout")
	_ = exportCmd.MarkFlagRequired("owner")
	rootCmd.AddCommand(exportCmd)
}
