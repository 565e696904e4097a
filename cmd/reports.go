package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/financebot/financebot/pkg/pixpoc"
)

var reportsCmd = &cobra.Command{
	Use:   "reports <phone>",
	Short: "List generated reports for a phone number",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := initStore(cmd.Context())
		if err != nil {
			return err
		}
		defer st.Close()

		owner := pixpoc.NormalizeE164(args[0], cfg.Pixpoc.DefaultCountryCode)
		reports, err := st.ListReports(cmd.Context(), owner)
		if err != nil {
			return err
		}

		if len(reports) == 0 {
			fmt.Printf("no reports for %s\n", owner)
			return nil
		}
		for _, r := range reports {
			fmt.Printf("%s  %-24s  %s  %s\n", r.CreatedAt.Format("2006-01-02 15:04"), r.Type, r.ReportID, r.StoragePath)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(reportsCmd)
}
