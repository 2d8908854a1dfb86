package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newPeriodsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "periods",
		Short: "List the visible timesheet periods and their statuses",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			provider, client, closeBrowser := newSession(cfg)
			if err := provider.Start(); err != nil {
				return err
			}
			defer closeBrowser()

			periods, err := client.Periods(cmd.Context())
			if err != nil {
				return err
			}
			if len(periods) == 0 {
				fmt.Println("No timesheet periods visible")
				return nil
			}
			for _, p := range periods {
				fmt.Printf("%-12s %s  %s\n", p.Name, p.Period, p.Status)
			}
			return provider.SaveState()
		},
	}
	return cmd
}
