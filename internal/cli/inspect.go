package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mpalmer/tsfill/internal/calendar"
)

func newInspectCmd() *cobra.Command {
	var weekFlag string

	cmd := &cobra.Command{
		Use:   "inspect",
		Short: "Show the task grid of one week without changing it",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			week := calendar.CurrentWeek()
			if weekFlag != "" {
				d, err := parseDate(weekFlag)
				if err != nil {
					return err
				}
				week = calendar.WeekOf(d)
			}

			provider, client, closeBrowser := newSession(cfg)
			if err := provider.Start(); err != nil {
				return err
			}
			defer closeBrowser()

			ctx := cmd.Context()
			if _, err := client.OpenWeek(ctx, week); err != nil {
				return err
			}
			rows, err := client.TaskRows(ctx)
			if err != nil {
				return err
			}

			total, err := client.PendingTotalHours(ctx)
			if err != nil {
				return err
			}

			fmt.Printf("📋 Week %s (%.1fh)\n", week, total)
			if len(rows) == 0 {
				fmt.Println("No task rows")
				return nil
			}
			days := make([]string, 7)
			for i := 0; i < 7; i++ {
				days[i] = week.Start.AddDate(0, 0, i).Format("Mon 02/01")
			}
			fmt.Printf("%-40s %s\n", "Task", strings.Join(days, "  "))
			for _, row := range rows {
				cells := make([]string, 7)
				for i, v := range row.Actual {
					if v == "" {
						v = "-"
					}
					cells[i] = fmt.Sprintf("%-10s", v)
				}
				fmt.Printf("%-40s %s\n", truncate(row.Label, 40), strings.Join(cells, ""))
			}
			return provider.SaveState()
		},
	}

	cmd.Flags().StringVar(&weekFlag, "week", "", "inspect the week containing this date (dd/mm/yyyy)")
	return cmd
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-1] + "…"
}
