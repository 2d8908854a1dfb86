package cli

import (
	"bufio"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/mpalmer/tsfill/internal/calendar"
	"github.com/mpalmer/tsfill/internal/metrics"
	"github.com/mpalmer/tsfill/internal/runner"
	"github.com/mpalmer/tsfill/internal/workflow"
	"github.com/mpalmer/tsfill/pkg/types"
)

func newFillCmd() *cobra.Command {
	var (
		weekFlag string
		fromFlag string
		toFlag   string
		dryRun   bool
		submit   bool
		recall   bool
		keepOpen bool
	)

	cmd := &cobra.Command{
		Use:   "fill",
		Short: "Fill the selected weeks' timesheets",
		Long: `Fill processes each selected week: it opens (creating if needed) the
week's timesheet, writes the configured hours into working days, saves
with verification, and optionally submits. With --recall it instead
recalls already-submitted weeks. Dates use dd/mm/yyyy; without a
selection the current week is processed.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if submit && recall {
				return fmt.Errorf("--submit and --recall are mutually exclusive")
			}
			if weekFlag != "" && (fromFlag != "" || toFlag != "") {
				return fmt.Errorf("--week and --from/--to are mutually exclusive")
			}

			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			cal, err := cfg.Calendar()
			if err != nil {
				return err
			}
			weeks, err := selectWeeks(weekFlag, fromFlag, toFlag)
			if err != nil {
				return err
			}
			mode := types.Mode{DryRun: dryRun, Submit: submit, Recall: recall}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			provider, client, closeBrowser := newSession(cfg)
			if err := provider.Start(); err != nil {
				return err
			}
			defer closeBrowser()

			var obs runner.Metrics
			if cfg.Metrics.Enabled {
				reg := prometheus.NewRegistry()
				obs = metrics.NewCollector(reg)
				srv := metrics.StartServer(cfg.Metrics.Port, reg)
				defer srv.Close()
			}

			week := workflow.NewWeek(client, cal, cfg.Projects)
			report, runErr := runner.New(week, obs).Run(ctx, weeks, mode)

			printReport(report, mode)
			if keepOpen {
				fmt.Print("Press Enter to close the browser... ")
				_, _ = bufio.NewReader(os.Stdin).ReadString('\n')
			}
			if runErr != nil {
				return runErr
			}
			if err := provider.SaveState(); err != nil {
				return err
			}
			if failed := report.FailedPeriods(); len(failed) > 0 {
				return fmt.Errorf("%d of %d week(s) failed", len(failed), len(report.Outcomes))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&weekFlag, "week", "", "process the week containing this date (dd/mm/yyyy)")
	cmd.Flags().StringVar(&fromFlag, "from", "", "first date of the range (dd/mm/yyyy)")
	cmd.Flags().StringVar(&toFlag, "to", "", "last date of the range (dd/mm/yyyy)")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "compute and report the plan without writing anything")
	cmd.Flags().BoolVar(&submit, "submit", false, "submit each week after a verified save")
	cmd.Flags().BoolVar(&recall, "recall", false, "recall submitted weeks instead of filling")
	cmd.Flags().BoolVar(&keepOpen, "keep-open", false, "leave the browser open until Enter is pressed")
	return cmd
}

// selectWeeks resolves the date flags into Monday-aligned weeks.
func selectWeeks(weekFlag, fromFlag, toFlag string) ([]types.WeekPeriod, error) {
	if weekFlag != "" {
		d, err := parseDate(weekFlag)
		if err != nil {
			return nil, err
		}
		return []types.WeekPeriod{calendar.WeekOf(d)}, nil
	}

	var from, to time.Time
	var err error
	if fromFlag != "" {
		if from, err = parseDate(fromFlag); err != nil {
			return nil, err
		}
	}
	if toFlag != "" {
		if to, err = parseDate(toFlag); err != nil {
			return nil, err
		}
	}
	return calendar.Expand(from, to)
}

func parseDate(s string) (time.Time, error) {
	d, err := time.ParseInLocation(types.DateLayout, s, time.Local)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q, expected dd/mm/yyyy", s)
	}
	return d, nil
}

func printReport(report *runner.Report, mode types.Mode) {
	if mode.DryRun {
		fmt.Println("🔍 Dry run, nothing was written")
	}
	for _, o := range report.Outcomes {
		switch {
		case o.Failed():
			fmt.Printf("❌ %s: %v\n", o.Period, o.Err)
		case mode.Recall:
			fmt.Printf("✅ %s: recalled\n", o.Period)
		default:
			var notes []string
			if o.Status == types.WeekCreated {
				notes = append(notes, "created")
			}
			notes = append(notes,
				fmt.Sprintf("%d filled", o.FilledTasks),
				fmt.Sprintf("%d cleared", o.ClearedTasks),
				fmt.Sprintf("%.1fh", o.SavedTotal))
			if o.Submitted {
				notes = append(notes, "submitted")
			}
			fmt.Printf("✅ %s: %s\n", o.Period, strings.Join(notes, ", "))
		}
	}
	if len(report.Outcomes) > 1 {
		fmt.Printf("📊 %d week(s), %.1fh saved, result: %s\n",
			len(report.Outcomes), report.TotalHours(), report.Result())
	}
}
