// Package cli wires the tsfill commands: fill runs the batch, login
// establishes a session, periods and inspect are read-only views.
package cli

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/mpalmer/tsfill/internal/browser"
	"github.com/mpalmer/tsfill/internal/config"
	"github.com/mpalmer/tsfill/internal/pwa"
)

var (
	cfgPath string
	verbose bool
)

// NewRootCmd builds the tsfill command tree.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "tsfill",
		Short:         "Fill, submit and recall Project Web App timesheets",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			level := slog.LevelInfo
			if verbose {
				level = slog.LevelDebug
			}
			slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
		},
	}
	cmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", "tsfill.yaml", "path to config file")
	cmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	cmd.AddCommand(newFillCmd())
	cmd.AddCommand(newLoginCmd())
	cmd.AddCommand(newPeriodsCmd())
	cmd.AddCommand(newInspectCmd())
	return cmd
}

// Execute runs the CLI and exits non-zero on failure.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "❌ %v\n", err)
		os.Exit(1)
	}
}

// newSession loads the config, launches the browser and builds the
// protocol client. The returned cleanup closes the browser.
func newSession(cfg *config.Config) (*browser.Provider, *pwa.Client, func()) {
	provider := browser.NewProvider(browser.LaunchOptions{
		Headless:  cfg.Browser.Headless,
		SlowMoMs:  cfg.Browser.SlowMoMs,
		TimeoutMs: cfg.Browser.TimeoutMs,
		Channel:   cfg.Browser.Channel,
		StateFile: cfg.StateFilePath(),
	})
	client := pwa.NewClient(provider, pwa.Options{
		SummaryURL:    cfg.SharePoint.SummaryURL,
		NavTimeout:    time.Duration(cfg.Browser.TimeoutMs) * time.Millisecond,
		StaleAttempts: cfg.Retry.StaleContextAttempts,
		SaveAttempts:  cfg.Retry.SaveAttempts,
	})
	return provider, client, func() { provider.Close() }
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, err
	}
	return cfg, nil
}
