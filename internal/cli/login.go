package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/mpalmer/tsfill/internal/config"
)

func newLoginCmd() *cobra.Command {
	var (
		envFile string
		timeout time.Duration
	)

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in interactively and save the session",
		Long: `Login opens a visible browser on the timesheet site, pre-fills the
sign-in form from MS_EMAIL and MS_PASSWORD when set, and waits for the
sign-in (MFA included) to finish. The session is saved to the state
file so later runs can be headless.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			// Login is interactive by definition.
			cfg.Browser.Headless = false

			creds := config.LoadCredentials(envFile)
			provider, _, closeBrowser := newSession(cfg)
			if err := provider.Start(); err != nil {
				return err
			}
			defer closeBrowser()

			if err := provider.Login(cmd.Context(), cfg.SharePoint.SummaryURL,
				creds.Email, creds.Password, timeout); err != nil {
				return err
			}
			fmt.Printf("✅ Session saved to %s\n", cfg.StateFilePath())
			return nil
		},
	}

	cmd.Flags().StringVar(&envFile, "env-file", ".env", "dotenv file with MS_EMAIL and MS_PASSWORD")
	cmd.Flags().DurationVar(&timeout, "timeout", 5*time.Minute, "how long to wait for the sign-in to finish")
	return cmd
}
