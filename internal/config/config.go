// Package config loads and validates the YAML run configuration and the
// dotenv-sourced credentials.
package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/mpalmer/tsfill/internal/calendar"
	"github.com/mpalmer/tsfill/pkg/types"
)

// SharePoint holds the tenant endpoints.
type SharePoint struct {
	// SummaryURL is the full address of the MyTSSummary.aspx page.
	SummaryURL string `yaml:"summary_url"`
}

// Browser controls how the automated browser is launched.
type Browser struct {
	Headless  bool   `yaml:"headless"`
	SlowMoMs  int    `yaml:"slow_mo_ms"`
	TimeoutMs int    `yaml:"timeout_ms"`
	// StateFile is where the authenticated session is persisted between
	// runs. Supports a leading ~.
	StateFile string `yaml:"state_file"`
	// Channel picks the browser build; "chrome" uses the system Chrome.
	Channel string `yaml:"channel"`
}

// Defaults sets the working-day calendar.
type Defaults struct {
	// Region is the AU holiday region, e.g. "NSW".
	Region string `yaml:"region"`
	// WorkDays are the scheduled weekday names, lowercase.
	WorkDays []string `yaml:"work_days"`
}

// Metrics gates the optional Prometheus endpoint.
type Metrics struct {
	Enabled bool `yaml:"enabled"`
	Port    int  `yaml:"port"`
}

// Retry bounds the protocol's retry loops.
type Retry struct {
	StaleContextAttempts int `yaml:"stale_context_attempts"`
	SaveAttempts         int `yaml:"save_attempts"`
}

// Config is the full run configuration.
type Config struct {
	SharePoint SharePoint       `yaml:"sharepoint"`
	Browser    Browser          `yaml:"browser"`
	Defaults   Defaults         `yaml:"defaults"`
	Projects   []types.TaskRule `yaml:"projects"`
	Metrics    Metrics          `yaml:"metrics"`
	Retry      Retry            `yaml:"retry"`
}

// DefaultConfig returns the baseline a config file overrides.
func DefaultConfig() Config {
	return Config{
		Browser: Browser{
			Headless:  true,
			TimeoutMs: 30000,
			StateFile: "~/.tsfill/state.json",
			Channel:   "chrome",
		},
		Defaults: Defaults{
			Region:   "NSW",
			WorkDays: []string{"monday", "tuesday", "wednesday", "thursday", "friday"},
		},
		Metrics: Metrics{Port: 9090},
		Retry:   Retry{StaleContextAttempts: 2, SaveAttempts: 3},
	}
}

// Load reads path, overlays it on the defaults, applies environment
// overrides and validates the result.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	cfg.applyEnv()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return &cfg, nil
}

// applyEnv maps environment overrides onto the config. HEADLESS=0 or
// HEADLESS=false forces a visible browser, which is how interactive
// logins are done on a config that normally runs headless.
func (c *Config) applyEnv() {
	if v, ok := os.LookupEnv("HEADLESS"); ok {
		v = strings.ToLower(strings.TrimSpace(v))
		c.Browser.Headless = v != "0" && v != "false" && v != "no"
	}
}

// Validate checks the config's internal consistency.
func (c *Config) Validate() error {
	if c.SharePoint.SummaryURL == "" {
		return fmt.Errorf("sharepoint.summary_url is required")
	}
	u, err := url.Parse(c.SharePoint.SummaryURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("sharepoint.summary_url %q is not an absolute URL", c.SharePoint.SummaryURL)
	}

	if len(c.Projects) == 0 {
		return fmt.Errorf("projects: at least one task rule is required")
	}
	for i, rule := range c.Projects {
		if strings.TrimSpace(rule.Name) == "" {
			return fmt.Errorf("projects[%d]: name is required", i)
		}
		if rule.HoursPerDay < 0 || rule.HoursPerDay > 24 {
			return fmt.Errorf("projects[%d] %q: default_hours_per_day %.2f out of range 0-24",
				i, rule.Name, rule.HoursPerDay)
		}
		if rule.UsePlanned && rule.HoursPerDay != 0 {
			return fmt.Errorf("projects[%d] %q: use_planned and default_hours_per_day are mutually exclusive",
				i, rule.Name)
		}
	}

	// Region and weekday names are validated by the calendar constructor.
	if _, err := c.Calendar(); err != nil {
		return err
	}

	if c.Metrics.Enabled && (c.Metrics.Port < 1 || c.Metrics.Port > 65535) {
		return fmt.Errorf("metrics.port %d out of range", c.Metrics.Port)
	}
	return nil
}

// Calendar builds the working-day calendar the config describes.
func (c *Config) Calendar() (*calendar.WorkDayCalendar, error) {
	return calendar.NewWorkDayCalendar(c.Defaults.Region, c.Defaults.WorkDays)
}

// StateFilePath expands the session state file path.
func (c *Config) StateFilePath() string {
	return expandHome(c.Browser.StateFile)
}

func expandHome(path string) string {
	if path == "~" || strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, strings.TrimPrefix(path, "~"))
	}
	return path
}
