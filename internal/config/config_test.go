package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mpalmer/tsfill/pkg/types"
)

const sampleConfig = `
sharepoint:
  summary_url: https://projects.example.com/pwa/Timesheet/MyTSSummary.aspx
browser:
  headless: true
  state_file: /tmp/tsfill-state.json
defaults:
  region: VIC
  work_days: [monday, tuesday, wednesday, thursday]
projects:
  - name: "ST-333"
    default_hours_per_day: 8
  - name: "Leave"
    use_planned: true
    clear_planned: true
metrics:
  enabled: true
  port: 9191
retry:
  stale_context_attempts: 4
`

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "tsfill.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad(t *testing.T) {
	cfg, err := Load(writeConfig(t, sampleConfig))
	require.NoError(t, err)

	assert.Equal(t, "https://projects.example.com/pwa/Timesheet/MyTSSummary.aspx", cfg.SharePoint.SummaryURL)
	assert.True(t, cfg.Browser.Headless)
	assert.Equal(t, "VIC", cfg.Defaults.Region)
	require.Len(t, cfg.Projects, 2)
	assert.InDelta(t, 8, cfg.Projects[0].HoursPerDay, 0)
	assert.True(t, cfg.Projects[1].UsePlanned)
	assert.True(t, cfg.Projects[1].ClearPlanned)
	assert.True(t, cfg.Metrics.Enabled)
	assert.Equal(t, 9191, cfg.Metrics.Port)

	// Overridden and defaulted retry bounds coexist.
	assert.Equal(t, 4, cfg.Retry.StaleContextAttempts)
	assert.Equal(t, 3, cfg.Retry.SaveAttempts)

	cal, err := cfg.Calendar()
	require.NoError(t, err)
	assert.Equal(t, "VIC", cal.Region())
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestHeadlessEnvOverride(t *testing.T) {
	t.Setenv("HEADLESS", "0")
	cfg, err := Load(writeConfig(t, sampleConfig))
	require.NoError(t, err)
	assert.False(t, cfg.Browser.Headless)

	t.Setenv("HEADLESS", "true")
	cfg, err = Load(writeConfig(t, sampleConfig))
	require.NoError(t, err)
	assert.True(t, cfg.Browser.Headless)
}

func TestValidate(t *testing.T) {
	base := func() Config {
		cfg := DefaultConfig()
		cfg.SharePoint.SummaryURL = "https://projects.example.com/pwa/Timesheet/MyTSSummary.aspx"
		cfg.Projects = []types.TaskRule{{Name: "ST-333", HoursPerDay: 8}}
		return cfg
	}

	valid := base()
	require.NoError(t, valid.Validate())

	cfg := base()
	cfg.SharePoint.SummaryURL = ""
	assert.ErrorContains(t, cfg.Validate(), "summary_url")

	cfg = base()
	cfg.SharePoint.SummaryURL = "not a url"
	assert.ErrorContains(t, cfg.Validate(), "absolute URL")

	cfg = base()
	cfg.Projects = nil
	assert.ErrorContains(t, cfg.Validate(), "task rule")

	cfg = base()
	cfg.Projects = []types.TaskRule{{Name: "  "}}
	assert.ErrorContains(t, cfg.Validate(), "name is required")

	cfg = base()
	cfg.Projects = []types.TaskRule{{Name: "X", HoursPerDay: 25}}
	assert.ErrorContains(t, cfg.Validate(), "out of range")

	cfg = base()
	cfg.Projects = []types.TaskRule{{Name: "X", HoursPerDay: 8, UsePlanned: true}}
	assert.ErrorContains(t, cfg.Validate(), "mutually exclusive")

	cfg = base()
	cfg.Defaults.Region = "ZZ"
	assert.ErrorContains(t, cfg.Validate(), "unknown region")

	cfg = base()
	cfg.Metrics.Enabled = true
	cfg.Metrics.Port = 0
	assert.ErrorContains(t, cfg.Validate(), "metrics.port")
}

func TestExpandHome(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, ".tsfill/state.json"), expandHome("~/.tsfill/state.json"))
	assert.Equal(t, "/var/lib/state.json", expandHome("/var/lib/state.json"))
}

func TestLoadCredentials(t *testing.T) {
	t.Setenv("MS_EMAIL", "user@example.com")
	t.Setenv("MS_PASSWORD", "hunter2")

	creds := LoadCredentials(filepath.Join(t.TempDir(), "absent.env"))
	assert.Equal(t, "user@example.com", creds.Email)
	assert.Equal(t, "hunter2", creds.Password)
}
