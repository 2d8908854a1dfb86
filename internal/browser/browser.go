// Package browser adapts Playwright to the narrow page surface the
// timesheet protocol needs. It owns the browser lifecycle: launching,
// persisting the authenticated session to disk, and replacing pages
// whose navigation context has been destroyed.
package browser

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/playwright-community/playwright-go"

	"github.com/mpalmer/tsfill/internal/pwa"
)

var log = slog.Default()

// LaunchOptions control the browser process.
type LaunchOptions struct {
	Headless  bool
	SlowMoMs  int
	TimeoutMs int
	// Channel selects the browser build, typically "chrome". Corporate
	// sign-in pages behave better in branded Chrome than in the bundled
	// Chromium.
	Channel string
	// StateFile is where cookies and local storage persist between runs.
	StateFile string
}

// Provider launches one browser and hands out its current page. When a
// page is closed or its context destroyed, the next acquisition opens a
// fresh page and restores the last visited address.
type Provider struct {
	opts LaunchOptions

	mu      sync.Mutex
	pw      *playwright.Playwright
	browser playwright.Browser
	bctx    playwright.BrowserContext
	page    *livePage
}

// NewProvider builds an unstarted provider.
func NewProvider(opts LaunchOptions) *Provider {
	return &Provider{opts: opts}
}

// Start launches the browser and restores the saved session when the
// state file exists.
func (p *Provider) Start() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	pw, err := playwright.Run()
	if err != nil {
		return fmt.Errorf("start playwright driver: %w", err)
	}
	p.pw = pw

	launch := playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(p.opts.Headless),
	}
	if p.opts.Channel != "" {
		launch.Channel = playwright.String(p.opts.Channel)
	}
	if p.opts.SlowMoMs > 0 {
		launch.SlowMo = playwright.Float(float64(p.opts.SlowMoMs))
	}
	browser, err := pw.Chromium.Launch(launch)
	if err != nil {
		_ = pw.Stop()
		return fmt.Errorf("launch browser: %w", err)
	}
	p.browser = browser

	ctxOpts := playwright.BrowserNewContextOptions{}
	if p.opts.StateFile != "" {
		if _, err := os.Stat(p.opts.StateFile); err == nil {
			ctxOpts.StorageStatePath = playwright.String(p.opts.StateFile)
			log.Debug("restoring session", "state_file", p.opts.StateFile)
		}
	}
	bctx, err := browser.NewContext(ctxOpts)
	if err != nil {
		_ = browser.Close()
		_ = pw.Stop()
		return fmt.Errorf("create browser context: %w", err)
	}
	p.bctx = bctx
	return nil
}

// AcquirePage returns the live page, opening or replacing one as needed.
func (p *Provider) AcquirePage(ctx context.Context) (pwa.Page, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if p.bctx == nil {
		return nil, fmt.Errorf("browser not started")
	}

	if p.page != nil && !p.page.pg.IsClosed() {
		return p.page, nil
	}

	lastURL := ""
	if p.page != nil {
		lastURL = p.page.lastURL
		_ = p.page.pg.Close()
	}

	pg, err := p.bctx.NewPage()
	if err != nil {
		return nil, fmt.Errorf("open page: %w", err)
	}
	page := newLivePage(pg)
	p.page = page

	if lastURL != "" {
		log.Debug("restoring page location", "url", lastURL)
		if err := page.Goto(lastURL, time.Duration(p.opts.TimeoutMs)*time.Millisecond); err != nil {
			return nil, fmt.Errorf("restore page location: %w", err)
		}
	}
	return page, nil
}

// SaveState writes the session's cookies and storage to the state file.
func (p *Provider) SaveState() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.bctx == nil || p.opts.StateFile == "" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(p.opts.StateFile), 0o700); err != nil {
		return fmt.Errorf("create state dir: %w", err)
	}
	if _, err := p.bctx.StorageState(p.opts.StateFile); err != nil {
		return fmt.Errorf("save session state: %w", err)
	}
	return nil
}

// Close tears the browser down. Safe to call on a failed Start.
func (p *Provider) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.bctx != nil {
		_ = p.bctx.Close()
		p.bctx = nil
	}
	if p.browser != nil {
		_ = p.browser.Close()
		p.browser = nil
	}
	if p.pw != nil {
		_ = p.pw.Stop()
		p.pw = nil
	}
	p.page = nil
}
