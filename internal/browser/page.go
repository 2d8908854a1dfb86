package browser

import (
	"sync"
	"time"

	"github.com/playwright-community/playwright-go"
)

// livePage implements pwa.Page over a Playwright page.
//
// The dialog handler is registered once at construction and routes by
// armed state: armed dialogs are accepted and reported, unexpected ones
// dismissed. Registering per-arm would race against dialogs fired while
// no handler is attached, which Playwright auto-dismisses.
type livePage struct {
	pg playwright.Page

	mu      sync.Mutex
	armed   chan string
	lastURL string
}

func newLivePage(pg playwright.Page) *livePage {
	p := &livePage{pg: pg}
	pg.OnDialog(func(dialog playwright.Dialog) {
		p.mu.Lock()
		armed := p.armed
		p.mu.Unlock()
		if armed == nil {
			log.Warn("dismissing unexpected dialog", "message", dialog.Message())
			_ = dialog.Dismiss()
			return
		}
		_ = dialog.Accept()
		select {
		case armed <- dialog.Message():
		default:
		}
	})
	return p
}

func (p *livePage) Goto(url string, timeout time.Duration) error {
	_, err := p.pg.Goto(url, playwright.PageGotoOptions{
		Timeout:   playwright.Float(float64(timeout.Milliseconds())),
		WaitUntil: playwright.WaitUntilStateDomcontentloaded,
	})
	if err == nil {
		p.mu.Lock()
		p.lastURL = url
		p.mu.Unlock()
	}
	return err
}

func (p *livePage) URL() string {
	return p.pg.URL()
}

func (p *livePage) Evaluate(script string) (any, error) {
	return p.pg.Evaluate(script)
}

func (p *livePage) Click(selector string, timeout time.Duration) error {
	return p.pg.Click(selector, playwright.PageClickOptions{
		Timeout: playwright.Float(float64(timeout.Milliseconds())),
	})
}

func (p *livePage) Visible(selector string, timeout time.Duration) bool {
	err := p.pg.Locator(selector).First().WaitFor(playwright.LocatorWaitForOptions{
		State:   playwright.WaitForSelectorStateVisible,
		Timeout: playwright.Float(float64(timeout.Milliseconds())),
	})
	return err == nil
}

func (p *livePage) WaitReady(timeout time.Duration) error {
	ms := playwright.Float(float64(timeout.Milliseconds()))
	if err := p.pg.WaitForLoadState(playwright.PageWaitForLoadStateOptions{
		State:   playwright.LoadStateLoad,
		Timeout: ms,
	}); err != nil {
		return err
	}
	// Network idle is best-effort; SharePoint pages poll and may never
	// go fully idle.
	_ = p.pg.WaitForLoadState(playwright.PageWaitForLoadStateOptions{
		State:   playwright.LoadStateNetworkidle,
		Timeout: playwright.Float(float64((5 * time.Second).Milliseconds())),
	})
	p.mu.Lock()
	p.lastURL = p.pg.URL()
	p.mu.Unlock()
	return nil
}

func (p *livePage) Sleep(d time.Duration) {
	p.pg.WaitForTimeout(float64(d.Milliseconds()))
}

func (p *livePage) ArmDialog() (<-chan string, func()) {
	ch := make(chan string, 1)
	p.mu.Lock()
	p.armed = ch
	p.mu.Unlock()
	return ch, func() {
		p.mu.Lock()
		if p.armed == ch {
			p.armed = nil
		}
		p.mu.Unlock()
	}
}
