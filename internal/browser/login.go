package browser

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/mpalmer/tsfill/internal/pwa"
)

// Microsoft sign-in form elements. The flow is email, Next, password,
// Sign in, then the "Stay signed in?" prompt whose Yes button is what
// makes the persisted session outlive the run.
const (
	emailInputSel    = `input[type='email']`
	passwordInputSel = `input[type='password']`
	submitSel        = `input[type='submit']`
	staySignedInSel  = `input[id='idSIButton9']`
)

// Login establishes an authenticated session and persists it to the
// state file. Known form fields are pre-filled when credentials are
// given; everything else, MFA prompts included, is left to the user,
// so the browser must be headful. Login succeeds once the timesheet
// summary page loads.
func (p *Provider) Login(ctx context.Context, summaryURL, email, password string, timeout time.Duration) error {
	if p.opts.Headless {
		return fmt.Errorf("login needs a visible browser, set HEADLESS=0")
	}

	page, err := p.AcquirePage(ctx)
	if err != nil {
		return err
	}
	if err := page.Goto(summaryURL, 60*time.Second); err != nil {
		return fmt.Errorf("open sign-in page: %w", err)
	}
	_ = page.WaitReady(30 * time.Second)

	if p.onSummary(page) {
		log.Info("session already valid")
		return p.SaveState()
	}

	p.prefill(page, email, password)

	log.Info("waiting for sign-in to finish in the browser", "timeout", timeout)
	deadline := time.Now().Add(timeout)
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("sign-in not completed within %s", timeout)
		}
		if p.onSummary(page) {
			break
		}
		// The "Stay signed in?" prompt appears after MFA; answer Yes so
		// the session persists.
		if page.Visible(staySignedInSel, time.Second) && pwa.IsLoginURL(page.URL()) {
			_ = page.Click(staySignedInSel, 2*time.Second)
		}
		page.Sleep(2 * time.Second)
	}

	log.Info("sign-in complete")
	return p.SaveState()
}

func (p *Provider) onSummary(page pwa.Page) bool {
	u := page.URL()
	return !pwa.IsLoginURL(u) && strings.Contains(u, "MyTSSummary")
}

// prefill types whatever credentials were provided into the fields that
// are present. Every step is best-effort; a tenant with federated login
// renders a different form and the user finishes by hand.
func (p *Provider) prefill(page pwa.Page, email, password string) {
	if email != "" && page.Visible(emailInputSel, 5*time.Second) {
		if _, err := page.Evaluate(fillScript(emailInputSel, email)); err == nil {
			_ = page.Click(submitSel, 2*time.Second)
			page.Sleep(3 * time.Second)
		}
	}
	if password != "" && page.Visible(passwordInputSel, 10*time.Second) {
		if _, err := page.Evaluate(fillScript(passwordInputSel, password)); err == nil {
			_ = page.Click(submitSel, 2*time.Second)
			page.Sleep(3 * time.Second)
		}
	}
}

// fillScript sets an input's value through the native setter so React
// style pages register the change.
func fillScript(selector, value string) string {
	return fmt.Sprintf(`() => {
	let el = document.querySelector(%q);
	if (!el) return false;
	let setter = Object.getOwnPropertyDescriptor(window.HTMLInputElement.prototype, 'value').set;
	setter.call(el, %q);
	el.dispatchEvent(new Event('input', { bubbles: true }));
	el.dispatchEvent(new Event('change', { bubbles: true }));
	return true;
}`, selector, value)
}
