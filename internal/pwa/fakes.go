package pwa

import (
	"context"
	"time"
)

// FakePage is a configurable Page for tests. Every method delegates to
// its function field when set and falls back to a benign default
// otherwise. Calls are recorded so tests can assert on the protocol's
// interaction sequence.
type FakePage struct {
	GotoFunc      func(url string, timeout time.Duration) error
	URLFunc       func() string
	EvaluateFunc  func(script string) (any, error)
	ClickFunc     func(selector string, timeout time.Duration) error
	VisibleFunc   func(selector string, timeout time.Duration) bool
	WaitReadyFunc func(timeout time.Duration) error
	ArmDialogFunc func() (<-chan string, func())

	Gotos   []string
	Clicks  []string
	Scripts []string
}

var _ Page = (*FakePage)(nil)

func (p *FakePage) Goto(url string, timeout time.Duration) error {
	p.Gotos = append(p.Gotos, url)
	if p.GotoFunc != nil {
		return p.GotoFunc(url, timeout)
	}
	return nil
}

func (p *FakePage) URL() string {
	if p.URLFunc != nil {
		return p.URLFunc()
	}
	return "https://pwa.example.com/Timesheet/MyTSSummary.aspx"
}

func (p *FakePage) Evaluate(script string) (any, error) {
	p.Scripts = append(p.Scripts, script)
	if p.EvaluateFunc != nil {
		return p.EvaluateFunc(script)
	}
	return nil, nil
}

func (p *FakePage) Click(selector string, timeout time.Duration) error {
	p.Clicks = append(p.Clicks, selector)
	if p.ClickFunc != nil {
		return p.ClickFunc(selector, timeout)
	}
	return nil
}

func (p *FakePage) Visible(selector string, timeout time.Duration) bool {
	if p.VisibleFunc != nil {
		return p.VisibleFunc(selector, timeout)
	}
	return true
}

func (p *FakePage) WaitReady(timeout time.Duration) error {
	if p.WaitReadyFunc != nil {
		return p.WaitReadyFunc(timeout)
	}
	return nil
}

func (p *FakePage) Sleep(time.Duration) {}

func (p *FakePage) ArmDialog() (<-chan string, func()) {
	if p.ArmDialogFunc != nil {
		return p.ArmDialogFunc()
	}
	ch := make(chan string, 1)
	ch <- "confirmed"
	return ch, func() {}
}

// FakeProvider hands out a fixed sequence of pages, one per acquisition.
// When the sequence runs out the last page is handed out again.
type FakeProvider struct {
	Pages    []Page
	Acquired int
}

var _ PageProvider = (*FakeProvider)(nil)

func (p *FakeProvider) AcquirePage(ctx context.Context) (Page, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	idx := p.Acquired
	if idx >= len(p.Pages) {
		idx = len(p.Pages) - 1
	}
	p.Acquired++
	return p.Pages[idx], nil
}
