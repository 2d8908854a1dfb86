// Package pwa implements the protocol for driving the SharePoint Project
// Web App timesheet pages: the MyTSSummary period list and the
// Timesheet.aspx JSGrid data-entry grid.
//
// All grid mutations go through the host's own validated-update path
// (SP.JsGrid.CreateValidatedPropertyUpdate + grid.UpdateProperties) so the
// grid's dirty/change tracking sees them and a subsequent save has pending
// changes to commit. Raw DOM value assignment is never used.
package pwa

import (
	"context"
	"strings"
	"time"
)

// Page is the narrow surface the protocol needs from a live browser page.
// The browser package implements it with Playwright; tests use FakePage.
type Page interface {
	// Goto navigates and waits for the document to load.
	Goto(url string, timeout time.Duration) error
	// URL returns the page's current address.
	URL() string
	// Evaluate runs a JavaScript function expression in the page and
	// returns its JSON-decoded result.
	Evaluate(script string) (any, error)
	// Click clicks the first element matching selector.
	Click(selector string, timeout time.Duration) error
	// Visible reports whether an element matching selector is visible.
	Visible(selector string, timeout time.Duration) bool
	// WaitReady waits for the load event and then, best-effort, for the
	// network to go idle. Creating a timesheet redirects mid-flight, so
	// callers use this before touching the grid.
	WaitReady(timeout time.Duration) error
	// Sleep pauses the protocol; the grid applies batched updates
	// asynchronously and has no completion event to wait on.
	Sleep(d time.Duration)
	// ArmDialog installs a handler that accepts the next native dialog
	// and delivers its message on the returned channel. It must be armed
	// before the action that triggers the dialog; arming afterwards is a
	// race the protocol never takes. The returned func disarms.
	ArmDialog() (<-chan string, func())
}

// PageProvider hands out the current live page and replaces it when the
// navigation context has gone stale. One page exists at a time.
type PageProvider interface {
	AcquirePage(ctx context.Context) (Page, error)
}

// staleMarkers are the error fragments the browser driver produces when a
// page's execution context is destroyed under us (late redirect after
// timesheet creation, SharePoint postback, closed target).
var staleMarkers = []string{
	"Execution context was destroyed",
	"Cannot find context with specified id",
	"Target page, context or browser has been closed",
	"Target closed",
	"frame was detached",
}

// IsStale reports whether err looks like a destroyed navigation context,
// i.e. the operation may succeed against a re-acquired page.
func IsStale(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	for _, marker := range staleMarkers {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}
