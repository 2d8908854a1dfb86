package pwa

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/mpalmer/tsfill/pkg/types"
)

// Ribbon element IDs on the timesheet page. These are stable across PWA
// deployments because they come from the ribbon XML, not the tenant.
const (
	timesheetTabSel = `li[id='Ribbon.ContextualTabs.TiedMode.Home-title'] a`
	saveButtonSel   = `a[id='Ribbon.ContextualTabs.TiedMode.Home.Sheet.Save-Large']`
	sendButtonSel   = `a[id='Ribbon.ContextualTabs.TiedMode.Home.Sheet.SubmitMenu-Large']`
	sendFallbackSel = `a[id*='SubmitMenu']`
	addRowButtonSel = `a[id='Ribbon.ContextualTabs.TiedMode.Home.Tasks.AddLine-Large']`

	turnInSel       = `a.ms-cui-ctl:has(span:has-text('Turn in Final Timesheet'))`
	turnInSpanSel   = `span:has-text('Turn in Final Timesheet')`
	fromExistingSel = `a:has-text('From Existing Assignments'), span.ms-cui-ctl-mediumlabel:has-text('From Existing Assignments')`
)

const controllerAttempts = 5

// CellUpdate is one day-cell write: a record key, a day column index
// (0 = Monday .. 6 = Sunday), the Actual or Planned variant, and the
// value in grid-native thousandths of a minute.
type CellUpdate struct {
	RecordKey string
	Day       int
	Planned   bool
	Value     DurationValue
}

// Grid drives the Timesheet.aspx JSGrid: reading task rows, writing day
// cells through the validated-update pipeline, saving, and submitting.
type Grid struct {
	page Page
	opts Options
	log  *slog.Logger

	ctrl string // cached controller global name; reset on re-bind
}

// NewGrid binds the grid protocol to a live timesheet page.
func NewGrid(page Page, opts Options) *Grid {
	return &Grid{page: page, opts: opts, log: slog.Default()}
}

// controller resolves the page-global JSGrid controller variable name.
// The grid bootstraps asynchronously after the document loads, so the
// lookup retries until the global appears.
func (g *Grid) controller() (string, error) {
	if g.ctrl != "" {
		return g.ctrl, nil
	}
	for attempt := 1; attempt <= controllerAttempts; attempt++ {
		if err := g.page.WaitReady(g.opts.NavTimeout); err != nil && !IsStale(err) {
			return "", err
		}
		res, err := g.page.Evaluate(findControllerScript)
		if err != nil {
			if IsStale(err) {
				return "", err
			}
			g.log.Debug("controller lookup failed", "attempt", attempt, "error", err)
		} else if name := asString(res); name != "" {
			g.ctrl = name
			return name, nil
		}
		g.page.Sleep(2 * time.Second)
	}
	return "", fmt.Errorf("jsgrid controller not found after %d attempts", controllerAttempts)
}

// TaskRows reads every task line currently in the grid. Summary and
// total lines carry no cached assignment name and are excluded.
func (g *Grid) TaskRows() ([]types.TaskRow, error) {
	ctrl, err := g.controller()
	if err != nil {
		return nil, err
	}
	res, err := g.page.Evaluate(taskRowsScript(ctrl))
	if err != nil {
		return nil, err
	}
	return decodeTaskRows(res), nil
}

// WriteCells applies a batch of day-cell updates through the grid's own
// change tracking, then lets the grid settle. An empty batch is a no-op.
func (g *Grid) WriteCells(updates []CellUpdate) error {
	if len(updates) == 0 {
		return nil
	}
	ctrl, err := g.controller()
	if err != nil {
		return err
	}
	if _, err := g.page.Evaluate(updateCellsScript(ctrl, updates)); err != nil {
		return fmt.Errorf("apply %d cell updates: %w", len(updates), err)
	}
	g.page.Sleep(500 * time.Millisecond)
	return nil
}

// VerifyCells re-reads the grid and checks that every update landed with
// its expected localized value. Writes are not trusted until read back.
func (g *Grid) VerifyCells(updates []CellUpdate) error {
	if len(updates) == 0 {
		return nil
	}
	rows, err := g.TaskRows()
	if err != nil {
		return err
	}
	byKey := make(map[string]types.TaskRow, len(rows))
	for _, row := range rows {
		byKey[row.RecordKey] = row
	}
	for _, u := range updates {
		row, ok := byKey[u.RecordKey]
		if !ok {
			return fmt.Errorf("%w: record %q gone after write", types.ErrSaveVerification, u.RecordKey)
		}
		got := row.Actual[u.Day]
		if u.Planned {
			got = row.Planned[u.Day]
		}
		gotVal, err := ParseLocalized(got)
		if err != nil || gotVal != u.Value {
			return fmt.Errorf("%w: %s day %d reads %q, wrote %q",
				types.ErrSaveVerification, row.Label, u.Day, got, u.Value.Localized())
		}
	}
	return nil
}

// IsDirty reports whether the grid has unsaved changes.
func (g *Grid) IsDirty() (bool, error) {
	ctrl, err := g.controller()
	if err != nil {
		return false, err
	}
	res, err := g.page.Evaluate(isDirtyScript(ctrl))
	if err != nil {
		return false, err
	}
	return asBool(res), nil
}

// Save commits pending grid changes via the ribbon Save button and waits
// until the controller reports clean. A grid that is already clean saves
// trivially. The click is retried a bounded number of times because the
// ribbon occasionally swallows the first click while the grid is busy.
func (g *Grid) Save() error {
	dirty, err := g.IsDirty()
	if err != nil {
		return err
	}
	if !dirty {
		return nil
	}

	for attempt := 1; attempt <= g.opts.SaveAttempts; attempt++ {
		if err := g.clickRibbon(saveButtonSel); err != nil {
			return fmt.Errorf("click save: %w", err)
		}
		if err := g.page.WaitReady(g.opts.SaveTimeout); err != nil && !IsStale(err) {
			return err
		}

		// The dirty flag clears asynchronously after the postback.
		for poll := 0; poll < 5; poll++ {
			g.page.Sleep(time.Second)
			dirty, err = g.IsDirty()
			if err != nil {
				if IsStale(err) {
					return err
				}
				continue
			}
			if !dirty {
				return nil
			}
		}
		g.log.Warn("grid still dirty after save", "attempt", attempt)
	}
	return fmt.Errorf("%w: grid still dirty after %d save attempts",
		types.ErrSaveVerification, g.opts.SaveAttempts)
}

// PendingTotalHours sums the Actual hours of every task row as currently
// held by the grid, saved or not.
func (g *Grid) PendingTotalHours() (float64, error) {
	rows, err := g.TaskRows()
	if err != nil {
		return 0, err
	}
	return totalActualHours(rows), nil
}

// SavedTotalHours sums the Actual hours of every task row, but only once
// the grid reports clean; a dirty grid's totals are not the saved state.
func (g *Grid) SavedTotalHours() (float64, error) {
	dirty, err := g.IsDirty()
	if err != nil {
		return 0, err
	}
	if dirty {
		return 0, fmt.Errorf("%w: grid dirty when reading saved totals", types.ErrSaveVerification)
	}
	rows, err := g.TaskRows()
	if err != nil {
		return 0, err
	}
	return totalActualHours(rows), nil
}

func totalActualHours(rows []types.TaskRow) float64 {
	var total DurationValue
	for _, row := range rows {
		for _, cell := range row.Actual {
			v, err := ParseLocalized(cell)
			if err != nil {
				continue
			}
			total += v
		}
	}
	return total.Hours()
}

// Submit turns the timesheet in: Send menu, "Turn in Final Timesheet",
// then OK in the confirmation dialog SharePoint renders in a modal
// iframe. The caller saves first; Submit does not.
func (g *Grid) Submit() error {
	if err := g.clickRibbon(sendButtonSel); err != nil {
		if err2 := g.clickRibbon(sendFallbackSel); err2 != nil {
			return fmt.Errorf("open send menu: %w", err)
		}
	}
	g.page.Sleep(1500 * time.Millisecond)

	if err := g.page.Click(turnInSel, g.opts.NavTimeout); err != nil {
		// Menu may have closed; reopen and try the bare span.
		_ = g.clickRibbon(sendButtonSel)
		g.page.Sleep(time.Second)
		if err := g.page.Click(turnInSpanSel, g.opts.NavTimeout); err != nil {
			return fmt.Errorf("click turn in final timesheet: %w", err)
		}
	}
	g.page.Sleep(2 * time.Second)

	// The confirmation iframe attaches with a delay that varies wildly.
	deadline := time.Now().Add(g.opts.DialogTimeout)
	for {
		res, err := g.page.Evaluate(clickDialogOKScript)
		if err != nil && IsStale(err) {
			return err
		}
		if asBool(res) {
			break
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("%w: submit confirmation", types.ErrDialogTimeout)
		}
		g.page.Sleep(time.Second)
	}

	if err := g.page.WaitReady(g.opts.NavTimeout); err != nil && !IsStale(err) {
		return err
	}
	g.page.Sleep(2 * time.Second)
	return nil
}

// AddRowFromAssignments adds a task line to the grid by name via the
// ribbon's Add Row > From Existing Assignments dialog. The dialog tree
// starts collapsed and is expanded in passes until no node remains.
func (g *Grid) AddRowFromAssignments(name string) error {
	if err := g.clickRibbon(addRowButtonSel); err != nil {
		return fmt.Errorf("open add row menu: %w", err)
	}
	g.page.Sleep(800 * time.Millisecond)
	if err := g.page.Click(fromExistingSel, g.opts.NavTimeout); err != nil {
		return fmt.Errorf("open assignments dialog: %w", err)
	}
	g.page.Sleep(2 * time.Second)

	for pass := 0; pass < 5; pass++ {
		res, err := g.page.Evaluate(expandAssignmentTreeScript)
		if err != nil {
			if IsStale(err) {
				return err
			}
			break
		}
		if n, ok := res.(float64); !ok || n == 0 {
			break
		}
		g.page.Sleep(300 * time.Millisecond)
	}

	res, err := g.page.Evaluate(pickAssignmentScript(name))
	if err != nil {
		return err
	}
	if !asBool(res) {
		return fmt.Errorf("%w: assignment %q not in dialog", types.ErrRowNotFound, name)
	}

	g.page.Sleep(2 * time.Second)
	if err := g.page.WaitReady(g.opts.NavTimeout); err != nil && !IsStale(err) {
		return err
	}
	// The dialog postback rebuilds the grid; drop the cached controller.
	g.ctrl = ""
	return nil
}

// clickRibbon clicks a ribbon button, activating the Timesheet contextual
// tab first when the button is not currently rendered.
func (g *Grid) clickRibbon(sel string) error {
	if !g.page.Visible(sel, 2*time.Second) {
		if g.page.Visible(timesheetTabSel, time.Second) {
			if err := g.page.Click(timesheetTabSel, 2*time.Second); err == nil {
				g.page.Sleep(500 * time.Millisecond)
			}
		}
	}
	return g.page.Click(sel, 5*time.Second)
}
