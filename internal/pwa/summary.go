package pwa

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/mpalmer/tsfill/pkg/types"
)

// Ribbon selectors on the summary page. The recall button ID varies by
// tenant, so several patterns are tried in order.
var recallSelectors = []string{
	`a[id*='Recall']`,
	`a[id*='recall']`,
	`span:has-text('Recall')`,
	`a:has(img[alt*='Recall'])`,
}

const summaryTabSel = `li[id='Ribbon.ContextualTabs.TiedMode.Home-title'] a`

// Summary drives the MyTSSummary.aspx period list: finding the row for a
// week, opening (or creating) its timesheet, and recalling submitted ones.
type Summary struct {
	page Page
	opts Options
	log  *slog.Logger
}

// NewSummary binds the summary-page protocol to a live page.
func NewSummary(page Page, opts Options) *Summary {
	return &Summary{page: page, opts: opts, log: slog.Default()}
}

// Navigate goes to the summary page. A redirect to the Microsoft login
// host means the saved session has expired; that is fatal to the run, not
// to the week, so it surfaces as ErrLoginRequired.
func (s *Summary) Navigate() error {
	if err := s.page.Goto(s.opts.SummaryURL, s.opts.NavTimeout); err != nil {
		return fmt.Errorf("navigate to summary page: %w", err)
	}
	if err := s.page.WaitReady(s.opts.NavTimeout); err != nil {
		return err
	}
	if IsLoginURL(s.page.URL()) {
		return types.ErrLoginRequired
	}
	return nil
}

// IsLoginURL reports whether u points at the Microsoft sign-in host.
func IsLoginURL(u string) bool {
	return strings.Contains(u, "login.microsoftonline.com")
}

// periodRow is one summary row that carries a parseable date range.
type periodRow struct {
	idx    int // index among rows with >= 3 cells, as the scripts count
	period types.WeekPeriod
	cells  []string
	status types.TimesheetStatus
}

func (s *Summary) periodRows() ([]periodRow, error) {
	raw, err := s.page.Evaluate(summaryRowsScript)
	if err != nil {
		return nil, err
	}
	var rows []periodRow
	for idx, item := range asSlice(raw) {
		cells := asStringSlice(item)
		period, ok := extractPeriod(cells)
		if !ok {
			continue
		}
		rows = append(rows, periodRow{
			idx:    idx,
			period: period,
			cells:  cells,
			status: extractStatus(cells),
		})
	}
	return rows, nil
}

// Periods lists every visible timesheet period with its status.
func (s *Summary) Periods() ([]types.PeriodInfo, error) {
	rows, err := s.periodRows()
	if err != nil {
		return nil, err
	}
	infos := make([]types.PeriodInfo, 0, len(rows))
	for _, row := range rows {
		name := ""
		if len(row.cells) > 0 {
			name = row.cells[0]
		}
		infos = append(infos, types.PeriodInfo{
			Name:   name,
			Period: row.period,
			Status: row.status,
		})
	}
	return infos, nil
}

// findWeek locates the row whose period contains the week's start date.
func (s *Summary) findWeek(week types.WeekPeriod) (periodRow, error) {
	rows, err := s.periodRows()
	if err != nil {
		return periodRow{}, err
	}
	for _, row := range rows {
		if row.period.Contains(week.Start) {
			return row, nil
		}
	}
	return periodRow{}, fmt.Errorf("%w: week starting %s",
		types.ErrPeriodNotFound, week.Start.Format(types.DateLayout))
}

// Open opens the timesheet for the week, creating it first when the host
// reports the period as not yet created. Opening an already-in-progress
// sheet just follows its "My Timesheet" link, so the operation is
// idempotent: a period is never created twice.
func (s *Summary) Open(week types.WeekPeriod) (types.WeekStatus, error) {
	row, err := s.findWeek(week)
	if err != nil {
		return "", err
	}
	if !row.status.Editable() {
		return "", fmt.Errorf("%w: week %s has status %q",
			types.ErrNotEditable, week, row.status)
	}

	res, err := s.page.Evaluate(clickRowLinkScript(row.idx))
	if err != nil {
		return "", err
	}
	linkText := asString(res)
	if linkText == "" {
		return "", fmt.Errorf("no open link in summary row for week %s", week)
	}
	s.log.Debug("opened timesheet", "week", week.String(), "link", linkText, "status", string(row.status))

	// Creating a new timesheet redirects; wait for the grid to settle.
	if err := s.page.WaitReady(s.opts.NavTimeout); err != nil && !IsStale(err) {
		return "", err
	}

	if row.status == types.StatusNotYetCreated {
		return types.WeekCreated, nil
	}
	return types.WeekAlreadyExisted, nil
}

// selectRow clicks a row so the ribbon enables its contextual buttons.
func (s *Summary) selectRow(idx int) error {
	res, err := s.page.Evaluate(selectRowScript(idx))
	if err != nil {
		return err
	}
	if !asBool(res) {
		return fmt.Errorf("could not select summary row %d", idx)
	}
	s.page.Sleep(time.Second)
	return nil
}

// Recall brings a submitted or approved timesheet back to in-progress.
//
// The Recall ribbon button triggers a native window.confirm; its handler
// is armed before the click, because the dialog is modal and no code
// would otherwise be watching for it. The recall is then verified by
// re-reading the row's status.
func (s *Summary) Recall(week types.WeekPeriod) error {
	if !strings.Contains(s.page.URL(), "MyTSSummary") {
		if err := s.Navigate(); err != nil {
			return err
		}
	}

	row, err := s.findWeek(week)
	if err != nil {
		return err
	}
	if !row.status.Recallable() {
		return fmt.Errorf("%w: week %s has status %q",
			types.ErrNotRecallable, week, row.status)
	}
	if err := s.selectRow(row.idx); err != nil {
		return err
	}

	sel, ok := s.findRecallButton()
	if !ok {
		// The contextual tab may not be active; activate it, re-select
		// (the tab click can deselect the row), and look again.
		if s.page.Visible(summaryTabSel, time.Second) {
			_ = s.page.Click(summaryTabSel, time.Second)
			s.page.Sleep(time.Second)
		}
		if err := s.selectRow(row.idx); err != nil {
			return err
		}
		if sel, ok = s.findRecallButton(); !ok {
			return fmt.Errorf("recall button not found in ribbon for week %s", week)
		}
	}

	dialogs, disarm := s.page.ArmDialog()
	defer disarm()

	if err := s.page.Click(sel, s.opts.NavTimeout); err != nil {
		return fmt.Errorf("click recall: %w", err)
	}

	select {
	case msg := <-dialogs:
		s.log.Debug("recall dialog accepted", "message", msg)
	case <-time.After(s.opts.DialogTimeout):
		return fmt.Errorf("%w: recall confirmation for week %s", types.ErrDialogTimeout, week)
	}

	if err := s.page.WaitReady(s.opts.NavTimeout); err != nil && !IsStale(err) {
		return err
	}
	s.page.Sleep(2 * time.Second)

	// The ack alone is not trusted; read the status back.
	if err := s.Navigate(); err != nil {
		return err
	}
	row, err = s.findWeek(week)
	if err != nil {
		return err
	}
	if !row.status.Editable() {
		return fmt.Errorf("recall did not take effect: week %s still %q", week, row.status)
	}
	return nil
}

func (s *Summary) findRecallButton() (string, bool) {
	for _, sel := range recallSelectors {
		if s.page.Visible(sel, time.Second) {
			return sel, true
		}
	}
	return "", false
}
