// Package workflow orchestrates one timesheet week end to end: open the
// period, reconcile grid rows against the configured tasks, write the
// day cells, save with verification, and optionally submit or recall.
package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/mpalmer/tsfill/internal/pwa"
	"github.com/mpalmer/tsfill/internal/reconcile"
	"github.com/mpalmer/tsfill/pkg/types"
)

// State is a stage in a week's processing.
type State string

const (
	StateNotStarted      State = "not_started"
	StateOpened          State = "opened"
	StateReconciled      State = "reconciled"
	StateFilled          State = "filled"
	StateSaved           State = "saved"
	StateSubmitted       State = "submitted"
	StateRecallRequested State = "recall_requested"
	StateRecalled        State = "recalled"
	StateDone            State = "done"
	StateFailed          State = "failed"
)

// transitions lists the forward edges of a week's lifecycle. StateFailed
// is reachable from every non-terminal state and is not listed.
var transitions = map[State][]State{
	StateNotStarted:      {StateOpened},
	StateOpened:          {StateReconciled, StateRecallRequested},
	StateReconciled:      {StateFilled, StateDone},
	StateFilled:          {StateSaved},
	StateSaved:           {StateSubmitted, StateDone},
	StateSubmitted:       {StateDone},
	StateRecallRequested: {StateRecalled},
	StateRecalled:        {StateDone},
}

// Terminal reports whether no further transition leaves the state.
func (s State) Terminal() bool {
	return s == StateDone || s == StateFailed
}

// CanAdvance reports whether s may move to next.
func (s State) CanAdvance(next State) bool {
	if next == StateFailed {
		return !s.Terminal()
	}
	for _, t := range transitions[s] {
		if t == next {
			return true
		}
	}
	return false
}

// machine tracks a week's state and rejects illegal transitions. An
// illegal transition is a programming error, not a host condition.
type machine struct {
	state State
}

func (m *machine) advance(next State) error {
	if !m.state.CanAdvance(next) {
		return fmt.Errorf("illegal week transition %s -> %s", m.state, next)
	}
	m.state = next
	return nil
}

// Client is what the workflow needs from the timesheet protocol.
type Client interface {
	OpenWeek(ctx context.Context, week types.WeekPeriod) (types.WeekStatus, error)
	TaskRows(ctx context.Context) ([]types.TaskRow, error)
	AddTaskRow(ctx context.Context, name string) error
	WriteCells(ctx context.Context, updates []pwa.CellUpdate) error
	Save(ctx context.Context) error
	SavedTotalHours(ctx context.Context) (float64, error)
	Submit(ctx context.Context) error
	Recall(ctx context.Context, week types.WeekPeriod) error
}

// Calendar answers the working-day questions the fill pass asks.
type Calendar interface {
	ScheduledWeekday(wd time.Weekday) bool
	IsWorkDay(d time.Time) bool
	HolidayName(d time.Time) (string, bool)
}

// Week runs single weeks against a live timesheet session.
type Week struct {
	client Client
	cal    Calendar
	rules  []types.TaskRule
	log    *slog.Logger
}

// NewWeek builds a week processor from the protocol client, the working
// day calendar and the configured task rules.
func NewWeek(client Client, cal Calendar, rules []types.TaskRule) *Week {
	return &Week{client: client, cal: cal, rules: rules, log: slog.Default()}
}

// Run processes one week under the given mode and reports the outcome.
// Errors never escape; they land in the outcome so a batch can carry on
// with the remaining weeks. The one exception the caller must check for
// is ErrLoginRequired, which is fatal to the whole run.
func (w *Week) Run(ctx context.Context, week types.WeekPeriod, mode types.Mode) types.WeekOutcome {
	outcome := types.WeekOutcome{Period: week}
	m := &machine{state: StateNotStarted}

	fail := func(err error) types.WeekOutcome {
		_ = m.advance(StateFailed)
		outcome.Err = err
		w.log.Error("week failed", "week", week.String(), "state", string(m.state), "error", err)
		return outcome
	}

	if mode.Recall {
		return w.runRecall(ctx, week, mode, &outcome, m, fail)
	}

	status, err := w.client.OpenWeek(ctx, week)
	if err != nil {
		return fail(err)
	}
	outcome.Status = status
	if err := m.advance(StateOpened); err != nil {
		return fail(err)
	}
	w.log.Info("timesheet opened", "week", week.String(), "status", string(status))

	rows, err := w.client.TaskRows(ctx)
	if err != nil {
		return fail(err)
	}

	// Configured tasks missing from the grid are added from existing
	// assignments before reconciling. A task absent from the dialog too
	// is reported but does not sink the week.
	if missing := reconcile.Missing(w.rules, rows); len(missing) > 0 && !mode.DryRun {
		for _, rule := range missing {
			if err := w.client.AddTaskRow(ctx, rule.Name); err != nil {
				if errors.Is(err, types.ErrRowNotFound) {
					w.log.Warn("task not in assignments dialog", "task", rule.Name)
					continue
				}
				return fail(err)
			}
			w.log.Info("task row added", "task", rule.Name)
		}
		if rows, err = w.client.TaskRows(ctx); err != nil {
			return fail(err)
		}
	}

	actions := reconcile.Reconcile(w.rules, rows)
	if err := m.advance(StateReconciled); err != nil {
		return fail(err)
	}

	plan := w.buildPlan(week, actions)
	outcome.FilledTasks = plan.filled
	outcome.ClearedTasks = plan.cleared

	if mode.DryRun {
		w.logPlan(week, plan)
		outcome.SavedTotal = plan.intendedTotal.Hours()
		_ = m.advance(StateDone)
		return outcome
	}

	if err := w.client.WriteCells(ctx, plan.updates); err != nil {
		return fail(err)
	}
	if err := m.advance(StateFilled); err != nil {
		return fail(err)
	}

	if err := w.client.Save(ctx); err != nil {
		return fail(err)
	}

	saved, err := w.client.SavedTotalHours(ctx)
	if err != nil {
		return fail(err)
	}
	if intended := plan.intendedTotal.Hours(); math.Abs(saved-intended) > 1e-3 {
		return fail(fmt.Errorf("%w: saved total %.2fh, intended %.2fh",
			types.ErrSaveVerification, saved, intended))
	}
	outcome.SavedTotal = saved
	if err := m.advance(StateSaved); err != nil {
		return fail(err)
	}
	w.log.Info("timesheet saved", "week", week.String(), "total_hours", saved)

	if mode.Submit {
		if err := w.client.Submit(ctx); err != nil {
			return fail(err)
		}
		outcome.Submitted = true
		if err := m.advance(StateSubmitted); err != nil {
			return fail(err)
		}
		w.log.Info("timesheet submitted", "week", week.String())
	}

	_ = m.advance(StateDone)
	return outcome
}

func (w *Week) runRecall(ctx context.Context, week types.WeekPeriod, mode types.Mode,
	outcome *types.WeekOutcome, m *machine, fail func(error) types.WeekOutcome) types.WeekOutcome {

	if mode.DryRun {
		w.log.Info("dry run: would recall", "week", week.String())
		_ = m.advance(StateOpened)
		_ = m.advance(StateRecallRequested)
		_ = m.advance(StateRecalled)
		_ = m.advance(StateDone)
		return *outcome
	}

	if err := m.advance(StateOpened); err != nil {
		return fail(err)
	}
	if err := m.advance(StateRecallRequested); err != nil {
		return fail(err)
	}
	if err := w.client.Recall(ctx, week); err != nil {
		return fail(err)
	}
	outcome.Recalled = true
	if err := m.advance(StateRecalled); err != nil {
		return fail(err)
	}
	w.log.Info("timesheet recalled", "week", week.String())
	_ = m.advance(StateDone)
	return *outcome
}

// plan is the computed write set for one week.
type plan struct {
	updates       []pwa.CellUpdate
	intendedTotal pwa.DurationValue
	filled        int
	cleared       int
	holidays      []string
}

// buildPlan turns per-row actions into the minimal cell-update batch.
//
// Only scheduled weekdays are touched: a scheduled day that is a working
// day gets the rule's hours (or the planned value under use_planned),
// a scheduled day that falls on a holiday is cleared if it carries
// hours, and unscheduled days are left exactly as found. Cells already
// holding the desired value produce no update, which makes a repeat run
// over an unchanged grid write nothing.
//
// intendedTotal is the Actual sum the whole grid should hold after the
// plan lands, which is what the post-save read-back reports. Cells the
// plan leaves alone (unscheduled days, skipped rows) keep their as-found
// hours and count toward it just like written cells do.
func (w *Week) buildPlan(week types.WeekPeriod, actions []types.RowAction) plan {
	var p plan
	seenHoliday := map[string]bool{}

	for _, action := range actions {
		switch action.Kind {
		case types.ActionSkip:
			p.intendedTotal += rowActualTotal(action.Row)

		case types.ActionClear:
			if w.clearRow(&p, action.Row) {
				p.cleared++
			}

		case types.ActionFill, types.ActionCopyPlanned:
			touched := false
			for day := 0; day < 7; day++ {
				date := week.Start.AddDate(0, 0, day)
				current, _ := pwa.ParseLocalized(action.Row.Actual[day])
				if !w.cal.ScheduledWeekday(date.Weekday()) {
					p.intendedTotal += current
					continue
				}
				desired := pwa.DurationValue(0)
				if w.cal.IsWorkDay(date) {
					if action.Kind == types.ActionCopyPlanned {
						desired, _ = pwa.ParseLocalized(action.Row.Planned[day])
					} else {
						desired, _ = pwa.DurationFromHours(action.Rule.HoursPerDay)
					}
				} else if name, ok := w.cal.HolidayName(date); ok && !seenHoliday[name] {
					seenHoliday[name] = true
					p.holidays = append(p.holidays, fmt.Sprintf("%s (%s)", name, date.Format(types.DateLayout)))
				}
				if current != desired {
					p.updates = append(p.updates, pwa.CellUpdate{
						RecordKey: action.Row.RecordKey,
						Day:       day,
						Value:     desired,
					})
					touched = true
				}
				p.intendedTotal += desired
			}
			if action.Rule != nil && action.Rule.ClearPlanned {
				// Planned is zeroed on scheduled days only; weekend and
				// other unscheduled Planned values stay as found.
				for day := 0; day < 7; day++ {
					if !w.cal.ScheduledWeekday(week.Start.AddDate(0, 0, day).Weekday()) {
						continue
					}
					current, _ := pwa.ParseLocalized(action.Row.Planned[day])
					if !current.IsZero() {
						p.updates = append(p.updates, pwa.CellUpdate{
							RecordKey: action.Row.RecordKey,
							Day:       day,
							Planned:   true,
						})
						touched = true
					}
				}
			}
			if touched {
				p.filled++
			}

		}
	}
	return p
}

// rowActualTotal sums a row's Actual cells as currently held by the grid.
func rowActualTotal(row types.TaskRow) pwa.DurationValue {
	var total pwa.DurationValue
	for day := 0; day < 7; day++ {
		v, _ := pwa.ParseLocalized(row.Actual[day])
		total += v
	}
	return total
}

// clearRow zeroes every nonzero Actual and Planned cell of an unmatched
// row. Reports whether any cell actually needed clearing.
func (w *Week) clearRow(p *plan, row types.TaskRow) bool {
	touched := false
	for day := 0; day < 7; day++ {
		if v, _ := pwa.ParseLocalized(row.Actual[day]); !v.IsZero() {
			p.updates = append(p.updates, pwa.CellUpdate{RecordKey: row.RecordKey, Day: day})
			touched = true
		}
		if v, _ := pwa.ParseLocalized(row.Planned[day]); !v.IsZero() {
			p.updates = append(p.updates, pwa.CellUpdate{RecordKey: row.RecordKey, Day: day, Planned: true})
			touched = true
		}
	}
	return touched
}

func (w *Week) logPlan(week types.WeekPeriod, p plan) {
	w.log.Info("dry run: computed plan",
		"week", week.String(),
		"updates", len(p.updates),
		"filled_tasks", p.filled,
		"cleared_tasks", p.cleared,
		"intended_hours", p.intendedTotal.Hours())
	for _, h := range p.holidays {
		w.log.Info("dry run: holiday excluded", "week", week.String(), "holiday", h)
	}
}
