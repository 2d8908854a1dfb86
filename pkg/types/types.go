// Package types defines the core domain model shared by the tsfill packages.
package types

import (
	"time"
)

// DateLayout is the day-month-year format the PWA summary page renders
// period boundaries in, e.g. "20/07/2026".
const DateLayout = "02/01/2006"

// WeekPeriod identifies one timesheet week: a 7-day span aligned to the
// host application's period boundaries (Monday through Sunday), both ends
// inclusive. Periods are produced by the calendar expander and never
// mutated; the host application owns period identity server-side.
type WeekPeriod struct {
	Start time.Time
	End   time.Time
}

// Days returns the seven dates of the period in order.
func (p WeekPeriod) Days() []time.Time {
	days := make([]time.Time, 7)
	for i := range days {
		days[i] = p.Start.AddDate(0, 0, i)
	}
	return days
}

// Contains reports whether d falls inside the period (inclusive).
func (p WeekPeriod) Contains(d time.Time) bool {
	d = Midnight(d)
	return !d.Before(Midnight(p.Start)) && !d.After(Midnight(p.End))
}

func (p WeekPeriod) String() string {
	return p.Start.Format(DateLayout) + " - " + p.End.Format(DateLayout)
}

// Midnight truncates t to 00:00 in its own location. Period arithmetic is
// done on whole days only.
func Midnight(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// TimesheetStatus is the status string a period row carries on the
// MyTSSummary page.
type TimesheetStatus string

const (
	StatusNotYetCreated TimesheetStatus = "not yet created"
	StatusInProgress    TimesheetStatus = "in progress"
	StatusSubmitted     TimesheetStatus = "submitted"
	StatusApproved      TimesheetStatus = "approved"
	StatusRejected      TimesheetStatus = "rejected"
	StatusPeriodClosed  TimesheetStatus = "period closed"
	StatusUnknown       TimesheetStatus = "unknown"
)

// Editable reports whether a timesheet in this status can be opened for
// data entry. Only not-yet-created and in-progress sheets are editable.
func (s TimesheetStatus) Editable() bool {
	return s == StatusNotYetCreated || s == StatusInProgress
}

// Recallable reports whether a timesheet in this status can be recalled
// back to in-progress.
func (s TimesheetStatus) Recallable() bool {
	return s == StatusSubmitted || s == StatusApproved
}

// TaskRule is one configured task. Name is matched as a case-sensitive
// substring of the grid's task label; configuration order decides ties
// (first match wins). At most one of HoursPerDay / UsePlanned is
// meaningful per rule.
type TaskRule struct {
	Name         string  `yaml:"name"`
	HoursPerDay  float64 `yaml:"default_hours_per_day"`
	UsePlanned   bool    `yaml:"use_planned"`
	ClearPlanned bool    `yaml:"clear_planned"`
}

// TaskRow is one task row observed in a week's grid. Actual and Planned
// hold the localized duration strings ("8h", "7.6h", "" for empty) for the
// seven day columns Monday..Sunday.
type TaskRow struct {
	RecordKey string
	Label     string
	Actual    [7]string
	Planned   [7]string
}

// HasHours reports whether the row carries any non-zero Actual or Planned
// value.
func (r TaskRow) HasHours() bool {
	for i := 0; i < 7; i++ {
		if nonZeroDuration(r.Actual[i]) || nonZeroDuration(r.Planned[i]) {
			return true
		}
	}
	return false
}

func nonZeroDuration(s string) bool {
	switch s {
	case "", "0", "0h":
		return false
	}
	return true
}

// ActionKind classifies what the reconciler decided for a grid row.
type ActionKind string

const (
	ActionFill        ActionKind = "fill"         // write a fixed value per work day
	ActionCopyPlanned ActionKind = "copy_planned" // write Actual = current Planned
	ActionClear       ActionKind = "clear"        // zero Actual and Planned
	ActionSkip        ActionKind = "skip"         // row untouched
)

// RowAction is the resolved action for one grid row in one week. Computed
// fresh per week; grid rows vary as tasks are added or removed server-side.
type RowAction struct {
	Row  TaskRow
	Kind ActionKind
	// Rule is the matching configured rule, nil for Clear and Skip.
	Rule *TaskRule
}

// WeekStatus records whether the workflow had to create the week's
// timesheet or found one already open.
type WeekStatus string

const (
	WeekCreated        WeekStatus = "created"
	WeekAlreadyExisted WeekStatus = "already_existed"
)

// Mode selects what a run does with each week beyond filling it.
// Submit and Recall are mutually exclusive for a given run.
type Mode struct {
	DryRun bool
	Submit bool
	Recall bool
}

// WeekOutcome is the immutable result of driving one week through the
// workflow. Err is nil unless the week failed.
type WeekOutcome struct {
	Period       WeekPeriod
	Status       WeekStatus
	FilledTasks  int
	ClearedTasks int
	SavedTotal   float64 // hours persisted by the host, read back after save
	Submitted    bool
	Recalled     bool
	Err          error
}

// Failed reports whether the week ended in the workflow's terminal Failed
// state.
func (o WeekOutcome) Failed() bool { return o.Err != nil }

// PeriodInfo is one row of the summary page's period list, as shown by the
// periods command.
type PeriodInfo struct {
	Name   string
	Period WeekPeriod
	Status TimesheetStatus
}
