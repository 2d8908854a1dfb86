package workflow

import (
	"context"
	"time"

	"github.com/mpalmer/tsfill/internal/pwa"
	"github.com/mpalmer/tsfill/pkg/types"
)

// FakeClient is a configurable Client for tests. Unset function fields
// fall back to benign defaults; the Writes and Added slices record what
// the workflow asked for.
type FakeClient struct {
	OpenWeekFunc        func(ctx context.Context, week types.WeekPeriod) (types.WeekStatus, error)
	TaskRowsFunc        func(ctx context.Context) ([]types.TaskRow, error)
	AddTaskRowFunc      func(ctx context.Context, name string) error
	WriteCellsFunc      func(ctx context.Context, updates []pwa.CellUpdate) error
	SaveFunc            func(ctx context.Context) error
	SavedTotalHoursFunc func(ctx context.Context) (float64, error)
	SubmitFunc          func(ctx context.Context) error
	RecallFunc          func(ctx context.Context, week types.WeekPeriod) error

	Writes    [][]pwa.CellUpdate
	Added     []string
	Saves     int
	Submits   int
	Recalls   int
	OpenWeeks []types.WeekPeriod
}

var _ Client = (*FakeClient)(nil)

func (c *FakeClient) OpenWeek(ctx context.Context, week types.WeekPeriod) (types.WeekStatus, error) {
	c.OpenWeeks = append(c.OpenWeeks, week)
	if c.OpenWeekFunc != nil {
		return c.OpenWeekFunc(ctx, week)
	}
	return types.WeekAlreadyExisted, nil
}

func (c *FakeClient) TaskRows(ctx context.Context) ([]types.TaskRow, error) {
	if c.TaskRowsFunc != nil {
		return c.TaskRowsFunc(ctx)
	}
	return nil, nil
}

func (c *FakeClient) AddTaskRow(ctx context.Context, name string) error {
	c.Added = append(c.Added, name)
	if c.AddTaskRowFunc != nil {
		return c.AddTaskRowFunc(ctx, name)
	}
	return nil
}

func (c *FakeClient) WriteCells(ctx context.Context, updates []pwa.CellUpdate) error {
	c.Writes = append(c.Writes, updates)
	if c.WriteCellsFunc != nil {
		return c.WriteCellsFunc(ctx, updates)
	}
	return nil
}

func (c *FakeClient) Save(ctx context.Context) error {
	c.Saves++
	if c.SaveFunc != nil {
		return c.SaveFunc(ctx)
	}
	return nil
}

func (c *FakeClient) SavedTotalHours(ctx context.Context) (float64, error) {
	if c.SavedTotalHoursFunc != nil {
		return c.SavedTotalHoursFunc(ctx)
	}
	return 0, nil
}

func (c *FakeClient) Submit(ctx context.Context) error {
	c.Submits++
	if c.SubmitFunc != nil {
		return c.SubmitFunc(ctx)
	}
	return nil
}

func (c *FakeClient) Recall(ctx context.Context, week types.WeekPeriod) error {
	c.Recalls++
	if c.RecallFunc != nil {
		return c.RecallFunc(ctx, week)
	}
	return nil
}

// FakeCalendar schedules Monday through Friday and treats the dates in
// Holidays as non-working.
type FakeCalendar struct {
	Holidays map[string]string // "2006-01-02" -> holiday name
}

var _ Calendar = (*FakeCalendar)(nil)

func (c *FakeCalendar) ScheduledWeekday(wd time.Weekday) bool {
	return wd != time.Saturday && wd != time.Sunday
}

func (c *FakeCalendar) IsWorkDay(d time.Time) bool {
	if !c.ScheduledWeekday(d.Weekday()) {
		return false
	}
	_, holiday := c.Holidays[d.Format("2006-01-02")]
	return !holiday
}

func (c *FakeCalendar) HolidayName(d time.Time) (string, bool) {
	name, ok := c.Holidays[d.Format("2006-01-02")]
	return name, ok
}
