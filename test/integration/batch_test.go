// Package integration exercises the full week pipeline: runner over
// workflow over reconciler, against a faked timesheet protocol.
package integration

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mpalmer/tsfill/internal/pwa"
	"github.com/mpalmer/tsfill/internal/runner"
	"github.com/mpalmer/tsfill/internal/workflow"
	"github.com/mpalmer/tsfill/pkg/types"
)

// fakeHost simulates the grid server side: it applies cell writes to an
// in-memory sheet per week and serves totals from it.
type fakeHost struct {
	mu     sync.Mutex
	sheets map[string]map[string][7]pwa.DurationValue // week -> record -> days
	week   string
}

func newFakeHost() *fakeHost {
	return &fakeHost{sheets: map[string]map[string][7]pwa.DurationValue{}}
}

func (h *fakeHost) open(week types.WeekPeriod) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.week = week.String()
	if h.sheets[h.week] == nil {
		h.sheets[h.week] = map[string][7]pwa.DurationValue{}
	}
}

func (h *fakeHost) apply(updates []pwa.CellUpdate) {
	h.mu.Lock()
	defer h.mu.Unlock()
	sheet := h.sheets[h.week]
	for _, u := range updates {
		if u.Planned {
			continue
		}
		days := sheet[u.RecordKey]
		days[u.Day] = u.Value
		sheet[u.RecordKey] = days
	}
}

func (h *fakeHost) total() float64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	var total pwa.DurationValue
	for _, days := range h.sheets[h.week] {
		for _, v := range days {
			total += v
		}
	}
	return total.Hours()
}

func (h *fakeHost) rows() []types.TaskRow {
	h.mu.Lock()
	defer h.mu.Unlock()
	row := types.TaskRow{RecordKey: "rec-dev", Label: "ST-333 Development"}
	for i, v := range h.sheets[h.week]["rec-dev"] {
		if !v.IsZero() {
			row.Actual[i] = v.Localized()
		}
	}
	return []types.TaskRow{row}
}

func hostClient(h *fakeHost) *workflow.FakeClient {
	return &workflow.FakeClient{
		OpenWeekFunc: func(ctx context.Context, week types.WeekPeriod) (types.WeekStatus, error) {
			h.open(week)
			return types.WeekCreated, nil
		},
		TaskRowsFunc: func(ctx context.Context) ([]types.TaskRow, error) {
			return h.rows(), nil
		},
		WriteCellsFunc: func(ctx context.Context, updates []pwa.CellUpdate) error {
			h.apply(updates)
			return nil
		},
		SavedTotalHoursFunc: func(ctx context.Context) (float64, error) {
			return h.total(), nil
		},
	}
}

func TestBatchFillsFiveWeeks(t *testing.T) {
	host := newFakeHost()
	client := hostClient(host)
	rules := []types.TaskRule{{Name: "ST-333", HoursPerDay: 8}}
	cal := &workflow.FakeCalendar{Holidays: map[string]string{
		"2026-01-26": "Australia Day",
	}}

	week := workflow.NewWeek(client, cal, rules)
	run := runner.New(week, nil)

	start := time.Date(2026, time.January, 5, 0, 0, 0, 0, time.Local)
	var weeks []types.WeekPeriod
	for i := 0; i < 5; i++ {
		monday := start.AddDate(0, 0, 7*i)
		weeks = append(weeks, types.WeekPeriod{Start: monday, End: monday.AddDate(0, 0, 6)})
	}

	report, err := run.Run(context.Background(), weeks, types.Mode{})
	require.NoError(t, err)
	assert.Equal(t, runner.ResultSuccess, report.Result())
	require.Len(t, report.Outcomes, 5)

	// Four plain 40h weeks plus the Australia Day week at 32h.
	assert.InDelta(t, 192, report.TotalHours(), 1e-9)
	for i, o := range report.Outcomes {
		expected := 40.0
		if i == 3 {
			expected = 32.0
		}
		assert.InDelta(t, expected, o.SavedTotal, 1e-9, "week %d", i)
	}
	assert.Equal(t, 5, client.Saves)
}

func TestBatchRerunIsIdempotent(t *testing.T) {
	host := newFakeHost()
	client := hostClient(host)
	rules := []types.TaskRule{{Name: "ST-333", HoursPerDay: 8}}
	week := workflow.NewWeek(client, &workflow.FakeCalendar{}, rules)
	run := runner.New(week, nil)

	monday := time.Date(2026, time.January, 5, 0, 0, 0, 0, time.Local)
	weeks := []types.WeekPeriod{{Start: monday, End: monday.AddDate(0, 0, 6)}}

	_, err := run.Run(context.Background(), weeks, types.Mode{})
	require.NoError(t, err)
	require.Len(t, client.Writes, 1)
	assert.Len(t, client.Writes[0], 5)

	// Second run over the already-filled sheet writes nothing.
	report, err := run.Run(context.Background(), weeks, types.Mode{})
	require.NoError(t, err)
	assert.Equal(t, runner.ResultSuccess, report.Result())
	require.Len(t, client.Writes, 2)
	assert.Empty(t, client.Writes[1])
}

func TestBatchPartialFailure(t *testing.T) {
	host := newFakeHost()
	client := hostClient(host)
	badWeek := time.Date(2026, time.January, 12, 0, 0, 0, 0, time.Local)
	client.SaveFunc = func(ctx context.Context) error {
		if host.week == fmt.Sprintf("%s - %s",
			badWeek.Format(types.DateLayout), badWeek.AddDate(0, 0, 6).Format(types.DateLayout)) {
			return fmt.Errorf("%w: grid still dirty after 3 save attempts", types.ErrSaveVerification)
		}
		return nil
	}

	rules := []types.TaskRule{{Name: "ST-333", HoursPerDay: 8}}
	week := workflow.NewWeek(client, &workflow.FakeCalendar{}, rules)
	run := runner.New(week, nil)

	start := time.Date(2026, time.January, 5, 0, 0, 0, 0, time.Local)
	var weeks []types.WeekPeriod
	for i := 0; i < 3; i++ {
		monday := start.AddDate(0, 0, 7*i)
		weeks = append(weeks, types.WeekPeriod{Start: monday, End: monday.AddDate(0, 0, 6)})
	}

	report, err := run.Run(context.Background(), weeks, types.Mode{})
	require.NoError(t, err)
	assert.Equal(t, runner.ResultPartialFailure, report.Result())
	require.Len(t, report.Outcomes, 3)

	failed := report.FailedPeriods()
	require.Len(t, failed, 1)
	assert.Equal(t, badWeek, failed[0].Start)
	assert.ErrorIs(t, report.Outcomes[1].Err, types.ErrSaveVerification)
	assert.NoError(t, report.Outcomes[0].Err)
	assert.NoError(t, report.Outcomes[2].Err)
}
