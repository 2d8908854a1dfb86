package pwa

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mpalmer/tsfill/pkg/types"
)

func summaryTable() []any {
	return []any{
		[]any{"Timesheet", "Period", "Status"}, // header-ish row, no dates
		[]any{"My Timesheet", "29 (05/01/2026 - 11/01/2026)", "In Progress", "40h"},
		[]any{"Click to Create", "30 (12/01/2026 - 18/01/2026)", "Not Yet Created", ""},
		[]any{"My Timesheet", "28 (29/12/2025 - 04/01/2026)", "Submitted", "38h"},
	}
}

// summaryEvaluate dispatches the protocol's scripts against the canned
// summary table.
func summaryEvaluate(clicked *string) func(string) (any, error) {
	return func(script string) (any, error) {
		switch {
		case strings.Contains(script, "link.click"):
			if clicked != nil {
				*clicked = script
			}
			return "Click to Create", nil
		case strings.Contains(script, "cell.click"):
			return true, nil
		case strings.Contains(script, "table tr"):
			return summaryTable(), nil
		}
		return nil, nil
	}
}

func week(start time.Time) types.WeekPeriod {
	return types.WeekPeriod{Start: start, End: start.AddDate(0, 0, 6)}
}

func jan5() time.Time { return time.Date(2026, time.January, 5, 0, 0, 0, 0, time.Local) }

func TestSummaryNavigateLoginRedirect(t *testing.T) {
	page := &FakePage{
		URLFunc: func() string {
			return "https://login.microsoftonline.com/common/oauth2/authorize"
		},
	}
	s := NewSummary(page, testOptions())

	err := s.Navigate()
	assert.ErrorIs(t, err, types.ErrLoginRequired)
}

func TestSummaryPeriods(t *testing.T) {
	page := &FakePage{EvaluateFunc: summaryEvaluate(nil)}
	s := NewSummary(page, testOptions())

	periods, err := s.Periods()
	require.NoError(t, err)
	require.Len(t, periods, 3)
	assert.Equal(t, types.StatusInProgress, periods[0].Status)
	assert.Equal(t, jan5(), periods[0].Period.Start)
	assert.Equal(t, types.StatusSubmitted, periods[2].Status)
}

func TestSummaryOpenCreatesMissingWeek(t *testing.T) {
	page := &FakePage{EvaluateFunc: summaryEvaluate(nil)}
	s := NewSummary(page, testOptions())

	status, err := s.Open(week(jan5().AddDate(0, 0, 7)))
	require.NoError(t, err)
	assert.Equal(t, types.WeekCreated, status)
}

func TestSummaryOpenExistingWeek(t *testing.T) {
	page := &FakePage{EvaluateFunc: summaryEvaluate(nil)}
	s := NewSummary(page, testOptions())

	status, err := s.Open(week(jan5()))
	require.NoError(t, err)
	assert.Equal(t, types.WeekAlreadyExisted, status)
}

func TestSummaryOpenUnknownWeek(t *testing.T) {
	page := &FakePage{EvaluateFunc: summaryEvaluate(nil)}
	s := NewSummary(page, testOptions())

	_, err := s.Open(week(jan5().AddDate(0, 0, 70)))
	assert.ErrorIs(t, err, types.ErrPeriodNotFound)
}

func TestSummaryOpenNotEditable(t *testing.T) {
	page := &FakePage{EvaluateFunc: summaryEvaluate(nil)}
	s := NewSummary(page, testOptions())

	// Week of 29/12/2025 is already submitted.
	_, err := s.Open(week(jan5().AddDate(0, 0, -7)))
	assert.ErrorIs(t, err, types.ErrNotEditable)
}

func TestSummaryRecallNotRecallable(t *testing.T) {
	page := &FakePage{EvaluateFunc: summaryEvaluate(nil)}
	s := NewSummary(page, testOptions())

	err := s.Recall(week(jan5()))
	assert.ErrorIs(t, err, types.ErrNotRecallable)
}

func TestSummaryRecallDialogTimeout(t *testing.T) {
	page := &FakePage{
		EvaluateFunc: summaryEvaluate(nil),
		ArmDialogFunc: func() (<-chan string, func()) {
			// Armed but never fired.
			return make(chan string), func() {}
		},
	}
	s := NewSummary(page, testOptions())

	err := s.Recall(week(jan5().AddDate(0, 0, -7)))
	assert.ErrorIs(t, err, types.ErrDialogTimeout)
}

func TestSummaryRecallVerifiesStatus(t *testing.T) {
	recalled := false
	page := &FakePage{
		ClickFunc: func(selector string, timeout time.Duration) error {
			if selector == recallSelectors[0] {
				recalled = true
			}
			return nil
		},
		EvaluateFunc: func(script string) (any, error) {
			switch {
			case strings.Contains(script, "cell.click"):
				return true, nil
			case strings.Contains(script, "table tr"):
				table := summaryTable()
				if recalled {
					// After the recall the row reads In Progress.
					table[3] = []any{"My Timesheet", "28 (29/12/2025 - 04/01/2026)", "In Progress", "38h"}
				}
				return table, nil
			}
			return nil, nil
		},
	}
	s := NewSummary(page, testOptions())

	require.NoError(t, s.Recall(week(jan5().AddDate(0, 0, -7))))
	assert.True(t, recalled)
}
