package pwa

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mpalmer/tsfill/pkg/types"
)

func testOptions() Options {
	return Options{
		SummaryURL:    "https://pwa.example.com/Timesheet/MyTSSummary.aspx",
		NavTimeout:    time.Second,
		SaveTimeout:   time.Second,
		DialogTimeout: 50 * time.Millisecond,
		StaleAttempts: 2,
		SaveAttempts:  2,
	}
}

func gridRows(actual, planned [7]string) []any {
	toAny := func(v [7]string) []any {
		out := make([]any, 7)
		for i, s := range v {
			out[i] = s
		}
		return out
	}
	return []any{map[string]any{
		"key":     "rec-1",
		"name":    "ST-333 Development",
		"actual":  toAny(actual),
		"planned": toAny(planned),
	}}
}

func TestGridTaskRows(t *testing.T) {
	page := &FakePage{
		EvaluateFunc: func(script string) (any, error) {
			switch {
			case strings.Contains(script, "GetViewRecordCount"):
				return gridRows([7]string{"8h"}, [7]string{}), nil
			case strings.Contains(script, "JSGridController"):
				return "g_JSGridController_0", nil
			}
			return nil, nil
		},
	}
	grid := NewGrid(page, testOptions())

	rows, err := grid.TaskRows()
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "ST-333 Development", rows[0].Label)
	assert.Equal(t, "8h", rows[0].Actual[0])

	// The controller name is resolved once and cached.
	rows, err = grid.TaskRows()
	require.NoError(t, err)
	require.Len(t, rows, 1)
	lookups := 0
	for _, s := range page.Scripts {
		if strings.Contains(s, "for (let key in window)") {
			lookups++
		}
	}
	assert.Equal(t, 1, lookups)
}

func TestGridWriteCellsEmptyBatch(t *testing.T) {
	page := &FakePage{}
	grid := NewGrid(page, testOptions())

	require.NoError(t, grid.WriteCells(nil))
	assert.Empty(t, page.Scripts)
}

func TestGridWriteCells(t *testing.T) {
	page := &FakePage{
		EvaluateFunc: func(script string) (any, error) {
			if strings.Contains(script, "JSGridController") {
				return "ctrl", nil
			}
			return nil, nil
		},
	}
	grid := NewGrid(page, testOptions())

	err := grid.WriteCells([]CellUpdate{
		{RecordKey: "rec-1", Day: 0, Value: 480000},
		{RecordKey: "rec-1", Day: 1, Planned: true},
	})
	require.NoError(t, err)

	var applied string
	for _, s := range page.Scripts {
		if strings.Contains(s, "CreateValidatedPropertyUpdate") {
			applied = s
		}
	}
	require.NotEmpty(t, applied)
	assert.Contains(t, applied, `"TPD_col0a", 480000, "8h"`)
	assert.Contains(t, applied, `"TPD_col1p", 0, "0h"`)
	assert.Contains(t, applied, "notifyWritePending")
	assert.Contains(t, applied, "RefreshAllRows")
}

func TestGridVerifyCells(t *testing.T) {
	actual := [7]string{"8h"}
	page := &FakePage{
		EvaluateFunc: func(script string) (any, error) {
			switch {
			case strings.Contains(script, "JSGridController"):
				return "ctrl", nil
			case strings.Contains(script, "GetViewRecordCount"):
				return gridRows(actual, [7]string{}), nil
			}
			return nil, nil
		},
	}
	grid := NewGrid(page, testOptions())

	ok := []CellUpdate{{RecordKey: "rec-1", Day: 0, Value: 480000}}
	require.NoError(t, grid.VerifyCells(ok))

	bad := []CellUpdate{{RecordKey: "rec-1", Day: 0, Value: 456000}}
	err := grid.VerifyCells(bad)
	assert.ErrorIs(t, err, types.ErrSaveVerification)

	gone := []CellUpdate{{RecordKey: "rec-9", Day: 0, Value: 480000}}
	err = grid.VerifyCells(gone)
	assert.ErrorIs(t, err, types.ErrSaveVerification)
}

func TestGridSaveCleanIsNoop(t *testing.T) {
	page := &FakePage{
		EvaluateFunc: func(script string) (any, error) {
			switch {
			case strings.Contains(script, "JSGridController"):
				return "ctrl", nil
			case strings.Contains(script, "IsDirty"):
				return false, nil
			}
			return nil, nil
		},
	}
	grid := NewGrid(page, testOptions())

	require.NoError(t, grid.Save())
	assert.Empty(t, page.Clicks)
}

func TestGridSaveWaitsForClean(t *testing.T) {
	dirtyReads := 0
	page := &FakePage{
		EvaluateFunc: func(script string) (any, error) {
			switch {
			case strings.Contains(script, "JSGridController"):
				return "ctrl", nil
			case strings.Contains(script, "IsDirty"):
				dirtyReads++
				// Dirty before the click, clean on the poll after it.
				return dirtyReads == 1, nil
			}
			return nil, nil
		},
	}
	grid := NewGrid(page, testOptions())

	require.NoError(t, grid.Save())
	assert.Contains(t, page.Clicks, saveButtonSel)
}

func TestGridSaveStuckDirty(t *testing.T) {
	page := &FakePage{
		EvaluateFunc: func(script string) (any, error) {
			switch {
			case strings.Contains(script, "JSGridController"):
				return "ctrl", nil
			case strings.Contains(script, "IsDirty"):
				return true, nil
			}
			return nil, nil
		},
	}
	grid := NewGrid(page, testOptions())

	err := grid.Save()
	assert.ErrorIs(t, err, types.ErrSaveVerification)

	saves := 0
	for _, c := range page.Clicks {
		if c == saveButtonSel {
			saves++
		}
	}
	assert.Equal(t, testOptions().SaveAttempts, saves)
}

func TestGridTotals(t *testing.T) {
	dirty := true
	page := &FakePage{
		EvaluateFunc: func(script string) (any, error) {
			switch {
			case strings.Contains(script, "JSGridController"):
				return "ctrl", nil
			case strings.Contains(script, "IsDirty"):
				return dirty, nil
			case strings.Contains(script, "GetViewRecordCount"):
				return gridRows([7]string{"8h", "7.6h", "", "", "0.5h", "", ""}, [7]string{}), nil
			}
			return nil, nil
		},
	}
	grid := NewGrid(page, testOptions())

	total, err := grid.PendingTotalHours()
	require.NoError(t, err)
	assert.InDelta(t, 16.1, total, 1e-9)

	_, err = grid.SavedTotalHours()
	assert.ErrorIs(t, err, types.ErrSaveVerification)

	dirty = false
	total, err = grid.SavedTotalHours()
	require.NoError(t, err)
	assert.InDelta(t, 16.1, total, 1e-9)
}

func TestGridSubmit(t *testing.T) {
	page := &FakePage{
		EvaluateFunc: func(script string) (any, error) {
			if strings.Contains(script, "iframe") {
				return true, nil
			}
			return nil, nil
		},
	}
	grid := NewGrid(page, testOptions())

	require.NoError(t, grid.Submit())
	assert.Contains(t, page.Clicks, sendButtonSel)
	assert.Contains(t, page.Clicks, turnInSel)
}

func TestGridSubmitDialogTimeout(t *testing.T) {
	page := &FakePage{
		EvaluateFunc: func(script string) (any, error) {
			return false, nil
		},
	}
	grid := NewGrid(page, testOptions())

	err := grid.Submit()
	assert.ErrorIs(t, err, types.ErrDialogTimeout)
}

func TestGridAddRowNotFound(t *testing.T) {
	page := &FakePage{
		EvaluateFunc: func(script string) (any, error) {
			if strings.Contains(script, "aria-expanded") {
				return float64(0), nil
			}
			return false, nil
		},
	}
	grid := NewGrid(page, testOptions())

	err := grid.AddRowFromAssignments("ST-999")
	assert.ErrorIs(t, err, types.ErrRowNotFound)
	assert.Contains(t, page.Clicks, addRowButtonSel)
}
