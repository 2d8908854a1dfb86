package pwa

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mpalmer/tsfill/pkg/types"
)

func TestParsePeriod(t *testing.T) {
	p, ok := parsePeriod("29 (05/01/2026 - 11/01/2026)")
	require.True(t, ok)
	assert.Equal(t, time.Date(2026, time.January, 5, 0, 0, 0, 0, time.UTC), p.Start)
	assert.Equal(t, time.Date(2026, time.January, 11, 0, 0, 0, 0, time.UTC), p.End)

	// Single-digit day and surrounding text both parse.
	p, ok = parsePeriod("WC - 0907 (7/09/2026 - 13/09/2026)")
	require.True(t, ok)
	assert.Equal(t, 7, p.Start.Day())

	_, ok = parsePeriod("Timesheet Name")
	assert.False(t, ok)
	_, ok = parsePeriod("(99/99/2026 - 13/09/2026)")
	assert.False(t, ok)
}

func TestExtractStatus(t *testing.T) {
	cells := []string{"29", "29 (05/01/2026 - 11/01/2026)", "In Progress", "40h"}
	assert.Equal(t, types.StatusInProgress, extractStatus(cells))

	cells = []string{"30", "30 (12/01/2026 - 18/01/2026)", "Not Yet Created"}
	assert.Equal(t, types.StatusNotYetCreated, extractStatus(cells))

	assert.Equal(t, types.StatusUnknown, extractStatus([]string{"30", "something else"}))
}

func TestDecodeTaskRows(t *testing.T) {
	raw := []any{
		map[string]any{
			"key":     "rec-1",
			"name":    "ST-333 Development",
			"actual":  []any{"8h", "8h", "", "", "", "", ""},
			"planned": []any{"", "", "", "", "", "", ""},
		},
		map[string]any{
			"key":     "rec-2",
			"name":    "Annual Leave",
			"actual":  []any{"", "", "", "", "", "", ""},
			"planned": []any{"", "", "7.6h", "", "", "", ""},
		},
		"not a row",
	}
	rows := decodeTaskRows(raw)
	require.Len(t, rows, 2)
	assert.Equal(t, "rec-1", rows[0].RecordKey)
	assert.Equal(t, "ST-333 Development", rows[0].Label)
	assert.Equal(t, "8h", rows[0].Actual[1])
	assert.Equal(t, "7.6h", rows[1].Planned[2])
	assert.True(t, rows[1].HasHours())
}
