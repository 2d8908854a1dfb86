package pwa

import (
	"regexp"
	"strings"
	"time"

	"github.com/mpalmer/tsfill/pkg/types"
)

// periodPattern matches period cells like "29 (20/07/2026 - 26/07/2026)"
// or "WC - 1005 (10/05/2026 - 16/05/2026)".
var periodPattern = regexp.MustCompile(`\((\d{1,2}/\d{2}/\d{4})\s*-\s*(\d{1,2}/\d{2}/\d{4})\)`)

// parsePeriod extracts the start/end dates from a period cell text.
func parsePeriod(text string) (types.WeekPeriod, bool) {
	m := periodPattern.FindStringSubmatch(text)
	if m == nil {
		return types.WeekPeriod{}, false
	}
	// Parsed in local time so comparisons against dates from the CLI and
	// the calendar stay on the same day either side of UTC.
	start, err := time.ParseInLocation("2/01/2006", m[1], time.Local)
	if err != nil {
		return types.WeekPeriod{}, false
	}
	end, err := time.ParseInLocation("2/01/2006", m[2], time.Local)
	if err != nil {
		return types.WeekPeriod{}, false
	}
	return types.WeekPeriod{Start: start, End: end}, true
}

// extractPeriod finds the first cell of a row that carries a date range.
func extractPeriod(cells []string) (types.WeekPeriod, bool) {
	for _, cell := range cells {
		if p, ok := parsePeriod(cell); ok {
			return p, true
		}
	}
	return types.WeekPeriod{}, false
}

var knownStatuses = []types.TimesheetStatus{
	types.StatusNotYetCreated,
	types.StatusInProgress,
	types.StatusApproved,
	types.StatusRejected,
	types.StatusSubmitted,
	types.StatusPeriodClosed,
}

// extractStatus finds the status value among a row's cell texts.
func extractStatus(cells []string) types.TimesheetStatus {
	for _, cell := range cells {
		lowered := strings.ToLower(strings.TrimSpace(cell))
		for _, s := range knownStatuses {
			if lowered == string(s) {
				return s
			}
		}
	}
	return types.StatusUnknown
}

// Evaluate returns JSON-decoded values: objects as map[string]any, arrays
// as []any, numbers as float64. The helpers below pull typed data out.

func asSlice(v any) []any {
	s, _ := v.([]any)
	return s
}

func asString(v any) string {
	s, _ := v.(string)
	return s
}

func asBool(v any) bool {
	b, _ := v.(bool)
	return b
}

func asStringSlice(v any) []string {
	raw := asSlice(v)
	out := make([]string, len(raw))
	for i, item := range raw {
		out[i] = asString(item)
	}
	return out
}

// decodeTaskRows converts the taskRowsScript result into domain rows.
func decodeTaskRows(v any) []types.TaskRow {
	var rows []types.TaskRow
	for _, item := range asSlice(v) {
		m, ok := item.(map[string]any)
		if !ok {
			continue
		}
		row := types.TaskRow{
			RecordKey: asString(m["key"]),
			Label:     asString(m["name"]),
		}
		for i, s := range asStringSlice(m["actual"]) {
			if i < 7 {
				row.Actual[i] = s
			}
		}
		for i, s := range asStringSlice(m["planned"]) {
			if i < 7 {
				row.Planned[i] = s
			}
		}
		rows = append(rows, row)
	}
	return rows
}
