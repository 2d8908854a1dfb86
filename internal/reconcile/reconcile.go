// Package reconcile decides, per grid row, what a week's fill pass should
// do with it. It operates on data already read from the grid; it never
// touches the live page.
package reconcile

import (
	"strings"

	"github.com/mpalmer/tsfill/pkg/types"
)

// Reconcile maps every observed grid row to an action.
//
// A row matches the first rule whose name is a case-sensitive substring of
// the row's label; configuration order makes overlapping substrings
// deterministic, so rules are scanned as an ordered sequence, never a map.
// Unmatched rows are cleared only when they carry hours: the config is
// the single source of truth, but rows that are already empty are skipped
// to avoid spurious writes.
//
// The result is deterministic and idempotent for an unchanged row set.
func Reconcile(rules []types.TaskRule, rows []types.TaskRow) []types.RowAction {
	actions := make([]types.RowAction, 0, len(rows))
	for _, row := range rows {
		actions = append(actions, decide(rules, row))
	}
	return actions
}

func decide(rules []types.TaskRule, row types.TaskRow) types.RowAction {
	for i := range rules {
		rule := &rules[i]
		if !strings.Contains(row.Label, rule.Name) {
			continue
		}
		kind := types.ActionFill
		if rule.UsePlanned {
			kind = types.ActionCopyPlanned
		} else if rule.HoursPerDay == 0 && !rule.ClearPlanned {
			// A rule with nothing to write leaves the row alone.
			kind = types.ActionSkip
		}
		return types.RowAction{Row: row, Kind: kind, Rule: rule}
	}

	if row.HasHours() {
		return types.RowAction{Row: row, Kind: types.ActionClear}
	}
	return types.RowAction{Row: row, Kind: types.ActionSkip}
}

// Missing returns the configured rules that matched no observed row, in
// configuration order. The workflow adds these tasks to the grid from
// existing assignments before filling.
func Missing(rules []types.TaskRule, rows []types.TaskRow) []types.TaskRule {
	var missing []types.TaskRule
	for _, rule := range rules {
		found := false
		for _, row := range rows {
			if strings.Contains(row.Label, rule.Name) {
				found = true
				break
			}
		}
		if !found {
			missing = append(missing, rule)
		}
	}
	return missing
}
