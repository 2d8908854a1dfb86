package types

import "errors"

var (
	// ErrInvalidRange is returned when end_date precedes start_date. Fatal
	// to the run before any week is attempted.
	ErrInvalidRange = errors.New("invalid date range: end before start")

	// ErrStaleContext is returned after the bounded retry for a destroyed
	// page execution context is exhausted. Fatal to that week only.
	ErrStaleContext = errors.New("page context is stale")

	// ErrSaveVerification is returned when the host's persisted total
	// disagrees with the intended total after a save. Never retried
	// automatically; a silent retry could mask real data loss.
	ErrSaveVerification = errors.New("saved total does not match intended total")

	// ErrDialogTimeout is returned when a native confirmation dialog
	// expected during recall never appeared.
	ErrDialogTimeout = errors.New("confirmation dialog did not appear")

	// ErrLoginRequired is returned when the saved session has expired.
	// Fatal to the whole run; re-authentication is interactive.
	ErrLoginRequired = errors.New("session expired, run 'tsfill login' first")

	// ErrPeriodNotFound is returned when the summary page has no row whose
	// period contains the requested week.
	ErrPeriodNotFound = errors.New("timesheet period not found on summary page")

	// ErrNotEditable is returned when a week's timesheet is in a status
	// that cannot be opened for data entry.
	ErrNotEditable = errors.New("timesheet is not in an editable status")

	// ErrNotRecallable is returned when recall is requested for a week
	// that is not submitted or approved.
	ErrNotRecallable = errors.New("timesheet is not in a recallable status")

	// ErrRowNotFound is returned when a configured task cannot be located
	// in the grid, even after adding it from existing assignments.
	ErrRowNotFound = errors.New("task row not found in grid")
)
