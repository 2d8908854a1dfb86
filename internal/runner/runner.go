// Package runner processes a batch of timesheet weeks sequentially and
// aggregates per-week outcomes into a run report. One week failing does
// not stop the batch; an expired login session does, since every later
// week would fail the same way.
package runner

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/mpalmer/tsfill/pkg/types"
)

// WeekRunner processes a single week.
type WeekRunner interface {
	Run(ctx context.Context, week types.WeekPeriod, mode types.Mode) types.WeekOutcome
}

// Metrics receives per-week observations. Nil disables instrumentation.
type Metrics interface {
	ObserveWeek(outcome types.WeekOutcome, elapsed time.Duration)
}

// Result classifies a finished run.
type Result string

const (
	ResultSuccess        Result = "success"
	ResultPartialFailure Result = "partial_failure"
)

// Report is the aggregate outcome of one batch run.
type Report struct {
	ID       string
	Mode     types.Mode
	Started  time.Time
	Finished time.Time
	Outcomes []types.WeekOutcome
}

// Result is ResultSuccess only when every week succeeded.
func (r *Report) Result() Result {
	for _, o := range r.Outcomes {
		if o.Failed() {
			return ResultPartialFailure
		}
	}
	return ResultSuccess
}

// FailedPeriods lists the weeks that did not complete, in run order.
func (r *Report) FailedPeriods() []types.WeekPeriod {
	var failed []types.WeekPeriod
	for _, o := range r.Outcomes {
		if o.Failed() {
			failed = append(failed, o.Period)
		}
	}
	return failed
}

// TotalHours sums the verified saved totals of the successful weeks.
func (r *Report) TotalHours() float64 {
	var total float64
	for _, o := range r.Outcomes {
		if !o.Failed() {
			total += o.SavedTotal
		}
	}
	return total
}

// Runner drives a batch of weeks through a WeekRunner.
type Runner struct {
	weeks   WeekRunner
	metrics Metrics
	log     *slog.Logger
}

// New builds a Runner. metrics may be nil.
func New(weeks WeekRunner, metrics Metrics) *Runner {
	return &Runner{weeks: weeks, metrics: metrics, log: slog.Default()}
}

// Run processes the weeks oldest-first under the given mode.
//
// Week failures are recorded in the report and processing continues; the
// returned error is non-nil only when the run itself had to stop, either
// because the context was cancelled or because the session expired
// (ErrLoginRequired). The report always covers the weeks attempted so
// far, so a caller can report partial progress on an aborted run.
func (r *Runner) Run(ctx context.Context, weeks []types.WeekPeriod, mode types.Mode) (*Report, error) {
	ordered := make([]types.WeekPeriod, len(weeks))
	copy(ordered, weeks)
	sort.Slice(ordered, func(i, j int) bool {
		return ordered[i].Start.Before(ordered[j].Start)
	})

	report := &Report{
		ID:      uuid.NewString(),
		Mode:    mode,
		Started: time.Now(),
	}
	r.log.Info("run started",
		"run_id", report.ID,
		"weeks", len(ordered),
		"dry_run", mode.DryRun,
		"submit", mode.Submit,
		"recall", mode.Recall)

	for _, week := range ordered {
		if err := ctx.Err(); err != nil {
			report.Finished = time.Now()
			return report, err
		}

		started := time.Now()
		outcome := r.weeks.Run(ctx, week, mode)
		elapsed := time.Since(started)
		report.Outcomes = append(report.Outcomes, outcome)

		if r.metrics != nil {
			r.metrics.ObserveWeek(outcome, elapsed)
		}

		if outcome.Failed() {
			r.log.Warn("week failed",
				"run_id", report.ID,
				"week", week.String(),
				"elapsed", elapsed.Round(time.Millisecond),
				"error", outcome.Err)
			if errors.Is(outcome.Err, types.ErrLoginRequired) {
				report.Finished = time.Now()
				return report, outcome.Err
			}
			continue
		}
		r.log.Info("week done",
			"run_id", report.ID,
			"week", week.String(),
			"status", string(outcome.Status),
			"filled", outcome.FilledTasks,
			"cleared", outcome.ClearedTasks,
			"total_hours", outcome.SavedTotal,
			"submitted", outcome.Submitted,
			"recalled", outcome.Recalled,
			"elapsed", elapsed.Round(time.Millisecond))
	}

	report.Finished = time.Now()
	r.log.Info("run finished",
		"run_id", report.ID,
		"result", string(report.Result()),
		"weeks", len(report.Outcomes),
		"failed", len(report.FailedPeriods()),
		"total_hours", report.TotalHours())
	return report, nil
}
