package pwa

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/mpalmer/tsfill/pkg/types"
)

// Options configures the protocol's endpoints, timeouts and retry bounds.
type Options struct {
	// SummaryURL is the full address of the MyTSSummary.aspx page.
	SummaryURL string
	// NavTimeout bounds navigations and readiness waits.
	NavTimeout time.Duration
	// SaveTimeout bounds the post-save settle wait.
	SaveTimeout time.Duration
	// DialogTimeout bounds waiting for confirmation dialogs.
	DialogTimeout time.Duration
	// StaleAttempts is how many times an operation is replayed against a
	// re-acquired page after the execution context is destroyed.
	StaleAttempts int
	// SaveAttempts is how many times the ribbon Save click is retried.
	SaveAttempts int
}

func (o Options) withDefaults() Options {
	if o.NavTimeout <= 0 {
		o.NavTimeout = 30 * time.Second
	}
	if o.SaveTimeout <= 0 {
		o.SaveTimeout = 45 * time.Second
	}
	if o.DialogTimeout <= 0 {
		o.DialogTimeout = 15 * time.Second
	}
	if o.StaleAttempts <= 0 {
		o.StaleAttempts = 2
	}
	if o.SaveAttempts <= 0 {
		o.SaveAttempts = 3
	}
	return o
}

// Client is the workflow-facing surface over the summary and grid
// protocols. It replays operations that fail with a destroyed execution
// context against a freshly acquired page; the provider restores the
// page's last location, so the replay resumes where the old page was.
type Client struct {
	provider PageProvider
	opts     Options
	log      *slog.Logger

	page    Page
	summary *Summary
	grid    *Grid
}

// NewClient builds a Client over a page provider.
func NewClient(provider PageProvider, opts Options) *Client {
	return &Client{provider: provider, opts: opts.withDefaults(), log: slog.Default()}
}

func (c *Client) bind(ctx context.Context) error {
	if c.page != nil {
		return nil
	}
	page, err := c.provider.AcquirePage(ctx)
	if err != nil {
		return fmt.Errorf("acquire page: %w", err)
	}
	c.page = page
	c.summary = NewSummary(page, c.opts)
	c.grid = NewGrid(page, c.opts)
	return nil
}

// withRetry runs op, re-acquiring the page and replaying on stale-context
// failures. Non-stale errors, including ErrLoginRequired, pass through
// untouched on the first occurrence.
func (c *Client) withRetry(ctx context.Context, name string, op func() error) error {
	var err error
	for attempt := 0; attempt <= c.opts.StaleAttempts; attempt++ {
		if attempt > 0 {
			c.log.Warn("page context went stale, re-acquiring",
				"operation", name, "attempt", attempt, "error", err)
			c.page = nil
		}
		if bindErr := c.bind(ctx); bindErr != nil {
			return bindErr
		}
		err = op()
		if err == nil || !IsStale(err) {
			return err
		}
	}
	return fmt.Errorf("%w: %s: %v", types.ErrStaleContext, name, err)
}

// Navigate opens the timesheet summary page.
func (c *Client) Navigate(ctx context.Context) error {
	return c.withRetry(ctx, "navigate", func() error {
		return c.summary.Navigate()
	})
}

// Periods lists every visible timesheet period with its status.
func (c *Client) Periods(ctx context.Context) ([]types.PeriodInfo, error) {
	var infos []types.PeriodInfo
	err := c.withRetry(ctx, "periods", func() error {
		if err := c.summary.Navigate(); err != nil {
			return err
		}
		var err error
		infos, err = c.summary.Periods()
		return err
	})
	return infos, err
}

// OpenWeek navigates to the summary page and opens (creating if needed)
// the timesheet for the given week.
func (c *Client) OpenWeek(ctx context.Context, week types.WeekPeriod) (types.WeekStatus, error) {
	var status types.WeekStatus
	err := c.withRetry(ctx, "open week", func() error {
		if err := c.summary.Navigate(); err != nil {
			return err
		}
		var err error
		status, err = c.summary.Open(week)
		return err
	})
	return status, err
}

// TaskRows reads the open timesheet's task lines.
func (c *Client) TaskRows(ctx context.Context) ([]types.TaskRow, error) {
	var rows []types.TaskRow
	err := c.withRetry(ctx, "task rows", func() error {
		var err error
		rows, err = c.grid.TaskRows()
		return err
	})
	return rows, err
}

// AddTaskRow adds a task line by name from existing assignments.
func (c *Client) AddTaskRow(ctx context.Context, name string) error {
	return c.withRetry(ctx, "add task row", func() error {
		return c.grid.AddRowFromAssignments(name)
	})
}

// WriteCells applies a batch of day-cell updates and reads each one back.
func (c *Client) WriteCells(ctx context.Context, updates []CellUpdate) error {
	return c.withRetry(ctx, "write cells", func() error {
		if err := c.grid.WriteCells(updates); err != nil {
			return err
		}
		return c.grid.VerifyCells(updates)
	})
}

// Save commits pending grid changes and waits for the grid to go clean.
func (c *Client) Save(ctx context.Context) error {
	return c.withRetry(ctx, "save", func() error {
		return c.grid.Save()
	})
}

// PendingTotalHours sums Actual hours as the grid currently holds them.
func (c *Client) PendingTotalHours(ctx context.Context) (float64, error) {
	var total float64
	err := c.withRetry(ctx, "pending totals", func() error {
		var err error
		total, err = c.grid.PendingTotalHours()
		return err
	})
	return total, err
}

// SavedTotalHours sums Actual hours once the grid reports clean.
func (c *Client) SavedTotalHours(ctx context.Context) (float64, error) {
	var total float64
	err := c.withRetry(ctx, "saved totals", func() error {
		var err error
		total, err = c.grid.SavedTotalHours()
		return err
	})
	return total, err
}

// Submit turns the open timesheet in.
func (c *Client) Submit(ctx context.Context) error {
	return c.withRetry(ctx, "submit", func() error {
		return c.grid.Submit()
	})
}

// Recall brings a submitted timesheet for the week back to in-progress.
func (c *Client) Recall(ctx context.Context, week types.WeekPeriod) error {
	return c.withRetry(ctx, "recall", func() error {
		return c.summary.Recall(week)
	})
}
