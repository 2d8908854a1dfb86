// Package calendar expands date ranges into timesheet week periods and
// decides which days of a period are scheduled work days.
//
// Holiday data comes from the rickar/cal business calendar with the
// Australian regional definitions; the configured region selects which
// state's public holidays are excluded. Exclusion is computed once per
// date, not per task, so every task rule sees the identical work-day set
// for a given week.
package calendar

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/rickar/cal/v2"
	"github.com/rickar/cal/v2/au"

	"github.com/mpalmer/tsfill/pkg/types"
)

// regionHolidays maps an Australian state code to its public holiday set.
var regionHolidays = map[string][]*cal.Holiday{
	"ACT": au.HolidaysACT,
	"NSW": au.HolidaysNSW,
	"NT":  au.HolidaysNT,
	"QLD": au.HolidaysQLD,
	"SA":  au.HolidaysSA,
	"TAS": au.HolidaysTAS,
	"VIC": au.HolidaysVIC,
	"WA":  au.HolidaysWA,
}

var dayNames = map[string]time.Weekday{
	"monday":    time.Monday,
	"tuesday":   time.Tuesday,
	"wednesday": time.Wednesday,
	"thursday":  time.Thursday,
	"friday":    time.Friday,
	"saturday":  time.Saturday,
	"sunday":    time.Sunday,
}

// Regions returns the supported region codes, sorted.
func Regions() []string {
	codes := make([]string, 0, len(regionHolidays))
	for code := range regionHolidays {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}

// WorkDayCalendar answers "is this date a scheduled work day" for one
// region and one configured work-day set. Built once per run from static
// holiday data; read-only afterward.
type WorkDayCalendar struct {
	region    string
	scheduled map[time.Weekday]bool
	bc        *cal.BusinessCalendar
}

// NewWorkDayCalendar builds the calendar for an Australian state code
// (NSW, VIC, ...) and a set of work-day names ("monday".."sunday",
// case-insensitive).
func NewWorkDayCalendar(region string, workDays []string) (*WorkDayCalendar, error) {
	code := strings.ToUpper(strings.TrimSpace(region))
	holidays, ok := regionHolidays[code]
	if !ok {
		return nil, fmt.Errorf("unknown region %q (expected one of %s)",
			region, strings.Join(Regions(), ", "))
	}

	scheduled := make(map[time.Weekday]bool, len(workDays))
	for _, name := range workDays {
		wd, ok := dayNames[strings.ToLower(strings.TrimSpace(name))]
		if !ok {
			return nil, fmt.Errorf("unknown work day %q", name)
		}
		scheduled[wd] = true
	}
	if len(scheduled) == 0 {
		return nil, fmt.Errorf("work day set is empty")
	}

	bc := cal.NewBusinessCalendar()
	for wd := time.Sunday; wd <= time.Saturday; wd++ {
		bc.SetWorkday(wd, scheduled[wd])
	}
	bc.AddHoliday(holidays...)

	return &WorkDayCalendar{region: code, scheduled: scheduled, bc: bc}, nil
}

// ScheduledWeekday reports whether wd belongs to the configured work-day
// set, ignoring holidays. A public holiday on a scheduled weekday is a
// day hours get cleared from, not merely skipped.
func (c *WorkDayCalendar) ScheduledWeekday(wd time.Weekday) bool {
	return c.scheduled[wd]
}

// Region returns the state code the calendar was built for.
func (c *WorkDayCalendar) Region() string { return c.region }

// IsWorkDay reports whether d is a scheduled work day: a configured
// work-day weekday that is not a public holiday in the region.
func (c *WorkDayCalendar) IsWorkDay(d time.Time) bool {
	return c.bc.IsWorkday(types.Midnight(d))
}

// HolidayName returns the public holiday name for d, if any.
func (c *WorkDayCalendar) HolidayName(d time.Time) (string, bool) {
	actual, observed, h := c.bc.IsHoliday(types.Midnight(d))
	if (actual || observed) && h != nil {
		return h.Name, true
	}
	return "", false
}

// WorkDays returns the ordered subset of the period's seven days that are
// scheduled work days.
func (c *WorkDayCalendar) WorkDays(p types.WeekPeriod) []time.Time {
	var days []time.Time
	for _, d := range p.Days() {
		if c.IsWorkDay(d) {
			days = append(days, d)
		}
	}
	return days
}

// HolidaysIn returns date → holiday name for every public holiday inside
// the period, in no particular order.
func (c *WorkDayCalendar) HolidaysIn(p types.WeekPeriod) map[time.Time]string {
	found := map[time.Time]string{}
	for _, d := range p.Days() {
		if name, ok := c.HolidayName(d); ok {
			found[d] = name
		}
	}
	return found
}

// Expand turns a [start, end] range into the ordered sequence of week
// periods whose spans intersect it, ascending, each exactly 7 days long
// and Monday-aligned. A zero start means today; a zero end means the
// period containing today. Returns types.ErrInvalidRange when end
// precedes start.
func Expand(start, end time.Time) ([]types.WeekPeriod, error) {
	today := types.Midnight(time.Now())
	if start.IsZero() {
		start = today
	}
	if end.IsZero() {
		end = start
	}
	start = types.Midnight(start)
	end = types.Midnight(end)
	if end.Before(start) {
		return nil, fmt.Errorf("%w: %s .. %s",
			types.ErrInvalidRange, start.Format(types.DateLayout), end.Format(types.DateLayout))
	}

	var periods []types.WeekPeriod
	for monday := mondayOf(start); !monday.After(end); monday = monday.AddDate(0, 0, 7) {
		periods = append(periods, types.WeekPeriod{
			Start: monday,
			End:   monday.AddDate(0, 0, 6),
		})
	}
	return periods, nil
}

// CurrentWeek returns the period containing today.
func CurrentWeek() types.WeekPeriod {
	monday := mondayOf(types.Midnight(time.Now()))
	return types.WeekPeriod{Start: monday, End: monday.AddDate(0, 0, 6)}
}

// WeekOf returns the period containing d.
func WeekOf(d time.Time) types.WeekPeriod {
	monday := mondayOf(types.Midnight(d))
	return types.WeekPeriod{Start: monday, End: monday.AddDate(0, 0, 6)}
}

func mondayOf(d time.Time) time.Time {
	// time.Weekday has Sunday = 0; periods start on Monday.
	offset := (int(d.Weekday()) + 6) % 7
	return d.AddDate(0, 0, -offset)
}
