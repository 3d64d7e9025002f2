package analytics

import (
	"fmt"
	"time"
)

// Period is a calendar bucket size.
type Period string

// Periods.
const (
	Day   Period = "day"
	Week  Period = "week"
	Month Period = "month"
)

// ParsePeriod resolves a period name.
func ParsePeriod(s string) (Period, error) {
	switch p := Period(s); p {
	case Day, Week, Month:
		return p, nil
	default:
		return "", fmt.Errorf("unknown period %q", s)
	}
}

// Bucketer maps timestamps to the start of their containing period.
type Bucketer struct {
	Period    Period
	WeekStart time.Weekday
}

// Start returns the UTC start of the period containing t.
func (b Bucketer) Start(t time.Time) time.Time {
	t = t.UTC()
	d := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)

	switch b.Period {
	case Week:
		back := (int(d.Weekday()) - int(b.WeekStart) + 7) % 7

		return d.AddDate(0, 0, -back)
	case Month:
		return time.Date(d.Year(), d.Month(), 1, 0, 0, 0, 0, time.UTC)
	default:
		return d
	}
}

// Next returns the start of the period following the one starting at start.
func (b Bucketer) Next(start time.Time) time.Time {
	switch b.Period {
	case Week:
		return start.AddDate(0, 0, 7)
	case Month:
		return start.AddDate(0, 1, 0)
	default:
		return start.AddDate(0, 0, 1)
	}
}

// Header is the name of the period column.
func (b Bucketer) Header() string {
	switch b.Period {
	case Week:
		return "Week"
	case Month:
		return "Year-Month"
	default:
		return "Date"
	}
}

// Label formats a period start.
func (b Bucketer) Label(start time.Time) string {
	if b.Period == Month {
		return start.Format("2006-01")
	}

	return start.Format(time.DateOnly)
}
