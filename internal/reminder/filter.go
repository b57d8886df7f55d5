package reminder

import (
	"fmt"
	"strings"

	"github.com/golang-sql/civil"

	"github.com/hackgods/clinic-scheduling/internal/calendar"
	"github.com/hackgods/clinic-scheduling/internal/clinicerr"
)

// Predicate selects reminders for the current view.
type Predicate func(Reminder) bool

// ShowAll matches every reminder.
func ShowAll(Reminder) bool { return true }

// WithinDates matches reminders dated after from-1 and before to+1, which
// makes both ends inclusive.
func WithinDates(from, to civil.Date) Predicate {
	lo, hi := from.AddDays(-1), to.AddDays(1)
	return func(r Reminder) bool {
		return r.Date.After(lo) && r.Date.Before(hi)
	}
}

// CurrentWeek matches Monday through Sunday of the week containing today.
func CurrentWeek(today civil.Date) Predicate {
	return WithinDates(calendar.WeekRange(today))
}

type Format string

const (
	FormatDay   Format = "day"
	FormatWeek  Format = "week"
	FormatMonth Format = "month"
)

func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatDay, FormatWeek, FormatMonth:
		return f, nil
	case "":
		return FormatWeek, nil
	default:
		return "", clinicerr.Validation(fmt.Sprintf("unknown reminder format %q, expected day, week or month", s))
	}
}

// RangeFor returns the inclusive date range a format covers around date.
func RangeFor(f Format, date civil.Date) (civil.Date, civil.Date) {
	switch f {
	case FormatDay:
		return date, date
	case FormatMonth:
		return calendar.MonthRange(date)
	default:
		return calendar.WeekRange(date)
	}
}
