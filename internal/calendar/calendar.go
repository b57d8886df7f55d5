// Package calendar contains the civil date and time-of-day helpers used by
// the appointment and reminder stores. All values are wall-clock values in
// the clinic's timezone; no instant arithmetic happens below this package.
package calendar

import (
	"fmt"
	"time"

	"github.com/golang-sql/civil"

	"github.com/hackgods/clinic-scheduling/internal/clinicerr"
)

const (
	DefaultTimezone = "Asia/Singapore"

	DateLayout  = "2006-01-02"
	ClockLayout = "15:04"
)

// Location resolves tz, falling back to DefaultTimezone and then UTC.
func Location(tz string) *time.Location {
	if tz != "" {
		if loc, err := time.LoadLocation(tz); err == nil {
			return loc
		}
	}
	if loc, err := time.LoadLocation(DefaultTimezone); err == nil {
		return loc
	}
	return time.UTC
}

// Today returns the civil date of now in loc.
func Today(now time.Time, loc *time.Location) civil.Date {
	if loc == nil {
		loc = time.UTC
	}
	return civil.DateOf(now.In(loc))
}

func ParseDate(s string) (civil.Date, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return civil.Date{}, clinicerr.Validation(fmt.Sprintf("invalid date %q, expected YYYY-MM-DD", s))
	}
	return civil.DateOf(t), nil
}

// ParseClock parses an HH:MM time of day.
func ParseClock(s string) (civil.Time, error) {
	t, err := time.Parse(ClockLayout, s)
	if err != nil {
		return civil.Time{}, clinicerr.Validation(fmt.Sprintf("invalid time %q, expected HH:MM", s))
	}
	return civil.TimeOf(t), nil
}

func FormatClock(t civil.Time) string {
	return fmt.Sprintf("%02d:%02d", t.Hour, t.Minute)
}

// CompareTime returns -1, 0 or 1 as a is before, equal to or after b.
func CompareTime(a, b civil.Time) int {
	switch {
	case a.Hour != b.Hour:
		return sign(a.Hour - b.Hour)
	case a.Minute != b.Minute:
		return sign(a.Minute - b.Minute)
	case a.Second != b.Second:
		return sign(a.Second - b.Second)
	default:
		return sign(a.Nanosecond - b.Nanosecond)
	}
}

func CompareDate(a, b civil.Date) int {
	switch {
	case a.Before(b):
		return -1
	case a.After(b):
		return 1
	default:
		return 0
	}
}

func Weekday(d civil.Date) time.Weekday {
	return d.In(time.UTC).Weekday()
}

// WeekRange returns the Monday and Sunday of the week containing d.
func WeekRange(d civil.Date) (civil.Date, civil.Date) {
	offset := (int(Weekday(d)) + 6) % 7
	monday := d.AddDays(-offset)
	return monday, monday.AddDays(6)
}

// MonthRange returns the first and last day of the month containing d.
func MonthRange(d civil.Date) (civil.Date, civil.Date) {
	first := civil.Date{Year: d.Year, Month: d.Month, Day: 1}
	next := civil.DateOf(first.In(time.UTC).AddDate(0, 1, 0))
	return first, next.AddDays(-1)
}

func sign(n int) int {
	switch {
	case n < 0:
		return -1
	case n > 0:
		return 1
	default:
		return 0
	}
}
