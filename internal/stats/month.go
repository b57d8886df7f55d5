package stats

import (
	"fmt"
	"regexp"
	"strconv"
	"time"

	"github.com/hackgods/clinic-scheduling/internal/clinicerr"
)

var monthPattern = regexp.MustCompile(`^(0[1-9]|1[0-2])(\d{2})$`)

// Month is a calendar year-month, the key of a statistics bucket.
type Month struct {
	Year  int        `json:"year"`
	Month time.Month `json:"month"`
}

// DefaultEpoch is the first month the clinic has statistics for.
var DefaultEpoch = Month{Year: 2019, Month: time.January}

func MonthOf(t time.Time) Month {
	return Month{Year: t.Year(), Month: t.Month()}
}

func (m Month) Before(o Month) bool {
	if m.Year != o.Year {
		return m.Year < o.Year
	}
	return m.Month < o.Month
}

func (m Month) After(o Month) bool { return o.Before(m) }

func (m Month) Next() Month {
	if m.Month == time.December {
		return Month{Year: m.Year + 1, Month: time.January}
	}
	return Month{Year: m.Year, Month: m.Month + 1}
}

// String renders the MMYY form accepted by ParseMonth.
func (m Month) String() string {
	return fmt.Sprintf("%02d%02d", int(m.Month), m.Year%100)
}

func (m Month) Label() string {
	return fmt.Sprintf("%s %d", m.Month, m.Year)
}

// ParseMonth reads MMYY, e.g. 1019 for October 2019.
func ParseMonth(s string) (Month, error) {
	parts := monthPattern.FindStringSubmatch(s)
	if parts == nil {
		return Month{}, clinicerr.Validation(fmt.Sprintf("month %q must be MMYY", s))
	}
	mm, _ := strconv.Atoi(parts[1])
	yy, _ := strconv.Atoi(parts[2])
	return Month{Year: 2000 + yy, Month: time.Month(mm)}, nil
}

// ParseRange parses a statistics range. An empty to means the single month
// from.
func ParseRange(from, to string, epoch Month) (Month, Month, error) {
	start, err := ParseMonth(from)
	if err != nil {
		return Month{}, Month{}, err
	}
	end := start
	if to != "" {
		if end, err = ParseMonth(to); err != nil {
			return Month{}, Month{}, err
		}
	}
	if err := ValidateRange(start, end, epoch); err != nil {
		return Month{}, Month{}, err
	}
	return start, end, nil
}

func ValidateRange(from, to, epoch Month) error {
	switch {
	case from.Before(epoch):
		return clinicerr.InvalidRange(fmt.Sprintf("%s is before the earliest month %s", from.Label(), epoch.Label()))
	case to.Before(from):
		return clinicerr.InvalidRange(fmt.Sprintf("%s is before %s", to.Label(), from.Label()))
	}
	return nil
}
