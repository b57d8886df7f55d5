package reminder

import (
	"fmt"
	"strings"

	"github.com/golang-sql/civil"
	"github.com/google/uuid"

	"github.com/hackgods/clinic-scheduling/internal/calendar"
	"github.com/hackgods/clinic-scheduling/internal/clinicerr"
)

type SourceKind string

const (
	SourceManual      SourceKind = "manual"
	SourceAppointment SourceKind = "appointment"
	SourceMedicine    SourceKind = "medicine"
)

// Source points back at the entity a reminder was derived from. It holds a
// key, never the entity itself.
type Source struct {
	Kind SourceKind `json:"kind"`
	Key  string     `json:"key,omitempty"`
}

type Reminder struct {
	ID      uuid.UUID   `json:"id"`
	Title   string      `json:"title"`
	Comment string      `json:"comment,omitempty"`
	Date    civil.Date  `json:"date"`
	Start   *civil.Time `json:"start,omitempty"`
	End     *civil.Time `json:"end,omitempty"`
	Source  Source      `json:"source"`
}

// StockLevel is what the store needs to know about a medicine.
type StockLevel interface {
	Name() string
	Quantity() int
	Threshold() int
}

// LowStock reports whether m should carry a low-stock reminder.
func LowStock(m StockLevel) bool {
	return m.Threshold() > 0 && m.Quantity() <= m.Threshold()
}

// Timed builds a reminder with a time window.
func Timed(title, comment string, date civil.Date, start, end civil.Time, src Source) Reminder {
	return Reminder{
		Title:   title,
		Comment: comment,
		Date:    date,
		Start:   &start,
		End:     &end,
		Source:  src,
	}
}

func (r Reminder) Validate() error {
	if strings.TrimSpace(r.Title) == "" {
		return clinicerr.Validation("reminder requires a title")
	}
	if !r.Date.IsValid() {
		return clinicerr.Validation("reminder date is invalid")
	}
	if (r.Start == nil) != (r.End == nil) {
		return clinicerr.Validation("reminder needs both start and end, or neither")
	}
	if r.Start != nil && calendar.CompareTime(*r.Start, *r.End) >= 0 {
		return clinicerr.Validation("reminder start must be before end")
	}
	return nil
}

// Equal compares the identity fields: title, date and time window.
func (r Reminder) Equal(o Reminder) bool {
	return r.Title == o.Title && r.Date == o.Date && sameTime(r.Start, o.Start) && sameTime(r.End, o.End)
}

func (r Reminder) String() string {
	when := r.Date.String()
	if r.Start != nil {
		when += fmt.Sprintf(" %s-%s", calendar.FormatClock(*r.Start), calendar.FormatClock(*r.End))
	}
	if r.Comment == "" {
		return fmt.Sprintf("%s %s", when, r.Title)
	}
	return fmt.Sprintf("%s %s: %s", when, r.Title, r.Comment)
}

func sameTime(a, b *civil.Time) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func lowStockReminder(m StockLevel, today civil.Date) Reminder {
	return Reminder{
		Title:   "Low stock: " + m.Name(),
		Comment: fmt.Sprintf("%s has %d left (threshold %d)", m.Name(), m.Quantity(), m.Threshold()),
		Date:    today,
		Source:  Source{Kind: SourceMedicine, Key: m.Name()},
	}
}
