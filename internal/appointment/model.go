package appointment

import (
	"fmt"
	"strings"

	"github.com/golang-sql/civil"

	"github.com/hackgods/clinic-scheduling/internal/calendar"
	"github.com/hackgods/clinic-scheduling/internal/clinicerr"
)

// Patient is a reference into the external patient directory.
type Patient struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type Appointment struct {
	Patient Patient    `json:"patient"`
	Date    civil.Date `json:"date"`
	Start   civil.Time `json:"start"`
	End     civil.Time `json:"end"`
	Comment string     `json:"comment,omitempty"`
}

// Key locates an appointment on the calendar.
type Key struct {
	Date  civil.Date
	Start civil.Time
}

func (k Key) String() string {
	return k.Date.String() + " " + calendar.FormatClock(k.Start)
}

// Slot is a free interval on a given day.
type Slot struct {
	Date  civil.Date `json:"date"`
	Start civil.Time `json:"start"`
	End   civil.Time `json:"end"`
}

func (s Slot) String() string {
	return fmt.Sprintf("%s %s-%s", s.Date, calendar.FormatClock(s.Start), calendar.FormatClock(s.End))
}

// BusinessHours bounds the free slot computation for every day.
type BusinessHours struct {
	Open  civil.Time
	Close civil.Time
}

func (h BusinessHours) Validate() error {
	if calendar.CompareTime(h.Open, h.Close) >= 0 {
		return clinicerr.Validation("business hours must open before they close")
	}
	return nil
}

// New builds an appointment after checking its time window.
func New(patient Patient, date civil.Date, start, end civil.Time, comment string) (Appointment, error) {
	a := Appointment{
		Patient: patient,
		Date:    date,
		Start:   start,
		End:     end,
		Comment: strings.TrimSpace(comment),
	}
	if err := a.Validate(); err != nil {
		return Appointment{}, err
	}
	return a, nil
}

func (a Appointment) Validate() error {
	if strings.TrimSpace(a.Patient.ID) == "" {
		return clinicerr.Validation("appointment requires a patient")
	}
	if !a.Date.IsValid() {
		return clinicerr.Validation("appointment date is invalid")
	}
	if calendar.CompareTime(a.Start, a.End) >= 0 {
		return clinicerr.Validation("appointment start must be before end")
	}
	return nil
}

func (a Appointment) Key() Key {
	return Key{Date: a.Date, Start: a.Start}
}

// Title is the heading shared by the appointment and its reminder.
func (a Appointment) Title() string {
	return fmt.Sprintf("Appointment: %s (%s)", a.Patient.Name, a.Patient.ID)
}

// Overlaps reports whether both appointments share any instant, treating
// each window as [start, end).
func (a Appointment) Overlaps(b Appointment) bool {
	if a.Date != b.Date {
		return false
	}
	return calendar.CompareTime(b.Start, a.End) < 0 && calendar.CompareTime(a.Start, b.End) < 0
}

func (a Appointment) same(b Appointment) bool {
	return a.Date == b.Date && a.Start == b.Start && a.End == b.End
}

func (a Appointment) String() string {
	s := fmt.Sprintf("%s %s-%s %s (%s)",
		a.Date, calendar.FormatClock(a.Start), calendar.FormatClock(a.End), a.Patient.Name, a.Patient.ID)
	if a.Comment != "" {
		s += ": " + a.Comment
	}
	return s
}

// Summarize renders one appointment per line.
func Summarize(list []Appointment) string {
	var sb strings.Builder
	for _, a := range list {
		sb.WriteString(a.String())
		sb.WriteByte('\n')
	}
	return sb.String()
}

// FormatSlots renders one free slot per line.
func FormatSlots(slots []Slot) string {
	var sb strings.Builder
	for _, s := range slots {
		sb.WriteString(s.String())
		sb.WriteByte('\n')
	}
	return sb.String()
}
