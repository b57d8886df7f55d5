package appointment

import (
	"fmt"
	"sort"

	"github.com/golang-sql/civil"

	"github.com/hackgods/clinic-scheduling/internal/calendar"
	"github.com/hackgods/clinic-scheduling/internal/clinicerr"
)

var (
	ErrTimeConflict        = fmt.Errorf("%w: the time slot has already been taken", clinicerr.ErrConflict)
	ErrAppointmentNotFound = fmt.Errorf("%w: appointment not found", clinicerr.ErrNotFound)
)

// Store keeps every booked appointment sorted by date and start time.
// There is a single shared calendar; overlap is checked across all patients.
// Store is not safe for concurrent use.
type Store struct {
	hours BusinessHours
	items []Appointment
}

func NewStore(hours BusinessHours) *Store {
	return &Store{hours: hours}
}

func (s *Store) Hours() BusinessHours {
	return s.hours
}

func (s *Store) Len() int {
	return len(s.items)
}

// Add books a. It fails with ErrTimeConflict when a overlaps an existing
// appointment on the same date.
func (s *Store) Add(a Appointment) error {
	if err := a.Validate(); err != nil {
		return err
	}

	for _, existing := range s.sameDay(a.Date) {
		if existing.Overlaps(a) {
			return fmt.Errorf("%w: %s overlaps %s", ErrTimeConflict, a.Key(), existing.Key())
		}
	}

	idx := sort.Search(len(s.items), func(i int) bool {
		return less(a, s.items[i])
	})
	s.items = append(s.items, Appointment{})
	copy(s.items[idx+1:], s.items[idx:])
	s.items[idx] = a
	return nil
}

// Find returns the appointment starting at start on date.
func (s *Store) Find(date civil.Date, start civil.Time) (Appointment, bool) {
	for _, a := range s.sameDay(date) {
		if a.Start == start {
			return a, true
		}
	}
	return Appointment{}, false
}

// ListByDateRange returns appointments dated within [from, to].
func (s *Store) ListByDateRange(from, to civil.Date) []Appointment {
	var out []Appointment
	for _, a := range s.items {
		if a.Date.After(to) {
			// sorted, nothing later can match
			break
		}
		if !a.Date.Before(from) {
			out = append(out, a)
		}
	}
	return out
}

func (s *Store) ListByPatient(patientID string) []Appointment {
	var out []Appointment
	for _, a := range s.items {
		if a.Patient.ID == patientID {
			out = append(out, a)
		}
	}
	return out
}

func (s *Store) Delete(a Appointment) error {
	for i, existing := range s.items {
		if existing.same(a) {
			s.items = append(s.items[:i], s.items[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("%w: %s", ErrAppointmentNotFound, a.Key())
}

// FreeSlots returns, for every day in [from, to], the parts of business
// hours not covered by an appointment.
func (s *Store) FreeSlots(from, to civil.Date) ([]Slot, error) {
	if from.After(to) {
		return nil, clinicerr.InvalidRange("free slot search must start before it ends")
	}

	var slots []Slot
	for day := from; !day.After(to); day = day.AddDays(1) {
		cursor := s.hours.Open
		for _, a := range s.sameDay(day) {
			if calendar.CompareTime(a.End, cursor) <= 0 {
				continue
			}
			if calendar.CompareTime(a.Start, cursor) > 0 {
				slots = append(slots, Slot{Date: day, Start: cursor, End: minTime(a.Start, s.hours.Close)})
			}
			cursor = a.End
			if calendar.CompareTime(cursor, s.hours.Close) >= 0 {
				break
			}
		}
		if calendar.CompareTime(cursor, s.hours.Close) < 0 {
			slots = append(slots, Slot{Date: day, Start: cursor, End: s.hours.Close})
		}
	}
	return slots, nil
}

// All returns a copy of every appointment in calendar order.
func (s *Store) All() []Appointment {
	out := make([]Appointment, len(s.items))
	copy(out, s.items)
	return out
}

// Restore replaces the store contents, re-checking every invariant.
func (s *Store) Restore(list []Appointment) error {
	fresh := NewStore(s.hours)
	for _, a := range list {
		if err := fresh.Add(a); err != nil {
			return fmt.Errorf("restore appointment %s: %w", a.Key(), err)
		}
	}
	s.items = fresh.items
	return nil
}

func (s *Store) sameDay(date civil.Date) []Appointment {
	lo := sort.Search(len(s.items), func(i int) bool {
		return !s.items[i].Date.Before(date)
	})
	hi := lo
	for hi < len(s.items) && s.items[hi].Date == date {
		hi++
	}
	return s.items[lo:hi]
}

func less(a, b Appointment) bool {
	if c := calendar.CompareDate(a.Date, b.Date); c != 0 {
		return c < 0
	}
	return calendar.CompareTime(a.Start, b.Start) < 0
}

func minTime(a, b civil.Time) civil.Time {
	if calendar.CompareTime(a, b) < 0 {
		return a
	}
	return b
}
