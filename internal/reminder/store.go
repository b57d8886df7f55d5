package reminder

import (
	"fmt"
	"sort"
	"time"

	"github.com/golang-sql/civil"
	"github.com/google/uuid"

	"github.com/hackgods/clinic-scheduling/internal/calendar"
	"github.com/hackgods/clinic-scheduling/internal/clinicerr"
)

var (
	ErrDuplicateReminder = fmt.Errorf("%w: reminder already exists", clinicerr.ErrDuplicate)
	ErrReminderNotFound  = fmt.Errorf("%w: reminder not found", clinicerr.ErrNotFound)
)

// Outcome describes what ForMedicine did.
type Outcome string

const (
	Unchanged Outcome = "unchanged"
	Created   Outcome = "created"
	Replaced  Outcome = "replaced"
	Removed   Outcome = "removed"
)

// Store owns every reminder and the filtered view shown to the user.
// Subscribers are called synchronously with the filtered set after each
// change. Store is not safe for concurrent use.
type Store struct {
	items       []Reminder
	filter      Predicate
	subscribers []func([]Reminder)
	now         func() time.Time
	loc         *time.Location
}

// NewStore creates an empty store. now supplies the date for low-stock
// reminders; nil means time.Now.
func NewStore(now func() time.Time, loc *time.Location) *Store {
	if now == nil {
		now = time.Now
	}
	if loc == nil {
		loc = time.UTC
	}
	return &Store{filter: ShowAll, now: now, loc: loc}
}

func (s *Store) Today() civil.Date {
	return calendar.Today(s.now(), s.loc)
}

func (s *Store) Len() int {
	return len(s.items)
}

// Add stores r, assigning an ID when it has none.
func (s *Store) Add(r Reminder) (Reminder, error) {
	stored, err := s.insert(r)
	if err != nil {
		return Reminder{}, err
	}
	s.notify()
	return stored, nil
}

// Match returns the stored reminder equal to want.
func (s *Store) Match(want Reminder) (Reminder, bool) {
	for _, r := range s.items {
		if r.Equal(want) {
			return r, true
		}
	}
	return Reminder{}, false
}

func (s *Store) Get(id uuid.UUID) (Reminder, bool) {
	for _, r := range s.items {
		if r.ID == id {
			return r, true
		}
	}
	return Reminder{}, false
}

func (s *Store) Delete(r Reminder) error {
	if !s.remove(r.ID) {
		return fmt.Errorf("%w: %s", ErrReminderNotFound, r.ID)
	}
	s.notify()
	return nil
}

// ForMedicine keeps exactly one low-stock reminder for m while it is at or
// below its threshold and none otherwise.
func (s *Store) ForMedicine(m StockLevel) (Outcome, error) {
	existing, had := s.forMedicine(m.Name())
	if !LowStock(m) {
		if !had {
			return Unchanged, nil
		}
		s.remove(existing.ID)
		s.notify()
		return Removed, nil
	}

	if had {
		s.remove(existing.ID)
	}
	if _, err := s.insert(lowStockReminder(m, s.Today())); err != nil {
		if had {
			// put the old one back so the medicine stays covered
			s.items = append(s.items, existing)
			s.reorder()
		}
		return Unchanged, fmt.Errorf("low stock reminder for %s: %w", m.Name(), err)
	}
	s.notify()
	if had {
		return Replaced, nil
	}
	return Created, nil
}

// DeleteMedicineReminder removes the low-stock reminder of m, reporting
// whether there was one.
func (s *Store) DeleteMedicineReminder(m StockLevel) bool {
	existing, ok := s.forMedicine(m.Name())
	if !ok {
		return false
	}
	s.remove(existing.ID)
	s.notify()
	return true
}

func (s *Store) FilterByDateRange(from, to civil.Date) []Reminder {
	return s.Select(WithinDates(from, to))
}

func (s *Store) Select(pred Predicate) []Reminder {
	var out []Reminder
	for _, r := range s.items {
		if pred(r) {
			out = append(out, r)
		}
	}
	return out
}

// CurrentWeekPredicate is the default view: this week, Monday first.
func (s *Store) CurrentWeekPredicate() Predicate {
	return CurrentWeek(s.Today())
}

func (s *Store) SetFilter(pred Predicate) {
	if pred == nil {
		pred = ShowAll
	}
	s.filter = pred
	s.notify()
}

// Filtered returns the reminders matching the current view filter.
func (s *Store) Filtered() []Reminder {
	return s.Select(s.filter)
}

func (s *Store) Subscribe(fn func([]Reminder)) {
	s.subscribers = append(s.subscribers, fn)
}

func (s *Store) All() []Reminder {
	out := make([]Reminder, len(s.items))
	copy(out, s.items)
	return out
}

// Restore replaces the contents of the store.
func (s *Store) Restore(list []Reminder) error {
	prev := s.items
	s.items = nil
	for _, r := range list {
		if _, err := s.insert(r); err != nil {
			s.items = prev
			return fmt.Errorf("restore reminder %q: %w", r.Title, err)
		}
	}
	s.notify()
	return nil
}

func (s *Store) insert(r Reminder) (Reminder, error) {
	if err := r.Validate(); err != nil {
		return Reminder{}, err
	}
	if r.Source.Kind == "" {
		r.Source.Kind = SourceManual
	}
	if s.clashes(r) {
		return Reminder{}, fmt.Errorf("%w: %s", ErrDuplicateReminder, r)
	}
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	s.items = append(s.items, r)
	s.reorder()
	return r, nil
}

// clashes reports whether r duplicates a stored reminder. Low-stock
// reminders are identified by their medicine, so they never clash with
// reminders from any other source.
func (s *Store) clashes(r Reminder) bool {
	for _, o := range s.items {
		if (o.Source.Kind == SourceMedicine) != (r.Source.Kind == SourceMedicine) {
			continue
		}
		if o.Equal(r) {
			return true
		}
	}
	return false
}

func (s *Store) remove(id uuid.UUID) bool {
	for i, r := range s.items {
		if r.ID == id {
			s.items = append(s.items[:i], s.items[i+1:]...)
			return true
		}
	}
	return false
}

func (s *Store) forMedicine(name string) (Reminder, bool) {
	for _, r := range s.items {
		if r.Source.Kind == SourceMedicine && r.Source.Key == name {
			return r, true
		}
	}
	return Reminder{}, false
}

func (s *Store) reorder() {
	sort.SliceStable(s.items, func(i, j int) bool {
		a, b := s.items[i], s.items[j]
		if c := calendar.CompareDate(a.Date, b.Date); c != 0 {
			return c < 0
		}
		switch {
		case a.Start == nil:
			return b.Start != nil
		case b.Start == nil:
			return false
		default:
			return calendar.CompareTime(*a.Start, *b.Start) < 0
		}
	})
}

func (s *Store) notify() {
	if len(s.subscribers) == 0 {
		return
	}
	view := s.Filtered()
	for _, fn := range s.subscribers {
		fn(view)
	}
}
