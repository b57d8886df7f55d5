// Package scheduling is the facade the command surfaces talk to. It keeps
// reminders in step with appointments and stock levels and forwards money
// movements to the statistics aggregator.
package scheduling

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/golang-sql/civil"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/hackgods/clinic-scheduling/internal/appointment"
	"github.com/hackgods/clinic-scheduling/internal/calendar"
	"github.com/hackgods/clinic-scheduling/internal/clinicerr"
	"github.com/hackgods/clinic-scheduling/internal/inventory"
	"github.com/hackgods/clinic-scheduling/internal/metrics"
	"github.com/hackgods/clinic-scheduling/internal/reminder"
	"github.com/hackgods/clinic-scheduling/internal/stats"
	"github.com/hackgods/clinic-scheduling/internal/storage"
)

const (
	EventAppointmentAdded       = "APPOINTMENT_ADDED"
	EventAppointmentDeleted     = "APPOINTMENT_DELETED"
	EventReminderAdded          = "REMINDER_ADDED"
	EventReminderDeleted        = "REMINDER_DELETED"
	EventMedicinePurchased      = "MEDICINE_PURCHASED"
	EventThresholdChanged       = "THRESHOLD_CHANGED"
	EventConsultationRecorded   = "CONSULTATION_RECORDED"
	EventConsultationFeeChanged = "CONSULTATION_FEE_CHANGED"
)

// Journal receives an entry for every mutation.
type Journal interface {
	InsertEvent(ctx context.Context, ev storage.Event) error
}

type Options struct {
	Hours           appointment.BusinessHours
	Location        *time.Location
	Epoch           stats.Month
	ConsultationFee decimal.Decimal
	Clock           stats.Clock
	Journal         Journal
	Logger          zerolog.Logger
}

// Service serializes every operation behind one mutex. None of the stores
// it owns are safe for concurrent use on their own.
type Service struct {
	mu sync.Mutex

	appointments *appointment.Store
	reminders    *reminder.Store
	inventory    *inventory.Inventory
	stats        *stats.Aggregator

	hours   appointment.BusinessHours
	epoch   stats.Month
	clock   stats.Clock
	loc     *time.Location
	journal Journal
	log     zerolog.Logger
}

func NewService(opts Options) (*Service, error) {
	if err := opts.Hours.Validate(); err != nil {
		return nil, err
	}
	if opts.Clock == nil {
		opts.Clock = stats.SystemClock{}
	}
	if opts.Location == nil {
		opts.Location = calendar.Location(calendar.DefaultTimezone)
	}
	if opts.Epoch == (stats.Month{}) {
		opts.Epoch = stats.DefaultEpoch
	}
	agg, err := stats.NewAggregator(opts.ConsultationFee, opts.Location)
	if err != nil {
		return nil, err
	}

	return &Service{
		appointments: appointment.NewStore(opts.Hours),
		reminders:    reminder.NewStore(opts.Clock.Now, opts.Location),
		inventory:    inventory.New(),
		stats:        agg,
		hours:        opts.Hours,
		epoch:        opts.Epoch,
		clock:        opts.Clock,
		loc:          opts.Location,
		journal:      opts.Journal,
		log:          opts.Logger,
	}, nil
}

// SetJournal attaches j once persistence is available.
func (s *Service) SetJournal(j Journal) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.journal = j
}

func (s *Service) Epoch() stats.Month {
	return s.epoch
}

func (s *Service) Today() civil.Date {
	return calendar.Today(s.clock.Now(), s.loc)
}

// SubscribeReminders registers fn to receive the filtered reminder view
// after every change. fn runs while the service lock is held and must not
// call back into the service.
func (s *Service) SubscribeReminders(fn func([]reminder.Reminder)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reminders.Subscribe(fn)
}

// AddAppointment books a and adds the reminder mirroring it.
func (s *Service) AddAppointment(ctx context.Context, a appointment.Appointment) (appointment.Appointment, reminder.Reminder, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.appointments.Add(a); err != nil {
		if errors.Is(err, clinicerr.ErrConflict) {
			metrics.RecordConflict()
		}
		return appointment.Appointment{}, reminder.Reminder{}, err
	}

	mirror := appointmentReminder(a)
	rem, err := s.reminders.Add(mirror)
	if errors.Is(err, reminder.ErrDuplicateReminder) {
		// an identical reminder already covers this slot; it becomes the mirror
		rem, _ = s.reminders.Match(mirror)
		err = nil
	}
	if err != nil {
		return appointment.Appointment{}, reminder.Reminder{}, fmt.Errorf("reminder for appointment %s: %w", a.Key(), err)
	}

	s.logEvent(ctx, EventAppointmentAdded, a.Key().String(), a)
	return a, rem, nil
}

// DeleteAppointment removes the appointment at date/start and then its
// reminder. The two steps are not atomic; a reminder that is already gone
// is not an error.
func (s *Service) DeleteAppointment(ctx context.Context, date civil.Date, start civil.Time) (appointment.Appointment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.appointments.Find(date, start)
	if !ok {
		return appointment.Appointment{}, fmt.Errorf("%w: %s", appointment.ErrAppointmentNotFound, appointment.Key{Date: date, Start: start})
	}

	if rem, found := s.reminders.Match(appointmentReminder(a)); found {
		if err := s.reminders.Delete(rem); err != nil {
			s.log.Warn().Err(err).Str("appointment", a.Key().String()).Msg("delete appointment reminder")
		}
	} else {
		s.log.Debug().Str("appointment", a.Key().String()).Msg("appointment had no reminder")
	}

	if err := s.appointments.Delete(a); err != nil {
		return appointment.Appointment{}, err
	}

	s.logEvent(ctx, EventAppointmentDeleted, a.Key().String(), a)
	return a, nil
}

func (s *Service) ListAppointments(_ context.Context, from, to civil.Date) ([]appointment.Appointment, error) {
	if from.After(to) {
		return nil, clinicerr.InvalidRange(fmt.Sprintf("%s is after %s", from, to))
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.appointments.ListByDateRange(from, to), nil
}

func (s *Service) ListAppointmentsByPatient(_ context.Context, patientID string) []appointment.Appointment {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.appointments.ListByPatient(patientID)
}

func (s *Service) FreeSlots(_ context.Context, from, to civil.Date) ([]appointment.Slot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.appointments.FreeSlots(from, to)
}

func (s *Service) AddReminder(ctx context.Context, r reminder.Reminder) (reminder.Reminder, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r.ID = uuid.Nil
	r.Source = reminder.Source{Kind: reminder.SourceManual}
	stored, err := s.reminders.Add(r)
	if err != nil {
		return reminder.Reminder{}, err
	}
	s.logEvent(ctx, EventReminderAdded, stored.ID.String(), stored)
	return stored, nil
}

func (s *Service) DeleteReminder(ctx context.Context, id uuid.UUID) (reminder.Reminder, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.reminders.Get(id)
	if !ok {
		return reminder.Reminder{}, fmt.Errorf("%w: %s", reminder.ErrReminderNotFound, id)
	}
	if err := s.reminders.Delete(r); err != nil {
		return reminder.Reminder{}, err
	}
	s.logEvent(ctx, EventReminderDeleted, id.String(), r)
	return r, nil
}

// ListReminders returns reminders dated within [from, to].
func (s *Service) ListReminders(_ context.Context, from, to civil.Date) ([]reminder.Reminder, error) {
	if from.After(to) {
		return nil, clinicerr.InvalidRange(fmt.Sprintf("%s is after %s", from, to))
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reminders.FilterByDateRange(from, to), nil
}

// View is the window the reminder list is currently showing.
type View struct {
	From      civil.Date          `json:"from"`
	To        civil.Date          `json:"to"`
	Reminders []reminder.Reminder `json:"reminders"`
}

// SetReminderView narrows the observable reminder list to the day, week or
// month around date.
func (s *Service) SetReminderView(_ context.Context, format reminder.Format, date civil.Date) View {
	from, to := reminder.RangeFor(format, date)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.reminders.SetFilter(reminder.WithinDates(from, to))
	return View{From: from, To: to, Reminders: s.reminders.Filtered()}
}

// ShowCurrentWeek resets the view to Monday through Sunday of today.
func (s *Service) ShowCurrentWeek(ctx context.Context) View {
	return s.SetReminderView(ctx, reminder.FormatWeek, s.Today())
}

func (s *Service) CurrentReminders(_ context.Context) []reminder.Reminder {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reminders.Filtered()
}

func (s *Service) Statistics(_ context.Context, from, to stats.Month) (stats.Statistics, error) {
	if err := stats.ValidateRange(from, to, s.epoch); err != nil {
		return stats.Statistics{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stats.Statistics(from, to)
}

func (s *Service) ConsultationFee() decimal.Decimal {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stats.ConsultationFee()
}

func (s *Service) SetConsultationFee(ctx context.Context, fee decimal.Decimal) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	prev := s.stats.ConsultationFee()
	if err := s.stats.SetConsultationFee(fee); err != nil {
		return err
	}
	s.logEvent(ctx, EventConsultationFeeChanged, "consultation_fee", map[string]string{
		"from": prev.String(),
		"to":   fee.String(),
	})
	return nil
}

func appointmentReminder(a appointment.Appointment) reminder.Reminder {
	return reminder.Timed(a.Title(), a.Comment, a.Date, a.Start, a.End, reminder.Source{
		Kind: reminder.SourceAppointment,
		Key:  a.Key().String(),
	})
}

// logEvent records a mutation: metrics, debug log and the journal. Journal
// failures are logged and swallowed.
func (s *Service) logEvent(ctx context.Context, eventType, subject string, payload any) {
	metrics.RecordDomainEvent(eventType)
	metrics.SetRemindersActive(s.reminders.Len())
	s.log.Debug().Str("event", eventType).Str("subject", subject).Msg("domain event")

	if s.journal == nil {
		return
	}

	data, err := json.Marshal(payload)
	if err != nil {
		s.log.Warn().Err(err).Str("event", eventType).Msg("marshal event payload")
		data = nil
	}

	ev := storage.Event{
		Type:      eventType,
		Subject:   subject,
		Payload:   data,
		CreatedAt: s.clock.Now(),
	}
	if err := s.journal.InsertEvent(ctx, ev); err != nil {
		s.log.Warn().Err(err).Str("event", eventType).Str("subject", subject).Msg("journal event")
	}
}
