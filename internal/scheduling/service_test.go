package scheduling

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/golang-sql/civil"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hackgods/clinic-scheduling/internal/appointment"
	"github.com/hackgods/clinic-scheduling/internal/clinicerr"
	"github.com/hackgods/clinic-scheduling/internal/inventory"
	"github.com/hackgods/clinic-scheduling/internal/reminder"
	"github.com/hackgods/clinic-scheduling/internal/stats"
	"github.com/hackgods/clinic-scheduling/internal/storage"
)

var (
	october23 = civil.Date{Year: 2019, Month: time.October, Day: 23}
	alice     = appointment.Patient{ID: "S1234567A", Name: "Alice Tan"}
	bob       = appointment.Patient{ID: "S7654321B", Name: "Bob Lim"}
)

type recordingJournal struct {
	mu     sync.Mutex
	events []storage.Event
	err    error
}

func (j *recordingJournal) InsertEvent(_ context.Context, ev storage.Event) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.events = append(j.events, ev)
	return j.err
}

func (j *recordingJournal) types() []string {
	j.mu.Lock()
	defer j.mu.Unlock()
	out := make([]string, 0, len(j.events))
	for _, ev := range j.events {
		out = append(out, ev.Type)
	}
	return out
}

func clock(loc *time.Location) stats.Clock {
	return stats.ClockFunc(func() time.Time {
		return time.Date(2019, time.October, 23, 10, 0, 0, 0, loc)
	})
}

func newTestService(t *testing.T, journal Journal) *Service {
	t.Helper()
	loc := time.UTC
	svc, err := NewService(Options{
		Hours:           appointment.BusinessHours{Open: civil.Time{Hour: 9}, Close: civil.Time{Hour: 18}},
		Location:        loc,
		ConsultationFee: decimal.NewFromInt(20),
		Clock:           clock(loc),
		Journal:         journal,
		Logger:          zerolog.Nop(),
	})
	require.NoError(t, err)
	return svc
}

func book(t *testing.T, p appointment.Patient, startHour, endHour int) appointment.Appointment {
	t.Helper()
	a, err := appointment.New(p, october23, civil.Time{Hour: startHour}, civil.Time{Hour: endHour}, "checkup")
	require.NoError(t, err)
	return a
}

func TestAddAppointmentCreatesReminder(t *testing.T) {
	journal := &recordingJournal{}
	svc := newTestService(t, journal)
	ctx := context.Background()

	a, rem, err := svc.AddAppointment(ctx, book(t, alice, 16, 17))
	require.NoError(t, err)
	assert.Equal(t, a.Title(), rem.Title)
	assert.Equal(t, october23, rem.Date)
	require.NotNil(t, rem.Start)
	assert.Equal(t, civil.Time{Hour: 16}, *rem.Start)
	assert.Equal(t, reminder.SourceAppointment, rem.Source.Kind)

	_, _, err = svc.AddAppointment(ctx, book(t, bob, 16, 18))
	assert.True(t, errors.Is(err, clinicerr.ErrConflict))

	list, err := svc.ListReminders(ctx, october23, october23)
	require.NoError(t, err)
	assert.Len(t, list, 1)
	assert.Equal(t, []string{EventAppointmentAdded}, journal.types())
}

func TestBackToBackAppointmentsDoNotConflict(t *testing.T) {
	svc := newTestService(t, nil)
	ctx := context.Background()

	_, _, err := svc.AddAppointment(ctx, book(t, alice, 16, 17))
	require.NoError(t, err)
	_, _, err = svc.AddAppointment(ctx, book(t, bob, 17, 18))
	require.NoError(t, err)

	list, err := svc.ListAppointments(ctx, october23, october23)
	require.NoError(t, err)
	assert.Len(t, list, 2)
}

func TestDeleteAppointmentRemovesReminder(t *testing.T) {
	svc := newTestService(t, nil)
	ctx := context.Background()

	_, _, err := svc.AddAppointment(ctx, book(t, alice, 16, 17))
	require.NoError(t, err)

	deleted, err := svc.DeleteAppointment(ctx, october23, civil.Time{Hour: 16})
	require.NoError(t, err)
	assert.Equal(t, alice, deleted.Patient)

	list, err := svc.ListReminders(ctx, october23, october23)
	require.NoError(t, err)
	assert.Empty(t, list)

	_, err = svc.DeleteAppointment(ctx, october23, civil.Time{Hour: 16})
	assert.True(t, errors.Is(err, clinicerr.ErrNotFound))
}

func TestDeleteAppointmentToleratesMissingReminder(t *testing.T) {
	svc := newTestService(t, nil)
	ctx := context.Background()

	_, rem, err := svc.AddAppointment(ctx, book(t, alice, 16, 17))
	require.NoError(t, err)
	_, err = svc.DeleteReminder(ctx, rem.ID)
	require.NoError(t, err)

	_, err = svc.DeleteAppointment(ctx, october23, civil.Time{Hour: 16})
	require.NoError(t, err)
	assert.Empty(t, svc.ListAppointmentsByPatient(ctx, alice.ID))

	_, err = svc.DeleteReminder(ctx, rem.ID)
	assert.True(t, errors.Is(err, clinicerr.ErrNotFound))
}

func TestAddReminderRejectsDuplicate(t *testing.T) {
	svc := newTestService(t, nil)
	ctx := context.Background()

	r := reminder.Reminder{Title: "Order gloves", Date: october23}
	stored, err := svc.AddReminder(ctx, r)
	require.NoError(t, err)
	assert.Equal(t, reminder.SourceManual, stored.Source.Kind)

	_, err = svc.AddReminder(ctx, r)
	assert.True(t, errors.Is(err, clinicerr.ErrDuplicate))
}

func TestFreeSlotsThroughService(t *testing.T) {
	svc := newTestService(t, nil)
	ctx := context.Background()

	slots, err := svc.FreeSlots(ctx, october23, october23)
	require.NoError(t, err)
	require.Len(t, slots, 1)
	assert.Equal(t, civil.Time{Hour: 9}, slots[0].Start)
	assert.Equal(t, civil.Time{Hour: 18}, slots[0].End)

	_, _, err = svc.AddAppointment(ctx, book(t, alice, 9, 18))
	require.NoError(t, err)
	slots, err = svc.FreeSlots(ctx, october23, october23)
	require.NoError(t, err)
	assert.Empty(t, slots)
}

func TestCurrentWeekView(t *testing.T) {
	svc := newTestService(t, nil)
	ctx := context.Background()

	var published [][]reminder.Reminder
	svc.SubscribeReminders(func(view []reminder.Reminder) {
		published = append(published, view)
	})

	_, err := svc.AddReminder(ctx, reminder.Reminder{Title: "Sunday stocktake", Date: civil.Date{Year: 2019, Month: time.October, Day: 27}})
	require.NoError(t, err)
	_, err = svc.AddReminder(ctx, reminder.Reminder{Title: "Next Monday", Date: civil.Date{Year: 2019, Month: time.October, Day: 28}})
	require.NoError(t, err)

	view := svc.ShowCurrentWeek(ctx)
	assert.Equal(t, civil.Date{Year: 2019, Month: time.October, Day: 21}, view.From)
	assert.Equal(t, civil.Date{Year: 2019, Month: time.October, Day: 27}, view.To)
	require.Len(t, view.Reminders, 1)
	assert.Equal(t, "Sunday stocktake", view.Reminders[0].Title)

	require.NotEmpty(t, published)
	assert.Equal(t, view.Reminders, published[len(published)-1])
	assert.Equal(t, view.Reminders, svc.CurrentReminders(ctx))
}

func stockMedicine(t *testing.T, svc *Service, dir []string, name string, qty int, price string) {
	t.Helper()
	_, err := svc.AddMedicine(context.Background(), dir, name, qty, decimal.RequireFromString(price))
	require.NoError(t, err)
}

func lowStockTitles(t *testing.T, svc *Service) []string {
	t.Helper()
	list, err := svc.ListReminders(context.Background(), october23, october23)
	require.NoError(t, err)
	var out []string
	for _, r := range list {
		if r.Source.Kind == reminder.SourceMedicine {
			out = append(out, r.Title)
		}
	}
	return out
}

func TestPurchaseClearsLowStockAndRecordsExpenditure(t *testing.T) {
	journal := &recordingJournal{}
	svc := newTestService(t, journal)
	ctx := context.Background()

	stockMedicine(t, svc, []string{inventory.RootName}, "Paracetamol", 5, "0.20")
	_, err := svc.SetMedicineThreshold(ctx, []string{"Paracetamol"}, 10)
	require.NoError(t, err)
	assert.Equal(t, []string{"Low stock: Paracetamol"}, lowStockTitles(t, svc))

	view, rec, err := svc.PurchaseMedicine(ctx, []string{inventory.RootName, "Paracetamol"}, 40, decimal.NewFromFloat(50.0))
	require.NoError(t, err)
	assert.Equal(t, 45, view.Quantity)
	assert.False(t, view.LowStock)
	assert.Equal(t, stats.KindPurchase, rec.Kind)
	assert.Empty(t, lowStockTitles(t, svc))

	oct := stats.Month{Year: 2019, Month: time.October}
	s, err := svc.Statistics(ctx, oct, oct)
	require.NoError(t, err)
	assert.True(t, s.Expenditure.GreaterThanOrEqual(decimal.NewFromInt(50)))
	assert.Contains(t, journal.types(), EventMedicinePurchased)
}

func TestPurchaseBucketsInClinicTimezone(t *testing.T) {
	sgt := time.FixedZone("SGT", 8*60*60)
	svc, err := NewService(Options{
		Hours:    appointment.BusinessHours{Open: civil.Time{Hour: 9}, Close: civil.Time{Hour: 18}},
		Location: sgt,
		Clock: stats.ClockFunc(func() time.Time {
			return time.Date(2019, time.October, 31, 17, 0, 0, 0, time.UTC)
		}),
		Logger: zerolog.Nop(),
	})
	require.NoError(t, err)
	ctx := context.Background()

	assert.Equal(t, civil.Date{Year: 2019, Month: time.November, Day: 1}, svc.Today())

	stockMedicine(t, svc, []string{inventory.RootName}, "Panadol", 10, "1")
	_, _, err = svc.PurchaseMedicine(ctx, []string{"Panadol"}, 50, decimal.NewFromInt(50))
	require.NoError(t, err)

	nov := stats.Month{Year: 2019, Month: time.November}
	oct := stats.Month{Year: 2019, Month: time.October}
	s, err := svc.Statistics(ctx, nov, nov)
	require.NoError(t, err)
	assert.True(t, s.Expenditure.Equal(decimal.NewFromInt(50)))
	s, err = svc.Statistics(ctx, oct, oct)
	require.NoError(t, err)
	assert.True(t, s.Expenditure.IsZero())
}

func TestLowStockReminderDespiteIdenticalManualReminder(t *testing.T) {
	svc := newTestService(t, nil)
	ctx := context.Background()

	_, err := svc.AddReminder(ctx, reminder.Reminder{Title: "Low stock: panadol", Date: october23})
	require.NoError(t, err)
	stockMedicine(t, svc, []string{inventory.RootName}, "panadol", 20, "0.5")

	_, err = svc.SetMedicineThreshold(ctx, []string{"panadol"}, 30)
	require.NoError(t, err)
	assert.Equal(t, []string{"Low stock: panadol"}, lowStockTitles(t, svc))

	list, err := svc.ListReminders(ctx, october23, october23)
	require.NoError(t, err)
	assert.Len(t, list, 2)
}

func TestDirectoryThresholdCascades(t *testing.T) {
	svc := newTestService(t, nil)
	ctx := context.Background()

	_, err := svc.AddDirectory(ctx, []string{"root"}, "test1")
	require.NoError(t, err)
	_, err = svc.AddDirectory(ctx, []string{"root", "test1"}, "test2")
	require.NoError(t, err)
	stockMedicine(t, svc, []string{"root"}, "Gauze", 100, "1")
	stockMedicine(t, svc, []string{"root", "test1"}, "Ibuprofen", 30, "0.5")
	stockMedicine(t, svc, []string{"root", "test1", "test2"}, "Morphine", 8, "3")

	touched, err := svc.SetDirectoryThreshold(ctx, []string{"root", "test1"}, 30)
	require.NoError(t, err)
	assert.Equal(t, 2, touched)
	assert.ElementsMatch(t, []string{"Low stock: Ibuprofen", "Low stock: Morphine"}, lowStockTitles(t, svc))

	for _, m := range svc.ListMedicines(ctx) {
		if m.Name == "Gauze" {
			assert.Equal(t, 0, m.Threshold)
		} else {
			assert.Equal(t, 30, m.Threshold)
		}
	}

	_, err = svc.SetDirectoryThreshold(ctx, []string{"root", "test1"}, 0)
	require.NoError(t, err)
	assert.Empty(t, lowStockTitles(t, svc))

	_, err = svc.SetDirectoryThreshold(ctx, []string{"root", "nope"}, 3)
	assert.True(t, errors.Is(err, clinicerr.ErrNotFound))

	touched, err = svc.SetDirectoryThreshold(ctx, []string{"root", "test1"}, -1)
	assert.True(t, errors.Is(err, clinicerr.ErrValidation))
	assert.Zero(t, touched)
	for _, m := range svc.ListMedicines(ctx) {
		assert.Zero(t, m.Threshold, m.Name)
	}
}

func TestConsultInsufficientStockChangesNothing(t *testing.T) {
	svc := newTestService(t, nil)
	ctx := context.Background()

	stockMedicine(t, svc, []string{"root"}, "Amoxicillin", 10, "2")
	stockMedicine(t, svc, []string{"root"}, "Cough Syrup", 1, "5")

	_, err := svc.Consult(ctx, Consultation{
		Patient: alice,
		Prescriptions: []Prescription{
			{Medicine: []string{"Amoxicillin"}, Quantity: 6},
			{Medicine: []string{"Cough Syrup"}, Quantity: 2},
		},
	})
	assert.True(t, errors.Is(err, clinicerr.ErrValidation))

	for _, m := range svc.ListMedicines(ctx) {
		switch m.Name {
		case "Amoxicillin":
			assert.Equal(t, 10, m.Quantity)
		case "Cough Syrup":
			assert.Equal(t, 1, m.Quantity)
		}
	}

	oct := stats.Month{Year: 2019, Month: time.October}
	s, err := svc.Statistics(ctx, oct, oct)
	require.NoError(t, err)
	assert.Equal(t, 0, s.Consultations)
}

func TestConsultRecordsFeeAndSales(t *testing.T) {
	svc := newTestService(t, nil)
	ctx := context.Background()

	stockMedicine(t, svc, []string{"root"}, "Amoxicillin", 10, "2")
	_, err := svc.SetMedicineThreshold(ctx, []string{"Amoxicillin"}, 5)
	require.NoError(t, err)

	rec, err := svc.Consult(ctx, Consultation{
		Patient: alice,
		Prescriptions: []Prescription{
			{Medicine: []string{"root", "Amoxicillin"}, Quantity: 3},
			{Medicine: []string{"Amoxicillin"}, Quantity: 3},
		},
	})
	require.NoError(t, err)
	assert.True(t, rec.Amount.Equal(decimal.NewFromInt(32)), rec.Amount.String())
	assert.Equal(t, []string{"Low stock: Amoxicillin"}, lowStockTitles(t, svc))

	require.NoError(t, svc.SetConsultationFee(ctx, decimal.NewFromInt(25)))
	_, err = svc.Consult(ctx, Consultation{Patient: bob})
	require.NoError(t, err)

	oct := stats.Month{Year: 2019, Month: time.October}
	s, err := svc.Statistics(ctx, oct, oct)
	require.NoError(t, err)
	assert.True(t, s.Revenue.Equal(decimal.NewFromInt(57)), s.Revenue.String())
	assert.Equal(t, 2, s.Consultations)
	assert.Equal(t, 6, s.Prescribed["Amoxicillin"])
}

func TestStatisticsEpoch(t *testing.T) {
	svc := newTestService(t, nil)
	ctx := context.Background()

	_, err := svc.Statistics(ctx, stats.DefaultEpoch, stats.DefaultEpoch)
	require.NoError(t, err)

	_, err = svc.Statistics(ctx, stats.Month{Year: 2018, Month: time.December}, stats.DefaultEpoch)
	assert.True(t, errors.Is(err, clinicerr.ErrInvalidRange))
}

func TestJournalFailureIsNotReturned(t *testing.T) {
	journal := &recordingJournal{err: errors.New("db down")}
	svc := newTestService(t, journal)

	_, _, err := svc.AddAppointment(context.Background(), book(t, alice, 10, 11))
	require.NoError(t, err)
	assert.Len(t, journal.types(), 1)
}

func TestSnapshotRestoreRoundTrip(t *testing.T) {
	svc := newTestService(t, nil)
	ctx := context.Background()

	_, _, err := svc.AddAppointment(ctx, book(t, alice, 16, 17))
	require.NoError(t, err)
	_, err = svc.AddDirectory(ctx, []string{"root"}, "painkillers")
	require.NoError(t, err)
	stockMedicine(t, svc, []string{"root", "painkillers"}, "Paracetamol", 3, "0.2")
	_, err = svc.SetMedicineThreshold(ctx, []string{"Paracetamol"}, 5)
	require.NoError(t, err)
	_, _, err = svc.PurchaseMedicine(ctx, []string{"Paracetamol"}, 1, decimal.NewFromInt(12))
	require.NoError(t, err)

	snap := svc.Snapshot(ctx)

	restored := newTestService(t, nil)
	require.NoError(t, restored.Restore(ctx, snap))
	assert.Equal(t, snap.Appointments, restored.Snapshot(ctx).Appointments)
	assert.Equal(t, snap.Reminders, restored.Snapshot(ctx).Reminders)
	assert.Equal(t, snap.Inventory, restored.Snapshot(ctx).Inventory)

	oct := stats.Month{Year: 2019, Month: time.October}
	s, err := restored.Statistics(ctx, oct, oct)
	require.NoError(t, err)
	assert.True(t, s.Expenditure.Equal(decimal.NewFromInt(12)))

	_, _, err = restored.AddAppointment(ctx, book(t, bob, 16, 17))
	assert.True(t, errors.Is(err, clinicerr.ErrConflict))

	snap.Version = 99
	assert.Error(t, restored.Restore(ctx, snap))
}
