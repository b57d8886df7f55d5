package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/golang-sql/civil"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/hackgods/clinic-scheduling/internal/appointment"
	"github.com/hackgods/clinic-scheduling/internal/clinicerr"
	"github.com/hackgods/clinic-scheduling/internal/inventory"
	"github.com/hackgods/clinic-scheduling/internal/scheduling"
)

type seedPlan struct {
	Seed     uint64
	Patients int
	Days     int
	PerDay   int
	Months   int
	Hours    appointment.BusinessHours
}

type seedSummary struct {
	Appointments  int
	Conflicts     int
	Medicines     int
	Purchases     int
	Consultations int
}

// movableClock lets purchases and consultations land in past months so the
// statistics have history to report on.
type movableClock struct {
	at time.Time
}

func (c *movableClock) Now() time.Time { return c.at }

var catalogue = map[string][]string{
	"painkillers": {"Paracetamol", "Ibuprofen", "Aspirin", "Naproxen"},
	"antibiotics": {"Amoxicillin", "Azithromycin", "Doxycycline"},
	"respiratory": {"Cough Syrup", "Loratadine", "Salbutamol"},
}

var directoryOrder = []string{"painkillers", "antibiotics", "respiratory"}

type seeder struct {
	svc   *scheduling.Service
	clock *movableClock
	plan  seedPlan
	fake  *gofakeit.Faker
	log   zerolog.Logger

	patients  []appointment.Patient
	medicines []string
}

func newSeeder(svc *scheduling.Service, clock *movableClock, plan seedPlan, logger zerolog.Logger) *seeder {
	return &seeder{
		svc:   svc,
		clock: clock,
		plan:  plan,
		fake:  gofakeit.New(plan.Seed),
		log:   logger,
	}
}

func (s *seeder) run(ctx context.Context) (seedSummary, error) {
	var sum seedSummary

	s.patients = make([]appointment.Patient, 0, s.plan.Patients)
	for i := 0; i < s.plan.Patients; i++ {
		s.patients = append(s.patients, appointment.Patient{
			ID:   fmt.Sprintf("S%07d%s", s.fake.Number(0, 9_999_999), s.fake.RandomString([]string{"A", "B", "C", "D", "E", "F", "G"})),
			Name: s.fake.Name(),
		})
	}
	if len(s.patients) == 0 {
		return sum, clinicerr.Validation("SEED_PATIENTS must be positive")
	}

	if err := s.seedInventory(ctx, &sum); err != nil {
		return sum, fmt.Errorf("inventory: %w", err)
	}
	if err := s.seedHistory(ctx, &sum); err != nil {
		return sum, fmt.Errorf("history: %w", err)
	}
	if err := s.seedAppointments(ctx, &sum); err != nil {
		return sum, fmt.Errorf("appointments: %w", err)
	}
	return sum, nil
}

func (s *seeder) seedInventory(ctx context.Context, sum *seedSummary) error {
	root := []string{inventory.RootName}
	for _, dir := range directoryOrder {
		if _, err := s.svc.AddDirectory(ctx, root, dir); err != nil {
			return err
		}
		if _, err := s.svc.SetDirectoryThreshold(ctx, []string{inventory.RootName, dir}, s.fake.Number(5, 20)); err != nil {
			return err
		}
		for _, name := range catalogue[dir] {
			price := decimal.NewFromFloat(s.fake.Float64Range(0.5, 25)).Round(2)
			if _, err := s.svc.AddMedicine(ctx, []string{inventory.RootName, dir}, name, s.fake.Number(0, 40), price); err != nil {
				return err
			}
			s.medicines = append(s.medicines, name)
			sum.Medicines++
		}
	}
	return nil
}

// seedHistory books purchases and consultations across the past months.
func (s *seeder) seedHistory(ctx context.Context, sum *seedSummary) error {
	now := s.clock.at
	defer func() { s.clock.at = now }()

	for back := s.plan.Months; back >= 0; back-- {
		month := now.AddDate(0, -back, 0)

		s.clock.at = month

		for i := 0; i < 3; i++ {
			med := s.medicines[s.fake.Number(0, len(s.medicines)-1)]
			cost := decimal.NewFromFloat(s.fake.Float64Range(20, 200)).Round(2)
			if _, _, err := s.svc.PurchaseMedicine(ctx, []string{med}, s.fake.Number(20, 80), cost); err != nil {
				return err
			}
			sum.Purchases++
		}

		visits := s.fake.Number(4, 12)
		for i := 0; i < visits; i++ {
			p := s.patients[s.fake.Number(0, len(s.patients)-1)]
			c := scheduling.Consultation{
				Patient:     p,
				Description: s.fake.Sentence(6),
				Prescriptions: []scheduling.Prescription{{
					Medicine: []string{s.medicines[s.fake.Number(0, len(s.medicines)-1)]},
					Quantity: s.fake.Number(1, 3),
				}},
			}
			_, err := s.svc.Consult(ctx, c)
			if errors.Is(err, inventory.ErrInsufficientStock) {
				continue
			}
			if err != nil {
				return err
			}
			sum.Consultations++
		}
	}
	return nil
}

// seedAppointments fills the coming days with bookings of 30 or 60 minutes
// on a half-hour grid inside business hours. Clashes are expected and
// skipped.
func (s *seeder) seedAppointments(ctx context.Context, sum *seedSummary) error {
	today := s.svc.Today()
	openAt := s.plan.Hours.Open.Hour*60 + s.plan.Hours.Open.Minute
	closeAt := s.plan.Hours.Close.Hour*60 + s.plan.Hours.Close.Minute
	halfHours := (closeAt - openAt) / 30
	if halfHours < 1 {
		return clinicerr.Validation("business hours are shorter than one booking")
	}

	for d := 0; d < s.plan.Days; d++ {
		date := today.AddDays(d)
		for i := 0; i < s.plan.PerDay; i++ {
			first := s.fake.Number(0, halfHours-1)
			length := s.fake.Number(1, 2)
			if first+length > halfHours {
				length = 1
			}
			start := clockAt(openAt + first*30)
			end := clockAt(openAt + (first+length)*30)

			a, err := appointment.New(s.patients[s.fake.Number(0, len(s.patients)-1)], date, start, end, s.fake.Sentence(4))
			if err != nil {
				return err
			}
			_, _, err = s.svc.AddAppointment(ctx, a)
			switch {
			case errors.Is(err, clinicerr.ErrConflict):
				sum.Conflicts++
			case err != nil:
				return err
			default:
				sum.Appointments++
			}
		}
	}
	return nil
}

func clockAt(minutes int) civil.Time {
	return civil.Time{Hour: minutes / 60, Minute: minutes % 60}
}
