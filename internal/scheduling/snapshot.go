package scheduling

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/hackgods/clinic-scheduling/internal/appointment"
	"github.com/hackgods/clinic-scheduling/internal/inventory"
	"github.com/hackgods/clinic-scheduling/internal/reminder"
	"github.com/hackgods/clinic-scheduling/internal/stats"
)

const SnapshotVersion = 1

// Snapshot is the JSON image of every store.
type Snapshot struct {
	Version         int                         `json:"version"`
	TakenAt         time.Time                   `json:"taken_at"`
	Appointments    []appointment.Appointment   `json:"appointments"`
	Reminders       []reminder.Reminder         `json:"reminders"`
	Inventory       inventory.DirectorySnapshot `json:"inventory"`
	Buckets         []stats.Bucket              `json:"buckets"`
	ConsultationFee decimal.Decimal             `json:"consultation_fee"`
}

func (s *Service) Snapshot(_ context.Context) Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	return Snapshot{
		Version:         SnapshotVersion,
		TakenAt:         s.clock.Now(),
		Appointments:    s.appointments.All(),
		Reminders:       s.reminders.All(),
		Inventory:       s.inventory.Snapshot(),
		Buckets:         s.stats.Buckets(),
		ConsultationFee: s.stats.ConsultationFee(),
	}
}

// Restore replaces all state with snap. Nothing changes if any part of the
// snapshot is rejected.
func (s *Service) Restore(_ context.Context, snap Snapshot) error {
	if snap.Version != SnapshotVersion {
		return fmt.Errorf("unsupported snapshot version %d", snap.Version)
	}

	appointments := appointment.NewStore(s.hours)
	if err := appointments.Restore(snap.Appointments); err != nil {
		return fmt.Errorf("restore appointments: %w", err)
	}
	inv, err := inventory.FromSnapshot(snap.Inventory)
	if err != nil {
		return fmt.Errorf("restore inventory: %w", err)
	}
	agg, err := stats.NewAggregator(snap.ConsultationFee, s.loc)
	if err != nil {
		return fmt.Errorf("restore consultation fee: %w", err)
	}
	if err := agg.Restore(snap.Buckets); err != nil {
		return fmt.Errorf("restore statistics: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.reminders.Restore(snap.Reminders); err != nil {
		return fmt.Errorf("restore reminders: %w", err)
	}
	s.appointments = appointments
	s.inventory = inv
	s.stats = agg

	s.log.Info().
		Int("appointments", len(snap.Appointments)).
		Int("reminders", len(snap.Reminders)).
		Int("buckets", len(snap.Buckets)).
		Time("taken_at", snap.TakenAt).
		Msg("state restored")
	return nil
}
