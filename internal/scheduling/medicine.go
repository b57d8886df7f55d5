package scheduling

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/hackgods/clinic-scheduling/internal/appointment"
	"github.com/hackgods/clinic-scheduling/internal/clinicerr"
	"github.com/hackgods/clinic-scheduling/internal/inventory"
	"github.com/hackgods/clinic-scheduling/internal/reminder"
	"github.com/hackgods/clinic-scheduling/internal/stats"
)

// MedicineView is a copy of a medicine's state taken under the service lock.
type MedicineView struct {
	Name      string          `json:"name"`
	Quantity  int             `json:"quantity"`
	Threshold int             `json:"threshold"`
	Price     decimal.Decimal `json:"price"`
	LowStock  bool            `json:"low_stock"`
}

func viewOf(m *inventory.Medicine) MedicineView {
	return MedicineView{
		Name:      m.Name(),
		Quantity:  m.Quantity(),
		Threshold: m.Threshold(),
		Price:     m.Price(),
		LowStock:  reminder.LowStock(m),
	}
}

type DirectoryView struct {
	Path      string `json:"path"`
	Threshold int    `json:"threshold"`
}

// Prescription hands out Quantity units of the medicine at Medicine, a full
// path or a bare name.
type Prescription struct {
	Medicine []string `json:"medicine"`
	Quantity int      `json:"quantity"`
}

type Consultation struct {
	Patient       appointment.Patient `json:"patient"`
	Description   string              `json:"description,omitempty"`
	Prescriptions []Prescription      `json:"prescriptions,omitempty"`
}

func (s *Service) ListMedicines(_ context.Context) []MedicineView {
	s.mu.Lock()
	defer s.mu.Unlock()

	meds := s.inventory.Medicines()
	out := make([]MedicineView, 0, len(meds))
	for _, m := range meds {
		out = append(out, viewOf(m))
	}
	return out
}

func (s *Service) AddDirectory(_ context.Context, parent []string, name string) (DirectoryView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	dir, err := s.inventory.AddDirectory(parent, name)
	if err != nil {
		return DirectoryView{}, err
	}
	path := append(append([]string(nil), parent...), dir.Name())
	return DirectoryView{Path: inventory.FormatPath(path), Threshold: dir.Threshold()}, nil
}

// AddMedicine stocks a new medicine; it may start out below its inherited
// threshold, so its reminder is evaluated straight away.
func (s *Service) AddMedicine(_ context.Context, parent []string, name string, quantity int, price decimal.Decimal) (MedicineView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, err := s.inventory.AddMedicine(parent, name, quantity, price)
	if err != nil {
		return MedicineView{}, err
	}
	s.syncReminder(m)
	return viewOf(m), nil
}

// PurchaseMedicine adds stock, re-evaluates the low-stock reminder and
// books cost as expenditure for the current month.
func (s *Service) PurchaseMedicine(ctx context.Context, path []string, quantity int, cost decimal.Decimal) (MedicineView, stats.Record, error) {
	if cost.IsNegative() {
		return MedicineView{}, stats.Record{}, clinicerr.Validation("purchase cost must not be negative")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	m, err := s.inventory.FindMedicine(path)
	if err != nil {
		return MedicineView{}, stats.Record{}, err
	}
	if err := m.AddQuantity(quantity); err != nil {
		return MedicineView{}, stats.Record{}, err
	}
	s.syncReminder(m)

	rec, err := s.stats.Record(stats.Record{
		Kind:     stats.KindPurchase,
		Amount:   cost,
		Medicine: m.Name(),
		Quantity: quantity,
	}, s.clock)
	if err != nil {
		return MedicineView{}, stats.Record{}, fmt.Errorf("record purchase of %s: %w", m.Name(), err)
	}

	s.logEvent(ctx, EventMedicinePurchased, m.Name(), rec)
	return viewOf(m), rec, nil
}

// Consult dispenses every prescription and books the consultation as
// revenue. Stock is checked for all prescriptions before any is dispensed.
func (s *Service) Consult(ctx context.Context, c Consultation) (stats.Record, error) {
	if c.Patient.ID == "" {
		return stats.Record{}, clinicerr.Validation("consultation requires a patient id")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	type dispense struct {
		med *inventory.Medicine
		qty int
	}
	var plan []dispense
	index := make(map[*inventory.Medicine]int)
	for _, p := range c.Prescriptions {
		if p.Quantity <= 0 {
			return stats.Record{}, clinicerr.Validation("prescribed quantity must be positive")
		}
		m, err := s.inventory.FindMedicine(p.Medicine)
		if err != nil {
			return stats.Record{}, err
		}
		if i, seen := index[m]; seen {
			plan[i].qty += p.Quantity
			continue
		}
		index[m] = len(plan)
		plan = append(plan, dispense{med: m, qty: p.Quantity})
	}
	for _, d := range plan {
		if d.qty > d.med.Quantity() {
			return stats.Record{}, fmt.Errorf("%w: %s has %d, prescribed %d",
				inventory.ErrInsufficientStock, d.med.Name(), d.med.Quantity(), d.qty)
		}
	}

	sales := decimal.Zero
	for _, d := range plan {
		if err := d.med.SubtractQuantity(d.qty); err != nil {
			return stats.Record{}, err
		}
		s.syncReminder(d.med)
		s.stats.Prescribed(d.med.Name(), d.qty, s.clock)
		sales = sales.Add(d.med.Price().Mul(decimal.NewFromInt(int64(d.qty))))
	}

	rec, err := s.stats.Record(stats.Record{
		Kind:        stats.KindConsultation,
		Amount:      sales,
		Description: c.Description,
	}, s.clock)
	if err != nil {
		return stats.Record{}, fmt.Errorf("record consultation: %w", err)
	}

	s.logEvent(ctx, EventConsultationRecorded, c.Patient.ID, rec)
	return rec, nil
}

func (s *Service) SetMedicineThreshold(ctx context.Context, path []string, threshold int) (MedicineView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, err := s.inventory.FindMedicine(path)
	if err != nil {
		return MedicineView{}, err
	}
	if err := m.SetThreshold(threshold); err != nil {
		return MedicineView{}, err
	}
	s.syncReminder(m)

	s.logEvent(ctx, EventThresholdChanged, m.Name(), map[string]int{"threshold": threshold})
	return viewOf(m), nil
}

// SetDirectoryThreshold applies threshold to the directory, its medicines
// and every directory below it, re-evaluating each medicine's reminder.
// It returns the number of medicines touched.
func (s *Service) SetDirectoryThreshold(ctx context.Context, path []string, threshold int) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	dir, err := s.inventory.FindDirectory(path)
	if err != nil {
		return 0, err
	}

	// pre-order: a rejected threshold fails on dir itself before anything
	// below it changes
	touched := 0
	inventory.Walk(dir, func(n inventory.Node) {
		if err != nil {
			return
		}
		switch v := n.(type) {
		case *inventory.Directory:
			err = v.SetThreshold(threshold)
		case *inventory.Medicine:
			if err = v.SetThreshold(threshold); err == nil {
				s.syncReminder(v)
				touched++
			}
		}
	})
	if err != nil {
		return touched, err
	}

	s.logEvent(ctx, EventThresholdChanged, inventory.FormatPath(path), map[string]int{
		"threshold": threshold,
		"medicines": touched,
	})
	return touched, nil
}

// syncReminder re-evaluates m's low-stock reminder. A failure leaves the
// previous reminder state in place and is only logged.
func (s *Service) syncReminder(m *inventory.Medicine) {
	outcome, err := s.reminders.ForMedicine(m)
	if err != nil {
		s.log.Warn().Err(err).Str("medicine", m.Name()).Msg("low stock reminder")
		return
	}
	if outcome != reminder.Unchanged {
		s.log.Info().Str("medicine", m.Name()).Str("outcome", string(outcome)).
			Int("quantity", m.Quantity()).Int("threshold", m.Threshold()).Msg("low stock reminder")
	}
}
