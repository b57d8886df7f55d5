// Package stats buckets purchases and consultations by calendar month and
// answers month range queries over them.
package stats

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/hackgods/clinic-scheduling/internal/clinicerr"
)

type Kind string

const (
	KindPurchase     Kind = "purchase"
	KindConsultation Kind = "consultation"
)

// Record is one financial event. At is stamped by the aggregator.
type Record struct {
	Kind        Kind            `json:"kind"`
	Amount      decimal.Decimal `json:"amount"`
	Medicine    string          `json:"medicine,omitempty"`
	Quantity    int             `json:"quantity,omitempty"`
	Description string          `json:"description,omitempty"`
	At          time.Time       `json:"at"`
}

type Clock interface {
	Now() time.Time
}

type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }

// ClockFunc adapts a plain function to Clock.
type ClockFunc func() time.Time

func (f ClockFunc) Now() time.Time { return f() }

type Bucket struct {
	Month         Month           `json:"month"`
	Revenue       decimal.Decimal `json:"revenue"`
	Expenditure   decimal.Decimal `json:"expenditure"`
	Consultations int             `json:"consultations"`
	Purchases     int             `json:"purchases"`
	Purchased     map[string]int  `json:"purchased,omitempty"`
	Prescribed    map[string]int  `json:"prescribed,omitempty"`
}

func newBucket(m Month) *Bucket {
	return &Bucket{
		Month:      m,
		Purchased:  make(map[string]int),
		Prescribed: make(map[string]int),
	}
}

func (b *Bucket) clone() Bucket {
	out := *b
	out.Purchased = copyCounts(b.Purchased)
	out.Prescribed = copyCounts(b.Prescribed)
	return out
}

type Statistics struct {
	From          Month           `json:"from"`
	To            Month           `json:"to"`
	Revenue       decimal.Decimal `json:"revenue"`
	Expenditure   decimal.Decimal `json:"expenditure"`
	Net           decimal.Decimal `json:"net"`
	Consultations int             `json:"consultations"`
	Purchases     int             `json:"purchases"`
	Purchased     map[string]int  `json:"purchased"`
	Prescribed    map[string]int  `json:"prescribed"`
}

func (s Statistics) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Statistics %s to %s\n", s.From.Label(), s.To.Label())
	fmt.Fprintf(&b, "Revenue: %s\nExpenditure: %s\nNet: %s\n",
		s.Revenue.StringFixed(2), s.Expenditure.StringFixed(2), s.Net.StringFixed(2))
	fmt.Fprintf(&b, "Consultations: %d\nPurchases: %d", s.Consultations, s.Purchases)
	for _, name := range sortedKeys(s.Purchased) {
		fmt.Fprintf(&b, "\nPurchased %s: %d", name, s.Purchased[name])
	}
	for _, name := range sortedKeys(s.Prescribed) {
		fmt.Fprintf(&b, "\nPrescribed %s: %d", name, s.Prescribed[name])
	}
	return b.String()
}

// Aggregator is not safe for concurrent use. Records land in the month
// they fall in at loc, the clinic's timezone.
type Aggregator struct {
	buckets map[Month]*Bucket
	fee     decimal.Decimal
	loc     *time.Location
}

// NewAggregator buckets by loc; nil means UTC.
func NewAggregator(fee decimal.Decimal, loc *time.Location) (*Aggregator, error) {
	if loc == nil {
		loc = time.UTC
	}
	a := &Aggregator{buckets: make(map[Month]*Bucket), loc: loc}
	if err := a.SetConsultationFee(fee); err != nil {
		return nil, err
	}
	return a, nil
}

func (a *Aggregator) ConsultationFee() decimal.Decimal {
	return a.fee
}

// SetConsultationFee affects consultations recorded from now on.
func (a *Aggregator) SetConsultationFee(fee decimal.Decimal) error {
	if fee.IsNegative() {
		return clinicerr.Validation("consultation fee must not be negative")
	}
	a.fee = fee
	return nil
}

// Record stamps rec with the clock and adds it to its month. Recording the
// same purchase twice counts it twice.
func (a *Aggregator) Record(rec Record, clock Clock) (Record, error) {
	if rec.Amount.IsNegative() {
		return Record{}, clinicerr.Validation("record amount must not be negative")
	}
	if rec.Quantity < 0 {
		return Record{}, clinicerr.Validation("record quantity must not be negative")
	}
	rec.At = clock.Now().In(a.loc)

	m := MonthOf(rec.At)
	b, ok := a.buckets[m]
	if !ok {
		b = newBucket(m)
		a.buckets[m] = b
	}

	switch rec.Kind {
	case KindPurchase:
		b.Expenditure = b.Expenditure.Add(rec.Amount)
		b.Purchases++
		if rec.Medicine != "" {
			b.Purchased[rec.Medicine] += rec.Quantity
		}
	case KindConsultation:
		rec.Amount = rec.Amount.Add(a.fee)
		b.Revenue = b.Revenue.Add(rec.Amount)
		b.Consultations++
	default:
		if !ok {
			delete(a.buckets, m)
		}
		return Record{}, clinicerr.Validation(fmt.Sprintf("unknown record kind %q", rec.Kind))
	}
	return rec, nil
}

// Prescribed counts medicine handed out in a consultation; it carries no
// money of its own, the consultation record does.
func (a *Aggregator) Prescribed(medicine string, quantity int, clock Clock) {
	m := MonthOf(clock.Now().In(a.loc))
	b, ok := a.buckets[m]
	if !ok {
		b = newBucket(m)
		a.buckets[m] = b
	}
	b.Prescribed[medicine] += quantity
}

// Statistics sums the buckets of every month in [from, to]. Epoch checks
// belong to the caller parsing the months.
func (a *Aggregator) Statistics(from, to Month) (Statistics, error) {
	if to.Before(from) {
		return Statistics{}, clinicerr.InvalidRange(fmt.Sprintf("%s is before %s", to.Label(), from.Label()))
	}
	out := Statistics{
		From:       from,
		To:         to,
		Purchased:  make(map[string]int),
		Prescribed: make(map[string]int),
	}
	for m := from; !m.After(to); m = m.Next() {
		b, ok := a.buckets[m]
		if !ok {
			continue
		}
		out.Revenue = out.Revenue.Add(b.Revenue)
		out.Expenditure = out.Expenditure.Add(b.Expenditure)
		out.Consultations += b.Consultations
		out.Purchases += b.Purchases
		for k, v := range b.Purchased {
			out.Purchased[k] += v
		}
		for k, v := range b.Prescribed {
			out.Prescribed[k] += v
		}
	}
	out.Net = out.Revenue.Sub(out.Expenditure)
	return out, nil
}

// Buckets returns copies ordered by month.
func (a *Aggregator) Buckets() []Bucket {
	out := make([]Bucket, 0, len(a.buckets))
	for _, b := range a.buckets {
		out = append(out, b.clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Month.Before(out[j].Month) })
	return out
}

func (a *Aggregator) Restore(buckets []Bucket) error {
	restored := make(map[Month]*Bucket, len(buckets))
	for i := range buckets {
		b := buckets[i].clone()
		if b.Purchased == nil {
			b.Purchased = make(map[string]int)
		}
		if b.Prescribed == nil {
			b.Prescribed = make(map[string]int)
		}
		if _, dup := restored[b.Month]; dup {
			return fmt.Errorf("%w: bucket %s", clinicerr.ErrDuplicate, b.Month.Label())
		}
		restored[b.Month] = &b
	}
	a.buckets = restored
	return nil
}

func copyCounts(in map[string]int) map[string]int {
	if in == nil {
		return nil
	}
	out := make(map[string]int, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
