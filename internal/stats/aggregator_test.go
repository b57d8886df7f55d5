package stats

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hackgods/clinic-scheduling/internal/clinicerr"
)

func at(year int, month time.Month, day int) Clock {
	return ClockFunc(func() time.Time {
		return time.Date(year, month, day, 10, 0, 0, 0, time.UTC)
	})
}

func newAggregator(t *testing.T, fee string) *Aggregator {
	t.Helper()
	a, err := NewAggregator(decimal.RequireFromString(fee), time.UTC)
	require.NoError(t, err)
	return a
}

func TestRecordPurchaseCountsExpenditure(t *testing.T) {
	a := newAggregator(t, "0")
	oct := Month{Year: 2019, Month: time.October}

	rec, err := a.Record(Record{Kind: KindPurchase, Amount: decimal.NewFromFloat(50.0), Medicine: "Paracetamol", Quantity: 40}, at(2019, time.October, 23))
	require.NoError(t, err)
	assert.Equal(t, oct, MonthOf(rec.At))

	s, err := a.Statistics(oct, oct)
	require.NoError(t, err)
	assert.True(t, s.Expenditure.GreaterThanOrEqual(decimal.NewFromInt(50)))
	assert.Equal(t, 1, s.Purchases)
	assert.Equal(t, 40, s.Purchased["Paracetamol"])
}

func TestRecordBucketsByAggregatorLocation(t *testing.T) {
	sgt := time.FixedZone("SGT", 8*60*60)
	a, err := NewAggregator(decimal.Zero, sgt)
	require.NoError(t, err)
	lateOctUTC := ClockFunc(func() time.Time {
		return time.Date(2019, time.October, 31, 17, 0, 0, 0, time.UTC)
	})

	rec, err := a.Record(Record{Kind: KindPurchase, Amount: decimal.NewFromInt(50), Medicine: "Panadol", Quantity: 10}, lateOctUTC)
	require.NoError(t, err)
	a.Prescribed("Panadol", 2, lateOctUTC)

	nov := Month{Year: 2019, Month: time.November}
	oct := Month{Year: 2019, Month: time.October}
	assert.Equal(t, nov, MonthOf(rec.At))

	s, err := a.Statistics(nov, nov)
	require.NoError(t, err)
	assert.True(t, s.Expenditure.Equal(decimal.NewFromInt(50)))
	assert.Equal(t, 2, s.Prescribed["Panadol"])

	s, err = a.Statistics(oct, oct)
	require.NoError(t, err)
	assert.True(t, s.Expenditure.IsZero())
}

func TestDuplicatePurchasesAccumulate(t *testing.T) {
	a := newAggregator(t, "0")
	purchase := Record{Kind: KindPurchase, Amount: decimal.NewFromInt(50), Medicine: "Paracetamol", Quantity: 40}

	for i := 0; i < 2; i++ {
		_, err := a.Record(purchase, at(2019, time.October, 1))
		require.NoError(t, err)
	}

	oct := Month{Year: 2019, Month: time.October}
	s, err := a.Statistics(oct, oct)
	require.NoError(t, err)
	assert.True(t, s.Expenditure.Equal(decimal.NewFromInt(100)))
	assert.Equal(t, 2, s.Purchases)
	assert.Equal(t, 80, s.Purchased["Paracetamol"])
}

func TestConsultationFeeIsNotRetroactive(t *testing.T) {
	a := newAggregator(t, "20")

	rec, err := a.Record(Record{Kind: KindConsultation, Amount: decimal.NewFromInt(5)}, at(2019, time.March, 4))
	require.NoError(t, err)
	assert.True(t, rec.Amount.Equal(decimal.NewFromInt(25)))

	require.NoError(t, a.SetConsultationFee(decimal.NewFromInt(30)))
	_, err = a.Record(Record{Kind: KindConsultation}, at(2019, time.April, 4))
	require.NoError(t, err)

	march := Month{Year: 2019, Month: time.March}
	april := Month{Year: 2019, Month: time.April}

	s, err := a.Statistics(march, march)
	require.NoError(t, err)
	assert.True(t, s.Revenue.Equal(decimal.NewFromInt(25)))

	s, err = a.Statistics(march, april)
	require.NoError(t, err)
	assert.True(t, s.Revenue.Equal(decimal.NewFromInt(55)))
	assert.Equal(t, 2, s.Consultations)
	assert.True(t, s.Net.Equal(decimal.NewFromInt(55)))

	assert.True(t, errors.Is(a.SetConsultationFee(decimal.NewFromInt(-1)), clinicerr.ErrValidation))
	assert.True(t, a.ConsultationFee().Equal(decimal.NewFromInt(30)))
}

func TestStatisticsRange(t *testing.T) {
	a := newAggregator(t, "0")
	_, err := a.Record(Record{Kind: KindPurchase, Amount: decimal.NewFromInt(10)}, at(2019, time.January, 31))
	require.NoError(t, err)
	_, err = a.Record(Record{Kind: KindConsultation, Amount: decimal.NewFromInt(40)}, at(2020, time.February, 1))
	require.NoError(t, err)

	t.Run("empty months contribute zero", func(t *testing.T) {
		m := Month{Year: 2019, Month: time.June}
		s, err := a.Statistics(m, m)
		require.NoError(t, err)
		assert.True(t, s.Revenue.IsZero())
		assert.True(t, s.Expenditure.IsZero())
		assert.True(t, s.Net.IsZero())
	})

	t.Run("spans years", func(t *testing.T) {
		s, err := a.Statistics(DefaultEpoch, Month{Year: 2020, Month: time.December})
		require.NoError(t, err)
		assert.True(t, s.Net.Equal(decimal.NewFromInt(30)))
	})

	t.Run("inverted range", func(t *testing.T) {
		_, err := a.Statistics(Month{Year: 2020, Month: time.January}, DefaultEpoch)
		assert.True(t, errors.Is(err, clinicerr.ErrInvalidRange))
	})
}

func TestRecordRejectsUnknownKind(t *testing.T) {
	a := newAggregator(t, "0")
	_, err := a.Record(Record{Kind: "refund", Amount: decimal.NewFromInt(1)}, at(2019, time.May, 1))
	assert.True(t, errors.Is(err, clinicerr.ErrValidation))
	assert.Empty(t, a.Buckets())
}

func TestBucketsRestore(t *testing.T) {
	a := newAggregator(t, "15")
	_, err := a.Record(Record{Kind: KindPurchase, Amount: decimal.NewFromInt(12), Medicine: "Aspirin", Quantity: 3}, at(2019, time.May, 1))
	require.NoError(t, err)
	_, err = a.Record(Record{Kind: KindConsultation}, at(2019, time.February, 1))
	require.NoError(t, err)
	a.Prescribed("Aspirin", 2, at(2019, time.February, 1))

	buckets := a.Buckets()
	require.Len(t, buckets, 2)
	assert.Equal(t, time.February, buckets[0].Month.Month)

	b := newAggregator(t, "0")
	require.NoError(t, b.Restore(buckets))

	s, err := b.Statistics(DefaultEpoch, Month{Year: 2019, Month: time.December})
	require.NoError(t, err)
	assert.True(t, s.Revenue.Equal(decimal.NewFromInt(15)))
	assert.True(t, s.Expenditure.Equal(decimal.NewFromInt(12)))
	assert.Equal(t, 2, s.Prescribed["Aspirin"])
	assert.Equal(t, 3, s.Purchased["Aspirin"])

	err = b.Restore(append(buckets, buckets[0]))
	assert.True(t, errors.Is(err, clinicerr.ErrDuplicate))
}
