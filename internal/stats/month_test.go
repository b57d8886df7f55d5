package stats

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hackgods/clinic-scheduling/internal/clinicerr"
)

func TestParseMonth(t *testing.T) {
	tests := []struct {
		in      string
		want    Month
		wantErr bool
	}{
		{in: "0119", want: Month{Year: 2019, Month: time.January}},
		{in: "1219", want: Month{Year: 2019, Month: time.December}},
		{in: "1025", want: Month{Year: 2025, Month: time.October}},
		{in: "1319", wantErr: true},
		{in: "0019", wantErr: true},
		{in: "119", wantErr: true},
		{in: "01-19", wantErr: true},
		{in: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseMonth(tt.in)
			if tt.wantErr {
				assert.True(t, errors.Is(err, clinicerr.ErrValidation))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.in, got.String())
		})
	}
}

func TestParseRange(t *testing.T) {
	from, to, err := ParseRange("0119", "0119", DefaultEpoch)
	require.NoError(t, err)
	assert.Equal(t, DefaultEpoch, from)
	assert.Equal(t, DefaultEpoch, to)

	from, to, err = ParseRange("0319", "", DefaultEpoch)
	require.NoError(t, err)
	assert.Equal(t, from, to)

	_, _, err = ParseRange("1218", "0119", DefaultEpoch)
	assert.True(t, errors.Is(err, clinicerr.ErrInvalidRange))

	_, _, err = ParseRange("0519", "0419", DefaultEpoch)
	assert.True(t, errors.Is(err, clinicerr.ErrInvalidRange))

	_, _, err = ParseRange("0519", "13", DefaultEpoch)
	assert.True(t, errors.Is(err, clinicerr.ErrValidation))
}

func TestMonthNextCrossesYear(t *testing.T) {
	m := Month{Year: 2019, Month: time.December}
	assert.Equal(t, Month{Year: 2020, Month: time.January}, m.Next())
	assert.True(t, m.Before(m.Next()))
	assert.False(t, m.After(m))
}
