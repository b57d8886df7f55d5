package clinicerr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCode(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{fmt.Errorf("%w: slot taken", ErrConflict), "conflict"},
		{fmt.Errorf("delete: %w", ErrNotFound), "not_found"},
		{ErrDuplicate, "duplicate"},
		{InvalidRange("to before from"), "invalid_range"},
		{Validation("bad date"), "validation_error"},
		{errors.New("boom"), "internal_error"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, Code(tt.err))
		})
	}
}

func TestKindErrorMessage(t *testing.T) {
	err := Validation("start must be before end")
	assert.EqualError(t, err, "validation error: start must be before end")
	assert.True(t, errors.Is(err, ErrValidation))
	assert.False(t, errors.Is(err, ErrInvalidRange))
}
