package asset

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddSub(t *testing.T) {
	t.Parallel()

	got, err := Add(40, 2)
	require.NoError(t, err)
	assert.Equal(t, Amount(42), got)

	_, err = Add(Max, 1)
	assert.ErrorIs(t, err, ErrOverflow)

	got, err = Sub(42, 2)
	require.NoError(t, err)
	assert.Equal(t, Amount(40), got)

	_, err = Sub(1, 2)
	assert.ErrorIs(t, err, ErrUnderflow)
}

func TestMulDiv(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		a, b, d Amount
		want    Amount
		wantErr error
	}{
		{"exact", 100, 100, 100, 100, nil},
		{"fee deposit", 90, 100, 100, 90, nil},
		{"floors", 10, 1, 3, 3, nil},
		{"zero numerator", 0, 5, 7, 0, nil},
		{"wide intermediate", Max, Max, Max, Max, nil},
		{"half of max squared", Max, 2, 4, Max / 2, nil},
		{"quotient overflow", Max, 2, 1, 0, ErrOverflow},
		{"divide by zero", 1, 1, 0, 0, ErrDivideByZero},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := MulDiv(tt.a, tt.b, tt.d)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFormat(t *testing.T) {
	assert.Equal(t, "18446744073709551615", Format(Max))
	assert.Equal(t, "alice", Address("alice").String())
}
