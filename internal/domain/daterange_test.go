package domain

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDateRange(t *testing.T) {
	r, err := NewDateRange(time.Date(2024, 6, 1, 15, 30, 0, 0, time.UTC), Date(2024, 6, 4))
	require.NoError(t, err)
	assert.Equal(t, Date(2024, 6, 1), r.CheckIn)
	assert.Equal(t, 3, r.Nights())
	assert.Equal(t, []time.Time{Date(2024, 6, 1), Date(2024, 6, 2), Date(2024, 6, 3)}, r.Dates())

	_, err = NewDateRange(Date(2024, 6, 4), Date(2024, 6, 4))
	assert.True(t, errors.Is(err, ErrValidation))

	_, err = NewDateRange(Date(2024, 6, 5), Date(2024, 6, 4))
	assert.True(t, errors.Is(err, ErrValidation))
}

func TestDateRange_Overlaps(t *testing.T) {
	base := DateRange{CheckIn: Date(2024, 6, 10), CheckOut: Date(2024, 6, 15)}

	testCases := []struct {
		name     string
		other    DateRange
		expected bool
	}{
		{"before, touching check-in", DateRange{Date(2024, 6, 5), Date(2024, 6, 10)}, false},
		{"after, touching check-out", DateRange{Date(2024, 6, 15), Date(2024, 6, 20)}, false},
		{"overlaps start", DateRange{Date(2024, 6, 8), Date(2024, 6, 11)}, true},
		{"overlaps end", DateRange{Date(2024, 6, 14), Date(2024, 6, 18)}, true},
		{"inside", DateRange{Date(2024, 6, 11), Date(2024, 6, 12)}, true},
		{"covers", DateRange{Date(2024, 6, 1), Date(2024, 6, 30)}, true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, base.Overlaps(tc.other))
			assert.Equal(t, tc.expected, tc.other.Overlaps(base))
		})
	}
}

func TestDateRange_Clip(t *testing.T) {
	r := DateRange{CheckIn: Date(2024, 5, 28), CheckOut: Date(2024, 6, 3)}
	window := DateRange{CheckIn: Date(2024, 6, 1), CheckOut: Date(2024, 7, 1)}

	clipped, ok := r.Clip(window)
	require.True(t, ok)
	assert.Equal(t, 2, clipped.Nights())

	_, ok = DateRange{CheckIn: Date(2024, 7, 1), CheckOut: Date(2024, 7, 2)}.Clip(window)
	assert.False(t, ok)
}

func TestDaysBetween(t *testing.T) {
	assert.Equal(t, 10, DaysBetween(Date(2024, 6, 1), Date(2024, 6, 11)))
	assert.Equal(t, -2, DaysBetween(Date(2024, 6, 3), Date(2024, 6, 1)))
	assert.Equal(t, 0, DaysBetween(time.Date(2024, 6, 1, 23, 0, 0, 0, time.UTC), Date(2024, 6, 1)))
}

func TestMoney(t *testing.T) {
	assert.Equal(t, Money(15000), Money(30000).Percent(50))
	assert.Equal(t, Money(3), Money(5).Percent(50), "half-up")
	assert.Equal(t, Money(3334), Money(10001).Div(3))
	assert.Equal(t, "12.05", Money(1205).String())
	assert.Equal(t, "-0.50", Money(-50).String())
	assert.Equal(t, Money(0), Money(-1).Clamp(0, 10))
}
