package domain

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCancellationPolicy_Refund(t *testing.T) {
	today := Date(2024, 6, 1)
	moderate := DefaultPolicy(1)

	testCases := []struct {
		name     string
		policy   CancellationPolicy
		checkIn  int
		expected Money
	}{
		{"moderate, 10 days out", moderate, 10, 150},
		{"moderate, exactly 5 days", moderate, 5, 150},
		{"moderate, 3 days out", moderate, 3, 0},
		{"moderate, after check-in", moderate, -2, 0},
		{"flexible, on time", CancellationPolicy{Type: PolicyFlexible, RefundPercentage: 100, DaysBeforeCheckin: 1}, 1, 300},
		{"flexible, same day", CancellationPolicy{Type: PolicyFlexible, RefundPercentage: 100, DaysBeforeCheckin: 1}, 0, 0},
		{"moderate 7 days, late with 6 left", CancellationPolicy{Type: PolicyModerate, RefundPercentage: 100, DaysBeforeCheckin: 7}, 6, 150},
		{"strict, late", CancellationPolicy{Type: PolicyStrict, RefundPercentage: 50, DaysBeforeCheckin: 14}, 10, 0},
		{"strict, on time", CancellationPolicy{Type: PolicyStrict, RefundPercentage: 50, DaysBeforeCheckin: 14}, 14, 150},
		{"super strict 60, on time", CancellationPolicy{Type: PolicySuperStrict60, RefundPercentage: 50, DaysBeforeCheckin: 60}, 90, 150},
		{"non-refundable, far out", CancellationPolicy{Type: PolicyNonRefundable}, 365, 0},
		{"non-refundable, late", CancellationPolicy{Type: PolicyNonRefundable}, 0, 0},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			q := tc.policy.Refund(300, today, today.AddDate(0, 0, tc.checkIn))
			assert.Equal(t, tc.expected, q.Amount)
		})
	}
}

func TestCancellationPolicy_RefundMonotonic(t *testing.T) {
	today := Date(2024, 1, 1)
	policies := []CancellationPolicy{
		DefaultPolicy(1),
		{Type: PolicyFlexible, RefundPercentage: 80, DaysBeforeCheckin: 1},
		{Type: PolicyModerate, RefundPercentage: 100, DaysBeforeCheckin: 7},
		{Type: PolicyStrict, RefundPercentage: 50, DaysBeforeCheckin: 7},
		{Type: PolicySuperStrict30, RefundPercentage: 50, DaysBeforeCheckin: 30},
	}
	for _, p := range policies {
		prev := Money(1 << 40)
		for days := 60; days >= -3; days-- {
			q := p.Refund(99999, today, today.AddDate(0, 0, days))
			assert.LessOrEqual(t, q.Amount, prev, "%s at %d days", p.Type, days)
			assert.GreaterOrEqual(t, q.Amount, Money(0))
			assert.LessOrEqual(t, q.Amount, Money(99999))
			prev = q.Amount
		}
	}
}

func TestCancellationPolicy_Validate(t *testing.T) {
	testCases := []struct {
		name   string
		policy CancellationPolicy
		valid  bool
	}{
		{"flexible below floor", CancellationPolicy{Type: PolicyFlexible, RefundPercentage: 60, DaysBeforeCheckin: 1}, false},
		{"flexible ok", CancellationPolicy{Type: PolicyFlexible, RefundPercentage: 100, DaysBeforeCheckin: 1}, true},
		{"flexible window too long", CancellationPolicy{Type: PolicyFlexible, RefundPercentage: 100, DaysBeforeCheckin: 3}, false},
		{"moderate default", DefaultPolicy(1), true},
		{"moderate window too long", CancellationPolicy{Type: PolicyModerate, RefundPercentage: 50, DaysBeforeCheckin: 8}, false},
		{"strict too generous", CancellationPolicy{Type: PolicyStrict, RefundPercentage: 60, DaysBeforeCheckin: 14}, false},
		{"strict window too short", CancellationPolicy{Type: PolicyStrict, RefundPercentage: 50, DaysBeforeCheckin: 3}, false},
		{"super strict 30 ok", CancellationPolicy{Type: PolicySuperStrict30, RefundPercentage: 50, DaysBeforeCheckin: 30}, true},
		{"non-refundable with refund", CancellationPolicy{Type: PolicyNonRefundable, RefundPercentage: 10}, false},
		{"non-refundable ok", CancellationPolicy{Type: PolicyNonRefundable}, true},
		{"unknown type", CancellationPolicy{Type: PolicyType(42)}, false},
		{"negative days", CancellationPolicy{Type: PolicySuperStrict60, RefundPercentage: 0, DaysBeforeCheckin: -1}, false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.policy.Validate()
			if tc.valid {
				assert.NoError(t, err)
				return
			}
			assert.True(t, errors.Is(err, ErrValidation), "got %v", err)
		})
	}
}

func TestParsePolicyType(t *testing.T) {
	pt, err := ParsePolicyType("super_strict_30")
	assert.NoError(t, err)
	assert.Equal(t, PolicySuperStrict30, pt)

	var decoded PolicyType
	assert.NoError(t, decoded.UnmarshalText([]byte("NON_REFUNDABLE")))
	assert.Equal(t, PolicyNonRefundable, decoded)

	_, err = ParsePolicyType("lenient")
	assert.Error(t, err)
}
