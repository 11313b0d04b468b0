package domain

import "fmt"

// Money is an amount in minor currency units (cents). Integer arithmetic
// keeps aggregation and refund rounding exact.
type Money int64

// Percent returns m * pct / 100 rounded half-up to the nearest minor unit.
func (m Money) Percent(pct int) Money {
	return roundDiv(int64(m)*int64(pct), 100)
}

// Div returns m / n rounded half-up.
func (m Money) Div(n int) Money {
	if n == 0 {
		return 0
	}
	return roundDiv(int64(m), int64(n))
}

// Clamp bounds m to [lo, hi].
func (m Money) Clamp(lo, hi Money) Money {
	if m < lo {
		return lo
	}
	if m > hi {
		return hi
	}
	return m
}

func (m Money) String() string {
	sign := ""
	v := int64(m)
	if v < 0 {
		sign = "-"
		v = -v
	}
	return fmt.Sprintf("%s%d.%02d", sign, v/100, v%100)
}

func roundDiv(num, den int64) Money {
	if den < 0 {
		num, den = -num, -den
	}
	if num >= 0 {
		return Money((num + den/2) / den)
	}
	return -Money((-num + den/2) / den)
}
