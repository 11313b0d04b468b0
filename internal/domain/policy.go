package domain

import (
	"strings"
	"time"
)

// PolicyType is ordered from most to least guest-favourable.
type PolicyType int

const (
	PolicyFlexible PolicyType = iota + 1
	PolicyModerate
	PolicyStrict
	PolicySuperStrict30
	PolicySuperStrict60
	PolicyNonRefundable
)

var policyNames = map[PolicyType]string{
	PolicyFlexible:      "FLEXIBLE",
	PolicyModerate:      "MODERATE",
	PolicyStrict:        "STRICT",
	PolicySuperStrict30: "SUPER_STRICT_30",
	PolicySuperStrict60: "SUPER_STRICT_60",
	PolicyNonRefundable: "NON_REFUNDABLE",
}

func (t PolicyType) String() string {
	if name, ok := policyNames[t]; ok {
		return name
	}
	return "UNKNOWN"
}

func ParsePolicyType(s string) (PolicyType, error) {
	s = strings.ToUpper(strings.TrimSpace(s))
	for t, name := range policyNames {
		if name == s {
			return t, nil
		}
	}
	return 0, ValidationError("unknown policy type %q", s)
}

func (t PolicyType) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

func (t *PolicyType) UnmarshalText(b []byte) error {
	parsed, err := ParsePolicyType(string(b))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// lateRefund is the refund rule applied when a guest cancels inside the
// policy's notice window: pct of the total if at least minDays remain.
type lateRefund struct {
	pct     int
	minDays int
}

func (t PolicyType) lateRefund() lateRefund {
	switch t {
	case PolicyFlexible:
		return lateRefund{pct: 50, minDays: 1}
	case PolicyModerate:
		return lateRefund{pct: 50, minDays: 5}
	case PolicyStrict, PolicySuperStrict30, PolicySuperStrict60, PolicyNonRefundable:
		return lateRefund{}
	}
	panic("domain: unhandled policy type " + t.String())
}

// bounds are the (refund percentage, notice days) pairs a policy of this type
// may declare. A max of -1 means unbounded.
type bounds struct {
	minPct, maxPct   int
	minDays, maxDays int
}

func (t PolicyType) bounds() (bounds, bool) {
	switch t {
	case PolicyFlexible:
		return bounds{minPct: 80, maxPct: 100, minDays: 0, maxDays: 1}, true
	case PolicyModerate:
		return bounds{minPct: 50, maxPct: 100, minDays: 5, maxDays: 7}, true
	case PolicyStrict:
		return bounds{minPct: 0, maxPct: 50, minDays: 7, maxDays: -1}, true
	case PolicySuperStrict30, PolicySuperStrict60:
		return bounds{minPct: 0, maxPct: 50, minDays: 0, maxDays: -1}, true
	case PolicyNonRefundable:
		return bounds{minPct: 0, maxPct: 0, minDays: 0, maxDays: -1}, true
	}
	return bounds{}, false
}

type CancellationPolicy struct {
	ID                string
	PropertyID        int64
	Type              PolicyType
	RefundPercentage  int
	DaysBeforeCheckin int
	Description       string
	IsActive          bool
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// DefaultPolicy applies to properties without an active policy.
func DefaultPolicy(propertyID int64) CancellationPolicy {
	return CancellationPolicy{
		PropertyID:        propertyID,
		Type:              PolicyModerate,
		RefundPercentage:  50,
		DaysBeforeCheckin: 5,
		Description:       "Default moderate policy",
		IsActive:          true,
	}
}

// Validate checks that the declared parameters are consistent with the type.
func (p CancellationPolicy) Validate() error {
	b, ok := p.Type.bounds()
	if !ok {
		return ValidationError("unknown policy type %d", int(p.Type))
	}
	if p.RefundPercentage < 0 || p.RefundPercentage > 100 {
		return ValidationError("refund percentage must be between 0 and 100")
	}
	if p.DaysBeforeCheckin < 0 {
		return ValidationError("days before check-in cannot be negative")
	}
	if p.RefundPercentage < b.minPct || p.RefundPercentage > b.maxPct {
		if b.minPct == b.maxPct {
			return ValidationError("%s policy requires refund percentage %d", p.Type, b.minPct)
		}
		return ValidationError("%s policy requires refund percentage between %d and %d", p.Type, b.minPct, b.maxPct)
	}
	if p.DaysBeforeCheckin < b.minDays || (b.maxDays >= 0 && p.DaysBeforeCheckin > b.maxDays) {
		if b.maxDays < 0 {
			return ValidationError("%s policy requires at least %d days before check-in", p.Type, b.minDays)
		}
		return ValidationError("%s policy requires between %d and %d days before check-in", p.Type, b.minDays, b.maxDays)
	}
	return nil
}

type RefundQuote struct {
	Amount           Money
	Percentage       int
	DaysUntilCheckIn int
	Late             bool
}

// Refund computes how much of total is returned when cancelling on
// cancelDate a stay starting on checkIn.
func (p CancellationPolicy) Refund(total Money, cancelDate, checkIn time.Time) RefundQuote {
	days := DaysBetween(cancelDate, checkIn)
	if days < 0 {
		days = 0
	}

	q := RefundQuote{DaysUntilCheckIn: days}
	if days >= p.DaysBeforeCheckin {
		q.Percentage = p.RefundPercentage
	} else {
		q.Late = true
		if rule := p.Type.lateRefund(); rule.pct > 0 && days >= rule.minDays {
			q.Percentage = rule.pct
		}
	}
	q.Amount = total.Percent(q.Percentage).Clamp(0, total)
	return q
}
