package domain

import (
	"strings"
	"time"
)

const bookingReasonPrefix = "booking:"

// AvailabilityDay is a per-date override of a property's defaults. A missing
// record means "available, property defaults".
type AvailabilityDay struct {
	PropertyID      int64
	Date            time.Time
	IsAvailable     bool
	PriceOverride   *Money
	MinStay         *int
	MaxStay         *int
	IsInstantBook   *bool
	BlockedReason   *string
	CheckInAllowed  *bool
	CheckOutAllowed *bool
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

func DefaultDay(propertyID int64, date time.Time) AvailabilityDay {
	return AvailabilityDay{PropertyID: propertyID, Date: Day(date), IsAvailable: true}
}

// BookingBlockReason is the blocked reason written for days held by a booking.
func BookingBlockReason(bookingID string) string {
	return bookingReasonPrefix + bookingID
}

func (d AvailabilityDay) HeldBy(bookingID string) bool {
	return d.BlockedReason != nil && *d.BlockedReason == BookingBlockReason(bookingID)
}

// HeldByBooking reports whether the day is blocked on behalf of any booking.
func (d AvailabilityDay) HeldByBooking() bool {
	return !d.IsAvailable && d.BlockedReason != nil && strings.HasPrefix(*d.BlockedReason, bookingReasonPrefix)
}

// DayFields is a partial update of an AvailabilityDay; nil leaves a field
// untouched.
type DayFields struct {
	IsAvailable     *bool   `json:"is_available,omitempty"`
	PriceOverride   *Money  `json:"price_override_cents,omitempty"`
	MinStay         *int    `json:"min_stay,omitempty"`
	MaxStay         *int    `json:"max_stay,omitempty"`
	IsInstantBook   *bool   `json:"is_instant_book,omitempty"`
	BlockedReason   *string `json:"blocked_reason,omitempty"`
	CheckInAllowed  *bool   `json:"check_in_allowed,omitempty"`
	CheckOutAllowed *bool   `json:"check_out_allowed,omitempty"`
}

func (f DayFields) Validate() error {
	if f.PriceOverride != nil && *f.PriceOverride < 0 {
		return ValidationError("price override cannot be negative")
	}
	if f.MinStay != nil && *f.MinStay < 1 {
		return ValidationError("min stay must be at least 1 night")
	}
	if f.MaxStay != nil && *f.MaxStay < 1 {
		return ValidationError("max stay must be at least 1 night")
	}
	if f.MinStay != nil && f.MaxStay != nil && *f.MinStay > *f.MaxStay {
		return ValidationError("min stay cannot exceed max stay")
	}
	if f.BlockedReason != nil && strings.HasPrefix(*f.BlockedReason, bookingReasonPrefix) {
		return ValidationError("blocked reason %q is reserved", *f.BlockedReason)
	}
	return nil
}

// Apply returns a copy of day with the fields set. Making a day available
// drops its blocked reason unless a new one is given.
func (f DayFields) Apply(day AvailabilityDay) AvailabilityDay {
	if f.IsAvailable != nil {
		day.IsAvailable = *f.IsAvailable
		if day.IsAvailable {
			day.BlockedReason = nil
		}
	}
	if f.PriceOverride != nil {
		day.PriceOverride = ptr(*f.PriceOverride)
	}
	if f.MinStay != nil {
		day.MinStay = ptr(*f.MinStay)
	}
	if f.MaxStay != nil {
		day.MaxStay = ptr(*f.MaxStay)
	}
	if f.IsInstantBook != nil {
		day.IsInstantBook = ptr(*f.IsInstantBook)
	}
	if f.BlockedReason != nil {
		day.BlockedReason = ptr(*f.BlockedReason)
	}
	if f.CheckInAllowed != nil {
		day.CheckInAllowed = ptr(*f.CheckInAllowed)
	}
	if f.CheckOutAllowed != nil {
		day.CheckOutAllowed = ptr(*f.CheckOutAllowed)
	}
	return day
}

func ptr[T any](v T) *T {
	return &v
}

// Ptr is a convenience for building optional fields.
func Ptr[T any](v T) *T {
	return ptr(v)
}
