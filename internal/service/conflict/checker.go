package conflict

import (
	"context"
	"fmt"
	"time"

	"github.com/Domenick1991/staybooking/internal/domain"
	"github.com/Domenick1991/staybooking/internal/repository"
)

const (
	MessageInstant     = "available for instant booking"
	MessageApproval    = "available but requires host approval"
	MessageUnavailable = "not available for the selected dates"
)

type Request struct {
	PropertyID int64
	Range      domain.DateRange
	Occupancy  domain.Occupancy
	// ExcludeBookingID ignores one booking and its holds, so a booking can be
	// re-checked against new dates.
	ExcludeBookingID string
}

func (r Request) Validate() error {
	if err := r.Range.Validate(); err != nil {
		return err
	}
	return r.Occupancy.Validate()
}

// Result is the aggregated view of a stay. TotalPrice covers only the nights
// that are available.
type Result struct {
	PropertyID         int64            `json:"property_id"`
	CheckIn            string           `json:"check_in"`
	CheckOut           string           `json:"check_out"`
	Nights             int              `json:"nights"`
	Bookable           bool             `json:"bookable"`
	InstantBookable    bool             `json:"instant_bookable"`
	TotalPrice         domain.Money     `json:"total_price_cents"`
	AverageNightlyRate domain.Money     `json:"average_nightly_rate_cents"`
	UnavailableDates   []string         `json:"unavailable_dates"`
	Restrictions       []string         `json:"restrictions"`
	MinStay            int              `json:"min_stay"`
	MaxStay            int              `json:"max_stay"`
	Message            string           `json:"message"`
	Conflicting        []string         `json:"-"`
	Guests             domain.Occupancy `json:"-"`
	Range              domain.DateRange `json:"-"`
}

// Available reports whether every night is free, ignoring stay rules.
func (r *Result) Available() bool {
	return len(r.UnavailableDates) == 0
}

type Checker struct{}

func NewChecker() *Checker {
	return &Checker{}
}

// Check evaluates req against the state visible through reader. Inside a
// transaction that holds the property lock the answer stays valid until
// commit.
func (c *Checker) Check(ctx context.Context, reader repository.Reader, property domain.Property, req Request) (*Result, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	held, err := reader.Bookings().List(ctx, repository.BookingFilter{
		PropertyID:  property.ID,
		Statuses:    domain.HeldStatuses,
		Overlapping: &req.Range,
		ExcludeID:   req.ExcludeBookingID,
	})
	if err != nil {
		return nil, err
	}
	days, err := reader.Availability().ListDays(ctx, property.ID, req.Range)
	if err != nil {
		return nil, err
	}
	checkoutDay, err := reader.Availability().GetDay(ctx, property.ID, req.Range.CheckOut)
	if err != nil {
		return nil, err
	}

	return Evaluate(property, req, held, days, checkoutDay), nil
}

// Evaluate is the pure part of Check. held are the bookings that hold
// nights of the range, days the stored records inside it.
func Evaluate(property domain.Property, req Request, held []domain.Booking, days []domain.AvailabilityDay, checkoutDay *domain.AvailabilityDay) *Result {
	r := req.Range
	res := &Result{
		PropertyID:       property.ID,
		CheckIn:          domain.FormatDate(r.CheckIn),
		CheckOut:         domain.FormatDate(r.CheckOut),
		Nights:           r.Nights(),
		UnavailableDates: make([]string, 0),
		Restrictions:     make([]string, 0),
		MinStay:          max(property.MinStay, 1),
		MaxStay:          property.MaxStay,
		Guests:           req.Occupancy,
		Range:            r,
	}

	byDate := make(map[time.Time]domain.AvailabilityDay, len(days))
	for _, d := range days {
		byDate[d.Date] = d
	}

	instant := property.InstantBook
	for _, date := range r.Dates() {
		if booked(held, req.ExcludeBookingID, date) {
			res.UnavailableDates = append(res.UnavailableDates, domain.FormatDate(date))
			continue
		}

		day, ok := byDate[date]
		if !ok {
			res.TotalPrice += property.BasePrice
			continue
		}
		if !day.IsAvailable && !day.HeldBy(req.ExcludeBookingID) {
			res.UnavailableDates = append(res.UnavailableDates, domain.FormatDate(date))
			if reason := blockedReason(day); reason != "" {
				res.Restrictions = append(res.Restrictions, fmt.Sprintf("%s is blocked: %s", domain.FormatDate(date), reason))
			}
			continue
		}

		price := property.BasePrice
		if day.PriceOverride != nil {
			price = *day.PriceOverride
		}
		res.TotalPrice += price

		if day.MinStay != nil {
			res.MinStay = max(res.MinStay, *day.MinStay)
		}
		if day.MaxStay != nil && (res.MaxStay == 0 || *day.MaxStay < res.MaxStay) {
			res.MaxStay = *day.MaxStay
		}
		if day.IsInstantBook != nil {
			instant = instant && *day.IsInstantBook
		}
	}

	for _, b := range held {
		if b.ID != req.ExcludeBookingID {
			res.Conflicting = append(res.Conflicting, b.ID)
		}
	}

	ok := res.Available()
	if !ok {
		res.Restrictions = append(res.Restrictions, fmt.Sprintf("%d of %d nights are unavailable", len(res.UnavailableDates), res.Nights))
	}

	if d, found := byDate[r.CheckIn]; found && d.CheckInAllowed != nil && !*d.CheckInAllowed {
		ok = false
		res.Restrictions = append(res.Restrictions, fmt.Sprintf("check-in is not allowed on %s", res.CheckIn))
	}
	if checkoutDay != nil && checkoutDay.CheckOutAllowed != nil && !*checkoutDay.CheckOutAllowed {
		ok = false
		res.Restrictions = append(res.Restrictions, fmt.Sprintf("check-out is not allowed on %s", res.CheckOut))
	}

	if res.Nights < res.MinStay {
		ok = false
		res.Restrictions = append(res.Restrictions, fmt.Sprintf("minimum stay is %d nights", res.MinStay))
	}
	if res.MaxStay > 0 && res.Nights > res.MaxStay {
		ok = false
		res.Restrictions = append(res.Restrictions, fmt.Sprintf("maximum stay is %d nights", res.MaxStay))
	}

	if !property.Fits(req.Occupancy) {
		ok = false
		res.Restrictions = append(res.Restrictions, fmt.Sprintf("property accommodates at most %d guests", property.MaxOccupancy()))
	}

	res.AverageNightlyRate = res.TotalPrice.Div(res.Nights)
	res.Bookable = ok
	res.InstantBookable = ok && instant

	switch {
	case res.InstantBookable:
		res.Message = MessageInstant
	case res.Bookable:
		res.Message = MessageApproval
	default:
		res.Message = MessageUnavailable
	}
	return res
}

func booked(held []domain.Booking, exclude string, date time.Time) bool {
	for _, b := range held {
		if b.ID != exclude && b.Range().Contains(date) {
			return true
		}
	}
	return false
}

// blockedReason hides booking ids from callers.
func blockedReason(day domain.AvailabilityDay) string {
	switch {
	case day.HeldByBooking():
		return "reserved"
	case day.BlockedReason != nil:
		return *day.BlockedReason
	}
	return ""
}
