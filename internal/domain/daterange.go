package domain

import (
	"fmt"
	"time"
)

const DateLayout = "2006-01-02"

// Day truncates t to its calendar date at UTC midnight. All calendar
// arithmetic in this package works on values produced by Day.
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func Date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, ValidationError("invalid date %q, expected YYYY-MM-DD", s)
	}
	return t, nil
}

func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}

// DaysBetween returns the number of whole calendar days from -> to. It is
// negative when to is before from.
func DaysBetween(from, to time.Time) int {
	return int(Day(to).Sub(Day(from)).Hours() / 24)
}

// DateRange is a half-open night range [CheckIn, CheckOut).
type DateRange struct {
	CheckIn  time.Time
	CheckOut time.Time
}

func NewDateRange(checkIn, checkOut time.Time) (DateRange, error) {
	r := DateRange{CheckIn: Day(checkIn), CheckOut: Day(checkOut)}
	if err := r.Validate(); err != nil {
		return DateRange{}, err
	}
	return r, nil
}

func (r DateRange) Validate() error {
	if r.CheckIn.IsZero() || r.CheckOut.IsZero() {
		return ValidationError("check-in and check-out dates are required")
	}
	if !r.CheckIn.Before(r.CheckOut) {
		return ValidationError("check-out date must be after check-in date")
	}
	return nil
}

func (r DateRange) Nights() int {
	return DaysBetween(r.CheckIn, r.CheckOut)
}

// Overlaps reports whether [a,b) and [c,e) intersect: a < e && c < b.
func (r DateRange) Overlaps(other DateRange) bool {
	return r.CheckIn.Before(other.CheckOut) && other.CheckIn.Before(r.CheckOut)
}

func (r DateRange) Contains(d time.Time) bool {
	d = Day(d)
	return !d.Before(r.CheckIn) && d.Before(r.CheckOut)
}

// Dates lists every night of the range; the check-out day is excluded.
func (r DateRange) Dates() []time.Time {
	nights := r.Nights()
	if nights <= 0 {
		return nil
	}
	dates := make([]time.Time, 0, nights)
	for d := r.CheckIn; d.Before(r.CheckOut); d = d.AddDate(0, 0, 1) {
		dates = append(dates, d)
	}
	return dates
}

// Clip returns the intersection of r and window.
func (r DateRange) Clip(window DateRange) (DateRange, bool) {
	if !r.Overlaps(window) {
		return DateRange{}, false
	}
	clipped := r
	if window.CheckIn.After(clipped.CheckIn) {
		clipped.CheckIn = window.CheckIn
	}
	if window.CheckOut.Before(clipped.CheckOut) {
		clipped.CheckOut = window.CheckOut
	}
	return clipped, true
}

func (r DateRange) String() string {
	return fmt.Sprintf("[%s, %s)", FormatDate(r.CheckIn), FormatDate(r.CheckOut))
}
