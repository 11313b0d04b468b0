package domain

import (
	"time"

	"github.com/google/uuid"
)

type BookingStatus string

const (
	BookingStatusPending   BookingStatus = "PENDING"
	BookingStatusConfirmed BookingStatus = "CONFIRMED"
	BookingStatusCheckedIn BookingStatus = "CHECKED_IN"
	BookingStatusCompleted BookingStatus = "COMPLETED"
	BookingStatusCancelled BookingStatus = "CANCELLED"
)

var transitions = map[BookingStatus][]BookingStatus{
	BookingStatusPending:   {BookingStatusConfirmed, BookingStatusCancelled},
	BookingStatusConfirmed: {BookingStatusCheckedIn, BookingStatusCancelled},
	BookingStatusCheckedIn: {BookingStatusCompleted, BookingStatusCancelled},
}

// HeldStatuses are the statuses covered by the exclusivity invariant.
var HeldStatuses = []BookingStatus{BookingStatusConfirmed, BookingStatusCheckedIn}

func ParseBookingStatus(s string) (BookingStatus, error) {
	st := BookingStatus(s)
	switch st {
	case BookingStatusPending, BookingStatusConfirmed, BookingStatusCheckedIn, BookingStatusCompleted, BookingStatusCancelled:
		return st, nil
	}
	return "", ValidationError("unknown booking status %q", s)
}

func (s BookingStatus) IsTerminal() bool {
	return s == BookingStatusCompleted || s == BookingStatusCancelled
}

func (s BookingStatus) Holds() bool {
	return s == BookingStatusConfirmed || s == BookingStatusCheckedIn
}

func (s BookingStatus) CanTransitionTo(next BookingStatus) bool {
	for _, allowed := range transitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

type Booking struct {
	ID                 string
	PropertyID         int64
	GuestID            int64
	HostID             int64
	CheckIn            time.Time
	CheckOut           time.Time
	Adults             int
	Children           int
	TotalAmount        Money
	NightlyRate        Money
	RefundAmount       Money
	Status             BookingStatus
	ConfirmationCode   string
	HostNotes          string
	CancellationReason string
	ConfirmedAt        *time.Time
	CheckedInAt        *time.Time
	CompletedAt        *time.Time
	CancelledAt        *time.Time
	CreatedAt          time.Time
	UpdatedAt          time.Time
	Version            int64
}

func (b Booking) Range() DateRange {
	return DateRange{CheckIn: b.CheckIn, CheckOut: b.CheckOut}
}

func (b Booking) Occupancy() Occupancy {
	return Occupancy{Adults: b.Adults, Children: b.Children}
}

func (b Booking) IsGuest(a Actor) bool {
	return a.Is(b.GuestID)
}

func (b Booking) IsHost(a Actor) bool {
	return a.Is(b.HostID)
}

// VisibleTo reports whether a may read or act on the booking.
func (b Booking) VisibleTo(a Actor) bool {
	return a.Admin || b.IsGuest(a) || b.IsHost(a)
}

// Transition moves the booking to next and stamps the matching timestamp.
func (b *Booking) Transition(next BookingStatus, now time.Time) error {
	if !b.Status.CanTransitionTo(next) {
		return ValidationError("cannot change booking status from %s to %s", b.Status, next)
	}
	at := now.UTC()
	switch next {
	case BookingStatusConfirmed:
		b.ConfirmedAt = &at
	case BookingStatusCheckedIn:
		b.CheckedInAt = &at
	case BookingStatusCompleted:
		b.CompletedAt = &at
	case BookingStatusCancelled:
		b.CancelledAt = &at
	}
	b.Status = next
	b.UpdatedAt = at
	return nil
}

const confirmationAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

// NewConfirmationCode returns an 8 character code without ambiguous glyphs
// (no 0/O, 1/I).
func NewConfirmationCode() string {
	id := uuid.New()
	code := make([]byte, 8)
	for i := range code {
		code[i] = confirmationAlphabet[int(id[i])%len(confirmationAlphabet)]
	}
	return string(code)
}
