package repository

import (
	"context"
	"time"

	"github.com/Domenick1991/staybooking/internal/domain"
)

// AvailabilityRepository stores per-date overrides. Reads of absent days
// return (nil, nil); callers fall back to property defaults.
type AvailabilityRepository interface {
	GetDay(ctx context.Context, propertyID int64, date time.Time) (*domain.AvailabilityDay, error)
	ListDays(ctx context.Context, propertyID int64, r domain.DateRange) ([]domain.AvailabilityDay, error)
	UpsertDay(ctx context.Context, day domain.AvailabilityDay) (domain.AvailabilityDay, error)
	DeleteDay(ctx context.Context, propertyID int64, date time.Time) error
	DeleteDaysBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// BookingFilter narrows List. Zero values match everything; date bounds are
// half-open [from, to).
type BookingFilter struct {
	GuestID       int64
	HostID        int64
	PropertyID    int64
	Statuses      []domain.BookingStatus
	Overlapping   *domain.DateRange
	CheckInFrom   *time.Time
	CheckInTo     *time.Time
	CheckOutFrom  *time.Time
	CheckOutTo    *time.Time
	CreatedBefore *time.Time
	ExcludeID     string
	Limit         int
}

type BookingRepository interface {
	Create(ctx context.Context, booking *domain.Booking) error
	GetByID(ctx context.Context, id string) (*domain.Booking, error)
	GetByConfirmationCode(ctx context.Context, code string) (*domain.Booking, error)
	// Update persists booking if its Version still matches the stored row and
	// bumps Version. A stale version yields domain.ErrConflict.
	Update(ctx context.Context, booking *domain.Booking) error
	List(ctx context.Context, filter BookingFilter) ([]domain.Booking, error)
}

type PolicyRepository interface {
	GetActive(ctx context.Context, propertyID int64) (*domain.CancellationPolicy, error)
	// ReplaceActive deactivates the current policy and stores p as active.
	ReplaceActive(ctx context.Context, p *domain.CancellationPolicy) error
	ListByProperty(ctx context.Context, propertyID int64) ([]domain.CancellationPolicy, error)
}

type PropertyRepository interface {
	GetByID(ctx context.Context, id int64) (*domain.Property, error)
}

type Reader interface {
	Availability() AvailabilityRepository
	Bookings() BookingRepository
	Policies() PolicyRepository
}

type Tx interface {
	Reader
	// LockProperty blocks other transactions locking the same property until
	// this one ends.
	LockProperty(ctx context.Context, propertyID int64) error
}

// Store is the transactional boundary of the engine. fn may run more than
// once when the backend retries a serialization failure.
type Store interface {
	Reader
	WithinTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
}
