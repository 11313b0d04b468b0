package availability

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/Domenick1991/staybooking/internal/clock"
	"github.com/Domenick1991/staybooking/internal/domain"
	"github.com/Domenick1991/staybooking/internal/repository"
)

// maxEditNights bounds a single bulk calendar edit.
const maxEditNights = 731

type Locker interface {
	AcquireDateLocks(ctx context.Context, propertyID int64, dates []time.Time, owner string, ttl time.Duration) (bool, error)
	ReleaseDateLocks(ctx context.Context, propertyID int64, dates []time.Time, owner string) error
}

type Service struct {
	store      repository.Store
	properties repository.PropertyRepository
	locker     Locker
	lockTTL    time.Duration
	clock      clock.Clock
	logger     *slog.Logger
}

type Option func(*Service)

func WithLocker(locker Locker, ttl time.Duration) Option {
	return func(s *Service) {
		s.locker = locker
		s.lockTTL = ttl
	}
}

func WithClock(c clock.Clock) Option {
	return func(s *Service) {
		s.clock = c
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func NewService(store repository.Store, properties repository.PropertyRepository, opts ...Option) *Service {
	s := &Service{
		store:      store,
		properties: properties,
		lockTTL:    30 * time.Second,
		clock:      clock.System{},
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Day is a public read; an absent record yields the default day.
func (s *Service) Day(ctx context.Context, propertyID int64, date time.Time) (domain.AvailabilityDay, error) {
	return On(s.store.Availability()).Get(ctx, propertyID, date)
}

func (s *Service) Range(ctx context.Context, propertyID int64, r domain.DateRange) ([]domain.AvailabilityDay, error) {
	if err := checkEditRange(r); err != nil {
		return nil, err
	}
	return On(s.store.Availability()).GetRange(ctx, propertyID, r)
}

func (s *Service) SetAvailability(ctx context.Context, actor domain.Actor, propertyID int64, date time.Time, fields domain.DayFields) (domain.AvailabilityDay, error) {
	if err := fields.Validate(); err != nil {
		return domain.AvailabilityDay{}, err
	}
	if err := s.authorize(ctx, actor, propertyID); err != nil {
		return domain.AvailabilityDay{}, err
	}

	var out domain.AvailabilityDay
	err := s.store.WithinTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		if err := tx.LockProperty(ctx, propertyID); err != nil {
			return err
		}
		day, err := On(tx.Availability()).Upsert(ctx, propertyID, date, fields)
		out = day
		return err
	})
	if err != nil {
		return domain.AvailabilityDay{}, err
	}
	return out, nil
}

// ClearDay drops the host's overrides for date.
func (s *Service) ClearDay(ctx context.Context, actor domain.Actor, propertyID int64, date time.Time) (domain.AvailabilityDay, error) {
	if err := s.authorize(ctx, actor, propertyID); err != nil {
		return domain.AvailabilityDay{}, err
	}

	var out domain.AvailabilityDay
	err := s.store.WithinTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		if err := tx.LockProperty(ctx, propertyID); err != nil {
			return err
		}
		day, err := On(tx.Availability()).Clear(ctx, propertyID, date)
		out = day
		return err
	})
	if err != nil {
		return domain.AvailabilityDay{}, err
	}
	s.logger.InfoContext(ctx, "availability day cleared", "property_id", propertyID, "date", domain.FormatDate(date))
	return out, nil
}

func (s *Service) BulkSetAvailability(ctx context.Context, actor domain.Actor, propertyID int64, r domain.DateRange, fields domain.DayFields) ([]domain.AvailabilityDay, error) {
	if err := fields.Validate(); err != nil {
		return nil, err
	}
	return s.editRange(ctx, actor, propertyID, r, func(ctx context.Context, cal Calendar) ([]domain.AvailabilityDay, error) {
		return cal.UpsertRange(ctx, propertyID, r, fields)
	})
}

func (s *Service) BlockDates(ctx context.Context, actor domain.Actor, propertyID int64, r domain.DateRange, reason string) ([]domain.AvailabilityDay, error) {
	if reason == "" {
		reason = "blocked by host"
	}
	if err := (domain.DayFields{BlockedReason: &reason}).Validate(); err != nil {
		return nil, err
	}
	return s.editRange(ctx, actor, propertyID, r, func(ctx context.Context, cal Calendar) ([]domain.AvailabilityDay, error) {
		return cal.SetRangeAvailability(ctx, propertyID, r, false, &reason)
	})
}

// ReleaseDates reopens host-blocked nights. Nights held by bookings are only
// released by cancelling the booking.
func (s *Service) ReleaseDates(ctx context.Context, actor domain.Actor, propertyID int64, r domain.DateRange) ([]domain.AvailabilityDay, error) {
	return s.editRange(ctx, actor, propertyID, r, func(ctx context.Context, cal Calendar) ([]domain.AvailabilityDay, error) {
		return cal.SetRangeAvailability(ctx, propertyID, r, true, nil)
	})
}

func (s *Service) editRange(ctx context.Context, actor domain.Actor, propertyID int64, r domain.DateRange, edit func(context.Context, Calendar) ([]domain.AvailabilityDay, error)) ([]domain.AvailabilityDay, error) {
	if err := checkEditRange(r); err != nil {
		return nil, err
	}
	if err := s.authorize(ctx, actor, propertyID); err != nil {
		return nil, err
	}

	var out []domain.AvailabilityDay
	err := s.store.WithinTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		if err := tx.LockProperty(ctx, propertyID); err != nil {
			return err
		}
		days, err := edit(ctx, On(tx.Availability()))
		out = days
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Reservation is a short-lived claim on a property's nights, taken before
// the transaction that re-validates and writes them.
type Reservation struct {
	Token      string
	PropertyID int64
	Range      domain.DateRange
	release    func(ctx context.Context) error
}

func (r *Reservation) Release(ctx context.Context) error {
	if r == nil || r.release == nil {
		return nil
	}
	return r.release(ctx)
}

// Reserve claims every night of r for the caller. Per-date locks are taken
// in ascending order so overlapping requests cannot deadlock; a request that
// loses gets domain.ErrConflict immediately instead of queueing.
func (s *Service) Reserve(ctx context.Context, propertyID int64, r domain.DateRange) (*Reservation, error) {
	res := &Reservation{Token: uuid.NewString(), PropertyID: propertyID, Range: r}
	if s.locker == nil {
		return res, nil
	}

	dates := r.Dates()
	ok, err := s.locker.AcquireDateLocks(ctx, propertyID, dates, res.Token, s.lockTTL)
	if err != nil {
		return nil, domain.SystemError("acquire date locks", err)
	}
	if !ok {
		return nil, domain.ConflictError("property %d dates %s are being reserved by another request", propertyID, r)
	}
	res.release = func(ctx context.Context) error {
		return s.locker.ReleaseDateLocks(ctx, propertyID, dates, res.Token)
	}
	return res, nil
}

// PurgeBefore deletes day records dated before cutoff.
func (s *Service) PurgeBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	n, err := s.store.Availability().DeleteDaysBefore(ctx, cutoff)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		s.logger.InfoContext(ctx, "purged past availability", "cutoff", domain.FormatDate(cutoff), "deleted", n)
	}
	return n, nil
}

func (s *Service) authorize(ctx context.Context, actor domain.Actor, propertyID int64) error {
	property, err := s.properties.GetByID(ctx, propertyID)
	if err != nil {
		return err
	}
	if !actor.Admin && !property.OwnedBy(actor) {
		return domain.PermissionError("only the property owner can edit its calendar")
	}
	return nil
}

func checkEditRange(r domain.DateRange) error {
	if err := r.Validate(); err != nil {
		return err
	}
	if r.Nights() > maxEditNights {
		return domain.ValidationError("date range cannot exceed %d nights", maxEditNights)
	}
	return nil
}
