package availability

import (
	"context"
	"time"

	"github.com/Domenick1991/staybooking/internal/domain"
	"github.com/Domenick1991/staybooking/internal/repository"
)

// Calendar is the availability store contract over a repository, usually
// one bound to an open transaction.
type Calendar struct {
	repo repository.AvailabilityRepository
}

func On(repo repository.AvailabilityRepository) Calendar {
	return Calendar{repo: repo}
}

// Get returns the stored day or the implicit default when none exists.
func (c Calendar) Get(ctx context.Context, propertyID int64, date time.Time) (domain.AvailabilityDay, error) {
	day, err := c.repo.GetDay(ctx, propertyID, date)
	if err != nil {
		return domain.AvailabilityDay{}, err
	}
	if day == nil {
		return domain.DefaultDay(propertyID, date), nil
	}
	return *day, nil
}

// GetRange returns one day per night of r in date order, defaults filled in.
func (c Calendar) GetRange(ctx context.Context, propertyID int64, r domain.DateRange) ([]domain.AvailabilityDay, error) {
	stored, err := c.repo.ListDays(ctx, propertyID, r)
	if err != nil {
		return nil, err
	}
	byDate := make(map[time.Time]domain.AvailabilityDay, len(stored))
	for _, d := range stored {
		byDate[d.Date] = d
	}

	days := make([]domain.AvailabilityDay, 0, r.Nights())
	for _, date := range r.Dates() {
		if d, ok := byDate[date]; ok {
			days = append(days, d)
			continue
		}
		days = append(days, domain.DefaultDay(propertyID, date))
	}
	return days, nil
}

// Clear deletes the stored record for date so the day falls back to the
// property defaults. A day held by a booking is only cleared by releasing it.
func (c Calendar) Clear(ctx context.Context, propertyID int64, date time.Time) (domain.AvailabilityDay, error) {
	day, err := c.Get(ctx, propertyID, date)
	if err != nil {
		return domain.AvailabilityDay{}, err
	}
	if day.HeldByBooking() {
		return domain.AvailabilityDay{}, domain.ConflictError("%s is held by a booking", domain.FormatDate(date))
	}
	if err := c.repo.DeleteDay(ctx, propertyID, date); err != nil {
		return domain.AvailabilityDay{}, err
	}
	return domain.DefaultDay(propertyID, date), nil
}

// Upsert applies fields to the day, creating it if needed. Availability of a
// day held by a booking cannot be changed here.
func (c Calendar) Upsert(ctx context.Context, propertyID int64, date time.Time, fields domain.DayFields) (domain.AvailabilityDay, error) {
	day, err := c.Get(ctx, propertyID, date)
	if err != nil {
		return domain.AvailabilityDay{}, err
	}
	if day.HeldByBooking() {
		fields.IsAvailable = nil
		fields.BlockedReason = nil
	}
	return c.repo.UpsertDay(ctx, fields.Apply(day))
}

// SetRangeAvailability marks every night of r available or blocked. It is
// idempotent and creates missing day records. Days held by a booking are
// left untouched.
func (c Calendar) SetRangeAvailability(ctx context.Context, propertyID int64, r domain.DateRange, available bool, reason *string) ([]domain.AvailabilityDay, error) {
	fields := domain.DayFields{IsAvailable: &available}
	if !available {
		fields.BlockedReason = reason
	}
	return c.UpsertRange(ctx, propertyID, r, fields)
}

func (c Calendar) UpsertRange(ctx context.Context, propertyID int64, r domain.DateRange, fields domain.DayFields) ([]domain.AvailabilityDay, error) {
	days, err := c.GetRange(ctx, propertyID, r)
	if err != nil {
		return nil, err
	}
	out := make([]domain.AvailabilityDay, 0, len(days))
	for _, day := range days {
		f := fields
		if day.HeldByBooking() {
			f.IsAvailable = nil
			f.BlockedReason = nil
		}
		saved, err := c.repo.UpsertDay(ctx, f.Apply(day))
		if err != nil {
			return nil, err
		}
		out = append(out, saved)
	}
	return out, nil
}

// Hold blocks every night of r on behalf of bookingID. A night already held
// by a different booking is a conflict.
func (c Calendar) Hold(ctx context.Context, propertyID int64, r domain.DateRange, bookingID string) error {
	days, err := c.GetRange(ctx, propertyID, r)
	if err != nil {
		return err
	}
	reason := domain.BookingBlockReason(bookingID)
	for _, day := range days {
		if day.HeldByBooking() && !day.HeldBy(bookingID) {
			return domain.ConflictError("%s is held by another booking", domain.FormatDate(day.Date))
		}
		day.IsAvailable = false
		day.BlockedReason = &reason
		if _, err := c.repo.UpsertDay(ctx, day); err != nil {
			return err
		}
	}
	return nil
}

// Release reopens the nights of r held by bookingID and returns how many were
// reopened. Nights blocked for any other reason stay blocked.
func (c Calendar) Release(ctx context.Context, propertyID int64, r domain.DateRange, bookingID string) (int, error) {
	days, err := c.repo.ListDays(ctx, propertyID, r)
	if err != nil {
		return 0, err
	}
	released := 0
	for _, day := range days {
		if !day.HeldBy(bookingID) {
			continue
		}
		day.IsAvailable = true
		day.BlockedReason = nil
		if _, err := c.repo.UpsertDay(ctx, day); err != nil {
			return released, err
		}
		released++
	}
	return released, nil
}
