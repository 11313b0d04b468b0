package booking

import (
	"context"
	"time"

	"github.com/Domenick1991/staybooking/internal/domain"
	"github.com/Domenick1991/staybooking/internal/repository"
)

const (
	maxUpcomingDays     = 365
	maxStatisticsNights = 731
)

func (s *BookingService) GetBooking(ctx context.Context, actor domain.Actor, id string) (*domain.Booking, error) {
	b, err := s.store.Bookings().GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !b.VisibleTo(actor) {
		return nil, domain.PermissionError("booking %s is not yours", id)
	}
	return b, nil
}

func (s *BookingService) GetByConfirmationCode(ctx context.Context, actor domain.Actor, code string) (*domain.Booking, error) {
	b, err := s.store.Bookings().GetByConfirmationCode(ctx, code)
	if err != nil {
		return nil, err
	}
	if !b.VisibleTo(actor) {
		return nil, domain.PermissionError("booking %s is not yours", code)
	}
	return b, nil
}

func (s *BookingService) ListGuestBookings(ctx context.Context, actor domain.Actor, statuses []domain.BookingStatus) ([]domain.Booking, error) {
	if actor.UserID == 0 {
		return nil, domain.PermissionError("authentication required")
	}
	return s.store.Bookings().List(ctx, repository.BookingFilter{GuestID: actor.UserID, Statuses: statuses})
}

func (s *BookingService) ListHostBookings(ctx context.Context, actor domain.Actor, statuses []domain.BookingStatus) ([]domain.Booking, error) {
	if actor.UserID == 0 {
		return nil, domain.PermissionError("authentication required")
	}
	return s.store.Bookings().List(ctx, repository.BookingFilter{HostID: actor.UserID, Statuses: statuses})
}

func (s *BookingService) ListPropertyBookings(ctx context.Context, actor domain.Actor, propertyID int64, statuses []domain.BookingStatus) ([]domain.Booking, error) {
	if err := s.authorizeHost(ctx, actor, propertyID); err != nil {
		return nil, err
	}
	return s.store.Bookings().List(ctx, repository.BookingFilter{PropertyID: propertyID, Statuses: statuses})
}

// UpcomingCheckIns lists the actor's confirmed arrivals in [today, today+days).
func (s *BookingService) UpcomingCheckIns(ctx context.Context, actor domain.Actor, days int) ([]domain.Booking, error) {
	from, to, err := s.upcomingWindow(actor, days)
	if err != nil {
		return nil, err
	}
	return s.store.Bookings().List(ctx, repository.BookingFilter{
		HostID:      actor.UserID,
		Statuses:    []domain.BookingStatus{domain.BookingStatusConfirmed},
		CheckInFrom: &from,
		CheckInTo:   &to,
	})
}

// UpcomingCheckOuts lists the actor's departures in [today, today+days).
func (s *BookingService) UpcomingCheckOuts(ctx context.Context, actor domain.Actor, days int) ([]domain.Booking, error) {
	from, to, err := s.upcomingWindow(actor, days)
	if err != nil {
		return nil, err
	}
	return s.store.Bookings().List(ctx, repository.BookingFilter{
		HostID:       actor.UserID,
		Statuses:     domain.HeldStatuses,
		CheckOutFrom: &from,
		CheckOutTo:   &to,
	})
}

func (s *BookingService) upcomingWindow(actor domain.Actor, days int) (time.Time, time.Time, error) {
	if actor.UserID == 0 {
		return time.Time{}, time.Time{}, domain.PermissionError("authentication required")
	}
	if days < 1 || days > maxUpcomingDays {
		return time.Time{}, time.Time{}, domain.ValidationError("days must be between 1 and %d", maxUpcomingDays)
	}
	from := s.today()
	return from, from.AddDate(0, 0, days), nil
}

type Statistics struct {
	PropertyID         int64                        `json:"property_id"`
	From               string                       `json:"from"`
	To                 string                       `json:"to"`
	TotalBookings      int                          `json:"total_bookings"`
	ByStatus           map[domain.BookingStatus]int `json:"by_status"`
	BookedNights       int                          `json:"booked_nights"`
	WindowNights       int                          `json:"window_nights"`
	OccupancyRate      float64                      `json:"occupancy_rate"`
	Revenue            domain.Money                 `json:"revenue_cents"`
	AverageNightlyRate domain.Money                 `json:"average_nightly_rate_cents"`
	CancelledBookings  int                          `json:"cancelled_bookings"`
	RefundedAmount     domain.Money                 `json:"refunded_cents"`
}

// PropertyStatistics aggregates the bookings overlapping window. Revenue
// counts stays that start inside the window so adjacent windows never count
// a stay twice; booked nights are clipped to the window.
func (s *BookingService) PropertyStatistics(ctx context.Context, actor domain.Actor, propertyID int64, window domain.DateRange) (*Statistics, error) {
	if err := window.Validate(); err != nil {
		return nil, err
	}
	if window.Nights() > maxStatisticsNights {
		return nil, domain.ValidationError("statistics window cannot exceed %d nights", maxStatisticsNights)
	}
	if err := s.authorizeHost(ctx, actor, propertyID); err != nil {
		return nil, err
	}

	bookings, err := s.store.Bookings().List(ctx, repository.BookingFilter{PropertyID: propertyID, Overlapping: &window})
	if err != nil {
		return nil, err
	}
	return aggregate(propertyID, window, bookings), nil
}

func aggregate(propertyID int64, window domain.DateRange, bookings []domain.Booking) *Statistics {
	st := &Statistics{
		PropertyID:    propertyID,
		From:          domain.FormatDate(window.CheckIn),
		To:            domain.FormatDate(window.CheckOut),
		TotalBookings: len(bookings),
		ByStatus:      make(map[domain.BookingStatus]int),
		WindowNights:  window.Nights(),
	}

	revenueNights := 0
	for _, b := range bookings {
		st.ByStatus[b.Status]++
		if b.Status == domain.BookingStatusCancelled {
			st.CancelledBookings++
			st.RefundedAmount += b.RefundAmount
			continue
		}
		if b.Status == domain.BookingStatusPending {
			continue
		}
		if clipped, ok := b.Range().Clip(window); ok {
			st.BookedNights += clipped.Nights()
		}
		if window.Contains(b.CheckIn) {
			st.Revenue += b.TotalAmount
			revenueNights += b.Range().Nights()
		}
	}

	st.AverageNightlyRate = st.Revenue.Div(revenueNights)
	if st.WindowNights > 0 {
		st.OccupancyRate = float64(st.BookedNights) / float64(st.WindowNights)
	}
	return st
}

func (s *BookingService) authorizeHost(ctx context.Context, actor domain.Actor, propertyID int64) error {
	property, err := s.properties.GetByID(ctx, propertyID)
	if err != nil {
		return err
	}
	if !actor.Admin && !property.OwnedBy(actor) {
		return domain.PermissionError("only the property owner can view its bookings")
	}
	return nil
}
