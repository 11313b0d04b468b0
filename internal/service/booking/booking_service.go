package booking

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Domenick1991/staybooking/internal/clock"
	"github.com/Domenick1991/staybooking/internal/domain"
	"github.com/Domenick1991/staybooking/internal/kafka"
	"github.com/Domenick1991/staybooking/internal/payment"
	"github.com/Domenick1991/staybooking/internal/repository"
	"github.com/Domenick1991/staybooking/internal/service/availability"
	"github.com/Domenick1991/staybooking/internal/service/conflict"
	"github.com/Domenick1991/staybooking/internal/service/policy"
)

type BookingUseCase interface {
	CheckAvailability(ctx context.Context, req conflict.Request) (*conflict.Result, error)
	CreateBooking(ctx context.Context, actor domain.Actor, input CreateBookingInput) (*domain.Booking, error)
	ConfirmBooking(ctx context.Context, actor domain.Actor, id string) (*domain.Booking, error)
	UpdateBooking(ctx context.Context, actor domain.Actor, id string, input UpdateBookingInput) (*domain.Booking, error)
	CancelBooking(ctx context.Context, actor domain.Actor, id, reason string) (*domain.Booking, error)
	CheckInBooking(ctx context.Context, actor domain.Actor, id string) (*domain.Booking, error)
	CompleteBooking(ctx context.Context, actor domain.Actor, id string) (*domain.Booking, error)
	GetBooking(ctx context.Context, actor domain.Actor, id string) (*domain.Booking, error)
	GetByConfirmationCode(ctx context.Context, actor domain.Actor, code string) (*domain.Booking, error)
	ListGuestBookings(ctx context.Context, actor domain.Actor, statuses []domain.BookingStatus) ([]domain.Booking, error)
	ListHostBookings(ctx context.Context, actor domain.Actor, statuses []domain.BookingStatus) ([]domain.Booking, error)
	ListPropertyBookings(ctx context.Context, actor domain.Actor, propertyID int64, statuses []domain.BookingStatus) ([]domain.Booking, error)
	UpcomingCheckIns(ctx context.Context, actor domain.Actor, days int) ([]domain.Booking, error)
	UpcomingCheckOuts(ctx context.Context, actor domain.Actor, days int) ([]domain.Booking, error)
	PropertyStatistics(ctx context.Context, actor domain.Actor, propertyID int64, window domain.DateRange) (*Statistics, error)
	ExpirePendingBookings(ctx context.Context) ([]domain.Booking, error)
	PurgePastAvailability(ctx context.Context) (int64, error)
}

type Producer interface {
	Publish(ctx context.Context, topic, key string, payload any) error
}

type BookingService struct {
	store              repository.Store
	properties         repository.PropertyRepository
	calendar           *availability.Service
	checker            *conflict.Checker
	producer           Producer
	payments           payment.Executor
	bookingTopic       string
	notificationsTopic string
	pendingTTL         time.Duration
	retention          time.Duration
	refundCheckedIn    bool
	clock              clock.Clock
	logger             *slog.Logger
}

type CreateBookingInput struct {
	PropertyID int64     `json:"property_id"`
	CheckIn    time.Time `json:"check_in"`
	CheckOut   time.Time `json:"check_out"`
	Adults     int       `json:"adults"`
	Children   int       `json:"children"`
}

// UpdateBookingInput is a partial update; nil fields are left unchanged.
type UpdateBookingInput struct {
	CheckIn            *time.Time
	CheckOut           *time.Time
	Adults             *int
	Children           *int
	HostNotes          *string
	Status             *domain.BookingStatus
	CancellationReason *string
}

func (in UpdateBookingInput) changesStay() bool {
	return in.CheckIn != nil || in.CheckOut != nil || in.Adults != nil || in.Children != nil
}

type BookingServiceOption func(*BookingService)

func WithNotificationsTopic(topic string) BookingServiceOption {
	return func(s *BookingService) {
		s.notificationsTopic = topic
	}
}

func WithPaymentExecutor(e payment.Executor) BookingServiceOption {
	return func(s *BookingService) {
		s.payments = e
	}
}

func WithPendingTTL(ttl time.Duration) BookingServiceOption {
	return func(s *BookingService) {
		s.pendingTTL = ttl
	}
}

func WithAvailabilityRetention(d time.Duration) BookingServiceOption {
	return func(s *BookingService) {
		s.retention = d
	}
}

// WithCheckedInRefunds lets guests who already checked in get a refund
// under the property's policy when the stay is cancelled.
func WithCheckedInRefunds(enabled bool) BookingServiceOption {
	return func(s *BookingService) {
		s.refundCheckedIn = enabled
	}
}

func WithClock(c clock.Clock) BookingServiceOption {
	return func(s *BookingService) {
		s.clock = c
	}
}

func WithLogger(logger *slog.Logger) BookingServiceOption {
	return func(s *BookingService) {
		s.logger = logger
	}
}

func NewBookingService(
	store repository.Store,
	properties repository.PropertyRepository,
	calendar *availability.Service,
	producer Producer,
	bookingTopic string,
	opts ...BookingServiceOption,
) *BookingService {
	service := &BookingService{
		store:        store,
		properties:   properties,
		calendar:     calendar,
		checker:      conflict.NewChecker(),
		producer:     producer,
		bookingTopic: bookingTopic,
		pendingTTL:   24 * time.Hour,
		retention:    30 * 24 * time.Hour,
		clock:        clock.System{},
		logger:       slog.Default(),
	}
	for _, opt := range opts {
		opt(service)
	}
	return service
}

func (s *BookingService) today() time.Time {
	return domain.Day(s.clock.Now())
}

func (s *BookingService) CheckAvailability(ctx context.Context, req conflict.Request) (*conflict.Result, error) {
	property, err := s.properties.GetByID(ctx, req.PropertyID)
	if err != nil {
		return nil, err
	}
	return s.checker.Check(ctx, s.store, *property, req)
}

func (s *BookingService) CreateBooking(ctx context.Context, actor domain.Actor, input CreateBookingInput) (*domain.Booking, error) {
	if actor.UserID == 0 {
		return nil, domain.PermissionError("authentication required")
	}
	stay, err := domain.NewDateRange(input.CheckIn, input.CheckOut)
	if err != nil {
		return nil, err
	}
	if stay.CheckIn.Before(s.today()) {
		return nil, domain.ValidationError("check-in date %s is in the past", domain.FormatDate(stay.CheckIn))
	}
	guests := domain.Occupancy{Adults: input.Adults, Children: input.Children}
	if err := guests.Validate(); err != nil {
		return nil, err
	}

	property, err := s.properties.GetByID(ctx, input.PropertyID)
	if err != nil {
		return nil, err
	}
	if property.OwnedBy(actor) {
		return nil, domain.ValidationError("hosts cannot book their own property")
	}

	reservation, err := s.calendar.Reserve(ctx, property.ID, stay)
	if err != nil {
		return nil, err
	}
	defer s.releaseReservation(reservation)

	var booking *domain.Booking
	err = s.store.WithinTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		if err := tx.LockProperty(ctx, property.ID); err != nil {
			return err
		}
		result, err := s.checker.Check(ctx, tx, *property, conflict.Request{
			PropertyID: property.ID,
			Range:      stay,
			Occupancy:  guests,
		})
		if err != nil {
			return err
		}
		if err := rejectUnbookable(result); err != nil {
			return err
		}
		if err := ensureNoOverlap(ctx, tx, property.ID, stay, ""); err != nil {
			return err
		}

		now := s.clock.Now().UTC()
		b := &domain.Booking{
			ID:               uuid.NewString(),
			PropertyID:       property.ID,
			GuestID:          actor.UserID,
			HostID:           property.OwnerID,
			CheckIn:          stay.CheckIn,
			CheckOut:         stay.CheckOut,
			Adults:           guests.Adults,
			Children:         guests.Children,
			TotalAmount:      result.TotalPrice,
			NightlyRate:      result.AverageNightlyRate,
			Status:           domain.BookingStatusPending,
			ConfirmationCode: domain.NewConfirmationCode(),
			CreatedAt:        now,
			UpdatedAt:        now,
		}
		if result.InstantBookable {
			b.Status = domain.BookingStatusConfirmed
			b.ConfirmedAt = &now
		}
		if err := tx.Bookings().Create(ctx, b); err != nil {
			return err
		}
		if err := availability.On(tx.Availability()).Hold(ctx, property.ID, stay, b.ID); err != nil {
			return err
		}
		booking = b
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "booking created",
		"booking_id", booking.ID, "property_id", booking.PropertyID, "status", booking.Status, "range", stay.String())
	s.notify(ctx, "booking_created", booking, "")
	if booking.Status == domain.BookingStatusConfirmed {
		s.notify(ctx, "booking_confirmed", booking, "")
	}
	return booking, nil
}

func (s *BookingService) ConfirmBooking(ctx context.Context, actor domain.Actor, id string) (*domain.Booking, error) {
	changed := false
	booking, err := s.mutate(ctx, id, func(ctx context.Context, tx repository.Tx, b *domain.Booking) (bool, error) {
		changed = false
		if !b.IsHost(actor) && !actor.Admin {
			return false, domain.PermissionError("only the host can confirm a booking")
		}
		if b.Status == domain.BookingStatusConfirmed {
			return false, nil
		}
		changed = true
		return true, s.confirm(ctx, tx, b)
	})
	if err != nil {
		return nil, err
	}
	if changed {
		s.notify(ctx, "booking_confirmed", booking, "")
	}
	return booking, nil
}

func (s *BookingService) confirm(ctx context.Context, tx repository.Tx, b *domain.Booking) error {
	if err := b.Transition(domain.BookingStatusConfirmed, s.clock.Now()); err != nil {
		return err
	}
	if err := ensureNoOverlap(ctx, tx, b.PropertyID, b.Range(), b.ID); err != nil {
		return err
	}
	return availability.On(tx.Availability()).Hold(ctx, b.PropertyID, b.Range(), b.ID)
}

func (s *BookingService) CancelBooking(ctx context.Context, actor domain.Actor, id, reason string) (*domain.Booking, error) {
	var refund domain.RefundQuote
	booking, err := s.mutate(ctx, id, func(ctx context.Context, tx repository.Tx, b *domain.Booking) (bool, error) {
		if !b.VisibleTo(actor) {
			return false, domain.PermissionError("only the guest or the host can cancel a booking")
		}
		q, err := s.cancel(ctx, tx, b, reason, policyRefund)
		refund = q
		return true, err
	})
	if err != nil {
		return nil, err
	}
	s.afterCancel(ctx, booking, refund, "booking_cancelled")
	return booking, nil
}

type refundRule int

const (
	policyRefund refundRule = iota
	fullRefund
)

// cancel moves b to CANCELLED, records the refund decided by rule and
// releases exactly the nights b held.
func (s *BookingService) cancel(ctx context.Context, tx repository.Tx, b *domain.Booking, reason string, rule refundRule) (domain.RefundQuote, error) {
	switch b.Status {
	case domain.BookingStatusCancelled:
		return domain.RefundQuote{}, domain.ValidationError("booking %s is already cancelled", b.ID)
	case domain.BookingStatusCompleted:
		return domain.RefundQuote{}, domain.ValidationError("completed booking %s cannot be cancelled", b.ID)
	}

	now := s.clock.Now()
	quote, err := s.refundFor(ctx, tx, b, domain.Day(now), rule)
	if err != nil {
		return domain.RefundQuote{}, err
	}

	if err := b.Transition(domain.BookingStatusCancelled, now); err != nil {
		return domain.RefundQuote{}, err
	}
	b.CancellationReason = strings.TrimSpace(reason)
	b.RefundAmount = quote.Amount

	if _, err := availability.On(tx.Availability()).Release(ctx, b.PropertyID, b.Range(), b.ID); err != nil {
		return domain.RefundQuote{}, err
	}
	return quote, nil
}

func (s *BookingService) refundFor(ctx context.Context, tx repository.Tx, b *domain.Booking, today time.Time, rule refundRule) (domain.RefundQuote, error) {
	days := max(domain.DaysBetween(today, b.CheckIn), 0)
	switch {
	case rule == fullRefund:
		return domain.RefundQuote{Amount: b.TotalAmount, Percentage: 100, DaysUntilCheckIn: days}, nil
	case b.Status == domain.BookingStatusCheckedIn && !s.refundCheckedIn:
		return domain.RefundQuote{DaysUntilCheckIn: days, Late: true}, nil
	}
	quote, _, err := policy.Quote(ctx, tx.Policies(), *b, today)
	return quote, err
}

// afterCancel runs the side effects of a committed cancellation. A failed
// refund does not undo the cancellation; it is logged and announced.
func (s *BookingService) afterCancel(ctx context.Context, b *domain.Booking, quote domain.RefundQuote, eventType string) {
	s.logger.InfoContext(ctx, "booking cancelled",
		"booking_id", b.ID, "refund", b.RefundAmount.String(), "refund_percentage", quote.Percentage, "days_until_check_in", quote.DaysUntilCheckIn)
	s.notify(ctx, eventType, b, b.CancellationReason)

	if b.RefundAmount <= 0 || s.payments == nil {
		return
	}
	err := s.payments.Refund(ctx, payment.RefundRequest{
		BookingID:        b.ID,
		ConfirmationCode: b.ConfirmationCode,
		GuestID:          b.GuestID,
		AmountCents:      b.RefundAmount,
		Currency:         s.currency(ctx, b.PropertyID),
		Reason:           b.CancellationReason,
		RequestedAt:      s.clock.Now().UTC(),
	})
	if err != nil {
		s.logger.ErrorContext(ctx, "refund failed", "booking_id", b.ID, "amount", b.RefundAmount.String(), "error", err)
		s.notify(ctx, "refund_failed", b, err.Error())
	}
}

func (s *BookingService) currency(ctx context.Context, propertyID int64) string {
	p, err := s.properties.GetByID(ctx, propertyID)
	if err != nil || p.Currency == "" {
		return "USD"
	}
	return p.Currency
}

func (s *BookingService) CheckInBooking(ctx context.Context, actor domain.Actor, id string) (*domain.Booking, error) {
	booking, err := s.mutate(ctx, id, func(ctx context.Context, tx repository.Tx, b *domain.Booking) (bool, error) {
		if !b.IsHost(actor) && !actor.Admin {
			return false, domain.PermissionError("only the host can check a guest in")
		}
		return true, s.checkIn(b)
	})
	if err != nil {
		return nil, err
	}
	s.notify(ctx, "booking_checked_in", booking, "")
	return booking, nil
}

func (s *BookingService) checkIn(b *domain.Booking) error {
	if b.Status == domain.BookingStatusConfirmed && s.today().Before(b.CheckIn) {
		return domain.ValidationError("check-in opens on %s", domain.FormatDate(b.CheckIn))
	}
	return b.Transition(domain.BookingStatusCheckedIn, s.clock.Now())
}

func (s *BookingService) CompleteBooking(ctx context.Context, actor domain.Actor, id string) (*domain.Booking, error) {
	booking, err := s.mutate(ctx, id, func(ctx context.Context, tx repository.Tx, b *domain.Booking) (bool, error) {
		if !b.IsHost(actor) && !actor.Admin {
			return false, domain.PermissionError("only the host can complete a stay")
		}
		return true, b.Transition(domain.BookingStatusCompleted, s.clock.Now())
	})
	if err != nil {
		return nil, err
	}
	s.notify(ctx, "booking_completed", booking, "")
	return booking, nil
}

func (s *BookingService) UpdateBooking(ctx context.Context, actor domain.Actor, id string, input UpdateBookingInput) (*domain.Booking, error) {
	var (
		eventType = "booking_updated"
		refund    domain.RefundQuote
		cancelled bool
		property  *domain.Property
	)
	if input.changesStay() {
		// The property directory is read outside the transaction.
		current, err := s.store.Bookings().GetByID(ctx, id)
		if err != nil {
			return nil, err
		}
		if property, err = s.properties.GetByID(ctx, current.PropertyID); err != nil {
			return nil, err
		}
	}
	booking, err := s.mutate(ctx, id, func(ctx context.Context, tx repository.Tx, b *domain.Booking) (bool, error) {
		eventType, cancelled = "booking_updated", false
		if !b.VisibleTo(actor) {
			return false, domain.PermissionError("booking %s is not yours", b.ID)
		}
		if b.Status.IsTerminal() {
			return false, domain.ValidationError("%s booking cannot be updated", strings.ToLower(string(b.Status)))
		}
		host := b.IsHost(actor) || actor.Admin

		if input.HostNotes != nil {
			if !host {
				return false, domain.PermissionError("only the host can edit host notes")
			}
			b.HostNotes = strings.TrimSpace(*input.HostNotes)
			b.UpdatedAt = s.clock.Now().UTC()
		}

		if input.changesStay() {
			if input.Status != nil && *input.Status == domain.BookingStatusCancelled {
				return false, domain.ValidationError("cannot change dates of a booking being cancelled")
			}
			if err := s.changeStay(ctx, tx, b, property, input); err != nil {
				return false, err
			}
		}

		if input.Status != nil && *input.Status != b.Status {
			if !host {
				return false, domain.PermissionError("only the host can change booking status")
			}
			switch *input.Status {
			case domain.BookingStatusCancelled:
				reason := ""
				if input.CancellationReason != nil {
					reason = *input.CancellationReason
				}
				q, err := s.cancel(ctx, tx, b, reason, policyRefund)
				if err != nil {
					return false, err
				}
				refund, cancelled, eventType = q, true, "booking_cancelled"
			case domain.BookingStatusConfirmed:
				if err := s.confirm(ctx, tx, b); err != nil {
					return false, err
				}
				eventType = "booking_confirmed"
			case domain.BookingStatusCheckedIn:
				if err := s.checkIn(b); err != nil {
					return false, err
				}
				eventType = "booking_checked_in"
			default:
				if err := b.Transition(*input.Status, s.clock.Now()); err != nil {
					return false, err
				}
				eventType = "booking_" + strings.ToLower(string(b.Status))
			}
		}
		return true, nil
	})
	if err != nil {
		return nil, err
	}

	if cancelled {
		s.afterCancel(ctx, booking, refund, eventType)
		return booking, nil
	}
	s.notify(ctx, eventType, booking, "")
	return booking, nil
}

// changeStay re-validates b against new dates or guests, reprices it and
// moves its hold.
func (s *BookingService) changeStay(ctx context.Context, tx repository.Tx, b *domain.Booking, property *domain.Property, input UpdateBookingInput) error {
	if b.Status != domain.BookingStatusPending && b.Status != domain.BookingStatusConfirmed {
		return domain.ValidationError("stay of a %s booking cannot be changed", strings.ToLower(string(b.Status)))
	}

	stay := b.Range()
	if input.CheckIn != nil {
		stay.CheckIn = domain.Day(*input.CheckIn)
	}
	if input.CheckOut != nil {
		stay.CheckOut = domain.Day(*input.CheckOut)
	}
	if err := stay.Validate(); err != nil {
		return err
	}
	if stay.CheckIn != b.CheckIn && stay.CheckIn.Before(s.today()) {
		return domain.ValidationError("check-in date %s is in the past", domain.FormatDate(stay.CheckIn))
	}
	guests := b.Occupancy()
	if input.Adults != nil {
		guests.Adults = *input.Adults
	}
	if input.Children != nil {
		guests.Children = *input.Children
	}

	if property == nil || property.ID != b.PropertyID {
		return domain.SystemError("change stay", fmt.Errorf("property of booking %s not loaded", b.ID))
	}
	result, err := s.checker.Check(ctx, tx, *property, conflict.Request{
		PropertyID:       b.PropertyID,
		Range:            stay,
		Occupancy:        guests,
		ExcludeBookingID: b.ID,
	})
	if err != nil {
		return err
	}
	if err := rejectUnbookable(result); err != nil {
		return err
	}

	cal := availability.On(tx.Availability())
	if _, err := cal.Release(ctx, b.PropertyID, b.Range(), b.ID); err != nil {
		return err
	}
	if err := cal.Hold(ctx, b.PropertyID, stay, b.ID); err != nil {
		return err
	}

	b.CheckIn, b.CheckOut = stay.CheckIn, stay.CheckOut
	b.Adults, b.Children = guests.Adults, guests.Children
	b.TotalAmount = result.TotalPrice
	b.NightlyRate = result.AverageNightlyRate
	b.UpdatedAt = s.clock.Now().UTC()
	return nil
}

// mutate loads a booking under its property lock, applies fn and saves the
// result with a version check. fn returning false leaves the row untouched.
func (s *BookingService) mutate(ctx context.Context, id string, fn func(ctx context.Context, tx repository.Tx, b *domain.Booking) (bool, error)) (*domain.Booking, error) {
	var out *domain.Booking
	err := s.store.WithinTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		b, err := tx.Bookings().GetByID(ctx, id)
		if err != nil {
			return err
		}
		if err := tx.LockProperty(ctx, b.PropertyID); err != nil {
			return err
		}
		changed, err := fn(ctx, tx, b)
		if err != nil {
			return err
		}
		if changed {
			if err := tx.Bookings().Update(ctx, b); err != nil {
				return err
			}
		}
		out = b
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func rejectUnbookable(result *conflict.Result) error {
	if result.Bookable {
		return nil
	}
	if !result.Available() {
		return domain.ConflictError("property %d is %s: %s", result.PropertyID, conflict.MessageUnavailable, strings.Join(result.UnavailableDates, ", "))
	}
	return domain.ValidationError("%s", strings.Join(result.Restrictions, "; "))
}

// ensureNoOverlap re-reads held bookings directly, independent of the
// availability records.
func ensureNoOverlap(ctx context.Context, tx repository.Tx, propertyID int64, stay domain.DateRange, excludeID string) error {
	overlapping, err := tx.Bookings().List(ctx, repository.BookingFilter{
		PropertyID:  propertyID,
		Statuses:    domain.HeldStatuses,
		Overlapping: &stay,
		ExcludeID:   excludeID,
		Limit:       1,
	})
	if err != nil {
		return err
	}
	if len(overlapping) > 0 {
		return domain.ConflictError("property %d already booked for %s", propertyID, stay)
	}
	return nil
}

func (s *BookingService) releaseReservation(r *availability.Reservation) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := r.Release(ctx); err != nil {
		s.logger.Warn("release date locks", "property_id", r.PropertyID, "token", r.Token, "error", err)
	}
}

func (s *BookingService) notify(ctx context.Context, eventType string, b *domain.Booking, reason string) {
	if err := s.publish(ctx, eventType, b, reason); err != nil {
		s.logger.WarnContext(ctx, "failed to publish booking event", "type", eventType, "booking_id", b.ID, "error", err)
	}
}

func (s *BookingService) publish(ctx context.Context, eventType string, b *domain.Booking, reason string) error {
	if s.producer == nil || s.bookingTopic == "" {
		return nil
	}
	event := kafka.BookingEvent{
		Type:             eventType,
		BookingID:        b.ID,
		ConfirmationCode: b.ConfirmationCode,
		PropertyID:       b.PropertyID,
		GuestID:          b.GuestID,
		HostID:           b.HostID,
		Status:           string(b.Status),
		CheckIn:          domain.FormatDate(b.CheckIn),
		CheckOut:         domain.FormatDate(b.CheckOut),
		TotalAmountCents: int64(b.TotalAmount),
		RefundCents:      int64(b.RefundAmount),
		Reason:           reason,
		OccurredAt:       s.clock.Now().UTC(),
	}
	err := s.producer.Publish(ctx, s.bookingTopic, b.ID, event)
	if s.notificationsTopic != "" {
		err = errors.Join(err, s.producer.Publish(ctx, s.notificationsTopic, b.ID, event))
	}
	return err
}

var _ BookingUseCase = (*BookingService)(nil)
