package booking

import (
	"context"
	"errors"

	"github.com/Domenick1991/staybooking/internal/domain"
	"github.com/Domenick1991/staybooking/internal/repository"
)

// ExpiredReason is recorded on bookings the host never answered.
const ExpiredReason = "expired"

// ExpirePendingBookings cancels PENDING bookings older than the pending TTL
// and releases their nights. The guest gets the full amount back. One failed
// booking does not stop the sweep.
func (s *BookingService) ExpirePendingBookings(ctx context.Context) ([]domain.Booking, error) {
	deadline := s.clock.Now().Add(-s.pendingTTL)
	stale, err := s.store.Bookings().List(ctx, repository.BookingFilter{
		Statuses:      []domain.BookingStatus{domain.BookingStatusPending},
		CreatedBefore: &deadline,
	})
	if err != nil {
		return nil, err
	}

	expired := make([]domain.Booking, 0, len(stale))
	var errs []error
	for _, candidate := range stale {
		var quote domain.RefundQuote
		b, err := s.mutate(ctx, candidate.ID, func(ctx context.Context, tx repository.Tx, b *domain.Booking) (bool, error) {
			if b.Status != domain.BookingStatusPending {
				return false, nil
			}
			q, err := s.cancel(ctx, tx, b, ExpiredReason, fullRefund)
			if err != nil {
				return false, err
			}
			quote = q
			return true, nil
		})
		if err != nil {
			s.logger.ErrorContext(ctx, "failed to expire booking", "booking_id", candidate.ID, "error", err)
			errs = append(errs, err)
			continue
		}
		if b.Status != domain.BookingStatusCancelled || b.CancellationReason != ExpiredReason {
			continue
		}
		s.afterCancel(ctx, b, quote, "booking_expired")
		expired = append(expired, *b)
	}

	if len(expired) > 0 {
		s.logger.InfoContext(ctx, "expired pending bookings", "count", len(expired))
	}
	return expired, errors.Join(errs...)
}

// PurgePastAvailability drops day records older than the retention window.
func (s *BookingService) PurgePastAvailability(ctx context.Context) (int64, error) {
	cutoff := s.today().Add(-s.retention)
	return s.calendar.PurgeBefore(ctx, cutoff)
}
