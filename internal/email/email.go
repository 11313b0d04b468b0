package email

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Domenick1991/staybooking/internal/kafka"
)

// Sender turns booking events into guest/host notifications. Delivery is a
// structured log line until an SMTP relay is wired.
type Sender struct {
	logger *slog.Logger
}

func NewSender(logger *slog.Logger) *Sender {
	return &Sender{logger: logger}
}

func (s *Sender) Send(ctx context.Context, event kafka.BookingEvent) error {
	s.logger.InfoContext(ctx, "notification",
		"subject", Subject(event),
		"booking_id", event.BookingID,
		"guest_id", event.GuestID,
		"host_id", event.HostID,
	)
	return nil
}

func Subject(event kafka.BookingEvent) string {
	code := event.ConfirmationCode
	switch event.Type {
	case "booking_created":
		if event.Status == "CONFIRMED" {
			return fmt.Sprintf("Booking %s confirmed for %s to %s", code, event.CheckIn, event.CheckOut)
		}
		return fmt.Sprintf("Booking request %s awaiting host approval", code)
	case "booking_confirmed":
		return fmt.Sprintf("Booking %s confirmed by host", code)
	case "booking_updated":
		return fmt.Sprintf("Booking %s updated", code)
	case "booking_checked_in":
		return fmt.Sprintf("Welcome! Booking %s checked in", code)
	case "booking_completed":
		return fmt.Sprintf("Booking %s completed", code)
	case "booking_cancelled", "booking_expired":
		if event.RefundCents > 0 {
			return fmt.Sprintf("Booking %s cancelled, refund of %d.%02d issued", code, event.RefundCents/100, event.RefundCents%100)
		}
		return fmt.Sprintf("Booking %s cancelled", code)
	case "refund_failed":
		return fmt.Sprintf("Refund for booking %s needs attention", code)
	}
	return fmt.Sprintf("Booking %s: %s", code, event.Type)
}
