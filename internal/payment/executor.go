package payment

import (
	"context"
	"time"

	"github.com/Domenick1991/staybooking/internal/domain"
)

// RefundRequest is the decided refund handed to the payment side. Gateway
// specifics (Stripe, PayPal, ...) live behind the executor.
type RefundRequest struct {
	BookingID        string       `json:"booking_id"`
	ConfirmationCode string       `json:"confirmation_code"`
	GuestID          int64        `json:"guest_id"`
	AmountCents      domain.Money `json:"amount_cents"`
	Currency         string       `json:"currency"`
	Reason           string       `json:"reason"`
	RequestedAt      time.Time    `json:"requested_at"`
}

type Executor interface {
	Refund(ctx context.Context, req RefundRequest) error
}

type Publisher interface {
	PublishWithRetry(ctx context.Context, topic, key string, payload any, maxRetries int) error
}

// KafkaExecutor hands refunds to the payments service as commands on a topic.
// A refund command is retried before the caller gives up on it.
type KafkaExecutor struct {
	producer Publisher
	topic    string
	attempts int
}

func NewKafkaExecutor(producer Publisher, topic string, attempts int) *KafkaExecutor {
	return &KafkaExecutor{producer: producer, topic: topic, attempts: max(attempts, 1)}
}

func (e *KafkaExecutor) Refund(ctx context.Context, req RefundRequest) error {
	return e.producer.PublishWithRetry(ctx, e.topic, req.BookingID, req, e.attempts)
}

var _ Executor = (*KafkaExecutor)(nil)
