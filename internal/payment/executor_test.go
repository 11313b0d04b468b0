package payment

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) PublishWithRetry(ctx context.Context, topic, key string, payload any, maxRetries int) error {
	args := m.Called(ctx, topic, key, payload, maxRetries)
	return args.Error(0)
}

func TestKafkaExecutor_Refund(t *testing.T) {
	ctx := context.Background()
	pub := &MockPublisher{}
	req := RefundRequest{BookingID: "b-1", AmountCents: 15000, Currency: "USD"}

	pub.On("PublishWithRetry", ctx, "payments.refunds", "b-1", req, 3).Return(nil).Once()
	assert.NoError(t, NewKafkaExecutor(pub, "payments.refunds", 3).Refund(ctx, req))

	pub.On("PublishWithRetry", ctx, "payments.refunds", "b-2", mock.Anything, 3).Return(errors.New("broker down")).Once()
	assert.Error(t, NewKafkaExecutor(pub, "payments.refunds", 3).Refund(ctx, RefundRequest{BookingID: "b-2"}))

	// At least one attempt is always made.
	pub.On("PublishWithRetry", ctx, "payments.refunds", "b-3", mock.Anything, 1).Return(nil).Once()
	assert.NoError(t, NewKafkaExecutor(pub, "payments.refunds", 0).Refund(ctx, RefundRequest{BookingID: "b-3"}))

	pub.AssertExpectations(t)
}
