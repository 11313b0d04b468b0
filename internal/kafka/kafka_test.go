package kafka

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeBookingEvent(t *testing.T) {
	in := BookingEvent{
		Type:             "booking_cancelled",
		BookingID:        "b-1",
		ConfirmationCode: "ABCD2345",
		PropertyID:       7,
		Status:           "CANCELLED",
		CheckIn:          "2024-06-01",
		CheckOut:         "2024-06-04",
		TotalAmountCents: 30000,
		RefundCents:      15000,
		OccurredAt:       time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC),
	}
	data, err := json.Marshal(in)
	require.NoError(t, err)

	out, err := DecodeBookingEvent(data)
	require.NoError(t, err)
	assert.Equal(t, in, out)

	_, err = DecodeBookingEvent([]byte(`{"type":""}`))
	assert.Error(t, err)

	_, err = DecodeBookingEvent([]byte(`not json`))
	assert.Error(t, err)
}

func TestNewProducerAndConsumer(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	p := NewProducer([]string{"localhost:9092"}, logger)
	assert.NotNil(t, p)
	assert.NoError(t, p.Close())

	c := NewConsumer([]string{"localhost:9092"}, "", "topic", logger)
	assert.NotNil(t, c)
	assert.NoError(t, c.Close())

	var nilConsumer *Consumer
	assert.NoError(t, nilConsumer.Close())
}

func TestPublishWithRetry_AttemptsAtLeastOnce(t *testing.T) {
	p := NewProducer([]string{"localhost:9092"}, slog.New(slog.NewTextHandler(io.Discard, nil)))
	defer p.Close()

	err := p.PublishWithRetry(context.Background(), "topic", "k", make(chan int), 0)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed after 1 retries")
	assert.Contains(t, err.Error(), "failed to marshal payload")
}
