package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse_Defaults(t *testing.T) {
	cfg, err := Parse([]byte("database:\n  host: db\n  port: 5432\n"))
	require.NoError(t, err)

	assert.Equal(t, "dev", cfg.Env)
	assert.Equal(t, ":8080", cfg.HTTP.Address)
	assert.Equal(t, "postgres", cfg.Storage.Driver)
	assert.Equal(t, 24*time.Hour, cfg.Booking.PendingTTL())
	assert.Equal(t, 30*time.Second, cfg.Booking.LockTTL())
	assert.Equal(t, 15*time.Minute, cfg.Worker.SweepInterval())
	assert.Equal(t, 30, cfg.Worker.AvailabilityRetentionDays)
	assert.False(t, cfg.Booking.RefundCheckedIn)
	assert.Equal(t, 3, cfg.Kafka.PublishRetries)
	assert.Equal(t, "host=db port=5432 user= password= dbname= sslmode=disable", cfg.Database.DSN())
}

func TestParse_UnknownDriver(t *testing.T) {
	_, err := Parse([]byte("storage:\n  driver: sqlite\n"))
	assert.Error(t, err)
}

func TestLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	body := `env: prod
storage:
  driver: memory
kafka:
  brokers: ["k1:9092", "k2:9092"]
  booking_events_topic: bookings.events
  publish_retries: 5
booking:
  pending_ttl_minutes: 90
  refund_checked_in: true
`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "prod", cfg.Env)
	assert.Equal(t, "memory", cfg.Storage.Driver)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, 5, cfg.Kafka.PublishRetries)
	assert.Equal(t, 90*time.Minute, cfg.Booking.PendingTTL())
	assert.True(t, cfg.Booking.RefundCheckedIn)
}

func TestLoadConfig_MissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}
