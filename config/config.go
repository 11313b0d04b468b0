package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Env      string         `yaml:"env"`
	HTTP     HTTPConfig     `yaml:"http"`
	Storage  StorageConfig  `yaml:"storage"`
	Database DatabaseConfig `yaml:"database"`
	Redis    RedisConfig    `yaml:"redis"`
	Kafka    KafkaConfig    `yaml:"kafka"`
	Booking  BookingConfig  `yaml:"booking"`
	Worker   WorkerConfig   `yaml:"worker"`
}

type HTTPConfig struct {
	Address string `yaml:"address"`
}

// StorageConfig selects the persistence backend: "postgres" or "memory".
type StorageConfig struct {
	Driver string `yaml:"driver"`
}

type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Name     string `yaml:"name"`
	SSLMode  string `yaml:"ssl_mode"`
}

func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s", d.Host, d.Port, d.User, d.Password, d.Name, d.SSLMode)
}

type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type KafkaConfig struct {
	Brokers            []string `yaml:"brokers"`
	BookingEventsTopic string   `yaml:"booking_events_topic"`
	NotificationsTopic string   `yaml:"notifications_topic"`
	PaymentsTopic      string   `yaml:"payments_topic"`
	PublishRetries     int      `yaml:"publish_retries"`
	GroupID            string   `yaml:"group_id"`
}

type BookingConfig struct {
	PendingTTLMinutes       int  `yaml:"pending_ttl_minutes"`
	LockTTLSeconds          int  `yaml:"lock_ttl_seconds"`
	PropertyCacheTTLSeconds int  `yaml:"property_cache_ttl_seconds"`
	MaxTxRetries            int  `yaml:"max_tx_retries"`
	RefundCheckedIn         bool `yaml:"refund_checked_in"`
}

func (b BookingConfig) PendingTTL() time.Duration {
	return time.Duration(b.PendingTTLMinutes) * time.Minute
}

func (b BookingConfig) LockTTL() time.Duration {
	return time.Duration(b.LockTTLSeconds) * time.Second
}

func (b BookingConfig) PropertyCacheTTL() time.Duration {
	return time.Duration(b.PropertyCacheTTLSeconds) * time.Second
}

type WorkerConfig struct {
	SweepIntervalMinutes      int `yaml:"sweep_interval_minutes"`
	AvailabilityRetentionDays int `yaml:"availability_retention_days"`
}

func (w WorkerConfig) SweepInterval() time.Duration {
	return time.Duration(w.SweepIntervalMinutes) * time.Minute
}

func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	return Parse(data)
}

// Parse decodes YAML and fills zero values with defaults.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	cfg.applyDefaults()

	if cfg.Storage.Driver != "postgres" && cfg.Storage.Driver != "memory" {
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Storage.Driver)
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Env == "" {
		c.Env = "dev"
	}
	if c.HTTP.Address == "" {
		c.HTTP.Address = ":8080"
	}
	if c.Storage.Driver == "" {
		c.Storage.Driver = "postgres"
	}
	if c.Database.SSLMode == "" {
		c.Database.SSLMode = "disable"
	}
	if c.Kafka.GroupID == "" {
		c.Kafka.GroupID = "staybooking-worker"
	}
	if c.Kafka.PublishRetries <= 0 {
		c.Kafka.PublishRetries = 3
	}
	if c.Booking.PendingTTLMinutes == 0 {
		c.Booking.PendingTTLMinutes = 24 * 60
	}
	if c.Booking.LockTTLSeconds == 0 {
		c.Booking.LockTTLSeconds = 30
	}
	if c.Booking.PropertyCacheTTLSeconds == 0 {
		c.Booking.PropertyCacheTTLSeconds = 300
	}
	if c.Booking.MaxTxRetries == 0 {
		c.Booking.MaxTxRetries = 5
	}
	if c.Worker.SweepIntervalMinutes == 0 {
		c.Worker.SweepIntervalMinutes = 15
	}
	if c.Worker.AvailabilityRetentionDays == 0 {
		c.Worker.AvailabilityRetentionDays = 30
	}
}
