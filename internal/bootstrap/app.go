package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Domenick1991/staybooking/config"
	"github.com/Domenick1991/staybooking/internal/cache"
	"github.com/Domenick1991/staybooking/internal/clock"
	"github.com/Domenick1991/staybooking/internal/kafka"
	"github.com/Domenick1991/staybooking/internal/payment"
	"github.com/Domenick1991/staybooking/internal/repository"
	"github.com/Domenick1991/staybooking/internal/service/availability"
	"github.com/Domenick1991/staybooking/internal/service/booking"
	"github.com/Domenick1991/staybooking/internal/service/policy"
)

// App holds the wired services shared by the API server and the worker.
type App struct {
	Availability *availability.Service
	Bookings     *booking.BookingService
	Policies     *policy.Service

	closers []func() error
}

// NewApp connects the configured backends and builds the services.
func NewApp(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	app := &App{}

	store, properties, err := app.openStore(ctx, cfg, logger)
	if err != nil {
		app.Close()
		return nil, err
	}

	availabilityOpts := []availability.Option{availability.WithLogger(logger)}
	if cfg.Redis.Addr != "" {
		redisCache := cache.NewRedisCache(cfg.Redis, cfg.Booking.PropertyCacheTTL())
		app.closers = append(app.closers, redisCache.Close)
		properties = cache.NewCachedProperties(properties, redisCache, logger)
		availabilityOpts = append(availabilityOpts, availability.WithLocker(redisCache, cfg.Booking.LockTTL()))
	} else {
		logger.Warn("redis not configured, date locks are process-local")
		availabilityOpts = append(availabilityOpts, availability.WithLocker(cache.NewLocalLocks(), cfg.Booking.LockTTL()))
	}
	app.Availability = availability.NewService(store, properties, availabilityOpts...)

	bookingOpts := []booking.BookingServiceOption{
		booking.WithLogger(logger),
		booking.WithPendingTTL(cfg.Booking.PendingTTL()),
		booking.WithCheckedInRefunds(cfg.Booking.RefundCheckedIn),
		booking.WithAvailabilityRetention(time.Duration(cfg.Worker.AvailabilityRetentionDays) * 24 * time.Hour),
		booking.WithNotificationsTopic(cfg.Kafka.NotificationsTopic),
	}
	var producer booking.Producer
	if len(cfg.Kafka.Brokers) > 0 {
		p := kafka.NewProducer(cfg.Kafka.Brokers, logger)
		app.closers = append(app.closers, p.Close)
		producer = p
		if cfg.Kafka.PaymentsTopic != "" {
			bookingOpts = append(bookingOpts, booking.WithPaymentExecutor(payment.NewKafkaExecutor(p, cfg.Kafka.PaymentsTopic, cfg.Kafka.PublishRetries)))
		}
	} else {
		logger.Warn("kafka not configured, booking events and refunds are not published")
	}
	app.Bookings = booking.NewBookingService(store, properties, app.Availability, producer, cfg.Kafka.BookingEventsTopic, bookingOpts...)

	app.Policies = policy.NewService(store, properties, clock.System{}, logger)
	return app, nil
}

func (a *App) openStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) (repository.Store, repository.PropertyRepository, error) {
	if cfg.Storage.Driver == "memory" {
		logger.Warn("using in-memory storage, data is lost on restart")
		mem := repository.NewMemoryStore()
		return mem, mem.Properties(), nil
	}

	pool, err := pgxpool.New(ctx, cfg.Database.DSN())
	if err != nil {
		return nil, nil, fmt.Errorf("connect postgres: %w", err)
	}
	a.closers = append(a.closers, func() error { pool.Close(); return nil })

	if err := pool.Ping(ctx); err != nil {
		return nil, nil, fmt.Errorf("ping postgres: %w", err)
	}
	if err := repository.Migrate(ctx, pool); err != nil {
		return nil, nil, fmt.Errorf("migrate: %w", err)
	}
	return repository.NewPGStore(pool, cfg.Booking.MaxTxRetries), repository.NewPropertyRepository(pool), nil
}

// Close releases backends in reverse order of acquisition.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i]())
	}
	a.closers = nil
	return errors.Join(errs...)
}
