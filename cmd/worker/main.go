package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Domenick1991/staybooking/config"
	"github.com/Domenick1991/staybooking/internal/bootstrap"
	"github.com/Domenick1991/staybooking/internal/email"
	"github.com/Domenick1991/staybooking/internal/kafka"
	"github.com/Domenick1991/staybooking/internal/obs"
	"github.com/Domenick1991/staybooking/internal/service/booking"
)

func main() {
	cfgPath := os.Getenv("CONFIG_PATH")
	if cfgPath == "" {
		cfgPath = "config.yaml"
	}

	cfg, err := config.LoadConfig(cfgPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	logger := obs.NewLogger(cfg.Env).With("component", "worker")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.NewApp(ctx, cfg, logger)
	if err != nil {
		log.Fatalf("init app: %v", err)
	}
	defer func() {
		if err := app.Close(); err != nil {
			logger.Error("close app", "error", err)
		}
	}()

	if len(cfg.Kafka.Brokers) > 0 && cfg.Kafka.NotificationsTopic != "" {
		consumer := kafka.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.GroupID, cfg.Kafka.NotificationsTopic, logger)
		defer consumer.Close()

		emailSender := email.NewSender(logger)
		go func() {
			if err := consumer.ConsumeBookingEvents(ctx, emailSender.Send); err != nil {
				logger.Error("notifications consumer stopped", "error", err)
			}
		}()
	}

	sweepTicker := time.NewTicker(cfg.Worker.SweepInterval())
	defer sweepTicker.Stop()

	sweep(ctx, app.Bookings, logger)
	for {
		select {
		case <-sweepTicker.C:
			sweep(ctx, app.Bookings, logger)
		case <-ctx.Done():
			logger.Info("shutting down")
			return
		}
	}
}

func sweep(ctx context.Context, bookings booking.BookingUseCase, logger *slog.Logger) {
	expired, err := bookings.ExpirePendingBookings(ctx)
	if err != nil {
		logger.Error("expire pending bookings", "error", err)
	}
	if len(expired) > 0 {
		logger.Info("expired pending bookings", "count", len(expired))
	}

	purged, err := bookings.PurgePastAvailability(ctx)
	if err != nil {
		logger.Error("purge past availability", "error", err)
		return
	}
	if purged > 0 {
		logger.Info("purged past availability days", "count", purged)
	}
}
