package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/Domenick1991/staybooking/api"
	"github.com/Domenick1991/staybooking/config"
	"github.com/Domenick1991/staybooking/internal/bootstrap"
	"github.com/Domenick1991/staybooking/internal/obs"
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
	logger := obs.NewLogger(cfg.Env)

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

	router := api.NewRouter(cfg.Env, logger,
		api.NewBookingHandler(app.Bookings),
		api.NewAvailabilityHandler(app.Availability),
		api.NewPolicyHandler(app.Policies),
	)

	if err := bootstrap.Run(ctx, cfg, router, logger); err != nil {
		logger.Error("server error", "error", err)
		os.Exit(1)
	}
}
