package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"fieldbooking/internal/config"
	"fieldbooking/internal/database"
	"fieldbooking/internal/lock"
	"fieldbooking/internal/modules/booking"
	"fieldbooking/internal/pkg/logger"
	"fieldbooking/internal/repository"

	"go.uber.org/zap"
)

// expire_bookings runs one expiry sweep and exits. It is meant for cron-driven deployments
// that run the API with the in-process scheduler disabled.
func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	log, err := logger.New(cfg.AppEnv, cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	loc, err := cfg.Location()
	if err != nil {
		log.Fatal("timezone", zap.Error(err))
	}
	db, err := database.Connect(cfg.DatabaseURL, log)
	if err != nil {
		log.Fatal("db connect failed", zap.Error(err))
	}

	// The sweep uses conditional updates only, so no slot locker or gateway is needed.
	svc := booking.NewService(repository.NewStore(db), lock.NewMemoryLocker(), nil, nil, log, booking.Config{
		Location:       loc,
		PaymentHoldTTL: cfg.PaymentHoldTTL,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	total := 0
	for {
		n, err := svc.ExpirePendingBookings(ctx)
		total += n
		if err != nil {
			log.Fatal("expire pending bookings failed", zap.Int("expired", total), zap.Error(err))
		}
		if n == 0 {
			break
		}
	}
	log.Info("expiry sweep completed", zap.Int("expired", total))
}
