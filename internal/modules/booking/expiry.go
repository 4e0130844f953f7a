package booking

import (
	"context"
	"fmt"
	"time"

	"fieldbooking/internal/lock"

	"github.com/go-co-op/gocron/v2"
	"go.uber.org/zap"
)

const (
	expiryBatchSize    = 200
	expiryCancelReason = "payment hold expired"
)

// ExpirePendingBookings cancels legs that are still pending with a pending or failed payment after the payment hold TTL.
// Payment status is not touched. It returns the number of legs cancelled.
func (s *Service) ExpirePendingBookings(ctx context.Context) (int, error) {
	cutoff := s.now().UTC().Add(-s.cfg.PaymentHoldTTL)
	legs, err := s.store.Bookings().ListExpiredPending(ctx, cutoff, expiryBatchSize)
	if err != nil {
		return 0, err
	}

	expired := 0
	for _, b := range legs {
		ok, err := s.store.Bookings().ExpireIfUnpaid(ctx, b.ID, s.now().UTC(), expiryCancelReason)
		if err != nil {
			return expired, err
		}
		if !ok {
			continue
		}
		expired++
		s.publish(lock.Key{SubFieldID: b.SubFieldID, Date: b.BookingDate})
		s.logger.Info("pending booking expired", zap.Int64("booking_id", b.ID), zap.Int64("group_id", b.GroupID))
	}
	return expired, nil
}

// StartExpiryJob runs ExpirePendingBookings every interval until the scheduler is shut down.
func StartExpiryJob(svc *Service, interval time.Duration) (gocron.Scheduler, error) {
	scheduler, err := gocron.NewScheduler(gocron.WithLocation(svc.cfg.Location))
	if err != nil {
		return nil, fmt.Errorf("create scheduler: %w", err)
	}

	_, err = scheduler.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(func() {
			ctx, cancel := context.WithTimeout(context.Background(), interval)
			defer cancel()
			n, err := svc.ExpirePendingBookings(ctx)
			if err != nil {
				svc.logger.Error("expire pending bookings", zap.Error(err))
				return
			}
			if n > 0 {
				svc.logger.Info("expiry sweep finished", zap.Int("expired", n))
			}
		}),
		gocron.WithName("expire-pending-bookings"),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		_ = scheduler.Shutdown()
		return nil, fmt.Errorf("schedule expiry job: %w", err)
	}

	scheduler.Start()
	return scheduler, nil
}
