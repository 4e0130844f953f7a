package booking

import (
	"context"
	"strings"

	"fieldbooking/internal/domain"
	"fieldbooking/internal/lock"
	"fieldbooking/internal/pkg/validator"
	"fieldbooking/internal/repository"

	"go.uber.org/zap"
)

// Confirm moves a pending leg to confirmed. Only the facility owner or an admin may confirm.
func (s *Service) Confirm(ctx context.Context, actor domain.Actor, id int64) (*domain.Booking, error) {
	if err := actor.Require(domain.OpConfirmBooking); err != nil {
		return nil, err
	}

	var out *domain.Booking
	err := s.store.TransactionWithRetry(ctx, func(tx *repository.Store) error {
		b, err := tx.Bookings().GetByIDForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if err := s.authorizeLeg(ctx, tx, actor, b, false); err != nil {
			return err
		}
		if b.Status != domain.BookingPending {
			return transitionConflict("confirm", b.Status)
		}
		ok, err := tx.Bookings().TransitionStatus(ctx, id, []domain.BookingStatus{domain.BookingPending}, domain.BookingConfirmed, nil)
		if err != nil {
			return err
		}
		if !ok {
			return transitionConflict("confirm", b.Status)
		}
		b.Status = domain.BookingConfirmed
		out = b
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("booking confirmed", zap.Int64("booking_id", id), zap.Int64("actor_id", actor.ID))
	return out, nil
}

// Cancel cancels a leg that is not already cancelled and whose date has not passed.
// Payment status is left as is; money goes back through the refund flow.
func (s *Service) Cancel(ctx context.Context, actor domain.Actor, id int64, req CancelRequest) (*domain.Booking, error) {
	if err := actor.Require(domain.OpCancelBooking); err != nil {
		return nil, err
	}
	if err := validator.Struct(req); err != nil {
		return nil, err
	}

	var out *domain.Booking
	err := s.store.TransactionWithRetry(ctx, func(tx *repository.Store) error {
		b, err := tx.Bookings().GetByIDForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if err := s.authorizeLeg(ctx, tx, actor, b, true); err != nil {
			return err
		}
		if b.Status == domain.BookingCancelled {
			return alreadyCancelled()
		}
		if b.BookingDate < s.today() {
			return domain.ValidationError{
				Field: "booking_date",
				Msg:   "cannot cancel a booking whose date has passed",
				Err:   domain.ErrBookingDatePassed,
			}
		}

		now := s.now().UTC()
		actorID := actor.ID
		ok, err := tx.Bookings().TransitionStatus(ctx, id,
			[]domain.BookingStatus{domain.BookingPending, domain.BookingConfirmed},
			domain.BookingCancelled,
			map[string]interface{}{
				"cancelled_at":        now,
				"cancelled_by":        actorID,
				"cancellation_reason": req.Reason,
			})
		if err != nil {
			return err
		}
		if !ok {
			return alreadyCancelled()
		}
		b.Status = domain.BookingCancelled
		b.CancelledAt = &now
		b.CancelledBy = &actorID
		b.CancellationReason = req.Reason
		out = b
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.publish(lock.Key{SubFieldID: out.SubFieldID, Date: out.BookingDate})
	s.logger.Info("booking cancelled",
		zap.Int64("booking_id", id),
		zap.Int64("group_id", out.GroupID),
		zap.Int64("actor_id", actor.ID),
	)
	return out, nil
}

// UpdateStatus is the generic "set status" entry point. It only ever routes through Confirm or Cancel.
func (s *Service) UpdateStatus(ctx context.Context, actor domain.Actor, id int64, req UpdateStatusRequest) (*domain.Booking, error) {
	if err := actor.Require(domain.OpUpdateStatus); err != nil {
		return nil, err
	}
	switch domain.BookingStatus(strings.ToLower(strings.TrimSpace(req.Status))) {
	case domain.BookingConfirmed:
		return s.Confirm(ctx, actor, id)
	case domain.BookingCancelled:
		return s.Cancel(ctx, actor, id, CancelRequest{Reason: req.Reason})
	}
	return nil, invalid("status", "status can only be changed to confirmed or cancelled")
}
