package payment

import (
	"context"

	"fieldbooking/internal/domain"
	"fieldbooking/internal/pkg/validator"
	"fieldbooking/internal/repository"

	"go.uber.org/zap"
)

// RequestRefund files a refund request for a paid leg of the caller. One open request per leg.
func (s *Service) RequestRefund(ctx context.Context, actor domain.Actor, bookingID int64, req RefundCreateRequest) (*domain.RefundRequest, error) {
	if err := actor.Require(domain.OpRequestRefund); err != nil {
		return nil, err
	}
	if err := validator.Struct(req); err != nil {
		return nil, err
	}

	var out *domain.RefundRequest
	err := s.store.TransactionWithRetry(ctx, func(tx *repository.Store) error {
		b, err := tx.Bookings().GetByIDForUpdate(ctx, bookingID)
		if err != nil {
			return err
		}
		if b.CustomerID != actor.ID {
			return domain.ForbiddenError{Msg: "you do not have access to this booking"}
		}
		if b.PaymentStatus != domain.PaymentPaid {
			return domain.ConflictError{Resource: "booking", Msg: "only paid bookings can be refunded", Err: domain.ErrInvalidTransition}
		}
		open, err := tx.Refunds().HasOpen(ctx, b.ID)
		if err != nil {
			return err
		}
		if open {
			return domain.ConflictError{Resource: "refund request", Msg: "a refund request for this booking is already pending"}
		}

		r := &domain.RefundRequest{
			BookingID:  b.ID,
			CustomerID: actor.ID,
			Amount:     b.TotalPrice,
			Reason:     req.Reason,
			Status:     domain.RefundPending,
		}
		if err := tx.Refunds().Create(ctx, r); err != nil {
			return err
		}
		out = r
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("refund requested",
		zap.Int64("refund_id", out.ID),
		zap.Int64("booking_id", bookingID),
		zap.Int64("amount", out.Amount),
	)
	return out, nil
}

// ReviewRefund approves or rejects a pending request. Approval marks the leg refunded, and the group and
// its payments once every leg of the group is refunded. Money movement happens outside this system.
func (s *Service) ReviewRefund(ctx context.Context, actor domain.Actor, refundID int64, approve bool, req RefundReviewRequest) (*domain.RefundRequest, error) {
	if err := actor.Require(domain.OpReviewRefund); err != nil {
		return nil, err
	}
	if err := validator.Struct(req); err != nil {
		return nil, err
	}

	status := domain.RefundRejected
	if approve {
		status = domain.RefundApproved
	}

	var out *domain.RefundRequest
	err := s.store.TransactionWithRetry(ctx, func(tx *repository.Store) error {
		r, err := tx.Refunds().GetByIDForUpdate(ctx, refundID)
		if err != nil {
			return err
		}
		b, err := tx.Bookings().GetByIDForUpdate(ctx, r.BookingID)
		if err != nil {
			return err
		}
		if !actor.IsAdmin() {
			ownerID, err := tx.Facilities().OwnerOf(ctx, b.FacilityID)
			if err != nil {
				return err
			}
			if ownerID != actor.ID {
				return domain.ForbiddenError{Msg: "you do not have access to this refund request"}
			}
		}
		if r.Status != domain.RefundPending {
			return domain.ConflictError{Resource: "refund request", Msg: "refund request already " + string(r.Status), Err: domain.ErrInvalidTransition}
		}

		now := s.now().UTC()
		ok, err := tx.Refunds().Review(ctx, r.ID, status, actor.ID, req.Note, now)
		if err != nil {
			return err
		}
		if !ok {
			return domain.ConflictError{Resource: "refund request", Msg: "refund request is no longer pending", Err: domain.ErrInvalidTransition}
		}
		reviewer := actor.ID
		r.Status = status
		r.ReviewedBy = &reviewer
		r.ReviewedAt = &now
		r.ReviewNote = req.Note

		if approve {
			if err := s.markLegRefunded(ctx, tx, b); err != nil {
				return err
			}
		}
		out = r
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("refund reviewed",
		zap.Int64("refund_id", refundID),
		zap.Int64("booking_id", out.BookingID),
		zap.String("status", string(out.Status)),
		zap.Int64("actor_id", actor.ID),
	)
	return out, nil
}

func (s *Service) markLegRefunded(ctx context.Context, tx *repository.Store, b *domain.Booking) error {
	if err := tx.Bookings().SetLegPaymentStatus(ctx, b.ID, domain.PaymentRefunded); err != nil {
		return err
	}
	legs, err := tx.Bookings().ListGroupLegs(ctx, b.GroupID)
	if err != nil {
		return err
	}
	for _, leg := range legs {
		if leg.PaymentStatus != domain.PaymentRefunded {
			return nil
		}
	}
	if err := tx.Bookings().SetGroupPaymentStatus(ctx, b.GroupID, domain.PaymentRefunded); err != nil {
		return err
	}
	return tx.Payments().SetStatusForGroup(ctx, b.GroupID, domain.PaymentRefunded)
}
