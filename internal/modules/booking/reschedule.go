package booking

import (
	"context"

	"fieldbooking/internal/domain"
	"fieldbooking/internal/lock"
	"fieldbooking/internal/pkg/validator"
	"fieldbooking/internal/repository"

	"go.uber.org/zap"
)

// Reschedule moves a leg to a new date and interval on the same sub-field. The leg keeps its id,
// service lines and discount; its slots collapse into the single new slot.
func (s *Service) Reschedule(ctx context.Context, actor domain.Actor, id int64, req RescheduleRequest) (*domain.Booking, error) {
	if err := actor.Require(domain.OpReschedule); err != nil {
		return nil, err
	}
	if err := validator.Struct(req); err != nil {
		return nil, err
	}
	date, err := domain.ParseDate(req.Date, s.cfg.Location)
	if err != nil {
		return nil, invalid("date", "must be a YYYY-MM-DD date")
	}
	if req.Date < s.today() {
		return nil, domain.ValidationError{Field: "date", Msg: "booking date is in the past", Err: domain.ErrBookingDatePassed}
	}
	r, err := parseRange("slot", req.StartTime, req.EndTime)
	if err != nil {
		return nil, err
	}

	current, err := s.store.Bookings().GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	oldKey := lock.Key{SubFieldID: current.SubFieldID, Date: current.BookingDate}
	newKey := lock.Key{SubFieldID: current.SubFieldID, Date: req.Date}

	var out *domain.Booking
	err = s.inLockedTx(ctx, []lock.Key{newKey}, func(tx *repository.Store) error {
		b, err := tx.Bookings().GetByIDForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if b.CustomerID != actor.ID {
			return domain.ForbiddenError{Msg: "only the customer who booked may reschedule"}
		}
		if b.Status == domain.BookingCancelled {
			return alreadyCancelled()
		}

		sf, err := tx.Facilities().GetActiveSubField(ctx, b.SubFieldID)
		if err != nil {
			return err
		}
		if err := s.checkSlotWindow("slot", sf, req.Date, r); err != nil {
			return err
		}
		ok, err := s.checker.IsAvailable(ctx, tx.Bookings(), sf.ID, req.Date, r.start, r.end, b.ID)
		if err != nil {
			return err
		}
		if !ok {
			return slotConflict(sf.ID, req.Date, r.start, r.end)
		}

		rules, err := tx.PricingRules().ListForSubField(ctx, sf.ID)
		if err != nil {
			return err
		}
		price, _ := s.pricing.ComputePrice(sf, rules, date, r.start, r.end)

		slot, err := tx.Bookings().ReplaceSlots(ctx, b, req.Date, domain.BookingTimeSlot{
			StartTime: r.start,
			EndTime:   r.end,
			Price:     price,
		})
		if err != nil {
			return err
		}
		b.BookingDate = req.Date
		b.Slots = []domain.BookingTimeSlot{*slot}
		b.Recalculate()
		if err := tx.Bookings().UpdateLegTotals(ctx, b); err != nil {
			return err
		}
		if err := tx.Bookings().RecalculateGroup(ctx, b.GroupID); err != nil {
			return err
		}
		out = b
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.publish(oldKey, newKey)
	s.logger.Info("booking rescheduled",
		zap.Int64("booking_id", id),
		zap.Int64("group_id", out.GroupID),
		zap.String("date", req.Date),
		zap.Stringer("start", r.start),
		zap.Int64("total_price", out.TotalPrice),
	)
	return out, nil
}
