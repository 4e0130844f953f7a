package booking

import (
	"context"
	"fmt"
	"strings"
	"time"

	"fieldbooking/internal/domain"
	"fieldbooking/internal/lock"
	"fieldbooking/internal/pkg/validator"
	"fieldbooking/internal/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type clockRange struct {
	start domain.Clock
	end   domain.Clock
}

// legPlan is a leg request that passed every check that needs no database access.
type legPlan struct {
	idx   int
	req   LegRequest
	date  time.Time
	slots []clockRange
}

func (p legPlan) key() lock.Key {
	return lock.Key{SubFieldID: p.req.SubFieldID, Date: p.req.Date}
}

func (p legPlan) field(format string, args ...any) string {
	return fmt.Sprintf("bookings[%d].", p.idx) + fmt.Sprintf(format, args...)
}

// plan validates cardinality, formats, alignment and in-request overlaps before anything is written.
func (s *Service) plan(req CreateBookingRequest) ([]legPlan, error) {
	switch {
	case len(req.Legs) == 0:
		return nil, invalid("bookings", "at least one booking is required")
	case len(req.Legs) > MaxLegsPerRequest:
		return nil, invalid("bookings", "max 5 bookings per request")
	}
	for i, leg := range req.Legs {
		switch {
		case len(leg.Slots) == 0:
			return nil, invalid(fmt.Sprintf("bookings[%d].slots", i), "at least one slot is required")
		case len(leg.Slots) > MaxSlotsPerLeg:
			return nil, invalid(fmt.Sprintf("bookings[%d].slots", i), "max 10 slots per booking")
		case len(leg.Services) > MaxServicesPerLeg:
			return nil, invalid(fmt.Sprintf("bookings[%d].services", i), "max 20 services per booking")
		}
	}
	if err := validator.Struct(req); err != nil {
		return nil, err
	}

	today := s.today()
	reserved := make(map[lock.Key][]clockRange)
	plans := make([]legPlan, 0, len(req.Legs))
	for i, leg := range req.Legs {
		p := legPlan{idx: i, req: leg}
		date, err := domain.ParseDate(leg.Date, s.cfg.Location)
		if err != nil {
			return nil, invalid(p.field("date"), "must be a YYYY-MM-DD date")
		}
		if leg.Date < today {
			return nil, domain.ValidationError{Field: p.field("date"), Msg: "booking date is in the past", Err: domain.ErrBookingDatePassed}
		}
		p.date = date

		for j, sr := range leg.Slots {
			r, err := parseRange(p.field("slots[%d]", j), sr.StartTime, sr.EndTime)
			if err != nil {
				return nil, err
			}
			for _, other := range reserved[p.key()] {
				if domain.Overlaps(r.start, r.end, other.start, other.end) {
					return nil, invalid(p.field("slots[%d]", j), "slot overlaps another slot in this request")
				}
			}
			reserved[p.key()] = append(reserved[p.key()], r)
			p.slots = append(p.slots, r)
		}
		plans = append(plans, p)
	}
	return plans, nil
}

func parseRange(field, startStr, endStr string) (clockRange, error) {
	start, err := domain.ParseClock(startStr)
	if err != nil {
		return clockRange{}, invalid(field+".start_time", err.Error())
	}
	end, err := domain.ParseClock(endStr)
	if err != nil {
		return clockRange{}, invalid(field+".end_time", err.Error())
	}
	if start >= end {
		return clockRange{}, invalid(field, "start time must be before end time")
	}
	if !start.Aligned() || !end.Aligned() {
		return clockRange{}, invalid(field, "times must be aligned to 30-minute boundaries")
	}
	return clockRange{start: start, end: end}, nil
}

// checkSlotWindow validates a slot against the sub-field's hours and the current time of day.
func (s *Service) checkSlotWindow(field string, sf *domain.SubField, date string, r clockRange) error {
	if !sf.Contains(r.start, r.end) {
		return invalid(field, fmt.Sprintf("slot %s-%s is outside operating hours %s-%s", r.start, r.end, sf.OpenTime, sf.CloseTime))
	}
	now := s.localNow()
	if date == now.Format(domain.DateLayout) && r.start <= domain.ClockOf(now) {
		return invalid(field, "slot start time has already passed")
	}
	return nil
}

// buildLeg resolves the sub-field and services of p and prices every slot. Availability is
// reported per slot; callers decide whether an unavailable slot is an error.
func (s *Service) buildLeg(ctx context.Context, st *repository.Store, actor domain.Actor, p legPlan) (*domain.Booking, []SlotQuote, error) {
	sf, err := st.Facilities().GetActiveSubField(ctx, p.req.SubFieldID)
	if err != nil {
		return nil, nil, err
	}
	rules, err := st.PricingRules().ListForSubField(ctx, sf.ID)
	if err != nil {
		return nil, nil, err
	}

	b := &domain.Booking{
		CustomerID:    actor.ID,
		SubFieldID:    sf.ID,
		FacilityID:    sf.FacilityID,
		BookingDate:   p.req.Date,
		Status:        domain.BookingPending,
		PaymentStatus: domain.PaymentPending,
		Notes:         p.req.Notes,
	}

	quotes := make([]SlotQuote, 0, len(p.slots))
	for j, r := range p.slots {
		if err := s.checkSlotWindow(p.field("slots[%d]", j), sf, p.req.Date, r); err != nil {
			return nil, nil, err
		}
		ok, err := s.checker.IsAvailable(ctx, st.Bookings(), sf.ID, p.req.Date, r.start, r.end, 0)
		if err != nil {
			return nil, nil, err
		}
		price, units := s.pricing.ComputePrice(sf, rules, p.date, r.start, r.end)
		b.Slots = append(b.Slots, domain.BookingTimeSlot{
			SubFieldID:  sf.ID,
			BookingDate: p.req.Date,
			StartTime:   r.start,
			EndTime:     r.end,
			Price:       price,
		})
		quotes = append(quotes, SlotQuote{StartTime: r.start, EndTime: r.end, Price: price, Available: ok, Units: units})
	}

	for j, sr := range p.req.Services {
		svc, err := st.Facilities().GetActiveService(ctx, sr.ServiceID)
		if err != nil {
			return nil, nil, err
		}
		if svc.FacilityID != sf.FacilityID {
			return nil, nil, invalid(p.field("services[%d].service_id", j), "service does not belong to this facility")
		}
		b.Services = append(b.Services, domain.BookingServiceLine{
			ServiceID: svc.ID,
			Name:      svc.Name,
			Quantity:  sr.Quantity,
			UnitPrice: svc.Price,
			LinePrice: svc.Price * int64(sr.Quantity),
		})
	}

	b.Recalculate()
	return b, quotes, nil
}

// applyPromotion attributes promo's discount to b and consumes one use inside tx.
func (s *Service) applyPromotion(ctx context.Context, tx *repository.Store, promo *domain.Promotion, b *domain.Booking) (bool, string, error) {
	discount, ok, reason := s.promos.Evaluate(promo, b.FacilityID, b.Subtotal, s.now())
	if !ok {
		return false, reason, nil
	}
	if err := tx.Promotions().IncrementUsage(ctx, promo.ID); err != nil {
		return false, "", err
	}
	promo.UsageCount++
	id := promo.ID
	b.Discount = discount
	b.PromotionID = &id
	b.Recalculate()
	return true, reason, nil
}

// CreateBooking books every leg of req atomically: group, legs, slots, service lines, promotion
// usage and the payment row either all commit or none do.
func (s *Service) CreateBooking(ctx context.Context, actor domain.Actor, req CreateBookingRequest) (*CreateBookingResult, error) {
	if err := actor.Require(domain.OpCreateBooking); err != nil {
		return nil, err
	}
	return s.create(ctx, actor, req)
}

// CreateSimpleBooking books one slot on one sub-field. Promotions are not accepted here.
func (s *Service) CreateSimpleBooking(ctx context.Context, actor domain.Actor, req CreateSimpleBookingRequest) (*CreateBookingResult, error) {
	if err := actor.Require(domain.OpCreateBooking); err != nil {
		return nil, err
	}
	return s.create(ctx, actor, CreateBookingRequest{
		Legs: []LegRequest{{
			SubFieldID: req.SubFieldID,
			Date:       req.Date,
			Slots:      []SlotRequest{{StartTime: req.StartTime, EndTime: req.EndTime}},
			Services:   req.Services,
			Notes:      req.Notes,
		}},
		PaymentMethod: req.PaymentMethod,
		ClientIP:      req.ClientIP,
	})
}

func (s *Service) create(ctx context.Context, actor domain.Actor, req CreateBookingRequest) (*CreateBookingResult, error) {
	plans, err := s.plan(req)
	if err != nil {
		return nil, err
	}
	keys := make([]lock.Key, 0, len(plans))
	for _, p := range plans {
		keys = append(keys, p.key())
	}

	var result *CreateBookingResult
	err = s.inLockedTx(ctx, keys, func(tx *repository.Store) error {
		group := &domain.BookingGroup{CustomerID: actor.ID, PaymentStatus: domain.PaymentPending}
		if err := tx.Bookings().CreateGroup(ctx, group); err != nil {
			return err
		}

		var promo *domain.Promotion
		if code := strings.TrimSpace(req.PromotionCode); code != "" {
			p, err := tx.Promotions().GetByCode(ctx, code)
			if err != nil {
				return err
			}
			promo = p
		}

		res := &CreateBookingResult{GroupID: group.ID, PaymentStatus: domain.PaymentPending}
		promoApplied := false
		for _, p := range plans {
			b, quotes, err := s.buildLeg(ctx, tx, actor, p)
			if err != nil {
				return err
			}
			for _, q := range quotes {
				if !q.Available {
					return slotConflict(b.SubFieldID, b.BookingDate, q.StartTime, q.EndTime)
				}
			}

			if promo != nil {
				applied, reason, err := s.applyPromotion(ctx, tx, promo, b)
				if err != nil {
					return err
				}
				if applied {
					promoApplied = true
					res.PromotionMessage = reason
				} else if !promoApplied {
					res.PromotionMessage = reason
				}
			}

			b.GroupID = group.ID
			if err := tx.Bookings().CreateLeg(ctx, b); err != nil {
				return err
			}

			group.Subtotal += b.Subtotal
			group.Discount += b.Discount
			group.TotalPrice += b.TotalPrice
			leg, err := toLegResult(b, quotes)
			if err != nil {
				return err
			}
			res.Legs = append(res.Legs, leg)
		}

		if promoApplied {
			id := promo.ID
			group.PromotionID = &id
		}
		if err := tx.Bookings().UpdateGroupTotals(ctx, group); err != nil {
			return err
		}

		if group.TotalPrice > 0 {
			url, err := s.requestPayment(ctx, tx, group, req)
			if err != nil {
				return err
			}
			res.PaymentURL = url
		}

		res.Subtotal = group.Subtotal
		res.Discount = group.Discount
		res.TotalPrice = group.TotalPrice
		result = res
		return nil
	})
	if err != nil {
		s.logger.Warn("create booking failed",
			zap.Int64("customer_id", actor.ID),
			zap.Int("legs", len(req.Legs)),
			zap.Error(err),
		)
		return nil, err
	}

	s.publish(keys...)
	s.logger.Info("booking group created",
		zap.Int64("group_id", result.GroupID),
		zap.Int64("customer_id", actor.ID),
		zap.Int("legs", len(result.Legs)),
		zap.Int64("total_price", result.TotalPrice),
	)
	return result, nil
}

// requestPayment asks the gateway for a checkout link, bounded by PaymentTimeout, and stores the payment row.
func (s *Service) requestPayment(ctx context.Context, tx *repository.Store, group *domain.BookingGroup, req CreateBookingRequest) (string, error) {
	if s.gateway == nil {
		return "", domain.InternalError{Msg: "payment gateway is not configured"}
	}
	method := req.PaymentMethod
	if method == "" {
		method = s.cfg.PaymentMethod
	}
	txnRef := fmt.Sprintf("%d%s", group.ID, strings.ReplaceAll(uuid.NewString(), "-", "")[:12])

	pctx, cancel := context.WithTimeout(ctx, s.cfg.PaymentTimeout)
	defer cancel()
	link, err := s.gateway.CreatePayment(pctx, domain.PaymentRequest{
		GroupID:   group.ID,
		Amount:    group.TotalPrice,
		Method:    method,
		TxnRef:    txnRef,
		OrderInfo: fmt.Sprintf("Thanh toan dat san %d", group.ID),
		ClientIP:  req.ClientIP,
	})
	if err != nil {
		return "", domain.InternalError{Msg: "payment gateway unavailable", Err: err}
	}
	if link.Reference != "" {
		txnRef = link.Reference
	}

	payment := &domain.Payment{
		GroupID:    group.ID,
		Amount:     group.TotalPrice,
		Method:     method,
		Status:     domain.PaymentPending,
		TxnRef:     txnRef,
		PaymentURL: link.PaymentURL,
	}
	if err := tx.Payments().Create(ctx, payment); err != nil {
		return "", err
	}
	return link.PaymentURL, nil
}
