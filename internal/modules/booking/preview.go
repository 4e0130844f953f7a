package booking

import (
	"context"
	"strings"

	"fieldbooking/internal/domain"
)

// PreviewBooking prices req exactly as CreateBooking would, without writing anything.
// Conflicts are reported per slot instead of failing the call.
func (s *Service) PreviewBooking(ctx context.Context, actor domain.Actor, req CreateBookingRequest) (*PreviewResult, error) {
	if err := actor.Require(domain.OpPreviewBooking); err != nil {
		return nil, err
	}
	plans, err := s.plan(req)
	if err != nil {
		return nil, err
	}

	res := &PreviewResult{Available: true}

	var promo *domain.Promotion
	if code := strings.TrimSpace(req.PromotionCode); code != "" {
		p, err := s.store.Promotions().GetByCode(ctx, code)
		switch {
		case domain.IsNotFound(err):
			res.PromotionMessage = reasonNotFound
		case err != nil:
			return nil, err
		default:
			local := *p
			promo = &local
		}
	}

	for _, p := range plans {
		b, quotes, err := s.buildLeg(ctx, s.store, actor, p)
		if err != nil {
			return nil, err
		}
		for _, q := range quotes {
			if !q.Available {
				res.Available = false
			}
		}

		if promo != nil {
			discount, ok, reason := s.promos.Evaluate(promo, b.FacilityID, b.Subtotal, s.now())
			if ok {
				promo.UsageCount++
				b.Discount = discount
				b.Recalculate()
				res.PromotionApplied = true
				res.PromotionMessage = reason
			} else if !res.PromotionApplied {
				res.PromotionMessage = reason
			}
		}

		res.Subtotal += b.Subtotal
		res.Discount += b.Discount
		res.TotalPrice += b.TotalPrice
		leg, err := toLegResult(b, quotes)
		if err != nil {
			return nil, err
		}
		res.Legs = append(res.Legs, leg)
	}
	return res, nil
}
