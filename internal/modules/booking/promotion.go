package booking

import (
	"math"
	"time"

	"fieldbooking/internal/domain"
)

const (
	reasonInactive      = "promotion is not active"
	reasonWrongFacility = "promotion does not apply to this facility"
	reasonOutsideWindow = "promotion is not valid at this time"
	reasonExhausted     = "promotion usage limit reached"
	reasonBelowMinimum  = "booking value is below the promotion minimum"
	reasonApplied       = "promotion applied"
	reasonNotFound      = "promotion code not found"
)

type PromotionEvaluator struct{}

// Evaluate computes the discount promo grants on subtotal for a leg of facilityID at now.
// It never mutates promo; consuming a use is the caller's job.
func (PromotionEvaluator) Evaluate(promo *domain.Promotion, facilityID int64, subtotal int64, now time.Time) (int64, bool, string) {
	switch {
	case promo == nil || !promo.IsActive:
		return 0, false, reasonInactive
	case promo.FacilityID != nil && *promo.FacilityID != facilityID:
		return 0, false, reasonWrongFacility
	case now.Before(promo.StartDate) || now.After(promo.EndDate):
		return 0, false, reasonOutsideWindow
	case promo.UsageLimit != nil && promo.UsageCount >= *promo.UsageLimit:
		return 0, false, reasonExhausted
	case subtotal < promo.MinBookingValue:
		return 0, false, reasonBelowMinimum
	}

	var discount int64
	switch promo.DiscountType {
	case domain.DiscountPercentage:
		discount = int64(math.Floor(float64(subtotal) * promo.DiscountValue / 100))
	case domain.DiscountFixed:
		discount = int64(promo.DiscountValue)
	}

	if discount < 0 {
		discount = 0
	}
	if promo.MaxDiscountAmount != nil && discount > *promo.MaxDiscountAmount {
		discount = *promo.MaxDiscountAmount
	}
	if discount > subtotal {
		discount = subtotal
	}
	if discount == 0 {
		return 0, false, reasonBelowMinimum
	}
	return discount, true, reasonApplied
}
