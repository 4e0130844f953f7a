package domain

import (
	"time"

	"gorm.io/gorm"
)

type DiscountType string

const (
	DiscountPercentage DiscountType = "percentage"
	DiscountFixed      DiscountType = "fixed"
)

type Promotion struct {
	ID                int64          `json:"id" gorm:"primaryKey"`
	Code              string         `json:"code" gorm:"type:varchar(50);not null;uniqueIndex"`
	Description       string         `json:"description,omitempty" gorm:"type:text"`
	FacilityID        *int64         `json:"facility_id,omitempty" gorm:"index"`
	DiscountType      DiscountType   `json:"discount_type" gorm:"type:varchar(20);not null"`
	DiscountValue     float64        `json:"discount_value" gorm:"not null"`
	MinBookingValue   int64          `json:"min_booking_value" gorm:"not null"`
	MaxDiscountAmount *int64         `json:"max_discount_amount,omitempty"`
	StartDate         time.Time      `json:"start_date" gorm:"not null"`
	EndDate           time.Time      `json:"end_date" gorm:"not null"`
	UsageLimit        *int           `json:"usage_limit,omitempty"`
	UsageCount        int            `json:"usage_count" gorm:"not null"`
	IsActive          bool           `json:"is_active" gorm:"not null"`
	CreatedAt         time.Time      `json:"created_at"`
	UpdatedAt         time.Time      `json:"updated_at"`
	DeletedAt         gorm.DeletedAt `json:"-" gorm:"index"`
}

// Global reports whether the promotion applies to every facility.
func (p Promotion) Global() bool { return p.FacilityID == nil }
