package domain

import (
	"time"

	"gorm.io/gorm"
)

type BookingStatus string

const (
	BookingPending   BookingStatus = "pending"
	BookingConfirmed BookingStatus = "confirmed"
	BookingCancelled BookingStatus = "cancelled"
)

type PaymentStatus string

const (
	PaymentPending  PaymentStatus = "pending"
	PaymentPaid     PaymentStatus = "paid"
	PaymentFailed   PaymentStatus = "failed"
	PaymentRefunded PaymentStatus = "refunded"
)

// BookingGroup is the customer-facing checkout: one payment covering one or more legs.
// It carries no lifecycle status of its own.
type BookingGroup struct {
	ID            int64          `json:"id" gorm:"primaryKey"`
	CustomerID    int64          `json:"customer_id" gorm:"not null;index"`
	Subtotal      int64          `json:"subtotal" gorm:"not null"`
	Discount      int64          `json:"discount" gorm:"not null"`
	TotalPrice    int64          `json:"total_price" gorm:"not null"`
	PromotionID   *int64         `json:"promotion_id,omitempty"`
	PaymentStatus PaymentStatus  `json:"payment_status" gorm:"type:varchar(20);not null"`
	Legs          []Booking      `json:"legs,omitempty" gorm:"foreignKey:GroupID"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
	DeletedAt     gorm.DeletedAt `json:"-" gorm:"index"`
}

// Booking is one leg of a group: a single sub-field on a single date.
type Booking struct {
	ID                 int64                `json:"id" gorm:"primaryKey"`
	GroupID            int64                `json:"group_id" gorm:"not null;index"`
	CustomerID         int64                `json:"customer_id" gorm:"not null;index"`
	SubFieldID         int64                `json:"sub_field_id" gorm:"not null;index:idx_bookings_sub_field_date"`
	FacilityID         int64                `json:"facility_id" gorm:"not null;index"`
	BookingDate        string               `json:"booking_date" gorm:"type:varchar(10);not null;index:idx_bookings_sub_field_date"`
	Subtotal           int64                `json:"subtotal" gorm:"not null"`
	Discount           int64                `json:"discount" gorm:"not null"`
	TotalPrice         int64                `json:"total_price" gorm:"not null"`
	Status             BookingStatus        `json:"status" gorm:"type:varchar(20);not null;index"`
	PaymentStatus      PaymentStatus        `json:"payment_status" gorm:"type:varchar(20);not null"`
	PromotionID        *int64               `json:"promotion_id,omitempty"`
	Notes              string               `json:"notes,omitempty" gorm:"type:text"`
	CancelledAt        *time.Time           `json:"cancelled_at,omitempty"`
	CancelledBy        *int64               `json:"cancelled_by,omitempty"`
	CancellationReason string               `json:"cancellation_reason,omitempty" gorm:"type:text"`
	Slots              []BookingTimeSlot    `json:"slots" gorm:"foreignKey:BookingID"`
	Services           []BookingServiceLine `json:"services" gorm:"foreignKey:BookingID"`
	CreatedAt          time.Time            `json:"created_at"`
	UpdatedAt          time.Time            `json:"updated_at"`
	DeletedAt          gorm.DeletedAt       `json:"-" gorm:"index"`
}

func (b Booking) SlotTotal() int64 {
	var sum int64
	for _, s := range b.Slots {
		sum += s.Price
	}
	return sum
}

func (b Booking) ServiceTotal() int64 {
	var sum int64
	for _, l := range b.Services {
		sum += l.LinePrice
	}
	return sum
}

// Recalculate derives subtotal and total from slots and service lines.
// The discount is clamped so the total never goes negative.
func (b *Booking) Recalculate() {
	b.Subtotal = b.SlotTotal() + b.ServiceTotal()
	if b.Discount < 0 {
		b.Discount = 0
	}
	if b.Discount > b.Subtotal {
		b.Discount = b.Subtotal
	}
	b.TotalPrice = b.Subtotal - b.Discount
}

func (b Booking) IsActive() bool { return b.Status != BookingCancelled }

type BookingTimeSlot struct {
	ID          int64     `json:"id" gorm:"primaryKey"`
	BookingID   int64     `json:"booking_id" gorm:"not null;index"`
	SubFieldID  int64     `json:"sub_field_id" gorm:"not null;index:idx_slots_sub_field_date"`
	BookingDate string    `json:"booking_date" gorm:"type:varchar(10);not null;index:idx_slots_sub_field_date"`
	StartTime   Clock     `json:"start_time" gorm:"type:integer;not null"`
	EndTime     Clock     `json:"end_time" gorm:"type:integer;not null"`
	Price       int64     `json:"price" gorm:"not null"`
	CreatedAt   time.Time `json:"created_at"`
}

func (s BookingTimeSlot) Overlaps(start, end Clock) bool {
	return Overlaps(s.StartTime, s.EndTime, start, end)
}

type BookingServiceLine struct {
	ID        int64     `json:"id" gorm:"primaryKey"`
	BookingID int64     `json:"booking_id" gorm:"not null;index"`
	ServiceID int64     `json:"service_id" gorm:"not null"`
	Name      string    `json:"name" gorm:"type:varchar(255)"`
	Quantity  int       `json:"quantity" gorm:"not null"`
	UnitPrice int64     `json:"unit_price" gorm:"not null"`
	LinePrice int64     `json:"line_price" gorm:"not null"`
	CreatedAt time.Time `json:"created_at"`
}
