package domain

import "time"

type RefundStatus string

const (
	RefundPending  RefundStatus = "pending"
	RefundApproved RefundStatus = "approved"
	RefundRejected RefundStatus = "rejected"
)

type RefundRequest struct {
	ID         int64        `json:"id" gorm:"primaryKey"`
	BookingID  int64        `json:"booking_id" gorm:"not null;index"`
	CustomerID int64        `json:"customer_id" gorm:"not null;index"`
	Amount     int64        `json:"amount" gorm:"not null"`
	Reason     string       `json:"reason,omitempty" gorm:"type:text"`
	Status     RefundStatus `json:"status" gorm:"type:varchar(20);not null"`
	ReviewedBy *int64       `json:"reviewed_by,omitempty"`
	ReviewedAt *time.Time   `json:"reviewed_at,omitempty"`
	ReviewNote string       `json:"review_note,omitempty" gorm:"type:text"`
	CreatedAt  time.Time    `json:"created_at"`
	UpdatedAt  time.Time    `json:"updated_at"`
}
