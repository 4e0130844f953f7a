package domain

import "time"

// Payment links a booking group to one gateway transaction.
type Payment struct {
	ID           int64         `json:"id" gorm:"primaryKey"`
	GroupID      int64         `json:"group_id" gorm:"not null;index"`
	Amount       int64         `json:"amount" gorm:"not null"`
	Method       string        `json:"method" gorm:"type:varchar(30);not null"`
	Status       PaymentStatus `json:"status" gorm:"type:varchar(20);not null"`
	TxnRef       string        `json:"txn_ref" gorm:"type:varchar(64);not null;uniqueIndex"`
	GatewayTxnID string        `json:"gateway_txn_id,omitempty" gorm:"type:varchar(64)"`
	PaymentURL   string        `json:"payment_url,omitempty" gorm:"type:text"`
	PaidAt       *time.Time    `json:"paid_at,omitempty"`
	CreatedAt    time.Time     `json:"created_at"`
	UpdatedAt    time.Time     `json:"updated_at"`
}

// PaymentEvent records one processed gateway callback. (PaymentID, GatewayTxnID) is the dedup key.
type PaymentEvent struct {
	ID           int64         `json:"id" gorm:"primaryKey"`
	PaymentID    int64         `json:"payment_id" gorm:"not null;uniqueIndex:idx_payment_events_dedup"`
	GatewayTxnID string        `json:"gateway_txn_id" gorm:"type:varchar(64);not null;uniqueIndex:idx_payment_events_dedup"`
	Success      bool          `json:"success" gorm:"not null"`
	ResultStatus PaymentStatus `json:"result_status" gorm:"type:varchar(20);not null"`
	Amount       int64         `json:"amount" gorm:"not null"`
	ResponseCode string        `json:"response_code" gorm:"type:varchar(10)"`
	RawQuery     string        `json:"-" gorm:"type:text"`
	CreatedAt    time.Time     `json:"created_at"`
}

// PaymentRequest is what the booking flow asks a gateway to charge.
type PaymentRequest struct {
	GroupID   int64
	Amount    int64
	Method    string
	TxnRef    string
	OrderInfo string
	ClientIP  string
}

type PaymentLink struct {
	Reference  string
	PaymentURL string
}

// GatewayCallback is a verified gateway notification.
type GatewayCallback struct {
	Success      bool
	GatewayTxnID string
	TxnRef       string
	Amount       int64
	ResponseCode string
	PaidAt       *time.Time
	RawQuery     string
}
