package payment

import "fieldbooking/internal/domain"

// WebhookResult is the outcome of a gateway callback. Replays of the same callback return the same value.
type WebhookResult struct {
	PaymentID int64                `json:"payment_id"`
	GroupID   int64                `json:"group_id"`
	TxnRef    string               `json:"txn_ref"`
	Success   bool                 `json:"success"`
	Status    domain.PaymentStatus `json:"status"`
}

type RefundCreateRequest struct {
	Reason string `json:"reason" validate:"max=500"`
}

type RefundReviewRequest struct {
	Note string `json:"note" validate:"max=500"`
}

// IPNResponse is the acknowledgement body VNPay expects from the IPN endpoint.
type IPNResponse struct {
	RspCode string `json:"RspCode"`
	Message string `json:"Message"`
}
