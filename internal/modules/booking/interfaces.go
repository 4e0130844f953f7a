package booking

import (
	"context"

	"fieldbooking/internal/domain"
)

// PaymentGateway creates the checkout link for a booking group.
type PaymentGateway interface {
	CreatePayment(ctx context.Context, req domain.PaymentRequest) (*domain.PaymentLink, error)
}

// AvailabilityPublisher is told after commit that the slots of (subFieldID, date) changed.
type AvailabilityPublisher interface {
	Publish(subFieldID int64, date string)
}

type noopPublisher struct{}

func (noopPublisher) Publish(int64, string) {}
