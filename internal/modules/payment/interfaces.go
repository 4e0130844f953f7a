package payment

import (
	"context"
	"net/url"

	"fieldbooking/internal/domain"
)

// Gateway is a hosted-checkout payment provider.
type Gateway interface {
	CreatePayment(ctx context.Context, req domain.PaymentRequest) (*domain.PaymentLink, error)
	// VerifyCallback returns domain.ErrInvalidSignature when the query was not signed by the provider.
	VerifyCallback(query url.Values) (*domain.GatewayCallback, error)
}
