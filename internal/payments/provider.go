package payments

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// CheckoutParams describes a deposit checkout for a booked appointment series.
type CheckoutParams struct {
	BookingRef uuid.UUID
	ChildID    uuid.UUID
	AmountVND  int64
	OrderInfo  string
	ClientIP   string
	ReturnURL  string
	ExpiresAt  time.Time
}

// CheckoutResponse is a hosted payment link the parent is redirected to.
type CheckoutResponse struct {
	URL         string
	ProviderRef string
}

// Provider creates hosted payment links. Implementations: VNPay for
// production, the fake provider for development and demos.
type Provider interface {
	CreatePaymentLink(ctx context.Context, params CheckoutParams) (*CheckoutResponse, error)
}
