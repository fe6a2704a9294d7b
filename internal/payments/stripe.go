package payments

import (
	"context"

	"github.com/shopspring/decimal"
	stripe "github.com/stripe/stripe-go/v74"
	"github.com/stripe/stripe-go/v74/paymentintent"

	"github.com/example/food-ordering/internal/models"
)

// StripeClient is a thin wrapper around stripe-go for PaymentIntent hold/capture/cancel flows.
type StripeClient struct{}

// NewStripeClient sets the global stripe key.
func NewStripeClient(apiKey string) *StripeClient {
	stripe.Key = apiKey
	return &StripeClient{}
}

// Authorize creates a PaymentIntent with capture_method=manual to hold funds
// until the order is delivered.
func (s *StripeClient) Authorize(ctx context.Context, amount decimal.Decimal, currency string, method models.PaymentMethod, orderID string) (Result, error) {
	params := &stripe.PaymentIntentParams{
		Amount:   stripe.Int64(ToMinorUnits(amount)),
		Currency: stripe.String(currency),
	}
	params.Context = ctx
	params.CaptureMethod = stripe.String(string(stripe.PaymentIntentCaptureMethodManual))
	params.AddMetadata("order_id", orderID)
	params.AddMetadata("payment_method", string(method))
	pi, err := paymentintent.New(params)
	if err != nil {
		return Result{Status: models.PaymentFailed}, err
	}
	return Result{Status: MapIntentStatus(pi.Status), Reference: pi.ID}, nil
}

// Capture finalizes a previously-held PaymentIntent.
func (s *StripeClient) Capture(ctx context.Context, paymentIntentID string) error {
	params := &stripe.PaymentIntentCaptureParams{}
	params.Context = ctx
	_, err := paymentintent.Capture(paymentIntentID, params)
	return err
}

// Cancel releases the hold on a PaymentIntent.
func (s *StripeClient) Cancel(ctx context.Context, paymentIntentID string) error {
	params := &stripe.PaymentIntentCancelParams{}
	params.Context = ctx
	_, err := paymentintent.Cancel(paymentIntentID, params)
	return err
}

func MapIntentStatus(s stripe.PaymentIntentStatus) models.PaymentStatus {
	switch s {
	case stripe.PaymentIntentStatusSucceeded:
		return models.PaymentCompleted
	case stripe.PaymentIntentStatusCanceled:
		return models.PaymentFailed
	default:
		return models.PaymentPending
	}
}
