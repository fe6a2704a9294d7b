package payments

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/example/food-ordering/internal/models"
)

// Result is the outcome of an authorization. Reference is the provider's
// opaque id for later capture or cancel; it may be empty.
type Result struct {
	Status    models.PaymentStatus
	Reference string
}

type Provider interface {
	Authorize(ctx context.Context, amount decimal.Decimal, currency string, method models.PaymentMethod, orderID string) (Result, error)
	Capture(ctx context.Context, reference string) error
	Cancel(ctx context.Context, reference string) error
}

// Offline accepts everything and settles nothing: payment stays pending
// until collected outside the system.
type Offline struct{}

func (Offline) Authorize(context.Context, decimal.Decimal, string, models.PaymentMethod, string) (Result, error) {
	return Result{Status: models.PaymentPending}, nil
}

func (Offline) Capture(context.Context, string) error { return nil }
func (Offline) Cancel(context.Context, string) error  { return nil }

// ToMinorUnits converts a decimal amount to cents.
func ToMinorUnits(amount decimal.Decimal) int64 {
	return amount.Shift(2).Round(0).IntPart()
}
