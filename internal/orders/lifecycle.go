package orders

import (
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/example/food-ordering/internal/models"
)

var (
	ErrEmptyCart         = errors.New("cart is empty")
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrForbidden         = errors.New("not allowed to act on this order")
)

// ValidationError lists every problem found with a checkout request.
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	return "invalid order: " + strings.Join(e.Problems, "; ")
}

func (e *ValidationError) add(msg string) { e.Problems = append(e.Problems, msg) }

func (e *ValidationError) orNil() error {
	if len(e.Problems) == 0 {
		return nil
	}
	return e
}

// Pricing holds the charges applied on top of the cart subtotal.
type Pricing struct {
	DefaultDeliveryFee decimal.Decimal
	TaxRate            decimal.Decimal
}

func DefaultPricing() Pricing {
	return Pricing{
		DefaultDeliveryFee: decimal.RequireFromString("2.99"),
		TaxRate:            decimal.RequireFromString("0.08"),
	}
}

type Totals struct {
	Subtotal    decimal.Decimal `json:"subtotal"`
	DeliveryFee decimal.Decimal `json:"deliveryFee"`
	Tax         decimal.Decimal `json:"tax"`
	Tip         decimal.Decimal `json:"tip"`
	Total       decimal.Decimal `json:"totalAmount"`
}

// Quote prices a set of cart lines. restaurantFee of zero selects the default
// fee; an empty cart carries no delivery fee. Tax and total are rounded to cents,
// the total from the unrounded tax.
func (p Pricing) Quote(items []models.CartItem, restaurantFee, tip decimal.Decimal) Totals {
	subtotal := decimal.Zero
	for _, it := range items {
		subtotal = subtotal.Add(it.LineTotal())
	}
	fee := decimal.Zero
	if len(items) > 0 {
		fee = p.DefaultDeliveryFee
		if restaurantFee.IsPositive() {
			fee = restaurantFee
		}
	}
	tax := subtotal.Mul(p.TaxRate)
	return Totals{
		Subtotal:    subtotal,
		DeliveryFee: fee,
		Tax:         tax.Round(2),
		Tip:         tip,
		Total:       subtotal.Add(fee).Add(tax).Add(tip).Round(2),
	}
}

// Input is everything needed to turn a finalized cart into an order.
type Input struct {
	UserID          string
	RestaurantID    string
	Items           []models.CartItem
	DeliveryAddress models.Address
	PaymentMethod   models.PaymentMethod
	Tip             decimal.Decimal
	RestaurantFee   decimal.Decimal
}

func validate(in Input) error {
	if len(in.Items) == 0 {
		return ErrEmptyCart
	}
	v := &ValidationError{}
	a := in.DeliveryAddress
	if strings.TrimSpace(a.Street) == "" {
		v.add("deliveryAddress.street is required")
	}
	if strings.TrimSpace(a.City) == "" {
		v.add("deliveryAddress.city is required")
	}
	if strings.TrimSpace(a.State) == "" {
		v.add("deliveryAddress.state is required")
	}
	if strings.TrimSpace(a.ZipCode) == "" {
		v.add("deliveryAddress.zipCode is required")
	}
	if !in.PaymentMethod.Valid() {
		v.add("paymentMethod must be one of credit_card, debit_card, paypal, cash")
	}
	if in.Tip.IsNegative() {
		v.add("tip must not be negative")
	}
	if in.RestaurantID == "" {
		v.add("restaurant is required")
	}
	for _, it := range in.Items {
		if it.RestaurantID != in.RestaurantID {
			v.add("item " + it.ID + " belongs to another restaurant")
		}
	}
	return v.orNil()
}

// NewFromCart builds a placed order from cart lines. Prices are snapshotted so
// later menu changes never touch the stored amounts.
func NewFromCart(id string, in Input, p Pricing, now time.Time) (*models.Order, error) {
	if err := validate(in); err != nil {
		return nil, err
	}
	addr := in.DeliveryAddress
	if addr.Country == "" {
		addr.Country = models.DefaultCountry
	}
	items := make([]models.OrderItem, 0, len(in.Items))
	for _, it := range in.Items {
		items = append(items, models.OrderItem{
			MenuItemID:          it.ID,
			Name:                it.Name,
			Quantity:            it.Quantity,
			Price:               it.Price,
			Options:             append([]models.SelectedOption(nil), it.Options...),
			SpecialInstructions: it.SpecialInstructions,
		})
	}
	t := p.Quote(in.Items, in.RestaurantFee, in.Tip)
	return &models.Order{
		ID:              id,
		UserID:          in.UserID,
		RestaurantID:    in.RestaurantID,
		Items:           items,
		Status:          models.StatusPlaced,
		StatusHistory:   []models.StatusEntry{{Status: models.StatusPlaced, Timestamp: now}},
		Subtotal:        t.Subtotal,
		DeliveryFee:     t.DeliveryFee,
		Tax:             t.Tax,
		Tip:             t.Tip,
		TotalAmount:     t.Total,
		PaymentMethod:   in.PaymentMethod,
		PaymentStatus:   models.PaymentPending,
		DeliveryAddress: addr,
		CreatedAt:       now,
		UpdatedAt:       now,
	}, nil
}

// Transition moves o to status and appends one history entry. It reports
// false and leaves o untouched when the status is unchanged. Ordering rules
// are not enforced here; see CanTransition.
func Transition(o *models.Order, status models.Status, now time.Time) bool {
	if o.Status == status {
		return false
	}
	o.Status = status
	o.StatusHistory = append(o.StatusHistory, models.StatusEntry{Status: status, Timestamp: now})
	o.UpdatedAt = now
	if status == models.StatusDelivered {
		t := now
		o.ActualDeliveryTime = &t
	}
	return true
}

// CanTransition allows forward moves along the progression and cancellation
// of any non-terminal order.
func CanTransition(from, to models.Status) bool {
	if !to.Valid() || from.Terminal() || from == to {
		return false
	}
	if to == models.StatusCancelled {
		return true
	}
	return from.Rank() >= 0 && to.Rank() > from.Rank()
}

// CustomerCancellable reports whether the ordering customer may still cancel.
func CustomerCancellable(s models.Status) bool {
	return s == models.StatusPlaced || s == models.StatusConfirmed
}
