package models

import (
	"time"

	"github.com/shopspring/decimal"
)

func init() {
	// prices go over the wire as JSON numbers, not strings
	decimal.MarshalJSONWithoutQuotes = true
}

type Coord struct {
	Lat float64 `json:"lat" bson:"lat"`
	Lng float64 `json:"lng" bson:"lng"`
}

type Address struct {
	Street       string `json:"street" bson:"street"`
	City         string `json:"city" bson:"city"`
	State        string `json:"state" bson:"state"`
	ZipCode      string `json:"zipCode" bson:"zip_code"`
	Country      string `json:"country" bson:"country"`
	Instructions string `json:"instructions,omitempty" bson:"instructions,omitempty"`
	Coordinates  *Coord `json:"coordinates,omitempty" bson:"coordinates,omitempty"`
}

const DefaultCountry = "United States"

// SelectedOption is one chosen value of a menu item option group.
type SelectedOption struct {
	Name  string          `json:"name" bson:"name"`
	Value string          `json:"value" bson:"value"`
	Price decimal.Decimal `json:"price" bson:"price"`
}

func (o SelectedOption) Equal(other SelectedOption) bool {
	return o.Name == other.Name && o.Value == other.Value && o.Price.Equal(other.Price)
}

type CartItem struct {
	ID                  string           `json:"id"`
	RestaurantID        string           `json:"restaurantId"`
	Name                string           `json:"name"`
	Price               decimal.Decimal  `json:"price"`
	Image               string           `json:"image,omitempty"`
	Quantity            int              `json:"quantity"`
	Options             []SelectedOption `json:"options,omitempty"`
	SpecialInstructions string           `json:"specialInstructions,omitempty"`
}

// UnitPrice is the item price plus every selected option delta.
func (c CartItem) UnitPrice() decimal.Decimal {
	p := c.Price
	for _, o := range c.Options {
		p = p.Add(o.Price)
	}
	return p
}

func (c CartItem) LineTotal() decimal.Decimal {
	return c.UnitPrice().Mul(decimal.NewFromInt(int64(c.Quantity)))
}

// SameOptions reports whether both option lists hold the same entries in the same order.
func SameOptions(a, b []SelectedOption) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !a[i].Equal(b[i]) {
			return false
		}
	}
	return true
}

// OrderItem is the purchase-time snapshot of a cart line.
type OrderItem struct {
	MenuItemID          string           `json:"menuItem" bson:"menu_item_id"`
	Name                string           `json:"name" bson:"name"`
	Quantity            int              `json:"quantity" bson:"quantity"`
	Price               decimal.Decimal  `json:"price" bson:"price"`
	Options             []SelectedOption `json:"options,omitempty" bson:"options,omitempty"`
	SpecialInstructions string           `json:"specialInstructions,omitempty" bson:"special_instructions,omitempty"`
}

type StatusEntry struct {
	Status    Status    `json:"status" bson:"status"`
	Timestamp time.Time `json:"timestamp" bson:"timestamp"`
}

type Order struct {
	ID                    string          `json:"id" bson:"_id"`
	UserID                string          `json:"user" bson:"user_id"`
	RestaurantID          string          `json:"restaurant" bson:"restaurant_id"`
	DriverID              string          `json:"driver,omitempty" bson:"driver_id,omitempty"`
	Items                 []OrderItem     `json:"items" bson:"items"`
	Status                Status          `json:"status" bson:"status"`
	StatusHistory         []StatusEntry   `json:"statusHistory" bson:"status_history"`
	Subtotal              decimal.Decimal `json:"subtotal" bson:"subtotal"`
	DeliveryFee           decimal.Decimal `json:"deliveryFee" bson:"delivery_fee"`
	Tax                   decimal.Decimal `json:"tax" bson:"tax"`
	Tip                   decimal.Decimal `json:"tip" bson:"tip"`
	TotalAmount           decimal.Decimal `json:"totalAmount" bson:"total_amount"`
	PaymentMethod         PaymentMethod   `json:"paymentMethod" bson:"payment_method"`
	PaymentStatus         PaymentStatus   `json:"paymentStatus" bson:"payment_status"`
	PaymentIntentID       string          `json:"paymentIntentId,omitempty" bson:"payment_intent_id,omitempty"`
	DeliveryAddress       Address         `json:"deliveryAddress" bson:"delivery_address"`
	EstimatedDeliveryTime *time.Time      `json:"estimatedDeliveryTime,omitempty" bson:"estimated_delivery_time,omitempty"`
	ActualDeliveryTime    *time.Time      `json:"actualDeliveryTime,omitempty" bson:"actual_delivery_time,omitempty"`
	CreatedAt             time.Time       `json:"createdAt" bson:"created_at"`
	UpdatedAt             time.Time       `json:"updatedAt" bson:"updated_at"`
}

// OrderEvent is published on every order creation and status change.
type OrderEvent struct {
	Type         string    `json:"type"`
	OrderID      string    `json:"orderId"`
	RestaurantID string    `json:"restaurantId"`
	UserID       string    `json:"userId"`
	Status       Status    `json:"status"`
	DriverID     string    `json:"driverId,omitempty"`
	Timestamp    time.Time `json:"timestamp"`
}

const (
	EventOrderCreated       = "order.created"
	EventOrderStatusChanged = "order.status_changed"
	EventDriverAssigned     = "order.driver_assigned"
)
