package cart

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/shopspring/decimal"

	"github.com/example/food-ordering/internal/models"
	"github.com/example/food-ordering/internal/observability"
)

// Storage keys, one value each. There is no transactional guarantee across the two.
const (
	KeyItems      = "cart"
	KeyRestaurant = "restaurantId"
)

// ErrDifferentRestaurant is reported by callers when an add was declined
// because the cart belongs to another restaurant.
var ErrDifferentRestaurant = errors.New("cart contains items from another restaurant")

// Confirm is asked before an item from another restaurant replaces the cart.
type Confirm func() bool

// Replace always confirms.
func Replace() bool { return true }

// Cart holds line items for at most one restaurant and mirrors every
// mutation into its Storage. A Cart belongs to one session and is not safe
// for concurrent use.
type Cart struct {
	store        Storage
	log          *slog.Logger
	items        []models.CartItem
	restaurantID string
}

// New returns an empty cart bound to store. Nothing is read or written.
func New(store Storage, log *slog.Logger) *Cart {
	if log == nil {
		log = slog.Default()
	}
	return &Cart{store: store, log: log}
}

// Load restores a cart from store. Saved contents that fail to parse are
// treated as an empty cart; storage read errors are returned.
func Load(ctx context.Context, store Storage, log *slog.Logger) (*Cart, error) {
	c := New(store, log)
	raw, ok, err := store.Get(ctx, KeyItems)
	if err != nil {
		return nil, fmt.Errorf("load cart items: %w", err)
	}
	if ok && raw != "" {
		var items []models.CartItem
		if err := json.Unmarshal([]byte(raw), &items); err != nil {
			c.log.Warn("discarding unparsable saved cart", "error", err)
		} else {
			c.items = items
		}
	}
	rid, ok, err := store.Get(ctx, KeyRestaurant)
	if err != nil {
		return nil, fmt.Errorf("load cart restaurant: %w", err)
	}
	if ok {
		c.restaurantID = rid
	}
	return c, nil
}

// AddItem inserts item or merges it into an existing line with the same id,
// options and instructions. When the cart holds items from another
// restaurant, confirm decides: false leaves the cart untouched and AddItem
// reports false; true clears the cart first.
func (c *Cart) AddItem(ctx context.Context, item models.CartItem, confirm Confirm) (bool, error) {
	if item.Quantity < 1 {
		item.Quantity = 1
	}
	if len(c.items) > 0 && c.restaurantID != "" && item.RestaurantID != c.restaurantID {
		if confirm == nil || !confirm() {
			return false, nil
		}
		c.items = nil
	}
	c.restaurantID = item.RestaurantID

	if i := c.find(item); i >= 0 {
		c.items[i].Quantity += item.Quantity
	} else {
		item.Options = append([]models.SelectedOption(nil), item.Options...)
		c.items = append(c.items, item)
	}
	observability.CartMutations.WithLabelValues("add").Inc()
	return true, c.persist(ctx)
}

// UpdateQuantity sets the quantity of every line with id. Quantities below 1 are ignored.
func (c *Cart) UpdateQuantity(ctx context.Context, id string, qty int) error {
	if qty < 1 {
		return nil
	}
	for i := range c.items {
		if c.items[i].ID == id {
			c.items[i].Quantity = qty
		}
	}
	observability.CartMutations.WithLabelValues("update").Inc()
	return c.persist(ctx)
}

// RemoveItem deletes every line with id. The restaurant is released once the cart is empty.
func (c *Cart) RemoveItem(ctx context.Context, id string) error {
	kept := c.items[:0]
	for _, it := range c.items {
		if it.ID != id {
			kept = append(kept, it)
		}
	}
	c.items = kept
	if len(c.items) == 0 {
		c.restaurantID = ""
	}
	observability.CartMutations.WithLabelValues("remove").Inc()
	return c.persist(ctx)
}

func (c *Cart) Clear(ctx context.Context) error {
	c.items = nil
	c.restaurantID = ""
	observability.CartMutations.WithLabelValues("clear").Inc()
	return c.persist(ctx)
}

// Total is the sum over lines of (price + option deltas) * quantity.
func (c *Cart) Total() decimal.Decimal {
	total := decimal.Zero
	for _, it := range c.items {
		total = total.Add(it.LineTotal())
	}
	return total
}

// Items returns a copy of the lines in insertion order.
func (c *Cart) Items() []models.CartItem {
	out := make([]models.CartItem, len(c.items))
	copy(out, c.items)
	return out
}

func (c *Cart) RestaurantID() string { return c.restaurantID }

func (c *Cart) Empty() bool { return len(c.items) == 0 }

func (c *Cart) find(item models.CartItem) int {
	for i, it := range c.items {
		if it.ID == item.ID &&
			it.SpecialInstructions == item.SpecialInstructions &&
			models.SameOptions(it.Options, item.Options) {
			return i
		}
	}
	return -1
}

func (c *Cart) persist(ctx context.Context) error {
	items := c.items
	if items == nil {
		items = []models.CartItem{}
	}
	b, err := json.Marshal(items)
	if err != nil {
		return fmt.Errorf("encode cart: %w", err)
	}
	if err := c.store.Set(ctx, KeyItems, string(b)); err != nil {
		return fmt.Errorf("save cart items: %w", err)
	}
	if c.restaurantID == "" {
		err = c.store.Delete(ctx, KeyRestaurant)
	} else {
		err = c.store.Set(ctx, KeyRestaurant, c.restaurantID)
	}
	if err != nil {
		return fmt.Errorf("save cart restaurant: %w", err)
	}
	return nil
}
