package menu

import (
	"context"
	"errors"
	"fmt"

	"github.com/example/food-ordering/internal/models"
	"github.com/example/food-ordering/internal/storage"
)

var (
	ErrUnavailable      = errors.New("menu item is not available")
	ErrInvalidSelection = errors.New("invalid option selection")
)

// Catalog is the read side of restaurants and their menus.
type Catalog struct {
	store storage.CatalogStore
}

func NewCatalog(store storage.CatalogStore) *Catalog {
	return &Catalog{store: store}
}

// ListByRestaurant returns the restaurant's available items.
func (c *Catalog) ListByRestaurant(ctx context.Context, restaurantID string) ([]*models.MenuItem, error) {
	if _, err := c.store.GetRestaurant(ctx, restaurantID); err != nil {
		return nil, err
	}
	items, err := c.store.ListMenuItems(ctx, restaurantID)
	if err != nil {
		return nil, err
	}
	out := items[:0]
	for _, it := range items {
		if it.IsAvailable {
			out = append(out, it)
		}
	}
	return out, nil
}

func (c *Catalog) Get(ctx context.Context, id string) (*models.MenuItem, error) {
	return c.store.GetMenuItem(ctx, id)
}

// ListRestaurants returns active restaurants only.
func (c *Catalog) ListRestaurants(ctx context.Context) ([]*models.Restaurant, error) {
	all, err := c.store.ListRestaurants(ctx)
	if err != nil {
		return nil, err
	}
	out := all[:0]
	for _, r := range all {
		if r.IsActive {
			out = append(out, r)
		}
	}
	return out, nil
}

func (c *Catalog) GetRestaurant(ctx context.Context, id string) (*models.Restaurant, error) {
	return c.store.GetRestaurant(ctx, id)
}

// Selection names one chosen value of an option group.
type Selection struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// BuildCartItem prices a menu item with the chosen options. Options come out
// in menu order whatever order they were given in, so identical choices
// always merge into the same cart line.
func BuildCartItem(item *models.MenuItem, quantity int, selections []Selection, instructions string) (models.CartItem, error) {
	if !item.IsAvailable {
		return models.CartItem{}, fmt.Errorf("%w: %s", ErrUnavailable, item.Name)
	}
	if quantity < 1 {
		quantity = 1
	}
	chosen := make(map[string]map[string]bool, len(selections))
	for _, s := range selections {
		g := findGroup(item.Options, s.Name)
		if g == nil {
			return models.CartItem{}, fmt.Errorf("%w: unknown option %q", ErrInvalidSelection, s.Name)
		}
		if findChoice(g.Choices, s.Value) == nil {
			return models.CartItem{}, fmt.Errorf("%w: unknown choice %q for %q", ErrInvalidSelection, s.Value, s.Name)
		}
		if chosen[s.Name] == nil {
			chosen[s.Name] = make(map[string]bool)
		}
		chosen[s.Name][s.Value] = true
	}

	var opts []models.SelectedOption
	for _, g := range item.Options {
		picked := chosen[g.Name]
		if g.Required && len(picked) == 0 {
			return models.CartItem{}, fmt.Errorf("%w: %q is required", ErrInvalidSelection, g.Name)
		}
		if !g.MultiSelect && len(picked) > 1 {
			return models.CartItem{}, fmt.Errorf("%w: only one choice allowed for %q", ErrInvalidSelection, g.Name)
		}
		for _, ch := range g.Choices {
			if picked[ch.Name] {
				opts = append(opts, models.SelectedOption{Name: g.Name, Value: ch.Name, Price: ch.Price})
			}
		}
	}

	return models.CartItem{
		ID:                  item.ID,
		RestaurantID:        item.RestaurantID,
		Name:                item.Name,
		Price:               item.Price,
		Image:               item.Image,
		Quantity:            quantity,
		Options:             opts,
		SpecialInstructions: instructions,
	}, nil
}

func findGroup(groups []models.OptionGroup, name string) *models.OptionGroup {
	for i := range groups {
		if groups[i].Name == name {
			return &groups[i]
		}
	}
	return nil
}

func findChoice(choices []models.Choice, name string) *models.Choice {
	for i := range choices {
		if choices[i].Name == name {
			return &choices[i]
		}
	}
	return nil
}
