package menu

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/example/food-ordering/internal/models"
	"github.com/example/food-ordering/internal/storage"
)

func pizza() *models.MenuItem {
	return &models.MenuItem{
		ID: "pizza", RestaurantID: "r1", Name: "Pizza", Price: decimal.RequireFromString("12.00"), IsAvailable: true,
		Options: []models.OptionGroup{
			{Name: "Size", Required: true, Choices: []models.Choice{
				{Name: "Small"}, {Name: "Large", Price: decimal.RequireFromString("3.00")},
			}},
			{Name: "Toppings", MultiSelect: true, Choices: []models.Choice{
				{Name: "Olives", Price: decimal.RequireFromString("0.50")},
				{Name: "Mushrooms", Price: decimal.RequireFromString("0.75")},
			}},
		},
	}
}

func TestBuildCartItemNormalizesOptionOrder(t *testing.T) {
	a, err := BuildCartItem(pizza(), 1, []Selection{{"Toppings", "Mushrooms"}, {"Size", "Large"}, {"Toppings", "Olives"}}, "")
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	b, err := BuildCartItem(pizza(), 1, []Selection{{"Size", "Large"}, {"Toppings", "Olives"}, {"Toppings", "Mushrooms"}}, "")
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if !models.SameOptions(a.Options, b.Options) {
		t.Fatalf("option order should not depend on input order: %+v vs %+v", a.Options, b.Options)
	}
	if a.Options[0].Value != "Large" || a.Options[1].Value != "Olives" {
		t.Fatalf("expected menu order, got %+v", a.Options)
	}
	if !a.UnitPrice().Equal(decimal.RequireFromString("16.25")) {
		t.Fatalf("expected 16.25, got %s", a.UnitPrice())
	}
}

func TestBuildCartItemRejections(t *testing.T) {
	cases := map[string][]Selection{
		"missing required":   {{"Toppings", "Olives"}},
		"unknown group":      {{"Size", "Small"}, {"Crust", "Thin"}},
		"unknown choice":     {{"Size", "Huge"}},
		"two single-selects": {{"Size", "Small"}, {"Size", "Large"}},
	}
	for name, sel := range cases {
		if _, err := BuildCartItem(pizza(), 1, sel, ""); !errors.Is(err, ErrInvalidSelection) {
			t.Fatalf("%s: expected ErrInvalidSelection, got %v", name, err)
		}
	}
	off := pizza()
	off.IsAvailable = false
	if _, err := BuildCartItem(off, 1, []Selection{{"Size", "Small"}}, ""); !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
}

func TestCatalogFiltersUnavailableAndInactive(t *testing.T) {
	ctx := context.Background()
	s := storage.NewMemoryStore()
	s.SaveRestaurant(ctx, &models.Restaurant{ID: "r1", Name: "Open", IsActive: true})
	s.SaveRestaurant(ctx, &models.Restaurant{ID: "r2", Name: "Closed"})
	s.SaveMenuItem(ctx, pizza())
	s.SaveMenuItem(ctx, &models.MenuItem{ID: "soup", RestaurantID: "r1", Name: "Soup"})
	c := NewCatalog(s)

	items, err := c.ListByRestaurant(ctx, "r1")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(items) != 1 || items[0].ID != "pizza" {
		t.Fatalf("expected only available pizza, got %+v", items)
	}
	if _, err := c.ListByRestaurant(ctx, "nope"); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	rs, _ := c.ListRestaurants(ctx)
	if len(rs) != 1 || rs[0].ID != "r1" {
		t.Fatalf("expected only active restaurant, got %+v", rs)
	}
}
