package main

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/example/food-ordering/internal/auth"
	"github.com/example/food-ordering/internal/storage"
)

var quiet = slog.New(slog.NewTextHandler(io.Discard, nil))

func TestDefaultFixtureSeedsStore(t *testing.T) {
	f, err := parseFixture(defaultFixture)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	ctx := context.Background()
	store := storage.NewMemoryStore()
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	st, err := apply(ctx, store, f, now, quiet)
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if st.Restaurants != 2 || st.MenuItems != 3 || st.Users != 3 {
		t.Fatalf("unexpected stats %+v", st)
	}

	burger, err := store.GetMenuItem(ctx, "classic-burger")
	if err != nil {
		t.Fatalf("get burger: %v", err)
	}
	if !burger.Price.Equal(decimal.RequireFromString("8.99")) || len(burger.Options) != 2 || !burger.CreatedAt.Equal(now) {
		t.Fatalf("unexpected burger %+v", burger)
	}
	r, err := store.GetRestaurant(ctx, "green-bowl")
	if err != nil {
		t.Fatalf("get restaurant: %v", err)
	}
	if r.Address.Coordinates == nil || r.OwnerID != "owner-burger-barn" {
		t.Fatalf("unexpected restaurant %+v", r)
	}
	u, err := store.GetUserByEmail(ctx, "casey@example.test")
	if err != nil {
		t.Fatalf("get user: %v", err)
	}
	if !auth.CheckPassword(u.PasswordHash, "hungry123") {
		t.Fatalf("password not hashed from fixture")
	}

	again, err := apply(ctx, store, f, now, quiet)
	if err != nil {
		t.Fatalf("second apply: %v", err)
	}
	if again.Users != 0 || again.SkippedUsers != 3 {
		t.Fatalf("rerun should skip existing users, got %+v", again)
	}
}

func TestParseFixtureRejectsOrphanItems(t *testing.T) {
	raw := []byte(`{"restaurants":[{"id":"r1"}],"menuItems":[{"id":"m1","restaurant":"r2"}]}`)
	if _, err := parseFixture(raw); err == nil {
		t.Fatalf("expected orphan menu item to be rejected")
	}
	if _, err := parseFixture([]byte("{")); err == nil {
		t.Fatalf("expected malformed JSON to fail")
	}
}
