package main

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/example/food-ordering/internal/auth"
	"github.com/example/food-ordering/internal/models"
	"github.com/example/food-ordering/internal/storage"
)

//go:embed fixture.json
var defaultFixture []byte

type seedUser struct {
	ID       string      `json:"id"`
	Name     string      `json:"name"`
	Email    string      `json:"email"`
	Password string      `json:"password"`
	Role     models.Role `json:"role"`
}

type fixture struct {
	Users       []seedUser          `json:"users"`
	Restaurants []models.Restaurant `json:"restaurants"`
	MenuItems   []models.MenuItem   `json:"menuItems"`
}

func parseFixture(b []byte) (fixture, error) {
	var f fixture
	if err := json.Unmarshal(b, &f); err != nil {
		return f, fmt.Errorf("parse fixture: %w", err)
	}
	known := make(map[string]bool, len(f.Restaurants))
	for _, r := range f.Restaurants {
		if r.ID == "" {
			return f, errors.New("restaurant without id")
		}
		known[r.ID] = true
	}
	for _, m := range f.MenuItems {
		if !known[m.RestaurantID] {
			return f, fmt.Errorf("menu item %q references unknown restaurant %q", m.ID, m.RestaurantID)
		}
	}
	return f, nil
}

type seedStats struct {
	Users, SkippedUsers, Restaurants, MenuItems int
}

// apply upserts the catalog and creates missing users. Users whose email
// already exists are left alone so reruns are harmless.
func apply(ctx context.Context, store storage.Store, f fixture, now time.Time, log *slog.Logger) (seedStats, error) {
	var st seedStats
	for _, u := range f.Users {
		created, err := ensureUser(ctx, store, u, now)
		if err != nil {
			return st, fmt.Errorf("user %s: %w", u.Email, err)
		}
		if created {
			st.Users++
		} else {
			st.SkippedUsers++
			log.Info("user already exists", "email", u.Email)
		}
	}
	for i := range f.Restaurants {
		r := f.Restaurants[i]
		if r.CreatedAt.IsZero() {
			r.CreatedAt = now
		}
		if r.Address.Country == "" {
			r.Address.Country = models.DefaultCountry
		}
		if err := store.SaveRestaurant(ctx, &r); err != nil {
			return st, fmt.Errorf("restaurant %s: %w", r.ID, err)
		}
		st.Restaurants++
	}
	for i := range f.MenuItems {
		m := f.MenuItems[i]
		if m.CreatedAt.IsZero() {
			m.CreatedAt = now
		}
		if err := store.SaveMenuItem(ctx, &m); err != nil {
			return st, fmt.Errorf("menu item %s: %w", m.ID, err)
		}
		st.MenuItems++
	}
	return st, nil
}

func ensureUser(ctx context.Context, store storage.UserStore, u seedUser, now time.Time) (bool, error) {
	email := strings.ToLower(strings.TrimSpace(u.Email))
	if _, err := store.GetUserByEmail(ctx, email); err == nil {
		return false, nil
	} else if !errors.Is(err, storage.ErrNotFound) {
		return false, err
	}
	if !u.Role.Valid() {
		return false, fmt.Errorf("invalid role %q", u.Role)
	}
	hash, err := auth.HashPassword(u.Password)
	if err != nil {
		return false, err
	}
	err = store.CreateUser(ctx, &models.User{
		ID:           u.ID,
		Name:         u.Name,
		Email:        email,
		PasswordHash: hash,
		Role:         u.Role,
		CreatedAt:    now,
	})
	if errors.Is(err, storage.ErrDuplicate) {
		return false, nil
	}
	return err == nil, err
}
