package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/example/food-ordering/internal/models"
	"github.com/example/food-ordering/internal/storage"
)

func TestTokenRoundTrip(t *testing.T) {
	tokens := NewTokens("secret", time.Hour)
	tok, err := tokens.Issue(&models.User{ID: "u1", Role: models.RoleRestaurant})
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	c, err := tokens.Parse(tok)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if c.UserID != "u1" || c.Role != models.RoleRestaurant {
		t.Fatalf("unexpected claims %+v", c)
	}
}

func TestTokenRejections(t *testing.T) {
	tokens := NewTokens("secret", time.Hour)
	tok, _ := tokens.Issue(&models.User{ID: "u1", Role: models.RoleCustomer})

	if _, err := NewTokens("other", time.Hour).Parse(tok); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("wrong secret should be invalid, got %v", err)
	}
	if _, err := tokens.Parse("garbage"); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("garbage should be invalid, got %v", err)
	}

	later := NewTokens("secret", time.Hour)
	later.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	_, err := later.Parse(tok)
	if !errors.Is(err, ErrExpiredToken) || !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected expired token, got %v", err)
	}
}

func TestRegisterAndLogin(t *testing.T) {
	ctx := context.Background()
	svc := NewService(storage.NewMemoryStore(), NewTokens("secret", time.Hour))

	u, tok, err := svc.Register(ctx, RegisterRequest{Name: "Ann", Email: " Ann@Example.com ", Password: "hunter22"})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if u.Email != "ann@example.com" || u.Role != models.RoleCustomer || tok == "" {
		t.Fatalf("unexpected user %+v", u)
	}
	if u.PasswordHash == "hunter22" {
		t.Fatalf("password stored in clear")
	}
	if _, _, err := svc.Register(ctx, RegisterRequest{Name: "Ann", Email: "ann@example.com", Password: "hunter22"}); !errors.Is(err, ErrEmailTaken) {
		t.Fatalf("expected ErrEmailTaken, got %v", err)
	}

	if _, _, err := svc.Login(ctx, "ann@example.com", "wrong"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected invalid credentials, got %v", err)
	}
	if _, _, err := svc.Login(ctx, "nobody@example.com", "hunter22"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("unknown email should look like bad credentials, got %v", err)
	}
	got, _, err := svc.Login(ctx, "ANN@example.com", "hunter22")
	if err != nil || got.ID != u.ID {
		t.Fatalf("login failed: %v", err)
	}
}

func TestRegisterValidation(t *testing.T) {
	svc := NewService(storage.NewMemoryStore(), NewTokens("secret", time.Hour))
	bad := []RegisterRequest{
		{Name: "", Email: "a@b.co", Password: "secret1"},
		{Name: "A", Email: "not-an-email", Password: "secret1"},
		{Name: "A", Email: "a@b.co", Password: "short"},
		{Name: "A", Email: "a@b.co", Password: "secret1", Role: models.RoleAdmin},
	}
	for _, req := range bad {
		var ie *InputError
		if _, _, err := svc.Register(context.Background(), req); !errors.As(err, &ie) {
			t.Fatalf("%+v: expected InputError, got %v", req, err)
		}
	}
}

func TestUpdateAddress(t *testing.T) {
	ctx := context.Background()
	svc := NewService(storage.NewMemoryStore(), NewTokens("secret", time.Hour))
	u, _, _ := svc.Register(ctx, RegisterRequest{Name: "Ann", Email: "ann@example.com", Password: "hunter22"})

	var ie *InputError
	if _, err := svc.UpdateAddress(ctx, u.ID, models.Address{Street: "1 Main"}); !errors.As(err, &ie) {
		t.Fatalf("expected InputError, got %v", err)
	}
	got, err := svc.UpdateAddress(ctx, u.ID, models.Address{Street: "1 Main", City: "Town", State: "CA", ZipCode: "90001"})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if got.Address == nil || got.Address.Country != models.DefaultCountry {
		t.Fatalf("expected default country, got %+v", got.Address)
	}
	me, _ := svc.Me(ctx, u.ID)
	if me.Address == nil || me.Address.City != "Town" {
		t.Fatalf("address not persisted")
	}
}
