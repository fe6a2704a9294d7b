package auth

import (
	"context"
	"errors"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/example/food-ordering/internal/models"
	"github.com/example/food-ordering/internal/storage"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrEmailTaken         = errors.New("email already registered")
)

// InputError describes a rejected registration or profile field.
type InputError struct{ Msg string }

func (e *InputError) Error() string { return e.Msg }

const MinPasswordLength = 6

func HashPassword(pw string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(pw), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func CheckPassword(hash, pw string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(pw)) == nil
}

type Service struct {
	users  storage.UserStore
	tokens *Tokens
	now    func() time.Time
}

func NewService(users storage.UserStore, tokens *Tokens) *Service {
	return &Service{users: users, tokens: tokens, now: time.Now}
}

func (s *Service) Tokens() *Tokens { return s.tokens }

type RegisterRequest struct {
	Name     string      `json:"name"`
	Email    string      `json:"email"`
	Password string      `json:"password"`
	Role     models.Role `json:"role"`
}

// Register creates an account and returns it with a fresh token. Admin
// accounts cannot be self-registered.
func (s *Service) Register(ctx context.Context, req RegisterRequest) (*models.User, string, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, "", &InputError{Msg: "name is required"}
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, "", &InputError{Msg: "a valid email is required"}
	}
	if len(req.Password) < MinPasswordLength {
		return nil, "", &InputError{Msg: "password must be at least 6 characters"}
	}
	role := req.Role
	if role == "" {
		role = models.RoleCustomer
	}
	if !role.Valid() || role == models.RoleAdmin {
		return nil, "", &InputError{Msg: "role must be customer, restaurant or driver"}
	}

	hash, err := HashPassword(req.Password)
	if err != nil {
		return nil, "", err
	}
	u := &models.User{
		ID:           uuid.NewString(),
		Name:         name,
		Email:        email,
		PasswordHash: hash,
		Role:         role,
		CreatedAt:    s.now(),
	}
	if err := s.users.CreateUser(ctx, u); err != nil {
		if errors.Is(err, storage.ErrDuplicate) {
			return nil, "", ErrEmailTaken
		}
		return nil, "", err
	}
	tok, err := s.tokens.Issue(u)
	if err != nil {
		return nil, "", err
	}
	return u, tok, nil
}

func (s *Service) Login(ctx context.Context, email, password string) (*models.User, string, error) {
	u, err := s.users.GetUserByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if errors.Is(err, storage.ErrNotFound) {
		return nil, "", ErrInvalidCredentials
	}
	if err != nil {
		return nil, "", err
	}
	if !CheckPassword(u.PasswordHash, password) {
		return nil, "", ErrInvalidCredentials
	}
	tok, err := s.tokens.Issue(u)
	if err != nil {
		return nil, "", err
	}
	return u, tok, nil
}

func (s *Service) Me(ctx context.Context, userID string) (*models.User, error) {
	return s.users.GetUser(ctx, userID)
}

// UpdateAddress replaces the user's default delivery address.
func (s *Service) UpdateAddress(ctx context.Context, userID string, addr models.Address) (*models.User, error) {
	if strings.TrimSpace(addr.Street) == "" || strings.TrimSpace(addr.City) == "" ||
		strings.TrimSpace(addr.State) == "" || strings.TrimSpace(addr.ZipCode) == "" {
		return nil, &InputError{Msg: "street, city, state and zipCode are required"}
	}
	if addr.Country == "" {
		addr.Country = models.DefaultCountry
	}
	u, err := s.users.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	u.Address = &addr
	if err := s.users.UpdateUser(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}
