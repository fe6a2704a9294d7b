package storage

import (
	"context"
	"errors"

	"github.com/example/food-ordering/internal/models"
)

var (
	ErrNotFound  = errors.New("not found")
	ErrDuplicate = errors.New("already exists")
)

// OrderStore persists orders. Updates are last-write-wins.
type OrderStore interface {
	SaveOrder(ctx context.Context, o *models.Order) error
	UpdateOrder(ctx context.Context, o *models.Order) error
	GetOrder(ctx context.Context, id string) (*models.Order, error)
	ListOrdersByUser(ctx context.Context, userID string) ([]*models.Order, error)
	// ListOrdersByRestaurant filters by status unless status is empty.
	ListOrdersByRestaurant(ctx context.Context, restaurantID string, status models.Status) ([]*models.Order, error)
}

// CatalogStore holds restaurants and their menus.
type CatalogStore interface {
	SaveRestaurant(ctx context.Context, r *models.Restaurant) error
	GetRestaurant(ctx context.Context, id string) (*models.Restaurant, error)
	ListRestaurants(ctx context.Context) ([]*models.Restaurant, error)
	SaveMenuItem(ctx context.Context, m *models.MenuItem) error
	GetMenuItem(ctx context.Context, id string) (*models.MenuItem, error)
	ListMenuItems(ctx context.Context, restaurantID string) ([]*models.MenuItem, error)
}

// UserStore keeps accounts. Emails are unique; CreateUser returns ErrDuplicate on collision.
type UserStore interface {
	CreateUser(ctx context.Context, u *models.User) error
	UpdateUser(ctx context.Context, u *models.User) error
	GetUser(ctx context.Context, id string) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
}

type Store interface {
	OrderStore
	CatalogStore
	UserStore
	Ping(ctx context.Context) error
	Close() error
}
