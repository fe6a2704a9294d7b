package storage

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/example/food-ordering/internal/models"
)

// MemoryStore keeps everything in maps. Values are copied on the way in and
// out so callers never share state with the store.
type MemoryStore struct {
	mu          sync.RWMutex
	orders      map[string]*models.Order
	restaurants map[string]*models.Restaurant
	menu        map[string]*models.MenuItem
	users       map[string]*models.User
	emails      map[string]string
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		orders:      make(map[string]*models.Order),
		restaurants: make(map[string]*models.Restaurant),
		menu:        make(map[string]*models.MenuItem),
		users:       make(map[string]*models.User),
		emails:      make(map[string]string),
	}
}

func (m *MemoryStore) Ping(context.Context) error { return nil }
func (m *MemoryStore) Close() error               { return nil }

func cloneOrder(o *models.Order) *models.Order {
	c := *o
	c.Items = make([]models.OrderItem, len(o.Items))
	for i, it := range o.Items {
		it.Options = append([]models.SelectedOption(nil), it.Options...)
		c.Items[i] = it
	}
	c.StatusHistory = append([]models.StatusEntry(nil), o.StatusHistory...)
	if o.DeliveryAddress.Coordinates != nil {
		coord := *o.DeliveryAddress.Coordinates
		c.DeliveryAddress.Coordinates = &coord
	}
	if o.EstimatedDeliveryTime != nil {
		t := *o.EstimatedDeliveryTime
		c.EstimatedDeliveryTime = &t
	}
	if o.ActualDeliveryTime != nil {
		t := *o.ActualDeliveryTime
		c.ActualDeliveryTime = &t
	}
	return &c
}

func (m *MemoryStore) SaveOrder(_ context.Context, o *models.Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.orders[o.ID]; ok {
		return ErrDuplicate
	}
	m.orders[o.ID] = cloneOrder(o)
	return nil
}

func (m *MemoryStore) UpdateOrder(_ context.Context, o *models.Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.orders[o.ID]; !ok {
		return ErrNotFound
	}
	m.orders[o.ID] = cloneOrder(o)
	return nil
}

func (m *MemoryStore) GetOrder(_ context.Context, id string) (*models.Order, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	o, ok := m.orders[id]
	if !ok {
		return nil, ErrNotFound
	}
	return cloneOrder(o), nil
}

func (m *MemoryStore) listOrders(match func(*models.Order) bool) []*models.Order {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*models.Order, 0)
	for _, o := range m.orders {
		if match(o) {
			out = append(out, cloneOrder(o))
		}
	}
	// newest first
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

func (m *MemoryStore) ListOrdersByUser(_ context.Context, userID string) ([]*models.Order, error) {
	return m.listOrders(func(o *models.Order) bool { return o.UserID == userID }), nil
}

func (m *MemoryStore) ListOrdersByRestaurant(_ context.Context, restaurantID string, status models.Status) ([]*models.Order, error) {
	return m.listOrders(func(o *models.Order) bool {
		return o.RestaurantID == restaurantID && (status == "" || o.Status == status)
	}), nil
}

func (m *MemoryStore) SaveRestaurant(_ context.Context, r *models.Restaurant) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c := *r
	m.restaurants[r.ID] = &c
	return nil
}

func (m *MemoryStore) GetRestaurant(_ context.Context, id string) (*models.Restaurant, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.restaurants[id]
	if !ok {
		return nil, ErrNotFound
	}
	c := *r
	return &c, nil
}

func (m *MemoryStore) ListRestaurants(context.Context) ([]*models.Restaurant, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*models.Restaurant, 0, len(m.restaurants))
	for _, r := range m.restaurants {
		c := *r
		out = append(out, &c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (m *MemoryStore) SaveMenuItem(_ context.Context, item *models.MenuItem) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c := *item
	m.menu[item.ID] = &c
	return nil
}

func (m *MemoryStore) GetMenuItem(_ context.Context, id string) (*models.MenuItem, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	item, ok := m.menu[id]
	if !ok {
		return nil, ErrNotFound
	}
	c := *item
	return &c, nil
}

func (m *MemoryStore) ListMenuItems(_ context.Context, restaurantID string) ([]*models.MenuItem, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*models.MenuItem, 0)
	for _, item := range m.menu {
		if item.RestaurantID == restaurantID {
			c := *item
			out = append(out, &c)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Category != out[j].Category {
			return out[i].Category < out[j].Category
		}
		return out[i].Name < out[j].Name
	})
	return out, nil
}

func (m *MemoryStore) CreateUser(_ context.Context, u *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	email := strings.ToLower(u.Email)
	if _, ok := m.emails[email]; ok {
		return ErrDuplicate
	}
	c := *u
	m.users[u.ID] = &c
	m.emails[email] = u.ID
	return nil
}

func (m *MemoryStore) UpdateUser(_ context.Context, u *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[u.ID]; !ok {
		return ErrNotFound
	}
	c := *u
	m.users[u.ID] = &c
	return nil
}

func (m *MemoryStore) GetUser(_ context.Context, id string) (*models.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	u, ok := m.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	c := *u
	return &c, nil
}

func (m *MemoryStore) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	m.mu.RLock()
	id, ok := m.emails[strings.ToLower(email)]
	m.mu.RUnlock()
	if !ok {
		return nil, ErrNotFound
	}
	return m.GetUser(ctx, id)
}
