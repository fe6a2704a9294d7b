package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/example/food-ordering/internal/models"
)

type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(ctx context.Context, dsn string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}
	// quick ping
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return &PostgresStore{db: db}, nil
}

func (p *PostgresStore) Ping(ctx context.Context) error { return p.db.PingContext(ctx) }
func (p *PostgresStore) Close() error                   { return p.db.Close() }

type rowScanner interface {
	Scan(dest ...any) error
}

func notFound(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	return err
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}

func jsonb(v any) ([]byte, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode jsonb: %w", err)
	}
	return b, nil
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

func timePtr(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time
	return &v
}

const orderColumns = `id, user_id, restaurant_id, driver_id, items, status, status_history, subtotal, delivery_fee, tax, tip, total_amount, payment_method, payment_status, payment_intent_id, delivery_address, estimated_delivery_time, actual_delivery_time, created_at, updated_at`

func orderArgs(o *models.Order) ([]any, error) {
	items, err := jsonb(o.Items)
	if err != nil {
		return nil, err
	}
	history, err := jsonb(o.StatusHistory)
	if err != nil {
		return nil, err
	}
	addr, err := jsonb(o.DeliveryAddress)
	if err != nil {
		return nil, err
	}
	return []any{
		o.ID, o.UserID, o.RestaurantID, o.DriverID, items, o.Status, history,
		o.Subtotal, o.DeliveryFee, o.Tax, o.Tip, o.TotalAmount,
		o.PaymentMethod, o.PaymentStatus, o.PaymentIntentID, addr,
		nullTime(o.EstimatedDeliveryTime), nullTime(o.ActualDeliveryTime), o.CreatedAt, o.UpdatedAt,
	}, nil
}

func scanOrder(row rowScanner) (*models.Order, error) {
	var (
		o                    models.Order
		items, history, addr []byte
		estimated, actual    sql.NullTime
	)
	err := row.Scan(&o.ID, &o.UserID, &o.RestaurantID, &o.DriverID, &items, &o.Status, &history,
		&o.Subtotal, &o.DeliveryFee, &o.Tax, &o.Tip, &o.TotalAmount,
		&o.PaymentMethod, &o.PaymentStatus, &o.PaymentIntentID, &addr,
		&estimated, &actual, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		return nil, notFound(err)
	}
	if err := json.Unmarshal(items, &o.Items); err != nil {
		return nil, fmt.Errorf("decode order items: %w", err)
	}
	if err := json.Unmarshal(history, &o.StatusHistory); err != nil {
		return nil, fmt.Errorf("decode status history: %w", err)
	}
	if err := json.Unmarshal(addr, &o.DeliveryAddress); err != nil {
		return nil, fmt.Errorf("decode delivery address: %w", err)
	}
	o.EstimatedDeliveryTime = timePtr(estimated)
	o.ActualDeliveryTime = timePtr(actual)
	return &o, nil
}

func (p *PostgresStore) SaveOrder(ctx context.Context, o *models.Order) error {
	args, err := orderArgs(o)
	if err != nil {
		return err
	}
	_, err = p.db.ExecContext(ctx, `INSERT INTO orders(`+orderColumns+`) VALUES($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20)`, args...)
	if isUniqueViolation(err) {
		return ErrDuplicate
	}
	return err
}

func (p *PostgresStore) UpdateOrder(ctx context.Context, o *models.Order) error {
	args, err := orderArgs(o)
	if err != nil {
		return err
	}
	res, err := p.db.ExecContext(ctx, `UPDATE orders SET user_id=$2, restaurant_id=$3, driver_id=$4, items=$5, status=$6, status_history=$7,
		subtotal=$8, delivery_fee=$9, tax=$10, tip=$11, total_amount=$12, payment_method=$13, payment_status=$14,
		payment_intent_id=$15, delivery_address=$16, estimated_delivery_time=$17, actual_delivery_time=$18,
		created_at=$19, updated_at=$20 WHERE id=$1`, args...)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

func (p *PostgresStore) GetOrder(ctx context.Context, id string) (*models.Order, error) {
	return scanOrder(p.db.QueryRowContext(ctx, `SELECT `+orderColumns+` FROM orders WHERE id=$1`, id))
}

func (p *PostgresStore) queryOrders(ctx context.Context, query string, args ...any) ([]*models.Order, error) {
	rows, err := p.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]*models.Order, 0)
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

func (p *PostgresStore) ListOrdersByUser(ctx context.Context, userID string) ([]*models.Order, error) {
	return p.queryOrders(ctx, `SELECT `+orderColumns+` FROM orders WHERE user_id=$1 ORDER BY created_at DESC`, userID)
}

func (p *PostgresStore) ListOrdersByRestaurant(ctx context.Context, restaurantID string, status models.Status) ([]*models.Order, error) {
	if status == "" {
		return p.queryOrders(ctx, `SELECT `+orderColumns+` FROM orders WHERE restaurant_id=$1 ORDER BY created_at DESC`, restaurantID)
	}
	return p.queryOrders(ctx, `SELECT `+orderColumns+` FROM orders WHERE restaurant_id=$1 AND status=$2 ORDER BY created_at DESC`, restaurantID, status)
}

const restaurantColumns = `id, owner_id, name, description, cuisine, address, phone, email, rating, price_range, delivery_fee, min_order_amount, is_active, created_at`

func scanRestaurant(row rowScanner) (*models.Restaurant, error) {
	var (
		r    models.Restaurant
		addr []byte
	)
	err := row.Scan(&r.ID, &r.OwnerID, &r.Name, &r.Description, &r.Cuisine, &addr, &r.Phone, &r.Email,
		&r.Rating, &r.PriceRange, &r.DeliveryFee, &r.MinOrderAmount, &r.IsActive, &r.CreatedAt)
	if err != nil {
		return nil, notFound(err)
	}
	if err := json.Unmarshal(addr, &r.Address); err != nil {
		return nil, fmt.Errorf("decode restaurant address: %w", err)
	}
	return &r, nil
}

func (p *PostgresStore) SaveRestaurant(ctx context.Context, r *models.Restaurant) error {
	addr, err := jsonb(r.Address)
	if err != nil {
		return err
	}
	_, err = p.db.ExecContext(ctx, `INSERT INTO restaurants(`+restaurantColumns+`) VALUES($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)
		ON CONFLICT (id) DO UPDATE SET owner_id=EXCLUDED.owner_id, name=EXCLUDED.name, description=EXCLUDED.description,
		cuisine=EXCLUDED.cuisine, address=EXCLUDED.address, phone=EXCLUDED.phone, email=EXCLUDED.email, rating=EXCLUDED.rating,
		price_range=EXCLUDED.price_range, delivery_fee=EXCLUDED.delivery_fee, min_order_amount=EXCLUDED.min_order_amount,
		is_active=EXCLUDED.is_active`,
		r.ID, r.OwnerID, r.Name, r.Description, r.Cuisine, addr, r.Phone, r.Email,
		r.Rating, r.PriceRange, r.DeliveryFee, r.MinOrderAmount, r.IsActive, r.CreatedAt)
	return err
}

func (p *PostgresStore) GetRestaurant(ctx context.Context, id string) (*models.Restaurant, error) {
	return scanRestaurant(p.db.QueryRowContext(ctx, `SELECT `+restaurantColumns+` FROM restaurants WHERE id=$1`, id))
}

func (p *PostgresStore) ListRestaurants(ctx context.Context) ([]*models.Restaurant, error) {
	rows, err := p.db.QueryContext(ctx, `SELECT `+restaurantColumns+` FROM restaurants ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]*models.Restaurant, 0)
	for rows.Next() {
		r, err := scanRestaurant(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

const menuColumns = `id, restaurant_id, name, description, price, image, category, options, tags, is_vegetarian, is_vegan, is_gluten_free, spicy_level, is_available, is_featured, preparation_time, created_at`

func scanMenuItem(row rowScanner) (*models.MenuItem, error) {
	var (
		m             models.MenuItem
		options, tags []byte
	)
	err := row.Scan(&m.ID, &m.RestaurantID, &m.Name, &m.Description, &m.Price, &m.Image, &m.Category, &options, &tags,
		&m.IsVegetarian, &m.IsVegan, &m.IsGlutenFree, &m.SpicyLevel, &m.IsAvailable, &m.IsFeatured, &m.PreparationTime, &m.CreatedAt)
	if err != nil {
		return nil, notFound(err)
	}
	if err := json.Unmarshal(options, &m.Options); err != nil {
		return nil, fmt.Errorf("decode menu options: %w", err)
	}
	if err := json.Unmarshal(tags, &m.Tags); err != nil {
		return nil, fmt.Errorf("decode menu tags: %w", err)
	}
	return &m, nil
}

func (p *PostgresStore) SaveMenuItem(ctx context.Context, m *models.MenuItem) error {
	options, err := jsonb(nonNil(m.Options))
	if err != nil {
		return err
	}
	tags, err := jsonb(nonNil(m.Tags))
	if err != nil {
		return err
	}
	_, err = p.db.ExecContext(ctx, `INSERT INTO menu_items(`+menuColumns+`) VALUES($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17)
		ON CONFLICT (id) DO UPDATE SET restaurant_id=EXCLUDED.restaurant_id, name=EXCLUDED.name, description=EXCLUDED.description,
		price=EXCLUDED.price, image=EXCLUDED.image, category=EXCLUDED.category, options=EXCLUDED.options, tags=EXCLUDED.tags,
		is_vegetarian=EXCLUDED.is_vegetarian, is_vegan=EXCLUDED.is_vegan, is_gluten_free=EXCLUDED.is_gluten_free,
		spicy_level=EXCLUDED.spicy_level, is_available=EXCLUDED.is_available, is_featured=EXCLUDED.is_featured,
		preparation_time=EXCLUDED.preparation_time`,
		m.ID, m.RestaurantID, m.Name, m.Description, m.Price, m.Image, m.Category, options, tags,
		m.IsVegetarian, m.IsVegan, m.IsGlutenFree, m.SpicyLevel, m.IsAvailable, m.IsFeatured, m.PreparationTime, m.CreatedAt)
	return err
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}

func (p *PostgresStore) GetMenuItem(ctx context.Context, id string) (*models.MenuItem, error) {
	return scanMenuItem(p.db.QueryRowContext(ctx, `SELECT `+menuColumns+` FROM menu_items WHERE id=$1`, id))
}

func (p *PostgresStore) ListMenuItems(ctx context.Context, restaurantID string) ([]*models.MenuItem, error) {
	rows, err := p.db.QueryContext(ctx, `SELECT `+menuColumns+` FROM menu_items WHERE restaurant_id=$1 ORDER BY category, name`, restaurantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]*models.MenuItem, 0)
	for rows.Next() {
		m, err := scanMenuItem(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

const userColumns = `id, name, email, password_hash, role, address, created_at`

func scanUser(row rowScanner) (*models.User, error) {
	var (
		u    models.User
		addr []byte
	)
	if err := row.Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &u.Role, &addr, &u.CreatedAt); err != nil {
		return nil, notFound(err)
	}
	if len(addr) > 0 && string(addr) != "null" {
		u.Address = &models.Address{}
		if err := json.Unmarshal(addr, u.Address); err != nil {
			return nil, fmt.Errorf("decode user address: %w", err)
		}
	}
	return &u, nil
}

func userAddress(u *models.User) ([]byte, error) {
	if u.Address == nil {
		return nil, nil
	}
	return jsonb(u.Address)
}

func (p *PostgresStore) CreateUser(ctx context.Context, u *models.User) error {
	addr, err := userAddress(u)
	if err != nil {
		return err
	}
	_, err = p.db.ExecContext(ctx, `INSERT INTO users(`+userColumns+`) VALUES($1,$2,lower($3),$4,$5,$6,$7)`,
		u.ID, u.Name, u.Email, u.PasswordHash, u.Role, addr, u.CreatedAt)
	if isUniqueViolation(err) {
		return ErrDuplicate
	}
	return err
}

func (p *PostgresStore) UpdateUser(ctx context.Context, u *models.User) error {
	addr, err := userAddress(u)
	if err != nil {
		return err
	}
	res, err := p.db.ExecContext(ctx, `UPDATE users SET name=$2, role=$3, address=$4 WHERE id=$1`, u.ID, u.Name, u.Role, addr)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

func (p *PostgresStore) GetUser(ctx context.Context, id string) (*models.User, error) {
	return scanUser(p.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id=$1`, id))
}

func (p *PostgresStore) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	return scanUser(p.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE email=lower($1)`, email))
}
