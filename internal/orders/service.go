package orders

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/example/food-ordering/internal/cart"
	"github.com/example/food-ordering/internal/eta"
	"github.com/example/food-ordering/internal/menu"
	"github.com/example/food-ordering/internal/models"
	"github.com/example/food-ordering/internal/observability"
	"github.com/example/food-ordering/internal/payments"
	"github.com/example/food-ordering/internal/storage"
	"github.com/example/food-ordering/internal/tracking"
)

var ErrPaymentFailed = errors.New("payment authorization failed")

type Publisher interface {
	Publish(ctx context.Context, ev models.OrderEvent) error
}

type Notifier interface {
	Notify(ev models.OrderEvent)
}

// StatusReader returns the cached tracking status of an order.
type StatusReader interface {
	Get(ctx context.Context, orderID string) (tracking.Snapshot, bool, error)
}

// Actor is the authenticated caller of a service operation.
type Actor struct {
	UserID string
	Role   models.Role
}

type CheckoutRequest struct {
	DeliveryAddress models.Address       `json:"deliveryAddress"`
	PaymentMethod   models.PaymentMethod `json:"paymentMethod"`
	Tip             decimal.Decimal      `json:"tip"`
}

type Deps struct {
	Orders    storage.OrderStore
	Users     storage.UserStore
	Catalog   *menu.Catalog
	Carts     cart.Backend
	Payments  payments.Provider
	Publisher Publisher
	Notifier  Notifier
	Status    StatusReader
	Estimator *eta.Estimator
	Pricing   *Pricing // nil selects DefaultPricing
	Currency  string
	Log       *slog.Logger
	Now       func() time.Time
	NewID     func() string
}

type Service struct {
	orders    storage.OrderStore
	users     storage.UserStore
	catalog   *menu.Catalog
	carts     cart.Backend
	payments  payments.Provider
	publisher Publisher
	notifier  Notifier
	status    StatusReader
	estimator *eta.Estimator
	pricing   Pricing
	currency  string
	log       *slog.Logger
	now       func() time.Time
	newID     func() string
}

func NewService(d Deps) *Service {
	s := &Service{
		orders:    d.Orders,
		users:     d.Users,
		catalog:   d.Catalog,
		carts:     d.Carts,
		payments:  d.Payments,
		publisher: d.Publisher,
		notifier:  d.Notifier,
		status:    d.Status,
		estimator: d.Estimator,
		pricing:   DefaultPricing(),
		currency:  d.Currency,
		log:       d.Log,
		now:       d.Now,
		newID:     d.NewID,
	}
	if s.payments == nil {
		s.payments = payments.Offline{}
	}
	if s.log == nil {
		s.log = slog.Default()
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.newID == nil {
		s.newID = func() string { return uuid.NewString() }
	}
	if s.currency == "" {
		s.currency = "usd"
	}
	if s.estimator == nil {
		s.estimator = eta.NewEstimator(nil, 30*time.Minute, s.log)
	}
	if d.Pricing != nil {
		s.pricing = *d.Pricing
	}
	return s
}

func (s *Service) Pricing() Pricing { return s.pricing }

// Checkout turns the user's cart into a placed order. The cart is checked
// against the catalog first; nothing is persisted when validation or payment
// authorization fails.
func (s *Service) Checkout(ctx context.Context, userID string, req CheckoutRequest) (*models.Order, error) {
	c, err := cart.Load(ctx, s.carts.Session(userID), s.log)
	if err != nil {
		return nil, err
	}
	if c.Empty() {
		return nil, ErrEmptyCart
	}
	restaurant, items, err := s.reconcile(ctx, c)
	if err != nil {
		return nil, err
	}

	now := s.now()
	o, err := NewFromCart(s.newID(), Input{
		UserID:          userID,
		RestaurantID:    restaurant.ID,
		Items:           c.Items(),
		DeliveryAddress: req.DeliveryAddress,
		PaymentMethod:   req.PaymentMethod,
		Tip:             req.Tip,
		RestaurantFee:   restaurant.DeliveryFee,
	}, s.pricing, now)
	if err != nil {
		return nil, err
	}
	if o.Subtotal.LessThan(restaurant.MinOrderAmount) {
		return nil, &ValidationError{Problems: []string{
			fmt.Sprintf("minimum order for %s is %s", restaurant.Name, restaurant.MinOrderAmount.StringFixed(2)),
		}}
	}

	if err := s.authorize(ctx, o); err != nil {
		return nil, err
	}

	est := s.estimator.Estimate(ctx, eta.PreparationMinutes(items), restaurant.Address.Coordinates, o.DeliveryAddress.Coordinates, now)
	o.EstimatedDeliveryTime = &est

	if err := s.orders.SaveOrder(ctx, o); err != nil {
		if o.PaymentIntentID != "" {
			if cerr := s.payments.Cancel(ctx, o.PaymentIntentID); cerr != nil {
				s.log.Error("release payment hold", "order_id", o.ID, "error", cerr)
			}
		}
		return nil, fmt.Errorf("save order: %w", err)
	}
	if err := c.Clear(ctx); err != nil {
		s.log.Warn("clear cart after checkout", "user_id", userID, "error", err)
	}

	observability.OrdersCreated.Inc()
	observability.StatusTransitions.WithLabelValues(string(o.Status)).Inc()
	s.log.Info("order placed", "order_id", o.ID, "restaurant_id", o.RestaurantID, "total", o.TotalAmount.StringFixed(2))
	s.emit(ctx, o, models.EventOrderCreated)
	return o, nil
}

func (s *Service) reconcile(ctx context.Context, c *cart.Cart) (*models.Restaurant, []*models.MenuItem, error) {
	v := &ValidationError{}
	restaurant, err := s.catalog.GetRestaurant(ctx, c.RestaurantID())
	if errors.Is(err, storage.ErrNotFound) {
		v.add("restaurant no longer exists")
		return nil, nil, v
	}
	if err != nil {
		return nil, nil, err
	}
	if !restaurant.IsActive {
		v.add(restaurant.Name + " is not accepting orders")
	}
	items := make([]*models.MenuItem, 0, len(c.Items()))
	for _, line := range c.Items() {
		item, err := s.catalog.Get(ctx, line.ID)
		switch {
		case errors.Is(err, storage.ErrNotFound):
			v.add("item " + line.ID + " no longer exists")
			continue
		case err != nil:
			return nil, nil, err
		}
		if item.RestaurantID != restaurant.ID {
			v.add(item.Name + " is not on this restaurant's menu")
		}
		if !item.IsAvailable {
			v.add(item.Name + " is not available")
		}
		items = append(items, item)
	}
	if err := v.orNil(); err != nil {
		return nil, nil, err
	}
	return restaurant, items, nil
}

func (s *Service) authorize(ctx context.Context, o *models.Order) error {
	if o.PaymentMethod == models.PaymentCash {
		o.PaymentStatus = models.PaymentPending
		observability.PaymentAuths.WithLabelValues(string(o.PaymentStatus)).Inc()
		return nil
	}
	res, err := s.payments.Authorize(ctx, o.TotalAmount, s.currency, o.PaymentMethod, o.ID)
	if err == nil && res.Status == models.PaymentFailed {
		err = errors.New("declined")
	}
	if err != nil {
		o.PaymentStatus = models.PaymentFailed
		observability.PaymentAuths.WithLabelValues(string(models.PaymentFailed)).Inc()
		s.log.Warn("payment authorization failed", "order_id", o.ID, "error", err)
		return fmt.Errorf("%w: %v", ErrPaymentFailed, err)
	}
	o.PaymentStatus = res.Status
	o.PaymentIntentID = res.Reference
	observability.PaymentAuths.WithLabelValues(string(res.Status)).Inc()
	return nil
}

// Get returns an order visible to actor.
func (s *Service) Get(ctx context.Context, actor Actor, id string) (*models.Order, error) {
	o, err := s.orders.GetOrder(ctx, id)
	if err != nil {
		return nil, err
	}
	ok, err := s.canView(ctx, actor, o)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrForbidden
	}
	return o, nil
}

func (s *Service) ListForUser(ctx context.Context, userID string) ([]*models.Order, error) {
	return s.orders.ListOrdersByUser(ctx, userID)
}

// ListForRestaurant lists a restaurant's orders, optionally for one status.
func (s *Service) ListForRestaurant(ctx context.Context, actor Actor, restaurantID string, status models.Status) ([]*models.Order, error) {
	if status != "" && !status.Valid() {
		return nil, &ValidationError{Problems: []string{"unknown status " + string(status)}}
	}
	owns, err := s.ownsRestaurant(ctx, actor, restaurantID)
	if err != nil {
		return nil, err
	}
	if !owns {
		return nil, ErrForbidden
	}
	return s.orders.ListOrdersByRestaurant(ctx, restaurantID, status)
}

// Tracking reports the latest status, preferring the shared cache.
func (s *Service) Tracking(ctx context.Context, actor Actor, id string) (tracking.Snapshot, error) {
	o, err := s.Get(ctx, actor, id)
	if err != nil {
		return tracking.Snapshot{}, err
	}
	if s.status != nil {
		snap, ok, err := s.status.Get(ctx, id)
		if err != nil {
			s.log.Warn("status cache read", "order_id", id, "error", err)
		} else if ok && !snap.UpdatedAt.Before(o.UpdatedAt) {
			return snap, nil
		}
	}
	return tracking.Snapshot{OrderID: o.ID, Status: o.Status, UpdatedAt: o.UpdatedAt}, nil
}

// UpdateStatus advances an order on behalf of restaurant staff, a driver or an admin.
func (s *Service) UpdateStatus(ctx context.Context, actor Actor, id string, status models.Status) (*models.Order, error) {
	if !status.Valid() {
		return nil, &ValidationError{Problems: []string{"unknown status " + string(status)}}
	}
	o, err := s.orders.GetOrder(ctx, id)
	if err != nil {
		return nil, err
	}
	ok, err := s.canUpdate(ctx, actor, o, status)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrForbidden
	}
	if !CanTransition(o.Status, status) {
		return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, o.Status, status)
	}
	if err := s.apply(ctx, o, status); err != nil {
		return nil, err
	}
	return o, nil
}

// Cancel lets the ordering customer withdraw an order that the kitchen has not started.
func (s *Service) Cancel(ctx context.Context, actor Actor, id string) (*models.Order, error) {
	o, err := s.orders.GetOrder(ctx, id)
	if err != nil {
		return nil, err
	}
	if o.UserID != actor.UserID && actor.Role != models.RoleAdmin {
		return nil, ErrForbidden
	}
	if !CustomerCancellable(o.Status) {
		return nil, fmt.Errorf("%w: order is already %s", ErrInvalidTransition, o.Status)
	}
	if err := s.apply(ctx, o, models.StatusCancelled); err != nil {
		return nil, err
	}
	return o, nil
}

func (s *Service) apply(ctx context.Context, o *models.Order, status models.Status) error {
	if !Transition(o, status, s.now()) {
		return nil
	}
	s.settlePayment(ctx, o)
	if err := s.orders.UpdateOrder(ctx, o); err != nil {
		return fmt.Errorf("update order: %w", err)
	}
	observability.StatusTransitions.WithLabelValues(string(status)).Inc()
	s.log.Info("order status changed", "order_id", o.ID, "status", status)
	s.emit(ctx, o, models.EventOrderStatusChanged)
	return nil
}

// settlePayment captures on delivery and releases the hold on cancellation.
// Provider errors leave the payment status as it was.
func (s *Service) settlePayment(ctx context.Context, o *models.Order) {
	switch o.Status {
	case models.StatusDelivered:
		if o.PaymentMethod == models.PaymentCash {
			o.PaymentStatus = models.PaymentCompleted
			return
		}
		if o.PaymentIntentID == "" || o.PaymentStatus != models.PaymentPending {
			return
		}
		if err := s.payments.Capture(ctx, o.PaymentIntentID); err != nil {
			s.log.Error("capture payment", "order_id", o.ID, "error", err)
			return
		}
		o.PaymentStatus = models.PaymentCompleted
	case models.StatusCancelled:
		if o.PaymentIntentID == "" {
			return
		}
		if err := s.payments.Cancel(ctx, o.PaymentIntentID); err != nil {
			s.log.Error("cancel payment", "order_id", o.ID, "error", err)
			return
		}
		o.PaymentStatus = models.PaymentRefunded
	}
}

// AssignDriver attaches a driver account to an order that is still in progress.
func (s *Service) AssignDriver(ctx context.Context, actor Actor, id, driverID string) (*models.Order, error) {
	o, err := s.orders.GetOrder(ctx, id)
	if err != nil {
		return nil, err
	}
	owns, err := s.ownsRestaurant(ctx, actor, o.RestaurantID)
	if err != nil {
		return nil, err
	}
	if !owns {
		return nil, ErrForbidden
	}
	if o.Status.Terminal() {
		return nil, fmt.Errorf("%w: order is already %s", ErrInvalidTransition, o.Status)
	}
	driver, err := s.users.GetUser(ctx, driverID)
	if errors.Is(err, storage.ErrNotFound) || (err == nil && driver.Role != models.RoleDriver) {
		return nil, &ValidationError{Problems: []string{"driver " + driverID + " does not exist"}}
	}
	if err != nil {
		return nil, err
	}
	o.DriverID = driver.ID
	o.UpdatedAt = s.now()
	if err := s.orders.UpdateOrder(ctx, o); err != nil {
		return nil, fmt.Errorf("update order: %w", err)
	}
	s.log.Info("driver assigned", "order_id", o.ID, "driver_id", driver.ID)
	s.emit(ctx, o, models.EventDriverAssigned)
	return o, nil
}

func (s *Service) ownsRestaurant(ctx context.Context, actor Actor, restaurantID string) (bool, error) {
	switch actor.Role {
	case models.RoleAdmin:
		return true, nil
	case models.RoleRestaurant:
		r, err := s.catalog.GetRestaurant(ctx, restaurantID)
		if errors.Is(err, storage.ErrNotFound) {
			return false, nil
		}
		if err != nil {
			return false, err
		}
		return r.OwnerID == actor.UserID, nil
	}
	return false, nil
}

func (s *Service) canView(ctx context.Context, actor Actor, o *models.Order) (bool, error) {
	if o.UserID == actor.UserID {
		return true, nil
	}
	if actor.Role == models.RoleDriver && o.DriverID == actor.UserID {
		return true, nil
	}
	return s.ownsRestaurant(ctx, actor, o.RestaurantID)
}

// drivers move their own orders through the last two steps
func (s *Service) canUpdate(ctx context.Context, actor Actor, o *models.Order, to models.Status) (bool, error) {
	if actor.Role == models.RoleDriver {
		return o.DriverID == actor.UserID && (to == models.StatusOutForDelivery || to == models.StatusDelivered), nil
	}
	return s.ownsRestaurant(ctx, actor, o.RestaurantID)
}

func (s *Service) emit(ctx context.Context, o *models.Order, typ string) {
	ev := models.OrderEvent{
		Type:         typ,
		OrderID:      o.ID,
		RestaurantID: o.RestaurantID,
		UserID:       o.UserID,
		Status:       o.Status,
		DriverID:     o.DriverID,
		Timestamp:    o.UpdatedAt,
	}
	if s.notifier != nil {
		s.notifier.Notify(ev)
	}
	if s.publisher != nil {
		if err := s.publisher.Publish(ctx, ev); err != nil {
			s.log.Warn("publish order event", "order_id", o.ID, "type", typ, "error", err)
		}
	}
}
