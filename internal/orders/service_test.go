package orders

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/example/food-ordering/internal/cart"
	"github.com/example/food-ordering/internal/menu"
	"github.com/example/food-ordering/internal/models"
	"github.com/example/food-ordering/internal/payments"
	"github.com/example/food-ordering/internal/storage"
	"github.com/example/food-ordering/internal/tracking"
)

type fakePayments struct {
	status   models.PaymentStatus
	err      error
	captured []string
	canceled []string
}

func (f *fakePayments) Authorize(_ context.Context, _ decimal.Decimal, _ string, _ models.PaymentMethod, orderID string) (payments.Result, error) {
	if f.err != nil {
		return payments.Result{}, f.err
	}
	return payments.Result{Status: f.status, Reference: "pi_" + orderID}, nil
}

func (f *fakePayments) Capture(_ context.Context, ref string) error {
	f.captured = append(f.captured, ref)
	return nil
}

func (f *fakePayments) Cancel(_ context.Context, ref string) error {
	f.canceled = append(f.canceled, ref)
	return nil
}

type recorder struct {
	mu     sync.Mutex
	events []models.OrderEvent
}

func (r *recorder) Publish(_ context.Context, ev models.OrderEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
	return nil
}

type fixture struct {
	svc      *Service
	store    *storage.MemoryStore
	carts    *cart.MemoryBackend
	payments *fakePayments
	events   *recorder
	clock    time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	f := &fixture{
		store:    storage.NewMemoryStore(),
		carts:    cart.NewMemoryBackend(),
		payments: &fakePayments{status: models.PaymentPending},
		events:   &recorder{},
		clock:    time.Date(2024, 3, 1, 18, 0, 0, 0, time.UTC),
	}
	f.store.SaveRestaurant(ctx, &models.Restaurant{ID: "r1", OwnerID: "owner", Name: "Burger Barn", IsActive: true, MinOrderAmount: dec("10")})
	f.store.SaveMenuItem(ctx, &models.MenuItem{ID: "burger", RestaurantID: "r1", Name: "Burger", Price: dec("8.99"), IsAvailable: true, PreparationTime: 20})
	f.store.CreateUser(ctx, &models.User{ID: "d1", Email: "driver@example.com", Role: models.RoleDriver})
	f.store.CreateUser(ctx, &models.User{ID: "u2", Email: "other@example.com", Role: models.RoleCustomer})

	ids := 0
	pricing := DefaultPricing()
	f.svc = NewService(Deps{
		Orders:    f.store,
		Users:     f.store,
		Catalog:   menu.NewCatalog(f.store),
		Carts:     f.carts,
		Payments:  f.payments,
		Publisher: f.events,
		Pricing:   &pricing,
		Now:       func() time.Time { f.clock = f.clock.Add(time.Minute); return f.clock },
		NewID:     func() string { ids++; return "order-" + string(rune('0'+ids)) },
	})
	return f
}

func (f *fixture) fillCart(t *testing.T, userID string, qty int) {
	t.Helper()
	c := cart.New(f.carts.Session(userID), nil)
	if _, err := c.AddItem(context.Background(), models.CartItem{ID: "burger", RestaurantID: "r1", Name: "Burger", Price: dec("8.99"), Quantity: qty}, nil); err != nil {
		t.Fatalf("fill cart: %v", err)
	}
}

func checkoutReq(method models.PaymentMethod) CheckoutRequest {
	return CheckoutRequest{
		DeliveryAddress: models.Address{Street: "1 Main St", City: "Springfield", State: "IL", ZipCode: "62701"},
		PaymentMethod:   method,
	}
}

var customer = Actor{UserID: "u1", Role: models.RoleCustomer}
var owner = Actor{UserID: "owner", Role: models.RoleRestaurant}

func TestCheckoutPlacesOrderAndClearsCart(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.fillCart(t, "u1", 2)

	o, err := f.svc.Checkout(ctx, "u1", checkoutReq(models.PaymentCreditCard))
	if err != nil {
		t.Fatalf("checkout: %v", err)
	}
	if !o.Subtotal.Equal(dec("17.98")) || o.Status != models.StatusPlaced {
		t.Fatalf("unexpected order %+v", o)
	}
	if o.PaymentIntentID != "pi_"+o.ID || o.PaymentStatus != models.PaymentPending {
		t.Fatalf("payment not recorded: %s %s", o.PaymentIntentID, o.PaymentStatus)
	}
	if o.EstimatedDeliveryTime == nil || !o.EstimatedDeliveryTime.After(o.CreatedAt) {
		t.Fatalf("expected an estimated delivery time after creation")
	}
	if _, err := f.store.GetOrder(ctx, o.ID); err != nil {
		t.Fatalf("order not persisted: %v", err)
	}
	c, _ := cart.Load(ctx, f.carts.Session("u1"), nil)
	if !c.Empty() {
		t.Fatalf("cart should be cleared after checkout")
	}
	if len(f.events.events) != 1 || f.events.events[0].Type != models.EventOrderCreated {
		t.Fatalf("expected one created event, got %+v", f.events.events)
	}
}

func TestCheckoutEmptyCart(t *testing.T) {
	f := newFixture(t)
	if _, err := f.svc.Checkout(context.Background(), "u1", checkoutReq(models.PaymentCash)); !errors.Is(err, ErrEmptyCart) {
		t.Fatalf("expected ErrEmptyCart, got %v", err)
	}
}

func TestCheckoutBelowMinimum(t *testing.T) {
	f := newFixture(t)
	f.fillCart(t, "u1", 1)
	_, err := f.svc.Checkout(context.Background(), "u1", checkoutReq(models.PaymentCash))
	var v *ValidationError
	if !errors.As(err, &v) {
		t.Fatalf("expected validation error for minimum order, got %v", err)
	}
}

func TestCheckoutRejectsUnavailableItem(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.fillCart(t, "u1", 2)
	f.store.SaveMenuItem(ctx, &models.MenuItem{ID: "burger", RestaurantID: "r1", Name: "Burger", Price: dec("8.99")})

	_, err := f.svc.Checkout(ctx, "u1", checkoutReq(models.PaymentCash))
	var v *ValidationError
	if !errors.As(err, &v) {
		t.Fatalf("expected validation error, got %v", err)
	}
	c, _ := cart.Load(ctx, f.carts.Session("u1"), nil)
	if c.Empty() {
		t.Fatalf("cart must survive a failed checkout")
	}
}

func TestCheckoutPaymentFailureSavesNothing(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.fillCart(t, "u1", 2)
	f.payments.err = errors.New("card declined")

	if _, err := f.svc.Checkout(ctx, "u1", checkoutReq(models.PaymentCreditCard)); !errors.Is(err, ErrPaymentFailed) {
		t.Fatalf("expected ErrPaymentFailed, got %v", err)
	}
	if list, _ := f.store.ListOrdersByUser(ctx, "u1"); len(list) != 0 {
		t.Fatalf("no order should be persisted, got %d", len(list))
	}
}

func TestCheckoutCashSkipsProvider(t *testing.T) {
	f := newFixture(t)
	f.fillCart(t, "u1", 2)
	f.payments.err = errors.New("should not be called")
	o, err := f.svc.Checkout(context.Background(), "u1", checkoutReq(models.PaymentCash))
	if err != nil {
		t.Fatalf("checkout: %v", err)
	}
	if o.PaymentIntentID != "" || o.PaymentStatus != models.PaymentPending {
		t.Fatalf("cash order should be pending without reference, got %+v", o)
	}
}

func placed(t *testing.T, f *fixture, method models.PaymentMethod) *models.Order {
	t.Helper()
	f.fillCart(t, "u1", 2)
	o, err := f.svc.Checkout(context.Background(), "u1", checkoutReq(method))
	if err != nil {
		t.Fatalf("checkout: %v", err)
	}
	return o
}

func TestUpdateStatusThroughDelivery(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	o := placed(t, f, models.PaymentCreditCard)

	for _, st := range []models.Status{models.StatusConfirmed, models.StatusPreparing, models.StatusReady, models.StatusOutForDelivery, models.StatusDelivered} {
		if _, err := f.svc.UpdateStatus(ctx, owner, o.ID, st); err != nil {
			t.Fatalf("%s: %v", st, err)
		}
	}
	got, _ := f.store.GetOrder(ctx, o.ID)
	if len(got.StatusHistory) != 6 {
		t.Fatalf("expected 6 history entries, got %d", len(got.StatusHistory))
	}
	if got.PaymentStatus != models.PaymentCompleted || len(f.payments.captured) != 1 {
		t.Fatalf("expected captured payment, got %s %v", got.PaymentStatus, f.payments.captured)
	}
	if got.ActualDeliveryTime == nil {
		t.Fatalf("expected actual delivery time")
	}
}

func TestUpdateStatusRejectsBackwardsAndStrangers(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	o := placed(t, f, models.PaymentCash)
	f.svc.UpdateStatus(ctx, owner, o.ID, models.StatusReady)

	if _, err := f.svc.UpdateStatus(ctx, owner, o.ID, models.StatusPreparing); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition, got %v", err)
	}
	if _, err := f.svc.UpdateStatus(ctx, customer, o.ID, models.StatusOutForDelivery); !errors.Is(err, ErrForbidden) {
		t.Fatalf("customer must not update status, got %v", err)
	}
	other := Actor{UserID: "someone", Role: models.RoleRestaurant}
	if _, err := f.svc.UpdateStatus(ctx, other, o.ID, models.StatusOutForDelivery); !errors.Is(err, ErrForbidden) {
		t.Fatalf("other restaurant must not update status, got %v", err)
	}
	got, _ := f.store.GetOrder(ctx, o.ID)
	if len(got.StatusHistory) != 2 {
		t.Fatalf("rejected updates must not touch history, got %d entries", len(got.StatusHistory))
	}
}

func TestDriverFlow(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	o := placed(t, f, models.PaymentCash)
	driver := Actor{UserID: "d1", Role: models.RoleDriver}

	if _, err := f.svc.AssignDriver(ctx, owner, o.ID, "u2"); err == nil {
		t.Fatalf("assigning a non-driver should fail")
	}
	if _, err := f.svc.AssignDriver(ctx, owner, o.ID, "d1"); err != nil {
		t.Fatalf("assign: %v", err)
	}
	if _, err := f.svc.UpdateStatus(ctx, driver, o.ID, models.StatusConfirmed); !errors.Is(err, ErrForbidden) {
		t.Fatalf("driver may not confirm, got %v", err)
	}
	f.svc.UpdateStatus(ctx, owner, o.ID, models.StatusReady)
	if _, err := f.svc.UpdateStatus(ctx, driver, o.ID, models.StatusOutForDelivery); err != nil {
		t.Fatalf("driver pickup: %v", err)
	}
	got, err := f.svc.UpdateStatus(ctx, driver, o.ID, models.StatusDelivered)
	if err != nil {
		t.Fatalf("driver delivery: %v", err)
	}
	if got.PaymentStatus != models.PaymentCompleted {
		t.Fatalf("cash should be collected on delivery, got %s", got.PaymentStatus)
	}
	if _, err := f.svc.Get(ctx, driver, o.ID); err != nil {
		t.Fatalf("assigned driver should see the order: %v", err)
	}
}

func TestCancelByCustomer(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	o := placed(t, f, models.PaymentCreditCard)

	if _, err := f.svc.Cancel(ctx, Actor{UserID: "u2", Role: models.RoleCustomer}, o.ID); !errors.Is(err, ErrForbidden) {
		t.Fatalf("only the customer may cancel, got %v", err)
	}
	got, err := f.svc.Cancel(ctx, customer, o.ID)
	if err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if got.Status != models.StatusCancelled || got.PaymentStatus != models.PaymentRefunded {
		t.Fatalf("unexpected state %s/%s", got.Status, got.PaymentStatus)
	}
	if len(f.payments.canceled) != 1 {
		t.Fatalf("expected payment hold released")
	}
}

func TestCancelAfterPreparationStarted(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	o := placed(t, f, models.PaymentCash)
	f.svc.UpdateStatus(ctx, owner, o.ID, models.StatusPreparing)
	if _, err := f.svc.Cancel(ctx, customer, o.ID); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition, got %v", err)
	}
}

func TestGetAndListAccess(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	o := placed(t, f, models.PaymentCash)

	if _, err := f.svc.Get(ctx, customer, o.ID); err != nil {
		t.Fatalf("owner get: %v", err)
	}
	if _, err := f.svc.Get(ctx, owner, o.ID); err != nil {
		t.Fatalf("restaurant get: %v", err)
	}
	if _, err := f.svc.Get(ctx, Actor{UserID: "u2", Role: models.RoleCustomer}, o.ID); !errors.Is(err, ErrForbidden) {
		t.Fatalf("stranger get should be forbidden, got %v", err)
	}
	list, err := f.svc.ListForRestaurant(ctx, owner, "r1", models.StatusPlaced)
	if err != nil || len(list) != 1 {
		t.Fatalf("expected 1 placed order, got %d (%v)", len(list), err)
	}
	if _, err := f.svc.ListForRestaurant(ctx, customer, "r1", ""); !errors.Is(err, ErrForbidden) {
		t.Fatalf("customer must not list restaurant orders, got %v", err)
	}
}

type fakeStatus struct{ snap tracking.Snapshot }

func (f fakeStatus) Get(context.Context, string) (tracking.Snapshot, bool, error) {
	return f.snap, f.snap.Status != "", nil
}

func TestTrackingPrefersFreshCache(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	o := placed(t, f, models.PaymentCash)

	snap, err := f.svc.Tracking(ctx, customer, o.ID)
	if err != nil || snap.Status != models.StatusPlaced {
		t.Fatalf("expected store fallback, got %+v %v", snap, err)
	}
	f.svc.status = fakeStatus{snap: tracking.Snapshot{OrderID: o.ID, Status: models.StatusPreparing, UpdatedAt: o.UpdatedAt.Add(time.Minute)}}
	snap, _ = f.svc.Tracking(ctx, customer, o.ID)
	if snap.Status != models.StatusPreparing {
		t.Fatalf("expected cached status, got %s", snap.Status)
	}
	f.svc.status = fakeStatus{snap: tracking.Snapshot{OrderID: o.ID, Status: models.StatusConfirmed, UpdatedAt: o.UpdatedAt.Add(-time.Hour)}}
	snap, _ = f.svc.Tracking(ctx, customer, o.ID)
	if snap.Status != models.StatusPlaced {
		t.Fatalf("stale cache should be ignored, got %s", snap.Status)
	}
}

func TestServicePricingZeroIsHonored(t *testing.T) {
	zero := Pricing{DefaultDeliveryFee: decimal.Zero, TaxRate: decimal.Zero}
	p := NewService(Deps{Pricing: &zero}).Pricing()
	if !p.DefaultDeliveryFee.IsZero() || !p.TaxRate.IsZero() {
		t.Fatalf("explicit zero pricing replaced with %s / %s", p.DefaultDeliveryFee, p.TaxRate)
	}
	items := []models.CartItem{{ID: "burger", Price: decimal.RequireFromString("8.99"), Quantity: 1}}
	if q := p.Quote(items, decimal.Zero, decimal.Zero); !q.Total.Equal(decimal.RequireFromString("8.99")) {
		t.Fatalf("total = %s, want 8.99", q.Total)
	}

	def := NewService(Deps{}).Pricing()
	if !def.DefaultDeliveryFee.Equal(decimal.RequireFromString("2.99")) || !def.TaxRate.Equal(decimal.RequireFromString("0.08")) {
		t.Fatalf("nil pricing should select the defaults, got %s / %s", def.DefaultDeliveryFee, def.TaxRate)
	}
}
