package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/shopspring/decimal"

	"github.com/example/food-ordering/internal/auth"
	"github.com/example/food-ordering/internal/cart"
	"github.com/example/food-ordering/internal/menu"
	"github.com/example/food-ordering/internal/models"
	"github.com/example/food-ordering/internal/orders"
	"github.com/example/food-ordering/internal/storage"
	"github.com/example/food-ordering/internal/tracking"
)

type testEnv struct {
	srv    *Server
	store  *storage.MemoryStore
	tokens *auth.Tokens
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	ctx := context.Background()
	store := storage.NewMemoryStore()
	store.SaveRestaurant(ctx, &models.Restaurant{ID: "r1", OwnerID: "owner", Name: "Burger Barn", IsActive: true})
	store.SaveRestaurant(ctx, &models.Restaurant{ID: "r2", OwnerID: "other-owner", Name: "Fry Shack", IsActive: true})
	store.SaveMenuItem(ctx, &models.MenuItem{ID: "burger", RestaurantID: "r1", Name: "Burger", Price: decimal.RequireFromString("8.99"), IsAvailable: true})
	store.SaveMenuItem(ctx, &models.MenuItem{ID: "fries", RestaurantID: "r2", Name: "Fries", Price: decimal.RequireFromString("3.49"), IsAvailable: true})
	store.CreateUser(ctx, &models.User{ID: "u1", Name: "Ada", Email: "ada@example.com", Role: models.RoleCustomer})

	tokens := auth.NewTokens("test-secret", time.Hour)
	catalog := menu.NewCatalog(store)
	carts := cart.NewMemoryBackend()
	hub := tracking.NewHub(nil)
	svc := orders.NewService(orders.Deps{
		Orders:   store,
		Users:    store,
		Catalog:  catalog,
		Carts:    carts,
		Notifier: hub,
	})
	srv := New(Deps{
		Auth:    auth.NewService(store, tokens),
		Catalog: catalog,
		Carts:   carts,
		Orders:  svc,
		Hub:     hub,
		Ready:   store,
	})
	return &testEnv{srv: srv, store: store, tokens: tokens}
}

func (e *testEnv) token(t *testing.T, id string, role models.Role) string {
	t.Helper()
	tok, err := e.tokens.Issue(&models.User{ID: id, Role: role})
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}
	return tok
}

func (e *testEnv) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.srv.ServeHTTP(rec, req)
	return rec
}

type testEnvelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Message string          `json:"message"`
}

func readData(t *testing.T, rec *httptest.ResponseRecorder, want int, v any) testEnvelope {
	t.Helper()
	if rec.Code != want {
		t.Fatalf("status = %d, want %d, body %s", rec.Code, want, rec.Body.String())
	}
	var env testEnvelope
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode envelope: %v (%s)", err, rec.Body.String())
	}
	if v != nil {
		if err := json.Unmarshal(env.Data, v); err != nil {
			t.Fatalf("decode data: %v", err)
		}
	}
	return env
}

type testCart struct {
	RestaurantID string            `json:"restaurantId"`
	Items        []models.CartItem `json:"items"`
	Subtotal     decimal.Decimal   `json:"subtotal"`
	DeliveryFee  decimal.Decimal   `json:"deliveryFee"`
	Tax          decimal.Decimal   `json:"tax"`
	Total        decimal.Decimal   `json:"totalAmount"`
}

func TestHealthAndReady(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(t, http.MethodGet, "/healthz", "", nil)
	if rec.Code != http.StatusOK || rec.Body.String() != "ok" {
		t.Fatalf("healthz = %d %q", rec.Code, rec.Body.String())
	}
	if rec.Header().Get("X-Request-ID") == "" {
		t.Fatalf("expected a generated request id")
	}
	readData(t, env.do(t, http.MethodGet, "/ready", "", nil), http.StatusOK, nil)
}

func TestRegisterLoginAndMe(t *testing.T) {
	env := newTestEnv(t)
	body := map[string]string{"name": "Grace", "email": "Grace@Example.com", "password": "secret123"}

	var reg authResponse
	readData(t, env.do(t, http.MethodPost, "/api/auth/register", "", body), http.StatusCreated, &reg)
	if reg.Token == "" || reg.User.Email != "grace@example.com" || reg.User.Role != models.RoleCustomer {
		t.Fatalf("unexpected registration %+v", reg.User)
	}
	if strings.Contains(env.do(t, http.MethodGet, "/api/auth/me", reg.Token, nil).Body.String(), "secret123") {
		t.Fatalf("password leaked")
	}

	dup := readData(t, env.do(t, http.MethodPost, "/api/auth/register", "", body), http.StatusConflict, nil)
	if dup.Success {
		t.Fatalf("duplicate registration should fail")
	}

	var login authResponse
	readData(t, env.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{"email": "grace@example.com", "password": "secret123"}), http.StatusOK, &login)

	var me models.User
	readData(t, env.do(t, http.MethodGet, "/api/auth/me", login.Token, nil), http.StatusOK, &me)
	if me.ID != reg.User.ID {
		t.Fatalf("me = %q, want %q", me.ID, reg.User.ID)
	}

	readData(t, env.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{"email": "grace@example.com", "password": "wrong"}), http.StatusUnauthorized, nil)
}

func TestProtectedRoutesNeedToken(t *testing.T) {
	env := newTestEnv(t)
	readData(t, env.do(t, http.MethodGet, "/api/cart", "", nil), http.StatusUnauthorized, nil)
	readData(t, env.do(t, http.MethodGet, "/api/cart", "garbage", nil), http.StatusUnauthorized, nil)

	customer := env.token(t, "u1", models.RoleCustomer)
	readData(t, env.do(t, http.MethodGet, "/api/restaurants/r1/orders", customer, nil), http.StatusForbidden, nil)
}

func TestCatalogRoutes(t *testing.T) {
	env := newTestEnv(t)
	var rs []models.Restaurant
	readData(t, env.do(t, http.MethodGet, "/api/restaurants", "", nil), http.StatusOK, &rs)
	if len(rs) != 2 {
		t.Fatalf("restaurants = %d, want 2", len(rs))
	}
	var items []models.MenuItem
	readData(t, env.do(t, http.MethodGet, "/api/menu/restaurant/r1", "", nil), http.StatusOK, &items)
	if len(items) != 1 || items[0].ID != "burger" {
		t.Fatalf("unexpected menu %+v", items)
	}
	readData(t, env.do(t, http.MethodGet, "/api/menu/nope", "", nil), http.StatusNotFound, nil)
	readData(t, env.do(t, http.MethodGet, "/api/menu/restaurant/nope", "", nil), http.StatusNotFound, nil)
}

func TestCartFlow(t *testing.T) {
	env := newTestEnv(t)
	tok := env.token(t, "u1", models.RoleCustomer)

	var c testCart
	readData(t, env.do(t, http.MethodPost, "/api/cart/items", tok, map[string]any{"menuItemId": "burger", "quantity": 2}), http.StatusOK, &c)
	if len(c.Items) != 1 || c.Items[0].Quantity != 2 {
		t.Fatalf("unexpected cart %+v", c.Items)
	}
	if !c.Subtotal.Equal(decimal.RequireFromString("17.98")) || !c.DeliveryFee.Equal(decimal.RequireFromString("2.99")) ||
		!c.Tax.Equal(decimal.RequireFromString("1.44")) || !c.Total.Equal(decimal.RequireFromString("22.41")) {
		t.Fatalf("unexpected totals %s %s %s %s", c.Subtotal, c.DeliveryFee, c.Tax, c.Total)
	}

	conflict := readData(t, env.do(t, http.MethodPost, "/api/cart/items", tok, map[string]any{"menuItemId": "fries"}), http.StatusConflict, nil)
	if conflict.Message != cart.ErrDifferentRestaurant.Error() {
		t.Fatalf("message = %q", conflict.Message)
	}

	readData(t, env.do(t, http.MethodPost, "/api/cart/items", tok, map[string]any{"menuItemId": "fries", "confirmReplace": true}), http.StatusOK, &c)
	if c.RestaurantID != "r2" || len(c.Items) != 1 || c.Items[0].ID != "fries" {
		t.Fatalf("cart not replaced: %+v", c)
	}

	readData(t, env.do(t, http.MethodPatch, "/api/cart/items/fries", tok, map[string]int{"quantity": 3}), http.StatusOK, &c)
	if c.Items[0].Quantity != 3 {
		t.Fatalf("quantity = %d, want 3", c.Items[0].Quantity)
	}
	readData(t, env.do(t, http.MethodPatch, "/api/cart/items/fries", tok, map[string]int{"quantity": 0}), http.StatusOK, &c)
	if c.Items[0].Quantity != 3 {
		t.Fatalf("zero quantity should be ignored, got %d", c.Items[0].Quantity)
	}

	readData(t, env.do(t, http.MethodDelete, "/api/cart/items/fries", tok, nil), http.StatusOK, &c)
	if len(c.Items) != 0 || !c.DeliveryFee.IsZero() {
		t.Fatalf("expected empty cart without fee, got %+v", c)
	}
}

func placeOrder(t *testing.T, env *testEnv, tok string) models.Order {
	t.Helper()
	readData(t, env.do(t, http.MethodPost, "/api/cart/items", tok, map[string]any{"menuItemId": "burger", "quantity": 2}), http.StatusOK, nil)
	var o models.Order
	readData(t, env.do(t, http.MethodPost, "/api/orders", tok, map[string]any{
		"deliveryAddress": map[string]string{"street": "1 Main St", "city": "Springfield", "state": "IL", "zipCode": "62701"},
		"paymentMethod":   "cash",
	}), http.StatusCreated, &o)
	return o
}

func TestCheckoutAndStatusUpdates(t *testing.T) {
	env := newTestEnv(t)
	tok := env.token(t, "u1", models.RoleCustomer)
	ownerTok := env.token(t, "owner", models.RoleRestaurant)
	strangerTok := env.token(t, "other-owner", models.RoleRestaurant)

	o := placeOrder(t, env, tok)
	if o.Status != models.StatusPlaced || !o.TotalAmount.Equal(decimal.RequireFromString("22.41")) {
		t.Fatalf("unexpected order %+v", o)
	}

	var c testCart
	readData(t, env.do(t, http.MethodGet, "/api/cart", tok, nil), http.StatusOK, &c)
	if len(c.Items) != 0 {
		t.Fatalf("cart should be cleared after checkout")
	}

	var list []models.Order
	readData(t, env.do(t, http.MethodGet, "/api/orders", tok, nil), http.StatusOK, &list)
	if len(list) != 1 || list[0].ID != o.ID {
		t.Fatalf("unexpected order list %+v", list)
	}

	path := "/api/orders/" + o.ID + "/status"
	readData(t, env.do(t, http.MethodPatch, path, strangerTok, map[string]string{"status": "confirmed"}), http.StatusForbidden, nil)
	readData(t, env.do(t, http.MethodPatch, path, ownerTok, map[string]string{"status": "bogus"}), http.StatusBadRequest, nil)

	var updated models.Order
	readData(t, env.do(t, http.MethodPatch, path, ownerTok, map[string]string{"status": "preparing"}), http.StatusOK, &updated)
	if updated.Status != models.StatusPreparing || len(updated.StatusHistory) != 2 {
		t.Fatalf("unexpected update %+v", updated)
	}
	readData(t, env.do(t, http.MethodPatch, path, ownerTok, map[string]string{"status": "confirmed"}), http.StatusConflict, nil)
	readData(t, env.do(t, http.MethodPost, "/api/orders/"+o.ID+"/cancel", tok, nil), http.StatusConflict, nil)

	var byRestaurant []models.Order
	readData(t, env.do(t, http.MethodGet, "/api/restaurants/r1/orders?status=preparing", ownerTok, nil), http.StatusOK, &byRestaurant)
	if len(byRestaurant) != 1 {
		t.Fatalf("restaurant orders = %d, want 1", len(byRestaurant))
	}

	var snap tracking.Snapshot
	readData(t, env.do(t, http.MethodGet, "/api/orders/"+o.ID+"/tracking", tok, nil), http.StatusOK, &snap)
	if snap.Status != models.StatusPreparing {
		t.Fatalf("tracking status = %q", snap.Status)
	}
	readData(t, env.do(t, http.MethodGet, "/api/orders/"+o.ID, strangerTok, nil), http.StatusForbidden, nil)
}

func TestCheckoutEmptyCart(t *testing.T) {
	env := newTestEnv(t)
	tok := env.token(t, "u1", models.RoleCustomer)
	res := readData(t, env.do(t, http.MethodPost, "/api/orders", tok, map[string]any{"paymentMethod": "cash"}), http.StatusBadRequest, nil)
	if res.Success || res.Message == "" {
		t.Fatalf("expected failure message, got %+v", res)
	}
}

func TestCORSPreflight(t *testing.T) {
	env := newTestEnv(t)
	req := httptest.NewRequest(http.MethodOptions, "/api/cart", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", http.MethodGet)
	rec := httptest.NewRecorder()
	env.srv.ServeHTTP(rec, req)
	if rec.Header().Get("Access-Control-Allow-Origin") == "" {
		t.Fatalf("missing CORS header, status %d", rec.Code)
	}
}

func TestTrackingWebsocket(t *testing.T) {
	env := newTestEnv(t)
	tok := env.token(t, "u1", models.RoleCustomer)
	ownerTok := env.token(t, "owner", models.RoleRestaurant)
	o := placeOrder(t, env, tok)

	ts := httptest.NewServer(env.srv)
	defer ts.Close()
	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws/orders/" + o.ID

	if _, resp, err := websocket.DefaultDialer.Dial(wsURL+"?token=bad", nil); err == nil {
		t.Fatalf("expected bad token to be rejected")
	} else if resp != nil && resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", resp.StatusCode)
	}

	conn, _, err := websocket.DefaultDialer.Dial(wsURL+"?token="+tok, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))

	var snap tracking.Snapshot
	if err := conn.ReadJSON(&snap); err != nil {
		t.Fatalf("read snapshot: %v", err)
	}
	if snap.OrderID != o.ID || snap.Status != models.StatusPlaced {
		t.Fatalf("unexpected snapshot %+v", snap)
	}

	deadline := time.Now().Add(time.Second)
	for env.srv.hub.Subscribers(o.ID) == 0 {
		if time.Now().After(deadline) {
			t.Fatalf("subscription never registered")
		}
		time.Sleep(5 * time.Millisecond)
	}

	readData(t, env.do(t, http.MethodPatch, "/api/orders/"+o.ID+"/status", ownerTok, map[string]string{"status": "confirmed"}), http.StatusOK, nil)

	var ev models.OrderEvent
	if err := conn.ReadJSON(&ev); err != nil {
		t.Fatalf("read event: %v", err)
	}
	if ev.Type != models.EventOrderStatusChanged || ev.Status != models.StatusConfirmed {
		t.Fatalf("unexpected event %+v", ev)
	}
}
