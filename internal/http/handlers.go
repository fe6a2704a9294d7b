package httpapi

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/example/food-ordering/internal/auth"
	"github.com/example/food-ordering/internal/cart"
	"github.com/example/food-ordering/internal/menu"
	"github.com/example/food-ordering/internal/models"
	"github.com/example/food-ordering/internal/orders"
	"github.com/example/food-ordering/internal/tracking"
)

// Pinger reports whether a backing service is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

type Deps struct {
	Auth        *auth.Service
	Catalog     *menu.Catalog
	Carts       cart.Backend
	Orders      *orders.Service
	Hub         *tracking.Hub
	Ready       Pinger
	CORSOrigins []string
	Logger      *slog.Logger
}

type Server struct {
	auth    *auth.Service
	catalog *menu.Catalog
	carts   cart.Backend
	orders  *orders.Service
	hub     *tracking.Hub
	ready   Pinger
	logger  *slog.Logger
	mux     *mux.Router
	handler http.Handler
}

func New(d Deps) *Server {
	s := &Server{
		auth:    d.Auth,
		catalog: d.Catalog,
		carts:   d.Carts,
		orders:  d.Orders,
		hub:     d.Hub,
		ready:   d.Ready,
		logger:  d.Logger,
		mux:     mux.NewRouter(),
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	origins := d.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	s.registerMiddleware()
	s.routes()
	s.handler = handlers.CORS(
		handlers.AllowedOrigins(origins),
		handlers.AllowedMethods([]string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions}),
		handlers.AllowedHeaders([]string{"Authorization", "Content-Type", "X-Request-ID"}),
	)(s.mux)
	return s
}

func (s *Server) routes() {
	api := s.mux.PathPrefix("/api").Subrouter()

	api.HandleFunc("/auth/register", s.handleRegister).Methods(http.MethodPost)
	api.HandleFunc("/auth/login", s.handleLogin).Methods(http.MethodPost)
	api.Handle("/auth/me", s.authed(s.handleMe)).Methods(http.MethodGet)
	api.Handle("/users/me/address", s.authed(s.handleUpdateAddress)).Methods(http.MethodPut)

	api.HandleFunc("/restaurants", s.handleListRestaurants).Methods(http.MethodGet)
	api.HandleFunc("/restaurants/{id}", s.handleGetRestaurant).Methods(http.MethodGet)
	api.Handle("/restaurants/{id}/orders", s.authed(s.handleRestaurantOrders, models.RoleRestaurant, models.RoleAdmin)).Methods(http.MethodGet)
	api.HandleFunc("/menu/restaurant/{id}", s.handleRestaurantMenu).Methods(http.MethodGet)
	api.HandleFunc("/menu/{id}", s.handleGetMenuItem).Methods(http.MethodGet)

	api.Handle("/cart", s.authed(s.handleGetCart)).Methods(http.MethodGet)
	api.Handle("/cart", s.authed(s.handleClearCart)).Methods(http.MethodDelete)
	api.Handle("/cart/items", s.authed(s.handleAddCartItem)).Methods(http.MethodPost)
	api.Handle("/cart/items/{id}", s.authed(s.handleUpdateCartItem)).Methods(http.MethodPatch)
	api.Handle("/cart/items/{id}", s.authed(s.handleRemoveCartItem)).Methods(http.MethodDelete)

	api.Handle("/orders", s.authed(s.handleCheckout)).Methods(http.MethodPost)
	api.Handle("/orders", s.authed(s.handleListOrders)).Methods(http.MethodGet)
	api.Handle("/orders/{id}", s.authed(s.handleGetOrder)).Methods(http.MethodGet)
	api.Handle("/orders/{id}/tracking", s.authed(s.handleTracking)).Methods(http.MethodGet)
	api.Handle("/orders/{id}/status", s.authed(s.handleUpdateStatus, models.RoleRestaurant, models.RoleDriver, models.RoleAdmin)).Methods(http.MethodPatch)
	api.Handle("/orders/{id}/driver", s.authed(s.handleAssignDriver, models.RoleRestaurant, models.RoleAdmin)).Methods(http.MethodPatch)
	api.Handle("/orders/{id}/cancel", s.authed(s.handleCancel)).Methods(http.MethodPost)

	s.mux.HandleFunc("/ws/orders/{id}", s.handleWS).Methods(http.MethodGet)
	s.mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200); w.Write([]byte("ok")) }).Methods(http.MethodGet)
	s.mux.HandleFunc("/ready", s.handleReady).Methods(http.MethodGet)
	s.mux.Handle("/metrics", promhttp.Handler())
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) { s.handler.ServeHTTP(w, r) }

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.ready == nil {
		w.WriteHeader(http.StatusOK)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	if err := s.ready.Ping(ctx); err != nil {
		s.logger.Warn("readiness check failed", "error", err)
		fail(w, http.StatusServiceUnavailable, "store unavailable")
		return
	}
	ok(w, http.StatusOK, map[string]string{"status": "ready"})
}

func newID() string { b := make([]byte, 8); _, _ = rand.Read(b); return hex.EncodeToString(b) }
