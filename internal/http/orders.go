package httpapi

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/example/food-ordering/internal/models"
	"github.com/example/food-ordering/internal/orders"
)

func (s *Server) handleCheckout(w http.ResponseWriter, r *http.Request) {
	var req orders.CheckoutRequest
	if err := decode(r, &req); err != nil {
		fail(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	o, err := s.orders.Checkout(r.Context(), actorFrom(r).UserID, req)
	if err != nil {
		s.failErr(w, r, err)
		return
	}
	ok(w, http.StatusCreated, o)
}

func (s *Server) handleListOrders(w http.ResponseWriter, r *http.Request) {
	list, err := s.orders.ListForUser(r.Context(), actorFrom(r).UserID)
	if err != nil {
		s.failErr(w, r, err)
		return
	}
	ok(w, http.StatusOK, nonNil(list))
}

func (s *Server) handleGetOrder(w http.ResponseWriter, r *http.Request) {
	o, err := s.orders.Get(r.Context(), actorFrom(r), mux.Vars(r)["id"])
	if err != nil {
		s.failErr(w, r, err)
		return
	}
	ok(w, http.StatusOK, o)
}

func (s *Server) handleTracking(w http.ResponseWriter, r *http.Request) {
	snap, err := s.orders.Tracking(r.Context(), actorFrom(r), mux.Vars(r)["id"])
	if err != nil {
		s.failErr(w, r, err)
		return
	}
	ok(w, http.StatusOK, snap)
}

func (s *Server) handleUpdateStatus(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Status models.Status `json:"status"`
	}
	if err := decode(r, &req); err != nil {
		fail(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	o, err := s.orders.UpdateStatus(r.Context(), actorFrom(r), mux.Vars(r)["id"], req.Status)
	if err != nil {
		s.failErr(w, r, err)
		return
	}
	ok(w, http.StatusOK, o)
}

func (s *Server) handleAssignDriver(w http.ResponseWriter, r *http.Request) {
	var req struct {
		DriverID string `json:"driverId"`
	}
	if err := decode(r, &req); err != nil {
		fail(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.DriverID == "" {
		fail(w, http.StatusBadRequest, "driverId is required")
		return
	}
	o, err := s.orders.AssignDriver(r.Context(), actorFrom(r), mux.Vars(r)["id"], req.DriverID)
	if err != nil {
		s.failErr(w, r, err)
		return
	}
	ok(w, http.StatusOK, o)
}

func (s *Server) handleCancel(w http.ResponseWriter, r *http.Request) {
	o, err := s.orders.Cancel(r.Context(), actorFrom(r), mux.Vars(r)["id"])
	if err != nil {
		s.failErr(w, r, err)
		return
	}
	ok(w, http.StatusOK, o)
}

// handleRestaurantOrders lists a restaurant's orders, optionally filtered by ?status=.
func (s *Server) handleRestaurantOrders(w http.ResponseWriter, r *http.Request) {
	status := models.Status(r.URL.Query().Get("status"))
	if status != "" && !status.Valid() {
		fail(w, http.StatusBadRequest, "unknown status "+string(status))
		return
	}
	list, err := s.orders.ListForRestaurant(r.Context(), actorFrom(r), mux.Vars(r)["id"], status)
	if err != nil {
		s.failErr(w, r, err)
		return
	}
	ok(w, http.StatusOK, nonNil(list))
}

func nonNil(list []*models.Order) []*models.Order {
	if list == nil {
		return []*models.Order{}
	}
	return list
}
