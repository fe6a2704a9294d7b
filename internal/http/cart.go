package httpapi

import (
	"errors"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"

	"github.com/example/food-ordering/internal/cart"
	"github.com/example/food-ordering/internal/menu"
	"github.com/example/food-ordering/internal/models"
	"github.com/example/food-ordering/internal/orders"
	"github.com/example/food-ordering/internal/storage"
)

type cartView struct {
	RestaurantID string            `json:"restaurantId,omitempty"`
	Items        []models.CartItem `json:"items"`
	orders.Totals
}

func (s *Server) loadCart(r *http.Request) (*cart.Cart, error) {
	return cart.Load(r.Context(), s.carts.Session(actorFrom(r).UserID), s.logger)
}

func (s *Server) viewCart(r *http.Request, c *cart.Cart) (cartView, error) {
	fee := decimal.Zero
	if rid := c.RestaurantID(); rid != "" && !c.Empty() {
		rest, err := s.catalog.GetRestaurant(r.Context(), rid)
		switch {
		case err == nil:
			fee = rest.DeliveryFee
		case !errors.Is(err, storage.ErrNotFound):
			return cartView{}, err
		}
	}
	items := c.Items()
	if items == nil {
		items = []models.CartItem{}
	}
	return cartView{
		RestaurantID: c.RestaurantID(),
		Items:        items,
		Totals:       s.orders.Pricing().Quote(items, fee, decimal.Zero),
	}, nil
}

func (s *Server) respondCart(w http.ResponseWriter, r *http.Request, c *cart.Cart) {
	v, err := s.viewCart(r, c)
	if err != nil {
		s.failErr(w, r, err)
		return
	}
	ok(w, http.StatusOK, v)
}

func (s *Server) handleGetCart(w http.ResponseWriter, r *http.Request) {
	c, err := s.loadCart(r)
	if err != nil {
		s.failErr(w, r, err)
		return
	}
	s.respondCart(w, r, c)
}

type addItemRequest struct {
	MenuItemID          string           `json:"menuItemId"`
	Quantity            int              `json:"quantity"`
	Options             []menu.Selection `json:"options"`
	SpecialInstructions string           `json:"specialInstructions"`
	ConfirmReplace      bool             `json:"confirmReplace"`
}

func (s *Server) handleAddCartItem(w http.ResponseWriter, r *http.Request) {
	var req addItemRequest
	if err := decode(r, &req); err != nil {
		fail(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.MenuItemID == "" {
		fail(w, http.StatusBadRequest, "menuItemId is required")
		return
	}
	if req.Quantity == 0 {
		req.Quantity = 1
	}
	item, err := s.catalog.Get(r.Context(), req.MenuItemID)
	if err != nil {
		s.failErr(w, r, err)
		return
	}
	line, err := menu.BuildCartItem(item, req.Quantity, req.Options, req.SpecialInstructions)
	if err != nil {
		s.failErr(w, r, err)
		return
	}
	c, err := s.loadCart(r)
	if err != nil {
		s.failErr(w, r, err)
		return
	}
	var confirm cart.Confirm
	if req.ConfirmReplace {
		confirm = cart.Replace
	}
	added, err := c.AddItem(r.Context(), line, confirm)
	if err != nil {
		s.failErr(w, r, err)
		return
	}
	if !added {
		s.failErr(w, r, cart.ErrDifferentRestaurant)
		return
	}
	s.respondCart(w, r, c)
}

func (s *Server) handleUpdateCartItem(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Quantity int `json:"quantity"`
	}
	if err := decode(r, &req); err != nil {
		fail(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	c, err := s.loadCart(r)
	if err != nil {
		s.failErr(w, r, err)
		return
	}
	if err := c.UpdateQuantity(r.Context(), mux.Vars(r)["id"], req.Quantity); err != nil {
		s.failErr(w, r, err)
		return
	}
	s.respondCart(w, r, c)
}

func (s *Server) handleRemoveCartItem(w http.ResponseWriter, r *http.Request) {
	c, err := s.loadCart(r)
	if err != nil {
		s.failErr(w, r, err)
		return
	}
	if err := c.RemoveItem(r.Context(), mux.Vars(r)["id"]); err != nil {
		s.failErr(w, r, err)
		return
	}
	s.respondCart(w, r, c)
}

func (s *Server) handleClearCart(w http.ResponseWriter, r *http.Request) {
	c, err := s.loadCart(r)
	if err != nil {
		s.failErr(w, r, err)
		return
	}
	if err := c.Clear(r.Context()); err != nil {
		s.failErr(w, r, err)
		return
	}
	s.respondCart(w, r, c)
}
