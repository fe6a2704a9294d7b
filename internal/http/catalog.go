package httpapi

import (
	"net/http"

	"github.com/gorilla/mux"
)

func (s *Server) handleListRestaurants(w http.ResponseWriter, r *http.Request) {
	rs, err := s.catalog.ListRestaurants(r.Context())
	if err != nil {
		s.failErr(w, r, err)
		return
	}
	ok(w, http.StatusOK, rs)
}

func (s *Server) handleGetRestaurant(w http.ResponseWriter, r *http.Request) {
	rest, err := s.catalog.GetRestaurant(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		s.failErr(w, r, err)
		return
	}
	ok(w, http.StatusOK, rest)
}

func (s *Server) handleRestaurantMenu(w http.ResponseWriter, r *http.Request) {
	items, err := s.catalog.ListByRestaurant(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		s.failErr(w, r, err)
		return
	}
	ok(w, http.StatusOK, items)
}

func (s *Server) handleGetMenuItem(w http.ResponseWriter, r *http.Request) {
	item, err := s.catalog.Get(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		s.failErr(w, r, err)
		return
	}
	ok(w, http.StatusOK, item)
}
