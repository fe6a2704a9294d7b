package httpapi

import (
	"net/http"

	"github.com/example/food-ordering/internal/auth"
	"github.com/example/food-ordering/internal/models"
)

type authResponse struct {
	User  *models.User `json:"user"`
	Token string       `json:"token"`
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req auth.RegisterRequest
	if err := decode(r, &req); err != nil {
		fail(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	u, tok, err := s.auth.Register(r.Context(), req)
	if err != nil {
		s.failErr(w, r, err)
		return
	}
	ok(w, http.StatusCreated, authResponse{User: u, Token: tok})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := decode(r, &req); err != nil {
		fail(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	u, tok, err := s.auth.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		s.failErr(w, r, err)
		return
	}
	ok(w, http.StatusOK, authResponse{User: u, Token: tok})
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	u, err := s.auth.Me(r.Context(), actorFrom(r).UserID)
	if err != nil {
		s.failErr(w, r, err)
		return
	}
	ok(w, http.StatusOK, u)
}

func (s *Server) handleUpdateAddress(w http.ResponseWriter, r *http.Request) {
	var addr models.Address
	if err := decode(r, &addr); err != nil {
		fail(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	u, err := s.auth.UpdateAddress(r.Context(), actorFrom(r).UserID, addr)
	if err != nil {
		s.failErr(w, r, err)
		return
	}
	ok(w, http.StatusOK, u)
}
