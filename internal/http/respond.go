package httpapi

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/example/food-ordering/internal/auth"
	"github.com/example/food-ordering/internal/cart"
	"github.com/example/food-ordering/internal/menu"
	"github.com/example/food-ordering/internal/orders"
	"github.com/example/food-ordering/internal/storage"
)

type envelope struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Message string `json:"message,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func ok(w http.ResponseWriter, status int, data any) {
	writeJSON(w, status, envelope{Success: true, Data: data})
}

func fail(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, envelope{Success: false, Message: msg})
}

const maxBody = 1 << 20

// decode reads a JSON body into v. An empty body leaves v untouched.
func decode(r *http.Request, v any) error {
	err := json.NewDecoder(io.LimitReader(r.Body, maxBody)).Decode(v)
	if errors.Is(err, io.EOF) {
		return nil
	}
	return err
}

func statusFor(err error) int {
	var (
		verr *orders.ValidationError
		ierr *auth.InputError
	)
	switch {
	case errors.As(err, &verr), errors.As(err, &ierr),
		errors.Is(err, orders.ErrEmptyCart),
		errors.Is(err, menu.ErrInvalidSelection),
		errors.Is(err, menu.ErrUnavailable):
		return http.StatusBadRequest
	case errors.Is(err, auth.ErrInvalidCredentials), errors.Is(err, auth.ErrInvalidToken):
		return http.StatusUnauthorized
	case errors.Is(err, orders.ErrPaymentFailed):
		return http.StatusPaymentRequired
	case errors.Is(err, orders.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, storage.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, orders.ErrInvalidTransition),
		errors.Is(err, cart.ErrDifferentRestaurant),
		errors.Is(err, auth.ErrEmailTaken):
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}

// failErr maps err to a status; server errors are logged and not echoed.
func (s *Server) failErr(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		s.logger.Error("request failed", "route", routeTemplate(r), "request_id", requestIDFromContext(r.Context()), "error", err)
		fail(w, status, "internal server error")
		return
	}
	if errors.Is(err, storage.ErrNotFound) {
		fail(w, status, "not found")
		return
	}
	fail(w, status, err.Error())
}
