package httpapi

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"

	"github.com/example/food-ordering/internal/orders"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(*http.Request) bool { return true },
}

// handleWS streams status changes of one order. Browsers cannot set headers
// on websocket requests, so the token comes from ?token=.
func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	claims, err := s.auth.Tokens().Parse(r.URL.Query().Get("token"))
	if err != nil {
		fail(w, http.StatusUnauthorized, "invalid token")
		return
	}
	actor := orders.Actor{UserID: claims.UserID, Role: claims.Role}
	snap, err := s.orders.Tracking(r.Context(), actor, id)
	if err != nil {
		s.failErr(w, r, err)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("ws upgrade failed", "order_id", id, "error", err)
		return
	}
	defer conn.Close()

	// Events notified from here on queue behind the re-read snapshot.
	sub := s.hub.Subscribe(id, conn)
	defer sub.Close()
	if fresh, err := s.orders.Tracking(r.Context(), actor, id); err == nil {
		snap = fresh
	}
	sub.Start(snap)

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}
