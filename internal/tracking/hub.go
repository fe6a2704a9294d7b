package tracking

import (
	"log/slog"
	"sync"
	"time"

	"github.com/example/food-ordering/internal/models"
	"github.com/example/food-ordering/internal/observability"
)

const (
	defaultWriteWait = 10 * time.Second
	defaultQueueSize = 16
)

// Conn is the part of *websocket.Conn the hub writes to.
type Conn interface {
	WriteJSON(v any) error
	SetWriteDeadline(t time.Time) error
	Close() error
}

// session owns the only writer of one connection. Events wait in out until
// the writer goroutine, started by Start, drains them.
type session struct {
	conn Conn
	out  chan any
	done chan struct{}
	once sync.Once
}

func (s *session) stop() { s.once.Do(func() { close(s.done) }) }

// Subscription is one connection watching one order.
type Subscription struct {
	hub     *Hub
	orderID string
	s       *session
	started sync.Once
}

// Start writes first (when non-nil) and then every queued and future event.
// Events notified between Subscribe and Start are kept, not lost.
func (sub *Subscription) Start(first any) {
	sub.started.Do(func() { go sub.hub.writeLoop(sub.orderID, sub.s, first) })
}

// Close detaches the connection from the hub. Safe to call twice.
func (sub *Subscription) Close() { sub.hub.remove(sub.orderID, sub.s) }

// Hub fans order events out to the connections watching each order.
// Notify never blocks on a connection: a subscriber whose queue is full is dropped.
type Hub struct {
	mu        sync.RWMutex
	subs      map[string]map[*session]struct{}
	log       *slog.Logger
	writeWait time.Duration
	queueSize int
}

func NewHub(log *slog.Logger) *Hub {
	if log == nil {
		log = slog.Default()
	}
	return &Hub{
		subs:      make(map[string]map[*session]struct{}),
		log:       log,
		writeWait: defaultWriteWait,
		queueSize: defaultQueueSize,
	}
}

// Subscribe registers conn for orderID. Nothing is written until Start.
func (h *Hub) Subscribe(orderID string, conn Conn) *Subscription {
	s := &session{conn: conn, out: make(chan any, h.queueSize), done: make(chan struct{})}
	h.mu.Lock()
	if h.subs[orderID] == nil {
		h.subs[orderID] = make(map[*session]struct{})
	}
	h.subs[orderID][s] = struct{}{}
	h.mu.Unlock()
	observability.TrackingSessions.Inc()
	return &Subscription{hub: h, orderID: orderID, s: s}
}

func (h *Hub) writeLoop(orderID string, s *session, first any) {
	if first != nil {
		if err := h.write(s, first); err != nil {
			h.drop(orderID, s, err)
			return
		}
	}
	for {
		select {
		case <-s.done:
			return
		case v := <-s.out:
			if err := h.write(s, v); err != nil {
				h.drop(orderID, s, err)
				return
			}
		}
	}
}

func (h *Hub) write(s *session, v any) error {
	if err := s.conn.SetWriteDeadline(time.Now().Add(h.writeWait)); err != nil {
		return err
	}
	return s.conn.WriteJSON(v)
}

func (h *Hub) drop(orderID string, s *session, err error) {
	h.log.Warn("ws send error", "order_id", orderID, "error", err)
	_ = s.conn.Close()
	h.remove(orderID, s)
}

func (h *Hub) remove(orderID string, s *session) {
	h.mu.Lock()
	defer h.mu.Unlock()
	s.stop()
	set, ok := h.subs[orderID]
	if !ok {
		return
	}
	if _, ok := set[s]; !ok {
		return
	}
	delete(set, s)
	if len(set) == 0 {
		delete(h.subs, orderID)
	}
	observability.TrackingSessions.Dec()
}

// Notify queues ev for every subscriber of its order.
func (h *Hub) Notify(ev models.OrderEvent) {
	h.mu.RLock()
	targets := make([]*session, 0, len(h.subs[ev.OrderID]))
	for s := range h.subs[ev.OrderID] {
		targets = append(targets, s)
	}
	h.mu.RUnlock()

	for _, s := range targets {
		select {
		case <-s.done:
		case s.out <- ev:
		default:
			h.log.Warn("ws subscriber too slow, dropping", "order_id", ev.OrderID)
			_ = s.conn.Close()
			h.remove(ev.OrderID, s)
		}
	}
}

// Subscribers reports how many connections watch orderID.
func (h *Hub) Subscribers(orderID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs[orderID])
}
