package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	OrdersCreated     = promauto.NewCounter(prometheus.CounterOpts{Namespace: "food_ordering", Name: "orders_created_total", Help: "Total number of orders placed"})
	StatusTransitions = promauto.NewCounterVec(prometheus.CounterOpts{Namespace: "food_ordering", Name: "order_status_transitions_total", Help: "Order status changes by target status"}, []string{"status"})
	PaymentAuths      = promauto.NewCounterVec(prometheus.CounterOpts{Namespace: "food_ordering", Name: "payment_authorizations_total", Help: "Payment authorizations by resulting status"}, []string{"status"})
	CartMutations     = promauto.NewCounterVec(prometheus.CounterOpts{Namespace: "food_ordering", Name: "cart_mutations_total", Help: "Cart mutations by operation"}, []string{"op"})
	TrackingSessions  = promauto.NewGauge(prometheus.GaugeOpts{Namespace: "food_ordering", Name: "tracking_sessions", Help: "Connected order tracking websocket sessions"})

	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{Namespace: "food_ordering", Name: "http_requests_total", Help: "Total HTTP requests handled"},
		[]string{"method", "path", "status"},
	)
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "food_ordering",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency distribution",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
)
