package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/segmentio/kafka-go"

	"github.com/example/food-ordering/internal/config"
	"github.com/example/food-ordering/internal/events"
	"github.com/example/food-ordering/internal/logging"
	"github.com/example/food-ordering/internal/models"
	"github.com/example/food-ordering/internal/tracking"
)

var (
	msgsConsumed = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "consumer_messages_consumed_total",
		Help: "Total order event messages consumed",
	})
	msgsInvalid = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "consumer_messages_invalid_total",
		Help: "Total invalid messages received",
	})
	redisUpdates = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "consumer_redis_updates_total",
		Help: "Total successful order status cache updates",
	})
	redisErrors = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "consumer_redis_errors_total",
		Help: "Total redis errors",
	})
)

func init() {
	prometheus.MustRegister(msgsConsumed, msgsInvalid, redisUpdates, redisErrors)
}

func main() {
	cfg, err := config.LoadConsumerConfig()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	flag.StringVar(&cfg.MetricsAddr, "metrics-addr", cfg.MetricsAddr, "address to serve prometheus metrics on")
	flag.Parse()

	logger := logging.NewLogger("order-status-consumer", cfg.LogLevel)

	rc := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword})
	radapter := &redisAdapter{c: rc}

	go func() {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200); w.Write([]byte("ok")) })
		mux.HandleFunc("/ready", func(w http.ResponseWriter, r *http.Request) {
			if err := rc.Ping(r.Context()).Err(); err != nil {
				http.Error(w, "redis not ready", 503)
				return
			}
			w.WriteHeader(200)
			w.Write([]byte("ready"))
		})
		logger.Info("metrics/health listening", "addr", cfg.MetricsAddr)
		if err := http.ListenAndServe(cfg.MetricsAddr, mux); err != nil {
			logger.Error("metrics server stopped", "error", err)
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	r := kafka.NewReader(kafka.ReaderConfig{Brokers: cfg.KafkaBrokers, Topic: cfg.KafkaTopic, GroupID: cfg.KafkaGroup, MinBytes: 1, MaxBytes: 10e6})
	defer func() {
		_ = r.Close()
		_ = rc.Close()
	}()

	logger.Info("consumer listening", "topic", cfg.KafkaTopic, "brokers", cfg.KafkaBrokers, "group", cfg.KafkaGroup)
	if err := consume(ctx, r, radapter, cfg.StatusTTL, logger); err != nil {
		logger.Error("consumer stopped", "error", err)
		os.Exit(1)
	}
	logger.Info("shutting down consumer")
}

// MessageReader is the part of *kafka.Reader the consume loop needs.
type MessageReader interface {
	ReadMessage(ctx context.Context) (kafka.Message, error)
}

// consume applies events until ctx is cancelled. Read errors back off up to
// 30s; decode and cache failures skip the message.
func consume(ctx context.Context, r MessageReader, rc RedisUpdater, ttl time.Duration, log *slog.Logger) error {
	backoff := time.Second
	const maxBackoff = 30 * time.Second

	for {
		m, err := r.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			log.Warn("kafka read error", "error", err, "backoff", backoff)
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(backoff):
			}
			backoff *= 2
			if backoff > maxBackoff {
				backoff = maxBackoff
			}
			continue
		}
		backoff = time.Second

		msgsConsumed.Inc()

		ev, err := events.Decode(m.Value)
		if err == nil && ev.OrderID == "" {
			err = errors.New("missing orderId")
		}
		if err != nil {
			msgsInvalid.Inc()
			log.Warn("invalid message", "offset", m.Offset, "error", err)
			continue
		}

		if stale, err := isStale(ctx, rc, ev); err != nil {
			log.Warn("read cached status", "order_id", ev.OrderID, "error", err)
		} else if stale {
			log.Info("skip stale event", "order_id", ev.OrderID, "status", ev.Status)
			continue
		}

		if err := updateRedisWithRetry(ctx, rc, ev, ttl, 3, 200*time.Millisecond); err != nil {
			redisErrors.Inc()
			log.Warn("redis update failed", "order_id", ev.OrderID, "error", err)
			continue
		}
		redisUpdates.Inc()
	}
}

// RedisUpdater defines the small subset of redis operations we need for tests and production.
type RedisUpdater interface {
	HGet(ctx context.Context, key, field string) (string, error)
	HSet(ctx context.Context, key string, values map[string]interface{}) error
	Expire(ctx context.Context, key string, ttl time.Duration) error
}

type redisAdapter struct{ c *redis.Client }

// HGet reports a missing hash or field as "".
func (r *redisAdapter) HGet(ctx context.Context, key, field string) (string, error) {
	v, err := r.c.HGet(ctx, key, field).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	return v, err
}

func (r *redisAdapter) HSet(ctx context.Context, key string, values map[string]interface{}) error {
	_, err := r.c.HSet(ctx, key, values).Result()
	return err
}

func (r *redisAdapter) Expire(ctx context.Context, key string, ttl time.Duration) error {
	_, err := r.c.Expire(ctx, key, ttl).Result()
	return err
}

// isStale reports whether the cache already holds a newer status for ev's order.
func isStale(ctx context.Context, rc RedisUpdater, ev models.OrderEvent) (bool, error) {
	cached, err := rc.HGet(ctx, tracking.Key(ev.OrderID), "updated")
	if err != nil || cached == "" {
		return false, err
	}
	ts, err := time.Parse(time.RFC3339Nano, cached)
	if err != nil {
		return false, nil
	}
	return ts.After(ev.Timestamp), nil
}

// updateRedisWithRetry writes the order's latest status hash, retrying with doubling delay.
func updateRedisWithRetry(ctx context.Context, rc RedisUpdater, ev models.OrderEvent, ttl time.Duration, attempts int, delay time.Duration) error {
	key := tracking.Key(ev.OrderID)
	for i := 0; i < attempts; i++ {
		err := rc.HSet(ctx, key, tracking.Fields(ev))
		if err == nil && ttl > 0 {
			err = rc.Expire(ctx, key, ttl)
		}
		if err == nil {
			return nil
		}
		if i == attempts-1 {
			return err
		}
		time.Sleep(delay)
		delay *= 2
	}
	return nil
}
