package httpapi

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/example/food-ordering/internal/auth"
	"github.com/example/food-ordering/internal/cart"
	"github.com/example/food-ordering/internal/config"
	"github.com/example/food-ordering/internal/eta"
	"github.com/example/food-ordering/internal/events"
	"github.com/example/food-ordering/internal/menu"
	"github.com/example/food-ordering/internal/orders"
	"github.com/example/food-ordering/internal/payments"
	"github.com/example/food-ordering/internal/storage"
	"github.com/example/food-ordering/internal/tracking"
)

// OpenStore connects the configured order/catalog/user store, running
// migrations first when asked to.
func OpenStore(ctx context.Context, cfg config.ServerConfig, logger *slog.Logger) (storage.Store, error) {
	switch cfg.StoreDriver {
	case config.StorePostgres:
		if cfg.RunMigrations {
			if err := storage.Migrate(cfg.PGDSN, cfg.MigrationsPath, logger); err != nil {
				return nil, fmt.Errorf("migrate: %w", err)
			}
		}
		return storage.NewPostgresStore(ctx, cfg.PGDSN)
	case config.StoreMongo:
		return storage.NewMongoStore(ctx, cfg.MongoURI, cfg.MongoDB)
	default:
		return storage.NewMemoryStore(), nil
	}
}

// NewServerFromConfig wires every backing service named by cfg. Optional
// services fall back to in-process versions when unset. The returned func
// releases connections.
func NewServerFromConfig(ctx context.Context, cfg config.ServerConfig, logger *slog.Logger) (*Server, func(), error) {
	store, err := OpenStore(ctx, cfg, logger)
	if err != nil {
		return nil, nil, fmt.Errorf("open %s store: %w", cfg.StoreDriver, err)
	}
	closers := []func() error{store.Close}
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			if err := closers[i](); err != nil {
				logger.Warn("close failed", "error", err)
			}
		}
	}

	var (
		carts  cart.Backend = cart.NewMemoryBackend()
		status orders.StatusReader
	)
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword})
		pctx, cancel := context.WithTimeout(ctx, 3*time.Second)
		err := rdb.Ping(pctx).Err()
		cancel()
		if err != nil {
			rdb.Close()
			cleanup()
			return nil, nil, fmt.Errorf("redis ping: %w", err)
		}
		closers = append(closers, rdb.Close)
		carts = cart.NewRedisBackend(rdb, cfg.CartTTL)
		status = tracking.NewStatusCache(rdb)
	} else {
		logger.Info("REDIS_ADDR not set, carts kept in memory")
	}

	var publisher orders.Publisher = events.Discard{}
	if len(cfg.KafkaBrokers) > 0 {
		kp := events.NewKafkaProducer(cfg.KafkaBrokers, cfg.KafkaTopic)
		closers = append(closers, kp.Close)
		publisher = kp
	}

	var provider payments.Provider = payments.Offline{}
	if cfg.StripeAPIKey != "" {
		provider = payments.NewStripeClient(cfg.StripeAPIKey)
	}

	var router eta.Client
	if cfg.RoutingURL != "" {
		router = eta.NewOSRMClient(cfg.RoutingURL)
	}

	pricing := orders.Pricing{DefaultDeliveryFee: cfg.DeliveryFee, TaxRate: cfg.TaxRate}
	hub := tracking.NewHub(logger)
	catalog := menu.NewCatalog(store)
	authSvc := auth.NewService(store, auth.NewTokens(cfg.JWTSecret, cfg.JWTTTL))
	orderSvc := orders.NewService(orders.Deps{
		Orders:    store,
		Users:     store,
		Catalog:   catalog,
		Carts:     carts,
		Payments:  provider,
		Publisher: publisher,
		Notifier:  hub,
		Status:    status,
		Estimator: eta.NewEstimator(router, time.Duration(cfg.DeliveryMinutes)*time.Minute, logger),
		Pricing:   &pricing,
		Currency:  cfg.PaymentCurrency,
		Log:       logger,
	})

	s := New(Deps{
		Auth:        authSvc,
		Catalog:     catalog,
		Carts:       carts,
		Orders:      orderSvc,
		Hub:         hub,
		Ready:       store,
		CORSOrigins: cfg.CORSOrigins,
		Logger:      logger,
	})
	return s, cleanup, nil
}
