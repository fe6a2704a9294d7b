package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"github.com/spf13/cast"
)

// DevJWTSecret is the signing key used when JWT_SECRET is unset. Only the
// memory store accepts it.
const DevJWTSecret = "dev-secret-change-me"

const (
	StoreMemory   = "memory"
	StorePostgres = "postgres"
	StoreMongo    = "mongo"
)

// ServerConfig captures all tunable parameters for the HTTP API process.
// Values are primarily loaded from environment variables (optionally via a
// .env file) with defaults that run locally without any backing services.
type ServerConfig struct {
	HTTPAddr        string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration

	StoreDriver    string
	PGDSN          string
	RunMigrations  bool
	MigrationsPath string
	MongoURI       string
	MongoDB        string

	RedisAddr     string
	RedisPassword string
	CartTTL       time.Duration

	KafkaBrokers []string
	KafkaTopic   string

	StripeAPIKey    string
	PaymentCurrency string

	JWTSecret string
	JWTTTL    time.Duration

	DeliveryFee     decimal.Decimal
	TaxRate         decimal.Decimal
	DeliveryMinutes int
	RoutingURL      string

	CORSOrigins []string
	LogLevel    string
}

func defaultServerConfig() ServerConfig {
	return ServerConfig{
		HTTPAddr:        ":8080",
		ReadTimeout:     5 * time.Second,
		WriteTimeout:    10 * time.Second,
		IdleTimeout:     120 * time.Second,
		ShutdownTimeout: 15 * time.Second,
		StoreDriver:     StoreMemory,
		MongoDB:         "food_ordering",
		CartTTL:         7 * 24 * time.Hour,
		KafkaTopic:      "order-events",
		PaymentCurrency: "usd",
		JWTSecret:       DevJWTSecret,
		JWTTTL:          24 * time.Hour,
		DeliveryFee:     decimal.RequireFromString("2.99"),
		TaxRate:         decimal.RequireFromString("0.08"),
		DeliveryMinutes: 30,
		CORSOrigins:     []string{"*"},
		LogLevel:        "info",
	}
}

// LoadServerConfig reads .env (if present) then the environment. Every bad
// value is reported, joined into one error.
func LoadServerConfig() (ServerConfig, error) {
	_ = godotenv.Load(".env")

	cfg := defaultServerConfig()
	var errs []error

	setStringFromEnv(&cfg.HTTPAddr, "HTTP_ADDR")
	setDurationFromEnv(&cfg.ReadTimeout, "HTTP_READ_TIMEOUT", &errs)
	setDurationFromEnv(&cfg.WriteTimeout, "HTTP_WRITE_TIMEOUT", &errs)
	setDurationFromEnv(&cfg.IdleTimeout, "HTTP_IDLE_TIMEOUT", &errs)
	setDurationFromEnv(&cfg.ShutdownTimeout, "HTTP_SHUTDOWN_TIMEOUT", &errs)

	setStringFromEnv(&cfg.StoreDriver, "STORE_DRIVER")
	cfg.StoreDriver = strings.ToLower(cfg.StoreDriver)
	cfg.PGDSN = os.Getenv("PG_DSN")
	setBoolFromEnv(&cfg.RunMigrations, "MIGRATE", &errs)
	setStringFromEnv(&cfg.MigrationsPath, "MIGRATIONS_PATH")
	cfg.MongoURI = os.Getenv("MONGO_URI")
	setStringFromEnv(&cfg.MongoDB, "MONGO_DB")

	cfg.RedisAddr = strings.TrimSpace(os.Getenv("REDIS_ADDR"))
	cfg.RedisPassword = os.Getenv("REDIS_PASSWORD")
	setDurationFromEnv(&cfg.CartTTL, "CART_TTL", &errs)

	if brokers := os.Getenv("KAFKA_BROKERS"); brokers != "" {
		cfg.KafkaBrokers = splitAndTrim(brokers)
	}
	setStringFromEnv(&cfg.KafkaTopic, "KAFKA_TOPIC")

	cfg.StripeAPIKey = os.Getenv("STRIPE_API_KEY")
	setStringFromEnv(&cfg.PaymentCurrency, "PAYMENT_CURRENCY")

	setStringFromEnv(&cfg.JWTSecret, "JWT_SECRET")
	setDurationFromEnv(&cfg.JWTTTL, "JWT_TTL", &errs)

	setDecimalFromEnv(&cfg.DeliveryFee, "DELIVERY_FEE", &errs)
	setDecimalFromEnv(&cfg.TaxRate, "TAX_RATE", &errs)
	setIntFromEnv(&cfg.DeliveryMinutes, "DELIVERY_MINUTES", &errs)
	setStringFromEnv(&cfg.RoutingURL, "ROUTING_URL")

	if origins := os.Getenv("CORS_ORIGINS"); origins != "" {
		cfg.CORSOrigins = splitAndTrim(origins)
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.LogLevel = strings.ToLower(v)
	}

	switch cfg.StoreDriver {
	case StoreMemory:
	case StorePostgres:
		if cfg.PGDSN == "" {
			errs = append(errs, fmt.Errorf("PG_DSN is required for STORE_DRIVER=postgres"))
		}
	case StoreMongo:
		if cfg.MongoURI == "" {
			errs = append(errs, fmt.Errorf("MONGO_URI is required for STORE_DRIVER=mongo"))
		}
	default:
		errs = append(errs, fmt.Errorf("STORE_DRIVER must be memory, postgres or mongo, got %q", cfg.StoreDriver))
	}
	if cfg.DeliveryFee.IsNegative() {
		errs = append(errs, fmt.Errorf("DELIVERY_FEE must be >= 0"))
	}
	if cfg.TaxRate.IsNegative() || cfg.TaxRate.GreaterThanOrEqual(decimal.NewFromInt(1)) {
		errs = append(errs, fmt.Errorf("TAX_RATE must be in [0, 1)"))
	}
	if cfg.DeliveryMinutes <= 0 {
		errs = append(errs, fmt.Errorf("DELIVERY_MINUTES must be > 0"))
	}
	if cfg.StoreDriver != StoreMemory && cfg.JWTSecret == DevJWTSecret {
		errs = append(errs, fmt.Errorf("JWT_SECRET must be set for STORE_DRIVER=%s", cfg.StoreDriver))
	}
	if cfg.JWTTTL <= 0 {
		errs = append(errs, fmt.Errorf("JWT_TTL must be > 0"))
	}

	return cfg, errors.Join(errs...)
}

// ConsumerConfig drives the order-events consumer.
type ConsumerConfig struct {
	MetricsAddr   string
	KafkaBrokers  []string
	KafkaTopic    string
	KafkaGroup    string
	RedisAddr     string
	RedisPassword string
	StatusTTL     time.Duration
	LogLevel      string
}

func LoadConsumerConfig() (ConsumerConfig, error) {
	_ = godotenv.Load(".env")

	cfg := ConsumerConfig{
		MetricsAddr:  ":2112",
		KafkaBrokers: []string{"localhost:9092"},
		KafkaTopic:   "order-events",
		KafkaGroup:   "order-status-consumer",
		RedisAddr:    "localhost:6379",
		StatusTTL:    48 * time.Hour,
		LogLevel:     "info",
	}
	var errs []error

	setStringFromEnv(&cfg.MetricsAddr, "METRICS_ADDR")
	if brokers := os.Getenv("KAFKA_BROKERS"); brokers != "" {
		cfg.KafkaBrokers = splitAndTrim(brokers)
	}
	setStringFromEnv(&cfg.KafkaTopic, "KAFKA_TOPIC")
	setStringFromEnv(&cfg.KafkaGroup, "KAFKA_GROUP")
	setStringFromEnv(&cfg.RedisAddr, "REDIS_ADDR")
	cfg.RedisPassword = os.Getenv("REDIS_PASSWORD")
	setDurationFromEnv(&cfg.StatusTTL, "STATUS_TTL", &errs)
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.LogLevel = strings.ToLower(v)
	}
	if len(cfg.KafkaBrokers) == 0 {
		errs = append(errs, fmt.Errorf("KAFKA_BROKERS must not be empty"))
	}
	return cfg, errors.Join(errs...)
}

func setDurationFromEnv(target *time.Duration, key string, errs *[]error) {
	if v := os.Getenv(key); v != "" {
		d, err := cast.ToDurationE(v)
		if err != nil {
			*errs = append(*errs, fmt.Errorf("invalid %s: %w", key, err))
			return
		}
		*target = d
	}
}

func setDecimalFromEnv(target *decimal.Decimal, key string, errs *[]error) {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		d, err := decimal.NewFromString(v)
		if err != nil {
			*errs = append(*errs, fmt.Errorf("invalid %s: %w", key, err))
			return
		}
		*target = d
	}
}

func setIntFromEnv(target *int, key string, errs *[]error) {
	if v := os.Getenv(key); v != "" {
		i, err := cast.ToIntE(strings.TrimSpace(v))
		if err != nil {
			*errs = append(*errs, fmt.Errorf("invalid %s: %w", key, err))
			return
		}
		*target = i
	}
}

func setBoolFromEnv(target *bool, key string, errs *[]error) {
	if v := os.Getenv(key); v != "" {
		b, err := cast.ToBoolE(strings.TrimSpace(v))
		if err != nil {
			*errs = append(*errs, fmt.Errorf("invalid %s: %w", key, err))
			return
		}
		*target = b
	}
}

func setStringFromEnv(target *string, key string) {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		*target = v
	}
}

func splitAndTrim(v string) []string {
	raw := strings.Split(v, ",")
	out := make([]string, 0, len(raw))
	for _, r := range raw {
		r = strings.TrimSpace(r)
		if r == "" {
			continue
		}
		out = append(out, r)
	}
	return out
}
