package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/shopspring/decimal"

	cartdomain "github.com/Apurer/medstore-checkout/internal/domains/cart/domain"
	ordersapp "github.com/Apurer/medstore-checkout/internal/domains/orders/application"
	platformobservability "github.com/Apurer/medstore-checkout/internal/platform/observability"
	platformtemporal "github.com/Apurer/medstore-checkout/internal/platform/temporal"
)

// Database drivers.
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
	DriverMemory   = "memory"
)

// Config carries environment-driven settings shared by the API, the worker and the expirer.
type Config struct {
	Port        string `envconfig:"PORT" default:"8080"`
	Environment string `envconfig:"ENVIRONMENT" default:"local"`
	LogLevel    string `envconfig:"LOG_LEVEL" default:"info"`

	DatabaseDriver string `envconfig:"DATABASE_DRIVER" default:"memory"`
	PostgresDSN    string `envconfig:"POSTGRES_DSN"`
	SQLitePath     string `envconfig:"SQLITE_PATH" default:"medstore.db"`

	RedisAddr string `envconfig:"REDIS_ADDR"`
	RedisDB   int    `envconfig:"REDIS_DB" default:"0"`

	KafkaBrokers []string `envconfig:"KAFKA_BROKERS"`
	KafkaTopic   string   `envconfig:"KAFKA_TOPIC" default:"medstore.orders"`

	TemporalAddress   string `envconfig:"TEMPORAL_ADDRESS" default:"localhost:7233"`
	TemporalNamespace string `envconfig:"TEMPORAL_NAMESPACE" default:"default"`
	TemporalDisabled  bool   `envconfig:"TEMPORAL_DISABLED"`

	RazorpayKeyID     string `envconfig:"RAZORPAY_KEY_ID"`
	RazorpayKeySecret string `envconfig:"RAZORPAY_KEY_SECRET"`

	Currency              string          `envconfig:"CURRENCY" default:"INR"`
	FreeDeliveryThreshold decimal.Decimal `envconfig:"FREE_DELIVERY_THRESHOLD" default:"500"`
	DeliveryCharge        decimal.Decimal `envconfig:"DELIVERY_CHARGE" default:"100"`
	OrderGraceWindow      time.Duration   `envconfig:"ORDER_GRACE_WINDOW" default:"15m"`
	ExpiryBatchSize       int             `envconfig:"EXPIRY_BATCH_SIZE" default:"100"`
	ExpirySweepInterval   time.Duration   `envconfig:"EXPIRY_SWEEP_INTERVAL" default:"1m"`
	ExpirySweepCron       string          `envconfig:"EXPIRY_SWEEP_CRON" default:"*/5 * * * *"`
	CallbackGuardTTL      time.Duration   `envconfig:"CALLBACK_GUARD_TTL" default:"30s"`

	RateLimit          int           `envconfig:"RATE_LIMIT" default:"20"`
	RateLimitWindow    time.Duration `envconfig:"RATE_LIMIT_WINDOW" default:"1m"`
	OutboxPollInterval time.Duration `envconfig:"OUTBOX_POLL_INTERVAL" default:"1s"`

	OTLPEndpoint string `envconfig:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	OTLPInsecure bool   `envconfig:"OTEL_EXPORTER_OTLP_INSECURE" default:"true"`
	StdoutTraces bool   `envconfig:"OTEL_STDOUT_TRACES"`
}

// Load reads an optional .env file, then the process environment, and validates the result.
// Variables already set in the environment win over the file.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return Config{}, err
	}
	cfg.DatabaseDriver = strings.ToLower(strings.TrimSpace(cfg.DatabaseDriver))
	cfg.PostgresDSN = strings.TrimSpace(cfg.PostgresDSN)
	cfg.RedisAddr = strings.TrimSpace(cfg.RedisAddr)
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	switch c.DatabaseDriver {
	case DriverPostgres:
		if c.PostgresDSN == "" {
			return errors.New("POSTGRES_DSN is required when DATABASE_DRIVER=postgres")
		}
	case DriverSQLite:
		if strings.TrimSpace(c.SQLitePath) == "" {
			return errors.New("SQLITE_PATH is required when DATABASE_DRIVER=sqlite")
		}
	case DriverMemory:
	default:
		return fmt.Errorf("DATABASE_DRIVER must be postgres, sqlite or memory, got %q", c.DatabaseDriver)
	}
	if (c.RazorpayKeyID == "") != (c.RazorpayKeySecret == "") {
		return errors.New("RAZORPAY_KEY_ID and RAZORPAY_KEY_SECRET must be set together")
	}
	if c.RateLimit < 0 {
		return errors.New("RATE_LIMIT must not be negative")
	}
	if c.RateLimit > 0 && c.RateLimitWindow <= 0 {
		return errors.New("RATE_LIMIT_WINDOW must be positive")
	}
	if c.ExpirySweepInterval <= 0 {
		return errors.New("EXPIRY_SWEEP_INTERVAL must be positive")
	}
	if c.OutboxPollInterval <= 0 {
		return errors.New("OUTBOX_POLL_INTERVAL must be positive")
	}
	return c.Orders().Validate()
}

// Orders is the reconciliation engine's policy.
func (c Config) Orders() ordersapp.Config {
	return ordersapp.Config{
		Currency: strings.ToUpper(strings.TrimSpace(c.Currency)),
		Delivery: cartdomain.DeliveryPolicy{
			FreeDeliveryThreshold: c.FreeDeliveryThreshold,
			Charge:                c.DeliveryCharge,
		},
		GraceWindow:      c.OrderGraceWindow,
		SweepBatchSize:   c.ExpiryBatchSize,
		CallbackGuardTTL: c.CallbackGuardTTL,
	}
}

// KafkaEnabled reports whether order events go to a broker.
func (c Config) KafkaEnabled() bool {
	return len(c.KafkaBrokers) > 0 && strings.TrimSpace(c.KafkaBrokers[0]) != ""
}

// GatewayConfigured reports whether live Razorpay credentials were supplied.
func (c Config) GatewayConfigured() bool {
	return c.RazorpayKeyID != "" && c.RazorpayKeySecret != ""
}

// Telemetry is the observability setup for one process.
func (c Config) Telemetry(serviceName string) platformobservability.Settings {
	return platformobservability.Settings{
		ServiceName:  serviceName,
		Environment:  c.Environment,
		LogLevel:     platformobservability.ParseLevel(c.LogLevel),
		OTLPEndpoint: c.OTLPEndpoint,
		OTLPInsecure: c.OTLPInsecure,
		StdoutTraces: c.StdoutTraces,
	}
}

// Temporal is the client setup for one process; component names its tracer.
func (c Config) Temporal(component string) platformtemporal.ClientSettings {
	return platformtemporal.ClientSettings{
		Address:   c.TemporalAddress,
		Namespace: c.TemporalNamespace,
		Disabled:  c.TemporalDisabled,
		Component: component,
	}
}
