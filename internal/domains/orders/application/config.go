package application

import (
	"errors"
	"strings"
	"time"

	cartdomain "github.com/Apurer/medstore-checkout/internal/domains/cart/domain"
)

// Config is the engine's fixed policy, built once at startup.
type Config struct {
	Currency       string
	Delivery       cartdomain.DeliveryPolicy
	GraceWindow    time.Duration
	SweepBatchSize int
	// CallbackGuardTTL bounds how long a callback guard is held if the holder dies.
	CallbackGuardTTL time.Duration
}

func DefaultConfig() Config {
	return Config{
		Currency:         "INR",
		Delivery:         cartdomain.DefaultDeliveryPolicy(),
		GraceWindow:      15 * time.Minute,
		SweepBatchSize:   100,
		CallbackGuardTTL: 30 * time.Second,
	}
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.Currency) == "" {
		return errors.New("currency is required")
	}
	if c.Delivery.Charge.IsNegative() || c.Delivery.FreeDeliveryThreshold.IsNegative() {
		return errors.New("delivery policy amounts must not be negative")
	}
	if c.GraceWindow <= 0 {
		return errors.New("grace window must be positive")
	}
	if c.SweepBatchSize <= 0 {
		return errors.New("sweep batch size must be positive")
	}
	if c.CallbackGuardTTL <= 0 {
		return errors.New("callback guard ttl must be positive")
	}
	return nil
}
