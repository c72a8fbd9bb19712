package domain

import (
	"encoding/json"
	"time"
)

// Payment is the stored gateway payment for an order. One per order; amounts are minor units.
type Payment struct {
	GatewayPaymentID string
	Signature        string
	Method           string
	Email            string
	Contact          string
	Bank             string
	Wallet           string
	VPA              string
	International    bool
	Amount           int64
	Currency         string
	Status           string
	Captured         bool
	Fee              int64
	Tax              int64
	ErrorCode        string
	ErrorDescription string
	Raw              json.RawMessage
	CreatedAt        time.Time
	UpdatedAt        time.Time
}
