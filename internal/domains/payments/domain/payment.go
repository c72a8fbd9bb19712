package domain

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"strings"
)

var (
	ErrInvalidAmount   = errors.New("amount must be greater than zero")
	ErrMissingCurrency = errors.New("currency is required")
	ErrMissingReceipt  = errors.New("receipt is required")
)

// CreateOrderRequest asks the gateway for a payable order. AmountMinor is in paise.
type CreateOrderRequest struct {
	AmountMinor int64
	Currency    string
	Receipt     string
	Notes       map[string]string
}

func (r CreateOrderRequest) Validate() error {
	if r.AmountMinor <= 0 {
		return ErrInvalidAmount
	}
	if strings.TrimSpace(r.Currency) == "" {
		return ErrMissingCurrency
	}
	if strings.TrimSpace(r.Receipt) == "" {
		return ErrMissingReceipt
	}
	return nil
}

// RemoteOrder is the gateway's view of an order created for checkout.
type RemoteOrder struct {
	ID       string
	Amount   int64
	Currency string
	Status   string
	Receipt  string
}

const StatusCaptured = "captured"

// PaymentRecord is a payment as reported by the gateway. Amounts are minor units.
type PaymentRecord struct {
	ID               string
	OrderID          string
	Method           string
	Status           string
	Captured         bool
	Amount           int64
	Currency         string
	Fee              int64
	Tax              int64
	Email            string
	Contact          string
	Bank             string
	Wallet           string
	VPA              string
	International    bool
	ErrorCode        string
	ErrorDescription string
	Raw              json.RawMessage
}

// IsCaptured reports whether the money has been received.
func (p PaymentRecord) IsCaptured() bool {
	return p.Status == StatusCaptured
}

// Sign computes the checkout signature: hex(HMAC-SHA256(orderID + "|" + paymentID, secret)).
func Sign(secret, orderID, paymentID string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(orderID + "|" + paymentID))
	return hex.EncodeToString(mac.Sum(nil))
}

// SignatureMatches compares in constant time. Malformed hex never matches.
func SignatureMatches(secret, orderID, paymentID, signature string) bool {
	given, err := hex.DecodeString(strings.TrimSpace(signature))
	if err != nil || len(given) != sha256.Size {
		return false
	}
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(orderID + "|" + paymentID))
	return hmac.Equal(mac.Sum(nil), given)
}
