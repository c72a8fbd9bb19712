package types

import "github.com/Apurer/medstore-checkout/internal/domains/orders/domain"

// InitiateInput opens checkout for the whole cart, or for one line when CartItemID is set.
type InitiateInput struct {
	UserID               int64
	CartItemID           *int64
	Shipping             *domain.ShippingAddress
	UseRegisteredAddress bool
	IdempotencyKey       string
}

// InitiateResult is what the browser needs to open the gateway checkout.
type InitiateResult struct {
	Order          *domain.Order
	GatewayKey     string
	GatewayOrderID string
	AmountMinor    int64
	// Replayed is true when the result came from an earlier request with the same key.
	Replayed bool
}

// VerifyInput is the gateway's browser callback. OrderNumber is our own reference when the
// client echoes it back.
type VerifyInput struct {
	UserID           int64
	OrderNumber      string
	GatewayOrderID   string
	GatewayPaymentID string
	Signature        string
}

// MissingFields reports whether the gateway omitted any callback field.
func (in VerifyInput) MissingFields() bool {
	return in.GatewayOrderID == "" || in.GatewayPaymentID == "" || in.Signature == ""
}

type VerifyResult struct {
	Order   *domain.Order
	Outcome domain.Outcome
	// Reason is set when the order failed, for logs and events only.
	Reason string
}

// CancelInput identifies the abandoned order by gateway order id or by order number.
type CancelInput struct {
	UserID         int64
	GatewayOrderID string
	OrderNumber    string
}

type CancelResult struct {
	Order   *domain.Order
	Outcome domain.Outcome
}
