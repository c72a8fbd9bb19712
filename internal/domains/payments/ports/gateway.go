package ports

import (
	"context"
	"errors"

	"github.com/Apurer/medstore-checkout/internal/domains/payments/domain"
)

var (
	// ErrSignatureInvalid means the callback was not signed by the gateway for this order.
	ErrSignatureInvalid = errors.New("payment signature invalid")
	// ErrGatewayUnavailable wraps transport and upstream failures. Callers may retry.
	ErrGatewayUnavailable = errors.New("payment gateway unavailable")
)

// Gateway is the boundary to the hosted payment provider.
type Gateway interface {
	CreateOrder(ctx context.Context, req domain.CreateOrderRequest) (domain.RemoteOrder, error)
	VerifySignature(orderID, paymentID, signature string) error
	FetchPayment(ctx context.Context, paymentID string) (domain.PaymentRecord, error)
	// PublicKey is the key id handed to the browser checkout.
	PublicKey() string
}
