package fake

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/Apurer/medstore-checkout/internal/domains/payments/domain"
	"github.com/Apurer/medstore-checkout/internal/domains/payments/ports"
)

var _ ports.Gateway = (*Gateway)(nil)

const (
	DefaultKeyID  = "rzp_test_local"
	defaultSecret = "local-secret"
)

// Gateway is an in-process stand-in for the hosted gateway. It signs callbacks with the same HMAC
// scheme so a checkout can be completed end to end without network access.
type Gateway struct {
	mu        sync.Mutex
	keyID     string
	secret    string
	seq       int
	orders    map[string]domain.RemoteOrder
	payments  map[string]domain.PaymentRecord
	createErr error
	fetchErr  error
	creates   int
	fetches   int
}

type Option func(*Gateway)

// WithCredentials overrides the key pair used for signing.
func WithCredentials(keyID, secret string) Option {
	return func(g *Gateway) {
		g.keyID = keyID
		g.secret = secret
	}
}

func New(opts ...Option) *Gateway {
	g := &Gateway{
		keyID:    DefaultKeyID,
		secret:   defaultSecret,
		orders:   map[string]domain.RemoteOrder{},
		payments: map[string]domain.PaymentRecord{},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(g)
		}
	}
	return g
}

func (g *Gateway) PublicKey() string { return g.keyID }

func (g *Gateway) CreateOrder(ctx context.Context, req domain.CreateOrderRequest) (domain.RemoteOrder, error) {
	if err := req.Validate(); err != nil {
		return domain.RemoteOrder{}, err
	}
	if err := ctx.Err(); err != nil {
		return domain.RemoteOrder{}, err
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	g.creates++
	if g.createErr != nil {
		return domain.RemoteOrder{}, fmt.Errorf("%w: %w", ports.ErrGatewayUnavailable, g.createErr)
	}
	g.seq++
	order := domain.RemoteOrder{
		ID:       fmt.Sprintf("order_fake%06d", g.seq),
		Amount:   req.AmountMinor,
		Currency: req.Currency,
		Status:   "created",
		Receipt:  req.Receipt,
	}
	g.orders[order.ID] = order
	return order, nil
}

func (g *Gateway) VerifySignature(orderID, paymentID, signature string) error {
	if orderID == "" || paymentID == "" || signature == "" {
		return ports.ErrSignatureInvalid
	}
	if !domain.SignatureMatches(g.secret, orderID, paymentID, signature) {
		return ports.ErrSignatureInvalid
	}
	return nil
}

func (g *Gateway) FetchPayment(ctx context.Context, paymentID string) (domain.PaymentRecord, error) {
	if err := ctx.Err(); err != nil {
		return domain.PaymentRecord{}, err
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	g.fetches++
	if g.fetchErr != nil {
		return domain.PaymentRecord{}, fmt.Errorf("%w: %w", ports.ErrGatewayUnavailable, g.fetchErr)
	}
	p, ok := g.payments[paymentID]
	if !ok {
		return domain.PaymentRecord{}, fmt.Errorf("%w: payment %s not found", ports.ErrGatewayUnavailable, paymentID)
	}
	return p, nil
}

// Pay records a payment against a gateway order and returns the signed callback fields.
// status is "captured" for a successful payment.
func (g *Gateway) Pay(orderID, status string) (paymentID, signature string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.seq++
	paymentID = fmt.Sprintf("pay_fake%06d", g.seq)
	order := g.orders[orderID]
	record := domain.PaymentRecord{
		ID:       paymentID,
		OrderID:  orderID,
		Method:   "upi",
		Status:   status,
		Captured: status == domain.StatusCaptured,
		Amount:   order.Amount,
		Currency: order.Currency,
		VPA:      "buyer@upi",
	}
	if status != domain.StatusCaptured {
		record.ErrorCode = "BAD_REQUEST_ERROR"
		record.ErrorDescription = "Payment failed"
	}
	record.Raw, _ = json.Marshal(map[string]any{"id": paymentID, "order_id": orderID, "status": status})
	g.payments[paymentID] = record
	return paymentID, domain.Sign(g.secret, orderID, paymentID)
}

// FailCreate makes subsequent CreateOrder calls fail until cleared with nil.
func (g *Gateway) FailCreate(err error) {
	g.mu.Lock()
	g.createErr = err
	g.mu.Unlock()
}

// FailFetch makes subsequent FetchPayment calls fail until cleared with nil.
func (g *Gateway) FailFetch(err error) {
	g.mu.Lock()
	g.fetchErr = err
	g.mu.Unlock()
}

// Calls reports how many create and fetch calls reached the gateway.
func (g *Gateway) Calls() (creates, fetches int) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.creates, g.fetches
}
