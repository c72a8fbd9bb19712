package razorpay

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	rzp "github.com/razorpay/razorpay-go"
	"github.com/razorpay/razorpay-go/utils"

	"github.com/Apurer/medstore-checkout/internal/domains/payments/domain"
	"github.com/Apurer/medstore-checkout/internal/domains/payments/ports"
)

var _ ports.Gateway = (*Gateway)(nil)

// orderAPI and paymentAPI are the slices of the SDK client the adapter uses.
type orderAPI interface {
	Create(data map[string]interface{}, extraHeaders map[string]string) (map[string]interface{}, error)
}

type paymentAPI interface {
	Fetch(paymentID string, queryParams map[string]interface{}, extraHeaders map[string]string) (map[string]interface{}, error)
}

// Gateway talks to Razorpay through the official SDK.
type Gateway struct {
	keyID     string
	keySecret string
	orders    orderAPI
	payments  paymentAPI
}

// New builds a Razorpay gateway from API credentials.
func New(keyID, keySecret string) (*Gateway, error) {
	if strings.TrimSpace(keyID) == "" || strings.TrimSpace(keySecret) == "" {
		return nil, errors.New("razorpay key id and secret are required")
	}
	client := rzp.NewClient(keyID, keySecret)
	return newGateway(keyID, keySecret, client.Order, client.Payment), nil
}

func newGateway(keyID, keySecret string, orders orderAPI, payments paymentAPI) *Gateway {
	return &Gateway{keyID: keyID, keySecret: keySecret, orders: orders, payments: payments}
}

func (g *Gateway) PublicKey() string { return g.keyID }

// CreateOrder registers an auto-captured, non-partial order for the payable amount.
func (g *Gateway) CreateOrder(ctx context.Context, req domain.CreateOrderRequest) (domain.RemoteOrder, error) {
	if err := req.Validate(); err != nil {
		return domain.RemoteOrder{}, err
	}
	if err := ctx.Err(); err != nil {
		return domain.RemoteOrder{}, err
	}
	notes := make(map[string]interface{}, len(req.Notes))
	for k, v := range req.Notes {
		notes[k] = v
	}
	data := map[string]interface{}{
		"amount":          req.AmountMinor,
		"currency":        req.Currency,
		"receipt":         req.Receipt,
		"payment_capture": 1,
		"partial_payment": false,
		"notes":           notes,
	}
	resp, err := g.orders.Create(data, nil)
	if err != nil {
		return domain.RemoteOrder{}, fmt.Errorf("%w: create order: %w", ports.ErrGatewayUnavailable, err)
	}
	id := stringField(resp, "id")
	if id == "" {
		return domain.RemoteOrder{}, fmt.Errorf("%w: create order returned no id", ports.ErrGatewayUnavailable)
	}
	return domain.RemoteOrder{
		ID:       id,
		Amount:   intField(resp, "amount"),
		Currency: stringField(resp, "currency"),
		Status:   stringField(resp, "status"),
		Receipt:  stringField(resp, "receipt"),
	}, nil
}

// VerifySignature checks the checkout callback signature against the key secret.
func (g *Gateway) VerifySignature(orderID, paymentID, signature string) error {
	if orderID == "" || paymentID == "" || signature == "" {
		return ports.ErrSignatureInvalid
	}
	attrs := map[string]interface{}{
		"razorpay_order_id":   orderID,
		"razorpay_payment_id": paymentID,
	}
	if !utils.VerifyPaymentSignature(attrs, strings.TrimSpace(signature), g.keySecret) {
		return ports.ErrSignatureInvalid
	}
	return nil
}

// FetchPayment loads the authoritative payment state.
func (g *Gateway) FetchPayment(ctx context.Context, paymentID string) (domain.PaymentRecord, error) {
	if err := ctx.Err(); err != nil {
		return domain.PaymentRecord{}, err
	}
	resp, err := g.payments.Fetch(paymentID, nil, nil)
	if err != nil {
		return domain.PaymentRecord{}, fmt.Errorf("%w: fetch payment: %w", ports.ErrGatewayUnavailable, err)
	}
	return parsePayment(resp)
}

func parsePayment(resp map[string]interface{}) (domain.PaymentRecord, error) {
	raw, err := json.Marshal(resp)
	if err != nil {
		return domain.PaymentRecord{}, fmt.Errorf("encode payment response: %w", err)
	}
	currency := stringField(resp, "currency")
	if currency == "" {
		currency = "INR"
	}
	return domain.PaymentRecord{
		ID:               stringField(resp, "id"),
		OrderID:          stringField(resp, "order_id"),
		Method:           stringField(resp, "method"),
		Status:           stringField(resp, "status"),
		Captured:         boolField(resp, "captured"),
		Amount:           intField(resp, "amount"),
		Currency:         currency,
		Fee:              intField(resp, "fee"),
		Tax:              intField(resp, "tax"),
		Email:            stringField(resp, "email"),
		Contact:          stringField(resp, "contact"),
		Bank:             stringField(resp, "bank"),
		Wallet:           stringField(resp, "wallet"),
		VPA:              stringField(resp, "vpa"),
		International:    boolField(resp, "international"),
		ErrorCode:        stringField(resp, "error_code"),
		ErrorDescription: stringField(resp, "error_description"),
		Raw:              raw,
	}, nil
}

func stringField(m map[string]interface{}, key string) string {
	switch v := m[key].(type) {
	case string:
		return v
	case nil:
		return ""
	default:
		return fmt.Sprint(v)
	}
}

// intField accepts the shapes the SDK's JSON decoding produces. Missing and null become 0.
func intField(m map[string]interface{}, key string) int64 {
	switch v := m[key].(type) {
	case float64:
		return int64(v)
	case int:
		return int64(v)
	case int64:
		return v
	case json.Number:
		n, _ := v.Int64()
		return n
	case string:
		n, _ := strconv.ParseInt(v, 10, 64)
		return n
	default:
		return 0
	}
}

func boolField(m map[string]interface{}, key string) bool {
	v, _ := m[key].(bool)
	return v
}
