package mapper

import (
	"fmt"
	"strings"
	"time"

	openapi_types "github.com/oapi-codegen/runtime/types"

	"github.com/Apurer/medstore-checkout/internal/domains/orders/application/types"
	"github.com/Apurer/medstore-checkout/internal/domains/orders/domain"
)

// ShippingAddress is the HTTP representation of a delivery address.
type ShippingAddress struct {
	FirstName string              `json:"firstName"`
	LastName  string              `json:"lastName,omitempty"`
	Email     openapi_types.Email `json:"email,omitempty"`
	Phone     string              `json:"phone"`
	Address   string              `json:"address"`
	City      string              `json:"city"`
	State     string              `json:"state"`
	Pincode   string              `json:"pincode"`
}

// CheckoutRequest starts a checkout. CartItemID narrows the checkout to one cart line.
type CheckoutRequest struct {
	CartItemID           *int64           `json:"cartItemId,omitempty"`
	UseRegisteredAddress bool             `json:"useRegisteredAddress,omitempty"`
	Shipping             *ShippingAddress `json:"shipping,omitempty"`
}

// CheckoutResponse carries what the browser needs to open the hosted payment page.
type CheckoutResponse struct {
	OrderID        int64  `json:"orderId"`
	OrderNumber    string `json:"orderNumber"`
	GatewayKey     string `json:"gatewayKey"`
	GatewayOrderID string `json:"gatewayOrderId"`
	Amount         string `json:"amount"`
	AmountMinor    int64  `json:"amountMinor"`
	Currency       string `json:"currency"`
}

// PaymentCallback is the form the hosted checkout posts back.
type PaymentCallback struct {
	PaymentID   string `json:"razorpay_payment_id" form:"razorpay_payment_id"`
	OrderID     string `json:"razorpay_order_id" form:"razorpay_order_id"`
	Signature   string `json:"razorpay_signature" form:"razorpay_signature"`
	OrderNumber string `json:"order_number" form:"order_number"`
}

// CallbackResponse tells the client which result page to show.
type CallbackResponse struct {
	Outcome     string `json:"outcome"`
	OrderID     int64  `json:"orderId"`
	OrderNumber string `json:"orderNumber"`
	Redirect    string `json:"redirect"`
}

// DeliveryUpdate moves fulfilment forward.
type DeliveryUpdate struct {
	Status string `json:"status"`
}

type OrderItem struct {
	ProductID       int64   `json:"productId"`
	ProductName     string  `json:"productName"`
	CategoryName    string  `json:"categoryName,omitempty"`
	Quantity        int64   `json:"quantity"`
	UnitPrice       string  `json:"unitPrice"`
	DiscountPercent *string `json:"discountPercent,omitempty"`
	LineTotal       string  `json:"lineTotal"`
}

type Payment struct {
	GatewayPaymentID string `json:"gatewayPaymentId"`
	Method           string `json:"method,omitempty"`
	Status           string `json:"status"`
	Captured         bool   `json:"captured"`
	Amount           int64  `json:"amountMinor"`
	Currency         string `json:"currency,omitempty"`
}

// Order is the tracking view of an order.
type Order struct {
	ID                int64            `json:"id"`
	Number            string           `json:"number"`
	Status            string           `json:"status"`
	PaymentStatus     string           `json:"paymentStatus"`
	DeliveryStatus    string           `json:"deliveryStatus"`
	Subtotal          string           `json:"subtotal"`
	Discount          string           `json:"discount"`
	DeliveryCharge    string           `json:"deliveryCharge"`
	Amount            string           `json:"amount"`
	Currency          string           `json:"currency"`
	TotalQuantity     int64            `json:"totalQuantity"`
	Items             []OrderItem      `json:"items"`
	Shipping          *ShippingAddress `json:"shipping,omitempty"`
	Payment           *Payment         `json:"payment,omitempty"`
	CreatedAt         time.Time        `json:"createdAt"`
	ShippedAt         *time.Time       `json:"shippedAt,omitempty"`
	OutForDeliveryAt  *time.Time       `json:"outForDeliveryAt,omitempty"`
	DeliveredAt       *time.Time       `json:"deliveredAt,omitempty"`
	EstimatedDelivery *time.Time       `json:"estimatedDelivery,omitempty"`
}

// ToInitiateInput maps a checkout request for the given user.
func ToInitiateInput(userID int64, idempotencyKey string, req CheckoutRequest) types.InitiateInput {
	input := types.InitiateInput{
		UserID:               userID,
		CartItemID:           req.CartItemID,
		UseRegisteredAddress: req.UseRegisteredAddress,
		IdempotencyKey:       strings.TrimSpace(idempotencyKey),
	}
	if req.Shipping != nil {
		addr := ToDomainAddress(*req.Shipping)
		input.Shipping = &addr
	}
	return input
}

func ToDomainAddress(a ShippingAddress) domain.ShippingAddress {
	return domain.ShippingAddress{
		FirstName: a.FirstName,
		LastName:  a.LastName,
		Email:     string(a.Email),
		Phone:     a.Phone,
		Address:   a.Address,
		City:      a.City,
		State:     a.State,
		Pincode:   a.Pincode,
	}.Normalize()
}

func FromDomainAddress(a *domain.ShippingAddress) *ShippingAddress {
	if a == nil {
		return nil
	}
	return &ShippingAddress{
		FirstName: a.FirstName,
		LastName:  a.LastName,
		Email:     openapi_types.Email(a.Email),
		Phone:     a.Phone,
		Address:   a.Address,
		City:      a.City,
		State:     a.State,
		Pincode:   a.Pincode,
	}
}

// ToVerifyInput maps a gateway callback.
func ToVerifyInput(userID int64, cb PaymentCallback) types.VerifyInput {
	return types.VerifyInput{
		UserID:           userID,
		OrderNumber:      strings.TrimSpace(cb.OrderNumber),
		GatewayOrderID:   strings.TrimSpace(cb.OrderID),
		GatewayPaymentID: strings.TrimSpace(cb.PaymentID),
		Signature:        strings.TrimSpace(cb.Signature),
	}
}

func FromInitiateResult(res *types.InitiateResult) CheckoutResponse {
	return CheckoutResponse{
		OrderID:        res.Order.ID,
		OrderNumber:    res.Order.Number,
		GatewayKey:     res.GatewayKey,
		GatewayOrderID: res.GatewayOrderID,
		Amount:         res.Order.Amount.StringFixed(2),
		AmountMinor:    res.AmountMinor,
		Currency:       res.Order.Currency,
	}
}

// FromVerifyResult maps an outcome to the result page. Only a paid order lands on the success page;
// a stale callback on an already paid order does too. Why a payment failed stays in the logs.
func FromVerifyResult(res *types.VerifyResult) CallbackResponse {
	page := "failed"
	if res.Order.Status == domain.StatusPaid {
		page = "success"
	}
	return CallbackResponse{
		Outcome:     string(res.Outcome),
		OrderID:     res.Order.ID,
		OrderNumber: res.Order.Number,
		Redirect:    fmt.Sprintf("/payment/%s/%d", page, res.Order.ID),
	}
}

func FromDomainOrder(o *domain.Order) Order {
	out := Order{
		ID:               o.ID,
		Number:           o.Number,
		Status:           string(o.Status),
		PaymentStatus:    string(o.PaymentStatus),
		DeliveryStatus:   string(o.DeliveryStatus),
		Subtotal:         o.Subtotal.StringFixed(2),
		Discount:         o.Discount.StringFixed(2),
		DeliveryCharge:   o.DeliveryCharge.StringFixed(2),
		Amount:           o.Amount.StringFixed(2),
		Currency:         o.Currency,
		TotalQuantity:    o.TotalQuantity(),
		Items:            make([]OrderItem, 0, len(o.Items)),
		Shipping:         FromDomainAddress(o.ShippingAddress),
		CreatedAt:        o.CreatedAt,
		ShippedAt:        o.ShippedAt,
		OutForDeliveryAt: o.OutForDeliveryAt,
		DeliveredAt:      o.DeliveredAt,
	}
	for _, it := range o.Items {
		item := OrderItem{
			ProductID:    it.ProductID,
			ProductName:  it.ProductName,
			CategoryName: it.CategoryName,
			Quantity:     it.Quantity,
			UnitPrice:    it.UnitPrice.StringFixed(2),
			LineTotal:    it.LineTotal.StringFixed(2),
		}
		if it.DiscountPercent != nil {
			d := it.DiscountPercent.StringFixed(2)
			item.DiscountPercent = &d
		}
		out.Items = append(out.Items, item)
	}
	if p := o.Payment; p != nil {
		out.Payment = &Payment{
			GatewayPaymentID: p.GatewayPaymentID,
			Method:           p.Method,
			Status:           p.Status,
			Captured:         p.Captured,
			Amount:           p.Amount,
			Currency:         p.Currency,
		}
	}
	if o.Status == domain.StatusPaid && o.DeliveryStatus != domain.DeliveryFailed {
		eta := o.EstimatedDelivery()
		out.EstimatedDelivery = &eta
	}
	return out
}

func FromDomainOrders(orders []*domain.Order) []Order {
	out := make([]Order, 0, len(orders))
	for _, o := range orders {
		out = append(out, FromDomainOrder(o))
	}
	return out
}
