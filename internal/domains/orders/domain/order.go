package domain

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Status is the order lifecycle state.
type Status string

const (
	StatusCreated   Status = "created"
	StatusPaid      Status = "paid"
	StatusCancelled Status = "cancelled"
	StatusFailed    Status = "failed"
)

// PaymentStatus tracks whether money has been received.
type PaymentStatus string

const (
	PaymentPending PaymentStatus = "pending"
	PaymentPaid    PaymentStatus = "paid"
	PaymentFailed  PaymentStatus = "failed"
)

// DeliveryStatus tracks fulfilment.
type DeliveryStatus string

const (
	DeliveryNotConfirmed   DeliveryStatus = "not_confirmed"
	DeliveryConfirmed      DeliveryStatus = "confirmed"
	DeliveryShipped        DeliveryStatus = "shipped"
	DeliveryOutForDelivery DeliveryStatus = "out_for_delivery"
	DeliveryDelivered      DeliveryStatus = "delivered"
	DeliveryFailed         DeliveryStatus = "failed"
)

const estimatedDeliveryLead = 72 * time.Hour

var (
	ErrTerminal              = errors.New("order is no longer awaiting payment")
	ErrInvalidUserID         = errors.New("user id must be greater than zero")
	ErrNoItems               = errors.New("order must contain at least one item")
	ErrInvalidQuantity       = errors.New("item quantity must be greater than zero")
	ErrNegativeAmount        = errors.New("order amounts must not be negative")
	ErrGatewayOrderSet       = errors.New("gateway order id is already set")
	ErrEmptyGatewayOrderID   = errors.New("gateway order id is required")
	ErrNotPaid               = errors.New("delivery can only progress on paid orders")
	ErrInvalidDeliveryStatus = errors.New("delivery status is invalid")
	ErrDeliveryBackwards     = errors.New("delivery status can only move forward")
)

// OrderItem is a frozen copy of a purchased line. Display never reads the live product.
type OrderItem struct {
	ProductID       int64
	ProductName     string
	CategoryName    string
	Quantity        int64
	UnitPrice       decimal.Decimal
	DiscountPercent *decimal.Decimal
	LineTotal       decimal.Decimal
}

// Order is the purchase aggregate. Status only leaves created once.
type Order struct {
	ID               int64
	UserID           int64
	Number           string
	Receipt          string
	GatewayOrderID   string
	CartItemIDs      []int64
	Subtotal         decimal.Decimal
	Discount         decimal.Decimal
	DeliveryCharge   decimal.Decimal
	Amount           decimal.Decimal
	Currency         string
	Status           Status
	PaymentStatus    PaymentStatus
	DeliveryStatus   DeliveryStatus
	Items            []OrderItem
	ShippingAddress  *ShippingAddress
	Payment          *Payment
	CreatedAt        time.Time
	UpdatedAt        time.Time
	ShippedAt        *time.Time
	OutForDeliveryAt *time.Time
	DeliveredAt      *time.Time

	events []Event
}

// NewOrderParams carries what checkout knows when it opens an order.
type NewOrderParams struct {
	UserID         int64
	Number         string
	CartItemIDs    []int64
	Items          []OrderItem
	Subtotal       decimal.Decimal
	Discount       decimal.Decimal
	DeliveryCharge decimal.Decimal
	Amount         decimal.Decimal
	Currency       string
	Shipping       *ShippingAddress
	Now            time.Time
}

// NewOrder opens an order awaiting payment.
func NewOrder(p NewOrderParams) (*Order, error) {
	if p.UserID <= 0 {
		return nil, ErrInvalidUserID
	}
	if len(p.Items) == 0 {
		return nil, ErrNoItems
	}
	for _, item := range p.Items {
		if item.Quantity <= 0 {
			return nil, ErrInvalidQuantity
		}
	}
	for _, amount := range []decimal.Decimal{p.Subtotal, p.Discount, p.DeliveryCharge, p.Amount} {
		if amount.IsNegative() {
			return nil, ErrNegativeAmount
		}
	}
	if p.Shipping == nil {
		return nil, ErrIncompleteAddress
	}
	if err := p.Shipping.Validate(); err != nil {
		return nil, err
	}
	now := p.Now.UTC()
	shipping := *p.Shipping
	o := &Order{
		UserID:          p.UserID,
		Number:          p.Number,
		Receipt:         ReceiptFor(p.Number),
		CartItemIDs:     append([]int64(nil), p.CartItemIDs...),
		Items:           append([]OrderItem(nil), p.Items...),
		Subtotal:        p.Subtotal,
		Discount:        p.Discount,
		DeliveryCharge:  p.DeliveryCharge,
		Amount:          p.Amount,
		Currency:        p.Currency,
		Status:          StatusCreated,
		PaymentStatus:   PaymentPending,
		DeliveryStatus:  DeliveryNotConfirmed,
		ShippingAddress: &shipping,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	return o, nil
}

// GenerateNumber formats ORD-{user}-{DDMMYYYYHHMMSSmmm}-{suffix}. The suffix keeps two checkouts
// by the same user in the same millisecond apart.
func GenerateNumber(userID int64, now time.Time, suffix string) string {
	stamp := now.Format("02012006150405") + fmt.Sprintf("%03d", now.Nanosecond()/int(time.Millisecond))
	return fmt.Sprintf("ORD-%d-%s-%s", userID, stamp, suffix)
}

// ReceiptFor derives the gateway receipt from an order number.
func ReceiptFor(number string) string {
	return "RCT-" + strings.TrimPrefix(number, "ORD-")
}

func (o *Order) IsTerminal() bool {
	return o.Status != StatusCreated
}

// AttachGatewayOrder records the gateway's order id. It can be set once.
func (o *Order) AttachGatewayOrder(id string, now time.Time) error {
	if strings.TrimSpace(id) == "" {
		return ErrEmptyGatewayOrderID
	}
	if o.GatewayOrderID != "" {
		return ErrGatewayOrderSet
	}
	o.GatewayOrderID = id
	o.UpdatedAt = now.UTC()
	o.record(OrderCreated{OrderEvent: o.eventBody(now)})
	return nil
}

// MarkPaid settles a captured payment.
func (o *Order) MarkPaid(now time.Time) error {
	if err := o.requireCreated(); err != nil {
		return err
	}
	o.settle(StatusPaid, PaymentPaid, DeliveryConfirmed, now)
	o.record(OrderPaid{OrderEvent: o.eventBody(now)})
	return nil
}

// MarkFailed closes an order whose payment failed or whose callback could not be trusted.
func (o *Order) MarkFailed(reason string, now time.Time) error {
	if err := o.requireCreated(); err != nil {
		return err
	}
	o.settle(StatusFailed, PaymentFailed, DeliveryFailed, now)
	o.record(OrderFailed{OrderEvent: o.eventBody(now), Reason: reason})
	return nil
}

// Cancel closes an order the buyer abandoned.
func (o *Order) Cancel(now time.Time) error {
	if err := o.requireCreated(); err != nil {
		return err
	}
	o.settle(StatusCancelled, PaymentFailed, DeliveryFailed, now)
	o.record(OrderCancelled{OrderEvent: o.eventBody(now)})
	return nil
}

// Expire closes an order that never received a callback.
func (o *Order) Expire(now time.Time) error {
	if err := o.requireCreated(); err != nil {
		return err
	}
	o.settle(StatusFailed, PaymentFailed, DeliveryFailed, now)
	o.record(OrderExpired{OrderEvent: o.eventBody(now)})
	return nil
}

func (o *Order) requireCreated() error {
	if o.Status != StatusCreated {
		return fmt.Errorf("%w: status is %s", ErrTerminal, o.Status)
	}
	return nil
}

func (o *Order) settle(status Status, payment PaymentStatus, delivery DeliveryStatus, now time.Time) {
	o.Status = status
	o.PaymentStatus = payment
	o.DeliveryStatus = delivery
	o.UpdatedAt = now.UTC()
}

var deliveryRank = map[DeliveryStatus]int{
	DeliveryConfirmed:      1,
	DeliveryShipped:        2,
	DeliveryOutForDelivery: 3,
	DeliveryDelivered:      4,
}

// AdvanceDelivery moves a paid order forward through fulfilment. Milestone timestamps are set the
// first time the milestone is reached and never overwritten.
func (o *Order) AdvanceDelivery(status DeliveryStatus, now time.Time) error {
	if o.Status != StatusPaid {
		return ErrNotPaid
	}
	if o.DeliveryStatus == DeliveryDelivered || o.DeliveryStatus == DeliveryFailed {
		return ErrDeliveryBackwards
	}
	switch status {
	case DeliveryFailed:
	case DeliveryShipped, DeliveryOutForDelivery, DeliveryDelivered:
		if deliveryRank[status] <= deliveryRank[o.DeliveryStatus] {
			return ErrDeliveryBackwards
		}
	default:
		return ErrInvalidDeliveryStatus
	}
	at := now.UTC()
	o.DeliveryStatus = status
	o.UpdatedAt = at
	switch status {
	case DeliveryShipped:
		if o.ShippedAt == nil {
			o.ShippedAt = &at
		}
	case DeliveryOutForDelivery:
		if o.OutForDeliveryAt == nil {
			o.OutForDeliveryAt = &at
		}
	case DeliveryDelivered:
		if o.DeliveredAt == nil {
			o.DeliveredAt = &at
		}
	}
	return nil
}

// ParseDeliveryStatus accepts the wire names, including the spaced variants.
func ParseDeliveryStatus(s string) (DeliveryStatus, error) {
	normalized := DeliveryStatus(strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), " ", "_"))
	switch normalized {
	case DeliveryNotConfirmed, DeliveryConfirmed, DeliveryShipped, DeliveryOutForDelivery, DeliveryDelivered, DeliveryFailed:
		return normalized, nil
	default:
		return "", ErrInvalidDeliveryStatus
	}
}

// EstimatedDelivery is three days after the last change.
func (o *Order) EstimatedDelivery() time.Time {
	return o.UpdatedAt.Add(estimatedDeliveryLead)
}

func (o *Order) TotalQuantity() int64 {
	var total int64
	for _, item := range o.Items {
		total += item.Quantity
	}
	return total
}

// StockLines returns what the order holds, one entry per item.
func (o *Order) StockLines() []StockLine {
	lines := make([]StockLine, 0, len(o.Items))
	for _, item := range o.Items {
		lines = append(lines, StockLine{ProductID: item.ProductID, Quantity: item.Quantity})
	}
	return lines
}

// StockLine is a product quantity held by an order.
type StockLine struct {
	ProductID int64
	Quantity  int64
}

// Clone returns a deep copy without pending events.
func (o *Order) Clone() *Order {
	if o == nil {
		return nil
	}
	c := *o
	c.events = nil
	c.CartItemIDs = append([]int64(nil), o.CartItemIDs...)
	c.Items = make([]OrderItem, len(o.Items))
	for i, item := range o.Items {
		c.Items[i] = item
		if item.DiscountPercent != nil {
			d := *item.DiscountPercent
			c.Items[i].DiscountPercent = &d
		}
	}
	if o.ShippingAddress != nil {
		addr := *o.ShippingAddress
		c.ShippingAddress = &addr
	}
	if o.Payment != nil {
		p := *o.Payment
		p.Raw = append([]byte(nil), o.Payment.Raw...)
		c.Payment = &p
	}
	c.ShippedAt = cloneTime(o.ShippedAt)
	c.OutForDeliveryAt = cloneTime(o.OutForDeliveryAt)
	c.DeliveredAt = cloneTime(o.DeliveredAt)
	return &c
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}
