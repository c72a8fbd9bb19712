package domain

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var opened = time.Date(2025, 1, 2, 3, 4, 5, 678_000_000, time.UTC)

func validAddress() *ShippingAddress {
	return &ShippingAddress{FirstName: "Ravi", Phone: "9000000000", Address: "4 Lake View", City: "Kochi", State: "KL", Pincode: "682001"}
}

func newTestOrder(t *testing.T) *Order {
	t.Helper()
	o, err := NewOrder(NewOrderParams{
		UserID:      9,
		Number:      GenerateNumber(9, opened, "a1b2"),
		CartItemIDs: []int64{3, 4},
		Items: []OrderItem{
			{ProductID: 1, ProductName: "Gauze", Quantity: 2, UnitPrice: decimal.NewFromInt(50), LineTotal: decimal.NewFromInt(100)},
			{ProductID: 2, ProductName: "Syringe", Quantity: 1, UnitPrice: decimal.NewFromInt(20), LineTotal: decimal.NewFromInt(20)},
		},
		Subtotal:       decimal.NewFromInt(120),
		DeliveryCharge: decimal.NewFromInt(100),
		Amount:         decimal.NewFromInt(220),
		Currency:       "INR",
		Shipping:       validAddress(),
		Now:            opened,
	})
	require.NoError(t, err)
	o.ID = 77
	return o
}

func TestGenerateNumberAndReceipt(t *testing.T) {
	number := GenerateNumber(9, opened, "a1b2")
	assert.Equal(t, "ORD-9-02012025030405678-a1b2", number)
	assert.Equal(t, "RCT-9-02012025030405678-a1b2", ReceiptFor(number))
}

func TestNewOrder_StartsAwaitingPayment(t *testing.T) {
	o := newTestOrder(t)
	assert.Equal(t, StatusCreated, o.Status)
	assert.Equal(t, PaymentPending, o.PaymentStatus)
	assert.Equal(t, DeliveryNotConfirmed, o.DeliveryStatus)
	assert.False(t, o.IsTerminal())
	assert.Equal(t, int64(3), o.TotalQuantity())
	assert.Equal(t, []StockLine{{ProductID: 1, Quantity: 2}, {ProductID: 2, Quantity: 1}}, o.StockLines())
	assert.Empty(t, o.Events())
}

func TestNewOrder_Rejects(t *testing.T) {
	base := NewOrderParams{
		UserID:   1,
		Items:    []OrderItem{{ProductID: 1, Quantity: 1}},
		Shipping: validAddress(),
	}
	cases := map[string]struct {
		mutate func(p *NewOrderParams)
		want   error
	}{
		"no user":          {func(p *NewOrderParams) { p.UserID = 0 }, ErrInvalidUserID},
		"no items":         {func(p *NewOrderParams) { p.Items = nil }, ErrNoItems},
		"zero quantity":    {func(p *NewOrderParams) { p.Items = []OrderItem{{ProductID: 1}} }, ErrInvalidQuantity},
		"negative amount":  {func(p *NewOrderParams) { p.Amount = decimal.NewFromInt(-1) }, ErrNegativeAmount},
		"no address":       {func(p *NewOrderParams) { p.Shipping = nil }, ErrIncompleteAddress},
		"address no phone": {func(p *NewOrderParams) { a := validAddress(); a.Phone = ""; p.Shipping = a }, ErrIncompleteAddress},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			p := base
			tc.mutate(&p)
			_, err := NewOrder(p)
			require.ErrorIs(t, err, tc.want)
		})
	}
}

func TestAttachGatewayOrder_OnceAndRaisesCreated(t *testing.T) {
	o := newTestOrder(t)
	require.ErrorIs(t, o.AttachGatewayOrder(" ", opened), ErrEmptyGatewayOrderID)
	require.NoError(t, o.AttachGatewayOrder("order_1", opened))
	require.ErrorIs(t, o.AttachGatewayOrder("order_2", opened), ErrGatewayOrderSet)
	assert.Equal(t, "order_1", o.GatewayOrderID)

	events := o.Events()
	require.Len(t, events, 1)
	created, ok := events[0].(OrderCreated)
	require.True(t, ok)
	assert.Equal(t, int64(77), created.OrderID)
	assert.Equal(t, "220.00", created.Amount)
	assert.Equal(t, "order_1", created.GatewayOrderID)

	o.ClearEvents()
	assert.Empty(t, o.Events())
}

func TestTerminalTransitionsHappenOnce(t *testing.T) {
	later := opened.Add(time.Minute)
	cases := map[string]struct {
		apply    func(o *Order) error
		status   Status
		payment  PaymentStatus
		delivery DeliveryStatus
		event    string
	}{
		"paid":      {func(o *Order) error { return o.MarkPaid(later) }, StatusPaid, PaymentPaid, DeliveryConfirmed, "order.paid"},
		"failed":    {func(o *Order) error { return o.MarkFailed("signature_invalid", later) }, StatusFailed, PaymentFailed, DeliveryFailed, "order.failed"},
		"cancelled": {func(o *Order) error { return o.Cancel(later) }, StatusCancelled, PaymentFailed, DeliveryFailed, "order.cancelled"},
		"expired":   {func(o *Order) error { return o.Expire(later) }, StatusFailed, PaymentFailed, DeliveryFailed, "order.expired"},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			o := newTestOrder(t)
			require.NoError(t, tc.apply(o))
			assert.Equal(t, tc.status, o.Status)
			assert.Equal(t, tc.payment, o.PaymentStatus)
			assert.Equal(t, tc.delivery, o.DeliveryStatus)
			assert.Equal(t, later, o.UpdatedAt)
			assert.True(t, o.IsTerminal())
			require.Len(t, o.Events(), 1)
			assert.Equal(t, tc.event, o.Events()[0].EventName())

			require.ErrorIs(t, o.MarkPaid(later), ErrTerminal)
			require.ErrorIs(t, o.MarkFailed("again", later), ErrTerminal)
			require.ErrorIs(t, o.Cancel(later), ErrTerminal)
			require.ErrorIs(t, o.Expire(later), ErrTerminal)
			assert.Len(t, o.Events(), 1)
		})
	}
}

func TestAdvanceDelivery(t *testing.T) {
	o := newTestOrder(t)
	require.ErrorIs(t, o.AdvanceDelivery(DeliveryShipped, opened), ErrNotPaid)
	require.NoError(t, o.MarkPaid(opened))

	require.ErrorIs(t, o.AdvanceDelivery(DeliveryConfirmed, opened), ErrDeliveryBackwards)
	require.ErrorIs(t, o.AdvanceDelivery(DeliveryStatus("lost"), opened), ErrInvalidDeliveryStatus)

	shipped := opened.Add(time.Hour)
	require.NoError(t, o.AdvanceDelivery(DeliveryShipped, shipped))
	require.ErrorIs(t, o.AdvanceDelivery(DeliveryShipped, shipped.Add(time.Hour)), ErrDeliveryBackwards)
	require.NoError(t, o.AdvanceDelivery(DeliveryOutForDelivery, shipped.Add(time.Hour)))
	require.NoError(t, o.AdvanceDelivery(DeliveryDelivered, shipped.Add(2*time.Hour)))

	assert.Equal(t, shipped, *o.ShippedAt)
	assert.Equal(t, shipped.Add(time.Hour), *o.OutForDeliveryAt)
	assert.Equal(t, shipped.Add(2*time.Hour), *o.DeliveredAt)
	assert.Equal(t, shipped.Add(2*time.Hour+72*time.Hour), o.EstimatedDelivery())
	require.ErrorIs(t, o.AdvanceDelivery(DeliveryFailed, shipped), ErrDeliveryBackwards)
}

func TestAdvanceDelivery_FailedStopsFulfilment(t *testing.T) {
	o := newTestOrder(t)
	require.NoError(t, o.MarkPaid(opened))
	require.NoError(t, o.AdvanceDelivery(DeliveryFailed, opened))
	require.ErrorIs(t, o.AdvanceDelivery(DeliveryShipped, opened), ErrDeliveryBackwards)
}

func TestParseDeliveryStatus(t *testing.T) {
	s, err := ParseDeliveryStatus("Out for delivery")
	require.NoError(t, err)
	assert.Equal(t, DeliveryOutForDelivery, s)
	s, err = ParseDeliveryStatus(" not confirmed ")
	require.NoError(t, err)
	assert.Equal(t, DeliveryNotConfirmed, s)
	_, err = ParseDeliveryStatus("teleported")
	require.ErrorIs(t, err, ErrInvalidDeliveryStatus)
}

func TestClone_IsIndependent(t *testing.T) {
	o := newTestOrder(t)
	require.NoError(t, o.AttachGatewayOrder("order_1", opened))
	c := o.Clone()
	c.Items[0].Quantity = 99
	c.CartItemIDs[0] = 99
	c.ShippingAddress.City = "Elsewhere"

	assert.Equal(t, int64(2), o.Items[0].Quantity)
	assert.Equal(t, int64(3), o.CartItemIDs[0])
	assert.Equal(t, "Kochi", o.ShippingAddress.City)
	assert.Empty(t, c.Events())
	assert.Len(t, o.Events(), 1)
}
