package application

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	cartmemory "github.com/Apurer/medstore-checkout/internal/domains/cart/adapters/memory"
	cartdomain "github.com/Apurer/medstore-checkout/internal/domains/cart/domain"
	customermemory "github.com/Apurer/medstore-checkout/internal/domains/customers/adapters/memory"
	customerdomain "github.com/Apurer/medstore-checkout/internal/domains/customers/domain"
	inventorymemory "github.com/Apurer/medstore-checkout/internal/domains/inventory/adapters/memory"
	inventorydomain "github.com/Apurer/medstore-checkout/internal/domains/inventory/domain"
	"github.com/Apurer/medstore-checkout/internal/domains/orders/adapters/addressbook"
	ordersmemory "github.com/Apurer/medstore-checkout/internal/domains/orders/adapters/memory"
	"github.com/Apurer/medstore-checkout/internal/domains/orders/application/types"
	"github.com/Apurer/medstore-checkout/internal/domains/orders/domain"
	"github.com/Apurer/medstore-checkout/internal/domains/orders/ports"
	"github.com/Apurer/medstore-checkout/internal/domains/payments/adapters/fake"
	paymentsdomain "github.com/Apurer/medstore-checkout/internal/domains/payments/domain"
	paymentsports "github.com/Apurer/medstore-checkout/internal/domains/payments/ports"
)

const buyer = int64(42)

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type harness struct {
	svc       *Service
	ledger    *inventorymemory.Ledger
	carts     *cartmemory.Repository
	orders    *ordersmemory.Repository
	outbox    *ordersmemory.Outbox
	customers *customermemory.Repository
	gateway   *fake.Gateway
	clock     *testClock
}

func newHarness(t *testing.T, opts ...Option) *harness {
	t.Helper()
	h := &harness{
		ledger:    inventorymemory.NewLedger(),
		carts:     cartmemory.NewRepository(),
		orders:    ordersmemory.NewRepository(),
		outbox:    ordersmemory.NewOutbox(),
		customers: customermemory.NewRepository(),
		gateway:   fake.New(),
		clock:     &testClock{now: time.Date(2025, 3, 7, 10, 30, 0, 0, time.UTC)},
	}
	var seq atomic.Int64
	suffix := WithNumberSuffix(func() string { return fmt.Sprintf("%04x", seq.Add(1)) })
	idem := ordersmemory.NewIdempotencyStore()
	uow := ordersmemory.NewUnitOfWork(h.orders, h.ledger, h.carts, h.outbox, idem)
	svc, err := NewService(DefaultConfig(), Dependencies{
		UnitOfWork:  uow,
		Orders:      h.orders,
		Idempotency: idem,
		Gateway:     h.gateway,
		Addresses:   addressbook.NewCustomers(h.customers),
	}, append([]Option{WithClock(h.clock.Now), suffix}, opts...)...)
	require.NoError(t, err)
	h.svc = svc
	return h
}

func (h *harness) product(t *testing.T, id int64, name, price string, discount string, stock int64) {
	t.Helper()
	var d *decimal.Decimal
	if discount != "" {
		v := decimal.RequireFromString(discount)
		d = &v
	}
	_, err := h.ledger.Save(context.Background(), &inventorydomain.Product{
		ID: id, Name: name, CategoryName: "Devices", Price: decimal.RequireFromString(price), DiscountPercent: d, Stock: stock,
	})
	require.NoError(t, err)
}

func (h *harness) addToCart(t *testing.T, productID, qty int64) *cartdomain.LineItem {
	t.Helper()
	item, err := h.carts.Add(context.Background(), &cartdomain.LineItem{UserID: buyer, ProductID: productID, Quantity: qty})
	require.NoError(t, err)
	return item
}

func (h *harness) stock(t *testing.T, productID int64) int64 {
	t.Helper()
	p, err := h.ledger.Get(context.Background(), productID)
	require.NoError(t, err)
	return p.Stock
}

func (h *harness) eventTypes() []string {
	var out []string
	for _, m := range h.outbox.Messages() {
		out = append(out, m.EventType)
	}
	return out
}

func shipping() *domain.ShippingAddress {
	return &domain.ShippingAddress{
		FirstName: "Asha", LastName: "Rao", Email: "asha@example.com", Phone: "9876543210",
		Address: "12 MG Road", City: "Pune", State: "MH", Pincode: "411001",
	}
}

func TestInitiate_PricesReservesAndOpensGatewayOrder(t *testing.T) {
	h := newHarness(t, WithNumberSuffix(func() string { return "beef" }))
	h.product(t, 1, "Pulse oximeter", "1000.00", "10", 5)
	line := h.addToCart(t, 1, 1)

	res, err := h.svc.Initiate(context.Background(), types.InitiateInput{UserID: buyer, Shipping: shipping()})
	require.NoError(t, err)

	order := res.Order
	assert.Equal(t, "ORD-42-07032025103000000-beef", order.Number)
	assert.Equal(t, "RCT-42-07032025103000000-beef", order.Receipt)
	assert.True(t, order.Subtotal.Equal(decimal.RequireFromString("900.00")))
	assert.True(t, order.DeliveryCharge.IsZero())
	assert.True(t, order.Amount.Equal(decimal.RequireFromString("900.00")))
	assert.Equal(t, int64(90000), res.AmountMinor)
	assert.Equal(t, fake.DefaultKeyID, res.GatewayKey)
	assert.Equal(t, order.GatewayOrderID, res.GatewayOrderID)
	assert.Equal(t, domain.StatusCreated, order.Status)
	assert.Equal(t, domain.PaymentPending, order.PaymentStatus)
	assert.Equal(t, domain.DeliveryNotConfirmed, order.DeliveryStatus)
	assert.Equal(t, []int64{line.ID}, order.CartItemIDs)
	require.Len(t, order.Items, 1)
	assert.Equal(t, "Pulse oximeter", order.Items[0].ProductName)
	assert.True(t, order.Items[0].LineTotal.Equal(decimal.RequireFromString("900.00")))

	assert.Equal(t, int64(4), h.stock(t, 1))
	assert.Equal(t, []string{"order.created"}, h.eventTypes())

	stored, err := h.orders.GetByGatewayOrderID(context.Background(), res.GatewayOrderID)
	require.NoError(t, err)
	assert.Equal(t, order.ID, stored.ID)
}

func TestInitiate_InsufficientStockChangesNothing(t *testing.T) {
	h := newHarness(t)
	h.product(t, 1, "Thermometer", "250.00", "", 10)
	h.product(t, 2, "Nebulizer", "1800.00", "", 2)
	h.addToCart(t, 1, 1)
	h.addToCart(t, 2, 3)

	_, err := h.svc.Initiate(context.Background(), types.InitiateInput{UserID: buyer, Shipping: shipping()})
	require.ErrorIs(t, err, inventorydomain.ErrInsufficientStock)
	var shortage *inventorydomain.InsufficientStockError
	require.True(t, errors.As(err, &shortage))
	assert.Equal(t, []string{"Nebulizer"}, shortage.ProductNames())

	assert.Equal(t, int64(10), h.stock(t, 1))
	assert.Equal(t, int64(2), h.stock(t, 2))
	orders, err := h.orders.ListByUser(context.Background(), buyer)
	require.NoError(t, err)
	assert.Empty(t, orders)
	assert.Empty(t, h.outbox.Messages())
	creates, _ := h.gateway.Calls()
	assert.Equal(t, 0, creates)
}

func TestInitiate_GatewayFailureRollsBackReservation(t *testing.T) {
	h := newHarness(t)
	h.product(t, 1, "Thermometer", "250.00", "", 10)
	h.addToCart(t, 1, 2)
	h.gateway.FailCreate(errors.New("connection refused"))

	_, err := h.svc.Initiate(context.Background(), types.InitiateInput{UserID: buyer, Shipping: shipping()})
	require.ErrorIs(t, err, paymentsports.ErrGatewayUnavailable)

	assert.Equal(t, int64(10), h.stock(t, 1))
	orders, err := h.orders.ListByUser(context.Background(), buyer)
	require.NoError(t, err)
	assert.Empty(t, orders)
	assert.Empty(t, h.outbox.Messages())
}

func TestInitiate_SingleCartLine(t *testing.T) {
	h := newHarness(t)
	h.product(t, 1, "Thermometer", "250.00", "", 10)
	h.product(t, 2, "Bandage", "40.00", "", 10)
	h.addToCart(t, 1, 1)
	bandage := h.addToCart(t, 2, 2)

	res, err := h.svc.Initiate(context.Background(), types.InitiateInput{UserID: buyer, CartItemID: &bandage.ID, Shipping: shipping()})
	require.NoError(t, err)
	require.Len(t, res.Order.Items, 1)
	assert.True(t, res.Order.Subtotal.Equal(decimal.RequireFromString("80.00")))
	assert.True(t, res.Order.DeliveryCharge.Equal(decimal.RequireFromString("100.00")))
	assert.True(t, res.Order.Amount.Equal(decimal.RequireFromString("180.00")))
	assert.Equal(t, int64(10), h.stock(t, 1))
	assert.Equal(t, int64(8), h.stock(t, 2))
}

func TestInitiate_Rejections(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	_, err := h.svc.Initiate(ctx, types.InitiateInput{UserID: buyer, Shipping: shipping()})
	require.ErrorIs(t, err, ErrEmptyCart)

	missing := int64(999)
	_, err = h.svc.Initiate(ctx, types.InitiateInput{UserID: buyer, CartItemID: &missing, Shipping: shipping()})
	require.ErrorIs(t, err, ErrEmptyCart)

	h.product(t, 1, "Thermometer", "250.00", "", 10)
	h.addToCart(t, 1, 1)

	_, err = h.svc.Initiate(ctx, types.InitiateInput{UserID: buyer})
	require.ErrorIs(t, err, ErrAddressRequired)

	partial := shipping()
	partial.City = " "
	_, err = h.svc.Initiate(ctx, types.InitiateInput{UserID: buyer, Shipping: partial})
	require.ErrorIs(t, err, ErrAddressRequired)

	_, err = h.svc.Initiate(ctx, types.InitiateInput{UserID: buyer, UseRegisteredAddress: true})
	require.ErrorIs(t, err, ErrAddressRequired)

	_, err = h.svc.Initiate(ctx, types.InitiateInput{UserID: 0, Shipping: shipping()})
	require.ErrorIs(t, err, ErrInvalidInput)

	assert.Equal(t, int64(10), h.stock(t, 1))
}

func TestInitiate_RegisteredAddress(t *testing.T) {
	h := newHarness(t)
	h.product(t, 1, "Thermometer", "250.00", "", 10)
	h.addToCart(t, 1, 1)
	customer, err := customerdomain.NewCustomer(buyer, customerdomain.Profile{
		FirstName: "Asha", Phone: "9876543210", Address: "12 MG Road", City: "Pune", State: "MH", Pincode: "411001",
	})
	require.NoError(t, err)
	_, err = h.customers.Save(context.Background(), customer)
	require.NoError(t, err)

	res, err := h.svc.Initiate(context.Background(), types.InitiateInput{UserID: buyer, UseRegisteredAddress: true})
	require.NoError(t, err)
	require.NotNil(t, res.Order.ShippingAddress)
	assert.Equal(t, "12 MG Road", res.Order.ShippingAddress.Address)
	assert.Equal(t, "411001", res.Order.ShippingAddress.Pincode)
}

func TestInitiate_IdempotencyKeyReplaysOrder(t *testing.T) {
	h := newHarness(t)
	h.product(t, 1, "Thermometer", "250.00", "", 10)
	h.addToCart(t, 1, 1)
	ctx := context.Background()
	input := types.InitiateInput{UserID: buyer, Shipping: shipping(), IdempotencyKey: "key-1"}

	first, err := h.svc.Initiate(ctx, input)
	require.NoError(t, err)
	second, err := h.svc.Initiate(ctx, input)
	require.NoError(t, err)

	assert.True(t, second.Replayed)
	assert.Equal(t, first.Order.ID, second.Order.ID)
	assert.Equal(t, first.GatewayOrderID, second.GatewayOrderID)
	assert.Equal(t, int64(9), h.stock(t, 1))
	creates, _ := h.gateway.Calls()
	assert.Equal(t, 1, creates)

	changed := input
	changed.Shipping = shipping()
	changed.Shipping.City = "Mumbai"
	_, err = h.svc.Initiate(ctx, changed)
	require.ErrorIs(t, err, ports.ErrIdempotencyConflict)
}

func TestInitiate_ConcurrentSameKeyCreatesOneOrder(t *testing.T) {
	h := newHarness(t)
	h.product(t, 1, "Thermometer", "250.00", "", 10)
	h.addToCart(t, 1, 1)
	input := types.InitiateInput{UserID: buyer, Shipping: shipping(), IdempotencyKey: "key-2"}

	var wg sync.WaitGroup
	results := make([]*types.InitiateResult, 8)
	errs := make([]error, 8)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = h.svc.Initiate(context.Background(), input)
		}(i)
	}
	wg.Wait()

	for i := range results {
		require.NoError(t, errs[i])
		assert.Equal(t, results[0].Order.ID, results[i].Order.ID)
	}
	assert.Equal(t, int64(9), h.stock(t, 1))
}

func TestVerify_CapturedPaymentMarksPaidAndClearsCart(t *testing.T) {
	h := newHarness(t)
	h.product(t, 1, "Pulse oximeter", "1000.00", "10", 5)
	h.product(t, 2, "Bandage", "40.00", "", 5)
	paidLine := h.addToCart(t, 1, 1)
	res, err := h.svc.Initiate(context.Background(), types.InitiateInput{UserID: buyer, CartItemID: &paidLine.ID, Shipping: shipping()})
	require.NoError(t, err)
	h.addToCart(t, 2, 1)

	paymentID, sig := h.gateway.Pay(res.GatewayOrderID, paymentsdomain.StatusCaptured)
	out, err := h.svc.Verify(context.Background(), types.VerifyInput{
		UserID: buyer, GatewayOrderID: res.GatewayOrderID, GatewayPaymentID: paymentID, Signature: sig,
	})
	require.NoError(t, err)

	assert.Equal(t, domain.OutcomePaid, out.Outcome)
	assert.Equal(t, domain.StatusPaid, out.Order.Status)
	assert.Equal(t, domain.PaymentPaid, out.Order.PaymentStatus)
	assert.Equal(t, domain.DeliveryConfirmed, out.Order.DeliveryStatus)
	assert.Equal(t, int64(4), h.stock(t, 1))

	lines, err := h.carts.ListByUser(context.Background(), buyer)
	require.NoError(t, err)
	require.Len(t, lines, 1)
	assert.Equal(t, int64(2), lines[0].ProductID)

	stored, err := h.orders.GetByID(context.Background(), res.Order.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.Payment)
	assert.Equal(t, paymentID, stored.Payment.GatewayPaymentID)
	assert.Equal(t, int64(90000), stored.Payment.Amount)
	assert.True(t, stored.Payment.Captured)
	assert.Equal(t, []string{"order.created", "order.paid"}, h.eventTypes())
}

func TestVerify_TamperedSignatureFailsAndRestoresOnce(t *testing.T) {
	h := newHarness(t)
	h.product(t, 1, "Thermometer", "250.00", "", 5)
	h.product(t, 2, "Bandage", "40.00", "", 5)
	h.addToCart(t, 1, 2)
	h.addToCart(t, 2, 3)
	res, err := h.svc.Initiate(context.Background(), types.InitiateInput{UserID: buyer, Shipping: shipping()})
	require.NoError(t, err)
	require.Equal(t, int64(3), h.stock(t, 1))
	require.Equal(t, int64(2), h.stock(t, 2))

	paymentID, sig := h.gateway.Pay(res.GatewayOrderID, paymentsdomain.StatusCaptured)
	tampered := "0" + sig[1:]
	if tampered == sig {
		tampered = "1" + sig[1:]
	}
	input := types.VerifyInput{UserID: buyer, GatewayOrderID: res.GatewayOrderID, GatewayPaymentID: paymentID, Signature: tampered}

	out, err := h.svc.Verify(context.Background(), input)
	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeFailed, out.Outcome)
	assert.Equal(t, ReasonSignatureInvalid, out.Reason)
	assert.Equal(t, domain.StatusFailed, out.Order.Status)
	assert.Equal(t, domain.PaymentFailed, out.Order.PaymentStatus)
	assert.Equal(t, domain.DeliveryFailed, out.Order.DeliveryStatus)
	assert.Equal(t, int64(5), h.stock(t, 1))
	assert.Equal(t, int64(5), h.stock(t, 2))

	_, fetches := h.gateway.Calls()
	assert.Equal(t, 0, fetches)

	again, err := h.svc.Verify(context.Background(), input)
	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeStale, again.Outcome)
	assert.Equal(t, int64(5), h.stock(t, 1))
	assert.Equal(t, int64(5), h.stock(t, 2))

	lines, err := h.carts.ListByUser(context.Background(), buyer)
	require.NoError(t, err)
	assert.Len(t, lines, 2)

	var failed domain.OrderFailed
	msgs := h.outbox.Messages()
	require.Len(t, msgs, 2)
	require.NoError(t, json.Unmarshal(msgs[1].Payload, &failed))
	assert.Equal(t, ReasonSignatureInvalid, failed.Reason)
	assert.Equal(t, res.Order.Number, failed.OrderNumber)
}

func TestVerify_MismatchedGatewayOrderIsInvalid(t *testing.T) {
	h := newHarness(t)
	h.product(t, 1, "Thermometer", "250.00", "", 5)
	h.addToCart(t, 1, 1)
	res, err := h.svc.Initiate(context.Background(), types.InitiateInput{UserID: buyer, Shipping: shipping()})
	require.NoError(t, err)

	other, err := h.gateway.CreateOrder(context.Background(), paymentsdomain.CreateOrderRequest{AmountMinor: 100, Currency: "INR", Receipt: "x"})
	require.NoError(t, err)
	paymentID, sig := h.gateway.Pay(other.ID, paymentsdomain.StatusCaptured)

	out, err := h.svc.Verify(context.Background(), types.VerifyInput{
		UserID: buyer, OrderNumber: res.Order.Number, GatewayOrderID: other.ID, GatewayPaymentID: paymentID, Signature: sig,
	})
	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeFailed, out.Outcome)
	assert.Equal(t, ReasonSignatureInvalid, out.Reason)
	assert.Equal(t, int64(5), h.stock(t, 1))
}

func TestVerify_MissingFieldsFailsReferencedOrder(t *testing.T) {
	h := newHarness(t)
	h.product(t, 1, "Thermometer", "250.00", "", 5)
	h.addToCart(t, 1, 1)
	res, err := h.svc.Initiate(context.Background(), types.InitiateInput{UserID: buyer, Shipping: shipping()})
	require.NoError(t, err)

	out, err := h.svc.Verify(context.Background(), types.VerifyInput{UserID: buyer, OrderNumber: res.Order.Number})
	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeFailed, out.Outcome)
	assert.Equal(t, ReasonCallbackIncomplete, out.Reason)
	assert.Equal(t, int64(5), h.stock(t, 1))

	_, err = h.svc.Verify(context.Background(), types.VerifyInput{UserID: buyer})
	require.ErrorIs(t, err, ErrInvalidInput)
}

func TestVerify_UncapturedPaymentFails(t *testing.T) {
	h := newHarness(t)
	h.product(t, 1, "Thermometer", "250.00", "", 5)
	h.addToCart(t, 1, 1)
	res, err := h.svc.Initiate(context.Background(), types.InitiateInput{UserID: buyer, Shipping: shipping()})
	require.NoError(t, err)

	paymentID, sig := h.gateway.Pay(res.GatewayOrderID, "failed")
	out, err := h.svc.Verify(context.Background(), types.VerifyInput{
		UserID: buyer, GatewayOrderID: res.GatewayOrderID, GatewayPaymentID: paymentID, Signature: sig,
	})
	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeFailed, out.Outcome)
	assert.Equal(t, ReasonPaymentNotCaptured, out.Reason)
	assert.Equal(t, int64(5), h.stock(t, 1))
	require.NotNil(t, out.Order.Payment)
	assert.Equal(t, "BAD_REQUEST_ERROR", out.Order.Payment.ErrorCode)
}

func TestVerify_GatewayOutageLeavesOrderOpen(t *testing.T) {
	h := newHarness(t)
	h.product(t, 1, "Thermometer", "250.00", "", 5)
	h.addToCart(t, 1, 1)
	res, err := h.svc.Initiate(context.Background(), types.InitiateInput{UserID: buyer, Shipping: shipping()})
	require.NoError(t, err)

	paymentID, sig := h.gateway.Pay(res.GatewayOrderID, paymentsdomain.StatusCaptured)
	h.gateway.FailFetch(errors.New("timeout"))
	input := types.VerifyInput{UserID: buyer, GatewayOrderID: res.GatewayOrderID, GatewayPaymentID: paymentID, Signature: sig}

	_, err = h.svc.Verify(context.Background(), input)
	require.ErrorIs(t, err, paymentsports.ErrGatewayUnavailable)
	stored, err := h.orders.GetByID(context.Background(), res.Order.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCreated, stored.Status)
	assert.Nil(t, stored.Payment)
	assert.Equal(t, int64(4), h.stock(t, 1))

	h.gateway.FailFetch(nil)
	out, err := h.svc.Verify(context.Background(), input)
	require.NoError(t, err)
	assert.Equal(t, domain.OutcomePaid, out.Outcome)
}

func TestVerify_ConcurrentDuplicateCallbacksTransitionOnce(t *testing.T) {
	h := newHarness(t)
	h.product(t, 1, "Thermometer", "250.00", "", 5)
	h.addToCart(t, 1, 2)
	res, err := h.svc.Initiate(context.Background(), types.InitiateInput{UserID: buyer, Shipping: shipping()})
	require.NoError(t, err)
	paymentID, sig := h.gateway.Pay(res.GatewayOrderID, "failed")
	input := types.VerifyInput{UserID: buyer, GatewayOrderID: res.GatewayOrderID, GatewayPaymentID: paymentID, Signature: sig}

	var wg sync.WaitGroup
	outcomes := make([]domain.Outcome, 10)
	for i := range outcomes {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			out, err := h.svc.Verify(context.Background(), input)
			if assert.NoError(t, err) {
				outcomes[i] = out.Outcome
			}
		}(i)
	}
	wg.Wait()

	failed := 0
	for _, o := range outcomes {
		if o == domain.OutcomeFailed {
			failed++
		} else {
			assert.Equal(t, domain.OutcomeStale, o)
		}
	}
	assert.Equal(t, 1, failed)
	assert.Equal(t, int64(5), h.stock(t, 1))
	assert.Equal(t, []string{"order.created", "order.failed"}, h.eventTypes())
}

func TestVerify_CallbackGuardRejectsInFlightDuplicate(t *testing.T) {
	guard := ordersmemory.NewCallbackGuard()
	h := newHarness(t, WithCallbackGuard(guard))
	h.product(t, 1, "Thermometer", "250.00", "", 5)
	h.addToCart(t, 1, 1)
	res, err := h.svc.Initiate(context.Background(), types.InitiateInput{UserID: buyer, Shipping: shipping()})
	require.NoError(t, err)

	release, err := guard.Acquire(context.Background(), "callback:"+res.GatewayOrderID, time.Minute)
	require.NoError(t, err)
	_, err = h.svc.Verify(context.Background(), types.VerifyInput{UserID: buyer, GatewayOrderID: res.GatewayOrderID})
	require.ErrorIs(t, err, ErrCallbackInFlight)
	release(context.Background())

	paymentID, sig := h.gateway.Pay(res.GatewayOrderID, paymentsdomain.StatusCaptured)
	out, err := h.svc.Verify(context.Background(), types.VerifyInput{
		UserID: buyer, GatewayOrderID: res.GatewayOrderID, GatewayPaymentID: paymentID, Signature: sig,
	})
	require.NoError(t, err)
	assert.Equal(t, domain.OutcomePaid, out.Outcome)
}

func TestVerify_OtherUsersOrderIsNotFound(t *testing.T) {
	h := newHarness(t)
	h.product(t, 1, "Thermometer", "250.00", "", 5)
	h.addToCart(t, 1, 1)
	res, err := h.svc.Initiate(context.Background(), types.InitiateInput{UserID: buyer, Shipping: shipping()})
	require.NoError(t, err)

	_, err = h.svc.Verify(context.Background(), types.VerifyInput{UserID: 7, GatewayOrderID: res.GatewayOrderID})
	require.ErrorIs(t, err, ports.ErrNotFound)
}

func TestCancel_RestoresStockAndIsIdempotent(t *testing.T) {
	h := newHarness(t)
	h.product(t, 1, "Thermometer", "250.00", "", 5)
	h.addToCart(t, 1, 3)
	res, err := h.svc.Initiate(context.Background(), types.InitiateInput{UserID: buyer, Shipping: shipping()})
	require.NoError(t, err)
	require.Equal(t, int64(2), h.stock(t, 1))

	out, err := h.svc.Cancel(context.Background(), types.CancelInput{UserID: buyer, GatewayOrderID: res.GatewayOrderID})
	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeCancelled, out.Outcome)
	assert.Equal(t, domain.StatusCancelled, out.Order.Status)
	assert.Equal(t, domain.PaymentFailed, out.Order.PaymentStatus)
	assert.Equal(t, domain.DeliveryFailed, out.Order.DeliveryStatus)
	assert.Equal(t, int64(5), h.stock(t, 1))

	again, err := h.svc.Cancel(context.Background(), types.CancelInput{UserID: buyer, GatewayOrderID: res.GatewayOrderID})
	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeStale, again.Outcome)
	assert.Equal(t, int64(5), h.stock(t, 1))

	paymentID, sig := h.gateway.Pay(res.GatewayOrderID, paymentsdomain.StatusCaptured)
	late, err := h.svc.Verify(context.Background(), types.VerifyInput{
		UserID: buyer, GatewayOrderID: res.GatewayOrderID, GatewayPaymentID: paymentID, Signature: sig,
	})
	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeStale, late.Outcome)
	assert.Equal(t, domain.StatusCancelled, late.Order.Status)
}

func TestExpireStale_SecondRunIsNoop(t *testing.T) {
	h := newHarness(t)
	h.product(t, 1, "Thermometer", "250.00", "", 5)
	h.addToCart(t, 1, 2)
	res, err := h.svc.Initiate(context.Background(), types.InitiateInput{UserID: buyer, Shipping: shipping()})
	require.NoError(t, err)

	h.clock.Advance(10 * time.Minute)
	n, err := h.svc.ExpireStale(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	h.clock.Advance(6 * time.Minute)
	n, err = h.svc.ExpireStale(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	stored, err := h.orders.GetByID(context.Background(), res.Order.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusFailed, stored.Status)
	assert.Equal(t, domain.PaymentFailed, stored.PaymentStatus)
	assert.Equal(t, domain.DeliveryFailed, stored.DeliveryStatus)
	assert.Equal(t, int64(5), h.stock(t, 1))

	n, err = h.svc.ExpireStale(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, n)
	assert.Equal(t, int64(5), h.stock(t, 1))
	assert.Equal(t, []string{"order.created", "order.expired"}, h.eventTypes())
}

func TestExpireStale_WorksThroughBatches(t *testing.T) {
	h := newHarness(t)
	h.svc.cfg.SweepBatchSize = 2
	h.product(t, 1, "Thermometer", "250.00", "", 100)
	for i := 0; i < 5; i++ {
		h.addToCart(t, 1, 1)
		_, err := h.svc.Initiate(context.Background(), types.InitiateInput{UserID: buyer, Shipping: shipping()})
		require.NoError(t, err)
		require.NoError(t, h.carts.Clear(context.Background(), buyer))
	}
	require.Equal(t, int64(95), h.stock(t, 1))

	h.clock.Advance(time.Hour)
	n, err := h.svc.ExpireStale(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 5, n)
	assert.Equal(t, int64(100), h.stock(t, 1))
}

func TestConcurrentCheckoutsNeverOversell(t *testing.T) {
	h := newHarness(t)
	h.product(t, 1, "Thermometer", "250.00", "", 3)

	const buyers = 10
	for u := int64(1); u <= buyers; u++ {
		_, err := h.carts.Add(context.Background(), &cartdomain.LineItem{UserID: u, ProductID: 1, Quantity: 1})
		require.NoError(t, err)
	}

	var wg sync.WaitGroup
	var mu sync.Mutex
	succeeded := 0
	for u := int64(1); u <= buyers; u++ {
		wg.Add(1)
		go func(u int64) {
			defer wg.Done()
			_, err := h.svc.Initiate(context.Background(), types.InitiateInput{UserID: u, Shipping: shipping()})
			if err == nil {
				mu.Lock()
				succeeded++
				mu.Unlock()
				return
			}
			assert.ErrorIs(t, err, inventorydomain.ErrInsufficientStock)
		}(u)
	}
	wg.Wait()

	assert.Equal(t, 3, succeeded)
	assert.Equal(t, int64(0), h.stock(t, 1))
}

func TestGetOrderAndAdvanceDelivery(t *testing.T) {
	h := newHarness(t)
	h.product(t, 1, "Thermometer", "250.00", "", 5)
	h.addToCart(t, 1, 2)
	res, err := h.svc.Initiate(context.Background(), types.InitiateInput{UserID: buyer, Shipping: shipping()})
	require.NoError(t, err)
	ctx := context.Background()

	_, err = h.svc.AdvanceDelivery(ctx, res.Order.Number, domain.DeliveryShipped)
	require.ErrorIs(t, err, ErrInvalidInput)

	paymentID, sig := h.gateway.Pay(res.GatewayOrderID, paymentsdomain.StatusCaptured)
	_, err = h.svc.Verify(ctx, types.VerifyInput{UserID: buyer, GatewayOrderID: res.GatewayOrderID, GatewayPaymentID: paymentID, Signature: sig})
	require.NoError(t, err)

	h.clock.Advance(time.Hour)
	shipped, err := h.svc.AdvanceDelivery(ctx, res.Order.Number, domain.DeliveryShipped)
	require.NoError(t, err)
	require.NotNil(t, shipped.ShippedAt)
	shippedAt := *shipped.ShippedAt

	h.clock.Advance(time.Hour)
	delivered, err := h.svc.AdvanceDelivery(ctx, res.Order.Number, domain.DeliveryDelivered)
	require.NoError(t, err)
	assert.Equal(t, shippedAt, *delivered.ShippedAt)
	require.NotNil(t, delivered.DeliveredAt)

	_, err = h.svc.AdvanceDelivery(ctx, res.Order.Number, domain.DeliveryShipped)
	require.ErrorIs(t, err, ErrInvalidInput)

	byNumber, err := h.svc.GetOrder(ctx, buyer, res.Order.Number)
	require.NoError(t, err)
	byID, err := h.svc.GetOrder(ctx, buyer, "1")
	require.NoError(t, err)
	assert.Equal(t, byNumber.ID, byID.ID)
	assert.Equal(t, int64(2), byID.TotalQuantity())

	_, err = h.svc.GetOrder(ctx, 7, res.Order.Number)
	require.ErrorIs(t, err, ports.ErrNotFound)

	list, err := h.svc.ListOrders(ctx, buyer)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}
