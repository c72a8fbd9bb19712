package medstoreserver_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	medstoreserver "github.com/Apurer/medstore-checkout/go"
	cartmemory "github.com/Apurer/medstore-checkout/internal/domains/cart/adapters/memory"
	cartapp "github.com/Apurer/medstore-checkout/internal/domains/cart/application"
	customermemory "github.com/Apurer/medstore-checkout/internal/domains/customers/adapters/memory"
	customerapp "github.com/Apurer/medstore-checkout/internal/domains/customers/application"
	inventorymemory "github.com/Apurer/medstore-checkout/internal/domains/inventory/adapters/memory"
	inventoryapp "github.com/Apurer/medstore-checkout/internal/domains/inventory/application"
	"github.com/Apurer/medstore-checkout/internal/domains/orders/adapters/addressbook"
	ordermapper "github.com/Apurer/medstore-checkout/internal/domains/orders/adapters/http/mapper"
	ordermemory "github.com/Apurer/medstore-checkout/internal/domains/orders/adapters/memory"
	orderworkflows "github.com/Apurer/medstore-checkout/internal/domains/orders/adapters/workflows"
	ordersapp "github.com/Apurer/medstore-checkout/internal/domains/orders/application"
	"github.com/Apurer/medstore-checkout/internal/domains/payments/adapters/fake"
	paymentsdomain "github.com/Apurer/medstore-checkout/internal/domains/payments/domain"
)

type apiHarness struct {
	router  *gin.Engine
	gateway *fake.Gateway
}

type denyAll struct{ err error }

func (d denyAll) Allow(context.Context, string) (bool, error) { return false, d.err }

func newHarness(t *testing.T, opts ...medstoreserver.RouterOption) *apiHarness {
	t.Helper()
	gin.SetMode(gin.TestMode)

	ledger := inventorymemory.NewLedger()
	carts := cartmemory.NewRepository()
	customers := customermemory.NewRepository()
	orders := ordermemory.NewRepository()
	outbox := ordermemory.NewOutbox()
	idem := ordermemory.NewIdempotencyStore()
	gateway := fake.New()

	cfg := ordersapp.DefaultConfig()
	engine, err := ordersapp.NewService(cfg, ordersapp.Dependencies{
		UnitOfWork:  ordermemory.NewUnitOfWork(orders, ledger, carts, outbox, idem),
		Orders:      orders,
		Idempotency: idem,
		Gateway:     gateway,
		Addresses:   addressbook.NewCustomers(customers),
	})
	require.NoError(t, err)

	inventory := inventoryapp.NewService(ledger)
	handlers := medstoreserver.ApiHandleFunctions{
		CartAPI:     medstoreserver.NewCartAPI(cartapp.NewService(carts, ledger, cfg.Delivery)),
		CheckoutAPI: medstoreserver.NewCheckoutAPI(engine),
		ProfileAPI:  medstoreserver.NewProfileAPI(customerapp.NewService(customers)),
		AdminAPI:    medstoreserver.NewAdminAPI(inventory, engine, orderworkflows.NewInlineOrderWorkflows(engine)),
		HealthAPI: medstoreserver.NewHealthAPI(map[string]medstoreserver.HealthCheck{
			"database": func(context.Context) error { return nil },
		}),
	}
	return &apiHarness{
		router:  medstoreserver.NewRouterWithGinEngine(gin.New(), handlers, opts...),
		gateway: gateway,
	}
}

func (h *apiHarness) do(t *testing.T, method, path string, user int64, body any, headers ...string) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if user > 0 {
		req.Header.Set(medstoreserver.HeaderUserID, fmt.Sprint(user))
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rec := httptest.NewRecorder()
	h.router.ServeHTTP(rec, req)
	return rec
}

func (h *apiHarness) seedProduct(t *testing.T, id int64, price string, stock int64) {
	t.Helper()
	rec := h.do(t, http.MethodPut, fmt.Sprintf("/v1/admin/products/%d", id), 1, map[string]any{
		"name": fmt.Sprintf("Product %d", id), "categoryName": "Supplies", "price": price, "stock": stock,
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func shipping() map[string]any {
	return map[string]any{
		"firstName": "Asha", "phone": "9876543210", "address": "12 MG Road",
		"city": "Pune", "state": "MH", "pincode": "411001", "email": "asha@example.com",
	}
}

func TestRouter_RequiresUserHeader(t *testing.T) {
	h := newHarness(t)
	rec := h.do(t, http.MethodGet, "/v1/cart", 0, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "application/problem+json")

	rec = h.do(t, http.MethodGet, "/healthz", 0, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok","checks":{"database":"ok"}}`, rec.Body.String())
}

func TestCheckout_PaidEndToEnd(t *testing.T) {
	h := newHarness(t)
	h.seedProduct(t, 1, "650.00", 3)

	rec := h.do(t, http.MethodGet, "/v1/cart", 7, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "0.00", decode[medstoreserver.CartSnapshot](t, rec).Payable)

	rec = h.do(t, http.MethodPost, "/v1/cart/items", 7, map[string]any{"productId": 1, "quantity": 1})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = h.do(t, http.MethodGet, "/v1/checkout/preview", 7, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	preview := decode[medstoreserver.CartSnapshot](t, rec)
	assert.Equal(t, "650.00", preview.Payable)
	assert.Equal(t, "0.00", preview.DeliveryCharge)
	assert.Equal(t, int64(65000), preview.PayableMinor)

	body := map[string]any{"shipping": shipping()}
	rec = h.do(t, http.MethodPost, "/v1/checkout", 7, body, medstoreserver.HeaderIdempotencyKey, "chk-1")
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decode[ordermapper.CheckoutResponse](t, rec)
	assert.Equal(t, "650.00", created.Amount)
	assert.Equal(t, int64(65000), created.AmountMinor)
	assert.Equal(t, "INR", created.Currency)
	assert.Equal(t, fake.DefaultKeyID, created.GatewayKey)
	assert.True(t, strings.HasPrefix(created.OrderNumber, "ORD-7-"))

	rec = h.do(t, http.MethodPost, "/v1/checkout", 7, body, medstoreserver.HeaderIdempotencyKey, "chk-1")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, created.OrderID, decode[ordermapper.CheckoutResponse](t, rec).OrderID)

	rec = h.do(t, http.MethodGet, "/v1/admin/products", 1, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	products := decode[[]medstoreserver.Product](t, rec)
	require.Len(t, products, 1)
	assert.Equal(t, int64(2), products[0].Stock)

	paymentID, sig := h.gateway.Pay(created.GatewayOrderID, paymentsdomain.StatusCaptured)
	rec = h.do(t, http.MethodPost, "/v1/payments/callback", 7, map[string]any{
		"razorpay_payment_id": paymentID,
		"razorpay_order_id":   created.GatewayOrderID,
		"razorpay_signature":  sig,
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	callback := decode[ordermapper.CallbackResponse](t, rec)
	assert.Equal(t, "paid", callback.Outcome)
	assert.Equal(t, fmt.Sprintf("/payment/success/%d", created.OrderID), callback.Redirect)

	rec = h.do(t, http.MethodGet, "/v1/orders/"+created.OrderNumber, 7, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	order := decode[ordermapper.Order](t, rec)
	assert.Equal(t, "paid", order.Status)
	assert.Equal(t, int64(1), order.TotalQuantity)
	require.NotNil(t, order.Payment)
	assert.Equal(t, paymentID, order.Payment.GatewayPaymentID)

	rec = h.do(t, http.MethodGet, "/v1/orders/"+created.OrderNumber, 8, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = h.do(t, http.MethodGet, "/v1/cart", 7, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, decode[medstoreserver.CartSnapshot](t, rec).Lines)

	rec = h.do(t, http.MethodPost, fmt.Sprintf("/v1/admin/orders/%d/delivery", created.OrderID), 1, map[string]any{"status": "Shipped"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "shipped", decode[ordermapper.Order](t, rec).DeliveryStatus)
}

func TestCheckout_FormCallbackWithBadSignatureFails(t *testing.T) {
	h := newHarness(t)
	h.seedProduct(t, 1, "120.00", 5)
	require.Equal(t, http.StatusCreated, h.do(t, http.MethodPost, "/v1/cart/items", 7, map[string]any{"productId": 1, "quantity": 2}).Code)

	rec := h.do(t, http.MethodPost, "/v1/checkout", 7, map[string]any{"shipping": shipping()})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decode[ordermapper.CheckoutResponse](t, rec)
	assert.Equal(t, "340.00", created.Amount)

	paymentID, _ := h.gateway.Pay(created.GatewayOrderID, paymentsdomain.StatusCaptured)
	form := url.Values{
		"razorpay_payment_id": {paymentID},
		"razorpay_order_id":   {created.GatewayOrderID},
		"razorpay_signature":  {strings.Repeat("0", 64)},
	}
	req := httptest.NewRequest(http.MethodPost, "/v1/payments/callback", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set(medstoreserver.HeaderUserID, "7")
	out := httptest.NewRecorder()
	h.router.ServeHTTP(out, req)
	require.Equal(t, http.StatusOK, out.Code, out.Body.String())
	assert.NotContains(t, out.Body.String(), "signature")
	assert.NotContains(t, out.Body.String(), "reason")
	callback := decode[ordermapper.CallbackResponse](t, out)
	assert.Equal(t, "failed", callback.Outcome)
	assert.Equal(t, fmt.Sprintf("/payment/failed/%d", created.OrderID), callback.Redirect)

	rec = h.do(t, http.MethodGet, "/v1/admin/products", 1, nil)
	assert.Equal(t, int64(5), decode[[]medstoreserver.Product](t, rec)[0].Stock)
}

func TestCheckout_Rejections(t *testing.T) {
	h := newHarness(t)
	h.seedProduct(t, 1, "80.00", 3)

	rec := h.do(t, http.MethodPost, "/v1/checkout", 7, map[string]any{"shipping": shipping()})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = h.do(t, http.MethodPost, "/v1/cart/items", 7, map[string]any{"productId": 1, "quantity": 5})
	assert.Equal(t, http.StatusConflict, rec.Code)

	require.Equal(t, http.StatusCreated, h.do(t, http.MethodPost, "/v1/cart/items", 7, map[string]any{"productId": 1, "quantity": 1}).Code)
	rec = h.do(t, http.MethodPost, "/v1/checkout", 7, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())

	rec = h.do(t, http.MethodGet, "/v1/checkout/preview?cartItemId=abc", 7, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = h.do(t, http.MethodPost, "/v1/admin/orders/ORD-1/delivery", 1, map[string]any{"status": "teleported"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = h.do(t, http.MethodPut, "/v1/admin/products/2", 1, map[string]any{"price": "10.00", "stock": 1})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	invalid := decode[map[string]any](t, rec)
	assert.Equal(t, map[string]any{"name": "required"}, invalid["extensions"].(map[string]any)["fields"])

	rec = h.do(t, http.MethodGet, "/v1/orders/ORD-7-missing", 7, nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
	missing := decode[map[string]any](t, rec)
	assert.Equal(t, "order not found", missing["detail"])
	assert.Equal(t, "order", missing["extensions"].(map[string]any)["resourceType"])
}

func TestCancelPayment_ReleasesStock(t *testing.T) {
	h := newHarness(t)
	h.seedProduct(t, 1, "600.00", 2)
	require.Equal(t, http.StatusCreated, h.do(t, http.MethodPost, "/v1/cart/items", 7, map[string]any{"productId": 1, "quantity": 2}).Code)
	rec := h.do(t, http.MethodPost, "/v1/checkout", 7, map[string]any{"shipping": shipping()})
	require.Equal(t, http.StatusCreated, rec.Code)
	created := decode[ordermapper.CheckoutResponse](t, rec)

	for i := 0; i < 2; i++ {
		rec = h.do(t, http.MethodPost, "/v1/payments/"+created.GatewayOrderID+"/cancel", 7, nil)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		assert.JSONEq(t, `{"ok":true}`, rec.Body.String())
	}

	rec = h.do(t, http.MethodGet, fmt.Sprintf("/v1/orders/%d", created.OrderID), 7, nil)
	assert.Equal(t, "cancelled", decode[ordermapper.Order](t, rec).Status)
	rec = h.do(t, http.MethodGet, "/v1/admin/products", 1, nil)
	assert.Equal(t, int64(2), decode[[]medstoreserver.Product](t, rec)[0].Stock)

	rec = h.do(t, http.MethodPost, "/v1/admin/orders/expire", 1, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"expired":0}`, rec.Body.String())
}

func TestProfile_RegisteredAddressCheckout(t *testing.T) {
	h := newHarness(t)
	h.seedProduct(t, 1, "700.00", 1)

	rec := h.do(t, http.MethodGet, "/v1/profile", 9, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = h.do(t, http.MethodPut, "/v1/profile", 9, shipping())
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "Pune", decode[medstoreserver.Profile](t, rec).City)

	rec = h.do(t, http.MethodPut, "/v1/profile", 9, map[string]any{"pincode": "12"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	require.Equal(t, http.StatusCreated, h.do(t, http.MethodPost, "/v1/cart/items", 9, map[string]any{"productId": 1, "quantity": 1}).Code)
	rec = h.do(t, http.MethodPost, "/v1/checkout", 9, map[string]any{"useRegisteredAddress": true})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = h.do(t, http.MethodGet, "/v1/orders", 9, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	orders := decode[[]ordermapper.Order](t, rec)
	require.Len(t, orders, 1)
	require.NotNil(t, orders[0].Shipping)
	assert.Equal(t, "411001", orders[0].Shipping.Pincode)
}

func TestRateLimit_AppliesToPaymentRoutesOnly(t *testing.T) {
	h := newHarness(t, medstoreserver.WithRateLimiter(denyAll{}))
	rec := h.do(t, http.MethodPost, "/v1/checkout", 7, nil)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	rec = h.do(t, http.MethodPost, "/v1/payments/order_x/cancel", 7, nil)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	rec = h.do(t, http.MethodGet, "/v1/cart", 7, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	open := newHarness(t, medstoreserver.WithRateLimiter(denyAll{err: errors.New("redis down")}))
	rec = open.do(t, http.MethodPost, "/v1/checkout", 7, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
