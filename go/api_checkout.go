package medstoreserver

import (
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"

	ordermapper "github.com/Apurer/medstore-checkout/internal/domains/orders/adapters/http/mapper"
	ordertypes "github.com/Apurer/medstore-checkout/internal/domains/orders/application/types"
	orderports "github.com/Apurer/medstore-checkout/internal/domains/orders/ports"
)

// HeaderIdempotencyKey makes a checkout safe to retry.
const HeaderIdempotencyKey = "Idempotency-Key"

// CheckoutAPI wires checkout and the payment callbacks to the reconciliation engine.
type CheckoutAPI struct {
	service orderports.Service
}

func NewCheckoutAPI(service orderports.Service) CheckoutAPI {
	return CheckoutAPI{service: service}
}

// Post /v1/checkout
// Reserves stock and opens the gateway order. Replays with the same Idempotency-Key return the
// original order.
func (api *CheckoutAPI) Checkout(c *gin.Context) {
	var payload ordermapper.CheckoutRequest
	if err := c.ShouldBindJSON(&payload); err != nil && !errors.Is(err, io.EOF) {
		respondBindingError(c, err)
		return
	}
	input := ordermapper.ToInitiateInput(userID(c), c.GetHeader(HeaderIdempotencyKey), payload)
	res, err := api.service.Initiate(c.Request.Context(), input)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	status := http.StatusCreated
	if res.Replayed {
		status = http.StatusOK
	}
	c.JSON(status, ordermapper.FromInitiateResult(res))
}

// Post /v1/payments/callback
// Accepts the hosted checkout's form post or the same fields as JSON.
func (api *CheckoutAPI) PaymentCallback(c *gin.Context) {
	var payload ordermapper.PaymentCallback
	var b binding.Binding = binding.Form
	if strings.HasPrefix(c.ContentType(), binding.MIMEJSON) {
		b = binding.JSON
	}
	if err := c.ShouldBindWith(&payload, b); err != nil {
		respondBindingError(c, err)
		return
	}
	res, err := api.service.Verify(c.Request.Context(), ordermapper.ToVerifyInput(userID(c), payload))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, ordermapper.FromVerifyResult(res))
}

// Post /v1/payments/:gatewayOrderId/cancel
// The buyer closed the payment page.
func (api *CheckoutAPI) CancelPayment(c *gin.Context) {
	gatewayOrderID := strings.TrimSpace(c.Param("gatewayOrderId"))
	if gatewayOrderID == "" {
		respondBadRequest(c, errors.New("gatewayOrderId is required"))
		return
	}
	_, err := api.service.Cancel(c.Request.Context(), ordertypes.CancelInput{UserID: userID(c), GatewayOrderID: gatewayOrderID})
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// Get /v1/orders
func (api *CheckoutAPI) ListOrders(c *gin.Context) {
	orders, err := api.service.ListOrders(c.Request.Context(), userID(c))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, ordermapper.FromDomainOrders(orders))
}

// Get /v1/orders/:ref
// ref is an order id or an order number.
func (api *CheckoutAPI) GetOrder(c *gin.Context) {
	order, err := api.service.GetOrder(c.Request.Context(), userID(c), c.Param("ref"))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, ordermapper.FromDomainOrder(order))
}
