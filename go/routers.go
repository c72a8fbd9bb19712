package medstoreserver

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Apurer/medstore-checkout/internal/shared/middleware"
)

// Route is the information for every URI.
type Route struct {
	Name        string
	Method      string
	Pattern     string
	HandlerFunc gin.HandlerFunc
	// Public routes skip the X-User-ID requirement.
	Public bool
	// LimitScope names the rate-limit bucket; empty means unlimited.
	LimitScope string
}

// ApiHandleFunctions groups every handler the router serves.
type ApiHandleFunctions struct {
	CartAPI     CartAPI
	CheckoutAPI CheckoutAPI
	ProfileAPI  ProfileAPI
	AdminAPI    AdminAPI
	HealthAPI   HealthAPI
}

type routerOptions struct {
	limiter middleware.Limiter
	logger  *slog.Logger
}

type RouterOption func(*routerOptions)

// WithRateLimiter throttles checkout and payment routes.
func WithRateLimiter(l middleware.Limiter) RouterOption {
	return func(o *routerOptions) {
		o.limiter = l
	}
}

func WithRouterLogger(logger *slog.Logger) RouterOption {
	return func(o *routerOptions) {
		o.logger = logger
	}
}

// NewRouter returns a new router.
func NewRouter(handleFunctions ApiHandleFunctions, opts ...RouterOption) *gin.Engine {
	return NewRouterWithGinEngine(gin.Default(), handleFunctions, opts...)
}

// NewRouterWithGinEngine adds the routes to an existing gin engine.
func NewRouterWithGinEngine(router *gin.Engine, handleFunctions ApiHandleFunctions, opts ...RouterOption) *gin.Engine {
	options := routerOptions{}
	for _, opt := range opts {
		if opt != nil {
			opt(&options)
		}
	}
	limiters := map[string]gin.HandlerFunc{}
	for _, route := range getRoutes(handleFunctions) {
		if route.HandlerFunc == nil {
			route.HandlerFunc = DefaultHandleFunc
		}
		chain := []gin.HandlerFunc{}
		if route.LimitScope != "" && options.limiter != nil {
			limit, ok := limiters[route.LimitScope]
			if !ok {
				limit = middleware.RateLimit(options.limiter, route.LimitScope, options.logger)
				limiters[route.LimitScope] = limit
			}
			chain = append(chain, limit)
		}
		if !route.Public {
			chain = append(chain, requireUser())
		}
		chain = append(chain, route.HandlerFunc)
		router.Handle(route.Method, route.Pattern, chain...)
	}
	return router
}

// DefaultHandleFunc answers routes that have no handler wired.
func DefaultHandleFunc(c *gin.Context) {
	c.String(http.StatusNotImplemented, "501 not implemented")
}

func getRoutes(h ApiHandleFunctions) []Route {
	return []Route{
		{Name: "Healthz", Method: http.MethodGet, Pattern: "/healthz", HandlerFunc: h.HealthAPI.Healthz, Public: true},

		{Name: "GetCart", Method: http.MethodGet, Pattern: "/v1/cart", HandlerFunc: h.CartAPI.GetCart},
		{Name: "ClearCart", Method: http.MethodDelete, Pattern: "/v1/cart", HandlerFunc: h.CartAPI.Clear},
		{Name: "AddCartItem", Method: http.MethodPost, Pattern: "/v1/cart/items", HandlerFunc: h.CartAPI.AddItem},
		{Name: "UpdateCartItem", Method: http.MethodPatch, Pattern: "/v1/cart/items/:itemId", HandlerFunc: h.CartAPI.UpdateItem},
		{Name: "RemoveCartItem", Method: http.MethodDelete, Pattern: "/v1/cart/items/:itemId", HandlerFunc: h.CartAPI.RemoveItem},

		{Name: "PreviewCheckout", Method: http.MethodGet, Pattern: "/v1/checkout/preview", HandlerFunc: h.CartAPI.PreviewCheckout},
		{Name: "Checkout", Method: http.MethodPost, Pattern: "/v1/checkout", HandlerFunc: h.CheckoutAPI.Checkout, LimitScope: "checkout"},
		{Name: "PaymentCallback", Method: http.MethodPost, Pattern: "/v1/payments/callback", HandlerFunc: h.CheckoutAPI.PaymentCallback, LimitScope: "payments"},
		{Name: "CancelPayment", Method: http.MethodPost, Pattern: "/v1/payments/:gatewayOrderId/cancel", HandlerFunc: h.CheckoutAPI.CancelPayment, LimitScope: "payments"},

		{Name: "ListOrders", Method: http.MethodGet, Pattern: "/v1/orders", HandlerFunc: h.CheckoutAPI.ListOrders},
		{Name: "GetOrder", Method: http.MethodGet, Pattern: "/v1/orders/:ref", HandlerFunc: h.CheckoutAPI.GetOrder},

		{Name: "GetProfile", Method: http.MethodGet, Pattern: "/v1/profile", HandlerFunc: h.ProfileAPI.GetProfile},
		{Name: "SaveProfile", Method: http.MethodPut, Pattern: "/v1/profile", HandlerFunc: h.ProfileAPI.SaveProfile},

		{Name: "ListProducts", Method: http.MethodGet, Pattern: "/v1/admin/products", HandlerFunc: h.AdminAPI.ListProducts},
		{Name: "PutProduct", Method: http.MethodPut, Pattern: "/v1/admin/products/:productId", HandlerFunc: h.AdminAPI.PutProduct},
		{Name: "RestockProduct", Method: http.MethodPost, Pattern: "/v1/admin/products/:productId/restock", HandlerFunc: h.AdminAPI.Restock},
		{Name: "AdvanceDelivery", Method: http.MethodPost, Pattern: "/v1/admin/orders/:ref/delivery", HandlerFunc: h.AdminAPI.AdvanceDelivery},
		{Name: "ExpireStaleOrders", Method: http.MethodPost, Pattern: "/v1/admin/orders/expire", HandlerFunc: h.AdminAPI.ExpireStale},
	}
}
