package medstoreserver

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	inventorydomain "github.com/Apurer/medstore-checkout/internal/domains/inventory/domain"
	inventoryports "github.com/Apurer/medstore-checkout/internal/domains/inventory/ports"
	ordermapper "github.com/Apurer/medstore-checkout/internal/domains/orders/adapters/http/mapper"
	ordersapp "github.com/Apurer/medstore-checkout/internal/domains/orders/application"
	orderdomain "github.com/Apurer/medstore-checkout/internal/domains/orders/domain"
	orderports "github.com/Apurer/medstore-checkout/internal/domains/orders/ports"
)

// AdminAPI is the back-office surface: catalog stock, fulfilment and on-demand expiry.
type AdminAPI struct {
	inventory inventoryports.Service
	orders    orderports.Service
	workflows orderports.WorkflowOrchestrator
}

func NewAdminAPI(inventory inventoryports.Service, orders orderports.Service, workflows orderports.WorkflowOrchestrator) AdminAPI {
	return AdminAPI{inventory: inventory, orders: orders, workflows: workflows}
}

// Get /v1/admin/products
func (api *AdminAPI) ListProducts(c *gin.Context) {
	products, err := api.inventory.ListProducts(c.Request.Context())
	if err != nil {
		respondServiceError(c, err)
		return
	}
	out := make([]Product, 0, len(products))
	for _, p := range products {
		out = append(out, fromProduct(p))
	}
	c.JSON(http.StatusOK, out)
}

// Put /v1/admin/products/:productId
func (api *AdminAPI) PutProduct(c *gin.Context) {
	id, ok := bindIDParam(c, "productId")
	if !ok {
		return
	}
	var payload ProductInput
	if err := c.ShouldBindJSON(&payload); err != nil {
		respondBindingError(c, err)
		return
	}
	product, err := inventorydomain.NewProduct(id, payload.Name, payload.CategoryName, payload.Price, payload.DiscountPercent, payload.Stock)
	if err != nil {
		respondBadRequest(c, err)
		return
	}
	saved, err := api.inventory.RegisterProduct(c.Request.Context(), product)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, fromProduct(saved))
}

// Post /v1/admin/products/:productId/restock
func (api *AdminAPI) Restock(c *gin.Context) {
	id, ok := bindIDParam(c, "productId")
	if !ok {
		return
	}
	var payload Restock
	if err := c.ShouldBindJSON(&payload); err != nil {
		respondBindingError(c, err)
		return
	}
	product, err := api.inventory.Restock(c.Request.Context(), id, payload.Quantity)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, fromProduct(product))
}

// Post /v1/admin/orders/:ref/delivery
func (api *AdminAPI) AdvanceDelivery(c *gin.Context) {
	var payload ordermapper.DeliveryUpdate
	if err := c.ShouldBindJSON(&payload); err != nil {
		respondBindingError(c, err)
		return
	}
	status, err := orderdomain.ParseDeliveryStatus(payload.Status)
	if err != nil {
		respondServiceError(c, fmt.Errorf("%w: %w", ordersapp.ErrInvalidInput, err))
		return
	}
	order, err := api.orders.AdvanceDelivery(c.Request.Context(), c.Param("ref"), status)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, ordermapper.FromDomainOrder(order))
}

// Post /v1/admin/orders/expire
// Runs the expiry sweep now, through Temporal when it is configured.
func (api *AdminAPI) ExpireStale(c *gin.Context) {
	run := api.orders.ExpireStale
	if api.workflows != nil {
		run = api.workflows.ExpireStale
	}
	n, err := run(c.Request.Context())
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, ExpireResult{Expired: n})
}
