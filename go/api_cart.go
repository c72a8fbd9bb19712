package medstoreserver

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	cartdomain "github.com/Apurer/medstore-checkout/internal/domains/cart/domain"
	cartports "github.com/Apurer/medstore-checkout/internal/domains/cart/ports"
)

// CartAPI exposes the caller's cart.
type CartAPI struct {
	service cartports.Service
}

func NewCartAPI(service cartports.Service) CartAPI {
	return CartAPI{service: service}
}

// Get /v1/cart
// An empty cart is a zero snapshot, not an error.
func (api *CartAPI) GetCart(c *gin.Context) {
	snap, err := api.service.Preview(c.Request.Context(), userID(c), nil)
	if errors.Is(err, cartdomain.ErrEmptyCart) {
		c.JSON(http.StatusOK, emptySnapshot())
		return
	}
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, fromSnapshot(snap))
}

// Post /v1/cart/items
func (api *CartAPI) AddItem(c *gin.Context) {
	var payload AddCartItem
	if err := c.ShouldBindJSON(&payload); err != nil {
		respondBindingError(c, err)
		return
	}
	item, err := api.service.AddItem(c.Request.Context(), userID(c), payload.ProductID, payload.Quantity)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, fromLineItem(item))
}

// Patch /v1/cart/items/:itemId
func (api *CartAPI) UpdateItem(c *gin.Context) {
	itemID, ok := bindIDParam(c, "itemId")
	if !ok {
		return
	}
	var payload UpdateCartItem
	if err := c.ShouldBindJSON(&payload); err != nil {
		respondBindingError(c, err)
		return
	}
	item, err := api.service.UpdateQuantity(c.Request.Context(), userID(c), itemID, payload.Quantity)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, fromLineItem(item))
}

// Delete /v1/cart/items/:itemId
func (api *CartAPI) RemoveItem(c *gin.Context) {
	itemID, ok := bindIDParam(c, "itemId")
	if !ok {
		return
	}
	if err := api.service.RemoveItem(c.Request.Context(), userID(c), itemID); err != nil {
		respondServiceError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Delete /v1/cart
func (api *CartAPI) Clear(c *gin.Context) {
	if err := api.service.Clear(c.Request.Context(), userID(c)); err != nil {
		respondServiceError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Get /v1/checkout/preview
// Prices what a checkout would charge, optionally for a single cart line.
func (api *CartAPI) PreviewCheckout(c *gin.Context) {
	cartItemID, ok := bindOptionalIDQuery(c, "cartItemId")
	if !ok {
		return
	}
	snap, err := api.service.Preview(c.Request.Context(), userID(c), cartItemID)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, fromSnapshot(snap))
}
