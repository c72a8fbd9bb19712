package medstoreserver

import (
	"net/http"

	"github.com/gin-gonic/gin"

	customerports "github.com/Apurer/medstore-checkout/internal/domains/customers/ports"
)

// ProfileAPI manages the registered delivery address used by one-click checkout.
type ProfileAPI struct {
	service customerports.Service
}

func NewProfileAPI(service customerports.Service) ProfileAPI {
	return ProfileAPI{service: service}
}

// Get /v1/profile
func (api *ProfileAPI) GetProfile(c *gin.Context) {
	customer, err := api.service.Get(c.Request.Context(), userID(c))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, fromCustomer(customer))
}

// Put /v1/profile
func (api *ProfileAPI) SaveProfile(c *gin.Context) {
	var payload Profile
	if err := c.ShouldBindJSON(&payload); err != nil {
		respondBindingError(c, err)
		return
	}
	customer, err := api.service.SaveProfile(c.Request.Context(), userID(c), toDomainProfile(payload))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, fromCustomer(customer))
}
