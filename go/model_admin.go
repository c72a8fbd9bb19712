package medstoreserver

import (
	"time"

	"github.com/shopspring/decimal"
	openapi_types "github.com/oapi-codegen/runtime/types"

	customerdomain "github.com/Apurer/medstore-checkout/internal/domains/customers/domain"
	inventorydomain "github.com/Apurer/medstore-checkout/internal/domains/inventory/domain"
)

// ProductInput registers or replaces a product. Prices are decimal strings in major units.
type ProductInput struct {
	Name            string           `json:"name" binding:"required"`
	CategoryName    string           `json:"categoryName"`
	Price           decimal.Decimal  `json:"price"`
	DiscountPercent *decimal.Decimal `json:"discountPercent,omitempty"`
	Stock           int64            `json:"stock"`
}

type Restock struct {
	Quantity int64 `json:"quantity" binding:"required"`
}

type Product struct {
	ID              int64     `json:"id"`
	Name            string    `json:"name"`
	CategoryName    string    `json:"categoryName,omitempty"`
	Price           string    `json:"price"`
	DiscountPercent *string   `json:"discountPercent,omitempty"`
	Stock           int64     `json:"stock"`
	UpdatedAt       time.Time `json:"updatedAt"`
}

type ExpireResult struct {
	Expired int `json:"expired"`
}

// Profile is the buyer's registered details.
type Profile struct {
	FirstName string              `json:"firstName"`
	LastName  string              `json:"lastName,omitempty"`
	Email     openapi_types.Email `json:"email"`
	Phone     string              `json:"phone"`
	Address   string              `json:"address"`
	City      string              `json:"city"`
	State     string              `json:"state"`
	Pincode   string              `json:"pincode"`
}

func fromProduct(p *inventorydomain.Product) Product {
	out := Product{
		ID:           p.ID,
		Name:         p.Name,
		CategoryName: p.CategoryName,
		Price:        p.Price.StringFixed(2),
		Stock:        p.Stock,
		UpdatedAt:    p.UpdatedAt,
	}
	if p.DiscountPercent != nil {
		d := p.DiscountPercent.StringFixed(2)
		out.DiscountPercent = &d
	}
	return out
}

func toDomainProfile(p Profile) customerdomain.Profile {
	return customerdomain.Profile{
		FirstName: p.FirstName,
		LastName:  p.LastName,
		Email:     string(p.Email),
		Phone:     p.Phone,
		Address:   p.Address,
		City:      p.City,
		State:     p.State,
		Pincode:   p.Pincode,
	}
}

func fromCustomer(c *customerdomain.Customer) Profile {
	return Profile{
		FirstName: c.FirstName,
		LastName:  c.LastName,
		Email:     openapi_types.Email(c.Email),
		Phone:     c.Phone,
		Address:   c.Address,
		City:      c.City,
		State:     c.State,
		Pincode:   c.Pincode,
	}
}
