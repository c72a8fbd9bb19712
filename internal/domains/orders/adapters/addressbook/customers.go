package addressbook

import (
	"context"
	"errors"

	customerdomain "github.com/Apurer/medstore-checkout/internal/domains/customers/domain"
	customerports "github.com/Apurer/medstore-checkout/internal/domains/customers/ports"
	"github.com/Apurer/medstore-checkout/internal/domains/orders/domain"
	"github.com/Apurer/medstore-checkout/internal/domains/orders/ports"
)

var _ ports.AddressBook = (*Customers)(nil)

// Customers reads registered addresses from customer profiles.
type Customers struct {
	repo customerports.Repository
}

func NewCustomers(repo customerports.Repository) *Customers {
	return &Customers{repo: repo}
}

func (c *Customers) RegisteredAddress(ctx context.Context, userID int64) (*domain.ShippingAddress, error) {
	customer, err := c.repo.Get(ctx, userID)
	if errors.Is(err, customerports.ErrNotFound) {
		return nil, ports.ErrNoRegisteredAddress
	}
	if err != nil {
		return nil, err
	}
	if err := customer.CheckAddress(); err != nil {
		if errors.Is(err, customerdomain.ErrIncompleteAddress) {
			return nil, ports.ErrNoRegisteredAddress
		}
		return nil, err
	}
	return &domain.ShippingAddress{
		FirstName: customer.FirstName,
		LastName:  customer.LastName,
		Email:     customer.Email,
		Phone:     customer.Phone,
		Address:   customer.Address,
		City:      customer.City,
		State:     customer.State,
		Pincode:   customer.Pincode,
	}, nil
}
