package domain

import (
	"errors"
	"strings"
)

var ErrIncompleteAddress = errors.New("shipping address is incomplete")

// ShippingAddress is copied onto the order at checkout.
type ShippingAddress struct {
	FirstName string
	LastName  string
	Email     string
	Phone     string
	Address   string
	City      string
	State     string
	Pincode   string
}

// Validate requires everything a courier needs. Last name and email are optional.
func (a *ShippingAddress) Validate() error {
	if a == nil {
		return ErrIncompleteAddress
	}
	for _, field := range []string{a.FirstName, a.Phone, a.Address, a.City, a.State, a.Pincode} {
		if strings.TrimSpace(field) == "" {
			return ErrIncompleteAddress
		}
	}
	return nil
}

// Normalize trims whitespace from every field.
func (a ShippingAddress) Normalize() ShippingAddress {
	return ShippingAddress{
		FirstName: strings.TrimSpace(a.FirstName),
		LastName:  strings.TrimSpace(a.LastName),
		Email:     strings.TrimSpace(a.Email),
		Phone:     strings.TrimSpace(a.Phone),
		Address:   strings.TrimSpace(a.Address),
		City:      strings.TrimSpace(a.City),
		State:     strings.TrimSpace(a.State),
		Pincode:   strings.TrimSpace(a.Pincode),
	}
}
