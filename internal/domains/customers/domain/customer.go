package domain

import (
	"errors"
	"strings"
	"time"
)

var (
	ErrInvalidID         = errors.New("customer id must be greater than zero")
	ErrInvalidEmail      = errors.New("email must contain '@'")
	ErrInvalidPincode    = errors.New("pincode must be 6 digits")
	ErrIncompleteAddress = errors.New("registered address is incomplete")
)

// Customer is a buyer's profile and registered delivery address.
type Customer struct {
	ID        int64
	FirstName string
	LastName  string
	Email     string
	Phone     string
	Address   string
	City      string
	State     string
	Pincode   string
	UpdatedAt time.Time
}

// Profile carries the editable fields.
type Profile struct {
	FirstName string
	LastName  string
	Email     string
	Phone     string
	Address   string
	City      string
	State     string
	Pincode   string
}

// NewCustomer builds a customer from a profile.
func NewCustomer(id int64, profile Profile) (*Customer, error) {
	c := &Customer{ID: id}
	if err := c.UpdateProfile(profile); err != nil {
		return nil, err
	}
	return c, nil
}

// UpdateProfile trims and validates every field. Blank fields are allowed; checkout decides
// whether the address is complete enough to ship to.
func (c *Customer) UpdateProfile(p Profile) error {
	email := strings.TrimSpace(p.Email)
	if email != "" && !strings.Contains(email, "@") {
		return ErrInvalidEmail
	}
	pincode := strings.TrimSpace(p.Pincode)
	if pincode != "" && !isPincode(pincode) {
		return ErrInvalidPincode
	}
	c.FirstName = strings.TrimSpace(p.FirstName)
	c.LastName = strings.TrimSpace(p.LastName)
	c.Email = email
	c.Phone = strings.TrimSpace(p.Phone)
	c.Address = strings.TrimSpace(p.Address)
	c.City = strings.TrimSpace(p.City)
	c.State = strings.TrimSpace(p.State)
	c.Pincode = pincode
	return nil
}

func (c *Customer) Validate() error {
	if c.ID <= 0 {
		return ErrInvalidID
	}
	if c.Email != "" && !strings.Contains(c.Email, "@") {
		return ErrInvalidEmail
	}
	if c.Pincode != "" && !isPincode(c.Pincode) {
		return ErrInvalidPincode
	}
	return nil
}

// CheckAddress reports whether the registered address can be shipped to.
func (c *Customer) CheckAddress() error {
	for _, field := range []string{c.FirstName, c.Phone, c.Address, c.City, c.State, c.Pincode} {
		if field == "" {
			return ErrIncompleteAddress
		}
	}
	return nil
}

func isPincode(s string) bool {
	if len(s) != 6 {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
