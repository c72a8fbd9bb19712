package domain

import (
	"errors"
	"time"
)

var (
	ErrInvalidQuantity  = errors.New("quantity must be at least 1")
	ErrInvalidProductID = errors.New("product id must be greater than zero")
	ErrInvalidUserID    = errors.New("user id must be greater than zero")
)

// LineItem is one product in a user's cart. It lives until purchase or removal.
type LineItem struct {
	ID        int64
	UserID    int64
	ProductID int64
	Quantity  int64
	CreatedAt time.Time
}

// NewLineItem validates and constructs a cart line.
func NewLineItem(userID, productID, quantity int64) (*LineItem, error) {
	item := &LineItem{UserID: userID, ProductID: productID, Quantity: quantity}
	if err := item.Validate(); err != nil {
		return nil, err
	}
	return item, nil
}

func (i *LineItem) Validate() error {
	if i.UserID <= 0 {
		return ErrInvalidUserID
	}
	if i.ProductID <= 0 {
		return ErrInvalidProductID
	}
	if i.Quantity < 1 {
		return ErrInvalidQuantity
	}
	return nil
}
