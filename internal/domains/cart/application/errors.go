package application

import (
	"errors"
	"fmt"

	"github.com/Apurer/medstore-checkout/internal/domains/cart/domain"
)

var (
	// ErrInvalidInput signals the request violated a cart invariant.
	ErrInvalidInput = errors.New("invalid cart input")
	// ErrExceedsStock rejects cart quantities above the product's current stock.
	ErrExceedsStock = errors.New("requested quantity exceeds available stock")
)

func mapError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, domain.ErrInvalidQuantity) ||
		errors.Is(err, domain.ErrInvalidProductID) ||
		errors.Is(err, domain.ErrInvalidUserID) ||
		errors.Is(err, domain.ErrInvalidDiscount) ||
		errors.Is(err, domain.ErrNegativePrice) {
		return fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}
	return err
}
