package application

import (
	"errors"
	"fmt"

	cartdomain "github.com/Apurer/medstore-checkout/internal/domains/cart/domain"
	"github.com/Apurer/medstore-checkout/internal/domains/orders/domain"
)

var (
	// ErrInvalidInput signals the request violated an order invariant.
	ErrInvalidInput = errors.New("invalid order input")
	// ErrEmptyCart rejects checkout when no cart lines match.
	ErrEmptyCart = errors.New("cart is empty")
	// ErrAddressRequired rejects checkout without explicit or registered shipping details.
	ErrAddressRequired = errors.New("shipping address required")
	// ErrCallbackInFlight means another callback for the same gateway order is being processed.
	ErrCallbackInFlight = errors.New("payment callback already in progress")
)

func mapError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, cartdomain.ErrEmptyCart) {
		return fmt.Errorf("%w: %w", ErrEmptyCart, err)
	}
	if errors.Is(err, domain.ErrIncompleteAddress) {
		return fmt.Errorf("%w: %w", ErrAddressRequired, err)
	}
	if errors.Is(err, domain.ErrInvalidUserID) ||
		errors.Is(err, domain.ErrNoItems) ||
		errors.Is(err, domain.ErrInvalidQuantity) ||
		errors.Is(err, domain.ErrNegativeAmount) ||
		errors.Is(err, domain.ErrNotPaid) ||
		errors.Is(err, domain.ErrInvalidDeliveryStatus) ||
		errors.Is(err, domain.ErrDeliveryBackwards) ||
		errors.Is(err, cartdomain.ErrInvalidQuantity) ||
		errors.Is(err, cartdomain.ErrInvalidDiscount) ||
		errors.Is(err, cartdomain.ErrNegativePrice) {
		return fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}
	return err
}
