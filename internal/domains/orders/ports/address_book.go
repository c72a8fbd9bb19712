package ports

import (
	"context"
	"errors"

	"github.com/Apurer/medstore-checkout/internal/domains/orders/domain"
)

var ErrNoRegisteredAddress = errors.New("no registered address on file")

// AddressBook resolves a buyer's registered shipping address.
type AddressBook interface {
	RegisteredAddress(ctx context.Context, userID int64) (*domain.ShippingAddress, error)
}
