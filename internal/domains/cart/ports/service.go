package ports

import (
	"context"

	"github.com/Apurer/medstore-checkout/internal/domains/cart/domain"
)

// Service exposes cart use cases to adapters.
type Service interface {
	AddItem(ctx context.Context, userID, productID, quantity int64) (*domain.LineItem, error)
	UpdateQuantity(ctx context.Context, userID, itemID, quantity int64) (*domain.LineItem, error)
	RemoveItem(ctx context.Context, userID, itemID int64) error
	Clear(ctx context.Context, userID int64) error
	// Preview prices the whole cart, or only cartItemID when it is set.
	Preview(ctx context.Context, userID int64, cartItemID *int64) (domain.Snapshot, error)
}
