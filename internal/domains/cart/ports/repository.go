package ports

import (
	"context"
	"errors"

	"github.com/Apurer/medstore-checkout/internal/domains/cart/domain"
)

var ErrNotFound = errors.New("cart item not found")

// Repository persists cart line items.
type Repository interface {
	// Add stores a new line, or adds the quantity to the user's existing line for the same product.
	Add(ctx context.Context, item *domain.LineItem) (*domain.LineItem, error)
	Get(ctx context.Context, userID, id int64) (*domain.LineItem, error)
	ListByUser(ctx context.Context, userID int64) ([]*domain.LineItem, error)
	UpdateQuantity(ctx context.Context, userID, id, quantity int64) (*domain.LineItem, error)
	Delete(ctx context.Context, userID, id int64) error
	// DeleteByIDs removes the given lines; ids that no longer exist are ignored.
	DeleteByIDs(ctx context.Context, ids []int64) error
	Clear(ctx context.Context, userID int64) error
}
