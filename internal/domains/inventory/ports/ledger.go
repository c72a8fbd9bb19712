package ports

import (
	"context"
	"errors"

	"github.com/Apurer/medstore-checkout/internal/domains/inventory/domain"
)

var ErrNotFound = errors.New("product not found")

// Ledger holds available stock per product and moves it atomically.
type Ledger interface {
	Save(ctx context.Context, product *domain.Product) (*domain.Product, error)
	Get(ctx context.Context, id int64) (*domain.Product, error)
	GetMany(ctx context.Context, ids []int64) (map[int64]*domain.Product, error)
	List(ctx context.Context) ([]*domain.Product, error)
	// Reserve decrements stock for every request or for none of them. A shortfall is reported as
	// *domain.InsufficientStockError naming every short product.
	Reserve(ctx context.Context, reqs []domain.StockRequest) error
	// Restore increments stock. Callers guarantee a given order restores at most once.
	Restore(ctx context.Context, reqs []domain.StockRequest) error
}
