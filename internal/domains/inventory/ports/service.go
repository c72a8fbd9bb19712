package ports

import (
	"context"

	"github.com/Apurer/medstore-checkout/internal/domains/inventory/domain"
)

// Service exposes stock administration to adapters.
type Service interface {
	RegisterProduct(ctx context.Context, product *domain.Product) (*domain.Product, error)
	GetProduct(ctx context.Context, id int64) (*domain.Product, error)
	ListProducts(ctx context.Context) ([]*domain.Product, error)
	Restock(ctx context.Context, id int64, quantity int64) (*domain.Product, error)
}
