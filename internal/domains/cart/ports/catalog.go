package ports

import (
	"context"

	inventorydomain "github.com/Apurer/medstore-checkout/internal/domains/inventory/domain"
)

// ProductCatalog resolves the live product data a cart is priced against.
type ProductCatalog interface {
	GetMany(ctx context.Context, ids []int64) (map[int64]*inventorydomain.Product, error)
}
