package application

import (
	"context"

	"github.com/Apurer/medstore-checkout/internal/domains/cart/domain"
	"github.com/Apurer/medstore-checkout/internal/domains/cart/ports"
)

// PriceItems joins cart lines with live product data and builds the snapshot. Cart display,
// checkout preview and checkout itself all price through here.
func PriceItems(ctx context.Context, catalog ports.ProductCatalog, items []*domain.LineItem, policy domain.DeliveryPolicy) (domain.Snapshot, error) {
	if len(items) == 0 {
		return domain.Snapshot{}, domain.ErrEmptyCart
	}
	ids := make([]int64, 0, len(items))
	for _, item := range items {
		ids = append(ids, item.ProductID)
	}
	products, err := catalog.GetMany(ctx, ids)
	if err != nil {
		return domain.Snapshot{}, err
	}
	lines := make([]domain.PricingLine, 0, len(items))
	for _, item := range items {
		p := products[item.ProductID]
		lines = append(lines, domain.PricingLine{
			CartItemID:      item.ID,
			ProductID:       p.ID,
			ProductName:     p.Name,
			CategoryName:    p.CategoryName,
			UnitPrice:       p.Price,
			DiscountPercent: p.DiscountPercent,
			Quantity:        item.Quantity,
		})
	}
	return domain.BuildSnapshot(lines, policy)
}
