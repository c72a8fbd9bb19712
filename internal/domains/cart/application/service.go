package application

import (
	"context"
	"fmt"

	"github.com/Apurer/medstore-checkout/internal/domains/cart/domain"
	"github.com/Apurer/medstore-checkout/internal/domains/cart/ports"
)

// Service orchestrates cart use cases.
type Service struct {
	repo    ports.Repository
	catalog ports.ProductCatalog
	policy  domain.DeliveryPolicy
}

// NewService wires the cart service. policy must be the same delivery policy checkout uses.
func NewService(repo ports.Repository, catalog ports.ProductCatalog, policy domain.DeliveryPolicy) *Service {
	return &Service{repo: repo, catalog: catalog, policy: policy}
}

func (s *Service) AddItem(ctx context.Context, userID, productID, quantity int64) (*domain.LineItem, error) {
	item, err := domain.NewLineItem(userID, productID, quantity)
	if err != nil {
		return nil, mapError(err)
	}
	existing, err := s.quantityInCart(ctx, userID, productID)
	if err != nil {
		return nil, err
	}
	if err := s.checkStock(ctx, productID, existing+quantity); err != nil {
		return nil, err
	}
	return s.repo.Add(ctx, item)
}

func (s *Service) UpdateQuantity(ctx context.Context, userID, itemID, quantity int64) (*domain.LineItem, error) {
	if quantity < 1 {
		return nil, mapError(domain.ErrInvalidQuantity)
	}
	item, err := s.repo.Get(ctx, userID, itemID)
	if err != nil {
		return nil, err
	}
	if err := s.checkStock(ctx, item.ProductID, quantity); err != nil {
		return nil, err
	}
	return s.repo.UpdateQuantity(ctx, userID, itemID, quantity)
}

func (s *Service) RemoveItem(ctx context.Context, userID, itemID int64) error {
	return s.repo.Delete(ctx, userID, itemID)
}

func (s *Service) Clear(ctx context.Context, userID int64) error {
	return s.repo.Clear(ctx, userID)
}

func (s *Service) Preview(ctx context.Context, userID int64, cartItemID *int64) (domain.Snapshot, error) {
	var items []*domain.LineItem
	if cartItemID != nil {
		item, err := s.repo.Get(ctx, userID, *cartItemID)
		if err != nil {
			return domain.Snapshot{}, err
		}
		items = []*domain.LineItem{item}
	} else {
		list, err := s.repo.ListByUser(ctx, userID)
		if err != nil {
			return domain.Snapshot{}, err
		}
		items = list
	}
	snap, err := PriceItems(ctx, s.catalog, items, s.policy)
	if err != nil {
		return domain.Snapshot{}, mapError(err)
	}
	return snap, nil
}

func (s *Service) quantityInCart(ctx context.Context, userID, productID int64) (int64, error) {
	items, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		return 0, err
	}
	for _, item := range items {
		if item.ProductID == productID {
			return item.Quantity, nil
		}
	}
	return 0, nil
}

func (s *Service) checkStock(ctx context.Context, productID, quantity int64) error {
	products, err := s.catalog.GetMany(ctx, []int64{productID})
	if err != nil {
		return err
	}
	if p := products[productID]; quantity > p.Stock {
		return fmt.Errorf("%w: %s has %d left", ErrExceedsStock, p.Name, p.Stock)
	}
	return nil
}

var _ ports.Service = (*Service)(nil)
