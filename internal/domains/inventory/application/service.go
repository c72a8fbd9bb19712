package application

import (
	"context"
	"errors"

	"github.com/Apurer/medstore-checkout/internal/domains/inventory/domain"
	"github.com/Apurer/medstore-checkout/internal/domains/inventory/ports"
)

// Service administers products and their stock.
type Service struct {
	ledger ports.Ledger
}

func NewService(ledger ports.Ledger) *Service {
	return &Service{ledger: ledger}
}

func (s *Service) RegisterProduct(ctx context.Context, product *domain.Product) (*domain.Product, error) {
	if product == nil {
		return nil, errors.New("product is nil")
	}
	if err := product.Validate(); err != nil {
		return nil, mapError(err)
	}
	return s.ledger.Save(ctx, product)
}

func (s *Service) GetProduct(ctx context.Context, id int64) (*domain.Product, error) {
	return s.ledger.Get(ctx, id)
}

func (s *Service) ListProducts(ctx context.Context) ([]*domain.Product, error) {
	return s.ledger.List(ctx)
}

// Restock adds units through the ledger so the increment is applied under the row lock.
func (s *Service) Restock(ctx context.Context, id int64, quantity int64) (*domain.Product, error) {
	if quantity <= 0 {
		return nil, mapError(domain.ErrInvalidQuantity)
	}
	if err := s.ledger.Restore(ctx, []domain.StockRequest{{ProductID: id, Quantity: quantity}}); err != nil {
		return nil, mapError(err)
	}
	return s.ledger.Get(ctx, id)
}

var _ ports.Service = (*Service)(nil)
