package application

import (
	"context"
	"errors"

	"github.com/Apurer/medstore-checkout/internal/domains/customers/domain"
	"github.com/Apurer/medstore-checkout/internal/domains/customers/ports"
)

// Service manages customer profiles.
type Service struct {
	repo ports.Repository
}

func NewService(repo ports.Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) Get(ctx context.Context, id int64) (*domain.Customer, error) {
	return s.repo.Get(ctx, id)
}

// SaveProfile creates the profile on first save and updates it afterwards.
func (s *Service) SaveProfile(ctx context.Context, id int64, profile domain.Profile) (*domain.Customer, error) {
	customer, err := s.repo.Get(ctx, id)
	switch {
	case errors.Is(err, ports.ErrNotFound):
		customer, err = domain.NewCustomer(id, profile)
		if err != nil {
			return nil, mapError(err)
		}
	case err != nil:
		return nil, err
	default:
		if err := customer.UpdateProfile(profile); err != nil {
			return nil, mapError(err)
		}
	}
	if err := customer.Validate(); err != nil {
		return nil, mapError(err)
	}
	return s.repo.Save(ctx, customer)
}

var _ ports.Service = (*Service)(nil)
