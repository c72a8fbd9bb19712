package ports

import (
	"context"

	"github.com/Apurer/medstore-checkout/internal/domains/customers/domain"
)

// Service exposes the profile use cases to adapters.
type Service interface {
	Get(ctx context.Context, id int64) (*domain.Customer, error)
	SaveProfile(ctx context.Context, id int64, profile domain.Profile) (*domain.Customer, error)
}
