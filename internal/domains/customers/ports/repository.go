package ports

import (
	"context"
	"errors"

	"github.com/Apurer/medstore-checkout/internal/domains/customers/domain"
)

var ErrNotFound = errors.New("customer not found")

type Repository interface {
	Save(ctx context.Context, customer *domain.Customer) (*domain.Customer, error)
	Get(ctx context.Context, id int64) (*domain.Customer, error)
}
