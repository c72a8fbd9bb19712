package memory

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/Apurer/medstore-checkout/internal/domains/customers/domain"
	"github.com/Apurer/medstore-checkout/internal/domains/customers/ports"
)

var _ ports.Repository = (*Repository)(nil)

type Repository struct {
	mu        sync.RWMutex
	customers map[int64]domain.Customer
	now       func() time.Time
}

func NewRepository() *Repository {
	return &Repository{customers: map[int64]domain.Customer{}, now: time.Now}
}

func (r *Repository) Save(_ context.Context, customer *domain.Customer) (*domain.Customer, error) {
	if customer == nil {
		return nil, errors.New("customer is nil")
	}
	if err := customer.Validate(); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	stored := *customer
	stored.UpdatedAt = r.now().UTC()
	r.customers[stored.ID] = stored
	out := stored
	return &out, nil
}

func (r *Repository) Get(_ context.Context, id int64) (*domain.Customer, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.customers[id]
	if !ok {
		return nil, ports.ErrNotFound
	}
	return &c, nil
}
