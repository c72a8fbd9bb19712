package memory

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/Apurer/medstore-checkout/internal/domains/inventory/domain"
	"github.com/Apurer/medstore-checkout/internal/domains/inventory/ports"
)

var _ ports.Ledger = (*Ledger)(nil)

// Ledger is an in-memory stock ledger. A single mutex serializes every check-and-move.
type Ledger struct {
	mu       sync.RWMutex
	products map[int64]*domain.Product
	now      func() time.Time
}

// Option customizes the ledger.
type Option func(*Ledger)

// WithClock overrides the clock used for UpdatedAt.
func WithClock(now func() time.Time) Option {
	return func(l *Ledger) {
		if now != nil {
			l.now = now
		}
	}
}

func NewLedger(opts ...Option) *Ledger {
	l := &Ledger{products: map[int64]*domain.Product{}, now: time.Now}
	for _, opt := range opts {
		if opt != nil {
			opt(l)
		}
	}
	return l
}

func (l *Ledger) Save(_ context.Context, product *domain.Product) (*domain.Product, error) {
	if product == nil {
		return nil, errors.New("product is nil")
	}
	clone := cloneProduct(product)
	if err := clone.Validate(); err != nil {
		return nil, err
	}
	clone.UpdatedAt = l.now().UTC()
	l.mu.Lock()
	defer l.mu.Unlock()
	l.products[clone.ID] = clone
	return cloneProduct(clone), nil
}

func (l *Ledger) Get(_ context.Context, id int64) (*domain.Product, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	p, ok := l.products[id]
	if !ok {
		return nil, ports.ErrNotFound
	}
	return cloneProduct(p), nil
}

func (l *Ledger) GetMany(_ context.Context, ids []int64) (map[int64]*domain.Product, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make(map[int64]*domain.Product, len(ids))
	for _, id := range ids {
		p, ok := l.products[id]
		if !ok {
			return nil, ports.ErrNotFound
		}
		out[id] = cloneProduct(p)
	}
	return out, nil
}

func (l *Ledger) List(_ context.Context) ([]*domain.Product, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	list := make([]*domain.Product, 0, len(l.products))
	for _, p := range l.products {
		list = append(list, cloneProduct(p))
	}
	sort.Slice(list, func(i, j int) bool { return list[i].ID < list[j].ID })
	return list, nil
}

func (l *Ledger) Reserve(_ context.Context, reqs []domain.StockRequest) error {
	merged, err := domain.MergeRequests(reqs)
	if err != nil {
		return err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	locked := make(map[int64]*domain.Product, len(merged))
	for _, r := range merged {
		p, ok := l.products[r.ProductID]
		if !ok {
			return ports.ErrNotFound
		}
		locked[r.ProductID] = p
	}
	if err := domain.CheckAvailability(locked, merged); err != nil {
		return err
	}
	now := l.now().UTC()
	for _, r := range merged {
		p := locked[r.ProductID]
		if err := p.Take(r.Quantity); err != nil {
			return err
		}
		p.UpdatedAt = now
	}
	return nil
}

func (l *Ledger) Restore(_ context.Context, reqs []domain.StockRequest) error {
	merged, err := domain.MergeRequests(reqs)
	if err != nil {
		return err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, r := range merged {
		if _, ok := l.products[r.ProductID]; !ok {
			return ports.ErrNotFound
		}
	}
	now := l.now().UTC()
	for _, r := range merged {
		p := l.products[r.ProductID]
		if err := p.Put(r.Quantity); err != nil {
			return err
		}
		p.UpdatedAt = now
	}
	return nil
}

// Withdraw takes stock back out without an availability check, stopping at zero. It undoes a
// Restore when an in-memory transaction rolls back.
func (l *Ledger) Withdraw(_ context.Context, reqs []domain.StockRequest) error {
	merged, err := domain.MergeRequests(reqs)
	if err != nil {
		return err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	now := l.now().UTC()
	for _, r := range merged {
		p, ok := l.products[r.ProductID]
		if !ok {
			continue
		}
		p.Stock -= r.Quantity
		if p.Stock < 0 {
			p.Stock = 0
		}
		p.UpdatedAt = now
	}
	return nil
}

// Delete drops a product.
func (l *Ledger) Delete(_ context.Context, id int64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.products, id)
}

func cloneProduct(p *domain.Product) *domain.Product {
	clone := *p
	if p.DiscountPercent != nil {
		d := *p.DiscountPercent
		clone.DiscountPercent = &d
	}
	return &clone
}
