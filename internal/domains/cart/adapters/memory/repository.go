package memory

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/Apurer/medstore-checkout/internal/domains/cart/domain"
	"github.com/Apurer/medstore-checkout/internal/domains/cart/ports"
)

var _ ports.Repository = (*Repository)(nil)

// Repository is an in-memory cart adapter.
type Repository struct {
	mu     sync.RWMutex
	items  map[int64]*domain.LineItem
	nextID int64
	now    func() time.Time
}

func NewRepository() *Repository {
	return &Repository{items: map[int64]*domain.LineItem{}, now: time.Now}
}

func (r *Repository) Add(_ context.Context, item *domain.LineItem) (*domain.LineItem, error) {
	if item == nil {
		return nil, errors.New("cart item is nil")
	}
	if err := item.Validate(); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.items {
		if existing.UserID == item.UserID && existing.ProductID == item.ProductID {
			existing.Quantity += item.Quantity
			clone := *existing
			return &clone, nil
		}
	}
	clone := *item
	r.nextID++
	clone.ID = r.nextID
	clone.CreatedAt = r.now().UTC()
	r.items[clone.ID] = &clone
	out := clone
	return &out, nil
}

func (r *Repository) Get(_ context.Context, userID, id int64) (*domain.LineItem, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	item, ok := r.items[id]
	if !ok || item.UserID != userID {
		return nil, ports.ErrNotFound
	}
	clone := *item
	return &clone, nil
}

func (r *Repository) ListByUser(_ context.Context, userID int64) ([]*domain.LineItem, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var list []*domain.LineItem
	for _, item := range r.items {
		if item.UserID == userID {
			clone := *item
			list = append(list, &clone)
		}
	}
	sort.Slice(list, func(i, j int) bool { return list[i].ID < list[j].ID })
	return list, nil
}

func (r *Repository) UpdateQuantity(_ context.Context, userID, id, quantity int64) (*domain.LineItem, error) {
	if quantity < 1 {
		return nil, domain.ErrInvalidQuantity
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	item, ok := r.items[id]
	if !ok || item.UserID != userID {
		return nil, ports.ErrNotFound
	}
	item.Quantity = quantity
	clone := *item
	return &clone, nil
}

func (r *Repository) Delete(_ context.Context, userID, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	item, ok := r.items[id]
	if !ok || item.UserID != userID {
		return ports.ErrNotFound
	}
	delete(r.items, id)
	return nil
}

func (r *Repository) DeleteByIDs(_ context.Context, ids []int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, id := range ids {
		delete(r.items, id)
	}
	return nil
}

func (r *Repository) Clear(_ context.Context, userID int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, item := range r.items {
		if item.UserID == userID {
			delete(r.items, id)
		}
	}
	return nil
}

// Take removes the given lines and returns what was removed.
func (r *Repository) Take(ids []int64) []*domain.LineItem {
	r.mu.Lock()
	defer r.mu.Unlock()
	var removed []*domain.LineItem
	for _, id := range ids {
		if item, ok := r.items[id]; ok {
			removed = append(removed, item)
			delete(r.items, id)
		}
	}
	return removed
}

// Put reinserts lines under their existing ids.
func (r *Repository) Put(items ...*domain.LineItem) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, item := range items {
		clone := *item
		r.items[clone.ID] = &clone
		if clone.ID > r.nextID {
			r.nextID = clone.ID
		}
	}
}
