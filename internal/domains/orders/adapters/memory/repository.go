package memory

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/Apurer/medstore-checkout/internal/domains/orders/domain"
	"github.com/Apurer/medstore-checkout/internal/domains/orders/ports"
)

var _ ports.Repository = (*Repository)(nil)

// Repository is an in-memory order store. Lock does not lock on its own; the memory unit of work
// serializes transactions.
type Repository struct {
	mu     sync.RWMutex
	orders map[int64]*domain.Order
	nextID int64
}

func NewRepository() *Repository {
	return &Repository{orders: map[int64]*domain.Order{}}
}

func (r *Repository) Create(_ context.Context, order *domain.Order) (*domain.Order, error) {
	if order == nil {
		return nil, errors.New("order is nil")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.orders {
		if existing.Number == order.Number {
			return nil, errors.New("order number already exists")
		}
	}
	r.nextID++
	order.ID = r.nextID
	r.orders[order.ID] = order.Clone()
	return order, nil
}

func (r *Repository) Update(_ context.Context, order *domain.Order) error {
	if order == nil {
		return errors.New("order is nil")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.orders[order.ID]
	if !ok {
		return ports.ErrNotFound
	}
	if order.GatewayOrderID != "" && order.GatewayOrderID != stored.GatewayOrderID {
		for id, other := range r.orders {
			if id != order.ID && other.GatewayOrderID == order.GatewayOrderID {
				return errors.New("gateway order id already in use")
			}
		}
	}
	payment := stored.Payment
	updated := order.Clone()
	updated.Payment = payment
	r.orders[order.ID] = updated
	return nil
}

func (r *Repository) Lock(ctx context.Context, id int64) (*domain.Order, error) {
	return r.GetByID(ctx, id)
}

func (r *Repository) GetByID(_ context.Context, id int64) (*domain.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	order, ok := r.orders[id]
	if !ok {
		return nil, ports.ErrNotFound
	}
	return order.Clone(), nil
}

func (r *Repository) GetByNumber(_ context.Context, number string) (*domain.Order, error) {
	return r.find(func(o *domain.Order) bool { return o.Number == number })
}

func (r *Repository) GetByGatewayOrderID(_ context.Context, gatewayOrderID string) (*domain.Order, error) {
	if gatewayOrderID == "" {
		return nil, ports.ErrNotFound
	}
	return r.find(func(o *domain.Order) bool { return o.GatewayOrderID == gatewayOrderID })
}

func (r *Repository) ListByUser(_ context.Context, userID int64) ([]*domain.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var list []*domain.Order
	for _, o := range r.orders {
		if o.UserID == userID {
			list = append(list, o.Clone())
		}
	}
	sort.Slice(list, func(i, j int) bool { return list[i].ID > list[j].ID })
	return list, nil
}

func (r *Repository) ListStale(_ context.Context, cutoff time.Time, limit int) ([]int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var stale []*domain.Order
	for _, o := range r.orders {
		if o.Status == domain.StatusCreated && o.PaymentStatus == domain.PaymentPending && o.CreatedAt.Before(cutoff) {
			stale = append(stale, o)
		}
	}
	sort.Slice(stale, func(i, j int) bool {
		if stale[i].CreatedAt.Equal(stale[j].CreatedAt) {
			return stale[i].ID < stale[j].ID
		}
		return stale[i].CreatedAt.Before(stale[j].CreatedAt)
	})
	if limit > 0 && len(stale) > limit {
		stale = stale[:limit]
	}
	ids := make([]int64, 0, len(stale))
	for _, o := range stale {
		ids = append(ids, o.ID)
	}
	return ids, nil
}

func (r *Repository) SavePayment(_ context.Context, orderID int64, payment *domain.Payment) error {
	if payment == nil {
		return errors.New("payment is nil")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	order, ok := r.orders[orderID]
	if !ok {
		return ports.ErrNotFound
	}
	for id, other := range r.orders {
		if id != orderID && other.Payment != nil && other.Payment.GatewayPaymentID == payment.GatewayPaymentID {
			return ports.ErrDuplicatePayment
		}
	}
	p := *payment
	p.Raw = append([]byte(nil), payment.Raw...)
	if order.Payment != nil {
		p.CreatedAt = order.Payment.CreatedAt
	}
	order.Payment = &p
	return nil
}

// Checkpoint captures the store and returns a function that rolls back to it.
func (r *Repository) Checkpoint() func() {
	r.mu.RLock()
	saved := make(map[int64]*domain.Order, len(r.orders))
	for id, o := range r.orders {
		saved[id] = o.Clone()
	}
	nextID := r.nextID
	r.mu.RUnlock()
	return func() {
		r.mu.Lock()
		r.orders = saved
		r.nextID = nextID
		r.mu.Unlock()
	}
}

func (r *Repository) find(match func(*domain.Order) bool) (*domain.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, o := range r.orders {
		if match(o) {
			return o.Clone(), nil
		}
	}
	return nil, ports.ErrNotFound
}
