package ports

import (
	"context"
	"errors"
	"time"

	"github.com/Apurer/medstore-checkout/internal/domains/orders/domain"
)

var (
	ErrNotFound         = errors.New("order not found")
	// ErrDuplicatePayment rejects a gateway payment id already attached to another order.
	ErrDuplicatePayment = errors.New("payment already recorded for another order")
)

// Repository persists orders with their items, shipping address and payment.
type Repository interface {
	// Create inserts a new order and assigns its id.
	Create(ctx context.Context, order *domain.Order) (*domain.Order, error)
	// Update writes the mutable lifecycle fields: statuses, gateway order id, milestone timestamps.
	Update(ctx context.Context, order *domain.Order) error
	// Lock loads the order and holds its row lock until the surrounding transaction ends.
	Lock(ctx context.Context, id int64) (*domain.Order, error)
	GetByID(ctx context.Context, id int64) (*domain.Order, error)
	GetByNumber(ctx context.Context, number string) (*domain.Order, error)
	GetByGatewayOrderID(ctx context.Context, gatewayOrderID string) (*domain.Order, error)
	ListByUser(ctx context.Context, userID int64) ([]*domain.Order, error)
	// ListStale returns ids of orders still awaiting payment that were created before cutoff,
	// oldest first.
	ListStale(ctx context.Context, cutoff time.Time, limit int) ([]int64, error)
	// SavePayment inserts or replaces the payment attached to the order.
	SavePayment(ctx context.Context, orderID int64, payment *domain.Payment) error
}
