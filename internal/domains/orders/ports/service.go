package ports

import (
	"context"

	"github.com/Apurer/medstore-checkout/internal/domains/orders/application/types"
	"github.com/Apurer/medstore-checkout/internal/domains/orders/domain"
)

// Service is the checkout and reconciliation surface used by transports and workers.
type Service interface {
	Initiate(ctx context.Context, input types.InitiateInput) (*types.InitiateResult, error)
	Verify(ctx context.Context, input types.VerifyInput) (*types.VerifyResult, error)
	Cancel(ctx context.Context, input types.CancelInput) (*types.CancelResult, error)
	// ExpireStale fails orders left unpaid past the grace window and returns how many it expired.
	ExpireStale(ctx context.Context) (int, error)
	// GetOrder resolves ref as a numeric id or an order number, scoped to the user.
	GetOrder(ctx context.Context, userID int64, ref string) (*domain.Order, error)
	ListOrders(ctx context.Context, userID int64) ([]*domain.Order, error)
	AdvanceDelivery(ctx context.Context, ref string, status domain.DeliveryStatus) (*domain.Order, error)
}
