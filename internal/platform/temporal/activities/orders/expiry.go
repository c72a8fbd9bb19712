package orders

import (
	"context"
	"errors"

	"go.temporal.io/sdk/activity"
)

// ExpireStaleOrdersActivityName fails orders left unpaid past the grace window.
const ExpireStaleOrdersActivityName = "orders.activities.ExpireStaleOrders"

// Expirer is the slice of the orders service the sweep needs.
type Expirer interface {
	ExpireStale(ctx context.Context) (int, error)
}

// ExpiryResult reports one sweep.
type ExpiryResult struct {
	Expired int
}

// Activities groups activities that operate on the orders bounded context.
type Activities struct {
	expirer Expirer
}

func NewActivities(expirer Expirer) *Activities {
	return &Activities{expirer: expirer}
}

// ExpireStaleOrders runs one sweep. Each order is expired in its own transaction, so a retry after a
// partial failure only picks up what is still open.
func (a *Activities) ExpireStaleOrders(ctx context.Context) (*ExpiryResult, error) {
	logger := activity.GetLogger(ctx)
	if a == nil || a.expirer == nil {
		logger.Error("order expiry activity not initialized")
		return nil, errors.New("order expiry activity not initialized")
	}
	logger.Info("ExpireStaleOrders activity started")
	n, err := a.expirer.ExpireStale(ctx)
	if err != nil {
		logger.Error("ExpireStaleOrders activity failed", "expired", n, "error", err)
		return nil, err
	}
	logger.Info("ExpireStaleOrders activity completed", "expired", n)
	return &ExpiryResult{Expired: n}, nil
}
