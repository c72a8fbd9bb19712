package ports

import (
	"context"

	cartports "github.com/Apurer/medstore-checkout/internal/domains/cart/ports"
	inventoryports "github.com/Apurer/medstore-checkout/internal/domains/inventory/ports"
)

// Tx exposes every store a reconciliation step touches, bound to one transaction.
type Tx interface {
	Orders() Repository
	Inventory() inventoryports.Ledger
	Carts() cartports.Repository
	Outbox() Outbox
	Idempotency() IdempotencyStore
}

// UnitOfWork runs fn in a transaction. A non-nil error from fn rolls everything back.
type UnitOfWork interface {
	Do(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
}
