package postgres

import (
	"context"
	"errors"

	"gorm.io/gorm"

	cartpostgres "github.com/Apurer/medstore-checkout/internal/domains/cart/adapters/persistence/postgres"
	cartports "github.com/Apurer/medstore-checkout/internal/domains/cart/ports"
	inventorypostgres "github.com/Apurer/medstore-checkout/internal/domains/inventory/adapters/persistence/postgres"
	inventoryports "github.com/Apurer/medstore-checkout/internal/domains/inventory/ports"
	"github.com/Apurer/medstore-checkout/internal/domains/orders/ports"
)

var _ ports.UnitOfWork = (*UnitOfWork)(nil)

// UnitOfWork runs a reconciliation step in one database transaction. Stores handed to fn share
// the transaction; their own nested transactions become savepoints.
type UnitOfWork struct {
	db *gorm.DB
}

func NewUnitOfWork(db *gorm.DB) *UnitOfWork {
	return &UnitOfWork{db: db}
}

func (u *UnitOfWork) Do(ctx context.Context, fn func(ctx context.Context, tx ports.Tx) error) error {
	if u == nil || u.db == nil {
		return errors.New("postgres unit of work not configured")
	}
	return u.db.WithContext(ctx).Transaction(func(db *gorm.DB) error {
		return fn(ctx, &tx{db: db})
	})
}

type tx struct {
	db *gorm.DB
}

func (t *tx) Orders() ports.Repository            { return NewRepository(t.db) }
func (t *tx) Inventory() inventoryports.Ledger    { return inventorypostgres.NewLedger(t.db) }
func (t *tx) Carts() cartports.Repository         { return cartpostgres.NewRepository(t.db) }
func (t *tx) Outbox() ports.Outbox                { return NewOutbox(t.db) }
func (t *tx) Idempotency() ports.IdempotencyStore { return NewIdempotencyStore(t.db) }
