package memory

import (
	"context"
	"errors"
	"sync"

	cartmemory "github.com/Apurer/medstore-checkout/internal/domains/cart/adapters/memory"
	cartdomain "github.com/Apurer/medstore-checkout/internal/domains/cart/domain"
	cartports "github.com/Apurer/medstore-checkout/internal/domains/cart/ports"
	inventorymemory "github.com/Apurer/medstore-checkout/internal/domains/inventory/adapters/memory"
	inventorydomain "github.com/Apurer/medstore-checkout/internal/domains/inventory/domain"
	inventoryports "github.com/Apurer/medstore-checkout/internal/domains/inventory/ports"
	"github.com/Apurer/medstore-checkout/internal/domains/orders/ports"
)

var _ ports.UnitOfWork = (*UnitOfWork)(nil)

// UnitOfWork serializes transactions behind one mutex. Stock, cart, and outbox writes made through
// the transaction are journaled and undone in reverse order when the work fails, so writes other
// callers make to the same stores in the meantime survive a rollback. Orders and idempotency keys
// are only written through the unit of work and roll back to a checkpoint.
type UnitOfWork struct {
	mu          sync.Mutex
	orders      *Repository
	inventory   *inventorymemory.Ledger
	carts       *cartmemory.Repository
	outbox      *Outbox
	idempotency *IdempotencyStore
}

func NewUnitOfWork(orders *Repository, inventory *inventorymemory.Ledger, carts *cartmemory.Repository, outbox *Outbox, idempotency *IdempotencyStore) *UnitOfWork {
	return &UnitOfWork{
		orders:      orders,
		inventory:   inventory,
		carts:       carts,
		outbox:      outbox,
		idempotency: idempotency,
	}
}

func (u *UnitOfWork) Do(ctx context.Context, fn func(ctx context.Context, tx ports.Tx) error) (err error) {
	u.mu.Lock()
	defer u.mu.Unlock()

	j := &journal{}
	t := &tx{
		orders:      u.orders,
		inventory:   &txLedger{Ledger: u.inventory, j: j},
		carts:       &txCarts{Repository: u.carts, j: j},
		outbox:      &txOutbox{inner: u.outbox, j: j},
		idempotency: u.idempotency,
	}
	j.record(u.orders.Checkpoint())
	j.record(u.idempotency.Checkpoint())
	defer func() {
		if r := recover(); r != nil {
			j.rollback()
			panic(r)
		}
		if err != nil {
			j.rollback()
		}
	}()
	if err := ctx.Err(); err != nil {
		return err
	}
	return fn(ctx, t)
}

type tx struct {
	orders      *Repository
	inventory   *txLedger
	carts       *txCarts
	outbox      *txOutbox
	idempotency *IdempotencyStore
}

func (t *tx) Orders() ports.Repository            { return t.orders }
func (t *tx) Inventory() inventoryports.Ledger    { return t.inventory }
func (t *tx) Carts() cartports.Repository         { return t.carts }
func (t *tx) Outbox() ports.Outbox                { return t.outbox }
func (t *tx) Idempotency() ports.IdempotencyStore { return t.idempotency }

type journal struct {
	undo []func()
}

func (j *journal) record(undo func()) {
	j.undo = append(j.undo, undo)
}

func (j *journal) rollback() {
	for i := len(j.undo) - 1; i >= 0; i-- {
		j.undo[i]()
	}
	j.undo = nil
}

// txLedger moves stock by deltas, so its undo entries commute with restocks made outside.
type txLedger struct {
	*inventorymemory.Ledger
	j *journal
}

func (l *txLedger) Save(ctx context.Context, product *inventorydomain.Product) (*inventorydomain.Product, error) {
	prior, err := l.Ledger.Get(ctx, product.ID)
	if err != nil && !errors.Is(err, inventoryports.ErrNotFound) {
		return nil, err
	}
	saved, err := l.Ledger.Save(ctx, product)
	if err != nil {
		return nil, err
	}
	l.j.record(func() {
		if prior == nil {
			l.Ledger.Delete(context.Background(), product.ID)
			return
		}
		_, _ = l.Ledger.Save(context.Background(), prior)
	})
	return saved, nil
}

func (l *txLedger) Reserve(ctx context.Context, reqs []inventorydomain.StockRequest) error {
	if err := l.Ledger.Reserve(ctx, reqs); err != nil {
		return err
	}
	l.j.record(func() { _ = l.Ledger.Restore(context.Background(), reqs) })
	return nil
}

func (l *txLedger) Restore(ctx context.Context, reqs []inventorydomain.StockRequest) error {
	if err := l.Ledger.Restore(ctx, reqs); err != nil {
		return err
	}
	l.j.record(func() { _ = l.Ledger.Withdraw(context.Background(), reqs) })
	return nil
}

type txCarts struct {
	*cartmemory.Repository
	j *journal
}

func (c *txCarts) Add(ctx context.Context, item *cartdomain.LineItem) (*cartdomain.LineItem, error) {
	existing, err := c.Repository.ListByUser(ctx, item.UserID)
	if err != nil {
		return nil, err
	}
	merged := false
	for _, line := range existing {
		if line.ProductID == item.ProductID {
			merged = true
		}
	}
	added, err := c.Repository.Add(ctx, item)
	if err != nil {
		return nil, err
	}
	if !merged {
		c.j.record(func() { c.Repository.Take([]int64{added.ID}) })
		return added, nil
	}
	c.j.record(func() {
		current, err := c.Repository.Get(context.Background(), added.UserID, added.ID)
		if err != nil {
			return
		}
		if left := current.Quantity - item.Quantity; left >= 1 {
			_, _ = c.Repository.UpdateQuantity(context.Background(), added.UserID, added.ID, left)
			return
		}
		c.Repository.Take([]int64{added.ID})
	})
	return added, nil
}

func (c *txCarts) UpdateQuantity(ctx context.Context, userID, id, quantity int64) (*cartdomain.LineItem, error) {
	prior, err := c.Repository.Get(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	updated, err := c.Repository.UpdateQuantity(ctx, userID, id, quantity)
	if err != nil {
		return nil, err
	}
	c.j.record(func() {
		_, _ = c.Repository.UpdateQuantity(context.Background(), userID, id, prior.Quantity)
	})
	return updated, nil
}

func (c *txCarts) Delete(ctx context.Context, userID, id int64) error {
	if _, err := c.Repository.Get(ctx, userID, id); err != nil {
		return err
	}
	removed := c.Repository.Take([]int64{id})
	c.j.record(func() { c.Repository.Put(removed...) })
	return nil
}

func (c *txCarts) DeleteByIDs(_ context.Context, ids []int64) error {
	removed := c.Repository.Take(ids)
	c.j.record(func() { c.Repository.Put(removed...) })
	return nil
}

func (c *txCarts) Clear(ctx context.Context, userID int64) error {
	lines, err := c.Repository.ListByUser(ctx, userID)
	if err != nil {
		return err
	}
	ids := make([]int64, 0, len(lines))
	for _, line := range lines {
		ids = append(ids, line.ID)
	}
	removed := c.Repository.Take(ids)
	c.j.record(func() { c.Repository.Put(removed...) })
	return nil
}

// txOutbox only appends; the relay marks messages published outside any transaction.
type txOutbox struct {
	inner *Outbox
	j     *journal
}

func (o *txOutbox) Append(ctx context.Context, msgs ...ports.OutboxMessage) error {
	if err := o.inner.Append(ctx, msgs...); err != nil {
		return err
	}
	ids := make([]string, 0, len(msgs))
	for _, m := range msgs {
		ids = append(ids, m.ID)
	}
	o.j.record(func() { o.inner.Discard(ids) })
	return nil
}
