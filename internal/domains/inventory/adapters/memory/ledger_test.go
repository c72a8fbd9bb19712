package memory

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Apurer/medstore-checkout/internal/domains/inventory/domain"
	"github.com/Apurer/medstore-checkout/internal/domains/inventory/ports"
)

func seeded(t *testing.T, stocks map[int64]int64) *Ledger {
	t.Helper()
	l := NewLedger()
	for id, stock := range stocks {
		_, err := l.Save(context.Background(), &domain.Product{ID: id, Name: "p", Price: decimal.NewFromInt(10), Stock: stock})
		require.NoError(t, err)
	}
	return l
}

func TestLedger_ReserveIsAllOrNothing(t *testing.T) {
	l := seeded(t, map[int64]int64{1: 5, 2: 1})
	ctx := context.Background()

	err := l.Reserve(ctx, []domain.StockRequest{{ProductID: 1, Quantity: 2}, {ProductID: 2, Quantity: 2}})
	require.ErrorIs(t, err, domain.ErrInsufficientStock)
	p1, _ := l.Get(ctx, 1)
	p2, _ := l.Get(ctx, 2)
	assert.Equal(t, int64(5), p1.Stock)
	assert.Equal(t, int64(1), p2.Stock)

	require.ErrorIs(t, l.Reserve(ctx, []domain.StockRequest{{ProductID: 3, Quantity: 1}}), ports.ErrNotFound)

	require.NoError(t, l.Reserve(ctx, []domain.StockRequest{{ProductID: 1, Quantity: 2}, {ProductID: 1, Quantity: 3}, {ProductID: 2, Quantity: 1}}))
	p1, _ = l.Get(ctx, 1)
	assert.Zero(t, p1.Stock)

	require.NoError(t, l.Restore(ctx, []domain.StockRequest{{ProductID: 1, Quantity: 4}}))
	p1, _ = l.Get(ctx, 1)
	assert.Equal(t, int64(4), p1.Stock)
}

func TestLedger_ConcurrentReservesNeverOversell(t *testing.T) {
	l := seeded(t, map[int64]int64{1: 25})
	var wg sync.WaitGroup
	var ok atomic.Int64
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := l.Reserve(context.Background(), []domain.StockRequest{{ProductID: 1, Quantity: 1}}); err == nil {
				ok.Add(1)
			}
		}()
	}
	wg.Wait()
	p, err := l.Get(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, int64(25), ok.Load())
	assert.Zero(t, p.Stock)
}

func TestLedger_GetReturnsCopies(t *testing.T) {
	l := seeded(t, map[int64]int64{1: 3})
	p, err := l.Get(context.Background(), 1)
	require.NoError(t, err)
	p.Stock = 100
	again, err := l.Get(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, int64(3), again.Stock)
}

func TestLedger_WithdrawStopsAtZero(t *testing.T) {
	l := seeded(t, map[int64]int64{1: 3, 2: 1})
	ctx := context.Background()
	require.NoError(t, l.Withdraw(ctx, []domain.StockRequest{{ProductID: 1, Quantity: 2}, {ProductID: 2, Quantity: 4}}))
	p, err := l.Get(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(1), p.Stock)
	p, err = l.Get(ctx, 2)
	require.NoError(t, err)
	assert.Zero(t, p.Stock)

	l.Delete(ctx, 2)
	_, err = l.Get(ctx, 2)
	require.ErrorIs(t, err, ports.ErrNotFound)
}
