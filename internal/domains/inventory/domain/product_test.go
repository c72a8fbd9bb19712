package domain

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewProduct_Validation(t *testing.T) {
	over := decimal.NewFromInt(101)
	cases := map[string]struct {
		id       int64
		name     string
		price    decimal.Decimal
		discount *decimal.Decimal
		stock    int64
		want     error
	}{
		"bad id":         {0, "Mask", decimal.NewFromInt(5), nil, 1, ErrInvalidProductID},
		"blank name":     {1, "  ", decimal.NewFromInt(5), nil, 1, ErrEmptyName},
		"negative price": {1, "Mask", decimal.NewFromInt(-5), nil, 1, ErrNegativePrice},
		"discount > 100": {1, "Mask", decimal.NewFromInt(5), &over, 1, ErrInvalidDiscount},
		"negative stock": {1, "Mask", decimal.NewFromInt(5), nil, -1, ErrNegativeStock},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := NewProduct(tc.id, tc.name, "PPE", tc.price, tc.discount, tc.stock)
			require.ErrorIs(t, err, tc.want)
		})
	}

	p, err := NewProduct(1, " Mask ", "PPE", decimal.RequireFromString("4.999"), nil, 0)
	require.NoError(t, err)
	assert.Equal(t, "Mask", p.Name)
	assert.Equal(t, "5", p.Price.String())
}

func TestTakeAndPut(t *testing.T) {
	p := &Product{ID: 1, Name: "Mask", Stock: 3}
	require.ErrorIs(t, p.Take(4), ErrInsufficientStock)
	require.NoError(t, p.Take(3))
	assert.Zero(t, p.Stock)
	require.ErrorIs(t, p.Take(0), ErrInvalidQuantity)
	require.ErrorIs(t, p.Put(-1), ErrInvalidQuantity)
	require.NoError(t, p.Put(2))
	assert.Equal(t, int64(2), p.Stock)
}

func TestMergeRequests_FoldsAndSorts(t *testing.T) {
	merged, err := MergeRequests([]StockRequest{
		{ProductID: 9, Quantity: 1},
		{ProductID: 2, Quantity: 2},
		{ProductID: 9, Quantity: 3},
	})
	require.NoError(t, err)
	assert.Equal(t, []StockRequest{{ProductID: 2, Quantity: 2}, {ProductID: 9, Quantity: 4}}, merged)

	_, err = MergeRequests([]StockRequest{{ProductID: 1, Quantity: 0}})
	require.ErrorIs(t, err, ErrInvalidQuantity)
	_, err = MergeRequests([]StockRequest{{ProductID: 0, Quantity: 1}})
	require.ErrorIs(t, err, ErrInvalidProductID)
}

func TestCheckAvailability_NamesEveryShortProduct(t *testing.T) {
	products := map[int64]*Product{
		1: {ID: 1, Name: "Mask", Stock: 5},
		2: {ID: 2, Name: "Gloves", Stock: 1},
		3: {ID: 3, Stock: 0},
	}
	err := CheckAvailability(products, []StockRequest{
		{ProductID: 1, Quantity: 5},
		{ProductID: 2, Quantity: 2},
		{ProductID: 3, Quantity: 1},
	})
	require.ErrorIs(t, err, ErrInsufficientStock)
	var shortage *InsufficientStockError
	require.True(t, errors.As(err, &shortage))
	assert.Equal(t, []string{"Gloves", "product 3"}, shortage.ProductNames())
	assert.Equal(t, "insufficient stock for Gloves, product 3", err.Error())

	assert.NoError(t, CheckAvailability(products, []StockRequest{{ProductID: 1, Quantity: 5}}))
}
