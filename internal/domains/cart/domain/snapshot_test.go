package domain

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func decPtr(s string) *decimal.Decimal {
	d := dec(s)
	return &d
}

func TestBuildSnapshot_DiscountAboveThresholdShipsFree(t *testing.T) {
	snap, err := BuildSnapshot([]PricingLine{{
		CartItemID:      7,
		ProductID:       1,
		ProductName:     "Pulse oximeter",
		UnitPrice:       dec("1000.00"),
		DiscountPercent: decPtr("10"),
		Quantity:        1,
	}}, DefaultDeliveryPolicy())

	require.NoError(t, err)
	require.True(t, snap.Gross.Equal(dec("1000.00")))
	require.True(t, snap.Net.Equal(dec("900.00")))
	require.True(t, snap.Discount.Equal(dec("100.00")))
	require.True(t, snap.DeliveryCharge.IsZero())
	require.True(t, snap.Payable.Equal(dec("900.00")))
	require.Equal(t, int64(90000), MinorUnits(snap.Payable))
	require.Equal(t, []int64{7}, snap.CartItemIDs())
}

func TestBuildSnapshot_ChargesDeliveryBelowThreshold(t *testing.T) {
	snap, err := BuildSnapshot([]PricingLine{
		{ProductID: 1, UnitPrice: dec("120.50"), Quantity: 2},
		{ProductID: 2, UnitPrice: dec("99.99"), DiscountPercent: decPtr("5"), Quantity: 1},
	}, DefaultDeliveryPolicy())

	require.NoError(t, err)
	// 241.00 + round(94.9905) = 241.00 + 94.99
	require.True(t, snap.Net.Equal(dec("335.99")), snap.Net.String())
	require.True(t, snap.DeliveryCharge.Equal(dec("100.00")))
	require.True(t, snap.Payable.Equal(dec("435.99")))
	require.Equal(t, int64(3), snap.TotalQuantity)
	require.Empty(t, snap.CartItemIDs())
}

func TestBuildSnapshot_ThresholdComparesNet(t *testing.T) {
	// Gross crosses the threshold but net does not.
	snap, err := BuildSnapshot([]PricingLine{
		{ProductID: 1, UnitPrice: dec("520.00"), DiscountPercent: decPtr("10"), Quantity: 1},
	}, DefaultDeliveryPolicy())
	require.NoError(t, err)
	require.True(t, snap.Net.Equal(dec("468.00")))
	require.True(t, snap.DeliveryCharge.Equal(dec("100.00")))

	snap, err = BuildSnapshot([]PricingLine{
		{ProductID: 1, UnitPrice: dec("500.00"), Quantity: 1},
	}, DefaultDeliveryPolicy())
	require.NoError(t, err)
	require.True(t, snap.DeliveryCharge.IsZero())
}

func TestBuildSnapshot_RoundsEachLineHalfUp(t *testing.T) {
	snap, err := BuildSnapshot([]PricingLine{
		{ProductID: 1, UnitPrice: dec("10.05"), DiscountPercent: decPtr("50"), Quantity: 1},
		{ProductID: 2, UnitPrice: dec("10.05"), DiscountPercent: decPtr("50"), Quantity: 1},
	}, DeliveryPolicy{})
	require.NoError(t, err)
	require.True(t, snap.Lines[0].LineNet.Equal(dec("5.03")))
	require.True(t, snap.Net.Equal(dec("10.06")))
	require.True(t, snap.Net.Equal(snap.Lines[0].LineNet.Add(snap.Lines[1].LineNet)))
}

func TestBuildSnapshot_Rejects(t *testing.T) {
	_, err := BuildSnapshot(nil, DefaultDeliveryPolicy())
	require.ErrorIs(t, err, ErrEmptyCart)

	_, err = BuildSnapshot([]PricingLine{{ProductID: 1, UnitPrice: dec("1"), Quantity: 0}}, DefaultDeliveryPolicy())
	require.ErrorIs(t, err, ErrInvalidQuantity)

	_, err = BuildSnapshot([]PricingLine{{ProductID: 1, UnitPrice: dec("-1"), Quantity: 1}}, DefaultDeliveryPolicy())
	require.ErrorIs(t, err, ErrNegativePrice)

	_, err = BuildSnapshot([]PricingLine{{ProductID: 1, UnitPrice: dec("1"), DiscountPercent: decPtr("101"), Quantity: 1}}, DefaultDeliveryPolicy())
	require.ErrorIs(t, err, ErrInvalidDiscount)
}

func TestBuildSnapshot_PayableIsNetPlusDelivery(t *testing.T) {
	prices := []string{"0.01", "3.33", "19.99", "249.50", "499.99", "1200.00"}
	discounts := []*decimal.Decimal{nil, decPtr("0"), decPtr("12.5"), decPtr("33.33"), decPtr("100")}
	for _, price := range prices {
		for _, discount := range discounts {
			for qty := int64(1); qty <= 4; qty++ {
				snap, err := BuildSnapshot([]PricingLine{
					{ProductID: 1, UnitPrice: dec(price), DiscountPercent: discount, Quantity: qty},
					{ProductID: 2, UnitPrice: dec("7.77"), Quantity: 1},
				}, DefaultDeliveryPolicy())
				require.NoError(t, err)
				require.True(t, snap.Payable.Equal(snap.Net.Add(snap.DeliveryCharge)))
				require.True(t, snap.Discount.Equal(snap.Gross.Sub(snap.Net)))
				require.False(t, snap.Discount.IsNegative())
				require.True(t, snap.Payable.Equal(snap.Payable.Round(2)))
				if snap.Net.LessThan(dec("500")) {
					require.True(t, snap.DeliveryCharge.Equal(dec("100")))
				} else {
					require.True(t, snap.DeliveryCharge.IsZero())
				}
			}
		}
	}
}

func TestMinorUnits(t *testing.T) {
	require.Equal(t, int64(43599), MinorUnits(dec("435.99")))
	require.Equal(t, int64(100), MinorUnits(dec("1")))
	require.Equal(t, int64(0), MinorUnits(decimal.Zero))
}

func TestBuildSnapshot_GrossIsUnroundedSum(t *testing.T) {
	snap, err := BuildSnapshot([]PricingLine{
		{ProductID: 1, UnitPrice: dec("0.335"), Quantity: 3},
		{ProductID: 2, UnitPrice: dec("0.335"), DiscountPercent: decPtr("0"), Quantity: 1},
	}, DefaultDeliveryPolicy())

	require.NoError(t, err)
	require.True(t, snap.Gross.Equal(dec("1.34")), snap.Gross.String())
	require.True(t, snap.Lines[0].LineGross.Equal(dec("1.005")))
}
