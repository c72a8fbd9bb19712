package domain

import (
	"errors"

	"github.com/shopspring/decimal"
)

var (
	ErrEmptyCart       = errors.New("cart is empty")
	ErrInvalidDiscount = errors.New("discount percent must be between 0 and 100")
	ErrNegativePrice   = errors.New("unit price must not be negative")
)

var hundred = decimal.NewFromInt(100)

// DeliveryPolicy charges a flat fee below a free-delivery threshold.
type DeliveryPolicy struct {
	FreeDeliveryThreshold decimal.Decimal
	Charge                decimal.Decimal
}

// DefaultDeliveryPolicy is 100.00 delivery under a 500.00 net amount.
func DefaultDeliveryPolicy() DeliveryPolicy {
	return DeliveryPolicy{
		FreeDeliveryThreshold: decimal.NewFromInt(500),
		Charge:                decimal.NewFromInt(100),
	}
}

// ChargeFor returns the delivery fee owed on a net amount.
func (p DeliveryPolicy) ChargeFor(net decimal.Decimal) decimal.Decimal {
	if net.LessThan(p.FreeDeliveryThreshold) {
		return p.Charge.Round(2)
	}
	return decimal.Zero
}

// PricingLine is a cart line joined with the product's current price.
type PricingLine struct {
	CartItemID      int64
	ProductID       int64
	ProductName     string
	CategoryName    string
	UnitPrice       decimal.Decimal
	DiscountPercent *decimal.Decimal
	Quantity        int64
}

// PricedLine is a PricingLine with its computed totals.
type PricedLine struct {
	PricingLine
	LineGross decimal.Decimal
	LineNet   decimal.Decimal
}

// Snapshot is the priced view of a set of cart lines.
type Snapshot struct {
	Lines          []PricedLine
	Gross          decimal.Decimal
	Net            decimal.Decimal
	Discount       decimal.Decimal
	DeliveryCharge decimal.Decimal
	Payable        decimal.Decimal
	TotalQuantity  int64
}

// CartItemIDs lists the cart lines the snapshot was built from, skipping unsaved lines.
func (s Snapshot) CartItemIDs() []int64 {
	ids := make([]int64, 0, len(s.Lines))
	for _, l := range s.Lines {
		if l.CartItemID > 0 {
			ids = append(ids, l.CartItemID)
		}
	}
	return ids
}

// BuildSnapshot prices lines. Each line is rounded half-up to 2 places before summation, so the
// amount charged is always the amount displayed.
func BuildSnapshot(lines []PricingLine, policy DeliveryPolicy) (Snapshot, error) {
	if len(lines) == 0 {
		return Snapshot{}, ErrEmptyCart
	}
	snap := Snapshot{
		Lines: make([]PricedLine, 0, len(lines)),
		Gross: decimal.Zero,
		Net:   decimal.Zero,
	}
	for _, line := range lines {
		if line.Quantity < 1 {
			return Snapshot{}, ErrInvalidQuantity
		}
		if line.UnitPrice.IsNegative() {
			return Snapshot{}, ErrNegativePrice
		}
		factor := decimal.NewFromInt(1)
		if line.DiscountPercent != nil {
			d := *line.DiscountPercent
			if d.IsNegative() || d.GreaterThan(hundred) {
				return Snapshot{}, ErrInvalidDiscount
			}
			factor = factor.Sub(d.Div(hundred))
		}
		qty := decimal.NewFromInt(line.Quantity)
		lineGross := line.UnitPrice.Mul(qty)
		lineNet := line.UnitPrice.Mul(factor).Mul(qty).Round(2)
		snap.Lines = append(snap.Lines, PricedLine{PricingLine: line, LineGross: lineGross, LineNet: lineNet})
		snap.Gross = snap.Gross.Add(lineGross)
		snap.Net = snap.Net.Add(lineNet)
		snap.TotalQuantity += line.Quantity
	}
	snap.Discount = snap.Gross.Sub(snap.Net)
	snap.DeliveryCharge = policy.ChargeFor(snap.Net)
	snap.Payable = snap.Net.Add(snap.DeliveryCharge)
	return snap, nil
}

// MinorUnits converts a 2-place amount into integer minor currency units (paise, cents).
func MinorUnits(amount decimal.Decimal) int64 {
	return amount.Shift(2).Round(0).IntPart()
}
