package medstoreserver

import (
	"time"

	cartdomain "github.com/Apurer/medstore-checkout/internal/domains/cart/domain"
)

// AddCartItem adds a product to the caller's cart.
type AddCartItem struct {
	ProductID int64 `json:"productId" binding:"required"`
	Quantity  int64 `json:"quantity" binding:"required"`
}

// UpdateCartItem replaces a line's quantity.
type UpdateCartItem struct {
	Quantity int64 `json:"quantity" binding:"required"`
}

type CartItem struct {
	ID        int64     `json:"id"`
	ProductID int64     `json:"productId"`
	Quantity  int64     `json:"quantity"`
	CreatedAt time.Time `json:"createdAt"`
}

type CartLine struct {
	CartItemID      int64   `json:"cartItemId"`
	ProductID       int64   `json:"productId"`
	ProductName     string  `json:"productName"`
	CategoryName    string  `json:"categoryName,omitempty"`
	Quantity        int64   `json:"quantity"`
	UnitPrice       string  `json:"unitPrice"`
	DiscountPercent *string `json:"discountPercent,omitempty"`
	LineGross       string  `json:"lineGross"`
	LineNet         string  `json:"lineNet"`
}

// CartSnapshot is the priced cart, the same numbers a checkout would charge.
type CartSnapshot struct {
	Lines          []CartLine `json:"lines"`
	Gross          string     `json:"gross"`
	Discount       string     `json:"discount"`
	Net            string     `json:"net"`
	DeliveryCharge string     `json:"deliveryCharge"`
	Payable        string     `json:"payable"`
	PayableMinor   int64      `json:"payableMinor"`
	TotalQuantity  int64      `json:"totalQuantity"`
}

func fromLineItem(item *cartdomain.LineItem) CartItem {
	return CartItem{ID: item.ID, ProductID: item.ProductID, Quantity: item.Quantity, CreatedAt: item.CreatedAt}
}

func fromSnapshot(s cartdomain.Snapshot) CartSnapshot {
	out := CartSnapshot{
		Lines:          make([]CartLine, 0, len(s.Lines)),
		Gross:          s.Gross.StringFixed(2),
		Discount:       s.Discount.StringFixed(2),
		Net:            s.Net.StringFixed(2),
		DeliveryCharge: s.DeliveryCharge.StringFixed(2),
		Payable:        s.Payable.StringFixed(2),
		PayableMinor:   cartdomain.MinorUnits(s.Payable),
		TotalQuantity:  s.TotalQuantity,
	}
	for _, l := range s.Lines {
		line := CartLine{
			CartItemID:   l.CartItemID,
			ProductID:    l.ProductID,
			ProductName:  l.ProductName,
			CategoryName: l.CategoryName,
			Quantity:     l.Quantity,
			UnitPrice:    l.UnitPrice.StringFixed(2),
			LineGross:    l.LineGross.StringFixed(2),
			LineNet:      l.LineNet.StringFixed(2),
		}
		if l.DiscountPercent != nil {
			d := l.DiscountPercent.StringFixed(2)
			line.DiscountPercent = &d
		}
		out.Lines = append(out.Lines, line)
	}
	return out
}

func emptySnapshot() CartSnapshot {
	return CartSnapshot{
		Lines: []CartLine{}, Gross: "0.00", Discount: "0.00", Net: "0.00", DeliveryCharge: "0.00", Payable: "0.00",
	}
}
