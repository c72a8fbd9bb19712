package domain

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

var (
	ErrEmptyName         = errors.New("product name is required")
	ErrNegativePrice     = errors.New("product price must not be negative")
	ErrInvalidDiscount   = errors.New("discount percent must be between 0 and 100")
	ErrNegativeStock     = errors.New("available stock must not be negative")
	ErrInvalidProductID  = errors.New("product id must be greater than zero")
	ErrInvalidQuantity   = errors.New("quantity must be greater than zero")
	ErrInsufficientStock = errors.New("insufficient stock")
)

var hundred = decimal.NewFromInt(100)

// Product is the stock-bearing catalog entry. Price is in major currency units.
type Product struct {
	ID              int64
	Name            string
	CategoryName    string
	Price           decimal.Decimal
	DiscountPercent *decimal.Decimal
	Stock           int64
	UpdatedAt       time.Time
}

// NewProduct validates and constructs a Product.
func NewProduct(id int64, name, category string, price decimal.Decimal, discount *decimal.Decimal, stock int64) (*Product, error) {
	p := &Product{
		ID:              id,
		Name:            strings.TrimSpace(name),
		CategoryName:    strings.TrimSpace(category),
		Price:           price.Round(2),
		DiscountPercent: discount,
		Stock:           stock,
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return p, nil
}

// Validate enforces product invariants.
func (p *Product) Validate() error {
	if p.ID <= 0 {
		return ErrInvalidProductID
	}
	if p.Name == "" {
		return ErrEmptyName
	}
	if p.Price.IsNegative() {
		return ErrNegativePrice
	}
	if p.DiscountPercent != nil && (p.DiscountPercent.IsNegative() || p.DiscountPercent.GreaterThan(hundred)) {
		return ErrInvalidDiscount
	}
	if p.Stock < 0 {
		return ErrNegativeStock
	}
	return nil
}

// Take removes quantity units from stock. The caller must already hold the product lock.
func (p *Product) Take(quantity int64) error {
	if quantity <= 0 {
		return ErrInvalidQuantity
	}
	if quantity > p.Stock {
		return ErrInsufficientStock
	}
	p.Stock -= quantity
	return nil
}

// Put returns quantity units to stock.
func (p *Product) Put(quantity int64) error {
	if quantity <= 0 {
		return ErrInvalidQuantity
	}
	p.Stock += quantity
	return nil
}

// StockRequest asks the ledger to move quantity units of a product.
type StockRequest struct {
	ProductID int64
	Quantity  int64
}

// MergeRequests folds duplicate products together and orders the result by product id,
// which is also the order rows get locked in.
func MergeRequests(reqs []StockRequest) ([]StockRequest, error) {
	totals := make(map[int64]int64, len(reqs))
	for _, r := range reqs {
		if r.ProductID <= 0 {
			return nil, ErrInvalidProductID
		}
		if r.Quantity <= 0 {
			return nil, ErrInvalidQuantity
		}
		totals[r.ProductID] += r.Quantity
	}
	merged := make([]StockRequest, 0, len(totals))
	for id, qty := range totals {
		merged = append(merged, StockRequest{ProductID: id, Quantity: qty})
	}
	sort.Slice(merged, func(i, j int) bool { return merged[i].ProductID < merged[j].ProductID })
	return merged, nil
}

// Shortage describes one product that could not cover its request.
type Shortage struct {
	ProductID int64
	Name      string
	Requested int64
	Available int64
}

// InsufficientStockError lists every product that blocked a reservation.
type InsufficientStockError struct {
	Shortages []Shortage
}

func (e *InsufficientStockError) Error() string {
	names := e.ProductNames()
	return fmt.Sprintf("insufficient stock for %s", strings.Join(names, ", "))
}

// Is lets errors.Is match ErrInsufficientStock.
func (e *InsufficientStockError) Is(target error) bool {
	return target == ErrInsufficientStock
}

// ProductNames returns the names of the short products, falling back to ids.
func (e *InsufficientStockError) ProductNames() []string {
	names := make([]string, 0, len(e.Shortages))
	for _, s := range e.Shortages {
		if s.Name != "" {
			names = append(names, s.Name)
			continue
		}
		names = append(names, fmt.Sprintf("product %d", s.ProductID))
	}
	return names
}

// CheckAvailability reports every request the given products cannot cover. products must hold
// every requested id.
func CheckAvailability(products map[int64]*Product, reqs []StockRequest) error {
	var shortages []Shortage
	for _, r := range reqs {
		p := products[r.ProductID]
		if p.Stock < r.Quantity {
			shortages = append(shortages, Shortage{
				ProductID: p.ID,
				Name:      p.Name,
				Requested: r.Quantity,
				Available: p.Stock,
			})
		}
	}
	if len(shortages) > 0 {
		return &InsufficientStockError{Shortages: shortages}
	}
	return nil
}
