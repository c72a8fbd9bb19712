package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Apurer/medstore-checkout/internal/domains/inventory/domain"
	"github.com/Apurer/medstore-checkout/internal/domains/inventory/ports"
)

var _ ports.Ledger = (*Ledger)(nil)

// Ledger persists product stock with GORM. Reserve and Restore lock the touched rows with
// SELECT ... FOR UPDATE; bound to an outer transaction they run inside a savepoint.
type Ledger struct {
	db  *gorm.DB
	now func() time.Time
}

// NewLedger wires a GORM-backed ledger. Caller manages DB lifecycle and schema.
func NewLedger(db *gorm.DB) *Ledger {
	return &Ledger{db: db, now: time.Now}
}

// productRecord maps the product aggregate to the products table.
type productRecord struct {
	ID              int64               `gorm:"primaryKey;column:id;autoIncrement:false"`
	Name            string              `gorm:"column:name;size:255;not null"`
	CategoryName    string              `gorm:"column:category_name;size:255"`
	Price           decimal.Decimal     `gorm:"column:price;type:numeric(12,2);not null"`
	DiscountPercent decimal.NullDecimal `gorm:"column:discount_percent;type:numeric(5,2)"`
	Stock           int64               `gorm:"column:stock;not null;check:chk_products_stock_non_negative,stock >= 0"`
	CreatedAt       time.Time           `gorm:"column:created_at"`
	UpdatedAt       time.Time           `gorm:"column:updated_at"`
}

func (productRecord) TableName() string { return "products" }

// Models lists the tables this adapter owns, for schema migration.
func Models() []any {
	return []any{&productRecord{}}
}

// Save inserts or replaces a product.
func (l *Ledger) Save(ctx context.Context, product *domain.Product) (*domain.Product, error) {
	if err := l.ensureDB(); err != nil {
		return nil, err
	}
	if product == nil {
		return nil, errors.New("product is nil")
	}
	record := toRecord(product)
	now := l.now().UTC()
	record.CreatedAt = now
	record.UpdatedAt = now
	if err := l.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "id"}},
			DoUpdates: clause.Assignments(map[string]any{
				"name":             record.Name,
				"category_name":    record.CategoryName,
				"price":            record.Price,
				"discount_percent": record.DiscountPercent,
				"stock":            record.Stock,
				"updated_at":       now,
			}),
		}).Create(&record).Error; err != nil {
		return nil, err
	}
	return l.Get(ctx, record.ID)
}

// Get fetches a product by id.
func (l *Ledger) Get(ctx context.Context, id int64) (*domain.Product, error) {
	if err := l.ensureDB(); err != nil {
		return nil, err
	}
	var record productRecord
	if err := l.db.WithContext(ctx).First(&record, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ports.ErrNotFound
		}
		return nil, err
	}
	return record.toDomain(), nil
}

// GetMany fetches every requested product or fails with ErrNotFound.
func (l *Ledger) GetMany(ctx context.Context, ids []int64) (map[int64]*domain.Product, error) {
	if err := l.ensureDB(); err != nil {
		return nil, err
	}
	unique := uniqueIDs(ids)
	var records []productRecord
	if err := l.db.WithContext(ctx).Where("id IN ?", unique).Find(&records).Error; err != nil {
		return nil, err
	}
	if len(records) != len(unique) {
		return nil, ports.ErrNotFound
	}
	out := make(map[int64]*domain.Product, len(records))
	for i := range records {
		out[records[i].ID] = records[i].toDomain()
	}
	return out, nil
}

// List returns all products ordered by id.
func (l *Ledger) List(ctx context.Context) ([]*domain.Product, error) {
	if err := l.ensureDB(); err != nil {
		return nil, err
	}
	var records []productRecord
	if err := l.db.WithContext(ctx).Order("id").Find(&records).Error; err != nil {
		return nil, err
	}
	products := make([]*domain.Product, 0, len(records))
	for i := range records {
		products = append(products, records[i].toDomain())
	}
	return products, nil
}

// Reserve locks the touched rows in id order, checks every request and decrements stock.
func (l *Ledger) Reserve(ctx context.Context, reqs []domain.StockRequest) error {
	if err := l.ensureDB(); err != nil {
		return err
	}
	merged, err := domain.MergeRequests(reqs)
	if err != nil {
		return err
	}
	return l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		locked, err := lockProducts(tx, merged)
		if err != nil {
			return err
		}
		if err := domain.CheckAvailability(locked, merged); err != nil {
			return err
		}
		now := l.now().UTC()
		for _, r := range merged {
			result := tx.Model(&productRecord{}).
				Where("id = ? AND stock >= ?", r.ProductID, r.Quantity).
				Updates(map[string]any{
					"stock":      gorm.Expr("stock - ?", r.Quantity),
					"updated_at": now,
				})
			if result.Error != nil {
				return result.Error
			}
			if result.RowsAffected != 1 {
				p := locked[r.ProductID]
				return &domain.InsufficientStockError{Shortages: []domain.Shortage{{
					ProductID: p.ID, Name: p.Name, Requested: r.Quantity, Available: p.Stock,
				}}}
			}
		}
		return nil
	})
}

// Restore locks the touched rows and increments stock.
func (l *Ledger) Restore(ctx context.Context, reqs []domain.StockRequest) error {
	if err := l.ensureDB(); err != nil {
		return err
	}
	merged, err := domain.MergeRequests(reqs)
	if err != nil {
		return err
	}
	return l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := lockProducts(tx, merged); err != nil {
			return err
		}
		now := l.now().UTC()
		for _, r := range merged {
			if err := tx.Model(&productRecord{}).
				Where("id = ?", r.ProductID).
				Updates(map[string]any{
					"stock":      gorm.Expr("stock + ?", r.Quantity),
					"updated_at": now,
				}).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

func lockProducts(tx *gorm.DB, reqs []domain.StockRequest) (map[int64]*domain.Product, error) {
	ids := make([]int64, 0, len(reqs))
	for _, r := range reqs {
		ids = append(ids, r.ProductID)
	}
	var records []productRecord
	if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id IN ?", ids).
		Order("id").
		Find(&records).Error; err != nil {
		return nil, err
	}
	if len(records) != len(ids) {
		return nil, ports.ErrNotFound
	}
	locked := make(map[int64]*domain.Product, len(records))
	for i := range records {
		locked[records[i].ID] = records[i].toDomain()
	}
	return locked, nil
}

func (l *Ledger) ensureDB() error {
	if l == nil || l.db == nil {
		return errors.New("inventory ledger not configured")
	}
	return nil
}

func uniqueIDs(ids []int64) []int64 {
	seen := make(map[int64]struct{}, len(ids))
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

func toRecord(p *domain.Product) productRecord {
	rec := productRecord{
		ID:           p.ID,
		Name:         p.Name,
		CategoryName: p.CategoryName,
		Price:        p.Price,
		Stock:        p.Stock,
	}
	if p.DiscountPercent != nil {
		rec.DiscountPercent = decimal.NewNullDecimal(*p.DiscountPercent)
	}
	return rec
}

func (r productRecord) toDomain() *domain.Product {
	p := &domain.Product{
		ID:           r.ID,
		Name:         r.Name,
		CategoryName: r.CategoryName,
		Price:        r.Price,
		Stock:        r.Stock,
		UpdatedAt:    r.UpdatedAt,
	}
	if r.DiscountPercent.Valid {
		d := r.DiscountPercent.Decimal
		p.DiscountPercent = &d
	}
	return p
}
