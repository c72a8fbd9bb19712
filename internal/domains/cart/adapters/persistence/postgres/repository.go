package postgres

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Apurer/medstore-checkout/internal/domains/cart/domain"
	"github.com/Apurer/medstore-checkout/internal/domains/cart/ports"
)

var _ ports.Repository = (*Repository)(nil)

// Repository persists cart lines with GORM.
type Repository struct {
	db *gorm.DB
}

// NewRepository wires a GORM-backed cart repository. Caller manages DB lifecycle and schema.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// cartItemRecord maps a cart line. One line per (user, product).
type cartItemRecord struct {
	ID        int64     `gorm:"primaryKey;column:id;autoIncrement"`
	UserID    int64     `gorm:"column:user_id;not null;uniqueIndex:idx_cart_items_user_product"`
	ProductID int64     `gorm:"column:product_id;not null;uniqueIndex:idx_cart_items_user_product"`
	Quantity  int64     `gorm:"column:quantity;not null"`
	CreatedAt time.Time `gorm:"column:created_at"`
	UpdatedAt time.Time `gorm:"column:updated_at"`
}

func (cartItemRecord) TableName() string { return "cart_items" }

// Models lists the tables this adapter owns, for schema migration.
func Models() []any {
	return []any{&cartItemRecord{}}
}

// Add inserts the line or bumps the quantity of the existing line for the same product.
func (r *Repository) Add(ctx context.Context, item *domain.LineItem) (*domain.LineItem, error) {
	if err := r.ensureDB(); err != nil {
		return nil, err
	}
	if item == nil {
		return nil, errors.New("cart item is nil")
	}
	if err := item.Validate(); err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	record := cartItemRecord{
		UserID:    item.UserID,
		ProductID: item.ProductID,
		Quantity:  item.Quantity,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "user_id"}, {Name: "product_id"}},
			DoUpdates: clause.Assignments(map[string]any{
				"quantity":   gorm.Expr("cart_items.quantity + ?", item.Quantity),
				"updated_at": now,
			}),
		}).Create(&record).Error; err != nil {
		return nil, err
	}
	var stored cartItemRecord
	if err := r.db.WithContext(ctx).
		First(&stored, "user_id = ? AND product_id = ?", item.UserID, item.ProductID).Error; err != nil {
		return nil, err
	}
	return stored.toDomain(), nil
}

func (r *Repository) Get(ctx context.Context, userID, id int64) (*domain.LineItem, error) {
	if err := r.ensureDB(); err != nil {
		return nil, err
	}
	var record cartItemRecord
	if err := r.db.WithContext(ctx).First(&record, "id = ? AND user_id = ?", id, userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ports.ErrNotFound
		}
		return nil, err
	}
	return record.toDomain(), nil
}

func (r *Repository) ListByUser(ctx context.Context, userID int64) ([]*domain.LineItem, error) {
	if err := r.ensureDB(); err != nil {
		return nil, err
	}
	var records []cartItemRecord
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).Order("id").Find(&records).Error; err != nil {
		return nil, err
	}
	items := make([]*domain.LineItem, 0, len(records))
	for i := range records {
		items = append(items, records[i].toDomain())
	}
	return items, nil
}

func (r *Repository) UpdateQuantity(ctx context.Context, userID, id, quantity int64) (*domain.LineItem, error) {
	if err := r.ensureDB(); err != nil {
		return nil, err
	}
	if quantity < 1 {
		return nil, domain.ErrInvalidQuantity
	}
	result := r.db.WithContext(ctx).Model(&cartItemRecord{}).
		Where("id = ? AND user_id = ?", id, userID).
		Updates(map[string]any{"quantity": quantity, "updated_at": time.Now().UTC()})
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		return nil, ports.ErrNotFound
	}
	return r.Get(ctx, userID, id)
}

func (r *Repository) Delete(ctx context.Context, userID, id int64) error {
	if err := r.ensureDB(); err != nil {
		return err
	}
	result := r.db.WithContext(ctx).Where("user_id = ?", userID).Delete(&cartItemRecord{}, id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ports.ErrNotFound
	}
	return nil
}

func (r *Repository) DeleteByIDs(ctx context.Context, ids []int64) error {
	if err := r.ensureDB(); err != nil {
		return err
	}
	if len(ids) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Where("id IN ?", ids).Delete(&cartItemRecord{}).Error
}

func (r *Repository) Clear(ctx context.Context, userID int64) error {
	if err := r.ensureDB(); err != nil {
		return err
	}
	return r.db.WithContext(ctx).Where("user_id = ?", userID).Delete(&cartItemRecord{}).Error
}

func (r *Repository) ensureDB() error {
	if r == nil || r.db == nil {
		return errors.New("cart repository not configured")
	}
	return nil
}

func (r cartItemRecord) toDomain() *domain.LineItem {
	return &domain.LineItem{
		ID:        r.ID,
		UserID:    r.UserID,
		ProductID: r.ProductID,
		Quantity:  r.Quantity,
		CreatedAt: r.CreatedAt,
	}
}
