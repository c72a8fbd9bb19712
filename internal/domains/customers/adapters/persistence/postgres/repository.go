package postgres

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Apurer/medstore-checkout/internal/domains/customers/domain"
	"github.com/Apurer/medstore-checkout/internal/domains/customers/ports"
)

var _ ports.Repository = (*Repository)(nil)

// Repository persists customer profiles using GORM.
type Repository struct {
	db *gorm.DB
}

// NewRepository wires a GORM-backed repository. Caller manages DB lifecycle and schema.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

type customerRecord struct {
	ID        int64     `gorm:"primaryKey;column:id;autoIncrement:false"`
	FirstName string    `gorm:"column:first_name;size:100"`
	LastName  string    `gorm:"column:last_name;size:100"`
	Email     string    `gorm:"column:email;size:255"`
	Phone     string    `gorm:"column:phone;size:20"`
	Address   string    `gorm:"column:address;type:text"`
	City      string    `gorm:"column:city;size:100"`
	State     string    `gorm:"column:state;size:100"`
	Pincode   string    `gorm:"column:pincode;size:6"`
	CreatedAt time.Time `gorm:"column:created_at"`
	UpdatedAt time.Time `gorm:"column:updated_at"`
}

func (customerRecord) TableName() string { return "customers" }

// Models lists the tables this adapter owns, for schema migration.
func Models() []any {
	return []any{&customerRecord{}}
}

// Save inserts or updates a customer keyed by id.
func (r *Repository) Save(ctx context.Context, customer *domain.Customer) (*domain.Customer, error) {
	if err := r.ensureDB(); err != nil {
		return nil, err
	}
	if customer == nil {
		return nil, errors.New("customer is nil")
	}
	if err := customer.Validate(); err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	record := toRecord(customer)
	record.CreatedAt = now
	record.UpdatedAt = now
	if err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns([]string{"first_name", "last_name", "email", "phone", "address", "city", "state", "pincode", "updated_at"}),
		}).
		Create(&record).Error; err != nil {
		return nil, err
	}
	return r.Get(ctx, record.ID)
}

func (r *Repository) Get(ctx context.Context, id int64) (*domain.Customer, error) {
	if err := r.ensureDB(); err != nil {
		return nil, err
	}
	var record customerRecord
	if err := r.db.WithContext(ctx).First(&record, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ports.ErrNotFound
		}
		return nil, err
	}
	return record.toDomain(), nil
}

func (r *Repository) ensureDB() error {
	if r == nil || r.db == nil {
		return errors.New("customer repository not configured")
	}
	return nil
}

func toRecord(c *domain.Customer) customerRecord {
	return customerRecord{
		ID:        c.ID,
		FirstName: c.FirstName,
		LastName:  c.LastName,
		Email:     c.Email,
		Phone:     c.Phone,
		Address:   c.Address,
		City:      c.City,
		State:     c.State,
		Pincode:   c.Pincode,
	}
}

func (r customerRecord) toDomain() *domain.Customer {
	return &domain.Customer{
		ID:        r.ID,
		FirstName: r.FirstName,
		LastName:  r.LastName,
		Email:     r.Email,
		Phone:     r.Phone,
		Address:   r.Address,
		City:      r.City,
		State:     r.State,
		Pincode:   r.Pincode,
		UpdatedAt: r.UpdatedAt,
	}
}
