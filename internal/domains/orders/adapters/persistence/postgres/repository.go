package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Apurer/medstore-checkout/internal/domains/orders/domain"
	"github.com/Apurer/medstore-checkout/internal/domains/orders/ports"
)

var _ ports.Repository = (*Repository)(nil)

// Repository persists orders in PostgreSQL using GORM. Items and the shipping address are written
// once at creation; later writes only touch lifecycle columns and the payment row.
type Repository struct {
	db *gorm.DB
}

// NewRepository wires a PostgreSQL-backed repository. Caller manages DB lifecycle and schema.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

type orderRecord struct {
	ID               int64           `gorm:"primaryKey;column:id;autoIncrement"`
	UserID           int64           `gorm:"column:user_id;not null;index"`
	Number           string          `gorm:"column:number;size:64;not null;uniqueIndex"`
	Receipt          string          `gorm:"column:receipt;size:64;not null"`
	GatewayOrderID   *string         `gorm:"column:gateway_order_id;size:64;uniqueIndex"`
	CartItemIDs      int64Array      `gorm:"column:cart_item_ids"`
	Subtotal         decimal.Decimal `gorm:"column:subtotal;type:numeric(12,2);not null"`
	Discount         decimal.Decimal `gorm:"column:discount;type:numeric(12,2);not null"`
	DeliveryCharge   decimal.Decimal `gorm:"column:delivery_charge;type:numeric(12,2);not null"`
	Amount           decimal.Decimal `gorm:"column:amount;type:numeric(12,2);not null"`
	Currency         string          `gorm:"column:currency;size:3;not null"`
	Status           string          `gorm:"column:status;type:varchar(32);not null;index:idx_orders_status_created"`
	PaymentStatus    string          `gorm:"column:payment_status;type:varchar(32);not null"`
	DeliveryStatus   string          `gorm:"column:delivery_status;type:varchar(32);not null"`
	CreatedAt        time.Time       `gorm:"column:created_at;index:idx_orders_status_created"`
	UpdatedAt        time.Time       `gorm:"column:updated_at"`
	ShippedAt        *time.Time      `gorm:"column:shipped_at"`
	OutForDeliveryAt *time.Time      `gorm:"column:out_for_delivery_at"`
	DeliveredAt      *time.Time      `gorm:"column:delivered_at"`

	Items           []orderItemRecord      `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	ShippingAddress *shippingAddressRecord `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	Payment         *paymentRecord         `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
}

func (orderRecord) TableName() string { return "orders" }

type orderItemRecord struct {
	ID              int64               `gorm:"primaryKey;column:id;autoIncrement"`
	OrderID         int64               `gorm:"column:order_id;not null;index"`
	ProductID       int64               `gorm:"column:product_id;not null"`
	ProductName     string              `gorm:"column:product_name;size:255;not null"`
	CategoryName    string              `gorm:"column:category_name;size:255"`
	Quantity        int64               `gorm:"column:quantity;not null"`
	UnitPrice       decimal.Decimal     `gorm:"column:unit_price;type:numeric(12,2);not null"`
	DiscountPercent decimal.NullDecimal `gorm:"column:discount_percent;type:numeric(5,2)"`
	LineTotal       decimal.Decimal     `gorm:"column:line_total;type:numeric(12,2);not null"`
}

func (orderItemRecord) TableName() string { return "order_items" }

type shippingAddressRecord struct {
	OrderID   int64  `gorm:"primaryKey;column:order_id;autoIncrement:false"`
	FirstName string `gorm:"column:first_name;size:128"`
	LastName  string `gorm:"column:last_name;size:128"`
	Email     string `gorm:"column:email;size:255"`
	Phone     string `gorm:"column:phone;size:32"`
	Address   string `gorm:"column:address;type:text"`
	City      string `gorm:"column:city;size:128"`
	State     string `gorm:"column:state;size:128"`
	Pincode   string `gorm:"column:pincode;size:16"`
}

func (shippingAddressRecord) TableName() string { return "shipping_addresses" }

type paymentRecord struct {
	ID               int64     `gorm:"primaryKey;column:id;autoIncrement"`
	OrderID          int64     `gorm:"column:order_id;not null;uniqueIndex"`
	GatewayPaymentID string    `gorm:"column:gateway_payment_id;size:64;not null;uniqueIndex"`
	Signature        string    `gorm:"column:signature;size:128"`
	Method           string    `gorm:"column:method;size:32"`
	Email            string    `gorm:"column:email;size:255"`
	Contact          string    `gorm:"column:contact;size:32"`
	Bank             string    `gorm:"column:bank;size:64"`
	Wallet           string    `gorm:"column:wallet;size:64"`
	VPA              string    `gorm:"column:vpa;size:128"`
	International    bool      `gorm:"column:international"`
	Amount           int64     `gorm:"column:amount"`
	Currency         string    `gorm:"column:currency;size:3"`
	Status           string    `gorm:"column:status;size:32"`
	Captured         bool      `gorm:"column:captured"`
	Fee              int64     `gorm:"column:fee"`
	Tax              int64     `gorm:"column:tax"`
	ErrorCode        string    `gorm:"column:error_code;size:64"`
	ErrorDescription string    `gorm:"column:error_description;type:text"`
	Raw              jsonText  `gorm:"column:raw"`
	CreatedAt        time.Time `gorm:"column:created_at"`
	UpdatedAt        time.Time `gorm:"column:updated_at"`
}

func (paymentRecord) TableName() string { return "payments" }

// Models lists the tables this package owns, parents before children.
func Models() []any {
	return []any{&orderRecord{}, &orderItemRecord{}, &shippingAddressRecord{}, &paymentRecord{}, &outboxRecord{}, &idempotencyRecord{}}
}

// Create inserts the order with its items and shipping address.
func (r *Repository) Create(ctx context.Context, order *domain.Order) (*domain.Order, error) {
	if err := r.ensureDB(); err != nil {
		return nil, err
	}
	if order == nil {
		return nil, errors.New("order is nil")
	}
	record := toRecord(order)
	if err := r.db.WithContext(ctx).Omit("Payment").Create(&record).Error; err != nil {
		return nil, err
	}
	order.ID = record.ID
	return order, nil
}

// Update writes lifecycle columns only.
func (r *Repository) Update(ctx context.Context, order *domain.Order) error {
	if err := r.ensureDB(); err != nil {
		return err
	}
	if order == nil {
		return errors.New("order is nil")
	}
	result := r.db.WithContext(ctx).Model(&orderRecord{}).
		Where("id = ?", order.ID).
		Updates(map[string]any{
			"gateway_order_id":    nullableString(order.GatewayOrderID),
			"status":              string(order.Status),
			"payment_status":      string(order.PaymentStatus),
			"delivery_status":     string(order.DeliveryStatus),
			"updated_at":          order.UpdatedAt,
			"shipped_at":          order.ShippedAt,
			"out_for_delivery_at": order.OutForDeliveryAt,
			"delivered_at":        order.DeliveredAt,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ports.ErrNotFound
	}
	return nil
}

// Lock takes SELECT ... FOR UPDATE on the order row. Only meaningful inside a transaction.
func (r *Repository) Lock(ctx context.Context, id int64) (*domain.Order, error) {
	if err := r.ensureDB(); err != nil {
		return nil, err
	}
	db := r.db.WithContext(ctx)
	var record orderRecord
	if err := db.Clauses(clause.Locking{Strength: "UPDATE"}).First(&record, "id = ?", id).Error; err != nil {
		return nil, notFound(err)
	}
	if err := loadChildren(db, &record); err != nil {
		return nil, err
	}
	return record.toDomain(), nil
}

func (r *Repository) GetByID(ctx context.Context, id int64) (*domain.Order, error) {
	return r.getWhere(ctx, "id = ?", id)
}

func (r *Repository) GetByNumber(ctx context.Context, number string) (*domain.Order, error) {
	return r.getWhere(ctx, "number = ?", number)
}

func (r *Repository) GetByGatewayOrderID(ctx context.Context, gatewayOrderID string) (*domain.Order, error) {
	return r.getWhere(ctx, "gateway_order_id = ?", gatewayOrderID)
}

// ListByUser returns the user's orders, newest first.
func (r *Repository) ListByUser(ctx context.Context, userID int64) ([]*domain.Order, error) {
	if err := r.ensureDB(); err != nil {
		return nil, err
	}
	var records []orderRecord
	if err := r.db.WithContext(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("id") }).
		Preload("ShippingAddress").
		Preload("Payment").
		Where("user_id = ?", userID).
		Order("id DESC").
		Find(&records).Error; err != nil {
		return nil, err
	}
	orders := make([]*domain.Order, 0, len(records))
	for i := range records {
		orders = append(orders, records[i].toDomain())
	}
	return orders, nil
}

func (r *Repository) ListStale(ctx context.Context, cutoff time.Time, limit int) ([]int64, error) {
	if err := r.ensureDB(); err != nil {
		return nil, err
	}
	var ids []int64
	q := r.db.WithContext(ctx).Model(&orderRecord{}).
		Where("status = ? AND payment_status = ? AND created_at < ?", string(domain.StatusCreated), string(domain.PaymentPending), cutoff).
		Order("created_at, id")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Pluck("id", &ids).Error; err != nil {
		return nil, err
	}
	return ids, nil
}

// SavePayment upserts on order_id. A gateway payment id already stored for another order is
// rejected with ErrDuplicatePayment.
func (r *Repository) SavePayment(ctx context.Context, orderID int64, payment *domain.Payment) error {
	if err := r.ensureDB(); err != nil {
		return err
	}
	if payment == nil {
		return errors.New("payment is nil")
	}
	record := toPaymentRecord(orderID, payment)
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "order_id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"gateway_payment_id", "signature", "method", "email", "contact", "bank", "wallet", "vpa",
				"international", "amount", "currency", "status", "captured", "fee", "tax",
				"error_code", "error_description", "raw", "updated_at",
			}),
		}).Create(&record).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return ports.ErrDuplicatePayment
	}
	return err
}

func (r *Repository) getWhere(ctx context.Context, query string, arg any) (*domain.Order, error) {
	if err := r.ensureDB(); err != nil {
		return nil, err
	}
	db := r.db.WithContext(ctx)
	var record orderRecord
	if err := db.First(&record, query, arg).Error; err != nil {
		return nil, notFound(err)
	}
	if err := loadChildren(db, &record); err != nil {
		return nil, err
	}
	return record.toDomain(), nil
}

func loadChildren(db *gorm.DB, record *orderRecord) error {
	if err := db.Where("order_id = ?", record.ID).Order("id").Find(&record.Items).Error; err != nil {
		return err
	}
	var addr shippingAddressRecord
	switch err := db.Where("order_id = ?", record.ID).Limit(1).Find(&addr).Error; {
	case err != nil:
		return err
	case addr.OrderID != 0:
		record.ShippingAddress = &addr
	}
	var payment paymentRecord
	switch err := db.Where("order_id = ?", record.ID).Limit(1).Find(&payment).Error; {
	case err != nil:
		return err
	case payment.ID != 0:
		record.Payment = &payment
	}
	return nil
}

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ports.ErrNotFound
	}
	return err
}

func (r *Repository) ensureDB() error {
	if r == nil || r.db == nil {
		return errors.New("postgres order repository not configured")
	}
	return nil
}

func nullableString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func toRecord(o *domain.Order) orderRecord {
	rec := orderRecord{
		ID:               o.ID,
		UserID:           o.UserID,
		Number:           o.Number,
		Receipt:          o.Receipt,
		GatewayOrderID:   nullableString(o.GatewayOrderID),
		CartItemIDs:      int64Array(append([]int64(nil), o.CartItemIDs...)),
		Subtotal:         o.Subtotal,
		Discount:         o.Discount,
		DeliveryCharge:   o.DeliveryCharge,
		Amount:           o.Amount,
		Currency:         o.Currency,
		Status:           string(o.Status),
		PaymentStatus:    string(o.PaymentStatus),
		DeliveryStatus:   string(o.DeliveryStatus),
		CreatedAt:        o.CreatedAt,
		UpdatedAt:        o.UpdatedAt,
		ShippedAt:        o.ShippedAt,
		OutForDeliveryAt: o.OutForDeliveryAt,
		DeliveredAt:      o.DeliveredAt,
	}
	for _, item := range o.Items {
		itemRec := orderItemRecord{
			ProductID:    item.ProductID,
			ProductName:  item.ProductName,
			CategoryName: item.CategoryName,
			Quantity:     item.Quantity,
			UnitPrice:    item.UnitPrice,
			LineTotal:    item.LineTotal,
		}
		if item.DiscountPercent != nil {
			itemRec.DiscountPercent = decimal.NewNullDecimal(*item.DiscountPercent)
		}
		rec.Items = append(rec.Items, itemRec)
	}
	if a := o.ShippingAddress; a != nil {
		rec.ShippingAddress = &shippingAddressRecord{
			FirstName: a.FirstName,
			LastName:  a.LastName,
			Email:     a.Email,
			Phone:     a.Phone,
			Address:   a.Address,
			City:      a.City,
			State:     a.State,
			Pincode:   a.Pincode,
		}
	}
	return rec
}

func toPaymentRecord(orderID int64, p *domain.Payment) paymentRecord {
	raw := "{}"
	if len(p.Raw) > 0 && json.Valid(p.Raw) {
		raw = string(p.Raw)
	}
	return paymentRecord{
		OrderID:          orderID,
		GatewayPaymentID: p.GatewayPaymentID,
		Signature:        p.Signature,
		Method:           p.Method,
		Email:            p.Email,
		Contact:          p.Contact,
		Bank:             p.Bank,
		Wallet:           p.Wallet,
		VPA:              p.VPA,
		International:    p.International,
		Amount:           p.Amount,
		Currency:         p.Currency,
		Status:           p.Status,
		Captured:         p.Captured,
		Fee:              p.Fee,
		Tax:              p.Tax,
		ErrorCode:        p.ErrorCode,
		ErrorDescription: p.ErrorDescription,
		Raw:              jsonText(raw),
		CreatedAt:        p.CreatedAt,
		UpdatedAt:        p.UpdatedAt,
	}
}

func (r orderRecord) toDomain() *domain.Order {
	o := &domain.Order{
		ID:               r.ID,
		UserID:           r.UserID,
		Number:           r.Number,
		Receipt:          r.Receipt,
		CartItemIDs:      append([]int64(nil), r.CartItemIDs...),
		Subtotal:         r.Subtotal,
		Discount:         r.Discount,
		DeliveryCharge:   r.DeliveryCharge,
		Amount:           r.Amount,
		Currency:         r.Currency,
		Status:           domain.Status(r.Status),
		PaymentStatus:    domain.PaymentStatus(r.PaymentStatus),
		DeliveryStatus:   domain.DeliveryStatus(r.DeliveryStatus),
		CreatedAt:        r.CreatedAt,
		UpdatedAt:        r.UpdatedAt,
		ShippedAt:        r.ShippedAt,
		OutForDeliveryAt: r.OutForDeliveryAt,
		DeliveredAt:      r.DeliveredAt,
	}
	if r.GatewayOrderID != nil {
		o.GatewayOrderID = *r.GatewayOrderID
	}
	for _, item := range r.Items {
		out := domain.OrderItem{
			ProductID:    item.ProductID,
			ProductName:  item.ProductName,
			CategoryName: item.CategoryName,
			Quantity:     item.Quantity,
			UnitPrice:    item.UnitPrice,
			LineTotal:    item.LineTotal,
		}
		if item.DiscountPercent.Valid {
			d := item.DiscountPercent.Decimal
			out.DiscountPercent = &d
		}
		o.Items = append(o.Items, out)
	}
	if a := r.ShippingAddress; a != nil {
		o.ShippingAddress = &domain.ShippingAddress{
			FirstName: a.FirstName,
			LastName:  a.LastName,
			Email:     a.Email,
			Phone:     a.Phone,
			Address:   a.Address,
			City:      a.City,
			State:     a.State,
			Pincode:   a.Pincode,
		}
	}
	if p := r.Payment; p != nil {
		o.Payment = &domain.Payment{
			GatewayPaymentID: p.GatewayPaymentID,
			Signature:        p.Signature,
			Method:           p.Method,
			Email:            p.Email,
			Contact:          p.Contact,
			Bank:             p.Bank,
			Wallet:           p.Wallet,
			VPA:              p.VPA,
			International:    p.International,
			Amount:           p.Amount,
			Currency:         p.Currency,
			Status:           p.Status,
			Captured:         p.Captured,
			Fee:              p.Fee,
			Tax:              p.Tax,
			ErrorCode:        p.ErrorCode,
			ErrorDescription: p.ErrorDescription,
			Raw:              json.RawMessage(p.Raw),
			CreatedAt:        p.CreatedAt,
			UpdatedAt:        p.UpdatedAt,
		}
	}
	return o
}
