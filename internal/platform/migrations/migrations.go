package migrations

import (
	"gorm.io/gorm"

	cartpostgres "github.com/Apurer/medstore-checkout/internal/domains/cart/adapters/persistence/postgres"
	customerpostgres "github.com/Apurer/medstore-checkout/internal/domains/customers/adapters/persistence/postgres"
	inventorypostgres "github.com/Apurer/medstore-checkout/internal/domains/inventory/adapters/persistence/postgres"
	orderpostgres "github.com/Apurer/medstore-checkout/internal/domains/orders/adapters/persistence/postgres"
)

// Run applies the schema owned by the persistence adapters. Parents come first so foreign keys
// resolve; AutoMigrate works on both PostgreSQL and SQLite.
func Run(db *gorm.DB) error {
	if db == nil {
		return nil
	}
	var models []any
	models = append(models, inventorypostgres.Models()...)
	models = append(models, cartpostgres.Models()...)
	models = append(models, customerpostgres.Models()...)
	models = append(models, orderpostgres.Models()...)
	return db.AutoMigrate(models...)
}
