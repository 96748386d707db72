package database

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/mk1MoreBugs/hack270625-sub000/internal/models"
)

func (d *Database) RunMigrations() error {
	return MigrateSchema(d.db)
}

// MigrateSchema creates or updates all engine tables. Exposed separately so
// tests can migrate an in-memory database.
func MigrateSchema(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&models.Listing{},
		&models.DemandSnapshot{},
		&models.ViewsLog{},
		&models.Booking{},
		&models.PriceChangeRecord{},
		&models.PricingConfig{},
	); err != nil {
		return fmt.Errorf("failed to migrate schema: %w", err)
	}

	// Cooldown lookups scan by listing and time together
	if err := db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_price_changes_listing_changed
		ON price_changes(listing_id, changed_at);
	`).Error; err != nil {
		return err
	}

	if err := db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_bookings_listing_booked
		ON bookings(listing_id, booked_at);
	`).Error; err != nil {
		return err
	}

	return nil
}
