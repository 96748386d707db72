package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/mk1MoreBugs/hack270625-sub000/internal/models"
)

type Database struct {
	db     *gorm.DB
	logger *logrus.Logger
}

func NewDatabase(dbPath string, logger *logrus.Logger) (*Database, error) {
	db, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}

	// sqlite handles one writer at a time, keep the pool small
	sqlDB.SetMaxIdleConns(2)
	sqlDB.SetMaxOpenConns(8)
	sqlDB.SetConnMaxLifetime(time.Hour)

	if err := db.Exec("PRAGMA foreign_keys = ON").Error; err != nil {
		return nil, err
	}

	return &Database{db: db, logger: logger}, nil
}

// NewTestDB opens an in-memory database for tests.
func NewTestDB() (*gorm.DB, error) {
	return gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
}

// FromGorm wraps an existing gorm connection, used by tests.
func FromGorm(db *gorm.DB, logger *logrus.Logger) *Database {
	return &Database{db: db, logger: logger}
}

func (d *Database) DB() *gorm.DB {
	return d.db
}

func (d *Database) Close() error {
	sqlDB, err := d.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// GetListing returns a listing by id, or nil when it does not exist.
func (d *Database) GetListing(ctx context.Context, id int64) (*models.Listing, error) {
	var listing models.Listing
	err := d.db.WithContext(ctx).First(&listing, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load listing %d: %w", id, err)
	}
	return &listing, nil
}

// GetListingsByStatus returns all listings in the given status.
func (d *Database) GetListingsByStatus(ctx context.Context, status models.ListingStatus) ([]models.Listing, error) {
	var listings []models.Listing
	if err := d.db.WithContext(ctx).Where("status = ?", status).Find(&listings).Error; err != nil {
		return nil, fmt.Errorf("failed to load listings with status %s: %w", status, err)
	}
	return listings, nil
}

// GetAllListings returns the full catalog.
func (d *Database) GetAllListings(ctx context.Context) ([]models.Listing, error) {
	var listings []models.Listing
	if err := d.db.WithContext(ctx).Find(&listings).Error; err != nil {
		return nil, fmt.Errorf("failed to load listings: %w", err)
	}
	return listings, nil
}

// GetDemandSnapshots returns every demand snapshot keyed by listing id.
func (d *Database) GetDemandSnapshots(ctx context.Context) (map[int64]models.DemandSnapshot, error) {
	var snapshots []models.DemandSnapshot
	if err := d.db.WithContext(ctx).Find(&snapshots).Error; err != nil {
		return nil, fmt.Errorf("failed to load demand snapshots: %w", err)
	}

	byListing := make(map[int64]models.DemandSnapshot, len(snapshots))
	for _, s := range snapshots {
		byListing[s.ListingID] = s
	}
	return byListing, nil
}

// GetDemandSnapshot returns the snapshot for a listing, or nil when absent.
// A missing snapshot is not an error, the scorer treats it as zero demand.
func (d *Database) GetDemandSnapshot(ctx context.Context, listingID int64) (*models.DemandSnapshot, error) {
	var snapshot models.DemandSnapshot
	err := d.db.WithContext(ctx).First(&snapshot, "listing_id = ?", listingID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load demand snapshot for listing %d: %w", listingID, err)
	}
	return &snapshot, nil
}

// UpsertDemandSnapshot writes the snapshot row for a listing.
func (d *Database) UpsertDemandSnapshot(ctx context.Context, snapshot *models.DemandSnapshot) error {
	if err := d.db.WithContext(ctx).Save(snapshot).Error; err != nil {
		return fmt.Errorf("failed to save demand snapshot for listing %d: %w", snapshot.ListingID, err)
	}
	return nil
}

// CountViewEvents counts log entries of the given kinds for a listing since a cutoff.
func (d *Database) CountViewEvents(ctx context.Context, listingID int64, events []models.ViewEvent, since time.Time) (int64, error) {
	var count int64
	err := d.db.WithContext(ctx).
		Model(&models.ViewsLog{}).
		Where("listing_id = ? AND event IN ? AND occurred_at >= ?", listingID, events, since).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("failed to count view events for listing %d: %w", listingID, err)
	}
	return count, nil
}

// CountRecentBookings counts non-cancelled bookings for a listing since a cutoff.
func (d *Database) CountRecentBookings(ctx context.Context, listingID int64, since time.Time) (int64, error) {
	var count int64
	err := d.db.WithContext(ctx).
		Model(&models.Booking{}).
		Where("listing_id = ? AND status <> ? AND booked_at >= ?", listingID, models.BookingStatusCancelled, since).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("failed to count bookings for listing %d: %w", listingID, err)
	}
	return count, nil
}

// GetLastPriceChange returns the most recent history entry for a listing, or nil.
func (d *Database) GetLastPriceChange(ctx context.Context, listingID int64) (*models.PriceChangeRecord, error) {
	var record models.PriceChangeRecord
	err := d.db.WithContext(ctx).
		Where("listing_id = ?", listingID).
		Order("changed_at DESC").
		First(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load last price change for listing %d: %w", listingID, err)
	}
	return &record, nil
}

// GetRecentPriceChanges returns all history entries since a cutoff.
func (d *Database) GetRecentPriceChanges(ctx context.Context, since time.Time) ([]models.PriceChangeRecord, error) {
	var records []models.PriceChangeRecord
	err := d.db.WithContext(ctx).
		Where("changed_at >= ?", since).
		Order("changed_at DESC").
		Find(&records).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load recent price changes: %w", err)
	}
	return records, nil
}

// GetPriceHistory returns the newest history entries for a listing.
func (d *Database) GetPriceHistory(ctx context.Context, listingID int64, limit int) ([]models.PriceChangeRecord, error) {
	var records []models.PriceChangeRecord
	err := d.db.WithContext(ctx).
		Where("listing_id = ?", listingID).
		Order("changed_at DESC").
		Limit(limit).
		Find(&records).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load price history for listing %d: %w", listingID, err)
	}
	return records, nil
}

// ApplyPriceChange updates the listing's current price and appends the history
// record in a single transaction. Both succeed or neither does.
func (d *Database) ApplyPriceChange(ctx context.Context, listingID int64, newPrice float64, record *models.PriceChangeRecord) error {
	err := d.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&models.Listing{}).
			Where("id = ?", listingID).
			Updates(map[string]interface{}{
				"current_price": newPrice,
				"updated_at":    time.Now().UTC(),
			})
		if result.Error != nil {
			return fmt.Errorf("failed to update price: %w", result.Error)
		}
		if result.RowsAffected == 0 {
			return fmt.Errorf("listing %d not found", listingID)
		}

		if err := tx.Create(record).Error; err != nil {
			return fmt.Errorf("failed to append price change record: %w", err)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to apply price change for listing %d: %w", listingID, err)
	}
	return nil
}

// GetActivePricingConfig returns the most recently created enabled config, or nil.
func (d *Database) GetActivePricingConfig(ctx context.Context) (*models.PricingConfig, error) {
	var cfg models.PricingConfig
	err := d.db.WithContext(ctx).
		Where("enabled = ?", true).
		Order("created_at DESC").
		First(&cfg).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load pricing config: %w", err)
	}
	return &cfg, nil
}

// EnsurePricingConfig returns the active config, synthesizing and persisting
// the given defaults when none exists. A run must never start without one.
func (d *Database) EnsurePricingConfig(ctx context.Context, defaults models.PricingConfig) (*models.PricingConfig, error) {
	cfg, err := d.GetActivePricingConfig(ctx)
	if err != nil {
		return nil, err
	}
	if cfg != nil {
		return cfg, nil
	}

	defaults.Enabled = true
	if err := d.db.WithContext(ctx).Create(&defaults).Error; err != nil {
		return nil, fmt.Errorf("failed to create default pricing config: %w", err)
	}

	if d.logger != nil {
		d.logger.WithFields(logrus.Fields{
			"k1": defaults.K1,
			"k2": defaults.K2,
			"k3": defaults.K3,
		}).Info("Created default pricing config")
	}
	return &defaults, nil
}

// CreatePricingConfig disables every existing config and inserts the new one
// as the single active configuration.
func (d *Database) CreatePricingConfig(ctx context.Context, cfg *models.PricingConfig) error {
	err := d.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.PricingConfig{}).
			Where("enabled = ?", true).
			Update("enabled", false).Error; err != nil {
			return err
		}
		cfg.Enabled = true
		return tx.Create(cfg).Error
	})
	if err != nil {
		return fmt.Errorf("failed to create pricing config: %w", err)
	}
	return nil
}
