package models

import "time"

// PriceChangeReason classifies who or what moved the price.
type PriceChangeReason string

const (
	PriceChangeReasonDynamic PriceChangeReason = "dynamic"
	PriceChangeReasonManual  PriceChangeReason = "manual"
	PriceChangeReasonPromo   PriceChangeReason = "promo"
)

// PriceChangeRecord is an append-only history entry, written exactly once per
// successful adjustment in the same transaction as the price update.
type PriceChangeRecord struct {
	ID            int64             `json:"id" gorm:"primaryKey"`
	ListingID     int64             `json:"listing_id" gorm:"index"`
	ChangedAt     time.Time         `json:"changed_at" gorm:"index"`
	OldPrice      float64           `json:"old_price"`
	NewPrice      float64           `json:"new_price"`
	ChangePercent float64           `json:"change_percent"`
	Reason        PriceChangeReason `json:"reason"`
	Description   string            `json:"description"`
}

func (PriceChangeRecord) TableName() string {
	return "price_changes"
}

// PricingConfig holds the demand weights and guard rails for a pricing run.
// The most recently created row with Enabled=true is the active one.
type PricingConfig struct {
	ID                   int64     `json:"id" gorm:"primaryKey"`
	K1                   float64   `json:"k1"`
	K2                   float64   `json:"k2"`
	K3                   float64   `json:"k3"`
	Enabled              bool      `json:"enabled" gorm:"index"`
	ElasticityCapPercent float64   `json:"elasticity_cap_percent"`
	MaxShiftPercent      float64   `json:"max_shift_percent"`
	CooldownHours        int       `json:"cooldown_hours"`
	CreatedAt            time.Time `json:"created_at"`
}

func (PricingConfig) TableName() string {
	return "pricing_configs"
}

// Cooldown returns the minimum interval between two price changes.
func (c *PricingConfig) Cooldown() time.Duration {
	return time.Duration(c.CooldownHours) * time.Hour
}

// PriceChangeResult describes one applied adjustment, surfaced to operators.
type PriceChangeResult struct {
	ListingID        int64   `json:"listing_id"`
	OldPrice         float64 `json:"old_price"`
	NewPrice         float64 `json:"new_price"`
	ChangePercent    float64 `json:"change_percent"`
	DemandScore      float64 `json:"demand_score"`
	DemandNormalized float64 `json:"demand_normalized"`
	Description      string  `json:"description"`
}
