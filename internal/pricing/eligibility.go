package pricing

import (
	"context"
	"time"

	"github.com/mk1MoreBugs/hack270625-sub000/internal/models"
)

// SkipReason explains why a listing was left out of a run. Skips are normal
// outcomes, not failures.
type SkipReason string

const (
	SkipNone          SkipReason = ""
	SkipStatus        SkipReason = "status_not_available"
	SkipCooldown      SkipReason = "cooldown"
	SkipRecentBooking SkipReason = "recent_booking"
	SkipNoAdjustment  SkipReason = "no_adjustment"
)

// EligibilityStore is the slice of storage the gate needs.
type EligibilityStore interface {
	GetLastPriceChange(ctx context.Context, listingID int64) (*models.PriceChangeRecord, error)
	CountRecentBookings(ctx context.Context, listingID int64, since time.Time) (int64, error)
}

// Gate decides whether a listing may be repriced right now.
type Gate struct {
	store EligibilityStore
	now   func() time.Time
}

func NewGate(store EligibilityStore) *Gate {
	return &Gate{
		store: store,
		now:   time.Now,
	}
}

// Check returns SkipNone when the listing is eligible, or the reason it is
// not. The cooldown covers both the last price change and recent bookings.
func (g *Gate) Check(ctx context.Context, listing *models.Listing, cooldown time.Duration) (SkipReason, error) {
	if listing.Status != models.ListingStatusAvailable {
		return SkipStatus, nil
	}

	cutoff := g.now().UTC().Add(-cooldown)

	lastChange, err := g.store.GetLastPriceChange(ctx, listing.ID)
	if err != nil {
		return SkipNone, err
	}
	if lastChange != nil && lastChange.ChangedAt.After(cutoff) {
		return SkipCooldown, nil
	}

	bookings, err := g.store.CountRecentBookings(ctx, listing.ID, cutoff)
	if err != nil {
		return SkipNone, err
	}
	if bookings > 0 {
		return SkipRecentBooking, nil
	}

	return SkipNone, nil
}
