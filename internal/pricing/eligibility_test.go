package pricing

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mk1MoreBugs/hack270625-sub000/internal/models"
)

func TestGateStatusCheck(t *testing.T) {
	store := setupTestStore(t)
	gate := NewGate(store)

	for _, status := range []models.ListingStatus{models.ListingStatusReserved, models.ListingStatusSold} {
		listing := &models.Listing{ID: 1, Status: status}
		reason, err := gate.Check(context.Background(), listing, 24*time.Hour)
		require.NoError(t, err)
		assert.Equal(t, SkipStatus, reason)
	}
}

func TestGateCooldown(t *testing.T) {
	store := setupTestStore(t)
	gate := NewGate(store)
	listing := &models.Listing{ID: 1, Status: models.ListingStatusAvailable}

	require.NoError(t, store.DB().Create(&models.PriceChangeRecord{
		ListingID: 1,
		ChangedAt: time.Now().UTC().Add(-2 * time.Hour),
		Reason:    models.PriceChangeReasonDynamic,
	}).Error)

	reason, err := gate.Check(context.Background(), listing, 24*time.Hour)
	require.NoError(t, err)
	assert.Equal(t, SkipCooldown, reason)

	// A change older than the cooldown window no longer blocks
	require.NoError(t, store.DB().
		Model(&models.PriceChangeRecord{}).
		Where("listing_id = ?", 1).
		Update("changed_at", time.Now().UTC().Add(-25*time.Hour)).Error)

	reason, err = gate.Check(context.Background(), listing, 24*time.Hour)
	require.NoError(t, err)
	assert.Equal(t, SkipNone, reason)
}

func TestGateRecentBooking(t *testing.T) {
	store := setupTestStore(t)
	gate := NewGate(store)
	listing := &models.Listing{ID: 1, Status: models.ListingStatusAvailable}

	require.NoError(t, store.DB().Create(&models.Booking{
		ListingID: 1,
		Status:    models.BookingStatusActive,
		BookedAt:  time.Now().UTC().Add(-3 * time.Hour),
	}).Error)

	reason, err := gate.Check(context.Background(), listing, 24*time.Hour)
	require.NoError(t, err)
	assert.Equal(t, SkipRecentBooking, reason)
}

func TestGateCancelledBookingIgnored(t *testing.T) {
	store := setupTestStore(t)
	gate := NewGate(store)
	listing := &models.Listing{ID: 1, Status: models.ListingStatusAvailable}

	require.NoError(t, store.DB().Create(&models.Booking{
		ListingID: 1,
		Status:    models.BookingStatusCancelled,
		BookedAt:  time.Now().UTC().Add(-3 * time.Hour),
	}).Error)

	reason, err := gate.Check(context.Background(), listing, 24*time.Hour)
	require.NoError(t, err)
	assert.Equal(t, SkipNone, reason)
}

func TestGateEligibleListing(t *testing.T) {
	store := setupTestStore(t)
	gate := NewGate(store)
	listing := &models.Listing{ID: 1, Status: models.ListingStatusAvailable}

	reason, err := gate.Check(context.Background(), listing, 24*time.Hour)
	require.NoError(t, err)
	assert.Equal(t, SkipNone, reason)
}
