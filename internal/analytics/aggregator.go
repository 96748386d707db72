package analytics

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/mk1MoreBugs/hack270625-sub000/internal/models"
)

// Store is the storage surface the aggregator needs.
type Store interface {
	GetAllListings(ctx context.Context) ([]models.Listing, error)
	CountViewEvents(ctx context.Context, listingID int64, events []models.ViewEvent, since time.Time) (int64, error)
	CountRecentBookings(ctx context.Context, listingID int64, since time.Time) (int64, error)
	UpsertDemandSnapshot(ctx context.Context, snapshot *models.DemandSnapshot) error
}

// Aggregator recomputes each listing's demand snapshot from the raw view and
// booking logs. The pricing engine only ever reads the snapshot rows.
type Aggregator struct {
	store  Store
	logger *logrus.Logger
	window time.Duration
	now    func() time.Time
}

func NewAggregator(store Store, windowHours int, logger *logrus.Logger) *Aggregator {
	return &Aggregator{
		store:  store,
		logger: logger,
		window: time.Duration(windowHours) * time.Hour,
		now:    time.Now,
	}
}

// RefreshAll rebuilds the snapshot for every listing. A failure on one
// listing is logged and the rest continue.
func (a *Aggregator) RefreshAll(ctx context.Context) error {
	listings, err := a.store.GetAllListings(ctx)
	if err != nil {
		return fmt.Errorf("failed to load listings for snapshot refresh: %w", err)
	}

	var failed int
	for i := range listings {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if _, err := a.RefreshListing(ctx, &listings[i]); err != nil {
			a.logger.WithError(err).WithField("listing_id", listings[i].ID).Error("Snapshot refresh failed")
			failed++
		}
	}

	a.logger.WithFields(logrus.Fields{
		"listings": len(listings),
		"failed":   failed,
	}).Debug("Demand snapshots refreshed")
	return nil
}

// RefreshListing recomputes and persists one listing's snapshot.
func (a *Aggregator) RefreshListing(ctx context.Context, listing *models.Listing) (*models.DemandSnapshot, error) {
	now := a.now().UTC()
	since := now.Add(-a.window)

	views, err := a.store.CountViewEvents(ctx, listing.ID, []models.ViewEvent{models.ViewEventView}, since)
	if err != nil {
		return nil, err
	}

	// A lead is any favorite or enquiry event in the window, counted as
	// events rather than distinct users
	leads, err := a.store.CountViewEvents(ctx, listing.ID, []models.ViewEvent{models.ViewEventFavorite, models.ViewEventLead}, since)
	if err != nil {
		return nil, err
	}

	bookings, err := a.store.CountRecentBookings(ctx, listing.ID, since)
	if err != nil {
		return nil, err
	}

	daysOnMarket := int(now.Sub(listing.CreatedAt).Hours() / 24)
	if daysOnMarket < 0 {
		daysOnMarket = 0
	}

	snapshot := &models.DemandSnapshot{
		ListingID:    listing.ID,
		Views:        int(views),
		Leads:        int(leads),
		Bookings:     int(bookings),
		DaysOnMarket: daysOnMarket,
		UpdatedAt:    now,
	}

	if err := a.store.UpsertDemandSnapshot(ctx, snapshot); err != nil {
		return nil, err
	}
	return snapshot, nil
}
