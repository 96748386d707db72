package pricing

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/mk1MoreBugs/hack270625-sub000/internal/models"
)

func TestCohortMedianDemand(t *testing.T) {
	// Odd-sized cohort
	assert.Equal(t, 30.0, CohortMedianDemand([]float64{10, 30, 50}))

	// Even-sized cohort uses the mean of the two middle values
	assert.Equal(t, 25.0, CohortMedianDemand([]float64{10, 20, 30, 40}))

	// Non-positive scores are discarded before the median
	assert.Equal(t, 20.0, CohortMedianDemand([]float64{0, -5, 20}))
}

func TestCohortMedianDemandNeutralFallback(t *testing.T) {
	// Empty cohort degrades to the neutral denominator so normalization
	// becomes the listing's own score
	assert.Equal(t, 1.0, CohortMedianDemand(nil))
	assert.Equal(t, 1.0, CohortMedianDemand([]float64{}))
	assert.Equal(t, 1.0, CohortMedianDemand([]float64{0, 0, 0}))
}

func TestMedianForListingExcludesSelf(t *testing.T) {
	projectID := int64(1)
	rooms := 2
	listing := &models.Listing{ID: 10, ProjectID: &projectID, Rooms: &rooms}

	groups := map[models.CohortKey][]memberScore{
		{ProjectID: 1, Rooms: 2}: {
			{listingID: 10, score: 500}, // the listing itself, must be excluded
			{listingID: 11, score: 80},
			{listingID: 12, score: 120},
		},
	}

	assert.Equal(t, 100.0, medianForListing(groups, listing))
}

func TestMedianForListingWithoutCohortKey(t *testing.T) {
	listing := &models.Listing{ID: 10}
	assert.Equal(t, 1.0, medianForListing(map[models.CohortKey][]memberScore{}, listing))
}

func TestCohortScoresGrouping(t *testing.T) {
	p1, p2 := int64(1), int64(2)
	r2, r3 := 2, 3

	listings := []models.Listing{
		{ID: 1, ProjectID: &p1, Rooms: &r2},
		{ID: 2, ProjectID: &p1, Rooms: &r2},
		{ID: 3, ProjectID: &p1, Rooms: &r3},
		{ID: 4, ProjectID: &p2, Rooms: &r2},
		{ID: 5}, // no cohort key
	}
	snapshots := map[int64]models.DemandSnapshot{
		1: {ListingID: 1, Views: 10},
		2: {ListingID: 2, Views: 20},
	}
	cfg := &models.PricingConfig{K1: 1}

	groups := cohortScores(listings, snapshots, cfg)

	assert.Len(t, groups, 3)
	assert.Len(t, groups[models.CohortKey{ProjectID: 1, Rooms: 2}], 2)
	assert.Len(t, groups[models.CohortKey{ProjectID: 1, Rooms: 3}], 1)
	assert.Len(t, groups[models.CohortKey{ProjectID: 2, Rooms: 2}], 1)
}
