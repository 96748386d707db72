package pricing

import (
	"sort"

	"github.com/mk1MoreBugs/hack270625-sub000/internal/models"
)

// neutralMedian keeps normalization from dividing by zero when a cohort has
// no usable members; demandNormalized then degrades to the listing's own score.
const neutralMedian = 1.0

// CohortMedianDemand returns the median of the positive scores in the slice.
// Non-positive scores are discarded first. An empty or all-zero cohort yields
// the neutral denominator 1.0.
func CohortMedianDemand(scores []float64) float64 {
	positive := make([]float64, 0, len(scores))
	for _, s := range scores {
		if s > 0 {
			positive = append(positive, s)
		}
	}
	if len(positive) == 0 {
		return neutralMedian
	}

	sort.Float64s(positive)
	mid := len(positive) / 2
	if len(positive)%2 == 0 {
		return (positive[mid-1] + positive[mid]) / 2
	}
	return positive[mid]
}

// cohortScores groups every listing's demand score by cohort key. Listings
// without a cohort key are left out; their median falls back to neutral.
func cohortScores(listings []models.Listing, snapshots map[int64]models.DemandSnapshot, cfg *models.PricingConfig) map[models.CohortKey][]memberScore {
	groups := make(map[models.CohortKey][]memberScore)
	for i := range listings {
		key, ok := listings[i].Cohort()
		if !ok {
			continue
		}

		var snapshot *models.DemandSnapshot
		if s, ok := snapshots[listings[i].ID]; ok {
			snapshot = &s
		}
		groups[key] = append(groups[key], memberScore{
			listingID: listings[i].ID,
			score:     DemandScore(snapshot, cfg),
		})
	}
	return groups
}

type memberScore struct {
	listingID int64
	score     float64
}

// medianForListing computes the cohort median excluding the listing itself.
func medianForListing(groups map[models.CohortKey][]memberScore, listing *models.Listing) float64 {
	key, ok := listing.Cohort()
	if !ok {
		return neutralMedian
	}

	members := groups[key]
	others := make([]float64, 0, len(members))
	for _, m := range members {
		if m.listingID != listing.ID {
			others = append(others, m.score)
		}
	}
	return CohortMedianDemand(others)
}
