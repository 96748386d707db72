package pricing

import "github.com/mk1MoreBugs/hack270625-sub000/internal/models"

// DemandScore computes the weighted demand score for a listing's snapshot.
// A listing without a snapshot scores zero and still flows through the
// low-demand branch of the adjuster.
func DemandScore(snapshot *models.DemandSnapshot, cfg *models.PricingConfig) float64 {
	if snapshot == nil {
		return 0
	}
	return cfg.K1*float64(snapshot.Views) +
		cfg.K2*float64(snapshot.Leads) +
		cfg.K3*float64(snapshot.Bookings)
}
