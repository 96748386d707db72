package pricing

import "math"

const (
	// Relative demand above this raises the price
	highDemandThreshold = 1.3
	// Relative demand below this, combined with a stale listing, cuts it
	lowDemandThreshold = 0.7
	// Days on market a listing must exceed before a low-demand cut applies
	staleDaysThreshold = 14
	// Base adjustment step, further limited by the config's elasticity cap
	baseAdjustmentPercent = 3.0
	// Price deltas smaller than this are treated as no change
	priceEpsilon = 0.01
)

// AdjustmentPercent maps normalized demand and listing age to a bounded
// percentage price change. First matching rule wins.
func AdjustmentPercent(demandNormalized float64, daysOnMarket int, elasticityCapPercent float64) float64 {
	step := math.Min(elasticityCapPercent, baseAdjustmentPercent)

	switch {
	case demandNormalized > highDemandThreshold:
		return step
	case demandNormalized < lowDemandThreshold && daysOnMarket > staleDaysThreshold:
		return -step
	default:
		return 0
	}
}

// ApplyAdjustment computes the new price for a percentage change and clamps
// it to the band basePrice*(1±maxShiftPercent/100).
func ApplyAdjustment(currentPrice, basePrice, percent, maxShiftPercent float64) float64 {
	newPrice := currentPrice * (1 + percent/100)

	floor := basePrice * (1 - maxShiftPercent/100)
	ceiling := basePrice * (1 + maxShiftPercent/100)

	return math.Max(floor, math.Min(ceiling, newPrice))
}

// IsNoOpChange reports whether a computed price differs from the current one
// by less than the epsilon, in which case no history record is written.
func IsNoOpChange(currentPrice, newPrice float64) bool {
	return math.Abs(newPrice-currentPrice) < priceEpsilon
}
