package rubric

import "fmt"

// Tier is the display severity of a value relative to its maximum.
type Tier string

const (
	TierUnscored Tier = "unscored"
	TierZero     Tier = "zero"
	TierLow      Tier = "low"
	TierMedium   Tier = "medium"
	TierHigh     Tier = "high"
	TierMax      Tier = "max"
)

// Classify maps a value to its tier using percentage-of-max breakpoints:
// 0% zero, above 0% low, from 50% medium, from 75% high, 100% max.
// The 25% step of the legal value sets lands in low.
func Classify(v Value, max float64) Tier {
	f, ok := v.Get()
	if !ok {
		return TierUnscored
	}
	if max <= 0 || f <= 0 {
		return TierZero
	}
	pct := f / max * 100
	switch {
	case pct >= 100:
		return TierMax
	case pct >= 75:
		return TierHigh
	case pct >= 50:
		return TierMedium
	default:
		return TierLow
	}
}

// ClassifyCriterion classifies v against the maximum of c.
func ClassifyCriterion(c Criterion, v Value) Tier {
	d, ok := Lookup(c)
	if !ok {
		return TierUnscored
	}
	return Classify(v, d.Max)
}

// Rescale converts a total expressed out of fromMax into the equivalent
// total out of toMax. The caller must know fromMax; it is never guessed
// from the magnitude of total.
func Rescale(total, fromMax, toMax float64) (float64, error) {
	if fromMax <= 0 || toMax <= 0 {
		return 0, fmt.Errorf("rescale: scale must be positive (from %g, to %g)", fromMax, toMax)
	}
	if total < 0 || total > fromMax {
		return 0, fmt.Errorf("rescale: total %g outside 0..%g", total, fromMax)
	}
	return total / fromMax * toMax, nil
}
