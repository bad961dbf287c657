package stats

import (
	"math"
	"time"
)

// HalfLifeDays is the e-folding time for record weights. A record one
// half-life old contributes exp(-1) ≈ 0.368 of a fresh record.
const HalfLifeDays = 365.0

// Weight returns the recency weight exp(-ageDays/HalfLifeDays) for a record
// of the given age. Weights decrease monotonically with age and approach
// zero without reaching it; there is no floor.
func Weight(ageDays float64) float64 {
	return math.Exp(-ageDays / HalfLifeDays)
}

// WeightAt returns the recency weight of a record created at t relative to
// the reference time now. Records newer than the reference get weight 1.
func WeightAt(t, now time.Time) float64 {
	age := now.Sub(t).Hours() / 24
	if age < 0 {
		age = 0
	}
	return Weight(age)
}
