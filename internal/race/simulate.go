package race

import (
	"sort"

	"github.com/lox/horserace/internal/randutil"
)

// Tuning constants. These are empirical and kept as literals.
const (
	msPerMeter = 8.0

	referenceDistance = 1700.0
	distanceWeight    = 0.1

	jitterMax = 0.3

	randomFactorMin = 0.8
	randomFactorMax = 1.2
)

// Speed returns the dimensionless speed multiplier for a horse over distance.
func Speed(h Horse, distance int, rng randutil.Source) float64 {
	// 0.5 to 1.5
	conditionFactor := float64(h.Condition)/100 + 0.5

	normalized := (float64(distance) - referenceDistance) / 1000
	distanceFactor := 1 + normalized*distanceWeight + randutil.Uniform(rng, 0, jitterMax)

	randomFactor := randutil.Uniform(rng, randomFactorMin, randomFactorMax)

	return conditionFactor * distanceFactor * randomFactor
}

// BaseTime is the unit-speed time for a distance in milliseconds.
func BaseTime(distance int) float64 {
	return float64(distance) * msPerMeter
}

// Simulate computes a finish time for every runner in r and returns copies
// ordered fastest first with positions reset. r is not modified. Equal finish
// times keep their field order.
func Simulate(r *Race, rng randutil.Source) []Horse {
	base := BaseTime(r.Distance)

	ordering := make([]Horse, len(r.Horses))
	for i, h := range r.Horses {
		h.FinishTime = base / Speed(h, r.Distance, rng)
		h.Position = 0
		ordering[i] = h
	}

	sort.SliceStable(ordering, func(i, j int) bool {
		return ordering[i].FinishTime < ordering[j].FinishTime
	})
	return ordering
}

// SlowestFinishTime returns the largest finish time in ordering, or zero.
func SlowestFinishTime(ordering []Horse) float64 {
	var slowest float64
	for _, h := range ordering {
		if h.FinishTime > slowest {
			slowest = h.FinishTime
		}
	}
	return slowest
}
