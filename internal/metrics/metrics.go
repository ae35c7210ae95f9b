// Package metrics scores recorded runs. Every metric implements
// dynamo.Metric and can either observe a live simulation or replay a
// stored Result.
package metrics

import "github.com/san-kum/quadsim/internal/dynamo"

// DefaultStabilityThreshold is the position error (m) counted as a loss of
// tracking by Stability.
const DefaultStabilityThreshold = 1.0

// Default returns a fresh set of the standard metrics.
func Default() []dynamo.Metric {
	ms := []dynamo.Metric{
		NewPositionRMSE(),
		NewMaxPositionError(),
		NewFinalPositionError(),
		NewControlEnergy(),
		NewPeakThrust(),
	}
	for _, p := range NewPeakTorques() {
		ms = append(ms, p)
	}
	return append(ms, NewStability(DefaultStabilityThreshold), NewQuatNormDrift())
}

// Evaluate replays res through ms and returns the values by name. The
// metrics are reset first.
func Evaluate(res *dynamo.Result, ms ...dynamo.Metric) map[string]float64 {
	if len(ms) == 0 {
		ms = Default()
	}
	for _, m := range ms {
		m.Reset()
	}
	for k := 0; k < res.Len(); k++ {
		s := res.Sample(k)
		for _, m := range ms {
			m.Observe(s)
		}
	}
	out := make(map[string]float64, len(ms))
	for _, m := range ms {
		out[m.Name()] = m.Value()
	}
	return out
}
