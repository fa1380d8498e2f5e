package montecarlo

import "math"

// quantile returns the linear-interpolation quantile of a sorted slice at
// the 0-indexed position q*(n-1). sorted must be non-empty and ascending.
func quantile(sorted []float64, q float64) float64 {
	n := len(sorted)
	if n == 1 {
		return sorted[0]
	}
	pos := q * float64(n-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo == hi {
		return sorted[lo]
	}
	frac := pos - float64(lo)
	return sorted[lo]*(1-frac) + sorted[hi]*frac
}

// bandQuantiles returns the (low, high) quantile pair for a central
// confidence level, e.g. confidence=0.8 -> (0.1, 0.9).
func bandQuantiles(confidence float64) (low, high float64) {
	tail := (1 - confidence) / 2
	return tail, 1 - tail
}

func roundToInt(v float64) int {
	return int(math.Round(v))
}
