package common

import "math"

// RoundTo rounds v to the given number of decimal places. Ties go to the
// even digit, so 20.25 rounds to 20.2.
func RoundTo(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.RoundToEven(v*p) / p
}

// Round1 rounds v to one decimal place.
func Round1(v float64) float64 {
	return RoundTo(v, 1)
}

// Mean returns the arithmetic mean of values, or 0 for an empty slice.
func Mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// IsFinite reports whether v is neither NaN nor ±Inf.
func IsFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
