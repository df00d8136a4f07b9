package analysis

import (
	"math"

	"github.com/i474232898/agroclima/internal/common"
)

// Slope fits y = a + b·x by ordinary least squares, with x the 0-based
// position of each finite value, and returns b. Non-finite values are dropped
// before indexing. Fewer than two points give 0.
func Slope(series []float64) float64 {
	ys := make([]float64, 0, len(series))
	for _, v := range series {
		if common.IsFinite(v) {
			ys = append(ys, v)
		}
	}

	n := len(ys)
	if n < 2 {
		return 0
	}

	xMean := float64(n-1) / 2
	yMean := common.Mean(ys)

	var sxy, sxx float64
	for i, y := range ys {
		dx := float64(i) - xMean
		sxy += dx * (y - yMean)
		sxx += dx * dx
	}
	return sxy / sxx
}

// InterpretTrend reads a slope: |s| < 0.1 is stable, otherwise its sign decides.
func InterpretTrend(slope float64) Trend {
	switch {
	case math.Abs(slope) < stableSlope:
		return TrendStable
	case slope > 0:
		return TrendIncreasing
	default:
		return TrendDecreasing
	}
}

// EstimateTrend fits the series and interprets the slope.
func EstimateTrend(series []float64) TrendEstimate {
	s := Slope(series)
	return TrendEstimate{Slope: s, Direction: InterpretTrend(s)}
}
