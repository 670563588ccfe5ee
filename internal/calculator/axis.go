package calculator

import (
	"math"

	"FactorPulse/internal/model"
)

const (
	minAxisExtent  = 0.01
	axisPadding    = 1.1
	fallbackExtent = 0.1
)

// AxisDomain returns the symmetric scatter domain covering every point with
// 10% headroom. An empty set gets a fixed ±0.1 domain, and the extent never
// drops below 0.01 so points at the origin still get a usable chart.
func AxisDomain(points []model.ScatterPoint) (low, high float64) {
	if len(points) == 0 {
		return -fallbackExtent, fallbackExtent
	}
	maxAbs := minAxisExtent
	for _, p := range points {
		maxAbs = math.Max(maxAbs, math.Abs(p.X))
		maxAbs = math.Max(maxAbs, math.Abs(p.Y))
	}
	return -maxAbs * axisPadding, maxAbs * axisPadding
}
