package rotation

import (
	"math"

	"FactorPulse/internal/model"
)

// Classify assigns a short-term (x) / medium-term (y) return pair to its
// quadrant. Zero counts as non-negative, so the origin and both axes fall
// into Leaders.
func Classify(x, y float64) model.Quadrant {
	switch {
	case x >= 0 && y >= 0:
		return model.QuadrantLeaders
	case x < 0 && y >= 0:
		return model.QuadrantFading
	case x >= 0 && y < 0:
		return model.QuadrantRecovering
	default:
		return model.QuadrantLaggards
	}
}

// NewPoint builds a classified scatter point.
func NewPoint(rec *model.FactorRecord, x, y float64) model.ScatterPoint {
	return model.ScatterPoint{
		ID:        rec.ID,
		Name:      rec.Name,
		X:         x,
		Y:         y,
		Quadrant:  Classify(x, y),
		Magnitude: math.Abs(x) + math.Abs(y),
	}
}
