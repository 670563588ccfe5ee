package calculator

import (
	"errors"
	"math"
)

// ErrInvalidSample is returned when a series value is not a finite number
// or the series is too short to draw.
var ErrInvalidSample = errors.New("invalid sample")

// seriesRange scans the values and returns the low and high.
// Nil samples count as zero.
func seriesRange(values []*float64) (low, high float64, err error) {
	if len(values) == 0 {
		return 0, 0, errors.New("no samples provided")
	}
	low = math.Inf(1)
	high = math.Inf(-1)
	for _, v := range values {
		x := valueOrZero(v)
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return 0, 0, ErrInvalidSample
		}
		if x > high {
			high = x
		}
		if x < low {
			low = x
		}
	}
	return low, high, nil
}

func valueOrZero(v *float64) float64 {
	if v == nil {
		return 0
	}
	return *v
}
