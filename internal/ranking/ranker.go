// Package ranking orders factors for the ranked list views.
package ranking

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"FactorPulse/internal/model"
)

// ErrInvalidCount is returned for a negative list size.
var ErrInvalidCount = errors.New("invalid count")

// RankedFactor is a record with its resolved value at the ranking horizon.
type RankedFactor struct {
	Record model.FactorRecord `json:"record"`
	Value  *float64           `json:"value"`
}

// ByHorizon returns all records sorted by their return at h, best first.
// Missing values rank as negative infinity, so they always sort last; the
// sort is stable, so ties (including all missing values) keep input order.
func ByHorizon(records []model.FactorRecord, h model.Horizon) ([]RankedFactor, error) {
	ranked := make([]RankedFactor, len(records))
	keys := make([]float64, len(records))
	for i := range records {
		v, err := records[i].Perf(h)
		if err != nil {
			return nil, err
		}
		ranked[i] = RankedFactor{Record: records[i], Value: v}
		keys[i] = math.Inf(-1)
		if v != nil {
			keys[i] = *v
		}
	}

	idx := make([]int, len(ranked))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool {
		return keys[idx[a]] > keys[idx[b]]
	})

	out := make([]RankedFactor, len(ranked))
	for i, j := range idx {
		out[i] = ranked[j]
	}
	return out, nil
}

// TopAndBottom returns the n best and n worst factors at h. Bottom is the
// tail of the same descending ranking reversed, so the worst factor comes
// first. When there are fewer than 2n records the two lists overlap.
func TopAndBottom(records []model.FactorRecord, h model.Horizon, n int) (top, bottom []RankedFactor, err error) {
	if n < 0 {
		return nil, nil, fmt.Errorf("%w: %d", ErrInvalidCount, n)
	}
	ranked, err := ByHorizon(records, h)
	if err != nil {
		return nil, nil, err
	}
	if n > len(ranked) {
		n = len(ranked)
	}

	top = append([]RankedFactor(nil), ranked[:n]...)
	bottom = make([]RankedFactor, 0, n)
	for i := len(ranked) - 1; i >= len(ranked)-n; i-- {
		bottom = append(bottom, ranked[i])
	}
	return top, bottom, nil
}

// ByMagnitude returns a copy of points sorted by magnitude, largest first.
// Equal magnitudes keep their input order.
func ByMagnitude(points []model.ScatterPoint) []model.ScatterPoint {
	out := make([]model.ScatterPoint, len(points))
	copy(out, points)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Magnitude > out[j].Magnitude
	})
	return out
}
