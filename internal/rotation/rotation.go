// Package rotation builds the short-term vs medium-term factor rotation view.
package rotation

import (
	"errors"
	"fmt"

	"FactorPulse/internal/calculator"
	"FactorPulse/internal/model"
	"FactorPulse/internal/ranking"
)

// ErrInvalidAxis is returned when a horizon is not offered on that axis.
var ErrInvalidAxis = errors.New("horizon not allowed on axis")

// Group is the points of one quadrant, largest magnitude first.
type Group struct {
	Quadrant model.Quadrant       `json:"quadrant"`
	Points   []model.ScatterPoint `json:"points"`
}

// View is the full rotation scatter for one pair of horizons.
type View struct {
	X         model.Horizon        `json:"x"`
	Y         model.Horizon        `json:"y"`
	Points    []model.ScatterPoint `json:"points"`
	Groups    []Group              `json:"groups"`
	DomainMin float64              `json:"domain_min"`
	DomainMax float64              `json:"domain_max"`
	Skipped   []string             `json:"skipped,omitempty"`
}

// Group returns the group for q.
func (v *View) Group(q model.Quadrant) Group {
	for _, g := range v.Groups {
		if g.Quadrant == q {
			return g
		}
	}
	return Group{Quadrant: q}
}

// Scatter places every record with both returns present on the x/y plane.
// Records missing either return are left out and reported by name.
func Scatter(records []model.FactorRecord, x, y model.Horizon) (points []model.ScatterPoint, skipped []string, err error) {
	for i := range records {
		rec := &records[i]
		xv, err := rec.Perf(x)
		if err != nil {
			return nil, nil, err
		}
		yv, err := rec.Perf(y)
		if err != nil {
			return nil, nil, err
		}
		if xv == nil || yv == nil {
			skipped = append(skipped, rec.Name)
			continue
		}
		points = append(points, NewPoint(rec, *xv, *yv))
	}
	return points, skipped, nil
}

// Build computes the rotation view. x must be a short-term horizon and y a
// medium-term one.
func Build(records []model.FactorRecord, x, y model.Horizon) (*View, error) {
	if !x.IsShortTerm() {
		return nil, fmt.Errorf("%w: x=%s", ErrInvalidAxis, x)
	}
	if !y.IsMediumTerm() {
		return nil, fmt.Errorf("%w: y=%s", ErrInvalidAxis, y)
	}

	points, skipped, err := Scatter(records, x, y)
	if err != nil {
		return nil, err
	}

	if points == nil {
		points = []model.ScatterPoint{}
	}

	byQuadrant := make(map[model.Quadrant][]model.ScatterPoint, len(model.AllQuadrants))
	for _, p := range points {
		byQuadrant[p.Quadrant] = append(byQuadrant[p.Quadrant], p)
	}

	view := &View{X: x, Y: y, Points: points, Skipped: skipped}
	for _, q := range model.AllQuadrants {
		view.Groups = append(view.Groups, Group{
			Quadrant: q,
			Points:   ranking.ByMagnitude(byQuadrant[q]),
		})
	}
	view.DomainMin, view.DomainMax = calculator.AxisDomain(points)
	return view, nil
}
