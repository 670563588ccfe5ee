package model

import "fmt"

// Quadrant classifies a short-term vs medium-term return pair.
type Quadrant int

const (
	QuadrantLeaders Quadrant = iota + 1
	QuadrantFading
	QuadrantRecovering
	QuadrantLaggards
)

// AllQuadrants lists the quadrants in display order.
var AllQuadrants = []Quadrant{QuadrantLeaders, QuadrantFading, QuadrantRecovering, QuadrantLaggards}

func (q Quadrant) String() string {
	switch q {
	case QuadrantLeaders:
		return "Leaders"
	case QuadrantFading:
		return "Fading"
	case QuadrantRecovering:
		return "Recovering"
	case QuadrantLaggards:
		return "Laggards"
	}
	return fmt.Sprintf("Quadrant(%d)", int(q))
}

// MarshalText encodes the quadrant by label.
func (q Quadrant) MarshalText() ([]byte, error) {
	return []byte(q.String()), nil
}

// ScatterPoint is one factor placed on the rotation scatter.
type ScatterPoint struct {
	ID        int      `json:"id"`
	Name      string   `json:"name"`
	X         float64  `json:"x"`
	Y         float64  `json:"y"`
	Quadrant  Quadrant `json:"quadrant"`
	Magnitude float64  `json:"magnitude"`
}
