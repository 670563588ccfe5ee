package calculator

import (
	"errors"
	"fmt"
	"math"

	"FactorPulse/internal/model"
)

// ErrInvalidBox is returned when the drawing box leaves no room inside its padding.
var ErrInvalidBox = errors.New("invalid sparkline box")

// Box is the pixel area a sparkline is scaled into.
type Box struct {
	Width   float64 `json:"width"`
	Height  float64 `json:"height"`
	Padding float64 `json:"padding"`
}

// DefaultBox matches the inline trend glyph of the factor cards.
var DefaultBox = Box{Width: 64, Height: 24, Padding: 2}

// MaxBoxSide bounds the box width and height.
const MaxBoxSide = 1024

func (b Box) validate() error {
	for _, v := range []float64{b.Width, b.Height, b.Padding} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: non-finite dimension", ErrInvalidBox)
		}
	}
	if b.Padding < 0 {
		return fmt.Errorf("%w: negative padding %.2f", ErrInvalidBox, b.Padding)
	}
	if b.Width > MaxBoxSide || b.Height > MaxBoxSide {
		return fmt.Errorf("%w: %.0fx%.0f exceeds %d per side", ErrInvalidBox, b.Width, b.Height, MaxBoxSide)
	}
	if b.Width-2*b.Padding <= 0 || b.Height-2*b.Padding <= 0 {
		return fmt.Errorf("%w: %.0fx%.0f with padding %.0f", ErrInvalidBox, b.Width, b.Height, b.Padding)
	}
	return nil
}

// Point is a coordinate inside a Box. Y grows downwards.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Sparkline is a fully materialized trend glyph.
type Sparkline struct {
	Points     []Point  `json:"points"`
	ZeroLineY  *float64 `json:"zero_line_y"`
	LastPoint  Point    `json:"last_point"`
	IsPositive bool     `json:"is_positive"`
	Min        float64  `json:"min"`
	Max        float64  `json:"max"`
}

// NormalizeSparkline maps the samples into box with a min-max affine transform.
// Missing samples are drawn at zero. A zero range is replaced by 1 so a flat
// series renders as a flat line. ZeroLineY is only set when the series
// crosses zero. IsPositive follows selected, the value at the horizon the
// caller is displaying, not the last sample.
func NormalizeSparkline(samples []*float64, selected *float64, box Box) (*Sparkline, error) {
	if len(samples) < 2 {
		return nil, fmt.Errorf("%w: need at least 2 samples, got %d", ErrInvalidSample, len(samples))
	}
	if err := box.validate(); err != nil {
		return nil, err
	}
	low, high, err := seriesRange(samples)
	if err != nil {
		return nil, err
	}

	rng := high - low
	if rng == 0 {
		rng = 1
	}
	innerW := box.Width - 2*box.Padding
	innerH := box.Height - 2*box.Padding
	last := float64(len(samples) - 1)

	scaleY := func(v float64) float64 {
		return box.Height - box.Padding - ((v-low)/rng)*innerH
	}

	points := make([]Point, len(samples))
	for i, s := range samples {
		points[i] = Point{
			X: box.Padding + float64(i)/last*innerW,
			Y: scaleY(valueOrZero(s)),
		}
	}

	line := &Sparkline{
		Points:     points,
		LastPoint:  points[len(points)-1],
		IsPositive: selected != nil && *selected >= 0,
		Min:        low,
		Max:        high,
	}
	if low < 0 && high > 0 {
		zy := scaleY(0)
		line.ZeroLineY = &zy
	}
	return line, nil
}

// SparklineFor draws the six-horizon series of a record, coloured by the
// return at the selected horizon.
func SparklineFor(rec *model.FactorRecord, selected model.Horizon, box Box) (*Sparkline, error) {
	value, err := rec.Perf(selected)
	if err != nil {
		return nil, err
	}
	return NormalizeSparkline(rec.Series(), value, box)
}
