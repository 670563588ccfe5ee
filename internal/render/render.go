// Package render draws sparklines and the rotation scatter as PNG images.
package render

import (
	"bytes"
	"errors"
	"fmt"
	"math"

	"github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"

	"FactorPulse/internal/calculator"
	"FactorPulse/internal/model"
	"FactorPulse/internal/rotation"
)

var (
	// ErrNothingToDraw is returned when there are no points to render.
	ErrNothingToDraw = errors.New("nothing to draw")
	// ErrTooLarge is returned when the requested image exceeds MaxImageSide.
	ErrTooLarge = errors.New("image too large")
)

var (
	colorPositive = drawing.ColorFromHex("16a34a")
	colorNegative = drawing.ColorFromHex("dc2626")
	colorZeroLine = drawing.ColorFromHex("9ca3af")

	quadrantColors = map[model.Quadrant]drawing.Color{
		model.QuadrantLeaders:    drawing.ColorFromHex("16a34a"),
		model.QuadrantFading:     drawing.ColorFromHex("eab308"),
		model.QuadrantRecovering: drawing.ColorFromHex("2563eb"),
		model.QuadrantLaggards:   drawing.ColorFromHex("dc2626"),
	}
)

const (
	// DefaultScale is the pixel multiplier applied to the sparkline box.
	DefaultScale = 4
	// MaxImageSide bounds either side of a rendered image in pixels.
	MaxImageSide = 4096
)

// imageSide converts a scaled dimension to pixels, rejecting anything that
// is not a positive finite size within MaxImageSide.
func imageSide(v float64, scale int) (int, error) {
	px := v * float64(scale)
	if math.IsNaN(px) || px < 1 || px > MaxImageSide {
		return 0, fmt.Errorf("%w: %.0f px (max %d)", ErrTooLarge, px, MaxImageSide)
	}
	return int(px), nil
}

func hidden() chart.Style {
	return chart.Style{Hidden: true}
}

func dotStyle(col drawing.Color) chart.Style {
	return chart.Style{
		StrokeWidth: chart.Disabled,
		DotWidth:    5,
		DotColor:    col,
	}
}

// SparklinePNG draws a normalized sparkline. The points are already in box
// coordinates (y down), so the chart ranges are the box itself; scale
// enlarges the image without changing the shape.
func SparklinePNG(sl *calculator.Sparkline, box calculator.Box, scale int) ([]byte, error) {
	if sl == nil || len(sl.Points) == 0 {
		return nil, ErrNothingToDraw
	}
	if scale <= 0 {
		scale = DefaultScale
	}
	width, err := imageSide(box.Width, scale)
	if err != nil {
		return nil, err
	}
	height, err := imageSide(box.Height, scale)
	if err != nil {
		return nil, err
	}

	flip := func(y float64) float64 { return box.Height - y }

	xs := make([]float64, len(sl.Points))
	ys := make([]float64, len(sl.Points))
	for i, p := range sl.Points {
		xs[i], ys[i] = p.X, flip(p.Y)
	}

	col := colorNegative
	if sl.IsPositive {
		col = colorPositive
	}

	var series []chart.Series
	if sl.ZeroLineY != nil {
		zero := flip(*sl.ZeroLineY)
		series = append(series, chart.ContinuousSeries{
			Name:    "zero",
			XValues: []float64{box.Padding, box.Width - box.Padding},
			YValues: []float64{zero, zero},
			Style: chart.Style{
				StrokeWidth:     1,
				StrokeColor:     colorZeroLine,
				StrokeDashArray: []float64{3, 3},
			},
		})
	}
	series = append(series,
		chart.ContinuousSeries{
			Name:    "returns",
			XValues: xs,
			YValues: ys,
			Style:   chart.Style{StrokeWidth: 2, StrokeColor: col},
		},
		chart.ContinuousSeries{
			Name:    "last",
			XValues: []float64{sl.LastPoint.X},
			YValues: []float64{flip(sl.LastPoint.Y)},
			Style:   dotStyle(col),
		},
	)

	ch := chart.Chart{
		Width:      width,
		Height:     height,
		Background: chart.Style{Padding: chart.Box{Top: 1, Left: 1, Right: 1, Bottom: 1}},
		XAxis:      chart.XAxis{Style: hidden(), Range: &chart.ContinuousRange{Min: 0, Max: box.Width}},
		YAxis:      chart.YAxis{Style: hidden(), Range: &chart.ContinuousRange{Min: 0, Max: box.Height}},
		Series:     series,
	}
	return renderPNG(&ch)
}

func percentFormatter(v interface{}) string {
	if f, ok := v.(float64); ok {
		return fmt.Sprintf("%+.0f%%", f*100)
	}
	return ""
}

// RotationPNG draws the rotation scatter with one colour per quadrant and
// the axes crossing at zero.
func RotationPNG(view *rotation.View, width, height int) ([]byte, error) {
	if view == nil || len(view.Points) == 0 {
		return nil, ErrNothingToDraw
	}
	if width <= 0 {
		width = 800
	}
	if height <= 0 {
		height = 800
	}
	if width > MaxImageSide || height > MaxImageSide {
		return nil, fmt.Errorf("%w: %dx%d (max %d)", ErrTooLarge, width, height, MaxImageSide)
	}

	lo, hi := view.DomainMin, view.DomainMax
	axisStyle := chart.Style{StrokeWidth: 1, StrokeColor: colorZeroLine}
	series := []chart.Series{
		chart.ContinuousSeries{XValues: []float64{lo, hi}, YValues: []float64{0, 0}, Style: axisStyle},
		chart.ContinuousSeries{XValues: []float64{0, 0}, YValues: []float64{lo, hi}, Style: axisStyle},
	}
	for _, g := range view.Groups {
		if len(g.Points) == 0 {
			continue
		}
		xs := make([]float64, len(g.Points))
		ys := make([]float64, len(g.Points))
		for i, p := range g.Points {
			xs[i], ys[i] = p.X, p.Y
		}
		series = append(series, chart.ContinuousSeries{
			Name:    fmt.Sprintf("%s (%d)", g.Quadrant, len(g.Points)),
			XValues: xs,
			YValues: ys,
			Style:   dotStyle(quadrantColors[g.Quadrant]),
		})
	}

	ch := chart.Chart{
		Title:      fmt.Sprintf("Factor rotation: %s vs %s", view.X, view.Y),
		Width:      width,
		Height:     height,
		Background: chart.Style{Padding: chart.Box{Top: 40, Left: 16, Right: 16, Bottom: 16}},
		XAxis: chart.XAxis{
			Name:           view.X.String() + " return",
			Range:          &chart.ContinuousRange{Min: lo, Max: hi},
			ValueFormatter: percentFormatter,
		},
		YAxis: chart.YAxis{
			Name:           view.Y.String() + " return",
			Range:          &chart.ContinuousRange{Min: lo, Max: hi},
			ValueFormatter: percentFormatter,
		},
		Series: series,
	}
	return renderPNG(&ch)
}

func renderPNG(ch *chart.Chart) ([]byte, error) {
	var buf bytes.Buffer
	if err := ch.Render(chart.PNG, &buf); err != nil {
		return nil, fmt.Errorf("render chart: %w", err)
	}
	return buf.Bytes(), nil
}
