package rotation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"FactorPulse/internal/model"
)

func TestClassify_Boundaries(t *testing.T) {
	tests := []struct {
		x, y float64
		want model.Quadrant
	}{
		{0.05, 0.10, model.QuadrantLeaders},
		{0, 0, model.QuadrantLeaders},
		{0, 0.2, model.QuadrantLeaders},
		{0.2, 0, model.QuadrantLeaders},
		{-0.01, 0.10, model.QuadrantFading},
		{-0.01, 0, model.QuadrantFading},
		{0.03, -0.02, model.QuadrantRecovering},
		{0, -0.02, model.QuadrantRecovering},
		{-0.03, -0.02, model.QuadrantLaggards},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Classify(tt.x, tt.y), "(%v, %v)", tt.x, tt.y)
	}
}

func TestClassify_TotalAndExclusive(t *testing.T) {
	grid := []float64{-1, -0.5, -1e-9, 0, 1e-9, 0.5, 1}
	for _, x := range grid {
		for _, y := range grid {
			q := Classify(x, y)
			matches := 0
			if x >= 0 && y >= 0 && q == model.QuadrantLeaders {
				matches++
			}
			if x < 0 && y >= 0 && q == model.QuadrantFading {
				matches++
			}
			if x >= 0 && y < 0 && q == model.QuadrantRecovering {
				matches++
			}
			if x < 0 && y < 0 && q == model.QuadrantLaggards {
				matches++
			}
			assert.Equal(t, 1, matches, "(%v, %v) -> %s", x, y, q)
		}
	}
}

func TestNewPoint_Magnitude(t *testing.T) {
	rec := &model.FactorRecord{ID: 3, Name: "Chips AI"}
	p := NewPoint(rec, -0.02, 0.05)

	assert.Equal(t, 3, p.ID)
	assert.Equal(t, "Chips AI", p.Name)
	assert.Equal(t, model.QuadrantFading, p.Quadrant)
	assert.InDelta(t, 0.07, p.Magnitude, 1e-12)
}

func sampleRecords() []model.FactorRecord {
	return []model.FactorRecord{
		{ID: 1, Name: "Leader small", Perf1D: model.Float(0.01), Perf3M: model.Float(0.02)},
		{ID: 2, Name: "Leader big", Perf1D: model.Float(0.05), Perf3M: model.Float(0.20)},
		{ID: 3, Name: "Fader", Perf1D: model.Float(-0.02), Perf3M: model.Float(0.10)},
		{ID: 4, Name: "Recoverer", Perf1D: model.Float(0.03), Perf3M: model.Float(-0.10)},
		{ID: 5, Name: "Laggard", Perf1D: model.Float(-0.04), Perf3M: model.Float(-0.30)},
		{ID: 6, Name: "No medium", Perf1D: model.Float(0.04)},
		{ID: 7, Name: "Leader tie", Perf1D: model.Float(0.02), Perf3M: model.Float(0.01)},
	}
}

func TestBuild(t *testing.T) {
	view, err := Build(sampleRecords(), model.Horizon1D, model.Horizon3M)
	require.NoError(t, err)

	assert.Equal(t, model.Horizon1D, view.X)
	assert.Equal(t, model.Horizon3M, view.Y)
	assert.Len(t, view.Points, 6)
	assert.Equal(t, []string{"No medium"}, view.Skipped)

	require.Len(t, view.Groups, 4)
	leaders := view.Group(model.QuadrantLeaders)
	require.Len(t, leaders.Points, 3)
	assert.Equal(t, "Leader big", leaders.Points[0].Name)
	// Equal magnitudes keep input order.
	assert.Equal(t, "Leader small", leaders.Points[1].Name)
	assert.Equal(t, "Leader tie", leaders.Points[2].Name)

	assert.Len(t, view.Group(model.QuadrantFading).Points, 1)
	assert.Len(t, view.Group(model.QuadrantRecovering).Points, 1)
	assert.Len(t, view.Group(model.QuadrantLaggards).Points, 1)

	assert.InDelta(t, -0.33, view.DomainMin, 1e-12)
	assert.InDelta(t, 0.33, view.DomainMax, 1e-12)
}

func TestBuild_EmptyInput(t *testing.T) {
	view, err := Build(nil, model.Horizon5D, model.Horizon12M)
	require.NoError(t, err)
	assert.Empty(t, view.Points)
	assert.InDelta(t, -0.1, view.DomainMin, 1e-12)
	assert.InDelta(t, 0.1, view.DomainMax, 1e-12)
	for _, g := range view.Groups {
		assert.NotNil(t, g.Points)
		assert.Empty(t, g.Points)
	}
}

func TestBuild_AxisValidation(t *testing.T) {
	_, err := Build(sampleRecords(), model.Horizon3M, model.Horizon3M)
	assert.ErrorIs(t, err, ErrInvalidAxis)

	_, err = Build(sampleRecords(), model.Horizon1D, model.Horizon5D)
	assert.ErrorIs(t, err, ErrInvalidAxis)

	// 1M is offered on both axes.
	_, err = Build(sampleRecords(), model.Horizon1M, model.Horizon1M)
	assert.NoError(t, err)
}

func TestScatter_UnknownHorizon(t *testing.T) {
	_, _, err := Scatter(sampleRecords(), model.Horizon(0), model.Horizon3M)
	assert.ErrorIs(t, err, model.ErrUnknownHorizon)
}
