package board

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"FactorPulse/internal/calculator"
	"FactorPulse/internal/model"
	"FactorPulse/internal/ranking"
	"FactorPulse/internal/rotation"
)

type staticSource struct {
	snap *model.FactorSnapshot
	err  error
}

func (s staticSource) Snapshot(context.Context) (*model.FactorSnapshot, error) {
	return s.snap, s.err
}

func newService() *Service {
	snap := &model.FactorSnapshot{
		Source:    "mock",
		FetchedAt: time.Date(2025, 4, 1, 12, 0, 0, 0, time.UTC),
		Records: []model.FactorRecord{
			{ID: 1, Name: "AI Infrastructure", Type: model.FactorTypeThematic,
				Perf1D: model.Float(0.01), Perf5D: model.Float(-0.02), Perf1M: model.Float(0.03),
				Perf3M: model.Float(-0.01), Perf6M: model.Float(0.05), Perf1Y: model.Float(0.08)},
			{ID: 2, Name: "AI Software", Type: model.FactorTypeThematic,
				Perf1D: model.Float(-0.02), Perf1M: model.Float(-0.01), Perf3M: model.Float(0.04)},
			{ID: 3, Name: "Momentum", Type: model.FactorTypeStatistical,
				Perf1D: model.Float(0.005), Perf1M: model.Float(0.02), Perf3M: model.Float(-0.03)},
			{ID: 4, Name: "Value", Type: "statistical",
				Perf1D: nil, Perf1M: model.Float(-0.04), Perf3M: model.Float(-0.02)},
		},
	}
	return NewService(staticSource{snap: snap}, zerolog.Nop())
}

func names(list []ranking.RankedFactor) []string {
	out := make([]string, len(list))
	for i, rf := range list {
		out[i] = rf.Record.Name
	}
	return out
}

func TestRankings(t *testing.T) {
	s := newService()
	r, err := s.Rankings(context.Background(), model.Horizon1D, 2)
	require.NoError(t, err)

	assert.Equal(t, model.Horizon1D, r.Horizon)
	assert.Equal(t, 2, r.N)
	assert.Equal(t, []string{"AI Infrastructure", "Momentum"}, names(r.Top))
	assert.Equal(t, []string{"Value", "AI Software"}, names(r.Bottom))

	r, err = s.Rankings(context.Background(), model.Horizon1D, 10)
	require.NoError(t, err)
	assert.Equal(t, 4, r.N)

	_, err = s.Rankings(context.Background(), model.Horizon1D, -1)
	assert.ErrorIs(t, err, ranking.ErrInvalidCount)

	_, err = s.Rankings(context.Background(), model.Horizon(42), 3)
	assert.ErrorIs(t, err, model.ErrUnknownHorizon)
}

func TestRotation(t *testing.T) {
	s := newService()
	view, err := s.Rotation(context.Background(), model.Horizon1D, model.Horizon3M)
	require.NoError(t, err)

	assert.Len(t, view.Points, 3)
	assert.Equal(t, []string{"Value"}, view.Skipped)
	assert.Len(t, view.Group(model.QuadrantFading).Points, 1)
	assert.Len(t, view.Group(model.QuadrantRecovering).Points, 2)

	_, err = s.Rotation(context.Background(), model.Horizon6M, model.Horizon3M)
	assert.ErrorIs(t, err, rotation.ErrInvalidAxis)
}

func TestSparkline(t *testing.T) {
	s := newService()
	sv, err := s.Sparkline(context.Background(), 1, model.Horizon5D, calculator.DefaultBox)
	require.NoError(t, err)

	assert.Equal(t, "AI Infrastructure", sv.Name)
	assert.Equal(t, model.Horizon5D, sv.Horizon)
	assert.Len(t, sv.Points, 6)
	assert.False(t, sv.IsPositive)
	require.NotNil(t, sv.ZeroLineY)
	assert.InDelta(t, 18, *sv.ZeroLineY, 1e-9)

	_, err = s.Sparkline(context.Background(), 99, model.Horizon1D, calculator.DefaultBox)
	assert.ErrorIs(t, err, ErrFactorNotFound)

	_, err = s.Sparkline(context.Background(), 1, model.Horizon1D, calculator.Box{Width: 4, Height: 4, Padding: 2})
	assert.ErrorIs(t, err, calculator.ErrInvalidBox)
}

func TestFactorByName(t *testing.T) {
	s := newService()
	ctx := context.Background()

	rec, err := s.FactorByName(ctx, "momentum")
	require.NoError(t, err)
	assert.Equal(t, 3, rec.ID)

	rec, err = s.FactorByName(ctx, "software")
	require.NoError(t, err)
	assert.Equal(t, 2, rec.ID)

	_, err = s.FactorByName(ctx, "AI")
	assert.ErrorIs(t, err, ErrFactorNotFound)
	assert.Contains(t, err.Error(), "ambiguous")

	_, err = s.FactorByName(ctx, "quality")
	assert.ErrorIs(t, err, ErrFactorNotFound)
}

func TestFactorByName_ExactNameBeatsPartialMatches(t *testing.T) {
	snap := &model.FactorSnapshot{Records: []model.FactorRecord{
		{ID: 1, Name: "Deep Value"},
		{ID: 2, Name: "Value"},
		{ID: 3, Name: "Value Momentum"},
	}}
	s := NewService(staticSource{snap: snap}, zerolog.Nop())

	rec, err := s.FactorByName(context.Background(), "  VALUE ")
	require.NoError(t, err)
	assert.Equal(t, 2, rec.ID)

	_, err = s.FactorByName(context.Background(), "valu")
	assert.ErrorIs(t, err, ErrFactorNotFound)
}

func TestFactors(t *testing.T) {
	s := newService()
	ctx := context.Background()

	all, err := s.Factors(ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, 4)

	stat, err := s.Factors(ctx, "statistical")
	require.NoError(t, err)
	assert.Len(t, stat, 2)

	_, err = s.Factors(ctx, "macro")
	assert.ErrorIs(t, err, ErrInvalidType)
}

func TestSummary(t *testing.T) {
	sum, err := newService().Summary(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 4, sum.Factors)
	assert.Equal(t, 2, sum.Thematic)
	assert.Equal(t, 2, sum.Statistical)
	require.Len(t, sum.Horizons, 6)
	assert.Equal(t, 3, sum.Horizons[0].Count)
	assert.Equal(t, 1, sum.Horizons[0].Missing)
	assert.Equal(t, "AI Infrastructure", sum.Horizons[0].Best)
	assert.Equal(t, "AI Software", sum.Horizons[0].Worst)
}

func TestSourceError(t *testing.T) {
	boom := errors.New("backend down")
	s := NewService(staticSource{err: boom}, zerolog.Nop())

	_, err := s.Rankings(context.Background(), model.Horizon1D, 3)
	assert.ErrorIs(t, err, boom)
	_, err = s.Summary(context.Background())
	assert.ErrorIs(t, err, boom)
}
