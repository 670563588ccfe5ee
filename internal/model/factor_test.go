package model

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFactorRecord_Perf(t *testing.T) {
	rec := FactorRecord{
		ID:     1,
		Name:   "Chips AI",
		Perf1D: Float(0.01),
		Perf5D: Float(0.02),
		Perf1M: Float(0.03),
		Perf3M: Float(0.04),
		Perf6M: Float(0.05),
		Perf1Y: Float(0.06),
	}
	want := map[Horizon]float64{
		Horizon1D: 0.01, Horizon5D: 0.02, Horizon1M: 0.03,
		Horizon3M: 0.04, Horizon6M: 0.05, Horizon12M: 0.06,
	}
	for h, v := range want {
		got, err := rec.Perf(h)
		require.NoError(t, err)
		require.NotNil(t, got, h.String())
		assert.Equal(t, v, *got, h.String())
	}
}

func TestFactorRecord_PerfMissingAndUnknown(t *testing.T) {
	rec := FactorRecord{ID: 2, Name: "Team TPU"}

	got, err := rec.Perf(Horizon3M)
	require.NoError(t, err)
	assert.Nil(t, got)

	_, err = rec.Perf(Horizon(0))
	assert.ErrorIs(t, err, ErrUnknownHorizon)
	_, err = rec.Perf(Horizon(42))
	assert.ErrorIs(t, err, ErrUnknownHorizon)
}

func TestFactorRecord_DecodeWire(t *testing.T) {
	body := `{"id":7,"name":"Power AI Theme","description":"grid","type":"THEMATIC",
		"perf_1d":0.012,"perf_5d":null,"perf_1m":-0.03,"perf_3m":0.1,"perf_6m":null,"perf_1y":0.4,
		"num_holdings":31}`
	var rec FactorRecord
	require.NoError(t, json.Unmarshal([]byte(body), &rec))

	assert.Equal(t, 7, rec.ID)
	assert.Equal(t, FactorTypeThematic, rec.Type)
	assert.Nil(t, rec.Perf5D)
	require.NotNil(t, rec.Perf1Y)
	assert.Equal(t, 0.4, *rec.Perf1Y)
	require.NotNil(t, rec.NumHoldings)
	assert.Equal(t, 31, *rec.NumHoldings)
	assert.NoError(t, rec.Validate())
}

func TestFactorRecord_Validate(t *testing.T) {
	neg := -1
	tests := []struct {
		name string
		rec  FactorRecord
	}{
		{"empty name", FactorRecord{ID: 1}},
		{"negative holdings", FactorRecord{ID: 1, Name: "x", NumHoldings: &neg}},
		{"nan return", FactorRecord{ID: 1, Name: "x", Perf1M: Float(math.NaN())}},
		{"inf return", FactorRecord{ID: 1, Name: "x", Perf1Y: Float(math.Inf(1))}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Error(t, tt.rec.Validate())
		})
	}
}

func TestFactorSnapshot_Find(t *testing.T) {
	snap := FactorSnapshot{Records: []FactorRecord{{ID: 1, Name: "a"}, {ID: 2, Name: "b"}}}

	rec, ok := snap.Find(2)
	require.True(t, ok)
	assert.Equal(t, "b", rec.Name)

	_, ok = snap.Find(3)
	assert.False(t, ok)

	rec, ok = snap.FindByName("a")
	require.True(t, ok)
	assert.Equal(t, 1, rec.ID)

	rec, ok = snap.FindByName("B")
	require.True(t, ok)
	assert.Equal(t, 2, rec.ID)

	_, ok = snap.FindByName("ab")
	assert.False(t, ok)
}
