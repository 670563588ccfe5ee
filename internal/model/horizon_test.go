package model

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseHorizon(t *testing.T) {
	tests := []struct {
		in   string
		want Horizon
	}{
		{"1D", Horizon1D},
		{"5d", Horizon5D},
		{" 1M ", Horizon1M},
		{"3M", Horizon3M},
		{"6M", Horizon6M},
		{"12M", Horizon12M},
		{"1Y", Horizon12M},
	}
	for _, tt := range tests {
		got, err := ParseHorizon(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}
}

func TestParseHorizon_Unknown(t *testing.T) {
	for _, in := range []string{"", "2D", "1W", "24M", "perf_1d"} {
		_, err := ParseHorizon(in)
		assert.ErrorIs(t, err, ErrUnknownHorizon, in)
	}
}

func TestHorizon_FieldMappingIsTotal(t *testing.T) {
	fields := map[string]bool{}
	for _, h := range AllHorizons {
		f := h.Field()
		require.NotEmpty(t, f, h.String())
		assert.False(t, fields[f], "duplicate field %s", f)
		fields[f] = true
	}
	assert.Equal(t, "perf_1y", Horizon12M.Field())
	assert.Len(t, fields, 6)
}

func TestHorizon_AxisSets(t *testing.T) {
	assert.True(t, Horizon1D.IsShortTerm())
	assert.True(t, Horizon1M.IsShortTerm())
	assert.False(t, Horizon3M.IsShortTerm())

	assert.True(t, Horizon1M.IsMediumTerm())
	assert.True(t, Horizon12M.IsMediumTerm())
	assert.False(t, Horizon5D.IsMediumTerm())
}

func TestHorizon_TextRoundTrip(t *testing.T) {
	var payload struct {
		H Horizon `json:"h"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"h":"6M"}`), &payload))
	assert.Equal(t, Horizon6M, payload.H)

	out, err := json.Marshal(payload)
	require.NoError(t, err)
	assert.JSONEq(t, `{"h":"6M"}`, string(out))

	_, err = Horizon(0).MarshalText()
	assert.ErrorIs(t, err, ErrUnknownHorizon)
}
