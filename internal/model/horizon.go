package model

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnknownHorizon is returned for any horizon outside the fixed set.
var ErrUnknownHorizon = errors.New("unknown horizon")

// Horizon is a fixed look-back window for which a factor return exists.
// The zero value is not a valid horizon.
type Horizon int

const (
	Horizon1D Horizon = iota + 1
	Horizon5D
	Horizon1M
	Horizon3M
	Horizon6M
	Horizon12M
)

// AllHorizons lists every horizon in chronological order (shortest first).
// Sparklines are drawn over this order.
var AllHorizons = []Horizon{Horizon1D, Horizon5D, Horizon1M, Horizon3M, Horizon6M, Horizon12M}

// ShortTermHorizons are the x-axis choices of the rotation view.
var ShortTermHorizons = []Horizon{Horizon1D, Horizon5D, Horizon1M}

// MediumTermHorizons are the y-axis choices of the rotation view.
var MediumTermHorizons = []Horizon{Horizon1M, Horizon3M, Horizon6M, Horizon12M}

var horizonTokens = map[Horizon]string{
	Horizon1D:  "1D",
	Horizon5D:  "5D",
	Horizon1M:  "1M",
	Horizon3M:  "3M",
	Horizon6M:  "6M",
	Horizon12M: "12M",
}

// horizonFields maps each horizon to its backend wire field.
var horizonFields = map[Horizon]string{
	Horizon1D:  "perf_1d",
	Horizon5D:  "perf_5d",
	Horizon1M:  "perf_1m",
	Horizon3M:  "perf_3m",
	Horizon6M:  "perf_6m",
	Horizon12M: "perf_1y",
}

// ParseHorizon parses a horizon token such as "1D" or "12m".
// "1Y" is accepted as an alias of 12M since the backend names that field perf_1y.
func ParseHorizon(s string) (Horizon, error) {
	token := strings.ToUpper(strings.TrimSpace(s))
	if token == "1Y" {
		return Horizon12M, nil
	}
	for h, t := range horizonTokens {
		if t == token {
			return h, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownHorizon, s)
}

// Valid reports whether h is one of the six known horizons.
func (h Horizon) Valid() bool {
	_, ok := horizonTokens[h]
	return ok
}

func (h Horizon) String() string {
	if t, ok := horizonTokens[h]; ok {
		return t
	}
	return fmt.Sprintf("Horizon(%d)", int(h))
}

// Field returns the backend JSON field that carries this horizon's return.
func (h Horizon) Field() string {
	return horizonFields[h]
}

// IsShortTerm reports whether h is a valid rotation x-axis choice.
func (h Horizon) IsShortTerm() bool {
	return containsHorizon(ShortTermHorizons, h)
}

// IsMediumTerm reports whether h is a valid rotation y-axis choice.
func (h Horizon) IsMediumTerm() bool {
	return containsHorizon(MediumTermHorizons, h)
}

// MarshalText encodes the horizon as its token.
func (h Horizon) MarshalText() ([]byte, error) {
	if !h.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrUnknownHorizon, int(h))
	}
	return []byte(h.String()), nil
}

// UnmarshalText decodes a horizon token, so horizons can be used in YAML and JSON.
func (h *Horizon) UnmarshalText(text []byte) error {
	parsed, err := ParseHorizon(string(text))
	if err != nil {
		return err
	}
	*h = parsed
	return nil
}

func containsHorizon(set []Horizon, h Horizon) bool {
	for _, v := range set {
		if v == h {
			return true
		}
	}
	return false
}
