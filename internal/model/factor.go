package model

import (
	"fmt"
	"math"
	"strings"
	"time"
)

// Factor type labels used by the backend.
const (
	FactorTypeThematic    = "THEMATIC"
	FactorTypeStatistical = "STATISTICAL"
)

// FactorRecord is one named factor with its returns per horizon.
// A nil return means the backend has not computed it yet.
type FactorRecord struct {
	ID          int      `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Type        string   `json:"type,omitempty"`
	Perf1D      *float64 `json:"perf_1d"`
	Perf5D      *float64 `json:"perf_5d"`
	Perf1M      *float64 `json:"perf_1m"`
	Perf3M      *float64 `json:"perf_3m"`
	Perf6M      *float64 `json:"perf_6m"`
	Perf1Y      *float64 `json:"perf_1y"`
	NumHoldings *int     `json:"num_holdings"`
}

// Perf returns the record's return for the given horizon, or nil when absent.
func (r *FactorRecord) Perf(h Horizon) (*float64, error) {
	switch h {
	case Horizon1D:
		return r.Perf1D, nil
	case Horizon5D:
		return r.Perf5D, nil
	case Horizon1M:
		return r.Perf1M, nil
	case Horizon3M:
		return r.Perf3M, nil
	case Horizon6M:
		return r.Perf6M, nil
	case Horizon12M:
		return r.Perf1Y, nil
	}
	return nil, fmt.Errorf("%w: %d", ErrUnknownHorizon, int(h))
}

// Series returns the six returns in chronological horizon order.
func (r *FactorRecord) Series() []*float64 {
	return []*float64{r.Perf1D, r.Perf5D, r.Perf1M, r.Perf3M, r.Perf6M, r.Perf1Y}
}

// Validate checks the record for values the backend should never send.
func (r *FactorRecord) Validate() error {
	if r.Name == "" {
		return fmt.Errorf("factor %d: empty name", r.ID)
	}
	if r.NumHoldings != nil && *r.NumHoldings < 0 {
		return fmt.Errorf("factor %q: negative num_holdings %d", r.Name, *r.NumHoldings)
	}
	for i, v := range r.Series() {
		if v != nil && (math.IsNaN(*v) || math.IsInf(*v, 0)) {
			return fmt.Errorf("factor %q: non-finite %s", r.Name, AllHorizons[i].Field())
		}
	}
	return nil
}

// FactorSnapshot is one fetched collection of records.
type FactorSnapshot struct {
	Source    string         `json:"source"`
	FetchedAt time.Time      `json:"fetched_at"`
	Records   []FactorRecord `json:"records"`
}

// Find returns the record with the given id.
func (s *FactorSnapshot) Find(id int) (*FactorRecord, bool) {
	for i := range s.Records {
		if s.Records[i].ID == id {
			return &s.Records[i], true
		}
	}
	return nil, false
}

// FindByName returns the first record whose name matches, ignoring case.
func (s *FactorSnapshot) FindByName(name string) (*FactorRecord, bool) {
	for i := range s.Records {
		if strings.EqualFold(s.Records[i].Name, name) {
			return &s.Records[i], true
		}
	}
	return nil, false
}

// Float is a helper for building nullable returns.
func Float(v float64) *float64 { return &v }
