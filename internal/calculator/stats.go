package calculator

import (
	"sort"

	"gonum.org/v1/gonum/stat"

	"FactorPulse/internal/model"
)

// HorizonStats summarizes the cross-section of factor returns at one horizon.
type HorizonStats struct {
	Horizon model.Horizon `json:"horizon"`
	Count   int           `json:"count"`
	Missing int           `json:"missing"`
	Mean    float64       `json:"mean"`
	Median  float64       `json:"median"`
	StdDev  float64       `json:"std_dev"`
	Breadth float64       `json:"breadth"` // share of factors at or above zero
	Best    string        `json:"best,omitempty"`
	Worst   string        `json:"worst,omitempty"`
}

// Summarize computes HorizonStats for every horizon.
func Summarize(records []model.FactorRecord) []HorizonStats {
	out := make([]HorizonStats, 0, len(model.AllHorizons))
	for _, h := range model.AllHorizons {
		out = append(out, summarizeHorizon(records, h))
	}
	return out
}

func summarizeHorizon(records []model.FactorRecord, h model.Horizon) HorizonStats {
	s := HorizonStats{Horizon: h}
	values := make([]float64, 0, len(records))
	var bestVal, worstVal float64
	var nonNegative int

	for i := range records {
		v, _ := records[i].Perf(h)
		if v == nil {
			s.Missing++
			continue
		}
		if len(values) == 0 || *v > bestVal {
			bestVal, s.Best = *v, records[i].Name
		}
		if len(values) == 0 || *v < worstVal {
			worstVal, s.Worst = *v, records[i].Name
		}
		if *v >= 0 {
			nonNegative++
		}
		values = append(values, *v)
	}

	s.Count = len(values)
	if s.Count == 0 {
		return s
	}
	s.Mean = stat.Mean(values, nil)
	if s.Count > 1 {
		s.StdDev = stat.StdDev(values, nil)
	}
	s.Median = median(values)
	s.Breadth = float64(nonNegative) / float64(s.Count)
	return s
}

// median sorts values in place and averages the middle pair for even counts.
func median(values []float64) float64 {
	sort.Float64s(values)
	n := len(values)
	if n%2 == 0 {
		return (values[n/2-1] + values[n/2]) / 2
	}
	return values[n/2]
}
