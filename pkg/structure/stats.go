package structure

import (
	"math"

	"github.com/nzoschke/songlab/pkg/features"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Stats summarises one descriptor over a frame range.
type Stats struct {
	Mean     float64 `json:"mean"`
	Max      float64 `json:"max"`
	Variance float64 `json:"variance"`
	Count    int     `json:"count"`
}

// Summarize computes mean, max and population variance of the valid frames
// of series in [start, end). Out-of-range frames are ignored and an empty
// range yields zero statistics.
func Summarize(series []features.Value, start, end int) Stats {
	vals := validValues(series, start, end)
	if len(vals) == 0 {
		return Stats{}
	}
	mean, variance := stat.PopMeanVariance(vals, nil)
	return Stats{
		Mean:     mean,
		Max:      floats.Max(vals),
		Variance: variance,
		Count:    len(vals),
	}
}

// validValues returns the valid, finite values of series in [start, end).
func validValues(series []features.Value, start, end int) []float64 {
	start, end = clampRange(start, end, len(series))
	vals := make([]float64, 0, end-start)
	for _, v := range series[start:end] {
		if v.Valid && !math.IsNaN(v.V) && !math.IsInf(v.V, 0) {
			vals = append(vals, v.V)
		}
	}
	return vals
}

// mean returns the arithmetic mean of vals, or def for an empty slice.
func mean(vals []float64, def float64) float64 {
	if len(vals) == 0 {
		return def
	}
	return stat.Mean(vals, nil)
}

// popVariance returns the population variance of vals (0 when empty).
func popVariance(vals []float64) float64 {
	if len(vals) == 0 {
		return 0
	}
	return stat.PopVariance(vals, nil)
}

// euclidean returns the L2 distance between the first n shared elements.
func euclidean(a, b []float64, n int) float64 {
	n = min(n, len(a), len(b))
	if n <= 0 {
		return 0
	}
	return floats.Distance(a[:n], b[:n], 2)
}

func clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}

// clampRange bounds [start, end) to [0, n).
func clampRange(start, end, n int) (int, int) {
	start = max(0, min(start, n))
	end = max(start, min(end, n))
	return start, end
}
