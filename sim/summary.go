package sim

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Summary holds descriptive statistics over a sample of tick durations.
// Variance is the unbiased (n-1) sample variance; it is 0 for a single sample.
type Summary struct {
	Count    int     `json:"count" yaml:"count"`
	Mean     float64 `json:"mean" yaml:"mean"`
	Variance float64 `json:"variance" yaml:"variance"`
	Min      float64 `json:"min" yaml:"min"`
	Max      float64 `json:"max" yaml:"max"`
	P50      float64 `json:"p50" yaml:"p50"`
	P90      float64 `json:"p90" yaml:"p90"`
	P99      float64 `json:"p99" yaml:"p99"`
}

// StdDev returns the square root of the sample variance.
func (s *Summary) StdDev() float64 {
	return math.Sqrt(s.Variance)
}

// Summarize computes descriptive statistics over samples.
// Returns nil for an empty sample.
func Summarize[T IntOrFloat64](samples []T) *Summary {
	if len(samples) == 0 {
		return nil
	}
	xs := make([]float64, len(samples))
	for i, v := range samples {
		xs[i] = float64(v)
	}
	mean, variance := stat.MeanVariance(xs, nil)
	if len(xs) == 1 {
		variance = 0
	}
	sorted := append([]float64(nil), xs...)
	sort.Float64s(sorted)
	return &Summary{
		Count:    len(xs),
		Mean:     mean,
		Variance: variance,
		Min:      floats.Min(xs),
		Max:      floats.Max(xs),
		P50:      stat.Quantile(0.50, stat.Empirical, sorted, nil),
		P90:      stat.Quantile(0.90, stat.Empirical, sorted, nil),
		P99:      stat.Quantile(0.99, stat.Empirical, sorted, nil),
	}
}

type IntOrFloat64 interface {
	int | int64 | float64
}
