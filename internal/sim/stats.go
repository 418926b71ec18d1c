package sim

import (
	"math"
	"sort"
)

// Summary describes a sample distribution.
type Summary struct {
	N        int     `json:"n"`
	Mean     float64 `json:"mean"`
	Variance float64 `json:"variance"`
	StdDev   float64 `json:"stddev"`
	Min      float64 `json:"min"`
	Max      float64 `json:"max"`
	P10      float64 `json:"p10"`
	P50      float64 `json:"p50"`
	P90      float64 `json:"p90"`
}

// welford accumulates a running mean and sum of squared deviations.
type welford struct {
	n    int
	mean float64
	m2   float64
}

func (w *welford) add(x float64) {
	w.n++
	d := x - w.mean
	w.mean += d / float64(w.n)
	w.m2 += d * (x - w.mean)
}

// variance returns the sample variance, 0 with fewer than two samples.
func (w *welford) variance() float64 {
	if w.n < 2 {
		return 0
	}
	return w.m2 / float64(w.n-1)
}

// Summarize computes the summary of samples in the order given.
//
// Postcondition: samples is not modified; an empty input yields the zero Summary.
func Summarize(samples []float64) Summary {
	if len(samples) == 0 {
		return Summary{}
	}
	var w welford
	for _, x := range samples {
		w.add(x)
	}
	sorted := append([]float64(nil), samples...)
	sort.Float64s(sorted)
	v := w.variance()
	return Summary{
		N:        w.n,
		Mean:     w.mean,
		Variance: v,
		StdDev:   math.Sqrt(v),
		Min:      sorted[0],
		Max:      sorted[len(sorted)-1],
		P10:      Percentile(sorted, 0.10),
		P50:      Percentile(sorted, 0.50),
		P90:      Percentile(sorted, 0.90),
	}
}

// Percentile returns the p-quantile of sorted by linear interpolation
// between closest ranks.
//
// Precondition: sorted is ascending; p in [0, 1].
func Percentile(sorted []float64, p float64) float64 {
	switch len(sorted) {
	case 0:
		return 0
	case 1:
		return sorted[0]
	}
	rank := p * float64(len(sorted)-1)
	lo := int(math.Floor(rank))
	hi := int(math.Ceil(rank))
	if lo == hi {
		return sorted[lo]
	}
	frac := rank - float64(lo)
	return sorted[lo] + (sorted[hi]-sorted[lo])*frac
}
