package disparity

import (
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Stats summarises a disparity field. Negative samples mark pixels without
// a match; every other disparity, zero included, is valid.
type Stats struct {
	Pixels int
	Valid  int
	Min    float64
	Max    float64
	Mean   float64
	StdDev float64
	Median float64
}

// ValidRatio is the fraction of pixels with a valid disparity.
func (s Stats) ValidRatio() float64 {
	if s.Pixels == 0 {
		return 0
	}
	return float64(s.Valid) / float64(s.Pixels)
}

func computeStats(field []float32) Stats {
	st := Stats{Pixels: len(field)}
	valid := make([]float64, 0, len(field))
	for _, d := range field {
		if d >= 0 {
			valid = append(valid, float64(d))
		}
	}
	st.Valid = len(valid)
	if st.Valid == 0 {
		return st
	}

	st.Min = floats.Min(valid)
	st.Max = floats.Max(valid)
	st.Mean, st.StdDev = stat.MeanStdDev(valid, nil)
	if st.Valid == 1 {
		st.StdDev = 0
	}

	floats.Argsort(valid, make([]int, len(valid)))
	st.Median = stat.Quantile(0.5, stat.Empirical, valid, nil)
	return st
}
