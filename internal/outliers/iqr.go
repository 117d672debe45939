package outliers

import (
	"math"
	"sort"
)

// IQR flags values outside [Q1 - K*IQR, Q3 + K*IQR] using linearly
// interpolated quartiles.
type IQR struct {
	K float64
}

// NewIQR returns a detector with the conventional 1.5 fence multiplier.
func NewIQR() *IQR { return &IQR{K: 1.5} }

func (d *IQR) Name() string { return "iqr" }

func (d *IQR) Detect(values []float64) ([]bool, error) {
	if len(values) < 4 {
		return nil, ErrTooFewValues
	}

	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	q1 := interpolate(sorted, 0.25)
	q3 := interpolate(sorted, 0.75)
	iqr := q3 - q1
	lo := q1 - d.K*iqr
	hi := q3 + d.K*iqr

	flags := make([]bool, len(values))
	for i, v := range values {
		flags[i] = v < lo || v > hi
	}
	return flags, nil
}

func interpolate(sorted []float64, q float64) float64 {
	pos := q * float64(len(sorted)-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo == hi {
		return sorted[lo]
	}
	frac := pos - float64(lo)
	return sorted[lo]*(1-frac) + sorted[hi]*frac
}
