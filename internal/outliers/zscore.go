package outliers

import "math"

// ZScore flags values more than Threshold standard deviations from the
// mean. A zero-variance series has no outliers.
type ZScore struct {
	Threshold float64
}

// NewZScore returns a detector with the conventional 3-sigma cutoff.
func NewZScore() *ZScore { return &ZScore{Threshold: 3} }

func (z *ZScore) Name() string { return "zscore" }

func (z *ZScore) Detect(values []float64) ([]bool, error) {
	if len(values) < 2 {
		return nil, ErrTooFewValues
	}

	mean := 0.0
	for _, v := range values {
		mean += v
	}
	mean /= float64(len(values))

	ss := 0.0
	for _, v := range values {
		d := v - mean
		ss += d * d
	}
	std := math.Sqrt(ss / float64(len(values)-1))

	flags := make([]bool, len(values))
	if std == 0 {
		return flags, nil
	}
	for i, v := range values {
		flags[i] = math.Abs(v-mean)/std > z.Threshold
	}
	return flags, nil
}
