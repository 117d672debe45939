// Package outliers provides pluggable anomaly detectors for univariate
// price series. All detectors are deterministic for a fixed
// configuration so repeated runs over the same data flag the same rows.
package outliers

import "errors"

// ErrTooFewValues is returned when the input is too small for the
// detector to produce a meaningful result.
var ErrTooFewValues = errors.New("too few values for outlier detection")

// Detector flags anomalous values in a series. The returned slice is
// parallel to the input.
type Detector interface {
	Name() string
	Detect(values []float64) ([]bool, error)
}
