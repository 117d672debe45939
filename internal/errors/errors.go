package errors

import (
	"errors"
	"fmt"
)

// The pipeline distinguishes two failure classes. Fatal errors abort the
// run before any partition work starts: an unreadable input file or a
// malformed configuration. Everything else is recoverable and is handled
// where it occurs: a bad cell becomes a null, a failing metric is omitted,
// an empty partition is skipped.

// ErrNoRows is returned when every row was removed by the pre-filters.
// The CLI treats it as a clean empty result, not a failure.
var ErrNoRows = errors.New("no rows remain after applying filters")

// ConfigError is a fatal configuration problem (duplicate mapping
// sources, duplicate bucket tags, unknown timezone, bad YAML).
type ConfigError struct {
	Field   string
	Message string
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("configuration error: %s", e.Message)
	}
	return fmt.Sprintf("configuration error: %s: %s", e.Field, e.Message)
}

// NewConfigError creates a ConfigError for the given field.
func NewConfigError(field, message string) *ConfigError {
	return &ConfigError{Field: field, Message: message}
}

// LoadError is a fatal input-file problem.
type LoadError struct {
	Path string
	Err  error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("failed to load input file %s: %v", e.Path, e.Err)
}

// Unwrap exposes the underlying cause.
func (e *LoadError) Unwrap() error { return e.Err }

// NewLoadError creates a LoadError for the given path.
func NewLoadError(path string, err error) *LoadError {
	return &LoadError{Path: path, Err: err}
}

// MetricError records one metric computation that could not complete.
// It never propagates out of the metrics engine; it is collected as a
// diagnostic so the remaining metrics still run.
type MetricError struct {
	Metric string
	Reason string
}

func (e *MetricError) Error() string {
	return fmt.Sprintf("metric %s skipped: %s", e.Metric, e.Reason)
}

// NewMetricError creates a MetricError.
func NewMetricError(metric, reason string) *MetricError {
	return &MetricError{Metric: metric, Reason: reason}
}

// IsFatal reports whether err should abort the run.
func IsFatal(err error) bool {
	var ce *ConfigError
	var le *LoadError
	return errors.As(err, &ce) || errors.As(err, &le)
}
