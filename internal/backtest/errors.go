package backtest

import "errors"

// Validation errors, detected before the step loop starts. No partial
// artifacts are produced for runs rejected by these.
var (
	// ErrMissingParameters is returned when symbol or time window is absent.
	ErrMissingParameters = errors.New("missing required parameters")

	// ErrNoData is returned when the filtered window contains no rows.
	ErrNoData = errors.New("no data in selected time range")

	// ErrInsufficientData is returned when the filtered window has fewer
	// usable rows than the configured minimum.
	ErrInsufficientData = errors.New("insufficient data points")
)
