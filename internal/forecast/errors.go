package forecast

import "errors"

var (
	// ErrInsufficientData is returned by a method runner when the history is shorter than its window.
	// The runner is skipped; it never aborts the whole forecast.
	ErrInsufficientData = errors.New("insufficient data")
	// ErrInvalidInput marks malformed input rejected at the preprocessing boundary.
	ErrInvalidInput = errors.New("invalid input")
	// ErrNothingToVerify is returned when no forecast date has a known actual value yet.
	ErrNothingToVerify = errors.New("no verifiable points")
)
