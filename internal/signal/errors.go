package signal

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidSeries marks a raw series that cannot be interpolated: too few
	// points, mismatched lengths, non-finite samples, or a non-positive mean
	// time step.
	ErrInvalidSeries = errors.New("invalid series")

	// ErrInsufficientData marks a series that is shorter than one chunk.
	ErrInsufficientData = errors.New("insufficient data for one chunk")

	// ErrChunkLengthMismatch is the internal condition corrected by FitLength.
	// It is only ever logged.
	ErrChunkLengthMismatch = errors.New("chunk length mismatch")

	// ErrInvalidConfig is returned by Config.Validate.
	ErrInvalidConfig = errors.New("invalid pipeline config")
)

// InvalidSeriesError describes why a series was rejected.
type InvalidSeriesError struct {
	Reason string
	Points int
}

func (e *InvalidSeriesError) Error() string {
	return fmt.Sprintf("invalid series (%d points): %s", e.Points, e.Reason)
}

func (e *InvalidSeriesError) Unwrap() error { return ErrInvalidSeries }

// InsufficientDataError reports the actual duration of a series against the
// duration one chunk requires.
type InsufficientDataError struct {
	Actual   float64 // seconds of data available
	Required float64 // seconds needed for a single chunk
}

func (e *InsufficientDataError) Error() string {
	return fmt.Sprintf("insufficient data for one chunk: need %.2fs but only have %.2fs", e.Required, e.Actual)
}

func (e *InsufficientDataError) Unwrap() error { return ErrInsufficientData }
