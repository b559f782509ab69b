// Package signal implements the shared normalization pipeline that turns an
// irregularly sampled sensor series into fixed-length, zero-padded,
// amplitude-normalized waveforms.
//
// The same functions back dataset ingestion, inference, and training-time
// reloads. Changing any constant or fill rule here changes the features a
// trained model sees, so the three call sites must never carry their own copy.
package signal

import (
	"math"

	"gonum.org/v1/gonum/stat"
)

// RawSeries is one source file's (time, value) samples after column
// selection. Time is expected to be non-decreasing but is not required to be
// evenly spaced.
type RawSeries struct {
	Time  []float64
	Value []float64
}

// Len returns the number of samples.
func (r RawSeries) Len() int { return len(r.Time) }

// Duration returns the span between the first and last timestamps.
func (r RawSeries) Duration() float64 {
	if len(r.Time) == 0 {
		return 0
	}
	return r.Time[len(r.Time)-1] - r.Time[0]
}

// Validate checks the invariants every pipeline stage relies on.
func (r RawSeries) Validate() error {
	n := len(r.Time)
	if n != len(r.Value) {
		return &InvalidSeriesError{Reason: "time and value lengths differ", Points: n}
	}
	if n < MinDataPoints {
		return &InvalidSeriesError{Reason: "insufficient data points", Points: n}
	}
	for i := range r.Time {
		if !finite(r.Time[i]) || !finite(r.Value[i]) {
			return &InvalidSeriesError{Reason: "non-finite sample", Points: n}
		}
	}
	if meanStep(r.Time) <= 0 {
		return &InvalidSeriesError{Reason: "invalid time intervals (non-positive mean step)", Points: n}
	}
	return nil
}

// CoarseSeries is the Stage-1 output: values on a uniform grid starting at 0.
type CoarseSeries struct {
	Time  []float64
	Value []float64
}

// Len returns the number of grid points.
func (c CoarseSeries) Len() int { return len(c.Time) }

// Chunk is one padded window before Stage-2 resampling. Time spans
// [0, TotalDuration] with zeros on both sides of the data region.
type Chunk struct {
	Time  []float64
	Value []float64
}

// Waveform is a final, normalized chunk of exactly Config.SamplesPerChunk
// values.
type Waveform []float64

// meanStep is the mean spacing between consecutive timestamps of ts.
func meanStep(ts []float64) float64 {
	if len(ts) < 2 {
		return 0
	}
	diffs := make([]float64, len(ts)-1)
	for i := 1; i < len(ts); i++ {
		diffs[i-1] = ts[i] - ts[i-1]
	}
	return stat.Mean(diffs, nil)
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// gridLen counts the points 0, step, 2*step, ... that lie strictly below
// stop.
func gridLen(stop, step float64) int {
	if !(stop > 0) || !(step > 0) {
		return 0
	}
	return int(math.Ceil(stop / step))
}
