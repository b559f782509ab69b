package signal

import "fmt"

// InterpolateCoarse resamples raw onto a uniform grid starting at 0 with
// spacing timeInterval. Grid points lie strictly below the series duration.
func InterpolateCoarse(raw RawSeries, timeInterval float64) (CoarseSeries, error) {
	if !(timeInterval > 0) || !finite(timeInterval) {
		return CoarseSeries{}, fmt.Errorf("%w: time_interval must be positive, got %v", ErrInvalidConfig, timeInterval)
	}
	if err := raw.Validate(); err != nil {
		return CoarseSeries{}, err
	}

	t0 := raw.Time[0]
	shifted := make([]float64, len(raw.Time))
	for i, t := range raw.Time {
		shifted[i] = t - t0
	}
	duration := shifted[len(shifted)-1]

	n := gridLen(duration, timeInterval)
	if n == 0 {
		return CoarseSeries{}, &InvalidSeriesError{Reason: "zero duration", Points: raw.Len()}
	}
	grid := make([]float64, n)
	for i := range grid {
		grid[i] = float64(i) * timeInterval
	}

	return CoarseSeries{
		Time:  grid,
		Value: interpolateZeroFill(shifted, raw.Value, grid),
	}, nil
}
