package signal

import (
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// SeriesStats holds the summary statistics recorded in dataset metadata.
type SeriesStats struct {
	Min  float64 `json:"min"`
	Max  float64 `json:"max"`
	Mean float64 `json:"mean"`
	Std  float64 `json:"std"`
}

// Stats computes min, max, mean and population standard deviation of values.
// An empty slice yields the zero value.
func Stats(values []float64) SeriesStats {
	if len(values) == 0 {
		return SeriesStats{}
	}
	mean, std := stat.PopMeanStdDev(values, nil)
	return SeriesStats{
		Min:  floats.Min(values),
		Max:  floats.Max(values),
		Mean: mean,
		Std:  std,
	}
}

// SamplingRate is the reciprocal of the mean time step of ts, or 0 when it
// cannot be computed.
func SamplingRate(ts []float64) float64 {
	step := meanStep(ts)
	if !(step > 0) {
		return 0
	}
	return 1 / step
}
