package signal

import (
	"math"

	"github.com/banshee-data/sensorset/internal/monitoring"
)

// ResampleFine interpolates a padded chunk onto the grid i/targetRate for
// i < ceil(totalDuration*targetRate) and then forces the result to exactly
// round(totalDuration*targetRate) samples.
func ResampleFine(chunk Chunk, totalDuration float64, targetRate int) Waveform {
	if targetRate <= 0 || !(totalDuration > 0) {
		return Waveform{}
	}
	rate := float64(targetRate)
	n := int(math.Ceil(totalDuration * rate))
	grid := make([]float64, n)
	for i := range grid {
		grid[i] = float64(i) / rate
	}
	values := interpolateZeroFill(chunk.Time, chunk.Value, grid)
	return FitLength(values, int(math.Round(totalDuration*rate)))
}

// FitLength truncates or zero-pads values to exactly n samples. It always
// returns a slice of length n, even when values already has that length.
func FitLength(values []float64, n int) Waveform {
	if n < 0 {
		n = 0
	}
	if len(values) != n {
		monitoring.Debugf("[signal] %v: got %d samples, want %d; adjusting", ErrChunkLengthMismatch, len(values), n)
	}
	out := make(Waveform, n)
	copy(out, values)
	return out
}
