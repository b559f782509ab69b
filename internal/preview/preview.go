// Package preview draws raw series and processed chunks, as PNG with
// gonum/plot or as an interactive HTML page with go-echarts.
package preview

import (
	"errors"
	"fmt"

	"github.com/banshee-data/sensorset/internal/signal"
)

// ErrNoSeries is returned when there is nothing to draw.
var ErrNoSeries = errors.New("no series to draw")

// MaxPoints caps the points drawn per series; longer series are strided.
const MaxPoints = 4000

// Series is one named (time, value) line.
type Series struct {
	Name  string
	Time  []float64
	Value []float64
}

// Options controls titles and labels.
type Options struct {
	Title    string
	Subtitle string
	XLabel   string
	YLabel   string
}

func (o Options) withDefaults() Options {
	if o.XLabel == "" {
		o.XLabel = "Time (s)"
	}
	if o.YLabel == "" {
		o.YLabel = "Amplitude"
	}
	return o
}

// RawSeries wraps a parsed source series.
func RawSeries(name string, raw signal.RawSeries) Series {
	return Series{Name: name, Time: raw.Time, Value: raw.Value}
}

// WaveformSeries turns processed chunks into series on cfg's time axis,
// named "<prefix> 1", "<prefix> 2" and so on.
func WaveformSeries(prefix string, cfg signal.Config, waves []signal.Waveform) []Series {
	axis := cfg.TimeAxis()
	out := make([]Series, len(waves))
	for i, w := range waves {
		ts := axis
		if len(w) != len(ts) {
			ts = make([]float64, len(w))
			for j := range ts {
				ts[j] = float64(j) / float64(cfg.TargetRate)
			}
		}
		out[i] = Series{Name: fmt.Sprintf("%s %d", prefix, i+1), Time: ts, Value: w}
	}
	return out
}

// stride returns the step that keeps n points under MaxPoints.
func stride(n int) int {
	if n <= MaxPoints {
		return 1
	}
	return (n + MaxPoints - 1) / MaxPoints
}

func validate(series []Series) error {
	if len(series) == 0 {
		return ErrNoSeries
	}
	for _, s := range series {
		if len(s.Time) != len(s.Value) {
			return fmt.Errorf("series %q: %d times for %d values", s.Name, len(s.Time), len(s.Value))
		}
	}
	return nil
}
