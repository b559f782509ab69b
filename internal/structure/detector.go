package structure

import (
	"context"
	"errors"
	"time"

	"github.com/banshee-data/sensorset/internal/monitoring"
)

// DefaultTimeout bounds a single remote detection call.
const DefaultTimeout = 30 * time.Second

// Detector infers a CSVStructure from the first lines of a file.
type Detector interface {
	Detect(ctx context.Context, sample []string) (CSVStructure, error)
}

// DetectorFunc adapts a function to the Detector interface.
type DetectorFunc func(ctx context.Context, sample []string) (CSVStructure, error)

// Detect calls f.
func (f DetectorFunc) Detect(ctx context.Context, sample []string) (CSVStructure, error) {
	return f(ctx, sample)
}

// Resolver tries Primary under Timeout and falls back to Fallback on any
// error. Resolve never fails: if both detectors fail it returns Default().
type Resolver struct {
	Primary  Detector // optional, usually a GeminiDetector
	Fallback Detector // optional, usually a HeuristicDetector
	Timeout  time.Duration
}

// NewResolver returns a Resolver with the heuristic fallback and the default
// timeout. primary may be nil.
func NewResolver(primary Detector) *Resolver {
	return &Resolver{Primary: primary, Fallback: HeuristicDetector{}, Timeout: DefaultTimeout}
}

// Resolve returns a sanitized structure for sample. The second return value
// names the detector that produced it: "primary", "fallback" or "default".
func (r *Resolver) Resolve(ctx context.Context, sample []string) (CSVStructure, string) {
	if r.Primary != nil {
		timeout := r.Timeout
		if timeout <= 0 {
			timeout = DefaultTimeout
		}
		pctx, cancel := context.WithTimeout(ctx, timeout)
		s, err := r.Primary.Detect(pctx, sample)
		cancel()
		if err == nil {
			return s.Clamp(), "primary"
		}
		if errors.Is(err, context.DeadlineExceeded) {
			monitoring.Logf("[structure] primary detector timed out after %v; using fallback", timeout)
		} else {
			monitoring.Logf("[structure] primary detector failed: %v; using fallback", err)
		}
	}

	if r.Fallback != nil {
		s, err := r.Fallback.Detect(ctx, sample)
		if err == nil {
			return s.Clamp(), "fallback"
		}
		monitoring.Logf("[structure] fallback detector failed: %v; using defaults", err)
	}
	return Default(), "default"
}
