package structure

import (
	"errors"
	"fmt"
)

// ErrStructureDetection marks any failure of a Detector. The Resolver recovers
// from it by falling back; callers outside this package rarely see it.
var ErrStructureDetection = errors.New("structure detection failed")

// DetectionError records which detector failed and why.
type DetectionError struct {
	Detector string
	Err      error
}

func (e *DetectionError) Error() string {
	return fmt.Sprintf("%s detector: %v", e.Detector, e.Err)
}

func (e *DetectionError) Unwrap() []error { return []error{ErrStructureDetection, e.Err} }
