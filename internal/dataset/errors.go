package dataset

import (
	"errors"
	"fmt"

	"github.com/banshee-data/sensorset/internal/security"
)

var (
	// ErrInvalidLabel is returned for labels that cannot name a directory.
	ErrInvalidLabel = security.ErrInvalidLabel

	// ErrLabelNotFound is returned when a label has no directory in the store.
	ErrLabelNotFound = errors.New("label not found")

	// ErrChunkNotFound is returned when a named chunk file does not exist.
	ErrChunkNotFound = errors.New("chunk not found")

	// ErrNoMetadata is returned when a label directory has no metadata.json.
	ErrNoMetadata = errors.New("metadata not found")

	// ErrMalformedChunk marks a chunk file that does not follow the record
	// format.
	ErrMalformedChunk = errors.New("malformed chunk file")

	// ErrWriteFailure marks a chunk that could not be persisted.
	ErrWriteFailure = errors.New("chunk write failed")
)

// WriteFailureError reports a chunk that could not be written. The ID it was
// meant to take is left unused so the next chunk can claim it.
type WriteFailureError struct {
	Path string
	ID   int
	Err  error
}

func (e *WriteFailureError) Error() string {
	return fmt.Sprintf("write chunk %d to %s: %v", e.ID, e.Path, e.Err)
}

func (e *WriteFailureError) Unwrap() []error { return []error{ErrWriteFailure, e.Err} }
