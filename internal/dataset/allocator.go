package dataset

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"

	"github.com/banshee-data/sensorset/internal/monitoring"
)

// Mode selects how a run's chunk IDs relate to what is already on disk.
type Mode int

const (
	// ModeAppend continues after the highest existing ID.
	ModeAppend Mode = iota
	// ModeOverwrite removes the label's chunk files and restarts at 1.
	ModeOverwrite
)

// FirstChunkID is the ID of the first chunk in an empty label.
const FirstChunkID = 1

func (m Mode) String() string {
	switch m {
	case ModeAppend:
		return "append"
	case ModeOverwrite:
		return "overwrite"
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}

// ParseMode accepts "append" (or "") and "overwrite".
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "append":
		return ModeAppend, nil
	case "overwrite":
		return ModeOverwrite, nil
	}
	return 0, fmt.Errorf("unknown mode %q (want append or overwrite)", s)
}

// MarshalText implements encoding.TextMarshaler.
func (m Mode) MarshalText() ([]byte, error) { return []byte(m.String()), nil }

// UnmarshalText implements encoding.TextUnmarshaler.
func (m *Mode) UnmarshalText(b []byte) error {
	v, err := ParseMode(string(b))
	if err != nil {
		return err
	}
	*m = v
	return nil
}

// Allocator hands out contiguous chunk IDs for one ingestion run. Next
// returns the ID the next write should use; Commit consumes it only after
// that write succeeded, so a failed write leaves no gap.
type Allocator struct {
	store     *Store
	label     string
	start     int
	next      int
	committed int

	// stale holds the IDs an overwrite run replaces. They stay on disk until
	// the first commit so a run that writes nothing keeps the old chunks.
	stale []int
}

// NewAllocator prepares IDs for a run on label. In ModeOverwrite the label's
// existing chunk files are deleted by the first Commit.
func (s *Store) NewAllocator(label string, mode Mode) (*Allocator, error) {
	if _, err := s.LabelDir(label); err != nil {
		return nil, err
	}
	ids, err := s.ScanChunkIDs(label)
	if err != nil {
		return nil, err
	}

	a := &Allocator{store: s, label: label, start: FirstChunkID, next: FirstChunkID}
	switch mode {
	case ModeAppend:
		if len(ids) > 0 {
			a.start = ids[len(ids)-1] + 1
			a.next = a.start
		}
	case ModeOverwrite:
		a.stale = ids
	default:
		return nil, fmt.Errorf("unknown mode %v", mode)
	}
	return a, nil
}

// Next returns the ID for the next chunk without consuming it.
func (a *Allocator) Next() int { return a.next }

// Commit consumes the current ID and returns it. The first commit of an
// overwrite run removes the chunks the run replaces; the ID is consumed even
// when that removal fails.
func (a *Allocator) Commit() (int, error) {
	id := a.next
	a.next++
	a.committed++
	if a.committed == 1 && len(a.stale) > 0 {
		return id, a.removeStale(id)
	}
	return id, nil
}

func (a *Allocator) removeStale(written int) error {
	dir, err := a.store.LabelDir(a.label)
	if err != nil {
		return err
	}
	var errs []error
	for _, id := range a.stale {
		if id == written {
			continue
		}
		path := filepath.Join(dir, ChunkFileName(a.label, id))
		if err := a.store.fs.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			errs = append(errs, err)
		}
	}
	monitoring.Logf("[dataset] overwrite mode: replaced %d existing chunks of %s", len(a.stale), a.label)
	a.stale = nil
	if len(errs) > 0 {
		return fmt.Errorf("overwrite %s: %w", a.label, errors.Join(errs...))
	}
	return nil
}

// Count is the number of committed IDs.
func (a *Allocator) Count() int { return a.committed }

// Range returns the first and last committed IDs. ok is false when nothing
// was committed.
func (a *Allocator) Range() (first, last int, ok bool) {
	if a.committed == 0 {
		return 0, 0, false
	}
	return a.start, a.next - 1, true
}
