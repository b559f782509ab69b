// Package dataset stores processed chunks per classification label.
//
// Layout under the store root:
//
//	<root>/<label>/<label>_0001.csv
//	<root>/<label>/metadata.json
//	<rawRoot>/<import folder>/...        copied source files
//	<rawRoot>/<import folder>/metadata.json
//
// Chunk IDs are derived from the files present, so a label directory is the
// only state. Callers must ensure a single writer per label; jobs.Manager does
// this for the service.
package dataset

import (
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"

	"github.com/banshee-data/sensorset/internal/fsutil"
	"github.com/banshee-data/sensorset/internal/security"
	"github.com/banshee-data/sensorset/internal/timeutil"
)

// MetadataFilename is the per-directory metadata file.
const MetadataFilename = "metadata.json"

// Store is a dataset directory tree on a FileSystem.
type Store struct {
	fs      fsutil.FileSystem
	root    string
	rawRoot string
	clock   timeutil.Clock
}

// Option configures a Store.
type Option func(*Store)

// WithClock sets the clock used for generated_at and imported_at stamps.
func WithClock(c timeutil.Clock) Option {
	return func(s *Store) { s.clock = c }
}

// NewStore returns a Store rooted at root with raw backups under rawRoot.
func NewStore(fsys fsutil.FileSystem, root, rawRoot string, opts ...Option) *Store {
	s := &Store{
		fs:      fsys,
		root:    filepath.Clean(root),
		rawRoot: filepath.Clean(rawRoot),
		clock:   timeutil.RealClock{},
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Root returns the processed dataset root.
func (s *Store) Root() string { return s.root }

// RawRoot returns the raw backup root.
func (s *Store) RawRoot() string { return s.rawRoot }

// FS returns the underlying filesystem.
func (s *Store) FS() fsutil.FileSystem { return s.fs }

// Clock returns the store's clock.
func (s *Store) Clock() timeutil.Clock { return s.clock }

// LabelDir validates label and returns its directory.
func (s *Store) LabelDir(label string) (string, error) {
	if err := security.ValidateLabel(label); err != nil {
		return "", err
	}
	return filepath.Join(s.root, label), nil
}

// existingLabelDir is LabelDir plus a check that the directory exists.
func (s *Store) existingLabelDir(label string) (string, error) {
	dir, err := s.LabelDir(label)
	if err != nil {
		return "", err
	}
	if !fsutil.IsDir(s.fs, dir) {
		return "", fmt.Errorf("%w: %s", ErrLabelNotFound, label)
	}
	return dir, nil
}

// Labels lists label directories in name order. A missing root yields an
// empty list.
func (s *Store) Labels() ([]string, error) {
	if !fsutil.IsDir(s.fs, s.root) {
		return nil, nil
	}
	entries, err := s.fs.ReadDir(s.root)
	if err != nil {
		return nil, fmt.Errorf("list labels: %w", err)
	}
	var labels []string
	for _, e := range entries {
		if e.IsDir() && security.ValidateLabel(e.Name()) == nil {
			labels = append(labels, e.Name())
		}
	}
	sort.Strings(labels)
	return labels, nil
}

// FileEntry is one file in a label directory.
type FileEntry struct {
	Name string `json:"name"`
	Size int64  `json:"size"`
}

// Files lists the CSV files of a label in name order.
func (s *Store) Files(label string) ([]FileEntry, error) {
	dir, err := s.existingLabelDir(label)
	if err != nil {
		return nil, err
	}
	entries, err := s.fs.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", label, err)
	}
	var files []FileEntry
	for _, e := range entries {
		if e.IsDir() || !isCSV(e.Name()) {
			continue
		}
		files = append(files, FileEntry{Name: e.Name(), Size: entrySize(e)})
	}
	return files, nil
}

// FolderSize is the total size in bytes of the label's CSV files.
func (s *Store) FolderSize(label string) (int64, error) {
	files, err := s.Files(label)
	if err != nil {
		return 0, err
	}
	var total int64
	for _, f := range files {
		total += f.Size
	}
	return total, nil
}

func entrySize(e fs.DirEntry) int64 {
	info, err := e.Info()
	if err != nil {
		return 0
	}
	return info.Size()
}

func isCSV(name string) bool {
	return filepath.Ext(name) == ".csv"
}
