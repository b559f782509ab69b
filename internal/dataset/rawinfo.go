package dataset

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"

	"github.com/banshee-data/sensorset/internal/fsutil"
	"github.com/banshee-data/sensorset/internal/monitoring"
)

var (
	// ErrRawFolderNotFound is returned when a backup folder does not exist
	// under the raw root.
	ErrRawFolderNotFound = errors.New("raw folder not found")

	// ErrRawFileNotFound is returned when a file does not exist inside a
	// backup folder.
	ErrRawFileNotFound = errors.New("raw file not found")
)

// RawFolder summarizes one backup folder under the raw root. File names are
// relative to the folder and use forward slashes.
type RawFolder struct {
	Name      string       `json:"name"`
	Path      string       `json:"path"`
	FileCount int          `json:"file_count"`
	SizeBytes int64        `json:"size_bytes"`
	Files     []FileEntry  `json:"files"`
	Metadata  *RawMetadata `json:"metadata,omitempty"`
}

// RawFolders lists the backup folders in name order. A missing raw root
// yields an empty list.
func (s *Store) RawFolders() ([]RawFolder, error) {
	if !fsutil.IsDir(s.fs, s.rawRoot) {
		return nil, nil
	}
	entries, err := s.fs.ReadDir(s.rawRoot)
	if err != nil {
		return nil, fmt.Errorf("list raw folders: %w", err)
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() && !strings.HasPrefix(e.Name(), ".") {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	out := make([]RawFolder, 0, len(names))
	for _, name := range names {
		f, err := s.RawInfo(name)
		if err != nil {
			monitoring.Logf("[dataset] raw folder %s: %v", name, err)
			continue
		}
		out = append(out, f)
	}
	return out, nil
}

// RawInfo describes the backup folder name, including the CSV files in its
// subfolders and its metadata.json when present.
func (s *Store) RawInfo(name string) (RawFolder, error) {
	dir, err := s.rawFolderDir(name)
	if err != nil {
		return RawFolder{}, err
	}
	paths, err := FindCSVFiles(s.fs, dir, true)
	if err != nil {
		return RawFolder{}, err
	}
	rf := RawFolder{Name: name, Path: dir, FileCount: len(paths), Files: make([]FileEntry, 0, len(paths))}
	for _, p := range paths {
		rel, err := filepath.Rel(dir, p)
		if err != nil {
			continue
		}
		var size int64
		if info, err := s.fs.Stat(p); err == nil {
			size = info.Size()
		}
		rf.SizeBytes += size
		rf.Files = append(rf.Files, FileEntry{Name: filepath.ToSlash(rel), Size: size})
	}

	data, err := s.fs.ReadFile(filepath.Join(dir, MetadataFilename))
	switch {
	case err == nil:
		var md RawMetadata
		if err := json.Unmarshal(data, &md); err != nil {
			monitoring.Logf("[dataset] raw folder %s: decode metadata: %v", name, err)
		} else {
			rf.Metadata = &md
		}
	case !errors.Is(err, fs.ErrNotExist):
		monitoring.Logf("[dataset] raw folder %s: read metadata: %v", name, err)
	}
	return rf, nil
}

// RawFilePath resolves file, a slash-separated path relative to the backup
// folder name, to a regular file that exists inside that folder.
func (s *Store) RawFilePath(name, file string) (string, error) {
	dir, err := s.rawFolderDir(name)
	if err != nil {
		return "", err
	}
	clean := filepath.Clean(filepath.FromSlash(file))
	if file == "" || filepath.IsAbs(clean) || clean == "." || clean == ".." ||
		strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %q", ErrRawFileNotFound, file)
	}
	p := filepath.Join(dir, clean)
	info, err := s.fs.Stat(p)
	if err != nil || info.IsDir() {
		return "", fmt.Errorf("%w: %s/%s", ErrRawFileNotFound, name, file)
	}
	return p, nil
}

func (s *Store) rawFolderDir(name string) (string, error) {
	if name == "" || name == "." || name == ".." || name != filepath.Base(name) ||
		strings.ContainsAny(name, `/\`) || strings.HasPrefix(name, ".") {
		return "", fmt.Errorf("%w: %q", ErrRawFolderNotFound, name)
	}
	dir := filepath.Join(s.rawRoot, name)
	if !s.InRaw(dir) || !fsutil.IsDir(s.fs, dir) {
		return "", fmt.Errorf("%w: %s", ErrRawFolderNotFound, name)
	}
	return dir, nil
}
