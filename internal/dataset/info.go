package dataset

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/banshee-data/sensorset/internal/fsutil"
	"github.com/banshee-data/sensorset/internal/monitoring"
)

// Info summarizes a label directory.
type Info struct {
	Label     string    `json:"label"`
	Chunks    int       `json:"chunks"`
	SizeBytes int64     `json:"size_bytes"`
	Path      string    `json:"path"`
	Metadata  *Metadata `json:"metadata,omitempty"`
}

// Info reports chunk count and size of label, with its metadata when
// present.
func (s *Store) Info(label string) (Info, error) {
	dir, err := s.existingLabelDir(label)
	if err != nil {
		return Info{}, err
	}
	files, err := s.Files(label)
	if err != nil {
		return Info{}, err
	}
	info := Info{Label: label, Chunks: len(files), Path: dir}
	for _, f := range files {
		info.SizeBytes += f.Size
	}
	if md, err := s.LoadMetadata(label); err == nil {
		info.Metadata = md
	} else if !errors.Is(err, ErrNoMetadata) {
		monitoring.Logf("[dataset] %s: %v", label, err)
	}
	return info, nil
}

// DeleteResult reports what Delete removed.
type DeleteResult struct {
	Label            string `json:"label"`
	DeletedProcessed bool   `json:"deleted_processed"`
	DeletedRaw       bool   `json:"deleted_raw"`
	ProcessedPath    string `json:"processed_path,omitempty"`
	RawPath          string `json:"raw_path,omitempty"`
}

// Delete removes the label directory. With deleteRaw it also removes the raw
// backup named by metadata raw_folder. Documents without raw_folder fall back
// to source_folder, then split_data_<label>, then <label>. Failing to remove
// the raw backup is logged, not returned.
func (s *Store) Delete(label string, deleteRaw bool) (DeleteResult, error) {
	dir, err := s.existingLabelDir(label)
	if err != nil {
		return DeleteResult{}, err
	}
	res := DeleteResult{Label: label}

	var rawDir string
	if deleteRaw {
		rawDir = s.findRawFor(label)
	}

	if err := s.fs.RemoveAll(dir); err != nil {
		return res, fmt.Errorf("delete %s: %w", label, err)
	}
	res.DeletedProcessed = true
	res.ProcessedPath = dir
	monitoring.Logf("[dataset] deleted processed data: %s", dir)

	if rawDir != "" {
		if err := s.fs.RemoveAll(rawDir); err != nil {
			monitoring.Logf("[dataset] failed to delete raw data %s: %v", rawDir, err)
		} else {
			res.DeletedRaw = true
			res.RawPath = rawDir
			monitoring.Logf("[dataset] deleted raw data: %s", rawDir)
		}
	}
	return res, nil
}

func (s *Store) findRawFor(label string) string {
	var candidates []string
	md, err := s.LoadMetadata(label)
	switch {
	case err == nil && md.RawFolder != "":
		candidates = []string{filepath.Base(md.RawFolder)}
	case err == nil && md.SourceFolder != "":
		candidates = append(candidates, filepath.Base(md.SourceFolder))
		fallthrough
	default:
		candidates = append(candidates, "split_data_"+label, label)
	}

	for _, name := range candidates {
		if name == "." || name == ".." || name == string(filepath.Separator) {
			continue
		}
		p := filepath.Join(s.rawRoot, name)
		if s.InRaw(p) && p != s.rawRoot && fsutil.IsDir(s.fs, p) {
			return p
		}
	}
	return ""
}
