package dataset

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/banshee-data/sensorset/internal/fsutil"
	"github.com/banshee-data/sensorset/internal/monitoring"
)

// FindCSVFiles lists the .csv files under folder in path order, descending
// into subfolders when recursive is set. Hidden entries are ignored.
func FindCSVFiles(fsys fsutil.FileSystem, folder string, recursive bool) ([]string, error) {
	var out []string
	var walk func(dir string) error
	walk = func(dir string) error {
		entries, err := fsys.ReadDir(dir)
		if err != nil {
			return fmt.Errorf("list %s: %w", dir, err)
		}
		for _, e := range entries {
			if strings.HasPrefix(e.Name(), ".") {
				continue
			}
			p := filepath.Join(dir, e.Name())
			if e.IsDir() {
				if recursive {
					if err := walk(p); err != nil {
						return err
					}
				}
				continue
			}
			if strings.EqualFold(filepath.Ext(e.Name()), ".csv") {
				out = append(out, p)
			}
		}
		return nil
	}
	if err := walk(filepath.Clean(folder)); err != nil {
		return nil, err
	}
	sort.Strings(out)
	return out, nil
}

// InRaw reports whether path already lives under the raw backup root.
func (s *Store) InRaw(path string) bool {
	rel, err := filepath.Rel(s.rawRoot, filepath.Clean(path))
	return err == nil && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

// BackupRaw copies the import folder src under the raw root and returns the
// destination. A name collision gets a numeric suffix: name(1), name(2) and
// so on. When src is already inside the raw root nothing is copied and src is
// returned with copied=false.
func (s *Store) BackupRaw(src string) (dst string, copied bool, err error) {
	src = filepath.Clean(src)
	if s.InRaw(src) {
		return src, false, nil
	}
	if !fsutil.IsDir(s.fs, src) {
		return "", false, fmt.Errorf("backup %s: not a directory", src)
	}
	if err := s.fs.MkdirAll(s.rawRoot, 0o755); err != nil {
		return "", false, fmt.Errorf("create raw root: %w", err)
	}

	name := filepath.Base(src)
	dst = filepath.Join(s.rawRoot, name)
	for i := 1; s.fs.Exists(dst); i++ {
		dst = filepath.Join(s.rawRoot, fmt.Sprintf("%s(%d)", name, i))
	}
	if err := s.copyTree(src, dst); err != nil {
		return "", false, fmt.Errorf("backup %s: %w", src, err)
	}
	monitoring.Logf("[dataset] copied %s to %s", src, dst)
	return dst, true, nil
}

func (s *Store) copyTree(src, dst string) error {
	if err := s.fs.MkdirAll(dst, 0o755); err != nil {
		return err
	}
	entries, err := s.fs.ReadDir(src)
	if err != nil {
		return err
	}
	for _, e := range entries {
		from := filepath.Join(src, e.Name())
		to := filepath.Join(dst, e.Name())
		if e.IsDir() {
			if err := s.copyTree(from, to); err != nil {
				return err
			}
			continue
		}
		data, err := s.fs.ReadFile(from)
		if err != nil {
			return err
		}
		if err := s.fs.WriteFile(to, data, 0o644); err != nil {
			return err
		}
	}
	return nil
}

// RawMetadata describes a raw backup folder.
type RawMetadata struct {
	ImportedAt       time.Time          `json:"imported_at"`
	ImportFolderName string             `json:"import_folder_name"`
	SourcePath       string             `json:"source_path"`
	Structure        RawStructure       `json:"structure"`
	FileStatistics   RawFileStatistics  `json:"file_statistics"`
	SampleFile       *RawSampleFileInfo `json:"sample_file,omitempty"`
}

// RawStructure describes the folder layout of an import.
type RawStructure struct {
	TotalCSVFiles  int      `json:"total_csv_files"`
	Subfolders     []string `json:"subfolders"`
	SubfolderCount int      `json:"subfolder_count"`
}

// RawFileStatistics summarizes file sizes of an import.
type RawFileStatistics struct {
	TotalSizeBytes       int64   `json:"total_size_bytes"`
	TotalSizeMB          float64 `json:"total_size_mb"`
	AverageFileSizeBytes float64 `json:"average_file_size_bytes"`
	LargestFileBytes     int64   `json:"largest_file_bytes"`
	SmallestFileBytes    int64   `json:"smallest_file_bytes"`
}

// RawSampleFileInfo identifies the first file of an import.
type RawSampleFileInfo struct {
	Name         string `json:"name"`
	SizeBytes    int64  `json:"size_bytes"`
	RelativePath string `json:"relative_path"`
}

// GenerateRawMetadata describes the CSV files found in the import folder
// src. Sizes are read from fsys.
func GenerateRawMetadata(fsys fsutil.FileSystem, src string, csvFiles []string, importedAt time.Time) RawMetadata {
	md := RawMetadata{
		ImportedAt:       importedAt,
		ImportFolderName: filepath.Base(src),
		SourcePath:       src,
		Structure:        RawStructure{TotalCSVFiles: len(csvFiles), Subfolders: []string{}},
	}

	seen := map[string]bool{}
	var total int64
	for i, f := range csvFiles {
		var size int64
		if info, err := fsys.Stat(f); err == nil {
			size = info.Size()
		}
		total += size
		if i == 0 || size > md.FileStatistics.LargestFileBytes {
			md.FileStatistics.LargestFileBytes = size
		}
		if i == 0 || size < md.FileStatistics.SmallestFileBytes {
			md.FileStatistics.SmallestFileBytes = size
		}

		rel, err := filepath.Rel(src, f)
		if err != nil {
			rel = filepath.Base(f)
		}
		if i == 0 {
			md.SampleFile = &RawSampleFileInfo{Name: filepath.Base(f), SizeBytes: size, RelativePath: rel}
		}
		if dir := filepath.Dir(rel); dir != "." && !seen[dir] {
			seen[dir] = true
			md.Structure.Subfolders = append(md.Structure.Subfolders, dir)
		}
	}
	sort.Strings(md.Structure.Subfolders)
	md.Structure.SubfolderCount = len(md.Structure.Subfolders)
	md.FileStatistics.TotalSizeBytes = total
	md.FileStatistics.TotalSizeMB = float64(total) / (1024 * 1024)
	if len(csvFiles) > 0 {
		md.FileStatistics.AverageFileSizeBytes = float64(total) / float64(len(csvFiles))
	}
	return md
}

// SaveRawMetadata writes md as metadata.json inside the raw folder dir.
func (s *Store) SaveRawMetadata(dir string, md RawMetadata) error {
	if !s.InRaw(dir) {
		return fmt.Errorf("save raw metadata: %s is outside %s", dir, s.rawRoot)
	}
	return s.writeJSON(filepath.Join(dir, MetadataFilename), md)
}
