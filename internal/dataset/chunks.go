package dataset

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/banshee-data/sensorset/internal/monitoring"
	"github.com/banshee-data/sensorset/internal/signal"
)

// TimeHeader is the first column name on line 2 of every chunk file.
const TimeHeader = "Time(s)"

// ChunkFileName formats the file name of chunk id of label.
func ChunkFileName(label string, id int) string {
	return fmt.Sprintf("%s_%04d.csv", label, id)
}

// ParseChunkID extracts the numeric suffix of a chunk file name belonging to
// label. Names with a non-numeric suffix are not chunk files.
func ParseChunkID(label, name string) (int, bool) {
	stem, ok := strings.CutSuffix(name, ".csv")
	if !ok {
		return 0, false
	}
	suffix, ok := strings.CutPrefix(stem, label+"_")
	if !ok || suffix == "" {
		return 0, false
	}
	for _, r := range suffix {
		if r < '0' || r > '9' {
			return 0, false
		}
	}
	id, err := strconv.Atoi(suffix)
	if err != nil {
		return 0, false
	}
	return id, true
}

// ScanChunkIDs returns the IDs of the label's chunk files in ascending
// order. A label without a directory has no IDs.
func (s *Store) ScanChunkIDs(label string) ([]int, error) {
	dir, err := s.LabelDir(label)
	if err != nil {
		return nil, err
	}
	entries, err := s.fs.ReadDir(dir)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan %s: %w", label, err)
	}
	var ids []int
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if id, ok := ParseChunkID(label, e.Name()); ok {
			ids = append(ids, id)
		}
	}
	sort.Ints(ids)
	return ids, nil
}

// EncodeChunk renders a chunk record: the label on line 1, the column header
// on line 2, then one "%.6f,%.6f" row per sample.
func EncodeChunk(label, valuesLabel string, times, values []float64) []byte {
	n := min(len(times), len(values))
	var buf bytes.Buffer
	buf.Grow(len(label) + len(valuesLabel) + 16 + n*24)
	buf.WriteString(label)
	buf.WriteByte('\n')
	buf.WriteString(TimeHeader)
	buf.WriteByte(',')
	buf.WriteString(valuesLabel)
	buf.WriteByte('\n')

	row := make([]byte, 0, 48)
	for i := 0; i < n; i++ {
		row = strconv.AppendFloat(row[:0], times[i], 'f', 6, 64)
		row = append(row, ',')
		row = strconv.AppendFloat(row, values[i], 'f', 6, 64)
		row = append(row, '\n')
		buf.Write(row)
	}
	return buf.Bytes()
}

// ChunkRecord is a decoded chunk file.
type ChunkRecord struct {
	Label       string    `json:"label"`
	ValuesLabel string    `json:"values_label"`
	Time        []float64 `json:"time"`
	Value       []float64 `json:"value"`
}

// DecodeChunk parses a chunk file. It skips exactly the two header lines.
func DecodeChunk(data []byte) (ChunkRecord, error) {
	sc := bufio.NewScanner(bytes.NewReader(data))
	sc.Buffer(make([]byte, 64*1024), 1024*1024)

	var rec ChunkRecord
	line := 0
	for sc.Scan() {
		line++
		text := strings.TrimRight(sc.Text(), "\r")
		switch line {
		case 1:
			rec.Label = text
			continue
		case 2:
			_, after, ok := strings.Cut(text, ",")
			if !ok {
				return ChunkRecord{}, fmt.Errorf("%w: line 2 is not a column header", ErrMalformedChunk)
			}
			rec.ValuesLabel = after
			continue
		}
		if text == "" {
			continue
		}
		ts, vs, ok := strings.Cut(text, ",")
		if !ok {
			return ChunkRecord{}, fmt.Errorf("%w: line %d has one field", ErrMalformedChunk, line)
		}
		t, err := strconv.ParseFloat(strings.TrimSpace(ts), 64)
		if err != nil {
			return ChunkRecord{}, fmt.Errorf("%w: line %d time: %v", ErrMalformedChunk, line, err)
		}
		v, err := strconv.ParseFloat(strings.TrimSpace(vs), 64)
		if err != nil {
			return ChunkRecord{}, fmt.Errorf("%w: line %d value: %v", ErrMalformedChunk, line, err)
		}
		rec.Time = append(rec.Time, t)
		rec.Value = append(rec.Value, v)
	}
	if err := sc.Err(); err != nil {
		return ChunkRecord{}, fmt.Errorf("%w: %v", ErrMalformedChunk, err)
	}
	if line < 2 {
		return ChunkRecord{}, fmt.Errorf("%w: missing header lines", ErrMalformedChunk)
	}
	return rec, nil
}

// WriteChunk persists waveform w as chunk id of label. On failure nothing is
// left behind at the target path and a *WriteFailureError is returned.
func (s *Store) WriteChunk(label string, id int, valuesLabel string, cfg signal.Config, w signal.Waveform) (string, error) {
	dir, err := s.LabelDir(label)
	if err != nil {
		return "", err
	}
	path := filepath.Join(dir, ChunkFileName(label, id))
	if err := s.fs.MkdirAll(dir, 0o755); err != nil {
		return "", &WriteFailureError{Path: path, ID: id, Err: err}
	}
	data := EncodeChunk(label, valuesLabel, cfg.TimeAxis(), w)
	if err := s.fs.WriteFile(path, data, 0o644); err != nil {
		if rmErr := s.fs.Remove(path); rmErr != nil && !errors.Is(rmErr, fs.ErrNotExist) {
			monitoring.Logf("[dataset] could not remove partial chunk %s: %v", path, rmErr)
		}
		return "", &WriteFailureError{Path: path, ID: id, Err: err}
	}
	return path, nil
}

// ReadChunk loads one chunk file of label. name may omit the .csv extension
// and must not contain path separators.
func (s *Store) ReadChunk(label, name string) (ChunkRecord, error) {
	path, err := s.chunkPath(label, name)
	if err != nil {
		return ChunkRecord{}, err
	}
	data, err := s.fs.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return ChunkRecord{}, fmt.Errorf("%w: %s/%s", ErrChunkNotFound, label, name)
		}
		return ChunkRecord{}, fmt.Errorf("read %s: %w", path, err)
	}
	return DecodeChunk(data)
}

// ChunkPath resolves a chunk file name of label to a path that exists.
func (s *Store) ChunkPath(label, name string) (string, error) {
	path, err := s.chunkPath(label, name)
	if err != nil {
		return "", err
	}
	if !s.fs.Exists(path) {
		return "", fmt.Errorf("%w: %s/%s", ErrChunkNotFound, label, name)
	}
	return path, nil
}

func (s *Store) chunkPath(label, name string) (string, error) {
	dir, err := s.existingLabelDir(label)
	if err != nil {
		return "", err
	}
	if name == "" || name != filepath.Base(name) || strings.ContainsAny(name, `/\`) || name == "." || name == ".." {
		return "", fmt.Errorf("%w: %q", ErrChunkNotFound, name)
	}
	if !isCSV(name) {
		name += ".csv"
	}
	return filepath.Join(dir, name), nil
}

// LoadWaveforms reads every chunk of label in ID order and conforms each to
// cfg, for feeding a model at training time.
func (s *Store) LoadWaveforms(label string, cfg signal.Config) ([]signal.Waveform, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if _, err := s.existingLabelDir(label); err != nil {
		return nil, err
	}
	ids, err := s.ScanChunkIDs(label)
	if err != nil {
		return nil, err
	}
	out := make([]signal.Waveform, 0, len(ids))
	for _, id := range ids {
		rec, err := s.ReadChunk(label, ChunkFileName(label, id))
		if err != nil {
			return nil, fmt.Errorf("load %s: %w", ChunkFileName(label, id), err)
		}
		out = append(out, signal.Conform(rec.Value, cfg))
	}
	return out, nil
}
