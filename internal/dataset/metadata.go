package dataset

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"math"
	"path/filepath"
	"time"

	"github.com/banshee-data/sensorset/internal/signal"
	"github.com/banshee-data/sensorset/internal/structure"
	"github.com/banshee-data/sensorset/internal/version"
)

// Metadata describes one ingestion run into a label directory. It is
// written as metadata.json next to the chunks and replaced wholesale by the
// next run.
type Metadata struct {
	GeneratedAt         time.Time              `json:"generated_at"`
	ClassificationLabel string                 `json:"classification_label"`
	SourceFolder        string                 `json:"source_folder"`
	RawFolder           string                 `json:"raw_folder,omitempty"`
	DataType            string                 `json:"data_type"`
	MeasurementType     string                 `json:"measurement_type"`
	Processing          ProcessingInfo         `json:"processing"`
	SourceCSVStructure  structure.CSVStructure `json:"source_csv_structure"`
	Dataset             DatasetSummary         `json:"dataset"`
	SampleStatistics    SampleStatistics       `json:"sample_statistics"`
	GeneratorVersion    string                 `json:"generator_version"`
}

// ProcessingInfo records the pipeline parameters of the run.
type ProcessingInfo struct {
	InterpolationInterval float64 `json:"interpolation_interval"`
	ChunkDuration         float64 `json:"chunk_duration"`
	PaddingDuration       float64 `json:"padding_duration"`
	Interpolation         string  `json:"interpolation"`
	FillPolicy            string  `json:"fill_policy"`
	TargetSamplingRate    int     `json:"target_sampling_rate"`
	TimeLength            float64 `json:"time_length"`
}

// DatasetSummary counts what the run produced.
type DatasetSummary struct {
	TotalChunks      int     `json:"total_chunks"`
	ChunkRange       string  `json:"chunk_range"`
	FirstChunkID     int     `json:"first_chunk_id"`
	LastChunkID      int     `json:"last_chunk_id"`
	SourceFilesCount int     `json:"source_files_count"`
	SamplesPerChunk  int     `json:"samples_per_chunk"`
	FolderSizeBytes  int64   `json:"folder_size_bytes"`
	FolderSizeMB     float64 `json:"folder_size_mb"`
}

// SampleStatistics summarizes the representative source series.
type SampleStatistics struct {
	OriginalSamplingRate   string     `json:"original_sampling_rate"`
	OriginalSamplingRateHz float64    `json:"original_sampling_rate_hz"`
	ValueRange             [2]float64 `json:"value_range"`
	ValueMean              float64    `json:"value_mean"`
	ValueStd               float64    `json:"value_std"`
}

// MetadataInput is everything GenerateMetadata needs. SourceFiles lists only
// the files that produced at least one chunk. RawFolder is the label's
// backup directory under the raw root, if any.
type MetadataInput struct {
	Label           string
	SourceFolder    string
	RawFolder       string
	SourceFiles     []string
	Structure       structure.CSVStructure
	Config          signal.Config
	FirstChunkID    int
	LastChunkID     int
	TotalChunks     int
	Sample          signal.RawSeries
	FolderSizeBytes int64
	GeneratedAt     time.Time
}

// GenerateMetadata builds the metadata document for a run. It reads nothing
// and writes nothing; the same input always yields the same document.
func GenerateMetadata(in MetadataInput) Metadata {
	cfg := in.Config
	md := Metadata{
		GeneratedAt:         in.GeneratedAt,
		ClassificationLabel: in.Label,
		SourceFolder:        folderName(in.SourceFolder),
		RawFolder:           folderName(in.RawFolder),
		DataType:            "Time-series: " + in.Structure.ValuesLabel,
		MeasurementType:     in.Structure.ValuesLabel,
		Processing: ProcessingInfo{
			InterpolationInterval: cfg.TimeInterval,
			ChunkDuration:         cfg.ChunkDuration,
			PaddingDuration:       cfg.PaddingDuration,
			Interpolation:         "linear",
			FillPolicy:            "zero",
			TargetSamplingRate:    cfg.TargetRate,
			TimeLength:            cfg.TotalDuration(),
		},
		SourceCSVStructure: in.Structure,
		Dataset: DatasetSummary{
			TotalChunks:      in.TotalChunks,
			SourceFilesCount: len(in.SourceFiles),
			SamplesPerChunk:  cfg.SamplesPerChunk(),
			FolderSizeBytes:  in.FolderSizeBytes,
			FolderSizeMB:     round2(float64(in.FolderSizeBytes) / (1024 * 1024)),
		},
		GeneratorVersion: version.Version,
	}
	if in.TotalChunks > 0 {
		md.Dataset.FirstChunkID = in.FirstChunkID
		md.Dataset.LastChunkID = in.LastChunkID
		md.Dataset.ChunkRange = fmt.Sprintf("%s to %s",
			chunkStem(in.Label, in.FirstChunkID), chunkStem(in.Label, in.LastChunkID))
	}

	if in.Sample.Len() > 0 {
		st := signal.Stats(in.Sample.Value)
		rate := signal.SamplingRate(in.Sample.Time)
		md.SampleStatistics = SampleStatistics{
			OriginalSamplingRate:   fmt.Sprintf("%.2f Hz", rate),
			OriginalSamplingRateHz: rate,
			ValueRange:             [2]float64{st.Min, st.Max},
			ValueMean:              st.Mean,
			ValueStd:               st.Std,
		}
	}
	return md
}

// StatisticallyEqual reports whether two documents agree on everything but
// generated_at.
func (m Metadata) StatisticallyEqual(o Metadata) bool {
	m.GeneratedAt = time.Time{}
	o.GeneratedAt = time.Time{}
	a, errA := json.Marshal(m)
	b, errB := json.Marshal(o)
	return errA == nil && errB == nil && string(a) == string(b)
}

func chunkStem(label string, id int) string {
	return fmt.Sprintf("%s_%04d", label, id)
}

func folderName(path string) string {
	if path == "" {
		return ""
	}
	return filepath.Base(filepath.Clean(path))
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// SaveMetadata writes md as the label's metadata.json, replacing any
// previous document.
func (s *Store) SaveMetadata(label string, md Metadata) error {
	dir, err := s.LabelDir(label)
	if err != nil {
		return err
	}
	if err := s.fs.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create %s: %w", dir, err)
	}
	return s.writeJSON(filepath.Join(dir, MetadataFilename), md)
}

// LoadMetadata reads the label's metadata.json.
func (s *Store) LoadMetadata(label string) (*Metadata, error) {
	dir, err := s.existingLabelDir(label)
	if err != nil {
		return nil, err
	}
	data, err := s.fs.ReadFile(filepath.Join(dir, MetadataFilename))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrNoMetadata, label)
	}
	if err != nil {
		return nil, fmt.Errorf("read metadata for %s: %w", label, err)
	}
	var md Metadata
	if err := json.Unmarshal(data, &md); err != nil {
		return nil, fmt.Errorf("decode metadata for %s: %w", label, err)
	}
	return &md, nil
}

func (s *Store) writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode %s: %w", path, err)
	}
	data = append(data, '\n')
	if err := s.fs.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
