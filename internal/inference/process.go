// Package inference prepares unseen sensor CSVs for a trained model using the
// same pipeline as ingestion, and turns model logits into class predictions.
package inference

import (
	"bytes"
	"context"
	"fmt"

	"github.com/banshee-data/sensorset/internal/monitoring"
	"github.com/banshee-data/sensorset/internal/sensorcsv"
	"github.com/banshee-data/sensorset/internal/signal"
	"github.com/banshee-data/sensorset/internal/structure"
)

// ProcessingMetadata records how a CSV was turned into model input.
type ProcessingMetadata struct {
	SourceFile       string                 `json:"source_file"`
	CSVStructure     structure.CSVStructure `json:"csv_structure"`
	StructureSource  string                 `json:"structure_source"`
	OriginalDuration float64                `json:"original_duration"`
	OriginalRate     float64                `json:"original_rate"`
	NumChunks        int                    `json:"num_chunks"`
	SamplesPerChunk  int                    `json:"samples_per_chunk"`
	ChunkDuration    float64                `json:"chunk_duration"`
	TargetRate       int                    `json:"target_rate"`
	PaddingDuration  float64                `json:"padding_duration"`
	DBTimeInterval   float64                `json:"db_time_interval"`
}

// Result is the model-ready output of Process.
type Result struct {
	Waveforms []signal.Waveform
	Metadata  ProcessingMetadata
}

// Batch returns the waveforms as a [chunks][samples] matrix.
func (r *Result) Batch() [][]float64 {
	out := make([][]float64, len(r.Waveforms))
	for i, w := range r.Waveforms {
		out[i] = w
	}
	return out
}

// Processor runs the pipeline over in-memory CSV data. It never touches disk.
type Processor struct {
	Config   signal.Config
	Resolver *structure.Resolver // nil means heuristic detection only

	// Structure skips detection when set.
	Structure *structure.CSVStructure
}

// Process runs the ingestion pipeline over csvBytes with cfg and heuristic
// structure detection.
func Process(csvBytes []byte, cfg signal.Config) (*Result, error) {
	p := &Processor{Config: cfg}
	return p.Process(context.Background(), "", csvBytes)
}

// Process resolves the structure of data, parses it and returns one
// normalized waveform per chunk. source is only recorded in the metadata.
func (p *Processor) Process(ctx context.Context, source string, data []byte) (*Result, error) {
	if err := p.Config.Validate(); err != nil {
		return nil, err
	}
	s, how := p.resolve(ctx, data)

	raw, err := sensorcsv.ReadBytes(data, s)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", displayName(source), err)
	}
	waves, sum, err := signal.Process(raw, p.Config)
	if err != nil {
		return nil, fmt.Errorf("process %s: %w", displayName(source), err)
	}
	monitoring.Debugf("[inference] %s: %d chunks of %d samples (%.1fs at %.2f Hz)",
		displayName(source), sum.NumChunks, sum.SamplesPerChunk, sum.OriginalDuration, sum.OriginalRate)

	return &Result{
		Waveforms: waves,
		Metadata: ProcessingMetadata{
			SourceFile:       source,
			CSVStructure:     s,
			StructureSource:  how,
			OriginalDuration: sum.OriginalDuration,
			OriginalRate:     sum.OriginalRate,
			NumChunks:        sum.NumChunks,
			SamplesPerChunk:  sum.SamplesPerChunk,
			ChunkDuration:    p.Config.ChunkDuration,
			TargetRate:       p.Config.TargetRate,
			PaddingDuration:  p.Config.PaddingDuration,
			DBTimeInterval:   p.Config.TimeInterval,
		},
	}, nil
}

func (p *Processor) resolve(ctx context.Context, data []byte) (structure.CSVStructure, string) {
	if p.Structure != nil {
		return p.Structure.Clamp(), "request"
	}
	sample, err := structure.ReadSample(bytes.NewReader(data), structure.SampleLines)
	if err != nil {
		monitoring.Logf("[inference] reading sample: %v", err)
	}
	r := p.Resolver
	if r == nil {
		r = structure.NewResolver(nil)
	}
	return r.Resolve(ctx, sample)
}

func displayName(source string) string {
	if source == "" {
		return "<input>"
	}
	return source
}
