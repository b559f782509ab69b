package signal

import (
	"fmt"
	"math"
)

// Default pipeline parameters. Models trained on data ingested with these
// values expect inference input processed with the same values.
const (
	DefaultTimeInterval    = 0.1  // seconds between Stage-1 grid points
	DefaultChunkDuration   = 8.0  // seconds of real data per chunk
	DefaultPaddingDuration = 1.0  // seconds of silence on each side
	DefaultTargetRate      = 1600 // Stage-2 samples per second

	// MinDataPoints is the smallest raw series the pipeline accepts.
	MinDataPoints = 2
)

// Config carries every parameter of the shared pipeline. It is passed
// explicitly on every call; nothing in this package reads global state.
type Config struct {
	TimeInterval    float64 `json:"time_interval"`
	ChunkDuration   float64 `json:"chunk_duration"`
	PaddingDuration float64 `json:"padding_duration"`
	TargetRate      int     `json:"target_rate"`
}

// DefaultConfig returns the parameters used by ingestion and inference unless
// overridden.
func DefaultConfig() Config {
	return Config{
		TimeInterval:    DefaultTimeInterval,
		ChunkDuration:   DefaultChunkDuration,
		PaddingDuration: DefaultPaddingDuration,
		TargetRate:      DefaultTargetRate,
	}
}

// TotalDuration is the length in seconds of one padded chunk.
func (c Config) TotalDuration() float64 {
	return c.ChunkDuration + 2*c.PaddingDuration
}

// SamplesPerChunk is the exact length of every Waveform produced with c.
func (c Config) SamplesPerChunk() int {
	return int(math.Round(c.TotalDuration() * float64(c.TargetRate)))
}

// Validate rejects parameter combinations the pipeline cannot honour.
func (c Config) Validate() error {
	if !(c.TimeInterval > 0) || math.IsInf(c.TimeInterval, 0) {
		return fmt.Errorf("%w: time_interval must be positive, got %v", ErrInvalidConfig, c.TimeInterval)
	}
	if !(c.ChunkDuration > 0) || math.IsInf(c.ChunkDuration, 0) {
		return fmt.Errorf("%w: chunk_duration must be positive, got %v", ErrInvalidConfig, c.ChunkDuration)
	}
	if c.ChunkDuration < c.TimeInterval {
		return fmt.Errorf("%w: chunk_duration %v is shorter than time_interval %v", ErrInvalidConfig, c.ChunkDuration, c.TimeInterval)
	}
	if c.PaddingDuration < 0 || math.IsNaN(c.PaddingDuration) || math.IsInf(c.PaddingDuration, 0) {
		return fmt.Errorf("%w: padding_duration must be non-negative, got %v", ErrInvalidConfig, c.PaddingDuration)
	}
	if c.TargetRate <= 0 {
		return fmt.Errorf("%w: target_rate must be positive, got %d", ErrInvalidConfig, c.TargetRate)
	}
	return nil
}
