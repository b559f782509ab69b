// Package config loads the service configuration from JSON. Every field is
// optional; the Get* methods supply defaults for omitted fields.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/banshee-data/sensorset/internal/signal"
	"github.com/banshee-data/sensorset/internal/structure"
)

// DefaultConfigPath is the path to the canonical defaults file.
const DefaultConfigPath = "config/sensorset.defaults.json"

const maxFileSize = 1 * 1024 * 1024 // 1MB

// ServiceConfig is the root configuration of the sensorset binaries.
type ServiceConfig struct {
	// Pipeline params
	TimeInterval    *float64 `json:"time_interval,omitempty"`
	ChunkDuration   *float64 `json:"chunk_duration,omitempty"`
	PaddingDuration *float64 `json:"padding_duration,omitempty"`
	TargetRate      *int     `json:"target_rate,omitempty"`

	// Storage
	DatasetDir *string `json:"dataset_dir,omitempty"`
	RawDir     *string `json:"raw_dir,omitempty"`
	DBPath     *string `json:"db_path,omitempty"`

	// Structure detection
	UseGemini        *bool   `json:"use_gemini,omitempty"`
	GeminiModel      *string `json:"gemini_model,omitempty"`
	DetectionTimeout *string `json:"detection_timeout,omitempty"` // duration string like "30s"

	// Inference
	ModelURL   *string  `json:"model_url,omitempty"`
	ClassNames []string `json:"class_names,omitempty"`

	// Service
	Listen        *string  `json:"listen,omitempty"`
	ImportDirs    []string `json:"import_dirs,omitempty"`    // folders /api/ingest may read; empty allows any
	JobRetention  *string  `json:"job_retention,omitempty"`  // duration string like "1h"
	PruneInterval *string  `json:"prune_interval,omitempty"` // duration string like "5m"
	Debug         *bool    `json:"debug,omitempty"`
}

// EmptyConfig returns a ServiceConfig with all fields unset.
func EmptyConfig() *ServiceConfig {
	return &ServiceConfig{}
}

// LoadConfig loads a ServiceConfig from a JSON file. The file must have a
// .json extension and be at most 1MB. Omitted fields fall back to defaults.
func LoadConfig(path string) (*ServiceConfig, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := EmptyConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// MustLoadDefaultConfig loads DefaultConfigPath, searching the current
// directory and its parents up to the repository root. Panics if the file
// cannot be loaded; intended for tests.
func MustLoadDefaultConfig() *ServiceConfig {
	candidates := []string{
		DefaultConfigPath,
		"../" + DefaultConfigPath,
		"../../" + DefaultConfigPath, // from internal/config/
		"../../../" + DefaultConfigPath,
	}
	for _, path := range candidates {
		if cfg, err := LoadConfig(path); err == nil {
			return cfg
		}
	}
	panic("cannot find " + DefaultConfigPath + " - run tests from repository root")
}

// Validate checks the fields that are set.
func (c *ServiceConfig) Validate() error {
	if err := c.PipelineConfig().Validate(); err != nil {
		return err
	}
	for name, v := range map[string]*string{
		"detection_timeout": c.DetectionTimeout,
		"job_retention":     c.JobRetention,
		"prune_interval":    c.PruneInterval,
	} {
		if v == nil || *v == "" {
			continue
		}
		d, err := time.ParseDuration(*v)
		if err != nil {
			return fmt.Errorf("invalid %s '%s': %w", name, *v, err)
		}
		if d <= 0 {
			return fmt.Errorf("%s must be positive, got %s", name, *v)
		}
	}
	if c.ModelURL != nil && *c.ModelURL != "" && len(c.ClassNames) == 0 {
		return fmt.Errorf("class_names must be set when model_url is set")
	}
	return nil
}

// PipelineConfig returns the pipeline parameters with defaults applied.
func (c *ServiceConfig) PipelineConfig() signal.Config {
	return signal.Config{
		TimeInterval:    c.GetTimeInterval(),
		ChunkDuration:   c.GetChunkDuration(),
		PaddingDuration: c.GetPaddingDuration(),
		TargetRate:      c.GetTargetRate(),
	}
}

// GetTimeInterval returns the time_interval value or the default.
func (c *ServiceConfig) GetTimeInterval() float64 {
	if c.TimeInterval == nil {
		return signal.DefaultTimeInterval
	}
	return *c.TimeInterval
}

// GetChunkDuration returns the chunk_duration value or the default.
func (c *ServiceConfig) GetChunkDuration() float64 {
	if c.ChunkDuration == nil {
		return signal.DefaultChunkDuration
	}
	return *c.ChunkDuration
}

// GetPaddingDuration returns the padding_duration value or the default.
func (c *ServiceConfig) GetPaddingDuration() float64 {
	if c.PaddingDuration == nil {
		return signal.DefaultPaddingDuration
	}
	return *c.PaddingDuration
}

// GetTargetRate returns the target_rate value or the default.
func (c *ServiceConfig) GetTargetRate() int {
	if c.TargetRate == nil {
		return signal.DefaultTargetRate
	}
	return *c.TargetRate
}

// GetDatasetDir returns the processed dataset root.
func (c *ServiceConfig) GetDatasetDir() string {
	return stringOr(c.DatasetDir, "data/database")
}

// GetRawDir returns the raw backup root.
func (c *ServiceConfig) GetRawDir() string {
	return stringOr(c.RawDir, "data/raw")
}

// GetDBPath returns the ingestion history database path.
func (c *ServiceConfig) GetDBPath() string {
	return stringOr(c.DBPath, "data/sensorset.db")
}

// GetUseGemini reports whether the Gemini detector should be tried when an
// API key is available.
func (c *ServiceConfig) GetUseGemini() bool {
	if c.UseGemini == nil {
		return true
	}
	return *c.UseGemini
}

// GetGeminiModel returns the Gemini model name.
func (c *ServiceConfig) GetGeminiModel() string {
	return stringOr(c.GeminiModel, structure.DefaultGeminiModel)
}

// GetDetectionTimeout returns the structure detection timeout.
func (c *ServiceConfig) GetDetectionTimeout() time.Duration {
	return durationOr(c.DetectionTimeout, structure.DefaultTimeout)
}

// GetModelURL returns the model server predict URL, or "" when inference
// classification is disabled.
func (c *ServiceConfig) GetModelURL() string {
	return stringOr(c.ModelURL, "")
}

// GetListen returns the HTTP listen address.
func (c *ServiceConfig) GetListen() string {
	return stringOr(c.Listen, ":8080")
}

// GetJobRetention returns how long finished jobs are kept.
func (c *ServiceConfig) GetJobRetention() time.Duration {
	return durationOr(c.JobRetention, time.Hour)
}

// GetPruneInterval returns how often finished jobs are pruned.
func (c *ServiceConfig) GetPruneInterval() time.Duration {
	return durationOr(c.PruneInterval, 5*time.Minute)
}

// GetDebug returns the debug logging switch.
func (c *ServiceConfig) GetDebug() bool {
	if c.Debug == nil {
		return false
	}
	return *c.Debug
}

func stringOr(v *string, def string) string {
	if v == nil || *v == "" {
		return def
	}
	return *v
}

func durationOr(v *string, def time.Duration) time.Duration {
	if v == nil || *v == "" {
		return def
	}
	d, err := time.ParseDuration(*v)
	if err != nil || d <= 0 {
		return def
	}
	return d
}
