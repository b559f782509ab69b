package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/sensorset/internal/signal"
)

func writeConfig(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestEmptyConfigDefaults(t *testing.T) {
	t.Parallel()
	c := EmptyConfig()

	assert.Equal(t, signal.DefaultConfig(), c.PipelineConfig())
	assert.Equal(t, "data/database", c.GetDatasetDir())
	assert.Equal(t, "data/raw", c.GetRawDir())
	assert.Equal(t, "data/sensorset.db", c.GetDBPath())
	assert.True(t, c.GetUseGemini())
	assert.Equal(t, "gemini-2.5-flash", c.GetGeminiModel())
	assert.Equal(t, 30*time.Second, c.GetDetectionTimeout())
	assert.Equal(t, "", c.GetModelURL())
	assert.Equal(t, ":8080", c.GetListen())
	assert.Equal(t, time.Hour, c.GetJobRetention())
	assert.Equal(t, 5*time.Minute, c.GetPruneInterval())
	assert.False(t, c.GetDebug())
	assert.NoError(t, c.Validate())
}

func TestMustLoadDefaultConfigMatchesDefaults(t *testing.T) {
	t.Parallel()
	c := MustLoadDefaultConfig()
	empty := EmptyConfig()

	assert.Equal(t, empty.PipelineConfig(), c.PipelineConfig())
	assert.Equal(t, empty.GetDatasetDir(), c.GetDatasetDir())
	assert.Equal(t, empty.GetDBPath(), c.GetDBPath())
	assert.Equal(t, empty.GetGeminiModel(), c.GetGeminiModel())
	assert.Equal(t, empty.GetDetectionTimeout(), c.GetDetectionTimeout())
	assert.Equal(t, empty.GetJobRetention(), c.GetJobRetention())
	assert.Equal(t, empty.GetPruneInterval(), c.GetPruneInterval())
}

func TestLoadConfigPartial(t *testing.T) {
	t.Parallel()
	path := writeConfig(t, "partial.json", `{"chunk_duration": 4, "target_rate": 800, "listen": ":9000", "debug": true}`)

	c, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, signal.Config{TimeInterval: 0.1, ChunkDuration: 4, PaddingDuration: 1, TargetRate: 800}, c.PipelineConfig())
	assert.Equal(t, ":9000", c.GetListen())
	assert.True(t, c.GetDebug())
	assert.Equal(t, "data/raw", c.GetRawDir())
}

func TestLoadConfigErrors(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name    string
		file    string
		body    string
		wantErr string
	}{
		{"extension", "c.yaml", `{}`, ".json extension"},
		{"syntax", "c.json", `{`, "parse config JSON"},
		{"pipeline", "c.json", `{"target_rate": 0}`, "invalid configuration"},
		{"padding", "c.json", `{"padding_duration": -1}`, "invalid configuration"},
		{"duration", "c.json", `{"job_retention": "soon"}`, "job_retention"},
		{"negative duration", "c.json", `{"prune_interval": "-5m"}`, "prune_interval"},
		{"model without classes", "c.json", `{"model_url": "http://m/predict"}`, "class_names"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := LoadConfig(writeConfig(t, tc.file, tc.body))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.wantErr)
		})
	}

	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.json"))
	assert.ErrorIs(t, err, os.ErrNotExist)

	big := writeConfig(t, "big.json", `{"gemini_model": "`+strings.Repeat("x", maxFileSize)+`"}`)
	_, err = LoadConfig(big)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "too large")
}

func TestModelConfig(t *testing.T) {
	t.Parallel()
	path := writeConfig(t, "model.json", `{"model_url": "http://localhost:8501/v1/models/damage:predict", "class_names": ["healthy", "crack"]}`)

	c, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:8501/v1/models/damage:predict", c.GetModelURL())
	assert.Equal(t, []string{"healthy", "crack"}, c.ClassNames)
}
