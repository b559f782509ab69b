package config

import (
	"context"
	"errors"
	"io/fs"
	"os"

	"github.com/joho/godotenv"

	"github.com/banshee-data/sensorset/internal/monitoring"
	"github.com/banshee-data/sensorset/internal/structure"
)

// GeminiAPIKeyEnv names the environment variable holding the Gemini API key.
const GeminiAPIKeyEnv = "GEMINI_API_KEY"

// LoadEnv reads KEY=value pairs from path into the process environment.
// Variables already set win. A missing file is not an error.
func LoadEnv(path string) error {
	if path == "" {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return err
	}
	monitoring.Debugf("[config] loaded environment from %s", path)
	return nil
}

// Resolver builds the structure resolver. Gemini is the primary detector when
// use_gemini is on and GEMINI_API_KEY is set; otherwise only the heuristic
// detector runs.
func (c *ServiceConfig) Resolver(ctx context.Context) *structure.Resolver {
	var primary structure.Detector
	if c.GetUseGemini() {
		key := os.Getenv(GeminiAPIKeyEnv)
		if key == "" {
			monitoring.Logf("[config] %s not set; using heuristic structure detection", GeminiAPIKeyEnv)
		} else if g, err := structure.NewGeminiDetector(ctx, key, c.GetGeminiModel()); err != nil {
			monitoring.Logf("[config] Gemini unavailable: %v; using heuristic structure detection", err)
		} else {
			primary = g
		}
	}
	r := structure.NewResolver(primary)
	r.Timeout = c.GetDetectionTimeout()
	return r
}
