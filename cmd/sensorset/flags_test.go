package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

// TestFlagDefaults verifies flags default to "use the config file".
func TestFlagDefaults(t *testing.T) {
	if *listen != "" {
		t.Errorf("expected listen default to be empty, got %q", *listen)
	}
	if *dbPathFlag != "" {
		t.Errorf("expected db-path default to be empty, got %q", *dbPathFlag)
	}
	if *envFile != ".env" {
		t.Errorf("expected env default to be .env, got %q", *envFile)
	}
	if *debug {
		t.Error("expected debug default to be false")
	}
}

func TestApplyFlags(t *testing.T) {
	origListen, origDB, origDebug := *listen, *dbPathFlag, *debug
	t.Cleanup(func() { *listen, *dbPathFlag, *debug = origListen, origDB, origDebug })

	cfg, err := loadConfig("")
	if err != nil {
		t.Fatalf("loadConfig: %v", err)
	}
	applyFlags(cfg)
	if got := cfg.GetListen(); got != ":8080" {
		t.Errorf("expected default listen :8080, got %q", got)
	}

	*listen = "127.0.0.1:9000"
	*dbPathFlag = "/tmp/runs.db"
	*debug = true
	applyFlags(cfg)
	if got := cfg.GetListen(); got != "127.0.0.1:9000" {
		t.Errorf("expected listen override, got %q", got)
	}
	if got := cfg.GetDBPath(); got != "/tmp/runs.db" {
		t.Errorf("expected db path override, got %q", got)
	}
	if !cfg.GetDebug() {
		t.Error("expected debug override")
	}
}

func TestLoadConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sensorset.json")
	if err := os.WriteFile(path, []byte(`{"listen": ":9999", "job_retention": "2h"}`), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err := loadConfig(path)
	if err != nil {
		t.Fatalf("loadConfig: %v", err)
	}
	if got := cfg.GetListen(); got != ":9999" {
		t.Errorf("expected :9999, got %q", got)
	}
	if got := cfg.GetJobRetention(); got != 2*time.Hour {
		t.Errorf("expected 2h retention, got %v", got)
	}

	if _, err := loadConfig(filepath.Join(t.TempDir(), "missing.json")); err == nil {
		t.Error("expected error for missing config file")
	}
}
