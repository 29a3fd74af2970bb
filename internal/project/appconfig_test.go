package project

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/piwi3910/bakery/internal/model"
)

func TestSaveAndLoadAppConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")

	cfg := model.DefaultAppConfig()
	cfg.WorkerDir = "/opt/bakery/workers"
	cfg.TimeLimitMs = 30000
	cfg.SVGOutput = true
	cfg.RecentJobs = []string{"/tmp/job1.txt", "/tmp/job2.txt"}

	if err := SaveAppConfig(path, cfg); err != nil {
		t.Fatalf("SaveAppConfig failed: %v", err)
	}

	loaded, err := LoadAppConfig(path)
	if err != nil {
		t.Fatalf("LoadAppConfig failed: %v", err)
	}

	if loaded.WorkerDir != "/opt/bakery/workers" {
		t.Errorf("expected WorkerDir=/opt/bakery/workers, got %s", loaded.WorkerDir)
	}
	if loaded.TimeLimitMs != 30000 {
		t.Errorf("expected TimeLimitMs=30000, got %d", loaded.TimeLimitMs)
	}
	if !loaded.SVGOutput {
		t.Error("expected SVGOutput=true")
	}
	if len(loaded.RecentJobs) != 2 {
		t.Errorf("expected 2 recent jobs, got %d", len(loaded.RecentJobs))
	}
}

func TestLoadAppConfigMissingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nonexistent", "config.json")

	cfg, err := LoadAppConfig(path)
	if err != nil {
		t.Fatalf("expected no error for missing file, got: %v", err)
	}

	defaults := model.DefaultAppConfig()
	if cfg.WorkerDir != defaults.WorkerDir {
		t.Errorf("expected default worker dir %s, got %s", defaults.WorkerDir, cfg.WorkerDir)
	}
	if cfg.ResultsFile != "results.txt" {
		t.Errorf("expected results file results.txt, got %s", cfg.ResultsFile)
	}
}

func TestLoadAppConfigKeepsDefaultsForMissingFields(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	if err := os.WriteFile(path, []byte(`{"time_limit_ms":500}`), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadAppConfig(path)
	if err != nil {
		t.Fatalf("LoadAppConfig failed: %v", err)
	}
	if cfg.TimeLimitMs != 500 {
		t.Errorf("expected TimeLimitMs=500, got %d", cfg.TimeLimitMs)
	}
	if cfg.ServerAddr != ":8080" {
		t.Errorf("expected default server address, got %q", cfg.ServerAddr)
	}
}

func TestLoadAppConfigInvalidJSON(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")

	if err := os.WriteFile(path, []byte("not valid json{{{"), 0644); err != nil {
		t.Fatal(err)
	}

	_, err := LoadAppConfig(path)
	if err == nil {
		t.Fatal("expected error for invalid JSON, got nil")
	}
}

func TestSaveAppConfigCreatesDirectories(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sub", "dir", "config.json")

	cfg := model.DefaultAppConfig()
	if err := SaveAppConfig(path, cfg); err != nil {
		t.Fatalf("SaveAppConfig should create parent dirs: %v", err)
	}

	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Fatal("config file was not created")
	}
}

func TestLoadAppConfigNilRecentJobs(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")

	data := []byte(`{"worker_dir":"plugins","recent_jobs":null}`)
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadAppConfig(path)
	if err != nil {
		t.Fatalf("LoadAppConfig failed: %v", err)
	}
	if cfg.RecentJobs == nil {
		t.Error("RecentJobs should not be nil after loading")
	}
}
