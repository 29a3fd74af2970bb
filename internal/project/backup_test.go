package project

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/piwi3910/bakery/internal/model"
)

func TestExportAndImportAllData(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "backup.json")

	cfg := model.DefaultAppConfig()
	cfg.TimeLimitMs = 2000
	cfg.OutputDir = "/tmp/out"

	workers := model.NewWorkerSettings()
	workers.SetEnabled("typewriter", false)

	templates := model.NewTemplateStore()
	templates.Add(model.NewJobTemplate("Squares", "", model.NewPackingJob(model.Precise(2), model.Precise(2), square("sq", 1))))

	if err := ExportAllData(path, cfg, workers, templates); err != nil {
		t.Fatalf("ExportAllData failed: %v", err)
	}

	backup, err := ImportAllData(path)
	if err != nil {
		t.Fatalf("ImportAllData failed: %v", err)
	}

	if backup.Version != "1.0.0" {
		t.Errorf("expected version 1.0.0, got %s", backup.Version)
	}
	if backup.CreatedAt == "" {
		t.Error("expected non-empty CreatedAt")
	}
	if backup.Config.TimeLimitMs != 2000 {
		t.Errorf("expected TimeLimitMs=2000, got %d", backup.Config.TimeLimitMs)
	}
	if backup.Config.OutputDir != "/tmp/out" {
		t.Errorf("expected OutputDir=/tmp/out, got %s", backup.Config.OutputDir)
	}
	if backup.Workers.IsEnabled("typewriter") {
		t.Error("expected typewriter to stay disabled")
	}
	if len(backup.Templates.Templates) != 1 || backup.Templates.Templates[0].Name != "Squares" {
		t.Errorf("expected the Squares template, got %+v", backup.Templates.Templates)
	}
}

func TestImportAllDataMissingFile(t *testing.T) {
	_, err := ImportAllData(filepath.Join(t.TempDir(), "nope.json"))
	if err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestImportAllDataInvalidJSON(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.json")
	if err := os.WriteFile(path, []byte("{not json}"), 0644); err != nil {
		t.Fatal(err)
	}

	_, err := ImportAllData(path)
	if err == nil {
		t.Fatal("expected error for invalid JSON")
	}
}

func TestImportAllDataMissingVersion(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "noversion.json")
	data := []byte(`{"config":{"worker_dir":"x"}}`)
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatal(err)
	}

	_, err := ImportAllData(path)
	if err == nil {
		t.Fatal("expected error for missing version")
	}
}

func TestExportAllDataCreatesDirectories(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "deep", "nested", "backup.json")

	if err := ExportAllData(path, model.DefaultAppConfig(), model.NewWorkerSettings(), model.NewTemplateStore()); err != nil {
		t.Fatalf("ExportAllData should create parent dirs: %v", err)
	}

	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Fatal("backup file was not created")
	}
}

func TestImportAllDataNilCollections(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "backup.json")
	data := []byte(`{"version":"1.0.0","created_at":"2025-01-01T00:00:00Z","config":{"recent_jobs":null}}`)
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatal(err)
	}

	backup, err := ImportAllData(path)
	if err != nil {
		t.Fatalf("ImportAllData failed: %v", err)
	}
	if backup.Config.RecentJobs == nil {
		t.Error("RecentJobs should not be nil after import")
	}
	if backup.Workers.Enabled == nil {
		t.Error("worker flags should not be nil after import")
	}
	if backup.Templates.Templates == nil {
		t.Error("templates should not be nil after import")
	}
}
