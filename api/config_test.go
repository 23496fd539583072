package api

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadConfigMergesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "ocrpipe.yaml")
	data := []byte("listen: \":9090\"\nmax_file_mb: 25\ntess_languages: [eng, deu]\n")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Listen != ":9090" {
		t.Errorf("Listen = %q", cfg.Listen)
	}
	if cfg.MaxFileBytes() != 25<<20 {
		t.Errorf("MaxFileBytes = %d", cfg.MaxFileBytes())
	}
	if len(cfg.TessLanguages) != 2 || cfg.TessLanguages[1] != "deu" {
		t.Errorf("TessLanguages = %v", cfg.TessLanguages)
	}
	// Unset keys keep their defaults.
	if cfg.MaxPDFPages != 100 || cfg.RasterDPI != 300 {
		t.Errorf("defaults not preserved: pages=%d dpi=%d", cfg.MaxPDFPages, cfg.RasterDPI)
	}
	if cfg.PageTimeout() != 30*time.Second {
		t.Errorf("PageTimeout = %v", cfg.PageTimeout())
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	if _, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestLoadConfigRejectsInvalid(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.yaml")
	if err := os.WriteFile(path, []byte("max_file_mb: -1\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadConfig(path); err == nil {
		t.Fatal("expected validation error")
	}
}
