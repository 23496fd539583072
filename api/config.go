package api

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the full service configuration.
type Config struct {
	Listen            string   `yaml:"listen"`
	JournalDB         string   `yaml:"journal_db"`
	MaxFileMB         int      `yaml:"max_file_mb"`
	MaxPDFPages       int      `yaml:"max_pdf_pages"`
	RasterDPI         int      `yaml:"raster_dpi"`
	PageTimeoutSec    int      `yaml:"page_timeout_sec"`
	Parallelism       int      `yaml:"parallelism"`
	TopLanguages      int      `yaml:"top_languages"`
	MinDetectChars    int      `yaml:"min_detect_chars"`
	PDFTextConfidence float64  `yaml:"pdf_text_confidence"`
	TessLanguages     []string `yaml:"tess_languages"`
	LogLevel          string   `yaml:"log_level"` // debug | info | warn | error
}

// DefaultConfig returns sane defaults.
func DefaultConfig() *Config {
	return &Config{
		Listen:            ":8080",
		JournalDB:         "ocrpipe.db",
		MaxFileMB:         10,
		MaxPDFPages:       100,
		RasterDPI:         300,
		PageTimeoutSec:    30,
		Parallelism:       1,
		TopLanguages:      2,
		MinDetectChars:    8,
		PDFTextConfidence: 0.95,
		TessLanguages:     []string{"eng"},
		LogLevel:          "info",
	}
}

// LoadConfig reads and parses a YAML config file. Returns DefaultConfig merged with the file.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, cfg.Validate()
}

// Validate checks that required fields are present and values are sane.
func (c *Config) Validate() error {
	if c.Listen == "" {
		return fmt.Errorf("listen is required")
	}
	if c.JournalDB == "" {
		return fmt.Errorf("journal_db is required")
	}
	if c.MaxFileMB <= 0 {
		return fmt.Errorf("max_file_mb must be > 0")
	}
	if c.MaxPDFPages <= 0 {
		return fmt.Errorf("max_pdf_pages must be > 0")
	}
	if c.RasterDPI < 72 || c.RasterDPI > 1200 {
		return fmt.Errorf("raster_dpi must be in [72, 1200]")
	}
	if c.PageTimeoutSec <= 0 {
		return fmt.Errorf("page_timeout_sec must be > 0")
	}
	if c.TopLanguages <= 0 {
		return fmt.Errorf("top_languages must be > 0")
	}
	if c.PDFTextConfidence <= 0 || c.PDFTextConfidence > 1 {
		return fmt.Errorf("pdf_text_confidence must be in (0, 1]")
	}
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("unsupported log_level %q (use debug, info, warn or error)", c.LogLevel)
	}
	return nil
}

// MaxFileBytes returns max file size in bytes.
func (c *Config) MaxFileBytes() int64 { return int64(c.MaxFileMB) * 1024 * 1024 }

// PageTimeout returns the per-page recognition deadline.
func (c *Config) PageTimeout() time.Duration { return time.Duration(c.PageTimeoutSec) * time.Second }
