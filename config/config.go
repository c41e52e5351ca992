// Package config holds pipeline configuration.
package config

import (
	"fmt"
	"time"
)

// Config holds one import run's configuration.
type Config struct {
	InputFiles   []string
	SpecCatalog  string // JSON specification index, optional
	ImageCatalog string // tabular image source, optional
	KeyColumn    string
	OutputFile   string
	ImageDir     string
	ReportDir    string
	Concurrency  int
	HostInterval time.Duration
	Timeout      time.Duration
	NoDownload   bool
	Apply        bool
	WebSearchURL string // opt-in scraping catalog, %s query placeholder
	DatabaseDSN  string
	MetricsAddr  string
	Verbose      bool
}

// DefaultConfig returns conservative defaults for an import run.
func DefaultConfig() *Config {
	return &Config{
		KeyColumn:    "sku",
		OutputFile:   "output/enriched.csv",
		ImageDir:     "output/images",
		ReportDir:    "output/reports",
		Concurrency:  4,
		HostInterval: 500 * time.Millisecond,
		Timeout:      15 * time.Second,
	}
}

// Validate ensures all configuration values are coherent.
func (c *Config) Validate() error {
	if len(c.InputFiles) == 0 {
		return fmt.Errorf("at least one input table is required")
	}
	if c.KeyColumn == "" {
		return fmt.Errorf("key column cannot be empty")
	}
	if c.OutputFile == "" {
		return fmt.Errorf("output file cannot be empty")
	}
	if c.ImageDir == "" {
		return fmt.Errorf("image directory cannot be empty")
	}
	if c.Concurrency <= 0 {
		return fmt.Errorf("concurrency must be positive")
	}
	if c.HostInterval < 0 {
		return fmt.Errorf("host interval cannot be negative")
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive")
	}
	if c.Apply && c.DatabaseDSN == "" {
		return fmt.Errorf("apply mode requires a database DSN")
	}
	return nil
}
