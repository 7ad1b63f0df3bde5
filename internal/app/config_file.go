package app

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	yaml "gopkg.in/yaml.v3"
)

// FileConfig represents the single-file configuration schema.
// Durations are strings in time.ParseDuration syntax so YAML and JSON agree.
type FileConfig struct {
	Source struct {
		URL       string `yaml:"url" json:"url"`
		Timeout   string `yaml:"timeout" json:"timeout"`
		UserAgent string `yaml:"userAgent" json:"userAgent"`
	} `yaml:"source" json:"source"`

	Keyword  string `yaml:"keyword" json:"keyword"`
	Output   string `yaml:"output" json:"output"`
	MaxDays  int    `yaml:"maxDays" json:"maxDays"`
	Timezone string `yaml:"timezone" json:"timezone"`

	Snapshot struct {
		Dir         string `yaml:"dir" json:"dir"`
		MaxAge      string `yaml:"maxAge" json:"maxAge"`
		StrictPerms bool   `yaml:"strictPerms" json:"strictPerms"`
	} `yaml:"snapshot" json:"snapshot"`

	SQLite struct {
		Path string `yaml:"path" json:"path"`
	} `yaml:"sqlite" json:"sqlite"`

	Metrics struct {
		Textfile string `yaml:"textfile" json:"textfile"`
	} `yaml:"metrics" json:"metrics"`

	DryRun  bool `yaml:"dryRun" json:"dryRun"`
	Verbose bool `yaml:"verbose" json:"verbose"`
}

// LoadConfigFile reads YAML or JSON into FileConfig.
func LoadConfigFile(path string) (FileConfig, error) {
	var fc FileConfig
	b, err := os.ReadFile(path)
	if err != nil {
		return fc, err
	}
	switch ext := filepath.Ext(path); ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(b, &fc); err != nil {
			return fc, fmt.Errorf("parse yaml: %w", err)
		}
	case ".json":
		if err := json.Unmarshal(b, &fc); err != nil {
			return fc, fmt.Errorf("parse json: %w", err)
		}
	default:
		// Try YAML then JSON
		if err := yaml.Unmarshal(b, &fc); err != nil {
			if jerr := json.Unmarshal(b, &fc); jerr != nil {
				return fc, fmt.Errorf("parse config: %v (yaml) / %v (json)", err, jerr)
			}
		}
	}
	return fc, nil
}

// ApplyFileConfig overlays every value set in fc onto cfg. It runs before env
// and flags, so cfg normally holds defaults at this point.
func ApplyFileConfig(cfg *Config, fc FileConfig) error {
	if cfg == nil {
		return nil
	}
	if fc.Source.URL != "" {
		cfg.SourceURL = fc.Source.URL
	}
	if fc.Source.Timeout != "" {
		d, err := time.ParseDuration(fc.Source.Timeout)
		if err != nil {
			return fmt.Errorf("source.timeout: %w", err)
		}
		cfg.Timeout = d
	}
	if fc.Source.UserAgent != "" {
		cfg.UserAgent = fc.Source.UserAgent
	}
	if fc.Keyword != "" {
		cfg.Keyword = fc.Keyword
	}
	if fc.Output != "" {
		cfg.OutputPath = fc.Output
	}
	if fc.MaxDays > 0 {
		cfg.MaxDays = fc.MaxDays
	}
	if fc.Timezone != "" {
		cfg.Timezone = fc.Timezone
	}
	if fc.Snapshot.Dir != "" {
		cfg.SnapshotDir = fc.Snapshot.Dir
	}
	if fc.Snapshot.MaxAge != "" {
		d, err := time.ParseDuration(fc.Snapshot.MaxAge)
		if err != nil {
			return fmt.Errorf("snapshot.maxAge: %w", err)
		}
		cfg.SnapshotMaxAge = d
	}
	if fc.Snapshot.StrictPerms {
		cfg.SnapshotStrictPerms = true
	}
	if fc.SQLite.Path != "" {
		cfg.SQLitePath = fc.SQLite.Path
	}
	if fc.Metrics.Textfile != "" {
		cfg.MetricsTextfile = fc.Metrics.Textfile
	}
	if fc.DryRun {
		cfg.DryRun = true
	}
	if fc.Verbose {
		cfg.Verbose = true
	}
	return nil
}
