package app

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"
)

const (
	DefaultSourceURL  = "https://www.tnagrisnet.tn.gov.in/home/reservoir/"
	DefaultTimeout    = 20 * time.Second
	DefaultMaxDays    = 365
	DefaultKeyword    = "mettur"
	DefaultOutputPath = "data/data.json"
)

// DefaultUserAgent identifies the bot to the source site.
func DefaultUserAgent() string {
	return "damlevel/" + BuildVersion + " (+https://github.com/hyperifyio/damlevel)"
}

// Config holds runtime configuration for the application.
type Config struct {
	// Source
	SourceURL string
	Timeout   time.Duration
	UserAgent string
	Keyword   string

	// Series
	OutputPath string
	MaxDays    int
	// Timezone names the IANA zone whose calendar date labels an observation.
	// Empty means the host's local zone.
	Timezone string

	// Optional sinks
	SnapshotDir         string
	SnapshotMaxAge      time.Duration
	SnapshotStrictPerms bool
	SQLitePath          string
	MetricsTextfile     string

	// Behavior
	DryRun  bool
	Verbose bool
}

// DefaultConfig returns the configuration used when nothing is overridden.
func DefaultConfig() Config {
	return Config{
		SourceURL:  DefaultSourceURL,
		Timeout:    DefaultTimeout,
		UserAgent:  DefaultUserAgent(),
		Keyword:    DefaultKeyword,
		OutputPath: DefaultOutputPath,
		MaxDays:    DefaultMaxDays,
	}
}

// ValidateConfig checks required settings and value ranges.
func ValidateConfig(cfg Config) error {
	if strings.TrimSpace(cfg.SourceURL) == "" {
		return errors.New("config: source url is required")
	}
	u, err := url.Parse(cfg.SourceURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("config: source url %q must be an absolute http(s) URL", cfg.SourceURL)
	}
	if strings.TrimSpace(cfg.Keyword) == "" {
		return errors.New("config: keyword is required")
	}
	if strings.TrimSpace(cfg.OutputPath) == "" && !cfg.DryRun {
		return errors.New("config: output path is required")
	}
	if cfg.Timeout <= 0 {
		return errors.New("config: timeout must be positive")
	}
	if cfg.MaxDays <= 0 {
		return errors.New("config: max days must be positive")
	}
	if cfg.SnapshotMaxAge < 0 {
		return errors.New("config: snapshot max age must not be negative")
	}
	if _, err := loadLocation(cfg.Timezone); err != nil {
		return fmt.Errorf("config: timezone: %w", err)
	}
	return nil
}

func loadLocation(name string) (*time.Location, error) {
	if name = strings.TrimSpace(name); name == "" {
		return time.Local, nil
	}
	return time.LoadLocation(name)
}
