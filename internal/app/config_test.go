package app

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig_Valid(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, ValidateConfig(cfg))
	assert.Equal(t, DefaultSourceURL, cfg.SourceURL)
	assert.Equal(t, 20*time.Second, cfg.Timeout)
	assert.Equal(t, 365, cfg.MaxDays)
	assert.Equal(t, "mettur", cfg.Keyword)
	assert.Equal(t, "data/data.json", cfg.OutputPath)
	assert.Contains(t, cfg.UserAgent, "damlevel/")
}

func TestValidateConfig_Rejects(t *testing.T) {
	cases := map[string]func(*Config){
		"empty url":        func(c *Config) { c.SourceURL = "" },
		"relative url":     func(c *Config) { c.SourceURL = "/reservoir" },
		"ftp url":          func(c *Config) { c.SourceURL = "ftp://example.gov/x" },
		"empty keyword":    func(c *Config) { c.Keyword = "  " },
		"empty output":     func(c *Config) { c.OutputPath = "" },
		"zero timeout":     func(c *Config) { c.Timeout = 0 },
		"zero max days":    func(c *Config) { c.MaxDays = 0 },
		"negative max age": func(c *Config) { c.SnapshotMaxAge = -time.Hour },
		"unknown timezone": func(c *Config) { c.Timezone = "Nowhere/Atlantis" },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := DefaultConfig()
			mutate(&cfg)
			assert.Error(t, ValidateConfig(cfg))
		})
	}
}

func TestValidateConfig_DryRunWithoutOutput(t *testing.T) {
	cfg := DefaultConfig()
	cfg.OutputPath = ""
	cfg.DryRun = true
	assert.NoError(t, ValidateConfig(cfg))
}

func TestLoadConfigFile_YAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "damlevel.yaml")
	content := `source:
  url: https://example.gov/levels
  timeout: 45s
keyword: Bhavanisagar
output: /srv/data/bhavani.json
maxDays: 90
timezone: UTC
snapshot:
  dir: /var/cache/damlevel
  maxAge: 168h
sqlite:
  path: /srv/data/history.db
metrics:
  textfile: /var/lib/node_exporter/damlevel.prom
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	fc, err := LoadConfigFile(path)
	require.NoError(t, err)
	cfg := DefaultConfig()
	require.NoError(t, ApplyFileConfig(&cfg, fc))

	assert.Equal(t, "https://example.gov/levels", cfg.SourceURL)
	assert.Equal(t, 45*time.Second, cfg.Timeout)
	assert.Equal(t, "Bhavanisagar", cfg.Keyword)
	assert.Equal(t, "/srv/data/bhavani.json", cfg.OutputPath)
	assert.Equal(t, 90, cfg.MaxDays)
	assert.Equal(t, "UTC", cfg.Timezone)
	assert.Equal(t, "/var/cache/damlevel", cfg.SnapshotDir)
	assert.Equal(t, 168*time.Hour, cfg.SnapshotMaxAge)
	assert.Equal(t, "/srv/data/history.db", cfg.SQLitePath)
	assert.Equal(t, "/var/lib/node_exporter/damlevel.prom", cfg.MetricsTextfile)
	// untouched fields keep their defaults
	assert.Equal(t, DefaultUserAgent(), cfg.UserAgent)
}

func TestLoadConfigFile_JSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "damlevel.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"keyword":"vaigai","maxDays":7,"dryRun":true}`), 0o644))

	fc, err := LoadConfigFile(path)
	require.NoError(t, err)
	cfg := DefaultConfig()
	require.NoError(t, ApplyFileConfig(&cfg, fc))
	assert.Equal(t, "vaigai", cfg.Keyword)
	assert.Equal(t, 7, cfg.MaxDays)
	assert.True(t, cfg.DryRun)
}

func TestLoadConfigFile_Errors(t *testing.T) {
	_, err := LoadConfigFile(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)

	path := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"keyword":`), 0o644))
	_, err = LoadConfigFile(path)
	assert.Error(t, err)
}

func TestApplyFileConfig_BadDuration(t *testing.T) {
	var fc FileConfig
	fc.Source.Timeout = "twenty seconds"
	cfg := DefaultConfig()
	assert.Error(t, ApplyFileConfig(&cfg, fc))

	fc = FileConfig{}
	fc.Snapshot.MaxAge = "1 week"
	assert.Error(t, ApplyFileConfig(&cfg, fc))
}
