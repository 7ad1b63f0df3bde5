package app

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// ApplyEnvOverrides overrides cfg fields with DAMLEVEL_* environment variables
// when they are set. Env takes precedence over a config file; explicit flags
// are applied afterwards and win over both.
func ApplyEnvOverrides(cfg *Config) error {
	if cfg == nil {
		return nil
	}

	setString := func(dst *string, key string) {
		if v := strings.TrimSpace(os.Getenv(key)); v != "" {
			*dst = v
		}
	}
	setString(&cfg.SourceURL, "DAMLEVEL_SOURCE_URL")
	setString(&cfg.UserAgent, "DAMLEVEL_USER_AGENT")
	setString(&cfg.Keyword, "DAMLEVEL_KEYWORD")
	setString(&cfg.OutputPath, "DAMLEVEL_OUTPUT")
	setString(&cfg.Timezone, "DAMLEVEL_TIMEZONE")
	setString(&cfg.SnapshotDir, "DAMLEVEL_SNAPSHOT_DIR")
	setString(&cfg.SQLitePath, "DAMLEVEL_SQLITE_PATH")
	setString(&cfg.MetricsTextfile, "DAMLEVEL_METRICS_TEXTFILE")

	setDuration := func(dst *time.Duration, key string) error {
		s := strings.TrimSpace(os.Getenv(key))
		if s == "" {
			return nil
		}
		d, err := time.ParseDuration(s)
		if err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
		*dst = d
		return nil
	}
	if err := setDuration(&cfg.Timeout, "DAMLEVEL_TIMEOUT"); err != nil {
		return err
	}
	if err := setDuration(&cfg.SnapshotMaxAge, "DAMLEVEL_SNAPSHOT_MAX_AGE"); err != nil {
		return err
	}

	if s := strings.TrimSpace(os.Getenv("DAMLEVEL_MAX_DAYS")); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil {
			return fmt.Errorf("DAMLEVEL_MAX_DAYS: %w", err)
		}
		cfg.MaxDays = n
	}

	// Booleans override when env present and truthy/falsey
	setBool := func(dst *bool, key string) {
		switch strings.ToLower(strings.TrimSpace(os.Getenv(key))) {
		case "1", "true", "yes", "on":
			*dst = true
		case "0", "false", "no", "off":
			*dst = false
		}
	}
	setBool(&cfg.DryRun, "DAMLEVEL_DRY_RUN")
	setBool(&cfg.Verbose, "DAMLEVEL_VERBOSE")
	setBool(&cfg.SnapshotStrictPerms, "DAMLEVEL_SNAPSHOT_STRICT_PERMS")
	return nil
}
