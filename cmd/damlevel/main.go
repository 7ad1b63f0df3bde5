package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"
	_ "time/tzdata"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/hyperifyio/damlevel/internal/app"
)

// Process exit codes.
const (
	exitOK         = 0
	exitConfig     = 1
	exitFetch      = 2
	exitExtraction = 3
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stderr)
	stop()
	os.Exit(code)
}

func run(ctx context.Context, args []string, stderr io.Writer) int {
	// Logging setup
	zerolog.TimeFieldFormat = time.RFC3339
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: stderr, TimeFormat: time.RFC3339})

	cfg, showVersion, err := loadConfig(args, stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return exitOK
		}
		log.Error().Err(err).Msg("configuration error")
		return exitConfig
	}
	if showVersion {
		fmt.Fprintf(stderr, "damlevel %s (commit %s, built %s)\n", app.BuildVersion, app.BuildCommit, app.BuildDate)
		return exitOK
	}

	if cfg.Verbose {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	} else {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}

	a, err := app.New(ctx, cfg)
	if err != nil {
		log.Error().Err(err).Msg("init failed")
		return exitConfig
	}
	defer a.Close()

	if err := a.Run(ctx); err != nil {
		log.Error().Err(err).Msg("run failed")
		return exitCode(err)
	}
	return exitOK
}

func exitCode(err error) int {
	switch {
	case err == nil:
		return exitOK
	case errors.Is(err, app.ErrFetch):
		return exitFetch
	case errors.Is(err, app.ErrExtraction):
		return exitExtraction
	default:
		return exitConfig
	}
}

// loadConfig layers defaults, an optional config file, dotenv files and the
// environment, and finally any flags given explicitly on the command line.
func loadConfig(args []string, stderr io.Writer) (app.Config, bool, error) {
	cfg := app.DefaultConfig()

	fs := flag.NewFlagSet("damlevel", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var (
		configPath  string
		envFile     string
		showVersion bool
		flagCfg     = app.DefaultConfig()
	)
	fs.StringVar(&configPath, "config", os.Getenv("DAMLEVEL_CONFIG"), "Path to YAML or JSON config file")
	fs.StringVar(&envFile, "env", ".env", "Dotenv file to load before reading DAMLEVEL_* variables")
	fs.BoolVar(&showVersion, "version", false, "Print version and exit")
	fs.StringVar(&flagCfg.SourceURL, "url", flagCfg.SourceURL, "Status page URL")
	fs.DurationVar(&flagCfg.Timeout, "timeout", flagCfg.Timeout, "Request timeout")
	fs.StringVar(&flagCfg.UserAgent, "ua", flagCfg.UserAgent, "User-Agent header")
	fs.StringVar(&flagCfg.Keyword, "keyword", flagCfg.Keyword, "Reservoir name to look for (case-insensitive)")
	fs.StringVar(&flagCfg.OutputPath, "output", flagCfg.OutputPath, "Path of the JSON series file")
	fs.IntVar(&flagCfg.MaxDays, "max-days", flagCfg.MaxDays, "Number of most recent observations to keep")
	fs.StringVar(&flagCfg.Timezone, "tz", flagCfg.Timezone, "IANA timezone for the observation date (default local)")
	fs.StringVar(&flagCfg.SnapshotDir, "snapshot.dir", "", "Archive fetched pages in this directory")
	fs.DurationVar(&flagCfg.SnapshotMaxAge, "snapshot.maxAge", 0, "Purge archived pages older than this; 0 keeps all")
	fs.BoolVar(&flagCfg.SnapshotStrictPerms, "snapshot.strictPerms", false, "Restrict archive permissions (0700 dirs, 0600 files)")
	fs.StringVar(&flagCfg.SQLitePath, "sqlite", "", "Also record readings in this SQLite database")
	fs.StringVar(&flagCfg.MetricsTextfile, "metrics.textfile", "", "Write Prometheus textfile metrics to this path")
	fs.BoolVar(&flagCfg.DryRun, "dry-run", false, "Fetch and extract without writing anything")
	fs.BoolVar(&flagCfg.Verbose, "v", false, "Verbose logging")
	if err := fs.Parse(args); err != nil {
		return cfg, false, err
	}
	if fs.NArg() > 0 {
		return cfg, false, fmt.Errorf("unexpected arguments: %v", fs.Args())
	}
	if showVersion {
		return cfg, true, nil
	}

	if configPath != "" {
		fc, err := app.LoadConfigFile(configPath)
		if err != nil {
			return cfg, false, fmt.Errorf("load config %s: %w", configPath, err)
		}
		if err := app.ApplyFileConfig(&cfg, fc); err != nil {
			return cfg, false, fmt.Errorf("config %s: %w", configPath, err)
		}
	}
	if err := app.LoadEnvFiles(envFile); err != nil {
		return cfg, false, fmt.Errorf("load env file: %w", err)
	}
	if err := app.ApplyEnvOverrides(&cfg); err != nil {
		return cfg, false, err
	}

	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "url":
			cfg.SourceURL = flagCfg.SourceURL
		case "timeout":
			cfg.Timeout = flagCfg.Timeout
		case "ua":
			cfg.UserAgent = flagCfg.UserAgent
		case "keyword":
			cfg.Keyword = flagCfg.Keyword
		case "output":
			cfg.OutputPath = flagCfg.OutputPath
		case "max-days":
			cfg.MaxDays = flagCfg.MaxDays
		case "tz":
			cfg.Timezone = flagCfg.Timezone
		case "snapshot.dir":
			cfg.SnapshotDir = flagCfg.SnapshotDir
		case "snapshot.maxAge":
			cfg.SnapshotMaxAge = flagCfg.SnapshotMaxAge
		case "snapshot.strictPerms":
			cfg.SnapshotStrictPerms = flagCfg.SnapshotStrictPerms
		case "sqlite":
			cfg.SQLitePath = flagCfg.SQLitePath
		case "metrics.textfile":
			cfg.MetricsTextfile = flagCfg.MetricsTextfile
		case "dry-run":
			cfg.DryRun = flagCfg.DryRun
		case "v":
			cfg.Verbose = flagCfg.Verbose
		}
	})

	if err := app.ValidateConfig(cfg); err != nil {
		return cfg, false, err
	}
	return cfg, false, nil
}
