package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/hyperifyio/damlevel/internal/app"
)

func newStatusServer(t *testing.T, status int, body string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

const page = `<table><tr><td>Mettur Dam</td><td>36.70 m</td></tr></table>`

func TestRun_Success_WritesSeries(t *testing.T) {
	srv := newStatusServer(t, http.StatusOK, page)
	out := filepath.Join(t.TempDir(), "data", "data.json")
	var stderr bytes.Buffer

	code := run(context.Background(), []string{"-env", "", "-url", srv.URL, "-output", out, "-tz", "UTC"}, &stderr)
	if code != exitOK {
		t.Fatalf("exit code %d, log:\n%s", code, stderr.String())
	}
	b, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("read series: %v", err)
	}
	if !strings.Contains(string(b), `"level": 36.7`) {
		t.Fatalf("unexpected series file:\n%s", b)
	}
	if !strings.Contains(stderr.String(), "Saved 1 entries to") {
		t.Fatalf("expected save log line, got:\n%s", stderr.String())
	}
}

func TestRun_ExitCodes(t *testing.T) {
	ok := newStatusServer(t, http.StatusOK, page)
	down := newStatusServer(t, http.StatusBadGateway, "bad gateway")
	empty := newStatusServer(t, http.StatusOK, "<p>No data available</p>")

	cases := []struct {
		name string
		args []string
		want int
	}{
		{"fetch failure", []string{"-url", down.URL}, exitFetch},
		{"extraction failure", []string{"-url", empty.URL}, exitExtraction},
		{"invalid max days", []string{"-url", ok.URL, "-max-days", "0"}, exitConfig},
		{"unknown flag", []string{"-nope"}, exitConfig},
		{"bad timezone", []string{"-url", ok.URL, "-tz", "Mars/Olympus"}, exitConfig},
		{"dry run", []string{"-url", ok.URL, "-dry-run"}, exitOK},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			out := filepath.Join(t.TempDir(), "data.json")
			args := append([]string{"-env", "", "-output", out}, tc.args...)
			var stderr bytes.Buffer
			if got := run(context.Background(), args, &stderr); got != tc.want {
				t.Fatalf("exit code %d, want %d; log:\n%s", got, tc.want, stderr.String())
			}
		})
	}
}

func TestExitCode_Mapping(t *testing.T) {
	if got := exitCode(fmt.Errorf("%w: timeout", app.ErrFetch)); got != exitFetch {
		t.Fatalf("fetch: got %d", got)
	}
	if got := exitCode(fmt.Errorf("%w: no level", app.ErrExtraction)); got != exitExtraction {
		t.Fatalf("extraction: got %d", got)
	}
	if got := exitCode(errors.New("disk full")); got != exitConfig {
		t.Fatalf("other: got %d", got)
	}
}

func TestLoadConfig_Precedence(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "damlevel.yaml")
	content := "keyword: bhavani\nmaxDays: 30\noutput: " + filepath.Join(dir, "file.json") + "\n"
	if err := os.WriteFile(cfgPath, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	envPath := filepath.Join(dir, ".env")
	if err := os.WriteFile(envPath, []byte("DAMLEVEL_MAX_DAYS=60\n"), 0o600); err != nil {
		t.Fatalf("write env: %v", err)
	}
	t.Setenv("DAMLEVEL_MAX_DAYS", "")
	t.Setenv("DAMLEVEL_KEYWORD", "")

	var stderr bytes.Buffer
	cfg, _, err := loadConfig([]string{"-config", cfgPath, "-env", envPath, "-keyword", "Mettur"}, &stderr)
	if err != nil {
		t.Fatalf("loadConfig: %v", err)
	}
	// flag beats file
	if cfg.Keyword != "Mettur" {
		t.Fatalf("keyword=%q, want Mettur", cfg.Keyword)
	}
	// env (via dotenv) beats file
	if cfg.MaxDays != 60 {
		t.Fatalf("maxDays=%d, want 60", cfg.MaxDays)
	}
	// file beats default
	if cfg.OutputPath != filepath.Join(dir, "file.json") {
		t.Fatalf("output=%q", cfg.OutputPath)
	}
	// defaults survive when nothing overrides them
	if cfg.SourceURL != app.DefaultSourceURL {
		t.Fatalf("url=%q", cfg.SourceURL)
	}
}

func TestLoadConfig_Version(t *testing.T) {
	var stderr bytes.Buffer
	_, showVersion, err := loadConfig([]string{"-version"}, &stderr)
	if err != nil || !showVersion {
		t.Fatalf("expected version request, got %v %v", showVersion, err)
	}
	if code := run(context.Background(), []string{"-version"}, &stderr); code != exitOK {
		t.Fatalf("version exit code %d", code)
	}
	if !strings.Contains(stderr.String(), "damlevel "+app.BuildVersion) {
		t.Fatalf("missing version line: %q", stderr.String())
	}
}
