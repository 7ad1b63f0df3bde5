package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"cloud.google.com/go/civil"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/hyperifyio/damlevel/internal/extract"
	"github.com/hyperifyio/damlevel/internal/fetch"
	"github.com/hyperifyio/damlevel/internal/metrics"
	"github.com/hyperifyio/damlevel/internal/recorder"
	"github.com/hyperifyio/damlevel/internal/series"
	"github.com/hyperifyio/damlevel/internal/snapshot"
)

var (
	// ErrFetch wraps any failure to obtain the source page.
	ErrFetch = errors.New("fetch failed")
	// ErrExtraction wraps a page that yielded no level.
	ErrExtraction = errors.New("extraction failed")
)

type App struct {
	cfg       Config
	loc       *time.Location
	clock     clockwork.Clock
	client    *fetch.Client
	extractor extract.Extractor
	snapshots *snapshot.Store
	recorder  recorder.Recorder
	metrics   *metrics.Run
}

// Option customizes App construction, mainly for tests.
type Option func(*App)

// WithClock replaces the wall clock used for the observation date.
func WithClock(c clockwork.Clock) Option {
	return func(a *App) { a.clock = c }
}

// WithHTTPClient replaces the HTTP client used for the page request.
func WithHTTPClient(c *http.Client) Option {
	return func(a *App) { a.client.HTTPClient = c }
}

// WithExtractor replaces the default keyword extractor.
func WithExtractor(e extract.Extractor) Option {
	return func(a *App) { a.extractor = e }
}

func New(ctx context.Context, cfg Config, opts ...Option) (*App, error) {
	if err := ValidateConfig(cfg); err != nil {
		return nil, err
	}
	loc, err := loadLocation(cfg.Timezone)
	if err != nil {
		return nil, err
	}
	a := &App{
		cfg:   cfg,
		loc:   loc,
		clock: clockwork.NewRealClock(),
		client: &fetch.Client{
			HTTPClient: newHTTPClient(cfg.Timeout),
			UserAgent:  cfg.UserAgent,
			Timeout:    cfg.Timeout,
		},
		extractor: extract.KeywordExtractor{Keyword: cfg.Keyword},
		recorder:  recorder.Noop{},
		metrics:   metrics.NewRun(),
	}
	for _, opt := range opts {
		opt(a)
	}
	a.client.Clock = a.clock
	if cfg.SnapshotDir != "" {
		a.snapshots = &snapshot.Store{Dir: cfg.SnapshotDir, StrictPerms: cfg.SnapshotStrictPerms}
	}
	if cfg.SQLitePath != "" && !cfg.DryRun {
		rec, err := recorder.OpenSQLite(ctx, cfg.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("open history: %w", err)
		}
		a.recorder = rec
	}
	return a, nil
}

// Close releases the history database, if any.
func (a *App) Close() error {
	if a == nil || a.recorder == nil {
		return nil
	}
	return a.recorder.Close()
}

// Run performs one fetch, extract and store cycle. A fetch problem is
// returned wrapping ErrFetch and an unusable page wrapping ErrExtraction; in
// both cases the stored series is left untouched.
func (a *App) Run(ctx context.Context) error {
	log.Info().Str("url", a.cfg.SourceURL).Msg("fetching")
	start := a.clock.Now()
	page, err := a.client.Get(ctx, a.cfg.SourceURL)
	a.metrics.FetchDuration.Set(a.clock.Since(start).Seconds())
	if err != nil {
		a.fail("fetch")
		return fmt.Errorf("%w: %w", ErrFetch, err)
	}
	log.Debug().Int("status", page.Status).Int("bytes", len(page.Body)).Str("content_type", page.ContentType).Msg("page fetched")
	if !a.cfg.DryRun {
		a.archive(ctx, page)
	}

	res, err := a.extractor.Extract(page.Body)
	if err != nil {
		a.fail("extract")
		return fmt.Errorf("%w: %w", ErrExtraction, err)
	}
	log.Info().Str("stage", res.Stage.String()).Str("fragment", res.Fragment).
		Msgf("Parsed level: %.3f m (raw: %s %s)", res.Level, res.Raw, res.Unit)

	now := a.clock.Now()
	today := civil.DateOf(now.In(a.loc))
	if a.cfg.DryRun {
		log.Info().Str("date", today.String()).Float64("level", series.Round(res.Level)).Msg("dry run; series not updated")
		return nil
	}

	s, err := series.Load(a.cfg.OutputPath)
	if err != nil {
		log.Warn().Err(err).Str("path", a.cfg.OutputPath).Msg("could not read existing series; starting fresh")
		s = series.Series{}
	}
	if last, ok := s.Last(); ok && last.Date == today {
		log.Info().Str("date", today.String()).Float64("previous", last.Level).Msg("Replacing today's value")
	}
	s = series.Merge(s, series.Observation{Date: today, Level: res.Level}, a.cfg.MaxDays)
	if err := series.Save(a.cfg.OutputPath, s); err != nil {
		a.fail("persist")
		return fmt.Errorf("save series: %w", err)
	}

	reading := recorder.Reading{
		Date:       today,
		Level:      series.Round(res.Level),
		Raw:        res.Raw,
		Unit:       res.Unit,
		Stage:      res.Stage.String(),
		SourceURL:  page.URL,
		RecordedAt: now,
	}
	if err := a.recorder.Record(ctx, reading); err != nil {
		log.Warn().Err(err).Msg("history record failed")
	}

	a.metrics.Succeeded(series.Round(res.Level), res.Stage.String(), len(s), now)
	a.writeMetrics()
	log.Info().Msgf("Saved %d entries to %s", len(s), a.cfg.OutputPath)
	return nil
}

// archive stores the fetched page and prunes old snapshots. Failures are
// logged only; the archive is a debugging aid.
func (a *App) archive(ctx context.Context, page *fetch.Page) {
	if a.snapshots == nil {
		return
	}
	now := page.FetchedAt
	key, err := a.snapshots.Save(ctx, snapshot.Entry{
		URL:         page.URL,
		ContentType: page.ContentType,
		Status:      page.Status,
		SavedAt:     now,
	}, page.Body)
	if err != nil {
		log.Warn().Err(err).Str("dir", a.snapshots.Dir).Msg("snapshot save failed")
	} else {
		log.Debug().Str("key", key).Msg("snapshot saved")
	}
	if a.cfg.SnapshotMaxAge > 0 {
		n, err := snapshot.PurgeByAge(a.snapshots.Dir, a.cfg.SnapshotMaxAge, now)
		if err != nil {
			log.Warn().Err(err).Msg("snapshot purge failed")
		} else if n > 0 {
			log.Debug().Int("removed", n).Msg("old snapshots purged")
		}
	}
}

func (a *App) fail(reason string) {
	a.metrics.Failed(reason, a.clock.Now())
	a.writeMetrics()
}

func (a *App) writeMetrics() {
	if a.cfg.MetricsTextfile == "" || a.cfg.DryRun {
		return
	}
	if err := a.metrics.WriteTextfile(a.cfg.MetricsTextfile); err != nil {
		log.Warn().Err(err).Msg("metrics textfile write failed")
	}
}
