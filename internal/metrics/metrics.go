package metrics

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "damlevel"

// Run holds the gauges describing a single invocation. A run is short lived,
// so instead of serving /metrics the gauges are written to a file picked up
// by node_exporter's textfile collector.
type Run struct {
	registry *prometheus.Registry

	Success          prometheus.Gauge
	LevelMeters      prometheus.Gauge
	SeriesLength     prometheus.Gauge
	FetchDuration    prometheus.Gauge
	LastRunTimestamp prometheus.Gauge
	LastSuccess      prometheus.Gauge
	Stage            *prometheus.GaugeVec // labels: stage={structured,flat_text,proximity}
	Failure          *prometheus.GaugeVec // labels: reason={fetch,extract,persist}
}

// NewRun registers the run gauges on a private registry.
func NewRun() *Run {
	m := &Run{
		registry: prometheus.NewRegistry(),
		Success: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "run_success",
			Help:      "1 when the last run stored a level, 0 otherwise.",
		}),
		LevelMeters: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "level_meters",
			Help:      "Reservoir level extracted by the last successful run.",
		}),
		SeriesLength: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "series_entries",
			Help:      "Number of observations in the persisted series.",
		}),
		FetchDuration: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "fetch_duration_seconds",
			Help:      "Duration of the source page request.",
		}),
		LastRunTimestamp: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_run_timestamp_seconds",
			Help:      "Unix time the last run finished.",
		}),
		LastSuccess: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_success_timestamp_seconds",
			Help:      "Unix time of the last run that stored a level.",
		}),
		Stage: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "extraction_stage",
			Help:      "1 for the extraction stage that produced the last level.",
		}, []string{"stage"}),
		Failure: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "run_failure",
			Help:      "1 for the reason the last run failed.",
		}, []string{"reason"}),
	}
	m.registry.MustRegister(
		m.Success,
		m.LevelMeters,
		m.SeriesLength,
		m.FetchDuration,
		m.LastRunTimestamp,
		m.LastSuccess,
		m.Stage,
		m.Failure,
	)
	return m
}

// Registry exposes the gatherer, mainly for tests.
func (m *Run) Registry() *prometheus.Registry { return m.registry }

// Succeeded records a stored level.
func (m *Run) Succeeded(level float64, stage string, entries int, at time.Time) {
	m.Success.Set(1)
	m.LevelMeters.Set(level)
	m.Stage.WithLabelValues(stage).Set(1)
	m.SeriesLength.Set(float64(entries))
	m.LastSuccess.Set(float64(at.Unix()))
	m.LastRunTimestamp.Set(float64(at.Unix()))
}

// Failed records a failed run. A previous last-success timestamp is not
// carried over, since the textfile is rewritten every run.
func (m *Run) Failed(reason string, at time.Time) {
	m.Success.Set(0)
	m.Failure.WithLabelValues(reason).Set(1)
	m.LastRunTimestamp.Set(float64(at.Unix()))
}

// WriteTextfile atomically writes the gauges in the Prometheus text format.
func (m *Run) WriteTextfile(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("mkdir %s: %w", dir, err)
		}
	}
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return fmt.Errorf("write metrics textfile: %w", err)
	}
	return nil
}
