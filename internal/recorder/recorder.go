package recorder

import (
	"context"
	"time"

	"cloud.google.com/go/civil"
)

// Reading is one accepted level together with how it was obtained.
type Reading struct {
	Date       civil.Date
	Level      float64
	Raw        string
	Unit       string
	Stage      string
	SourceURL  string
	RecordedAt time.Time
}

// Recorder keeps a full history of readings alongside the windowed JSON
// series. A rerun on the same date replaces that date's reading.
type Recorder interface {
	Record(ctx context.Context, r Reading) error
	Close() error
}

// Noop is used when no history database is configured.
type Noop struct{}

func (Noop) Record(context.Context, Reading) error { return nil }
func (Noop) Close() error                          { return nil }
