package recorder

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"cloud.google.com/go/civil"
	"github.com/rs/zerolog/log"

	_ "modernc.org/sqlite"
)

// SQLite persists readings to a SQLite database, one row per date.
type SQLite struct {
	db *sql.DB
}

// OpenSQLite opens (or creates) the database at path and runs migrations.
func OpenSQLite(ctx context.Context, path string) (*SQLite, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("mkdir %s: %w", dir, err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// WAL lets a dashboard read while a run writes.
	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}
	r := &SQLite{db: db}
	if err := r.migrate(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	log.Debug().Str("path", path).Msg("sqlite recorder opened")
	return r, nil
}

func (r *SQLite) migrate(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS readings (
			date        TEXT PRIMARY KEY,
			level       REAL NOT NULL,
			raw         TEXT,
			unit        TEXT,
			stage       TEXT,
			source_url  TEXT,
			recorded_at INTEGER NOT NULL
		)`,
	}
	for _, s := range stmts {
		if _, err := r.db.ExecContext(ctx, s); err != nil {
			return fmt.Errorf("exec %q: %w", s[:40], err)
		}
	}
	return nil
}

func (r *SQLite) Record(ctx context.Context, rd Reading) error {
	if rd.RecordedAt.IsZero() {
		rd.RecordedAt = time.Now()
	}
	_, err := r.db.ExecContext(ctx, `INSERT INTO readings
		(date, level, raw, unit, stage, source_url, recorded_at)
		VALUES (?,?,?,?,?,?,?)
		ON CONFLICT(date) DO UPDATE SET
			level = excluded.level,
			raw = excluded.raw,
			unit = excluded.unit,
			stage = excluded.stage,
			source_url = excluded.source_url,
			recorded_at = excluded.recorded_at`,
		rd.Date.String(), rd.Level, rd.Raw, rd.Unit, rd.Stage, rd.SourceURL, rd.RecordedAt.Unix(),
	)
	if err != nil {
		return fmt.Errorf("record %s: %w", rd.Date, err)
	}
	return nil
}

// Readings returns every stored reading ordered by date.
func (r *SQLite) Readings(ctx context.Context) ([]Reading, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT date, level, raw, unit, stage, source_url, recorded_at
		FROM readings ORDER BY date`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Reading
	for rows.Next() {
		var (
			date string
			rd   Reading
			ts   int64
		)
		if err := rows.Scan(&date, &rd.Level, &rd.Raw, &rd.Unit, &rd.Stage, &rd.SourceURL, &ts); err != nil {
			return nil, err
		}
		d, err := civil.ParseDate(date)
		if err != nil {
			return nil, fmt.Errorf("parse stored date %q: %w", date, err)
		}
		rd.Date = d
		rd.RecordedAt = time.Unix(ts, 0)
		out = append(out, rd)
	}
	return out, rows.Err()
}

func (r *SQLite) Close() error {
	return r.db.Close()
}
