package snapshot

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Entry is the metadata stored next to each archived page body.
type Entry struct {
	URL         string    `json:"url"`
	ContentType string    `json:"content_type"`
	Status      int       `json:"status"`
	SavedAt     time.Time `json:"saved_at"`
}

// Store archives fetched pages on disk as <key>.meta.json and <key>.body, where
// key is the UTC fetch time followed by a short sha256 of the URL. Keeping the
// page a level was read from makes a wrong or failed extraction reproducible.
type Store struct {
	Dir string
	// StrictPerms restricts the directory to 0700 and files to 0600.
	StrictPerms bool
}

func (s *Store) dirMode() os.FileMode {
	if s.StrictPerms {
		return 0o700
	}
	return 0o755
}

func (s *Store) fileMode() os.FileMode {
	if s.StrictPerms {
		return 0o600
	}
	return 0o644
}

func (s *Store) ensureDir() error {
	if s == nil || s.Dir == "" {
		return errors.New("snapshot dir not configured")
	}
	if err := os.MkdirAll(s.Dir, s.dirMode()); err != nil {
		return err
	}
	return os.Chmod(s.Dir, s.dirMode())
}

// Key derives the file stem for url fetched at t.
func Key(url string, t time.Time) string {
	h := sha256.Sum256([]byte(url))
	return t.UTC().Format("20060102T150405Z") + "-" + hex.EncodeToString(h[:6])
}

func (s *Store) metaPath(key string) string { return filepath.Join(s.Dir, key+".meta.json") }
func (s *Store) bodyPath(key string) string { return filepath.Join(s.Dir, key+".body") }

// Save writes body and its metadata and returns the key they are stored under.
func (s *Store) Save(_ context.Context, e Entry, body []byte) (string, error) {
	if err := s.ensureDir(); err != nil {
		return "", err
	}
	if e.SavedAt.IsZero() {
		e.SavedAt = time.Now().UTC()
	}
	key := Key(e.URL, e.SavedAt)
	// Write body first so a meta file always has its body.
	if err := os.WriteFile(s.bodyPath(key), body, s.fileMode()); err != nil {
		return "", fmt.Errorf("write body: %w", err)
	}
	tmp := s.metaPath(key) + ".tmp"
	f, err := os.OpenFile(tmp, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, s.fileMode())
	if err != nil {
		return "", fmt.Errorf("create meta: %w", err)
	}
	if err := json.NewEncoder(f).Encode(&e); err != nil {
		f.Close()
		return "", fmt.Errorf("encode meta: %w", err)
	}
	if err := f.Close(); err != nil {
		return "", err
	}
	if err := os.Rename(tmp, s.metaPath(key)); err != nil {
		return "", err
	}
	return key, nil
}

// LoadMeta returns the metadata stored under key. LoadMeta and LoadBody are
// the read side of the archive, used when inspecting a past run.
func (s *Store) LoadMeta(_ context.Context, key string) (*Entry, error) {
	f, err := os.Open(s.metaPath(key))
	if err != nil {
		return nil, err
	}
	defer f.Close()
	var e Entry
	if err := json.NewDecoder(f).Decode(&e); err != nil {
		return nil, err
	}
	return &e, nil
}

// LoadBody returns the page body stored under key.
func (s *Store) LoadBody(_ context.Context, key string) ([]byte, error) {
	return os.ReadFile(s.bodyPath(key))
}
