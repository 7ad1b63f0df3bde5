package series

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// ErrMalformed is wrapped by Load when the file exists but is not a valid
// series. Callers typically log it and start from an empty series.
var ErrMalformed = errors.New("malformed series file")

// Load reads the series stored at path. A missing file is an empty series.
func Load(path string) (Series, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Series{}, nil
		}
		return Series{}, fmt.Errorf("read series: %w", err)
	}
	var s Series
	if err := json.Unmarshal(b, &s); err != nil {
		return Series{}, fmt.Errorf("%w %s: %v", ErrMalformed, path, err)
	}
	if s == nil {
		s = Series{}
	}
	return s, nil
}

// Save replaces the file at path with s, indented two spaces. The write goes
// to a temporary file in the same directory which is then renamed over path,
// so readers never observe a partial file.
func Save(path string, s Series) error {
	if s == nil {
		s = Series{}
	}
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("encode series: %w", err)
	}
	data = append(data, '\n')

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("mkdir %s: %w", dir, err)
	}
	f, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp: %w", err)
	}
	tmp := f.Name()
	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("write series: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return err
	}
	if err := os.Chmod(tmp, 0o644); err != nil {
		os.Remove(tmp)
		return err
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("rename series: %w", err)
	}
	return nil
}
