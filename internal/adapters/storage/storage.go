// Package storage persists uploaded videos to uniquely named temporary
// files for the duration of one prediction request.
package storage

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// TempStore writes request-scoped files under a single directory. Names are
// prefixed with a UUID so concurrent requests uploading the same filename
// never collide, and removing one request's file cannot touch another's.
type TempStore struct {
	dir string
}

// NewTempStore ensures dir exists and returns a store rooted there.
func NewTempStore(dir string) (*TempStore, error) {
	if strings.TrimSpace(dir) == "" {
		dir = os.TempDir()
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create temp upload dir %s: %w", dir, err)
	}
	return &TempStore{dir: dir}, nil
}

// Dir returns the store's root directory.
func (s *TempStore) Dir() string {
	return s.dir
}

// Save streams r to a uniquely named file and returns its path.
func (s *TempStore) Save(r io.Reader, filename string) (string, error) {
	name := uuid.New().String() + "_" + sanitizeFilename(filename)
	path := filepath.Join(s.dir, name)

	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		os.Remove(path)
		return "", fmt.Errorf("write temp file: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(path)
		return "", fmt.Errorf("close temp file: %w", err)
	}
	return path, nil
}

// Remove deletes a saved file. Removal is best-effort: a file that is
// already gone is not an error.
func (s *TempStore) Remove(path string) error {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove temp file: %w", err)
	}
	return nil
}

// sanitizeFilename strips any path components and characters that do not
// belong in a safe local filename.
func sanitizeFilename(name string) string {
	base := filepath.Base(strings.TrimSpace(name))
	if base == "." || base == string(filepath.Separator) || base == "" {
		return "upload"
	}
	var b strings.Builder
	for _, r := range base {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '.', r == '-', r == '_':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	return b.String()
}
