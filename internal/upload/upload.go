// Package upload keeps uploaded article files on the local filesystem.
package upload

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ErrInvalidName is returned for ids or filenames that cannot be stored.
var ErrInvalidName = errors.New("invalid upload name")

// LocalStorage stores uploads as <BaseDir>/<id>_<basename>.
type LocalStorage struct {
	BaseDir string
}

func NewLocalStorage(baseDir string) *LocalStorage {
	return &LocalStorage{BaseDir: baseDir}
}

// Save writes data for id and returns the file path.
func (s *LocalStorage) Save(_ context.Context, id, filename string, data []byte) (string, error) {
	path, err := s.PathFor(id, filename)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(s.BaseDir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create upload directory %s: %w", s.BaseDir, err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("failed to save upload %s: %w", path, err)
	}
	return path, nil
}

// Load reads a previously saved upload.
func (s *LocalStorage) Load(_ context.Context, path string) ([]byte, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read upload %s: %w", path, err)
	}
	return b, nil
}

// PathFor returns the storage path for id and filename. Directory parts of
// filename are discarded.
func (s *LocalStorage) PathFor(id, filename string) (string, error) {
	id = strings.TrimSpace(id)
	if id == "" || strings.ContainsAny(id, `/\`) || id == "." || id == ".." {
		return "", fmt.Errorf("%w: id %q", ErrInvalidName, id)
	}
	base := Basename(filename)
	if base == "" {
		return "", fmt.Errorf("%w: filename %q", ErrInvalidName, filename)
	}
	return filepath.Join(s.BaseDir, id+"_"+base), nil
}

// Basename strips directories from a client-supplied filename, accepting
// both separators since browsers on Windows may send full paths.
func Basename(filename string) string {
	filename = strings.ReplaceAll(filename, `\`, "/")
	base := strings.TrimSpace(filepath.Base(filename))
	if base == "." || base == "/" || base == ".." {
		return ""
	}
	return base
}

// IsText reports whether filename has a .txt extension.
func IsText(filename string) bool {
	return strings.EqualFold(filepath.Ext(filename), ".txt")
}
