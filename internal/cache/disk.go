// Package cache keeps model completions and fetched article pages on disk so
// that re-running the same upload does not hit the LLM or the news site again.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"os"
	"path/filepath"
	"strings"
)

// disk is the directory handling shared by both caches.
type disk struct {
	dir string
	// strict enforces 0700 directories and 0600 files.
	strict bool
}

func (d disk) ensure() error {
	if strings.TrimSpace(d.dir) == "" {
		return errors.New("cache dir not configured")
	}
	perm := os.FileMode(0o755)
	if d.strict {
		perm = 0o700
	}
	if err := os.MkdirAll(d.dir, perm); err != nil {
		return err
	}
	if d.strict {
		if info, err := os.Stat(d.dir); err == nil && info.Mode()&0o777 != 0o700 {
			_ = os.Chmod(d.dir, 0o700)
		}
	}
	return nil
}

func (d disk) fileMode() os.FileMode {
	if d.strict {
		return 0o600
	}
	return 0o644
}

func (d disk) path(name string) string { return filepath.Join(d.dir, name) }

// writeAtomic writes via a temp file and rename so readers never see a partial entry.
func (d disk) writeAtomic(name string, data []byte) error {
	if err := d.ensure(); err != nil {
		return err
	}
	tmp := d.path(name + ".tmp")
	if err := os.WriteFile(tmp, data, d.fileMode()); err != nil {
		return err
	}
	return os.Rename(tmp, d.path(name))
}

func digest(parts ...string) string {
	h := sha256.Sum256([]byte(strings.Join(parts, "\n\n")))
	return hex.EncodeToString(h[:])
}
