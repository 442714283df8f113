package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// PageEntry is the metadata stored next to a cached page body. ETag and
// LastModified drive conditional revalidation.
type PageEntry struct {
	URL          string    `json:"url"`
	ContentType  string    `json:"content_type"`
	ETag         string    `json:"etag"`
	LastModified string    `json:"last_modified"`
	SavedAt      time.Time `json:"saved_at"`
}

// HTTPCache stores pages as <sha256(url)>.meta.json and <sha256(url)>.body.
type HTTPCache struct {
	Dir string
}

// NewHTTPCache places pages under <root>/http.
func NewHTTPCache(root string) *HTTPCache {
	return &HTTPCache{Dir: filepath.Join(root, "http")}
}

func (c *HTTPCache) disk() disk { return disk{dir: c.Dir} }

// LoadMeta returns entry metadata if present.
func (c *HTTPCache) LoadMeta(_ context.Context, url string) (*PageEntry, error) {
	d := c.disk()
	if err := d.ensure(); err != nil {
		return nil, err
	}
	b, err := os.ReadFile(d.path(digest(url) + ".meta.json"))
	if err != nil {
		return nil, err
	}
	var e PageEntry
	if err := json.Unmarshal(b, &e); err != nil {
		return nil, fmt.Errorf("decode meta: %w", err)
	}
	return &e, nil
}

// LoadBody returns the cached body if present.
func (c *HTTPCache) LoadBody(_ context.Context, url string) ([]byte, error) {
	d := c.disk()
	if err := d.ensure(); err != nil {
		return nil, err
	}
	return os.ReadFile(d.path(digest(url) + ".body"))
}

// Save stores body first, then metadata, so a meta file always has a body.
func (c *HTTPCache) Save(_ context.Context, url, contentType, etag, lastModified string, body []byte) error {
	d := c.disk()
	key := digest(url)
	if err := d.writeAtomic(key+".body", body); err != nil {
		return fmt.Errorf("write body: %w", err)
	}
	meta, err := json.Marshal(PageEntry{
		URL:          url,
		ContentType:  contentType,
		ETag:         etag,
		LastModified: lastModified,
		SavedAt:      time.Now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("encode meta: %w", err)
	}
	return d.writeAtomic(key+".meta.json", meta)
}
