package cache

import (
	"context"
	"os"
	"path/filepath"
	"time"
)

// LLMCache stores completion text keyed by a digest of model and prompt.
type LLMCache struct {
	Dir         string
	StrictPerms bool
}

// NewLLMCache places completions under <root>/llm.
func NewLLMCache(root string, strict bool) *LLMCache {
	return &LLMCache{Dir: filepath.Join(root, "llm"), StrictPerms: strict}
}

// KeyFrom builds a cache key from model and the full prompt.
func KeyFrom(model string, prompt string) string {
	return digest(model, prompt)
}

func (c *LLMCache) disk() disk { return disk{dir: c.Dir, strict: c.StrictPerms} }

// Get returns cached bytes if present. A miss is not an error.
func (c *LLMCache) Get(_ context.Context, key string) ([]byte, bool, error) {
	d := c.disk()
	if err := d.ensure(); err != nil {
		return nil, false, err
	}
	p := d.path(key + ".txt")
	b, err := os.ReadFile(p)
	if err != nil {
		return nil, false, nil
	}
	now := time.Now()
	_ = os.Chtimes(p, now, now)
	return b, true, nil
}

// Save writes bytes for key.
func (c *LLMCache) Save(_ context.Context, key string, data []byte) error {
	return c.disk().writeAtomic(key+".txt", data)
}
