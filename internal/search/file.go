package search

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"strings"
)

// FileProvider serves results from a local JSON array of
// {"title","url","snippet"} objects, for offline runs and demos. A "site:"
// prefix in the query filters by host; the remaining words must all appear
// in the title or snippet.
type FileProvider struct {
	Path string
}

func (f *FileProvider) Name() string { return "file" }

func (f *FileProvider) Search(_ context.Context, query string, limit int) ([]Result, error) {
	if strings.TrimSpace(f.Path) == "" {
		return nil, errors.New("file provider path is empty")
	}
	b, err := os.ReadFile(f.Path)
	if err != nil {
		return nil, err
	}
	var raw []Result
	if err := json.Unmarshal(b, &raw); err != nil {
		return nil, err
	}
	site, words := parseQuery(query)
	out := make([]Result, 0, len(raw))
	for _, r := range raw {
		if r.URL == "" {
			continue
		}
		if site != "" && !strings.Contains(strings.ToLower(r.URL), site) {
			continue
		}
		hay := strings.ToLower(r.Title + " " + r.Snippet)
		if !containsAll(hay, words) {
			continue
		}
		r.Source = f.Name()
		out = append(out, r)
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

func parseQuery(q string) (site string, words []string) {
	for _, w := range strings.Fields(strings.ToLower(q)) {
		if rest, ok := strings.CutPrefix(w, "site:"); ok {
			site = rest
			continue
		}
		words = append(words, w)
	}
	return site, words
}

func containsAll(hay string, words []string) bool {
	for _, w := range words {
		if !strings.Contains(hay, w) {
			return false
		}
	}
	return true
}
