package search

import (
	"context"
	"strings"
)

// Result represents a single search hit from any provider.
type Result struct {
	Title   string `json:"title"`
	URL     string `json:"url"`
	Snippet string `json:"snippet"`
	Source  string `json:"-"` // provider name for observability
}

// Provider is a minimal interface for search providers.
type Provider interface {
	Search(ctx context.Context, query string, limit int) ([]Result, error)
	Name() string
}

// SiteQuery restricts a headline search to one domain.
func SiteQuery(domain, headline string) string {
	domain = strings.TrimSpace(domain)
	headline = strings.Join(strings.Fields(headline), " ")
	if domain == "" {
		return headline
	}
	return "site:" + domain + " " + headline
}

// First returns the first result with a usable link, its URL in
// Canonical form.
func First(results []Result) (Result, bool) {
	for _, r := range results {
		if u, ok := Canonical(r.URL); ok {
			r.URL = u
			return r, true
		}
	}
	return Result{}, false
}
