package search

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// SearxNG implements Provider against a self-hosted SearxNG /search endpoint.
// Not every upstream engine honours "site:", so hits outside the requested
// domain are dropped here.
type SearxNG struct {
	BaseURL    string
	APIKey     string // optional
	HTTPClient *http.Client
	UserAgent  string // optional
	// Engines restricts the upstream engines, e.g. {"google", "bing"}.
	Engines []string
	// Language defaults to "en".
	Language string
}

func (s *SearxNG) Name() string { return "searxng" }

func (s *SearxNG) Search(ctx context.Context, query string, limit int) ([]Result, error) {
	if s.BaseURL == "" {
		return nil, fmt.Errorf("missing searxng base url")
	}
	if limit <= 0 {
		limit = 10
	}
	u, err := url.Parse(s.BaseURL)
	if err != nil {
		return nil, err
	}
	if !strings.HasSuffix(u.Path, "/search") {
		u.Path = strings.TrimRight(u.Path, "/") + "/search"
	}
	lang := s.Language
	if lang == "" {
		lang = "en"
	}
	site, _ := parseQuery(query)
	q := u.Query()
	q.Set("q", query)
	q.Set("format", "json")
	q.Set("language", lang)
	q.Set("categories", "news,general")
	q.Set("safesearch", "0")
	if len(s.Engines) > 0 {
		q.Set("engines", strings.Join(s.Engines, ","))
	}
	if s.APIKey != "" {
		q.Set("apikey", s.APIKey)
	}
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if s.UserAgent != "" {
		req.Header.Set("User-Agent", s.UserAgent)
	}
	hc := s.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: 15 * time.Second}
	}
	resp, err := hc.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("searxng status: %d", resp.StatusCode)
	}
	var sr searxResponse
	if err := json.NewDecoder(resp.Body).Decode(&sr); err != nil {
		return nil, fmt.Errorf("decode searxng response: %w", err)
	}
	seen := make(map[string]bool, len(sr.Results))
	out := make([]Result, 0, limit)
	for _, r := range sr.Results {
		link, ok := Canonical(r.URL)
		if !ok || seen[link] || !onSite(link, site) {
			continue
		}
		seen[link] = true
		out = append(out, Result{
			Title:   strings.TrimSpace(r.Title),
			URL:     link,
			Snippet: strings.TrimSpace(r.Content),
			Source:  s.Name(),
		})
		if len(out) >= limit {
			break
		}
	}
	return out, nil
}

// onSite reports whether link is on domain or one of its subdomains. An
// empty domain matches everything.
func onSite(link, domain string) bool {
	if domain == "" {
		return true
	}
	u, err := url.Parse(link)
	if err != nil {
		return false
	}
	host := strings.ToLower(u.Hostname())
	domain = strings.ToLower(domain)
	return host == domain || strings.HasSuffix(host, "."+domain)
}

type searxResponse struct {
	Results []struct {
		Title   string `json:"title"`
		URL     string `json:"url"`
		Content string `json:"content"`
	} `json:"results"`
}
