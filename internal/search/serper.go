package search

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// DefaultSerperURL is the Google search endpoint of serper.dev.
const DefaultSerperURL = "https://google.serper.dev/search"

// Serper implements Provider against the serper.dev Google search API.
type Serper struct {
	APIKey     string
	Endpoint   string // defaults to DefaultSerperURL
	HTTPClient *http.Client
}

func (s *Serper) Name() string { return "serper" }

func (s *Serper) Search(ctx context.Context, query string, limit int) ([]Result, error) {
	if strings.TrimSpace(s.APIKey) == "" {
		return nil, errors.New("missing serper api key")
	}
	endpoint := s.Endpoint
	if endpoint == "" {
		endpoint = DefaultSerperURL
	}
	payload := map[string]any{"q": query}
	if limit > 0 {
		payload["num"] = limit
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("X-API-KEY", s.APIKey)
	req.Header.Set("Content-Type", "application/json")

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
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, fmt.Errorf("serper status: %d", resp.StatusCode)
	}
	var sr serperResponse
	if err := json.NewDecoder(resp.Body).Decode(&sr); err != nil {
		return nil, fmt.Errorf("decode serper response: %w", err)
	}
	out := make([]Result, 0, len(sr.Organic))
	for _, r := range sr.Organic {
		link := strings.TrimSpace(r.Link)
		if link == "" {
			continue
		}
		out = append(out, Result{
			Title:   strings.TrimSpace(r.Title),
			URL:     link,
			Snippet: strings.TrimSpace(r.Snippet),
			Source:  s.Name(),
		})
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

type serperResponse struct {
	Organic []struct {
		Title   string `json:"title"`
		Link    string `json:"link"`
		Snippet string `json:"snippet"`
	} `json:"organic"`
}
