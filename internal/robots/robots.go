// Package robots decides whether an article page may be scraped under its
// site's robots.txt.
package robots

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/hyperifyio/vnsdesk/internal/cache"
)

// Rules is a parsed robots.txt.
type Rules struct {
	Groups []Group
}

// Group is one run of User-agent lines and the directives under them.
type Group struct {
	Agents   []string
	Allow    []string
	Disallow []string
}

// AllowAll is what a missing robots.txt means.
var AllowAll = Rules{}

// Checker fetches and memoizes robots.txt per origin. A 4xx robots.txt
// allows everything; a 5xx or unreachable one disallows everything until the
// next attempt.
type Checker struct {
	HTTPClient *http.Client
	// Cache revalidates robots.txt across runs with ETag/Last-Modified.
	Cache     *cache.HTTPCache
	UserAgent string
	// TTL bounds how long parsed rules are reused. Zero means 30 minutes.
	TTL time.Duration

	mu  sync.Mutex
	mem map[string]entry
	now func() time.Time
}

type entry struct {
	rules   Rules
	expires time.Time
}

// Allowed reports whether pageURL may be fetched with c.UserAgent.
func (c *Checker) Allowed(ctx context.Context, pageURL string) bool {
	u, err := url.Parse(pageURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return true
	}
	rules, err := c.Rules(ctx, u.Scheme+"://"+u.Host)
	if err != nil {
		log.Debug().Err(err).Str("url", pageURL).Msg("robots.txt unavailable, disallowing")
		return false
	}
	path := u.EscapedPath()
	if path == "" {
		path = "/"
	}
	if u.RawQuery != "" {
		path += "?" + u.RawQuery
	}
	return rules.IsAllowed(c.UserAgent, path)
}

// Rules returns the robots.txt rules for origin ("https://host[:port]").
func (c *Checker) Rules(ctx context.Context, origin string) (Rules, error) {
	c.mu.Lock()
	if c.now == nil {
		c.now = time.Now
	}
	if c.mem == nil {
		c.mem = make(map[string]entry)
	}
	if e, ok := c.mem[origin]; ok && c.now().Before(e.expires) {
		c.mu.Unlock()
		return e.rules, nil
	}
	c.mu.Unlock()

	rules, err := c.fetch(ctx, strings.TrimSuffix(origin, "/")+"/robots.txt")
	if err != nil {
		return Rules{}, err
	}
	ttl := c.TTL
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	c.mu.Lock()
	c.mem[origin] = entry{rules: rules, expires: c.now().Add(ttl)}
	c.mu.Unlock()
	return rules, nil
}

func (c *Checker) fetch(ctx context.Context, robotsURL string) (Rules, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, robotsURL, nil)
	if err != nil {
		return Rules{}, fmt.Errorf("new request: %w", err)
	}
	if c.UserAgent != "" {
		req.Header.Set("User-Agent", c.UserAgent)
	}
	if c.Cache != nil {
		if meta, err := c.Cache.LoadMeta(ctx, robotsURL); err == nil && meta != nil {
			if meta.ETag != "" {
				req.Header.Set("If-None-Match", meta.ETag)
			}
			if meta.LastModified != "" {
				req.Header.Set("If-Modified-Since", meta.LastModified)
			}
		}
	}
	client := c.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	resp, err := client.Do(req)
	if err != nil {
		return Rules{}, err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotModified && c.Cache != nil:
		body, err := c.Cache.LoadBody(ctx, robotsURL)
		if err != nil {
			return Rules{}, fmt.Errorf("load cached robots.txt: %w", err)
		}
		return Parse(string(body)), nil
	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		return AllowAll, nil
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return Rules{}, fmt.Errorf("robots.txt status: %d", resp.StatusCode)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, 512<<10))
	if err != nil {
		return Rules{}, fmt.Errorf("read robots.txt: %w", err)
	}
	if c.Cache != nil {
		_ = c.Cache.Save(ctx, robotsURL, "text/plain", resp.Header.Get("ETag"), resp.Header.Get("Last-Modified"), data)
	}
	return Parse(string(data)), nil
}

// Parse reads robots.txt text. Unknown directives and comments are ignored.
func Parse(text string) Rules {
	sc := bufio.NewScanner(strings.NewReader(text))
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	var (
		groups []Group
		cur    Group
	)
	flush := func() {
		if len(cur.Agents) > 0 {
			groups = append(groups, cur)
		}
		cur = Group{}
	}
	for sc.Scan() {
		line := sc.Text()
		if i := strings.IndexByte(line, '#'); i >= 0 {
			line = line[:i]
		}
		key, val, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		val = strings.TrimSpace(val)
		switch strings.ToLower(strings.TrimSpace(key)) {
		case "user-agent":
			if len(cur.Allow) > 0 || len(cur.Disallow) > 0 {
				flush()
			}
			cur.Agents = append(cur.Agents, strings.ToLower(val))
		case "allow":
			cur.Allow = append(cur.Allow, val)
		case "disallow":
			cur.Disallow = append(cur.Disallow, val)
		}
	}
	flush()
	return Rules{Groups: groups}
}

// IsAllowed applies the group that best matches userAgent to path. The
// longest matching pattern wins and Allow wins a tie. No match allows.
func (r Rules) IsAllowed(userAgent, path string) bool {
	g := r.group(userAgent)
	if g == nil {
		return true
	}
	best, allow := -1, true
	consider := func(patterns []string, isAllow bool) {
		for _, p := range patterns {
			if p == "" || !match(p, path) {
				continue
			}
			score := len(strings.ReplaceAll(strings.TrimSuffix(p, "$"), "*", ""))
			if score > best || (score == best && isAllow) {
				best, allow = score, isAllow
			}
		}
	}
	consider(g.Disallow, false)
	consider(g.Allow, true)
	return allow
}

// group picks the longest agent token contained in userAgent, else "*".
func (r Rules) group(userAgent string) *Group {
	ua := strings.ToLower(userAgent)
	idx, best := -1, -1
	for i, g := range r.Groups {
		for _, a := range g.Agents {
			score := -1
			switch {
			case a == "*":
				score = 0
			case a != "" && strings.Contains(ua, a):
				score = len(a)
			}
			if score > best {
				idx, best = i, score
			}
		}
	}
	if idx < 0 {
		return nil
	}
	return &r.Groups[idx]
}

// match anchors pattern at the start of path; '*' matches any run and a
// trailing '$' anchors the end.
func match(pattern, path string) bool {
	anchored := strings.HasSuffix(pattern, "$")
	pattern = strings.TrimSuffix(pattern, "$")
	parts := strings.Split(pattern, "*")
	if !strings.HasPrefix(path, parts[0]) {
		return false
	}
	rest := path[len(parts[0]):]
	if len(parts) == 1 {
		return !anchored || rest == ""
	}
	for _, mid := range parts[1 : len(parts)-1] {
		i := strings.Index(rest, mid)
		if i < 0 {
			return false
		}
		rest = rest[i+len(mid):]
	}
	last := parts[len(parts)-1]
	if anchored {
		return strings.HasSuffix(rest, last)
	}
	return strings.Contains(rest, last)
}
