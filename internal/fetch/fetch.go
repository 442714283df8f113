package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/hyperifyio/vnsdesk/internal/cache"
)

// DefaultUserAgent is sent when Client.UserAgent is empty. News sites tend to
// block obvious bot agents, so this mimics a browser.
const DefaultUserAgent = "Mozilla/5.0"

// maxBodyBytes bounds how much of an article page is read.
const maxBodyBytes = 8 << 20

// Page is a fetched HTML document.
type Page struct {
	URL         string // final URL after redirects, used to resolve relative links
	Body        []byte
	ContentType string
	FromCache   bool
}

// StatusError reports a non-2xx response.
type StatusError struct {
	URL  string
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("fetch %s: unexpected status %d", e.URL, e.Code)
}

// Client wraps http.Client with a per-request timeout, a browser-like
// user agent, bounded retry on transient errors and an optional
// conditional-GET cache.
type Client struct {
	HTTPClient *http.Client
	UserAgent  string
	// MaxAttempts includes the initial attempt. Minimum 1.
	MaxAttempts int
	// PerRequestTimeout bounds each request.
	PerRequestTimeout time.Duration
	Cache             *cache.HTTPCache
	// RedirectMaxHops caps redirect following. Zero means 5.
	RedirectMaxHops int
	// Backoff is the base delay between attempts. Zero means 200ms.
	Backoff time.Duration
}

// Get fetches an HTML page.
func (c *Client) Get(ctx context.Context, rawURL string) (*Page, error) {
	var etag, lastMod string
	if c.Cache != nil {
		if meta, err := c.Cache.LoadMeta(ctx, rawURL); err == nil && meta != nil {
			etag = meta.ETag
			lastMod = meta.LastModified
		}
	}
	attempts := c.MaxAttempts
	if attempts <= 0 {
		attempts = 1
	}
	backoff := c.Backoff
	if backoff <= 0 {
		backoff = 200 * time.Millisecond
	}
	var lastErr error
	for i := 0; i < attempts; i++ {
		page, res, err := c.tryOnce(ctx, rawURL, etag, lastMod)
		if err == nil {
			if res.status == http.StatusNotModified && c.Cache != nil {
				cached, cerr := c.Cache.LoadBody(ctx, rawURL)
				if cerr == nil {
					page.Body = cached
					page.FromCache = true
					if meta, merr := c.Cache.LoadMeta(ctx, rawURL); merr == nil && meta != nil && page.ContentType == "" {
						page.ContentType = meta.ContentType
					}
					return page, nil
				}
				// Cache lost its body; refetch unconditionally.
				page, res, err = c.tryOnce(ctx, rawURL, "", "")
				if err != nil {
					return nil, err
				}
			}
			if c.Cache != nil {
				_ = c.Cache.Save(ctx, rawURL, page.ContentType, res.etag, res.lastModified, page.Body)
			}
			return page, nil
		}
		lastErr = err
		if !isTransient(err) || i == attempts-1 {
			return nil, err
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(time.Duration(i+1) * backoff):
		}
	}
	if lastErr == nil {
		lastErr = errors.New("fetch: no attempts made")
	}
	return nil, lastErr
}

type response struct {
	status       int
	etag         string
	lastModified string
}

func (c *Client) tryOnce(ctx context.Context, rawURL, etag, lastMod string) (*Page, response, error) {
	if c.PerRequestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.PerRequestTimeout)
		defer cancel()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, response{}, fmt.Errorf("new request: %w", err)
	}
	if !isHTTPScheme(req.URL) {
		return nil, response{}, fmt.Errorf("unsupported URL scheme: %q", rawURL)
	}
	ua := c.UserAgent
	if ua == "" {
		ua = DefaultUserAgent
	}
	req.Header.Set("User-Agent", ua)
	if etag != "" {
		req.Header.Set("If-None-Match", etag)
	}
	if lastMod != "" {
		req.Header.Set("If-Modified-Since", lastMod)
	}

	resp, err := c.httpClient().Do(req)
	if err != nil {
		return nil, response{}, err
	}
	defer resp.Body.Close()

	res := response{
		status:       resp.StatusCode,
		etag:         resp.Header.Get("ETag"),
		lastModified: resp.Header.Get("Last-Modified"),
	}
	page := &Page{URL: resp.Request.URL.String(), ContentType: resp.Header.Get("Content-Type")}
	if resp.StatusCode == http.StatusNotModified {
		return page, res, nil
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, res, &StatusError{URL: rawURL, Code: resp.StatusCode}
	}
	if !isAllowedHTMLContentType(page.ContentType) {
		return nil, res, fmt.Errorf("unsupported content type: %s", page.ContentType)
	}
	b, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, res, fmt.Errorf("read body: %w", err)
	}
	page.Body = b
	return page, res, nil
}

func (c *Client) httpClient() *http.Client {
	if c.HTTPClient != nil {
		base := *c.HTTPClient
		base.CheckRedirect = c.checkRedirect
		return &base
	}
	return &http.Client{CheckRedirect: c.checkRedirect}
}

func (c *Client) checkRedirect(req *http.Request, via []*http.Request) error {
	max := c.RedirectMaxHops
	if max <= 0 {
		max = 5
	}
	if len(via) >= max {
		return errors.New("too many redirects")
	}
	if !isHTTPScheme(req.URL) {
		return errors.New("redirect to unsupported scheme")
	}
	return nil
}

// isTransient treats 5xx, 429 and timeouts as retryable.
func isTransient(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var se *StatusError
	if errors.As(err, &se) {
		return se.Code >= 500 || se.Code == http.StatusTooManyRequests
	}
	return false
}

func isHTTPScheme(u *url.URL) bool {
	if u == nil {
		return false
	}
	scheme := strings.ToLower(u.Scheme)
	return scheme == "http" || scheme == "https"
}

func isAllowedHTMLContentType(ct string) bool {
	ct = strings.ToLower(strings.TrimSpace(ct))
	return ct == "" || strings.HasPrefix(ct, "text/html") || strings.HasPrefix(ct, "application/xhtml+xml")
}
