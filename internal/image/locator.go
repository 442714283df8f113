// Package image finds a representative photo for an article on the news
// agency's site and localizes its caption.
package image

import (
	"context"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/hyperifyio/vnsdesk/internal/extract"
	"github.com/hyperifyio/vnsdesk/internal/fetch"
	"github.com/hyperifyio/vnsdesk/internal/search"
)

const (
	// NoImageCaption is the caption reported when no image was located.
	NoImageCaption = "No image found"
	// DefaultDomain is the site searched for article photos.
	DefaultDomain = "en.vietnamplus.vn"
	// DefaultSelector matches the photo element on article pages.
	DefaultSelector = "img.cms-photo"
)

// Reasons attached to degraded results.
const (
	ReasonSearchFailed    = "search failed"
	ReasonNoResults       = "no search results"
	ReasonRobotsDisallow  = "disallowed by robots.txt"
	ReasonFetchFailed     = "page fetch failed"
	ReasonNoImageElement  = "no image element"
	ReasonCaptionRejected = "caption rewrite rejected"
)

// Result is the outcome of a lookup. A degraded result is still usable:
// either no image with NoImageCaption, or an image with its original caption.
type Result struct {
	URL      string
	Caption  string
	PageURL  string
	Degraded bool
	Reason   string
}

// Found reports whether an image URL was located.
func (r Result) Found() bool { return r.URL != "" }

func notFound(reason string) Result {
	return Result{Caption: NoImageCaption, Degraded: true, Reason: reason}
}

// PageFetcher is satisfied by *fetch.Client.
type PageFetcher interface {
	Get(ctx context.Context, url string) (*fetch.Page, error)
}

// RobotsPolicy is satisfied by *robots.Checker.
type RobotsPolicy interface {
	Allowed(ctx context.Context, pageURL string) bool
}

// Options wires a Locator. Search and Fetcher are required.
type Options struct {
	Domain    string
	Search    search.Provider
	Fetcher   PageFetcher
	Extractor extract.Extractor
	// Robots, when set, vetoes pages before they are fetched.
	Robots RobotsPolicy
	// CaptionRule rewrites the agency credit before the model sees the caption.
	CaptionRule *extract.CaptionRule
	// Rewriter is optional; without it captions are only normalized.
	Rewriter *CaptionRewriter
}

// Locator runs search, fetch, extract and caption rewrite.
type Locator struct {
	domain    string
	search    search.Provider
	fetcher   PageFetcher
	extractor extract.Extractor
	robots    RobotsPolicy
	rule      extract.CaptionRule
	rewriter  *CaptionRewriter
}

func NewLocator(opts Options) *Locator {
	l := &Locator{
		domain:    opts.Domain,
		search:    opts.Search,
		fetcher:   opts.Fetcher,
		extractor: opts.Extractor,
		robots:    opts.Robots,
		rule:      extract.DefaultCaptionRule,
		rewriter:  opts.Rewriter,
	}
	if l.domain == "" {
		l.domain = DefaultDomain
	}
	if l.extractor == nil {
		l.extractor = extract.New(DefaultSelector)
	}
	if opts.CaptionRule != nil {
		l.rule = *opts.CaptionRule
	}
	return l
}

// Locate looks up the photo for headline. Only the headline drives the
// search; articleText is recorded by length in the log context.
// Every failure degrades to a Result; Locate never returns an error.
func (l *Locator) Locate(ctx context.Context, headline, articleText string) Result {
	logger := log.With().Str("stage", "image").Int("text_len", len(articleText)).Logger()
	if l.search == nil || l.fetcher == nil || strings.TrimSpace(headline) == "" {
		logger.Debug().Msg("image lookup skipped")
		return notFound(ReasonNoResults)
	}
	query := search.SiteQuery(l.domain, headline)
	results, err := l.search.Search(ctx, query, 1)
	if err != nil {
		logger.Warn().Err(err).Str("provider", l.search.Name()).Msg("image search failed")
		return notFound(ReasonSearchFailed)
	}
	hit, ok := search.First(results)
	if !ok {
		logger.Info().Str("query", query).Msg("no search results")
		return notFound(ReasonNoResults)
	}
	if l.robots != nil && !l.robots.Allowed(ctx, hit.URL) {
		logger.Info().Str("url", hit.URL).Msg("article page disallowed by robots.txt")
		return notFound(ReasonRobotsDisallow)
	}
	page, err := l.fetcher.Get(ctx, hit.URL)
	if err != nil {
		logger.Warn().Err(err).Str("url", hit.URL).Msg("article page fetch failed")
		return notFound(ReasonFetchFailed)
	}
	img, ok := l.extractor.Extract(page.Body, page.URL)
	if !ok {
		logger.Info().Str("url", page.URL).Msg("no image element on page")
		return notFound(ReasonNoImageElement)
	}
	caption := l.rule.Apply(img.Caption)
	res := Result{URL: img.URL, Caption: caption, PageURL: page.URL}
	if l.rewriter == nil {
		return res
	}
	if rewritten, accepted := l.rewriter.Rewrite(ctx, caption); accepted {
		res.Caption = rewritten
	} else if strings.TrimSpace(caption) != "" {
		res.Degraded = true
		res.Reason = ReasonCaptionRejected
	}
	return res
}
