// Package app wires configuration, clients and the article pipeline.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog/log"
	openai "github.com/sashabaranov/go-openai"
	"golang.org/x/sync/errgroup"

	"github.com/hyperifyio/vnsdesk/internal/article"
	"github.com/hyperifyio/vnsdesk/internal/cache"
	"github.com/hyperifyio/vnsdesk/internal/extract"
	"github.com/hyperifyio/vnsdesk/internal/fetch"
	"github.com/hyperifyio/vnsdesk/internal/image"
	"github.com/hyperifyio/vnsdesk/internal/llm"
	"github.com/hyperifyio/vnsdesk/internal/pipeline"
	"github.com/hyperifyio/vnsdesk/internal/render"
	"github.com/hyperifyio/vnsdesk/internal/restore"
	"github.com/hyperifyio/vnsdesk/internal/robots"
	"github.com/hyperifyio/vnsdesk/internal/search"
	"github.com/hyperifyio/vnsdesk/internal/server"
	"github.com/hyperifyio/vnsdesk/internal/textenc"
	"github.com/hyperifyio/vnsdesk/internal/upload"
)

type App struct {
	cfg      Config
	store    *article.Store
	pipeline *pipeline.Pipeline
	cancel   context.CancelFunc
}

// New validates cfg and builds the pipeline. The LLM preflight is best
// effort and only logs.
func New(ctx context.Context, cfg Config) (*App, error) {
	if err := ValidateConfig(cfg); err != nil {
		return nil, err
	}
	transport := newSharedTransport()
	provider := llm.NewOpenAIProvider(cfg.LLMAPIKey, cfg.LLMBaseURL, func(c *openai.ClientConfig) {
		c.HTTPClient = newHTTPClient(transport, 0)
	})

	var llmCache *cache.LLMCache
	var httpCache *cache.HTTPCache
	if cfg.CacheDir != "" {
		if cfg.CacheClear {
			if err := cache.ClearDir(cfg.CacheDir); err != nil {
				log.Warn().Err(err).Str("dir", cfg.CacheDir).Msg("cache clear failed")
			}
		}
		if cfg.CacheMaxAge > 0 {
			n, err := cache.PurgeByAge(cfg.CacheDir, cfg.CacheMaxAge)
			if err != nil {
				log.Warn().Err(err).Msg("cache purge failed")
			} else if n > 0 {
				log.Info().Int("removed", n).Msg("purged stale cache entries")
			}
		}
		llmCache = cache.NewLLMCache(cfg.CacheDir, cfg.CacheStrictPerms)
		httpCache = cache.NewHTTPCache(cfg.CacheDir)
	}

	if !cfg.SkipPreflight {
		preflight(ctx, provider)
	}

	restorer := restore.New(provider, restore.Options{
		Models:    cfg.Models(),
		Threshold: cfg.BodyThreshold,
		MaxTokens: cfg.BodyMaxTokens,
		Timeout:   cfg.LLMTimeout,
		Cache:     llmCache,
	})
	rule := extract.CaptionRule{From: cfg.CaptionFrom, To: cfg.CaptionTo}
	locOpts := image.Options{
		Domain: cfg.ImageDomain,
		Search: newSearchProvider(cfg, newHTTPClient(transport, cfg.SearchTimeout)),
		Fetcher: &fetch.Client{
			HTTPClient:        newHTTPClient(transport, 0),
			UserAgent:         cfg.UserAgent,
			MaxAttempts:       2,
			PerRequestTimeout: cfg.FetchTimeout,
			Cache:             httpCache,
		},
		Extractor:   extract.New(cfg.ImageSelector),
		CaptionRule: &rule,
		Rewriter: image.NewCaptionRewriter(provider, image.CaptionOptions{
			Models:    cfg.Models(),
			Threshold: cfg.CaptionThreshold,
			MaxTokens: cfg.CaptionMaxTokens,
			Timeout:   cfg.LLMTimeout,
			Cache:     llmCache,
		}),
	}
	if !cfg.IgnoreRobots {
		locOpts.Robots = &robots.Checker{
			HTTPClient: newHTTPClient(transport, cfg.FetchTimeout),
			Cache:      httpCache,
			UserAgent:  cfg.UserAgent,
		}
	}
	locator := image.NewLocator(locOpts)

	bg, cancel := context.WithCancel(context.Background())
	store := article.NewStore()
	a := &App{
		cfg:    cfg,
		store:  store,
		cancel: cancel,
		pipeline: &pipeline.Pipeline{
			Store:      store,
			Uploads:    upload.NewLocalStorage(cfg.UploadDir),
			Decoder:    textenc.Normalizer{MinConfidence: cfg.MinConfidence},
			Restorer:   restorer,
			Locator:    locator,
			Async:      cfg.Async,
			Background: bg,
		},
	}
	return a, nil
}

func preflight(ctx context.Context, lister llm.ModelLister) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	models, err := lister.ListModels(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("LLM model list failed; continuing")
		return
	}
	if len(models.Models) == 0 {
		log.Warn().Msg("LLM returned zero models")
		return
	}
	log.Info().Int("count", len(models.Models)).Msg("LLM models available")
}

// newSearchProvider prefers the offline file, then Serper, then SearxNG.
// Nil disables image lookup.
func newSearchProvider(cfg Config, hc *http.Client) search.Provider {
	switch {
	case cfg.SearchFile != "":
		return &search.FileProvider{Path: cfg.SearchFile}
	case cfg.SerperKey != "":
		return &search.Serper{APIKey: cfg.SerperKey, Endpoint: cfg.SerperURL, HTTPClient: hc}
	case cfg.SearxURL != "":
		return &search.SearxNG{BaseURL: cfg.SearxURL, APIKey: cfg.SearxKey, HTTPClient: hc, UserAgent: cfg.UserAgent}
	default:
		log.Warn().Msg("no search provider configured; image lookup disabled")
		return nil
	}
}

// Store exposes the article registry.
func (a *App) Store() *article.Store { return a.store }

// Pipeline exposes the job runner.
func (a *App) Pipeline() *pipeline.Pipeline { return a.pipeline }

// Serve runs the HTTP server until ctx is done.
func (a *App) Serve(ctx context.Context) error {
	srv := server.New(server.Config{
		Addr: a.cfg.Addr,
		PDF:  render.PDFOptions{FontPath: a.cfg.PDFFont},
	}, a.store, a.pipeline)
	return srv.Start(ctx)
}

// FileResult is the outcome of processing one local file.
type FileResult struct {
	Path   string
	ID     string
	Status article.Status
	Output string
	Err    error
}

// ProcessFiles runs each file through the pipeline with up to workers jobs
// in flight and writes <outDir>/<id>.md for every record created. It expects
// a synchronous pipeline.
func (a *App) ProcessFiles(ctx context.Context, paths []string, outDir string, workers int) ([]FileResult, error) {
	if workers <= 0 {
		workers = 1
	}
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}
	results := make([]FileResult, len(paths))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, p := range paths {
		g.Go(func() error {
			results[i] = a.processFile(gctx, p, outDir)
			return gctx.Err()
		})
	}
	if err := g.Wait(); err != nil {
		return results, err
	}
	var failed int
	for _, r := range results {
		if r.Err != nil {
			failed++
		}
	}
	if failed > 0 {
		return results, fmt.Errorf("%d of %d files failed", failed, len(paths))
	}
	return results, nil
}

func (a *App) processFile(ctx context.Context, path, outDir string) FileResult {
	res := FileResult{Path: path}
	raw, err := os.ReadFile(path)
	if err != nil {
		res.Err = fmt.Errorf("read input: %w", err)
		return res
	}
	sub := a.pipeline.Submit(ctx, filepath.Base(path), raw)
	res.ID, res.Status, res.Err = sub.ID, sub.Status, sub.Err
	if sub.ID == "" {
		return res
	}
	rec, err := a.store.Get(sub.ID)
	if err != nil {
		res.Err = errors.Join(res.Err, err)
		return res
	}
	out := filepath.Join(outDir, rec.ID+".md")
	if err := os.WriteFile(out, []byte(render.Markdown(rec)), 0o644); err != nil {
		res.Err = errors.Join(res.Err, fmt.Errorf("write output: %w", err))
		return res
	}
	res.Output = out
	return res
}

// Close waits for in-flight jobs and stops accepting writes.
func (a *App) Close() {
	a.pipeline.Close()
	a.cancel()
	a.store.Close()
}
