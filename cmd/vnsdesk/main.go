// Command vnsdesk restores Vietnamese diacritics in wire copy, applies the
// house style and finds a photo for each article.
package main

import (
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/hyperifyio/vnsdesk/internal/app"
)

// options is the state shared by all subcommands.
type options struct {
	cfg        app.Config
	configPath string
	envFiles   []string
}

func newRootCmd() (*cobra.Command, *options) {
	opts := &options{cfg: app.Defaults()}
	root := &cobra.Command{
		Use:           "vnsdesk",
		Short:         "News desk pipeline for Vietnamese wire copy",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return opts.load(cmd)
		},
	}
	bindFlags(root.PersistentFlags(), opts)
	root.AddCommand(newServeCmd(opts), newProcessCmd(opts))
	return root, opts
}

func bindFlags(pf *pflag.FlagSet, o *options) {
	c := &o.cfg
	pf.StringVar(&o.configPath, "config", "", "Path to YAML or JSON config file")
	pf.StringSliceVar(&o.envFiles, "env-file", []string{".env"}, "Dotenv files to load before reading the environment")
	pf.BoolVarP(&c.Verbose, "verbose", "v", c.Verbose, "Verbose logging")

	pf.StringVar(&c.LLMBaseURL, "llm.base", c.LLMBaseURL, "OpenAI-compatible base URL")
	pf.StringVar(&c.LLMAPIKey, "llm.key", c.LLMAPIKey, "API key for the LLM endpoint")
	pf.StringVar(&c.PrimaryModel, "llm.primary", c.PrimaryModel, "Primary model")
	pf.StringVar(&c.FallbackModel, "llm.fallback", c.FallbackModel, "Fallback model (empty disables)")
	pf.DurationVar(&c.LLMTimeout, "llm.timeout", c.LLMTimeout, "Timeout per completion")
	pf.IntVar(&c.BodyMaxTokens, "llm.bodyMaxTokens", c.BodyMaxTokens, "Max output tokens for body text")
	pf.IntVar(&c.CaptionMaxTokens, "llm.captionMaxTokens", c.CaptionMaxTokens, "Max output tokens for captions")
	pf.BoolVar(&c.SkipPreflight, "llm.skipPreflight", c.SkipPreflight, "Skip the startup model listing")
	pf.Float64Var(&c.BodyThreshold, "threshold.body", c.BodyThreshold, "Minimum similarity for restored body text")
	pf.Float64Var(&c.CaptionThreshold, "threshold.caption", c.CaptionThreshold, "Minimum similarity for rewritten captions")

	pf.StringVar(&c.SerperKey, "serper.key", c.SerperKey, "serper.dev API key")
	pf.StringVar(&c.SearxURL, "searx.url", c.SearxURL, "SearxNG base URL")
	pf.StringVar(&c.SearchFile, "search.file", c.SearchFile, "JSON file with offline search results")
	pf.DurationVar(&c.SearchTimeout, "search.timeout", c.SearchTimeout, "Search request timeout")

	pf.StringVar(&c.ImageDomain, "image.domain", c.ImageDomain, "Site searched for article photos")
	pf.StringVar(&c.ImageSelector, "image.selector", c.ImageSelector, "CSS selector of the photo element")
	pf.DurationVar(&c.FetchTimeout, "fetch.timeout", c.FetchTimeout, "Article page fetch timeout")
	pf.StringVar(&c.UserAgent, "fetch.ua", c.UserAgent, "User-Agent for page fetches")
	pf.BoolVar(&c.IgnoreRobots, "fetch.ignoreRobots", c.IgnoreRobots, "Scrape article pages even when robots.txt disallows them")

	pf.IntVar(&c.MinConfidence, "encoding.minConfidence", c.MinConfidence, "Reject encoding detections below this confidence (0-100)")
	pf.StringVar(&c.UploadDir, "upload.dir", c.UploadDir, "Directory for stored uploads")
	pf.StringVar(&c.CacheDir, "cache.dir", c.CacheDir, "Cache directory (empty disables caching)")
	pf.DurationVar(&c.CacheMaxAge, "cache.maxAge", c.CacheMaxAge, "Purge cache entries older than this at startup (0 keeps all)")
	pf.BoolVar(&c.CacheClear, "cache.clear", c.CacheClear, "Clear the cache directory at startup")
	pf.BoolVar(&c.CacheStrictPerms, "cache.strictPerms", c.CacheStrictPerms, "Restrict cache permissions (0700 dirs, 0600 files)")
	pf.StringVar(&c.PDFFont, "pdf.font", c.PDFFont, "UTF-8 TrueType font for PDF output")
}

// load applies, lowest first: defaults, config file, environment and
// explicitly set flags.
func (o *options) load(cmd *cobra.Command) error {
	explicit := map[string]string{}
	cmd.Flags().Visit(func(f *pflag.Flag) {
		if f.Name == "config" || f.Name == "env-file" {
			return
		}
		explicit[f.Name] = f.Value.String()
	})

	if err := app.LoadEnvFiles(o.envFiles...); err != nil {
		return fmt.Errorf("load env: %w", err)
	}
	if o.configPath != "" {
		fc, err := app.LoadConfigFile(o.configPath)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		app.ApplyFileConfig(&o.cfg, fc)
	}
	app.ApplyEnvOverrides(&o.cfg)
	for name, v := range explicit {
		if err := cmd.Flags().Set(name, v); err != nil {
			return fmt.Errorf("flag --%s: %w", name, err)
		}
	}
	setupLogging(o.cfg.Verbose)
	return nil
}

func setupLogging(verbose bool) {
	zerolog.TimeFieldFormat = time.RFC3339
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	if verbose {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}
}

func main() {
	setupLogging(false)
	root, _ := newRootCmd()
	if err := root.Execute(); err != nil {
		log.Error().Err(err).Msg("vnsdesk failed")
		os.Exit(1)
	}
}
