package app

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// LoadEnvFiles loads dotenv files into the process environment without
// overriding variables that are already set. Missing files are skipped.
func LoadEnvFiles(paths ...string) error {
	for _, p := range paths {
		if strings.TrimSpace(p) == "" {
			continue
		}
		if _, err := os.Stat(p); err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return err
		}
		if err := godotenv.Load(p); err != nil {
			return err
		}
	}
	return nil
}

// ApplyEnvOverrides overrides cfg fields with environment variables that are
// set. It runs after the config file and before explicit flags.
func ApplyEnvOverrides(cfg *Config) {
	if cfg == nil {
		return
	}
	str := func(dst *string, keys ...string) {
		for _, k := range keys {
			if v := strings.TrimSpace(os.Getenv(k)); v != "" {
				*dst = v
				return
			}
		}
	}
	str(&cfg.Addr, "ADDR")
	str(&cfg.UploadDir, "UPLOAD_DIR")
	str(&cfg.LLMBaseURL, "LLM_BASE_URL")
	str(&cfg.LLMAPIKey, "LLM_API_KEY", "OPENAI_API_KEY")
	str(&cfg.PrimaryModel, "LLM_PRIMARY_MODEL")
	str(&cfg.FallbackModel, "LLM_FALLBACK_MODEL")
	str(&cfg.SerperKey, "SERPER_API_KEY", "X-API-KEY")
	str(&cfg.SearxURL, "SEARX_URL", "SEARXNG_URL")
	str(&cfg.SearxKey, "SEARX_KEY", "SEARXNG_KEY")
	str(&cfg.SearchFile, "SEARCH_FILE")
	str(&cfg.ImageDomain, "IMAGE_DOMAIN")
	str(&cfg.CacheDir, "CACHE_DIR")
	str(&cfg.PDFFont, "PDF_FONT")

	dur := func(dst *time.Duration, key string) {
		if s := strings.TrimSpace(os.Getenv(key)); s != "" {
			if d, err := time.ParseDuration(s); err == nil {
				*dst = d
			}
		}
	}
	dur(&cfg.CacheMaxAge, "CACHE_MAX_AGE")
	dur(&cfg.LLMTimeout, "LLM_TIMEOUT")
	dur(&cfg.SearchTimeout, "SEARCH_TIMEOUT")
	dur(&cfg.FetchTimeout, "FETCH_TIMEOUT")
	if s := os.Getenv("MIN_CONFIDENCE"); s != "" {
		if n, err := strconv.Atoi(s); err == nil {
			cfg.MinConfidence = n
		}
	}

	setBool := func(dst *bool, key string) {
		switch strings.ToLower(strings.TrimSpace(os.Getenv(key))) {
		case "1", "true", "yes", "on":
			*dst = true
		case "0", "false", "no", "off":
			*dst = false
		}
	}
	setBool(&cfg.Verbose, "VERBOSE")
	setBool(&cfg.Async, "ASYNC")
	setBool(&cfg.CacheClear, "CACHE_CLEAR")
	setBool(&cfg.CacheStrictPerms, "CACHE_STRICT_PERMS")
	setBool(&cfg.IgnoreRobots, "IGNORE_ROBOTS")
}
