package app

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/hyperifyio/vnsdesk/internal/extract"
	"github.com/hyperifyio/vnsdesk/internal/fetch"
	"github.com/hyperifyio/vnsdesk/internal/image"
	"github.com/hyperifyio/vnsdesk/internal/restore"
	"github.com/hyperifyio/vnsdesk/internal/similarity"
)

// Config holds runtime configuration for the application.
type Config struct {
	// Server
	Addr      string `validate:"required"`
	UploadDir string `validate:"required"`
	Async     bool

	// LLM
	LLMBaseURL       string `validate:"omitempty,url"`
	LLMAPIKey        string
	PrimaryModel     string        `validate:"required"`
	FallbackModel    string
	LLMTimeout       time.Duration `validate:"gt=0"`
	BodyThreshold    float64       `validate:"gt=0,lte=1"`
	CaptionThreshold float64       `validate:"gt=0,lte=1"`
	BodyMaxTokens    int           `validate:"gt=0"`
	CaptionMaxTokens int           `validate:"gt=0"`
	SkipPreflight    bool

	// Search
	SerperKey     string
	SerperURL     string `validate:"omitempty,url"`
	SearxURL      string `validate:"omitempty,url"`
	SearxKey      string
	SearchFile    string
	SearchTimeout time.Duration `validate:"gt=0"`

	// Image lookup
	FetchTimeout  time.Duration `validate:"gt=0"`
	UserAgent     string        `validate:"required"`
	ImageDomain   string        `validate:"required,hostname_rfc1123"`
	ImageSelector string        `validate:"required"`
	CaptionFrom   string
	CaptionTo     string
	IgnoreRobots  bool

	// Decoding
	MinConfidence int `validate:"gte=0,lte=100"`

	// Caches
	CacheDir         string
	CacheMaxAge      time.Duration `validate:"gte=0"`
	CacheClear       bool
	CacheStrictPerms bool

	// Rendering
	PDFFont string

	Verbose bool
}

// Defaults returns the production configuration.
func Defaults() Config {
	return Config{
		Addr:             ":8080",
		UploadDir:        "uploads",
		PrimaryModel:     restore.DefaultPrimaryModel,
		FallbackModel:    restore.DefaultFallbackModel,
		LLMTimeout:       60 * time.Second,
		BodyThreshold:    similarity.BodyThreshold,
		CaptionThreshold: similarity.CaptionThreshold,
		BodyMaxTokens:    restore.DefaultMaxTokens,
		CaptionMaxTokens: image.DefaultCaptionMaxTokens,
		SearchTimeout:    15 * time.Second,
		FetchTimeout:     10 * time.Second,
		UserAgent:        fetch.DefaultUserAgent,
		ImageDomain:      image.DefaultDomain,
		ImageSelector:    image.DefaultSelector,
		CaptionFrom:      extract.AgencySuffix,
		CaptionTo:        extract.HouseSuffix,
		CacheDir:         ".vnsdesk-cache",
	}
}

// Models returns the primary and, when set, fallback model in order.
func (c Config) Models() []string {
	models := []string{c.PrimaryModel}
	if fb := strings.TrimSpace(c.FallbackModel); fb != "" && fb != c.PrimaryModel {
		models = append(models, fb)
	}
	return models
}

// ValidateConfig checks cfg against its struct tags.
func ValidateConfig(cfg Config) error {
	if err := validator.New().Struct(cfg); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			parts := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				parts = append(parts, fmt.Sprintf("%s failed %q", fe.Field(), fe.Tag()))
			}
			return fmt.Errorf("config: %s", strings.Join(parts, "; "))
		}
		return fmt.Errorf("config: %w", err)
	}
	return nil
}
