package app

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	yaml "gopkg.in/yaml.v3"
)

// FileConfig represents the single-file configuration schema.
type FileConfig struct {
	Addr      string `yaml:"addr" json:"addr"`
	UploadDir string `yaml:"uploadDir" json:"uploadDir"`
	Async     *bool  `yaml:"async" json:"async"`
	Verbose   bool   `yaml:"verbose" json:"verbose"`

	LLM struct {
		BaseURL          string   `yaml:"base" json:"base"`
		APIKey           string   `yaml:"key" json:"key"`
		Primary          string   `yaml:"primary" json:"primary"`
		Fallback         string   `yaml:"fallback" json:"fallback"`
		Timeout          Duration `yaml:"timeout" json:"timeout"`
		BodyThreshold    float64  `yaml:"bodyThreshold" json:"bodyThreshold"`
		CaptionThreshold float64  `yaml:"captionThreshold" json:"captionThreshold"`
		BodyMaxTokens    int      `yaml:"bodyMaxTokens" json:"bodyMaxTokens"`
		CaptionMaxTokens int      `yaml:"captionMaxTokens" json:"captionMaxTokens"`
	} `yaml:"llm" json:"llm"`

	Search struct {
		SerperKey string   `yaml:"serperKey" json:"serperKey"`
		SerperURL string   `yaml:"serperURL" json:"serperURL"`
		SearxURL  string   `yaml:"searxURL" json:"searxURL"`
		SearxKey  string   `yaml:"searxKey" json:"searxKey"`
		File      string   `yaml:"file" json:"file"`
		Timeout   Duration `yaml:"timeout" json:"timeout"`
	} `yaml:"search" json:"search"`

	Image struct {
		Domain       string   `yaml:"domain" json:"domain"`
		Selector     string   `yaml:"selector" json:"selector"`
		UserAgent    string   `yaml:"userAgent" json:"userAgent"`
		FetchTimeout Duration `yaml:"fetchTimeout" json:"fetchTimeout"`
		IgnoreRobots bool     `yaml:"ignoreRobots" json:"ignoreRobots"`
		Caption      struct {
			From string `yaml:"from" json:"from"`
			To   string `yaml:"to" json:"to"`
		} `yaml:"caption" json:"caption"`
	} `yaml:"image" json:"image"`

	Encoding struct {
		MinConfidence int `yaml:"minConfidence" json:"minConfidence"`
	} `yaml:"encoding" json:"encoding"`

	Cache struct {
		Dir         string   `yaml:"dir" json:"dir"`
		MaxAge      Duration `yaml:"maxAge" json:"maxAge"`
		Clear       bool     `yaml:"clear" json:"clear"`
		StrictPerms bool     `yaml:"strictPerms" json:"strictPerms"`
	} `yaml:"cache" json:"cache"`

	PDF struct {
		Font string `yaml:"font" json:"font"`
	} `yaml:"pdf" json:"pdf"`
}

// Duration accepts "90s"-style strings in YAML and JSON.
type Duration time.Duration

func (d *Duration) UnmarshalYAML(n *yaml.Node) error {
	return d.parse(n.Value)
}

func (d *Duration) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("duration must be a string like \"30s\": %w", err)
	}
	return d.parse(s)
}

func (d *Duration) parse(s string) error {
	if s == "" {
		*d = 0
		return nil
	}
	v, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(v)
	return nil
}

// LoadConfigFile reads YAML or JSON into FileConfig.
func LoadConfigFile(path string) (FileConfig, error) {
	var fc FileConfig
	b, err := os.ReadFile(path)
	if err != nil {
		return fc, err
	}
	switch filepath.Ext(path) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(b, &fc); err != nil {
			return fc, fmt.Errorf("parse yaml: %w", err)
		}
	case ".json":
		if err := json.Unmarshal(b, &fc); err != nil {
			return fc, fmt.Errorf("parse json: %w", err)
		}
	default:
		if err := yaml.Unmarshal(b, &fc); err != nil {
			if jerr := json.Unmarshal(b, &fc); jerr != nil {
				return fc, fmt.Errorf("parse config: %v (yaml) / %v (json)", err, jerr)
			}
		}
	}
	return fc, nil
}

// ApplyFileConfig overlays every value set in fc onto cfg.
func ApplyFileConfig(cfg *Config, fc FileConfig) {
	if cfg == nil {
		return
	}
	setString(&cfg.Addr, fc.Addr)
	setString(&cfg.UploadDir, fc.UploadDir)
	if fc.Async != nil {
		cfg.Async = *fc.Async
	}
	if fc.Verbose {
		cfg.Verbose = true
	}

	setString(&cfg.LLMBaseURL, fc.LLM.BaseURL)
	setString(&cfg.LLMAPIKey, fc.LLM.APIKey)
	setString(&cfg.PrimaryModel, fc.LLM.Primary)
	setString(&cfg.FallbackModel, fc.LLM.Fallback)
	setDuration(&cfg.LLMTimeout, fc.LLM.Timeout)
	setFloat(&cfg.BodyThreshold, fc.LLM.BodyThreshold)
	setFloat(&cfg.CaptionThreshold, fc.LLM.CaptionThreshold)
	setInt(&cfg.BodyMaxTokens, fc.LLM.BodyMaxTokens)
	setInt(&cfg.CaptionMaxTokens, fc.LLM.CaptionMaxTokens)

	setString(&cfg.SerperKey, fc.Search.SerperKey)
	setString(&cfg.SerperURL, fc.Search.SerperURL)
	setString(&cfg.SearxURL, fc.Search.SearxURL)
	setString(&cfg.SearxKey, fc.Search.SearxKey)
	setString(&cfg.SearchFile, fc.Search.File)
	setDuration(&cfg.SearchTimeout, fc.Search.Timeout)

	setString(&cfg.ImageDomain, fc.Image.Domain)
	setString(&cfg.ImageSelector, fc.Image.Selector)
	setString(&cfg.UserAgent, fc.Image.UserAgent)
	setDuration(&cfg.FetchTimeout, fc.Image.FetchTimeout)
	setString(&cfg.CaptionFrom, fc.Image.Caption.From)
	setString(&cfg.CaptionTo, fc.Image.Caption.To)
	if fc.Image.IgnoreRobots {
		cfg.IgnoreRobots = true
	}

	setInt(&cfg.MinConfidence, fc.Encoding.MinConfidence)

	setString(&cfg.CacheDir, fc.Cache.Dir)
	setDuration(&cfg.CacheMaxAge, fc.Cache.MaxAge)
	if fc.Cache.Clear {
		cfg.CacheClear = true
	}
	if fc.Cache.StrictPerms {
		cfg.CacheStrictPerms = true
	}
	setString(&cfg.PDFFont, fc.PDF.Font)
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func setInt(dst *int, v int) {
	if v > 0 {
		*dst = v
	}
}

func setFloat(dst *float64, v float64) {
	if v > 0 {
		*dst = v
	}
}

func setDuration(dst *time.Duration, v Duration) {
	if v > 0 {
		*dst = time.Duration(v)
	}
}
