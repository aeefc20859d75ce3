// Package models defines data structures for configuration and metadata results.
package models

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	DefaultUserAgent      = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
	DefaultAccept         = "text/html,application/xhtml+xml,application/xml;q=0.9,image/avif,image/webp,image/apng,*/*;q=0.8"
	DefaultAcceptLanguage = "en-US,en;q=0.9"
	DefaultCrossrefURL    = "https://api.crossref.org/works/"
	DefaultFaviconURL     = "https://www.google.com/s2/favicons"
)

// Config is the full runtime configuration. Values come from an optional YAML
// file layered over DefaultConfig, then CLI flags.
type Config struct {
	Fetch    FetchConfig    `yaml:"fetch"`
	Resolver ResolverConfig `yaml:"resolver"`
	Favicon  FaviconConfig  `yaml:"favicon"`
	Refetch  RefetchConfig  `yaml:"refetch"`
	Import   ImportConfig   `yaml:"import"`
	DB       DBConfig       `yaml:"db"`
	Server   ServerConfig   `yaml:"server"`
}

// FetchConfig controls outbound HTTP requests.
type FetchConfig struct {
	Timeout              Duration       `yaml:"timeout"`
	MaxBodyBytes         int64          `yaml:"max_body_bytes"`
	UserAgent            string         `yaml:"user_agent"`
	Accept               string         `yaml:"accept"`
	AcceptLanguage       string         `yaml:"accept_language"`
	BrowserTLS           bool           `yaml:"browser_tls"`
	BlockPrivateNetworks bool           `yaml:"block_private_networks"`
	RateLimit            RateLimit      `yaml:"rate_limit"`
	HostOverrides        []HostOverride `yaml:"host_overrides"`
}

// RateLimit applies a token bucket per host. Zero values disable it.
type RateLimit struct {
	Requests int      `yaml:"requests"`
	Window   Duration `yaml:"window"`
}

// HostOverride replaces request headers for hosts matching Suffix.
// Suffix "example.com" matches "example.com" and "forum.example.com".
type HostOverride struct {
	Suffix    string            `yaml:"suffix"`
	UserAgent string            `yaml:"user_agent"`
	Referer   string            `yaml:"referer"`
	Headers   map[string]string `yaml:"headers"`
}

// ResolverConfig tunes the individual extraction strategies.
type ResolverConfig struct {
	CrossrefURL        string `yaml:"crossref_base_url"`
	PDFExcerptChars    int    `yaml:"pdf_excerpt_chars"`
	ReadabilityExcerpt bool   `yaml:"readability_excerpt"`
}

type FaviconConfig struct {
	Upstream string `yaml:"upstream"`
	Size     int    `yaml:"size"`
	// PublicURL is the externally reachable /favicon endpoint written into
	// stored links when no image was extracted.
	PublicURL string `yaml:"public_url"`
}

type RefetchConfig struct {
	MaxAttempts int      `yaml:"max_attempts"`
	Backoff     Duration `yaml:"backoff"`
}

type ImportConfig struct {
	Concurrency int `yaml:"concurrency"`
}

type DBConfig struct {
	Path string `yaml:"path"`
}

type ServerConfig struct {
	Addr string `yaml:"addr"`
}

// DefaultConfig returns the configuration used when no file is supplied.
func DefaultConfig() Config {
	return Config{
		Fetch: FetchConfig{
			Timeout:              DurationFrom(15 * time.Second),
			MaxBodyBytes:         20 * 1024 * 1024,
			UserAgent:            DefaultUserAgent,
			Accept:               DefaultAccept,
			AcceptLanguage:       DefaultAcceptLanguage,
			BlockPrivateNetworks: true,
		},
		Resolver: ResolverConfig{
			CrossrefURL:     DefaultCrossrefURL,
			PDFExcerptChars: 200,
		},
		Favicon: FaviconConfig{
			Upstream:  DefaultFaviconURL,
			Size:      64,
			PublicURL: DefaultFaviconURL + "?sz=64&domain_url=",
		},
		Refetch: RefetchConfig{
			MaxAttempts: 3,
			Backoff:     DurationFrom(time.Second),
		},
		Import: ImportConfig{Concurrency: 6},
		DB:     DBConfig{Path: "linkmeta.db"},
		Server: ServerConfig{Addr: ":8080"},
	}
}

// LoadConfig reads a YAML file over DefaultConfig. An empty path returns the
// defaults unchanged.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("failed to read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate rejects values that would make the pipeline misbehave.
func (c Config) Validate() error {
	var errs []error
	if c.Fetch.Timeout.Duration <= 0 {
		errs = append(errs, errors.New("fetch.timeout must be positive"))
	}
	if c.Refetch.MaxAttempts < 1 {
		errs = append(errs, errors.New("refetch.max_attempts must be at least 1"))
	}
	if c.Import.Concurrency < 1 {
		errs = append(errs, errors.New("import.concurrency must be at least 1"))
	}
	for i, o := range c.Fetch.HostOverrides {
		if o.Suffix == "" {
			errs = append(errs, fmt.Errorf("fetch.host_overrides[%d].suffix is required", i))
		}
	}
	return errors.Join(errs...)
}
