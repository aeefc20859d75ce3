// Package fetcher performs the outbound HTTP requests of the metadata pipeline.
// It picks request headers per target (browser emulation, referrer, per-host
// overrides) and turns every transport problem or non-2xx status into a
// failure.Error so resolvers can fall back uniformly.
package fetcher

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/dtnitsch/linkmeta/models"
	"github.com/dtnitsch/linkmeta/pkg/failure"
)

const (
	defaultTimeout      = 15 * time.Second
	defaultMaxBodyBytes = 20 * 1024 * 1024
)

// Intent tells the fetcher what the caller is about to do with the response,
// which decides the Accept header and whether a Referer is sent.
type Intent int

const (
	// IntentPage fetches a document a browser would navigate to.
	IntentPage Intent = iota
	// IntentAPI fetches a JSON API response.
	IntentAPI
	// IntentImage fetches an image.
	IntentImage
)

// Options controls HTTP fetching behaviour.
type Options struct {
	UserAgent      string
	Accept         string
	AcceptLanguage string
	Timeout        time.Duration
	MaxBodyBytes   int64
	// BrowserTLS dials HTTPS hosts with a Firefox TLS fingerprint.
	BrowserTLS bool
	// BlockPrivate refuses connections to loopback, link-local and RFC1918 addresses.
	BlockPrivate bool
	RateLimit    RateLimiterSettings
	Overrides    []HostOverride
	// Client replaces the constructed client entirely when set.
	Client *http.Client
	Logger *slog.Logger
}

// Response is a fully read 2xx response.
type Response struct {
	URL         string
	FinalURL    string
	StatusCode  int
	ContentType string
	Header      http.Header
	Body        []byte
}

// Fetcher issues GET requests with per-target header selection.
type Fetcher struct {
	client       *http.Client
	headers      HeaderProfile
	overrides    *OverrideTable
	limiter      *HostLimiter
	maxBodyBytes int64
	logger       *slog.Logger
}

// NewFetcher builds a Fetcher from opts, filling unset values with defaults.
func NewFetcher(opts Options) *Fetcher {
	if opts.Timeout <= 0 {
		opts.Timeout = defaultTimeout
	}
	if opts.MaxBodyBytes <= 0 {
		opts.MaxBodyBytes = defaultMaxBodyBytes
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	client := opts.Client
	if client == nil {
		client = newClient(opts)
	}

	return &Fetcher{
		client: client,
		headers: HeaderProfile{
			UserAgent:      firstNonEmpty(opts.UserAgent, models.DefaultUserAgent),
			Accept:         firstNonEmpty(opts.Accept, models.DefaultAccept),
			AcceptLanguage: firstNonEmpty(opts.AcceptLanguage, models.DefaultAcceptLanguage),
		},
		overrides:    NewOverrideTable(opts.Overrides),
		limiter:      NewHostLimiter(opts.RateLimit),
		maxBodyBytes: opts.MaxBodyBytes,
		logger:       opts.Logger,
	}
}

// FromConfig maps the fetch section of the config onto Options.
func FromConfig(cfg models.FetchConfig, logger *slog.Logger) *Fetcher {
	overrides := make([]HostOverride, 0, len(cfg.HostOverrides))
	for _, o := range cfg.HostOverrides {
		overrides = append(overrides, HostOverride{
			Suffix:    o.Suffix,
			UserAgent: o.UserAgent,
			Referer:   o.Referer,
			Headers:   o.Headers,
		})
	}
	return NewFetcher(Options{
		UserAgent:      cfg.UserAgent,
		Accept:         cfg.Accept,
		AcceptLanguage: cfg.AcceptLanguage,
		Timeout:        cfg.Timeout.Duration,
		MaxBodyBytes:   cfg.MaxBodyBytes,
		BrowserTLS:     cfg.BrowserTLS,
		BlockPrivate:   cfg.BlockPrivateNetworks,
		RateLimit: RateLimiterSettings{
			Requests: cfg.RateLimit.Requests,
			Window:   cfg.RateLimit.Window.Duration,
		},
		Overrides: overrides,
		Logger:    logger,
	})
}

func newClient(opts Options) *http.Client {
	dialer := &net.Dialer{Timeout: opts.Timeout, KeepAlive: 30 * time.Second}
	dial := guardedDialContext(dialer, opts.BlockPrivate)

	if opts.BrowserTLS {
		return &http.Client{
			Timeout:   opts.Timeout,
			Transport: newBrowserTransport(dial),
		}
	}

	return &http.Client{
		Timeout: opts.Timeout,
		Transport: &http.Transport{
			Proxy:                 http.ProxyFromEnvironment,
			DialContext:           dial,
			TLSHandshakeTimeout:   10 * time.Second,
			MaxIdleConns:          100,
			IdleConnTimeout:       90 * time.Second,
			ExpectContinueTimeout: time.Second,
		},
	}
}

// Fetch downloads rawURL and returns the decoded body of a 2xx response.
// Errors are always *failure.Error values of kind Transport or UpstreamStatus.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string, intent Intent) (*Response, error) {
	target, err := url.Parse(rawURL)
	if err != nil || target.Host == "" {
		if err == nil {
			err = fmt.Errorf("missing host")
		}
		return nil, failure.New(failure.Transport, rawURL, fmt.Errorf("invalid URL: %w", err))
	}

	if err := f.limiter.Wait(ctx, target.Hostname()); err != nil {
		return nil, failure.New(failure.Transport, rawURL, fmt.Errorf("rate limit wait: %w", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, failure.New(failure.Transport, rawURL, fmt.Errorf("build request: %w", err))
	}
	f.applyHeaders(req, target, intent)

	start := time.Now()
	resp, err := f.client.Do(req)
	if err != nil {
		return nil, failure.New(failure.Transport, rawURL, fmt.Errorf("http fetch failed: %w", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64*1024))
		return nil, failure.Status(rawURL, resp.StatusCode)
	}

	body, err := readBody(resp, f.maxBodyBytes)
	if err != nil {
		return nil, failure.New(failure.Transport, rawURL, err)
	}

	finalURL := rawURL
	if resp.Request != nil && resp.Request.URL != nil {
		finalURL = resp.Request.URL.String()
	}

	f.logger.Debug("fetched", "url", rawURL, "status", resp.StatusCode, "bytes", len(body), "elapsed", time.Since(start))

	return &Response{
		URL:         rawURL,
		FinalURL:    finalURL,
		StatusCode:  resp.StatusCode,
		ContentType: resp.Header.Get("Content-Type"),
		Header:      resp.Header.Clone(),
		Body:        body,
	}, nil
}

func (f *Fetcher) applyHeaders(req *http.Request, target *url.URL, intent Intent) {
	h := f.headers
	switch intent {
	case IntentAPI:
		h.Accept = "application/json"
	case IntentImage:
		h.Accept = "image/avif,image/webp,image/png,image/*;q=0.8,*/*;q=0.5"
	}
	if intent == IntentPage {
		h.Referer = target.Scheme + "://" + target.Host
	}
	if o, ok := f.overrides.Lookup(target.Hostname()); ok {
		h = h.With(o)
	}
	h.Apply(req.Header)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
