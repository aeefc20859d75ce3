// Package favicon proxies small site icons from an upstream favicon service
// and always yields a displayable image.
package favicon

import (
	"context"
	_ "embed"
	"io"
	"log/slog"
	"net/url"
	"strconv"
	"strings"

	"github.com/dtnitsch/linkmeta/models"
	"github.com/dtnitsch/linkmeta/pkg/extractors"
	"github.com/dtnitsch/linkmeta/pkg/fetcher"
)

//go:embed transparent.png
var transparentPNG []byte

const (
	SuccessCacheControl  = "public, max-age=3600"
	FallbackCacheControl = "public, max-age=60"
	defaultContentType   = "image/png"
)

// Icon is the image returned for a target URL.
type Icon struct {
	Body         []byte
	ContentType  string
	CacheControl string
	// Fallback is true when Body is the embedded transparent pixel.
	Fallback bool
}

// FallbackIcon returns the embedded 1x1 transparent PNG.
func FallbackIcon() Icon {
	body := make([]byte, len(transparentPNG))
	copy(body, transparentPNG)
	return Icon{
		Body:         body,
		ContentType:  defaultContentType,
		CacheControl: FallbackCacheControl,
		Fallback:     true,
	}
}

type Proxy struct {
	fetcher  extractors.Fetcher
	upstream string
	size     int
	logger   *slog.Logger
}

// New creates a Proxy. upstream is the favicon service endpoint, queried as
// <upstream>?sz=<size>&domain_url=<target>.
func New(f extractors.Fetcher, upstream string, size int, logger *slog.Logger) *Proxy {
	if upstream == "" {
		upstream = models.DefaultFaviconURL
	}
	if size <= 0 {
		size = 64
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Proxy{fetcher: f, upstream: upstream, size: size, logger: logger}
}

// FromConfig builds a Proxy from the favicon section of the config.
func FromConfig(f extractors.Fetcher, cfg models.FaviconConfig, logger *slog.Logger) *Proxy {
	return New(f, cfg.Upstream, cfg.Size, logger)
}

// UpstreamURL is the favicon service URL for target.
func (p *Proxy) UpstreamURL(target string) string {
	sep := "?"
	if strings.Contains(p.upstream, "?") {
		sep = "&"
	}
	return p.upstream + sep + "sz=" + strconv.Itoa(p.size) + "&domain_url=" + url.QueryEscape(target)
}

// Get fetches the icon for target. Any upstream problem, including an empty
// body, yields FallbackIcon.
func (p *Proxy) Get(ctx context.Context, target string) Icon {
	upstream := p.UpstreamURL(target)
	resp, err := p.fetcher.Fetch(ctx, upstream, fetcher.IntentImage)
	if err != nil {
		p.logger.Debug("favicon upstream failed", "url", target, "error", err)
		return FallbackIcon()
	}
	if len(resp.Body) == 0 {
		p.logger.Debug("favicon upstream returned empty body", "url", target)
		return FallbackIcon()
	}

	contentType := resp.ContentType
	if contentType == "" {
		contentType = defaultContentType
	}
	return Icon{
		Body:         resp.Body,
		ContentType:  contentType,
		CacheControl: SuccessCacheControl,
	}
}
