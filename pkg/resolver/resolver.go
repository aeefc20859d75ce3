// Package resolver turns a URL into a MetadataResult by dispatching to the
// DOI, arXiv, PDF or HTML extractor and composing fallback output once.
package resolver

import (
	"context"
	"io"
	"log/slog"
	"net/url"
	"strings"

	"github.com/dtnitsch/linkmeta/models"
	"github.com/dtnitsch/linkmeta/pkg/detector"
	"github.com/dtnitsch/linkmeta/pkg/extractors"
	"github.com/dtnitsch/linkmeta/pkg/fetcher"
)

// Options configures a Resolver.
type Options struct {
	CrossrefURL        string
	PDFExcerptChars    int
	ReadabilityExcerpt bool
	Logger             *slog.Logger
}

// Resolver is safe for concurrent use. It holds no per-request state.
type Resolver struct {
	fetcher      extractors.Fetcher
	doi          *extractors.DOIResolver
	arxiv        *extractors.ArxivResolver
	htmlOpts     extractors.HTMLOptions
	excerptChars int
	logger       *slog.Logger
}

// New creates a Resolver that performs all network access through f.
func New(f extractors.Fetcher, opts Options) *Resolver {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Resolver{
		fetcher:      f,
		doi:          extractors.NewDOIResolver(f, opts.CrossrefURL),
		arxiv:        extractors.NewArxivResolver(f),
		htmlOpts:     extractors.HTMLOptions{ReadabilityExcerpt: opts.ReadabilityExcerpt},
		excerptChars: opts.PDFExcerptChars,
		logger:       logger,
	}
}

// FromConfig builds a Resolver from the resolver section of the config.
func FromConfig(f extractors.Fetcher, cfg models.ResolverConfig, logger *slog.Logger) *Resolver {
	return New(f, Options{
		CrossrefURL:        cfg.CrossrefURL,
		PDFExcerptChars:    cfg.PDFExcerptChars,
		ReadabilityExcerpt: cfg.ReadabilityExcerpt,
		Logger:             logger,
	})
}

// Attempt runs the pipeline once without fallback. The returned strategy is
// the one that produced the result or the error; on error the result is
// zero and the error is a *failure.Error or a context error.
//
// A DOI that the registry cannot resolve is not an error: classification
// continues as if the URL had no DOI.
func (r *Resolver) Attempt(ctx context.Context, rawURL string) (models.MetadataResult, models.Strategy, error) {
	if doi, ok := detector.ExtractDOI(rawURL); ok {
		result, err := r.doi.Resolve(ctx, doi, rawURL)
		if err == nil {
			return result, models.StrategyDOI, nil
		}
		if ctx.Err() != nil {
			return models.MetadataResult{}, models.StrategyDOI, ctx.Err()
		}
		r.logger.Debug("doi lookup failed, continuing", "url", rawURL, "doi", doi, "error", err)
	}

	if detector.IsArxiv(rawURL) {
		result, err := r.arxiv.Resolve(ctx, rawURL)
		return result, models.StrategyArxiv, err
	}

	resp, err := r.fetcher.Fetch(ctx, rawURL, fetcher.IntentPage)
	if err != nil {
		return models.MetadataResult{}, guessStrategy(rawURL), err
	}

	if detector.IsBlockedPDF(rawURL, resp.ContentType) {
		return BlockedPDF(rawURL), models.StrategyGenericHTML, nil
	}

	switch detector.ClassifyResponse(rawURL, resp.ContentType) {
	case models.StrategyRawPDF:
		result, err := extractors.ParsePDF(ctx, resp.Body, rawURL, r.excerptChars)
		return result, models.StrategyRawPDF, err
	default:
		result, err := extractors.ParseHTML(resp.Body, rawURL, resp.FinalURL, r.htmlOpts)
		return result, models.StrategyGenericHTML, err
	}
}

// Resolve runs the pipeline and replaces any failure with the fallback for
// the strategy that failed. The only error it returns is the context's.
func (r *Resolver) Resolve(ctx context.Context, rawURL string) (models.MetadataResult, error) {
	result, strategy, err := r.Attempt(ctx, rawURL)
	if err == nil {
		return result, nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return models.MetadataResult{}, ctxErr
	}

	r.logger.Warn("resolution failed, using fallback", "url", rawURL, "strategy", strategy.String(), "error", err)
	return Fallback(strategy, rawURL), nil
}

// Fallback is the deterministic result used when strategy failed for rawURL.
func Fallback(strategy models.Strategy, rawURL string) models.MetadataResult {
	switch strategy {
	case models.StrategyArxiv:
		title := extractors.LastPathSegment(rawURL)
		if title == "" {
			title = rawURL
		}
		return models.MetadataResult{Title: title}
	case models.StrategyRawPDF:
		return models.MetadataResult{
			Title:       extractors.PDFTitleFallback(rawURL),
			Description: extractors.PDFDocumentLabel,
		}
	default:
		return models.MetadataResult{Title: rawURL}
	}
}

// BlockedPDF is the synthetic result for a .pdf URL that was served as HTML.
func BlockedPDF(rawURL string) models.MetadataResult {
	return models.MetadataResult{
		Title:       extractors.PDFTitleFallback(rawURL),
		Description: extractors.BlockedPDFLabel,
	}
}

// guessStrategy names the strategy a failed page fetch was headed for.
func guessStrategy(rawURL string) models.Strategy {
	if detector.HasPDFSuffix(rawURL) {
		return models.StrategyRawPDF
	}
	return models.StrategyGenericHTML
}

// DisplayImage returns the image to store for a link: the extracted image, or
// the favicon proxy URL for linkURL when there is none.
//
// faviconBase is either a URL ending in "=" (the link URL is appended
// escaped, e.g. Google's ?domain_url=) or an endpoint that takes ?url=.
func DisplayImage(result models.MetadataResult, linkURL, faviconBase string) string {
	if result.HasImage() {
		return result.ImageURL()
	}
	return FaviconURL(linkURL, faviconBase)
}

// FaviconURL builds the favicon proxy URL for linkURL.
func FaviconURL(linkURL, faviconBase string) string {
	if faviconBase == "" {
		return ""
	}
	escaped := url.QueryEscape(linkURL)
	switch {
	case strings.HasSuffix(faviconBase, "="):
		return faviconBase + escaped
	case strings.Contains(faviconBase, "?"):
		return faviconBase + "&url=" + escaped
	default:
		return faviconBase + "?url=" + escaped
	}
}

// TitleOrURL returns the result title, or rawURL when it is blank.
func TitleOrURL(result models.MetadataResult, rawURL string) string {
	if t := strings.TrimSpace(result.Title); t != "" {
		return t
	}
	return rawURL
}
