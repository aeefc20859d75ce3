// Package detector classifies a URL into one of the extraction strategies.
// Classification is pure: the URL alone decides DOI and arXiv handling, and
// the response Content-Type decides between PDF and HTML for everything else.
package detector

import (
	"mime"
	"net/url"
	"regexp"
	"strings"

	"github.com/dtnitsch/linkmeta/models"
)

// doiPattern matches a DOI anywhere in a string: 10.<4-9 digits>/<suffix>.
var doiPattern = regexp.MustCompile(`(?i)(10\.\d{4,9}/[-._;()/:A-Z0-9]+)`)

// ExtractDOI returns the DOI token embedded in rawURL, if any.
func ExtractDOI(rawURL string) (string, bool) {
	m := doiPattern.FindStringSubmatch(rawURL)
	if len(m) < 2 {
		return "", false
	}
	return m[1], true
}

// IsArxiv reports whether rawURL points at an arXiv abstract or PDF page.
func IsArxiv(rawURL string) bool {
	return strings.Contains(rawURL, "arxiv.org/pdf/") || strings.Contains(rawURL, "arxiv.org/abs/")
}

// Classify decides the strategy from the URL string alone. When ok is false
// the URL has to be fetched and passed to ClassifyResponse.
//
// DOI detection runs first, so a DOI-shaped substring inside an arXiv or
// publisher URL still selects the registry lookup.
func Classify(rawURL string) (strategy models.Strategy, ok bool) {
	if _, found := ExtractDOI(rawURL); found {
		return models.StrategyDOI, true
	}
	return ClassifyWithoutDOI(rawURL)
}

// ClassifyWithoutDOI is Classify minus the DOI check. It is used after a
// registry lookup has failed and the URL falls through to the other paths.
func ClassifyWithoutDOI(rawURL string) (models.Strategy, bool) {
	if IsArxiv(rawURL) {
		return models.StrategyArxiv, true
	}
	return models.StrategyGenericHTML, false
}

// ClassifyResponse picks between PDF and HTML handling for a fetched URL.
// A .pdf URL counts as PDF unless the server answered with text/html.
func ClassifyResponse(rawURL, contentType string) models.Strategy {
	mediaType := MediaType(contentType)
	if mediaType == "application/pdf" {
		return models.StrategyRawPDF
	}
	if HasPDFSuffix(rawURL) && mediaType != "text/html" {
		return models.StrategyRawPDF
	}
	return models.StrategyGenericHTML
}

// IsBlockedPDF reports the interstitial case: a .pdf URL served as HTML.
// These pages are almost always bot walls and are not worth parsing.
func IsBlockedPDF(rawURL, contentType string) bool {
	return HasPDFSuffix(rawURL) && MediaType(contentType) == "text/html"
}

// HasPDFSuffix reports whether the URL path ends in .pdf (case-insensitive).
// Query strings and fragments are ignored.
func HasPDFSuffix(rawURL string) bool {
	p := rawURL
	if u, err := url.Parse(rawURL); err == nil {
		p = u.Path
	}
	return strings.HasSuffix(strings.ToLower(p), ".pdf")
}

// MediaType returns the lowercase media type of a Content-Type header value.
func MediaType(contentType string) string {
	if contentType == "" {
		return ""
	}
	mt, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		mt, _, _ = strings.Cut(contentType, ";")
	}
	return strings.ToLower(strings.TrimSpace(mt))
}
