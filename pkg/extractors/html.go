package extractors

import (
	"bytes"
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-shiori/go-readability"

	"github.com/dtnitsch/linkmeta/models"
	"github.com/dtnitsch/linkmeta/pkg/failure"
)

// HTMLOptions tunes ParseHTML.
type HTMLOptions struct {
	// ReadabilityExcerpt fills an otherwise empty description with the
	// readability excerpt of the main article.
	ReadabilityExcerpt bool
}

// ParseHTML extracts the metadata triple from a web page.
//
//	title:       og:title, <title>, twitter:title, rawURL
//	description: og:description, meta description, twitter:description, ""
//	image:       og:image, twitter:image, absent
//
// Relative image URLs are resolved against baseURL (the final URL after
// redirects); an empty baseURL means rawURL. A missing image is left nil so
// the caller can decide on a favicon.
func ParseHTML(body []byte, rawURL, baseURL string, opts HTMLOptions) (models.MetadataResult, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return models.MetadataResult{}, failure.New(failure.Parse, rawURL, fmt.Errorf("failed to parse HTML: %w", err))
	}
	if baseURL == "" {
		baseURL = rawURL
	}

	title := firstNonEmpty(
		metaContent(doc, `meta[property="og:title"]`),
		doc.Find("title").First().Text(),
		metaContent(doc, `meta[name="twitter:title"], meta[property="twitter:title"]`),
		rawURL,
	)

	description := firstNonEmpty(
		metaContent(doc, `meta[property="og:description"]`),
		metaContent(doc, `meta[name="description"]`),
		metaContent(doc, `meta[name="twitter:description"], meta[property="twitter:description"]`),
	)
	if description == "" && opts.ReadabilityExcerpt {
		description = readableExcerpt(body, baseURL)
	}

	image := firstNonEmpty(
		metaContent(doc, `meta[property="og:image"]`),
		metaContent(doc, `meta[name="twitter:image"], meta[property="twitter:image"]`),
	)

	return models.MetadataResult{
		Title:       strings.TrimSpace(title),
		Description: strings.TrimSpace(description),
		Image:       models.ImageOf(absoluteURL(image, baseURL)),
	}, nil
}

// absoluteURL resolves ref against base. Unparseable input is returned as is.
func absoluteURL(ref, base string) string {
	if ref == "" {
		return ""
	}
	refURL, err := url.Parse(ref)
	if err != nil {
		return ref
	}
	if refURL.IsAbs() {
		return ref
	}
	baseURL, err := url.Parse(base)
	if err != nil {
		return ref
	}
	return baseURL.ResolveReference(refURL).String()
}

// readableExcerpt runs readability over the page and returns its excerpt.
// Errors are swallowed: the excerpt is a best-effort extra.
func readableExcerpt(body []byte, pageURL string) string {
	parsedURL, err := url.Parse(pageURL)
	if err != nil {
		return ""
	}
	parser := readability.NewParser()
	article, err := parser.Parse(bytes.NewReader(body), parsedURL)
	if err != nil {
		return ""
	}
	return collapse(article.Excerpt)
}
