package extractors

import (
	"bytes"
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/dtnitsch/linkmeta/models"
	"github.com/dtnitsch/linkmeta/pkg/failure"
	"github.com/dtnitsch/linkmeta/pkg/fetcher"
)

var (
	// subjectTag matches a trailing classification such as " [math.GM]".
	subjectTag    = regexp.MustCompile(`\s*\[[^\[\]]*\]\s*$`)
	// leadingID matches the "[2301.00001] " prefix arXiv puts in <title>.
	leadingID     = regexp.MustCompile(`^\s*\[\d{4}\.\d{4,5}(v\d+)?\]\s*`)
	abstractLabel = regexp.MustCompile(`(?i)^\s*abstract\s*:\s*`)
	whitespaceRun = regexp.MustCompile(`\s+`)
)

// ArxivResolver reads citation metadata from arXiv abstract pages. PDF links
// are rewritten to the abstract page so the binary is never downloaded.
type ArxivResolver struct {
	fetcher Fetcher
}

func NewArxivResolver(f Fetcher) *ArxivResolver {
	return &ArxivResolver{fetcher: f}
}

// AbstractURL rewrites an arXiv PDF URL to its abstract page:
// https://arxiv.org/pdf/2301.00001.pdf -> https://arxiv.org/abs/2301.00001.
// Abstract URLs are returned unchanged.
func AbstractURL(rawURL string) string {
	if !strings.Contains(rawURL, "/pdf/") {
		return rawURL
	}
	abs := strings.Replace(rawURL, "/pdf/", "/abs/", 1)
	return strings.TrimSuffix(abs, ".pdf")
}

// Resolve fetches the abstract page for rawURL and extracts title and
// abstract. Image is always absent.
func (r *ArxivResolver) Resolve(ctx context.Context, rawURL string) (models.MetadataResult, error) {
	absURL := AbstractURL(rawURL)
	resp, err := r.fetcher.Fetch(ctx, absURL, fetcher.IntentPage)
	if err != nil {
		return models.MetadataResult{}, err
	}

	title, description, err := ParseArxiv(resp.Body)
	if err != nil {
		return models.MetadataResult{}, failure.New(failure.Parse, absURL, err)
	}

	return models.MetadataResult{
		Title:       firstNonEmpty(title, LastPathSegment(rawURL), rawURL),
		Description: description,
	}, nil
}

// ParseArxiv extracts the title and abstract from an arXiv abstract page.
//
// Title: og:title, citation_title, <title>; trailing subject tag removed.
// Description: og:description, citation_abstract, the abstract blockquote
// with its "Abstract:" label stripped, or "".
func ParseArxiv(html []byte) (title, description string, err error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(html))
	if err != nil {
		return "", "", fmt.Errorf("failed to parse HTML: %w", err)
	}

	title = firstNonEmpty(
		metaContent(doc, `meta[property="og:title"]`),
		metaContent(doc, `meta[name="citation_title"]`),
		doc.Find("title").First().Text(),
	)
	title = CleanArxivTitle(title)

	description = firstNonEmpty(
		metaContent(doc, `meta[property="og:description"]`),
		metaContent(doc, `meta[name="citation_abstract"]`),
		abstractBlock(doc),
	)
	return title, description, nil
}

// CleanArxivTitle removes a trailing bracketed subject class and collapses
// whitespace: "A Great Paper [math.GM]" -> "A Great Paper". The arXiv id
// prefix used in <title> is removed as well.
func CleanArxivTitle(title string) string {
	title = leadingID.ReplaceAllString(title, "")
	title = subjectTag.ReplaceAllString(title, "")
	return strings.TrimSpace(whitespaceRun.ReplaceAllString(title, " "))
}

func abstractBlock(doc *goquery.Document) string {
	block := doc.Find("blockquote.abstract").First()
	if block.Length() == 0 {
		return ""
	}
	text := whitespaceRun.ReplaceAllString(block.Text(), " ")
	return strings.TrimSpace(abstractLabel.ReplaceAllString(text, ""))
}

func metaContent(doc *goquery.Document, selector string) string {
	return strings.TrimSpace(doc.Find(selector).First().AttrOr("content", ""))
}
