package extractors

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/ledongthuc/pdf"

	"github.com/dtnitsch/linkmeta/models"
	"github.com/dtnitsch/linkmeta/pkg/failure"
)

const (
	// UntitledPDF is the title of last resort for PDFs.
	UntitledPDF = "Untitled PDF"
	// PDFDocumentLabel describes a PDF with no extractable text.
	PDFDocumentLabel = "PDF Document"
	// BlockedPDFLabel describes a .pdf URL that was served as HTML.
	BlockedPDFLabel = "PDF Document (Metadata unavailable)"

	defaultExcerptChars = 200
	// untitledPlaceholder is what some producers write into an empty Title.
	untitledPlaceholder = "untitled"
)

// PDFTitleFallback is the title used when the document has none: the last
// path segment of the URL, or UntitledPDF.
func PDFTitleFallback(rawURL string) string {
	return firstNonEmpty(LastPathSegment(rawURL), UntitledPDF)
}

// pdfDocument wraps the reader over an in-memory PDF.
// Close must be called on every path once openPDF succeeds.
type pdfDocument struct {
	reader *pdf.Reader
}

func openPDF(body []byte) (doc *pdfDocument, err error) {
	defer func() {
		if r := recover(); r != nil {
			doc, err = nil, fmt.Errorf("pdf reader panic: %v", r)
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(body), int64(len(body)))
	if err != nil {
		return nil, fmt.Errorf("open pdf: %w", err)
	}
	return &pdfDocument{reader: reader}, nil
}

// Close drops the reader so nothing keeps the payload alive.
func (d *pdfDocument) Close() error {
	if d != nil {
		d.reader = nil
	}
	return nil
}

// infoTitle reads /Title from the document information dictionary.
func (d *pdfDocument) infoTitle() string {
	return strings.TrimSpace(d.reader.Trailer().Key("Info").Key("Title").Text())
}

// excerpt collects page text until maxChars characters of collapsed text are
// available. Pages that fail to decode are skipped.
func (d *pdfDocument) excerpt(ctx context.Context, maxChars int) (string, error) {
	var sb strings.Builder
	for i := 1; i <= d.reader.NumPage(); i++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		page := d.reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			continue
		}
		sb.WriteString(text)
		sb.WriteString(" ")
		if utf8.RuneCountInString(collapse(sb.String())) >= maxChars {
			break
		}
	}
	return truncateRunes(collapse(sb.String()), maxChars), nil
}

// ParsePDF extracts a title and a text excerpt from a PDF payload. rawURL is
// used for the title when the document has none.
//
// Parser failures, including panics inside the PDF library, come back as
// failure.Parse. The document is released on every path.
func ParsePDF(ctx context.Context, body []byte, rawURL string, excerptChars int) (result models.MetadataResult, err error) {
	if excerptChars <= 0 {
		excerptChars = defaultExcerptChars
	}

	doc, err := openPDF(body)
	if err != nil {
		return models.MetadataResult{}, failure.New(failure.Parse, rawURL, err)
	}
	defer func() {
		if r := recover(); r != nil {
			result = models.MetadataResult{}
			err = failure.New(failure.Parse, rawURL, fmt.Errorf("pdf parser panic: %v", r))
		}
	}()
	defer doc.Close()

	title := doc.infoTitle()
	if title == "" || strings.EqualFold(title, untitledPlaceholder) {
		title = PDFTitleFallback(rawURL)
	}

	text, err := doc.excerpt(ctx, excerptChars)
	if err != nil {
		return models.MetadataResult{}, err
	}

	description := PDFDocumentLabel
	if text != "" {
		description = text + "..."
	}

	return models.MetadataResult{
		Title:       title,
		Description: description,
	}, nil
}

func collapse(s string) string {
	return strings.TrimSpace(whitespaceRun.ReplaceAllString(s, " "))
}

func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return strings.TrimSpace(string([]rune(s)[:n]))
}
