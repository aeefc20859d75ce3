package resolver

import (
	"bytes"
	"context"
	"sync"
	"testing"

	"github.com/jung-kurt/gofpdf"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dtnitsch/linkmeta/models"
	"github.com/dtnitsch/linkmeta/pkg/extractors"
	"github.com/dtnitsch/linkmeta/pkg/failure"
	"github.com/dtnitsch/linkmeta/pkg/fetcher"
)

type fakeFetcher struct {
	mu        sync.Mutex
	responses map[string]*fetcher.Response
	errs      map[string]error
	requested []string
}

func (f *fakeFetcher) Fetch(ctx context.Context, rawURL string, intent fetcher.Intent) (*fetcher.Response, error) {
	f.mu.Lock()
	f.requested = append(f.requested, rawURL)
	f.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, failure.New(failure.Transport, rawURL, err)
	}
	if err, ok := f.errs[rawURL]; ok {
		return nil, err
	}
	if resp, ok := f.responses[rawURL]; ok {
		return resp, nil
	}
	return nil, failure.Status(rawURL, 404)
}

func respond(rawURL, contentType string, body []byte) *fetcher.Response {
	return &fetcher.Response{URL: rawURL, FinalURL: rawURL, StatusCode: 200, ContentType: contentType, Body: body}
}

const crossref = "https://api.crossref.test/works/"

func newTestResolver(f *fakeFetcher) *Resolver {
	return New(f, Options{CrossrefURL: crossref, PDFExcerptChars: 200})
}

func TestResolve_ArxivPDFUsesAbstractPage(t *testing.T) {
	f := &fakeFetcher{responses: map[string]*fetcher.Response{
		"https://arxiv.org/abs/2301.00001": respond("https://arxiv.org/abs/2301.00001", "text/html", []byte(
			`<html><head><meta property="og:title" content="A Great Paper [math.GM]">
			<meta property="og:description" content="We prove things."></head></html>`)),
	}}

	got, err := newTestResolver(f).Resolve(context.Background(), "https://arxiv.org/pdf/2301.00001.pdf")
	require.NoError(t, err)

	assert.Equal(t, models.MetadataResult{Title: "A Great Paper", Description: "We prove things."}, got)
	assert.Equal(t, []string{"https://arxiv.org/abs/2301.00001"}, f.requested)
}

func TestResolve_BlockedPDF(t *testing.T) {
	f := &fakeFetcher{responses: map[string]*fetcher.Response{
		"https://example.com/missing.pdf": respond("https://example.com/missing.pdf", "text/html; charset=utf-8",
			[]byte(`<html><head><title>Just a moment...</title></head></html>`)),
	}}

	got, err := newTestResolver(f).Resolve(context.Background(), "https://example.com/missing.pdf")
	require.NoError(t, err)
	assert.Equal(t, models.MetadataResult{
		Title:       "missing.pdf",
		Description: "PDF Document (Metadata unavailable)",
	}, got)
	assert.Nil(t, got.Image)
}

func TestResolve_DOI(t *testing.T) {
	f := &fakeFetcher{responses: map[string]*fetcher.Response{
		crossref + "10.1000/xyz123": respond(crossref+"10.1000/xyz123", "application/json", []byte(
			`{"message":{"title":["Deep Things"],"author":[{"given":"Ada","family":"Lovelace"},{"given":"Alan","family":"Turing"}]}}`)),
	}}

	got, err := newTestResolver(f).Resolve(context.Background(), "https://doi.org/10.1000/xyz123")
	require.NoError(t, err)
	assert.Equal(t, models.MetadataResult{Title: "Deep Things", Description: "By Ada Lovelace, Alan Turing"}, got)
}

func TestResolve_DOINotFoundFallsThroughToHTML(t *testing.T) {
	page := "https://publisher.example.com/article/10.5555/abc.def"
	f := &fakeFetcher{responses: map[string]*fetcher.Response{
		page: respond(page, "text/html", []byte(`<html><head><title>Publisher Page</title></head></html>`)),
	}}

	got, strategy, err := newTestResolver(f).Attempt(context.Background(), page)
	require.NoError(t, err)
	assert.Equal(t, models.StrategyGenericHTML, strategy)
	assert.Equal(t, "Publisher Page", got.Title)
	assert.Equal(t, []string{crossref + "10.5555/abc.def", page}, f.requested)
}

func TestResolve_DOIPrecedesArxiv(t *testing.T) {
	raw := "https://arxiv.org/abs/10.48550/arXiv.2301.00001"
	f := &fakeFetcher{responses: map[string]*fetcher.Response{
		crossref + "10.48550/arXiv.2301.00001": respond("", "application/json", []byte(`{"message":{"title":["From Crossref"]}}`)),
	}}

	_, strategy, err := newTestResolver(f).Attempt(context.Background(), raw)
	require.NoError(t, err)
	assert.Equal(t, models.StrategyDOI, strategy)
}

func TestResolve_RawPDF(t *testing.T) {
	t.Setenv("TMPDIR", t.TempDir())

	doc := gofpdf.New("P", "mm", "A4", "")
	doc.SetCompression(false)
	doc.SetTitle("Annual Report", false)
	doc.AddPage()
	doc.SetFont("Helvetica", "", 12)
	doc.Cell(0, 10, "Revenue went up")
	var buf bytes.Buffer
	require.NoError(t, doc.Output(&buf))

	raw := "https://example.com/files/annual"
	f := &fakeFetcher{responses: map[string]*fetcher.Response{
		raw: respond(raw, "application/pdf", buf.Bytes()),
	}}

	got, strategy, err := newTestResolver(f).Attempt(context.Background(), raw)
	require.NoError(t, err)
	assert.Equal(t, models.StrategyRawPDF, strategy)
	assert.Equal(t, "Annual Report", got.Title)
	assert.Contains(t, got.Description, "Revenue")
}

func TestResolve_Fallbacks(t *testing.T) {
	tests := []struct {
		name string
		url  string
		resp *fetcher.Response
		want models.MetadataResult
	}{
		{
			name: "html fetch failure",
			url:  "https://down.example.com/page",
			want: models.MetadataResult{Title: "https://down.example.com/page"},
		},
		{
			name: "arxiv fetch failure",
			url:  "https://arxiv.org/abs/2301.99999",
			want: models.MetadataResult{Title: "2301.99999"},
		},
		{
			name: "pdf fetch failure",
			url:  "https://example.com/papers/report.pdf",
			want: models.MetadataResult{Title: "report.pdf", Description: extractors.PDFDocumentLabel},
		},
		{
			name: "corrupt pdf",
			url:  "https://example.com/papers/broken.pdf",
			resp: respond("https://example.com/papers/broken.pdf", "application/pdf", []byte("not a pdf")),
			want: models.MetadataResult{Title: "broken.pdf", Description: extractors.PDFDocumentLabel},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("TMPDIR", t.TempDir())
			f := &fakeFetcher{responses: map[string]*fetcher.Response{}}
			if tt.resp != nil {
				f.responses[tt.url] = tt.resp
			}
			got, err := newTestResolver(f).Resolve(context.Background(), tt.url)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestAttempt_ReportsTypedFailure(t *testing.T) {
	f := &fakeFetcher{errs: map[string]error{
		"https://example.com/": failure.Status("https://example.com/", 503),
	}}
	_, _, err := newTestResolver(f).Attempt(context.Background(), "https://example.com/")
	require.Error(t, err)
	assert.True(t, failure.Is(err, failure.UpstreamStatus))
	assert.Equal(t, 503, failure.StatusOf(err))
}

func TestResolve_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newTestResolver(&fakeFetcher{}).Resolve(ctx, "https://example.com/")
	require.ErrorIs(t, err, context.Canceled)
}

func TestDisplayImage(t *testing.T) {
	img := "https://cdn.example.com/og.png"
	link := "https://example.com/a?b=c"

	assert.Equal(t, img, DisplayImage(models.MetadataResult{Image: &img}, link, "/favicon"))
	assert.Equal(t, "/favicon?url=https%3A%2F%2Fexample.com%2Fa%3Fb%3Dc",
		DisplayImage(models.MetadataResult{}, link, "/favicon"))
	assert.Equal(t, "https://www.google.com/s2/favicons?sz=64&domain_url=https%3A%2F%2Fexample.com%2Fa%3Fb%3Dc",
		DisplayImage(models.MetadataResult{}, link, "https://www.google.com/s2/favicons?sz=64&domain_url="))
	assert.Equal(t, "http://localhost:8080/favicon?x=1&url=https%3A%2F%2Fexample.com%2Fa%3Fb%3Dc",
		FaviconURL(link, "http://localhost:8080/favicon?x=1"))
	assert.Empty(t, FaviconURL(link, ""))
}

func TestTitleOrURL(t *testing.T) {
	assert.Equal(t, "T", TitleOrURL(models.MetadataResult{Title: " T "}, "u"))
	assert.Equal(t, "u", TitleOrURL(models.MetadataResult{Title: "  "}, "u"))
}
