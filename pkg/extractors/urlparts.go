package extractors

import (
	"context"
	"net/url"
	"strings"

	"github.com/dtnitsch/linkmeta/pkg/fetcher"
)

// Fetcher is the subset of fetcher.Fetcher the extractors need.
type Fetcher interface {
	Fetch(ctx context.Context, rawURL string, intent fetcher.Intent) (*fetcher.Response, error)
}

// LastPathSegment returns the final path segment of rawURL, e.g. "report.pdf"
// for https://example.com/papers/report.pdf. It returns "" when the path ends
// in a slash or is empty.
func LastPathSegment(rawURL string) string {
	p := rawURL
	if u, err := url.Parse(rawURL); err == nil && (u.Scheme != "" || u.Host != "") {
		p = u.Path
	} else {
		if i := strings.IndexAny(p, "?#"); i >= 0 {
			p = p[:i]
		}
	}
	if i := strings.LastIndex(p, "/"); i >= 0 {
		p = p[i+1:]
	}
	return strings.TrimSpace(p)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
