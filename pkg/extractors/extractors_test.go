package extractors

import (
	"context"
	"sync"

	"github.com/dtnitsch/linkmeta/pkg/failure"
	"github.com/dtnitsch/linkmeta/pkg/fetcher"
)

// stubFetcher serves canned responses by URL and records every request.
type stubFetcher struct {
	mu        sync.Mutex
	responses map[string]*fetcher.Response
	errs      map[string]error
	requested []string
}

func (s *stubFetcher) Fetch(ctx context.Context, rawURL string, intent fetcher.Intent) (*fetcher.Response, error) {
	s.mu.Lock()
	s.requested = append(s.requested, rawURL)
	s.mu.Unlock()

	if err, ok := s.errs[rawURL]; ok {
		return nil, err
	}
	if resp, ok := s.responses[rawURL]; ok {
		return resp, nil
	}
	return nil, failure.Status(rawURL, 404)
}

func htmlResponse(rawURL, body string) *fetcher.Response {
	return &fetcher.Response{
		URL:         rawURL,
		FinalURL:    rawURL,
		StatusCode:  200,
		ContentType: "text/html; charset=utf-8",
		Body:        []byte(body),
	}
}
