package fetcher

import (
	"bytes"
	"compress/gzip"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/andybalholm/brotli"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dtnitsch/linkmeta/models"
	"github.com/dtnitsch/linkmeta/pkg/failure"
)

func newTestFetcher(opts Options) *Fetcher {
	if opts.Timeout == 0 {
		opts.Timeout = 5 * time.Second
	}
	return NewFetcher(opts)
}

func TestFetch_Success(t *testing.T) {
	expected := "<html><body>Hello</body></html>"
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Write([]byte(expected))
	}))
	defer srv.Close()

	resp, err := newTestFetcher(Options{}).Fetch(context.Background(), srv.URL+"/page", IntentPage)
	require.NoError(t, err)
	assert.Equal(t, expected, string(resp.Body))
	assert.Equal(t, "text/html; charset=utf-8", resp.ContentType)
	assert.Equal(t, srv.URL+"/page", resp.FinalURL)
}

func TestFetch_NonSuccessStatusIsUpstreamFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	_, err := newTestFetcher(Options{}).Fetch(context.Background(), srv.URL, IntentPage)
	require.Error(t, err)
	assert.True(t, failure.Is(err, failure.UpstreamStatus))
	assert.Equal(t, http.StatusForbidden, failure.StatusOf(err))
}

func TestFetch_TransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	addr := srv.URL
	srv.Close()

	_, err := newTestFetcher(Options{}).Fetch(context.Background(), addr, IntentPage)
	require.Error(t, err)
	assert.True(t, failure.Is(err, failure.Transport))
}

func TestFetch_InvalidURL(t *testing.T) {
	_, err := newTestFetcher(Options{}).Fetch(context.Background(), "not a url", IntentPage)
	require.Error(t, err)
	assert.True(t, failure.Is(err, failure.Transport))
}

func TestFetch_BrowserHeadersAndReferer(t *testing.T) {
	var headers http.Header
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		headers = r.Header.Clone()
		w.Write([]byte("ok"))
	}))
	defer srv.Close()

	_, err := newTestFetcher(Options{}).Fetch(context.Background(), srv.URL+"/a/b?c=d", IntentPage)
	require.NoError(t, err)

	assert.Equal(t, models.DefaultUserAgent, headers.Get("User-Agent"))
	assert.Equal(t, models.DefaultAccept, headers.Get("Accept"))
	assert.Equal(t, models.DefaultAcceptLanguage, headers.Get("Accept-Language"))
	assert.Equal(t, srv.URL, headers.Get("Referer"))
}

func TestFetch_APIIntentHasNoReferer(t *testing.T) {
	var headers http.Header
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		headers = r.Header.Clone()
		w.Write([]byte("{}"))
	}))
	defer srv.Close()

	_, err := newTestFetcher(Options{}).Fetch(context.Background(), srv.URL, IntentAPI)
	require.NoError(t, err)
	assert.Equal(t, "application/json", headers.Get("Accept"))
	assert.Empty(t, headers.Get("Referer"))
}

func TestFetch_HostOverride(t *testing.T) {
	var headers http.Header
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		headers = r.Header.Clone()
		w.Write([]byte("ok"))
	}))
	defer srv.Close()

	f := newTestFetcher(Options{Overrides: []HostOverride{{
		Suffix:    "127.0.0.1",
		UserAgent: "forum-agent/1.0",
		Referer:   "https://www.google.com/",
		Headers:   map[string]string{"X-Requested-With": "XMLHttpRequest"},
	}}})
	_, err := f.Fetch(context.Background(), srv.URL, IntentPage)
	require.NoError(t, err)

	assert.Equal(t, "forum-agent/1.0", headers.Get("User-Agent"))
	assert.Equal(t, "https://www.google.com/", headers.Get("Referer"))
	assert.Equal(t, "XMLHttpRequest", headers.Get("X-Requested-With"))
}

func TestFetch_DecodesContentEncoding(t *testing.T) {
	const payload = "<html><title>compressed</title></html>"

	var gz bytes.Buffer
	gw := gzip.NewWriter(&gz)
	gw.Write([]byte(payload))
	gw.Close()

	var br bytes.Buffer
	bw := brotli.NewWriter(&br)
	bw.Write([]byte(payload))
	bw.Close()

	tests := []struct {
		name     string
		encoding string
		body     []byte
	}{
		{"gzip", "gzip", gz.Bytes()},
		{"brotli", "br", br.Bytes()},
		{"identity", "", []byte(payload)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if tt.encoding != "" {
					w.Header().Set("Content-Encoding", tt.encoding)
				}
				w.Write(tt.body)
			}))
			defer srv.Close()

			resp, err := newTestFetcher(Options{}).Fetch(context.Background(), srv.URL, IntentPage)
			require.NoError(t, err)
			assert.Equal(t, payload, string(resp.Body))
		})
	}
}

func TestFetch_BodyLimit(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(strings.Repeat("x", 2048)))
	}))
	defer srv.Close()

	_, err := newTestFetcher(Options{MaxBodyBytes: 1024}).Fetch(context.Background(), srv.URL, IntentPage)
	require.Error(t, err)
	assert.True(t, failure.Is(err, failure.Transport))
	assert.Contains(t, err.Error(), "exceeds limit")
}

func TestFetch_BlockPrivateRefusesLoopback(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("secret"))
	}))
	defer srv.Close()

	_, err := newTestFetcher(Options{BlockPrivate: true}).Fetch(context.Background(), srv.URL, IntentPage)
	require.Error(t, err)
	assert.True(t, failure.Is(err, failure.Transport))
	assert.Contains(t, err.Error(), "blocked connection")
}

func TestFetch_CancelledContext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(50 * time.Millisecond)
		cancel()
	}()

	_, err := newTestFetcher(Options{}).Fetch(ctx, srv.URL, IntentPage)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestOverrideTable_Lookup(t *testing.T) {
	table := NewOverrideTable([]HostOverride{
		{Suffix: "example.com", UserAgent: "generic"},
		{Suffix: ".forum.example.com.", UserAgent: "forum"},
		{Suffix: "  "},
	})

	tests := []struct {
		host   string
		wantUA string
		wantOK bool
	}{
		{"example.com", "generic", true},
		{"www.example.com", "generic", true},
		{"forum.example.com", "forum", true},
		{"a.forum.example.com", "forum", true},
		{"notexample.com", "", false},
		{"EXAMPLE.COM", "generic", true},
	}
	for _, tt := range tests {
		t.Run(tt.host, func(t *testing.T) {
			o, ok := table.Lookup(tt.host)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.wantUA, o.UserAgent)
		})
	}
}

func TestHostLimiter_DisabledIsNil(t *testing.T) {
	assert.Nil(t, NewHostLimiter(RateLimiterSettings{}))
	var l *HostLimiter
	assert.NoError(t, l.Wait(context.Background(), "example.com"))
}

func TestHostLimiter_SpacesRequestsPerHost(t *testing.T) {
	l := NewHostLimiter(RateLimiterSettings{Requests: 1, Window: 50 * time.Millisecond})
	ctx := context.Background()

	start := time.Now()
	require.NoError(t, l.Wait(ctx, "a.test"))
	require.NoError(t, l.Wait(ctx, "b.test"))
	assert.Less(t, time.Since(start), 40*time.Millisecond, "different hosts must not share a bucket")

	require.NoError(t, l.Wait(ctx, "a.test"))
	assert.GreaterOrEqual(t, time.Since(start), 40*time.Millisecond)
}
