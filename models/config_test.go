package models

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadConfig_EmptyPathIsDefault(t *testing.T) {
	cfg, err := LoadConfig("")
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
	assert.Equal(t, 15*time.Second, cfg.Fetch.Timeout.Duration)
	assert.Equal(t, 3, cfg.Refetch.MaxAttempts)
	assert.Equal(t, time.Second, cfg.Refetch.Backoff.Duration)
	assert.Equal(t, 6, cfg.Import.Concurrency)
	assert.True(t, cfg.Fetch.BlockPrivateNetworks)
}

func TestLoadConfig_OverlaysDefaults(t *testing.T) {
	path := writeConfig(t, `
fetch:
  timeout: 10s
  browser_tls: true
  rate_limit:
    requests: 2
    window: 1.5
  host_overrides:
    - suffix: forum.example.com
      user_agent: CustomAgent/1.0
      referer: https://www.google.com/
      headers:
        X-Requested-With: XMLHttpRequest
refetch:
  backoff: 2
import:
  concurrency: 4
`)
	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, 10*time.Second, cfg.Fetch.Timeout.Duration)
	assert.True(t, cfg.Fetch.BrowserTLS)
	assert.Equal(t, 2, cfg.Fetch.RateLimit.Requests)
	assert.Equal(t, 1500*time.Millisecond, cfg.Fetch.RateLimit.Window.Duration)
	require.Len(t, cfg.Fetch.HostOverrides, 1)
	assert.Equal(t, "forum.example.com", cfg.Fetch.HostOverrides[0].Suffix)
	assert.Equal(t, "XMLHttpRequest", cfg.Fetch.HostOverrides[0].Headers["X-Requested-With"])
	assert.Equal(t, 2*time.Second, cfg.Refetch.Backoff.Duration)
	assert.Equal(t, 4, cfg.Import.Concurrency)

	// untouched sections keep their defaults
	assert.Equal(t, DefaultCrossrefURL, cfg.Resolver.CrossrefURL)
	assert.Equal(t, DefaultUserAgent, cfg.Fetch.UserAgent)
	assert.Equal(t, 3, cfg.Refetch.MaxAttempts)
}

func TestLoadConfig_Errors(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	_, err = LoadConfig(writeConfig(t, "fetch: [not, a, map]"))
	assert.Error(t, err)

	_, err = LoadConfig(writeConfig(t, "fetch:\n  timeout: soon\n"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Fetch.Timeout = DurationFrom(0)
	cfg.Refetch.MaxAttempts = 0
	cfg.Import.Concurrency = 0
	cfg.Fetch.HostOverrides = []HostOverride{{UserAgent: "x"}}

	err := cfg.Validate()
	require.Error(t, err)
	for _, want := range []string{"fetch.timeout", "refetch.max_attempts", "import.concurrency", "host_overrides[0].suffix"} {
		assert.Contains(t, err.Error(), want)
	}
}

func TestMetadataResult_Image(t *testing.T) {
	assert.Nil(t, ImageOf("  "))
	img := ImageOf(" https://x/y.png ")
	require.NotNil(t, img)
	assert.Equal(t, "https://x/y.png", *img)

	m := MetadataResult{Title: "t", Image: img}
	assert.True(t, m.HasImage())
	assert.Equal(t, "https://x/y.png", m.ImageURL())
	assert.False(t, MetadataResult{}.HasImage())
	assert.Equal(t, "", MetadataResult{}.ImageURL())
}

func TestStrategyString(t *testing.T) {
	assert.Equal(t, "html", StrategyGenericHTML.String())
	assert.Equal(t, "doi", StrategyDOI.String())
	assert.Equal(t, "arxiv", StrategyArxiv.String())
	assert.Equal(t, "pdf", StrategyRawPDF.String())
}
