package urlutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSanitizeURL(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"  https://example.com  ", "https://example.com"},
		{"https://example.com,", "https://example.com"},
		{"(https://example.com)", "https://example.com"},
		{"<https://example.com>", "https://example.com"},
		{"[docs](https://example.com/docs)", "https://example.com/docs"},
		{`"https://example.com/a?b=c"`, "https://example.com/a?b=c"},
		{"https://en.wikipedia.org/wiki/Python_(programming_language)", "https://en.wikipedia.org/wiki/Python_(programming_language)"},
		{"(https://en.wikipedia.org/wiki/Python_(programming_language))", "https://en.wikipedia.org/wiki/Python_(programming_language)"},
		{"https://en.wikipedia.org/wiki/Python_(programming_language).", "https://en.wikipedia.org/wiki/Python_(programming_language)"},
		{"[wiki](https://en.wikipedia.org/wiki/Python_(programming_language))", "https://en.wikipedia.org/wiki/Python_(programming_language)"},
		{"https://example.com/a[1]", "https://example.com/a[1]"},
		{"https://example.com/a]", "https://example.com/a"},
		{"https://example.com/a).", "https://example.com/a"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, SanitizeURL(tt.in), tt.in)
	}
}

func TestIsValidURL(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{"https://example.com", true},
		{"https://user@example.com/x", true},
		{"https://my_host.example.com/", true},
		{"http://[::1]:8080/", true},
		{"https://en.wikipedia.org/wiki/Python_(programming_language)", true},
		{"ftp://example.com/file", false},
		{"https:///path-only", false},
		{"example.com", false},
		{"https://exa mple.com", false},
		{"https://example.com{}", false},
		{"", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, IsValidURL(tt.in), tt.in)
	}
}

func TestSanitizeAndValidateURLs(t *testing.T) {
	valid, invalid := SanitizeAndValidateURLs([]string{
		"https://example.com",
		"http://127.0.0.1:8080/page",
		"https://example.com?q=1",
		"https://arxiv.org/pdf/2301.00001.pdf.",
		"ftp://example.com/file",
		"not a url",
		"https://example.com{}",
		"",
	})

	assert.Equal(t, []string{
		"https://example.com",
		"http://127.0.0.1:8080/page",
		"https://example.com?q=1",
		"https://arxiv.org/pdf/2301.00001.pdf",
	}, valid)
	assert.Equal(t, []string{"ftp://example.com/file", "not a url", "https://example.com{}", ""}, invalid)
}
