// Package urlutil cleans up pasted URLs and decides which ones are worth
// resolving.
package urlutil

import (
	"net/url"
	"regexp"
	"strings"
)

// [text](url) -> url
var markdownLinkPattern = regexp.MustCompile(`^\[.*?\]\((https?://.+)\)$`)

// closers maps a closing bracket to its opener.
var closers = map[byte]byte{')': '(', ']': '[', '}': '{'}

// SanitizeURL performs basic cleanup on URLs to handle common copy-paste issues.
// Removes whitespace, trailing punctuation and markdown artifacts. A trailing
// bracket is only removed when the URL has no opener for it, so
// "https://en.wikipedia.org/wiki/Go_(programming_language)" is kept whole.
func SanitizeURL(rawURL string) string {
	cleaned := strings.TrimSpace(rawURL)

	// Example: "[click here](https://example.com)" -> "https://example.com"
	if matches := markdownLinkPattern.FindStringSubmatch(cleaned); len(matches) > 1 {
		cleaned = matches[1]
	}

	// Example: "(https://example.com)" -> "https://example.com)"
	cleaned = strings.TrimLeft(cleaned, "([<\"'")

	// Example: "https://example.com)," -> "https://example.com"
	for cleaned != "" {
		last := cleaned[len(cleaned)-1]
		if opener, ok := closers[last]; ok {
			if strings.Count(cleaned, string(opener)) >= strings.Count(cleaned, string(last)) {
				break
			}
		} else if !strings.ContainsRune(",.;>\"'", rune(last)) {
			break
		}
		cleaned = cleaned[:len(cleaned)-1]
	}

	// Trim again in case there was whitespace before punctuation
	return strings.TrimSpace(cleaned)
}

// IsValidURL reports whether a sanitized URL is an absolute http(s) URL with
// a host.
func IsValidURL(cleaned string) bool {
	if cleaned == "" || strings.ContainsAny(cleaned, " \t\r\n") {
		return false
	}
	parsed, err := url.Parse(cleaned)
	if err != nil {
		return false
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return false
	}
	if parsed.Hostname() == "" {
		return false
	}
	// url.Parse lets these through in a host; no resolver will.
	return !strings.ContainsAny(parsed.Host, "<>\"'")
}

// SanitizeAndValidateURLs sanitizes all URLs and returns (sanitized URLs, invalid URLs).
// Invalid URLs are those that fail validation even after sanitization.
func SanitizeAndValidateURLs(urls []string) ([]string, []string) {
	sanitized := make([]string, 0, len(urls))
	var invalidURLs []string

	for _, rawURL := range urls {
		cleaned := SanitizeURL(rawURL)
		if !IsValidURL(cleaned) {
			invalidURLs = append(invalidURLs, rawURL)
			continue
		}
		sanitized = append(sanitized, cleaned)
	}

	return sanitized, invalidURLs
}
