package fetcher

import (
	"net/http"
	"sort"
	"strings"
)

// HeaderProfile is the set of identity headers sent with a request.
type HeaderProfile struct {
	UserAgent      string
	Accept         string
	AcceptLanguage string
	Referer        string
	Extra          map[string]string
}

// HostOverride replaces parts of the header profile for matching hosts.
type HostOverride struct {
	Suffix    string
	UserAgent string
	Referer   string
	Headers   map[string]string
}

// With returns a copy of p with the non-empty fields of o applied.
func (p HeaderProfile) With(o HostOverride) HeaderProfile {
	if o.UserAgent != "" {
		p.UserAgent = o.UserAgent
	}
	if o.Referer != "" {
		p.Referer = o.Referer
	}
	if len(o.Headers) > 0 {
		extra := make(map[string]string, len(p.Extra)+len(o.Headers))
		for k, v := range p.Extra {
			extra[k] = v
		}
		for k, v := range o.Headers {
			extra[k] = v
		}
		p.Extra = extra
	}
	return p
}

// Apply writes the profile onto h.
func (p HeaderProfile) Apply(h http.Header) {
	h.Set("User-Agent", p.UserAgent)
	h.Set("Accept", p.Accept)
	h.Set("Accept-Language", p.AcceptLanguage)
	h.Set("Accept-Encoding", "gzip, deflate, br")
	if p.Referer != "" {
		h.Set("Referer", p.Referer)
	}
	for k, v := range p.Extra {
		h.Set(k, v)
	}
}

// OverrideTable maps host suffixes to header overrides. The longest matching
// suffix wins.
type OverrideTable struct {
	entries []HostOverride
}

// NewOverrideTable normalizes suffixes and orders entries longest first.
func NewOverrideTable(overrides []HostOverride) *OverrideTable {
	entries := make([]HostOverride, 0, len(overrides))
	for _, o := range overrides {
		o.Suffix = strings.Trim(strings.ToLower(strings.TrimSpace(o.Suffix)), ".")
		if o.Suffix == "" {
			continue
		}
		entries = append(entries, o)
	}
	sort.SliceStable(entries, func(i, j int) bool {
		return len(entries[i].Suffix) > len(entries[j].Suffix)
	})
	return &OverrideTable{entries: entries}
}

// Lookup finds the override for host, matching whole labels only.
func (t *OverrideTable) Lookup(host string) (HostOverride, bool) {
	if t == nil {
		return HostOverride{}, false
	}
	host = strings.TrimSuffix(strings.ToLower(host), ".")
	for _, o := range t.entries {
		if host == o.Suffix || strings.HasSuffix(host, "."+o.Suffix) {
			return o, true
		}
	}
	return HostOverride{}, false
}
