package fetcher

import (
	"context"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// RateLimiterSettings configures a token bucket per host.
type RateLimiterSettings struct {
	Requests int
	Window   time.Duration
}

// HostLimiter keeps one limiter per host so a batch cannot hammer a single site.
type HostLimiter struct {
	settings RateLimiterSettings

	mu       sync.Mutex
	limiters map[string]*rate.Limiter
}

// NewHostLimiter returns nil when the settings disable limiting.
func NewHostLimiter(settings RateLimiterSettings) *HostLimiter {
	if settings.Requests <= 0 || settings.Window <= 0 {
		return nil
	}
	return &HostLimiter{
		settings: settings,
		limiters: make(map[string]*rate.Limiter),
	}
}

// Wait blocks until a request to host is allowed or ctx ends.
func (h *HostLimiter) Wait(ctx context.Context, host string) error {
	if h == nil || host == "" {
		return nil
	}
	host = strings.ToLower(host)

	h.mu.Lock()
	limiter, ok := h.limiters[host]
	if !ok {
		interval := h.settings.Window / time.Duration(h.settings.Requests)
		if interval <= 0 {
			interval = time.Millisecond
		}
		limiter = rate.NewLimiter(rate.Every(interval), h.settings.Requests)
		h.limiters[host] = limiter
	}
	h.mu.Unlock()

	return limiter.Wait(ctx)
}
