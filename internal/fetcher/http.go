// Package fetcher provides the shared outbound HTTP client used by every
// third-party provider client.
package fetcher

import (
	"context"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// AdaptiveLimiter wraps a rate.Limiter that speeds up on success and backs
// off when a provider answers 429. The rate stays within [initial/4, initial*2].
type AdaptiveLimiter struct {
	mu          sync.Mutex
	limiter     *rate.Limiter
	maxRate     rate.Limit
	minRate     rate.Limit
	currentRate rate.Limit
}

// NewAdaptiveLimiter creates a limiter starting at initialRate.
func NewAdaptiveLimiter(initialRate rate.Limit, burst int) *AdaptiveLimiter {
	return &AdaptiveLimiter{
		limiter:     rate.NewLimiter(initialRate, burst),
		maxRate:     initialRate * 2,
		minRate:     initialRate / 4,
		currentRate: initialRate,
	}
}

// Wait blocks until a request may proceed.
func (a *AdaptiveLimiter) Wait(ctx context.Context) error {
	return a.limiter.Wait(ctx)
}

// OnSuccess raises the rate by 10%.
func (a *AdaptiveLimiter) OnSuccess() {
	a.set(a.Limit() * 1.1)
}

// OnRateLimit halves the rate.
func (a *AdaptiveLimiter) OnRateLimit() {
	a.set(a.Limit() * 0.5)
}

func (a *AdaptiveLimiter) set(r rate.Limit) {
	a.mu.Lock()
	defer a.mu.Unlock()
	r = min(max(r, a.minRate), a.maxRate)
	if r == a.currentRate {
		return
	}
	a.currentRate = r
	a.limiter.SetLimit(r)
}

// Limit returns the current rate.
func (a *AdaptiveLimiter) Limit() rate.Limit {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.currentRate
}

// Options configures the outbound client.
type Options struct {
	UserAgent string
	Timeout   time.Duration
	// RequestsPerSec is the starting per-host rate.
	RequestsPerSec float64
	// Base is the wrapped transport. Defaults to a pooled http.Transport.
	Base http.RoundTripper
}

// Transport is an http.RoundTripper that rate limits per host and sets the
// User-Agent header.
type Transport struct {
	base      http.RoundTripper
	userAgent string
	rps       rate.Limit

	mu       sync.Mutex
	limiters map[string]*AdaptiveLimiter
}

// NewTransport builds a Transport from opts.
func NewTransport(opts Options) *Transport {
	if opts.RequestsPerSec <= 0 {
		opts.RequestsPerSec = 5
	}
	if opts.UserAgent == "" {
		opts.UserAgent = "fsbo/1.0"
	}
	base := opts.Base
	if base == nil {
		base = &http.Transport{
			Proxy:               http.ProxyFromEnvironment,
			MaxIdleConnsPerHost: 10,
			MaxConnsPerHost:     20,
			IdleConnTimeout:     90 * time.Second,
		}
	}
	return &Transport{
		base:      base,
		userAgent: opts.UserAgent,
		rps:       rate.Limit(opts.RequestsPerSec),
		limiters:  make(map[string]*AdaptiveLimiter),
	}
}

// Limiter returns the limiter for host, creating it on first use.
func (t *Transport) Limiter(host string) *AdaptiveLimiter {
	t.mu.Lock()
	defer t.mu.Unlock()
	l, ok := t.limiters[host]
	if !ok {
		burst := max(int(t.rps), 1)
		l = NewAdaptiveLimiter(t.rps, burst)
		t.limiters[host] = l
	}
	return l
}

// RoundTrip implements http.RoundTripper.
func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	lim := t.Limiter(req.URL.Host)
	if err := lim.Wait(req.Context()); err != nil {
		return nil, err
	}

	if req.Header.Get("User-Agent") == "" {
		req = req.Clone(req.Context())
		req.Header.Set("User-Agent", t.userAgent)
	}

	resp, err := t.base.RoundTrip(req)
	if err != nil {
		return nil, err
	}

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		lim.OnRateLimit()
		zap.L().Warn("fetcher: provider rate limited, reducing rate",
			zap.String("host", req.URL.Host),
			zap.Float64("new_rate", float64(lim.Limit())),
		)
	case resp.StatusCode < 400:
		lim.OnSuccess()
	}
	return resp, nil
}

// NewClient returns an *http.Client backed by a Transport.
func NewClient(opts Options) *http.Client {
	if opts.Timeout <= 0 {
		opts.Timeout = 20 * time.Second
	}
	return &http.Client{Timeout: opts.Timeout, Transport: NewTransport(opts)}
}
