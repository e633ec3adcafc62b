package fetcher

import (
	"context"
	"io"
	"math"
	"math/rand/v2"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// HTTPOptions configures the HTTP fetcher.
type HTTPOptions struct {
	UserAgent    string
	Timeout      time.Duration
	MaxRetries   int
	BackoffBase  time.Duration
	Headers      map[string]string
	RateLimiters map[string]*rate.Limiter
	// HostRates sets the initial requests per second of the adaptive
	// limiter for a host, overriding DefaultAdaptiveLimiters.
	HostRates map[string]float64
}

// AdaptiveLimiter wraps a rate.Limiter with adaptive rate adjustment.
// On success it increases the rate by 20% (up to 2x initial).
// On 429 it halves the rate (down to initial/4 minimum).
type AdaptiveLimiter struct {
	mu          sync.Mutex
	limiter     *rate.Limiter
	initialRate rate.Limit
	maxRate     rate.Limit
	minRate     rate.Limit
	currentRate rate.Limit
}

// NewAdaptiveLimiter creates an adaptive rate limiter that auto-tunes.
func NewAdaptiveLimiter(initialRate rate.Limit, burst int) *AdaptiveLimiter {
	return &AdaptiveLimiter{
		limiter:     rate.NewLimiter(initialRate, burst),
		initialRate: initialRate,
		maxRate:     initialRate * 2,
		minRate:     initialRate / 4,
		currentRate: initialRate,
	}
}

// Wait blocks until the limiter allows an event.
func (a *AdaptiveLimiter) Wait(ctx context.Context) error {
	return a.limiter.Wait(ctx)
}

// OnSuccess increases the rate by 20%, up to 2x initial.
func (a *AdaptiveLimiter) OnSuccess() {
	a.mu.Lock()
	defer a.mu.Unlock()
	newRate := a.currentRate * 1.2
	if newRate > a.maxRate {
		newRate = a.maxRate
	}
	a.currentRate = newRate
	a.limiter.SetLimit(newRate)
}

// OnRateLimit halves the rate on 429 responses.
func (a *AdaptiveLimiter) OnRateLimit() {
	a.mu.Lock()
	defer a.mu.Unlock()
	newRate := a.currentRate * 0.5
	if newRate < a.minRate {
		newRate = a.minRate
	}
	a.currentRate = newRate
	a.limiter.SetLimit(newRate)
	zap.L().Warn("adaptive rate limit: reducing rate after 429",
		zap.Float64("new_rate", float64(newRate)),
	)
}

// Limit returns the current rate limit.
func (a *AdaptiveLimiter) Limit() rate.Limit {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.currentRate
}

// HTTPFetcher implements Fetcher using net/http with retry and rate limiting.
type HTTPFetcher struct {
	client           *http.Client
	opts             HTTPOptions
	limiters         map[string]*rate.Limiter
	adaptiveLimiters map[string]*AdaptiveLimiter
}

const (
	oneMapHost   = "www.onemap.gov.sg"
	dataMallHost = "datamall2.mytransport.sg"
)

// NewHTTPFetcher creates a new HTTPFetcher with the given options.
func NewHTTPFetcher(opts HTTPOptions) *HTTPFetcher {
	if opts.Timeout == 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.MaxRetries == 0 {
		opts.MaxRetries = 3
	}
	if opts.BackoffBase == 0 {
		opts.BackoffBase = time.Second
	}
	if opts.UserAgent == "" {
		opts.UserAgent = "stops-cli/1.0"
	}
	limiters := make(map[string]*rate.Limiter)
	for k, v := range opts.RateLimiters {
		limiters[k] = v
	}
	transport := &http.Transport{
		MaxIdleConnsPerHost: 10,
		MaxConnsPerHost:     20,
		IdleConnTimeout:     90 * time.Second,
	}
	adaptive := DefaultAdaptiveLimiters()
	for host, rps := range opts.HostRates {
		if rps > 0 {
			adaptive[host] = NewAdaptiveLimiter(rate.Limit(rps), max(int(rps), 1))
		}
	}
	return &HTTPFetcher{
		client: &http.Client{
			Timeout:   opts.Timeout,
			Transport: transport,
		},
		opts:             opts,
		limiters:         limiters,
		adaptiveLimiters: adaptive,
	}
}

// DefaultAdaptiveLimiters returns adaptive rate limiters for known hosts.
// OneMap allows roughly 250 calls a minute per token.
func DefaultAdaptiveLimiters() map[string]*AdaptiveLimiter {
	return map[string]*AdaptiveLimiter{
		oneMapHost:   NewAdaptiveLimiter(4, 4),
		dataMallHost: NewAdaptiveLimiter(5, 5),
	}
}

// adaptiveLimiterFor returns the adaptive limiter for the given host, if any.
// A fixed limiter configured for the host takes precedence.
func (f *HTTPFetcher) adaptiveLimiterFor(rawURL string) *AdaptiveLimiter {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil
	}
	if _, ok := f.limiters[u.Host]; ok {
		return nil
	}
	return f.adaptiveLimiters[u.Host]
}

func (f *HTTPFetcher) limiterFor(rawURL string) *rate.Limiter {
	u, err := url.Parse(rawURL)
	if err != nil {
		return rate.NewLimiter(20, 20)
	}
	if lim, ok := f.limiters[u.Host]; ok {
		return lim
	}
	return rate.NewLimiter(20, 20)
}

func (f *HTTPFetcher) newRequest(ctx context.Context, rawURL string) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, eris.Wrap(err, "create request")
	}
	req.Header.Set("User-Agent", f.opts.UserAgent)
	for k, v := range f.opts.Headers {
		req.Header.Set(k, v)
	}
	return req, nil
}

func (f *HTTPFetcher) doWithRetry(ctx context.Context, req *http.Request) (*http.Response, error) {
	adaptive := f.adaptiveLimiterFor(req.URL.String())

	var lastErr error
	for attempt := range f.opts.MaxRetries {
		// Use adaptive limiter if available, otherwise fall back to fixed.
		if adaptive != nil {
			if err := adaptive.Wait(ctx); err != nil {
				return nil, eris.Wrap(err, "rate limiter wait")
			}
		} else {
			lim := f.limiterFor(req.URL.String())
			if err := lim.Wait(ctx); err != nil {
				return nil, eris.Wrap(err, "rate limiter wait")
			}
		}

		cloned := req.Clone(ctx)
		resp, err := f.client.Do(cloned)
		if err != nil {
			lastErr = err
			zap.L().Warn("http request failed, retrying",
				zap.String("url", req.URL.String()),
				zap.Int("attempt", attempt+1),
				zap.Error(err),
			)
			f.backoff(ctx, attempt)
			continue
		}

		if resp.StatusCode == http.StatusTooManyRequests {
			_ = resp.Body.Close()
			lastErr = eris.Errorf("http 429 from %s", req.URL.String())
			if adaptive != nil {
				adaptive.OnRateLimit()
			}
			zap.L().Warn("rate limited (429), backing off",
				zap.String("url", req.URL.String()),
				zap.Int("attempt", attempt+1),
			)
			f.backoff(ctx, attempt)
			continue
		}

		if resp.StatusCode >= 500 {
			_ = resp.Body.Close()
			lastErr = eris.Errorf("http %d from %s", resp.StatusCode, req.URL.String())
			zap.L().Warn("server error, retrying",
				zap.String("url", req.URL.String()),
				zap.Int("status", resp.StatusCode),
				zap.Int("attempt", attempt+1),
			)
			f.backoff(ctx, attempt)
			continue
		}

		if adaptive != nil {
			adaptive.OnSuccess()
		}

		return resp, nil
	}

	return nil, eris.Wrap(lastErr, "all retries exhausted")
}

func (f *HTTPFetcher) backoff(ctx context.Context, attempt int) {
	base := f.opts.BackoffBase
	maxBackoff := 30 * base
	d := time.Duration(float64(base) * math.Pow(2, float64(attempt)))
	if d > maxBackoff {
		d = maxBackoff
	}
	if half := int64(d) / 2; half > 0 {
		d += time.Duration(rand.Int64N(half))
	}

	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}

// Download fetches the URL and returns the response body.
func (f *HTTPFetcher) Download(ctx context.Context, rawURL string) (io.ReadCloser, error) {
	req, err := f.newRequest(ctx, rawURL)
	if err != nil {
		return nil, err
	}

	resp, err := f.doWithRetry(ctx, req)
	if err != nil {
		return nil, eris.Wrap(err, "download")
	}

	if resp.StatusCode != http.StatusOK {
		_ = resp.Body.Close()
		return nil, eris.Errorf("download: unexpected status %d from %s", resp.StatusCode, rawURL)
	}

	return resp.Body, nil
}

// DownloadIfChanged fetches the URL only if the ETag has changed.
func (f *HTTPFetcher) DownloadIfChanged(ctx context.Context, rawURL string, etag string) (io.ReadCloser, string, bool, error) {
	req, err := f.newRequest(ctx, rawURL)
	if err != nil {
		return nil, "", false, err
	}
	if etag != "" {
		req.Header.Set("If-None-Match", etag)
	}

	resp, err := f.doWithRetry(ctx, req)
	if err != nil {
		return nil, "", false, eris.Wrap(err, "download if changed")
	}

	if resp.StatusCode == http.StatusNotModified {
		_ = resp.Body.Close()
		return nil, etag, false, nil
	}

	if resp.StatusCode != http.StatusOK {
		_ = resp.Body.Close()
		return nil, "", false, eris.Errorf("download if changed: unexpected status %d from %s", resp.StatusCode, rawURL)
	}

	return resp.Body, resp.Header.Get("ETag"), true, nil
}
