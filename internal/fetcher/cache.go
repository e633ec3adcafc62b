package fetcher

import (
	"bytes"
	"context"
	"io"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sgtransit/stops-cli/internal/model"
)

// ResponseCache is the subset of the store used to persist responses.
type ResponseCache interface {
	GetResponse(ctx context.Context, url string) (*model.CachedResponse, error)
	PutResponse(ctx context.Context, url string, body []byte, etag string) error
	TouchResponse(ctx context.Context, url string) error
}

// CachingFetcher serves repeat requests from a ResponseCache. Entries younger
// than the TTL are returned without touching the network; a zero TTL never
// expires. Stale entries carrying an ETag are revalidated.
type CachingFetcher struct {
	next     Fetcher
	cache    ResponseCache
	ttl      time.Duration
	validate func([]byte) error
	now      func() time.Time
}

// CacheOption configures a CachingFetcher.
type CacheOption func(*CachingFetcher)

// WithValidator sets a check every body must pass before it is stored. A
// cached body that fails it is treated as a miss and fetched again.
func WithValidator(fn func([]byte) error) CacheOption {
	return func(c *CachingFetcher) {
		c.validate = fn
	}
}

// NewCachingFetcher wraps next with the given cache.
func NewCachingFetcher(next Fetcher, cache ResponseCache, ttl time.Duration, opts ...CacheOption) *CachingFetcher {
	c := &CachingFetcher{next: next, cache: cache, ttl: ttl, now: time.Now}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *CachingFetcher) valid(url string, body []byte) error {
	if c.validate == nil {
		return nil
	}
	if err := c.validate(body); err != nil {
		return eris.Wrapf(err, "cache: invalid body for %s", url)
	}
	return nil
}

func (c *CachingFetcher) fresh(r *model.CachedResponse) bool {
	if c.ttl <= 0 {
		return true
	}
	return c.now().Sub(r.FetchedAt) < c.ttl
}

// Download returns the cached body for url when possible, otherwise fetches
// and stores it. Bodies rejected by the validator are returned as errors and
// never stored.
func (c *CachingFetcher) Download(ctx context.Context, url string) (io.ReadCloser, error) {
	cached, err := c.cache.GetResponse(ctx, url)
	if err != nil {
		return nil, eris.Wrap(err, "cache: lookup")
	}
	if cached != nil {
		if err := c.valid(url, cached.Body); err != nil {
			zap.L().Warn("cache: discarding invalid entry", zap.String("url", url), zap.Error(err))
			cached = nil
		}
	}
	if cached != nil && c.fresh(cached) {
		zap.L().Debug("cache hit", zap.String("url", url))
		return io.NopCloser(bytes.NewReader(cached.Body)), nil
	}

	etag := ""
	if cached != nil {
		etag = cached.ETag
	}
	body, newETag, changed, err := c.next.DownloadIfChanged(ctx, url, etag)
	if err != nil {
		return nil, err
	}

	if !changed {
		if cached == nil {
			return nil, eris.Errorf("cache: not modified without cached entry for %s", url)
		}
		if err := c.cache.TouchResponse(ctx, url); err != nil {
			return nil, eris.Wrap(err, "cache: touch")
		}
		zap.L().Debug("cache revalidated", zap.String("url", url))
		return io.NopCloser(bytes.NewReader(cached.Body)), nil
	}
	defer body.Close() //nolint:errcheck

	data, err := io.ReadAll(body)
	if err != nil {
		return nil, eris.Wrapf(err, "cache: read body %s", url)
	}
	if err := c.valid(url, data); err != nil {
		return nil, err
	}
	if err := c.cache.PutResponse(ctx, url, data, newETag); err != nil {
		return nil, eris.Wrap(err, "cache: store")
	}
	zap.L().Debug("cache miss", zap.String("url", url), zap.Int("bytes", len(data)))
	return io.NopCloser(bytes.NewReader(data)), nil
}

// DownloadIfChanged bypasses the cache.
func (c *CachingFetcher) DownloadIfChanged(ctx context.Context, url string, etag string) (io.ReadCloser, string, bool, error) {
	return c.next.DownloadIfChanged(ctx, url, etag)
}
