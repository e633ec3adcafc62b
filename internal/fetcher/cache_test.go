package fetcher

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sgtransit/stops-cli/internal/store"
)

func newTestCache(t *testing.T) *store.SQLiteStore {
	t.Helper()
	s, err := store.NewSQLite(filepath.Join(t.TempDir(), "responses.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() }) //nolint:errcheck
	require.NoError(t, s.Migrate(context.Background()))
	return s
}

func readAll(t *testing.T, rc io.ReadCloser) string {
	t.Helper()
	defer rc.Close() //nolint:errcheck
	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	return string(data)
}

func TestCachingFetcher_SecondRequestServedFromCache(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.Write([]byte(`{"SearchResults":[]}`))
	}))
	defer srv.Close()

	c := NewCachingFetcher(newTestFetcher(), newTestCache(t), 0)
	ctx := context.Background()

	body, err := c.Download(ctx, srv.URL+"/search?rset=1")
	require.NoError(t, err)
	assert.Equal(t, `{"SearchResults":[]}`, readAll(t, body))

	body, err = c.Download(ctx, srv.URL+"/search?rset=1")
	require.NoError(t, err)
	assert.Equal(t, `{"SearchResults":[]}`, readAll(t, body))

	assert.Equal(t, int32(1), hits.Load())
}

func TestCachingFetcher_DistinctURLs(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.Write([]byte(r.URL.Query().Get("rset")))
	}))
	defer srv.Close()

	c := NewCachingFetcher(newTestFetcher(), newTestCache(t), 0)
	ctx := context.Background()

	for _, page := range []string{"1", "2", "1"} {
		body, err := c.Download(ctx, srv.URL+"/search?rset="+page)
		require.NoError(t, err)
		assert.Equal(t, page, readAll(t, body))
	}
	assert.Equal(t, int32(2), hits.Load())
}

func TestCachingFetcher_StaleRevalidatedWithETag(t *testing.T) {
	var full, notModified atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("If-None-Match") == `"v1"` {
			notModified.Add(1)
			w.WriteHeader(http.StatusNotModified)
			return
		}
		full.Add(1)
		w.Header().Set("ETag", `"v1"`)
		w.Write([]byte("payload"))
	}))
	defer srv.Close()

	cache := newTestCache(t)
	c := NewCachingFetcher(newTestFetcher(), cache, time.Hour)
	ctx := context.Background()

	body, err := c.Download(ctx, srv.URL+"/res")
	require.NoError(t, err)
	assert.Equal(t, "payload", readAll(t, body))

	// Pretend two hours have passed.
	c.now = func() time.Time { return time.Now().Add(2 * time.Hour) }

	body, err = c.Download(ctx, srv.URL+"/res")
	require.NoError(t, err)
	assert.Equal(t, "payload", readAll(t, body))

	assert.Equal(t, int32(1), full.Load())
	assert.Equal(t, int32(1), notModified.Load())
}

func TestCachingFetcher_StaleWithoutETagRefetches(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := hits.Add(1)
		if n == 1 {
			w.Write([]byte("old"))
			return
		}
		w.Write([]byte("new"))
	}))
	defer srv.Close()

	cache := newTestCache(t)
	c := NewCachingFetcher(newTestFetcher(), cache, time.Minute)
	ctx := context.Background()

	body, err := c.Download(ctx, srv.URL+"/res")
	require.NoError(t, err)
	assert.Equal(t, "old", readAll(t, body))

	c.now = func() time.Time { return time.Now().Add(time.Hour) }

	body, err = c.Download(ctx, srv.URL+"/res")
	require.NoError(t, err)
	assert.Equal(t, "new", readAll(t, body))

	cached, err := cache.GetResponse(ctx, srv.URL+"/res")
	require.NoError(t, err)
	require.NotNil(t, cached)
	assert.Equal(t, "new", string(cached.Body))
}

func TestCachingFetcher_ErrorNotCached(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	cache := newTestCache(t)
	c := NewCachingFetcher(newTestFetcher(), cache, 0)
	ctx := context.Background()

	_, err := c.Download(ctx, srv.URL+"/res")
	require.Error(t, err)

	cached, err := cache.GetResponse(ctx, srv.URL+"/res")
	require.NoError(t, err)
	assert.Nil(t, cached)
}

func TestCachingFetcher_DownloadIfChangedBypassesCache(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.Write([]byte("x"))
	}))
	defer srv.Close()

	c := NewCachingFetcher(newTestFetcher(), newTestCache(t), 0)
	for range 2 {
		body, _, changed, err := c.DownloadIfChanged(context.Background(), srv.URL+"/res", "")
		require.NoError(t, err)
		assert.True(t, changed)
		body.Close()
	}
	assert.Equal(t, int32(2), hits.Load())
}

var errNoResults = eris.New("no results")

func requireResults(body []byte) error {
	if !bytes.Contains(body, []byte(`"SearchResults":[{`)) {
		return errNoResults
	}
	return nil
}

func TestCachingFetcher_InvalidBodyNotCached(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) == 1 {
			w.Write([]byte(`{"error":"transient upstream glitch"}`))
			return
		}
		w.Write([]byte(`{"SearchResults":[{"PageCount":"0"}]}`))
	}))
	defer srv.Close()

	cache := newTestCache(t)
	c := NewCachingFetcher(newTestFetcher(), cache, 0, WithValidator(requireResults))
	ctx := context.Background()
	url := srv.URL + "/search?rset=1"

	_, err := c.Download(ctx, url)
	require.Error(t, err)
	assert.True(t, eris.Is(err, errNoResults))

	cached, err := cache.GetResponse(ctx, url)
	require.NoError(t, err)
	assert.Nil(t, cached)

	// The next run reaches the server again and keeps the good page.
	for range 2 {
		body, err := c.Download(ctx, url)
		require.NoError(t, err)
		assert.Equal(t, `{"SearchResults":[{"PageCount":"0"}]}`, readAll(t, body))
	}
	assert.Equal(t, int32(2), hits.Load())
}

func TestCachingFetcher_InvalidCachedEntryRefetched(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.Write([]byte(`{"SearchResults":[{"PageCount":"0"}]}`))
	}))
	defer srv.Close()

	cache := newTestCache(t)
	ctx := context.Background()
	url := srv.URL + "/search?rset=1"
	require.NoError(t, cache.PutResponse(ctx, url, []byte(`{"fault":{}}`), ""))

	c := NewCachingFetcher(newTestFetcher(), cache, 0, WithValidator(requireResults))
	body, err := c.Download(ctx, url)
	require.NoError(t, err)
	assert.Equal(t, `{"SearchResults":[{"PageCount":"0"}]}`, readAll(t, body))
	assert.Equal(t, int32(1), hits.Load())

	cached, err := cache.GetResponse(ctx, url)
	require.NoError(t, err)
	require.NotNil(t, cached)
	assert.Equal(t, `{"SearchResults":[{"PageCount":"0"}]}`, string(cached.Body))
}
