// Package datamall reads the LTA DataMall bus-stop listing.
package datamall

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/sgtransit/stops-cli/internal/fetcher"
)

// DefaultBaseURL is the DataMall BusStops endpoint.
const DefaultBaseURL = "https://datamall2.mytransport.sg/ltaodataservice/BusStops"

// DefaultPageSize is the number of records DataMall returns per $skip step.
const DefaultPageSize = 500

var (
	// ErrNoAccountKey is returned when BusStops is called without credentials.
	ErrNoAccountKey = eris.New("datamall: account key not configured")
	// ErrMalformedPage is returned when a response has no value array, as
	// with quota and fault bodies.
	ErrMalformedPage = eris.New("datamall: malformed listing page")
)

// BusStop is one record of the BusStops dataset.
type BusStop struct {
	BusStopCode string  `json:"BusStopCode"`
	RoadName    string  `json:"RoadName"`
	Description string  `json:"Description"`
	Latitude    float64 `json:"Latitude"`
	Longitude   float64 `json:"Longitude"`
}

type busStopsResponse struct {
	Value *[]BusStop `json:"value"`
}

func decodePage(r io.Reader) ([]BusStop, error) {
	resp, err := fetcher.DecodeJSONObject[busStopsResponse](r)
	if err != nil {
		return nil, eris.Wrap(ErrMalformedPage, err.Error())
	}
	if resp.Value == nil {
		return nil, eris.Wrap(ErrMalformedPage, "missing value")
	}
	return *resp.Value, nil
}

// ValidatePage reports whether body is a well-formed listing page. It is
// meant for response caches, so that fault bodies are never stored.
func ValidatePage(body []byte) error {
	_, err := decodePage(bytes.NewReader(body))
	return err
}

// Downloader fetches a URL. internal/fetcher.Fetcher satisfies it.
type Downloader interface {
	Download(ctx context.Context, url string) (io.ReadCloser, error)
}

// Client reads DataMall datasets.
type Client interface {
	// BusStops returns the full listing, following $skip pagination until an
	// empty page.
	BusStops(ctx context.Context) ([]BusStop, error)
}

// Headers returns the authentication headers DataMall expects.
func Headers(accountKey, uniqueUserID string) map[string]string {
	h := map[string]string{
		"AccountKey": accountKey,
		"accept":     "application/json",
	}
	if uniqueUserID != "" {
		h["UniqueUserID"] = uniqueUserID
	}
	return h
}

// Option configures the client.
type Option func(*client)

// WithBaseURL overrides the BusStops endpoint.
func WithBaseURL(u string) Option {
	return func(c *client) {
		c.baseURL = u
	}
}

// WithUniqueUserID sets the optional UniqueUserID header.
func WithUniqueUserID(id string) Option {
	return func(c *client) {
		c.uniqueUserID = id
	}
}

// WithPageSize sets the $skip step.
func WithPageSize(n int) Option {
	return func(c *client) {
		c.pageSize = n
	}
}

// WithDownloader routes requests through d. The downloader must send the
// credential headers itself, see Headers, and does its own rate limiting.
func WithDownloader(d Downloader) Option {
	return func(c *client) {
		c.downloader = d
	}
}

// WithHTTPClient sets the HTTP client used when no Downloader is given.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *client) {
		c.httpClient = hc
	}
}

// WithRateLimit sets the requests-per-second limit of the built-in HTTP
// downloader.
func WithRateLimit(rps float64) Option {
	return func(c *client) {
		c.rateLimit = rps
	}
}

type client struct {
	baseURL      string
	accountKey   string
	uniqueUserID string
	pageSize     int
	httpClient   *http.Client
	rateLimit    float64
	downloader   Downloader
}

// NewClient creates a DataMall Client for the given account key.
func NewClient(accountKey string, opts ...Option) Client {
	c := &client{
		baseURL:    DefaultBaseURL,
		accountKey: accountKey,
		pageSize:   DefaultPageSize,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		rateLimit:  5,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.downloader == nil {
		c.downloader = &httpDownloader{
			client:  c.httpClient,
			headers: Headers(c.accountKey, c.uniqueUserID),
			limiter: rate.NewLimiter(rate.Limit(c.rateLimit), max(int(c.rateLimit), 1)),
		}
	}
	return c
}

// pageURL keeps the OData "$skip" key unescaped.
func (c *client) pageURL(skip int) string {
	sep := "?"
	if strings.Contains(c.baseURL, "?") {
		sep = "&"
	}
	return c.baseURL + sep + "$skip=" + strconv.Itoa(skip)
}

func (c *client) BusStops(ctx context.Context) ([]BusStop, error) {
	if c.accountKey == "" {
		return nil, ErrNoAccountKey
	}
	if c.pageSize <= 0 {
		return nil, eris.Errorf("datamall: invalid page size %d", c.pageSize)
	}

	var out []BusStop
	for skip := 0; ; skip += c.pageSize {
		page, err := c.fetchPage(ctx, skip)
		if err != nil {
			return nil, err
		}
		if len(page) == 0 {
			zap.L().Debug("datamall: listing done", zap.Int("records", len(out)))
			return out, nil
		}
		zap.L().Debug("datamall: page fetched", zap.Int("skip", skip), zap.Int("records", len(page)))
		out = append(out, page...)
	}
}

func (c *client) fetchPage(ctx context.Context, skip int) ([]BusStop, error) {
	if err := ctx.Err(); err != nil {
		return nil, eris.Wrapf(err, "datamall: bus stops skip %d", skip)
	}

	body, err := c.downloader.Download(ctx, c.pageURL(skip))
	if err != nil {
		return nil, eris.Wrapf(err, "datamall: bus stops skip %d", skip)
	}
	defer body.Close() //nolint:errcheck

	page, err := decodePage(body)
	if err != nil {
		return nil, eris.Wrapf(err, "datamall: parse bus stops skip %d", skip)
	}
	return page, nil
}

type httpDownloader struct {
	client  *http.Client
	headers map[string]string
	limiter *rate.Limiter
}

func (d *httpDownloader) Download(ctx context.Context, rawURL string) (io.ReadCloser, error) {
	if err := d.limiter.Wait(ctx); err != nil {
		return nil, eris.Wrap(err, "datamall: rate limit")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, eris.Wrap(err, "datamall: build request")
	}
	for k, v := range d.headers {
		req.Header.Set(k, v)
	}
	resp, err := d.client.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "datamall: request")
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close() //nolint:errcheck
		return nil, eris.Errorf("datamall: returned status %d", resp.StatusCode)
	}
	return resp.Body, nil
}
