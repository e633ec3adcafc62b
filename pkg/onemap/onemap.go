// Package onemap queries the OneMap search service for named points such as
// MRT stations and bus stops.
package onemap

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/sgtransit/stops-cli/internal/model"
)

// DefaultBaseURL is the OneMap basic search endpoint.
const DefaultBaseURL = "https://www.onemap.gov.sg/API/services.svc/basicSearch"

// DefaultOutputFields are the extra fields requested with every search.
const DefaultOutputFields = "POSTALCODE,CATEGORY"

// DefaultMaxPages bounds Paginate for a single pattern.
const DefaultMaxPages = 1000

var (
	// ErrMalformedPage is returned when a response is not a valid search page.
	ErrMalformedPage = eris.New("onemap: malformed search page")
	// ErrTooManyPages is returned when pagination exceeds the page guard.
	ErrTooManyPages = eris.New("onemap: too many pages")
)

// Downloader fetches a URL. internal/fetcher.Fetcher satisfies it.
type Downloader interface {
	Download(ctx context.Context, url string) (io.ReadCloser, error)
}

// Client searches OneMap.
type Client interface {
	// Search fetches a single result page for a SEARCHVAL LIKE pattern.
	Search(ctx context.Context, pattern string, page int) (*Page, error)

	// Paginate fetches every page for pattern and returns the results
	// with each page's echoed query element removed.
	Paginate(ctx context.Context, pattern string) ([]model.SearchResult, error)
}

// Page is one decoded search response. Results[0] is the echoed query.
type Page struct {
	Number  int
	Results []model.SearchResult
}

// Sentinel reports whether the page marks the end of pagination.
func (p *Page) Sentinel() bool {
	return len(p.Results) == 1
}

// Option configures the client.
type Option func(*client)

// WithBaseURL overrides the search endpoint.
func WithBaseURL(u string) Option {
	return func(c *client) {
		c.baseURL = u
	}
}

// WithToken sets the access token sent with every request.
func WithToken(token string) Option {
	return func(c *client) {
		c.token = token
	}
}

// WithOutputFields sets the otptFlds parameter.
func WithOutputFields(fields string) Option {
	return func(c *client) {
		c.outputFields = fields
	}
}

// WithMaxPages sets the per-pattern page guard.
func WithMaxPages(n int) Option {
	return func(c *client) {
		c.maxPages = n
	}
}

// WithDownloader routes requests through d, typically a caching fetcher.
// Rate limiting is then left to d.
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
	token        string
	outputFields string
	maxPages     int
	httpClient   *http.Client
	rateLimit    float64
	downloader   Downloader
}

// NewClient creates a OneMap Client with the given options.
func NewClient(opts ...Option) Client {
	c := &client{
		baseURL:      DefaultBaseURL,
		outputFields: DefaultOutputFields,
		maxPages:     DefaultMaxPages,
		httpClient:   &http.Client{Timeout: 30 * time.Second},
		rateLimit:    4,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.downloader == nil {
		c.downloader = &httpDownloader{client: c.httpClient, limiter: newLimiter(c.rateLimit)}
	}
	return c
}

func newLimiter(rps float64) *rate.Limiter {
	burst := max(int(rps), 1)
	return rate.NewLimiter(rate.Limit(rps), burst)
}

// SearchURL builds the request URL for a pattern and page.
func (c *client) SearchURL(pattern string, page int) string {
	params := url.Values{}
	if c.token != "" {
		params.Set("token", c.token)
	}
	params.Set("wc", "SEARCHVAL LIKE '"+pattern+"'")
	params.Set("rset", strconv.Itoa(page))
	if c.outputFields != "" {
		params.Set("otptFlds", c.outputFields)
	}
	return c.baseURL + "?" + params.Encode()
}

func (c *client) Search(ctx context.Context, pattern string, page int) (*Page, error) {
	if err := ctx.Err(); err != nil {
		return nil, eris.Wrapf(err, "onemap: search %q page %d", pattern, page)
	}

	reqURL := c.SearchURL(pattern, page)
	body, err := c.downloader.Download(ctx, reqURL)
	if err != nil {
		return nil, eris.Wrapf(err, "onemap: search %q page %d", pattern, page)
	}
	defer body.Close() //nolint:errcheck

	results, err := decodePage(body)
	if err != nil {
		return nil, eris.Wrapf(err, "onemap: search %q page %d", pattern, page)
	}
	return &Page{Number: page, Results: results}, nil
}

func (c *client) Paginate(ctx context.Context, pattern string) ([]model.SearchResult, error) {
	var out []model.SearchResult
	for page := 1; ; page++ {
		if c.maxPages > 0 && page > c.maxPages {
			return nil, eris.Wrapf(ErrTooManyPages, "pattern %q exceeded %d pages", pattern, c.maxPages)
		}

		p, err := c.Search(ctx, pattern, page)
		if err != nil {
			return nil, err
		}
		if p.Sentinel() {
			zap.L().Debug("onemap: pagination done",
				zap.String("pattern", pattern),
				zap.Int("pages", page),
				zap.Int("results", len(out)),
			)
			return out, nil
		}

		zap.L().Debug("onemap: page fetched",
			zap.String("pattern", pattern),
			zap.Int("page", page),
			zap.Int("results", len(p.Results)-1),
		)
		out = append(out, p.Results[1:]...)
	}
}

type httpDownloader struct {
	client  *http.Client
	limiter *rate.Limiter
}

func (d *httpDownloader) Download(ctx context.Context, rawURL string) (io.ReadCloser, error) {
	if err := d.limiter.Wait(ctx); err != nil {
		return nil, eris.Wrap(err, "onemap: rate limit")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, eris.Wrap(err, "onemap: build request")
	}
	resp, err := d.client.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "onemap: request")
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close() //nolint:errcheck
		return nil, eris.Errorf("onemap: returned status %d", resp.StatusCode)
	}
	return resp.Body, nil
}
