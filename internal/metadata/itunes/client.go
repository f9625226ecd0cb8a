package itunes

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	jsoniter "github.com/json-iterator/go"

	"github.com/listenupapp/librarian/internal/errors"
	"github.com/listenupapp/librarian/internal/metrics"
	"github.com/listenupapp/librarian/internal/ratelimit"
)

// DefaultBaseURL is the public iTunes Search API.
const DefaultBaseURL = "https://itunes.apple.com"

// limiterKey names the client's bucket in the shared limiter.
const limiterKey = "itunes"

var jsonAPI = jsoniter.ConfigCompatibleWithStandardLibrary

// Options configures a Client.
type Options struct {
	BaseURL   string
	Country   string
	UserAgent string
	Timeout   time.Duration
}

// Client provides access to the iTunes Search API for album and book
// metadata and cover artwork.
type Client struct {
	httpClient *http.Client
	limiter    *ratelimit.Limiter
	baseURL    string
	country    string
	userAgent  string
	logger     *slog.Logger
}

// NewClient creates a new iTunes client.
// Rate limited to 20 requests per minute as recommended by Apple.
func NewClient(opts Options, limiter *ratelimit.Limiter, logger *slog.Logger) *Client {
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	// 20 requests per minute = 1 request per 3 seconds, burst of 5
	limiter.Configure(limiterKey, 3*time.Second, 5)
	return &Client{
		httpClient: &http.Client{Timeout: opts.Timeout},
		limiter:    limiter,
		baseURL:    opts.BaseURL,
		country:    opts.Country,
		userAgent:  opts.UserAgent,
		logger:     logger,
	}
}

// get waits for the rate limiter, performs a GET on path with params and
// decodes the response.
func (c *Client) get(ctx context.Context, path string, params url.Values) (*response, error) {
	if err := c.limiter.Wait(ctx, limiterKey); err != nil {
		return nil, err
	}
	if c.country != "" {
		params.Set("country", c.country)
	}
	endpoint := c.baseURL + path + "?" + params.Encode()
	c.logger.Debug("querying iTunes", "url", endpoint)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeInternal, "create request")
	}
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		metrics.ProviderRequests.WithLabelValues(limiterKey, "error").Inc()
		if ctx.Err() != nil {
			return nil, errors.Wrap(ctx.Err(), errors.CodeCanceled, "iTunes request")
		}
		return nil, errors.Network(err, "iTunes request")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		metrics.ProviderRequests.WithLabelValues(limiterKey, "error").Inc()
		return nil, errors.Network(fmt.Errorf("status %d", resp.StatusCode), "iTunes request")
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, errors.Network(err, "read iTunes response")
	}
	var out response
	if err := jsonAPI.Unmarshal(body, &out); err != nil {
		metrics.ProviderRequests.WithLabelValues(limiterKey, "error").Inc()
		return nil, errors.Decodef(err, "parse iTunes response")
	}
	metrics.ProviderRequests.WithLabelValues(limiterKey, "ok").Inc()
	return &out, nil
}
