package remote

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"

	"github.com/castrank/castrank/pkg/logging"
	"github.com/castrank/castrank/pkg/model"
)

// maxBodyBytes bounds a single response. A full 500-row page is well
// under a megabyte.
const maxBodyBytes = 32 << 20

// retryLogger adapts logging.Logger to retryablehttp.LeveledLogger.
type retryLogger struct {
	log *logging.Logger
}

func (l retryLogger) Error(msg string, keysAndValues ...interface{}) {
	l.log.Error().Fields(keysAndValues).Msg(msg)
}

func (l retryLogger) Info(msg string, keysAndValues ...interface{}) {}

func (l retryLogger) Debug(msg string, keysAndValues ...interface{}) {
	l.log.Debug().Fields(keysAndValues).Msg(msg)
}

func (l retryLogger) Warn(msg string, keysAndValues ...interface{}) {
	l.log.Warn().Fields(keysAndValues).Msg(msg)
}

// Options configures a Client.
type Options struct {
	RankingsURL       string
	RolesURL          string
	BootstrapURL      string
	Timeout           time.Duration
	RetryMax          int
	RetryWaitMin      time.Duration
	RetryWaitMax      time.Duration
	RequestsPerSecond float64
	Logger            *logging.Logger
}

// Metrics counts requests made through a Client.
type Metrics struct {
	Requests int64
	Failures int64
	Shared   int64
}

// Client talks to the ranking service over HTTP. It is safe for
// concurrent use.
type Client struct {
	httpClient   *http.Client
	rankingsURL  string
	rolesURL     string
	bootstrapURL string
	limiter      *rate.Limiter
	group        singleflight.Group
	log          *logging.Logger

	mu      sync.Mutex
	metrics Metrics
}

// NewClient builds a client. RankingsURL is required.
func NewClient(opts Options) (*Client, error) {
	if strings.TrimSpace(opts.RankingsURL) == "" {
		return nil, fmt.Errorf("rankings URL is required")
	}
	if opts.Logger == nil {
		opts.Logger = logging.Nop()
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}
	if opts.RetryMax < 0 {
		opts.RetryMax = 0
	}
	if opts.RetryWaitMin <= 0 {
		opts.RetryWaitMin = 250 * time.Millisecond
	}
	if opts.RetryWaitMax <= 0 {
		opts.RetryWaitMax = 5 * time.Second
	}

	retryClient := retryablehttp.NewClient()
	retryClient.HTTPClient.Timeout = opts.Timeout
	retryClient.RetryMax = opts.RetryMax
	retryClient.RetryWaitMin = opts.RetryWaitMin
	retryClient.RetryWaitMax = opts.RetryWaitMax
	retryClient.Logger = retryLogger{log: opts.Logger}

	limit := rate.Inf
	if opts.RequestsPerSecond > 0 {
		limit = rate.Limit(opts.RequestsPerSecond)
	}

	return &Client{
		httpClient:   retryClient.StandardClient(),
		rankingsURL:  opts.RankingsURL,
		rolesURL:     opts.RolesURL,
		bootstrapURL: opts.BootstrapURL,
		limiter:      rate.NewLimiter(limit, 1),
		log:          opts.Logger,
	}, nil
}

// FetchPage requests one page of the ranking.
func (c *Client) FetchPage(ctx context.Context, q model.QuerySpec, page, perPage int) (model.Page, error) {
	var out model.Page
	if err := c.getJSON(ctx, c.rankingsURL, RankingsParams(q, page, perPage), &out); err != nil {
		return model.Page{}, fmt.Errorf("%w: page %d: %w", ErrFetchFailed, page, err)
	}
	if out.Total < 0 {
		return model.Page{}, fmt.Errorf("%w: page %d: negative total %d", ErrFetchFailed, page, out.Total)
	}
	if out.Number == 0 {
		out.Number = page
	}
	c.log.Debug().
		Int("page", page).
		Int("rows", len(out.Records)).
		Int("total", out.Total).
		Str("search", q.Search).
		Msg("fetched rankings page")
	return out, nil
}

// Roles requests the role-detail payload. Identical concurrent requests
// share one round trip.
func (c *Client) Roles(ctx context.Context, q model.RolesQuery) (model.RolesPayload, error) {
	if c.rolesURL == "" {
		return model.RolesPayload{}, fmt.Errorf("%w: no roles URL configured", ErrFetchFailed)
	}
	params := RolesParams(q)
	v, err, shared := c.group.Do("roles?"+params.Encode(), func() (interface{}, error) {
		var out model.RolesPayload
		if err := c.getJSON(ctx, c.rolesURL, params, &out); err != nil {
			return nil, err
		}
		return out, nil
	})
	c.noteShared(shared)
	if err != nil {
		return model.RolesPayload{}, fmt.Errorf("%w: roles: %w", ErrFetchFailed, err)
	}
	return v.(model.RolesPayload), nil
}

// Bootstrap requests the unfiltered total and default role detail.
func (c *Client) Bootstrap(ctx context.Context) (model.Bootstrap, error) {
	if c.bootstrapURL == "" {
		return model.Bootstrap{}, fmt.Errorf("%w: no bootstrap URL configured", ErrFetchFailed)
	}
	v, err, shared := c.group.Do("bootstrap", func() (interface{}, error) {
		var out model.Bootstrap
		if err := c.getJSON(ctx, c.bootstrapURL, nil, &out); err != nil {
			return nil, err
		}
		return out, nil
	})
	c.noteShared(shared)
	if err != nil {
		return model.Bootstrap{}, fmt.Errorf("%w: bootstrap: %w", ErrFetchFailed, err)
	}
	return v.(model.Bootstrap), nil
}

// Metrics returns a snapshot of the request counters.
func (c *Client) Metrics() Metrics {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.metrics
}

func (c *Client) noteShared(shared bool) {
	if !shared {
		return
	}
	c.mu.Lock()
	c.metrics.Shared++
	c.mu.Unlock()
}

// getJSON performs a rate-limited GET and decodes the JSON body into out.
func (c *Client) getJSON(ctx context.Context, base string, params url.Values, out interface{}) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter cancelled: %w", err)
	}

	u, err := url.Parse(base)
	if err != nil {
		return fmt.Errorf("invalid URL %q: %w", base, err)
	}
	if len(params) > 0 {
		merged := u.Query()
		for k, vs := range params {
			merged[k] = vs
		}
		u.RawQuery = merged.Encode()
	}

	c.mu.Lock()
	c.metrics.Requests++
	c.mu.Unlock()

	err = c.doGet(ctx, u.String(), out)
	if err != nil {
		c.mu.Lock()
		c.metrics.Failures++
		c.mu.Unlock()
		c.log.Warn().Err(err).Str("url", u.String()).Msg("request failed")
	}
	return err
}

func (c *Client) doGet(ctx context.Context, target string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("unexpected status %d: %s", resp.StatusCode, strings.TrimSpace(string(snippet)))
	}

	if err := json.NewDecoder(io.LimitReader(resp.Body, maxBodyBytes)).Decode(out); err != nil {
		return fmt.Errorf("malformed response: %w", err)
	}
	return nil
}
