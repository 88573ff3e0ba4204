// Package overpass queries the OpenStreetMap Overpass API for named road
// ways inside a bounding box.
package overpass

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"

	"github.com/sells-group/crash-cli/internal/resilience"
)

// DefaultURL is the public Overpass interpreter endpoint.
const DefaultURL = "https://overpass-api.de/api/interpreter"

// Client fetches road geometry from Overpass.
type Client interface {
	// Ways returns every highway way whose name matches q.
	Ways(ctx context.Context, q Query) ([]Way, error)
}

// Option configures the client.
type Option func(*client)

// WithHTTPClient sets the HTTP client used for requests.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *client) {
		c.httpClient = hc
	}
}

// WithBaseURL points the client at another interpreter, e.g. a private
// mirror.
func WithBaseURL(u string) Option {
	return func(c *client) {
		c.baseURL = u
	}
}

// WithUserAgent sets the User-Agent header. Public instances ask callers to
// identify themselves.
func WithUserAgent(ua string) Option {
	return func(c *client) {
		c.userAgent = ua
	}
}

// WithRateLimit sets the requests-per-second limit.
func WithRateLimit(rps float64) Option {
	return func(c *client) {
		burst := int(rps)
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

// WithRetry sets the retry policy for transient failures.
func WithRetry(cfg resilience.RetryConfig) Option {
	return func(c *client) {
		c.retry = cfg
	}
}

// WithCircuitBreaker guards requests with cb.
func WithCircuitBreaker(cb *resilience.CircuitBreaker) Option {
	return func(c *client) {
		c.breaker = cb
	}
}

// WithServerTimeout sets the [timeout:N] directive sent with each query.
func WithServerTimeout(d time.Duration) Option {
	return func(c *client) {
		c.serverTimeout = d
	}
}

type client struct {
	httpClient    *http.Client
	baseURL       string
	userAgent     string
	limiter       *rate.Limiter
	retry         resilience.RetryConfig
	breaker       *resilience.CircuitBreaker
	serverTimeout time.Duration
}

// NewClient creates an Overpass client with the given options.
func NewClient(opts ...Option) Client {
	c := &client{
		httpClient:    &http.Client{Timeout: 120 * time.Second},
		baseURL:       DefaultURL,
		userAgent:     "crash-cli",
		limiter:       rate.NewLimiter(1, 1), // public instance: ~1 req/s
		retry:         resilience.DefaultRetryConfig(),
		breaker:       resilience.NewCircuitBreaker(resilience.CircuitBreakerConfig{}),
		serverTimeout: 90 * time.Second,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.retry.OnRetry == nil {
		c.retry.OnRetry = resilience.RetryLogger("overpass", "ways")
	}
	return c
}

// Ways runs the query and decodes the way elements.
func (c *client) Ways(ctx context.Context, q Query) ([]Way, error) {
	body, err := q.Build(c.serverTimeout)
	if err != nil {
		return nil, err
	}

	resp, err := resilience.ExecuteVal(ctx, c.breaker, func(ctx context.Context) (*response, error) {
		return resilience.DoVal(ctx, c.retry, func(ctx context.Context) (*response, error) {
			return c.post(ctx, body)
		})
	})
	if err != nil {
		return nil, eris.Wrap(err, "overpass: query")
	}
	return resp.ways(), nil
}

func (c *client) post(ctx context.Context, query string) (*response, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, eris.Wrap(err, "overpass: rate limit")
	}

	form := url.Values{"data": {query}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, bytes.NewBufferString(form.Encode()))
	if err != nil {
		return nil, eris.Wrap(err, "overpass: build request")
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "overpass: request")
	}
	defer resp.Body.Close() //nolint:errcheck

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "overpass: read body")
	}

	if resp.StatusCode != http.StatusOK {
		err := eris.Errorf("overpass: returned status %d", resp.StatusCode)
		if resilience.IsTransientHTTPStatus(resp.StatusCode) {
			return nil, resilience.NewTransientError(err, resp.StatusCode)
		}
		return nil, err
	}

	var out response
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, eris.Wrap(err, "overpass: parse response")
	}
	// Server-side timeouts and memory exhaustion come back as 200 with a
	// runtime error remark; any elements alongside it are a truncated result.
	if isRuntimeError(out.Remark) || (out.Remark != "" && len(out.Elements) == 0) {
		return nil, resilience.NewTransientError(eris.Errorf("overpass: %s", out.Remark), resp.StatusCode)
	}
	return &out, nil
}

func isRuntimeError(remark string) bool {
	return strings.Contains(strings.ToLower(remark), "runtime error")
}
