// Package overpass provides a client for the Overpass API, the query
// frontend for OpenStreetMap data.
package overpass

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"

	"github.com/sells-group/leadgen-cli/internal/resilience"
)

const defaultBaseURL = "https://overpass-api.de/api/interpreter"

// Client executes Overpass QL queries.
type Client interface {
	// Execute posts an Overpass QL query and returns the decoded response.
	// Transient failures (timeouts, 429, 5xx) are reported as
	// resilience.TransientError so callers can retry; a malformed response
	// body is permanent.
	Execute(ctx context.Context, query string) (*Response, error)
}

// Response is the decoded Overpass API response.
type Response struct {
	Elements []Element `json:"elements"`
	// Remark carries server-side warnings, e.g. query timeouts that
	// truncated the result set.
	Remark string `json:"remark,omitempty"`
}

// Element is a single OSM element (node, way, or relation) with its tags.
type Element struct {
	Type string            `json:"type"`
	ID   int64             `json:"id"`
	Tags map[string]string `json:"tags"`
}

// Option configures the client.
type Option func(*httpClient)

// WithBaseURL overrides the default interpreter endpoint.
func WithBaseURL(u string) Option {
	return func(c *httpClient) {
		c.baseURL = u
	}
}

// WithHTTPClient overrides the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

// WithUserAgent sets the User-Agent header sent with every request.
// Overpass operators ask that clients identify themselves.
func WithUserAgent(ua string) Option {
	return func(c *httpClient) {
		c.userAgent = ua
	}
}

// WithRateLimit overrides the default request rate (requests per second).
func WithRateLimit(rps float64, burst int) Option {
	return func(c *httpClient) {
		c.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

type httpClient struct {
	baseURL   string
	userAgent string
	http      *http.Client
	limiter   *rate.Limiter
}

// NewClient creates an Overpass client. The default configuration keeps to
// one request per second, which is the polite ceiling for the public
// interpreter instances.
func NewClient(opts ...Option) Client {
	c := &httpClient{
		baseURL:   defaultBaseURL,
		userAgent: "leadgen-cli/1.0",
		http: &http.Client{
			Timeout: 90 * time.Second,
		},
		limiter: rate.NewLimiter(rate.Limit(1), 1),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

func (c *httpClient) Execute(ctx context.Context, query string) (*Response, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, eris.Wrap(err, "overpass: rate limit wait")
	}

	form := url.Values{"data": {query}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, eris.Wrap(err, "overpass: create request")
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.http.Do(req)
	if err != nil {
		// Transport errors are usually timeouts or resets; let the
		// generic classifier decide.
		return nil, eris.Wrap(err, "overpass: send request")
	}
	defer resp.Body.Close() //nolint:errcheck

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "overpass: read response")
	}

	if resilience.IsTransientHTTPStatus(resp.StatusCode) {
		return nil, resilience.NewTransientError(
			eris.Errorf("overpass: status %d: %s", resp.StatusCode, truncate(body, 200)),
			resp.StatusCode,
		)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, eris.Errorf("overpass: unexpected status %d: %s", resp.StatusCode, truncate(body, 200))
	}

	var result Response
	if err := json.Unmarshal(body, &result); err != nil {
		// A body that is not JSON is a permanent failure, not worth a retry.
		return nil, eris.Wrap(err, "overpass: unmarshal response")
	}

	return &result, nil
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
