package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"strconv"
	"time"

	"storefront/internal/util"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"
)

// Client issues credentialed requests to the commerce backend. Each browser
// session owns one Client; its cookie jar carries the backend session cookie.
type Client struct {
	baseURL string
	http    *http.Client
	logger  *zap.Logger
}

// Option customizes a Client
type Option func(*Client)

// WithTransport replaces the underlying round tripper (it is still traced).
func WithTransport(rt http.RoundTripper) Option {
	return func(c *Client) {
		c.http.Transport = otelhttp.NewTransport(rt)
	}
}

// WithTimeout sets a per-request timeout; zero keeps the transport default.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.http.Timeout = d
	}
}

// New creates a backend client with its own cookie jar
func New(baseURL string, opts ...Option) (*Client, error) {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create cookie jar: %w", err)
	}

	c := &Client{
		baseURL: baseURL,
		http: &http.Client{
			Jar:       jar,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		logger: util.Component("apiclient"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// BaseURL returns the backend origin this client talks to
func (c *Client) BaseURL() string {
	return c.baseURL
}

// request describes one backend call. route is the path template used as a
// metrics label so ids do not explode cardinality.
type request struct {
	method      string
	path        string
	route       string
	body        io.Reader
	contentType string
}

func (c *Client) jsonRequest(method, path, route string, payload interface{}) (request, error) {
	req := request{method: method, path: path, route: route}
	if payload != nil {
		buf, err := json.Marshal(payload)
		if err != nil {
			return req, fmt.Errorf("failed to marshal request: %w", err)
		}
		req.body = bytes.NewReader(buf)
		req.contentType = "application/json"
	}
	return req, nil
}

// do sends req and decodes a 2xx JSON body into out (when out is non-nil).
func (c *Client) do(ctx context.Context, req request, out interface{}) error {
	httpReq, err := http.NewRequestWithContext(ctx, req.method, c.baseURL+req.path, req.body)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	httpReq.Header.Set("Accept", "application/json")
	if req.contentType != "" {
		httpReq.Header.Set("Content-Type", req.contentType)
	}

	start := time.Now()
	resp, err := c.http.Do(httpReq)
	if err != nil {
		util.BackendRequestDuration.WithLabelValues(req.method, req.route, "error").
			Observe(time.Since(start).Seconds())
		c.logger.Warn("Backend request failed",
			zap.String("method", req.method),
			zap.String("path", req.path),
			zap.Error(err))
		return fmt.Errorf("%w: %s %s: %w", ErrTransport, req.method, req.route, err)
	}
	defer resp.Body.Close()

	util.BackendRequestDuration.WithLabelValues(req.method, req.route, strconv.Itoa(resp.StatusCode)).
		Observe(time.Since(start).Seconds())

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%w: reading %s %s: %w", ErrTransport, req.method, req.route, err)
	}

	if resp.StatusCode >= http.StatusBadRequest {
		apiErr := decodeError(resp.StatusCode, body)
		c.logger.Debug("Backend rejected request",
			zap.String("method", req.method),
			zap.String("path", req.path),
			zap.Int("status", resp.StatusCode),
			zap.Strings("messages", apiErr.Messages))
		return apiErr
	}

	if out == nil || len(bytes.TrimSpace(body)) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to decode %s %s response: %w", req.method, req.route, err)
	}
	return nil
}
