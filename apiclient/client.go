package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const (
	defaultTimeout = 30 * time.Second
	maxBodyBytes   = 4 << 20
)

// Client talks to the shop backend. Every request passes through the
// middleware chain (request id, logging, then any caller middleware such as
// the auth gate) before reaching the transport.
type Client struct {
	baseURL    *url.URL
	httpClient *http.Client
	transport  http.RoundTripper
	middleware []Middleware
	timeout    time.Duration
	logger     zerolog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithTransport sets the innermost RoundTripper (defaults to
// http.DefaultTransport).
func WithTransport(rt http.RoundTripper) Option {
	return func(c *Client) {
		c.transport = rt
	}
}

// WithMiddleware appends middleware after the built-in request id and logging
// middleware.
func WithMiddleware(mw ...Middleware) Option {
	return func(c *Client) {
		c.middleware = append(c.middleware, mw...)
	}
}

func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.timeout = d
	}
}

func WithLogger(logger zerolog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// New creates a Client for baseURL.
func New(baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("base url %q must be absolute", baseURL)
	}

	c := &Client{
		baseURL: u,
		timeout: defaultTimeout,
		logger:  log.Logger,
	}
	for _, opt := range opts {
		opt(c)
	}

	mw := append([]Middleware{RequestID(), Logging(c.logger)}, c.middleware...)
	c.httpClient = &http.Client{
		Transport: Chain(c.transport, mw...),
		Timeout:   c.timeout,
	}
	return c, nil
}

// BaseURL returns the configured base URL.
func (c *Client) BaseURL() string {
	return c.baseURL.String()
}

// Do sends a request and decodes a 2xx body into out. body, if non-nil, is
// JSON encoded. Failures are returned as *APIError.
func (c *Client) Do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	req, err := c.newRequest(ctx, method, path, query, body)
	if err != nil {
		return err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return c.fail(Handle(err, ""))
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return c.fail(NewNetworkError(err, ""))
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return c.fail(FromResponse(resp.StatusCode, payload, ""))
	}
	if out == nil || len(bytes.TrimSpace(payload)) == 0 {
		return nil
	}
	if err := json.Unmarshal(payload, out); err != nil {
		return c.fail(&APIError{
			Message:    "Unexpected response from the server.",
			StatusCode: resp.StatusCode,
			Err:        err.Error(),
			Timestamp:  NowTimeFunc().UTC(),
			Kind:       KindUnknown,
			cause:      err,
		})
	}
	return nil
}

func (c *Client) newRequest(ctx context.Context, method, path string, query url.Values, body any) (*http.Request, error) {
	u := c.baseURL.JoinPath(path)
	if len(query) > 0 {
		u.RawQuery = query.Encode()
	}

	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encode request body: %w", err)
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), reader)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return req, nil
}

func (c *Client) fail(e *APIError) error {
	c.logger.Error().
		Str("kind", e.Kind.String()).
		Int("status", e.StatusCode).
		Str("error", e.Err).
		Msg(e.Message)
	return e
}

// Get issues a GET and decodes the envelope.
func Get[T any](ctx context.Context, c *Client, path string, query url.Values) (*Response[T], error) {
	return send[T](ctx, c, http.MethodGet, path, query, nil)
}

// Post issues a POST with a JSON body and decodes the envelope.
func Post[T any](ctx context.Context, c *Client, path string, body any) (*Response[T], error) {
	if body == nil {
		body = struct{}{}
	}
	return send[T](ctx, c, http.MethodPost, path, nil, body)
}

func send[T any](ctx context.Context, c *Client, method, path string, query url.Values, body any) (*Response[T], error) {
	var out Response[T]
	if err := c.Do(ctx, method, path, query, body, &out); err != nil {
		return nil, err
	}
	if !out.Success {
		msg := out.Message
		if msg == "" {
			msg = "The server could not complete the request."
		}
		return nil, c.fail(&APIError{
			Message:       msg,
			StatusCode:    http.StatusOK,
			Timestamp:     NowTimeFunc().UTC(),
			Kind:          KindUnknown,
			serverMessage: out.Message != "",
		})
	}
	return &out, nil
}
