// Package api is the REST client for the huntlab backend. It adapts the
// backend's JSON/multipart endpoints to the domain interfaces consumed by
// the guard and the report controller.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"huntlab.org/internal/obs"
)

const (
	defaultTimeout    = 15 * time.Second
	defaultRatePerSec = 10
	defaultRateBurst  = 20

	maxErrorBody = 64 << 10
)

// TokenSource supplies the current access token for authenticated calls.
// It is consulted per request so a refreshed token is picked up
// immediately.
type TokenSource func() string

// Client talks to the backend. Timeouts live on the HTTP client; every
// request carries an X-Request-ID and passes the outgoing rate limiter.
type Client struct {
	baseURL string
	http    *http.Client
	limiter *rate.Limiter
	token   TokenSource
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient substitutes the underlying HTTP client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) {
		if h != nil {
			c.http = h
		}
	}
}

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.http.Timeout = d
		}
	}
}

// WithRateLimit caps outgoing requests with a token bucket.
func WithRateLimit(perSec, burst int) Option {
	return func(c *Client) {
		if perSec > 0 && burst > 0 {
			c.limiter = rate.NewLimiter(rate.Limit(perSec), burst)
		}
	}
}

// WithTokenSource wires the session store's access token into requests.
func WithTokenSource(ts TokenSource) Option {
	return func(c *Client) { c.token = ts }
}

// New creates a client for the given base URL.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		http:    &http.Client{Timeout: defaultTimeout},
		limiter: rate.NewLimiter(rate.Limit(defaultRatePerSec), defaultRateBurst),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// do issues one request and decodes a 2xx JSON response into out (out may
// be nil). Non-2xx responses become the package error taxonomy; transport
// failures are wrapped and recorded with status 0.
func (c *Client) do(ctx context.Context, op, method, path string, body io.Reader, contentType string, authed bool, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("api: %s: %w", op, err)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("api: %s: %w", op, err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", uuid.NewString())
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if authed && c.token != nil {
		if tok := strings.TrimSpace(c.token()); tok != "" {
			req.Header.Set("Authorization", "Bearer "+tok)
		}
	}

	done := obs.APIRequestStarted()
	defer done()
	started := time.Now()

	resp, err := c.http.Do(req)
	if err != nil {
		obs.ObserveAPIRequest(op, 0, started)
		return fmt.Errorf("api: %s: %w", op, err)
	}
	defer resp.Body.Close()
	obs.ObserveAPIRequest(op, resp.StatusCode, started)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeError(op, resp)
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("api: %s: decode response: %w", op, err)
	}
	return nil
}

func (c *Client) postJSON(ctx context.Context, op, path string, in, out any, authed bool) error {
	var body io.Reader
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("api: %s: encode request: %w", op, err)
		}
		body = bytes.NewReader(payload)
	}
	return c.do(ctx, op, http.MethodPost, path, body, "application/json", authed, out)
}

func (c *Client) patchJSON(ctx context.Context, op, path string, in, out any) error {
	payload, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("api: %s: encode request: %w", op, err)
	}
	return c.do(ctx, op, http.MethodPatch, path, bytes.NewReader(payload), "application/json", true, out)
}

func (c *Client) get(ctx context.Context, op, path string, out any) error {
	return c.do(ctx, op, http.MethodGet, path, nil, "", true, out)
}
