package client

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

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// DefaultTimeout bounds every request made by a Client.
const DefaultTimeout = 10 * time.Second

// Authenticator supplies the bearer token for outgoing requests and is told
// when the API rejects it. The session manager implements it.
type Authenticator interface {
	// Token returns the current bearer token, or "" when signed out.
	Token() string
	// Unauthorized is called after any 401 response to an authenticated call.
	Unauthorized()
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithTimeout sets the per-request timeout of the default HTTP client.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.httpClient.Timeout = d
		}
	}
}

// WithLogger sets the logger used for request tracing.
func WithLogger(l *zap.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithAuthenticator sets the token source and 401 handler.
func WithAuthenticator(a Authenticator) Option {
	return func(c *Client) { c.auth = a }
}

// Client is the Hogwarts Library API client. All calls go through Request,
// which attaches the bearer token and routes 401s back to the Authenticator.
type Client struct {
	baseURL    string
	httpClient *http.Client
	auth       Authenticator
	logger     *zap.Logger
}

// New creates a new API client.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: DefaultTimeout,
		},
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// SetAuthenticator installs the token source after construction. The session
// manager needs a client to exist before it can be built, so wiring happens
// in two steps.
func (c *Client) SetAuthenticator(a Authenticator) {
	c.auth = a
}

// BaseURL returns the API root this client talks to.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Request performs an authenticated call. body (if non-nil) is sent as JSON,
// query is appended to path, and a 2xx payload is decoded into out (if
// non-nil). A 401 triggers Authenticator.Unauthorized and returns an error
// matching ErrUnauthorized; every other failure matches ErrRequestFailed.
func (c *Client) Request(ctx context.Context, method, path string, body any, query url.Values, out any) error {
	return c.doRequest(ctx, request{method: method, path: path, body: body, query: query}, out)
}

type request struct {
	method string
	path   string
	body   any
	query  url.Values
	// public requests carry no bearer token and bypass the 401 interceptor;
	// a 401 from login means bad credentials, not an expired session.
	public bool
}

func (c *Client) get(ctx context.Context, path string, query url.Values, out any) error {
	return c.doRequest(ctx, request{method: http.MethodGet, path: path, query: query}, out)
}

func (c *Client) post(ctx context.Context, path string, body any, out any) error {
	return c.doRequest(ctx, request{method: http.MethodPost, path: path, body: body}, out)
}

func (c *Client) doRequest(ctx context.Context, r request, out any) error {
	var reqBody io.Reader
	if r.body != nil {
		data, err := json.Marshal(r.body)
		if err != nil {
			return fmt.Errorf("marshal body: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	target := c.baseURL + r.path
	if len(r.query) > 0 {
		target += "?" + r.query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, r.method, target, reqBody)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	reqID := uuid.NewString()
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", reqID)
	if r.body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	authed := false
	if !r.public && c.auth != nil {
		if tok := c.auth.Token(); tok != "" {
			req.Header.Set("Authorization", "Bearer "+tok)
			authed = true
		}
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Debug("request failed",
			zap.String("method", r.method),
			zap.String("path", r.path),
			zap.String("request_id", reqID),
			zap.Error(err))
		return &NetworkError{Err: err}
	}
	defer resp.Body.Close() //nolint:errcheck // best-effort close

	c.logger.Debug("request",
		zap.String("method", r.method),
		zap.String("path", r.path),
		zap.String("request_id", reqID),
		zap.Int("status", resp.StatusCode),
		zap.Duration("elapsed", time.Since(start)))

	if resp.StatusCode >= 400 {
		httpErr := readHTTPError(resp)
		if resp.StatusCode == http.StatusUnauthorized && !r.public && c.auth != nil {
			c.logger.Info("session rejected by api", zap.String("path", r.path), zap.Bool("had_token", authed))
			c.auth.Unauthorized()
		}
		return httpErr
	}

	if out == nil {
		return nil
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return &NetworkError{Err: err}
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return &ResponseError{Detail: "decode body", Err: err}
	}
	return nil
}

// readHTTPError builds an HTTPError from an error response, preferring the
// server's "message" field, then "error", then the raw body.
func readHTTPError(resp *http.Response) *HTTPError {
	respBody, readErr := io.ReadAll(io.LimitReader(resp.Body, 1<<20)) // 1 MB max error body
	if readErr != nil {
		return &HTTPError{StatusCode: resp.StatusCode, Message: fmt.Sprintf("failed to read body: %v", readErr)}
	}
	var apiErr struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if json.Unmarshal(respBody, &apiErr) == nil {
		if apiErr.Message != "" {
			return &HTTPError{StatusCode: resp.StatusCode, Message: apiErr.Message}
		}
		if apiErr.Error != "" {
			return &HTTPError{StatusCode: resp.StatusCode, Message: apiErr.Error}
		}
	}
	msg := strings.TrimSpace(string(respBody))
	if msg == "" {
		msg = http.StatusText(resp.StatusCode)
	}
	return &HTTPError{StatusCode: resp.StatusCode, Message: msg}
}
