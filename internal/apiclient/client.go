// Package apiclient is the HTTP client base for the College Mate backend:
// base URL, forwarded credentials, JSON and multipart bodies, a single error
// shape and the response normalization boundary.
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

	"go.uber.org/zap"
)

// DefaultBaseURL is the production backend.
const DefaultBaseURL = "https://college-mate-backend-1.onrender.com/api/v1"

// Credentials are forwarded verbatim on every upstream request.
type Credentials struct {
	Bearer  string
	Cookies []*http.Cookie
}

// Empty reports whether there is nothing to forward.
func (c Credentials) Empty() bool {
	return c.Bearer == "" && len(c.Cookies) == 0
}

// Client talks to one backend on behalf of one credential set.
type Client struct {
	baseURL *url.URL
	http    *http.Client
	creds   Credentials
	logger  *zap.Logger
}

type Option func(*Client)

// WithHTTPClient replaces the default http.Client. No timeout is set by
// default; callers bound requests with their context.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

func WithCredentials(creds Credentials) Option {
	return func(c *Client) { c.creds = creds }
}

func WithLogger(l *zap.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// New creates a client for the given base URL, e.g. DefaultBaseURL.
func New(baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("apiclient: parse base url: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("apiclient: base url %q must be absolute", baseURL)
	}

	c := &Client{
		baseURL: u,
		http:    &http.Client{},
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Logger is the logger the client reports through.
func (c *Client) Logger() *zap.Logger { return c.logger }

// Request describes one upstream call. At most one of JSON and Form is set.
type Request struct {
	Method string
	Path   string // relative to the base URL, already expanded
	Query  url.Values
	JSON   any
	Form   *Form
}

// Do performs the request and returns the raw response body. Any non-2xx
// status or transport failure is returned as *APIError. There are no retries.
func (c *Client) Do(ctx context.Context, r Request) ([]byte, error) {
	req, err := c.newRequest(ctx, r)
	if err != nil {
		return nil, err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Warn("upstream request failed",
			zap.String("method", r.Method), zap.String("path", r.Path), zap.Error(err))
		return nil, transportError(err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, transportError(err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := errorFromBody(resp.StatusCode, body)
		c.logger.Info("upstream error response",
			zap.String("method", r.Method), zap.String("path", r.Path),
			zap.Int("status", resp.StatusCode), zap.String("message", apiErr.Message))
		return nil, apiErr
	}
	return body, nil
}

func (c *Client) newRequest(ctx context.Context, r Request) (*http.Request, error) {
	target := c.baseURL.String() + "/" + strings.TrimLeft(r.Path, "/")
	if len(r.Query) > 0 {
		target += "?" + r.Query.Encode()
	}

	var (
		body        io.Reader
		contentType string
	)
	switch {
	case r.Form != nil:
		buf, ct, err := r.Form.Encode()
		if err != nil {
			return nil, fmt.Errorf("apiclient: encode form: %w", err)
		}
		body, contentType = buf, ct
	case r.JSON != nil:
		data, err := json.Marshal(r.JSON)
		if err != nil {
			return nil, fmt.Errorf("apiclient: encode json: %w", err)
		}
		body, contentType = bytes.NewReader(data), "application/json"
	}

	req, err := http.NewRequestWithContext(ctx, r.Method, target, body)
	if err != nil {
		return nil, fmt.Errorf("apiclient: build request: %w", err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("Accept", "application/json")
	if c.creds.Bearer != "" {
		req.Header.Set("Authorization", "Bearer "+c.creds.Bearer)
	}
	for _, ck := range c.creds.Cookies {
		req.AddCookie(ck)
	}
	return req, nil
}

// PathID escapes one path segment of a URL template such as /placement/:id.
func PathID(id string) string {
	return url.PathEscape(id)
}
