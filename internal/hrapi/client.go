// Package hrapi is a typed client for the HR backend's REST API.
//
// Every response is wrapped in an envelope:
//
//	{"success": true, "data": ..., "requestId": "..."}
//	{"success": false, "error": {"code": "...", "message": "..."}, "requestId": "..."}
package hrapi

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

	"github.com/attendly/hrdesk/internal/logging"
)

// TokenSource supplies the bearer token for each request.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

type Client struct {
	base      *url.URL
	http      *http.Client
	tokens    TokenSource
	log       *logging.Logger
	userAgent string
}

type Option func(*Client)

func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.http.Timeout = d }
}

func WithLogger(l *logging.Logger) Option {
	return func(c *Client) { c.log = l }
}

func WithUserAgent(ua string) Option {
	return func(c *Client) { c.userAgent = ua }
}

// New builds a client for baseURL, e.g. https://hr.example.com/api/v1.
func New(baseURL string, tokens TokenSource, opts ...Option) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("hrapi: base url: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("hrapi: base url %q is not absolute", baseURL)
	}
	c := &Client{
		base:      u,
		http:      &http.Client{Timeout: 15 * time.Second},
		tokens:    tokens,
		log:       logging.L().With("component", "hrapi"),
		userAgent: "hrdesk",
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

type requestIDKey struct{}

// WithRequestID makes the next request carry id as its X-Request-ID.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

// RequestIDFrom returns the id set by WithRequestID.
func RequestIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
	RequestID string `json:"requestId"`
}

// do sends one request and decodes the envelope's data into out (may be nil).
func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	u := *c.base
	u.Path = c.base.Path + path
	if len(query) > 0 {
		u.RawQuery = query.Encode()
	}

	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("hrapi: encode %s %s: %w", method, path, err)
		}
		reader = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), reader)
	if err != nil {
		return fmt.Errorf("hrapi: %s %s: %w", method, path, err)
	}
	reqID := RequestIDFrom(ctx)
	if reqID == "" {
		reqID = uuid.NewString()
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("X-Request-ID", reqID)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.tokens != nil {
		tok, err := c.tokens.Token(ctx)
		if err != nil {
			return fmt.Errorf("hrapi: %s %s: %w", method, path, err)
		}
		req.Header.Set("Authorization", "Bearer "+tok)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.log.Warnw("request failed", "method", method, "path", path, "request_id", reqID, "err", err)
		return fmt.Errorf("hrapi: %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()
	c.log.Debugw("request", "method", method, "path", path, "status", resp.StatusCode,
		"request_id", reqID, "elapsed", time.Since(start))

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		return fmt.Errorf("hrapi: read %s %s: %w", method, path, err)
	}

	apiErr := &APIError{Method: method, Path: path, Status: resp.StatusCode, RequestID: reqID}
	if len(bytes.TrimSpace(raw)) == 0 {
		if resp.StatusCode >= 300 {
			return apiErr
		}
		return nil
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		if resp.StatusCode >= 300 {
			apiErr.Message = snippet(raw)
			return apiErr
		}
		return fmt.Errorf("hrapi: decode %s %s: %w", method, path, err)
	}
	if env.RequestID != "" {
		apiErr.RequestID = env.RequestID
	}
	if resp.StatusCode >= 300 || !env.Success {
		if env.Error != nil {
			apiErr.Code = env.Error.Code
			apiErr.Message = env.Error.Message
		}
		if apiErr.Status < 300 {
			// success=false on a 2xx is still a failure
			apiErr.Status = http.StatusUnprocessableEntity
		}
		return apiErr
	}
	if out == nil || len(env.Data) == 0 || string(env.Data) == "null" {
		return nil
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return fmt.Errorf("hrapi: decode %s %s data: %w", method, path, err)
	}
	return nil
}

const snippetRunes = 120

// snippet shortens a non-JSON error body for the status bar, cutting on a
// rune boundary.
func snippet(b []byte) string {
	s := strings.TrimSpace(strings.ToValidUTF8(string(b), "\uFFFD"))
	if r := []rune(s); len(r) > snippetRunes {
		s = string(r[:snippetRunes]) + "…"
	}
	return s
}

func get[T any](ctx context.Context, c *Client, path string, q url.Values) (T, error) {
	var out T
	err := c.do(ctx, http.MethodGet, path, q, nil, &out)
	return out, err
}

func send[T any](ctx context.Context, c *Client, method, path string, body any) (T, error) {
	var out T
	err := c.do(ctx, method, path, nil, body, &out)
	return out, err
}

func esc(id string) string { return url.PathEscape(id) }
