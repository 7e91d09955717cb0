package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/five82/tickerdeck/internal/notify"
)

// Credentials supplies the bearer token and is told when the backend
// rejects it.
type Credentials interface {
	Token() string
	Expire(reason string)
}

// Client is the request pipeline shared by every endpoint call.
type Client struct {
	baseURL   *url.URL
	http      *http.Client
	userAgent string
	creds     Credentials
	notifier  notify.Notifier
	log       zerolog.Logger
	newID     func() string
}

const (
	defaultAPIURL    = "http://127.0.0.1:8000/api"
	defaultUserAgent = "tickerdeck/0.3"
	requestTimeout   = 10 * time.Second
	maxErrorBody     = 64 * 1024
)

// Option configures a Client.
type Option func(*Client)

// WithCredentials injects the session the pipeline reads tokens from.
func WithCredentials(creds Credentials) Option {
	return func(c *Client) { c.creds = creds }
}

// WithNotifier sets where failure notices are sent.
func WithNotifier(n notify.Notifier) Option {
	return func(c *Client) {
		if n != nil {
			c.notifier = n
		}
	}
}

// WithLogger sets the request logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(c *Client) { c.log = logger }
}

// WithTimeout overrides the shared transport timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.http.Timeout = d
		}
	}
}

// WithHTTPClient replaces the underlying http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// NewClient builds a Client for the backend rooted at apiURL.
func NewClient(apiURL string, opts ...Option) (*Client, error) {
	base, err := parseBaseURL(apiURL)
	if err != nil {
		return nil, err
	}
	c := &Client{
		baseURL:   base,
		http:      &http.Client{Timeout: requestTimeout},
		userAgent: defaultUserAgent,
		notifier:  notify.Discard,
		log:       zerolog.Nop(),
		newID:     func() string { return uuid.NewString() },
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// BaseURL returns the normalized backend root.
func (c *Client) BaseURL() string {
	return c.baseURL.String()
}

// Send performs one backend call. params are encoded into the query string,
// body (when non-nil) is sent as JSON, and the unwrapped payload is decoded
// into dest (when non-nil).
//
// Failures are notified to the user exactly once here; a 401 additionally
// expires the credentials. The returned error is an *Error for HTTP and
// network failures.
func (c *Client) Send(ctx context.Context, method, path string, params url.Values, body, dest any) error {
	if c == nil {
		return fmt.Errorf("client is nil")
	}
	rel := &url.URL{Path: strings.TrimPrefix(path, "/")}
	if len(params) > 0 {
		rel.RawQuery = params.Encode()
	}
	reqURL := c.baseURL.ResolveReference(rel)

	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, reqURL.String(), reader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	requestID := c.newID()
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("X-Request-ID", requestID)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.creds != nil {
		if token := c.creds.Token(); token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}

	started := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		// Only an explicit cancel is silent. A passed deadline is a slow
		// backend and is reported like any other network failure.
		if errors.Is(ctx.Err(), context.Canceled) {
			return fmt.Errorf("execute request: %w", ctx.Err())
		}
		apiErr := &Error{Method: method, Path: path, Network: true, Message: networkMessage, Err: err}
		c.log.Warn().Err(err).Str("method", method).Str("path", path).Str("request_id", requestID).Msg("request failed")
		c.fail(apiErr)
		return apiErr
	}
	defer func() { _ = resp.Body.Close() }()

	c.log.Debug().
		Str("method", method).
		Str("path", path).
		Int("status", resp.StatusCode).
		Dur("duration", time.Since(started)).
		Str("request_id", requestID).
		Msg("request done")

	if resp.StatusCode >= 400 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		apiErr := &Error{
			Method:  method,
			Path:    path,
			Status:  resp.StatusCode,
			Message: errorMessage(raw),
		}
		c.fail(apiErr)
		return apiErr
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if dest == nil || len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}
	if err := json.Unmarshal(unwrapEnvelope(raw), dest); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// fail runs the side effects of a failed call: one notice, and a logout on
// authentication rejection.
func (c *Client) fail(apiErr *Error) {
	c.notifier.Notify(notify.Error, apiErr.Message)
	apiErr.notified = true
	if apiErr.Status == http.StatusUnauthorized && c.creds != nil {
		c.log.Info().Str("path", apiErr.Path).Msg("token rejected, clearing session")
		c.creds.Expire(apiErr.Message)
	}
}

func (c *Client) get(ctx context.Context, path string, params url.Values, dest any) error {
	return c.Send(ctx, http.MethodGet, path, params, nil, dest)
}

// unwrapEnvelope returns the data member when raw is an object of the form
// {"data": ..., ["message"], ["code"], ["success"]}. Any other body is the
// resource itself.
func unwrapEnvelope(raw []byte) []byte {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return trimmed
	}
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &obj); err != nil {
		return trimmed
	}
	data, ok := obj["data"]
	if !ok {
		return trimmed
	}
	for key := range obj {
		switch key {
		case "data", "message", "code", "success":
		default:
			return trimmed
		}
	}
	return data
}

// errorMessage extracts the human-readable message from an error body.
func errorMessage(raw []byte) string {
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(raw, &obj); err != nil {
		return serverMessage
	}
	if msg := detailMessage(obj["detail"]); msg != "" {
		return msg
	}
	for _, key := range []string{"message", "error"} {
		var s string
		if err := json.Unmarshal(obj[key], &s); err == nil {
			if s = strings.TrimSpace(s); s != "" {
				return s
			}
		}
	}
	return serverMessage
}

// detailMessage handles FastAPI's detail field, which is either a string or
// a list of validation errors.
func detailMessage(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return strings.TrimSpace(s)
	}
	var list []struct {
		Msg string `json:"msg"`
	}
	if err := json.Unmarshal(raw, &list); err == nil {
		for _, item := range list {
			if msg := strings.TrimSpace(item.Msg); msg != "" {
				return msg
			}
		}
	}
	return ""
}

func parseBaseURL(apiURL string) (*url.URL, error) {
	trimmed := strings.TrimSpace(apiURL)
	if trimmed == "" {
		trimmed = defaultAPIURL
	}
	if !strings.Contains(trimmed, "://") {
		trimmed = "http://" + trimmed
	}
	u, err := url.Parse(trimmed)
	if err != nil {
		return nil, fmt.Errorf("parse api_url %q: %w", apiURL, err)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("parse api_url %q: missing host", apiURL)
	}
	// Keep the path as a prefix; ResolveReference needs the trailing slash.
	u.Path = strings.TrimSuffix(u.Path, "/") + "/"
	u.RawQuery = ""
	u.Fragment = ""
	return u, nil
}

// IsUnauthorized reports whether err is a 401 from the backend.
func IsUnauthorized(err error) bool {
	var apiErr *Error
	return errors.As(err, &apiErr) && apiErr.Status == http.StatusUnauthorized
}
