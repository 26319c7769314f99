// Package api is the single outbound channel to the telemedicine backend.
//
// Every request carries the session's bearer token when one is set. A 401
// from any endpoint runs the registered unauthorized hooks (forced logout)
// before the call is rejected.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/afyamkononi/afyadmin/internal/errors"
	"github.com/afyamkononi/afyadmin/internal/log"
	"github.com/afyamkononi/afyadmin/internal/metrics"
	"github.com/afyamkononi/afyadmin/internal/telemetry"
	"github.com/afyamkononi/afyadmin/internal/version"
)

// Header names set on every request.
const (
	HeaderAuthorization = "Authorization"
	HeaderRequestID     = "X-Request-ID"
)

// Config configures a Client.
type Config struct {
	// BaseURL prefixes every relative path, e.g. https://budgetwithai.com/admin
	BaseURL string

	// Timeout bounds a whole request. Zero leaves the transport default.
	Timeout time.Duration

	// RateLimit caps outgoing requests per second. Zero disables limiting.
	RateLimit float64

	// RateBurst is the limiter burst size (default 1 when RateLimit is set).
	RateBurst int

	// HTTPClient overrides the underlying client (tests use httptest's).
	HTTPClient *http.Client

	Logger  *log.Logger
	Metrics *metrics.Metrics
}

// Client is the backend API client.
type Client struct {
	baseURL *url.URL
	http    *http.Client
	limiter *rate.Limiter
	logger  *log.Logger
	metrics *metrics.Metrics
	agent   string

	mu             sync.RWMutex
	token          string
	onUnauthorized []func(error)
}

// NewClient creates a backend API client.
func NewClient(cfg Config) (*Client, error) {
	if strings.TrimSpace(cfg.BaseURL) == "" {
		return nil, errors.NewConfigInvalidError("backend base URL is empty")
	}
	base, err := url.Parse(strings.TrimRight(cfg.BaseURL, "/"))
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, errors.NewConfigInvalidError(fmt.Sprintf("backend base URL %q is not absolute", cfg.BaseURL))
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}

	c := &Client{
		baseURL: base,
		http:    httpClient,
		logger:  log.OrDefault(cfg.Logger).With("component", "api"),
		metrics: cfg.Metrics,
		agent:   "afyadmin/" + version.GetInfo().Short(),
	}
	if cfg.RateLimit > 0 {
		burst := cfg.RateBurst
		if burst <= 0 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), burst)
	}
	return c, nil
}

// BaseURL returns the configured base URL.
func (c *Client) BaseURL() string {
	return c.baseURL.String()
}

// SetToken sets the bearer token attached to later requests. An empty token
// makes later requests unauthenticated.
func (c *Client) SetToken(token string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.token = token
}

// Token returns the current bearer token.
func (c *Client) Token() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

// OnUnauthorized registers fn to run whenever a protected request gets a 401.
// Hooks run before the originating call returns.
func (c *Client) OnUnauthorized(fn func(error)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onUnauthorized = append(c.onUnauthorized, fn)
}

// RequestOption customises a single request.
type RequestOption func(*requestOptions)

type requestOptions struct {
	public bool
	query  url.Values
}

// Public marks a request as belonging to the login flow: no bearer token is
// attached and a 401 does not run the unauthorized hooks.
func Public() RequestOption {
	return func(o *requestOptions) { o.public = true }
}

// Query adds query parameters.
func Query(values url.Values) RequestOption {
	return func(o *requestOptions) { o.query = values }
}

// Get performs a GET and decodes the body into out.
func (c *Client) Get(ctx context.Context, path string, out any, opts ...RequestOption) error {
	return c.Do(ctx, http.MethodGet, path, nil, out, opts...)
}

// Post performs a POST with a JSON body.
func (c *Client) Post(ctx context.Context, path string, body, out any, opts ...RequestOption) error {
	return c.Do(ctx, http.MethodPost, path, body, out, opts...)
}

// Put performs a PUT with a JSON body.
func (c *Client) Put(ctx context.Context, path string, body, out any, opts ...RequestOption) error {
	return c.Do(ctx, http.MethodPut, path, body, out, opts...)
}

// Delete performs a DELETE.
func (c *Client) Delete(ctx context.Context, path string, out any, opts ...RequestOption) error {
	return c.Do(ctx, http.MethodDelete, path, nil, out, opts...)
}

// Do sends one request. On success the body is decoded into out unmodified:
// pass a *json.RawMessage to keep it raw, or nil to discard it.
func (c *Client) Do(ctx context.Context, method, path string, body, out any, opts ...RequestOption) error {
	var o requestOptions
	for _, opt := range opts {
		opt(&o)
	}

	requestID := uuid.NewString()
	ctx = log.ContextWithRequestID(ctx, requestID)
	logger := c.logger.WithContext(ctx).With("method", method, "path", path)

	ctx, span := telemetry.StartRequestSpan(ctx, method, path)
	defer span.End()

	target, err := c.resolve(path, o.query)
	if err != nil {
		telemetry.RecordError(span, err)
		return err
	}

	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			err = errors.Wrap(errors.ErrCodeAPIEncode, "failed to encode request body", err)
			telemetry.RecordError(span, err)
			return err
		}
		reqBody = bytes.NewReader(data)
	}

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			err = errors.Wrap(errors.ErrCodeAPIRateLimited, "request not sent", err)
			telemetry.RecordError(span, err)
			return err
		}
	}

	req, err := http.NewRequestWithContext(ctx, method, target, reqBody)
	if err != nil {
		err = errors.Wrap(errors.ErrCodeAPIRequest, "failed to create request", err)
		telemetry.RecordError(span, err)
		return err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.agent)
	req.Header.Set(HeaderRequestID, requestID)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if !o.public {
		if token := c.Token(); token != "" {
			req.Header.Set(HeaderAuthorization, "Bearer "+token)
		}
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	elapsed := time.Since(start)
	if err != nil {
		c.metrics.ObserveRequest(method, path, 0, elapsed)
		logger.WithError(err).Warn("request failed")
		err = errors.Wrap(errors.ErrCodeAPIRequest, fmt.Sprintf("%s %s failed", method, path), err).
			WithSuggestion("Check your network connection and the configured base URL")
		telemetry.RecordError(span, err)
		return err
	}
	defer resp.Body.Close()

	c.metrics.ObserveRequest(method, path, resp.StatusCode, elapsed)
	telemetry.RecordStatus(span, resp.StatusCode)
	logger.Debug("request completed", "status", resp.StatusCode, "duration", elapsed)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		err := c.failure(resp, method, path, requestID)
		telemetry.RecordError(span, err)
		if resp.StatusCode == http.StatusUnauthorized && !o.public {
			c.metrics.ObserveForcedLogout()
			logger.Warn("session rejected by backend")
			c.unauthorized(err)
		}
		return err
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return errors.Wrap(errors.ErrCodeAPIDecode, "failed to read response", err)
	}
	if raw, ok := out.(*json.RawMessage); ok {
		*raw = append((*raw)[:0], data...)
		return nil
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return errors.Wrap(errors.ErrCodeAPIDecode, fmt.Sprintf("failed to decode %s %s response", method, path), err)
	}
	return nil
}

// resolve joins path onto the base URL. Absolute http(s) URLs pass through.
func (c *Client) resolve(path string, query url.Values) (string, error) {
	var u *url.URL
	if strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		parsed, err := url.Parse(path)
		if err != nil {
			return "", errors.Wrap(errors.ErrCodeAPIRequest, fmt.Sprintf("invalid URL %q", path), err)
		}
		u = parsed
	} else {
		joined := *c.baseURL
		joined.Path = strings.TrimRight(c.baseURL.Path, "/") + "/" + strings.TrimLeft(path, "/")
		u = &joined
	}
	if len(query) > 0 {
		q := u.Query()
		for k, vs := range query {
			for _, v := range vs {
				q.Add(k, v)
			}
		}
		u.RawQuery = q.Encode()
	}
	return u.String(), nil
}

func (c *Client) failure(resp *http.Response, method, path, requestID string) error {
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))

	apiErr := &Error{
		StatusCode: resp.StatusCode,
		Method:     method,
		Path:       path,
		RequestID:  requestID,
	}
	var parsed errorResponse
	if err := json.Unmarshal(data, &parsed); err == nil && parsed.text() != "" {
		apiErr.Message = parsed.text()
	} else {
		apiErr.Message = strings.TrimSpace(string(data))
	}

	if resp.StatusCode == http.StatusUnauthorized {
		return errors.Wrap(errors.ErrCodeAPIUnauthorized, "backend rejected the credentials", apiErr)
	}
	return errors.Wrap(errors.ErrCodeAPIStatus, "backend returned an error", apiErr)
}

func (c *Client) unauthorized(err error) {
	c.mu.RLock()
	hooks := append([]func(error){}, c.onUnauthorized...)
	c.mu.RUnlock()
	for _, fn := range hooks {
		fn(err)
	}
}
