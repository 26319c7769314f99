package health

import (
	"context"
	"net/http"
	"time"

	"github.com/afyamkononi/afyadmin/internal/session"
)

// BackendChecker probes the backend base URL. Any HTTP answer means the host
// is reachable; a 5xx answer is degraded.
type BackendChecker struct {
	baseURL string
	client  *http.Client
}

// NewBackendChecker creates a checker for baseURL. A nil client uses
// http.DefaultClient.
func NewBackendChecker(baseURL string, client *http.Client) *BackendChecker {
	if client == nil {
		client = http.DefaultClient
	}
	return &BackendChecker{baseURL: baseURL, client: client}
}

// Name implements Checker.
func (c *BackendChecker) Name() string { return "backend" }

// Check implements Checker.
func (c *BackendChecker) Check(ctx context.Context) *Result {
	start := time.Now()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL, nil)
	if err != nil {
		return Unhealthy("invalid backend URL").WithDetail("error", err.Error())
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return Unhealthy("backend unreachable").
			WithDetail("url", c.baseURL).
			WithDetail("error", err.Error()).
			WithLatency(time.Since(start))
	}
	defer resp.Body.Close()

	result := Healthy("backend reachable")
	if resp.StatusCode >= http.StatusInternalServerError {
		result = Degraded("backend answers with server errors")
	}
	return result.
		WithDetail("url", c.baseURL).
		WithDetail("status", resp.StatusCode).
		WithLatency(time.Since(start))
}

// SessionSource exposes the current session. *session.Store satisfies it.
type SessionSource interface {
	Current() session.Session
}

// SessionChecker reports whether someone is signed in and whether the token
// is still valid.
type SessionChecker struct {
	source SessionSource
	now    func() time.Time
}

// NewSessionChecker creates a checker over source.
func NewSessionChecker(source SessionSource) *SessionChecker {
	return &SessionChecker{source: source, now: time.Now}
}

// Name implements Checker.
func (c *SessionChecker) Name() string { return "session" }

// Check implements Checker.
func (c *SessionChecker) Check(context.Context) *Result {
	s := c.source.Current()
	if !s.Authenticated() {
		return Degraded("not signed in")
	}
	if s.Expired(c.now()) {
		return Degraded("session expired").WithDetail("expired_at", s.ExpiresAt)
	}

	result := Healthy("signed in")
	if s.User != nil {
		result.WithDetail("email", s.User.Email)
	}
	if !s.ExpiresAt.IsZero() {
		result.WithDetail("expires_at", s.ExpiresAt)
	}
	return result
}

// TokenStoreChecker verifies the persisted session can be read.
type TokenStoreChecker struct {
	store session.TokenStore
}

// NewTokenStoreChecker creates a checker over store.
func NewTokenStoreChecker(store session.TokenStore) *TokenStoreChecker {
	return &TokenStoreChecker{store: store}
}

// Name implements Checker.
func (c *TokenStoreChecker) Name() string { return "token-store" }

// Check implements Checker.
func (c *TokenStoreChecker) Check(ctx context.Context) *Result {
	rec, err := c.store.Load(ctx)
	if err != nil {
		return Unhealthy("token store unreadable").WithDetail("error", err.Error())
	}
	if rec == nil {
		return Healthy("no session stored")
	}
	return Healthy("session stored").WithDetail("saved_at", rec.SavedAt)
}
