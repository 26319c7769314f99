package session

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/afyamkononi/afyadmin/internal/api"
	"github.com/afyamkononi/afyadmin/internal/errors"
	"github.com/afyamkononi/afyadmin/internal/log"
	"github.com/afyamkononi/afyadmin/internal/metrics"
	"github.com/afyamkononi/afyadmin/internal/nav"
)

// DefaultSignInPath is the backend endpoint that exchanges credentials for a token.
const DefaultSignInPath = "/signin"

// Backend is the part of the API client the store drives. The store pushes
// the token into it and registers itself for 401s.
type Backend interface {
	Post(ctx context.Context, path string, body, out any, opts ...api.RequestOption) error
	SetToken(token string)
	OnUnauthorized(fn func(error))
}

// Options configures a Store.
type Options struct {
	Backend    Backend
	Navigator  *nav.Navigator
	Tokens     TokenStore
	Logger     *log.Logger
	Metrics    *metrics.Metrics
	SignInPath string
	Now        func() time.Time
}

// Store is the single source of truth for the session. It is safe for
// concurrent use; subscribers are called outside the lock.
type Store struct {
	backend   Backend
	navigator *nav.Navigator
	tokens    TokenStore
	logger    *log.Logger
	metrics   *metrics.Metrics
	signIn    string
	now       func() time.Time

	mu      sync.RWMutex
	current Session
	subs    map[int]func(Session)
	nextSub int
}

// NewStore creates a logged-out store and registers it with the backend so
// any 401 on a protected request forces a logout.
func NewStore(opts Options) *Store {
	s := &Store{
		backend:   opts.Backend,
		navigator: opts.Navigator,
		tokens:    opts.Tokens,
		logger:    log.OrDefault(opts.Logger).With("component", "session"),
		metrics:   opts.Metrics,
		signIn:    opts.SignInPath,
		now:       opts.Now,
		subs:      make(map[int]func(Session)),
	}
	if s.signIn == "" {
		s.signIn = DefaultSignInPath
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.tokens == nil {
		s.tokens = NewMemoryTokenStore()
	}
	if s.backend != nil {
		s.backend.OnUnauthorized(func(error) {
			s.ForceLogout("backend returned 401")
		})
	}
	return s
}

// Init restores a persisted session. Expired tokens are discarded. A restore
// failure leaves the store logged out and is returned for the caller to log.
func (s *Store) Init(ctx context.Context) error {
	rec, err := s.tokens.Load(ctx)
	if err != nil {
		return err
	}
	if rec.Empty() {
		return nil
	}

	restored := fromToken(rec.Token, rec.Email)
	if restored.Expired(s.now()) {
		s.logger.Info("discarding expired session", "email", rec.Email, "expired_at", restored.ExpiresAt)
		if err := s.tokens.Clear(ctx); err != nil {
			s.logger.WithError(err).Warn("failed to clear expired session")
		}
		return nil
	}

	s.set(restored)
	s.logger.Debug("session restored", "email", rec.Email)
	return nil
}

type signInRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type signInResponse struct {
	Success     *bool  `json:"success"`
	Token       string `json:"token"`
	AccessToken string `json:"access_token"`
	User        *User  `json:"user"`
}

func (r signInResponse) token() string {
	if r.Token != "" {
		return r.Token
	}
	return r.AccessToken
}

// Login signs in with the backend. Any 2xx answer counts as success unless
// its body says "success": false; the token and user in the body are
// optional. It returns false with a nil error when the backend rejects the
// credentials, and an error when the attempt could not be completed. A failed
// attempt leaves the current session as is.
func (s *Store) Login(ctx context.Context, email, password string) (bool, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return false, errors.NewRequiredFieldError("email")
	}
	if password == "" {
		return false, errors.NewRequiredFieldError("password")
	}
	if s.backend == nil {
		return false, errors.NewConfigInvalidError("no backend configured")
	}

	var resp signInResponse
	err := s.backend.Post(ctx, s.signIn, signInRequest{Email: email, Password: password}, &resp, api.Public())
	if err != nil {
		if code := api.StatusCode(err); code >= 400 && code < 500 {
			s.metrics.ObserveLogin("rejected")
			s.logger.Info("sign-in rejected", "email", email, "status", code)
			return false, nil
		}
		s.metrics.ObserveLogin("error")
		s.logger.WithError(err).Warn("sign-in failed", "email", email)
		return false, err
	}

	if resp.Success != nil && !*resp.Success {
		s.metrics.ObserveLogin("rejected")
		s.logger.Info("sign-in rejected", "email", email, "status", "success=false")
		return false, nil
	}

	token := resp.token()
	if token == "" {
		s.logger.Debug("sign-in response carried no token, requests go out without a bearer")
	}

	next := fromToken(token, email)
	if resp.User != nil {
		if resp.User.Email == "" {
			resp.User.Email = email
		}
		next.User = resp.User
	}

	if err := s.tokens.Save(ctx, Record{Token: token, Email: next.User.Email, SignedIn: true, SavedAt: s.now()}); err != nil {
		s.logger.WithError(err).Warn("failed to persist session")
	}
	s.set(next)
	s.metrics.ObserveLogin("ok")
	s.logger.Info("signed in", "email", next.User.Email)
	return true, nil
}

// Logout ends the session on the operator's request and navigates to login.
func (s *Store) Logout(ctx context.Context) error {
	s.metrics.ObserveLogout("operator")
	err := s.clear(ctx)
	s.redirect()
	return err
}

// ForceLogout ends the session because the backend rejected it. Repeated
// calls are harmless: the navigator ignores a redirect to the route already
// shown and clearing an empty session changes nothing.
func (s *Store) ForceLogout(reason string) {
	if s.IsAuthenticated() {
		s.metrics.ObserveLogout("forced")
		s.logger.Warn("session ended", "reason", reason)
		if err := s.clear(context.Background()); err != nil {
			s.logger.WithError(err).Warn("failed to clear persisted session")
		}
	}
	s.redirect()
}

// Current returns a snapshot of the session.
func (s *Store) Current() Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// Token returns the bearer token, or "".
func (s *Store) Token() string {
	return s.Current().Token
}

// User returns the authenticated user, or nil.
func (s *Store) User() *User {
	return s.Current().User
}

// IsAuthenticated reports whether the operator is signed in.
func (s *Store) IsAuthenticated() bool {
	return s.Current().Authenticated()
}

// Subscribe calls fn with every new session snapshot until stop is called.
func (s *Store) Subscribe(fn func(Session)) (stop func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.subs, id)
	}
}

// Watch adapts Subscribe to the navigation guard.
func (s *Store) Watch(fn func(authenticated bool)) (stop func()) {
	return s.Subscribe(func(sess Session) { fn(sess.Authenticated()) })
}

func (s *Store) clear(ctx context.Context) error {
	s.set(Session{})
	return s.tokens.Clear(ctx)
}

func (s *Store) set(next Session) {
	if s.backend != nil {
		s.backend.SetToken(next.Token)
	}

	s.mu.Lock()
	s.current = next
	subs := make([]func(Session), 0, len(s.subs))
	for _, fn := range s.subs {
		subs = append(subs, fn)
	}
	s.mu.Unlock()

	for _, fn := range subs {
		fn(next)
	}
}

func (s *Store) redirect() {
	if s.navigator != nil {
		s.navigator.Redirect(nav.RouteLogin)
	}
}
