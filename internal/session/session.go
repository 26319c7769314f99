// Package session owns the operator's authentication state: the bearer token,
// who it belongs to, and the login/logout transitions that follow from it.
package session

import (
	"context"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/afyamkononi/afyadmin/internal/errors"
)

// User is the authenticated administrator.
type User struct {
	ID    string `json:"id,omitempty" yaml:"id,omitempty"`
	Email string `json:"email" yaml:"email"`
	Name  string `json:"name,omitempty" yaml:"name,omitempty"`
	Role  string `json:"role,omitempty" yaml:"role,omitempty"`
}

// Session is a snapshot of the authentication state. The zero value is the
// logged-out session.
type Session struct {
	SignedIn  bool      `json:"signed_in" yaml:"signed_in"`
	Token     string    `json:"-" yaml:"-"`
	User      *User     `json:"user,omitempty" yaml:"user,omitempty"`
	ExpiresAt time.Time `json:"expires_at,omitempty" yaml:"expires_at,omitempty"`
}

// Authenticated reports whether the backend accepted a sign-in. Backends that
// use cookie or network-level auth answer without a token, so the token is
// optional.
func (s Session) Authenticated() bool {
	return s.SignedIn || s.Token != ""
}

// Expired reports whether the token carries an expiry that has passed.
func (s Session) Expired(now time.Time) bool {
	return !s.ExpiresAt.IsZero() && !now.Before(s.ExpiresAt)
}

// Claims are the JWT claims the console reads from a backend token.
type Claims struct {
	jwt.RegisteredClaims

	UserID string `json:"user_id,omitempty"`
	Email  string `json:"email,omitempty"`
	Name   string `json:"name,omitempty"`
	Role   string `json:"role,omitempty"`
}

// ParseToken decodes a JWT without verifying its signature. The backend is
// the only party that can verify it; the console only reads identity and
// expiry for display and to discard stale tokens.
func ParseToken(token string) (*Claims, error) {
	claims := &Claims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return nil, errors.Wrap(errors.ErrCodeAuthTokenMalformed, "token is not a JWT", err)
	}
	return claims, nil
}

// fromToken builds a session from a raw token, filling what the claims carry.
// Opaque tokens are accepted and yield a session without identity or expiry.
func fromToken(token, fallbackEmail string) Session {
	s := Session{SignedIn: true, Token: token}
	claims, err := ParseToken(token)
	if err != nil {
		if fallbackEmail != "" {
			s.User = &User{Email: fallbackEmail}
		}
		return s
	}

	u := &User{
		ID:    claims.UserID,
		Email: claims.Email,
		Name:  claims.Name,
		Role:  claims.Role,
	}
	if u.ID == "" {
		u.ID = claims.Subject
	}
	if u.Email == "" {
		if strings.Contains(claims.Subject, "@") {
			u.Email = claims.Subject
		} else {
			u.Email = fallbackEmail
		}
	}
	s.User = u
	if claims.ExpiresAt != nil {
		s.ExpiresAt = claims.ExpiresAt.Time
	}
	return s
}

// contextKey scopes session values stored in a context.
type contextKey struct{}

// WithContext returns a copy of ctx carrying s.
func WithContext(ctx context.Context, s Session) context.Context {
	return context.WithValue(ctx, contextKey{}, s)
}

// FromContext returns the session stored by WithContext.
func FromContext(ctx context.Context) (Session, bool) {
	s, ok := ctx.Value(contextKey{}).(Session)
	return s, ok
}
