package nav

import (
	"sync"
)

// AuthSource is the view of the session the guard needs.
type AuthSource interface {
	IsAuthenticated() bool
	// Watch calls fn on every authentication change until stop is called.
	Watch(fn func(authenticated bool)) (stop func())
}

// GuardState is the guard's resolution of the session.
type GuardState int

const (
	// Unknown means the session has not been resolved yet.
	Unknown GuardState = iota
	// Authorized means protected content may render.
	Authorized
	// Unauthorized means protected content must not render.
	Unauthorized
)

// String returns the state name.
func (s GuardState) String() string {
	switch s {
	case Authorized:
		return "authorized"
	case Unauthorized:
		return "unauthorized"
	default:
		return "unknown"
	}
}

// Guard keeps protected routes hidden while the session is unauthenticated.
// Entering Unauthorized redirects to the login route once.
type Guard struct {
	mu    sync.Mutex
	src   AuthSource
	nav   *Navigator
	state GuardState
	stop  func()
}

// NewGuard creates a guard in the Unknown state. Call Start to resolve it.
func NewGuard(src AuthSource, navigator *Navigator) *Guard {
	return &Guard{src: src, nav: navigator}
}

// Start resolves the current session and follows every later change.
func (g *Guard) Start() {
	g.mu.Lock()
	if g.stop != nil {
		g.mu.Unlock()
		return
	}
	g.mu.Unlock()

	stop := g.src.Watch(g.evaluate)

	g.mu.Lock()
	g.stop = stop
	g.mu.Unlock()

	g.evaluate(g.src.IsAuthenticated())
}

// Stop detaches the guard from the session.
func (g *Guard) Stop() {
	g.mu.Lock()
	stop := g.stop
	g.stop = nil
	g.mu.Unlock()
	if stop != nil {
		stop()
	}
}

// State returns the current resolution.
func (g *Guard) State() GuardState {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.state
}

// Allow reports whether r may render now. Nothing protected renders while
// the state is Unknown.
func (g *Guard) Allow(r Route) bool {
	if r.Public() {
		return true
	}
	return g.State() == Authorized
}

// Resolve returns the route that should render in place of r.
func (g *Guard) Resolve(r Route) Route {
	if g.Allow(r) {
		return r
	}
	if g.State() == Unauthorized {
		g.nav.Redirect(RouteLogin)
		return RouteLogin
	}
	return ""
}

// ShowShell reports whether the navigation chrome belongs on r.
func (g *Guard) ShowShell(r Route) bool {
	return !r.Public() && g.State() == Authorized
}

func (g *Guard) evaluate(authenticated bool) {
	next := Unauthorized
	if authenticated {
		next = Authorized
	}

	g.mu.Lock()
	prev := g.state
	g.state = next
	g.mu.Unlock()

	if next == Unauthorized && prev != Unauthorized && !g.nav.Current().Public() {
		g.nav.Redirect(RouteLogin)
	}
}
