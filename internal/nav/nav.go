// Package nav holds the console's logical routes, the navigator that tracks
// the current one, and the guard that keeps protected routes behind a session.
package nav

import (
	"sync"
)

// Route is a logical screen of the console.
type Route string

// Known routes.
const (
	RouteLogin        Route = "/login"
	RouteDashboard    Route = "/"
	RouteDoctors      Route = "/doctors"
	RoutePatients     Route = "/patients"
	RouteAppointments Route = "/appointments"
	RouteReports      Route = "/reports"
	RouteFeedback     Route = "/feedback"
	RouteContact      Route = "/contact"
	RouteSettings     Route = "/settings"
)

// Routes lists every route in sidebar order.
var Routes = []Route{
	RouteDashboard,
	RouteDoctors,
	RoutePatients,
	RouteAppointments,
	RouteReports,
	RouteFeedback,
	RouteContact,
	RouteSettings,
	RouteLogin,
}

// Public reports whether r may be shown without a session.
func (r Route) Public() bool {
	return r == RouteLogin
}

// Known reports whether r is one of Routes.
func (r Route) Known() bool {
	for _, k := range Routes {
		if k == r {
			return true
		}
	}
	return false
}

// Navigator tracks the current route. Redirects replace the current route and
// are counted; a redirect to the route already shown is a no-op.
type Navigator struct {
	mu        sync.Mutex
	current   Route
	redirects int
	subs      map[int]func(Route)
	nextSub   int
}

// NewNavigator starts at the given route.
func NewNavigator(start Route) *Navigator {
	return &Navigator{
		current: start,
		subs:    make(map[int]func(Route)),
	}
}

// Current returns the route being shown.
func (n *Navigator) Current() Route {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.current
}

// Push moves to r on the operator's request.
func (n *Navigator) Push(r Route) {
	n.set(r, false)
}

// Redirect moves to r on the application's behalf. It returns false when r is
// already current.
func (n *Navigator) Redirect(r Route) bool {
	return n.set(r, true)
}

// Redirects returns how many effective redirects happened.
func (n *Navigator) Redirects() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.redirects
}

// Subscribe registers fn for every route change.
func (n *Navigator) Subscribe(fn func(Route)) func() {
	n.mu.Lock()
	defer n.mu.Unlock()
	id := n.nextSub
	n.nextSub++
	n.subs[id] = fn
	return func() {
		n.mu.Lock()
		defer n.mu.Unlock()
		delete(n.subs, id)
	}
}

func (n *Navigator) set(r Route, redirect bool) bool {
	n.mu.Lock()
	if n.current == r {
		n.mu.Unlock()
		return false
	}
	n.current = r
	if redirect {
		n.redirects++
	}
	subs := make([]func(Route), 0, len(n.subs))
	for _, fn := range n.subs {
		subs = append(subs, fn)
	}
	n.mu.Unlock()

	for _, fn := range subs {
		fn(r)
	}
	return true
}
