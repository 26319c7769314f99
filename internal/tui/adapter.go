package tui

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/afyamkononi/afyadmin/internal/nav"
	"github.com/afyamkononi/afyadmin/internal/notify"
)

// Sender receives messages for a running program. *tea.Program satisfies it.
type Sender interface {
	Send(msg tea.Msg)
}

// Adapter bridges navigator, session and notification events into the
// program. Events are forwarded from their own goroutine because they may be
// raised while the program is inside Update.
type Adapter struct {
	sender Sender
	stops  []func()
}

// NewAdapter creates an adapter forwarding to sender.
func NewAdapter(sender Sender) *Adapter {
	return &Adapter{sender: sender}
}

// Attach starts forwarding events from deps.
func (a *Adapter) Attach(deps Deps) {
	if deps.Navigator != nil {
		a.stops = append(a.stops, deps.Navigator.Subscribe(func(r nav.Route) {
			a.send(RouteMsg{Route: r})
		}))
	}
	if deps.Store != nil {
		a.stops = append(a.stops, deps.Store.Watch(func(authenticated bool) {
			a.send(SessionMsg{Authenticated: authenticated})
		}))
	}
	if deps.Notes != nil {
		a.stops = append(a.stops, deps.Notes.Subscribe(func(n notify.Notification) {
			a.send(NotificationMsg{Notification: n})
		}))
	}
}

// Stop detaches every subscription.
func (a *Adapter) Stop() {
	for _, stop := range a.stops {
		stop()
	}
	a.stops = nil
}

func (a *Adapter) send(msg tea.Msg) {
	go a.sender.Send(msg)
}

// Run starts the console and blocks until the operator quits or ctx ends.
// The guard must already be started.
func Run(ctx context.Context, deps Deps, opts ...tea.ProgramOption) error {
	model := NewModel(ctx, deps)

	opts = append([]tea.ProgramOption{tea.WithAltScreen(), tea.WithContext(ctx)}, opts...)
	program := tea.NewProgram(model, opts...)

	adapter := NewAdapter(program)
	adapter.Attach(model.deps)
	defer adapter.Stop()

	if _, err := program.Run(); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("console failed: %w", err)
	}
	return nil
}
