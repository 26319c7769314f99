package tui

import (
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/afyamkononi/afyadmin/internal/nav"
	"github.com/afyamkononi/afyadmin/internal/notify"
)

type chanSender chan tea.Msg

func (c chanSender) Send(msg tea.Msg) { c <- msg }

func receive(t *testing.T, c chanSender) tea.Msg {
	t.Helper()
	select {
	case msg := <-c:
		return msg
	case <-time.After(2 * time.Second):
		t.Fatal("nothing forwarded")
		return nil
	}
}

func TestAdapter_ForwardsEvents(t *testing.T) {
	navigator := nav.NewNavigator(nav.RouteDashboard)
	notes := notify.NewChannel(0)
	sender := make(chanSender, 4)

	a := NewAdapter(sender)
	a.Attach(Deps{Navigator: navigator, Notes: notes})
	defer a.Stop()

	navigator.Push(nav.RouteDoctors)
	assert.Equal(t, RouteMsg{Route: nav.RouteDoctors}, receive(t, sender))

	notes.Error("Error", "Failed to fetch doctors")
	msg, ok := receive(t, sender).(NotificationMsg)
	require.True(t, ok)
	assert.Equal(t, "Failed to fetch doctors", msg.Notification.Description)
}

func TestAdapter_StopDetaches(t *testing.T) {
	navigator := nav.NewNavigator(nav.RouteDashboard)
	sender := make(chanSender, 4)

	a := NewAdapter(sender)
	a.Attach(Deps{Navigator: navigator})
	a.Stop()

	navigator.Push(nav.RouteDoctors)
	select {
	case msg := <-sender:
		t.Fatalf("unexpected %v", msg)
	case <-time.After(50 * time.Millisecond):
	}
}
