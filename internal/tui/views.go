package tui

import (
	stderrors "errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/afyamkononi/afyadmin/internal/api"
	apperrors "github.com/afyamkononi/afyadmin/internal/errors"
	"github.com/afyamkononi/afyadmin/internal/modal"
	"github.com/afyamkononi/afyadmin/internal/nav"
	"github.com/afyamkononi/afyadmin/internal/notify"
	"github.com/afyamkononi/afyadmin/internal/resource"
)

// View renders the current screen (required by Bubble Tea)
func (m Model) View() string {
	if m.quitting {
		return ""
	}

	switch m.route {
	case "":
		// Nothing protected renders until the session is resolved.
		return m.spinner.View() + " " + m.styles.Muted.Render("Checking session...")
	case nav.RouteLogin:
		return m.renderLogin()
	}
	return m.renderShell()
}

// renderLogin renders the sign-in form without the navigation chrome
func (m Model) renderLogin() string {
	var b strings.Builder

	b.WriteString(m.styles.Title.Render("Afya Mkononi Admin"))
	b.WriteString("\n")
	b.WriteString(m.styles.Subtitle.Render("Sign in to continue"))
	b.WriteString("\n\n")
	if m.login != nil {
		b.WriteString(m.login.View())
	}
	b.WriteString(m.renderNotes())
	return m.styles.Border.Render(b.String())
}

// renderShell renders sidebar, content and footer
func (m Model) renderShell() string {
	var content string
	switch {
	case m.confirm != nil:
		content = m.renderConfirm()
	case m.overlay != nil:
		content = m.renderOverlay()
	case m.route == nav.RouteDashboard:
		content = m.renderDashboard()
	case m.ctrl != nil:
		content = m.renderList()
	default:
		content = m.renderPlaceholder()
	}

	body := content
	if m.deps.Guard.ShowShell(m.route) {
		body = lipgloss.JoinHorizontal(lipgloss.Top, m.renderSidebar(), content)
	}
	return body + "\n" + m.renderNotes() + m.renderHelpLine()
}

func (m Model) renderSidebar() string {
	var b strings.Builder
	b.WriteString(m.styles.Title.Render("Afya Admin"))
	b.WriteString("\n")
	for i, r := range shellRoutes() {
		label := fmt.Sprintf("%d %s", i+1, m.routeTitle(r))
		if r == m.route {
			b.WriteString(m.styles.Highlighted.Render(label))
		} else {
			b.WriteString(m.styles.Muted.Render(" " + label))
		}
		b.WriteString("\n")
	}
	return m.styles.Sidebar.Render(b.String())
}

func (m Model) renderDashboard() string {
	var b strings.Builder
	b.WriteString(m.styles.Title.Render("Dashboard"))
	b.WriteString("\n")

	if m.loading {
		b.WriteString(m.spinner.View() + " Loading totals...\n")
		return b.String()
	}

	cards := []string{
		m.renderCard("Doctors", m.counts.Doctors),
		m.renderCard("Appointments", m.counts.Appointments),
		m.renderCard("Feedback", m.counts.Feedback),
	}
	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, cards...))
	return b.String()
}

func (m Model) renderCard(label string, n int64) string {
	return m.styles.Border.
		Width(20).
		MarginRight(1).
		Render(m.styles.Muted.Render(label) + "\n" + m.styles.Status.Render(fmt.Sprintf("%d", n)))
}

// renderList renders the entity table with its search and filter state
func (m Model) renderList() string {
	kind := m.ctrl.Kind()
	state := m.ctrl.State()

	var b strings.Builder
	b.WriteString(m.styles.Title.Render(kind.Title))
	b.WriteString("\n")

	var meta []string
	if m.searching || state.SearchQuery != "" {
		meta = append(meta, m.search.View())
	}
	if len(kind.Filters) > 0 {
		meta = append(meta, m.styles.Muted.Render("filter: ")+m.styles.Status.Render(state.ActiveFilter))
	}
	if len(meta) > 0 {
		b.WriteString(strings.Join(meta, "   "))
		b.WriteString("\n")
	}

	if m.loading {
		b.WriteString(m.spinner.View() + " Loading " + kind.Noun + "...\n")
	}
	if info := state.Err(); info != nil {
		b.WriteString(m.styles.Error.Render("Error: ") + info.Message + "\n")
	}

	if len(m.ctrl.Visible()) == 0 && !m.loading {
		b.WriteString(m.styles.Muted.Render("No " + kind.Noun + " to show"))
		b.WriteString("\n")
		return b.String()
	}
	b.WriteString(m.table.View())
	return b.String()
}

// renderOverlay renders the open modal
func (m Model) renderOverlay() string {
	mod := m.overlay.modal
	kind := m.ctrl.Kind()

	var b strings.Builder
	b.WriteString(m.styles.Title.Render(overlayTitle(mod.Mode(), kind)))
	b.WriteString("\n")

	if m.overlay.form == nil {
		d := mod.Draft()
		for _, f := range mod.Fields() {
			if f.Type == modal.Password {
				continue
			}
			b.WriteString(m.styles.Muted.Render(fmt.Sprintf("%-16s", f.Label)))
			b.WriteString(d.Get(f.Name))
			b.WriteString("\n")
		}
	} else {
		b.WriteString(m.overlay.form.View())
	}

	if m.overlay.err != "" {
		b.WriteString("\n")
		b.WriteString(m.styles.Error.Render("Error: ") + m.overlay.err)
	}
	return m.styles.Border.Render(b.String())
}

func (m Model) renderConfirm() string {
	return m.styles.Border.
		BorderForeground(lipgloss.Color("196")). // Red border
		Render(m.confirm.prompt + "\n\n" + m.styles.Key.Render("y") + m.styles.KeyDesc.Render(" delete  ") +
			m.styles.Key.Render("n") + m.styles.KeyDesc.Render(" cancel"))
}

func (m Model) renderPlaceholder() string {
	return m.styles.Title.Render(m.routeTitle(m.route)) + "\n" +
		m.styles.Muted.Render("Nothing to manage here yet")
}

// renderNotes renders pending notifications, newest last
func (m Model) renderNotes() string {
	if len(m.notes) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString("\n")
	for _, n := range m.notes {
		style := m.styles.Success
		if n.Severity == notify.Error {
			style = m.styles.Error
		}
		b.WriteString(style.Render(n.Title))
		if n.Description != "" {
			b.WriteString(" " + n.Description)
		}
		b.WriteString("\n")
	}
	return b.String()
}

// renderHelpLine renders the keyboard shortcuts for the current screen
func (m Model) renderHelpLine() string {
	var keys [][2]string
	switch {
	case m.confirm != nil:
		return ""
	case m.overlay != nil:
		keys = [][2]string{{"esc", "close"}}
		if m.overlay.form != nil {
			keys = append(keys, [2]string{"enter", "next/submit"})
		}
	case m.searching:
		keys = [][2]string{{"enter", "done"}, {"esc", "clear"}}
	default:
		keys = [][2]string{{"tab", "next"}, {"r", "reload"}}
		if m.ctrl != nil {
			kind := m.ctrl.Kind()
			keys = append(keys, [2]string{"/", "search"}, [2]string{"enter", "view"})
			if len(kind.Filters) > 0 {
				keys = append(keys, [2]string{"f", "filter"})
			}
			if kind.Can(resource.CanCreate) {
				keys = append(keys, [2]string{"a", "add"})
			}
			if kind.Can(resource.CanUpdate) {
				keys = append(keys, [2]string{"e", "edit"})
			}
			if kind.Can(resource.CanDelete) {
				keys = append(keys, [2]string{"d", "delete"})
			}
			if kind.FilterField == "status" && kind.Can(resource.CanUpdate) {
				keys = append(keys, [2]string{"m", "mark replied"})
			}
		}
		keys = append(keys, [2]string{"L", "logout"}, [2]string{"q", "quit"})
	}

	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = m.styles.Key.Render(k[0]) + " " + m.styles.KeyDesc.Render(k[1])
	}
	return m.styles.Help.Render(strings.Join(parts, " • "))
}

func (m Model) routeTitle(r nav.Route) string {
	switch r {
	case nav.RouteDashboard:
		return "Dashboard"
	case nav.RouteSettings:
		return "Settings"
	}
	if kind, ok := m.deps.Registry.ForRoute(r); ok {
		return kind.Title
	}
	return string(r)
}

func overlayTitle(mode modal.Mode, kind *resource.Kind) string {
	switch mode {
	case modal.Add:
		return "Add " + kind.Singular
	case modal.Edit:
		return "Edit " + kind.Singular
	default:
		return capitalize(kind.Singular) + " details"
	}
}

// columnTitle turns a field name into a table header, e.g. "first_name" to
// "First Name".
func columnTitle(field string) string {
	words := strings.Split(field, "_")
	for i, w := range words {
		words[i] = capitalize(w)
	}
	return strings.Join(words, " ")
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

// errorText is the operator-facing message of err.
func errorText(err error) string {
	var verr *modal.ValidationError
	if stderrors.As(err, &verr) {
		return verr.Error()
	}
	var apiErr *api.Error
	if stderrors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}
	var ce *apperrors.ConsoleError
	if stderrors.As(err, &ce) {
		return ce.Message
	}
	return err.Error()
}
