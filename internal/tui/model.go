// Package tui is the interactive admin console. It renders the route the
// guard allows, drives one resource controller per entity screen and shows
// notifications in a footer.
package tui

import (
	"context"
	"strconv"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/afyamkononi/afyadmin/internal/log"
	"github.com/afyamkononi/afyadmin/internal/metrics"
	"github.com/afyamkononi/afyadmin/internal/modal"
	"github.com/afyamkononi/afyadmin/internal/nav"
	"github.com/afyamkononi/afyadmin/internal/notify"
	"github.com/afyamkononi/afyadmin/internal/resource"
	"github.com/afyamkononi/afyadmin/internal/session"
)

// noteTTL is how long a notification stays in the footer.
const noteTTL = 5 * time.Second

// maxNotes bounds the footer.
const maxNotes = 3

// Deps are the collaborators the console drives.
type Deps struct {
	Store     *session.Store
	Navigator *nav.Navigator
	Guard     *nav.Guard
	Registry  *resource.Registry
	Client    resource.Client
	Notes     *notify.Channel
	Logger    *log.Logger
	Metrics   *metrics.Metrics
}

// credentials back the login form. They live on the heap so the form's
// bindings survive copies of the model.
type credentials struct {
	email    string
	password string
}

// overlay is an open modal and its form.
type overlay struct {
	modal  *modal.Modal
	form   *huh.Form
	result *error
	err    string
}

// pendingDelete is a delete waiting for the operator's answer.
type pendingDelete struct {
	id     int64
	prompt string
}

// Model represents the console state
type Model struct {
	ctx  context.Context
	deps Deps

	// route is what is rendered: the guard's resolution of the navigator.
	route nav.Route

	// ctrl is the controller of the mounted entity screen, if any.
	ctrl     *resource.Controller
	overview *resource.Overview
	counts   resource.Counts
	loading  bool

	table     table.Model
	search    textinput.Model
	searching bool
	spinner   spinner.Model

	login   *huh.Form
	creds   *credentials
	overlay *overlay
	confirm *pendingDelete

	notes    []notify.Notification
	width    int
	height   int
	quitting bool

	styles Styles
}

// Styles contains lipgloss styles for the TUI
type Styles struct {
	Title       lipgloss.Style
	Subtitle    lipgloss.Style
	Status      lipgloss.Style
	Error       lipgloss.Style
	Success     lipgloss.Style
	Muted       lipgloss.Style
	Border      lipgloss.Style
	Highlighted lipgloss.Style
	Sidebar     lipgloss.Style
	Help        lipgloss.Style
	Key         lipgloss.Style
	KeyDesc     lipgloss.Style
}

// NewModel creates a console model. It renders nothing protected until the
// first route message has been resolved by the guard.
func NewModel(ctx context.Context, deps Deps) Model {
	deps.Logger = log.OrDefault(deps.Logger).With("component", "tui")
	if deps.Notes == nil {
		deps.Notes = notify.NewChannel(0)
	}

	search := textinput.New()
	search.Placeholder = "search"
	search.Prompt = "/ "

	return Model{
		ctx:  ctx,
		deps: deps,
		overview: resource.NewOverview(deps.Registry, resource.Options{
			Client: deps.Client, Notifier: deps.Notes, Logger: deps.Logger, Metrics: deps.Metrics,
		}),
		search:  search,
		spinner: spinner.New(spinner.WithSpinner(spinner.Dot)),
		styles:  DefaultStyles(),
	}
}

// DefaultStyles returns the default lipgloss styles
func DefaultStyles() Styles {
	return Styles{
		Title: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("63")). // Purple
			MarginBottom(1),
		Subtitle: lipgloss.NewStyle().
			Foreground(lipgloss.Color("241")), // Gray
		Status: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("86")), // Cyan
		Error: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("196")), // Red
		Success: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("46")), // Green
		Muted: lipgloss.NewStyle().
			Foreground(lipgloss.Color("241")), // Gray
		Border: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("63")). // Purple
			Padding(1, 2),
		Highlighted: lipgloss.NewStyle().
			Background(lipgloss.Color("63")).  // Purple
			Foreground(lipgloss.Color("230")). // Light yellow
			Bold(true).
			Padding(0, 1),
		Sidebar: lipgloss.NewStyle().
			Border(lipgloss.NormalBorder(), false, true, false, false).
			BorderForeground(lipgloss.Color("241")).
			PaddingRight(2).
			MarginRight(2),
		Help: lipgloss.NewStyle().
			Foreground(lipgloss.Color("241")). // Gray
			MarginTop(1),
		Key: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("63")), // Purple
		KeyDesc: lipgloss.NewStyle().
			Foreground(lipgloss.Color("241")), // Gray
	}
}

// Init resolves the starting route (required by Bubble Tea)
func (m Model) Init() tea.Cmd {
	current := m.deps.Navigator.Current()
	return tea.Batch(m.spinner.Tick, func() tea.Msg { return RouteMsg{Route: current} })
}

// Update handles messages and updates the model state (required by Bubble Tea)
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		if m.ctrl != nil {
			m.table.SetHeight(m.tableHeight())
		}
		return m, nil

	case tea.KeyMsg:
		return m.handleKeyPress(msg)

	case RouteMsg:
		return m.mount(m.deps.Navigator.Current())

	case SessionMsg:
		return m.mount(m.deps.Navigator.Current())

	case NotificationMsg:
		m.notes = append(m.notes, msg.Notification)
		if len(m.notes) > maxNotes {
			m.notes = m.notes[len(m.notes)-maxNotes:]
		}
		at := msg.Notification.At
		return m, tea.Tick(noteTTL, func(time.Time) tea.Msg { return expireNoteMsg{at: at} })

	case expireNoteMsg:
		kept := m.notes[:0]
		for _, n := range m.notes {
			if n.At.After(msg.at) {
				kept = append(kept, n)
			}
		}
		m.notes = kept
		return m, nil

	case loadedMsg:
		if msg.ctrl == m.ctrl {
			m.loading = false
			m.refreshRows()
		}
		return m, nil

	case countsMsg:
		if m.route == nav.RouteDashboard {
			m.loading = false
			m.counts = msg.counts
		}
		return m, nil

	case loginResultMsg:
		return m.loginResult(msg)

	case submittedMsg:
		return m.submitted(msg)

	case mutatedMsg:
		if msg.ctrl == m.ctrl {
			m.refreshRows()
		}
		return m, nil

	case loggedOutMsg:
		return m.mount(m.deps.Navigator.Current())

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	return m.updateForms(msg)
}

// mount renders r, or what the guard puts in its place. Leaving an entity
// screen closes its controller so late responses are dropped.
func (m Model) mount(r nav.Route) (tea.Model, tea.Cmd) {
	resolved := m.deps.Guard.Resolve(r)
	if resolved == m.route {
		return m, nil
	}

	if m.ctrl != nil {
		m.ctrl.Close()
		m.ctrl = nil
	}
	m.overlay = nil
	m.confirm = nil
	m.searching = false
	m.search.Reset()
	m.search.Blur()
	m.loading = false
	m.route = resolved

	switch resolved {
	case "":
		return m, nil
	case nav.RouteLogin:
		m.creds = &credentials{}
		m.login = loginForm(m.creds)
		return m, m.login.Init()
	case nav.RouteDashboard:
		m.loading = true
		return m, m.loadCounts()
	}

	kind, ok := m.deps.Registry.ForRoute(resolved)
	if !ok {
		return m, nil
	}
	m.ctrl = resource.NewController(kind, resource.Options{
		Client:   m.deps.Client,
		Notifier: m.deps.Notes,
		Logger:   m.deps.Logger,
		Metrics:  m.deps.Metrics,
	})
	m.table = newTable(kind, m.tableHeight())
	m.loading = true
	return m, m.load()
}

// handleKeyPress handles keyboard input
func (m Model) handleKeyPress(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	// Ctrl+C always quits
	if msg.String() == "ctrl+c" {
		return m.quit()
	}

	switch {
	case m.route == nav.RouteLogin:
		return m.updateForms(msg)
	case m.confirm != nil:
		return m.handleConfirmKey(msg)
	case m.overlay != nil:
		return m.handleOverlayKey(msg)
	case m.searching:
		return m.handleSearchKey(msg)
	}

	switch msg.String() {
	case "q":
		return m.quit()
	case "tab":
		m.deps.Navigator.Push(m.stepRoute(1))
		return m.mount(m.deps.Navigator.Current())
	case "shift+tab":
		m.deps.Navigator.Push(m.stepRoute(-1))
		return m.mount(m.deps.Navigator.Current())
	case "1", "2", "3", "4", "5", "6", "7", "8":
		idx, _ := strconv.Atoi(msg.String())
		if routes := shellRoutes(); idx <= len(routes) {
			m.deps.Navigator.Push(routes[idx-1])
		}
		return m.mount(m.deps.Navigator.Current())
	case "L":
		return m, m.logout()
	case "r":
		if m.route == nav.RouteDashboard {
			m.loading = true
			return m, m.loadCounts()
		}
		if m.ctrl != nil {
			m.loading = true
			return m, m.load()
		}
		return m, nil
	}

	if m.ctrl == nil {
		return m, nil
	}
	kind := m.ctrl.Kind()

	switch msg.String() {
	case "/":
		m.searching = true
		cmd := m.search.Focus()
		return m, cmd
	case "f":
		if len(kind.Filters) > 0 {
			if err := m.ctrl.SetFilter(nextFilter(kind.Filters, m.ctrl.State().ActiveFilter)); err == nil {
				m.refreshRows()
			}
		}
		return m, nil
	case "a":
		if err := m.ctrl.OpenAdd(); err != nil {
			return m, nil
		}
		return m.openOverlay()
	case "e":
		if id, ok := m.selectedID(); ok && m.ctrl.OpenEdit(id) == nil {
			return m.openOverlay()
		}
		return m, nil
	case "enter", "v":
		if id, ok := m.selectedID(); ok && m.ctrl.OpenView(id) == nil {
			return m.openOverlay()
		}
		return m, nil
	case "d":
		if id, ok := m.selectedID(); ok && kind.Can(resource.CanDelete) {
			m.confirm = &pendingDelete{id: id, prompt: kind.ConfirmPrompt()}
		}
		return m, nil
	case "m":
		if id, ok := m.selectedID(); ok {
			return m, m.markReplied(id)
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)
	return m, cmd
}

func (m Model) handleConfirmKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "y", "Y":
		pending := m.confirm
		m.confirm = nil
		return m, m.remove(pending.id, true)
	case "n", "N", "esc":
		pending := m.confirm
		m.confirm = nil
		return m, m.remove(pending.id, false)
	}
	return m, nil
}

func (m Model) handleOverlayKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.String() == "esc" || (m.overlay.form == nil && (msg.String() == "enter" || msg.String() == "q")) {
		m.overlay.modal.Close()
		m.overlay = nil
		return m, nil
	}
	return m.updateForms(msg)
}

func (m Model) handleSearchKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.search.Reset()
		m.searching = false
		m.search.Blur()
		m.ctrl.Search("")
		m.refreshRows()
		return m, nil
	case "enter":
		m.searching = false
		m.search.Blur()
		return m, nil
	}
	var cmd tea.Cmd
	m.search, cmd = m.search.Update(msg)
	m.ctrl.Search(m.search.Value())
	m.refreshRows()
	return m, cmd
}

// updateForms forwards msg to whichever form is active and reacts to its
// completion.
func (m Model) updateForms(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch {
	case m.route == nav.RouteLogin && m.login != nil:
		next, cmd := m.login.Update(msg)
		if f, ok := next.(*huh.Form); ok {
			m.login = f
		}
		switch m.login.State {
		case huh.StateCompleted:
			return m, m.submitLogin()
		case huh.StateAborted:
			return m.quit()
		}
		return m, cmd

	case m.overlay != nil && m.overlay.form != nil:
		next, cmd := m.overlay.form.Update(msg)
		if f, ok := next.(*huh.Form); ok {
			m.overlay.form = f
		}
		switch m.overlay.form.State {
		case huh.StateCompleted:
			return m, m.submit(m.overlay)
		case huh.StateAborted:
			m.overlay.modal.Close()
			m.overlay = nil
			return m, nil
		}
		return m, cmd
	}
	return m, nil
}

func (m Model) openOverlay() (tea.Model, tea.Cmd) {
	result := new(error)
	mod := m.ctrl.Overlay(m.ctx, func(err error) { *result = err })
	o := &overlay{modal: mod, result: result}
	m.overlay = o
	if mod.Mode() == modal.View {
		return m, nil
	}
	o.form = modalForm(mod)
	return m, o.form.Init()
}

func (m Model) submitted(msg submittedMsg) (tea.Model, tea.Cmd) {
	if m.overlay == nil || msg.overlay != m.overlay {
		return m, nil
	}
	if msg.err != nil {
		m.overlay.err = errorText(msg.err)
		m.overlay.form = modalForm(m.overlay.modal)
		return m, m.overlay.form.Init()
	}
	m.overlay = nil
	m.refreshRows()
	return m, nil
}

func (m Model) loginResult(msg loginResultMsg) (tea.Model, tea.Cmd) {
	if m.route != nav.RouteLogin {
		return m, nil
	}
	switch {
	case msg.err != nil:
		m.deps.Notes.Error("Error", errorText(msg.err))
	case !msg.ok:
		m.deps.Notes.Error("Error", "Invalid email or password")
	default:
		m.deps.Navigator.Push(nav.RouteDashboard)
		return m.mount(m.deps.Navigator.Current())
	}
	email := m.creds.email
	m.creds = &credentials{email: email}
	m.login = loginForm(m.creds)
	return m, m.login.Init()
}

func (m Model) quit() (tea.Model, tea.Cmd) {
	if m.ctrl != nil {
		m.ctrl.Close()
	}
	m.quitting = true
	return m, tea.Quit
}

// Commands

func (m Model) load() tea.Cmd {
	ctx, c := m.ctx, m.ctrl
	return func() tea.Msg {
		return loadedMsg{ctrl: c, err: c.Load(ctx)}
	}
}

func (m Model) loadCounts() tea.Cmd {
	ctx, o := m.ctx, m.overview
	return func() tea.Msg {
		counts, err := o.Load(ctx)
		return countsMsg{counts: counts, err: err}
	}
}

func (m Model) submitLogin() tea.Cmd {
	ctx, store, creds := m.ctx, m.deps.Store, *m.creds
	return func() tea.Msg {
		ok, err := store.Login(ctx, creds.email, creds.password)
		return loginResultMsg{ok: ok, err: err}
	}
}

func (m Model) logout() tea.Cmd {
	ctx, store := m.ctx, m.deps.Store
	return func() tea.Msg {
		return loggedOutMsg{err: store.Logout(ctx)}
	}
}

func (m Model) submit(o *overlay) tea.Cmd {
	return func() tea.Msg {
		if err := o.modal.Submit(); err != nil {
			return submittedMsg{overlay: o, err: err}
		}
		return submittedMsg{overlay: o, err: *o.result}
	}
}

func (m Model) remove(id int64, answer bool) tea.Cmd {
	ctx, c := m.ctx, m.ctrl
	confirm := resource.ConfirmFunc(func(context.Context, string) (bool, error) { return answer, nil })
	return func() tea.Msg {
		return mutatedMsg{ctrl: c, err: c.Remove(ctx, id, confirm)}
	}
}

func (m Model) markReplied(id int64) tea.Cmd {
	ctx, c := m.ctx, m.ctrl
	return func() tea.Msg {
		return mutatedMsg{ctrl: c, err: c.MarkReplied(ctx, id)}
	}
}

// Custom messages

// RouteMsg reports a navigator change made outside the model, e.g. a forced
// logout.
type RouteMsg struct {
	Route nav.Route
}

// SessionMsg reports an authentication change.
type SessionMsg struct {
	Authenticated bool
}

// NotificationMsg carries a notification to the footer.
type NotificationMsg struct {
	Notification notify.Notification
}

type expireNoteMsg struct {
	at time.Time
}

type loadedMsg struct {
	ctrl *resource.Controller
	err  error
}

type countsMsg struct {
	counts resource.Counts
	err    error
}

type loginResultMsg struct {
	ok  bool
	err error
}

type loggedOutMsg struct {
	err error
}

type submittedMsg struct {
	overlay *overlay
	err     error
}

type mutatedMsg struct {
	ctrl *resource.Controller
	err  error
}

// Helper functions

func (m Model) tableHeight() int {
	if m.height <= 0 {
		return 15
	}
	return max(m.height-12, 5)
}

func (m *Model) refreshRows() {
	if m.ctrl == nil {
		return
	}
	kind := m.ctrl.Kind()
	visible := m.ctrl.Visible()
	rows := make([]table.Row, len(visible))
	for i, rec := range visible {
		row := make(table.Row, len(kind.Columns))
		for j, col := range kind.Columns {
			row[j] = rec.Text(col)
		}
		rows[i] = row
	}
	m.table.SetRows(rows)
	if m.table.Cursor() >= len(rows) {
		m.table.SetCursor(max(len(rows)-1, 0))
	}
}

func (m Model) selectedID() (int64, bool) {
	row := m.table.SelectedRow()
	if len(row) == 0 {
		return 0, false
	}
	id, err := strconv.ParseInt(row[0], 10, 64)
	return id, err == nil
}

func (m Model) stepRoute(delta int) nav.Route {
	routes := shellRoutes()
	for i, r := range routes {
		if r == m.route {
			return routes[(i+delta+len(routes))%len(routes)]
		}
	}
	return routes[0]
}

// shellRoutes are the sidebar entries.
func shellRoutes() []nav.Route {
	out := make([]nav.Route, 0, len(nav.Routes))
	for _, r := range nav.Routes {
		if !r.Public() {
			out = append(out, r)
		}
	}
	return out
}

func nextFilter(filters []string, current string) string {
	for i, f := range filters {
		if f == current {
			return filters[(i+1)%len(filters)]
		}
	}
	return filters[0]
}

func newTable(kind *resource.Kind, height int) table.Model {
	cols := make([]table.Column, len(kind.Columns))
	for i, c := range kind.Columns {
		width := 18
		switch c {
		case "id":
			width = 5
		case "email", "comment", "diagnosis", "subject":
			width = 28
		}
		cols[i] = table.Column{Title: columnTitle(c), Width: width}
	}
	return table.New(
		table.WithColumns(cols),
		table.WithFocused(true),
		table.WithHeight(height),
	)
}
