// Package tui provides the interactive Bubble Tea dashboard.
package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/theirongolddev/budget/internal/alerts"
	"github.com/theirongolddev/budget/internal/dashboard"
	"github.com/theirongolddev/budget/internal/session"
	"github.com/theirongolddev/budget/internal/tui/components"
	"github.com/theirongolddev/budget/internal/tui/theme"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
)

const (
	tabDashboard = iota
	tabBudgets
	tabAlerts
)

const (
	minTerminalWidth = 80
	maxContentWidth  = 140
	minContentHeight = 5

	// requestBudget bounds any single user action end to end.
	requestBudget = 30 * time.Second
)

// Deps are the services the TUI drives.
type Deps struct {
	Session   *session.Controller
	Dashboard *dashboard.Aggregator
	Alerts    *alerts.ViewModel
	// Currency overrides the financial profile's currency when set.
	Currency string
	// RefreshInterval enables auto-refresh when positive.
	RefreshInterval time.Duration
}

type hydratedMsg struct {
	snap session.Snapshot
	err  error
}

type loginResultMsg struct {
	err error
}

type loggedOutMsg struct{}

type dashboardMsg struct {
	vm  dashboard.ViewModel
	err error
}

type alertsMsg struct {
	err    error
	action string
}

type refreshTickMsg struct{}

// App is the root Bubble Tea model.
type App struct {
	deps Deps
	gate session.Gate

	width     int
	height    int
	activeTab int
	showHelp  bool
	spinner   spinner.Model

	dash        dashboard.ViewModel
	hasDash     bool
	dashErr     error
	loadingDash bool

	alertFilter alerts.Filter
	alertCursor int
	flash       string

	loginForm *huh.Form
	loginErr  error
	loggingIn bool
}

// NewApp creates a new TUI app model.
func NewApp(deps Deps) App {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(theme.Active.Accent)

	return App{
		deps:        deps,
		gate:        session.NewGate(deps.Session.View()),
		spinner:     sp,
		alertFilter: alerts.All,
	}
}

// Init implements tea.Model.
func (a App) Init() tea.Cmd {
	return tea.Batch(a.spinner.Tick, hydrateCmd(a.deps.Session))
}

// Update implements tea.Model.
func (a App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {

	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		if a.loginForm != nil {
			a.loginForm = a.loginForm.WithWidth(min(msg.Width, 60))
		}
		return a, nil

	case hydratedMsg:
		return a.afterSessionChange()

	case loginResultMsg:
		a.loggingIn = false
		if msg.err != nil {
			a.loginErr = msg.err
		}
		return a.afterSessionChange()

	case loggedOutMsg:
		a.hasDash = false
		a.dash = dashboard.ViewModel{}
		return a.afterSessionChange()

	case dashboardMsg:
		if errors.Is(msg.err, dashboard.ErrStale) {
			return a, nil
		}
		a.loadingDash = false
		if msg.err != nil {
			a.dashErr = msg.err
			return a, nil
		}
		a.dash, a.hasDash, a.dashErr = msg.vm, true, nil
		return a, nil

	case alertsMsg:
		if msg.err != nil {
			a.flash = errorText(msg.err)
		} else if msg.action != "" {
			a.flash = msg.action
		}
		a.clampAlertCursor()
		if msg.action != "" {
			// The dashboard's unread list is a separate snapshot.
			return a, a.loadDashboard()
		}
		return a, nil

	case refreshTickMsg:
		var cmds []tea.Cmd
		if a.gate.Check().Verdict == session.Allow && !a.loadingDash {
			cmds = append(cmds, a.loadDashboard())
		}
		cmds = append(cmds, a.scheduleRefresh())
		return a, tea.Batch(cmds...)

	case spinner.TickMsg:
		var cmd tea.Cmd
		a.spinner, cmd = a.spinner.Update(msg)
		return a, cmd

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return a, tea.Quit
		}
		if a.loginForm != nil {
			return a.updateLoginForm(msg)
		}
		if a.gate.Check().Verdict != session.Allow {
			return a, nil
		}
		return a.updateKeys(msg)
	}

	if a.loginForm != nil {
		return a.updateLoginForm(msg)
	}
	return a, nil
}

// afterSessionChange reacts to the gate's current decision.
func (a App) afterSessionChange() (tea.Model, tea.Cmd) {
	switch a.gate.Check().Verdict {
	case session.Allow:
		a.loginForm = nil
		a.loginErr = nil
		return a, tea.Batch(a.loadDashboard(), loadAlertsCmd(a.deps.Alerts), a.scheduleRefresh())
	case session.Redirect:
		a.loginForm = newLoginForm(a.width)
		return a, a.loginForm.Init()
	}
	return a, nil
}

func (a App) updateLoginForm(msg tea.Msg) (tea.Model, tea.Cmd) {
	if key, ok := msg.(tea.KeyMsg); ok && key.String() == "esc" {
		return a, tea.Quit
	}

	form, cmd := a.loginForm.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		a.loginForm = f
	}

	switch a.loginForm.State {
	case huh.StateCompleted:
		username := strings.TrimSpace(a.loginForm.GetString("username"))
		password := a.loginForm.GetString("password")
		a.loginForm = nil
		a.loggingIn = true
		a.loginErr = nil
		return a, loginCmd(a.deps.Session, username, password)
	case huh.StateAborted:
		return a, tea.Quit
	}
	return a, cmd
}

func (a App) updateKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()

	if key == "?" {
		a.showHelp = !a.showHelp
		return a, nil
	}
	if a.showHelp {
		a.showHelp = false
		return a, nil
	}

	switch key {
	case "q":
		return a, tea.Quit
	case "tab", "right", "l":
		a.activeTab = (a.activeTab + 1) % len(components.Tabs)
		return a, nil
	case "shift+tab", "left", "h":
		a.activeTab = (a.activeTab + len(components.Tabs) - 1) % len(components.Tabs)
		return a, nil
	case "r":
		a.flash = ""
		return a, tea.Batch(a.loadDashboard(), loadAlertsCmd(a.deps.Alerts))
	case "L":
		return a, logoutCmd(a.deps.Session)
	}

	if len(key) == 1 {
		if idx := components.TabIdxByKey(rune(key[0])); idx >= 0 {
			a.activeTab = idx
			return a, nil
		}
	}

	if a.activeTab == tabAlerts {
		return a.updateAlertsKeys(key)
	}
	return a, nil
}

func (a App) updateAlertsKeys(key string) (tea.Model, tea.Cmd) {
	visible := a.deps.Alerts.List(a.alertFilter)

	switch key {
	case "j", "down":
		if a.alertCursor < len(visible)-1 {
			a.alertCursor++
		}
	case "k", "up":
		if a.alertCursor > 0 {
			a.alertCursor--
		}
	case "f":
		a.alertFilter = nextFilter(a.alertFilter)
		a.alertCursor = 0
	case "enter", "m":
		if a.alertCursor < len(visible) {
			id := visible[a.alertCursor].ID
			return a, alertActionCmd("Marked read", func(ctx context.Context) error {
				return a.deps.Alerts.MarkRead(ctx, id)
			})
		}
	case "x":
		if a.alertCursor < len(visible) {
			id := visible[a.alertCursor].ID
			return a, alertActionCmd("Dismissed", func(ctx context.Context) error {
				return a.deps.Alerts.Dismiss(ctx, id)
			})
		}
	case "R":
		return a, alertActionCmd("Marked all read", a.deps.Alerts.MarkAllRead)
	}
	return a, nil
}

func (a *App) clampAlertCursor() {
	n := len(a.deps.Alerts.List(a.alertFilter))
	if a.alertCursor >= n {
		a.alertCursor = max(n-1, 0)
	}
}

func nextFilter(f alerts.Filter) alerts.Filter {
	switch f {
	case alerts.All:
		return alerts.Unread
	case alerts.Unread:
		return alerts.Read
	default:
		return alerts.All
	}
}

func (a *App) loadDashboard() tea.Cmd {
	a.loadingDash = true
	return loadDashboardCmd(a.deps.Dashboard)
}

func (a App) scheduleRefresh() tea.Cmd {
	if a.deps.RefreshInterval <= 0 {
		return nil
	}
	return tea.Tick(a.deps.RefreshInterval, func(time.Time) tea.Msg {
		return refreshTickMsg{}
	})
}

func (a App) currency() string {
	if a.deps.Currency != "" {
		return a.deps.Currency
	}
	if p := a.deps.Session.View().Snapshot().FinancialProfile; p != nil {
		return p.Currency
	}
	return ""
}

func (a App) contentWidth() int {
	return min(a.width, maxContentWidth)
}

// View implements tea.Model.
func (a App) View() string {
	if a.width == 0 {
		return ""
	}
	if a.width < minTerminalWidth {
		return a.viewTooNarrow()
	}

	switch a.gate.Check().Verdict {
	case session.Pending:
		return a.viewPending("Verifying session...")
	case session.Redirect:
		if a.loggingIn {
			return a.viewPending("Signing in...")
		}
		return a.viewLogin()
	}

	if a.showHelp {
		return a.viewHelp()
	}
	return a.viewMain()
}

func (a App) viewTooNarrow() string {
	return fmt.Sprintf("\n  Terminal too narrow (%d cols)\n\n  budget needs at least %d columns.\n",
		a.width, minTerminalWidth)
}

func (a App) viewPending(label string) string {
	t := theme.Active

	cardStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(t.BorderAccent).
		Padding(1, 4)

	logo := lipgloss.NewStyle().Foreground(t.AccentBright).Bold(true).Render("◈ budget")
	body := logo + "\n\n" + a.spinner.View() + " " +
		lipgloss.NewStyle().Foreground(t.TextMuted).Render(label)

	return lipgloss.Place(a.width, a.height, lipgloss.Center, lipgloss.Center, cardStyle.Render(body))
}

func (a App) viewLogin() string {
	t := theme.Active
	if a.loginForm == nil {
		return a.viewPending("Preparing sign-in...")
	}

	var b strings.Builder
	b.WriteString(lipgloss.NewStyle().Foreground(t.AccentBright).Bold(true).Render("◈ budget · sign in"))
	b.WriteString("\n\n")
	if a.loginErr != nil {
		b.WriteString(lipgloss.NewStyle().Foreground(t.Red).Render(errorText(a.loginErr)))
		b.WriteString("\n\n")
	}
	b.WriteString(a.loginForm.View())
	b.WriteString("\n")
	b.WriteString(lipgloss.NewStyle().Foreground(t.TextDim).Render("esc to quit"))

	card := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(t.Border).
		Padding(1, 2).
		Render(b.String())
	return lipgloss.Place(a.width, a.height, lipgloss.Center, lipgloss.Center, card)
}

func (a App) viewHelp() string {
	t := theme.Active
	keyStyle := lipgloss.NewStyle().Foreground(t.Accent).Bold(true)
	descStyle := lipgloss.NewStyle().Foreground(t.TextMuted)

	rows := []struct{ key, desc string }{
		{"d / b / a", "dashboard, budgets, alerts"},
		{"tab, shift+tab", "next / previous tab"},
		{"r", "refresh"},
		{"j / k", "move in alert list"},
		{"enter", "mark selected alert read"},
		{"x", "dismiss selected alert"},
		{"R", "mark all alerts read"},
		{"f", "cycle alert filter"},
		{"L", "log out"},
		{"q", "quit"},
	}

	var b strings.Builder
	b.WriteString(lipgloss.NewStyle().Foreground(t.AccentBright).Bold(true).Render("Keys"))
	b.WriteString("\n\n")
	for _, r := range rows {
		b.WriteString(keyStyle.Render(fmt.Sprintf("%-16s", r.key)))
		b.WriteString(descStyle.Render(r.desc))
		b.WriteString("\n")
	}

	card := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(t.BorderAccent).
		Padding(1, 3).
		Render(b.String())
	return lipgloss.Place(a.width, a.height, lipgloss.Center, lipgloss.Center, card)
}

func (a App) viewMain() string {
	cw := a.contentWidth()

	badge := ""
	if n := a.deps.Alerts.UnreadCount(); n > 0 {
		badge = fmt.Sprintf("%d", n)
	}
	header := components.RenderTabBar(a.activeTab, badge) + "\n"

	statusBar := components.RenderStatusBar(a.width, "[?]help  [r]efresh  [q]uit", a.statusText())

	contentH := max(a.height-lipgloss.Height(header)-lipgloss.Height(statusBar), minContentHeight)

	var content string
	switch a.activeTab {
	case tabBudgets:
		content = a.renderBudgetsTab(cw)
	case tabAlerts:
		content = a.renderAlertsTab(cw)
	default:
		content = a.renderDashboardTab(cw)
	}

	content = lipgloss.NewStyle().Height(contentH).MaxHeight(contentH).Render(content)
	return header + "\n" + content + "\n" + statusBar
}

func (a App) statusText() string {
	var parts []string
	if snap := a.deps.Session.View().Snapshot(); snap.Identity != nil {
		parts = append(parts, snap.Identity.Username)
	}
	switch {
	case a.loadingDash:
		parts = append(parts, a.spinner.View()+" loading")
	case a.hasDash:
		parts = append(parts, "updated "+a.dash.LoadedAt.Format("15:04:05"))
	}
	if a.flash != "" {
		parts = append(parts, a.flash)
	}
	return strings.Join(parts, " · ")
}

func hydrateCmd(c *session.Controller) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestBudget)
		defer cancel()
		snap, err := c.Hydrate(ctx)
		return hydratedMsg{snap: snap, err: err}
	}
}

func loginCmd(c *session.Controller, username, password string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestBudget)
		defer cancel()
		_, err := c.Login(ctx, username, password)
		return loginResultMsg{err: err}
	}
}

func logoutCmd(c *session.Controller) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestBudget)
		defer cancel()
		_ = c.Logout(ctx)
		return loggedOutMsg{}
	}
}

func loadDashboardCmd(agg *dashboard.Aggregator) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestBudget)
		defer cancel()
		vm, err := agg.Load(ctx)
		return dashboardMsg{vm: vm, err: err}
	}
}

func loadAlertsCmd(vm *alerts.ViewModel) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestBudget)
		defer cancel()
		return alertsMsg{err: vm.Load(ctx)}
	}
}

func alertActionCmd(done string, fn func(context.Context) error) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestBudget)
		defer cancel()
		if err := fn(ctx); err != nil {
			return alertsMsg{err: err, action: "refresh"}
		}
		return alertsMsg{action: done}
	}
}

func newLoginForm(width int) *huh.Form {
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Key("username").
				Title("Username").
				Validate(func(s string) error {
					if strings.TrimSpace(s) == "" {
						return errors.New("required")
					}
					return nil
				}),
			huh.NewInput().
				Key("password").
				Title("Password").
				EchoMode(huh.EchoModePassword),
		),
	).WithShowHelp(false)
	if width > 0 {
		form = form.WithWidth(min(width, 60))
	}
	return form
}

// errorText is the one-line message shown for a failed action.
func errorText(err error) string {
	var bulk *alerts.BulkError
	switch {
	case errors.As(err, &bulk):
		return fmt.Sprintf("%d of %d alerts could not be updated", len(bulk.Failed), bulk.Total)
	case errors.Is(err, session.ErrNotAuthenticated):
		return "Session could not be verified"
	case errors.Is(err, context.DeadlineExceeded):
		return "Request timed out"
	}
	msg := err.Error()
	if i := strings.LastIndex(msg, ": "); i >= 0 && i+2 < len(msg) {
		msg = msg[i+2:]
	}
	return msg
}
