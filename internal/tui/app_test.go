package tui

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/theirongolddev/budget/internal/alerts"
	"github.com/theirongolddev/budget/internal/api"
	"github.com/theirongolddev/budget/internal/dashboard"
	"github.com/theirongolddev/budget/internal/model"
	"github.com/theirongolddev/budget/internal/session"
	"github.com/theirongolddev/budget/internal/store"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/shopspring/decimal"
)

// fakeBackend serves the session, dashboard and alert interfaces.
type fakeBackend struct {
	profileErr error
	alerts     []model.Alert
}

func (f *fakeBackend) Profile(context.Context) (model.User, error) {
	if f.profileErr != nil {
		return model.User{}, f.profileErr
	}
	return model.User{ID: "u1", Username: "dana"}, nil
}

func (f *fakeBackend) FinancialProfile(context.Context) (model.FinancialProfile, error) {
	return model.FinancialProfile{Currency: "USD"}, nil
}

func (f *fakeBackend) Login(context.Context, string, string) (model.Credentials, error) {
	return model.Credentials{AccessToken: "a", RefreshToken: "r"}, nil
}

func (f *fakeBackend) Register(context.Context, model.Registration) (model.Credentials, error) {
	return model.Credentials{AccessToken: "a", RefreshToken: "r"}, nil
}

func (f *fakeBackend) Refresh(context.Context, string) (model.Credentials, error) {
	return model.Credentials{AccessToken: "a2", RefreshToken: "r2"}, nil
}

func (f *fakeBackend) Logout(context.Context) error { return nil }

func (f *fakeBackend) BudgetStatus(context.Context) ([]model.BudgetStatus, error) {
	return []model.BudgetStatus{{
		CategoryID:   "c1",
		CategoryName: "Groceries",
		BudgetLimit:  decimal.NewFromInt(400),
		Spent:        decimal.NewFromInt(380),
		Remaining:    decimal.NewFromInt(20),
	}}, nil
}

func (f *fakeBackend) TransactionSummary(context.Context) (model.TransactionSummary, error) {
	return model.TransactionSummary{TotalSpent: decimal.NewFromInt(380), TotalTransactions: 12}, nil
}

func (f *fakeBackend) Alerts(context.Context, bool) ([]model.Alert, error) {
	return f.alerts, nil
}

func (f *fakeBackend) MarkAlertRead(_ context.Context, id string) (model.Alert, error) {
	return model.Alert{ID: id, IsRead: true}, nil
}

func (f *fakeBackend) DismissAlert(context.Context, string) error { return nil }

func (f *fakeBackend) Insights(context.Context) ([]model.Insight, error) {
	return nil, nil
}

func newTestApp(t *testing.T, creds model.Credentials, backend *fakeBackend) App {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	ctrl := session.NewController(session.NewState(), store.NewMemory(creds), backend, logger)
	app := NewApp(Deps{
		Session:   ctrl,
		Dashboard: dashboard.New(backend, dashboard.Options{}, logger),
		Alerts:    alerts.New(backend, alerts.Baseline, logger),
		Currency:  "USD",
	})
	m, _ := app.Update(tea.WindowSizeMsg{Width: 120, Height: 40})
	return m.(App)
}

func step(t *testing.T, a App, msg tea.Msg) App {
	t.Helper()
	m, _ := a.Update(msg)
	return m.(App)
}

func TestViewBeforeFirstSize(t *testing.T) {
	app := NewApp(Deps{Session: session.NewController(session.NewState(), store.NewMemory(model.Credentials{}), &fakeBackend{}, slog.Default())})
	if got := app.View(); got != "" {
		t.Errorf("View() before WindowSizeMsg = %q, want empty", got)
	}
}

func TestViewTooNarrow(t *testing.T) {
	app := newTestApp(t, model.Credentials{}, &fakeBackend{})
	app = step(t, app, tea.WindowSizeMsg{Width: 60, Height: 20})
	if !strings.Contains(app.View(), "too narrow") {
		t.Error("expected too-narrow message")
	}
}

func TestViewPendingUntilHydrated(t *testing.T) {
	app := newTestApp(t, model.Credentials{AccessToken: "a", RefreshToken: "r"}, &fakeBackend{})
	if !strings.Contains(app.View(), "Verifying session") {
		t.Error("expected the loading card before hydration")
	}
}

func TestAnonymousShowsLoginForm(t *testing.T) {
	app := newTestApp(t, model.Credentials{}, &fakeBackend{})
	app = step(t, app, hydrateCmd(app.deps.Session)())

	if app.loginForm == nil {
		t.Fatal("expected login form after anonymous hydration")
	}
	if !strings.Contains(app.View(), "sign in") {
		t.Error("expected sign-in view")
	}
}

func TestRejectedTokensShowLoginForm(t *testing.T) {
	backend := &fakeBackend{profileErr: api.ErrUnauthorized}
	app := newTestApp(t, model.Credentials{AccessToken: "a", RefreshToken: "r"}, backend)
	app = step(t, app, hydrateCmd(app.deps.Session)())

	if app.loginForm == nil {
		t.Fatal("expected login form after rejected credentials")
	}
}

func TestAuthenticatedShowsDashboard(t *testing.T) {
	app := newTestApp(t, model.Credentials{AccessToken: "a", RefreshToken: "r"}, &fakeBackend{})
	app = step(t, app, hydrateCmd(app.deps.Session)())
	if app.loginForm != nil {
		t.Fatal("login form shown for an authenticated session")
	}
	app = step(t, app, loadDashboardCmd(app.deps.Dashboard)())

	if !app.hasDash {
		t.Fatal("dashboard not installed")
	}
	view := app.View()
	if !strings.Contains(view, "Groceries") {
		t.Error("expected budget row in dashboard view")
	}
	if strings.Contains(view, "sign in") {
		t.Error("authenticated view should not contain the login form")
	}
}

func TestStaleDashboardIgnored(t *testing.T) {
	app := newTestApp(t, model.Credentials{AccessToken: "a", RefreshToken: "r"}, &fakeBackend{})
	app = step(t, app, hydrateCmd(app.deps.Session)())
	app = step(t, app, loadDashboardCmd(app.deps.Dashboard)())
	gen := app.dash.Generation

	app = step(t, app, dashboardMsg{err: dashboard.ErrStale})
	if !app.hasDash || app.dash.Generation != gen {
		t.Error("stale result replaced the installed dashboard")
	}
}

func TestFailedReloadKeepsPreviousDashboard(t *testing.T) {
	app := newTestApp(t, model.Credentials{AccessToken: "a", RefreshToken: "r"}, &fakeBackend{})
	app = step(t, app, hydrateCmd(app.deps.Session)())
	app = step(t, app, loadDashboardCmd(app.deps.Dashboard)())

	app = step(t, app, dashboardMsg{err: errors.Join(dashboard.ErrLoadFailed, errors.New("boom"))})
	if !app.hasDash {
		t.Fatal("failed reload dropped the previous dashboard")
	}
	if app.dashErr == nil {
		t.Error("failed reload error not recorded")
	}
}

func TestAlertKeysAndFilterCycle(t *testing.T) {
	backend := &fakeBackend{alerts: []model.Alert{
		{ID: "a1", Title: "Groceries at 95%", Severity: model.SeverityCritical},
		{ID: "a2", Title: "Dining at 72%", Severity: model.SeverityWarning, IsRead: true},
	}}
	app := newTestApp(t, model.Credentials{AccessToken: "a", RefreshToken: "r"}, backend)
	app = step(t, app, hydrateCmd(app.deps.Session)())
	app = step(t, app, loadAlertsCmd(app.deps.Alerts)())

	app = step(t, app, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'a'}})
	if app.activeTab != tabAlerts {
		t.Fatalf("activeTab = %d, want alerts", app.activeTab)
	}

	app = step(t, app, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'j'}})
	if app.alertCursor != 1 {
		t.Errorf("cursor = %d, want 1", app.alertCursor)
	}

	app = step(t, app, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'f'}})
	if app.alertFilter != alerts.Unread || app.alertCursor != 0 {
		t.Errorf("after f: filter=%s cursor=%d", app.alertFilter, app.alertCursor)
	}
	if got := len(app.deps.Alerts.List(app.alertFilter)); got != 1 {
		t.Errorf("unread list has %d alerts, want 1", got)
	}
}

func TestNextFilterCycles(t *testing.T) {
	f := alerts.All
	for _, want := range []alerts.Filter{alerts.Unread, alerts.Read, alerts.All} {
		f = nextFilter(f)
		if f != want {
			t.Fatalf("nextFilter = %s, want %s", f, want)
		}
	}
}

func TestErrorTextBulk(t *testing.T) {
	err := &alerts.BulkError{Failed: []string{"a", "b"}, Total: 5, Err: errors.New("x")}
	if got := errorText(err); got != "2 of 5 alerts could not be updated" {
		t.Errorf("errorText = %q", got)
	}
}
