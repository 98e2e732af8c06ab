package daemon

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/theirongolddev/budget/internal/api"
	"github.com/theirongolddev/budget/internal/budget"
	"github.com/theirongolddev/budget/internal/dashboard"
	"github.com/theirongolddev/budget/internal/model"

	"github.com/shopspring/decimal"
)

type fakeLoader struct {
	views []dashboard.ViewModel
	errs  []error
	calls int
}

func (f *fakeLoader) Load(context.Context) (dashboard.ViewModel, error) {
	i := f.calls
	f.calls++
	if i < len(f.errs) && f.errs[i] != nil {
		return dashboard.ViewModel{}, f.errs[i]
	}
	if i >= len(f.views) {
		i = len(f.views) - 1
	}
	return f.views[i], nil
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func view(spent int64, alerts ...model.Alert) dashboard.ViewModel {
	statuses := budget.DeriveAll([]model.BudgetStatus{{
		CategoryID:   "c1",
		CategoryName: "Groceries",
		BudgetLimit:  decimal.NewFromInt(100),
		Spent:        decimal.NewFromInt(spent),
		Remaining:    decimal.NewFromInt(100 - spent),
	}})
	return dashboard.ViewModel{
		Budgets: statuses,
		Totals:  budget.Sum(statuses),
		Summary: model.TransactionSummary{TotalSpent: decimal.NewFromInt(spent), TotalTransactions: int(spent / 10)},
		Alerts:  alerts,
	}
}

func TestDiffSnapshots(t *testing.T) {
	prev := Snapshot{TotalSpent: decimal.RequireFromString("10.50"), Transactions: 3, UnreadAlerts: 1}
	curr := Snapshot{TotalSpent: decimal.RequireFromString("13.10"), Transactions: 5, UnreadAlerts: 0}

	delta := diffSnapshots(prev, curr)
	if !delta.Spent.Equal(decimal.RequireFromString("2.60")) {
		t.Fatalf("Spent delta = %s, want 2.60", delta.Spent)
	}
	if delta.Transactions != 2 {
		t.Fatalf("Transactions delta = %d, want 2", delta.Transactions)
	}
	if delta.UnreadAlerts != -1 {
		t.Fatalf("UnreadAlerts delta = %d, want -1", delta.UnreadAlerts)
	}
	if delta.isZero() {
		t.Fatal("delta unexpectedly reported as zero")
	}
	if !diffSnapshots(curr, curr).isZero() {
		t.Fatal("identical snapshots should diff to zero")
	}
}

func TestPublishEventRingBuffer(t *testing.T) {
	s := New(Config{Interval: 10 * time.Second, EventsBuffer: 2}, &fakeLoader{}, nil, quietLogger())

	s.publishEvent(Event{ID: 1})
	s.publishEvent(Event{ID: 2})
	s.publishEvent(Event{ID: 3})

	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(s.events) != 2 {
		t.Fatalf("events len = %d, want 2", len(s.events))
	}
	if s.events[0].ID != 2 || s.events[1].ID != 3 {
		t.Fatalf("events ring contains IDs [%d, %d], want [2, 3]", s.events[0].ID, s.events[1].ID)
	}
}

func TestPollReportsCrossingsAndNewAlerts(t *testing.T) {
	alert := model.Alert{ID: "a1", Title: "Groceries at 95%", Severity: model.SeverityCritical}
	loader := &fakeLoader{views: []dashboard.ViewModel{
		view(50),
		view(50),
		view(95, alert),
	}}
	s := New(Config{}, loader, nil, quietLogger())
	ctx := context.Background()

	s.pollOnce(ctx)
	s.pollOnce(ctx) // unchanged: no event
	s.pollOnce(ctx)

	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(s.events) != 2 {
		t.Fatalf("events = %d, want 2 (snapshot + update)", len(s.events))
	}
	if s.events[0].Type != EventSnapshot {
		t.Errorf("first event type = %q", s.events[0].Type)
	}
	upd := s.events[1]
	if upd.Type != EventUpdate {
		t.Fatalf("second event type = %q", upd.Type)
	}
	if len(upd.Crossings) != 1 || upd.Crossings[0].From != "normal" || upd.Crossings[0].To != "critical" {
		t.Errorf("crossings = %+v", upd.Crossings)
	}
	if len(upd.NewAlerts) != 1 || upd.NewAlerts[0].ID != "a1" {
		t.Errorf("new alerts = %+v", upd.NewAlerts)
	}
	if !upd.Delta.Spent.Equal(decimal.NewFromInt(45)) {
		t.Errorf("spent delta = %s, want 45", upd.Delta.Spent)
	}
}

func TestPollErrorRecorded(t *testing.T) {
	loader := &fakeLoader{errs: []error{errors.New("connection refused")}, views: []dashboard.ViewModel{view(10)}}
	s := New(Config{}, loader, nil, quietLogger())

	s.pollOnce(context.Background())
	st := s.snapshotStatus()
	if st.LastError == "" || st.PollCount != 1 {
		t.Fatalf("status after failed poll = %+v", st)
	}

	s.pollOnce(context.Background())
	if st := s.snapshotStatus(); st.LastError != "" {
		t.Errorf("LastError not cleared by a good poll: %q", st.LastError)
	}
}

func TestPollReauthenticatesOnce(t *testing.T) {
	loader := &fakeLoader{
		errs:  []error{api.ErrUnauthorized},
		views: []dashboard.ViewModel{view(10), view(10)},
	}
	reauths := 0
	s := New(Config{}, loader, func(context.Context) error {
		reauths++
		return nil
	}, quietLogger())

	s.pollOnce(context.Background())
	if reauths != 1 {
		t.Fatalf("reauth calls = %d, want 1", reauths)
	}
	if loader.calls != 2 {
		t.Fatalf("load calls = %d, want 2", loader.calls)
	}
	if st := s.snapshotStatus(); st.LastError != "" {
		t.Errorf("LastError = %q after successful retry", st.LastError)
	}
}

func TestStatusEndpoint(t *testing.T) {
	s := New(Config{Source: "http://api.test"}, &fakeLoader{views: []dashboard.ViewModel{view(80)}}, nil, quietLogger())
	s.pollOnce(context.Background())

	srv := httptest.NewServer(s.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/v1/status")
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = resp.Body.Close() }()

	var st Status
	if err := json.NewDecoder(resp.Body).Decode(&st); err != nil {
		t.Fatal(err)
	}
	if st.Source != "http://api.test" || st.PollCount != 1 {
		t.Errorf("status = %+v", st)
	}
	if !st.Summary.TotalSpent.Equal(decimal.NewFromInt(80)) {
		t.Errorf("summary spent = %s, want 80", st.Summary.TotalSpent)
	}
}
