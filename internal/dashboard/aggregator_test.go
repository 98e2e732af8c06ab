package dashboard

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/theirongolddev/budget/internal/model"
)

type fakeSource struct {
	budgets  func(ctx context.Context) ([]model.BudgetStatus, error)
	summary  func(ctx context.Context) (model.TransactionSummary, error)
	alerts   func(ctx context.Context, unreadOnly bool) ([]model.Alert, error)
	insights func(ctx context.Context) ([]model.Insight, error)
}

func (f *fakeSource) BudgetStatus(ctx context.Context) ([]model.BudgetStatus, error) {
	if f.budgets != nil {
		return f.budgets(ctx)
	}
	return []model.BudgetStatus{
		{CategoryName: "Food", BudgetLimit: decimal.NewFromInt(500), Spent: decimal.NewFromInt(400)},
		{CategoryName: "Fun", BudgetLimit: decimal.NewFromInt(100), Spent: decimal.NewFromInt(20)},
	}, nil
}

func (f *fakeSource) TransactionSummary(ctx context.Context) (model.TransactionSummary, error) {
	if f.summary != nil {
		return f.summary(ctx)
	}
	return model.TransactionSummary{TotalSpent: decimal.NewFromInt(420), TotalTransactions: 12}, nil
}

func (f *fakeSource) Alerts(ctx context.Context, unreadOnly bool) ([]model.Alert, error) {
	if f.alerts != nil {
		return f.alerts(ctx, unreadOnly)
	}
	return numberedAlerts(8), nil
}

func (f *fakeSource) Insights(ctx context.Context) ([]model.Insight, error) {
	if f.insights != nil {
		return f.insights(ctx)
	}
	out := make([]model.Insight, 6)
	for i := range out {
		out[i] = model.Insight{ID: fmt.Sprintf("i%d", i)}
	}
	return out, nil
}

func numberedAlerts(n int) []model.Alert {
	out := make([]model.Alert, n)
	for i := range out {
		out[i] = model.Alert{ID: fmt.Sprintf("a%d", i), Severity: model.SeverityInfo}
	}
	return out
}

func TestLoadBuildsViewModel(t *testing.T) {
	var unreadOnly atomic.Bool
	src := &fakeSource{alerts: func(_ context.Context, u bool) ([]model.Alert, error) {
		unreadOnly.Store(u)
		return numberedAlerts(8), nil
	}}
	a := New(src, Options{}, nil)

	vm, err := a.Load(context.Background())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !unreadOnly.Load() {
		t.Error("dashboard fetched all alerts, want unread only")
	}
	if !vm.Totals.TotalBudget.Equal(decimal.NewFromInt(600)) || !vm.Totals.TotalSpent.Equal(decimal.NewFromInt(420)) {
		t.Errorf("Totals = %+v", vm.Totals)
	}
	if vm.Totals.PercentageUsed != 70 {
		t.Errorf("PercentageUsed = %v, want 70", vm.Totals.PercentageUsed)
	}
	if len(vm.Alerts) != 5 || vm.Alerts[0].ID != "a0" || vm.Alerts[4].ID != "a4" {
		t.Errorf("Alerts = %v, want first 5 in source order", vm.Alerts)
	}
	if len(vm.Insights) != 3 || vm.Insights[2].ID != "i2" {
		t.Errorf("Insights = %v, want first 3", vm.Insights)
	}
	if vm.Generation != 1 || vm.LoadedAt.IsZero() {
		t.Errorf("Generation = %d, LoadedAt = %v", vm.Generation, vm.LoadedAt)
	}
	if cur, ok := a.Current(); !ok || cur.Generation != 1 {
		t.Errorf("Current = %d, %v", cur.Generation, ok)
	}
}

func TestLoadFewerThanLimit(t *testing.T) {
	src := &fakeSource{alerts: func(context.Context, bool) ([]model.Alert, error) {
		return numberedAlerts(2), nil
	}}
	vm, err := New(src, Options{}, nil).Load(context.Background())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(vm.Alerts) != 2 {
		t.Errorf("len(Alerts) = %d, want 2", len(vm.Alerts))
	}
}

func TestAnyFailureFailsWholeLoad(t *testing.T) {
	cause := errors.New("insights down")
	fail := false
	src := &fakeSource{insights: func(context.Context) ([]model.Insight, error) {
		if fail {
			return nil, cause
		}
		return nil, nil
	}}
	a := New(src, Options{}, nil)

	first, err := a.Load(context.Background())
	if err != nil {
		t.Fatalf("first Load: %v", err)
	}

	fail = true
	vm, err := a.Load(context.Background())
	if !errors.Is(err, ErrLoadFailed) || !errors.Is(err, cause) {
		t.Fatalf("err = %v, want ErrLoadFailed wrapping cause", err)
	}
	if vm.Budgets != nil || vm.Alerts != nil {
		t.Errorf("failed load returned partial data: %+v", vm)
	}
	cur, _ := a.Current()
	if cur.Generation != first.Generation {
		t.Errorf("Current generation = %d, want previous %d retained", cur.Generation, first.Generation)
	}
}

func TestFailureBeforeFirstLoad(t *testing.T) {
	src := &fakeSource{budgets: func(context.Context) ([]model.BudgetStatus, error) {
		return nil, errors.New("boom")
	}}
	a := New(src, Options{}, nil)
	if _, err := a.Load(context.Background()); !errors.Is(err, ErrLoadFailed) {
		t.Fatalf("err = %v", err)
	}
	if _, ok := a.Current(); ok {
		t.Error("Current reports a load after only failures")
	}
}

func TestStaleLoadIsDiscarded(t *testing.T) {
	var calls atomic.Int32
	entered := make(chan struct{})
	release := make(chan struct{})
	src := &fakeSource{budgets: func(context.Context) ([]model.BudgetStatus, error) {
		if calls.Add(1) == 1 {
			close(entered)
			<-release
			return []model.BudgetStatus{{CategoryName: "from A"}}, nil
		}
		return []model.BudgetStatus{{CategoryName: "from B"}}, nil
	}}
	a := New(src, Options{}, nil)

	type result struct {
		vm  ViewModel
		err error
	}
	done := make(chan result, 1)
	go func() {
		vm, err := a.Load(context.Background())
		done <- result{vm, err}
	}()

	select {
	case <-entered:
	case <-time.After(2 * time.Second):
		t.Fatal("load A never started")
	}

	vmB, err := a.Load(context.Background())
	if err != nil {
		t.Fatalf("load B: %v", err)
	}
	close(release)
	resA := <-done

	if !errors.Is(resA.err, ErrStale) {
		t.Fatalf("load A err = %v, want ErrStale", resA.err)
	}
	cur, _ := a.Current()
	if cur.Generation != vmB.Generation || cur.Budgets[0].CategoryName != "from B" {
		t.Errorf("Current = gen %d %q, want B's result", cur.Generation, cur.Budgets[0].CategoryName)
	}
}

func TestPerSourceDegrades(t *testing.T) {
	src := &fakeSource{summary: func(context.Context) (model.TransactionSummary, error) {
		return model.TransactionSummary{}, errors.New("summary down")
	}}
	a := New(src, Options{Join: PerSource}, nil)

	vm, err := a.Load(context.Background())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !vm.Degraded() {
		t.Fatal("Degraded = false")
	}
	if _, ok := vm.Errors[SectionSummary]; !ok || len(vm.Errors) != 1 {
		t.Errorf("Errors = %v, want only summary", vm.Errors)
	}
	if len(vm.Budgets) != 2 || len(vm.Alerts) != 5 {
		t.Errorf("healthy sections missing: %d budgets, %d alerts", len(vm.Budgets), len(vm.Alerts))
	}
}

func TestParseJoin(t *testing.T) {
	if j, err := ParseJoin(""); err != nil || j != AllOrNothing {
		t.Errorf("ParseJoin(\"\") = %q, %v", j, err)
	}
	if j, err := ParseJoin("per-source"); err != nil || j != PerSource {
		t.Errorf("ParseJoin(per-source) = %q, %v", j, err)
	}
	if _, err := ParseJoin("best-effort"); err == nil {
		t.Error("ParseJoin accepted unknown policy")
	}
}
