// Package dashboard assembles the dashboard view model from four
// independent sources fetched concurrently.
package dashboard

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/theirongolddev/budget/internal/budget"
	"github.com/theirongolddev/budget/internal/model"
)

var (
	// ErrLoadFailed wraps the cause of an all-or-nothing load failure.
	ErrLoadFailed = errors.New("dashboard: load failed")
	// ErrStale is returned by a load that finished after a newer one was
	// started. Its result was discarded.
	ErrStale = errors.New("dashboard: load superseded")
)

// Join controls how source failures affect a load.
type Join string

const (
	// AllOrNothing fails the whole load if any source fails.
	AllOrNothing Join = "all-or-nothing"
	// PerSource keeps whatever loaded and records per-section errors.
	PerSource Join = "per-source"
)

// ParseJoin validates a join policy name.
func ParseJoin(s string) (Join, error) {
	switch Join(s) {
	case AllOrNothing, PerSource:
		return Join(s), nil
	case "":
		return AllOrNothing, nil
	}
	return "", fmt.Errorf("dashboard: unknown join policy %q", s)
}

// Section names one of the dashboard's sources.
type Section string

const (
	SectionBudgets  Section = "budgets"
	SectionSummary  Section = "summary"
	SectionAlerts   Section = "alerts"
	SectionInsights Section = "insights"
)

// Source is the remote data the dashboard reads.
type Source interface {
	BudgetStatus(ctx context.Context) ([]model.BudgetStatus, error)
	TransactionSummary(ctx context.Context) (model.TransactionSummary, error)
	Alerts(ctx context.Context, unreadOnly bool) ([]model.Alert, error)
	Insights(ctx context.Context) ([]model.Insight, error)
}

// Options tunes an Aggregator. Zero limits use the defaults.
type Options struct {
	Join         Join
	AlertLimit   int
	InsightLimit int
}

const (
	DefaultAlertLimit   = 5
	DefaultInsightLimit = 3
)

// ViewModel is one complete dashboard load. It is rebuilt from scratch on
// every load and never patched in place.
type ViewModel struct {
	Generation uint64
	LoadedAt   time.Time

	Budgets []budget.Status
	Totals  budget.Totals
	Summary model.TransactionSummary
	// Alerts holds the newest unread alerts, in server order.
	Alerts   []model.Alert
	Insights []model.Insight

	// Errors is only populated under PerSource.
	Errors map[Section]error
}

// Degraded reports whether any section failed to load.
func (vm ViewModel) Degraded() bool {
	return len(vm.Errors) > 0
}

// Aggregator loads and holds the current dashboard.
type Aggregator struct {
	src  Source
	opts Options
	log  *slog.Logger

	mu        sync.RWMutex
	issued    uint64
	current   ViewModel
	hasLoaded bool
}

// New creates an aggregator. A nil logger uses slog.Default().
func New(src Source, opts Options, logger *slog.Logger) *Aggregator {
	if opts.Join == "" {
		opts.Join = AllOrNothing
	}
	if opts.AlertLimit <= 0 {
		opts.AlertLimit = DefaultAlertLimit
	}
	if opts.InsightLimit <= 0 {
		opts.InsightLimit = DefaultInsightLimit
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Aggregator{src: src, opts: opts, log: logger}
}

// Current returns the last successfully installed view model. ok is false
// before the first successful load.
func (a *Aggregator) Current() (ViewModel, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.current, a.hasLoaded
}

// Load fetches all sources concurrently and, if this is still the newest
// load when it completes, installs the result as Current.
func (a *Aggregator) Load(ctx context.Context) (ViewModel, error) {
	gen := a.nextGeneration()

	var (
		vm  ViewModel
		err error
	)
	if a.opts.Join == PerSource {
		vm = a.fetchPerSource(ctx)
	} else {
		vm, err = a.fetchAll(ctx)
	}
	if err != nil {
		// Sources are not named; a failed load is a failed load.
		a.log.Warn("dashboard load failed", "generation", gen, "error", err)
		return ViewModel{}, fmt.Errorf("%w: %w", ErrLoadFailed, err)
	}

	vm.Generation = gen
	vm.LoadedAt = time.Now()
	if !a.install(vm) {
		a.log.Debug("discarding stale dashboard load", "generation", gen)
		return ViewModel{}, ErrStale
	}
	return vm, nil
}

func (a *Aggregator) nextGeneration() uint64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.issued++
	return a.issued
}

func (a *Aggregator) install(vm ViewModel) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	if vm.Generation != a.issued {
		return false
	}
	a.current = vm
	a.hasLoaded = true
	return true
}

// fetchAll fails fast: the first error cancels the remaining fetches.
func (a *Aggregator) fetchAll(ctx context.Context) (ViewModel, error) {
	var (
		statuses []model.BudgetStatus
		summary  model.TransactionSummary
		alerts   []model.Alert
		insights []model.Insight
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		statuses, err = a.src.BudgetStatus(gctx)
		return err
	})
	g.Go(func() (err error) {
		summary, err = a.src.TransactionSummary(gctx)
		return err
	})
	g.Go(func() (err error) {
		alerts, err = a.src.Alerts(gctx, true)
		return err
	})
	g.Go(func() (err error) {
		insights, err = a.src.Insights(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return ViewModel{}, err
	}

	return a.build(statuses, summary, alerts, insights), nil
}

// fetchPerSource waits for every source and keeps what succeeded.
func (a *Aggregator) fetchPerSource(ctx context.Context) ViewModel {
	var (
		statuses []model.BudgetStatus
		summary  model.TransactionSummary
		alerts   []model.Alert
		insights []model.Insight

		mu     sync.Mutex
		errs   = make(map[Section]error)
		record = func(s Section, err error) {
			if err == nil {
				return
			}
			mu.Lock()
			errs[s] = err
			mu.Unlock()
		}
	)

	var g errgroup.Group
	g.Go(func() error {
		var err error
		statuses, err = a.src.BudgetStatus(ctx)
		record(SectionBudgets, err)
		return nil
	})
	g.Go(func() error {
		var err error
		summary, err = a.src.TransactionSummary(ctx)
		record(SectionSummary, err)
		return nil
	})
	g.Go(func() error {
		var err error
		alerts, err = a.src.Alerts(ctx, true)
		record(SectionAlerts, err)
		return nil
	})
	g.Go(func() error {
		var err error
		insights, err = a.src.Insights(ctx)
		record(SectionInsights, err)
		return nil
	})
	_ = g.Wait()

	vm := a.build(statuses, summary, alerts, insights)
	if len(errs) > 0 {
		vm.Errors = errs
		for s, err := range errs {
			a.log.Warn("dashboard section failed", "section", s, "error", err)
		}
	}
	return vm
}

func (a *Aggregator) build(statuses []model.BudgetStatus, summary model.TransactionSummary, alerts []model.Alert, insights []model.Insight) ViewModel {
	derived := budget.DeriveAll(statuses)
	return ViewModel{
		Budgets:  derived,
		Totals:   budget.Sum(derived),
		Summary:  summary,
		Alerts:   head(alerts, a.opts.AlertLimit),
		Insights: head(insights, a.opts.InsightLimit),
	}
}

// head returns a copy of the first n items.
func head[T any](items []T, n int) []T {
	if len(items) > n {
		items = items[:n]
	}
	return append([]T(nil), items...)
}
