// Package alerts keeps a local list of alerts and applies read/dismiss
// mutations against it and the server.
package alerts

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/theirongolddev/budget/internal/model"
)

// ErrUnknownAlert is returned for an ID that is not in the local list.
var ErrUnknownAlert = errors.New("alerts: unknown alert")

// Filter selects alerts by read state.
type Filter string

const (
	All    Filter = "all"
	Unread Filter = "unread"
	Read   Filter = "read"
)

// ParseFilter validates a filter name. Empty means All.
func ParseFilter(s string) (Filter, error) {
	switch f := Filter(strings.ToLower(s)); f {
	case All, Unread, Read:
		return f, nil
	case "":
		return All, nil
	}
	return "", fmt.Errorf("alerts: unknown filter %q (want all, unread or read)", s)
}

// Consistency chooses how local state reacts to failed mutations.
type Consistency string

const (
	// Baseline: MarkRead updates locally first and never reverts; Dismiss
	// removes locally only after the server confirms; MarkAllRead marks
	// everything read locally whatever the server said.
	Baseline Consistency = "baseline"
	// Rollback: every mutation applies locally first and reverts exactly
	// what failed.
	Rollback Consistency = "rollback"
)

// ParseConsistency validates a policy name. Empty means Baseline.
func ParseConsistency(s string) (Consistency, error) {
	switch c := Consistency(s); c {
	case Baseline, Rollback:
		return c, nil
	case "":
		return Baseline, nil
	}
	return "", fmt.Errorf("alerts: unknown consistency policy %q", s)
}

// Remote is the alert API.
type Remote interface {
	Alerts(ctx context.Context, unreadOnly bool) ([]model.Alert, error)
	MarkAlertRead(ctx context.Context, id string) (model.Alert, error)
	DismissAlert(ctx context.Context, id string) error
}

// maxInFlight caps concurrent mark-read calls in MarkAllRead.
const maxInFlight = 8

// BulkError reports the items of a bulk mutation that the server rejected.
type BulkError struct {
	Failed []string
	Total  int
	Err    error
}

func (e *BulkError) Error() string {
	return fmt.Sprintf("alerts: %d of %d updates failed: %v", len(e.Failed), e.Total, e.Err)
}

func (e *BulkError) Unwrap() error { return e.Err }

// ViewModel is the alerts screen's state.
type ViewModel struct {
	remote Remote
	policy Consistency
	log    *slog.Logger

	mu    sync.RWMutex
	items []model.Alert
}

// New creates an empty view model. A nil logger uses slog.Default().
func New(remote Remote, policy Consistency, logger *slog.Logger) *ViewModel {
	if policy == "" {
		policy = Baseline
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &ViewModel{remote: remote, policy: policy, log: logger}
}

// Policy returns the consistency policy in effect.
func (v *ViewModel) Policy() Consistency { return v.policy }

// Load replaces the local list with every alert from the server.
func (v *ViewModel) Load(ctx context.Context) error {
	items, err := v.remote.Alerts(ctx, false)
	if err != nil {
		return fmt.Errorf("alerts: loading: %w", err)
	}
	v.mu.Lock()
	v.items = items
	v.mu.Unlock()
	return nil
}

// List returns a copy of the alerts matching f, in server order.
func (v *ViewModel) List(f Filter) []model.Alert {
	v.mu.RLock()
	defer v.mu.RUnlock()
	out := make([]model.Alert, 0, len(v.items))
	for _, a := range v.items {
		switch {
		case f == Unread && a.IsRead, f == Read && !a.IsRead:
			continue
		}
		out = append(out, a)
	}
	return out
}

// UnreadCount counts unread alerts in the local list.
func (v *ViewModel) UnreadCount() int {
	v.mu.RLock()
	defer v.mu.RUnlock()
	n := 0
	for _, a := range v.items {
		if !a.IsRead {
			n++
		}
	}
	return n
}

// MarkRead marks one alert read locally, then on the server.
func (v *ViewModel) MarkRead(ctx context.Context, id string) error {
	prev, ok := v.setRead(id, true)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownAlert, id)
	}
	if _, err := v.remote.MarkAlertRead(ctx, id); err != nil {
		if v.policy == Rollback {
			v.setRead(id, prev)
		}
		return fmt.Errorf("alerts: marking %s read: %w", id, err)
	}
	return nil
}

// Dismiss deletes an alert. Under Baseline the local list changes only after
// the server confirms.
func (v *ViewModel) Dismiss(ctx context.Context, id string) error {
	if v.policy == Rollback {
		removed, idx, ok := v.remove(id)
		if !ok {
			return fmt.Errorf("%w: %s", ErrUnknownAlert, id)
		}
		if err := v.remote.DismissAlert(ctx, id); err != nil {
			v.insert(idx, removed)
			return fmt.Errorf("alerts: dismissing %s: %w", id, err)
		}
		return nil
	}

	if !v.has(id) {
		return fmt.Errorf("%w: %s", ErrUnknownAlert, id)
	}
	if err := v.remote.DismissAlert(ctx, id); err != nil {
		return fmt.Errorf("alerts: dismissing %s: %w", id, err)
	}
	v.remove(id)
	return nil
}

// MarkAllRead sends one mark-read call per unread alert concurrently and
// waits for all of them. Failures are collected into a *BulkError.
//
// Under Baseline every local alert ends up read even when some calls fail,
// so the local list can disagree with the server until the next Load.
func (v *ViewModel) MarkAllRead(ctx context.Context) error {
	ids := v.unreadIDs()
	if len(ids) == 0 {
		return nil
	}

	if v.policy == Rollback {
		v.setAllRead(ids, true)
	}

	var (
		mu     sync.Mutex
		failed = make(map[string]error)
		g      errgroup.Group
	)
	g.SetLimit(maxInFlight)
	for _, id := range ids {
		g.Go(func() error {
			if _, err := v.remote.MarkAlertRead(ctx, id); err != nil {
				mu.Lock()
				failed[id] = err
				mu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()

	switch v.policy {
	case Rollback:
		v.setAllRead(mapKeys(failed), false)
	default:
		v.markEverythingRead()
	}

	if len(failed) == 0 {
		return nil
	}
	failedIDs := mapKeys(failed)
	slices.Sort(failedIDs)
	errs := make([]error, 0, len(failedIDs))
	for _, id := range failedIDs {
		errs = append(errs, fmt.Errorf("%s: %w", id, failed[id]))
	}
	v.log.Warn("mark all read partially failed", "failed", len(failedIDs), "total", len(ids), "policy", v.policy)
	return &BulkError{Failed: failedIDs, Total: len(ids), Err: errors.Join(errs...)}
}

func (v *ViewModel) setRead(id string, read bool) (prev, ok bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	for i := range v.items {
		if v.items[i].ID == id {
			prev = v.items[i].IsRead
			v.items[i].IsRead = read
			return prev, true
		}
	}
	return false, false
}

func (v *ViewModel) setAllRead(ids []string, read bool) {
	if len(ids) == 0 {
		return
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	for i := range v.items {
		if slices.Contains(ids, v.items[i].ID) {
			v.items[i].IsRead = read
		}
	}
}

func (v *ViewModel) markEverythingRead() {
	v.mu.Lock()
	defer v.mu.Unlock()
	for i := range v.items {
		v.items[i].IsRead = true
	}
}

func (v *ViewModel) unreadIDs() []string {
	v.mu.RLock()
	defer v.mu.RUnlock()
	var ids []string
	for _, a := range v.items {
		if !a.IsRead {
			ids = append(ids, a.ID)
		}
	}
	return ids
}

func (v *ViewModel) has(id string) bool {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return slices.ContainsFunc(v.items, func(a model.Alert) bool { return a.ID == id })
}

func (v *ViewModel) remove(id string) (model.Alert, int, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	idx := slices.IndexFunc(v.items, func(a model.Alert) bool { return a.ID == id })
	if idx < 0 {
		return model.Alert{}, -1, false
	}
	removed := v.items[idx]
	v.items = slices.Delete(v.items, idx, idx+1)
	return removed, idx, true
}

func (v *ViewModel) insert(idx int, a model.Alert) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if idx > len(v.items) {
		idx = len(v.items)
	}
	v.items = slices.Insert(v.items, idx, a)
}

func mapKeys(m map[string]error) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	return keys
}
