// Package daemon provides the long-running background budget monitor.
package daemon

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/theirongolddev/budget/internal/api"
	"github.com/theirongolddev/budget/internal/budget"
	"github.com/theirongolddev/budget/internal/dashboard"
	"github.com/theirongolddev/budget/internal/model"

	"github.com/shopspring/decimal"
)

// Config controls the daemon runtime behavior.
type Config struct {
	Interval     time.Duration
	Addr         string
	EventsBuffer int
	// Source is reported in status payloads (the API base URL).
	Source string
}

// Loader produces dashboard view models; *dashboard.Aggregator satisfies it.
type Loader interface {
	Load(ctx context.Context) (dashboard.ViewModel, error)
}

// ReauthFunc tries to recover from a rejected access token, typically by
// running the refresh flow. A nil error means the poll may be retried.
type ReauthFunc func(ctx context.Context) error

// Snapshot is a compact budget state for status/event payloads.
type Snapshot struct {
	At             time.Time       `json:"at"`
	TotalBudget    decimal.Decimal `json:"total_budget"`
	TotalSpent     decimal.Decimal `json:"total_spent"`
	Remaining      decimal.Decimal `json:"remaining"`
	PercentageUsed float64         `json:"percentage_used"`
	Transactions   int             `json:"transactions"`
	OverBudget     int             `json:"over_budget"`
	UnreadAlerts   int             `json:"unread_alerts"`
	Degraded       bool            `json:"degraded,omitempty"`
}

// Delta captures snapshot deltas between polls.
type Delta struct {
	Spent        decimal.Decimal `json:"spent"`
	Transactions int             `json:"transactions"`
	UnreadAlerts int             `json:"unread_alerts"`
}

func (d Delta) isZero() bool {
	return d.Spent.IsZero() &&
		d.Transactions == 0 &&
		d.UnreadAlerts == 0
}

// Crossing records a category moving to a different severity band.
type Crossing struct {
	CategoryID     string  `json:"category_id"`
	CategoryName   string  `json:"category_name"`
	From           string  `json:"from"`
	To             string  `json:"to"`
	PercentageUsed float64 `json:"percentage_used"`
}

// Event is emitted whenever the budget snapshot changes.
type Event struct {
	ID        int64         `json:"id"`
	Type      string        `json:"type"`
	Timestamp time.Time     `json:"timestamp"`
	Snapshot  Snapshot      `json:"snapshot"`
	Delta     Delta         `json:"delta"`
	Crossings []Crossing    `json:"crossings,omitempty"`
	NewAlerts []model.Alert `json:"new_alerts,omitempty"`
}

// Event types.
const (
	EventSnapshot = "snapshot"
	EventUpdate   = "budget_update"
)

// Status is served at /v1/status.
type Status struct {
	StartedAt       time.Time `json:"started_at"`
	LastPollAt      time.Time `json:"last_poll_at"`
	PollIntervalSec int       `json:"poll_interval_sec"`
	PollCount       int64     `json:"poll_count"`
	Source          string    `json:"source"`
	Summary         Snapshot  `json:"summary"`
	LastError       string    `json:"last_error,omitempty"`
	EventCount      int       `json:"event_count"`
	SubscriberCount int       `json:"subscriber_count"`
}

// Service provides the daemon runtime and HTTP API.
type Service struct {
	cfg    Config
	loader Loader
	reauth ReauthFunc
	log    *slog.Logger

	mu          sync.RWMutex
	startedAt   time.Time
	lastPollAt  time.Time
	pollCount   int64
	lastError   string
	hasSnapshot bool
	snapshot    Snapshot
	severities  map[string]budget.Severity
	seenAlerts  map[string]struct{}
	nextEventID int64
	events      []Event

	nextSubID int
	subs      map[int]chan Event
}

// New returns a new daemon service. reauth may be nil.
func New(cfg Config, loader Loader, reauth ReauthFunc, logger *slog.Logger) *Service {
	if cfg.Interval < 5*time.Second {
		cfg.Interval = 60 * time.Second
	}
	if cfg.EventsBuffer < 1 {
		cfg.EventsBuffer = 200
	}
	if cfg.Addr == "" {
		cfg.Addr = "127.0.0.1:8788"
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Service{
		cfg:        cfg,
		loader:     loader,
		reauth:     reauth,
		log:        logger,
		startedAt:  time.Now(),
		severities: make(map[string]budget.Severity),
		seenAlerts: make(map[string]struct{}),
		subs:       make(map[int]chan Event),
	}
}

// Handler returns the daemon's HTTP API.
func (s *Service) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", s.handleHealth)
	mux.HandleFunc("/v1/status", s.handleStatus)
	mux.HandleFunc("/v1/events", s.handleEvents)
	mux.HandleFunc("/v1/stream", s.handleStream)
	return mux
}

// Run starts HTTP endpoints and polling until ctx is canceled.
func (s *Service) Run(ctx context.Context) error {
	server := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	// Seed initial snapshot so status is useful immediately.
	s.pollOnce(ctx)

	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return server.Shutdown(shutdownCtx)
		case <-ticker.C:
			s.pollOnce(ctx)
		case err := <-errCh:
			return fmt.Errorf("daemon http server: %w", err)
		}
	}
}

func (s *Service) load(ctx context.Context) (dashboard.ViewModel, error) {
	vm, err := s.loader.Load(ctx)
	if err == nil || s.reauth == nil || !errors.Is(err, api.ErrUnauthorized) {
		return vm, err
	}
	s.log.Info("access token rejected, refreshing")
	if rerr := s.reauth(ctx); rerr != nil {
		return vm, fmt.Errorf("%w (refresh failed: %v)", err, rerr)
	}
	return s.loader.Load(ctx)
}

func (s *Service) pollOnce(ctx context.Context) {
	vm, err := s.load(ctx)
	if err != nil {
		if errors.Is(err, dashboard.ErrStale) {
			return
		}
		s.mu.Lock()
		s.lastError = err.Error()
		s.lastPollAt = time.Now()
		s.pollCount++
		s.mu.Unlock()
		s.log.Warn("poll failed", "error", err)
		return
	}

	now := time.Now()
	snap := snapshotFromView(vm, now)

	var (
		ev      Event
		publish bool
	)

	s.mu.Lock()
	prev := s.snapshot
	prevExists := s.hasSnapshot

	crossings := s.trackSeverities(vm.Budgets, prevExists)
	newAlerts := s.trackAlerts(vm.Alerts, prevExists)

	s.hasSnapshot = true
	s.snapshot = snap
	s.lastPollAt = now
	s.pollCount++
	s.lastError = ""

	if !prevExists {
		s.nextEventID++
		ev = Event{
			ID:        s.nextEventID,
			Type:      EventSnapshot,
			Timestamp: now,
			Snapshot:  snap,
		}
		publish = true
	} else {
		delta := diffSnapshots(prev, snap)
		if !delta.isZero() || len(crossings) > 0 || len(newAlerts) > 0 {
			s.nextEventID++
			ev = Event{
				ID:        s.nextEventID,
				Type:      EventUpdate,
				Timestamp: now,
				Snapshot:  snap,
				Delta:     delta,
				Crossings: crossings,
				NewAlerts: newAlerts,
			}
			publish = true
		}
	}
	s.mu.Unlock()

	for _, c := range crossings {
		s.log.Info("budget threshold crossed", "category", c.CategoryName, "from", c.From, "to", c.To, "pct", c.PercentageUsed)
	}
	if publish {
		s.publishEvent(ev)
	}
}

// trackSeverities records each category's band and returns the categories
// whose band changed. Callers hold s.mu.
func (s *Service) trackSeverities(statuses []budget.Status, report bool) []Crossing {
	var out []Crossing
	for _, st := range statuses {
		prev, known := s.severities[st.CategoryID]
		s.severities[st.CategoryID] = st.Severity
		if report && known && prev != st.Severity {
			out = append(out, Crossing{
				CategoryID:     st.CategoryID,
				CategoryName:   st.CategoryName,
				From:           prev.String(),
				To:             st.Severity.String(),
				PercentageUsed: st.PercentageUsed,
			})
		}
	}
	return out
}

// trackAlerts returns alerts not seen in an earlier poll. Callers hold s.mu.
func (s *Service) trackAlerts(alerts []model.Alert, report bool) []model.Alert {
	var out []model.Alert
	for _, a := range alerts {
		if _, seen := s.seenAlerts[a.ID]; seen {
			continue
		}
		s.seenAlerts[a.ID] = struct{}{}
		if report {
			out = append(out, a)
		}
	}
	return out
}

func snapshotFromView(vm dashboard.ViewModel, at time.Time) Snapshot {
	over := 0
	for _, st := range vm.Budgets {
		if st.OverBudget() {
			over++
		}
	}
	return Snapshot{
		At:             at,
		TotalBudget:    vm.Totals.TotalBudget,
		TotalSpent:     vm.Totals.TotalSpent,
		Remaining:      vm.Totals.Remaining,
		PercentageUsed: vm.Totals.PercentageUsed,
		Transactions:   vm.Summary.TotalTransactions,
		OverBudget:     over,
		UnreadAlerts:   len(vm.Alerts),
		Degraded:       vm.Degraded(),
	}
}

func diffSnapshots(prev, curr Snapshot) Delta {
	return Delta{
		Spent:        curr.TotalSpent.Sub(prev.TotalSpent),
		Transactions: curr.Transactions - prev.Transactions,
		UnreadAlerts: curr.UnreadAlerts - prev.UnreadAlerts,
	}
}

func (s *Service) publishEvent(ev Event) {
	s.mu.Lock()
	s.events = append(s.events, ev)
	if len(s.events) > s.cfg.EventsBuffer {
		s.events = s.events[len(s.events)-s.cfg.EventsBuffer:]
	}

	for _, ch := range s.subs {
		select {
		case ch <- ev:
		default:
		}
	}
	s.mu.Unlock()
}

func (s *Service) snapshotStatus() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return Status{
		StartedAt:       s.startedAt,
		LastPollAt:      s.lastPollAt,
		PollIntervalSec: int(s.cfg.Interval.Seconds()),
		PollCount:       s.pollCount,
		Source:          s.cfg.Source,
		Summary:         s.snapshot,
		LastError:       s.lastError,
		EventCount:      len(s.events),
		SubscriberCount: len(s.subs),
	}
}

func (s *Service) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("ok\n"))
}

func (s *Service) handleStatus(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(s.snapshotStatus())
}

func (s *Service) handleEvents(w http.ResponseWriter, _ *http.Request) {
	s.mu.RLock()
	events := make([]Event, len(s.events))
	copy(events, s.events)
	s.mu.RUnlock()

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(events)
}

func (s *Service) handleStream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	ch := make(chan Event, 16)
	id := s.addSubscriber(ch)
	defer s.removeSubscriber(id)

	// Send current snapshot immediately.
	current := Event{
		Type:      EventSnapshot,
		Timestamp: time.Now(),
		Snapshot:  s.snapshotStatus().Summary,
	}
	writeSSE(w, current)
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case ev := <-ch:
			writeSSE(w, ev)
			flusher.Flush()
		}
	}
}

func writeSSE(w http.ResponseWriter, ev Event) {
	data, err := json.Marshal(ev)
	if err != nil {
		return
	}
	_, _ = fmt.Fprintf(w, "event: %s\n", ev.Type)
	_, _ = fmt.Fprintf(w, "data: %s\n\n", data)
}

func (s *Service) addSubscriber(ch chan Event) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextSubID++
	id := s.nextSubID
	s.subs[id] = ch
	return id
}

func (s *Service) removeSubscriber(id int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.subs, id)
}
